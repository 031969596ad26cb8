package cli

import (
	"errors"
	"flag"
	"fmt"
	"sort"
	"strings"

	"deobf-bot/internal/ledger"
)

const defaultDataDir = "data"

func runLedger(args []string) error {
	if len(args) == 0 {
		printLedgerUsage()
		return nil
	}
	switch args[0] {
	case "show":
		return runLedgerShow(args[1:])
	case "credit":
		return runLedgerCredit(args[1:])
	case "gift":
		return runLedgerGift(args[1:])
	case "help", "-h", "--help":
		printLedgerUsage()
		return nil
	default:
		printLedgerUsage()
		return fmt.Errorf("unknown ledger subcommand %q", args[0])
	}
}

func openLedger(dataDir string) (*ledger.Ledger, error) {
	store, err := ledger.NewFileStore(strings.TrimSpace(dataDir))
	if err != nil {
		return nil, err
	}
	return ledger.New(store), nil
}

func runLedgerShow(args []string) error {
	fs := flag.NewFlagSet("ledger show", flag.ContinueOnError)
	dataDir := fs.String("data-dir", defaultDataDir, "bot data directory")
	id := fs.String("id", "", "show a single account (touches it, applying any due daily grant)")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	l, err := openLedger(*dataDir)
	if err != nil {
		return err
	}

	if strings.TrimSpace(*id) != "" {
		account := strings.TrimSpace(*id)
		balance, err := l.Balance(account)
		if err != nil {
			return err
		}
		if *jsonOut {
			return printJSON(map[string]any{"id": account, "tokens": balance})
		}
		fmt.Printf("%s: %d token(s)\n", account, balance)
		return nil
	}

	accounts, err := l.Snapshot()
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(map[string]any{
			"enabled":  l.Enabled(),
			"accounts": accounts,
		})
	}

	fmt.Printf("token system: %s\n", enabledWord(l.Enabled()))
	if len(accounts) == 0 {
		fmt.Println("no accounts yet")
		return nil
	}
	ids := make([]string, 0, len(accounts))
	for id := range accounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		rec := accounts[id]
		last := "never"
		if rec.LastDaily != nil {
			last = rec.LastDaily.Format("2006-01-02")
		}
		fmt.Printf("%s: %d token(s), last daily %s\n", id, rec.Tokens, last)
	}
	return nil
}

func runLedgerCredit(args []string) error {
	fs := flag.NewFlagSet("ledger credit", flag.ContinueOnError)
	dataDir := fs.String("data-dir", defaultDataDir, "bot data directory")
	id := fs.String("id", "", "account to credit")
	amount := fs.Int("amount", 0, "tokens to add (> 0)")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	account := strings.TrimSpace(*id)
	if account == "" {
		return errors.New("--id is required")
	}
	if *amount <= 0 {
		return errors.New("--amount must be > 0")
	}

	l, err := openLedger(*dataDir)
	if err != nil {
		return err
	}
	if err := l.Credit(account, *amount); err != nil {
		return err
	}
	balance, err := l.Balance(account)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(map[string]any{"id": account, "credited": *amount, "tokens": balance})
	}
	fmt.Printf("credited %d token(s) to %s, new balance %d\n", *amount, account, balance)
	return nil
}

func runLedgerGift(args []string) error {
	fs := flag.NewFlagSet("ledger gift", flag.ContinueOnError)
	dataDir := fs.String("data-dir", defaultDataDir, "bot data directory")
	from := fs.String("from", "", "sender account")
	to := fs.String("to", "", "recipient account")
	amount := fs.Int("amount", 0, "tokens to move (> 0)")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	sender := strings.TrimSpace(*from)
	recipient := strings.TrimSpace(*to)
	if sender == "" || recipient == "" {
		return errors.New("--from and --to are required")
	}
	if *amount <= 0 {
		return errors.New("--amount must be > 0")
	}

	l, err := openLedger(*dataDir)
	if err != nil {
		return err
	}
	if err := l.Transfer(sender, recipient, *amount); err != nil {
		if errors.Is(err, ledger.ErrInsufficientBalance) {
			return fmt.Errorf("%s does not have %d token(s)", sender, *amount)
		}
		return err
	}
	if *jsonOut {
		return printJSON(map[string]any{"from": sender, "to": recipient, "amount": *amount})
	}
	fmt.Printf("moved %d token(s) from %s to %s\n", *amount, sender, recipient)
	return nil
}

func enabledWord(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

func printLedgerUsage() {
	fmt.Println("ledger commands:")
	fmt.Println("  ledger show [--id <account>]")
	fmt.Println("  ledger credit --id <account> --amount <n>")
	fmt.Println("  ledger gift --from <account> --to <account> --amount <n>")
}
