package cli

import (
	"errors"
	"flag"
	"fmt"

	"deobf-bot/internal/ledger"
)

func runSettings(args []string) error {
	if len(args) == 0 {
		printSettingsUsage()
		return nil
	}
	switch args[0] {
	case "show":
		return runSettingsShow(args[1:])
	case "set":
		return runSettingsSet(args[1:])
	case "help", "-h", "--help":
		printSettingsUsage()
		return nil
	default:
		printSettingsUsage()
		return fmt.Errorf("unknown settings subcommand %q", args[0])
	}
}

func runSettingsShow(args []string) error {
	fs := flag.NewFlagSet("settings show", flag.ContinueOnError)
	dataDir := fs.String("data-dir", defaultDataDir, "bot data directory")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	l, err := openLedger(*dataDir)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(map[string]any{"token_system_enabled": l.Enabled()})
	}
	fmt.Printf("token system: %s\n", enabledWord(l.Enabled()))
	return nil
}

func runSettingsSet(args []string) error {
	fs := flag.NewFlagSet("settings set", flag.ContinueOnError)
	dataDir := fs.String("data-dir", defaultDataDir, "bot data directory")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 1 || (rest[0] != "on" && rest[0] != "off") {
		return errors.New("usage: settings set [flags] on|off")
	}
	enable := rest[0] == "on"

	l, err := openLedger(*dataDir)
	if err != nil {
		return err
	}
	if err := l.SetEnabled(enable); err != nil {
		if errors.Is(err, ledger.ErrUnchanged) {
			fmt.Printf("token system already %s\n", enabledWord(enable))
			return nil
		}
		return err
	}
	if *jsonOut {
		return printJSON(map[string]any{"token_system_enabled": enable})
	}
	fmt.Printf("token system %s\n", enabledWord(enable))
	return nil
}

func printSettingsUsage() {
	fmt.Println("settings commands:")
	fmt.Println("  settings show")
	fmt.Println("  settings set on|off")
}
