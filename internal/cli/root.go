package cli

import "fmt"

func Run(args []string) error {
	if len(args) == 0 {
		printRootUsage()
		return nil
	}

	switch args[0] {
	case "ledger":
		return runLedger(args[1:])
	case "settings":
		return runSettings(args[1:])
	case "doctor":
		return runDoctor(args[1:])
	case "manage":
		return runManage(args[1:])
	case "help", "-h", "--help":
		printRootUsage()
		return nil
	default:
		printRootUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printRootUsage() {
	fmt.Println("deobfctl: operator console for the deobfuscation bot")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  ledger    inspect and adjust token accounts")
	fmt.Println("  settings  show/update the token system switch")
	fmt.Println("  doctor    run dependency and filesystem preflight checks")
	fmt.Println("  manage    interactive account manager")
	fmt.Println()
	fmt.Println("Notes:")
	fmt.Println("  - All commands take --data-dir (default: data)")
	fmt.Println("  - Use --json on commands for machine-readable output")
}
