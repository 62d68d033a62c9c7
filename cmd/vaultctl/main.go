package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"vaultbank/config"
	"vaultbank/storage"
	"vaultbank/vault"
)

const (
	checkConfigCommand = "check-config"
	totalsCommand      = "totals"
	opsCommand         = "ops"
	defaultConfig      = "./config.toml"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case checkConfigCommand:
		runCheckConfig(os.Args[2:])
	case totalsCommand:
		runTotals(os.Args[2:])
	case opsCommand:
		runOps(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [flags]\n\nCommands:\n", filepath.Base(os.Args[0]))
	fmt.Fprintf(os.Stderr, "  %s\tvalidate a configuration file\n", checkConfigCommand)
	fmt.Fprintf(os.Stderr, "  %s\tprint the recorded ledger totals\n", totalsCommand)
	fmt.Fprintf(os.Stderr, "  %s\tlist recorded operations\n", opsCommand)
}

func runCheckConfig(args []string) {
	fs := flag.NewFlagSet(checkConfigCommand, flag.ExitOnError)
	configPath := fs.String("config", defaultConfig, "Path to the configuration file")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		fatalf("%v", err)
	}
	fmt.Printf("%s: ok\n", *configPath)
}

func runTotals(args []string) {
	fs := flag.NewFlagSet(totalsCommand, flag.ExitOnError)
	configPath := fs.String("config", defaultConfig, "Path to the configuration file")
	fs.Parse(args)

	v, db := openVault(*configPath)
	defer db.Close()

	totals := v.Totals()
	fmt.Printf("total:          %s\n", totals.Total)
	fmt.Printf("deposit count:  %d\n", totals.DepositCount)
	fmt.Printf("withdraw count: %d\n", totals.WithdrawCount)
	fmt.Printf("headroom:       %s\n", v.Headroom())
	fmt.Printf("reference:      %s\n", v.Reference().Hex())
}

func runOps(args []string) {
	fs := flag.NewFlagSet(opsCommand, flag.ExitOnError)
	configPath := fs.String("config", defaultConfig, "Path to the configuration file")
	start := fs.Int64("start", 0, "Inclusive start of the timestamp window (unix seconds, 0 disables)")
	end := fs.Int64("end", 0, "Inclusive end of the timestamp window (unix seconds, 0 disables)")
	cursor := fs.String("cursor", "", "Identifier of the last record from the previous page")
	limit := fs.Int("limit", 50, "Maximum number of records per page")
	fs.Parse(args)

	_, db := openVault(*configPath)
	defer db.Close()

	journal := vault.NewJournal(db)
	records, next, err := journal.List(*start, *end, *cursor, *limit)
	if err != nil {
		fatalf("list operations: %v", err)
	}
	for _, record := range records {
		fmt.Printf("%s\t%s\t%s\tasset=%s amount=%s value=%s account=%s\n",
			record.ID,
			strconv.FormatInt(record.CreatedAt, 10),
			record.Kind,
			record.Asset.Hex(),
			record.Amount,
			record.Value,
			record.Account.Hex(),
		)
	}
	if next != "" {
		fmt.Printf("next cursor: %s\n", next)
	}
}

// openVault loads the configuration, opens the data directory and restores
// the recorded ledger state. The returned vault has no live collaborators
// wired; it serves read operations only.
func openVault(configPath string) (*vault.Vault, storage.Database) {
	cfg, err := config.Load(configPath)
	if err != nil {
		fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		fatalf("%v", err)
	}
	params, err := cfg.Params()
	if err != nil {
		fatalf("%v", err)
	}
	admin, err := cfg.AdminAddress()
	if err != nil {
		fatalf("%v", err)
	}
	custody, err := cfg.CustodyAddress()
	if err != nil {
		fatalf("%v", err)
	}
	oracle, err := cfg.NativeOracleAddress()
	if err != nil {
		fatalf("%v", err)
	}
	routerAddr, err := cfg.RouterAddress()
	if err != nil {
		fatalf("%v", err)
	}
	reference, err := cfg.ReferenceAssetAddress()
	if err != nil {
		fatalf("%v", err)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		fatalf("open data dir %s: %v", cfg.DataDir, err)
	}
	v, err := vault.New(admin, custody, params, oracle, vault.StaticRouter(routerAddr), reference)
	if err != nil {
		db.Close()
		fatalf("construct vault: %v", err)
	}
	if err := v.LoadState(vault.NewStateStore(db)); err != nil {
		db.Close()
		fatalf("load state: %v", err)
	}
	return v, db
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
