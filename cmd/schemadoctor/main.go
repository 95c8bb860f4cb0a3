package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"schemadoctor/internal/announce"
	"schemadoctor/internal/config"
	"schemadoctor/internal/dataapi"
	"schemadoctor/internal/db"
	"schemadoctor/internal/logging"
	"schemadoctor/internal/migrate"
	"schemadoctor/internal/probe"
	"schemadoctor/internal/scripts"
	"schemadoctor/internal/server"
	"schemadoctor/internal/verify"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "announce":
		err = announceCmd(args)
	case "probe":
		err = probeCmd(args)
	case "check":
		err = checkCmd(args)
	case "verify":
		err = verifyCmd(args)
	case "apply":
		err = applyCmd(args)
	case "status":
		err = statusCmd(args)
	case "serve":
		err = serveCmd(args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %s\n", cmd)
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`schemadoctor commands:
  announce - print a migration script for manual application
  probe    - insert one synthetic record to test the table schema
  check    - announce the newest migration, then probe the schema
  verify   - introspect the probe table over a direct connection
  apply    - apply pending migration scripts over a direct connection
  status   - show recent apply-ledger entries
  serve    - launch the JSON API

Configuration comes from SCHEMADOCTOR_* environment variables.
Flags are command specific; run "<cmd> -h" for details.`)
}

func announceCmd(args []string) error {
	fs := flagSet("announce")
	file := fs.String("file", "", "migration script path; defaults to the newest script in the migrations dir")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	path := *file
	if path == "" {
		latest, err := scripts.Latest(cfg.MigrationsDir)
		if err != nil {
			return err
		}
		path = latest.Path
	}

	a := announce.New(os.Stdout, cfg.ConsoleURL)
	return a.Announce(path)
}

func probeCmd(args []string) error {
	fs := flagSet("probe")
	table := fs.String("table", "", "override the probe table from config")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if *table != "" {
		cfg.ProbeTable = *table
	}
	if err := cfg.RequireDataAPI(); err != nil {
		return err
	}

	report := runProbe(cfg)
	printReport(report)
	return nil
}

func checkCmd(args []string) error {
	fs := flagSet("check")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireDataAPI(); err != nil {
		return err
	}

	// Announce first so the operator has the script in hand before the
	// probe verdict arrives.
	latest, err := scripts.Latest(cfg.MigrationsDir)
	if err != nil {
		return err
	}
	a := announce.New(os.Stdout, cfg.ConsoleURL)
	if err := a.Announce(latest.Path); err != nil {
		return err
	}

	fmt.Println()
	report := runProbe(cfg)
	printReport(report)
	return nil
}

func runProbe(cfg config.Config) probe.Report {
	logger := logging.NewLoggerTo(os.Stderr, cfg.LogLevel)
	client := dataapi.New(cfg.DataAPIURL, cfg.APIKey, cfg.ServiceToken)
	prober := probe.New(client, logger, cfg.ProbeTable)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return prober.Run(ctx, nil)
}

func printReport(report probe.Report) {
	switch report.Outcome {
	case probe.OutcomeSchemaOK:
		fmt.Println("schema already fixed: the table accepted the probe record")
	case probe.OutcomeAccessDenied:
		fmt.Printf("access denied (status %d): %s\n", report.StatusCode, report.Detail)
	case probe.OutcomeTransportFailure:
		fmt.Printf("data api unreachable: %s\n", report.Detail)
	default:
		fmt.Printf("schema needs the migration (status %d): %s\n", report.StatusCode, report.Detail)
	}
}

func verifyCmd(args []string) error {
	fs := flagSet("verify")
	table := fs.String("table", "", "override the probe table from config")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if *table != "" {
		cfg.ProbeTable = *table
	}
	if err := cfg.RequireDB(); err != nil {
		return err
	}

	adapter, err := db.Open(cfg.DB)
	if err != nil {
		return err
	}
	defer adapter.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tbl, exists, err := adapter.FetchTable(ctx, cfg.DB.Schema, cfg.ProbeTable)
	if err != nil {
		return fmt.Errorf("introspect %s: %w", cfg.ProbeTable, err)
	}

	exp, err := verify.ExpectationFor(cfg.ProbeTable, probe.DefaultRecord())
	if err != nil {
		return err
	}
	finding := verify.Check(tbl, exists, exp)
	fmt.Println(verify.Describe(finding))
	return nil
}

func applyCmd(args []string) error {
	fs := flagSet("apply")
	approve := fs.Bool("approve", false, "skip approval prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireDB(); err != nil {
		return err
	}

	fmt.Printf("About to apply pending scripts from %s via %s\n", cfg.MigrationsDir, cfg.DB.Provider)
	if !*approve {
		if ok, err := promptYes("Type YES to proceed: "); err != nil {
			return err
		} else if !ok {
			return fmt.Errorf("aborted by user")
		}
	}

	adapter, err := db.Open(cfg.DB)
	if err != nil {
		return err
	}
	defer adapter.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	logger := logging.NewLogger(cfg.LogLevel)
	runner := migrate.New(adapter, logger, cfg.LedgerTable, cfg.MigrationsDir)
	applied, err := runner.Up(ctx)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		fmt.Println("nothing to apply, ledger is up to date")
		return nil
	}
	fmt.Printf("applied %d script(s): %s\n", len(applied), strings.Join(applied, ", "))
	return nil
}

func statusCmd(args []string) error {
	fs := flagSet("status")
	limit := fs.Int("limit", 10, "number of ledger rows to fetch")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireDB(); err != nil {
		return err
	}

	adapter, err := db.Open(cfg.DB)
	if err != nil {
		return err
	}
	defer adapter.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger := logging.NewLoggerTo(os.Stderr, cfg.LogLevel)
	runner := migrate.New(adapter, logger, cfg.LedgerTable, cfg.MigrationsDir)
	rows, err := runner.History(ctx, *limit)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("no ledger entries yet")
		return nil
	}
	for _, r := range rows {
		errText := ""
		if r.Error.Valid {
			errText = " err=" + r.Error.String
		}
		fmt.Printf("[%s] %s status=%s checksum=%s%s\n",
			r.AppliedAt.Format(time.RFC3339), r.ScriptName, r.Status, r.Checksum, errText)
	}
	return nil
}

func serveCmd(args []string) error {
	fs := flagSet("serve")
	addr := fs.String("addr", "", "listen address; overrides SCHEMADOCTOR_HTTP_ADDR")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.HTTPAddress = *addr
	}
	if err := cfg.RequireDataAPI(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.NewLogger(cfg.LogLevel)
	client := dataapi.New(cfg.DataAPIURL, cfg.APIKey, cfg.ServiceToken)
	prober := probe.New(client, logger, cfg.ProbeTable)
	srv := server.New(cfg.HTTPAddress, logger, prober, client, cfg.MigrationsDir)

	if err := srv.Start(ctx); err != nil {
		logger.Error("server stopped with error", "error", err)
		return err
	}
	return nil
}

func promptYes(prompt string) (bool, error) {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}
	return strings.EqualFold(strings.TrimSpace(line), "YES"), nil
}

func flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stdout)
	return fs
}
