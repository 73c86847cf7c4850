// Package main is the agrocore command line front end: dashboard summary,
// harvest registry management, backup export/import, and filtered reports
// over a single persistent store.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"agrocore/internal/analytics"
	"agrocore/internal/blob"
	"agrocore/internal/config"
	"agrocore/internal/core"
	"agrocore/pkg/domain"
)

const usageText = `Usage: agrocore [-config path] <command> [args]

Commands:
  summary                         dashboard metrics for the current harvest
  harvests [list]                 list harvests, marking the current one
  harvests create <name>          register a harvest
  harvests set-current <id>       make a harvest current
  harvests delete -yes <id>       delete a harvest and its services
  export [-out file]              write a backup document (default stdout)
  import -yes <file>              replace all data with a backup document
  report [-from d] [-to d] [-client id] [-type t]
                                  filtered report (dates as YYYY-MM-DD)
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("agrocore", flag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.String("config", "", "config file path (default ~/.config/agrocore/config.toml)")
	flags.Usage = func() { fmt.Fprint(stderr, usageText) }
	if err := flags.Parse(args); err != nil {
		return 2
	}
	rest := flags.Args()
	if len(rest) == 0 {
		flags.Usage()
		return 2
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(stderr, "agrocore: load .env: %v\n", err)
		return 1
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "agrocore: %v\n", err)
		return 1
	}
	cfg.Export()

	logger := newLogger(stderr, cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := core.OpenPersistentStore(ctx, core.NewDefaultRulesEngine(), func(w domain.PersistenceWarning) {
		logger.Warn("persistence degraded", "op", w.Op, "error", w.Err)
	})
	if err != nil {
		fmt.Fprintf(stderr, "agrocore: open store: %v\n", err)
		return 1
	}
	defer func() {
		if closer, ok := store.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				fmt.Fprintf(stderr, "agrocore: close store: %v\n", err)
			}
		}
	}()

	opts := []core.Option{core.WithLogger(logger)}
	if rest[0] == "export" {
		archive, err := blob.Open(ctx)
		if err != nil {
			fmt.Fprintf(stderr, "agrocore: open backup archive: %v\n", err)
			return 1
		}
		opts = append(opts, core.WithBackupArchive(archive))
	}
	svc := core.NewService(store, opts...)

	if err := dispatch(ctx, svc, rest[0], rest[1:], stdout, stderr); err != nil {
		if errors.Is(err, errUsage) {
			flags.Usage()
			return 2
		}
		fmt.Fprintf(stderr, "agrocore: %v\n", err)
		return 1
	}
	return 0
}

var errUsage = errors.New("usage")

func dispatch(ctx context.Context, svc *core.Service, command string, args []string, stdout, stderr io.Writer) error {
	switch command {
	case "summary":
		return cmdSummary(ctx, svc, stdout)
	case "harvests":
		return cmdHarvests(ctx, svc, args, stdout, stderr)
	case "export":
		return cmdExport(ctx, svc, args, stdout, stderr)
	case "import":
		return cmdImport(ctx, svc, args, stdout, stderr)
	case "report":
		return cmdReport(ctx, svc, args, stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", command)
		return errUsage
	}
}

func cmdSummary(ctx context.Context, svc *core.Service, stdout io.Writer) error {
	harvest := svc.CurrentHarvest()
	out := struct {
		Harvest string            `json:"harvest"`
		Summary analytics.Summary `json:"summary"`
	}{Harvest: harvest.Name, Summary: svc.Dashboard(ctx)}
	return writeJSON(stdout, out)
}

func cmdHarvests(ctx context.Context, svc *core.Service, args []string, stdout, stderr io.Writer) error {
	sub := "list"
	if len(args) > 0 {
		sub = args[0]
		args = args[1:]
	}
	switch sub {
	case "list":
		current := svc.CurrentHarvest().ID
		for _, h := range svc.Harvests() {
			marker := " "
			if h.ID == current {
				marker = "*"
			}
			fmt.Fprintf(stdout, "%s %s\t%s\t%s\n", marker, h.ID, h.Name, h.CreatedAt.Format("2006-01-02"))
		}
		return nil
	case "create":
		if len(args) != 1 {
			return errors.New("harvests create expects exactly one name")
		}
		created, res, err := svc.CreateHarvest(ctx, args[0])
		reportWarnings(stderr, res)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "created harvest %s (%s)\n", created.Name, created.ID)
		return nil
	case "set-current":
		if len(args) != 1 {
			return errors.New("harvests set-current expects exactly one id")
		}
		res, err := svc.SetCurrentHarvest(ctx, args[0])
		reportWarnings(stderr, res)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "current harvest is now %s\n", svc.CurrentHarvest().Name)
		return nil
	case "delete":
		flags := flag.NewFlagSet("harvests delete", flag.ContinueOnError)
		flags.SetOutput(stderr)
		yes := flags.Bool("yes", false, "confirm deleting the harvest and all its services")
		if err := flags.Parse(args); err != nil {
			return err
		}
		if flags.NArg() != 1 {
			return errors.New("harvests delete expects exactly one id")
		}
		if !*yes {
			return errors.New("deleting a harvest removes all its services; re-run with -yes to confirm")
		}
		res, err := svc.DeleteHarvest(ctx, flags.Arg(0))
		reportWarnings(stderr, res)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "deleted harvest %s; current is now %s\n", flags.Arg(0), svc.CurrentHarvest().Name)
		return nil
	default:
		return fmt.Errorf("unknown harvests subcommand %q", sub)
	}
}

func cmdExport(ctx context.Context, svc *core.Service, args []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("export", flag.ContinueOnError)
	flags.SetOutput(stderr)
	out := flags.String("out", "", "write the backup to this file instead of stdout")
	if err := flags.Parse(args); err != nil {
		return err
	}

	doc, payload, err := svc.ExportBackup(ctx)
	if err != nil {
		return err
	}
	if *out == "" {
		_, err := stdout.Write(payload)
		return err
	}
	if err := os.WriteFile(*out, payload, 0o644); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}
	fmt.Fprintf(stdout, "exported %d services for harvest %q to %s\n", doc.Metadata.TotalServices, doc.Harvest, *out)
	return nil
}

func cmdImport(ctx context.Context, svc *core.Service, args []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("import", flag.ContinueOnError)
	flags.SetOutput(stderr)
	yes := flags.Bool("yes", false, "confirm replacing all current data")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return errors.New("import expects exactly one backup file")
	}
	if !*yes {
		return errors.New("import replaces all current data; re-run with -yes to confirm")
	}

	payload, err := os.ReadFile(flags.Arg(0))
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}
	doc, res, err := svc.ImportBackup(ctx, payload)
	reportWarnings(stderr, res)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "imported harvest %q: %d services, %d clients, %d employees, %d aircraft, %d crops\n",
		doc.Harvest, doc.Metadata.TotalServices, doc.Metadata.TotalClients, doc.Metadata.TotalEmployees,
		doc.Metadata.TotalAircraft, doc.Metadata.TotalCrops)
	return nil
}

func cmdReport(ctx context.Context, svc *core.Service, args []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("report", flag.ContinueOnError)
	flags.SetOutput(stderr)
	from := flags.String("from", "", "inclusive start date (YYYY-MM-DD)")
	to := flags.String("to", "", "inclusive end date (YYYY-MM-DD)")
	client := flags.String("client", "", "restrict to one client id")
	serviceType := flags.String("type", "", "restrict to one service type")
	if err := flags.Parse(args); err != nil {
		return err
	}

	var filter analytics.Filter
	var err error
	if filter.Start, err = parseDay(*from); err != nil {
		return fmt.Errorf("invalid -from: %w", err)
	}
	if filter.End, err = parseDay(*to); err != nil {
		return fmt.Errorf("invalid -to: %w", err)
	}
	filter.ClientID = strings.TrimSpace(*client)
	filter.Type = domain.ServiceType(strings.TrimSpace(*serviceType))

	return writeJSON(stdout, svc.Report(ctx, filter))
}

func parseDay(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", strings.TrimSpace(raw))
}

func reportWarnings(stderr io.Writer, res core.Result) {
	for _, w := range res.Warnings() {
		fmt.Fprintf(stderr, "warning: %s: %s\n", w.Rule, w.Message)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// slogAdapter bridges log/slog to the core.Logger surface.
type slogAdapter struct{ l *slog.Logger }

func (a slogAdapter) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }
func (a slogAdapter) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a slogAdapter) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a slogAdapter) Error(msg string, args ...any) { a.l.Error(msg, args...) }

func newLogger(w io.Writer, level string) core.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	return slogAdapter{l: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))}
}
