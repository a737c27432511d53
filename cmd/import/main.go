package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"audit-log-importer/pkg/importer"
	"audit-log-importer/pkg/store"

	"github.com/lmittmann/tint"
)

type cliConfig struct {
	DBPath     string
	Dataset    string
	BatchRows  int
	BatchBytes int
	Verbose    bool
}

func main() {
	cfg := parseFlags()

	if flag.NArg() != 1 {
		flag.Usage()
		fmt.Fprintf(os.Stderr, "\nError: exactly one audit log file is required\n")
		os.Exit(1)
	}
	path := flag.Arg(0)

	logLevel := slog.LevelInfo
	if cfg.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: logLevel,
	})))

	st, err := store.NewStore(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open store", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	supervisor := importer.NewSupervisor()
	session := supervisor.Begin()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		slog.Info("canceling import", "signal", sig)
		session.Cancel()
	}()

	im := importer.New(st, importer.Options{
		BatchRows:  cfg.BatchRows,
		BatchBytes: cfg.BatchBytes,
	}, func(snap importer.Snapshot) {
		pct := 0.0
		if snap.BytesTotal > 0 {
			pct = float64(snap.BytesRead) / float64(snap.BytesTotal) * 100
		}
		slog.Info("progress",
			"percent", fmt.Sprintf("%.1f", pct),
			"parsed", snap.RecordsParsed,
			"inserted", snap.RecordsInserted,
			"bad", snap.BadRecords,
		)
	})

	result, err := im.Run(session, cfg.Dataset, path)
	if err != nil {
		if errors.Is(err, importer.ErrCanceled) {
			slog.Info("import canceled", "dataset", cfg.Dataset)
			os.Exit(1)
		}
		slog.Error("import failed", "dataset", cfg.Dataset, "error", err)
		os.Exit(1)
	}

	slog.Info("import complete",
		"dataset", cfg.Dataset,
		"records", result.RecordsInserted,
		"bad", result.BadRecords,
	)
}

func parseFlags() cliConfig {
	var cfg cliConfig

	flag.StringVar(&cfg.DBPath, "db", "audit.db", "Path to SQLite database")
	flag.StringVar(&cfg.Dataset, "dataset", "default", "Dataset name to import into")
	flag.IntVar(&cfg.BatchRows, "batch-rows", 0, "Rows per batch flush (0 = default)")
	flag.IntVar(&cfg.BatchBytes, "batch-bytes", 0, "Approximate bytes per batch flush (0 = default)")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "Verbose output")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <audit-log-file>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Import an audit log file into a dataset, replacing any previous\n")
		fmt.Fprintf(os.Stderr, "contents of that dataset.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()
	return cfg
}
