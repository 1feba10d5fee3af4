package main

import (
	"context"
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"

	"todolist/internal/config"
	"todolist/internal/logger"
	"todolist/internal/remote"
	"todolist/internal/service"
	"todolist/internal/storage"
	"todolist/internal/ui"
)

var version = "dev"

type options struct {
	configPath string
	dbPath     string
	seedURL    string
	logLevel   string
	logFormat  string
	listOnly   bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", config.ResolveConfigPath(), "path to the config file")
	flag.StringVar(&opts.dbPath, "db", "", "path to the task database (overrides config)")
	flag.StringVar(&opts.seedURL, "seed-url", "", "endpoint for the sample tasks (overrides config)")
	flag.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	flag.StringVar(&opts.logFormat, "log-format", "", "text or json (overrides config)")
	flag.BoolVar(&opts.listOnly, "list", false, "print tasks and exit")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s\n", config.AppName, version)
		return
	}

	if err := run(context.Background(), opts, os.Stdout); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// run wires the program together. Every resource it opens is closed before it
// returns, including on failure.
func run(ctx context.Context, opts options, stdout io.Writer) error {
	cfg, created, err := config.LoadOrCreate(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if opts.dbPath != "" {
		cfg.DBPath = opts.dbPath
	}
	if opts.seedURL != "" {
		cfg.SeedURL = opts.seedURL
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.LogFormat = opts.logFormat
	}

	logFile, err := logger.OpenFile(cfg.LogPath)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()
	log := logger.New(logFile, cfg.LogLevel, cfg.LogFormat)
	if created {
		log.Info("wrote default config", "path", opts.configPath)
	}

	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		log.Error("open database", "path", cfg.DBPath, "err", err)
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	svc := service.New(store, remote.New(cfg.SeedURL), log)

	if opts.listOnly {
		if err := printTasks(ctx, stdout, svc, store); err != nil {
			return fmt.Errorf("failed to list tasks: %w", err)
		}
		return nil
	}

	log.Info("starting", "version", version, "db", cfg.DBPath)
	if err := ui.Run(ctx, svc, cfg, log); err != nil {
		log.Error("program exited", "err", err)
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}

func printTasks(ctx context.Context, w io.Writer, svc *service.Service, store *storage.Store) error {
	tasks, err := svc.LoadInitialData(ctx)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		mark := " "
		if t.Completed {
			mark = "x"
		}
		fmt.Fprintf(w, "[%s] %4d  %s  %s\n", mark, t.ID, t.CreatedAt.Local().Format("2006-01-02 15:04"), t.Title)
	}
	n, err := store.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%d tasks\n", n)
	return nil
}
