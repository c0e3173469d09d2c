package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"library-catalog/config"
	"library-catalog/library"
)

// app holds everything a command needs once the configuration is loaded.
type app struct {
	cfg     config.Config
	lib     *library.Library
	db      *library.Database
	closers []func(context.Context) error
}

var (
	configPath string
	dbOverride string
	sortFlag   string

	current *app

	rootCmd = &cobra.Command{
		Use:   "library",
		Short: "Book catalog with role based access, undo and customer requests",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			current = a
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if current == nil {
				return nil
			}
			return current.close(cmd.Context())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd.Context(), current, os.Stdin)
		},
	}

	shellCmd = &cobra.Command{
		Use:   "shell",
		Short: "Log in and work with the catalog interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd.Context(), current, os.Stdin)
		},
	}

	booksCmd = &cobra.Command{
		Use:   "books",
		Short: "Print the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			key := library.SortKey(strings.ToLower(sortFlag))
			if !isSortKey(key) {
				return fmt.Errorf("unknown sort key %q (want one of %s)", sortFlag, sortKeyList())
			}
			printBooks(key.Apply(current.lib.Catalog.List()))
			return nil
		},
	}

	usersCmd = &cobra.Command{
		Use:   "users",
		Short: "List accounts (admin login required)",
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := newScanner(os.Stdin)
			actor, err := login(sc, current.lib)
			if err != nil {
				return err
			}
			users, err := current.lib.Catalog.ListUsers(actor)
			if err != nil {
				return err
			}
			printUsers(users)
			return nil
		},
	}

	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Print catalog counters in Prometheus text format",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("books: %d  users: %d  pending requests: %d\n\n",
				current.lib.Catalog.Len(), current.lib.Users.Len(), current.lib.Requests.Count())
			families, err := current.lib.Metrics.Registry.Gather()
			if err != nil {
				return err
			}
			for _, mf := range families {
				if _, err := expfmt.MetricFamilyToText(os.Stdout, mf); err != nil {
					return err
				}
			}
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the YAML configuration")
	rootCmd.PersistentFlags().StringVar(&dbOverride, "db", "", "SQLite database file (overrides the config)")
	booksCmd.Flags().StringVar(&sortFlag, "sort", string(library.SortByISBNKey), "order: "+sortKeyList())
	rootCmd.AddCommand(shellCmd, booksCmd, usersCmd, statsCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dbOverride != "" {
		cfg.Database = dbOverride
	}
	a := &app{cfg: cfg}

	logger, err := a.openLogger()
	if err != nil {
		return nil, err
	}
	opts := library.Options{
		Logger:                 logger,
		BcryptCost:             cfg.BcryptCost,
		LoginAttemptsPerMinute: cfg.LoginAttemptsPerMinute,
		SeedUsers:              cfg.SeedUsers,
		Menu:                   cfg.CafeMenu,
	}
	if cfg.Tracing.Enabled {
		tp, err := a.openTracer()
		if err != nil {
			a.close(ctx)
			return nil, err
		}
		opts.Tracer = tp.Tracer("library-catalog")
	}

	a.db, err = library.NewDatabase(cfg.Database)
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return a.db.Close() })

	a.lib, err = library.NewLibrary(a.db, opts)
	if err != nil {
		a.close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *app) openLogger() (*slog.Logger, error) {
	level, err := a.cfg.Level()
	if err != nil {
		return nil, err
	}
	if a.cfg.LogFile == "" {
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
	}
	f, err := os.OpenFile(a.cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return f.Close() })
	return slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level})), nil
}

func (a *app) openTracer() (*sdktrace.TracerProvider, error) {
	f, err := os.OpenFile(a.cfg.Tracing.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(f))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	// Shut the provider down before closing the file so pending spans flush.
	a.closers = append(a.closers,
		func(context.Context) error { return f.Close() },
		tp.Shutdown)
	return tp, nil
}

// close releases resources in reverse order of acquisition.
func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](ctx))
	}
	a.closers = nil
	return errors.Join(errs...)
}

func isSortKey(k library.SortKey) bool {
	for _, known := range library.SortKeys {
		if k == known {
			return true
		}
	}
	return false
}

func sortKeyList() string {
	names := make([]string, len(library.SortKeys))
	for i, k := range library.SortKeys {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
