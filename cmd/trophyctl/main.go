// Package main - консольная утилита: считает трофеи для логина GitHub
// и печатает их таблицей или JSON без запуска HTTP сервера.
//
// Использование:
//
//	trophyctl [-columns N] [-show-locked] [-show-hidden=false] [-json] <login>
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/devtrophies/trophies/config"
	"github.com/devtrophies/trophies/internal/application/query"
	"github.com/devtrophies/trophies/internal/domain/layout"
	"github.com/devtrophies/trophies/internal/domain/trophy"
	"github.com/devtrophies/trophies/internal/infrastructure/external/github"
	"github.com/devtrophies/trophies/pkg/logger"
	"github.com/devtrophies/trophies/pkg/timeutil"
)

// options - разобранные флаги командной строки.
type options struct {
	columns    int
	theme      string
	showLocked bool
	showHidden bool
	noAnim     bool
	asJSON     bool
	verbose    bool
	login      string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	if err := run(ctx, opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, errOut io.Writer) (options, error) {
	var opts options

	fs := flag.NewFlagSet("trophyctl", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.IntVar(&opts.columns, "columns", 0, "grid columns (0 = default, clamped to the maximum)")
	fs.StringVar(&opts.theme, "theme", query.DefaultTheme, "theme name")
	fs.BoolVar(&opts.showLocked, "show-locked", false, "include locked achievements")
	fs.BoolVar(&opts.showHidden, "show-hidden", true, "include unlocked secret achievements")
	fs.BoolVar(&opts.noAnim, "no-animation", false, "disable reveal delays")
	fs.BoolVar(&opts.asJSON, "json", false, "print the full result as JSON")
	fs.BoolVar(&opts.verbose, "v", false, "debug logging to stderr")
	fs.Usage = func() {
		fmt.Fprintln(errOut, "usage: trophyctl [flags] <login>")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return opts, fmt.Errorf("expected exactly one login, got %d", fs.NArg())
	}
	if opts.columns < 0 {
		return opts, fmt.Errorf("columns must be non-negative, got %d", opts.columns)
	}
	opts.login = fs.Arg(0)

	return opts, nil
}

func (o options) query() query.GetTrophiesQuery {
	q := query.NewGetTrophiesQuery(o.login)
	q.Columns = o.columns
	q.Theme = o.theme
	q.ShowLocked = o.showLocked
	q.ShowHidden = o.showHidden
	q.Animation = !o.noAnim
	return q
}

func run(ctx context.Context, opts options, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logOpts := logger.DefaultOptions()
	logOpts.Output = os.Stderr
	logOpts.Format = logger.FormatConsole
	logOpts.Level = logger.LevelWarn
	if opts.verbose {
		logOpts.Level = logger.LevelDebug
	}
	log := logger.New(logOpts)
	defer func() { _ = log.Sync() }()

	clock := timeutil.SystemClock()

	ghClient, err := github.NewClient(github.ClientConfig{
		BaseURL:            cfg.GitHub.BaseURL,
		Token:              cfg.GitHub.Token,
		UserAgent:          cfg.GitHub.UserAgent,
		Timeout:            cfg.GitHub.RequestTimeout,
		RequestsPerSecond:  cfg.GitHub.RateLimit,
		Burst:              cfg.GitHub.RateLimitBurst,
		MaxRetries:         cfg.GitHub.MaxRetries,
		RetryBaseDelay:     cfg.GitHub.RetryBaseDelay,
		RetryMaxDelay:      cfg.GitHub.RetryMaxDelay,
		BreakerThreshold:   cfg.GitHub.CircuitBreakerThreshold,
		BreakerTimeout:     cfg.GitHub.CircuitBreakerTimeout,
		BreakerHalfOpenMax: cfg.GitHub.CircuitBreakerHalfOpenMax,
		MaxRepoPages:       cfg.GitHub.MaxRepoPages,
		Logger:             log,
	})
	if err != nil {
		return fmt.Errorf("failed to create github client: %w", err)
	}

	aggregator := query.NewMetricAggregator(ghClient, query.AggregatorConfig{
		ProfileTimeout: cfg.Aggregation.ProfileTimeout,
		AuxTimeout:     cfg.Aggregation.AuxTimeout,
	}, clock, log)

	handler := query.NewGetTrophiesHandler(
		aggregator,
		trophy.NewBuilder(cfg.Rules()),
		layout.NewGrid(cfg.Layout),
		cfg.Features,
		clock,
		log,
	)

	result, err := handler.Handle(ctx, opts.query())
	if err != nil {
		return err
	}

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	_, err = io.WriteString(out, render(result, clock.Now()))
	return err
}
