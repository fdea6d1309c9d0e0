package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/IshaanNene/Shelfie/internal/config"
	"github.com/IshaanNene/Shelfie/internal/engine"
	"github.com/IshaanNene/Shelfie/internal/fetcher"
	"github.com/IshaanNene/Shelfie/internal/observability"
	"github.com/IshaanNene/Shelfie/internal/sites"
	"github.com/IshaanNene/Shelfie/internal/storage"
	"github.com/IshaanNene/Shelfie/internal/types"
)

var (
	cfgFile     string
	verbose     bool
	urls        []string
	categories  []string
	maxPages    int
	formats     []string
	outputDir   string
	fetcherType string
	useMongo    bool
	headed      bool
	serveAddr   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "shelfie",
		Short: "Shelfie: grocery catalogue scraper",
		Long: `Shelfie scrapes product listings from grocery category pages.

It discovers how many pages a category has, walks them in a browser
session, splits brand and weight out of product names and exports the
result as a spreadsheet, CSV, JSON or MongoDB documents.

Supported sites: ` + strings.Join(sites.Slugs(), ", "),
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(crawlCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(sitesCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// crawlCmd creates the "crawl" subcommand.
func crawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <site>",
		Short: "Scrape a category of one site",
		Long: `Scrape every page of one or more category listings of a site.

Without --url the site's default category is scraped. Several --url or
--category flags make a multi-category run with one combined export.`,
		Args: cobra.ExactArgs(1),
		RunE: runCrawl,
	}

	cmd.Flags().StringArrayVarP(&urls, "url", "u", nil, "category URL (repeatable)")
	cmd.Flags().StringArrayVar(&categories, "category", nil, "category path under the site's category base (repeatable)")
	cmd.Flags().IntVarP(&maxPages, "pages", "p", -1, "maximum pages per category (0 = no cap, -1 = config default)")
	cmd.Flags().StringSliceVarP(&formats, "format", "f", nil, "export formats: xlsx, csv, json, jsonl")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory")
	cmd.Flags().StringVar(&fetcherType, "fetcher", "", "session type: browser or http")
	cmd.Flags().BoolVar(&useMongo, "mongo", false, "also store products in MongoDB")
	cmd.Flags().BoolVar(&headed, "headed", false, "show the browser window")

	return cmd
}

// runCrawl executes the crawl command.
func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogger(cfg, nil)

	profile, err := sites.Lookup(args[0])
	if err != nil {
		return err
	}

	targets := append([]string(nil), urls...)
	for _, c := range categories {
		targets = append(targets, profile.Category("", c))
	}
	for _, rawURL := range targets {
		if err := config.ValidateURL(rawURL); err != nil {
			return fmt.Errorf("invalid URL %q: %w", rawURL, err)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics(logger)
	if cfg.Metrics.Enabled {
		if err := metrics.StartServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			logger.Warn("failed to start metrics server", "error", err)
		}
	}

	logger.Info("starting crawl",
		"site", profile.Slug,
		"categories", max(len(targets), 1),
		"max_pages", cfg.Crawl.MaxPages,
		"fetcher", cfg.Browser.Fetcher,
		"formats", cfg.Export.Formats,
	)

	batch := engine.NewBatch(cfg, profile, targets, fetcher.NewOpener(&cfg.Browser, logger), logger)
	batch.SetMetrics(metrics)
	batch.SetObserver(&progressLog{logger: logger.With("component", "progress")})

	start := time.Now()
	res, runErr := batch.Run(ctx)
	if res == nil || len(res.Products) == 0 {
		if runErr != nil {
			return runErr
		}
		return fmt.Errorf("%s: %w", profile.Slug, types.ErrNoProducts)
	}

	files, err := storage.Write(cfg, storage.Export{
		Site:          profile.Slug,
		MultiCategory: len(targets) > 1,
		DedupeByName:  profile.DedupeOutputByName,
		At:            start,
	}, res.Products, metrics, logger)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	printSummary(profile, res, files, time.Since(start))

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			fmt.Println("\n   Interrupted: partial results were exported.")
			return nil
		}
		return runErr
	}
	return nil
}

func printSummary(profile *sites.Profile, res *engine.BatchResult, files []string, elapsed time.Duration) {
	visited, early := 0, false
	for _, r := range res.Runs {
		visited += r.PagesVisited
		early = early || r.EarlyStop
	}

	fmt.Printf("\nScraped %s in %s\n", profile.Name, elapsed.Round(time.Millisecond))
	fmt.Printf("   Categories: %d\n", len(res.Runs))
	fmt.Printf("   Pages:      %d visited of %d discovered\n", visited, res.TotalPages())
	fmt.Printf("   Products:   %d\n", len(res.Products))
	if early {
		fmt.Println("   Stopped early after consecutive empty pages.")
	}
	for _, f := range files {
		fmt.Printf("   Output:     %s\n", f)
	}
}

// progressLog reports crawl progress through the logger.
type progressLog struct {
	logger *slog.Logger
	total  int
}

func (p *progressLog) OnDiscovered(total int) {
	p.total = total
	p.logger.Info("pages discovered", "total", total)
}

func (p *progressLog) OnPageStart(page, total int) {
	p.logger.Debug("page starting", "page", page, "total", total)
}

func (p *progressLog) OnPageDone(page, count int) {
	p.logger.Info("page scraped", "page", page, "of", p.total, "products", count)
}

// sitesCmd creates the "sites" subcommand.
func sitesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sites",
		Short: "List supported sites",
		Run: func(cmd *cobra.Command, args []string) {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SLUG\tNAME\tDEFAULT URL")
			for _, p := range sites.All() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", p.Slug, p.Name, p.DefaultURL)
			}
			w.Flush()
		},
	}
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Shelfie %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			fmt.Print(string(out))
			return nil
		},
	}
}

// loadConfig loads, overrides and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	applyCLIOverrides(cfg)

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setupLogger creates a structured logger. wrap, when set, decorates the
// handler before use.
func setupLogger(cfg *config.Config, wrap func(slog.Handler) slog.Handler) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	if wrap != nil {
		handler = wrap(handler)
	}
	return slog.New(handler)
}

// applyCLIOverrides applies command-line flag values to the config.
func applyCLIOverrides(cfg *config.Config) {
	if maxPages >= 0 {
		cfg.Crawl.MaxPages = maxPages
	}
	if len(formats) > 0 {
		cfg.Export.Formats = nil
		for _, f := range formats {
			if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
				cfg.Export.Formats = append(cfg.Export.Formats, f)
			}
		}
	}
	if outputDir != "" {
		cfg.Export.OutputDir = outputDir
	}
	if fetcherType != "" {
		cfg.Browser.Fetcher = strings.ToLower(fetcherType)
	}
	if useMongo {
		cfg.Storage.Mongo.Enabled = true
	}
	if headed {
		cfg.Browser.Headless = false
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
}
