// Command blocksmith maintains versioned YAML model blocks generated
// from the Together AI model catalog.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/everstacklabs/blocksmith/internal/cache"
	"github.com/everstacklabs/blocksmith/internal/classify"
	"github.com/everstacklabs/blocksmith/internal/config"
	"github.com/everstacklabs/blocksmith/internal/feed"
	"github.com/everstacklabs/blocksmith/internal/httpclient"
	"github.com/everstacklabs/blocksmith/internal/pipeline"
	"github.com/everstacklabs/blocksmith/internal/reconcile"
	"github.com/everstacklabs/blocksmith/internal/validate"
)

var cfgFile string

var version = "1.0.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "blocksmith",
		Short: "Generate versioned model blocks from the Together AI catalog",
		Long: `blocksmith fetches the Together AI model listing, assigns catalog
roles to each model, and maintains one versioned YAML block file per
model. Reruns are idempotent: a block is only rewritten, and its
version only bumped, when its content actually changed.`,
		Version: version,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	rootCmd.AddCommand(
		generateCmd(),
		diffCmd(),
		discoverCmd(),
		validateCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(pipeline.ExitFailure)
	}
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Fetch the feed and write changed blocks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			source, err := buildSource(cmd, cfg)
			if err != nil {
				return err
			}

			opts, err := runOptions(cmd, cfg)
			if err != nil {
				return err
			}

			res, err := pipeline.New(cfg, source).Run(cmd.Context(), opts)
			if err != nil {
				return err
			}

			if opts.DryRun || res.ChangeSet.HasChanges() || len(res.ChangeSet.Stale) > 0 {
				fmt.Println(reconcile.RenderSummary(res.ChangeSet))
			}
			if summary, _ := cmd.Flags().GetBool("summary"); summary {
				res.Stats.Render(os.Stdout, cfg.AutocompleteModels)
			}
			return nil
		},
	}

	addSourceFlags(cmd)
	cmd.Flags().Bool("skip-free", false, "skip models with explicit zero pricing")
	cmd.Flags().Bool("force-regenerate", false, "rewrite every block even when content is unchanged")
	cmd.Flags().String("bump", "minor", "version component to bump on content change (patch, minor, major)")
	cmd.Flags().Bool("dry-run", false, "evaluate without writing")
	cmd.Flags().Bool("summary", false, "print summary statistics after the run")

	return cmd
}

func diffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Show pending block changes without writing",
		Long: `diff evaluates the feed against the blocks on disk and exits 2
when anything would change, so CI can gate on it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			source, err := buildSource(cmd, cfg)
			if err != nil {
				return err
			}

			opts, err := runOptions(cmd, cfg)
			if err != nil {
				return err
			}

			res, err := pipeline.New(cfg, source).Diff(cmd.Context(), opts)
			if err != nil {
				return err
			}

			fmt.Println(reconcile.RenderSummary(res.ChangeSet))

			if res.ChangeSet.HasChanges() {
				os.Exit(pipeline.ExitChanges)
			}
			return nil
		},
	}

	addSourceFlags(cmd)
	cmd.Flags().Bool("skip-free", false, "skip models with explicit zero pricing")
	cmd.Flags().String("bump", "minor", "version component to bump on content change (patch, minor, major)")

	return cmd
}

func discoverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Fetch and classify the feed, print the eligible roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			source, err := buildSource(cmd, cfg)
			if err != nil {
				return err
			}

			records, err := source.Fetch(cmd.Context())
			if err != nil {
				return err
			}

			classifier := classify.New(classify.Config{
				AutocompleteAllowList: cfg.AutocompleteModels,
				ApplyContextThreshold: cfg.ApplyContextThreshold,
			})

			type row struct {
				Model         string          `json:"model"`
				Name          string          `json:"name"`
				Type          string          `json:"type"`
				ContextLength int             `json:"context_length,omitempty"`
				Roles         []classify.Role `json:"roles"`
			}
			var rows []row
			for _, rec := range records {
				sum, err := classifier.Classify(rec)
				if err != nil {
					continue
				}
				rows = append(rows, row{
					Model:         rec.ID,
					Name:          rec.DisplayName,
					Type:          sum.Type,
					ContextLength: sum.ContextLength,
					Roles:         sum.Roles,
				})
			}

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Model", "Name", "Type", "Context", "Roles"})
			for _, r := range rows {
				tw.AppendRow(table.Row{r.Model, r.Name, r.Type, r.ContextLength, joinRoles(r.Roles)})
			}
			tw.Render()
			fmt.Printf("\n%d of %d models eligible\n", len(rows), len(records))
			return nil
		},
	}

	addSourceFlags(cmd)
	cmd.Flags().Bool("json", false, "emit the roster as JSON")

	return cmd
}

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the block files on disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			result, err := validate.ValidateDir(cfg.OutputDir)
			if err != nil {
				return err
			}
			fmt.Print(validate.FormatResult(result))

			if result.HasErrors() {
				os.Exit(pipeline.ExitFailure)
			}
			return nil
		},
	}

	cmd.Flags().StringP("output-dir", "o", "", "blocks directory (default: from config)")

	return cmd
}

// loadConfig reads the config file, applies flag overrides, and sets
// up logging, in that order so log_level from the file is honored.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if dir, _ := cmd.Flags().GetString("output-dir"); dir != "" {
		cfg.OutputDir = dir
	}
	setupLogging(cfg.LogLevel)
	return cfg, nil
}

// buildSource picks the record source: a local JSON file when
// --input-file is set, otherwise the live API (which needs a key).
func buildSource(cmd *cobra.Command, cfg *config.Config) (feed.Source, error) {
	if path, _ := cmd.Flags().GetString("input-file"); path != "" {
		return feed.NewFileSource(path), nil
	}

	if cfg.API.Key == "" {
		return nil, fmt.Errorf("an API key is required: set TOGETHER_API_KEY or pass --input-file")
	}

	noCache, _ := cmd.Flags().GetBool("no-cache")
	return feed.NewTogetherAPI(cfg.API.Key, cfg.API.BaseURL, newHTTPClient(cfg, noCache || cfg.NoCache)), nil
}

func newHTTPClient(cfg *config.Config, noCache bool) *httpclient.Client {
	opts := []httpclient.Option{
		httpclient.WithRateLimit(cfg.RateLimit),
	}

	if noCache {
		opts = append(opts, httpclient.WithNoCache())
		return httpclient.New(opts...)
	}

	ttl, err := time.ParseDuration(cfg.CacheTTL)
	if err != nil {
		slog.Warn("invalid cache_ttl, using 1h", "value", cfg.CacheTTL)
		ttl = time.Hour
	}
	store, err := cache.Open(cfg.CacheDir, ttl)
	if err != nil {
		slog.Warn("cache unavailable, continuing without", "error", err)
	} else {
		opts = append(opts, httpclient.WithCache(store))
	}

	return httpclient.New(opts...)
}

func runOptions(cmd *cobra.Command, cfg *config.Config) (pipeline.Options, error) {
	bumpFlag, _ := cmd.Flags().GetString("bump")
	bump, err := reconcile.ParseBump(bumpFlag)
	if err != nil {
		return pipeline.Options{}, err
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	force, _ := cmd.Flags().GetBool("force-regenerate")
	skipFree, _ := cmd.Flags().GetBool("skip-free")

	return pipeline.Options{
		DryRun:   dryRun,
		Force:    force,
		SkipFree: skipFree || cfg.SkipFree,
		Bump:     bump,
	}, nil
}

func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("input-file", "f", "", "read models from a local JSON file instead of the API")
	cmd.Flags().StringP("output-dir", "o", "", "blocks directory (default: from config)")
	cmd.Flags().Bool("no-cache", false, "bypass the HTTP response cache")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

func joinRoles(roles []classify.Role) string {
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = string(r)
	}
	return strings.Join(parts, ", ")
}
