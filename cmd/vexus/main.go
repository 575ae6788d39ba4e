// Package main is the vexus CLI entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/vexus/internal/analysis"
	"github.com/hyperjump/vexus/internal/cli"
	"github.com/hyperjump/vexus/internal/codec"
	"github.com/hyperjump/vexus/internal/config"
	"github.com/hyperjump/vexus/internal/models"
	"github.com/hyperjump/vexus/internal/server"
	"github.com/hyperjump/vexus/internal/storage"
	"github.com/hyperjump/vexus/internal/vector"
	"github.com/hyperjump/vexus/internal/watcher"
	"github.com/hyperjump/vexus/pkg/utils"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/vexus/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// loadConfig loads config from path. When path is the default, a config.yaml in
// the current directory takes precedence so that "vexus server" run from a
// project directory uses that project's config.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "stats":
		runStats()
	case "recover":
		runRecover()
	case "init":
		runInit()
	case "version", "--version", "-v":
		fmt.Printf("vexus version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func runServer() {
	fs := pflag.NewFlagSet("server", pflag.ExitOnError)
	configPath := fs.StringP("config", "c", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
		zap.String("index_type", cfg.Index.Type),
		zap.Int("dimensions", cfg.Index.Dimensions),
	)

	if err := serve(cfg, logger); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

// serve runs the API, and the follower when enabled, until SIGINT or SIGTERM.
func serve(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	analyzer, err := analysis.NewAnalyzer(cfg.Index.Dimensions)
	if err != nil {
		return err
	}

	if cfg.Recovery.OnStartup {
		res, err := recoverInto(ctx, store, cfg, cfg.Recovery.Table, cfg.Recovery.Group)
		if err != nil {
			logger.Warn("startup recovery failed", zap.Error(err))
		} else {
			logger.Info("startup recovery finished", zap.Int("inserted", res.Inserted), zap.Int("skipped", res.Skipped))
		}
	}

	srv := server.NewServer(store, analyzer, cfg, logger)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	if cfg.Index.Follow {
		follower := watcher.NewFollower(cfg.Index.Path, store.Reload, watcher.WithLogger(logger))
		g.Go(func() error { return follower.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})
	err = g.Wait()

	// A follower only reads the index; the process that writes it owns saving.
	if cfg.Index.SaveOnShutdownOrDefault() && !cfg.Index.Follow {
		if saveErr := store.Save(cfg.Index.Path); saveErr != nil {
			logger.Warn("index save failed", zap.String("path", cfg.Index.Path), zap.Error(saveErr))
		}
	}
	return err
}

// openStore loads the index at cfg.Index.Path when enabled and present, and
// otherwise creates an empty one.
func openStore(cfg *config.Config, logger *zap.Logger) (*vector.Store, error) {
	opts := []vector.Option{
		vector.WithEngine(vector.FactoryFor(cfg.Index.Type)),
		vector.WithLogger(logger),
	}
	if cfg.Index.LoadOnStartupOrDefault() && cfg.Index.Path != "" {
		if _, statErr := os.Stat(cfg.Index.Path); statErr == nil {
			store, err := vector.Load(cfg.Index.Path, cfg.Index.Dimensions, cfg.Index.Capacity, opts...)
			if err == nil {
				return store, nil
			}
			logger.Warn("vector index load skipped (use recover to rebuild)",
				zap.String("path", cfg.Index.Path), zap.Error(err))
		}
	}
	store, err := vector.New(cfg.Index.Dimensions, cfg.Index.Capacity, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}
	logger.Info("vector store initialized",
		zap.String("type", cfg.Index.Type),
		zap.Int("capacity", cfg.Index.Capacity))
	return store, nil
}

// recoverInto streams table (filtered by group) from the configured database into store.
func recoverInto(ctx context.Context, store *vector.Store, cfg *config.Config, table, group string) (vector.RecoverResult, error) {
	src, err := storage.Open(ctx, cfg.Recovery.Driver, cfg.Recovery.DSN)
	if err != nil {
		return vector.RecoverResult{}, fmt.Errorf("open recovery source: %w", err)
	}
	defer src.Close()
	return store.RecoverFrom(ctx, src, storage.Query{Table: storage.Table(table), Group: group})
}

func printSearchUsage(fs *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, "Usage: vexus search [flags] [--] <v1,v2,...>\n\n")
	fmt.Fprintf(os.Stderr, "The query vector is all remaining arguments, comma or space separated.\n")
	fmt.Fprintf(os.Stderr, "Put -- before a vector whose first value is negative.\n\n")
	fs.PrintDefaults()
}

func runSearch() {
	fs := pflag.NewFlagSet("search", pflag.ExitOnError)
	serverURL := fs.StringP("server", "s", defaultServerURL, "server URL")
	k := fs.IntP("k", "k", models.DefaultK, "number of results")
	normalize := fs.Bool("normalize", false, "scale the query to unit length before searching")
	outputFormat := fs.StringP("output", "o", "text", "output format: text or json")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		printSearchUsage(fs)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fatalf("%v", err)
	}
	vec, err := cli.ParseVector(strings.Join(fs.Args(), " "), 0)
	if err != nil {
		fatalf("Invalid query vector: %v", err)
	}
	if *normalize {
		utils.NormalizeL2(vec)
	}

	response, err := searchViaHTTP(*serverURL, &models.SearchQuery{Query: codec.Encode(vec), K: *k})
	if err != nil {
		fatalf("Search failed: %v", err)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runStats() {
	fs := pflag.NewFlagSet("stats", pflag.ExitOnError)
	configPath := fs.StringP("config", "c", defaultConfigPath, "config file path (for direct mode)")
	serverURL := fs.StringP("server", "s", defaultServerURL, `server URL (empty = read the index file directly)`)
	outputFormat := fs.StringP("output", "o", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fatalf("%v", err)
	}

	var stats *models.StatsResponse
	if *serverURL != "" {
		stats, err = statsViaHTTP(*serverURL)
		if err != nil {
			fatalf("Stats failed: %v", err)
		}
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fatalf("Failed to load config: %v", err)
		}
		stats, err = statsDirect(cfg, zap.NewNop())
		if err != nil {
			fatalf("Stats failed: %v", err)
		}
	}
	if err := cli.WriteStats(os.Stdout, stats, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

// statsDirect reads the index file named by cfg without a running server.
func statsDirect(cfg *config.Config, logger *zap.Logger) (*models.StatsResponse, error) {
	store, err := openStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	st, err := store.Stats()
	if err != nil {
		return nil, err
	}
	resp := &models.StatsResponse{
		Count:       st.Count,
		Dimensions:  st.Dimensions,
		Capacity:    st.Capacity,
		MemoryUsage: st.MemoryUsage,
		IndexType:   cfg.Index.Type,
		IndexPath:   cfg.Index.Path,
	}
	if diskBytes, err := vector.DiskUsageBytes(cfg.Index.Path); err == nil {
		resp.DiskUsageBytes = &diskBytes
	}
	return resp, nil
}

func runRecover() {
	fs := pflag.NewFlagSet("recover", pflag.ExitOnError)
	configPath := fs.StringP("config", "c", defaultConfigPath, "config file path")
	table := fs.String("table", "", "table to recover from: tags or chunks (default from config)")
	group := fs.String("group", "", "group (diary name) for chunks (default from config)")
	outputFormat := fs.StringP("output", "o", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fatalf("%v", err)
	}
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	res, err := recoverDirect(ctx, cfg, *table, *group, logger)
	if err != nil {
		fatalf("Recover failed: %v", err)
	}
	if err := cli.WriteRecoverResult(os.Stdout, res, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

// recoverDirect rebuilds the index file from the database without a running
// server: load (or create) the index, fold the rows in, save it back.
func recoverDirect(ctx context.Context, cfg *config.Config, table, group string, logger *zap.Logger) (*models.RecoverResponse, error) {
	if table == "" {
		table = cfg.Recovery.Table
	}
	if group == "" {
		group = cfg.Recovery.Group
	}
	store, err := openStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	res, err := recoverInto(ctx, store, cfg, table, group)
	if err != nil {
		return nil, err
	}
	if err := store.Save(cfg.Index.Path); err != nil {
		return nil, err
	}
	return &models.RecoverResponse{Inserted: res.Inserted, Skipped: res.Skipped, Failed: res.Failed}, nil
}

func runInit() {
	fs := pflag.NewFlagSet("init", pflag.ExitOnError)
	configPath := fs.StringP("config", "c", "config.yaml", "where to write the config file")
	force := fs.Bool("force", false, "overwrite an existing file")
	dims := fs.Int("dimensions", 0, "vector dimensions (default 384)")
	_ = fs.Parse(os.Args[2:])

	if err := writeDefaultConfig(*configPath, *dims, *force); err != nil {
		fatalf("Init failed: %v", err)
	}
	fmt.Printf("Wrote %s\n", *configPath)
}

// writeDefaultConfig writes a config with every default applied, keeping the
// index and database next to the config file.
func writeDefaultConfig(path string, dims int, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	cfg := config.Default()
	cfg.Index.Path = "./data/index.vexus"
	cfg.Recovery.DSN = "./data/knowledge.db"
	if dims > 0 {
		cfg.Index.Dimensions = dims
	}
	return config.Save(path, cfg)
}

func printUsage() {
	fmt.Println(`vexus - Embedded vector store and embedding analysis server

Usage:
  vexus server [flags]               Start the HTTP server
  vexus search [flags] <v1,v2,...>   Search the index for the nearest vectors
  vexus stats [flags]                Show index size, capacity and disk usage
  vexus recover [flags]              Rebuild the index file from the database
  vexus init [flags]                 Write a default config file
  vexus version                      Show version
  vexus help                         Show this help

Server Flags:
  -c, --config string    Config file path (default: /usr/local/etc/vexus/config.yaml)
      --debug            Enable debug logging

Search Flags:
  -s, --server string    Server URL (default: http://localhost:8080)
  -k, --k int            Number of results (default: 10)
      --normalize        Scale the query to unit length first
  -o, --output string    Output format: text or json (default: text)

Stats Flags:
  -c, --config string    Config file path (for direct mode)
  -s, --server string    Server URL. Use empty (--server "") to read the index file directly.
  -o, --output string    Output format: text or json (default: text)

Recover Flags:
  -c, --config string    Config file path
      --table string     tags or chunks (default from config)
      --group string     Diary name for chunks (default from config)
  -o, --output string    Output format: text or json (default: text)

Examples:
  vexus init --dimensions 384
  vexus server --config ./config.yaml
  vexus search -k 5 0.1,0.2,0.3
  vexus search -- -0.5,1,0
  vexus stats --output json
  vexus recover --table chunks --group work`)
}
