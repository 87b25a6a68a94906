// Package main is the partsearch CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/cli"
	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/config"
	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/importer"
	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/indexer"
	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/models"
	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/server"
	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/storage"
	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/watcher"
	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/partsearch/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// loadConfig loads config from path. When path is the default and a
// config.yaml exists in the working directory, that file is used instead.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				path = fallback
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
	case "recommend":
		runRecommend()
	case "reindex":
		runReindex()
	case "import-synonyms":
		runImportSynonyms()
	case "seed":
		runSeed()
	case "migrate":
		runMigrate()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("partsearch version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads the config and creates the logger. It exits on failure.
func setup(configPath string, debug bool) (*config.Config, string, *zap.Logger) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug || debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, resolved, logger
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, logger := setup(*configPath, *debug)
	defer logger.Sync()
	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", cfg.Debug || *debug),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	for name, c := range map[string]interface{ Rebuild(context.Context) error }{
		"category_closure": components.Closure,
		"synonyms":         components.Synonyms,
	} {
		if err := c.Rebuild(ctx); err != nil {
			logger.Warn("Cache warm-up failed; it will be built on first use", zap.String("cache", name), zap.Error(err))
		}
	}

	if cfg.Watch.Config {
		reloader := watcher.NewConfigReloader(components.Relevance, components.Recommend, components.Invalidators(), logger)
		w := watcher.NewWatcher(resolvedConfigPath, reloader.OnChange(), watcher.WithLogger(logger))
		if err := w.Start(ctx); err != nil {
			logger.Warn("Config watcher not started", zap.String("path", resolvedConfigPath), zap.Error(err))
		} else {
			defer w.Stop()
			logger.Info("Watching config for changes", zap.String("path", w.Path()))
		}
	}

	srv := server.NewServer(components.Engine, components.Storage, cfg, logger, components.Caches())
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	_ = srv.Stop(stopCtx)
}

// printSearchUsage prints search subcommand usage.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: partsearch search [flags] [query]\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Without a query only the filters apply.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  partsearch search brake pads
  partsearch search --manufacturer 7 --sort price_asc
  partsearch search --category 1 --model 70,80 disc
  partsearch search --server "" --output json clutch   # direct storage, JSON output
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags that appear after the query to the front
// so that flag.Parse sees them. The flag package stops at the first non-flag.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// parseIDList parses a comma-separated list of ids. Blank entries are skipped.
func parseIDList(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct storage mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage)")
	manufacturer := fs.Int64("manufacturer", 0, "manufacturer id filter")
	category := fs.Int64("category", 0, "category id filter (includes descendants)")
	modelList := fs.String("model", "", "comma-separated vehicle model ids")
	sortMode := fs.String("sort", "", "relevance, price_asc or price_desc")
	page := fs.Int("page", 1, "page number")
	pageSize := fs.Int("page-size", 0, "items per page (0 = config default)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fail("%v", err)
	}
	modelIDs, err := parseIDList(*modelList)
	if err != nil {
		fail("--model: %v", err)
	}
	query := &models.SearchQuery{
		Query:          buildSearchQuery(fs.Args()),
		ManufacturerID: *manufacturer,
		CategoryID:     *category,
		ModelIDs:       modelIDs,
		Sort:           models.SortMode(*sortMode),
		Page:           *page,
		PageSize:       *pageSize,
	}

	var result *models.SearchResult
	if *serverURL != "" {
		// The server holds the index lock, so go through the API when it runs.
		if result, err = searchViaHTTP(*serverURL, query); err != nil {
			fail("Search failed: %v", err)
		}
	} else {
		cfg, _, logger := setup(*configPath, false)
		defer logger.Sync()
		if query.PageSize == 0 {
			query.PageSize = cfg.Search.DefaultPageSize
		}
		components, err := initializeComponents(cfg, logger)
		if err != nil {
			fail("Failed to initialize: %v", err)
		}
		defer components.Close()
		if result, err = components.Engine.Search(context.Background(), query); err != nil {
			fail("Search failed: %v", err)
		}
	}
	if err := cli.WriteSearchResult(os.Stdout, result, format); err != nil {
		fail("Output failed: %v", err)
	}
}

func runRecommend() {
	fs := flag.NewFlagSet("recommend", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct storage mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage)")
	page := fs.Int("page", 1, "page number")
	pageSize := fs.Int("page-size", 10, "items per page")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fail("%v", err)
	}
	var result *models.RecommendationResult
	if *serverURL != "" {
		if result, err = recommendViaHTTP(*serverURL, *page, *pageSize); err != nil {
			fail("Recommend failed: %v", err)
		}
	} else {
		cfg, _, logger := setup(*configPath, false)
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger)
		if err != nil {
			fail("Failed to initialize: %v", err)
		}
		defer components.Close()
		result, err = components.Engine.Recommend(context.Background(), &models.RecommendQuery{Page: *page, PageSize: *pageSize})
		if err != nil {
			fail("Recommend failed: %v", err)
		}
	}
	if err := cli.WriteRecommendations(os.Stdout, result, format); err != nil {
		fail("Output failed: %v", err)
	}
}

func runReindex() {
	fs := flag.NewFlagSet("reindex", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	cfg, _, logger := setup(*configPath, false)
	defer logger.Sync()

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		fail("Failed to open storage: %v", err)
	}
	defer store.Close()

	n, err := indexer.NewIndexer(store, indexer.WithLogger(logger)).Rebuild(context.Background(), cfg.Storage.BleveIndexPath)
	if err != nil {
		fail("Reindex failed: %v (stop a running server first; it holds the index open)", err)
	}
	fmt.Printf("Indexed %d item(s) into %s\n", n, cfg.Storage.BleveIndexPath)
}

func runImportSynonyms() {
	fs := flag.NewFlagSet("import-synonyms", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	replace := fs.Bool("replace", false, "replace the whole synonym table instead of merging")
	serverURL := fs.String("server", "", "running server to notify so it drops its synonym cache")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: partsearch import-synonyms [flags] <file.xlsx|file.csv|file.tsv>")
		os.Exit(1)
	}
	cfg, _, logger := setup(*configPath, false)
	defer logger.Sync()

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		fail("Failed to open storage: %v", err)
	}
	defer store.Close()

	report, err := importer.NewImporter(store, importer.WithLogger(logger)).ImportFile(context.Background(), fs.Arg(0), *replace)
	if err != nil {
		fail("Import failed: %v", err)
	}
	fmt.Printf("Imported %d synonym(s) from %s (%d row(s) skipped)\n", report.Written, report.Path, len(report.Skipped))
	for _, re := range report.Skipped {
		fmt.Printf("  skipped %s\n", re.String())
	}
	if *serverURL != "" {
		if err := invalidateViaHTTP(*serverURL, "synonyms"); err != nil {
			fmt.Fprintf(os.Stderr, "Server cache not invalidated: %v\n", err)
		}
	}
}

func runSeed() {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	reindex := fs.Bool("reindex", false, "rebuild the full-text index after seeding")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: partsearch seed [flags] <catalog.yaml>")
		os.Exit(1)
	}
	cfg, _, logger := setup(*configPath, false)
	defer logger.Sync()

	seed, err := importer.LoadCatalogSeed(fs.Arg(0))
	if err != nil {
		fail("%v", err)
	}
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		fail("Failed to open storage: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	report, err := importer.NewSeeder(store, logger).Seed(ctx, seed)
	if err != nil {
		fail("Seed failed: %v", err)
	}
	fmt.Printf("Seeded %d manufacturer(s), %d model(s), %d category(s), %d item(s), %d synonym(s), %d order(s)\n",
		report.Manufacturers, report.Models, report.Categories, report.Items, report.Synonyms, report.Orders)
	if *reindex {
		n, err := indexer.NewIndexer(store, indexer.WithLogger(logger)).Rebuild(ctx, cfg.Storage.BleveIndexPath)
		if err != nil {
			fail("Reindex failed: %v", err)
		}
		fmt.Printf("Indexed %d item(s) into %s\n", n, cfg.Storage.BleveIndexPath)
	}
}

func runMigrate() {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	cfg, _, logger := setup(*configPath, false)
	defer logger.Sync()

	// Opening the store applies pending migrations.
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		fail("Migration failed: %v", err)
	}
	defer store.Close()
	v, dirty, err := store.SchemaVersion()
	if err != nil {
		fail("Read schema version: %v", err)
	}
	fmt.Printf("Schema at version %d (dirty: %t) in %s\n", v, dirty, cfg.Storage.DatabasePath)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct storage mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fail("%v", err)
	}

	var status *server.StatusResponse
	if *serverURL != "" {
		if status, err = statusViaHTTP(*serverURL); err != nil {
			fail("Status failed: %v", err)
		}
	} else {
		cfg, _, logger := setup(*configPath, false)
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger)
		if err != nil {
			fail("Failed to initialize: %v", err)
		}
		defer components.Close()
		stats, err := components.Storage.Stats(context.Background())
		if err != nil {
			fail("Catalog stats failed: %v", err)
		}
		status = &server.StatusResponse{
			Catalog:           stats,
			FullTextAvailable: components.Engine.FullTextAvailable(),
		}
		if usage, err := storage.MeasureDiskUsage(cfg.Storage.DatabasePath, cfg.Storage.BleveIndexPath); err == nil {
			status.DiskUsage = usage
		}
	}

	if format == cli.OutputJSON {
		if err := cli.WriteJSON(os.Stdout, status); err != nil {
			fail("Output failed: %v", err)
		}
		return
	}
	var dbBytes, indexBytes int64
	if status.DiskUsage != nil {
		dbBytes, indexBytes = status.DiskUsage.DatabaseBytes, status.DiskUsage.FullTextIndexBytes
	}
	cli.WriteStatus(os.Stdout, status.Catalog, status.FullTextAvailable, indexBytes, dbBytes)
	for name, built := range status.Caches {
		if built == nil {
			fmt.Printf("Cache %-16s not built\n", name+":")
		} else {
			fmt.Printf("Cache %-16s built %s\n", name+":", built.Format(time.RFC3339))
		}
	}
}

func printUsage() {
	fmt.Println(`partsearch - Auto-parts catalog search and recommendations

Usage:
  partsearch server [flags]                  Start the HTTP server
  partsearch search [flags] [query]          Search the catalog
  partsearch recommend [flags]               Show the recommendation feed
  partsearch reindex [flags]                 Rebuild the full-text index from the catalog
  partsearch import-synonyms [flags] <file>  Load synonyms from .xlsx, .csv or .tsv
  partsearch seed [flags] <catalog.yaml>     Load manufacturers, models, categories, items and orders
  partsearch migrate [flags]                 Apply database migrations
  partsearch status [flags]                  Show catalog, index and cache status
  partsearch version                         Show version
  partsearch help                            Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/partsearch/config.yaml,
                     or ./config.yaml when present)

Search Flags:
  --server string        Server URL (default: http://localhost:8080). Use --server "" for direct storage.
  --manufacturer int     Manufacturer id
  --category int         Category id (descendant categories are included)
  --model string         Comma-separated vehicle model ids
  --sort string          relevance, price_asc or price_desc
  --page int             Page number (default: 1)
  --page-size int        Items per page (default from config)
  --output string        text or json

Recommend Flags:
  --server, --page, --page-size, --output as for search

Import Flags:
  --replace          Replace the synonym table instead of merging
  --server string    Running server whose synonym cache should be invalidated

Seed Flags:
  --reindex          Rebuild the full-text index after seeding

Examples:
  partsearch migrate
  partsearch seed --reindex catalog.yaml
  partsearch import-synonyms synonyms.xlsx
  partsearch reindex
  partsearch server
  partsearch search brake pads
  partsearch search --output json --category 1
  partsearch recommend --page 2
  partsearch status --output json`)
}
