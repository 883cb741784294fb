// cmd/tools/catalog-seeder/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"aggregation-gateway/internal/catalog"
	"aggregation-gateway/internal/common/config"
	"aggregation-gateway/internal/common/database"
	"aggregation-gateway/pkg/registry"
)

// seeder is implemented by every remote catalog source.
type seeder interface {
	Seed(ctx context.Context, tables catalog.Tables) error
}

func main() {
	seedCmd := flag.NewFlagSet("seed", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)

	source := seedCmd.String("source", "redis", "Target source (redis, postgres, elasticsearch)")
	seedData := seedCmd.String("data", "", "Directory with <kind>.json files (embedded seed data when empty)")
	seedRegistry := seedCmd.String("registry", "", "Resource registry file (built-in registry when empty)")
	configPath := seedCmd.String("config", "configs/config.yaml", "Gateway configuration file with database settings")

	validateData := validateCmd.String("data", "", "Directory with <kind>.json files (embedded seed data when empty)")
	validateRegistry := validateCmd.String("registry", "", "Resource registry file (built-in registry when empty)")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	switch os.Args[1] {
	case "seed":
		_ = seedCmd.Parse(os.Args[2:])
		cat, err := readCatalog(ctx, *seedData, *seedRegistry)
		if err != nil {
			fmt.Printf("Error reading catalog data: %v\n", err)
			os.Exit(1)
		}
		cfg, err := config.LoadFromFile(*configPath)
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}
		if err := seed(ctx, *source, cfg, cat.Tables()); err != nil {
			fmt.Printf("Error seeding %s: %v\n", *source, err)
			os.Exit(1)
		}
		fmt.Printf("Seeded %s: %s\n", *source, summary(cat))

	case "validate":
		_ = validateCmd.Parse(os.Args[2:])
		cat, err := readCatalog(ctx, *validateData, *validateRegistry)
		if err != nil {
			fmt.Printf("Catalog validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Catalog validation passed: %s\n", summary(cat))

	case "help":
		fallthrough
	default:
		help()
	}
}

func readCatalog(ctx context.Context, dataDir, registryPath string) (*catalog.Catalog, error) {
	reg := registry.Default()
	if registryPath != "" {
		var err error
		if reg, err = registry.LoadRegistry(registryPath); err != nil {
			return nil, err
		}
	}
	return catalog.Load(ctx, catalog.NewFileSource(dataDir), reg, nil)
}

func seed(ctx context.Context, source string, cfg *config.Config, tables catalog.Tables) error {
	var target seeder

	switch source {
	case config.SourceRedis:
		rc, err := database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		defer rc.Close()
		if err := rc.Ping(ctx); err != nil {
			return err
		}
		target = catalog.NewRedisSource(rc.Client, cfg.Catalog.KeyPrefix)

	case config.SourcePostgres:
		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		defer pg.Close()
		src := catalog.NewPostgresSource(pg.DB, cfg.Catalog.Table)
		if err := src.EnsureTable(ctx); err != nil {
			return err
		}
		target = src

	case config.SourceElasticsearch:
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		if err := es.Ping(ctx); err != nil {
			return err
		}
		target = catalog.NewElasticsearchSource(es.Client)

	default:
		return fmt.Errorf("unsupported source %q", source)
	}

	return target.Seed(ctx, tables)
}

func summary(cat *catalog.Catalog) string {
	counts := cat.Counts()
	kinds := make([]string, 0, len(counts))
	for kind := range counts {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	s := ""
	for i, kind := range kinds {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%s=%d", kind, counts[kind])
	}
	return s
}

func help() {
	fmt.Println("Usage: catalog-seeder <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  seed      Push catalog records into redis, postgres or elasticsearch")
	fmt.Println("  validate  Check catalog files against the resource registry")
	fmt.Println("\nUse 'catalog-seeder <command> -h' for command options.")
}
