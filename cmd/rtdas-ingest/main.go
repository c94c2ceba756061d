// Command rtdas-ingest scans a folder of station telemetry CSVs and loads
// them into the configured store. Settings come from the environment (see
// internal/config); flags override the folder, driver, and worker count.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Rohit-Borah/NHP-API/internal/config"
	"github.com/Rohit-Borah/NHP-API/internal/metrics"
	"github.com/Rohit-Borah/NHP-API/internal/metrics/prompush"
	"github.com/Rohit-Borah/NHP-API/internal/scheduler"
	"github.com/Rohit-Borah/NHP-API/internal/storage"

	// register all storage backends with the factory; config picks one.
	_ "github.com/Rohit-Borah/NHP-API/internal/storage/all"
)

func main() {
	var (
		folderFlg         string
		driverFlg         string
		workersFlg        int
		metricsBackendFlg string
		pushGatewayURLFlg string
	)

	flag.StringVar(&folderFlg, "folder", "", "telemetry folder to scan (overrides env INGEST_FOLDER)")
	flag.StringVar(&driverFlg, "driver", "", "storage backend: postgres, sqlite (overrides env INGEST_DRIVER)")
	flag.IntVar(&workersFlg, "workers", 0, "concurrent file workers, 0 = derive from CPU count")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "none", "metrics backend to use (e.g. pushgateway, none)")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	if err := run(folderFlg, driverFlg, workersFlg, metricsBackendFlg, pushGatewayURLFlg, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run(folder, driver string, workers int, metricsBackend, pushGatewayURL string, verbose bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if folder != "" {
		cfg.Folder = folder
	}
	if driver != "" {
		cfg.Driver = driver
	}
	if workers > 0 {
		cfg.Workers = workers
	}

	setupMetrics(metricsBackend, pushGatewayURL, verbose)
	defer func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}()

	ctx := context.Background()
	repo, err := storage.New(ctx, storage.Config{
		Kind:           cfg.Driver,
		DSN:            cfg.DatabaseURL,
		DataTable:      cfg.DataTable,
		AuditTable:     cfg.AuditTable,
		ProcessedTable: cfg.ProcessedTable,
	})
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer repo.Close()

	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}

	start := time.Now()
	if verbose {
		log.Printf("level=info msg=\"run starting\" folder=%s driver=%s workers=%d retry_quarantined=%t",
			cfg.Folder, cfg.Driver, cfg.Workers, cfg.RetryQuarantined)
	}

	sum, err := scheduler.Run(ctx, repo, scheduler.Options{
		Folder:           cfg.Folder,
		Workers:          cfg.Workers,
		RetryQuarantined: cfg.RetryQuarantined,
	})
	if err != nil {
		return err
	}

	log.Printf("level=info msg=\"run complete\" files=%d skipped=%d failed=%d accepted=%d rejected=%d inserted=%d elapsed=%s",
		sum.Files, sum.Skipped, sum.Failed, sum.Accepted, sum.Rejected, sum.Inserted,
		time.Since(start).Truncate(time.Millisecond))

	if sum.Failed > 0 {
		return fmt.Errorf("%d of %d files failed", sum.Failed, sum.Files)
	}
	return nil
}

// setupMetrics installs the metrics backend: flag value first, then the
// METRICS_BACKEND environment variable. The nop default stays in place on
// any failure.
func setupMetrics(backendName, gwURL string, verbose bool) {
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	switch backendName {
	case "pushgateway":
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}
		b, err := prompush.NewBackend("rtdas_ingest", gwURL)
		if err != nil {
			log.Printf("metrics: failed to init push backend: %v; using nop", err)
			return
		}
		if verbose {
			log.Printf("metrics: backend=%s url=%s", backendName, gwURL)
		}
		metrics.SetBackend(b)

	case "", "none":
		if verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}
}
