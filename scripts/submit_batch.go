package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"churninsight/dashboard/internal/config"
	"churninsight/dashboard/internal/models"
	"churninsight/dashboard/internal/services"
)

func main() {
	interval := flag.Duration("interval", 0, "status poll interval (defaults to BATCH_POLL_INTERVAL)")
	flag.Parse()
	if flag.NArg() != 1 {
		log.Fatalf("usage: submit_batch [-interval 2s] <file.csv|file.xlsx>")
	}
	path := flag.Arg(0)

	log.Println("🚀 Starting batch submission...")

	// Load configuration
	cfg := config.Load()
	if *interval > 0 {
		cfg.Batch.PollInterval = *interval
	}

	zlog, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	backend := services.NewBackendClient(cfg.Backend, nil, nil, zlog)
	batch := services.NewBatchController(backend, services.BatchOptions{
		PollInterval: cfg.Batch.PollInterval,
		Logger:       zlog,
	})
	defer batch.Close()

	done := make(chan models.BatchStatus, 1)
	batch.OnTerminal(func(status models.BatchStatus) {
		done <- status
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := services.InspectBatchFile(path)
	if err != nil {
		log.Fatalf("❌ Invalid batch file %s: %v", path, err)
	}
	log.Printf("🔍 %d rows, columns: %v", summary.Rows, summary.Columns)

	file, err := os.Open(path)
	if err != nil {
		log.Fatalf("❌ Failed to open %s: %v", path, err)
	}
	defer file.Close()

	log.Printf("📄 Uploading: %s", path)
	status, err := batch.Upload(ctx, filepath.Base(path), file)
	if err != nil {
		log.Fatalf("❌ Upload failed: %v", err)
	}
	log.Printf("📥 Job %s accepted (%s)", status.JobID, status.Status)

	ticker := time.NewTicker(cfg.Batch.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("🛑 Interrupted, job keeps running on the backend")
			return
		case final := <-done:
			report(final)
			return
		case <-ticker.C:
			snap := batch.Snapshot()
			if snap.State == models.BatchStateStopped {
				log.Fatalf("❌ Polling stopped: %s", snap.Error)
			}
			if snap.Progress != nil {
				log.Printf("⏳ %s %.0f%%", snap.Status.Status, *snap.Progress)
			} else if snap.Status != nil {
				log.Printf("⏳ %s", snap.Status.Status)
			}
		}
	}
}

func report(status models.BatchStatus) {
	if status.Status != models.BatchCompleted {
		log.Fatalf("❌ Job %s %s: %s", status.JobID, status.Status, status.Message)
	}

	log.Println("\n" + "==================================================")
	log.Printf("✅ Job %s completed", status.JobID)
	if status.Processed != nil {
		log.Printf("   Processed: %d", *status.Processed)
	}
	if status.SuccessCount != nil {
		log.Printf("   Succeeded: %d", *status.SuccessCount)
	}
	if status.ErrorCount != nil {
		log.Printf("   Failed:    %d", *status.ErrorCount)
	}
	log.Println("==================================================")
}
