// The reconciler sweeps the blob store for objects whose metadata record
// was deleted. It runs either once (-once) or on a cron schedule.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/kasugai-cloud/aichat/pkg/config"
	"github.com/kasugai-cloud/aichat/pkg/files"
	"github.com/kasugai-cloud/aichat/pkg/observability"
	"github.com/kasugai-cloud/aichat/pkg/storage"
)

func main() {
	once := flag.Bool("once", false, "Run a single sweep and exit")
	schedule := flag.String("schedule", "0 3 * * *", "Cron schedule for the sweep")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		os.Stderr.WriteString("configuration error: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg.Observability.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kv, err := storage.NewDynamoStore(ctx, cfg.Storage.Region, cfg.Storage.MainTable, cfg.Storage.Endpoint)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize KV store")
	}
	blobs, err := storage.NewS3Store(ctx, storage.S3Config{
		Bucket:    cfg.Storage.FilesBucket,
		Region:    cfg.Storage.Region,
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		PathStyle: cfg.Storage.UsePathStyle,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize blob store")
	}

	reconciler := files.NewReconciler(kv, blobs, logger)

	if *once {
		if _, err := reconciler.Sweep(ctx); err != nil {
			logger.WithError(err).Fatal("sweep failed")
		}
		return
	}

	c := cron.New()
	_, err = c.AddFunc(*schedule, func() {
		if _, err := reconciler.Sweep(ctx); err != nil {
			logger.WithError(err).Error("sweep failed")
		}
	})
	if err != nil {
		logger.WithError(err).Fatal("invalid cron schedule")
	}

	logger.WithField("schedule", *schedule).Info("reconciler started")
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	logger.Info("reconciler stopped")
}
