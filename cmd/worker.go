package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"example.com/ujenzipro/config"
	"example.com/ujenzipro/internal/metrics"
	"example.com/ujenzipro/internal/realtime"
	"example.com/ujenzipro/internal/services"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long:  `Start the background worker that indexes deliveries from the change feed and reconciles the tracking ledger`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return err
	}

	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	db, err := initDatabase(cfg)
	if err != nil {
		return err
	}

	deps, err := initInfra(cfg)
	if err != nil {
		return err
	}
	defer deps.close()

	deliveryService, _, _, _ := initServices(db, deps)

	// Consume the coarse change feed and keep the search index current.
	// Events carry no row data, so indexing refetches the delivery.
	g.Go(func() error {
		log.Info().Str("topic", realtime.TopicDeliveries).Msg("Starting change feed indexer")
		return runIndexer(ctx, deliveryService)
	})

	// Reconciliation heals deliveries whose latest ledger entry drifted
	// from the delivery row.
	g.Go(func() error {
		log.Info().Dur("interval", cfg.Worker.ReconcileInterval).Msg("Starting ledger reconciliation job")
		return runReconciler(ctx, cfg, deliveryService, deps.metrics)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	log.Info().Msg("Worker shutting down gracefully")
	return nil
}

func runIndexer(ctx context.Context, deliveryService *services.DeliveryService) error {
	sub, err := deliveryService.Subscribe(ctx, nil)
	if err != nil {
		return err
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, open := <-sub.C:
			if !open {
				return nil
			}
			if event.Table != realtime.TableDeliveries {
				continue
			}
			if err := deliveryService.IndexDelivery(ctx, event.DeliveryID); err != nil {
				log.Error().Err(err).Str("delivery_id", event.DeliveryID.String()).Msg("Failed to index delivery")
			}
		}
	}
}

func runReconciler(ctx context.Context, cfg config.Config, deliveryService *services.DeliveryService, collector *metrics.Metrics) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return err
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(cfg.Worker.ReconcileInterval),
		gocron.NewTask(func() {
			start := time.Now()
			healed, err := deliveryService.ReconcileLedger(ctx, cfg.Worker.ReconcileBatch)
			if err != nil {
				log.Error().Err(err).Msg("Failed to reconcile tracking ledger")
				return
			}
			collector.RecordTimer(metrics.TimerReconcilePass, time.Since(start))
			if healed > 0 {
				log.Info().Int("healed", healed).Msg("Reconciled diverged deliveries")
			}
		}),
	)
	if err != nil {
		return err
	}

	scheduler.Start()

	<-ctx.Done()

	return scheduler.Shutdown()
}
