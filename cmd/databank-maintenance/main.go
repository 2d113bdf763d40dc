// Command databank-maintenance runs the scheduled housekeeping for the data
// API: daily analytics rollups and the expired preview token sweep. It can
// also run a single aggregation pass for backfills.
package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/openstats/databank/pkg/analytics"
	"github.com/openstats/databank/pkg/storage/postgres"
)

var (
	dbURL           = flag.String("db-url", getEnv("DATABANK_POSTGRES_URL", "postgres://localhost/databank?sslmode=disable"), "PostgreSQL connection URL")
	rollupSchedule  = flag.String("rollup-schedule", "5 0 * * *", "Cron schedule for daily rollups (default: 00:05 UTC)")
	tokenSchedule   = flag.String("token-schedule", "0 * * * *", "Cron schedule for the expired preview token sweep (default: hourly)")
	migrate         = flag.Bool("migrate", false, "Apply pending schema migrations before anything else")
	runOnce         = flag.Bool("run-once", false, "Run rollups and the token sweep once and exit")
	aggregationDate = flag.String("date", "", "Date to roll up (YYYY-MM-DD). Defaults to yesterday. Only used with --run-once")
)

func main() {
	flag.Parse()
	log.SetFormatter(&log.JSONFormatter{})

	db, err := sql.Open("postgres", *dbURL)
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.WithError(err).Fatal("failed to ping database")
	}

	if *migrate {
		if err := postgres.RunMigrations(context.Background(), db); err != nil {
			log.WithError(err).Fatal("migrations failed")
		}
		log.Info("schema migrations applied")
	}

	aggregator := analytics.NewAggregator(db)

	if *runOnce {
		date := time.Now().UTC().AddDate(0, 0, -1)
		if *aggregationDate != "" {
			date, err = time.Parse("2006-01-02", *aggregationDate)
			if err != nil {
				log.WithError(err).Fatal("invalid --date")
			}
		}
		if err := runRollups(aggregator, date); err != nil {
			log.WithError(err).Fatal("rollups failed")
		}
		sweepTokens(aggregator)
		return
	}

	c := cron.New()

	_, err = c.AddFunc(*rollupSchedule, func() {
		yesterday := time.Now().UTC().AddDate(0, 0, -1)
		if err := runRollups(aggregator, yesterday); err != nil {
			log.WithError(err).Error("daily rollups failed")
		}
	})
	if err != nil {
		log.WithError(err).Fatal("failed to schedule daily rollups")
	}

	_, err = c.AddFunc(*tokenSchedule, func() {
		sweepTokens(aggregator)
	})
	if err != nil {
		log.WithError(err).Fatal("failed to schedule token sweep")
	}

	c.Start()
	log.WithFields(log.Fields{
		"rollup_schedule": *rollupSchedule,
		"token_schedule":  *tokenSchedule,
	}).Info("databank maintenance started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down")
	<-c.Stop().Done()
}

func runRollups(aggregator *analytics.Aggregator, date time.Time) error {
	log.WithField("date", date.Format("2006-01-02")).Info("running daily rollups")
	return aggregator.AggregateAll(context.Background(), date)
}

func sweepTokens(aggregator *analytics.Aggregator) {
	deleted, err := aggregator.DeleteExpiredPreviewTokens(context.Background(), time.Now().UTC())
	if err != nil {
		log.WithError(err).Error("token sweep failed")
		return
	}
	log.WithField("deleted", deleted).Info("expired preview tokens swept")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
