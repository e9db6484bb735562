package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gocloud.dev/blob"

	"github.com/treeprof/treeprof/internal/logutil"
	"github.com/treeprof/treeprof/internal/storageprovider"
)

// cleanup deletes archived event logs whose last write predates the
// time limit.
func cleanup(ctx context.Context, b *storageprovider.Blob, timeLimit time.Time) error {
	iter := b.Bucket.List(&blob.ListOptions{Prefix: "logs/"})
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if timeLimit.After(obj.ModTime) {
			if err := b.Bucket.Delete(ctx, obj.Key); err != nil {
				return err
			}
		}
	}
}

func main() {
	logsBucketURL, ok := os.LookupEnv("TREEPROF_LOGS_BUCKET_URL")
	if !ok {
		logsBucketURL = "file:///var/lib/treeprof-logs"
	}

	logRetentionDays, ok := os.LookupEnv("TREEPROF_LOG_RETENTION_DAYS")
	if !ok {
		logRetentionDays = "90"
	}

	logutil.ConfigureLogger(zerolog.InfoLevel)

	err := sentry.Init(sentry.ClientOptions{})
	if err != nil {
		log.Fatal().Err(err).Msg("can't initialize sentry")
	}

	retentionDays, err := strconv.ParseInt(logRetentionDays, 10, 64)
	if err != nil {
		log.Fatal().Err(err).Msg("can't parse retention days")
	}

	ctx := context.Background()
	storage, err := storageprovider.Open(ctx, logsBucketURL)
	if err != nil {
		log.Fatal().Err(err).Msg("can't open the log archive bucket")
	}

	c := cron.New()
	_, err = c.AddFunc("@daily", func() {
		timeLimit := time.Now().Add(time.Hour * 24 * -1 * time.Duration(retentionDays))
		err := cleanup(ctx, storage, timeLimit)
		if err != nil {
			sentry.CaptureException(err)
			log.Error().Err(err).Msg("error cleaning up the log archive")
		}
	})
	if err != nil {
		log.Fatal().Err(err).Msg("can't set up cron function")
	}

	exitSignal := make(chan os.Signal, 1)
	signal.Notify(exitSignal, os.Interrupt)

	go func() {
		<-exitSignal

		c.Stop()
	}()

	c.Run()
}
