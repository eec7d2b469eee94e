package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"campusevents/internal/activity"
	"campusevents/internal/config"
	"campusevents/internal/kv"
	"campusevents/internal/queue"
)

// Worker consumes registration activity from the queue and archives it in
// Postgres.
func main() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetOutput(os.Stdout)

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received")
		cancel()
	}()

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required for the worker")
	}
	archive, err := activity.NewRepository(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("archive connect failed")
	}
	defer archive.Close()

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		// A memory queue is process-local; the worker would never see the
		// API's messages. Warn but run so dev setups fail loudly, not
		// silently.
		log.Warn("QUEUE_BACKEND=memory: worker will not receive API activity")
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(kv.NewRedisStore(cfg.RedisAddr).Client(), "campusevents:activity")
	}

	messages, err := q.Consume(ctx)
	if err != nil {
		log.WithError(err).Fatal("queue consume init failed")
	}

	log.Info("worker started, waiting for messages")
	for msg := range messages {
		if msg.Type != "registration" && msg.Type != "unregistration" {
			continue
		}

		rec, err := archive.Insert(ctx, activity.Record{
			Type:    msg.Type,
			UserID:  msg.UserID,
			EventID: msg.EventID,
			Title:   msg.Title,
			At:      msg.At,
		})
		if err != nil {
			log.WithError(err).WithField("event_id", msg.EventID).Warn("archive insert failed")
			continue
		}
		log.WithFields(log.Fields{
			"id":       rec.ID,
			"type":     rec.Type,
			"event_id": rec.EventID,
		}).Info("activity archived")
	}

	log.Info("worker stopped")
}
