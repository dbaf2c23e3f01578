package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"internflow/auth"
	"internflow/config"
	"internflow/db"
	"internflow/document"
	"internflow/eligibility"
	"internflow/logbook"
	"internflow/notify"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load configuration")
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("bootstrap database pool")
	}
	defer pool.Close()

	var dispatcher document.Dispatcher
	if cfg.AMQPURL != "" {
		publisher, err := notify.NewAMQPPublisher(cfg.AMQPURL)
		if err != nil {
			log.WithError(err).Fatal("connect message broker")
		}
		defer publisher.Close()
		dispatcher = publisher

		relay := notify.NewRelay(pool, publisher, log)
		go func() {
			if err := relay.Run(ctx); err != nil && ctx.Err() == nil {
				log.WithError(err).Error("outbox relay stopped")
			}
		}()
	}

	store := document.NewPGStore(pool)
	workflow := document.NewService(store, dispatcher, cfg.Policy)
	hours := logbook.NewService(logbook.NewRepository(pool), cfg.Policy)
	gate := eligibility.NewService(store, hours, cfg.Policy)
	accounts := auth.NewService(auth.NewRepository(pool), cfg.JWTSecret)

	log.WithFields(logrus.Fields{
		"workflow":    workflow != nil,
		"eligibility": gate != nil,
		"accounts":    accounts != nil,
		"amqp_relay":  cfg.AMQPURL != "",
	}).Info("internflow services ready")

	<-ctx.Done()
	log.Info("shutting down")
}
