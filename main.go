package main

import (
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"blend-quality-service/internal/api"
	"blend-quality-service/internal/config"
	"blend-quality-service/internal/db"
	"blend-quality-service/internal/kafka"
	"blend-quality-service/internal/logging"
	"blend-quality-service/internal/pipeline"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Close()

	// Connect to database
	dbConn, err := db.New(cfg.DB.DSN)
	if err != nil {
		logger.Errorf("Failed to connect to database: %v", err)
		log.Fatalf("Database connection failed: %v", err)
	}
	defer dbConn.Close()

	// The specification catalog is backed by the specifications table.
	cat := dbConn

	// Initialize pipeline workers
	svc := pipeline.New(dbConn, cat, logger, cfg)
	var wg sync.WaitGroup
	svc.Start(&wg)

	// Start Kafka consumers
	consumer := kafka.NewConsumer(cfg, svc)
	consumer.Start(&wg)
	logger.Infof("Kafka consumers initialized: topics %s, %s, %s",
		cfg.Kafka.LoadTopic, cfg.Kafka.LineEventTopic, cfg.Kafka.DowntimeTopic)

	// Start API server
	router := api.NewRouter(dbConn, cat, svc, logger, cfg)
	go func() {
		logger.Infof("Starting API server on %s", cfg.API.Port)
		if err := router.Run(cfg.API.Port); err != nil {
			logger.Errorf("API server failed: %v", err)
		}
	}()

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	logger.Infof("Shutting down...")
	consumer.Close()
	svc.Stop()
	wg.Wait()
	logger.Infof("Service stopped")
}
