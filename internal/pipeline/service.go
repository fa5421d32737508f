package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"blend-quality-service/internal/blend"
	"blend-quality-service/internal/catalog"
	"blend-quality-service/internal/config"
	"blend-quality-service/internal/db"
	"blend-quality-service/internal/logging"
	"blend-quality-service/internal/metrics"
	"blend-quality-service/internal/models"
	"blend-quality-service/internal/notify"
	"blend-quality-service/internal/utils"
)

// Service re-evaluates hour buckets as samples arrive: aggregate the
// bucket's samples, resolve its specification, evaluate compliance, maybe
// suggest a fraction shift, persist everything, and push alerts. Each bucket
// is processed independently; one failing never blocks the rest.
type Service struct {
	db        *db.DB
	catalog   catalog.Catalog
	logger    *logging.Logger
	config    config.Config
	notifier  *notify.Telegram
	tasks     chan models.BucketKey
	ctx       context.Context
	cancel    context.CancelFunc
	wg        *sync.WaitGroup
	wsManager *WebSocketManager
}

// New constructs a pipeline Service.
func New(database *db.DB, cat catalog.Catalog, logger *logging.Logger, cfg config.Config) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		db:        database,
		catalog:   cat,
		logger:    logger,
		config:    cfg,
		notifier:  notify.NewTelegram(cfg, logger),
		tasks:     make(chan models.BucketKey, cfg.Pipeline.QueueSize),
		ctx:       ctx,
		cancel:    cancel,
		wsManager: NewWebSocketManager(logger),
	}
}

// Logger exposes the Service's logger to the Kafka consumer.
func (s *Service) Logger() *logging.Logger {
	return s.logger
}

// WebSockets exposes the connection manager to the API layer.
func (s *Service) WebSockets() *WebSocketManager {
	return s.wsManager
}

// Start launches the worker pool.
func (s *Service) Start(wg *sync.WaitGroup) {
	s.wg = wg
	for i := 0; i < s.config.Pipeline.MaxWorkers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
}

// Stop cancels the workers. Pending queue entries are dropped; buckets are
// re-derivable from stored samples, so nothing is lost.
func (s *Service) Stop() {
	s.cancel()
}

// IngestSample persists a delivered load and queues its bucket for
// re-evaluation.
func (s *Service) IngestSample(sample models.QualitySample) error {
	if err := s.db.CreateSample(s.ctx, sample); err != nil {
		return fmt.Errorf("failed to persist sample %s: %w", sample.LoadNumber, err)
	}
	metrics.SamplesIngested.WithLabelValues(sample.PlantName).Inc()
	s.QueueBucket(sample.BucketKey())
	return nil
}

// RecordLineEvent stores a line sensor measurement.
func (s *Service) RecordLineEvent(event models.LineQualityEvent) error {
	return s.db.CreateLineEvent(s.ctx, event)
}

// RecordDowntime stores a production-run or downtime segment.
func (s *Service) RecordDowntime(event models.DowntimeEvent) error {
	return s.db.CreateDowntimeEvent(s.ctx, event)
}

// QueueBucket enqueues a bucket for re-evaluation.
func (s *Service) QueueBucket(key models.BucketKey) {
	select {
	case s.tasks <- key:
		s.logger.Debugf("Queued bucket: %s/%s/%s @ %s",
			key.PlantName, key.PlantLine, key.ProductName, key.HourStart.Format(time.RFC3339))
	default:
		s.logger.Errorf("Queue full, dropping bucket: %s/%s/%s @ %s",
			key.PlantName, key.PlantLine, key.ProductName, key.HourStart.Format(time.RFC3339))
	}
}

// worker processes buckets until context is cancelled.
func (s *Service) worker(id int) {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			s.logger.Infof("Worker %d stopped", id)
			return
		case key := <-s.tasks:
			s.handleBucket(key)
		}
	}
}

// handleBucket runs the full evaluation pass for one bucket.
func (s *Service) handleBucket(key models.BucketKey) {
	started := time.Now()
	defer func() {
		metrics.EvaluationDuration.Observe(time.Since(started).Seconds())
	}()

	samples, err := s.db.GetSamplesForBucket(s.ctx, key)
	if err != nil {
		s.logger.Errorf("Failed to load samples for %s/%s/%s @ %s: %v",
			key.PlantName, key.PlantLine, key.ProductName, key.HourStart, err)
		return
	}

	summary, err := blend.Aggregate(key, samples)
	if errors.Is(err, blend.ErrInsufficientData) {
		// Zero contributing weight: flag distinctly, emit nothing that could
		// score as compliant.
		metrics.BucketsEvaluated.WithLabelValues(key.PlantName, "insufficient_data").Inc()
		s.logger.Warnf("Insufficient data for %s/%s/%s @ %s, bucket skipped",
			key.PlantName, key.PlantLine, key.ProductName, key.HourStart)
		return
	}
	if err != nil {
		s.logger.Errorf("Aggregation failed for %s/%s/%s @ %s: %v",
			key.PlantName, key.PlantLine, key.ProductName, key.HourStart, err)
		return
	}

	spec, err := s.catalog.Resolve(s.ctx, key.SpecKey())
	if errors.Is(err, blend.ErrSpecificationNotFound) {
		metrics.BucketsEvaluated.WithLabelValues(key.PlantName, "spec_not_found").Inc()
		s.logger.Warnf("No specification for %s/%s/%s, bucket flagged unevaluated",
			key.PlantName, key.PlantLine, key.ProductName)
		// The summary still gets stored so operators can see the
		// unevaluated hours; no compliance row is written.
		s.persistSummary(summary)
		return
	}
	if err != nil {
		s.logger.Errorf("Specification lookup failed for %s/%s/%s: %v",
			key.PlantName, key.PlantLine, key.ProductName, err)
		return
	}

	bands := blend.Bands{
		DryMatterAlert: s.config.Quality.DryMatterAlertBand,
		DefectAlert:    s.config.Quality.DefectAlertBand,
	}
	result := blend.Evaluate(summary, spec, bands)

	outcome := "compliant"
	if !result.Compliant {
		outcome = "non_compliant"
	}
	metrics.BucketsEvaluated.WithLabelValues(key.PlantName, outcome).Inc()
	for _, c := range result.Checks {
		if c.Alert {
			metrics.AlertsRaised.WithLabelValues(key.PlantName, c.Attribute).Inc()
		}
	}

	steps := blend.Steps{
		OverQualityMargin: s.config.Quality.OverQualityMargin,
		StepDown:          s.config.Quality.StepDown,
		StepUp:            s.config.Quality.StepUp,
	}
	adj, suggested := blend.Suggest(summary, spec, steps)

	s.persistSummary(summary)
	if err := utils.Retry(s.logger, 3, time.Second, func() error {
		return s.db.UpsertComplianceResult(s.ctx, result)
	}); err != nil {
		s.logger.Errorf("Failed to persist compliance result for %s/%s/%s @ %s: %v",
			key.PlantName, key.PlantLine, key.ProductName, key.HourStart, err)
		return
	}
	if suggested {
		metrics.SuggestionsIssued.WithLabelValues(key.PlantName, adj.Direction).Inc()
		if err := s.db.UpsertSuggestion(s.ctx, adj); err != nil {
			s.logger.Errorf("Failed to persist suggestion for %s/%s/%s @ %s: %v",
				key.PlantName, key.PlantLine, key.ProductName, key.HourStart, err)
		}
	}

	s.judgePreviousSuggestion(key, summary)

	if !result.Compliant || result.Alerting {
		s.dispatchAlert(result, summary)
	}

	s.logger.Infof("Evaluated %s/%s/%s @ %s: compliant=%t alerting=%t suggestion=%t",
		key.PlantName, key.PlantLine, key.ProductName,
		key.HourStart.Format(time.RFC3339), result.Compliant, result.Alerting, suggested)
}

func (s *Service) persistSummary(summary models.BlendSummary) {
	if err := s.db.UpsertBlendSummary(s.ctx, summary); err != nil {
		s.logger.Errorf("Failed to persist blend summary for %s/%s/%s @ %s: %v",
			summary.Key.PlantName, summary.Key.PlantLine, summary.Key.ProductName,
			summary.Key.HourStart, err)
	}
}

// judgePreviousSuggestion settles a pending suggestion from the previous
// hour against this hour's actual fractions.
func (s *Service) judgePreviousSuggestion(key models.BucketKey, summary models.BlendSummary) {
	prev := key
	prev.HourStart = key.HourStart.Add(-time.Hour)
	adj, ok, err := s.db.GetSuggestionForBucket(s.ctx, prev)
	if err != nil {
		s.logger.Errorf("Failed to load previous suggestion for %s/%s/%s @ %s: %v",
			prev.PlantName, prev.PlantLine, prev.ProductName, prev.HourStart, err)
		return
	}
	if !ok || adj.Status != models.AdoptionPending {
		return
	}

	status := blend.JudgeAdoption(adj, summary.Fractions(), s.config.Quality.AdoptionTolerance)
	if err := s.db.UpdateSuggestionStatus(s.ctx, adj.ID.String(), status); err != nil {
		s.logger.Errorf("Failed to update suggestion %s: %v", adj.ID, err)
		return
	}
	metrics.SuggestionsJudged.WithLabelValues(key.PlantName, status).Inc()
	s.logger.Infof("Suggestion %s judged %s", adj.ID, status)
}

// dispatchAlert pushes the verdict to WebSocket subscribers and, for hard
// non-compliance, the Telegram chats.
func (s *Service) dispatchAlert(result models.ComplianceResult, summary models.BlendSummary) {
	message := []byte(fmt.Sprintf("%s %s %s @ %s: compliant=%t alerting=%t",
		result.Key.PlantName, result.Key.PlantLine, result.Key.ProductName,
		result.Key.HourStart.Format(time.RFC3339), result.Compliant, result.Alerting))
	s.wsManager.SendToPlant(result.Key.PlantName, message)

	if result.Compliant || !s.notifier.Enabled() {
		return
	}
	if err := utils.Retry(s.logger, 3, time.Second, func() error {
		return s.notifier.SendComplianceAlert(s.ctx, result, summary)
	}); err != nil {
		s.logger.Errorf("Telegram dispatch failed for %s/%s/%s @ %s: %v",
			result.Key.PlantName, result.Key.PlantLine, result.Key.ProductName,
			result.Key.HourStart, err)
	}
}
