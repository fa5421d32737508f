package kafka

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"blend-quality-service/internal/config"
	"blend-quality-service/internal/logging"
	"blend-quality-service/internal/models"
	"blend-quality-service/internal/pipeline"
)

// Consumer reads raw load-quality records and line sensor events off Kafka
// and feeds them to the pipeline.
type Consumer struct {
	loads    *kafka.Reader
	events   *kafka.Reader
	downtime *kafka.Reader
	svc      *pipeline.Service
	logger   *logging.Logger
	cancel   context.CancelFunc
}

func NewConsumer(cfg config.Config, svc *pipeline.Service) *Consumer {
	return &Consumer{
		loads: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  []string{cfg.Kafka.Broker},
			GroupID:  cfg.Kafka.GroupID,
			Topic:    cfg.Kafka.LoadTopic,
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
		events: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  []string{cfg.Kafka.Broker},
			GroupID:  cfg.Kafka.GroupID,
			Topic:    cfg.Kafka.LineEventTopic,
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
		downtime: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  []string{cfg.Kafka.Broker},
			GroupID:  cfg.Kafka.GroupID,
			Topic:    cfg.Kafka.DowntimeTopic,
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
		svc:    svc,
		logger: svc.Logger(),
	}
}

// loadMessage mirrors the raw potato load quality feed.
type loadMessage struct {
	PlantID       int     `json:"plant_id"`
	PlantName     string  `json:"plant_name"`
	PlantLine     string  `json:"plant_line"`
	ProductID     int64   `json:"product_id"`
	ProductName   string  `json:"product_name"`
	Supplier      string  `json:"supplier"`
	VarietyLabel  string  `json:"VarietyLabel"`
	LoadNumber    string  `json:"load_number"`
	EffectiveAct  float64 `json:"effective_actual_weight"`
	AvgLengthMM   float64 `json:"average_length_grading_mm"`
	Color0Pct     float64 `json:"usda_color_0_pct"`
	Color1Pct     float64 `json:"usda_color_1_pct"`
	Color2Pct     float64 `json:"usda_color_2_pct"`
	Color3Pct     float64 `json:"usda_color_3_pct"`
	Color4Pct     float64 `json:"usda_color_4_pct"`
	DefectPoints  float64 `json:"total_defect_points"`
	DryMatterPct  float64 `json:"dry_matter_pct"`
	ArrivedAt     string  `json:"arrived_at"`
}

// lineEventMessage mirrors the OSI PI line quality event feed.
type lineEventMessage struct {
	Datetime     string   `json:"datetime"`
	PlantID      int      `json:"plant_id"`
	PlantName    string   `json:"plant_name"`
	PlantLine    string   `json:"plant_line"`
	ProductID    int64    `json:"product_id"`
	ProductName  string   `json:"product_name"`
	Variety      string   `json:"variety"`
	AvgLengthMM  float64  `json:"avg_length_mm"`
	ColorCounts  [5]int64 `json:"usda_color_counts"`
	DefectPoints float64  `json:"total_defect_points"`
	DrySolidsPct float64  `json:"dry_solids_pct"`
}

// downtimeMessage mirrors the OEE run/downtime feed.
type downtimeMessage struct {
	PlantID     int     `json:"plant_id"`
	PlantName   string  `json:"plant_name"`
	PlantLine   string  `json:"plant_line"`
	ProductName string  `json:"product_name"`
	Category1   string  `json:"downtime_cat_1"`
	Category2   string  `json:"downtime_cat_2"`
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time"`
	DurationSec int64   `json:"duration"`
	DowntimeSec int64   `json:"downtime_duration"`
	QtyPackedKg float64 `json:"qty_packed"`
}

// Start launches one goroutine per topic.
func (c *Consumer) Start(wg *sync.WaitGroup) {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	wg.Add(1)
	go func() {
		defer wg.Done()
		c.logger.Infof("Kafka load consumer started")
		c.consumeLoads(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		c.logger.Infof("Kafka line-event consumer started")
		c.consumeLineEvents(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		c.logger.Infof("Kafka downtime consumer started")
		c.consumeDowntime(ctx)
	}()
}

func (c *Consumer) consumeLoads(ctx context.Context) {
	for {
		msg, err := c.loads.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Errorf("Read load message failed: %v", err)
			continue
		}

		var load loadMessage
		if err := json.Unmarshal(msg.Value, &load); err != nil {
			c.logger.Errorf("Unmarshal load message failed: %v", err)
			continue
		}
		if load.LoadNumber == "" || load.PlantName == "" || load.PlantLine == "" || load.ProductName == "" {
			c.logger.Errorf("Invalid load message: missing load_number, plant_name, plant_line, or product_name")
			continue
		}
		if load.EffectiveAct < 0 {
			c.logger.Errorf("Invalid load message %s: negative weight", load.LoadNumber)
			continue
		}

		arrived, err := parseTimestamp(load.ArrivedAt)
		if err != nil {
			c.logger.Errorf("Invalid arrived_at in load %s: %v", load.LoadNumber, err)
			continue
		}

		sample := models.QualitySample{
			ID:           uuid.New(),
			PlantID:      load.PlantID,
			PlantName:    load.PlantName,
			PlantLine:    load.PlantLine,
			ProductID:    load.ProductID,
			ProductName:  load.ProductName,
			Supplier:     load.Supplier,
			Variety:      load.VarietyLabel,
			LoadNumber:   load.LoadNumber,
			NetWeightKg:  load.EffectiveAct,
			DryMatterPct: load.DryMatterPct,
			DefectPoints: load.DefectPoints,
			AvgLengthMM:  load.AvgLengthMM,
			Color: models.ColorDistribution{
				Color0: load.Color0Pct,
				Color1: load.Color1Pct,
				Color2: load.Color2Pct,
				Color3: load.Color3Pct,
				Color4: load.Color4Pct,
			},
			ArrivedAt: arrived,
		}
		if err := c.svc.IngestSample(sample); err != nil {
			c.logger.Errorf("Ingest failed for load %s: %v", load.LoadNumber, err)
			continue
		}
		c.logger.Debugf("Processed load %s", load.LoadNumber)
	}
}

func (c *Consumer) consumeLineEvents(ctx context.Context) {
	for {
		msg, err := c.events.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Errorf("Read line event failed: %v", err)
			continue
		}

		var ev lineEventMessage
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			c.logger.Errorf("Unmarshal line event failed: %v", err)
			continue
		}
		if ev.PlantName == "" || ev.PlantLine == "" {
			c.logger.Errorf("Invalid line event: missing plant_name or plant_line")
			continue
		}
		ts, err := parseTimestamp(ev.Datetime)
		if err != nil {
			c.logger.Errorf("Invalid datetime in line event: %v", err)
			continue
		}

		event := models.LineQualityEvent{
			ID:           uuid.New(),
			Timestamp:    ts,
			PlantID:      ev.PlantID,
			PlantName:    ev.PlantName,
			PlantLine:    ev.PlantLine,
			ProductID:    ev.ProductID,
			ProductName:  ev.ProductName,
			Variety:      ev.Variety,
			AvgLengthMM:  ev.AvgLengthMM,
			DefectPoints: ev.DefectPoints,
			DrySolidsPct: ev.DrySolidsPct,
			ColorCounts:  ev.ColorCounts,
		}
		if err := c.svc.RecordLineEvent(event); err != nil {
			c.logger.Errorf("Store line event failed: %v", err)
			continue
		}
	}
}

func (c *Consumer) consumeDowntime(ctx context.Context) {
	for {
		msg, err := c.downtime.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Errorf("Read downtime event failed: %v", err)
			continue
		}

		var dt downtimeMessage
		if err := json.Unmarshal(msg.Value, &dt); err != nil {
			c.logger.Errorf("Unmarshal downtime event failed: %v", err)
			continue
		}
		if dt.PlantName == "" || dt.PlantLine == "" {
			c.logger.Errorf("Invalid downtime event: missing plant_name or plant_line")
			continue
		}
		start, err := parseTimestamp(dt.StartTime)
		if err != nil {
			c.logger.Errorf("Invalid start_time in downtime event: %v", err)
			continue
		}
		end, err := parseTimestamp(dt.EndTime)
		if err != nil {
			c.logger.Errorf("Invalid end_time in downtime event: %v", err)
			continue
		}

		event := models.DowntimeEvent{
			ID:          uuid.New(),
			PlantID:     dt.PlantID,
			PlantName:   dt.PlantName,
			PlantLine:   dt.PlantLine,
			ProductName: dt.ProductName,
			Category1:   dt.Category1,
			Category2:   dt.Category2,
			StartTime:   start,
			EndTime:     end,
			DurationSec: dt.DurationSec,
			DowntimeSec: dt.DowntimeSec,
			QtyPackedKg: dt.QtyPackedKg,
		}
		if err := c.svc.RecordDowntime(event); err != nil {
			c.logger.Errorf("Store downtime event failed: %v", err)
			continue
		}
	}
}

// parseTimestamp accepts RFC3339 and the feed's legacy plain formats.
func parseTimestamp(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02 15:04"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	_, err := time.Parse(time.RFC3339, raw)
	return time.Time{}, err
}

func (c *Consumer) Close() {
	if c.cancel != nil {
		c.cancel()
	}
	if err := c.loads.Close(); err != nil {
		c.logger.Errorf("Close load reader failed: %v", err)
	}
	if err := c.events.Close(); err != nil {
		c.logger.Errorf("Close event reader failed: %v", err)
	}
	if err := c.downtime.Close(); err != nil {
		c.logger.Errorf("Close downtime reader failed: %v", err)
	}
}
