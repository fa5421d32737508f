package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Kafka struct {
		Broker         string
		LoadTopic      string
		LineEventTopic string
		DowntimeTopic  string
		GroupID        string
	}
	DB struct {
		DSN string
	}
	API struct {
		Port     string
		BasePath string
	}
	Pipeline struct {
		QueueSize  int
		MaxWorkers int
	}
	Quality struct {
		DryMatterAlertBand float64 // pp short of min_dry_matter that raises an alert
		DefectAlertBand    float64 // points short of max_defect_points that raises an alert
		OverQualityMargin  float64 // pp above min_dry_matter treated as over-quality
		StepDown           float64 // fraction step applied when over-quality
		StepUp             float64 // fraction step applied when under-quality
		AdoptionTolerance  float64 // per-source tolerance for the adoption check
	}
	Telegram struct {
		BotToken  string
		ChatIDs   []int64
		RateLimit int
	}
	Logging struct {
		Dir   string
		Level string
	}
	// CostPerTonne maps a potato variety to its raw cost in USD per tonne.
	// Loaded from COST_TABLE if set, otherwise built-in defaults apply.
	CostPerTonne map[string]float64
}

// defaultCosts carries the per-variety figures the demo dataset was priced
// around. Overridable via COST_TABLE.
var defaultCosts = map[string]float64{
	"Russet":    310.0,
	"Innovator": 335.0,
	"Shepody":   298.0,
	"Bintje":    289.0,
}

// Load reads environment variables, applies defaults, and returns a Config.
func Load() (Config, error) {
	// Load .env if present
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config

	// Kafka settings
	cfg.Kafka.Broker = os.Getenv("KAFKA_BROKER")
	cfg.Kafka.LoadTopic = os.Getenv("KAFKA_LOAD_TOPIC")
	cfg.Kafka.LineEventTopic = os.Getenv("KAFKA_LINE_EVENT_TOPIC")
	cfg.Kafka.DowntimeTopic = os.Getenv("KAFKA_DOWNTIME_TOPIC")
	cfg.Kafka.GroupID = os.Getenv("KAFKA_GROUP_ID")

	// Database DSN
	cfg.DB.DSN = os.Getenv("DB_DSN")

	// API settings
	cfg.API.Port = os.Getenv("API_PORT")
	cfg.API.BasePath = os.Getenv("API_BASE_PATH")

	// Pipeline worker settings
	if qs, err := strconv.Atoi(os.Getenv("QUEUE_SIZE")); err == nil {
		cfg.Pipeline.QueueSize = qs
	}
	if mw, err := strconv.Atoi(os.Getenv("MAX_WORKERS")); err == nil {
		cfg.Pipeline.MaxWorkers = mw
	}

	// Quality tunables
	cfg.Quality.DryMatterAlertBand = envFloat("DRY_MATTER_ALERT_BAND", 0.3)
	cfg.Quality.DefectAlertBand = envFloat("DEFECT_ALERT_BAND", 0.2)
	cfg.Quality.OverQualityMargin = envFloat("OVER_QUALITY_MARGIN", 0.4)
	cfg.Quality.StepDown = envFloat("SUGGEST_STEP_DOWN", 0.05)
	cfg.Quality.StepUp = envFloat("SUGGEST_STEP_UP", 0.07)
	cfg.Quality.AdoptionTolerance = envFloat("ADOPTION_TOLERANCE", 0.03)

	// Telegram settings
	cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if raw := os.Getenv("TELEGRAM_CHAT_IDS"); raw != "" {
		ids, err := parseChatIDs(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TELEGRAM_CHAT_IDS: %w", err)
		}
		cfg.Telegram.ChatIDs = ids
	}
	if rl, err := strconv.Atoi(os.Getenv("TELEGRAM_RATE_LIMIT")); err == nil {
		cfg.Telegram.RateLimit = rl
	}

	// Logging
	cfg.Logging.Dir = os.Getenv("LOG_DIR")
	cfg.Logging.Level = os.Getenv("LOG_LEVEL")

	// Cost table
	costs, err := loadCostTable(os.Getenv("COST_TABLE"))
	if err != nil {
		return Config{}, err
	}
	cfg.CostPerTonne = costs

	// Validate required settings
	missing := []string{}
	if cfg.Kafka.Broker == "" {
		missing = append(missing, "KAFKA_BROKER")
	}
	if cfg.DB.DSN == "" {
		missing = append(missing, "DB_DSN")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configurations: %v", missing)
	}

	// Apply defaults
	if cfg.Kafka.LoadTopic == "" {
		cfg.Kafka.LoadTopic = "potato-load-quality"
	}
	if cfg.Kafka.LineEventTopic == "" {
		cfg.Kafka.LineEventTopic = "line-quality-events"
	}
	if cfg.Kafka.DowntimeTopic == "" {
		cfg.Kafka.DowntimeTopic = "downtime-events"
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "blend-quality-service"
	}
	if cfg.API.Port == "" {
		cfg.API.Port = ":8080"
	}
	if cfg.API.BasePath == "" {
		cfg.API.BasePath = "/api/v0"
	}
	if cfg.Pipeline.QueueSize == 0 {
		cfg.Pipeline.QueueSize = 500
	}
	if cfg.Pipeline.MaxWorkers == 0 {
		cfg.Pipeline.MaxWorkers = 10
	}
	if cfg.Telegram.RateLimit == 0 {
		cfg.Telegram.RateLimit = 5
	}
	if cfg.Logging.Dir == "" {
		cfg.Logging.Dir = "logs"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	return cfg, nil
}

func envFloat(key string, def float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return def
}

func parseChatIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// loadCostTable reads a YAML file mapping variety name to cost per tonne.
// Entries in the file override the defaults; unknown varieties are allowed.
func loadCostTable(path string) (map[string]float64, error) {
	costs := make(map[string]float64, len(defaultCosts))
	for k, v := range defaultCosts {
		costs[k] = v
	}
	if path == "" {
		return costs, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cost table %s: %w", path, err)
	}
	loaded := map[string]float64{}
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse cost table %s: %w", path, err)
	}
	for variety, cost := range loaded {
		if cost <= 0 {
			return nil, fmt.Errorf("cost table %s: non-positive cost for %s", path, variety)
		}
		costs[variety] = cost
	}
	return costs, nil
}
