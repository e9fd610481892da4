package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config holds service configuration derived from the config file and
// environment variables. Environment always wins over the file.
type Config struct {
	HTTPPort             string
	InboxDir             string
	WorkDir              string
	ResultsDir           string
	DBPath               string
	JobQueueSize         int
	WorkerCount          int
	JobTimeoutSec        int
	BackfillLimit        int
	EnableWatcher        bool
	NotifyWebhookURL     string
	NotifyBotID          string
	LogLevel             string
	LogJSON              bool
	RulesPath            string
	ExtractionConfigPath string
	Extraction           ExtractionConfig
	LLM                  LLMConfig
	StrictConfig         bool
}

// LLMConfig selects the completion backend used for model extraction. An
// empty or "none" provider runs extraction on the rule tables alone.
type LLMConfig struct {
	Provider       string
	Model          string
	BaseURL        string
	APIKey         string
	Project        string
	Location       string
	TimeoutSec     int
	MaxRetries     int
	RequestsPerSec float64
	Burst          int
}

type fileConfig struct {
	InboxDir      string           `json:"inbox_dir" yaml:"inbox_dir"`
	HTTPPort      string           `json:"http_port" yaml:"http_port"`
	WorkDir       string           `json:"work_dir" yaml:"work_dir"`
	ResultsDir    string           `json:"results_dir" yaml:"results_dir"`
	DBPath        string           `json:"db_path" yaml:"db_path"`
	RulesPath     string           `json:"rules_path" yaml:"rules_path"`
	EnableWatcher *bool            `json:"enable_watcher" yaml:"enable_watcher"`
	NotifyURL     string           `json:"notify_webhook_url" yaml:"notify_webhook_url"`
	NotifyBotID   string           `json:"notify_bot_id" yaml:"notify_bot_id"`
	Extraction    ExtractionConfig `json:"extraction" yaml:"extraction"`
	LLM           llmFileConfig    `json:"llm" yaml:"llm"`
}

type llmFileConfig struct {
	Provider       string   `json:"provider" yaml:"provider"`
	Model          string   `json:"model" yaml:"model"`
	BaseURL        string   `json:"base_url" yaml:"base_url"`
	Project        string   `json:"project" yaml:"project"`
	Location       string   `json:"location" yaml:"location"`
	TimeoutSec     *int     `json:"timeout_sec" yaml:"timeout_sec"`
	MaxRetries     *int     `json:"max_retries" yaml:"max_retries"`
	RequestsPerSec *float64 `json:"requests_per_sec" yaml:"requests_per_sec"`
	Burst          *int     `json:"burst" yaml:"burst"`
}

const (
	defaultPort          = ":8000"
	defaultInboxDir      = "runtime/inbox"
	defaultWorkDir       = "runtime/work"
	defaultResultsDir    = "results"
	defaultDBFile        = "extractions.db"
	minQueueSize         = 1
	defaultQueueSize     = 100
	maxQueueSize         = 1024
	defaultWorkerCount   = 4
	defaultJobTimeoutSec = 60
	defaultBackfillLimit = 25
	maxBackfillLimit     = 100
	defaultModel         = "gpt-4o-mini"
	defaultVertexModel   = "gemini-1.5-pro"
	defaultLLMTimeout    = 30
	defaultLLMRetries    = 2
)

func defaultLLMConfig() LLMConfig {
	return LLMConfig{
		Model:      defaultModel,
		TimeoutSec: defaultLLMTimeout,
		MaxRetries: defaultLLMRetries,
		Burst:      1,
	}
}

// Load reads configuration from the config file and environment variables
// and applies sane defaults.
func Load() (Config, error) {
	cfg := Config{
		JobQueueSize:  defaultQueueSize,
		WorkerCount:   defaultWorkerCount,
		JobTimeoutSec: defaultJobTimeoutSec,
		BackfillLimit: defaultBackfillLimit,
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogJSON:       strings.EqualFold(os.Getenv("LOG_FORMAT"), "json"),
		StrictConfig:  parseBoolEnv("STRICT_CONFIG"),
	}
	log := zap.L()

	configPath := getEnv("CONFIG_PATH", filepath.Join("config", "config.yaml"))
	cfg.ExtractionConfigPath = getEnv("EXTRACTION_CONFIG_PATH", configPath)

	fileCfg, fileErr := loadFileConfig(configPath)
	if fileErr != nil {
		if cfg.StrictConfig {
			return cfg, fmt.Errorf("config load failed (%s): %w", configPath, fileErr)
		}
		log.Warn("config load failed, using defaults", zap.String("path", configPath), zap.Error(fileErr))
	}

	cfg.InboxDir = firstNonEmpty(os.Getenv("INBOX_DIR"), fileCfg.InboxDir, defaultInboxDir)
	cfg.WorkDir = firstNonEmpty(os.Getenv("WORK_DIR"), fileCfg.WorkDir, defaultWorkDir)
	cfg.ResultsDir = firstNonEmpty(os.Getenv("RESULTS_DIR"), fileCfg.ResultsDir, defaultResultsDir)
	cfg.RulesPath = firstNonEmpty(os.Getenv("RULES_PATH"), fileCfg.RulesPath)
	cfg.NotifyWebhookURL = firstNonEmpty(os.Getenv("NOTIFY_WEBHOOK_URL"), fileCfg.NotifyURL)
	cfg.NotifyBotID = firstNonEmpty(os.Getenv("NOTIFY_BOT_ID"), fileCfg.NotifyBotID)
	if dbPath := os.Getenv("DB_PATH"); dbPath != "" {
		cfg.DBPath = dbPath
	} else if fileCfg.DBPath != "" {
		cfg.DBPath = fileCfg.DBPath
	} else {
		cfg.DBPath = filepath.Join(cfg.WorkDir, defaultDBFile)
	}

	cfg.EnableWatcher = true
	if fileCfg.EnableWatcher != nil {
		cfg.EnableWatcher = *fileCfg.EnableWatcher
	}
	cfg.EnableWatcher = parseBoolEnvDefault("ENABLE_WATCHER", cfg.EnableWatcher)

	cfg.HTTPPort = firstNonEmpty(os.Getenv("HTTP_PORT"), fileCfg.HTTPPort, defaultPort)
	if legacyPort := os.Getenv("PORT"); legacyPort != "" && cfg.HTTPPort == defaultPort {
		cfg.HTTPPort = legacyPort
	}
	if !strings.HasPrefix(cfg.HTTPPort, ":") {
		cfg.HTTPPort = ":" + cfg.HTTPPort
	}

	if v := os.Getenv("WORKER_COUNT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Warn("invalid WORKER_COUNT, using default", zap.String("value", v), zap.Int("default", defaultWorkerCount))
			n = defaultWorkerCount
		}
		if n <= 0 {
			log.Warn("WORKER_COUNT must be positive, using default", zap.Int("default", defaultWorkerCount))
			n = defaultWorkerCount
		}
		cfg.WorkerCount = n
	}

	if v := os.Getenv("JOB_QUEUE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Warn("invalid JOB_QUEUE_SIZE, using default", zap.String("value", v), zap.Int("default", defaultQueueSize))
			n = defaultQueueSize
		}
		if n < minQueueSize {
			log.Warn("JOB_QUEUE_SIZE raised to minimum", zap.Int("min", minQueueSize), zap.Int("was", n))
			n = minQueueSize
		}
		if n > maxQueueSize {
			log.Warn("JOB_QUEUE_SIZE capped", zap.Int("max", maxQueueSize), zap.Int("was", n))
			n = maxQueueSize
		}
		cfg.JobQueueSize = n
	}

	if cfg.JobQueueSize < cfg.WorkerCount {
		log.Warn("JOB_QUEUE_SIZE must be >= WORKER_COUNT, using default", zap.Int("default", defaultQueueSize))
		cfg.JobQueueSize = max(defaultQueueSize, cfg.WorkerCount)
	}

	if v := os.Getenv("JOB_TIMEOUT_SEC"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid JOB_TIMEOUT_SEC: %w", err)
		}
		if n <= 0 {
			return cfg, fmt.Errorf("JOB_TIMEOUT_SEC must be positive")
		}
		cfg.JobTimeoutSec = n
	}

	if v, ok, err := parseIntEnv("BACKFILL_LIMIT"); err != nil {
		if cfg.StrictConfig {
			return cfg, fmt.Errorf("invalid BACKFILL_LIMIT: %w", err)
		}
		log.Warn("invalid BACKFILL_LIMIT, using default", zap.Error(err))
	} else if ok && v > 0 {
		if v > maxBackfillLimit {
			log.Warn("BACKFILL_LIMIT capped", zap.Int("max", maxBackfillLimit), zap.Int("was", v))
			v = maxBackfillLimit
		}
		cfg.BackfillLimit = v
	}

	llmCfg, err := loadLLMConfig(applyLLMOverrides(defaultLLMConfig(), fileCfg.LLM))
	if err != nil {
		if cfg.StrictConfig {
			return cfg, err
		}
		log.Warn("llm config invalid, using defaults", zap.Error(err))
	}
	cfg.LLM = llmCfg

	cfg.Extraction = MergeExtractionConfig(DefaultExtractionConfig(), fileCfg.Extraction)
	if cfg.ExtractionConfigPath != configPath {
		extCfg, err := LoadExtractionConfig(cfg.ExtractionConfigPath)
		if err != nil {
			if cfg.StrictConfig {
				return cfg, fmt.Errorf("extraction config load failed (%s): %w", cfg.ExtractionConfigPath, err)
			}
			log.Warn("extraction config load failed, using defaults",
				zap.String("path", cfg.ExtractionConfigPath), zap.Error(err))
		} else {
			cfg.Extraction = extCfg
		}
	}

	if err := validateConfig(cfg); err != nil {
		if cfg.StrictConfig {
			return cfg, err
		}
		log.Warn("config validation failed, continuing", zap.Error(err))
	}

	return cfg, nil
}

// loadLLMConfig overlays LLM_* and provider specific variables. Parse errors
// keep the previous value and are reported together.
func loadLLMConfig(base LLMConfig) (LLMConfig, error) {
	var errs []error

	base.APIKey = firstNonEmpty(os.Getenv("OPENAI_API_KEY"), os.Getenv("LLM_API_KEY"), base.APIKey)
	base.Provider = firstNonEmpty(os.Getenv("LLM_PROVIDER"), base.Provider)
	if base.Provider == "" && base.APIKey != "" {
		base.Provider = "openai"
	}
	base.Model = firstNonEmpty(os.Getenv("LLM_MODEL"), base.Model)
	base.BaseURL = firstNonEmpty(
		os.Getenv("LLM_BASE_URL"),
		os.Getenv("OPENAI_BASE_URL"),
		os.Getenv("OPENAI_API_BASE"),
		base.BaseURL,
	)
	base.Project = firstNonEmpty(os.Getenv("VERTEX_PROJECT"), os.Getenv("GOOGLE_CLOUD_PROJECT"), base.Project)
	base.Location = firstNonEmpty(os.Getenv("VERTEX_LOCATION"), base.Location, "us-central1")
	if strings.EqualFold(base.Provider, "vertex") && base.Model == defaultModel {
		base.Model = defaultVertexModel
	}

	if v, ok, err := parseIntEnv("LLM_TIMEOUT_SEC"); err != nil {
		errs = append(errs, fmt.Errorf("invalid LLM_TIMEOUT_SEC: %w", err))
	} else if ok && v > 0 {
		base.TimeoutSec = v
	}
	if v, ok, err := parseIntEnv("LLM_MAX_RETRIES"); err != nil {
		errs = append(errs, fmt.Errorf("invalid LLM_MAX_RETRIES: %w", err))
	} else if ok && v >= 0 {
		base.MaxRetries = v
	}
	if v, ok, err := parseFloatEnv("LLM_REQUESTS_PER_SEC"); err != nil {
		errs = append(errs, fmt.Errorf("invalid LLM_REQUESTS_PER_SEC: %w", err))
	} else if ok && v >= 0 {
		base.RequestsPerSec = v
	}
	if v, ok, err := parseIntEnv("LLM_BURST"); err != nil {
		errs = append(errs, fmt.Errorf("invalid LLM_BURST: %w", err))
	} else if ok && v > 0 {
		base.Burst = v
	}
	return base, errors.Join(errs...)
}

func applyLLMOverrides(base LLMConfig, override llmFileConfig) LLMConfig {
	if v := strings.TrimSpace(override.Provider); v != "" {
		base.Provider = v
	}
	if v := strings.TrimSpace(override.Model); v != "" {
		base.Model = v
	}
	if v := strings.TrimSpace(override.BaseURL); v != "" {
		base.BaseURL = v
	}
	if v := strings.TrimSpace(override.Project); v != "" {
		base.Project = v
	}
	if v := strings.TrimSpace(override.Location); v != "" {
		base.Location = v
	}
	if override.TimeoutSec != nil && *override.TimeoutSec > 0 {
		base.TimeoutSec = *override.TimeoutSec
	}
	if override.MaxRetries != nil && *override.MaxRetries >= 0 {
		base.MaxRetries = *override.MaxRetries
	}
	if override.RequestsPerSec != nil && *override.RequestsPerSec >= 0 {
		base.RequestsPerSec = *override.RequestsPerSec
	}
	if override.Burst != nil && *override.Burst > 0 {
		base.Burst = *override.Burst
	}
	return base
}

func loadFileConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if len(data) == 0 {
		return cfg, errors.New("empty config file")
	}
	if err := decodeByExt(path, data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// decodeByExt decodes JSON for .json files and YAML otherwise.
func decodeByExt(path string, data []byte, out any) error {
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		return json.Unmarshal(data, out)
	}
	return yaml.Unmarshal(data, out)
}

func validateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.InboxDir) == "" {
		return errors.New("INBOX_DIR is required")
	}
	if strings.TrimSpace(cfg.HTTPPort) == "" {
		return errors.New("HTTP_PORT is required")
	}
	switch strings.ToLower(cfg.LLM.Provider) {
	case "", "none", "off":
	case "openai":
		if strings.TrimSpace(cfg.LLM.Model) == "" {
			return errors.New("llm.model is required for the openai provider")
		}
	case "vertex", "gemini":
		if cfg.LLM.Project == "" {
			return errors.New("VERTEX_PROJECT is required for the vertex provider")
		}
	default:
		return fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, val := range values {
		if strings.TrimSpace(val) != "" {
			return strings.TrimSpace(val)
		}
	}
	return ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "1" || v == "true" || v == "yes" || v == "on" {
		return true
	}
	return false
}

func parseBoolEnvDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	return parseBoolEnv(key)
}

func parseIntEnv(key string) (int, bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false, nil
	}
	val, err := strconv.Atoi(raw)
	return val, true, err
}

func parseFloatEnv(key string) (float64, bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false, nil
	}
	val, err := strconv.ParseFloat(raw, 64)
	return val, true, err
}
