package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	SlackBotToken string `yaml:"slack_bot_token"`
	SlackAppToken string `yaml:"slack_app_token"`

	MondayAPIToken    string `yaml:"monday_api_token"`
	MondayAPIURL      string `yaml:"monday_api_url"`
	DealsBoardID      string `yaml:"deals_board_id"`
	WorkOrdersBoardID string `yaml:"work_orders_board_id"`

	LLMProvider     string `yaml:"llm_provider"`
	LLMModel        string `yaml:"llm_model"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`

	DBPath          string `yaml:"db_path"`
	CacheTTLMinutes int    `yaml:"cache_ttl_minutes"`
	RefreshSchedule string `yaml:"refresh_schedule"`
	ReportChannelID string `yaml:"report_channel_id"`
	PreviewRows     int    `yaml:"preview_rows"`
	Timezone        string `yaml:"timezone"`
	TeamName        string `yaml:"team_name"`

	Location *time.Location `yaml:"-"`
}

func LoadConfig() Config {
	var cfg Config

	// Local .env keys load first so yaml/env resolution sees them.
	_ = godotenv.Load()

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	// Env vars override YAML values
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackAppToken, "SLACK_APP_TOKEN")
	envOverride(&cfg.MondayAPIToken, "MONDAY_API_TOKEN")
	envOverride(&cfg.MondayAPIURL, "MONDAY_API_URL")
	envOverride(&cfg.DealsBoardID, "DEALS_BOARD_ID")
	envOverride(&cfg.WorkOrdersBoardID, "WORK_ORDERS_BOARD_ID")
	envOverride(&cfg.LLMProvider, "LLM_PROVIDER")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverrideInt(&cfg.CacheTTLMinutes, "CACHE_TTL_MINUTES")
	envOverride(&cfg.RefreshSchedule, "REFRESH_SCHEDULE")
	envOverride(&cfg.ReportChannelID, "REPORT_CHANNEL_ID")
	envOverrideInt(&cfg.PreviewRows, "PREVIEW_ROWS")
	envOverride(&cfg.Timezone, "TIMEZONE")
	envOverride(&cfg.TeamName, "TEAM_NAME")

	// Defaults
	if cfg.MondayAPIURL == "" {
		cfg.MondayAPIURL = defaultMondayAPIURL
	}
	if cfg.LLMProvider == "" {
		cfg.LLMProvider = "anthropic"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./bizbot.db"
	}
	if cfg.CacheTTLMinutes == 0 {
		cfg.CacheTTLMinutes = 5
	}
	if cfg.PreviewRows == 0 {
		cfg.PreviewRows = 10
	}
	if cfg.TeamName == "" {
		cfg.TeamName = "My Team"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}

	// Validate required fields
	required := map[string]string{
		"slack_bot_token":      cfg.SlackBotToken,
		"slack_app_token":      cfg.SlackAppToken,
		"monday_api_token":     cfg.MondayAPIToken,
		"deals_board_id":       cfg.DealsBoardID,
		"work_orders_board_id": cfg.WorkOrdersBoardID,
	}
	for name, val := range required {
		if val == "" {
			log.Fatalf("Required config '%s' is not set (via config.yaml or env var)", name)
		}
	}

	switch cfg.LLMProvider {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			log.Fatalf("anthropic_api_key is required when llm_provider=anthropic")
		}
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			log.Fatalf("openai_api_key is required when llm_provider=openai")
		}
	default:
		log.Fatalf("llm_provider must be 'anthropic' or 'openai', got '%s'", cfg.LLMProvider)
	}

	if cfg.CacheTTLMinutes < 1 {
		log.Fatalf("invalid cache_ttl_minutes '%d': must be >= 1", cfg.CacheTTLMinutes)
	}
	if cfg.PreviewRows < 1 {
		log.Fatalf("invalid preview_rows '%d': must be >= 1", cfg.PreviewRows)
	}

	if cfg.Timezone == "Local" {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			log.Fatalf("invalid timezone '%s': %v", cfg.Timezone, err)
		}
		cfg.Location = loc
	}

	return cfg
}

func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}
