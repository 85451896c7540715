package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Mindbaseeducation/khotwa-email-review-app/internal/domain"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const defaultExternalHTTPTimeout = 90 * time.Second
const defaultExternalHTTPTimeoutSeconds = int(defaultExternalHTTPTimeout / time.Second)

const (
	defaultLLMMaxTokens          = 4096
	defaultLLMMaxRetries         = 2
	defaultLLMCallTimeoutSeconds = 120
	defaultLLMConcurrency        = 1
	maxLLMConcurrency            = 16
	defaultEmailColumn           = "Email"
	defaultSenderDomain          = "mindbase.education"
	defaultRecipientDomain       = "adek.gov.ae"
	defaultSummaryMinWords       = 30
	defaultOutputDir             = "./reviews"
)

type Config struct {
	LLMProvider           string  `yaml:"llm_provider"`
	LLMModel              string  `yaml:"llm_model"`
	LLMTemperature        float64 `yaml:"llm_temperature"`
	LLMMaxTokens          int     `yaml:"llm_max_tokens"`
	LLMMaxRetries         int     `yaml:"llm_max_retries"`
	LLMCallTimeoutSeconds int     `yaml:"llm_call_timeout_seconds"`
	LLMConcurrency        int     `yaml:"llm_concurrency"`
	LLMBaseURL            string  `yaml:"llm_base_url"`
	AnthropicAPIKey       string  `yaml:"anthropic_api_key"`
	OpenAIAPIKey          string  `yaml:"openai_api_key"`

	EmailColumn          string `yaml:"email_column"`
	InputSheet           string `yaml:"input_sheet"`
	SenderDomain         string `yaml:"sender_domain"`
	RecipientDomain      string `yaml:"recipient_domain"`
	SummaryMinWords      int    `yaml:"summary_min_words"`
	HandoverPolicyPath   string `yaml:"handover_policy_path"`
	BackfillSharedFields bool   `yaml:"backfill_shared_fields"`

	OutputDir                  string `yaml:"output_dir"`
	ExternalHTTPTimeoutSeconds int    `yaml:"external_http_timeout_seconds"`

	SlackBotToken  string `yaml:"slack_bot_token"`
	SlackChannelID string `yaml:"slack_channel_id"`

	ReviewSchedule  string `yaml:"review_schedule"`
	ReviewInputPath string `yaml:"review_input_path"`
	Timezone        string `yaml:"timezone"`

	HandoverPolicy domain.HandoverPolicy `yaml:"-"` // loaded from HandoverPolicyPath
	Location       *time.Location        `yaml:"-"` // computed from Timezone, not from YAML
}

// LoadConfig is Load for process entry points: any error is fatal.
func LoadConfig() Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("%v", err)
	}
	return cfg
}

func Load() (Config, error) {
	cfg := Config{LLMMaxRetries: defaultLLMMaxRetries}

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("error parsing %s: %w", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	envOverride(&cfg.LLMProvider, "LLM_PROVIDER")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverride(&cfg.LLMBaseURL, "LLM_BASE_URL")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	envOverride(&cfg.EmailColumn, "EMAIL_COLUMN")
	envOverride(&cfg.InputSheet, "INPUT_SHEET")
	envOverride(&cfg.SenderDomain, "SENDER_DOMAIN")
	envOverride(&cfg.RecipientDomain, "RECIPIENT_DOMAIN")
	envOverride(&cfg.HandoverPolicyPath, "HANDOVER_POLICY_PATH")
	envOverrideBool(&cfg.BackfillSharedFields, "BACKFILL_SHARED_FIELDS")
	envOverride(&cfg.OutputDir, "OUTPUT_DIR")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackChannelID, "SLACK_CHANNEL_ID")
	envOverride(&cfg.ReviewSchedule, "REVIEW_SCHEDULE")
	envOverride(&cfg.ReviewInputPath, "REVIEW_INPUT_PATH")
	envOverride(&cfg.Timezone, "TIMEZONE")

	for _, o := range []struct {
		field *int
		key   string
	}{
		{&cfg.LLMMaxTokens, "LLM_MAX_TOKENS"},
		{&cfg.LLMMaxRetries, "LLM_MAX_RETRIES"},
		{&cfg.LLMCallTimeoutSeconds, "LLM_CALL_TIMEOUT_SECONDS"},
		{&cfg.LLMConcurrency, "LLM_CONCURRENCY"},
		{&cfg.SummaryMinWords, "SUMMARY_MIN_WORDS"},
		{&cfg.ExternalHTTPTimeoutSeconds, "EXTERNAL_HTTP_TIMEOUT_SECONDS"},
	} {
		if err := envOverrideInt(o.field, o.key); err != nil {
			return err
		}
	}
	return envOverrideFloat(&cfg.LLMTemperature, "LLM_TEMPERATURE")
}

func applyDefaults(cfg *Config) {
	if cfg.LLMProvider == "" {
		cfg.LLMProvider = "anthropic"
	}
	if cfg.LLMMaxTokens == 0 {
		cfg.LLMMaxTokens = defaultLLMMaxTokens
	}
	if cfg.LLMCallTimeoutSeconds == 0 {
		cfg.LLMCallTimeoutSeconds = defaultLLMCallTimeoutSeconds
	}
	if cfg.LLMConcurrency == 0 {
		cfg.LLMConcurrency = defaultLLMConcurrency
	}
	if cfg.EmailColumn == "" {
		cfg.EmailColumn = defaultEmailColumn
	}
	if cfg.SenderDomain == "" {
		cfg.SenderDomain = defaultSenderDomain
	}
	if cfg.RecipientDomain == "" {
		cfg.RecipientDomain = defaultRecipientDomain
	}
	if cfg.SummaryMinWords == 0 {
		cfg.SummaryMinWords = defaultSummaryMinWords
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = defaultOutputDir
	}
	if cfg.ExternalHTTPTimeoutSeconds == 0 {
		cfg.ExternalHTTPTimeoutSeconds = defaultExternalHTTPTimeoutSeconds
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}
	cfg.SenderDomain = strings.TrimPrefix(strings.TrimSpace(cfg.SenderDomain), "@")
	cfg.RecipientDomain = strings.TrimPrefix(strings.TrimSpace(cfg.RecipientDomain), "@")
}

func validate(cfg *Config) error {
	switch cfg.LLMProvider {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return fmt.Errorf("anthropic_api_key is required when llm_provider=anthropic")
		}
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return fmt.Errorf("openai_api_key is required when llm_provider=openai")
		}
	default:
		return fmt.Errorf("llm_provider must be 'anthropic' or 'openai', got '%s'", cfg.LLMProvider)
	}

	if cfg.LLMTemperature < 0 || cfg.LLMTemperature > 1 {
		return fmt.Errorf("invalid llm_temperature '%f': must be between 0 and 1", cfg.LLMTemperature)
	}
	if cfg.LLMMaxTokens < 256 {
		return fmt.Errorf("invalid llm_max_tokens '%d': must be >= 256", cfg.LLMMaxTokens)
	}
	if cfg.LLMMaxRetries < 0 {
		return fmt.Errorf("invalid llm_max_retries '%d': must be >= 0", cfg.LLMMaxRetries)
	}
	if cfg.LLMCallTimeoutSeconds < 1 {
		return fmt.Errorf("invalid llm_call_timeout_seconds '%d': must be >= 1", cfg.LLMCallTimeoutSeconds)
	}
	if cfg.LLMConcurrency < 1 || cfg.LLMConcurrency > maxLLMConcurrency {
		return fmt.Errorf("invalid llm_concurrency '%d': must be between 1 and %d", cfg.LLMConcurrency, maxLLMConcurrency)
	}
	if cfg.SummaryMinWords < 1 {
		return fmt.Errorf("invalid summary_min_words '%d': must be >= 1", cfg.SummaryMinWords)
	}
	if cfg.ExternalHTTPTimeoutSeconds < 5 {
		return fmt.Errorf("invalid external_http_timeout_seconds '%d': must be >= 5", cfg.ExternalHTTPTimeoutSeconds)
	}
	if strings.TrimSpace(cfg.EmailColumn) == "" {
		return fmt.Errorf("email_column must not be blank")
	}

	if (cfg.SlackBotToken == "") != (cfg.SlackChannelID == "") {
		return fmt.Errorf("partial Slack config: slack_bot_token and slack_channel_id are required together")
	}

	if strings.EqualFold(cfg.Timezone, "Local") {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return fmt.Errorf("invalid timezone '%s': %w", cfg.Timezone, err)
		}
		cfg.Location = loc
	}

	if s := strings.TrimSpace(cfg.ReviewSchedule); s != "" {
		if _, err := ParseSchedule(s); err != nil {
			return fmt.Errorf("invalid review_schedule '%s': %w", s, err)
		}
	}

	cfg.HandoverPolicy = domain.DefaultHandoverPolicy()
	if cfg.HandoverPolicyPath != "" {
		policy, err := domain.LoadHandoverPolicy(cfg.HandoverPolicyPath)
		if err != nil {
			return fmt.Errorf("invalid handover_policy_path '%s': %w", cfg.HandoverPolicyPath, err)
		}
		cfg.HandoverPolicy = policy
	}
	return nil
}

// ParseSchedule parses a standard 5-field cron expression.
func ParseSchedule(spec string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser.Parse(spec)
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}

func envOverrideBool(field *bool, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = strings.EqualFold(val, "true") || val == "1"
	}
}

func envOverrideFloat(field *float64, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}

func (c Config) SlackConfigured() bool {
	return c.SlackBotToken != "" && c.SlackChannelID != ""
}

func (c Config) LLMCallTimeout() time.Duration {
	return time.Duration(c.LLMCallTimeoutSeconds) * time.Second
}
