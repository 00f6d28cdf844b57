package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI    OpenAIConfig    `yaml:"openai" mapstructure:"openai"`
	Browser   BrowserConfig   `yaml:"browser" mapstructure:"browser"`
	Search    SearchConfig    `yaml:"search" mapstructure:"search"`
	Outreach  OutreachConfig  `yaml:"outreach" mapstructure:"outreach"`
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
	OCR       OCRConfig       `yaml:"ocr" mapstructure:"ocr"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run-history database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// OpenAIConfig holds OpenAI API settings for the DOM-analysis fallback.
type OpenAIConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// BrowserConfig configures the browser session driver.
type BrowserConfig struct {
	Headless       bool   `yaml:"headless" mapstructure:"headless"`
	BinPath        string `yaml:"bin_path" mapstructure:"bin_path"`
	NavTimeoutSecs int    `yaml:"nav_timeout_secs" mapstructure:"nav_timeout_secs"`
}

// SearchConfig configures the discovery and processing phases.
type SearchConfig struct {
	CandidatesPerPage int     `yaml:"candidates_per_page" mapstructure:"candidates_per_page"`
	ProfileDelaySecs  float64 `yaml:"profile_delay_secs" mapstructure:"profile_delay_secs"`
	ProfileStepBudget int     `yaml:"profile_step_budget" mapstructure:"profile_step_budget"`
}

// OutreachConfig configures connection request behavior.
type OutreachConfig struct {
	SendConnectionRequest bool   `yaml:"send_connection_request" mapstructure:"send_connection_request"`
	IncludeNote           bool   `yaml:"include_note" mapstructure:"include_note"`
	TemplateMode          string `yaml:"template_mode" mapstructure:"template_mode"`
	TemplatesFile         string `yaml:"templates_file" mapstructure:"templates_file"`
}

// OutputConfig configures where run artifacts and result tables are written.
type OutputConfig struct {
	BaseDir string `yaml:"base_dir" mapstructure:"base_dir"`
	XLSX    bool   `yaml:"xlsx" mapstructure:"xlsx"`
}

// OCRConfig configures CV PDF text extraction.
type OCRConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"`
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	MistralKey    string `yaml:"mistral_api_key" mapstructure:"mistral_api_key"`
}

// ServerConfig configures the progress API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("OUTREACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "outreach.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("openai.model", "gpt-4o")
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.nav_timeout_secs", 60)
	v.SetDefault("search.candidates_per_page", 10)
	v.SetDefault("search.profile_delay_secs", 2.0)
	v.SetDefault("search.profile_step_budget", 25)
	v.SetDefault("outreach.send_connection_request", true)
	v.SetDefault("outreach.include_note", true)
	v.SetDefault("outreach.template_mode", "examples")
	v.SetDefault("output.base_dir", "linkedin_searches")
	v.SetDefault("ocr.provider", "local")
	v.SetDefault("ocr.pdftotext_path", "pdftotext")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
