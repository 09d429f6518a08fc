// Package config loads the server configuration from defaults, an optional
// YAML file, .env files and TEMANTIDUR_ environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Supported backends and auth modes
const (
	BackendMock         = "mock"
	BackendGemini       = "gemini"
	BackendAzure        = "azure"
	BackendCustomVision = "customvision"
	BackendGoogle       = "google"
	BackendElevenLabs   = "elevenlabs"

	AuthNone     = "none"
	AuthHMAC     = "hmac"
	AuthFirebase = "firebase"
)

// Config is the root configuration of the server
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Auth    AuthConfig    `mapstructure:"auth"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Vision  VisionConfig  `mapstructure:"vision"`
	STT     STTConfig     `mapstructure:"stt"`
	TTS     TTSConfig     `mapstructure:"tts"`
	Voice   VoiceConfig   `mapstructure:"voice"`
}

// ServerConfig holds the HTTP listener settings
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	BodyLimit       string        `mapstructure:"body_limit"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowOrigins    []string      `mapstructure:"allow_origins"`
}

// LoggingConfig holds zap settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// AuthConfig selects how bearer tokens are verified
type AuthConfig struct {
	Mode              string `mapstructure:"mode"` // none, hmac, firebase
	JWTSecret         string `mapstructure:"jwt_secret"`
	FirebaseProjectID string `mapstructure:"firebase_project_id"`
	FirebaseCertsURL  string `mapstructure:"firebase_certs_url"`
}

// LLMConfig selects and configures the chat completion backend
type LLMConfig struct {
	Backend string       `mapstructure:"backend"` // gemini, azure, mock
	Gemini  GeminiConfig `mapstructure:"gemini"`
	Azure   AzureConfig  `mapstructure:"azure"`
}

// GeminiConfig holds Gemini API settings
type GeminiConfig struct {
	APIKey         string  `mapstructure:"api_key"`
	Model          string  `mapstructure:"model"`
	TopK           float32 `mapstructure:"top_k"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	BaseURL        string  `mapstructure:"base_url"`
}

// AzureConfig holds Azure OpenAI settings
type AzureConfig struct {
	Endpoint   string        `mapstructure:"endpoint"`
	APIKey     string        `mapstructure:"api_key"`
	Deployment string        `mapstructure:"deployment"`
	APIVersion string        `mapstructure:"api_version"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// VisionConfig selects and configures the emotion classifier
type VisionConfig struct {
	Backend       string        `mapstructure:"backend"` // customvision, mock
	PredictionURL string        `mapstructure:"prediction_url"`
	PredictionKey string        `mapstructure:"prediction_key"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// STTConfig selects and configures speech recognition
type STTConfig struct {
	Backend         string `mapstructure:"backend"` // google, mock
	CredentialsFile string `mapstructure:"credentials_file"`
	Model           string `mapstructure:"model"`
}

// TTSConfig selects and configures speech synthesis
type TTSConfig struct {
	Backend      string            `mapstructure:"backend"` // elevenlabs, mock
	APIKey       string            `mapstructure:"api_key"`
	APIBaseURL   string            `mapstructure:"api_base_url"`
	VoiceID      string            `mapstructure:"voice_id"`
	Voices       map[string]string `mapstructure:"voices"` // voice name -> Eleven Labs voice ID
	ModelID      string            `mapstructure:"model_id"`
	OutputFormat string            `mapstructure:"output_format"`
	Timeout      time.Duration     `mapstructure:"timeout"`
}

// VoiceConfig holds voice chat settings
type VoiceConfig struct {
	TempDir string            `mapstructure:"temp_dir"`
	Voices  map[string]string `mapstructure:"voices"` // language code -> voice name
}

// Load reads the configuration from file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise ./temantidur.yaml
// and ./configs/temantidur.yaml are tried. A missing file is not an error.
func Load(configFile string, logger *zap.Logger) (*Config, error) {
	// .env is optional; real environment variables take precedence
	if err := godotenv.Load(); err == nil {
		logger.Info("Loaded .env file")
	}

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("temantidur")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	// Environment variables: TEMANTIDUR_SERVER_PORT, TEMANTIDUR_LLM_BACKEND, etc.
	v.SetEnvPrefix("TEMANTIDUR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		logger.Info("No config file found, using defaults and environment variables")
	} else {
		logger.Info("Loaded config file", zap.String("path", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	cfg.resolveSecrets()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.body_limit", "25M")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.allow_origins", []string{"*"})
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("auth.mode", AuthHMAC)
	v.SetDefault("auth.jwt_secret", "${JWT_SECRET}")
	v.SetDefault("auth.firebase_project_id", "${FIREBASE_PROJECT_ID}")
	v.SetDefault("auth.firebase_certs_url", "")
	v.SetDefault("llm.backend", BackendMock)
	v.SetDefault("llm.gemini.api_key", "${GEMINI_API_KEY}")
	v.SetDefault("llm.gemini.model", "gemini-2.0-flash")
	v.SetDefault("llm.gemini.top_k", 40)
	v.SetDefault("llm.gemini.timeout_seconds", 30)
	v.SetDefault("llm.gemini.base_url", "")
	v.SetDefault("llm.azure.endpoint", "${AZURE_OPENAI_ENDPOINT}")
	v.SetDefault("llm.azure.api_key", "${AZURE_OPENAI_API_KEY}")
	v.SetDefault("llm.azure.deployment", "${AZURE_OPENAI_DEPLOYMENT}")
	v.SetDefault("llm.azure.api_version", "2024-12-01-preview")
	v.SetDefault("llm.azure.timeout", "30s")
	v.SetDefault("vision.backend", BackendMock)
	v.SetDefault("vision.prediction_url", "${AZURE_VISION_PREDICTION_URL}")
	v.SetDefault("vision.prediction_key", "${AZURE_VISION_PREDICTION_KEY}")
	v.SetDefault("vision.timeout", "30s")
	v.SetDefault("stt.backend", BackendMock)
	v.SetDefault("stt.credentials_file", "${GOOGLE_APPLICATION_CREDENTIALS}")
	v.SetDefault("stt.model", "latest_short")
	v.SetDefault("tts.backend", BackendMock)
	v.SetDefault("tts.api_key", "${ELEVEN_LABS_API_KEY}")
	v.SetDefault("tts.api_base_url", "https://api.elevenlabs.io/v1")
	v.SetDefault("tts.voice_id", "")
	v.SetDefault("tts.model_id", "eleven_multilingual_v2")
	v.SetDefault("tts.output_format", "pcm_16000")
	v.SetDefault("tts.timeout", "60s")
	v.SetDefault("voice.temp_dir", "")
	v.SetDefault("voice.voices", map[string]string{
		"id": "id-ID-GadisNeural",
		"en": "en-US-JennyNeural",
	})
}

// resolveSecrets replaces "${VAR}" references in secret fields
func (c *Config) resolveSecrets() {
	c.Auth.JWTSecret = resolveEnvRef(c.Auth.JWTSecret)
	c.Auth.FirebaseProjectID = resolveEnvRef(c.Auth.FirebaseProjectID)
	c.LLM.Gemini.APIKey = resolveEnvRef(c.LLM.Gemini.APIKey)
	c.LLM.Azure.Endpoint = resolveEnvRef(c.LLM.Azure.Endpoint)
	c.LLM.Azure.APIKey = resolveEnvRef(c.LLM.Azure.APIKey)
	c.LLM.Azure.Deployment = resolveEnvRef(c.LLM.Azure.Deployment)
	c.Vision.PredictionURL = resolveEnvRef(c.Vision.PredictionURL)
	c.Vision.PredictionKey = resolveEnvRef(c.Vision.PredictionKey)
	c.STT.CredentialsFile = resolveEnvRef(c.STT.CredentialsFile)
	c.TTS.APIKey = resolveEnvRef(c.TTS.APIKey)
}

// resolveEnvRef replaces a "${VAR_NAME}" value with the environment
// variable. An unset variable resolves to the empty string.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		return os.Getenv(val[2 : len(val)-1])
	}
	return val
}

// Validate checks the backend and auth selections. Provider credentials
// are validated by the adapters themselves.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	checks := []struct {
		key     string
		value   string
		allowed []string
	}{
		{"auth.mode", c.Auth.Mode, []string{AuthNone, AuthHMAC, AuthFirebase}},
		{"llm.backend", c.LLM.Backend, []string{BackendGemini, BackendAzure, BackendMock}},
		{"vision.backend", c.Vision.Backend, []string{BackendCustomVision, BackendMock}},
		{"stt.backend", c.STT.Backend, []string{BackendGoogle, BackendMock}},
		{"tts.backend", c.TTS.Backend, []string{BackendElevenLabs, BackendMock}},
		{"logging.format", c.Logging.Format, []string{"json", "console"}},
	}
	for _, check := range checks {
		if !contains(check.allowed, check.value) {
			return fmt.Errorf("%s must be one of %s, got %q", check.key, strings.Join(check.allowed, ", "), check.value)
		}
	}

	if c.Auth.Mode == AuthHMAC && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required when auth.mode is %s", AuthHMAC)
	}
	if c.Auth.Mode == AuthFirebase && c.Auth.FirebaseProjectID == "" {
		return fmt.Errorf("auth.firebase_project_id is required when auth.mode is %s", AuthFirebase)
	}
	return nil
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

// NewLogger builds the zap logger described by the logging config
func NewLogger(cfg LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid logging.level: %w", err)
	}

	var zapConfig zap.Config
	if cfg.Format == "console" {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	return zapConfig.Build()
}
