package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	DB         DBConfig
	S3         S3Config
	Log        LogConfig
	CORS       CORSConfig
	Auth       AuthConfig
	OCR        OCRConfig
	Classifier ClassifierConfig
	Reasoner   ReasonerConfig
	Prompts    PromptsConfig
	Queue      QueueConfig
	Upload     UploadConfig
}

// QueueConfig holds extract queue worker settings.
type QueueConfig struct {
	PollIntervalSecs int `mapstructure:"poll_interval_secs"`
	MaxRetries       int `mapstructure:"max_retries"`
	Concurrency      int `mapstructure:"concurrency"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// AuthConfig holds optional bearer-token settings. Auth is disabled when JWTSecret is empty.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// Enabled reports whether API routes require a bearer token.
func (a *AuthConfig) Enabled() bool {
	return a.JWTSecret != ""
}

// OCRConfig holds tesseract settings.
type OCRConfig struct {
	Languages   []string `mapstructure:"languages"`
	PageSegMode int      `mapstructure:"psm"`
	TessdataDir string   `mapstructure:"tessdata_dir"`
}

// ClassifierConfig holds settings for the token classification inference server.
type ClassifierConfig struct {
	Endpoint    string   `mapstructure:"endpoint"`
	APIKey      string   `mapstructure:"api_key"`
	ModelID     string   `mapstructure:"model_id"`
	MaxLength   int      `mapstructure:"max_length"`
	TimeoutSecs int      `mapstructure:"timeout_secs"`
	Labels      []string `mapstructure:"labels"`
}

// ReasonerProviderConfig holds settings for a single LLM reasoning provider.
type ReasonerProviderConfig struct {
	Provider     string  `mapstructure:"provider"`
	APIKey       string  `mapstructure:"api_key"`
	DefaultModel string  `mapstructure:"default_model"`
	Endpoint     string  `mapstructure:"endpoint"`
	Temperature  float64 `mapstructure:"temperature"`
	MaxRetries   int     `mapstructure:"max_retries"`
	TimeoutSecs  int     `mapstructure:"timeout_secs"`
}

// ReasonerConfig holds LLM reasoning settings with multi-provider support.
type ReasonerConfig struct {
	// Mode is "single" (fallback chain) or "dual" (primary and secondary merged).
	Mode string `mapstructure:"mode"`

	// Legacy flat fields (used when no primary provider is configured)
	Provider     string  `mapstructure:"provider"`
	APIKey       string  `mapstructure:"api_key"`
	DefaultModel string  `mapstructure:"default_model"`
	Endpoint     string  `mapstructure:"endpoint"`
	Temperature  float64 `mapstructure:"temperature"`
	MaxRetries   int     `mapstructure:"max_retries"`
	TimeoutSecs  int     `mapstructure:"timeout_secs"`

	Primary   ReasonerProviderConfig `mapstructure:"primary"`
	Secondary ReasonerProviderConfig `mapstructure:"secondary"`
	Tertiary  ReasonerProviderConfig `mapstructure:"tertiary"`
}

// PrimaryConfig returns the primary provider config, falling back to legacy flat fields.
func (r *ReasonerConfig) PrimaryConfig() *ReasonerProviderConfig {
	if r.Primary.Provider != "" {
		return &r.Primary
	}
	return &ReasonerProviderConfig{
		Provider:     r.Provider,
		APIKey:       r.APIKey,
		DefaultModel: r.DefaultModel,
		Endpoint:     r.Endpoint,
		Temperature:  r.Temperature,
		MaxRetries:   r.MaxRetries,
		TimeoutSecs:  r.TimeoutSecs,
	}
}

// SecondaryConfig returns the secondary provider config, or nil if not configured.
func (r *ReasonerConfig) SecondaryConfig() *ReasonerProviderConfig {
	if r.Secondary.Provider != "" {
		return &r.Secondary
	}
	return nil
}

// TertiaryConfig returns the tertiary provider config, or nil if not configured.
func (r *ReasonerConfig) TertiaryConfig() *ReasonerProviderConfig {
	if r.Tertiary.Provider != "" {
		return &r.Tertiary
	}
	return nil
}

// PromptsConfig locates the system and human prompt templates.
type PromptsConfig struct {
	Dir   string `mapstructure:"dir"`
	Watch bool   `mapstructure:"watch"`
}

// UploadConfig bounds receipt uploads and local image paths.
type UploadConfig struct {
	MaxFileSizeMB int64  `mapstructure:"max_file_size_mb"`
	ImageRoot     string `mapstructure:"image_root"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Environment     string        `mapstructure:"environment"`
	// Stateless serves only the inference route: no database, no receipts API, no queue worker.
	Stateless bool `mapstructure:"stateless"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// S3Config holds AWS S3 settings.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from environment variables with the UNIKREW_ prefix.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("UNIKREW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8089")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "180s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.stateless", false)

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "unikrew")
	v.SetDefault("db.password", "unikrew_secret")
	v.SetDefault("db.name", "unikrew_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "unikrew-receipts")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.presign_expiry", 3600)

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	v.SetDefault("cors.allowed_origins", "http://localhost:8501,http://127.0.0.1:8501,http://localhost:3000,http://127.0.0.1:3000")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "unikrew")

	// OCR defaults
	v.SetDefault("ocr.languages", "eng")
	v.SetDefault("ocr.psm", 0)
	v.SetDefault("ocr.tessdata_dir", "")

	// Classifier defaults
	v.SetDefault("classifier.endpoint", "http://localhost:8090/predict")
	v.SetDefault("classifier.api_key", "")
	v.SetDefault("classifier.model_id", "Sameed1/smdk-layoutlmv3-receipts")
	v.SetDefault("classifier.max_length", 512)
	v.SetDefault("classifier.timeout_secs", 60)
	v.SetDefault("classifier.labels", "")

	// Reasoner defaults (legacy flat)
	v.SetDefault("reasoner.mode", "single")
	v.SetDefault("reasoner.provider", "groq")
	v.SetDefault("reasoner.api_key", "")
	v.SetDefault("reasoner.default_model", "")
	v.SetDefault("reasoner.endpoint", "")
	v.SetDefault("reasoner.temperature", 0.3)
	v.SetDefault("reasoner.max_retries", 2)
	v.SetDefault("reasoner.timeout_secs", 120)

	for _, tier := range []string{"primary", "secondary", "tertiary"} {
		v.SetDefault("reasoner."+tier+".provider", "")
		v.SetDefault("reasoner."+tier+".api_key", "")
		v.SetDefault("reasoner."+tier+".default_model", "")
		v.SetDefault("reasoner."+tier+".endpoint", "")
		v.SetDefault("reasoner."+tier+".temperature", 0.3)
		v.SetDefault("reasoner."+tier+".max_retries", 2)
		v.SetDefault("reasoner."+tier+".timeout_secs", 120)
	}

	v.SetDefault("prompts.dir", "")
	v.SetDefault("prompts.watch", false)

	// Queue defaults
	v.SetDefault("queue.poll_interval_secs", 10)
	v.SetDefault("queue.max_retries", 5)
	v.SetDefault("queue.concurrency", 2)

	v.SetDefault("upload.max_file_size_mb", 20)
	v.SetDefault("upload.image_root", "")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":              "UNIKREW_SERVER_PORT",
		"server.read_timeout":      "UNIKREW_SERVER_READ_TIMEOUT",
		"server.write_timeout":     "UNIKREW_SERVER_WRITE_TIMEOUT",
		"server.shutdown_timeout":  "UNIKREW_SERVER_SHUTDOWN_TIMEOUT",
		"server.environment":       "UNIKREW_SERVER_ENVIRONMENT",
		"server.stateless":         "UNIKREW_SERVER_STATELESS",
		"db.host":                  "UNIKREW_DB_HOST",
		"db.port":                  "UNIKREW_DB_PORT",
		"db.user":                  "UNIKREW_DB_USER",
		"db.password":              "UNIKREW_DB_PASSWORD",
		"db.name":                  "UNIKREW_DB_NAME",
		"db.sslmode":               "UNIKREW_DB_SSLMODE",
		"db.max_open":              "UNIKREW_DB_MAX_OPEN",
		"db.max_idle":              "UNIKREW_DB_MAX_IDLE",
		"s3.region":                "UNIKREW_S3_REGION",
		"s3.bucket":                "UNIKREW_S3_BUCKET",
		"s3.endpoint":              "UNIKREW_S3_ENDPOINT",
		"s3.access_key":            "UNIKREW_S3_ACCESS_KEY",
		"s3.secret_key":            "UNIKREW_S3_SECRET_KEY",
		"s3.presign_expiry":        "UNIKREW_S3_PRESIGN_EXPIRY",
		"log.level":                "UNIKREW_LOG_LEVEL",
		"log.format":               "UNIKREW_LOG_FORMAT",
		"cors.allowed_origins":     "UNIKREW_CORS_ALLOWED_ORIGINS",
		"auth.jwt_secret":          "UNIKREW_AUTH_JWT_SECRET",
		"auth.issuer":              "UNIKREW_AUTH_ISSUER",
		"ocr.languages":            "UNIKREW_OCR_LANGUAGES",
		"ocr.psm":                  "UNIKREW_OCR_PSM",
		"ocr.tessdata_dir":         "UNIKREW_OCR_TESSDATA_DIR",
		"classifier.endpoint":      "UNIKREW_CLASSIFIER_ENDPOINT",
		"classifier.api_key":       "UNIKREW_CLASSIFIER_API_KEY",
		"classifier.model_id":      "UNIKREW_CLASSIFIER_MODEL_ID",
		"classifier.max_length":    "UNIKREW_CLASSIFIER_MAX_LENGTH",
		"classifier.timeout_secs":  "UNIKREW_CLASSIFIER_TIMEOUT_SECS",
		"classifier.labels":        "UNIKREW_CLASSIFIER_LABELS",
		"reasoner.mode":            "UNIKREW_REASONER_MODE",
		"reasoner.provider":        "UNIKREW_REASONER_PROVIDER",
		"reasoner.api_key":         "UNIKREW_REASONER_API_KEY",
		"reasoner.default_model":   "UNIKREW_REASONER_DEFAULT_MODEL",
		"reasoner.endpoint":        "UNIKREW_REASONER_ENDPOINT",
		"reasoner.temperature":     "UNIKREW_REASONER_TEMPERATURE",
		"reasoner.max_retries":     "UNIKREW_REASONER_MAX_RETRIES",
		"reasoner.timeout_secs":    "UNIKREW_REASONER_TIMEOUT_SECS",
		"prompts.dir":              "UNIKREW_PROMPTS_DIR",
		"prompts.watch":            "UNIKREW_PROMPTS_WATCH",
		"queue.poll_interval_secs": "UNIKREW_QUEUE_POLL_INTERVAL_SECS",
		"queue.max_retries":        "UNIKREW_QUEUE_MAX_RETRIES",
		"queue.concurrency":        "UNIKREW_QUEUE_CONCURRENCY",
		"upload.max_file_size_mb":  "UNIKREW_UPLOAD_MAX_FILE_SIZE_MB",
		"upload.image_root":        "UNIKREW_UPLOAD_IMAGE_ROOT",
	}
	for _, tier := range []string{"primary", "secondary", "tertiary"} {
		for _, field := range []string{"provider", "api_key", "default_model", "endpoint", "temperature", "max_retries", "timeout_secs"} {
			key := "reasoner." + tier + "." + field
			envBindings[key] = "UNIKREW_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		}
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	// GROQ_API_KEY is honored when no reasoner key is set.
	if v.GetString("reasoner.api_key") == "" {
		if key := os.Getenv("GROQ_API_KEY"); key != "" {
			v.Set("reasoner.api_key", key)
		}
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if UNIKREW_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("UNIKREW_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:            serverPort,
		ReadTimeout:     v.GetDuration("server.read_timeout"),
		WriteTimeout:    v.GetDuration("server.write_timeout"),
		ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		Environment:     v.GetString("server.environment"),
		Stateless:       v.GetBool("server.stateless"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.S3 = S3Config{
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		PresignExpiry: v.GetInt64("s3.presign_expiry"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: splitList(v.GetString("cors.allowed_origins")),
	}
	cfg.Auth = AuthConfig{
		JWTSecret: v.GetString("auth.jwt_secret"),
		Issuer:    v.GetString("auth.issuer"),
	}
	cfg.OCR = OCRConfig{
		Languages:   splitList(v.GetString("ocr.languages")),
		PageSegMode: v.GetInt("ocr.psm"),
		TessdataDir: v.GetString("ocr.tessdata_dir"),
	}
	cfg.Classifier = ClassifierConfig{
		Endpoint:    v.GetString("classifier.endpoint"),
		APIKey:      v.GetString("classifier.api_key"),
		ModelID:     v.GetString("classifier.model_id"),
		MaxLength:   v.GetInt("classifier.max_length"),
		TimeoutSecs: v.GetInt("classifier.timeout_secs"),
		Labels:      splitList(v.GetString("classifier.labels")),
	}

	cfg.Reasoner = ReasonerConfig{
		Mode:         v.GetString("reasoner.mode"),
		Provider:     v.GetString("reasoner.provider"),
		APIKey:       v.GetString("reasoner.api_key"),
		DefaultModel: v.GetString("reasoner.default_model"),
		Endpoint:     v.GetString("reasoner.endpoint"),
		Temperature:  v.GetFloat64("reasoner.temperature"),
		MaxRetries:   v.GetInt("reasoner.max_retries"),
		TimeoutSecs:  v.GetInt("reasoner.timeout_secs"),
		Primary:      providerConfig(v, "primary"),
		Secondary:    providerConfig(v, "secondary"),
		Tertiary:     providerConfig(v, "tertiary"),
	}

	cfg.Prompts = PromptsConfig{
		Dir:   v.GetString("prompts.dir"),
		Watch: v.GetBool("prompts.watch"),
	}

	cfg.Queue = QueueConfig{
		PollIntervalSecs: v.GetInt("queue.poll_interval_secs"),
		MaxRetries:       v.GetInt("queue.max_retries"),
		Concurrency:      v.GetInt("queue.concurrency"),
	}

	cfg.Upload = UploadConfig{
		MaxFileSizeMB: v.GetInt64("upload.max_file_size_mb"),
		ImageRoot:     v.GetString("upload.image_root"),
	}

	if cfg.Reasoner.Mode != "single" && cfg.Reasoner.Mode != "dual" {
		return nil, fmt.Errorf("invalid reasoner mode %q: want single or dual", cfg.Reasoner.Mode)
	}

	return cfg, nil
}

func providerConfig(v *viper.Viper, tier string) ReasonerProviderConfig {
	prefix := "reasoner." + tier + "."
	return ReasonerProviderConfig{
		Provider:     v.GetString(prefix + "provider"),
		APIKey:       v.GetString(prefix + "api_key"),
		DefaultModel: v.GetString(prefix + "default_model"),
		Endpoint:     v.GetString(prefix + "endpoint"),
		Temperature:  v.GetFloat64(prefix + "temperature"),
		MaxRetries:   v.GetInt(prefix + "max_retries"),
		TimeoutSecs:  v.GetInt(prefix + "timeout_secs"),
	}
}

// splitList parses a comma-separated setting, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
