package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Validation policies for a submission
const (
	RequireAny  = "any"
	RequireBoth = "both"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Submission SubmissionConfig `mapstructure:"submission"`
	Upload     UploadConfig     `mapstructure:"upload"`
	Signature  SignatureConfig  `mapstructure:"signature"`
	Session    SessionConfig    `mapstructure:"session"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Port int    `mapstructure:"port"`
	Env  string `mapstructure:"env"`
}

// SubmissionConfig describes the external backend that receives the signed bundle
// and the identity extraction endpoint next to it.
type SubmissionConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	UploadPath     string        `mapstructure:"upload_path"`
	ExtractPath    string        `mapstructure:"extract_path"`
	// TimeoutSeconds is read from config; Timeout is derived from it
	TimeoutSeconds int           `mapstructure:"timeout"`
	Timeout        time.Duration `mapstructure:"-"`
}

type UploadConfig struct {
	AcceptedTypes []string `mapstructure:"accepted_types"`
	MaxFileSize   int64    `mapstructure:"max_file_size"`
	InspectPDF    bool     `mapstructure:"inspect_pdf"`
	Require       string   `mapstructure:"require"` // "any" or "both"
	FieldName     string   `mapstructure:"field_name"`
	SignatureName string   `mapstructure:"signature_name"`
}

type SignatureConfig struct {
	Width     int     `mapstructure:"width"`
	Height    int     `mapstructure:"height"`
	LineWidth float64 `mapstructure:"line_width"`
	Color     string  `mapstructure:"color"` // hex, e.g. #000000
}

type SessionConfig struct {
	OutcomeTTLSeconds int           `mapstructure:"outcome_ttl"`
	OutcomeTTL        time.Duration `mapstructure:"-"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "contrato-firma")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.env", "development")

	v.SetDefault("submission.base_url", "http://localhost:3000")
	v.SetDefault("submission.upload_path", "/contratos/upload")
	v.SetDefault("submission.extract_path", "/contratos/extract/dni")
	v.SetDefault("submission.timeout", 60)

	v.SetDefault("upload.accepted_types", []string{"application/pdf"})
	v.SetDefault("upload.max_file_size", 20*1024*1024)
	v.SetDefault("upload.inspect_pdf", true)
	v.SetDefault("upload.require", RequireBoth)
	v.SetDefault("upload.field_name", "files")
	v.SetDefault("upload.signature_name", "signature.png")

	v.SetDefault("signature.width", 400)
	v.SetDefault("signature.height", 200)
	v.SetDefault("signature.line_width", 2)
	v.SetDefault("signature.color", "#000000")

	v.SetDefault("session.outcome_ttl", 3600)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("logging.level", "info")
}

func NewConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Timeouts are configured in seconds
	cfg.Submission.Timeout = time.Duration(cfg.Submission.TimeoutSeconds) * time.Second
	cfg.Session.OutcomeTTL = time.Duration(cfg.Session.OutcomeTTLSeconds) * time.Second

	if cfg.Upload.Require != RequireAny {
		cfg.Upload.Require = RequireBoth
	}

	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// UploadURL returns the full URL of the submission endpoint
func (c *Config) UploadURL() string {
	return strings.TrimRight(c.Submission.BaseURL, "/") + c.Submission.UploadPath
}
