// Package config provides the configuration structure for the voice clone service.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
	"github.com/joho/godotenv"

	"github.com/book-expert/voice-clone-service/internal/core"
)

// Environment variable names.
const (
	EnvBearerToken   = "BEARER_TOKEN"
	EnvCredentialURL = "GCLOUD_CREDENTIAL_URL"
)

// Defaults applied to zero-valued fields after loading.
const (
	defaultAddress         = "0.0.0.0:9000"
	defaultReadTimeout     = 30
	defaultWriteTimeout    = 300
	defaultSpeakersDir     = "sample_voice"
	defaultSpeakerExt      = ".mp3"
	defaultRemotePrefix    = "source_wav/"
	defaultLanguage        = "en"
	defaultOutputDir       = "output_files"
	defaultOutputExt       = ".mp3"
	defaultTTSURL          = "http://127.0.0.1:8000"
	defaultTTSTimeout      = 300
	defaultTemperature     = 0.75
	defaultBucket          = "deputy_ai_hackathon"
	defaultUploadPrefix    = "generated_mp3"
	defaultCredentialDir   = "credential"
	defaultNATSSubject     = "tts.speech.requested"
	defaultTextStoreBucket = "TEXT_FILES"
	defaultBaseLogsDir     = "logs"
)

var (
	// ErrBearerTokenMissing indicates that BEARER_TOKEN is not set.
	ErrBearerTokenMissing = errors.New(EnvBearerToken + " environment variable is not set")
	errSpeakerExtInvalid  = errors.New("speaker extension must start with '.'")
	errOutputExtInvalid   = errors.New("output extension must start with '.'")
	errTemperatureRange   = errors.New("temperature must be >= 0.0")
	errTimeoutNonPositive = errors.New("timeout must be positive")
)

// ServerConfig holds the HTTP listener configuration.
type ServerConfig struct {
	Address             string `toml:"address"`
	ReadTimeoutSeconds  int    `toml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `toml:"write_timeout_seconds"`
}

// SpeakersConfig describes where reference voices live and how queries are matched.
type SpeakersConfig struct {
	Dir                        string `toml:"dir"`
	Extension                  string `toml:"extension"`
	RemotePrefix               string `toml:"remote_prefix"`
	UseFuzzyMatchOnlyIfMissing bool   `toml:"use_fuzzy_match_only_if_missing"`
	DefaultLanguage            string `toml:"default_language"`
	SkipRemoteSync             bool   `toml:"skip_remote_sync"`
}

// OutputConfig describes where generated artifacts are written before upload.
type OutputConfig struct {
	Dir            string `toml:"dir"`
	Extension      string `toml:"extension"`
	KeepLocalFiles bool   `toml:"keep_local_files"`
}

// TTSServiceConfig holds the configuration of the voice cloning synthesis server.
type TTSServiceConfig struct {
	URL            string  `toml:"url"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	Temperature    float64 `toml:"temperature"`
}

// StorageConfig holds the Google Cloud Storage configuration.
type StorageConfig struct {
	Bucket        string `toml:"bucket"`
	UploadPrefix  string `toml:"upload_prefix"`
	CredentialDir string `toml:"credential_dir"`
}

// NATSConfig holds the configuration for the optional NATS worker.
type NATSConfig struct {
	URL                   string `toml:"url"`
	Subject               string `toml:"subject"`
	TextObjectStoreBucket string `toml:"text_object_store_bucket"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
}

// Secrets holds values read from the environment rather than from project.toml.
type Secrets struct {
	BearerToken   string
	CredentialURL string
}

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig     `toml:"server"`
	Speakers SpeakersConfig   `toml:"speakers"`
	Output   OutputConfig     `toml:"output"`
	TTS      TTSServiceConfig `toml:"tts_service"`
	Storage  StorageConfig    `toml:"storage"`
	NATS     NATSConfig       `toml:"nats"`
	Paths    PathsConfig      `toml:"paths"`
}

// Load loads the configuration for the voice clone service, fills defaults and validates it.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load configuration from configurator: %w", core.ErrConfiguration, err)
	}

	cfg.ApplyDefaults()

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, validateErr
	}

	return &cfg, nil
}

// ApplyDefaults fills every zero-valued field with its default.
func (c *Config) ApplyDefaults() {
	setDefault(&c.Server.Address, defaultAddress)
	setDefaultInt(&c.Server.ReadTimeoutSeconds, defaultReadTimeout)
	setDefaultInt(&c.Server.WriteTimeoutSeconds, defaultWriteTimeout)
	setDefault(&c.Speakers.Dir, defaultSpeakersDir)
	setDefault(&c.Speakers.Extension, defaultSpeakerExt)
	setDefault(&c.Speakers.RemotePrefix, defaultRemotePrefix)
	setDefault(&c.Speakers.DefaultLanguage, defaultLanguage)
	setDefault(&c.Output.Dir, defaultOutputDir)
	setDefault(&c.Output.Extension, defaultOutputExt)
	setDefault(&c.TTS.URL, defaultTTSURL)
	setDefaultInt(&c.TTS.TimeoutSeconds, defaultTTSTimeout)

	if c.TTS.Temperature == 0 {
		c.TTS.Temperature = defaultTemperature
	}

	setDefault(&c.Storage.Bucket, defaultBucket)
	setDefault(&c.Storage.UploadPrefix, defaultUploadPrefix)
	setDefault(&c.Storage.CredentialDir, defaultCredentialDir)
	setDefault(&c.NATS.Subject, defaultNATSSubject)
	setDefault(&c.NATS.TextObjectStoreBucket, defaultTextStoreBucket)
	setDefault(&c.Paths.BaseLogsDir, defaultBaseLogsDir)
}

// Validate checks that the configuration is usable. Every failure wraps core.ErrConfiguration.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.Speakers.Extension, ".") {
		return fmt.Errorf("%w: %w: %q", core.ErrConfiguration, errSpeakerExtInvalid, c.Speakers.Extension)
	}

	if !strings.HasPrefix(c.Output.Extension, ".") {
		return fmt.Errorf("%w: %w: %q", core.ErrConfiguration, errOutputExtInvalid, c.Output.Extension)
	}

	if c.TTS.Temperature < 0 {
		return fmt.Errorf("%w: %w: got %f", core.ErrConfiguration, errTemperatureRange, c.TTS.Temperature)
	}

	if c.TTS.TimeoutSeconds <= 0 || c.Server.ReadTimeoutSeconds <= 0 || c.Server.WriteTimeoutSeconds <= 0 {
		return fmt.Errorf("%w: %w", core.ErrConfiguration, errTimeoutNonPositive)
	}

	return nil
}

// TTSTimeout returns the synthesis request timeout.
func (c *Config) TTSTimeout() time.Duration {
	return time.Duration(c.TTS.TimeoutSeconds) * time.Second
}

// Directories returns the local directories the service needs at startup.
func (c *Config) Directories() []string {
	return []string{c.Speakers.Dir, c.Output.Dir, c.Storage.CredentialDir}
}

// LoadSecrets reads an optional .env file and then the secrets from the environment.
func LoadSecrets(envFile string) (Secrets, error) {
	err := godotenv.Load(envFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Secrets{}, fmt.Errorf("%w: failed to load %s: %w", core.ErrConfiguration, envFile, err)
	}

	secrets := Secrets{
		BearerToken:   os.Getenv(EnvBearerToken),
		CredentialURL: os.Getenv(EnvCredentialURL),
	}

	if secrets.BearerToken == "" {
		return Secrets{}, fmt.Errorf("%w: %w", core.ErrConfiguration, ErrBearerTokenMissing)
	}

	return secrets, nil
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

func setDefaultInt(field *int, value int) {
	if *field == 0 {
		*field = value
	}
}
