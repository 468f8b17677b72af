package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/ytget/phin/internal/common"
	"github.com/ytget/phin/internal/platform"
	"gopkg.in/yaml.v3"
)

// ExistingPolicy decides what happens to outputs that already exist
type ExistingPolicy string

const (
	PolicyOverwrite ExistingPolicy = "overwrite"
	PolicySkip      ExistingPolicy = "skip"
)

// Environment keys
const (
	KeyOutputRoot     = "PHIN_OUTPUT_ROOT"
	KeyDelay          = "PHIN_DELAY"
	KeyAudioFormat    = "PHIN_AUDIO_FORMAT"
	KeyAudioQuality   = "PHIN_AUDIO_QUALITY"
	KeyExisting       = "PHIN_EXISTING"
	KeyRetries        = "PHIN_RETRIES"
	KeyThumbnails     = "PHIN_THUMBNAILS"
	KeyInfoJSON       = "PHIN_INFO_JSON"
	KeyYTDLPPath      = "PHIN_YTDLP_PATH"
	KeyFFmpegPath     = "PHIN_FFMPEG_PATH"
	KeyFFprobePath    = "PHIN_FFPROBE_PATH"
	KeyLedgerPath     = "PHIN_LEDGER_PATH"
	KeyMetricsFile    = "PHIN_METRICS_FILE"
	KeyLogLevel       = "PHIN_LOG_LEVEL"
	KeyModel          = "PHIN_MODEL"
	KeyTrainerCommand = "PHIN_TRAINER_COMMAND"
	KeySampleRate     = "PHIN_SAMPLE_RATE"
)

// Default values
const (
	DefaultConfigFile   = "phin.yaml"
	DefaultEnvFile      = ".env"
	DefaultDelay        = 2 * time.Second
	DefaultAudioFormat  = "wav"
	DefaultAudioQuality = "0"
	DefaultExisting     = PolicyOverwrite
	DefaultRetries      = 0
	DefaultLedgerFile   = "phin.db"
	DefaultModel        = "phin"
	DefaultCheckpoint   = "microsoft/DialoGPT-medium"
	DefaultSampleRate   = 22050
)

// Limits
const (
	MaxDelay   = 5 * time.Minute
	MaxRetries = 5
)

// Supported audio containers
var AudioFormats = []string{"wav", "mp3", "flac", "m4a", "opus"}

// Settings holds the application configuration
type Settings struct {
	OutputRoot     string         `yaml:"output_root"`
	Delay          time.Duration  `yaml:"delay"`
	AudioFormat    string         `yaml:"audio_format"`
	AudioQuality   string         `yaml:"audio_quality"`
	Existing       ExistingPolicy `yaml:"existing"`
	Retries        int            `yaml:"retries"`
	Thumbnails     bool           `yaml:"thumbnails"`
	InfoJSON       bool           `yaml:"info_json"`
	YTDLPPath      string         `yaml:"ytdlp_path"`
	FFmpegPath     string         `yaml:"ffmpeg_path"`
	FFprobePath    string         `yaml:"ffprobe_path"`
	LedgerPath     string         `yaml:"ledger_path"`
	MetricsFile    string         `yaml:"metrics_file"`
	LogLevel       string         `yaml:"log_level"`
	Model          string         `yaml:"model"`
	Checkpoint     string         `yaml:"checkpoint"`
	TrainerCommand string         `yaml:"trainer_command"`
	SampleRate     int            `yaml:"sample_rate"`
}

// NewSettings creates settings populated with defaults
func NewSettings() *Settings {
	root, err := platform.GetDefaultOutputRoot()
	if err != nil {
		root = platform.DefaultAudioDirName
	}

	return &Settings{
		OutputRoot:   root,
		Delay:        DefaultDelay,
		AudioFormat:  DefaultAudioFormat,
		AudioQuality: DefaultAudioQuality,
		Existing:     DefaultExisting,
		Retries:      DefaultRetries,
		YTDLPPath:    platform.YTDLPCommand,
		FFmpegPath:   platform.FFmpegCommand,
		FFprobePath:  platform.FFprobeCommand,
		LedgerPath:   DefaultLedgerFile,
		LogLevel:     common.DefaultLogLevel,
		Model:        DefaultModel,
		Checkpoint:   DefaultCheckpoint,
		SampleRate:   DefaultSampleRate,
	}
}

// Load builds the settings from defaults, the YAML file at path (optional
// when path is DefaultConfigFile), the .env file and the environment.
func Load(path string) (*Settings, error) {
	s := NewSettings()

	if path == "" {
		path = DefaultConfigFile
	}
	if err := s.loadFile(path); err != nil {
		if !(errors.Is(err, os.ErrNotExist) && path == DefaultConfigFile) {
			return nil, err
		}
	}

	if err := godotenv.Load(DefaultEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", DefaultEnvFile, err)
	}

	if err := s.applyEnv(os.Getenv); err != nil {
		return nil, err
	}

	return s, s.Validate()
}

func (s *Settings) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides settings from environment variables.
func (s *Settings) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	str(KeyOutputRoot, &s.OutputRoot)
	str(KeyAudioFormat, &s.AudioFormat)
	str(KeyAudioQuality, &s.AudioQuality)
	str(KeyYTDLPPath, &s.YTDLPPath)
	str(KeyFFmpegPath, &s.FFmpegPath)
	str(KeyFFprobePath, &s.FFprobePath)
	str(KeyLedgerPath, &s.LedgerPath)
	str(KeyMetricsFile, &s.MetricsFile)
	str(KeyLogLevel, &s.LogLevel)
	str(KeyModel, &s.Model)
	str(KeyTrainerCommand, &s.TrainerCommand)

	if v := getenv(KeyExisting); v != "" {
		s.Existing = ExistingPolicy(strings.ToLower(strings.TrimSpace(v)))
	}
	if v := getenv(KeyDelay); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", KeyDelay, v, err)
		}
		s.SetDelay(d)
	}
	if v := getenv(KeyRetries); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", KeyRetries, v, err)
		}
		s.SetRetries(n)
	}
	for key, dst := range map[string]*bool{
		KeyThumbnails: &s.Thumbnails,
		KeyInfoJSON:   &s.InfoJSON,
	} {
		if v := getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", key, v, err)
			}
			*dst = b
		}
	}
	if v := getenv(KeySampleRate); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", KeySampleRate, v, err)
		}
		s.SampleRate = n
	}
	return nil
}

// Validate checks values that cannot be clamped into range.
func (s *Settings) Validate() error {
	if s.OutputRoot == "" {
		return fmt.Errorf("output root must not be empty")
	}
	s.AudioFormat = strings.ToLower(strings.TrimSpace(s.AudioFormat))
	if !isAudioFormat(s.AudioFormat) {
		return fmt.Errorf("unsupported audio format %q (want one of %s)",
			s.AudioFormat, strings.Join(AudioFormats, ", "))
	}
	if s.Existing != PolicyOverwrite && s.Existing != PolicySkip {
		return fmt.Errorf("unknown policy for existing files %q", s.Existing)
	}
	if s.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", s.SampleRate)
	}
	if err := common.SetLogLevel(s.LogLevel); err != nil {
		return err
	}
	s.SetDelay(s.Delay)
	s.SetRetries(s.Retries)
	return nil
}

// GetOutputRoot returns the configured output root directory
func (s *Settings) GetOutputRoot() string {
	return s.OutputRoot
}

// SetOutputRoot sets the output root directory
func (s *Settings) SetOutputRoot(dir string) {
	if dir != "" {
		s.OutputRoot = dir
	}
}

// GetDelay returns the pause between two downloader invocations
func (s *Settings) GetDelay() time.Duration {
	return s.Delay
}

// SetDelay sets the pause between downloader invocations, clamped to [0, MaxDelay]
func (s *Settings) SetDelay(d time.Duration) {
	if d < 0 {
		d = 0
	}
	if d > MaxDelay {
		d = MaxDelay
	}
	s.Delay = d
}

// GetRetries returns the number of extra attempts per entry
func (s *Settings) GetRetries() int {
	return s.Retries
}

// SetRetries sets the number of extra attempts, clamped to [0, MaxRetries]
func (s *Settings) SetRetries(n int) {
	if n < 0 {
		n = 0
	}
	if n > MaxRetries {
		n = MaxRetries
	}
	s.Retries = n
}

// GetAudioFormat returns the audio container downloads are extracted to
func (s *Settings) GetAudioFormat() string {
	return s.AudioFormat
}

// SetAudioFormat sets the audio container; unknown formats fall back to the default
func (s *Settings) SetAudioFormat(format string) {
	format = strings.ToLower(strings.TrimSpace(format))
	if !isAudioFormat(format) {
		format = DefaultAudioFormat
	}
	s.AudioFormat = format
}

// SkipExisting reports whether existing outputs are kept
func (s *Settings) SkipExisting() bool {
	return s.Existing == PolicySkip
}

// SetSkipExisting switches between the skip and overwrite policies
func (s *Settings) SetSkipExisting(skip bool) {
	if skip {
		s.Existing = PolicySkip
	} else {
		s.Existing = PolicyOverwrite
	}
}

func isAudioFormat(format string) bool {
	for _, f := range AudioFormats {
		if f == format {
			return true
		}
	}
	return false
}
