package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/bft-labs/mongoship/internal/domain"
	"github.com/bft-labs/mongoship/pkg/mongoship"
)

// DefaultChunkLimit is the configured chunk limit before negotiation.
const DefaultChunkLimit = "8MiB"

// Config holds CLI configuration for mongoship. Sizes are kept as the
// strings the user wrote and parsed by Validate.
type Config struct {
	Database   string
	Collection string

	Host           string
	Port           int
	URI            string
	User           string
	Password       string
	AuthSource     string
	ConnectTimeout time.Duration

	Capped     bool
	CappedSize string
	CappedMax  int64

	IncludeTagKey   bool
	TagKey          string
	IncludeTimeKey  bool
	TimeKey         string
	RemoveTagPrefix string

	ChunkLimit             string
	DisableCollectionCheck bool

	FlushInterval    time.Duration
	FlushThreadCount int
	PollInterval     time.Duration

	LogLevel    string
	Input       string
	SourceTag   string
	Follow      bool
	StateDir    string
	Once        bool
	MetricsAddr string

	// Parsed by Validate.
	cappedSizeBytes int64
	chunkLimitBytes int
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Host:             mongoship.DefaultHost,
		Port:             mongoship.DefaultPort,
		ConnectTimeout:   10 * time.Second,
		TagKey:           mongoship.DefaultTagKey,
		IncludeTimeKey:   true,
		TimeKey:          mongoship.DefaultTimeKey,
		ChunkLimit:       DefaultChunkLimit,
		FlushInterval:    5 * time.Second,
		FlushThreadCount: 1,
		PollInterval:     500 * time.Millisecond,
		LogLevel:         "info",
		Input:            "-",
		SourceTag:        "mongoship",
	}
}

// Validate checks the configuration and sets derived defaults. Errors wrap
// domain.ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.Database == "" {
		return domain.InvalidConfigf("database is required")
	}
	if c.Collection == "" {
		return domain.InvalidConfigf("collection is required")
	}
	if c.URI == "" && (c.Port <= 0 || c.Port > 65535) {
		return domain.InvalidConfigf("port %d out of range", c.Port)
	}

	if c.Capped {
		if strings.TrimSpace(c.CappedSize) == "" {
			return domain.InvalidConfigf("capped_size is required when capped is set")
		}
		n, err := ParseSize(c.CappedSize)
		if err != nil {
			return domain.InvalidConfigf("capped_size: %v", err)
		}
		c.cappedSizeBytes = int64(n)
	}
	if c.CappedMax < 0 {
		return domain.InvalidConfigf("capped_max must not be negative")
	}

	limit, err := ParseSize(c.ChunkLimit)
	if err != nil {
		return domain.InvalidConfigf("chunk_limit: %v", err)
	}
	c.chunkLimitBytes = int(limit)

	if c.FlushInterval <= 0 {
		return domain.InvalidConfigf("flush interval must be positive")
	}
	if c.FlushThreadCount <= 0 {
		return domain.InvalidConfigf("flush thread count must be positive")
	}
	if c.PollInterval <= 0 {
		return domain.InvalidConfigf("poll interval must be positive")
	}

	if c.Input == "" {
		c.Input = "-"
	}
	if c.StateDir == "" {
		c.StateDir = defaultStateDir()
	}
	return nil
}

// SinkConfig converts a validated Config to the library configuration.
func (c *Config) SinkConfig() mongoship.Config {
	return mongoship.Config{
		Database:               c.Database,
		Collection:             c.Collection,
		Host:                   c.Host,
		Port:                   c.Port,
		URI:                    c.URI,
		User:                   c.User,
		Password:               c.Password,
		AuthSource:             c.AuthSource,
		ConnectTimeout:         c.ConnectTimeout,
		Capped:                 c.Capped,
		CappedSize:             c.cappedSizeBytes,
		CappedMax:              c.CappedMax,
		IncludeTagKey:          c.IncludeTagKey,
		TagKey:                 c.TagKey,
		IncludeTimeKey:         c.IncludeTimeKey,
		TimeKey:                c.TimeKey,
		RemoveTagPrefix:        c.RemoveTagPrefix,
		ChunkLimit:             c.chunkLimitBytes,
		DisableCollectionCheck: c.DisableCollectionCheck,
		FlushInterval:          c.FlushInterval,
		FlushThreadCount:       c.FlushThreadCount,
		PollInterval:           c.PollInterval,
		StateDir:               c.StateDir,
		Once:                   c.Once,
	}
}

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	if c.Password != "" {
		c.Password = "*****"
	}
	return c
}

// ParseSize parses a byte size such as "100m", "8MiB" or "1048576".
// Single-letter units are binary, so "1k" is 1024 bytes.
func ParseSize(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}
	if n := len(s); n > 1 && strings.ContainsRune("kKmMgGtT", rune(s[n-1])) {
		if _, err := strconv.ParseFloat(strings.TrimSpace(s[:n-1]), 64); err == nil {
			s += "i"
		}
	}
	v, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	if v == 0 {
		return 0, fmt.Errorf("size must be positive")
	}
	return v, nil
}

func defaultStateDir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".mongoship", "state")
	}
	return ".mongoship-state"
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setInt64(flag string, value int64, dst *int64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses an environment value. Non-positive values are ignored.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	s.setInt(flag, i, dst)
	return nil
}

func (s *configSetter) setInt64FromString(flag, value string, dst *int64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	s.setInt64(flag, i, dst)
	return nil
}

// setBoolFromString accepts "true" and "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
