package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
// Booleans are pointers so an explicit false can override a true default.
type FileConfig struct {
	Database       string `toml:"database"`
	Collection     string `toml:"collection"`
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	URI            string `toml:"uri"`
	User           string `toml:"user"`
	Password       string `toml:"password"`
	AuthSource     string `toml:"auth_source"`
	ConnectTimeout string `toml:"connect_timeout"`

	Capped     *bool  `toml:"capped"`
	CappedSize string `toml:"capped_size"`
	CappedMax  int64  `toml:"capped_max"`

	IncludeTagKey   *bool  `toml:"include_tag_key"`
	TagKey          string `toml:"tag_key"`
	IncludeTimeKey  *bool  `toml:"include_time_key"`
	TimeKey         string `toml:"time_key"`
	RemoveTagPrefix string `toml:"remove_tag_prefix"`

	ChunkLimit             string `toml:"chunk_limit"`
	DisableCollectionCheck *bool  `toml:"disable_collection_check"`

	FlushInterval    string `toml:"flush_interval"`
	FlushThreadCount int    `toml:"flush_thread_count"`
	PollInterval     string `toml:"poll_interval"`

	LogLevel    string `toml:"log_level"`
	Input       string `toml:"input"`
	SourceTag   string `toml:"source_tag"`
	Follow      *bool  `toml:"follow"`
	StateDir    string `toml:"state_dir"`
	Once        *bool  `toml:"once"`
	MetricsAddr string `toml:"metrics_addr"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.mongoship/config.toml, or "" when the home
// directory is unknown.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".mongoship", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("database", fc.Database, &cfg.Database)
	s.setString("collection", fc.Collection, &cfg.Collection)
	s.setString("host", fc.Host, &cfg.Host)
	s.setInt("port", fc.Port, &cfg.Port)
	s.setString("uri", fc.URI, &cfg.URI)
	s.setString("user", fc.User, &cfg.User)
	s.setString("password", fc.Password, &cfg.Password)
	s.setString("auth-source", fc.AuthSource, &cfg.AuthSource)

	s.setBool("capped", fc.Capped, &cfg.Capped)
	s.setString("capped-size", fc.CappedSize, &cfg.CappedSize)
	s.setInt64("capped-max", fc.CappedMax, &cfg.CappedMax)

	s.setBool("include-tag-key", fc.IncludeTagKey, &cfg.IncludeTagKey)
	s.setString("tag-key", fc.TagKey, &cfg.TagKey)
	s.setBool("include-time-key", fc.IncludeTimeKey, &cfg.IncludeTimeKey)
	s.setString("time-key", fc.TimeKey, &cfg.TimeKey)
	s.setString("remove-tag-prefix", fc.RemoveTagPrefix, &cfg.RemoveTagPrefix)

	s.setString("chunk-limit", fc.ChunkLimit, &cfg.ChunkLimit)
	s.setBool("disable-collection-check", fc.DisableCollectionCheck, &cfg.DisableCollectionCheck)

	if err := s.setDuration("connect-timeout", fc.ConnectTimeout, &cfg.ConnectTimeout); err != nil {
		return err
	}
	if err := s.setDuration("flush-interval", fc.FlushInterval, &cfg.FlushInterval); err != nil {
		return err
	}
	if err := s.setDuration("poll", fc.PollInterval, &cfg.PollInterval); err != nil {
		return err
	}
	s.setInt("flush-thread-count", fc.FlushThreadCount, &cfg.FlushThreadCount)

	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("input", fc.Input, &cfg.Input)
	s.setString("source-tag", fc.SourceTag, &cfg.SourceTag)
	s.setBool("follow", fc.Follow, &cfg.Follow)
	s.setString("state-dir", fc.StateDir, &cfg.StateDir)
	s.setBool("once", fc.Once, &cfg.Once)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
