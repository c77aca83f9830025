package cliconfig

import "os"

// EnvPrefix prefixes every environment variable read by ApplyEnvConfig.
const EnvPrefix = "MONGOSHIP_"

// ApplyEnvConfig applies MONGOSHIP_* environment variables to cfg, skipping
// values whose flag was set on the command line.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)
	env := func(name string) string { return os.Getenv(EnvPrefix + name) }

	s.setString("database", env("DATABASE"), &cfg.Database)
	s.setString("collection", env("COLLECTION"), &cfg.Collection)
	s.setString("host", env("HOST"), &cfg.Host)
	if err := s.setIntFromString("port", env("PORT"), &cfg.Port); err != nil {
		return err
	}
	s.setString("uri", env("URI"), &cfg.URI)
	s.setString("user", env("USER"), &cfg.User)
	s.setString("password", env("PASSWORD"), &cfg.Password)
	s.setString("auth-source", env("AUTH_SOURCE"), &cfg.AuthSource)
	if err := s.setDuration("connect-timeout", env("CONNECT_TIMEOUT"), &cfg.ConnectTimeout); err != nil {
		return err
	}

	s.setBoolFromString("capped", env("CAPPED"), &cfg.Capped)
	s.setString("capped-size", env("CAPPED_SIZE"), &cfg.CappedSize)
	if err := s.setInt64FromString("capped-max", env("CAPPED_MAX"), &cfg.CappedMax); err != nil {
		return err
	}

	s.setBoolFromString("include-tag-key", env("INCLUDE_TAG_KEY"), &cfg.IncludeTagKey)
	s.setString("tag-key", env("TAG_KEY"), &cfg.TagKey)
	s.setBoolFromString("include-time-key", env("INCLUDE_TIME_KEY"), &cfg.IncludeTimeKey)
	s.setString("time-key", env("TIME_KEY"), &cfg.TimeKey)
	s.setString("remove-tag-prefix", env("REMOVE_TAG_PREFIX"), &cfg.RemoveTagPrefix)

	s.setString("chunk-limit", env("CHUNK_LIMIT"), &cfg.ChunkLimit)
	s.setBoolFromString("disable-collection-check", env("DISABLE_COLLECTION_CHECK"), &cfg.DisableCollectionCheck)

	if err := s.setDuration("flush-interval", env("FLUSH_INTERVAL"), &cfg.FlushInterval); err != nil {
		return err
	}
	if err := s.setIntFromString("flush-thread-count", env("FLUSH_THREAD_COUNT"), &cfg.FlushThreadCount); err != nil {
		return err
	}
	if err := s.setDuration("poll", env("POLL_INTERVAL"), &cfg.PollInterval); err != nil {
		return err
	}

	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)
	s.setString("input", env("INPUT"), &cfg.Input)
	s.setString("source-tag", env("SOURCE_TAG"), &cfg.SourceTag)
	s.setBoolFromString("follow", env("FOLLOW"), &cfg.Follow)
	s.setString("state-dir", env("STATE_DIR"), &cfg.StateDir)
	s.setBoolFromString("once", env("ONCE"), &cfg.Once)
	s.setString("metrics-addr", env("METRICS_ADDR"), &cfg.MetricsAddr)

	return nil
}
