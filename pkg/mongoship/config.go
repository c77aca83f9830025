package mongoship

import (
	"time"

	"github.com/bft-labs/mongoship/internal/app"
	"github.com/bft-labs/mongoship/internal/capability"
	"github.com/bft-labs/mongoship/internal/codec"
	"github.com/bft-labs/mongoship/internal/domain"
)

// Defaults applied by Config.SetDefaults.
const (
	DefaultHost           = "localhost"
	DefaultPort           = 27017
	DefaultTagKey         = "tag"
	DefaultTimeKey        = codec.DefaultTimeKey
	DefaultChunkLimit     = capability.ModernCeiling
	DefaultConnectTimeout = 10 * time.Second
)

// Config configures a Sink.
type Config struct {
	// Database receives every collection. Required.
	Database string

	// Collection is used for records whose tag normalizes to an empty name.
	// Required.
	Collection string

	// Connection. URI overrides Host and Port when set.
	Host           string
	Port           int
	URI            string
	User           string
	Password       string
	AuthSource     string
	ConnectTimeout time.Duration

	// Capped makes missing collections capped at CappedSize bytes and, when
	// positive, CappedMax documents.
	Capped     bool
	CappedSize int64
	CappedMax  int64

	// IncludeTagKey stores the record tag under TagKey.
	IncludeTagKey bool
	TagKey        string

	// IncludeTimeKey stores the event time under TimeKey as a BSON date.
	IncludeTimeKey bool
	TimeKey        string

	// RemoveTagPrefix is stripped from tags before they become collection
	// names.
	RemoveTagPrefix string

	// ChunkLimit is the requested chunk size in bytes. The effective limit
	// is capped by what the server supports.
	ChunkLimit int

	// DisableCollectionCheck skips the capped-mode check on existing
	// collections.
	DisableCollectionCheck bool

	// Agent settings used by Run.
	FlushInterval    time.Duration
	FlushThreadCount int
	PollInterval     time.Duration
	StateDir         string
	Once             bool
}

// DefaultConfig returns a Config with default values. Database and
// Collection still need to be set.
func DefaultConfig() Config {
	c := Config{IncludeTimeKey: true}
	c.SetDefaults()
	return c
}

// SetDefaults fills zero fields with their defaults.
func (c *Config) SetDefaults() {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.TagKey == "" {
		c.TagKey = DefaultTagKey
	}
	if c.TimeKey == "" {
		c.TimeKey = DefaultTimeKey
	}
	if c.ChunkLimit == 0 {
		c.ChunkLimit = DefaultChunkLimit
	}
	if c.FlushInterval == 0 {
		c.FlushInterval = app.DefaultFlushInterval
	}
	if c.FlushThreadCount == 0 {
		c.FlushThreadCount = app.DefaultFlushThreads
	}
	if c.PollInterval == 0 {
		c.PollInterval = app.DefaultPollInterval
	}
}

// Validate reports configuration errors wrapping ErrInvalidConfig.
func (c Config) Validate() error {
	if c.Database == "" {
		return domain.InvalidConfigf("database is required")
	}
	if c.Collection == "" {
		return domain.InvalidConfigf("collection is required")
	}
	if c.Capped && c.CappedSize <= 0 {
		return domain.InvalidConfigf("capped_size is required when capped is set")
	}
	if c.CappedMax < 0 {
		return domain.InvalidConfigf("capped_max must not be negative")
	}
	if c.ChunkLimit < 0 {
		return domain.InvalidConfigf("chunk_limit must not be negative")
	}
	if c.FlushThreadCount < 0 {
		return domain.InvalidConfigf("flush_thread_count must not be negative")
	}
	return nil
}

func (c Config) creationArguments() domain.CreationArguments {
	if !c.Capped {
		return domain.CreationArguments{}
	}
	return domain.CreationArguments{
		Capped:     true,
		Size:       c.CappedSize,
		MaxEntries: c.CappedMax,
	}
}

func (c Config) agentConfig() app.AgentConfig {
	return app.AgentConfig{
		FlushInterval: c.FlushInterval,
		FlushThreads:  c.FlushThreadCount,
		PollInterval:  c.PollInterval,
		Once:          c.Once,
		// A one-shot run must end even when the server stays down.
		RetryMaxElapsed: onceRetryBudget(c.Once),
	}
}

func onceRetryBudget(once bool) time.Duration {
	if once {
		return app.DefaultRetryMaxElapsed
	}
	return 0
}
