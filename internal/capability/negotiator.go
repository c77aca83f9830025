// Package capability derives the chunk size limit from the server version.
package capability

import (
	"context"
	"fmt"
	"sync"

	"github.com/Masterminds/semver/v3"

	"github.com/bft-labs/mongoship/internal/ports"
)

const (
	// DefaultThreshold is the first server version that gets the modern ceiling.
	DefaultThreshold = "1.8.0"

	// LegacyCeiling applies to older or unknown servers.
	LegacyCeiling = 2 * 1024 * 1024

	// ModernCeiling applies to servers at or above the threshold.
	ModernCeiling = 8 * 1024 * 1024
)

// VersionProber reports the server version string.
type VersionProber interface {
	ServerVersion(ctx context.Context) (string, error)
}

// Negotiator computes the chunk limit once per process.
type Negotiator struct {
	// Threshold, Legacy and Modern override the package defaults when set.
	Threshold string
	Legacy    int
	Modern    int

	prober     VersionProber
	configured int
	logger     ports.Logger

	once  sync.Once
	limit int
}

// New creates a negotiator for the configured chunk limit.
func New(prober VersionProber, configured int, logger ports.Logger) *Negotiator {
	return &Negotiator{
		Threshold:  DefaultThreshold,
		Legacy:     LegacyCeiling,
		Modern:     ModernCeiling,
		prober:     prober,
		configured: configured,
		logger:     logger,
	}
}

// ChunkLimit returns the effective chunk limit. The server is probed on the
// first call only; the result never changes afterwards. It never fails.
func (n *Negotiator) ChunkLimit(ctx context.Context) int {
	n.once.Do(func() {
		n.limit = n.derive(ctx)
	})
	return n.limit
}

func (n *Negotiator) derive(ctx context.Context) int {
	ceiling, err := n.ceiling(ctx)
	if err != nil {
		n.logger.Warn("server version probe failed, using legacy chunk limit",
			ports.Err(err),
			ports.Int("ceiling", n.Legacy),
		)
		ceiling = n.Legacy
	}

	if n.configured > ceiling {
		n.logger.Warn("lowering chunk limit to server ceiling",
			ports.Int("configured", n.configured),
			ports.Int("ceiling", ceiling),
		)
		return ceiling
	}
	return n.configured
}

func (n *Negotiator) ceiling(ctx context.Context) (int, error) {
	threshold, err := semver.NewVersion(n.Threshold)
	if err != nil {
		return 0, fmt.Errorf("parse threshold %q: %w", n.Threshold, err)
	}
	raw, err := n.prober.ServerVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("probe server version: %w", err)
	}
	v, err := semver.NewVersion(raw)
	if err != nil {
		return 0, fmt.Errorf("parse server version %q: %w", raw, err)
	}
	if v.LessThan(threshold) {
		return n.Legacy, nil
	}
	return n.Modern, nil
}
