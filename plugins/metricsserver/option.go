package metricsserver

import "github.com/bft-labs/mongoship/pkg/mongoship"

// WithMetricsServer returns a mongoship Option that serves metrics on
// cfg.Addr.
//
// Usage:
//
//	sink, err := mongoship.New(cfg,
//	    metricsserver.WithMetricsServer(metricsserver.Config{Addr: ":9090"}),
//	)
func WithMetricsServer(cfg Config) mongoship.Option {
	return mongoship.WithPlugin(New(cfg))
}
