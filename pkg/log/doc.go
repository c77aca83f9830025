// Package log provides the logging abstraction used by mongoship.
//
// Logger is satisfied by the zerolog adapter returned from NewConsole and
// NewZerolog, by NewNoop, or by any type with Debug, Info, Warn and Error
// methods taking Field values:
//
//	logger, err := log.NewConsole(os.Stderr, "debug")
//	sink, err := mongoship.New(cfg, mongoship.WithLogger(logger))
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package log
