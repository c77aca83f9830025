// Package state persists the read position of a mongoship input so a
// restarted run resumes after the last flushed record.
//
// # Usage
//
//	repo := state.NewFileRepository("/var/lib/mongoship")
//	err := mongoship.Run(ctx, cfg, src, mongoship.WithStateRepository(repo))
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package state
