// Package domain contains the core domain entities and value objects for mongoship.
//
// This package represents the innermost layer of the Clean Architecture. It has
// no dependencies on infrastructure concerns (MongoDB, file system, logging) and
// contains only pure business logic.
//
// # Entities
//
//   - [Value]: A closed tagged variant (null, bool, number, text, bytes, time, map, array)
//   - [Record]: An ordered mapping of [Field] pairs
//   - [Entry] and [Batch]: Timestamped records decoded from one chunk
//   - [Namer]: Derives collection names from record tags
//   - [CreationArguments]: How missing collections are created (capped or not)
//   - [State]: Persistent input position for crash recovery
//
// # Errors
//
// Sentinel errors ([ErrMalformedBatch], [ErrEncoding], [ErrBackendUnavailable],
// [ErrInvalidConfig]) classify failures and are checked with errors.Is.
package domain
