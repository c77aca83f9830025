// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// In Clean Architecture / Hexagonal Architecture, ports are the boundaries
// between the application core and the outside world. They define what the
// application needs from external systems without specifying how those needs
// are fulfilled.
//
// # Port Interfaces
//
//   - [Backend]: Collection lookup, creation and server version probing
//   - [Collection]: Bulk insertion into one resolved collection
//   - [RecordSource]: Reads input events to be buffered and flushed
//   - [StateRepository]: Persists and loads the input position
//   - [Logger]: Structured logging abstraction
//
// # Usage
//
// The application layer (internal/app) and the core packages depend only on
// these interfaces. Infrastructure adapters (internal/adapters) implement them
// with concrete implementations (MongoDB, file system, zerolog, etc.).
package ports
