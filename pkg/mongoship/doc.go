// Package mongoship writes timestamped records into MongoDB.
//
// Records are grouped into chunks per tag. Each chunk is decoded, routed to
// a collection derived from its tag (created on first use, optionally
// capped) and inserted in one round-trip. When the server rejects a record
// for its content, every record of the chunk is sanitized and the insert
// is retried once.
//
// # Basic Usage
//
//	cfg := mongoship.DefaultConfig()
//	cfg.Database = "logs"
//	cfg.Collection = "events"
//
//	sink, err := mongoship.New(cfg, mongoship.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := sink.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer sink.Shutdown(context.Background())
//
//	chunk, _ := sink.Format("app.web", time.Now(), record)
//	if err := sink.Write(ctx, "app.web", chunk); err != nil {
//	    log.Print(err)
//	}
//
// # Shipping a stream
//
// [Run] reads events from a [RecordSource], buffers them into chunks no
// larger than [Sink.ChunkLimit] and flushes them on an interval, retrying
// failed chunks with exponential backoff. The read position is persisted
// after every complete flush.
//
//	src := mongoship.NewLineSource(mongoship.LineSourceConfig{Path: "app.jsonl", Tag: "app"}, nil)
//	err := mongoship.Run(ctx, cfg, src)
//
// # Lifecycle States
//
// A Sink can be in one of five states: [StateStopped], [StateStarting],
// [StateRunning], [StateStopping], or [StateCrashed]. Use [Sink.Status] to
// query the current state and [WithEventHandler] to be notified of changes.
//
// # Dependency Injection
//
// For testing, inject a storage backend and a logger:
//
//	sink, err := mongoship.New(cfg,
//	    mongoship.WithBackend(fakeBackend),
//	    mongoship.WithLogger(customLogger),
//	)
package mongoship
