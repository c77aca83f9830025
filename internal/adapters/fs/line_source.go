// Package fs provides file-backed adapters: a JSON lines record source and
// the state file repository.
package fs

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/valyala/fastjson"

	"github.com/bft-labs/mongoship/internal/domain"
	"github.com/bft-labs/mongoship/internal/ports"
)

// StdinPath selects standard input as the line source.
const StdinPath = "-"

// DefaultWaitTimeout bounds how long Next waits for new data in follow mode.
const DefaultWaitTimeout = time.Second

// LineSourceConfig configures a LineSource.
type LineSourceConfig struct {
	// Path is the input file, or StdinPath.
	Path string

	// Tag is attached to every event.
	Tag string

	// Follow keeps reading as the file grows.
	Follow bool

	// WaitTimeout bounds a single wait for new data in follow mode.
	WaitTimeout time.Duration

	// Now stamps events; time.Now when nil.
	Now func() time.Time
}

// LineSource reads newline-delimited JSON objects. Field order is kept as
// written. Lines that are not JSON objects are logged and skipped.
type LineSource struct {
	cfg    LineSourceConfig
	logger ports.Logger

	file    *os.File
	reader  *bufio.Reader
	watcher *fsnotify.Watcher
	parser  fastjson.Parser

	offset  int64
	partial []byte
}

var _ ports.RecordSource = (*LineSource)(nil)

// NewLineSource creates a source. Call Open before Next.
func NewLineSource(cfg LineSourceConfig, logger ports.Logger) *LineSource {
	if cfg.Path == "" {
		cfg.Path = StdinPath
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = DefaultWaitTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &LineSource{cfg: cfg, logger: logger}
}

// Open opens the input and seeks to the saved offset when the state refers
// to the same file.
func (s *LineSource) Open(ctx context.Context, state *domain.State) error {
	if s.cfg.Path == StdinPath {
		s.file = os.Stdin
		s.reader = bufio.NewReader(s.file)
		return nil
	}

	f, err := os.Open(s.cfg.Path)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	s.file = f

	if state != nil && state.InputPath == s.cfg.Path && state.Offset > 0 {
		if _, err := f.Seek(state.Offset, io.SeekStart); err != nil {
			f.Close()
			return fmt.Errorf("seek input to %d: %w", state.Offset, err)
		}
		s.offset = state.Offset
		s.logger.Info("resuming input",
			ports.String("path", s.cfg.Path),
			ports.Int64("offset", s.offset),
		)
	}
	s.reader = bufio.NewReader(f)

	if s.cfg.Follow {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			f.Close()
			return fmt.Errorf("create watcher: %w", err)
		}
		if err := w.Add(s.cfg.Path); err != nil {
			w.Close()
			f.Close()
			return fmt.Errorf("watch input: %w", err)
		}
		s.watcher = w
	}
	return nil
}

// Next returns the next event. It returns io.EOF when no complete line is
// available; in follow mode it first waits up to WaitTimeout for a write.
func (s *LineSource) Next(ctx context.Context) (domain.Event, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.Event{}, err
		}

		line, err := s.reader.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return domain.Event{}, fmt.Errorf("read input: %w", err)
		}
		if errors.Is(err, io.EOF) {
			s.partial = append(s.partial, line...)
			if s.cfg.Follow {
				if werr := s.wait(ctx); werr != nil {
					return domain.Event{}, werr
				}
				continue
			}
			if len(s.partial) == 0 {
				return domain.Event{}, io.EOF
			}
			// Last line without a trailing newline.
			line, s.partial = s.partial, nil
		} else if len(s.partial) > 0 {
			line = append(s.partial, line...)
			s.partial = nil
		}
		s.offset += int64(len(line))

		rec, ok := s.parse(line)
		if !ok {
			continue
		}
		return domain.Event{Tag: s.cfg.Tag, Time: s.cfg.Now(), Record: rec}, nil
	}
}

func (s *LineSource) parse(line []byte) (domain.Record, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return domain.Record{}, false
	}
	v, err := s.parser.ParseBytes(line)
	if err != nil {
		s.logger.Warn("skipping invalid json line",
			ports.Int64("offset", s.offset),
			ports.Err(err),
		)
		return domain.Record{}, false
	}
	obj, err := v.Object()
	if err != nil {
		s.logger.Warn("skipping json line that is not an object",
			ports.Int64("offset", s.offset),
			ports.String("type", v.Type().String()),
		)
		return domain.Record{}, false
	}
	return objectRecord(obj), true
}

// wait blocks until the input is written to, ctx ends or WaitTimeout
// passes. A nil return means the caller should read again.
func (s *LineSource) wait(ctx context.Context) error {
	if s.truncated() {
		return nil
	}

	t := time.NewTimer(s.cfg.WaitTimeout)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return io.EOF
	case ev, ok := <-s.watcher.Events:
		if !ok {
			return io.EOF
		}
		if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return io.EOF
		}
		return nil
	case err, ok := <-s.watcher.Errors:
		if ok {
			s.logger.Warn("input watcher error", ports.Err(err))
		}
		return io.EOF
	}
}

// truncated rewinds to the start when the file shrank below the offset.
func (s *LineSource) truncated() bool {
	fi, err := s.file.Stat()
	if err != nil || fi.Size() >= s.offset+int64(len(s.partial)) {
		return false
	}
	s.logger.Info("input truncated, reading from start",
		ports.String("path", s.cfg.Path),
		ports.Int64("size", fi.Size()),
		ports.Int64("offset", s.offset),
	)
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return false
	}
	s.reader.Reset(s.file)
	s.offset = 0
	s.partial = nil
	return true
}

// Position returns the path and the offset just past the last consumed line.
func (s *LineSource) Position() (string, int64) {
	return s.cfg.Path, s.offset
}

// Close releases the file and the watcher.
func (s *LineSource) Close() error {
	var errs []error
	if s.watcher != nil {
		errs = append(errs, s.watcher.Close())
	}
	if s.file != nil && s.file != os.Stdin {
		errs = append(errs, s.file.Close())
	}
	return errors.Join(errs...)
}

func objectRecord(obj *fastjson.Object) domain.Record {
	fields := make([]domain.Field, 0, obj.Len())
	obj.Visit(func(key []byte, v *fastjson.Value) {
		fields = append(fields, domain.F(string(key), jsonValue(v)))
	})
	return domain.NewRecord(fields...)
}

func jsonValue(v *fastjson.Value) domain.Value {
	switch v.Type() {
	case fastjson.TypeObject:
		obj, _ := v.Object()
		return domain.Map(objectRecord(obj))
	case fastjson.TypeArray:
		arr, _ := v.Array()
		out := make([]domain.Value, len(arr))
		for i, e := range arr {
			out[i] = jsonValue(e)
		}
		return domain.Array(out...)
	case fastjson.TypeString:
		return domain.String(string(v.GetStringBytes()))
	case fastjson.TypeNumber:
		if i, err := v.Int64(); err == nil {
			return domain.Int(i)
		}
		if u, err := v.Uint64(); err == nil {
			return domain.UintValue(u)
		}
		f, _ := v.Float64()
		return domain.Float(f)
	case fastjson.TypeTrue:
		return domain.Bool(true)
	case fastjson.TypeFalse:
		return domain.Bool(false)
	default:
		return domain.Null()
	}
}
