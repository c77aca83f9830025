package state

import (
	"context"
	"path/filepath"
	"testing"
)

func TestFileRepositoryRoundTrip(t *testing.T) {
	dir := t.TempDir()
	repo := NewFileRepository(dir)
	ctx := context.Background()

	empty, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if empty.Offset != 0 || empty.InputPath != "" {
		t.Errorf("Load() = %+v, want empty", empty)
	}

	pos := Position{InputPath: "/var/log/app.jsonl"}
	pos.UpdateAfterFlush(128, 3)
	if err := repo.Save(ctx, pos); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.InputPath != pos.InputPath || got.Offset != 128 || got.Records != 3 {
		t.Errorf("Load() = %+v, want %+v", got, pos)
	}
	if repo.Path() != filepath.Join(dir, "status.json") {
		t.Errorf("Path() = %q", repo.Path())
	}

	var _ Repository = repo
}
