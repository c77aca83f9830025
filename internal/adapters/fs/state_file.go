package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bft-labs/mongoship/internal/domain"
	"github.com/bft-labs/mongoship/internal/ports"
)

const stateFileName = "status.json"

// StateFileRepository implements ports.StateRepository with a JSON file in
// a state directory.
type StateFileRepository struct {
	dir string
}

var _ ports.StateRepository = (*StateFileRepository)(nil)

// NewStateFileRepository creates a repository for dir.
func NewStateFileRepository(dir string) *StateFileRepository {
	return &StateFileRepository{dir: dir}
}

// Load returns the saved state, or an empty state when none was saved yet.
func (r *StateFileRepository) Load(ctx context.Context) (domain.State, error) {
	data, err := os.ReadFile(r.Path())
	if errors.Is(err, os.ErrNotExist) {
		return domain.State{}, nil
	}
	if err != nil {
		return domain.State{}, fmt.Errorf("read state: %w", err)
	}

	var state domain.State
	if err := json.Unmarshal(data, &state); err != nil {
		return domain.State{}, fmt.Errorf("decode state %s: %w", r.Path(), err)
	}
	return state, nil
}

// Save writes the state to a temporary file and renames it into place.
func (r *StateFileRepository) Save(ctx context.Context, state domain.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	tmp := r.Path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := os.Rename(tmp, r.Path()); err != nil {
		return fmt.Errorf("commit state: %w", err)
	}
	return nil
}

// Path returns the full path to the state file.
func (r *StateFileRepository) Path() string {
	return filepath.Join(r.dir, stateFileName)
}
