package state

import (
	"github.com/bft-labs/mongoship/internal/adapters/fs"
	"github.com/bft-labs/mongoship/internal/domain"
	"github.com/bft-labs/mongoship/internal/ports"
)

// Position is the persisted read position of an input.
type Position = domain.State

// Repository handles state persistence for crash recovery.
type Repository = ports.StateRepository

// FileRepository stores the Position in status.json inside a directory,
// replacing the file atomically on every save.
type FileRepository struct {
	*fs.StateFileRepository
}

// NewFileRepository creates a FileRepository for dir.
func NewFileRepository(dir string) *FileRepository {
	return &FileRepository{StateFileRepository: fs.NewStateFileRepository(dir)}
}
