package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"teuggahunter-service/internal/domain/repository"
)

// FileOffsetRepository stores the last-seen message timestamp per label in
// a small JSON file. Used only by the pull-mode poller; a missing file means
// no prior offsets.
type FileOffsetRepository struct {
	path string
	mu   sync.Mutex
}

// NewFileOffsetRepository creates a new file-backed offset repository
func NewFileOffsetRepository(path string) repository.OffsetRepository {
	return &FileOffsetRepository{
		path: path,
	}
}

// Get returns the stored offset for a label, or zero if none exists.
func (r *FileOffsetRepository) Get(ctx context.Context, label string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	offsets, err := r.load()
	if err != nil {
		return 0, err
	}

	return offsets[label], nil
}

// Set writes the offset for a label.
func (r *FileOffsetRepository) Set(ctx context.Context, label string, unixSeconds int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	offsets, err := r.load()
	if err != nil {
		return err
	}

	offsets[label] = unixSeconds

	data, err := json.MarshalIndent(offsets, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal offsets: %w", err)
	}

	if err := os.WriteFile(r.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write offset file: %w", err)
	}

	return nil
}

func (r *FileOffsetRepository) load() (map[string]int64, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]int64), nil
		}
		return nil, fmt.Errorf("failed to read offset file: %w", err)
	}

	offsets := make(map[string]int64)
	if err := json.Unmarshal(data, &offsets); err != nil {
		return nil, fmt.Errorf("failed to parse offset file: %w", err)
	}

	return offsets, nil
}
