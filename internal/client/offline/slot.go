package offline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cmlabs-hris/crew-attendance/internal/pkg/storage"
)

// QueueKey is where the serialized queue lives.
const QueueKey = "offline/queue.json"

// Slot is a single durable string-keyed value.
type Slot interface {
	// Load returns nil, nil when nothing was stored yet
	Load(ctx context.Context) ([]byte, error)
	Store(ctx context.Context, data []byte) error
}

// StorageSlot keeps the slot in a FileStorage.
type StorageSlot struct {
	storage storage.FileStorage
	key     string
}

func NewStorageSlot(fs storage.FileStorage) *StorageSlot {
	return &StorageSlot{storage: fs, key: QueueKey}
}

func (s *StorageSlot) Load(ctx context.Context) ([]byte, error) {
	rc, err := s.storage.Download(ctx, s.key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load %s: %w", s.key, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.key, err)
	}
	return data, nil
}

func (s *StorageSlot) Store(ctx context.Context, data []byte) error {
	if _, err := s.storage.Upload(ctx, bytes.NewReader(data), s.key, "application/json"); err != nil {
		return fmt.Errorf("failed to store %s: %w", s.key, err)
	}
	return nil
}
