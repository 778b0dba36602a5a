package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// DiskStore persists history to disk, one JSON file per event.
type DiskStore struct {
	dir      string
	logger   *slog.Logger
	maxCount int
	events   []Event // protected by mu
	mu       sync.Mutex
}

// NewDiskStore creates a new disk-backed store.
// The directory is created if it doesn't exist, and existing events are loaded.
func NewDiskStore(dir string, maxCount int, logger *slog.Logger) (*DiskStore, error) {
	s := &DiskStore{
		dir:      dir,
		logger:   logger,
		maxCount: maxCount,
		events:   make([]Event, 0),
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	events, err := s.load()
	if err != nil {
		// Continue without existing data
		logger.Warn("failed to load existing history", "error", err)
	} else {
		s.events = events
	}

	return s, nil
}

// Events returns a copy of all events, most recent first.
func (s *DiskStore) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]Event, len(s.events))
	copy(result, s.events)
	return result
}

// Save writes the event to disk and updates the in-memory view. Once more
// than maxCount events are held, the oldest is removed from disk as well.
func (s *DiskStore) Save(e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.StartedAt.IsZero() {
		return errors.New("cannot save event without start time")
	}
	if e.ID == "" {
		e.ID = e.CalculateID()
	}

	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	path := filepath.Join(s.dir, fileName(e))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write event file: %w", err)
	}

	s.events = append([]Event{e}, s.events...)

	if s.maxCount > 0 && len(s.events) > s.maxCount {
		for _, old := range s.events[s.maxCount:] {
			if err := os.Remove(filepath.Join(s.dir, fileName(old))); err != nil && !errors.Is(err, os.ErrNotExist) {
				s.logger.Warn("failed to remove old event file", "id", old.ID, "error", err)
			}
		}
		s.events = s.events[:s.maxCount]
	}

	s.logger.Debug("saved event to disk", "path", path)
	return nil
}

// Reload re-reads all events from disk.
func (s *DiskStore) Reload() error {
	events, err := s.load()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = events
	return nil
}

// fileName is 2006-01-02T15-04-05-<id>.json so files sort by time.
func fileName(e Event) string {
	return e.StartedAt.UTC().Format("2006-01-02T15-04-05") + "-" + e.ID + ".json"
}

func (s *DiskStore) load() ([]Event, error) {
	files, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read state directory: %w", err)
	}

	events := make([]Event, 0, len(files))
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}

		path := filepath.Join(s.dir, file.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("failed to read event file", "file", path, "error", err)
			continue
		}

		var e Event
		if err := json.Unmarshal(data, &e); err != nil {
			s.logger.Warn("failed to parse event file", "file", path, "error", err)
			continue
		}
		if e.ID == "" {
			e.ID = e.CalculateID()
		}
		events = append(events, e)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartedAt.After(events[j].StartedAt)
	})

	if s.maxCount > 0 && len(events) > s.maxCount {
		events = events[:s.maxCount]
	}

	s.logger.Info("loaded history from disk", "count", len(events))
	return events, nil
}
