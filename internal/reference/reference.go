// Package reference supplies the independently recorded delivery times that
// handwritten times are checked against.
package reference

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"delivery-audit/internal/data"
	"delivery-audit/internal/logger"
)

// Source looks up the reference time for a ticket. A nil time with a nil
// error means no reference exists.
type Source interface {
	Lookup(ctx context.Context, ticketID string) (*data.TimeValue, error)
}

// Store is a Source that can also be written.
type Store interface {
	Source
	Put(ctx context.Context, ticketID string, t data.TimeValue) error
}

// Chain asks each source in turn and returns the first time found.
type Chain []Source

func (c Chain) Lookup(ctx context.Context, ticketID string) (*data.TimeValue, error) {
	for _, src := range c {
		tv, err := src.Lookup(ctx, ticketID)
		if err != nil {
			return nil, err
		}
		if tv != nil {
			return tv, nil
		}
	}
	return nil, nil
}

// None never has a reference.
type None struct{}

func (None) Lookup(ctx context.Context, ticketID string) (*data.TimeValue, error) {
	return nil, nil
}

type MemoryStore struct {
	mu    sync.RWMutex
	times map[string]data.TimeValue
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{times: make(map[string]data.TimeValue)}
}

func (m *MemoryStore) Lookup(ctx context.Context, ticketID string) (*data.TimeValue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tv, ok := m.times[ticketID]
	if !ok {
		return nil, nil
	}
	return &tv, nil
}

func (m *MemoryStore) Put(ctx context.Context, ticketID string, t data.TimeValue) error {
	m.mu.Lock()
	m.times[ticketID] = t
	m.mu.Unlock()
	return nil
}

// LoadCSV reads a telematics export with rows of ticket_id,reference_time. A
// header row is recognised by its time column not parsing; rows with an
// unreadable time are skipped.
func LoadCSV(path string) (*MemoryStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening reference CSV: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}

func ReadCSV(r io.Reader) (*MemoryStore, error) {
	store := NewMemoryStore()
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	for line := 1; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading reference CSV line %d: %w", line, err)
		}
		if len(row) < 2 {
			continue
		}
		ticket := strings.TrimSpace(row[0])
		tv, err := data.ParseClock(row[1])
		if err != nil {
			if line > 1 {
				logger.Warn("skipping reference row", "line", line, "error", err)
			}
			continue
		}
		store.times[ticket] = tv
	}
	return store, nil
}
