// Package store provides BlobStore implementations.
package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/warp/payroll-engine/document"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps blobs in a map and counts writes, so tests can assert that a
// rejected mutation never reached storage.
type Memory struct {
	mu     sync.RWMutex
	blobs  map[string][]byte
	puts   int
	copies int

	// Failure injection. When set, the matching operation returns the error.
	FailGet  error
	FailPut  error
	FailCopy error
}

func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

var _ document.BlobStore = (*Memory)(nil)

func (m *Memory) Get(_ context.Context, id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.FailGet != nil {
		return nil, m.FailGet
	}
	data, ok := m.blobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", document.ErrDocumentNotFound, id)
	}
	return slices.Clone(data), nil
}

func (m *Memory) Put(_ context.Context, id string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailPut != nil {
		return m.FailPut
	}
	m.blobs[id] = slices.Clone(data)
	m.puts++
	return nil
}

func (m *Memory) Copy(_ context.Context, srcID, dstID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailCopy != nil {
		return m.FailCopy
	}
	data, ok := m.blobs[srcID]
	if !ok {
		return fmt.Errorf("%w: %s", document.ErrDocumentNotFound, srcID)
	}
	m.blobs[dstID] = slices.Clone(data)
	m.copies++
	return nil
}

// Puts returns how many successful writes happened.
func (m *Memory) Puts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.puts
}

// Copies returns how many successful backup copies happened.
func (m *Memory) Copies() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.copies
}

// IDs returns every stored blob id, sorted.
func (m *Memory) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.blobs))
	for id := range m.blobs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
