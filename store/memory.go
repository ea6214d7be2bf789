package store

import (
	"fmt"
	"sync"
)

// Memory is an in-memory Store. It counts outstanding mappings, which makes it
// useful for checking that every Map is paired with an Unmap.
type Memory struct {
	mu       sync.Mutex
	data     []byte
	mappings map[*byte]int
	closed   bool
}

func NewMemory() *Memory {
	return &Memory{mappings: make(map[*byte]int)}
}

func (m *Memory) WriteAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, fmt.Errorf("store: write to closed memory store")
	}
	if off < 0 {
		return 0, fmt.Errorf("store: negative offset %d", off)
	}
	end := int(off) + len(p)
	if end > len(m.data) {
		if end > cap(m.data) {
			grown := make([]byte, end, max(end, 2*cap(m.data)))
			copy(grown, m.data)
			m.data = grown
		}
		m.data = m.data[:end]
	}
	copy(m.data[off:], p)
	return len(p), nil
}

func (m *Memory) Map(offset int64, length int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, fmt.Errorf("store: map of closed memory store")
	}
	if offset < 0 || length <= 0 || offset+int64(length) > int64(len(m.data)) {
		return nil, fmt.Errorf("store: mapping [%d, %d) outside %d bytes", offset, offset+int64(length), len(m.data))
	}
	data := m.data[offset : offset+int64(length) : offset+int64(length)]
	m.mappings[&data[0]]++
	return data, nil
}

func (m *Memory) Unmap(data []byte) error {
	if len(data) == 0 {
		return ErrNotMapped
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.mappings[&data[0]]
	if !ok {
		return ErrNotMapped
	}
	if n == 1 {
		delete(m.mappings, &data[0])
	} else {
		m.mappings[&data[0]] = n - 1
	}
	return nil
}

func (m *Memory) Alignment() int64 {
	return 1
}

// Mapped returns the number of outstanding mappings.
func (m *Memory) Mapped() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.mappings {
		total += n
	}
	return total
}

// Len returns the number of bytes written so far.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
