package publish

import (
	"context"
	"sync"
)

// MemoryPublisher records published messages in memory. It backs tests and
// the dry-run mode, where posts are logged instead of delivered.
type MemoryPublisher struct {
	mu       sync.Mutex
	messages []string
	// Err, when set, is returned by every Publish call.
	Err error
}

// NewMemory creates an empty in-memory publisher.
func NewMemory() *MemoryPublisher {
	return &MemoryPublisher{}
}

// Publish records the message.
func (m *MemoryPublisher) Publish(_ context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.messages = append(m.messages, text)
	return nil
}

// Messages returns a copy of everything published so far.
func (m *MemoryPublisher) Messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.messages))
	copy(out, m.messages)
	return out
}
