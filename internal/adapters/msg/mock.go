package msg

import (
	"context"
	"sync"

	"github.com/sevasangam/puja-bookings/internal/observability"
)

// Mock is the log-only sender used when no provider credentials are
// configured, and as the recorder in tests. The booking flow is never
// blocked by missing notification infrastructure.
type Mock struct {
	mu     sync.Mutex
	Sent   []Message
	Err    error
	logger observability.Logger
}

func NewMock(logger observability.Logger) *Mock {
	return &Mock{logger: logger}
}

func (m *Mock) Send(ctx context.Context, msg Message) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return StatusError, m.Err
	}
	m.Sent = append(m.Sent, msg)
	if m.logger != nil {
		m.logger.WithField("to", msg.To).Info("mock message: " + msg.Body)
	}
	return StatusMocked, nil
}

func (m *Mock) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.Sent))
	copy(out, m.Sent)
	return out
}
