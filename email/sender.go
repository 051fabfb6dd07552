// ABOUTME: Outbound email senders
// ABOUTME: The simulated sender assigns ULID message ids without leaving the process
package email

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// Receipt confirms a sent message.
type Receipt struct {
	MessageID string    `json:"message_id"`
	To        string    `json:"to"`
	SentAt    time.Time `json:"sent_at"`
}

type Sender interface {
	Send(ctx context.Context, d Draft) (Receipt, error)
}

// Simulated pretends to deliver mail after an optional delay and keeps a
// record of what it sent.
type Simulated struct {
	delay  time.Duration
	logger *zap.Logger

	mu   sync.Mutex
	sent []Draft
}

func NewSimulated(delay time.Duration, logger *zap.Logger) *Simulated {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulated{delay: delay, logger: logger}
}

func (s *Simulated) Send(ctx context.Context, d Draft) (Receipt, error) {
	if err := d.Validate(); err != nil {
		return Receipt{}, err
	}
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Receipt{}, ctx.Err()
		case <-timer.C:
		}
	}

	s.mu.Lock()
	s.sent = append(s.sent, d)
	s.mu.Unlock()

	r := Receipt{MessageID: ulid.Make().String(), To: d.To, SentAt: time.Now()}
	s.logger.Info("email sent", zap.String("message_id", r.MessageID), zap.String("to", d.To))
	return r, nil
}

// Sent returns the drafts delivered so far.
func (s *Simulated) Sent() []Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Draft(nil), s.sent...)
}
