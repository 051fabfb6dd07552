// ABOUTME: Shared collaborators handed to every page container
// ABOUTME: One gateway, bus, feed and notifier per process, chosen at startup
package pages

import (
	"errors"
	"time"

	"github.com/harperreed/crmdeck/email"
	"github.com/harperreed/crmdeck/events"
	"github.com/harperreed/crmdeck/feed"
	"github.com/harperreed/crmdeck/gateway"
	"github.com/harperreed/crmdeck/notify"
	"github.com/harperreed/crmdeck/session"
	"go.uber.org/zap"
)

// ErrNotConfirmed is returned when a destructive action is declined.
var ErrNotConfirmed = errors.New("action not confirmed")

// Deps wires a page to the rest of the process.
type Deps struct {
	Gateway  *gateway.Gateway
	Bus      *events.Bus
	Feed     *feed.Feed
	Notifier notify.Notifier
	Session  session.Store
	Sender   email.Sender
	Logger   *zap.Logger

	// Interval is the silent refresh period for mounted pages.
	Interval time.Duration
	Now      func() time.Time
}

// WithDefaults fills unset collaborators. Pages sharing a bus and feed must be
// built from the same defaulted Deps.
func (d Deps) WithDefaults() Deps {
	if d.Bus == nil {
		d.Bus = events.NewBus()
	}
	if d.Feed == nil {
		d.Feed = feed.New(feed.DefaultCap)
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Notifier == nil {
		d.Notifier = notify.NewLog(d.Logger)
	}
	if d.Session == nil {
		d.Session = session.NewMemory()
	}
	if d.Sender == nil {
		d.Sender = email.NewSimulated(0, d.Logger)
	}
	if d.Interval <= 0 {
		d.Interval = feed.DefaultInterval
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// logFailure records a gateway error with its operation context.
func logFailure(logger *zap.Logger, msg, op, entity string, id int64, err error) {
	fields := []zap.Field{zap.String("op", op), zap.String("entity", entity), zap.Error(err)}
	if id != 0 {
		fields = append(fields, zap.Int64("id", id))
	}
	logger.Error(msg, fields...)
}

func int64Ptr(v int64) *int64 { return &v }
