// Package audit keeps an append-only trail of privileged actions: review
// decisions, direct-approval bypasses, and certificate lifecycle changes.
// Recording is asynchronous so a slow sink never stalls the operation that
// triggered it.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"verdant/pkg/requestcontext"
)

// Actions recorded on the trail.
const (
	ActionRegistrationRecommended = "registration.recommended"
	ActionRegistrationRejected    = "registration.rejected"
	ActionRegistrationApproved    = "registration.approved"
	ActionApprovalBypassed        = "registration.approval_bypassed"
	ActionCertificateIssued       = "certificate.issued"
	ActionCertificateRegenerated  = "certificate.regenerated"
	ActionCertificateRevoked      = "certificate.revoked"
)

// Event is one recorded action. Subject is the entity acted on, Actor the
// caller taken from the request context at record time.
type Event struct {
	ID         string
	ActorID    string
	ActorRole  string
	Action     string
	Subject    string
	Detail     string
	RecordedAt time.Time
}

// Store is the trail's append-only sink.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
}

// Trail buffers events in memory and persists them from a background
// worker. Events are dropped, with a log line, when the buffer is full;
// the trail is an operational record, not a transactional one.
type Trail struct {
	store  Store
	inbox  chan Event
	logger *slog.Logger
}

const inboxSize = 256

func NewTrail(store Store, logger *slog.Logger) *Trail {
	return &Trail{
		store:  store,
		inbox:  make(chan Event, inboxSize),
		logger: logger,
	}
}

// Record enqueues an event built from the calling context. Never blocks.
func (t *Trail) Record(ctx context.Context, action, subject, detail string) {
	event := Event{
		ID:         uuid.NewString(),
		ActorID:    requestcontext.UserID(ctx),
		ActorRole:  requestcontext.Role(ctx),
		Action:     action,
		Subject:    subject,
		Detail:     detail,
		RecordedAt: requestcontext.Now(ctx),
	}
	select {
	case t.inbox <- event:
	default:
		t.logger.WarnContext(ctx, "audit inbox full, dropping event",
			"action", action, "subject", subject)
	}
}

// Run drains the inbox until the context is cancelled, then flushes what is
// still buffered.
func (t *Trail) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			t.flush()
			return ctx.Err()
		case event := <-t.inbox:
			t.persist(ctx, event)
		}
	}
}

// List returns the trail for one subject, oldest first.
func (t *Trail) List(ctx context.Context, subject string) ([]Event, error) {
	return t.store.ListBySubject(ctx, subject)
}

func (t *Trail) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case event := <-t.inbox:
			t.persist(ctx, event)
		default:
			return
		}
	}
}

func (t *Trail) persist(ctx context.Context, event Event) {
	if err := t.store.Append(ctx, event); err != nil {
		t.logger.ErrorContext(ctx, "failed to persist audit event",
			"error", err, "action", event.Action, "subject", event.Subject)
	}
}
