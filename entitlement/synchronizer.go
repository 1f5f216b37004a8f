package entitlement

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

// DefaultRoleName is the well-known subscriber role maintained by the
// synchronizer.
const DefaultRoleName = "SUBSCRIBER"

// RoleRecord identifies a role in the external role store.
type RoleRecord struct {
	ID   string
	Name string
}

// RoleDirectory is the external role/assignment store contract. EnsureRole
// is an idempotent upsert so the synchronizer never needs its own
// get-or-create conflict handling. Assign and Remove report whether
// membership actually changed; repeating either is a no-op success.
type RoleDirectory interface {
	EnsureRole(ctx context.Context, name string) (RoleRecord, error)
	AssignRoleToUser(ctx context.Context, userID, roleID string) (bool, error)
	RemoveRoleFromUser(ctx context.Context, userID, roleID string) (bool, error)
}

// BusReader is the consumer side of the event bus: fetch-then-commit with
// at-least-once semantics. *kafka.Reader satisfies it.
type BusReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// SynchronizerConfig wires a Synchronizer.
type SynchronizerConfig struct {
	Reader   BusReader
	Roles    RoleDirectory
	RoleName string // defaults to DefaultRoleName
	Logger   *slog.Logger
}

// Synchronizer is the long-lived background consumer that applies
// subscription events to the authorization graph. One per process; owned
// explicitly by whoever constructed it and shut down via ctx cancellation
// plus Close.
type Synchronizer struct {
	reader   BusReader
	roles    RoleDirectory
	roleName string
	log      *slog.Logger
}

// NewSynchronizer validates cfg and returns a Synchronizer.
func NewSynchronizer(cfg SynchronizerConfig) (*Synchronizer, error) {
	if cfg.Reader == nil {
		return nil, errors.New("bus reader required")
	}
	if cfg.Roles == nil {
		return nil, errors.New("role directory required")
	}
	if cfg.RoleName == "" {
		cfg.RoleName = DefaultRoleName
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Synchronizer{
		reader:   cfg.Reader,
		roles:    cfg.Roles,
		roleName: cfg.RoleName,
		log:      cfg.Logger,
	}, nil
}

// Run consumes events until ctx is cancelled or the reader is closed, then
// returns nil. The in-flight message is always either committed or left
// uncommitted for redelivery — never half-applied offsets.
func (s *Synchronizer) Run(ctx context.Context) error {
	s.log.Info("entitlement synchronizer started", "role", s.roleName)

	for {
		msg, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.EOF) {
				s.log.Info("entitlement synchronizer stopped")
				return nil
			}
			s.log.Error("entitlement fetch failed", "error", err)
			return err
		}

		if s.handle(ctx, msg.Value) {
			if err := s.reader.CommitMessages(ctx, msg); err != nil {
				// The event was applied; a lost commit means at worst one
				// redelivery of an idempotent mutation.
				s.log.Error("entitlement commit failed", "error", err, "offset", msg.Offset)
			}
		}
	}
}

// Close releases the underlying bus reader.
func (s *Synchronizer) Close() error {
	return s.reader.Close()
}

// handle applies one message and reports whether its offset should be
// committed. Malformed and unknown events are dropped (committed);
// transient directory failures are not committed so redelivery retries
// them.
func (s *Synchronizer) handle(ctx context.Context, payload []byte) bool {
	event, err := DecodeEvent(payload)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownEventType):
			s.log.Warn("dropping event with unknown type", "error", err)
		default:
			s.log.Warn("dropping malformed event", "error", err)
		}
		return true
	}

	if err := s.apply(ctx, event); err != nil {
		s.log.Error("entitlement apply failed, awaiting redelivery",
			"error", err, "user_id", event.UserID, "event_type", event.Type)
		return false
	}

	return true
}

func (s *Synchronizer) apply(ctx context.Context, event Event) error {
	role, err := s.roles.EnsureRole(ctx, s.roleName)
	if err != nil {
		return err
	}

	switch event.Type {
	case EventSubscribe:
		changed, err := s.roles.AssignRoleToUser(ctx, event.UserID, role.ID)
		if err != nil {
			return err
		}
		s.log.Info("subscriber role assigned",
			"user_id", event.UserID, "changed", changed, "event_id", event.EventID)
	case EventUnsubscribe:
		changed, err := s.roles.RemoveRoleFromUser(ctx, event.UserID, role.ID)
		if err != nil {
			return err
		}
		s.log.Info("subscriber role removed",
			"user_id", event.UserID, "changed", changed, "event_id", event.EventID)
	}

	return nil
}
