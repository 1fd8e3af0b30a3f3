package authware

import (
	"context"
	"time"
)

// EventKind enumerates the lifecycle transitions the hook is told about.
type EventKind string

const (
	EventUserCreated    EventKind = "user.created"
	EventUserUpdated    EventKind = "user.updated"
	EventLogin          EventKind = "auth.login"
	EventLogout         EventKind = "auth.logout"
	EventForgotPassword EventKind = "auth.password.forgot"
	EventResetPassword  EventKind = "auth.password.reset"
	EventVerifyEmail    EventKind = "auth.email.verified"
)

// Event captures a lifecycle transition. User is always sanitized.
// RawPassword carries the original plaintext only on created/updated
// events, for downstream mail flows that need it; it is never persisted
// and must never be logged.
type Event struct {
	Kind        EventKind
	User        *User
	RawPassword string
	Metadata    map[string]any
	OccurredAt  time.Time
}

// Hook consumes lifecycle events for notification/telemetry purposes. It
// is best-effort: the core never awaits it and never lets its failures
// alter control flow.
type Hook interface {
	OnEvent(ctx context.Context, event Event) error
}

// HookFunc adapts a function to the Hook interface.
type HookFunc func(ctx context.Context, event Event) error

// OnEvent implements Hook.
func (f HookFunc) OnEvent(ctx context.Context, event Event) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopHook struct{}

func (noopHook) OnEvent(context.Context, Event) error {
	return nil
}

func normalizeHook(h Hook) Hook {
	if h == nil {
		return noopHook{}
	}
	return h
}

// emitEvent dispatches to the hook behind a local error boundary:
// returned errors are logged and panics recovered, so a misbehaving hook
// never alters the calling flow.
func emitEvent(ctx context.Context, hook Hook, logger Logger, event Event) {
	if logger == nil {
		logger = defLogger{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Warn("event hook panic recovered: %v", r)
		}
	}()

	if err := normalizeHook(hook).OnEvent(ctx, event); err != nil {
		logger.Warn("event hook error: %v", err)
	}
}

// NewMailerHook returns a Hook that sends the welcome mail on first
// signup. Mail failures are logged by emitEvent, nothing else.
func NewMailerHook(mailer Mailer) Hook {
	return HookFunc(func(ctx context.Context, event Event) error {
		if mailer == nil || event.Kind != EventUserCreated || event.User == nil {
			return nil
		}
		return mailer.SendWelcomeMail(ctx, event.User.Email)
	})
}

// MultiHook fans an event out to several hooks, keeping each failure
// isolated from the rest.
func MultiHook(hooks ...Hook) Hook {
	filtered := make([]Hook, 0, len(hooks))
	for _, h := range hooks {
		if h != nil {
			filtered = append(filtered, h)
		}
	}

	return HookFunc(func(ctx context.Context, event Event) error {
		var lastErr error
		for _, h := range filtered {
			if err := h.OnEvent(ctx, event); err != nil {
				lastErr = err
			}
		}
		return lastErr
	})
}
