package core

import (
	"context"
	"time"

	"github.com/tbudis/secured/roles"
)

// DenialEvent describes one denied authorization attempt.
type DenialEvent struct {
	Kind    Kind
	Reason  string
	Details error

	// Operation and RequiredRoles come from the Requirement being enforced.
	Operation     string
	RequiredRoles []roles.Role

	// Identity is the best-effort identity of the caller. It is nil when
	// the token could not be authenticated.
	Identity *Identity

	Time time.Time
}

// Subject returns the external id of the caller, or "" when unknown.
func (e DenialEvent) Subject() string {
	if e.Identity == nil {
		return ""
	}
	return e.Identity.ExternalID
}

// Roles returns the role bitmask of the caller, or 0 when unknown.
func (e DenialEvent) Roles() roles.Mask {
	if e.Identity == nil {
		return 0
	}
	return e.Identity.Roles
}

// DenialSink receives denial events. Implementations must be safe for
// concurrent use and must not block the request for long.
type DenialSink interface {
	RecordDenial(ctx context.Context, event DenialEvent)
}

// DenialSinkFunc adapts a function to a DenialSink.
type DenialSinkFunc func(ctx context.Context, event DenialEvent)

// RecordDenial calls f.
func (f DenialSinkFunc) RecordDenial(ctx context.Context, event DenialEvent) {
	f(ctx, event)
}

// MultiSink fans a denial event out to every sink in order.
func MultiSink(sinks ...DenialSink) DenialSink {
	flat := make(multiSink, 0, len(sinks))
	for _, s := range sinks {
		if s == nil {
			continue
		}
		if m, ok := s.(multiSink); ok {
			flat = append(flat, m...)
			continue
		}
		flat = append(flat, s)
	}
	return flat
}

type multiSink []DenialSink

func (m multiSink) RecordDenial(ctx context.Context, event DenialEvent) {
	for _, s := range m {
		s.RecordDenial(ctx, event)
	}
}

// DecisionObserver is notified of the outcome and duration of every
// decision, allowed or denied.
type DecisionObserver interface {
	ObserveDecision(operation string, kind Kind, duration time.Duration)
}
