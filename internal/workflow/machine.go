package workflow

import (
	"strings"

	"github.com/fixhub-app/fixhub/internal/apperr"
	"github.com/fixhub-app/fixhub/internal/identity"
)

// Status is an entity lifecycle state.
type Status string

func (s Status) String() string { return string(s) }

// Edge is a single allowed transition in an entity's lifecycle.
type Edge struct {
	From        Status
	To          Status
	Actors      []identity.Role
	NeedsReason bool
}

// Machine holds the full transition table for one entity type. Every status
// change in the system goes through Check before it is written, so there are
// no per-route "if status != X" guards scattered around the handlers.
type Machine struct {
	Entity string
	Edges  []Edge
}

// edge finds the table entry for a from→to pair.
func (m *Machine) edge(from, to Status) (Edge, bool) {
	for _, e := range m.Edges {
		if e.From == from && e.To == to {
			return e, true
		}
	}
	return Edge{}, false
}

// Check validates that actor may move the entity from one status to another.
// Reason is required on rejection-type edges and must be non-blank; it is
// validated before any state is touched.
func (m *Machine) Check(from, to Status, actor identity.RoleSet, reason string) error {
	e, ok := m.edge(from, to)
	if !ok {
		return apperr.Newf(apperr.CodeInvalidTransition,
			"%s cannot move from %s to %s", m.Entity, from, to)
	}
	if !actor.HasAny(e.Actors...) {
		return apperr.Newf(apperr.CodeForbidden,
			"not permitted to move %s from %s to %s", m.Entity, from, to)
	}
	if e.NeedsReason && strings.TrimSpace(reason) == "" {
		return apperr.New(apperr.CodeValidation, "a reason is required")
	}
	return nil
}

// CanTransition reports whether any actor could move from→to.
func (m *Machine) CanTransition(from, to Status) bool {
	_, ok := m.edge(from, to)
	return ok
}

// Targets lists the statuses reachable from a given status.
func (m *Machine) Targets(from Status) []Status {
	var out []Status
	for _, e := range m.Edges {
		if e.From == from {
			out = append(out, e.To)
		}
	}
	return out
}

// IsTerminal reports whether a status has no outgoing edges.
func (m *Machine) IsTerminal(s Status) bool {
	return len(m.Targets(s)) == 0
}
