package roles

import (
	"errors"
	"fmt"
	"sort"
)

// Registry errors.
var (
	ErrEmptyRole          = errors.New("role identifier cannot be empty")
	ErrDuplicateRole      = errors.New("role declared more than once")
	ErrDuplicatePosition  = errors.New("bit position declared more than once")
	ErrPositionOutOfRange = errors.New("bit position out of range")
	ErrReservedPosition   = errors.New("bit position 0 is reserved for NOT_DEFINED")
	ErrUnknownRole        = errors.New("unknown role")
)

// Registry is an immutable role to bit-position mapping. It is safe for
// concurrent use.
type Registry struct {
	byRole  map[Role]Definition
	ordered []Definition
	all     Mask
}

// NewRegistry validates the given definitions and builds a Registry from
// them. NotDefined is always present at position 0, whether or not it is
// declared.
func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{
		byRole: map[Role]Definition{
			NotDefined: {Role: NotDefined, Label: "Not Defined"},
		},
	}
	positions := make(map[uint8]Role, len(defs))

	for _, d := range defs {
		if d.Role == "" {
			return nil, ErrEmptyRole
		}
		if d.Role == NotDefined {
			if d.Position != 0 {
				return nil, fmt.Errorf("%w: %s declared at %d", ErrReservedPosition, d.Role, d.Position)
			}
			if d.Label != "" {
				r.byRole[NotDefined] = d
			}
			continue
		}
		if d.Position == 0 {
			return nil, fmt.Errorf("%w: %s", ErrReservedPosition, d.Role)
		}
		if d.Position > MaxPosition {
			return nil, fmt.Errorf("%w: %s declared at %d, max is %d", ErrPositionOutOfRange, d.Role, d.Position, MaxPosition)
		}
		if _, ok := r.byRole[d.Role]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRole, d.Role)
		}
		if other, ok := positions[d.Position]; ok {
			return nil, fmt.Errorf("%w: %d used by %s and %s", ErrDuplicatePosition, d.Position, other, d.Role)
		}
		if d.Label == "" {
			d.Label = string(d.Role)
		}

		positions[d.Position] = d.Role
		r.byRole[d.Role] = d
		r.ordered = append(r.ordered, d)
		r.all |= d.Value()
	}

	sort.Slice(r.ordered, func(i, j int) bool {
		return r.ordered[i].Position < r.ordered[j].Position
	})

	return r, nil
}

// MustNewRegistry is like NewRegistry but panics on an invalid declaration.
func MustNewRegistry(defs ...Definition) *Registry {
	r, err := NewRegistry(defs...)
	if err != nil {
		panic(err)
	}
	return r
}

var defaultRegistry = MustNewRegistry(
	Definition{Role: Admin, Label: "Admin", Position: 1},
	Definition{Role: PowerUser, Label: "Power User", Position: 2},
	Definition{Role: AccountAdmin, Label: "Account Admin", Position: 3},
	Definition{Role: AccountUser, Label: "Account User", Position: 4},
)

// Default returns the built-in registry: Admin=1, PowerUser=2,
// AccountAdmin=4 and AccountUser=8.
func Default() *Registry {
	return defaultRegistry
}

// Definitions returns the declared roles ordered by bit position, excluding
// NotDefined.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Lookup returns the definition of a role.
func (r *Registry) Lookup(role Role) (Definition, bool) {
	d, ok := r.byRole[role]
	return d, ok
}

// Value returns the single-bit mask of a role. Unknown roles and NotDefined
// contribute 0.
func (r *Registry) Value(role Role) Mask {
	return r.byRole[role].Value()
}

// Label returns the display label of a role, or the identifier itself when
// the role is unknown.
func (r *Registry) Label(role Role) string {
	if d, ok := r.byRole[role]; ok {
		return d.Label
	}
	return string(role)
}

// Mask combines the given roles into a single mask.
func (r *Registry) Mask(roles ...Role) Mask {
	var m Mask
	for _, role := range roles {
		m |= r.Value(role)
	}
	return m
}

// Valid reports whether every bit set in m belongs to a declared role.
func (r *Registry) Valid(m Mask) bool {
	return m&^r.all == 0
}

// Names expands a mask into its roles, ordered by bit position. Bits that do
// not belong to a declared role are ignored.
func (r *Registry) Names(m Mask) []Role {
	var out []Role
	for _, d := range r.ordered {
		if m.Has(d.Value()) {
			out = append(out, d.Role)
		}
	}
	return out
}

// Parse resolves a role from its identifier or label, ignoring case.
func (r *Registry) Parse(s string) (Role, error) {
	want := normalize(s)
	if _, ok := r.byRole[want]; ok {
		return want, nil
	}
	for role, d := range r.byRole {
		if normalize(d.Label) == want {
			return role, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// IsAllowed reports whether the bit of role is set in m. NotDefined is never
// allowed.
func (r *Registry) IsAllowed(role Role, m Mask) bool {
	return m.Any(r.Value(role))
}

// IsAuthorized reports whether a caller holding mask m satisfies required.
// An empty requirement means no restriction; otherwise any one of the
// required roles is sufficient.
func (r *Registry) IsAuthorized(required []Role, m Mask) bool {
	if len(required) == 0 {
		return true
	}
	for _, role := range required {
		if r.IsAllowed(role, m) {
			return true
		}
	}
	return false
}
