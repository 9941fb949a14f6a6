// Package roles implements the bit-packed role model used to authorize
// identities against protected operations.
//
// Every role owns a fixed position in a 32-bit Mask. Position 0 is reserved
// for NotDefined, which never occupies a bit, and positions 1 through 31 map
// to the values 1<<0 through 1<<30. The mapping is declared explicitly in a
// Registry and validated when the Registry is built, so reordering a
// declaration can never silently shift previously issued masks.
package roles

import (
	"strconv"
	"strings"
)

// Role identifies a named permission unit.
type Role string

// Roles known to the default registry.
const (
	NotDefined   Role = "NOT_DEFINED"
	Admin        Role = "ADMIN"
	PowerUser    Role = "POWER_USER"
	AccountAdmin Role = "ACCOUNT_ADMIN"
	AccountUser  Role = "ACCOUNT_USER"
)

// MaxPosition is the highest usable bit position in a Mask.
const MaxPosition = 31

// Mask is a bit-packed set of roles.
type Mask uint32

// Has reports whether every bit of v is set in m. A zero v is never contained.
func (m Mask) Has(v Mask) bool {
	return v != 0 && m&v == v
}

// Any reports whether at least one bit of v is set in m.
func (m Mask) Any(v Mask) bool {
	return m&v != 0
}

// String renders the mask in binary with a 0b prefix.
func (m Mask) String() string {
	return "0b" + strconv.FormatUint(uint64(m), 2)
}

// Definition declares the fixed position and display label of a role.
type Definition struct {
	Role     Role
	Label    string
	Position uint8
}

// Value returns the single-bit mask of the definition. NotDefined and any
// definition at position 0 contribute nothing.
func (d Definition) Value() Mask {
	if d.Position == 0 {
		return 0
	}
	return 1 << (d.Position - 1)
}

// normalize upper-cases a role identifier and turns spaces and dashes into
// underscores so "power user" and "Power-User" both read as POWER_USER.
func normalize(s string) Role {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	return Role(strings.ToUpper(s))
}
