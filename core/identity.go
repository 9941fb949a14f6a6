package core

import (
	"github.com/tbudis/secured/roles"
)

// Identity is the authenticated principal derived from a verified token.
type Identity struct {
	// ID is the numeric identifier carried by the token, 0 when absent or
	// not numeric.
	ID int `json:"id"`

	// ExternalID is the token subject.
	ExternalID string `json:"externalId"`

	// Issuer is the token issuer.
	Issuer string `json:"issuer"`

	// Roles is the caller's role bitmask. Authentication leaves it at zero;
	// it is filled in by the configured RoleLookup.
	Roles roles.Mask `json:"roles"`
}

// Requirement is the protection declared for one operation.
type Requirement struct {
	// Operation names the protected operation. It is only used to describe
	// denials.
	Operation string `json:"operation,omitempty"`

	// Audience, when not empty, must be one of the token audiences.
	Audience string `json:"audience,omitempty"`

	// Roles lists the roles that may call the operation. Any one of them is
	// sufficient; an empty list admits every authenticated identity.
	Roles []roles.Role `json:"roles,omitempty"`
}
