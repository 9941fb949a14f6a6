// Package rolestore provides core.RoleLookup implementations that populate
// an identity's role bitmask after its token has been verified.
package rolestore

import (
	"context"
	"strconv"

	"github.com/tbudis/secured/core"
	"github.com/tbudis/secured/roles"
)

// Static is a fixed role assignment keyed by external id. Numeric ids are
// matched by their decimal form when the external id is not listed.
// Unknown identities have no roles.
type Static map[string]roles.Mask

// LookupRoleBitmask implements core.RoleLookup.
func (s Static) LookupRoleBitmask(_ context.Context, identity *core.Identity) (roles.Mask, error) {
	if identity == nil {
		return 0, nil
	}
	if mask, ok := s[identity.ExternalID]; ok {
		return mask, nil
	}
	if identity.ID != 0 {
		return s[strconv.Itoa(identity.ID)], nil
	}
	return 0, nil
}
