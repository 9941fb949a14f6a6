package main

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/tbudis/secured"
	"github.com/tbudis/secured/core"
	"github.com/tbudis/secured/roles"
)

type decision struct {
	Allowed  bool              `json:"allowed"`
	Status   int               `json:"status"`
	Kind     core.Kind         `json:"kind,omitempty"`
	Reason   string            `json:"reason,omitempty"`
	Identity *decisionIdentity `json:"identity,omitempty"`
}

type decisionIdentity struct {
	ID         int          `json:"id"`
	ExternalID string       `json:"external_id"`
	Issuer     string       `json:"issuer,omitempty"`
	Roles      roles.Mask   `json:"roles"`
	RoleNames  []roles.Role `json:"role_names"`
}

func newDecision(identity *core.Identity, err error) decision {
	if err != nil {
		return decision{
			Status: secured.StatusCode(err),
			Kind:   core.KindOf(err),
			Reason: secured.Reason(err),
		}
	}
	return decision{
		Allowed:  true,
		Status:   http.StatusOK,
		Identity: newDecisionIdentity(identity),
	}
}

func newDecisionIdentity(identity *core.Identity) *decisionIdentity {
	names := roles.Default().Names(identity.Roles)
	if names == nil {
		names = []roles.Role{}
	}
	return &decisionIdentity{
		ID:         identity.ID,
		ExternalID: identity.ExternalID,
		Issuer:     identity.Issuer,
		Roles:      identity.Roles,
		RoleNames:  names,
	}
}

func writeDecision(w io.Writer, d decision) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}
