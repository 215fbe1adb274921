package access

import (
	"github.com/AritraDas07/Credit-Chain-Pro/internal/ledger"
)

// Roles known to the system. Every operation entry checks the caller against
// this capability map; there is no permission hierarchy, holding one role
// never implies another.
const (
	RoleAdmin          = "admin"
	RoleOracle         = "oracle"
	RoleLender         = "lender"
	RoleApprovedLender = "approved_lender"
	RoleAggregator     = "aggregator"
	RoleValidator      = "validator"
)

// Registry is the shared capability map: identity to set of granted roles.
type Registry struct {
	rt    *ledger.Runtime
	roles map[ledger.Identity]map[string]struct{}
}

// NewRegistry builds the registry and seeds the bootstrap admin so the system
// is administrable from the first transaction.
func NewRegistry(rt *ledger.Runtime, bootstrapAdmin ledger.Identity) *Registry {
	r := &Registry{rt: rt, roles: map[ledger.Identity]map[string]struct{}{}}
	if !bootstrapAdmin.IsZero() {
		r.roles[bootstrapAdmin] = map[string]struct{}{RoleAdmin: {}}
	}
	return r
}

// Has reports whether identity holds role. Callable inside any transaction.
func (r *Registry) Has(identity ledger.Identity, role string) bool {
	_, ok := r.roles[identity][role]
	return ok
}

// Require fails with an authorization error unless identity holds role.
func (r *Registry) Require(identity ledger.Identity, role string) error {
	if !r.Has(identity, role) {
		return ledger.Unauthorized("missing_role_" + role)
	}
	return nil
}

// GrantWithin adds role to identity inside an already-open transaction.
// Idempotency-guarded: granting a held role is a state error.
func (r *Registry) GrantWithin(tx *ledger.Tx, caller, identity ledger.Identity, role string) error {
	if err := r.Require(caller, RoleAdmin); err != nil {
		return err
	}
	return r.grant(tx, identity, role)
}

// SystemGrant grants a role as part of another component's operation (lender
// registration, approval) without requiring the caller to be admin. Callers
// already did their own authorization.
func (r *Registry) SystemGrant(tx *ledger.Tx, identity ledger.Identity, role string) {
	if r.roles[identity] == nil {
		r.roles[identity] = map[string]struct{}{}
	}
	if _, held := r.roles[identity][role]; held {
		return
	}
	r.roles[identity][role] = struct{}{}
	tx.Emit("role_granted", map[string]any{"identity": string(identity), "role": role})
}

func (r *Registry) grant(tx *ledger.Tx, identity ledger.Identity, role string) error {
	if identity.IsZero() {
		return ledger.Validation("empty_identity")
	}
	if !validRole(role) {
		return ledger.Validation("unknown_role")
	}
	if r.Has(identity, role) {
		return ledger.State("role_already_granted")
	}
	if r.roles[identity] == nil {
		r.roles[identity] = map[string]struct{}{}
	}
	r.roles[identity][role] = struct{}{}
	tx.Emit("role_granted", map[string]any{"identity": string(identity), "role": role})
	return nil
}

// RevokeWithin removes role from identity inside an open transaction.
func (r *Registry) RevokeWithin(tx *ledger.Tx, caller, identity ledger.Identity, role string) error {
	if err := r.Require(caller, RoleAdmin); err != nil {
		return err
	}
	if !r.Has(identity, role) {
		return ledger.State("role_not_granted")
	}
	delete(r.roles[identity], role)
	if len(r.roles[identity]) == 0 {
		delete(r.roles, identity)
	}
	tx.Emit("role_revoked", map[string]any{"identity": string(identity), "role": role})
	return nil
}

// Grant is the standalone admin operation.
func (r *Registry) Grant(caller, identity ledger.Identity, role string) error {
	return r.rt.Exec(func(tx *ledger.Tx) error {
		return r.GrantWithin(tx, caller, identity, role)
	})
}

// Revoke is the standalone admin operation.
func (r *Registry) Revoke(caller, identity ledger.Identity, role string) error {
	return r.rt.Exec(func(tx *ledger.Tx) error {
		return r.RevokeWithin(tx, caller, identity, role)
	})
}

// RolesOf lists the roles granted to identity, self or admin only.
func (r *Registry) RolesOf(caller, identity ledger.Identity) ([]string, error) {
	var out []string
	err := r.rt.Exec(func(tx *ledger.Tx) error {
		if caller != identity && !r.Has(caller, RoleAdmin) {
			return ledger.Unauthorized("not_self_or_admin")
		}
		for role := range r.roles[identity] {
			out = append(out, role)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func validRole(role string) bool {
	switch role {
	case RoleAdmin, RoleOracle, RoleLender, RoleApprovedLender, RoleAggregator, RoleValidator:
		return true
	}
	return false
}
