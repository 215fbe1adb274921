package access

import (
	"errors"
	"testing"

	"github.com/AritraDas07/Credit-Chain-Pro/internal/ledger"
)

func TestBootstrapAdminIsSeeded(t *testing.T) {
	rt := ledger.NewRuntime()
	reg := NewRegistry(rt, "admin-1")

	if !reg.Has("admin-1", RoleAdmin) {
		t.Fatalf("bootstrap admin should hold admin role")
	}
	if reg.Has("admin-1", RoleOracle) {
		t.Fatalf("admin must not imply other roles")
	}
}

func TestGrantRequiresAdmin(t *testing.T) {
	rt := ledger.NewRuntime()
	reg := NewRegistry(rt, "admin-1")

	if err := reg.Grant("rando", "oracle-1", RoleOracle); !errors.Is(err, ledger.ErrAuthorization) {
		t.Fatalf("expected authorization error, got %v", err)
	}
	if err := reg.Grant("admin-1", "oracle-1", RoleOracle); err != nil {
		t.Fatalf("grant error: %v", err)
	}
	if !reg.Has("oracle-1", RoleOracle) {
		t.Fatalf("role not granted")
	}
}

func TestGrantIsIdempotencyGuarded(t *testing.T) {
	rt := ledger.NewRuntime()
	reg := NewRegistry(rt, "admin-1")

	if err := reg.Grant("admin-1", "lender-1", RoleLender); err != nil {
		t.Fatalf("grant error: %v", err)
	}
	if err := reg.Grant("admin-1", "lender-1", RoleLender); !errors.Is(err, ledger.ErrState) {
		t.Fatalf("expected state error on duplicate grant, got %v", err)
	}
}

func TestGrantRejectsUnknownRole(t *testing.T) {
	rt := ledger.NewRuntime()
	reg := NewRegistry(rt, "admin-1")

	if err := reg.Grant("admin-1", "x", "superuser"); !errors.Is(err, ledger.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := reg.Grant("admin-1", "", RoleOracle); !errors.Is(err, ledger.ErrValidation) {
		t.Fatalf("expected validation error for empty identity, got %v", err)
	}
}

func TestRevoke(t *testing.T) {
	rt := ledger.NewRuntime()
	reg := NewRegistry(rt, "admin-1")

	if err := reg.Revoke("admin-1", "lender-1", RoleLender); !errors.Is(err, ledger.ErrState) {
		t.Fatalf("expected state error revoking ungranted role, got %v", err)
	}
	_ = reg.Grant("admin-1", "lender-1", RoleLender)
	if err := reg.Revoke("admin-1", "lender-1", RoleLender); err != nil {
		t.Fatalf("revoke error: %v", err)
	}
	if reg.Has("lender-1", RoleLender) {
		t.Fatalf("role still held after revoke")
	}
}

func TestRolesOfSelfOrAdminOnly(t *testing.T) {
	rt := ledger.NewRuntime()
	reg := NewRegistry(rt, "admin-1")
	_ = reg.Grant("admin-1", "lender-1", RoleLender)

	if _, err := reg.RolesOf("stranger", "lender-1"); !errors.Is(err, ledger.ErrAuthorization) {
		t.Fatalf("expected authorization error, got %v", err)
	}
	roles, err := reg.RolesOf("lender-1", "lender-1")
	if err != nil {
		t.Fatalf("self read error: %v", err)
	}
	if len(roles) != 1 || roles[0] != RoleLender {
		t.Fatalf("unexpected roles: %v", roles)
	}
	if _, err := reg.RolesOf("admin-1", "lender-1"); err != nil {
		t.Fatalf("admin read error: %v", err)
	}
}

func TestSystemGrantIsSilentWhenHeld(t *testing.T) {
	rt := ledger.NewRuntime()
	reg := NewRegistry(rt, "admin-1")

	_ = rt.Exec(func(tx *ledger.Tx) error {
		reg.SystemGrant(tx, "lender-1", RoleLender)
		reg.SystemGrant(tx, "lender-1", RoleLender)
		return nil
	})
	if !reg.Has("lender-1", RoleLender) {
		t.Fatalf("system grant did not take")
	}
	events := rt.Events().Since(0, 10)
	granted := 0
	for _, ev := range events {
		if ev.Name == "role_granted" {
			granted++
		}
	}
	if granted != 1 {
		t.Fatalf("expected exactly one role_granted event, got %d", granted)
	}
}
