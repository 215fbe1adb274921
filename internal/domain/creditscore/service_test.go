package creditscore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AritraDas07/Credit-Chain-Pro/internal/domain/access"
	"github.com/AritraDas07/Credit-Chain-Pro/internal/ledger"
)

func newTestService(t *testing.T) (*ledger.Runtime, *access.Registry, *Service) {
	t.Helper()
	rt := ledger.NewRuntime()
	reg := access.NewRegistry(rt, "admin-1")
	if err := reg.Grant("admin-1", "oracle-1", access.RoleOracle); err != nil {
		t.Fatalf("seed oracle: %v", err)
	}
	return rt, reg, NewService(rt, reg)
}

func TestUpdateScoreRequiresOracle(t *testing.T) {
	_, _, svc := newTestService(t)
	ctx := context.Background()

	if err := svc.UpdateScore(ctx, "rando", "borrower-1", 720); !errors.Is(err, ledger.ErrAuthorization) {
		t.Fatalf("expected authorization error, got %v", err)
	}
	if err := svc.UpdateScore(ctx, "oracle-1", "borrower-1", 720); err != nil {
		t.Fatalf("update error: %v", err)
	}
}

func TestUpdateScoreValidatesRange(t *testing.T) {
	_, _, svc := newTestService(t)
	ctx := context.Background()

	for _, score := range []int32{299, 851, 0, -5} {
		if err := svc.UpdateScore(ctx, "oracle-1", "borrower-1", score); !errors.Is(err, ledger.ErrValidation) {
			t.Fatalf("score %d should fail validation, got %v", score, err)
		}
	}
	for _, score := range []int32{300, 850} {
		if err := svc.UpdateScore(ctx, "oracle-1", "borrower-1", score); err != nil {
			t.Fatalf("boundary score %d rejected: %v", score, err)
		}
	}
}

func TestVersionBumpsAndNeverResets(t *testing.T) {
	_, _, svc := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := svc.UpdateScore(ctx, "oracle-1", "borrower-1", 700); err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
	}
	got, err := svc.GetScore(ctx, "borrower-1", "borrower-1")
	if err != nil {
		t.Fatalf("get error: %v", err)
	}
	if got.Version != 3 {
		t.Fatalf("expected version 3, got %d", got.Version)
	}
	if got.Issuer != "oracle-1" || !got.Active {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestBatchUpdateIsAllOrNothing(t *testing.T) {
	_, _, svc := newTestService(t)
	ctx := context.Background()

	err := svc.BatchUpdateScores(ctx, "oracle-1", []BatchScoreEntry{
		{Identity: "a", Score: 700},
		{Identity: "b", Score: 9999},
	})
	if !errors.Is(err, ledger.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.GetScore(ctx, "a", "a"); !errors.Is(err, ledger.ErrState) {
		t.Fatalf("no entry should have been written, got %v", err)
	}

	if err := svc.BatchUpdateScores(ctx, "oracle-1", []BatchScoreEntry{
		{Identity: "a", Score: 700},
		{Identity: "b", Score: 650},
	}); err != nil {
		t.Fatalf("valid batch failed: %v", err)
	}
	got, err := svc.GetScore(ctx, "b", "b")
	if err != nil || got.Score != 650 {
		t.Fatalf("batch write missing: %v %+v", err, got)
	}
}

func TestBatchSizeLimit(t *testing.T) {
	_, _, svc := newTestService(t)
	entries := make([]BatchScoreEntry, MaxBatchSize+1)
	for i := range entries {
		entries[i] = BatchScoreEntry{Identity: ledger.Identity(string(rune('a' + i%26))), Score: 700}
	}
	if err := svc.BatchUpdateScores(context.Background(), "oracle-1", entries); !errors.Is(err, ledger.ErrValidation) {
		t.Fatalf("expected batch_too_large, got %v", err)
	}
	if err := svc.BatchUpdateScores(context.Background(), "oracle-1", nil); !errors.Is(err, ledger.ErrValidation) {
		t.Fatalf("expected empty_batch, got %v", err)
	}
}

func TestReadAuthorization(t *testing.T) {
	_, reg, svc := newTestService(t)
	ctx := context.Background()
	if err := svc.UpdateScore(ctx, "oracle-1", "borrower-1", 720); err != nil {
		t.Fatalf("seed score: %v", err)
	}

	// Stranger without any role or grant.
	if _, err := svc.GetScore(ctx, "stranger", "borrower-1"); !errors.Is(err, ledger.ErrAuthorization) {
		t.Fatalf("expected denial, got %v", err)
	}

	// Self always reads.
	if _, err := svc.GetScore(ctx, "borrower-1", "borrower-1"); err != nil {
		t.Fatalf("self read: %v", err)
	}

	// Lender role reads any score.
	if err := reg.Grant("admin-1", "lender-1", access.RoleLender); err != nil {
		t.Fatalf("seed lender: %v", err)
	}
	if _, err := svc.GetScore(ctx, "lender-1", "borrower-1"); err != nil {
		t.Fatalf("lender read: %v", err)
	}

	// Explicit consent grant admits a roleless reader.
	if err := svc.GrantLenderAccess(ctx, "borrower-1", "stranger"); err != nil {
		t.Fatalf("grant access: %v", err)
	}
	if _, err := svc.GetScore(ctx, "stranger", "borrower-1"); err != nil {
		t.Fatalf("authorized read: %v", err)
	}
}

func TestConsentExpiryMustBeFuture(t *testing.T) {
	rt, _, svc := newTestService(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	rt.SetClock(func() time.Time { return now })

	if err := svc.UpdateConsent(ctx, "borrower-1", "hash", now.Unix()); !errors.Is(err, ledger.ErrValidation) {
		t.Fatalf("expiry at now should fail, got %v", err)
	}
	if err := svc.UpdateConsent(ctx, "borrower-1", "", now.Unix()+60); !errors.Is(err, ledger.ErrValidation) {
		t.Fatalf("empty data hash should fail, got %v", err)
	}
	if err := svc.UpdateConsent(ctx, "borrower-1", "hash", now.Unix()+60); err != nil {
		t.Fatalf("valid consent rejected: %v", err)
	}

	valid, err := svc.IsConsentValid(ctx, "borrower-1")
	if err != nil || !valid {
		t.Fatalf("consent should be valid: %v %v", valid, err)
	}
	rt.SetClock(func() time.Time { return now.Add(2 * time.Minute) })
	valid, _ = svc.IsConsentValid(ctx, "borrower-1")
	if valid {
		t.Fatalf("consent should have expired")
	}
}

func TestConsentOverwriteKeepsLenderList(t *testing.T) {
	rt, _, svc := newTestService(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	rt.SetClock(func() time.Time { return now })

	if err := svc.GrantLenderAccess(ctx, "borrower-1", "lender-1"); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := svc.UpdateConsent(ctx, "borrower-1", "hash-2", now.Unix()+60); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	lenders, err := svc.GetAuthorizedLenders(ctx, "borrower-1", "borrower-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(lenders) != 1 || lenders[0] != "lender-1" {
		t.Fatalf("lender list lost on consent overwrite: %v", lenders)
	}
}

func TestGrantAndRevokeLenderAccess(t *testing.T) {
	_, _, svc := newTestService(t)
	ctx := context.Background()

	if err := svc.GrantLenderAccess(ctx, "borrower-1", "lender-1"); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := svc.GrantLenderAccess(ctx, "borrower-1", "lender-1"); !errors.Is(err, ledger.ErrState) {
		t.Fatalf("duplicate grant should fail, got %v", err)
	}
	if err := svc.RevokeLenderAccess(ctx, "borrower-1", "lender-2"); !errors.Is(err, ledger.ErrState) {
		t.Fatalf("revoking ungranted should fail, got %v", err)
	}
	if err := svc.RevokeLenderAccess(ctx, "borrower-1", "lender-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	lenders, _ := svc.GetAuthorizedLenders(ctx, "borrower-1", "borrower-1")
	if len(lenders) != 0 {
		t.Fatalf("expected empty list, got %v", lenders)
	}
}

func TestFactorsValidation(t *testing.T) {
	_, _, svc := newTestService(t)
	ctx := context.Background()

	bad := Factors{PaymentHistory: 101}
	if err := svc.UpdateScoreFactors(ctx, "oracle-1", "borrower-1", bad); !errors.Is(err, ledger.ErrValidation) {
		t.Fatalf("expected factor_out_of_range, got %v", err)
	}
	good := Factors{PaymentHistory: 80, CreditUtilization: 40, HistoryLength: 100, CreditMix: 0, NewCredit: 20}
	if err := svc.UpdateScoreFactors(ctx, "oracle-1", "borrower-1", good); err != nil {
		t.Fatalf("valid factors rejected: %v", err)
	}
	got, err := svc.GetScoreFactors(ctx, "borrower-1", "borrower-1")
	if err != nil {
		t.Fatalf("get factors: %v", err)
	}
	if *got != good {
		t.Fatalf("factors round trip mismatch: %+v", got)
	}
}

func TestScoreWithinUnknownBorrower(t *testing.T) {
	rt, _, svc := newTestService(t)
	err := rt.Exec(func(tx *ledger.Tx) error {
		_, err := svc.ScoreWithin(tx, "nobody")
		return err
	})
	if !errors.Is(err, ledger.ErrState) {
		t.Fatalf("expected no_active_score, got %v", err)
	}
}
