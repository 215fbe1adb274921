package lenderportal

import (
	"context"
	"strings"

	"github.com/AritraDas07/Credit-Chain-Pro/internal/domain/access"
	"github.com/AritraDas07/Credit-Chain-Pro/internal/ledger"
)

const (
	accessWindow = 30 * 24 * 3600 // seconds

	scoreFullApproval = 700
	scorePartialFloor = 650

	partialRatePenaltyBps = 200
)

// ScoreSource reads a borrower's active score inside an open transaction.
// The credit score registry implements it.
type ScoreSource interface {
	ScoreWithin(tx *ledger.Tx, borrower ledger.Identity) (int32, error)
}

// ValueWriter moves settled value out of the portal's fee account.
type ValueWriter interface {
	Transfer(ctx context.Context, from, to string, amountMinor int64) (string, error)
}

const feeAccount = "portal:fees"

// Service is the lender portal: lender lifecycle, API quotas, and synchronous
// credit-request decisioning against the score registry.
type Service struct {
	rt     *ledger.Runtime
	roles  *access.Registry
	scores ScoreSource
	writer ValueWriter

	lenders  map[ledger.Identity]*LenderInfo
	grants   map[ledger.Identity]*APIAccessGrant
	requests map[uint64]*CreditRequest
	batches  map[uint64]*BatchRequest

	registrationFee int64
	requestFee      int64
	collectedFees   int64
}

func NewService(rt *ledger.Runtime, roles *access.Registry, scores ScoreSource, writer ValueWriter, registrationFee, requestFee int64) *Service {
	return &Service{
		rt:              rt,
		roles:           roles,
		scores:          scores,
		writer:          writer,
		lenders:         map[ledger.Identity]*LenderInfo{},
		grants:          map[ledger.Identity]*APIAccessGrant{},
		requests:        map[uint64]*CreditRequest{},
		batches:         map[uint64]*BatchRequest{},
		registrationFee: registrationFee,
		requestFee:      requestFee,
	}
}

// RegisterLender registers the caller as a pending lender. One registration
// per identity; the attached payment must cover the registration fee.
func (s *Service) RegisterLender(_ context.Context, caller ledger.Identity, in RegisterInput, payment int64) (*LenderInfo, error) {
	var out *LenderInfo
	err := s.rt.Exec(func(tx *ledger.Tx) error {
		return tx.NonReentrant("lenderportal:register", func() error {
			if caller.IsZero() {
				return ledger.Unauthorized("missing_identity")
			}
			if s.lenders[caller] != nil {
				return ledger.State("lender_already_registered")
			}
			if strings.TrimSpace(in.Company) == "" || strings.TrimSpace(in.License) == "" {
				return ledger.Validation("empty_company_or_license")
			}
			if in.CreditLimit <= 0 || in.BaseRateBps <= 0 {
				return ledger.Validation("invalid_limit_or_rate")
			}
			if payment < s.registrationFee {
				return ledger.Resource("insufficient_registration_fee")
			}

			info := &LenderInfo{
				Identity:       caller,
				Company:        strings.TrimSpace(in.Company),
				License:        strings.TrimSpace(in.License),
				Active:         true,
				Regions:        append([]string{}, in.Regions...),
				CreditLimit:    in.CreditLimit,
				BaseRateBps:    in.BaseRateBps,
				RegisteredAt:   tx.At,
				RegistrationID: tx.NextID("lender_registration"),
			}
			s.lenders[caller] = info
			s.collectedFees += payment
			s.roles.SystemGrant(tx, caller, access.RoleLender)
			tx.Emit("lender_registered", map[string]any{
				"lender":  string(caller),
				"company": info.Company,
			})
			out = info
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ApproveLender moves a pending lender to approved. Admin only; approving an
// already-approved lender is a state error, the transition is terminal.
func (s *Service) ApproveLender(_ context.Context, caller, lender ledger.Identity) error {
	return s.rt.Exec(func(tx *ledger.Tx) error {
		if err := s.roles.Require(caller, access.RoleAdmin); err != nil {
			return err
		}
		info := s.lenders[lender]
		if info == nil {
			return ledger.State("lender_not_registered")
		}
		if info.Approved {
			return ledger.State("lender_already_approved")
		}
		info.Approved = true
		at := tx.At
		info.ApprovedAt = &at
		s.roles.SystemGrant(tx, lender, access.RoleApprovedLender)
		tx.Emit("lender_approved", map[string]any{"lender": string(lender), "approved_by": string(caller)})
		return nil
	})
}

// DeactivateLender suspends a lender. Admin only. Approval stays on record.
func (s *Service) DeactivateLender(_ context.Context, caller, lender ledger.Identity) error {
	return s.rt.Exec(func(tx *ledger.Tx) error {
		if err := s.roles.Require(caller, access.RoleAdmin); err != nil {
			return err
		}
		info := s.lenders[lender]
		if info == nil {
			return ledger.State("lender_not_registered")
		}
		if !info.Active {
			return ledger.State("lender_already_deactivated")
		}
		info.Active = false
		at := tx.At
		info.DeactivatedAt = &at
		tx.Emit("lender_deactivated", map[string]any{"lender": string(lender)})
		return nil
	})
}

// ReactivateLender restores a suspended lender. Admin only.
func (s *Service) ReactivateLender(_ context.Context, caller, lender ledger.Identity) error {
	return s.rt.Exec(func(tx *ledger.Tx) error {
		if err := s.roles.Require(caller, access.RoleAdmin); err != nil {
			return err
		}
		info := s.lenders[lender]
		if info == nil {
			return ledger.State("lender_not_registered")
		}
		if info.Active {
			return ledger.State("lender_already_active")
		}
		info.Active = true
		info.DeactivatedAt = nil
		tx.Emit("lender_reactivated", map[string]any{"lender": string(lender)})
		return nil
	})
}

// RequestAPIAccess issues a fresh quota window for the tier, resetting usage.
// Approved, active lenders only.
func (s *Service) RequestAPIAccess(_ context.Context, caller ledger.Identity, tier string) (*APIAccessGrant, error) {
	var out *APIAccessGrant
	err := s.rt.Exec(func(tx *ledger.Tx) error {
		if _, err := s.approvedLender(caller); err != nil {
			return err
		}
		quota, ok := tierQuotas[strings.ToLower(strings.TrimSpace(tier))]
		if !ok {
			return ledger.Validation("unknown_tier")
		}
		grant := &APIAccessGrant{
			Tier:    strings.ToLower(strings.TrimSpace(tier)),
			Quota:   quota,
			Used:    0,
			ResetAt: unix(tx.At.Unix() + accessWindow),
		}
		s.grants[caller] = grant
		tx.Emit("api_access_granted", map[string]any{"lender": string(caller), "tier": grant.Tier, "quota": quota})
		cp := *grant
		out = &cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitCreditRequest records and synchronously decisions one credit request.
// The attached payment must cover the per-request fee, and the lender's quota
// window must have headroom after a lazy reset.
func (s *Service) SubmitCreditRequest(_ context.Context, caller, borrower ledger.Identity, amount, payment int64) (*CreditRequest, error) {
	var out *CreditRequest
	err := s.rt.Exec(func(tx *ledger.Tx) error {
		return tx.NonReentrant("lenderportal:submit", func() error {
			info, err := s.approvedLender(caller)
			if err != nil {
				return err
			}
			if borrower.IsZero() {
				return ledger.Validation("empty_borrower")
			}
			if amount <= 0 {
				return ledger.Validation("invalid_amount")
			}
			if payment < s.requestFee {
				return ledger.Resource("insufficient_request_fee")
			}
			if err := s.consumeQuota(tx, caller, 1); err != nil {
				return err
			}
			s.collectedFees += payment

			req := s.decision(tx, info, borrower, amount)
			s.requests[req.ID] = req
			info.TotalRequests++
			if req.Approved {
				info.TotalApproved++
			}
			tx.Emit("credit_request_processed", map[string]any{
				"request_id": req.ID,
				"lender":     string(caller),
				"borrower":   string(borrower),
				"decision":   string(req.Decision),
				"risk_tier":  string(req.RiskTier),
			})
			cp := *req
			out = &cp
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitBatchRequest decisions up to 100 borrower/amount pairs. The whole
// batch is validated before any write; on failure no request record exists.
func (s *Service) SubmitBatchRequest(_ context.Context, caller ledger.Identity, borrowers []ledger.Identity, amounts []int64, payment int64) (*BatchRequest, error) {
	var out *BatchRequest
	err := s.rt.Exec(func(tx *ledger.Tx) error {
		return tx.NonReentrant("lenderportal:submit", func() error {
			info, err := s.approvedLender(caller)
			if err != nil {
				return err
			}
			if len(borrowers) != len(amounts) {
				return ledger.Validation("length_mismatch")
			}
			if len(borrowers) == 0 {
				return ledger.Validation("empty_batch")
			}
			if len(borrowers) > MaxBatchSize {
				return ledger.Validation("batch_too_large")
			}
			for i := range borrowers {
				if borrowers[i].IsZero() {
					return ledger.Validation("empty_borrower")
				}
				if amounts[i] <= 0 {
					return ledger.Validation("invalid_amount")
				}
			}
			if payment < s.requestFee*int64(len(borrowers)) {
				return ledger.Resource("insufficient_request_fee")
			}
			if err := s.consumeQuota(tx, caller, uint32(len(borrowers))); err != nil {
				return err
			}
			s.collectedFees += payment

			batch := &BatchRequest{
				ID:          tx.NextID("batch_request"),
				Lender:      caller,
				SubmittedAt: tx.At,
			}
			for i := range borrowers {
				req := s.decision(tx, info, borrowers[i], amounts[i])
				req.BatchID = batch.ID
				s.requests[req.ID] = req
				info.TotalRequests++
				if req.Approved {
					info.TotalApproved++
				}
				batch.RequestIDs = append(batch.RequestIDs, req.ID)
				batch.ProcessedCount++
			}
			s.batches[batch.ID] = batch
			tx.Emit("batch_processed", map[string]any{
				"batch_id": batch.ID,
				"lender":   string(caller),
				"count":    batch.ProcessedCount,
			})
			cp := *batch
			cp.RequestIDs = append([]uint64{}, batch.RequestIDs...)
			out = &cp
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// decision applies the deterministic auto-decisioning rules. A registry
// lookup failure is a denial with the NoCreditHistory tier, never an abort.
func (s *Service) decision(tx *ledger.Tx, info *LenderInfo, borrower ledger.Identity, amount int64) *CreditRequest {
	req := &CreditRequest{
		ID:          tx.NextID("credit_request"),
		Lender:      info.Identity,
		Borrower:    borrower,
		Amount:      amount,
		Processed:   true,
		ProcessedAt: tx.At,
	}

	score, err := s.scores.ScoreWithin(tx, borrower)
	if err != nil {
		req.Decision = DecisionNoHistory
		req.RiskTier = RiskNoHistory
		return req
	}

	req.ScoreSnapshot = score
	switch {
	case score >= scoreFullApproval:
		req.Approved = true
		req.Decision = DecisionApproved
		req.RiskTier = RiskLow
		req.ApprovedAmount = amount
		req.RateBps = info.BaseRateBps
	case score >= scorePartialFloor:
		req.Approved = true
		req.Decision = DecisionPartialApproved
		req.RiskTier = RiskMedium
		req.ApprovedAmount = amount / 2
		req.RateBps = info.BaseRateBps + partialRatePenaltyBps
	default:
		req.Decision = DecisionDenied
		req.RiskTier = RiskHigh
	}
	return req
}

func (s *Service) consumeQuota(tx *ledger.Tx, lender ledger.Identity, n uint32) error {
	grant := s.grants[lender]
	if grant == nil {
		return ledger.Resource("no_api_access")
	}
	if !tx.At.Before(grant.ResetAt) {
		grant.Used = 0
		grant.ResetAt = unix(tx.At.Unix() + accessWindow)
	}
	if grant.Used+n > grant.Quota {
		return ledger.Resource("quota_exceeded")
	}
	grant.Used += n
	return nil
}

// GetLender returns a lender's public registration record.
func (s *Service) GetLender(_ context.Context, lender ledger.Identity) (*LenderInfo, error) {
	var out *LenderInfo
	err := s.rt.Exec(func(tx *ledger.Tx) error {
		info := s.lenders[lender]
		if info == nil {
			return ledger.State("lender_not_registered")
		}
		cp := *info
		cp.Regions = append([]string{}, info.Regions...)
		out = &cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetRequest returns one credit request; requester lender, borrower, or
// admin only.
func (s *Service) GetRequest(_ context.Context, caller ledger.Identity, id uint64) (*CreditRequest, error) {
	var out *CreditRequest
	err := s.rt.Exec(func(tx *ledger.Tx) error {
		req := s.requests[id]
		if req == nil {
			return ledger.State("request_not_found")
		}
		if caller != req.Lender && caller != req.Borrower && !s.roles.Has(caller, access.RoleAdmin) {
			return ledger.Unauthorized("request_access_denied")
		}
		cp := *req
		out = &cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetBatch returns a batch with its request ids; submitting lender or admin.
func (s *Service) GetBatch(_ context.Context, caller ledger.Identity, id uint64) (*BatchRequest, error) {
	var out *BatchRequest
	err := s.rt.Exec(func(tx *ledger.Tx) error {
		batch := s.batches[id]
		if batch == nil {
			return ledger.State("batch_not_found")
		}
		if caller != batch.Lender && !s.roles.Has(caller, access.RoleAdmin) {
			return ledger.Unauthorized("batch_access_denied")
		}
		cp := *batch
		cp.RequestIDs = append([]uint64{}, batch.RequestIDs...)
		out = &cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// QuotaStatus returns the caller's current quota window, with the lazy reset
// applied read-only.
func (s *Service) QuotaStatus(_ context.Context, caller ledger.Identity) (*APIAccessGrant, error) {
	var out *APIAccessGrant
	err := s.rt.Exec(func(tx *ledger.Tx) error {
		grant := s.grants[caller]
		if grant == nil {
			return ledger.State("no_api_access")
		}
		cp := *grant
		if !tx.At.Before(cp.ResetAt) {
			cp.Used = 0
			cp.ResetAt = unix(tx.At.Unix() + accessWindow)
		}
		out = &cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetRegistrationFee updates the lender registration fee. Admin only.
func (s *Service) SetRegistrationFee(_ context.Context, caller ledger.Identity, fee int64) error {
	return s.rt.Exec(func(tx *ledger.Tx) error {
		if err := s.roles.Require(caller, access.RoleAdmin); err != nil {
			return err
		}
		if fee < 0 {
			return ledger.Validation("negative_fee")
		}
		s.registrationFee = fee
		tx.Emit("registration_fee_updated", map[string]any{"fee": fee})
		return nil
	})
}

// SetRequestFee updates the per-request fee. Admin only.
func (s *Service) SetRequestFee(_ context.Context, caller ledger.Identity, fee int64) error {
	return s.rt.Exec(func(tx *ledger.Tx) error {
		if err := s.roles.Require(caller, access.RoleAdmin); err != nil {
			return err
		}
		if fee < 0 {
			return ledger.Validation("negative_fee")
		}
		s.requestFee = fee
		tx.Emit("request_fee_updated", map[string]any{"fee": fee})
		return nil
	})
}

// WithdrawFees settles the collected fee balance to the admin caller.
func (s *Service) WithdrawFees(ctx context.Context, caller ledger.Identity) (int64, error) {
	var amount int64
	err := s.rt.Exec(func(tx *ledger.Tx) error {
		return tx.NonReentrant("lenderportal:withdraw", func() error {
			if err := s.roles.Require(caller, access.RoleAdmin); err != nil {
				return err
			}
			if s.collectedFees == 0 {
				return ledger.Resource("no_fees_collected")
			}
			amount = s.collectedFees
			if _, err := s.writer.Transfer(ctx, feeAccount, string(caller), amount); err != nil {
				return err
			}
			s.collectedFees = 0
			tx.Emit("fees_withdrawn", map[string]any{"amount": amount, "to": string(caller)})
			return nil
		})
	})
	if err != nil {
		return 0, err
	}
	return amount, nil
}

func (s *Service) approvedLender(caller ledger.Identity) (*LenderInfo, error) {
	if err := s.roles.Require(caller, access.RoleApprovedLender); err != nil {
		return nil, err
	}
	info := s.lenders[caller]
	if info == nil {
		return nil, ledger.State("lender_not_registered")
	}
	if !info.Approved {
		return nil, ledger.State("lender_not_approved")
	}
	if !info.Active {
		return nil, ledger.State("lender_deactivated")
	}
	return info, nil
}
