package creditscore

import (
	"context"

	"github.com/AritraDas07/Credit-Chain-Pro/internal/domain/access"
	"github.com/AritraDas07/Credit-Chain-Pro/internal/ledger"
)

// Service is the credit score registry: the score arena keyed by identity,
// with factor breakdowns and consent as secondary records per identity.
type Service struct {
	rt     *ledger.Runtime
	roles  *access.Registry
	scores map[ledger.Identity]*Score
	// factors and consents exist only for identities that set them.
	factors  map[ledger.Identity]*Factors
	consents map[ledger.Identity]*Consent
}

func NewService(rt *ledger.Runtime, roles *access.Registry) *Service {
	return &Service{
		rt:       rt,
		roles:    roles,
		scores:   map[ledger.Identity]*Score{},
		factors:  map[ledger.Identity]*Factors{},
		consents: map[ledger.Identity]*Consent{},
	}
}

// UpdateScore sets the score for identity. Oracle only; the version bumps on
// every update, never resets.
func (s *Service) UpdateScore(_ context.Context, caller, identity ledger.Identity, score int32) error {
	return s.rt.Exec(func(tx *ledger.Tx) error {
		if err := s.roles.Require(caller, access.RoleOracle); err != nil {
			return err
		}
		return s.writeScore(tx, caller, identity, score)
	})
}

func (s *Service) writeScore(tx *ledger.Tx, issuer, identity ledger.Identity, score int32) error {
	if identity.IsZero() {
		return ledger.Validation("empty_identity")
	}
	if score < MinScore || score > MaxScore {
		return ledger.Validation("score_out_of_range")
	}
	entry := s.scores[identity]
	if entry == nil {
		entry = &Score{Identity: identity}
		s.scores[identity] = entry
	}
	entry.Score = score
	entry.Version++
	entry.LastUpdated = tx.At
	entry.Issuer = issuer
	entry.Active = true
	tx.Emit("score_updated", map[string]any{
		"identity": string(identity),
		"score":    score,
		"version":  entry.Version,
		"issuer":   string(issuer),
	})
	return nil
}

// UpdateScoreFactors sets the five-way breakdown. Oracle only; every value
// must be at most 100.
func (s *Service) UpdateScoreFactors(_ context.Context, caller, identity ledger.Identity, f Factors) error {
	return s.rt.Exec(func(tx *ledger.Tx) error {
		if err := s.roles.Require(caller, access.RoleOracle); err != nil {
			return err
		}
		if identity.IsZero() {
			return ledger.Validation("empty_identity")
		}
		for _, v := range []uint32{f.PaymentHistory, f.CreditUtilization, f.HistoryLength, f.CreditMix, f.NewCredit} {
			if v > MaxFactorValue {
				return ledger.Validation("factor_out_of_range")
			}
		}
		cp := f
		s.factors[identity] = &cp
		tx.Emit("score_factors_updated", map[string]any{"identity": string(identity)})
		return nil
	})
}

// BatchUpdateScores applies up to 100 score updates as a unit: every entry is
// validated before the first write, so an invalid entry aborts the whole
// batch with no state change.
func (s *Service) BatchUpdateScores(_ context.Context, caller ledger.Identity, entries []BatchScoreEntry) error {
	return s.rt.Exec(func(tx *ledger.Tx) error {
		if err := s.roles.Require(caller, access.RoleOracle); err != nil {
			return err
		}
		if len(entries) == 0 {
			return ledger.Validation("empty_batch")
		}
		if len(entries) > MaxBatchSize {
			return ledger.Validation("batch_too_large")
		}
		for _, e := range entries {
			if e.Identity.IsZero() {
				return ledger.Validation("empty_identity")
			}
			if e.Score < MinScore || e.Score > MaxScore {
				return ledger.Validation("score_out_of_range")
			}
		}
		for _, e := range entries {
			if err := s.writeScore(tx, caller, e.Identity, e.Score); err != nil {
				return err
			}
		}
		tx.Emit("scores_batch_updated", map[string]any{"count": len(entries), "issuer": string(caller)})
		return nil
	})
}

// GetScore returns the current score for identity. Readable by the identity
// itself, any lender-role holder, or an explicitly authorized lender.
func (s *Service) GetScore(_ context.Context, caller, identity ledger.Identity) (*Score, error) {
	var out *Score
	err := s.rt.Exec(func(tx *ledger.Tx) error {
		if err := s.authorizeRead(caller, identity); err != nil {
			return err
		}
		entry, err := s.activeScore(identity)
		if err != nil {
			return err
		}
		cp := *entry
		out = &cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetScoreDetails returns the score with its factor breakdown and consent.
func (s *Service) GetScoreDetails(_ context.Context, caller, identity ledger.Identity) (*ScoreDetails, error) {
	var out *ScoreDetails
	err := s.rt.Exec(func(tx *ledger.Tx) error {
		if err := s.authorizeRead(caller, identity); err != nil {
			return err
		}
		entry, err := s.activeScore(identity)
		if err != nil {
			return err
		}
		details := &ScoreDetails{Score: *entry}
		if f := s.factors[identity]; f != nil {
			cp := *f
			details.Factors = &cp
		}
		if c := s.consents[identity]; c != nil {
			details.Consent = copyConsent(c)
		}
		out = details
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetScoreFactors returns only the factor breakdown.
func (s *Service) GetScoreFactors(_ context.Context, caller, identity ledger.Identity) (*Factors, error) {
	var out *Factors
	err := s.rt.Exec(func(tx *ledger.Tx) error {
		if err := s.authorizeRead(caller, identity); err != nil {
			return err
		}
		f := s.factors[identity]
		if f == nil {
			return ledger.State("no_score_factors")
		}
		cp := *f
		out = &cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateConsent overwrites the caller's consent record. Self-service; expiry
// must be strictly in the future. No consent history is kept.
func (s *Service) UpdateConsent(_ context.Context, caller ledger.Identity, dataHash string, expiry int64) error {
	return s.rt.Exec(func(tx *ledger.Tx) error {
		if caller.IsZero() {
			return ledger.Unauthorized("missing_identity")
		}
		if dataHash == "" {
			return ledger.Validation("empty_data_hash")
		}
		if expiry <= tx.At.Unix() {
			return ledger.Validation("expiry_not_future")
		}
		c := s.consents[caller]
		if c == nil {
			c = &Consent{}
			s.consents[caller] = c
		}
		c.DataHash = dataHash
		c.Expiry = unixTime(expiry)
		tx.Emit("consent_updated", map[string]any{"identity": string(caller), "expiry": expiry})
		return nil
	})
}

// GrantLenderAccess authorizes lender to read the caller's score. Fails if
// the grant already exists.
func (s *Service) GrantLenderAccess(_ context.Context, caller, lender ledger.Identity) error {
	return s.rt.Exec(func(tx *ledger.Tx) error {
		if caller.IsZero() {
			return ledger.Unauthorized("missing_identity")
		}
		if lender.IsZero() {
			return ledger.Validation("empty_lender")
		}
		c := s.consents[caller]
		if c == nil {
			c = &Consent{}
			s.consents[caller] = c
		}
		for _, existing := range c.AuthorizedLenders {
			if existing == lender {
				return ledger.State("access_already_granted")
			}
		}
		c.AuthorizedLenders = append(c.AuthorizedLenders, lender)
		tx.Emit("lender_access_granted", map[string]any{"identity": string(caller), "lender": string(lender)})
		return nil
	})
}

// RevokeLenderAccess removes a prior grant via swap-and-truncate, so the
// list order is not preserved. Fails if no grant exists.
func (s *Service) RevokeLenderAccess(_ context.Context, caller, lender ledger.Identity) error {
	return s.rt.Exec(func(tx *ledger.Tx) error {
		if caller.IsZero() {
			return ledger.Unauthorized("missing_identity")
		}
		c := s.consents[caller]
		if c == nil {
			return ledger.State("access_not_granted")
		}
		for i, existing := range c.AuthorizedLenders {
			if existing != lender {
				continue
			}
			last := len(c.AuthorizedLenders) - 1
			c.AuthorizedLenders[i] = c.AuthorizedLenders[last]
			c.AuthorizedLenders = c.AuthorizedLenders[:last]
			tx.Emit("lender_access_revoked", map[string]any{"identity": string(caller), "lender": string(lender)})
			return nil
		}
		return ledger.State("access_not_granted")
	})
}

// IsConsentValid reports whether identity has a live, unexpired consent.
func (s *Service) IsConsentValid(_ context.Context, identity ledger.Identity) (bool, error) {
	valid := false
	err := s.rt.Exec(func(tx *ledger.Tx) error {
		c := s.consents[identity]
		valid = c != nil && c.DataHash != "" && c.Expiry.After(tx.At)
		return nil
	})
	return valid, err
}

// GetAuthorizedLenders lists the lenders identity has granted access to.
// Self or admin only.
func (s *Service) GetAuthorizedLenders(_ context.Context, caller, identity ledger.Identity) ([]ledger.Identity, error) {
	var out []ledger.Identity
	err := s.rt.Exec(func(tx *ledger.Tx) error {
		if caller != identity && !s.roles.Has(caller, access.RoleAdmin) {
			return ledger.Unauthorized("not_self_or_admin")
		}
		if c := s.consents[identity]; c != nil {
			out = append([]ledger.Identity{}, c.AuthorizedLenders...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ScoreWithin reads the active score for borrower inside an already-open
// transaction. The lender portal uses it for synchronous decisioning; the
// caller did its own lender authorization.
func (s *Service) ScoreWithin(tx *ledger.Tx, borrower ledger.Identity) (int32, error) {
	entry, err := s.activeScore(borrower)
	if err != nil {
		return 0, err
	}
	return entry.Score, nil
}

func (s *Service) authorizeRead(caller, identity ledger.Identity) error {
	if caller.IsZero() {
		return ledger.Unauthorized("missing_identity")
	}
	if caller == identity {
		return nil
	}
	if s.roles.Has(caller, access.RoleLender) {
		return nil
	}
	if c := s.consents[identity]; c != nil {
		for _, lender := range c.AuthorizedLenders {
			if lender == caller {
				return nil
			}
		}
	}
	return ledger.Unauthorized("score_access_denied")
}

func (s *Service) activeScore(identity ledger.Identity) (*Score, error) {
	entry := s.scores[identity]
	if entry == nil || !entry.Active {
		return nil, ledger.State("no_active_score")
	}
	return entry, nil
}

func copyConsent(c *Consent) *Consent {
	cp := *c
	cp.AuthorizedLenders = append([]ledger.Identity{}, c.AuthorizedLenders...)
	return &cp
}
