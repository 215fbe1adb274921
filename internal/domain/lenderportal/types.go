package lenderportal

import (
	"time"

	"github.com/AritraDas07/Credit-Chain-Pro/internal/ledger"
)

const MaxBatchSize = 100

// API access tiers and their request quotas per window.
const (
	TierBasic      = "basic"
	TierPremium    = "premium"
	TierEnterprise = "enterprise"
)

var tierQuotas = map[string]uint32{
	TierBasic:      100,
	TierPremium:    1000,
	TierEnterprise: 10000,
}

// Decision is the tagged outcome of credit decisioning. A failed score
// lookup is a first-class outcome, not an error.
type Decision string

const (
	DecisionApproved        Decision = "Approved"
	DecisionPartialApproved Decision = "PartialApproved"
	DecisionDenied          Decision = "Denied"
	DecisionNoHistory       Decision = "NoHistory"
)

type RiskTier string

const (
	RiskLow       RiskTier = "LowRisk"
	RiskMedium    RiskTier = "MediumRisk"
	RiskHigh      RiskTier = "HighRisk"
	RiskNoHistory RiskTier = "NoCreditHistory"
)

// LenderInfo is one lender registration. Approval is monotonic: a lender can
// be deactivated after approval but never returned to pending.
type LenderInfo struct {
	Identity       ledger.Identity `json:"identity"`
	Company        string          `json:"company"`
	License        string          `json:"license"`
	Approved       bool            `json:"approved"`
	Active         bool            `json:"active"`
	TotalRequests  uint64          `json:"total_requests"`
	TotalApproved  uint64          `json:"total_approved"`
	Regions        []string        `json:"regions"`
	CreditLimit    int64           `json:"credit_limit"`
	BaseRateBps    int32           `json:"base_rate_bps"`
	RegisteredAt   time.Time       `json:"registered_at"`
	ApprovedAt     *time.Time      `json:"approved_at,omitempty"`
	DeactivatedAt  *time.Time      `json:"deactivated_at,omitempty"`
	RegistrationID uint64          `json:"registration_id"`
}

type RegisterInput struct {
	Company     string   `json:"company"`
	License     string   `json:"license"`
	Regions     []string `json:"regions"`
	CreditLimit int64    `json:"credit_limit"`
	BaseRateBps int32    `json:"base_rate_bps"`
}

// CreditRequest is immutable once processed.
type CreditRequest struct {
	ID             uint64          `json:"id"`
	BatchID        uint64          `json:"batch_id,omitempty"`
	Lender         ledger.Identity `json:"lender"`
	Borrower       ledger.Identity `json:"borrower"`
	Amount         int64           `json:"amount"`
	Processed      bool            `json:"processed"`
	Approved       bool            `json:"approved"`
	ScoreSnapshot  int32           `json:"score_snapshot"`
	RiskTier       RiskTier        `json:"risk_tier"`
	Decision       Decision        `json:"decision"`
	ApprovedAmount int64           `json:"approved_amount"`
	RateBps        int32           `json:"rate_bps"`
	ProcessedAt    time.Time       `json:"processed_at"`
}

// APIAccessGrant is a lender's quota window. Used never exceeds Quota; the
// window resets lazily when a submission arrives past ResetAt.
type APIAccessGrant struct {
	Tier    string    `json:"tier"`
	Quota   uint32    `json:"quota"`
	Used    uint32    `json:"used"`
	ResetAt time.Time `json:"reset_at"`
}

func unix(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

type BatchRequest struct {
	ID             uint64          `json:"id"`
	Lender         ledger.Identity `json:"lender"`
	RequestIDs     []uint64        `json:"request_ids"`
	ProcessedCount int             `json:"processed_count"`
	SubmittedAt    time.Time       `json:"submitted_at"`
}
