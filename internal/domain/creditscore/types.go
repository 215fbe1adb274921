package creditscore

import (
	"time"

	"github.com/AritraDas07/Credit-Chain-Pro/internal/ledger"
)

const (
	MinScore = 300
	MaxScore = 850

	MaxFactorValue = 100
	MaxBatchSize   = 100
)

type Score struct {
	Identity    ledger.Identity `json:"identity"`
	Score       int32           `json:"score"`
	Version     uint64          `json:"version"`
	LastUpdated time.Time       `json:"last_updated"`
	Issuer      ledger.Identity `json:"issuer"`
	Active      bool            `json:"active"`
}

// Factors is the five-way sub-score breakdown, each value in [0,100].
type Factors struct {
	PaymentHistory    uint32 `json:"payment_history"`
	CreditUtilization uint32 `json:"credit_utilization"`
	HistoryLength     uint32 `json:"history_length"`
	CreditMix         uint32 `json:"credit_mix"`
	NewCredit         uint32 `json:"new_credit"`
}

// Consent is the single live consent record per identity. UpdateConsent
// overwrites data hash and expiry in place; the authorized-lender relation is
// mutated by the grant/revoke operations and survives a consent refresh.
type Consent struct {
	DataHash          string            `json:"data_hash"`
	Expiry            time.Time         `json:"expiry"`
	AuthorizedLenders []ledger.Identity `json:"authorized_lenders"`
}

type ScoreDetails struct {
	Score   Score    `json:"score"`
	Factors *Factors `json:"factors,omitempty"`
	Consent *Consent `json:"consent,omitempty"`
}

type BatchScoreEntry struct {
	Identity ledger.Identity `json:"identity"`
	Score    int32           `json:"score"`
}

func unixTime(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}
