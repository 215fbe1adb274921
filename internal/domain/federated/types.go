package federated

import (
	"time"

	"github.com/AritraDas07/Credit-Chain-Pro/internal/ledger"
)

const (
	InitialReputation = 100
	MaxAccuracy       = 10000

	reputationReward  = 10
	reputationPenalty = 20
)

type NodeInfo struct {
	Identity         ledger.Identity `json:"identity"`
	Reputation       int32           `json:"reputation"`
	Contributions    uint64          `json:"contributions"`
	SuccessfulRounds uint64          `json:"successful_rounds"`
	Rewards          int64           `json:"rewards"`
	Active           bool            `json:"active"`
	RegisteredAt     time.Time       `json:"registered_at"`
}

// TrainingRound is one bounded contribution window. Active means not yet
// aggregated; whether it accepts updates depends on the deadline, checked
// lazily against the transaction timestamp.
type TrainingRound struct {
	ID                  uint64    `json:"id"`
	Start               time.Time `json:"start"`
	End                 time.Time `json:"end"`
	MinParticipants     uint32    `json:"min_participants"`
	MaxParticipants     uint32    `json:"max_participants"`
	CurrentParticipants uint32    `json:"current_participants"`
	RewardPool          int64     `json:"reward_pool"`
	Active              bool      `json:"active"`
}

type ModelUpdate struct {
	Node         ledger.Identity `json:"node"`
	Round        uint64          `json:"round"`
	UpdateHash   string          `json:"update_hash"`
	GradientHash string          `json:"gradient_hash"`
	Validated    bool            `json:"validated"`
	Stake        int64           `json:"stake"`
	SubmittedAt  time.Time       `json:"submitted_at"`
}

type AggregatedModel struct {
	Round            uint64    `json:"round"`
	ModelHash        string    `json:"model_hash"`
	Accuracy         uint32    `json:"accuracy"`
	ParticipantCount uint32    `json:"participant_count"`
	Active           bool      `json:"active"`
	AggregatedAt     time.Time `json:"aggregated_at"`
}

type updateKey struct {
	round uint64
	node  ledger.Identity
}
