package federated

import (
	"context"
	"strings"
	"time"

	"github.com/AritraDas07/Credit-Chain-Pro/internal/blockchain"
	"github.com/AritraDas07/Credit-Chain-Pro/internal/domain/access"
	"github.com/AritraDas07/Credit-Chain-Pro/internal/ledger"
)

// ValueWriter settles pool reservations, stake custody, slashing forfeits,
// and reward payouts on the value ledger. Reward payouts go out as one
// batch so either every participant is paid or none is.
type ValueWriter interface {
	Transfer(ctx context.Context, from, to string, amountMinor int64) (string, error)
	TransferBatch(ctx context.Context, legs []blockchain.TransferLeg) (string, error)
}

const (
	poolAccount     = "federated:pool"
	stakeAccount    = "federated:stakes"
	treasuryAccount = "federated:treasury"
)

// Service coordinates staking-based training rounds: submissions, validation
// with slashing, aggregation, and reward distribution.
type Service struct {
	rt     *ledger.Runtime
	roles  *access.Registry
	writer ValueWriter

	nodes        map[ledger.Identity]*NodeInfo
	rounds       map[uint64]*TrainingRound
	updates      map[updateKey]*ModelUpdate
	roundUpdates map[uint64][]*ModelUpdate
	reviewed     map[updateKey]struct{}
	models       map[uint64]*AggregatedModel

	currentRoundID  uint64
	activeModel     uint64
	completedRounds uint64
	minStake        int64
	heldBalance     int64
}

func NewService(rt *ledger.Runtime, roles *access.Registry, writer ValueWriter, minStake int64) *Service {
	return &Service{
		rt:           rt,
		roles:        roles,
		writer:       writer,
		nodes:        map[ledger.Identity]*NodeInfo{},
		rounds:       map[uint64]*TrainingRound{},
		updates:      map[updateKey]*ModelUpdate{},
		roundUpdates: map[uint64][]*ModelUpdate{},
		reviewed:     map[updateKey]struct{}{},
		models:       map[uint64]*AggregatedModel{},
		minStake:     minStake,
	}
}

// RegisterNode registers the caller as a training node, once, with the
// starting reputation.
func (s *Service) RegisterNode(_ context.Context, caller ledger.Identity) (*NodeInfo, error) {
	var out *NodeInfo
	err := s.rt.Exec(func(tx *ledger.Tx) error {
		if caller.IsZero() {
			return ledger.Unauthorized("missing_identity")
		}
		if s.nodes[caller] != nil {
			return ledger.State("node_already_registered")
		}
		node := &NodeInfo{
			Identity:     caller,
			Reputation:   InitialReputation,
			Active:       true,
			RegisteredAt: tx.At,
		}
		s.nodes[caller] = node
		tx.Emit("node_registered", map[string]any{"node": string(caller)})
		cp := *node
		out = &cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// StartTrainingRound opens a new round. Aggregator only; fails while a round
// is still active, and reserves the reward pool up front.
func (s *Service) StartTrainingRound(ctx context.Context, caller ledger.Identity, duration time.Duration, minParticipants, maxParticipants uint32, rewardPool int64) (*TrainingRound, error) {
	var out *TrainingRound
	err := s.rt.Exec(func(tx *ledger.Tx) error {
		return tx.NonReentrant("federated:start_round", func() error {
			if err := s.roles.Require(caller, access.RoleAggregator); err != nil {
				return err
			}
			if duration <= 0 {
				return ledger.Validation("invalid_duration")
			}
			if minParticipants == 0 || maxParticipants < minParticipants {
				return ledger.Validation("invalid_participant_bounds")
			}
			if rewardPool < 0 {
				return ledger.Validation("negative_reward_pool")
			}
			if cur := s.rounds[s.currentRoundID]; cur != nil && cur.Active {
				return ledger.State("round_already_active")
			}
			if rewardPool > 0 {
				if _, err := s.writer.Transfer(ctx, string(caller), poolAccount, rewardPool); err != nil {
					return err
				}
			}
			round := &TrainingRound{
				ID:              tx.NextID("training_round"),
				Start:           tx.At,
				End:             tx.At.Add(duration),
				MinParticipants: minParticipants,
				MaxParticipants: maxParticipants,
				RewardPool:      rewardPool,
				Active:          true,
			}
			s.rounds[round.ID] = round
			s.currentRoundID = round.ID
			s.heldBalance += rewardPool
			tx.Emit("round_started", map[string]any{
				"round_id":    round.ID,
				"end":         round.End.Unix(),
				"reward_pool": rewardPool,
			})
			cp := *round
			out = &cp
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitModelUpdate records a node's contribution to the open round. The
// attached stake is taken into custody and must meet the minimum.
func (s *Service) SubmitModelUpdate(ctx context.Context, caller ledger.Identity, updateHash, gradientHash string, stake int64) (*ModelUpdate, error) {
	var out *ModelUpdate
	err := s.rt.Exec(func(tx *ledger.Tx) error {
		return tx.NonReentrant("federated:submit", func() error {
			node := s.nodes[caller]
			if node == nil || !node.Active {
				return ledger.Unauthorized("node_not_registered")
			}
			if strings.TrimSpace(updateHash) == "" || strings.TrimSpace(gradientHash) == "" {
				return ledger.Validation("empty_update_hash")
			}
			round := s.rounds[s.currentRoundID]
			if round == nil || !round.Active || tx.At.Before(round.Start) || tx.At.After(round.End) {
				return ledger.State("round_not_open")
			}
			key := updateKey{round.ID, caller}
			if _, exists := s.updates[key]; exists {
				return ledger.State("update_already_submitted")
			}
			if round.CurrentParticipants >= round.MaxParticipants {
				return ledger.Resource("round_full")
			}
			if stake < s.minStake {
				return ledger.Resource("insufficient_stake")
			}
			if _, err := s.writer.Transfer(ctx, string(caller), stakeAccount, stake); err != nil {
				return err
			}
			update := &ModelUpdate{
				Node:         caller,
				Round:        round.ID,
				UpdateHash:   strings.TrimSpace(updateHash),
				GradientHash: strings.TrimSpace(gradientHash),
				Stake:        stake,
				SubmittedAt:  tx.At,
			}
			s.updates[key] = update
			s.roundUpdates[round.ID] = append(s.roundUpdates[round.ID], update)
			round.CurrentParticipants++
			node.Contributions++
			s.heldBalance += stake
			tx.Emit("update_submitted", map[string]any{
				"round_id": round.ID,
				"node":     string(caller),
				"stake":    stake,
			})
			cp := *update
			out = &cp
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ValidateModelUpdate scores a submission, exactly once per (round, node).
// A rejection slashes the stake and dents reputation, but the update still
// counts toward the round's participant quorum: participation and
// correctness are scored separately.
func (s *Service) ValidateModelUpdate(ctx context.Context, caller, node ledger.Identity, verdict bool) error {
	return s.rt.Exec(func(tx *ledger.Tx) error {
		return tx.NonReentrant("federated:validate", func() error {
			if err := s.roles.Require(caller, access.RoleValidator); err != nil {
				return err
			}
			round := s.rounds[s.currentRoundID]
			if round == nil {
				return ledger.State("no_round")
			}
			if !round.Active {
				return ledger.State("round_not_active")
			}
			key := updateKey{round.ID, node}
			update := s.updates[key]
			if update == nil {
				return ledger.State("update_not_found")
			}
			if _, done := s.reviewed[key]; done {
				return ledger.State("update_already_validated")
			}
			info := s.nodes[node]
			if verdict {
				s.reviewed[key] = struct{}{}
				update.Validated = true
				info.Reputation += reputationReward
				tx.Emit("update_validated", map[string]any{
					"round_id": round.ID,
					"node":     string(node),
					"by":       string(caller),
				})
				return nil
			}
			forfeited := update.Stake
			if forfeited > 0 {
				if _, err := s.writer.Transfer(ctx, stakeAccount, treasuryAccount, forfeited); err != nil {
					return err
				}
			}
			s.reviewed[key] = struct{}{}
			update.Stake = 0
			info.Reputation -= reputationPenalty
			if info.Reputation < 0 {
				info.Reputation = 0
			}
			s.heldBalance -= forfeited
			tx.Emit("stake_slashed", map[string]any{
				"round_id":  round.ID,
				"node":      string(node),
				"forfeited": forfeited,
				"by":        string(caller),
			})
			return nil
		})
	})
}

// AggregateModel publishes the round's model, deactivates its predecessor,
// closes the round for good, and distributes the reserved pool equally
// across the recorded participants.
func (s *Service) AggregateModel(ctx context.Context, caller ledger.Identity, roundID uint64, modelHash string, accuracy uint32) (*AggregatedModel, error) {
	var out *AggregatedModel
	err := s.rt.Exec(func(tx *ledger.Tx) error {
		return tx.NonReentrant("federated:aggregate", func() error {
			if err := s.roles.Require(caller, access.RoleAggregator); err != nil {
				return err
			}
			round := s.rounds[roundID]
			if round == nil {
				return ledger.State("round_not_found")
			}
			if !round.Active {
				return ledger.State("round_already_aggregated")
			}
			if !tx.At.After(round.End) {
				return ledger.State("round_not_closed")
			}
			if round.CurrentParticipants < round.MinParticipants {
				return ledger.Resource("insufficient_participants")
			}
			if strings.TrimSpace(modelHash) == "" {
				return ledger.Validation("empty_model_hash")
			}
			if accuracy > MaxAccuracy {
				return ledger.Validation("accuracy_out_of_range")
			}

			// Payouts go out as one atomic batch before state writes; a
			// settlement failure aborts the whole aggregation with the round
			// still open and no participant paid.
			participants := s.roundUpdates[roundID]
			share := int64(0)
			if round.RewardPool > 0 && len(participants) > 0 {
				share = round.RewardPool / int64(len(participants))
			}
			if share > 0 {
				legs := make([]blockchain.TransferLeg, 0, len(participants))
				for _, update := range participants {
					legs = append(legs, blockchain.TransferLeg{
						From:        poolAccount,
						To:          string(update.Node),
						AmountMinor: share,
					})
				}
				if _, err := s.writer.TransferBatch(ctx, legs); err != nil {
					return err
				}
			}

			model := &AggregatedModel{
				Round:            roundID,
				ModelHash:        strings.TrimSpace(modelHash),
				Accuracy:         accuracy,
				ParticipantCount: round.CurrentParticipants,
				Active:           true,
				AggregatedAt:     tx.At,
			}
			if prev := s.models[s.activeModel]; prev != nil {
				prev.Active = false
			}
			s.models[roundID] = model
			s.activeModel = roundID
			round.Active = false
			s.completedRounds++

			for _, update := range participants {
				node := s.nodes[update.Node]
				node.Rewards += share
				if update.Validated {
					node.SuccessfulRounds++
				}
				s.heldBalance -= share
			}
			tx.Emit("model_aggregated", map[string]any{
				"round_id":     roundID,
				"model_hash":   model.ModelHash,
				"accuracy":     accuracy,
				"participants": model.ParticipantCount,
			})
			tx.Emit("rewards_distributed", map[string]any{
				"round_id": roundID,
				"share":    share,
				"count":    len(participants),
			})
			cp := *model
			out = &cp
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetMinStake updates the stake floor for submissions. Admin only.
func (s *Service) SetMinStake(_ context.Context, caller ledger.Identity, minStake int64) error {
	return s.rt.Exec(func(tx *ledger.Tx) error {
		if err := s.roles.Require(caller, access.RoleAdmin); err != nil {
			return err
		}
		if minStake < 0 {
			return ledger.Validation("negative_min_stake")
		}
		s.minStake = minStake
		tx.Emit("min_stake_updated", map[string]any{"min_stake": minStake})
		return nil
	})
}

// EmergencyWithdraw drains the coordinator's held balance (custodied stakes
// and undistributed pool remainders) to the admin caller.
func (s *Service) EmergencyWithdraw(ctx context.Context, caller ledger.Identity) (int64, error) {
	var amount int64
	err := s.rt.Exec(func(tx *ledger.Tx) error {
		return tx.NonReentrant("federated:withdraw", func() error {
			if err := s.roles.Require(caller, access.RoleAdmin); err != nil {
				return err
			}
			if s.heldBalance <= 0 {
				return ledger.Resource("nothing_held")
			}
			amount = s.heldBalance
			if _, err := s.writer.Transfer(ctx, stakeAccount, string(caller), amount); err != nil {
				return err
			}
			s.heldBalance = 0
			tx.Emit("emergency_withdrawal", map[string]any{"amount": amount, "to": string(caller)})
			return nil
		})
	})
	if err != nil {
		return 0, err
	}
	return amount, nil
}

// GetNode returns a node's record.
func (s *Service) GetNode(_ context.Context, node ledger.Identity) (*NodeInfo, error) {
	var out *NodeInfo
	err := s.rt.Exec(func(tx *ledger.Tx) error {
		info := s.nodes[node]
		if info == nil {
			return ledger.State("node_not_registered")
		}
		cp := *info
		out = &cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetRound returns one round.
func (s *Service) GetRound(_ context.Context, roundID uint64) (*TrainingRound, error) {
	var out *TrainingRound
	err := s.rt.Exec(func(tx *ledger.Tx) error {
		round := s.rounds[roundID]
		if round == nil {
			return ledger.State("round_not_found")
		}
		cp := *round
		out = &cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CurrentRound returns the most recently started round.
func (s *Service) CurrentRound(ctx context.Context) (*TrainingRound, error) {
	var id uint64
	_ = s.rt.Exec(func(tx *ledger.Tx) error {
		id = s.currentRoundID
		return nil
	})
	return s.GetRound(ctx, id)
}

// GetUpdate returns one submission.
func (s *Service) GetUpdate(_ context.Context, roundID uint64, node ledger.Identity) (*ModelUpdate, error) {
	var out *ModelUpdate
	err := s.rt.Exec(func(tx *ledger.Tx) error {
		update := s.updates[updateKey{roundID, node}]
		if update == nil {
			return ledger.State("update_not_found")
		}
		cp := *update
		out = &cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CurrentModel returns the single active aggregated model.
func (s *Service) CurrentModel(_ context.Context) (*AggregatedModel, error) {
	var out *AggregatedModel
	err := s.rt.Exec(func(tx *ledger.Tx) error {
		model := s.models[s.activeModel]
		if model == nil {
			return ledger.State("no_active_model")
		}
		cp := *model
		out = &cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CompletedRounds returns the global aggregated-round counter.
func (s *Service) CompletedRounds(_ context.Context) uint64 {
	var n uint64
	_ = s.rt.Exec(func(tx *ledger.Tx) error {
		n = s.completedRounds
		return nil
	})
	return n
}
