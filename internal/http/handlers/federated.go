package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AritraDas07/Credit-Chain-Pro/internal/domain/federated"
	"github.com/AritraDas07/Credit-Chain-Pro/internal/ledger"
)

type FederatedService interface {
	RegisterNode(ctx context.Context, caller ledger.Identity) (*federated.NodeInfo, error)
	StartTrainingRound(ctx context.Context, caller ledger.Identity, duration time.Duration, minParticipants, maxParticipants uint32, rewardPool int64) (*federated.TrainingRound, error)
	SubmitModelUpdate(ctx context.Context, caller ledger.Identity, updateHash, gradientHash string, stake int64) (*federated.ModelUpdate, error)
	ValidateModelUpdate(ctx context.Context, caller, node ledger.Identity, verdict bool) error
	AggregateModel(ctx context.Context, caller ledger.Identity, roundID uint64, modelHash string, accuracy uint32) (*federated.AggregatedModel, error)
	SetMinStake(ctx context.Context, caller ledger.Identity, minStake int64) error
	EmergencyWithdraw(ctx context.Context, caller ledger.Identity) (int64, error)
	GetNode(ctx context.Context, node ledger.Identity) (*federated.NodeInfo, error)
	GetRound(ctx context.Context, roundID uint64) (*federated.TrainingRound, error)
	CurrentRound(ctx context.Context) (*federated.TrainingRound, error)
	GetUpdate(ctx context.Context, roundID uint64, node ledger.Identity) (*federated.ModelUpdate, error)
	CurrentModel(ctx context.Context) (*federated.AggregatedModel, error)
}

type FederatedHandler struct {
	coord FederatedService
}

func NewFederatedHandler(coord FederatedService) *FederatedHandler {
	return &FederatedHandler{coord: coord}
}

func (h *FederatedHandler) RegisterNode(c *gin.Context) {
	node, err := h.coord.RegisterNode(c.Request.Context(), caller(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, node)
}

func (h *FederatedHandler) StartRound(c *gin.Context) {
	var req struct {
		DurationSeconds int64  `json:"duration_seconds"`
		MinParticipants uint32 `json:"min_participants"`
		MaxParticipants uint32 `json:"max_participants"`
		RewardPoolMinor int64  `json:"reward_pool_minor"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	round, err := h.coord.StartTrainingRound(c.Request.Context(), caller(c), time.Duration(req.DurationSeconds)*time.Second, req.MinParticipants, req.MaxParticipants, req.RewardPoolMinor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, round)
}

func (h *FederatedHandler) SubmitUpdate(c *gin.Context) {
	var req struct {
		UpdateHash   string `json:"update_hash"`
		GradientHash string `json:"gradient_hash"`
		StakeMinor   int64  `json:"stake_minor"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	update, err := h.coord.SubmitModelUpdate(c.Request.Context(), caller(c), req.UpdateHash, req.GradientHash, req.StakeMinor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, update)
}

func (h *FederatedHandler) ValidateUpdate(c *gin.Context) {
	var req struct {
		Node    string `json:"node"`
		Verdict *bool  `json:"verdict"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Verdict == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := h.coord.ValidateModelUpdate(c.Request.Context(), caller(c), ledger.Identity(strings.TrimSpace(req.Node)), *req.Verdict); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "validated"})
}

func (h *FederatedHandler) AggregateModel(c *gin.Context) {
	roundID, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_round_id"})
		return
	}
	var req struct {
		ModelHash string `json:"model_hash"`
		Accuracy  uint32 `json:"accuracy"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	model, err := h.coord.AggregateModel(c.Request.Context(), caller(c), roundID, req.ModelHash, req.Accuracy)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, model)
}

func (h *FederatedHandler) SetMinStake(c *gin.Context) {
	var req struct {
		MinStakeMinor int64 `json:"min_stake_minor"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := h.coord.SetMinStake(c.Request.Context(), caller(c), req.MinStakeMinor); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *FederatedHandler) EmergencyWithdraw(c *gin.Context) {
	amount, err := h.coord.EmergencyWithdraw(c.Request.Context(), caller(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawn_minor": amount})
}

func (h *FederatedHandler) GetNode(c *gin.Context) {
	node := ledger.Identity(strings.TrimSpace(c.Param("identity")))
	info, err := h.coord.GetNode(c.Request.Context(), node)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *FederatedHandler) GetRound(c *gin.Context) {
	roundID, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_round_id"})
		return
	}
	round, err := h.coord.GetRound(c.Request.Context(), roundID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, round)
}

func (h *FederatedHandler) CurrentRound(c *gin.Context) {
	round, err := h.coord.CurrentRound(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, round)
}

func (h *FederatedHandler) GetUpdate(c *gin.Context) {
	roundID, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_round_id"})
		return
	}
	node := ledger.Identity(strings.TrimSpace(c.Param("identity")))
	update, err := h.coord.GetUpdate(c.Request.Context(), roundID, node)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, update)
}

func (h *FederatedHandler) CurrentModel(c *gin.Context) {
	model, err := h.coord.CurrentModel(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, model)
}
