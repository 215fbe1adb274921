package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AritraDas07/Credit-Chain-Pro/internal/domain/creditscore"
	"github.com/AritraDas07/Credit-Chain-Pro/internal/ledger"
)

type ScoreService interface {
	UpdateScore(ctx context.Context, caller, identity ledger.Identity, score int32) error
	UpdateScoreFactors(ctx context.Context, caller, identity ledger.Identity, f creditscore.Factors) error
	BatchUpdateScores(ctx context.Context, caller ledger.Identity, entries []creditscore.BatchScoreEntry) error
	GetScore(ctx context.Context, caller, identity ledger.Identity) (*creditscore.Score, error)
	GetScoreDetails(ctx context.Context, caller, identity ledger.Identity) (*creditscore.ScoreDetails, error)
	GetScoreFactors(ctx context.Context, caller, identity ledger.Identity) (*creditscore.Factors, error)
	UpdateConsent(ctx context.Context, caller ledger.Identity, dataHash string, expiry int64) error
	GrantLenderAccess(ctx context.Context, caller, lender ledger.Identity) error
	RevokeLenderAccess(ctx context.Context, caller, lender ledger.Identity) error
	IsConsentValid(ctx context.Context, identity ledger.Identity) (bool, error)
	GetAuthorizedLenders(ctx context.Context, caller, identity ledger.Identity) ([]ledger.Identity, error)
}

type ScoreHandler struct {
	scores ScoreService
}

func NewScoreHandler(scores ScoreService) *ScoreHandler {
	return &ScoreHandler{scores: scores}
}

func (h *ScoreHandler) UpdateScore(c *gin.Context) {
	identity := ledger.Identity(strings.TrimSpace(c.Param("identity")))
	var req struct {
		Score int32 `json:"score"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := h.scores.UpdateScore(c.Request.Context(), caller(c), identity, req.Score); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *ScoreHandler) UpdateScoreFactors(c *gin.Context) {
	identity := ledger.Identity(strings.TrimSpace(c.Param("identity")))
	var req creditscore.Factors
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := h.scores.UpdateScoreFactors(c.Request.Context(), caller(c), identity, req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *ScoreHandler) BatchUpdateScores(c *gin.Context) {
	var req struct {
		Entries []creditscore.BatchScoreEntry `json:"entries"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := h.scores.BatchUpdateScores(c.Request.Context(), caller(c), req.Entries); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated", "count": len(req.Entries)})
}

func (h *ScoreHandler) GetScore(c *gin.Context) {
	identity := ledger.Identity(strings.TrimSpace(c.Param("identity")))
	score, err := h.scores.GetScore(c.Request.Context(), caller(c), identity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, score)
}

func (h *ScoreHandler) GetScoreDetails(c *gin.Context) {
	identity := ledger.Identity(strings.TrimSpace(c.Param("identity")))
	details, err := h.scores.GetScoreDetails(c.Request.Context(), caller(c), identity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

func (h *ScoreHandler) GetScoreFactors(c *gin.Context) {
	identity := ledger.Identity(strings.TrimSpace(c.Param("identity")))
	factors, err := h.scores.GetScoreFactors(c.Request.Context(), caller(c), identity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, factors)
}

func (h *ScoreHandler) UpdateConsent(c *gin.Context) {
	var req struct {
		DataHash string `json:"data_hash"`
		Expiry   int64  `json:"expiry"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := h.scores.UpdateConsent(c.Request.Context(), caller(c), req.DataHash, req.Expiry); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *ScoreHandler) GrantLenderAccess(c *gin.Context) {
	var req struct {
		Lender string `json:"lender"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := h.scores.GrantLenderAccess(c.Request.Context(), caller(c), ledger.Identity(strings.TrimSpace(req.Lender))); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "granted"})
}

func (h *ScoreHandler) RevokeLenderAccess(c *gin.Context) {
	lender := ledger.Identity(strings.TrimSpace(c.Param("lender")))
	if err := h.scores.RevokeLenderAccess(c.Request.Context(), caller(c), lender); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "revoked"})
}

func (h *ScoreHandler) IsConsentValid(c *gin.Context) {
	identity := ledger.Identity(strings.TrimSpace(c.Param("identity")))
	valid, err := h.scores.IsConsentValid(c.Request.Context(), identity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": valid})
}

func (h *ScoreHandler) GetAuthorizedLenders(c *gin.Context) {
	identity := ledger.Identity(strings.TrimSpace(c.Param("identity")))
	lenders, err := h.scores.GetAuthorizedLenders(c.Request.Context(), caller(c), identity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lenders": lenders})
}
