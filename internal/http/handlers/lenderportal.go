package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AritraDas07/Credit-Chain-Pro/internal/domain/lenderportal"
	"github.com/AritraDas07/Credit-Chain-Pro/internal/ledger"
)

type LenderService interface {
	RegisterLender(ctx context.Context, caller ledger.Identity, in lenderportal.RegisterInput, payment int64) (*lenderportal.LenderInfo, error)
	ApproveLender(ctx context.Context, caller, lender ledger.Identity) error
	DeactivateLender(ctx context.Context, caller, lender ledger.Identity) error
	ReactivateLender(ctx context.Context, caller, lender ledger.Identity) error
	RequestAPIAccess(ctx context.Context, caller ledger.Identity, tier string) (*lenderportal.APIAccessGrant, error)
	SubmitCreditRequest(ctx context.Context, caller, borrower ledger.Identity, amount, payment int64) (*lenderportal.CreditRequest, error)
	SubmitBatchRequest(ctx context.Context, caller ledger.Identity, borrowers []ledger.Identity, amounts []int64, payment int64) (*lenderportal.BatchRequest, error)
	GetLender(ctx context.Context, lender ledger.Identity) (*lenderportal.LenderInfo, error)
	GetRequest(ctx context.Context, caller ledger.Identity, id uint64) (*lenderportal.CreditRequest, error)
	GetBatch(ctx context.Context, caller ledger.Identity, id uint64) (*lenderportal.BatchRequest, error)
	QuotaStatus(ctx context.Context, caller ledger.Identity) (*lenderportal.APIAccessGrant, error)
	SetRegistrationFee(ctx context.Context, caller ledger.Identity, fee int64) error
	SetRequestFee(ctx context.Context, caller ledger.Identity, fee int64) error
	WithdrawFees(ctx context.Context, caller ledger.Identity) (int64, error)
}

type LenderHandler struct {
	portal LenderService
}

func NewLenderHandler(portal LenderService) *LenderHandler {
	return &LenderHandler{portal: portal}
}

func (h *LenderHandler) RegisterLender(c *gin.Context) {
	var req struct {
		lenderportal.RegisterInput
		PaymentMinor int64 `json:"payment_minor"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	info, err := h.portal.RegisterLender(c.Request.Context(), caller(c), req.RegisterInput, req.PaymentMinor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, info)
}

func (h *LenderHandler) ApproveLender(c *gin.Context) {
	lender := ledger.Identity(strings.TrimSpace(c.Param("identity")))
	if err := h.portal.ApproveLender(c.Request.Context(), caller(c), lender); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "approved"})
}

func (h *LenderHandler) DeactivateLender(c *gin.Context) {
	lender := ledger.Identity(strings.TrimSpace(c.Param("identity")))
	if err := h.portal.DeactivateLender(c.Request.Context(), caller(c), lender); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deactivated"})
}

func (h *LenderHandler) ReactivateLender(c *gin.Context) {
	lender := ledger.Identity(strings.TrimSpace(c.Param("identity")))
	if err := h.portal.ReactivateLender(c.Request.Context(), caller(c), lender); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "active"})
}

func (h *LenderHandler) RequestAPIAccess(c *gin.Context) {
	var req struct {
		Tier string `json:"tier"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	grant, err := h.portal.RequestAPIAccess(c.Request.Context(), caller(c), req.Tier)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, grant)
}

func (h *LenderHandler) SubmitCreditRequest(c *gin.Context) {
	var req struct {
		Borrower     string `json:"borrower"`
		AmountMinor  int64  `json:"amount_minor"`
		PaymentMinor int64  `json:"payment_minor"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	out, err := h.portal.SubmitCreditRequest(c.Request.Context(), caller(c), ledger.Identity(strings.TrimSpace(req.Borrower)), req.AmountMinor, req.PaymentMinor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *LenderHandler) SubmitBatchRequest(c *gin.Context) {
	var req struct {
		Borrowers    []string `json:"borrowers"`
		AmountsMinor []int64  `json:"amounts_minor"`
		PaymentMinor int64    `json:"payment_minor"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	borrowers := make([]ledger.Identity, 0, len(req.Borrowers))
	for _, b := range req.Borrowers {
		borrowers = append(borrowers, ledger.Identity(strings.TrimSpace(b)))
	}
	out, err := h.portal.SubmitBatchRequest(c.Request.Context(), caller(c), borrowers, req.AmountsMinor, req.PaymentMinor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *LenderHandler) GetLender(c *gin.Context) {
	lender := ledger.Identity(strings.TrimSpace(c.Param("identity")))
	info, err := h.portal.GetLender(c.Request.Context(), lender)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *LenderHandler) GetRequest(c *gin.Context) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request_id"})
		return
	}
	out, err := h.portal.GetRequest(c.Request.Context(), caller(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *LenderHandler) GetBatch(c *gin.Context) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_batch_id"})
		return
	}
	out, err := h.portal.GetBatch(c.Request.Context(), caller(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *LenderHandler) QuotaStatus(c *gin.Context) {
	grant, err := h.portal.QuotaStatus(c.Request.Context(), caller(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, grant)
}

func (h *LenderHandler) SetFees(c *gin.Context) {
	var req struct {
		RegistrationFeeMinor *int64 `json:"registration_fee_minor"`
		RequestFeeMinor      *int64 `json:"request_fee_minor"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if req.RegistrationFeeMinor != nil {
		if err := h.portal.SetRegistrationFee(c.Request.Context(), caller(c), *req.RegistrationFeeMinor); err != nil {
			respondError(c, err)
			return
		}
	}
	if req.RequestFeeMinor != nil {
		if err := h.portal.SetRequestFee(c.Request.Context(), caller(c), *req.RequestFeeMinor); err != nil {
			respondError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *LenderHandler) WithdrawFees(c *gin.Context) {
	amount, err := h.portal.WithdrawFees(c.Request.Context(), caller(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawn_minor": amount})
}
