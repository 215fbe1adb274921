package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AritraDas07/Credit-Chain-Pro/internal/domain/marketplace"
	"github.com/AritraDas07/Credit-Chain-Pro/internal/ledger"
)

type MarketplaceService interface {
	ListProduct(ctx context.Context, caller ledger.Identity, in marketplace.ListInput) (*marketplace.Product, error)
	PurchaseProduct(ctx context.Context, caller ledger.Identity, productID uint64, payment int64) (*marketplace.Purchase, error)
	SubmitReview(ctx context.Context, caller ledger.Identity, productID uint64, rating uint32, comment string) error
	UpdateProductPrice(ctx context.Context, caller ledger.Identity, productID uint64, price int64) error
	DeactivateProduct(ctx context.Context, caller ledger.Identity, productID uint64) error
	EmergencyDeactivateProduct(ctx context.Context, caller ledger.Identity, productID uint64) error
	UpdatePlatformFee(ctx context.Context, caller ledger.Identity, feeBps int64) error
	UpdateFeeRecipient(ctx context.Context, caller, recipient ledger.Identity) error
	GetProduct(ctx context.Context, productID uint64) (*marketplace.Product, error)
	ListProducts(ctx context.Context) ([]marketplace.Product, error)
	GetPurchase(ctx context.Context, caller ledger.Identity, purchaseID uint64) (*marketplace.Purchase, error)
	PurchasesOf(ctx context.Context, caller ledger.Identity) ([]marketplace.Purchase, error)
	ReviewsOf(ctx context.Context, productID uint64) ([]marketplace.Review, error)
}

type MarketplaceHandler struct {
	market MarketplaceService
}

func NewMarketplaceHandler(market MarketplaceService) *MarketplaceHandler {
	return &MarketplaceHandler{market: market}
}

func productID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_product_id"})
		return 0, false
	}
	return id, true
}

func (h *MarketplaceHandler) ListProduct(c *gin.Context) {
	var req marketplace.ListInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	product, err := h.market.ListProduct(c.Request.Context(), caller(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *MarketplaceHandler) PurchaseProduct(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	var req struct {
		PaymentMinor int64 `json:"payment_minor"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	purchase, err := h.market.PurchaseProduct(c.Request.Context(), caller(c), id, req.PaymentMinor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, purchase)
}

func (h *MarketplaceHandler) SubmitReview(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	var req struct {
		Rating  uint32 `json:"rating"`
		Comment string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := h.market.SubmitReview(c.Request.Context(), caller(c), id, req.Rating, req.Comment); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "reviewed"})
}

func (h *MarketplaceHandler) UpdateProductPrice(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	var req struct {
		PriceMinor int64 `json:"price_minor"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := h.market.UpdateProductPrice(c.Request.Context(), caller(c), id, req.PriceMinor); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *MarketplaceHandler) DeactivateProduct(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	if err := h.market.DeactivateProduct(c.Request.Context(), caller(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deactivated"})
}

func (h *MarketplaceHandler) EmergencyDeactivateProduct(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	if err := h.market.EmergencyDeactivateProduct(c.Request.Context(), caller(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deactivated"})
}

func (h *MarketplaceHandler) UpdatePlatformFee(c *gin.Context) {
	var req struct {
		FeeBps int64 `json:"fee_bps"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := h.market.UpdatePlatformFee(c.Request.Context(), caller(c), req.FeeBps); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *MarketplaceHandler) UpdateFeeRecipient(c *gin.Context) {
	var req struct {
		Recipient string `json:"recipient"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := h.market.UpdateFeeRecipient(c.Request.Context(), caller(c), ledger.Identity(strings.TrimSpace(req.Recipient))); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *MarketplaceHandler) GetProduct(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	product, err := h.market.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *MarketplaceHandler) ListProducts(c *gin.Context) {
	products, err := h.market.ListProducts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": products})
}

func (h *MarketplaceHandler) GetPurchase(c *gin.Context) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_purchase_id"})
		return
	}
	purchase, err := h.market.GetPurchase(c.Request.Context(), caller(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, purchase)
}

func (h *MarketplaceHandler) MyPurchases(c *gin.Context) {
	purchases, err := h.market.PurchasesOf(c.Request.Context(), caller(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": purchases})
}

func (h *MarketplaceHandler) ProductReviews(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	reviews, err := h.market.ReviewsOf(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": reviews})
}
