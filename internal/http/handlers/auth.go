package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AritraDas07/Credit-Chain-Pro/internal/auth"
)

// AuthHandler mints access tokens for already-verified identities. Wallet
// verification happens in the outer gateway; in non-production environments
// the dev endpoint mints tokens directly so the API is usable standalone.
type AuthHandler struct {
	jwt       *auth.JWTManager
	accessTTL time.Duration
	devMode   bool
}

func NewAuthHandler(jwt *auth.JWTManager, accessTTL time.Duration, devMode bool) *AuthHandler {
	return &AuthHandler{jwt: jwt, accessTTL: accessTTL, devMode: devMode}
}

func (h *AuthHandler) MintDevToken(c *gin.Context) {
	if !h.devMode {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	var req struct {
		Identity string `json:"identity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Identity) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	token, err := h.jwt.Mint(strings.TrimSpace(req.Identity), h.accessTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "mint_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"expires_in":   int64(h.accessTTL.Seconds()),
	})
}
