package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AritraDas07/Credit-Chain-Pro/internal/ledger"
)

type RoleService interface {
	Grant(caller, identity ledger.Identity, role string) error
	Revoke(caller, identity ledger.Identity, role string) error
	RolesOf(caller, identity ledger.Identity) ([]string, error)
}

// EventArchive is the read side of the Postgres event journal.
type EventArchive interface {
	ListSince(ctx context.Context, lastID uint64, limit int32) ([]ArchivedEvent, error)
}

type ArchivedEvent struct {
	EventID     uint64         `json:"event_id"`
	Name        string         `json:"name"`
	Fields      map[string]any `json:"fields"`
	EmittedAt   string         `json:"emitted_at"`
	AnchorTx    string         `json:"anchor_tx,omitempty"`
	AnchorState string         `json:"anchor_state,omitempty"`
}

type AdminHandler struct {
	roles   RoleService
	archive EventArchive
}

func NewAdminHandler(roles RoleService, archive EventArchive) *AdminHandler {
	return &AdminHandler{roles: roles, archive: archive}
}

func (h *AdminHandler) GrantRole(c *gin.Context) {
	var req struct {
		Identity string `json:"identity"`
		Role     string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := h.roles.Grant(caller(c), ledger.Identity(strings.TrimSpace(req.Identity)), strings.TrimSpace(req.Role)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "granted"})
}

func (h *AdminHandler) RevokeRole(c *gin.Context) {
	var req struct {
		Identity string `json:"identity"`
		Role     string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := h.roles.Revoke(caller(c), ledger.Identity(strings.TrimSpace(req.Identity)), strings.TrimSpace(req.Role)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "revoked"})
}

func (h *AdminHandler) RolesOf(c *gin.Context) {
	identity := ledger.Identity(strings.TrimSpace(c.Param("identity")))
	roles, err := h.roles.RolesOf(caller(c), identity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"identity": string(identity), "roles": roles})
}

func (h *AdminHandler) ListEvents(c *gin.Context) {
	if h.archive == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "archive_unavailable"})
		return
	}
	lastID, _ := strconv.ParseUint(strings.TrimSpace(c.DefaultQuery("after", "0")), 10, 64)
	limit, _ := strconv.ParseInt(strings.TrimSpace(c.DefaultQuery("limit", "100")), 10, 32)
	events, err := h.archive.ListSince(c.Request.Context(), lastID, int32(limit))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_events_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": events})
}

func (h *AdminHandler) SystemHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
