package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AritraDas07/Credit-Chain-Pro/internal/http/middleware"
	"github.com/AritraDas07/Credit-Chain-Pro/internal/ledger"
)

func caller(c *gin.Context) ledger.Identity {
	return ledger.Identity(middleware.CallerIdentity(c))
}

// respondError maps the ledger error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	msg := "internal_error"
	switch {
	case errors.Is(err, ledger.ErrAuthorization):
		status = http.StatusForbidden
		msg = err.Error()
	case errors.Is(err, ledger.ErrValidation):
		status = http.StatusBadRequest
		msg = err.Error()
	case errors.Is(err, ledger.ErrState):
		status = http.StatusConflict
		msg = err.Error()
	case errors.Is(err, ledger.ErrResource):
		status = http.StatusPaymentRequired
		// An exhausted quota is rate limiting, not missing payment.
		var le *ledger.Error
		if errors.As(err, &le) && le.Tag == "quota_exceeded" {
			status = http.StatusTooManyRequests
		}
		msg = err.Error()
	}
	c.JSON(status, gin.H{"error": msg})
}
