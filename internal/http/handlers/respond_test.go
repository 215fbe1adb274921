package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/AritraDas07/Credit-Chain-Pro/internal/ledger"
)

func statusFor(t *testing.T, err error) int {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	respondError(c, err)
	return rec.Code
}

func TestRespondErrorMapsKindsToStatuses(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ledger.Unauthorized("missing_identity"), http.StatusForbidden},
		{ledger.Validation("empty_name"), http.StatusBadRequest},
		{ledger.State("already_purchased"), http.StatusConflict},
		{ledger.Resource("insufficient_payment"), http.StatusPaymentRequired},
		{fmt.Errorf("broken pipe"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(t, tc.err); got != tc.want {
			t.Fatalf("%v: got %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestRespondErrorTreatsExhaustedQuotaAsRateLimit(t *testing.T) {
	if got := statusFor(t, ledger.Resource("quota_exceeded")); got != http.StatusTooManyRequests {
		t.Fatalf("quota exhaustion: got %d, want %d", got, http.StatusTooManyRequests)
	}
	// Other resource failures still read as payment problems.
	if got := statusFor(t, ledger.Resource("no_api_access")); got != http.StatusPaymentRequired {
		t.Fatalf("missing purchase: got %d, want %d", got, http.StatusPaymentRequired)
	}
}
