package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AritraDas07/Credit-Chain-Pro/internal/auth"
	"github.com/AritraDas07/Credit-Chain-Pro/internal/config"
	"github.com/AritraDas07/Credit-Chain-Pro/internal/domain/access"
	"github.com/AritraDas07/Credit-Chain-Pro/internal/http/handlers"
	"github.com/AritraDas07/Credit-Chain-Pro/internal/http/middleware"
	"github.com/AritraDas07/Credit-Chain-Pro/internal/version"
	"github.com/AritraDas07/Credit-Chain-Pro/internal/ws"
)

const maxRequestBodyBytes = 1 << 20

type Dependencies struct {
	Pinger             handlers.Pinger
	AuthHandler        *handlers.AuthHandler
	ScoreHandler       *handlers.ScoreHandler
	LenderHandler      *handlers.LenderHandler
	MarketplaceHandler *handlers.MarketplaceHandler
	FederatedHandler   *handlers.FederatedHandler
	AdminHandler       *handlers.AdminHandler
	WSHandler          *ws.Handler
	JWTManager         *auth.JWTManager
	Roles              middleware.RoleChecker
}

func NewRouter(cfg config.Config, logger *slog.Logger, deps Dependencies) *gin.Engine {
	if cfg.Env == "prod" || cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestBodyLimit(maxRequestBodyBytes))
	r.Use(func(c *gin.Context) {
		logger.Info("request", "method", c.Request.Method, "path", c.Request.URL.Path)
		c.Next()
	})

	health := handlers.NewHealthHandler(deps.Pinger)
	meta := handlers.NewMetaHandler(cfg.Env, version.Version)

	r.GET("/health", health.Health)
	r.GET("/ready", health.Ready)
	r.GET("/v1/meta", meta.GetMeta)

	if deps.AuthHandler != nil {
		r.POST("/v1/auth/token", deps.AuthHandler.MintDevToken)
	}

	if deps.WSHandler != nil {
		r.GET("/v1/ws", deps.WSHandler.HandleWebSocket)
	}

	authed := r.Group("/v1")
	authed.Use(middleware.RequireAuth(deps.JWTManager))

	if deps.ScoreHandler != nil {
		h := deps.ScoreHandler
		authed.POST("/scores/batch", h.BatchUpdateScores)
		authed.POST("/scores/:identity", h.UpdateScore)
		authed.POST("/scores/:identity/factors", h.UpdateScoreFactors)
		authed.GET("/scores/:identity", h.GetScore)
		authed.GET("/scores/:identity/details", h.GetScoreDetails)
		authed.GET("/scores/:identity/factors", h.GetScoreFactors)
		authed.POST("/consent", h.UpdateConsent)
		authed.POST("/consent/lenders", h.GrantLenderAccess)
		authed.DELETE("/consent/lenders/:lender", h.RevokeLenderAccess)
		authed.GET("/consent/:identity/valid", h.IsConsentValid)
		authed.GET("/consent/:identity/lenders", h.GetAuthorizedLenders)
	}

	if deps.LenderHandler != nil {
		h := deps.LenderHandler
		authed.POST("/lenders", h.RegisterLender)
		authed.GET("/lenders/:identity", h.GetLender)
		authed.POST("/lenders/:identity/approve", h.ApproveLender)
		authed.POST("/lenders/:identity/deactivate", h.DeactivateLender)
		authed.POST("/lenders/:identity/reactivate", h.ReactivateLender)
		authed.POST("/api-access", h.RequestAPIAccess)
		authed.GET("/api-access/status", h.QuotaStatus)
		authed.POST("/credit-requests", h.SubmitCreditRequest)
		authed.POST("/credit-requests/batch", h.SubmitBatchRequest)
		authed.GET("/credit-requests/:id", h.GetRequest)
		authed.GET("/credit-requests/batches/:id", h.GetBatch)
	}

	if deps.MarketplaceHandler != nil {
		h := deps.MarketplaceHandler
		authed.POST("/products", h.ListProduct)
		authed.GET("/products", h.ListProducts)
		authed.GET("/products/:id", h.GetProduct)
		authed.POST("/products/:id/purchase", h.PurchaseProduct)
		authed.POST("/products/:id/reviews", h.SubmitReview)
		authed.GET("/products/:id/reviews", h.ProductReviews)
		authed.PATCH("/products/:id/price", h.UpdateProductPrice)
		authed.POST("/products/:id/deactivate", h.DeactivateProduct)
		authed.GET("/purchases", h.MyPurchases)
		authed.GET("/purchases/:id", h.GetPurchase)
	}

	if deps.FederatedHandler != nil {
		h := deps.FederatedHandler
		authed.POST("/nodes", h.RegisterNode)
		authed.GET("/nodes/:identity", h.GetNode)
		authed.POST("/rounds", h.StartRound)
		authed.GET("/rounds/current", h.CurrentRound)
		authed.GET("/rounds/:id", h.GetRound)
		authed.GET("/rounds/:id/updates/:identity", h.GetUpdate)
		authed.POST("/rounds/updates", h.SubmitUpdate)
		authed.POST("/rounds/validations", h.ValidateUpdate)
		authed.POST("/rounds/:id/aggregate", h.AggregateModel)
		authed.GET("/models/current", h.CurrentModel)
	}

	if deps.AdminHandler != nil {
		h := deps.AdminHandler
		adminGroup := r.Group("/admin")
		adminGroup.Use(middleware.RequireAuth(deps.JWTManager))
		// Core operations re-check the admin role; the middleware covers the
		// operational read surfaces that live outside the ledger.
		adminGroup.GET("/system/health", h.SystemHealth)
		adminGroup.POST("/roles/grant", h.GrantRole)
		adminGroup.POST("/roles/revoke", h.RevokeRole)
		adminGroup.GET("/roles/:identity", h.RolesOf)

		if deps.Roles != nil {
			guarded := adminGroup.Group("")
			guarded.Use(middleware.RequireRole(deps.Roles, access.RoleAdmin))
			guarded.GET("/events", h.ListEvents)
		}

		if deps.LenderHandler != nil {
			adminGroup.POST("/fees", deps.LenderHandler.SetFees)
			adminGroup.POST("/fees/withdraw", deps.LenderHandler.WithdrawFees)
		}
		if deps.MarketplaceHandler != nil {
			adminGroup.POST("/marketplace/fee", deps.MarketplaceHandler.UpdatePlatformFee)
			adminGroup.POST("/marketplace/fee-recipient", deps.MarketplaceHandler.UpdateFeeRecipient)
			adminGroup.POST("/marketplace/products/:id/deactivate", deps.MarketplaceHandler.EmergencyDeactivateProduct)
		}
		if deps.FederatedHandler != nil {
			adminGroup.POST("/federated/min-stake", deps.FederatedHandler.SetMinStake)
			adminGroup.POST("/federated/withdraw", deps.FederatedHandler.EmergencyWithdraw)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	})

	return r
}
