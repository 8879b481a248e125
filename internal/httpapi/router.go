package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"CatalogSync/internal/domain"
	"CatalogSync/internal/extract"
	"CatalogSync/internal/metrics"
	"CatalogSync/internal/quality"
	"CatalogSync/internal/usecase"
)

// Operations is the operation surface the HTTP layer exposes.
type Operations interface {
	DetectSource(locator string) domain.Detection
	ImportFromSource(ctx context.Context, req usecase.ImportRequest) (domain.ImportResult, error)
	SyncSupplier(ctx context.Context, supplierID string, syncType domain.SyncType) (domain.SyncResult, error)
	ScoreSupplier(ctx context.Context, supplierID string) (domain.SupplierScore, error)
	ApplyPricingRules(ctx context.Context, rules []domain.PricingRule, scope domain.PricingScope) (domain.PricingResult, error)
	FindBackupSupplier(ctx context.Context, productKey string, criteria *domain.BackupCriteria) (domain.BackupResult, error)
}

// Handlers binds Operations to gin.
type Handlers struct {
	ops    Operations
	logger *slog.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(ops Operations, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{ops: ops, logger: logger.With("component", "http")}

	router := gin.New()
	router.Use(gin.Recovery(), h.observe())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := router.Group("/v1")
	{
		v1.POST("/sources/detect", h.DetectSource)
		v1.POST("/imports", h.Import)
		v1.POST("/suppliers/:id/sync", h.SyncSupplier)
		v1.POST("/suppliers/:id/score", h.ScoreSupplier)
		v1.POST("/pricing/apply", h.ApplyPricing)
		v1.POST("/backups", h.FindBackup)
	}
	return router
}

func (h *Handlers) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		elapsed := time.Since(start)
		metrics.RecordRequest(c.Request.Method, endpoint, c.Writer.Status(), elapsed)
		h.logger.Debug("request", "method", c.Request.Method, "path", endpoint, "status", c.Writer.Status(), "elapsed", elapsed)
	}
}

type detectInput struct {
	Locator string `json:"locator" binding:"required"`
}

// DetectSource classifies a locator.
func (h *Handlers) DetectSource(c *gin.Context) {
	var input detectInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.ops.DetectSource(input.Locator))
}

type authInput struct {
	Mode     domain.AuthMode `json:"mode"`
	Token    string          `json:"token"`
	Header   string          `json:"header"`
	Username string          `json:"username"`
	Password string          `json:"password"`
}

type sourceInput struct {
	Locator  string            `json:"locator" binding:"required"`
	Type     domain.SourceType `json:"type"`
	Platform string            `json:"platform"`
	Auth     authInput         `json:"auth"`
	Mapping  map[string]string `json:"mapping"`
	Options  map[string]string `json:"options"`
}

type importInput struct {
	Source     sourceInput       `json:"source" binding:"required"`
	OwnerID    string            `json:"ownerId"`
	SupplierID string            `json:"supplierId"`
	Country    string            `json:"country"`
	Strategy   string            `json:"duplicateStrategy"`
	Criteria   *quality.Criteria `json:"criteria"`
}

// Import runs one ingestion.
func (h *Handlers) Import(c *gin.Context) {
	var input importInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !usecase.IsRemoteLocator(input.Source.Locator) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": fmt.Sprintf("%v: only http(s) sources can be imported", domain.ErrInvalidLocator)})
		return
	}

	req := usecase.ImportRequest{
		Source: extract.Source{
			Locator:  input.Source.Locator,
			Type:     input.Source.Type,
			Platform: input.Source.Platform,
			Auth: domain.Credentials{
				Mode:     input.Source.Auth.Mode,
				Token:    input.Source.Auth.Token,
				Header:   input.Source.Auth.Header,
				Username: input.Source.Auth.Username,
				Password: input.Source.Auth.Password,
			},
			Mapping: input.Source.Mapping,
			Options: input.Source.Options,
		},
		OwnerID:    input.OwnerID,
		SupplierID: input.SupplierID,
		Country:    input.Country,
		Criteria:   input.Criteria,
	}
	if input.Strategy != "" {
		req.Strategy = domain.ParseDuplicateStrategy(input.Strategy)
	}

	res, err := h.ops.ImportFromSource(c.Request.Context(), req)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "result": res})
		return
	}
	c.JSON(http.StatusOK, res)
}

type syncInput struct {
	Type string `json:"type"`
}

// SyncSupplier reconciles one supplier.
func (h *Handlers) SyncSupplier(c *gin.Context) {
	var input syncInput
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	res, err := h.ops.SyncSupplier(c.Request.Context(), c.Param("id"), domain.ParseSyncType(input.Type))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "result": res})
		return
	}
	c.JSON(http.StatusOK, res)
}

// ScoreSupplier recomputes a supplier's score.
func (h *Handlers) ScoreSupplier(c *gin.Context) {
	res, err := h.ops.ScoreSupplier(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

type pricingInput struct {
	Rules []domain.PricingRule `json:"rules"`
	Scope domain.PricingScope  `json:"scope"`
}

// ApplyPricing reprices products in scope.
func (h *Handlers) ApplyPricing(c *gin.Context) {
	var input pricingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.ops.ApplyPricingRules(c.Request.Context(), input.Rules, input.Scope)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

type backupInput struct {
	ProductKey string                 `json:"productKey" binding:"required"`
	Criteria   *domain.BackupCriteria `json:"criteria"`
}

// FindBackup ranks alternate suppliers for a product.
func (h *Handlers) FindBackup(c *gin.Context) {
	var input backupInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.ops.FindBackupSupplier(c.Request.Context(), input.ProductKey, input.Criteria)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

func statusFor(err error) int {
	var srcErr *domain.SourceError
	switch {
	case errors.Is(err, domain.ErrSupplierNotFound), errors.Is(err, domain.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSupplierDisconnected):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidLocator), errors.Is(err, domain.ErrNoExtractor):
		return http.StatusUnprocessableEntity
	case errors.As(err, &srcErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
