package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/allergenscan/backend/internal/domain"
	"github.com/allergenscan/backend/internal/taxonomy"
	"github.com/allergenscan/backend/internal/usecase"
	"github.com/gin-gonic/gin"
)

const serviceName = "allergenscan-backend"

// Version is reported by the health check
var Version = "1.0.0"

// Handler holds dependencies for HTTP handlers
type Handler struct {
	lookup      *usecase.LookupService
	analysis    *usecase.AnalysisService
	scan        *usecase.ScanService
	profile     *usecase.ProfileStore
	highlighter *usecase.Highlighter
	logger      *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	lookup *usecase.LookupService,
	analysis *usecase.AnalysisService,
	scan *usecase.ScanService,
	profile *usecase.ProfileStore,
	highlighter *usecase.Highlighter,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		lookup:      lookup,
		analysis:    analysis,
		scan:        scan,
		profile:     profile,
		highlighter: highlighter,
		logger:      logger,
	}
}

type barcodeResponse struct {
	Barcode            string `json:"barcode"`
	ProductName        string `json:"productName"`
	Ingredients        string `json:"ingredients"`
	ProductDescription string `json:"productDescription,omitempty"`
	ImageURL           string `json:"imageUrl,omitempty"`
	Warning            string `json:"warning,omitempty"`
	Source             string `json:"source"`
}

type analyzeRequest struct {
	ProductName        string `json:"productName"`
	Ingredients        string `json:"ingredients"`
	ProductDescription string `json:"productDescription"`
	AllergensProfile   string `json:"allergensProfile"`
	Barcode            string `json:"barcode"`
}

type analyzeResponse struct {
	*domain.AnalysisResult
	Highlights []domain.HighlightedAllergen `json:"highlights"`
}

type highlightRequest struct {
	Allergens []string `json:"allergens" binding:"required"`
	Profile   []string `json:"profile"`
}

type profileResponse struct {
	Allergens    []string `json:"allergens"`
	DisplayNames []string `json:"displayNames"`
	Serialized   string   `json:"serialized"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":           "healthy",
		"service":          serviceName,
		"version":          Version,
		"analysisInFlight": h.analysis.InFlight(),
	})
}

// LookupBarcode handles GET /api/barcode?barcode=
func (h *Handler) LookupBarcode(c *gin.Context) {
	result, err := h.lookup.Lookup(c.Request.Context(), c.Query("barcode"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	p := result.Product
	c.JSON(http.StatusOK, barcodeResponse{
		Barcode:            p.Barcode,
		ProductName:        p.ProductName,
		Ingredients:        p.Ingredients,
		ProductDescription: p.ProductDescription,
		ImageURL:           p.ImageURL,
		Warning:            result.Warning,
		Source:             result.Source,
	})
}

// Analyze handles POST /api/analyze. An empty allergensProfile falls back to
// the stored profile. Highlights use the same profile the verdict was computed with.
func (h *Handler) Analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, domain.NewValidationError("body", "request body must be a JSON object"))
		return
	}

	profile := strings.TrimSpace(req.AllergensProfile)
	var profileIDs []string
	if profile == "" {
		profile = h.profile.Serialize()
		profileIDs = h.profile.List()
	} else {
		profileIDs = usecase.ParseProfileText(profile)
	}

	result, err := h.analysis.Analyze(c.Request.Context(), domain.AnalysisInput{
		ProductName:        req.ProductName,
		Ingredients:        req.Ingredients,
		ProductDescription: req.ProductDescription,
		AllergensProfile:   profile,
		Barcode:            req.Barcode,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Set("analysisId", result.AnalysisID)
	c.JSON(http.StatusOK, analyzeResponse{
		AnalysisResult: result,
		Highlights:     h.highlighter.HighlightMatches(result.AllergensList, profileIDs),
	})
}

// Scan handles GET /api/scan?barcode= and runs lookup plus analysis
func (h *Handler) Scan(c *gin.Context) {
	report, err := h.scan.Scan(c.Request.Context(), c.Query("barcode"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ListAllergens returns the allergen taxonomy
func (h *Handler) ListAllergens(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"categories": taxonomy.Categories(),
	})
}

// GetProfile returns the stored allergen profile
func (h *Handler) GetProfile(c *gin.Context) {
	c.JSON(http.StatusOK, h.profileBody())
}

// AddToProfile handles PUT /api/profile/:id
func (h *Handler) AddToProfile(c *gin.Context) {
	if err := h.profile.Add(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.profileBody())
}

// RemoveFromProfile handles DELETE /api/profile/:id
func (h *Handler) RemoveFromProfile(c *gin.Context) {
	if err := h.profile.Remove(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.profileBody())
}

// Highlight handles POST /api/report/highlight. Without an explicit profile
// the stored one is used.
func (h *Handler) Highlight(c *gin.Context) {
	var req highlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, domain.NewValidationError("allergens", "allergens list is required"))
		return
	}

	profile := req.Profile
	if profile == nil {
		profile = h.profile.List()
	}

	c.JSON(http.StatusOK, gin.H{
		"mode":       h.highlighter.Mode(),
		"highlights": h.highlighter.HighlightMatches(req.Allergens, profile),
	})
}

func (h *Handler) profileBody() profileResponse {
	return profileResponse{
		Allergens:    h.profile.List(),
		DisplayNames: h.profile.DisplayNames(),
		Serialized:   h.profile.Serialize(),
	}
}

// respondError maps domain errors onto status codes and an {error} body
func (h *Handler) respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var (
		validationErr *domain.ValidationError
		upstreamErr   *domain.UpstreamError
		analysisErr   *domain.AnalysisError
	)

	switch {
	case errors.As(err, &validationErr):
		body := gin.H{"error": validationErr.Error()}
		if validationErr.Field != "" {
			body["field"] = validationErr.Field
		}
		c.JSON(http.StatusBadRequest, body)
	case errors.Is(err, domain.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": domain.ErrProductNotFound.Error()})
	case errors.As(err, &upstreamErr):
		status := http.StatusBadGateway
		if upstreamErr.StatusCode >= http.StatusInternalServerError {
			status = upstreamErr.StatusCode
		}
		c.JSON(status, gin.H{"error": upstreamErr.Error()})
	case errors.As(err, &analysisErr):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":  analysisErr.Error(),
			"kind":   "analysis",
			"reason": analysisErr.Reason,
		})
	case errors.Is(err, domain.ErrAnalysisInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusRequestTimeout, gin.H{"error": "request cancelled"})
	default:
		h.logger.Error("Unhandled request error", "request_id", RequestIDFromContext(c), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
