// Package handlers provides HTTP handlers for the REST API
package handlers

import (
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/alchemorsel/recipediff/internal/domain/recipe"
	"github.com/alchemorsel/recipediff/internal/infrastructure/http/middleware"
	"github.com/alchemorsel/recipediff/internal/ports/inbound"
	"github.com/alchemorsel/recipediff/pkg/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CacheHeader reports whether a diff was served from the cache
const CacheHeader = "X-Diff-Cache"

// APIHandlers handles REST API requests
type APIHandlers struct {
	diffService     inbound.DiffService
	revisionService inbound.RevisionService
	logger          *zap.Logger
}

// NewAPIHandlers creates a new API handlers instance
func NewAPIHandlers(
	diffService inbound.DiffService,
	revisionService inbound.RevisionService,
	logger *zap.Logger,
) *APIHandlers {
	return &APIHandlers{
		diffService:     diffService,
		revisionService: revisionService,
		logger:          logger.Named("api"),
	}
}

// RegisterRoutes mounts the API on r. Revision routes run behind auth.
func (h *APIHandlers) RegisterRoutes(r gin.IRouter, auth gin.HandlerFunc) {
	r.POST("/recipe-diff", h.CompareRecipes)

	recipes := r.Group("/recipes/:id", auth)
	recipes.POST("/revisions", h.RecordRevision)
	recipes.GET("/revisions", h.ListRevisions)
	recipes.GET("/diff", h.DiffRevisions)
	recipes.PATCH("/archive", h.ArchiveRecipe)
}

// CompareRequest is the body of POST /api/v1/recipe-diff
type CompareRequest struct {
	OriginalRecipe *recipe.Recipe `json:"original_recipe"`
	Recipe         *recipe.Recipe `json:"recipe"`
	Alignment      string         `json:"alignment,omitempty"`
}

// RecordRevisionRequest is the body of POST /api/v1/recipes/:id/revisions
type RecordRevisionRequest struct {
	Recipe        *recipe.Recipe `json:"recipe"`
	Modifications string         `json:"modifications,omitempty"`
}

// MessageResponse is returned by operations without a payload
type MessageResponse struct {
	Message string `json:"message"`
}

// CompareRecipes handles POST /api/v1/recipe-diff
func (h *APIHandlers) CompareRecipes(c *gin.Context) {
	var req CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}
	if req.Recipe == nil {
		_ = c.Error(errors.NewValidationError("recipe is required"))
		return
	}

	result, err := h.diffService.Compare(c.Request.Context(), inbound.CompareCommand{
		Original:  req.OriginalRecipe,
		Updated:   req.Recipe,
		Alignment: req.Alignment,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	setCacheHeader(c, result.Cached)
	c.JSON(http.StatusOK, result)
}

// RecordRevision handles POST /api/v1/recipes/:id/revisions
func (h *APIHandlers) RecordRevision(c *gin.Context) {
	var req RecordRevisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	rev, err := h.revisionService.Record(c.Request.Context(), inbound.RecordRevisionCommand{
		RecipeID:      c.Param("id"),
		UserID:        c.GetString(middleware.UserIDKey),
		Recipe:        req.Recipe,
		Modifications: req.Modifications,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"revision": rev})
}

// ListRevisions handles GET /api/v1/recipes/:id/revisions
func (h *APIHandlers) ListRevisions(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		_ = c.Error(err)
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		_ = c.Error(err)
		return
	}

	list, err := h.revisionService.List(c.Request.Context(), inbound.ListRevisionsQuery{
		RecipeID: c.Param("id"),
		UserID:   c.GetString(middleware.UserIDKey),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, list)
}

// DiffRevisions handles GET /api/v1/recipes/:id/diff
func (h *APIHandlers) DiffRevisions(c *gin.Context) {
	from, err := queryInt(c, "from")
	if err != nil {
		_ = c.Error(err)
		return
	}
	to, err := queryInt(c, "to")
	if err != nil {
		_ = c.Error(err)
		return
	}

	result, err := h.revisionService.Diff(c.Request.Context(), inbound.DiffRevisionsQuery{
		RecipeID: c.Param("id"),
		UserID:   c.GetString(middleware.UserIDKey),
		From:     from,
		To:       to,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	setCacheHeader(c, result.Cached)
	c.JSON(http.StatusOK, result)
}

// ArchiveRecipe handles PATCH /api/v1/recipes/:id/archive
func (h *APIHandlers) ArchiveRecipe(c *gin.Context) {
	recipeID := c.Param("id")
	if err := h.revisionService.Archive(c.Request.Context(), recipeID, c.GetString(middleware.UserIDKey)); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Recipe archived successfully"})
}

// bindError keeps oversized bodies recognisable to the error handler
func bindError(err error) error {
	var maxBytes *http.MaxBytesError
	if stderrors.As(err, &maxBytes) {
		return err
	}
	return errors.NewBadRequestError("Invalid request body").WithCause(err).
		WithMetadata("reason", err.Error())
}

// queryInt parses an optional non-negative integer query parameter
func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.NewValidationError(name+" must be a non-negative integer").
			WithMetadata("parameter", name)
	}
	return n, nil
}

func setCacheHeader(c *gin.Context, cached bool) {
	if cached {
		c.Header(CacheHeader, "HIT")
	} else {
		c.Header(CacheHeader, "MISS")
	}
}
