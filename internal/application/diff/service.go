// Package diff provides the application layer for recipe comparisons
// This implements the DiffService use case defined in the inbound ports
package diff

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/alchemorsel/recipediff/internal/domain/diff"
	"github.com/alchemorsel/recipediff/internal/domain/recipe"
	"github.com/alchemorsel/recipediff/internal/ports/inbound"
	"github.com/alchemorsel/recipediff/internal/ports/outbound"
	"github.com/alchemorsel/recipediff/pkg/errors"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const cacheKeyPrefix = "diff:"

// Config controls how comparisons are rendered and cached
type Config struct {
	DefaultAlignment diff.Alignment
	AddedClass       string
	Escape           bool
	Sanitize         bool
	CacheTTL         time.Duration
}

// Service implements the diff use case
type Service struct {
	engines   map[diff.Alignment]*diff.Engine
	config    Config
	cache     outbound.CacheRepository
	sanitizer outbound.Sanitizer
	metrics   outbound.DiffMetrics
	validate  *validator.Validate
	tracer    trace.Tracer
	logger    *zap.Logger
}

// NewService creates a new diff service. cache, sanitizer and metrics
// may be nil.
func NewService(
	config Config,
	cache outbound.CacheRepository,
	sanitizer outbound.Sanitizer,
	metrics outbound.DiffMetrics,
	logger *zap.Logger,
) *Service {
	if config.AddedClass == "" {
		config.AddedClass = diff.DefaultAddedClass
	}
	renderer := diff.HTMLRenderer{AddedClass: config.AddedClass, Escape: config.Escape}

	engines := make(map[diff.Alignment]*diff.Engine, 2)
	for _, a := range []diff.Alignment{diff.AlignGreedy, diff.AlignLCS} {
		engines[a] = diff.NewEngine(diff.WithAlignment(a), diff.WithRenderer(renderer))
	}

	return &Service{
		engines:   engines,
		config:    config,
		cache:     cache,
		sanitizer: sanitizer,
		metrics:   metrics,
		validate:  validator.New(),
		tracer:    otel.Tracer("recipediff/application/diff"),
		logger:    logger.Named("diff-service"),
	}
}

var _ inbound.DiffService = (*Service)(nil)

// Compare diffs the updated recipe against the original one
func (s *Service) Compare(ctx context.Context, cmd inbound.CompareCommand) (*inbound.DiffDTO, error) {
	if err := s.validate.Struct(cmd); err != nil {
		return nil, errors.FromValidator(err)
	}

	alignment := s.config.DefaultAlignment
	if cmd.Alignment != "" {
		a, err := diff.ParseAlignment(cmd.Alignment)
		if err != nil {
			return nil, errors.NewValidationError(err.Error())
		}
		alignment = a
	}

	ctx, span := s.tracer.Start(ctx, "diff.Compare", trace.WithAttributes(
		attribute.String("diff.alignment", alignment.String()),
	))
	defer span.End()

	original, updated := cmd.Original, cmd.Updated
	if s.config.Sanitize && s.sanitizer != nil {
		original = s.sanitizer.SanitizeRecipe(original)
		updated = s.sanitizer.SanitizeRecipe(updated)
	}

	// First generation, nothing to diff against
	if original == nil {
		span.SetAttributes(attribute.Bool("diff.first_generation", true))
		return &inbound.DiffDTO{Recipe: updated}, nil
	}

	key, err := s.cacheKey(original, updated, alignment)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode recipes")
		return nil, errors.NewBadRequestError("recipe could not be encoded").WithCause(err)
	}

	if dto := s.fromCache(ctx, key); dto != nil {
		span.SetAttributes(attribute.Bool("diff.cached", true))
		return dto, nil
	}

	start := time.Now()
	engine := s.engines[alignment]
	d := engine.Compare(original, updated)
	dto := &inbound.DiffDTO{
		Recipe:    engine.Render(d, updated),
		Changed:   d.Changed(),
		Additions: d.Additions(),
	}
	elapsed := time.Since(start)

	if s.metrics != nil {
		s.metrics.ObserveComparison(alignment.String(), elapsed, dto.Additions)
	}
	span.SetAttributes(
		attribute.Int("diff.additions", dto.Additions),
		attribute.Bool("diff.cached", false),
	)
	s.logger.Debug("Recipe compared",
		zap.String("alignment", alignment.String()),
		zap.Int("additions", dto.Additions),
		zap.Duration("duration", elapsed),
	)

	s.toCache(ctx, key, dto)
	return dto, nil
}

// cacheKey hashes everything that affects the rendered output
func (s *Service) cacheKey(original, updated *recipe.Recipe, alignment diff.Alignment) (string, error) {
	payload, err := json.Marshal(struct {
		Original  *recipe.Recipe `json:"original"`
		Updated   *recipe.Recipe `json:"updated"`
		Alignment string         `json:"alignment"`
		Class     string         `json:"class"`
		Escape    bool           `json:"escape"`
	}{original, updated, alignment.String(), s.config.AddedClass, s.config.Escape})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return cacheKeyPrefix + hex.EncodeToString(sum[:]), nil
}

func (s *Service) fromCache(ctx context.Context, key string) *inbound.DiffDTO {
	if s.cache == nil {
		return nil
	}

	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !stderrors.Is(err, outbound.ErrCacheMiss) {
			s.logger.Warn("Failed to read diff cache", zap.String("key", key), zap.Error(err))
		}
		s.cacheResult(false)
		return nil
	}

	var dto inbound.DiffDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		s.logger.Warn("Discarding corrupt diff cache entry", zap.String("key", key), zap.Error(err))
		if err := s.cache.Delete(ctx, key); err != nil {
			s.logger.Warn("Failed to delete diff cache entry", zap.String("key", key), zap.Error(err))
		}
		s.cacheResult(false)
		return nil
	}

	s.cacheResult(true)
	dto.Cached = true
	return &dto
}

func (s *Service) toCache(ctx context.Context, key string, dto *inbound.DiffDTO) {
	if s.cache == nil {
		return
	}

	data, err := json.Marshal(dto)
	if err != nil {
		s.logger.Warn("Failed to encode diff for cache", zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key, data, s.config.CacheTTL); err != nil {
		s.logger.Warn("Failed to write diff cache", zap.String("key", key), zap.Error(err))
	}
}

func (s *Service) cacheResult(hit bool) {
	if s.metrics != nil {
		s.metrics.CacheResult(hit)
	}
}
