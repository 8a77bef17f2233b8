package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	appdiff "github.com/alchemorsel/recipediff/internal/application/diff"
	"github.com/alchemorsel/recipediff/internal/application/revision"
	"github.com/alchemorsel/recipediff/internal/domain/diff"
	"github.com/alchemorsel/recipediff/internal/domain/recipe"
	"github.com/alchemorsel/recipediff/internal/infrastructure/config"
	"github.com/alchemorsel/recipediff/internal/infrastructure/http/handlers"
	"github.com/alchemorsel/recipediff/internal/infrastructure/http/middleware"
	"github.com/alchemorsel/recipediff/internal/infrastructure/http/server"
	"github.com/alchemorsel/recipediff/internal/infrastructure/monitoring"
	gormrepo "github.com/alchemorsel/recipediff/internal/infrastructure/persistence/gorm"
	"github.com/alchemorsel/recipediff/internal/infrastructure/persistence/memory"
	"github.com/alchemorsel/recipediff/internal/infrastructure/security"
	"github.com/alchemorsel/recipediff/pkg/errors"
	"github.com/alchemorsel/recipediff/pkg/healthcheck"
	"github.com/alchemorsel/recipediff/test/testutils"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"
)

type ServerTestSuite struct {
	suite.Suite
	config   *config.Config
	verifier *security.TokenVerifier
	metrics  *monitoring.MetricsCollector
	server   *server.Server
	handler  http.Handler
	recipeID string
}

func (s *ServerTestSuite) SetupTest() {
	t := s.T()
	logger := zaptest.NewLogger(t)

	s.config = &config.Config{
		App: config.AppConfig{Name: "recipediff", Version: "test", Environment: "test"},
		Server: config.ServerConfig{
			Host:              "127.0.0.1",
			Port:              3000,
			WriteTimeout:      10 * time.Second,
			EnableCompression: true,
			EnableHTTP2:       true,
			MaxBodyBytes:      1 << 20,
		},
		Auth:       config.AuthConfig{JWTSecret: "server-test-secret", Issuer: "recipediff-test"},
		Monitoring: config.MonitoringConfig{MetricsPort: 9090, EnablePprof: true},
	}

	db := testutils.NewSQLiteDB(t)
	repo := gormrepo.NewRevisionRepository(db)
	cache := memory.NewCacheRepository(100, time.Minute)
	s.metrics = monitoring.NewMetricsCollector()

	diffService := appdiff.NewService(appdiff.Config{
		DefaultAlignment: diff.AlignGreedy,
		AddedClass:       diff.DefaultAddedClass,
		Sanitize:         true,
		CacheTTL:         time.Minute,
	}, cache, security.NewSanitizer(), s.metrics, logger)
	revisionService := revision.NewService(repo, diffService, s.metrics, logger)

	health := healthcheck.New("test", logger)
	health.SetCacheTTL(0)
	health.Register("database", healthcheck.NewPingChecker(repo, true))
	health.Register("cache", healthcheck.NewPingChecker(cache, false))

	s.verifier = security.NewTokenVerifier(s.config, logger)
	mw := middleware.New(s.config, logger, s.metrics, s.verifier)
	api := handlers.NewAPIHandlers(diffService, revisionService, logger)

	srv, err := server.NewServer(s.config, logger, mw, api, health)
	s.Require().NoError(err)
	s.server = srv
	s.handler = srv.Handler()
	s.recipeID = testutils.RecipeID()
}

func (s *ServerTestSuite) token(userID string) string {
	token, err := s.verifier.Issue(userID, time.Hour)
	s.Require().NoError(err)
	return token
}

func (s *ServerTestSuite) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func (s *ServerTestSuite) TestCompareRecipes() {
	original := testutils.NewRecipeBuilder().
		WithTitle("Tomato soup").
		WithIngredients("2 tomatoes", "1 onion").
		WithInstructions("Chop everything.", "Simmer for 20 minutes.").
		Build()
	updated := testutils.NewRecipeBuilder().
		WithTitle("Roasted Tomato soup").
		WithIngredients("2 tomatoes", "1 red onion", "1 tsp smoked paprika").
		WithInstructions("Chop everything.", "Simmer for 20 minutes.").
		Build()

	w := s.do(http.MethodPost, "/api/v1/recipe-diff", "", handlers.CompareRequest{
		OriginalRecipe: original,
		Recipe:         updated,
	})

	ha := testutils.NewHTTPAssertions(s.T())
	ha.StatusCode(w, http.StatusOK)
	var body struct {
		Recipe    *recipe.Recipe `json:"recipe"`
		Changed   bool           `json:"changed"`
		Additions int            `json:"additions"`
	}
	ha.JSONResponse(w, &body)

	s.True(body.Changed)
	s.Positive(body.Additions)
	s.Equal([]string{"Roasted "}, testutils.AddedFragments(body.Recipe.Title))
	s.Equal("Roasted Tomato soup", testutils.StripSpans(body.Recipe.Title))
	s.Equal(updated.Instructions, body.Recipe.Instructions)

	items := body.Recipe.FlatItems()
	s.Require().Len(items, 3)
	s.Equal("2 tomatoes", items[0])
	s.Equal([]string{"red "}, testutils.AddedFragments(items[1]))
	s.Equal([]string{"1 tsp smoked paprika"}, testutils.AddedFragments(items[2]))

	// The same comparison again is served from the cache
	w = s.do(http.MethodPost, "/api/v1/recipe-diff", "", handlers.CompareRequest{
		OriginalRecipe: original,
		Recipe:         updated,
	})
	ha.Header(w, handlers.CacheHeader, "HIT")
}

func (s *ServerTestSuite) TestRevisionLifecycle() {
	ha := testutils.NewHTTPAssertions(s.T())
	owner := s.token("owner-1")
	base := "/api/v1/recipes/" + s.recipeID

	s.Run("auth required", func() {
		w := s.do(http.MethodPost, base+"/revisions", "", handlers.RecordRevisionRequest{
			Recipe: testutils.NewRecipeBuilder().Build(),
		})
		ha.StatusCode(w, http.StatusUnauthorized)
	})

	first := testutils.NewRecipeBuilder().
		WithTitle("Pancakes").
		WithGroup("Batter", "1 cup flour", "1 egg").
		WithInstructions("Whisk.", "Fry.").
		Build()
	second := testutils.NewRecipeBuilder().
		WithTitle("Fluffy Pancakes").
		WithGroup("Batter", "1 cup flour", "1 egg", "1 tsp baking powder").
		WithGroup("Topping", "maple syrup").
		WithInstructions("Whisk.", "Rest for 10 minutes.", "Fry.").
		Build()

	s.Run("record", func() {
		w := s.do(http.MethodPost, base+"/revisions", owner, handlers.RecordRevisionRequest{Recipe: first})
		ha.StatusCode(w, http.StatusCreated)

		w = s.do(http.MethodPost, base+"/revisions", owner, handlers.RecordRevisionRequest{
			Recipe:        second,
			Modifications: "make them fluffier",
		})
		ha.StatusCode(w, http.StatusCreated)

		var body struct {
			Revision struct {
				Number int `json:"number"`
			} `json:"revision"`
		}
		ha.JSONResponse(w, &body)
		s.Equal(2, body.Revision.Number)
	})

	s.Run("other users are rejected", func() {
		w := s.do(http.MethodGet, base+"/diff", s.token("intruder"), nil)
		ha.StatusCode(w, http.StatusForbidden)
		ha.ErrorCode(w, string(errors.CodeForbidden))
	})

	s.Run("list", func() {
		w := s.do(http.MethodGet, base+"/revisions?limit=1", owner, nil)
		ha.StatusCode(w, http.StatusOK)

		var body struct {
			Revisions []struct {
				Number int `json:"number"`
			} `json:"revisions"`
			Total int64 `json:"total"`
		}
		ha.JSONResponse(w, &body)
		s.Equal(int64(2), body.Total)
		s.Require().Len(body.Revisions, 1)
		s.Equal(2, body.Revisions[0].Number)
	})

	s.Run("diff latest two", func() {
		w := s.do(http.MethodGet, base+"/diff", owner, nil)
		ha.StatusCode(w, http.StatusOK)

		var body struct {
			Recipe  *recipe.Recipe `json:"recipe"`
			Changed bool           `json:"changed"`
			From    int            `json:"from"`
			To      int            `json:"to"`
		}
		ha.JSONResponse(w, &body)
		s.True(body.Changed)
		s.Equal(1, body.From)
		s.Equal(2, body.To)

		groups := body.Recipe.Groups()
		s.Require().Len(groups, 2)
		s.Empty(testutils.AddedFragments(groups[0].GroupName))
		s.Equal([]string{"1 tsp baking powder"}, testutils.AddedFragments(groups[0].Items[2]))
		s.Equal([]string{"Topping"}, testutils.AddedFragments(groups[1].GroupName))
		s.Equal([]string{"Rest for 10 minutes."}, testutils.AddedFragments(body.Recipe.Instructions[1]))
	})

	s.Run("first generation", func() {
		w := s.do(http.MethodGet, base+"/diff?to=1", owner, nil)
		ha.StatusCode(w, http.StatusOK)

		var body struct {
			Recipe  *recipe.Recipe `json:"recipe"`
			Changed bool           `json:"changed"`
		}
		ha.JSONResponse(w, &body)
		s.False(body.Changed)
		s.Equal("Pancakes", body.Recipe.Title)
	})

	s.Run("unknown revision", func() {
		w := s.do(http.MethodGet, base+"/diff?from=1&to=9", owner, nil)
		ha.StatusCode(w, http.StatusNotFound)
	})

	s.Run("archive", func() {
		w := s.do(http.MethodPatch, base+"/archive", owner, nil)
		ha.StatusCode(w, http.StatusOK)

		w = s.do(http.MethodPost, base+"/revisions", owner, handlers.RecordRevisionRequest{Recipe: first})
		ha.StatusCode(w, http.StatusConflict)
		ha.ErrorCode(w, string(errors.CodeConflict))
	})
}

func (s *ServerTestSuite) TestHealthEndpoints() {
	for _, path := range []string{"/health", "/health/live", "/health/ready"} {
		w := s.do(http.MethodGet, path, "", nil)
		s.Equal(http.StatusOK, w.Code, path)
	}
}

func (s *ServerTestSuite) TestUnknownRoute() {
	w := s.do(http.MethodGet, "/api/v2/nothing", "", nil)

	ha := testutils.NewHTTPAssertions(s.T())
	ha.StatusCode(w, http.StatusNotFound)
	ha.ErrorCode(w, string(errors.CodeNotFound))
}

func (s *ServerTestSuite) TestAdminServerExposesMetrics() {
	s.do(http.MethodPost, "/api/v1/recipe-diff", "", handlers.CompareRequest{
		OriginalRecipe: testutils.NewRecipeBuilder().WithTitle("a").Build(),
		Recipe:         testutils.NewRecipeBuilder().WithTitle("a b").Build(),
	})

	admin := server.NewAdminServer(s.config, s.metrics.Registry(), zaptest.NewLogger(s.T()))

	w := httptest.NewRecorder()
	admin.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "recipediff_diff_comparisons_total")
	s.Contains(w.Body.String(), "recipediff_http_requests_total")

	w = httptest.NewRecorder()
	admin.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	s.Equal(http.StatusOK, w.Code)
}

func (s *ServerTestSuite) TestServeAndShutdown() {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	s.Require().NoError(err)

	done := make(chan error, 1)
	go func() { done <- s.server.Serve(l) }()

	resp, err := http.Get("http://" + l.Addr().String() + "/health/live")
	s.Require().NoError(err)
	body, err := io.ReadAll(resp.Body)
	s.Require().NoError(resp.Body.Close())
	s.Require().NoError(err)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.True(strings.Contains(string(body), "alive"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Require().NoError(s.server.Shutdown(ctx))
	s.NoError(<-done)
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}
