package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alchemorsel/recipediff/internal/domain/recipe"
	"github.com/alchemorsel/recipediff/internal/infrastructure/config"
	"github.com/alchemorsel/recipediff/internal/infrastructure/http/handlers"
	"github.com/alchemorsel/recipediff/internal/infrastructure/http/middleware"
	"github.com/alchemorsel/recipediff/internal/ports/inbound"
	"github.com/alchemorsel/recipediff/pkg/errors"
	"github.com/alchemorsel/recipediff/test/testutils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"
)

const testUserID = "user-42"

type APIHandlersTestSuite struct {
	suite.Suite
	router    *gin.Engine
	diffs     *testutils.MockDiffService
	revisions *testutils.MockRevisionService
	factory   *testutils.RecipeFactory
	recipeID  string
}

func (s *APIHandlersTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
}

func (s *APIHandlersTestSuite) SetupTest() {
	logger := zaptest.NewLogger(s.T())
	s.diffs = new(testutils.MockDiffService)
	s.revisions = new(testutils.MockRevisionService)
	s.factory = testutils.NewRecipeFactory(7)
	s.recipeID = testutils.RecipeID()

	mw := middleware.New(&config.Config{}, logger, nil, nil)
	fakeAuth := func(c *gin.Context) {
		c.Set(middleware.UserIDKey, testUserID)
		c.Next()
	}

	s.router = gin.New()
	s.router.Use(mw.RequestID(), mw.ErrorHandler())
	h := handlers.NewAPIHandlers(s.diffs, s.revisions, logger)
	h.RegisterRoutes(s.router.Group("/api/v1"), fakeAuth)
}

func (s *APIHandlersTestSuite) TearDownTest() {
	s.diffs.AssertExpectations(s.T())
	s.revisions.AssertExpectations(s.T())
}

func (s *APIHandlersTestSuite) request(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			s.Require().NoError(json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *APIHandlersTestSuite) TestCompareRecipes() {
	original := s.factory.CreateFlatRecipe()
	updated := s.factory.Modify(original)
	rendered := updated.Clone()
	rendered.Title = `<span class="diff-added">New</span> title`

	s.diffs.On("Compare", mock.Anything, mock.MatchedBy(func(cmd inbound.CompareCommand) bool {
		return cmd.Original != nil && cmd.Original.Title == original.Title &&
			cmd.Updated.Title == updated.Title && cmd.Alignment == "lcs"
	})).Return(&inbound.DiffDTO{Recipe: rendered, Changed: true, Additions: 3}, nil)

	w := s.request(http.MethodPost, "/api/v1/recipe-diff", handlers.CompareRequest{
		OriginalRecipe: original,
		Recipe:         updated,
		Alignment:      "lcs",
	})

	ha := testutils.NewHTTPAssertions(s.T())
	ha.StatusCode(w, http.StatusOK)
	ha.Header(w, handlers.CacheHeader, "MISS")

	var body struct {
		Recipe    *recipe.Recipe `json:"recipe"`
		Changed   bool           `json:"changed"`
		Additions int            `json:"additions"`
	}
	ha.JSONResponse(w, &body)
	s.True(body.Changed)
	s.Equal(3, body.Additions)
	s.Equal(rendered.Title, body.Recipe.Title)
}

func (s *APIHandlersTestSuite) TestCompareRecipesFirstGeneration() {
	updated := s.factory.CreateGroupedRecipe()

	s.diffs.On("Compare", mock.Anything, mock.MatchedBy(func(cmd inbound.CompareCommand) bool {
		return cmd.Original == nil
	})).Return(&inbound.DiffDTO{Recipe: updated, Cached: true}, nil)

	w := s.request(http.MethodPost, "/api/v1/recipe-diff", map[string]interface{}{
		"original_recipe": nil,
		"recipe":          updated,
	})

	s.Equal(http.StatusOK, w.Code)
	s.Equal("HIT", w.Header().Get(handlers.CacheHeader))
}

func (s *APIHandlersTestSuite) TestCompareRecipesRejectsBadBodies() {
	ha := testutils.NewHTTPAssertions(s.T())

	s.Run("malformed json", func() {
		w := s.request(http.MethodPost, "/api/v1/recipe-diff", `{"recipe":`)
		ha.StatusCode(w, http.StatusBadRequest)
		ha.ErrorCode(w, string(errors.CodeBadRequest))
	})

	s.Run("ingredients of the wrong shape", func() {
		w := s.request(http.MethodPost, "/api/v1/recipe-diff", `{"recipe":{"title":"x","ingredients":[1,2]}}`)
		ha.StatusCode(w, http.StatusBadRequest)
	})

	s.Run("missing recipe", func() {
		w := s.request(http.MethodPost, "/api/v1/recipe-diff", `{"original_recipe":{"title":"x"}}`)
		ha.StatusCode(w, http.StatusBadRequest)
		ha.ErrorCode(w, string(errors.CodeValidationFailed))
	})
}

func (s *APIHandlersTestSuite) TestRecordRevision() {
	r := s.factory.CreateFlatRecipe()
	dto := &inbound.RevisionDTO{
		ID:        uuid.New(),
		RecipeID:  s.recipeID,
		Number:    1,
		Recipe:    r,
		CreatedAt: time.Now().UTC(),
	}

	s.revisions.On("Record", mock.Anything, mock.MatchedBy(func(cmd inbound.RecordRevisionCommand) bool {
		return cmd.RecipeID == s.recipeID && cmd.UserID == testUserID &&
			cmd.Modifications == "less salt" && cmd.Recipe.Title == r.Title
	})).Return(dto, nil)

	w := s.request(http.MethodPost, "/api/v1/recipes/"+s.recipeID+"/revisions", handlers.RecordRevisionRequest{
		Recipe:        r,
		Modifications: "less salt",
	})

	ha := testutils.NewHTTPAssertions(s.T())
	ha.StatusCode(w, http.StatusCreated)
	var body struct {
		Revision inbound.RevisionDTO `json:"revision"`
	}
	ha.JSONResponse(w, &body)
	s.Equal(dto.ID, body.Revision.ID)
	s.Equal(1, body.Revision.Number)
}

func (s *APIHandlersTestSuite) TestRecordRevisionForbidden() {
	s.revisions.On("Record", mock.Anything, mock.Anything).
		Return(nil, errors.NewForbiddenError(recipe.ErrNotRecipeOwner.Error()))

	w := s.request(http.MethodPost, "/api/v1/recipes/"+s.recipeID+"/revisions", handlers.RecordRevisionRequest{
		Recipe: s.factory.CreateFlatRecipe(),
	})

	ha := testutils.NewHTTPAssertions(s.T())
	ha.StatusCode(w, http.StatusForbidden)
	ha.ErrorCode(w, string(errors.CodeForbidden))
}

func (s *APIHandlersTestSuite) TestListRevisions() {
	s.revisions.On("List", mock.Anything, inbound.ListRevisionsQuery{
		RecipeID: s.recipeID,
		UserID:   testUserID,
		Limit:    5,
		Offset:   10,
	}).Return(&inbound.RevisionList{Revisions: []*inbound.RevisionDTO{}, Total: 12, Limit: 5, Offset: 10}, nil)

	w := s.request(http.MethodGet, "/api/v1/recipes/"+s.recipeID+"/revisions?limit=5&offset=10", nil)

	ha := testutils.NewHTTPAssertions(s.T())
	ha.StatusCode(w, http.StatusOK)
	var body inbound.RevisionList
	ha.JSONResponse(w, &body)
	s.Equal(int64(12), body.Total)
	s.Empty(body.Revisions)
}

func (s *APIHandlersTestSuite) TestListRevisionsRejectsBadPaging() {
	w := s.request(http.MethodGet, "/api/v1/recipes/"+s.recipeID+"/revisions?limit=ten", nil)

	ha := testutils.NewHTTPAssertions(s.T())
	ha.StatusCode(w, http.StatusBadRequest)
	ha.ErrorCode(w, string(errors.CodeValidationFailed))

	w = s.request(http.MethodGet, "/api/v1/recipes/"+s.recipeID+"/revisions?offset=-1", nil)
	ha.StatusCode(w, http.StatusBadRequest)
}

func (s *APIHandlersTestSuite) TestDiffRevisions() {
	rendered := s.factory.CreateFlatRecipe()
	s.revisions.On("Diff", mock.Anything, inbound.DiffRevisionsQuery{
		RecipeID: s.recipeID,
		UserID:   testUserID,
		From:     1,
		To:       3,
	}).Return(&inbound.RevisionDiffDTO{
		DiffDTO: inbound.DiffDTO{Recipe: rendered, Changed: true, Additions: 2},
		From:    1,
		To:      3,
	}, nil)

	w := s.request(http.MethodGet, "/api/v1/recipes/"+s.recipeID+"/diff?from=1&to=3", nil)

	ha := testutils.NewHTTPAssertions(s.T())
	ha.StatusCode(w, http.StatusOK)
	var body map[string]interface{}
	ha.JSONResponse(w, &body)
	s.Equal(float64(1), body["from"])
	s.Equal(float64(3), body["to"])
	s.Equal(true, body["changed"])
	s.Contains(body, "recipe")
}

func (s *APIHandlersTestSuite) TestDiffRevisionsNotFound() {
	s.revisions.On("Diff", mock.Anything, mock.Anything).
		Return(nil, errors.NewRecipeNotFoundError(s.recipeID))

	w := s.request(http.MethodGet, "/api/v1/recipes/"+s.recipeID+"/diff", nil)

	ha := testutils.NewHTTPAssertions(s.T())
	ha.StatusCode(w, http.StatusNotFound)
	ha.ErrorCode(w, string(errors.CodeRecipeNotFound))
}

func (s *APIHandlersTestSuite) TestArchiveRecipe() {
	s.revisions.On("Archive", mock.Anything, s.recipeID, testUserID).Return(nil)

	w := s.request(http.MethodPatch, "/api/v1/recipes/"+s.recipeID+"/archive", nil)

	ha := testutils.NewHTTPAssertions(s.T())
	ha.StatusCode(w, http.StatusOK)
	var body handlers.MessageResponse
	ha.JSONResponse(w, &body)
	s.NotEmpty(body.Message)
}

func TestAPIHandlersSuite(t *testing.T) {
	suite.Run(t, new(APIHandlersTestSuite))
}
