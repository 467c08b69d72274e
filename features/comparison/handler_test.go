package comparison

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"doccompare/internal/adapter/engine"
	"doccompare/internal/report"
)

func newHandlerWithMocks() (*Handler, *MockRepository, *MockDocumentFinder, *MockEngine) {
	repo := new(MockRepository)
	docs := new(MockDocumentFinder)
	eng := new(MockEngine)
	return NewHandler(newTestService(repo, docs, eng)), repo, docs, eng
}

func TestHandler_Compare_Success(t *testing.T) {
	handler, repo, docs, eng := newHandlerWithMocks()

	docs.On("Exists", mock.Anything, mock.Anything).Return(true, nil)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	eng.On("Compare", mock.Anything, "left", "right").Return(&engine.Result{
		Matches: []report.Match{{MatchType: report.MatchExact, SimilarityScore: 1.0}},
	}, nil)
	repo.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)

	req := httptest.NewRequest("POST", "/compare", strings.NewReader(`{"left_doc_id":"left","right_doc_id":"right"}`))
	w := httptest.NewRecorder()

	handler.Compare(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var cmp Comparison
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &cmp))
	assert.Equal(t, StatusCompleted, cmp.Status)
	assert.Equal(t, 1, cmp.Result.CompliantCount)
	assert.Equal(t, 100.0, cmp.Result.CompliantPercentage)
}

func TestHandler_Compare_ValidationErrors(t *testing.T) {
	handler, _, _, _ := newHandlerWithMocks()

	for name, body := range map[string]string{
		"MalformedJSON": `{not json`,
		"MissingIDs":    `{"left_doc_id":"left"}`,
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/compare", strings.NewReader(body))
			w := httptest.NewRecorder()
			handler.Compare(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
		})
	}
}

func TestHandler_Compare_UnknownDocument(t *testing.T) {
	handler, _, docs, _ := newHandlerWithMocks()

	docs.On("Exists", mock.Anything, "left").Return(true, nil)
	docs.On("Exists", mock.Anything, "ghost").Return(false, nil)

	req := httptest.NewRequest("POST", "/compare", strings.NewReader(`{"left_doc_id":"left","right_doc_id":"ghost"}`))
	w := httptest.NewRecorder()

	handler.Compare(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")
}

func TestHandler_Compare_EngineErrors(t *testing.T) {
	cases := []struct {
		name       string
		engineErr  error
		wantStatus int
		wantCode   string
	}{
		{"Timeout", engine.ErrTimeout, http.StatusGatewayTimeout, "ENGINE_TIMEOUT"},
		{"Unreachable", engine.ErrUnreachable, http.StatusBadGateway, "ENGINE_UNREACHABLE"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler, repo, docs, eng := newHandlerWithMocks()

			docs.On("Exists", mock.Anything, mock.Anything).Return(true, nil)
			repo.On("Create", mock.Anything, mock.Anything).Return(nil)
			eng.On("Compare", mock.Anything, mock.Anything, mock.Anything).Return(nil, tc.engineErr)
			repo.On("Fail", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)

			req := httptest.NewRequest("POST", "/compare", strings.NewReader(`{"left_doc_id":"l","right_doc_id":"r"}`))
			w := httptest.NewRecorder()

			handler.Compare(w, req)
			assert.Equal(t, tc.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tc.wantCode)
		})
	}
}

func TestHandler_Get(t *testing.T) {
	handler, repo, _, _ := newHandlerWithMocks()

	t.Run("Found", func(t *testing.T) {
		repo.On("Get", mock.Anything, "cmp-1").Return(&Comparison{ID: "cmp-1", Status: StatusProcessing}, nil).Once()

		req := httptest.NewRequest("GET", "/comparisons/cmp-1", nil)
		req.SetPathValue("id", "cmp-1")
		w := httptest.NewRecorder()

		handler.Get(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"comparison_id":"cmp-1"`)
	})

	t.Run("NotFound", func(t *testing.T) {
		repo.On("Get", mock.Anything, "missing").Return(nil, sql.ErrNoRows).Once()

		req := httptest.NewRequest("GET", "/comparisons/missing", nil)
		req.SetPathValue("id", "missing")
		w := httptest.NewRecorder()

		handler.Get(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHandler_Report(t *testing.T) {
	handler, repo, _, _ := newHandlerWithMocks()

	t.Run("RendersHTML", func(t *testing.T) {
		cmp := &Comparison{
			ID:     "cmp-1",
			Status: StatusCompleted,
			Result: &Result{
				Classification: report.Classify([]report.Match{
					{MatchType: report.MatchExact, LeftText: "clause A", RightText: "clause A", SimilarityScore: 1.0},
					{MatchType: "different", LeftText: "clause B", RightText: "clause C", SimilarityScore: 0.1},
				}),
			},
		}
		repo.On("Get", mock.Anything, "cmp-1").Return(cmp, nil).Once()

		req := httptest.NewRequest("GET", "/comparisons/cmp-1/report", nil)
		req.SetPathValue("id", "cmp-1")
		w := httptest.NewRecorder()

		handler.Report(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, w.Body.String(), "cmp-1")
		assert.Contains(t, w.Body.String(), "50.0%")
	})

	t.Run("NoResultYet", func(t *testing.T) {
		repo.On("Get", mock.Anything, "cmp-2").Return(&Comparison{ID: "cmp-2", Status: StatusProcessing}, nil).Once()

		req := httptest.NewRequest("GET", "/comparisons/cmp-2/report", nil)
		req.SetPathValue("id", "cmp-2")
		w := httptest.NewRecorder()

		handler.Report(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "NO_RESULT")
	})
}
