package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/lexis-api/internal/api/middleware"
	"github.com/phrazzld/lexis-api/internal/api/shared"
	"github.com/phrazzld/lexis-api/internal/domain"
	"github.com/phrazzld/lexis-api/internal/service/practice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testLearnerID      int64 = 42
	testSessionID            = "5b0a4c84-6d2c-4b8e-9f4e-2f8a1d3c7e10"
	defaultTarget      int64 = 3
	defaultTranslation int64 = 2
)

// MockPracticeService is a testify mock of practice.Service.
type MockPracticeService struct {
	mock.Mock
}

func (m *MockPracticeService) StartSession(ctx context.Context, req practice.SessionRequest) (*practice.Session, error) {
	args := m.Called(ctx, req)
	session, _ := args.Get(0).(*practice.Session)
	return session, args.Error(1)
}

func (m *MockPracticeService) SubmitAnswer(
	ctx context.Context,
	learnerID, targetLanguageID int64,
	in practice.AnswerInput,
) (*practice.AnswerResult, error) {
	args := m.Called(ctx, learnerID, targetLanguageID, in)
	result, _ := args.Get(0).(*practice.AnswerResult)
	return result, args.Error(1)
}

func (m *MockPracticeService) FinishSession(
	ctx context.Context,
	learnerID, targetLanguageID int64,
	sessionID string,
) (*practice.SessionResult, error) {
	args := m.Called(ctx, learnerID, targetLanguageID, sessionID)
	result, _ := args.Get(0).(*practice.SessionResult)
	return result, args.Error(1)
}

func (m *MockPracticeService) GetLearnerState(
	ctx context.Context,
	learnerID, targetLanguageID int64,
) (*domain.LearnerLanguageState, error) {
	args := m.Called(ctx, learnerID, targetLanguageID)
	state, _ := args.Get(0).(*domain.LearnerLanguageState)
	return state, args.Error(1)
}

var _ practice.Service = (*MockPracticeService)(nil)

func newTestRouter(svc practice.Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.LearnerIdentity)
		RegisterRoutes(r,
			NewPracticeHandler(svc, LanguageDefaults{
				TargetLanguageID:      defaultTarget,
				TranslationLanguageID: defaultTranslation,
			}, nil),
			NewLearnerHandler(svc, nil),
		)
	})
	return r
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(middleware.LearnerIDHeader, strconv.FormatInt(testLearnerID, 10))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) shared.ErrorResponse {
	t.Helper()
	var resp shared.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.TraceID, "error responses carry the trace id")
	return resp
}

func testSession() *practice.Session {
	return &practice.Session{
		ID: testSessionID,
		Items: []domain.SelectedItem{
			{ItemID: 1, Text: "casa", CorrectTranslation: "house", Options: []string{"house", "dog", "tree", "car"}},
			{ItemID: 2, Text: "perro", CorrectTranslation: "dog", Options: []string{"cat", "dog", "house", "sun"}},
		},
		Level: domain.LevelA2,
	}
}

func TestStartSession(t *testing.T) {
	t.Run("defaults languages when body is empty", func(t *testing.T) {
		svc := new(MockPracticeService)
		svc.On("StartSession", mock.Anything, practice.SessionRequest{
			LearnerID:             testLearnerID,
			TargetLanguageID:      defaultTarget,
			TranslationLanguageID: defaultTranslation,
		}).Return(testSession(), nil)

		w := doRequest(t, newTestRouter(svc), http.MethodPost, "/api/sessions", "")

		require.Equal(t, http.StatusCreated, w.Code)
		var resp SessionResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, testSessionID, resp.SessionID)
		assert.Equal(t, 2, resp.TotalItems)
		assert.False(t, resp.Onboarding)
		assert.Equal(t, "A2", resp.Level)
		require.Len(t, resp.Items, 2)
		assert.Equal(t, SessionItemResponse{
			ItemID:             1,
			Text:               "casa",
			CorrectTranslation: "house",
			Options:            []string{"house", "dog", "tree", "car"},
		}, resp.Items[0])
		svc.AssertExpectations(t)
	})

	t.Run("explicit languages", func(t *testing.T) {
		svc := new(MockPracticeService)
		session := testSession()
		session.Onboarding = true
		svc.On("StartSession", mock.Anything, practice.SessionRequest{
			LearnerID:             testLearnerID,
			TargetLanguageID:      5,
			TranslationLanguageID: 1,
		}).Return(session, nil)

		w := doRequest(t, newTestRouter(svc), http.MethodPost, "/api/sessions",
			`{"targetLanguageId": 5, "translationLanguageId": 1}`)

		require.Equal(t, http.StatusCreated, w.Code)
		var resp SessionResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Onboarding)
		svc.AssertExpectations(t)
	})

	t.Run("empty pool", func(t *testing.T) {
		svc := new(MockPracticeService)
		svc.On("StartSession", mock.Anything, mock.Anything).
			Return(nil, practice.NewServiceError("start_session", "empty pool", practice.ErrNoItems))

		w := doRequest(t, newTestRouter(svc), http.MethodPost, "/api/sessions", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "No vocabulary available for this language", decodeError(t, w).Error)
	})

	t.Run("unexpected failure", func(t *testing.T) {
		svc := new(MockPracticeService)
		svc.On("StartSession", mock.Anything, mock.Anything).
			Return(nil, errors.New("pq: connection reset by peer"))

		w := doRequest(t, newTestRouter(svc), http.MethodPost, "/api/sessions", "")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Failed to start session", decodeError(t, w).Error)
		assert.NotContains(t, w.Body.String(), "connection reset")
	})

	t.Run("malformed body", func(t *testing.T) {
		svc := new(MockPracticeService)

		w := doRequest(t, newTestRouter(svc), http.MethodPost, "/api/sessions", `{"targetLanguageId":`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid request format", decodeError(t, w).Error)
		svc.AssertNotCalled(t, "StartSession", mock.Anything, mock.Anything)
	})

	t.Run("negative language id", func(t *testing.T) {
		svc := new(MockPracticeService)

		w := doRequest(t, newTestRouter(svc), http.MethodPost, "/api/sessions", `{"targetLanguageId": -1}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid targetLanguageId: too small", decodeError(t, w).Error)
	})
}

func TestMissingLearnerIdentity(t *testing.T) {
	svc := new(MockPracticeService)
	req := httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
	w := httptest.NewRecorder()

	newTestRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	svc.AssertNotCalled(t, "StartSession", mock.Anything, mock.Anything)
}

func TestSubmitAnswer(t *testing.T) {
	path := "/api/sessions/" + testSessionID + "/answers"

	t.Run("correct answer", func(t *testing.T) {
		svc := new(MockPracticeService)
		svc.On("SubmitAnswer", mock.Anything, testLearnerID, defaultTarget, practice.AnswerInput{
			SessionID:             testSessionID,
			ItemID:                7,
			Answer:                "House",
			TranslationLanguageID: defaultTranslation,
		}).Return(&practice.AnswerResult{Correct: true, CorrectTranslation: "house"}, nil)

		w := doRequest(t, newTestRouter(svc), http.MethodPost, path, `{"itemId": 7, "answer": "House"}`)

		require.Equal(t, http.StatusOK, w.Code)
		var resp AnswerResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, AnswerResponse{IsCorrect: true, CorrectTranslation: "house"}, resp)
		svc.AssertExpectations(t)
	})

	t.Run("explicit languages", func(t *testing.T) {
		svc := new(MockPracticeService)
		svc.On("SubmitAnswer", mock.Anything, testLearnerID, int64(5), mock.MatchedBy(func(in practice.AnswerInput) bool {
			return in.TranslationLanguageID == 1
		})).Return(&practice.AnswerResult{CorrectTranslation: "house"}, nil)

		w := doRequest(t, newTestRouter(svc), http.MethodPost, path,
			`{"itemId": 7, "answer": "tree", "targetLanguageId": 5, "translationLanguageId": 1}`)

		require.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	validation := []struct {
		name    string
		body    string
		message string
	}{
		{"missing answer", `{"itemId": 7}`, "Invalid answer: required field"},
		{"missing item", `{"answer": "house"}`, "Invalid itemId: required field"},
		{"unknown field", `{"itemId": 7, "answer": "house", "correct": true}`, "Invalid request format"},
	}
	for _, tc := range validation {
		t.Run(tc.name, func(t *testing.T) {
			svc := new(MockPracticeService)

			w := doRequest(t, newTestRouter(svc), http.MethodPost, path, tc.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tc.message, decodeError(t, w).Error)
			svc.AssertNotCalled(t, "SubmitAnswer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}

	failures := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"invalid session id", practice.ErrInvalidSessionID, http.StatusBadRequest, "Invalid session id"},
		{"unknown item", practice.ErrItemNotFound, http.StatusNotFound, "Vocabulary item not found"},
		{"no learner state", practice.ErrLearnerStateNotFound, http.StatusNotFound, "No practice history for this language"},
		{"store failure", errors.New("boom"), http.StatusInternalServerError, "Failed to submit answer"},
	}
	for _, tc := range failures {
		t.Run(tc.name, func(t *testing.T) {
			svc := new(MockPracticeService)
			svc.On("SubmitAnswer", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
				Return(nil, practice.NewServiceError("submit_answer", "failed", tc.err))

			w := doRequest(t, newTestRouter(svc), http.MethodPost, path, `{"itemId": 7, "answer": "house"}`)

			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.message, decodeError(t, w).Error)
		})
	}
}

func TestFinishSession(t *testing.T) {
	path := "/api/sessions/" + testSessionID + "/finish"

	t.Run("level changed", func(t *testing.T) {
		svc := new(MockPracticeService)
		level := domain.LevelB1
		svc.On("FinishSession", mock.Anything, testLearnerID, defaultTarget, testSessionID).
			Return(&practice.SessionResult{Status: practice.SessionStatusCompleted, NewLevel: &level}, nil)

		w := doRequest(t, newTestRouter(svc), http.MethodPost, path, "")

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"completed","extraPatch":false,"newLevel":"B1"}`, w.Body.String())
		svc.AssertExpectations(t)
	})

	t.Run("level unchanged with extra patch", func(t *testing.T) {
		svc := new(MockPracticeService)
		svc.On("FinishSession", mock.Anything, testLearnerID, int64(5), testSessionID).
			Return(&practice.SessionResult{Status: practice.SessionStatusCompleted, ExtraPatch: true}, nil)

		w := doRequest(t, newTestRouter(svc), http.MethodPost, path, `{"targetLanguageId": 5}`)

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"completed","extraPatch":true,"newLevel":null}`, w.Body.String())
	})

	t.Run("degraded evaluation still completes", func(t *testing.T) {
		svc := new(MockPracticeService)
		svc.On("FinishSession", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(&practice.SessionResult{Status: practice.SessionStatusCompleted, Degraded: true}, nil)

		w := doRequest(t, newTestRouter(svc), http.MethodPost, path, "")

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"completed","extraPatch":false,"newLevel":null}`, w.Body.String())
	})

	t.Run("unknown session", func(t *testing.T) {
		svc := new(MockPracticeService)
		svc.On("FinishSession", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, practice.NewServiceError("finish_session", "no answers", practice.ErrSessionNotFound))

		w := doRequest(t, newTestRouter(svc), http.MethodPost, path, "")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Session not found", decodeError(t, w).Error)
	})
}

func TestGetLanguageState(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		svc := new(MockPracticeService)
		active := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		svc.On("GetLearnerState", mock.Anything, testLearnerID, int64(3)).Return(&domain.LearnerLanguageState{
			ID:               9,
			LearnerID:        testLearnerID,
			TargetLanguageID: 3,
			Level:            domain.LevelB2,
			PromotionStreak:  2,
			PatchBoost:       true,
			LastActiveAt:     &active,
		}, nil)

		w := doRequest(t, newTestRouter(svc), http.MethodGet, "/api/learners/me/languages/3", "")

		require.Equal(t, http.StatusOK, w.Code)
		var resp LearnerStateResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "B2", resp.Level)
		assert.Equal(t, int64(3), resp.TargetLanguageID)
		assert.Equal(t, 2, resp.PromotionStreak)
		assert.True(t, resp.PatchBoost)
		require.NotNil(t, resp.LastActiveAt)
		assert.True(t, active.Equal(*resp.LastActiveAt))
		assert.Nil(t, resp.LevelChangedAt)
	})

	t.Run("invalid language id", func(t *testing.T) {
		svc := new(MockPracticeService)

		w := doRequest(t, newTestRouter(svc), http.MethodGet, "/api/learners/me/languages/spanish", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid request data", decodeError(t, w).Error)
	})

	t.Run("never practiced", func(t *testing.T) {
		svc := new(MockPracticeService)
		svc.On("GetLearnerState", mock.Anything, testLearnerID, int64(4)).
			Return(nil, practice.ErrLearnerStateNotFound)

		w := doRequest(t, newTestRouter(svc), http.MethodGet, "/api/learners/me/languages/4", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHandlerConstructorsPanic(t *testing.T) {
	defaults := LanguageDefaults{TargetLanguageID: 3, TranslationLanguageID: 2}
	assert.Panics(t, func() { NewPracticeHandler(nil, defaults, nil) })
	assert.Panics(t, func() { NewPracticeHandler(new(MockPracticeService), LanguageDefaults{}, nil) })
	assert.Panics(t, func() { NewLearnerHandler(nil, nil) })
}
