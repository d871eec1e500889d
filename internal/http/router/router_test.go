package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/littypicky-backend/internal/app"
	"github.com/ignatzorin/littypicky-backend/internal/config"
	"github.com/ignatzorin/littypicky-backend/internal/http/handlers"
	"github.com/ignatzorin/littypicky-backend/internal/logger"
	"github.com/ignatzorin/littypicky-backend/internal/service"
	"github.com/ignatzorin/littypicky-backend/internal/ws"
)

const secret = "router-test-secret-with-32-characters!!"

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger.Silence()

	cfg := &config.Config{
		Env:                 "test",
		StoreDriver:         config.StoreDriverMemory,
		AllowedOrigins:      []string{"http://localhost:3000"},
		RateLimitLimit:      1000,
		RateLimitPeriod:     time.Minute,
		VoteRateLimit:       100,
		LeaderboardCacheTTL: 0,
		LeaderboardLimit:    20,
		Scoring:             service.DefaultScoring(),
	}

	stores := app.NewMemoryStores()
	core := app.NewCore(stores, cfg.Scoring, nil)
	cache := service.NewCacheService(time.Minute)
	t.Cleanup(cache.Close)

	identity := service.NewIdentityVerifier(secret, "")
	hub := ws.NewHub()

	return SetupRouter(cfg, Handlers{
		Report:       handlers.NewReportHandler(core.Lifecycle, nil),
		Verification: handlers.NewVerificationHandler(core.CastVote, core.ListVotes),
		Leaderboard:  handlers.NewLeaderboardHandler(service.NewLeaderboardService(stores.Leaderboard, cache, cfg.LeaderboardCacheTTL, cfg.LeaderboardLimit)),
		Score:        handlers.NewScoreHandler(core.Scoring),
		WS:           handlers.NewWSHandler(hub, identity, cfg.AllowedOrigins),
		Health:       handlers.NewHealthHandler(nil, cfg.StoreDriver),
	}, Deps{Tokens: identity, Users: stores.Users, Cache: cache})
}

func token(t *testing.T, userID uuid.UUID, city string) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":            userID.String(),
		"exp":            time.Now().Add(time.Hour).Unix(),
		"email_verified": true,
		"name":           "Tester",
		"city":           city,
		"country":        "DE",
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return raw
}

func call(t *testing.T, r http.Handler, method, path, bearer string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	r := newTestRouter(t)

	w := call(t, r, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")

	w = call(t, r, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_ProtectedRoutesRequireToken(t *testing.T) {
	r := newTestRouter(t)

	assert.Equal(t, http.StatusUnauthorized, call(t, r, http.MethodPost, "/api/reports", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, call(t, r, http.MethodGet, "/api/scores/me", "garbage", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, call(t, r, http.MethodGet, "/api/ws", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, call(t, r, http.MethodGet, "/api/reports/nope", "", nil).Code)
}

func TestRouter_ClearAppearsOnCityLeaderboard(t *testing.T) {
	r := newTestRouter(t)
	reporter, cleaner := uuid.New(), uuid.New()

	w := call(t, r, http.MethodPost, "/api/reports", token(t, reporter, "Berlin"), map[string]interface{}{
		"latitude":  52.52,
		"longitude": 13.405,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	id := created.Data.ID

	cleanerToken := token(t, cleaner, "Berlin")
	w = call(t, r, http.MethodPost, "/api/reports/"+id+"/claim", cleanerToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = call(t, r, http.MethodPost, "/api/reports/"+id+"/clear", cleanerToken, map[string]string{"photo_ref": "after.jpg"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = call(t, r, http.MethodGet, "/api/leaderboards/city/berlin", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var board struct {
		Data struct {
			Entries []struct {
				UserID   uuid.UUID `json:"user_id"`
				FullName string    `json:"full_name"`
				City     string    `json:"city"`
			} `json:"entries"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &board))
	require.Len(t, board.Data.Entries, 1)
	assert.Equal(t, cleaner, board.Data.Entries[0].UserID)
	assert.Equal(t, "Tester", board.Data.Entries[0].FullName)
	assert.Equal(t, "Berlin", board.Data.Entries[0].City)

	w = call(t, r, http.MethodGet, "/api/leaderboards/city/Hamburg", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"entries":[]`)
}
