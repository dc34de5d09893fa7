package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/daniil11ru/bustrack/cli/tracker/auth"
	"github.com/daniil11ru/bustrack/cli/tracker/cache"
	"github.com/daniil11ru/bustrack/cli/tracker/domain"
	"github.com/daniil11ru/bustrack/cli/tracker/hub"
)

type apiStack struct {
	positions  *cache.PositionCache
	tokens     *auth.TokenService
	controller *Controller
}

func newAPIStack(t *testing.T) *apiStack {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log.SetOutput(io.Discard)

	positions := cache.New()
	router := hub.New(positions)
	tokens := auth.NewTokenService("test-secret", time.Hour)

	handler := NewHandler(
		tokens,
		domain.NewReportPosition(positions, router, nil),
		&domain.GetLastPosition{Positions: positions},
	)

	stubWS := func(c *gin.Context) { c.Status(http.StatusNotImplemented) }
	controller := NewController(handler, stubWS, stubWS)

	return &apiStack{positions: positions, tokens: tokens, controller: controller}
}

func (s *apiStack) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.controller.router.ServeHTTP(w, req)
	return w
}

func TestUpdatePositionAuth(t *testing.T) {
	stack := newAPIStack(t)

	body := map[string]interface{}{"lat": 10.0, "lng": 20.0}

	w := stack.do(t, http.MethodPost, "/api/driver/update", "", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = stack.do(t, http.MethodPost, "/api/driver/update", "garbage", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	expired, err := auth.NewTokenService("test-secret", -time.Hour).Issue("bus101", "d")
	assert.NoError(t, err)
	w = stack.do(t, http.MethodPost, "/api/driver/update", expired, body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// No record may appear for a bus that never had an accepted report.
	_, ok := stack.positions.Get("bus101")
	assert.False(t, ok)
}

func TestUpdatePositionValidation(t *testing.T) {
	stack := newAPIStack(t)

	token, err := stack.tokens.Issue("bus101", "driver-1")
	assert.NoError(t, err)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{name: "Missing lat", body: map[string]interface{}{"lng": 20.0}},
		{name: "Missing lng", body: map[string]interface{}{"lat": 10.0}},
		{name: "Non-numeric lat", body: map[string]interface{}{"lat": "x", "lng": 20.0}},
		{name: "Latitude out of range", body: map[string]interface{}{"lat": 999.0, "lng": 20.0}},
		{name: "Longitude out of range", body: map[string]interface{}{"lat": 10.0, "lng": -181.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := stack.do(t, http.MethodPost, "/api/driver/update", token, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}

	// None of the rejected reports created a record.
	w := stack.do(t, http.MethodGet, "/api/bus/bus101/last", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReportAndSnapshotScenario(t *testing.T) {
	stack := newAPIStack(t)

	mintResp := stack.do(t, http.MethodPost, "/api/token/driver", "", map[string]string{"busId": "bus101"})
	if !assert.Equal(t, http.StatusOK, mintResp.Code) {
		return
	}
	var mint struct {
		Token string `json:"token"`
	}
	assert.NoError(t, json.Unmarshal(mintResp.Body.Bytes(), &mint))
	assert.NotEmpty(t, mint.Token)

	w := stack.do(t, http.MethodPost, "/api/driver/update", mint.Token, map[string]interface{}{
		"lat": 28.6139, "lng": 77.2090, "timestamp": 1700000000000,
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok": true}`, w.Body.String())

	w = stack.do(t, http.MethodGet, "/api/bus/bus101/last", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"busId":"bus101","lat":28.6139,"lng":77.2090,"ts":1700000000000}`, w.Body.String())
}

func TestTokenIsScopedToItsBus(t *testing.T) {
	stack := newAPIStack(t)

	tokenA, err := stack.tokens.Issue("busA", "driver-1")
	assert.NoError(t, err)

	w := stack.do(t, http.MethodPost, "/api/driver/update", tokenA, map[string]interface{}{"lat": 1.0, "lng": 2.0})
	assert.Equal(t, http.StatusOK, w.Code)

	// The report landed on busA: the token cannot publish for any other
	// bus, there is simply no way to address one.
	_, ok := stack.positions.Get("busA")
	assert.True(t, ok)
	_, ok = stack.positions.Get("busB")
	assert.False(t, ok)
}

func TestIssueDriverTokenValidation(t *testing.T) {
	stack := newAPIStack(t)

	w := stack.do(t, http.MethodPost, "/api/token/driver", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = stack.do(t, http.MethodPost, "/api/token/driver", "", map[string]string{"busId": "bus101", "driverId": "d42"})
	assert.Equal(t, http.StatusOK, w.Code)

	var mint struct {
		Token string `json:"token"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &mint))

	busID, err := stack.tokens.Verify(mint.Token)
	assert.NoError(t, err)
	assert.Equal(t, "bus101", busID)
}

func TestSnapshotNotFound(t *testing.T) {
	stack := newAPIStack(t)

	w := stack.do(t, http.MethodGet, "/api/bus/ghost/last", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Not found"}`, w.Body.String())
}

func TestHealth(t *testing.T) {
	stack := newAPIStack(t)

	w := stack.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
