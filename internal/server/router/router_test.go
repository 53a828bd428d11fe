package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/mamadbah2/farmhub/internal/config"
	"github.com/mamadbah2/farmhub/internal/domain/models"
	"github.com/mamadbah2/farmhub/internal/repository/memory"
	"github.com/mamadbah2/farmhub/internal/server/middleware"
	"github.com/mamadbah2/farmhub/internal/service/auth"
	"github.com/mamadbah2/farmhub/internal/service/cattle"
	"github.com/mamadbah2/farmhub/internal/service/feed"
	"github.com/mamadbah2/farmhub/internal/service/finance"
	"github.com/mamadbah2/farmhub/internal/service/health"
	"github.com/mamadbah2/farmhub/internal/service/reporting"
	"github.com/mamadbah2/farmhub/internal/service/weather"
	"github.com/mamadbah2/farmhub/pkg/clients/openweather"
)

type testApp struct {
	t      *testing.T
	engine *gin.Engine
	repo   *memory.Repository
	tokens *auth.TokenManager
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	logger := zaptest.NewLogger(t)
	repo := memory.New()
	tokens := auth.NewTokenManager("test-secret", time.Hour)

	financeSvc := finance.NewService(repo.Finances(), nil, logger)
	svc := Services{
		Auth:      auth.NewService(repo.Users(), repo.Farms(), tokens, bcrypt.MinCost, logger),
		Cattle:    cattle.NewService(repo.Cattle(), logger),
		Feed:      feed.NewService(repo.Feed(), logger),
		Health:    health.NewService(repo.Health(), repo.Cattle(), logger),
		Finance:   financeSvc,
		Reporting: reporting.NewService(repo.Cattle(), repo.Feed(), financeSvc, logger),
		Weather: weather.NewService(openweather.NewClient(config.WeatherConfig{
			BaseURL: "http://127.0.0.1:1",
			Timeout: time.Second,
		}), logger),
	}

	engine := New(svc, Options{AllowedOrigins: []string{"*"}, Registry: prometheus.NewRegistry()}, logger)
	return &testApp{t: t, engine: engine, repo: repo, tokens: tokens}
}

func (a *testApp) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.engine.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// signup registers a user and returns its token and id.
func (a *testApp) signup(username string) (string, string) {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/auth/signup", map[string]string{
		"username": username,
		"email":    username + "@x.com",
		"password": "pw1234",
	}, "")
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(a.t, rec)
	user := body["user"].(map[string]any)
	return body["token"].(string), user["_id"].(string)
}

func TestRegisterThenSignIn(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodPost, "/api/auth/signup", map[string]string{
		"username": "alice", "email": "alice@x.com", "password": "pw1234",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "password")
	assert.Contains(t, rec.Header().Get("Set-Cookie"), middleware.CookieName+"=")
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "HttpOnly")

	rec = app.do(http.MethodPost, "/api/auth/signin", map[string]string{
		"email": "alice@x.com", "password": "pw1234",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, decode(t, rec)["token"])

	rec = app.do(http.MethodPost, "/api/auth/login", map[string]string{
		"username": "alice", "password": "wrong1",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = app.do(http.MethodPost, "/api/auth/signin", map[string]string{
		"email": "nobody@x.com", "password": "pw1234",
	}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(http.MethodPost, "/api/auth/signup", map[string]string{
		"username": "alice", "email": "other@x.com", "password": "pw1234",
	}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Username already exists", decode(t, rec)["error"])
}

func TestCattleIsInvisibleToOtherOwners(t *testing.T) {
	app := newTestApp(t)
	aliceToken, aliceID := app.signup("alice")
	bobToken, _ := app.signup("bob")

	rec := app.do(http.MethodPost, "/api/cattle", map[string]string{
		"name": "Bessie", "breed": "Jersey", "gender": "Female", "tag_number": "T1",
	}, aliceToken)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	id := created["_id"].(string)
	assert.Len(t, id, 24)
	assert.Equal(t, aliceID, created["createdBy"])

	rec = app.do(http.MethodGet, "/api/cattle/"+id, nil, bobToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	notOwned := rec.Body.String()

	rec = app.do(http.MethodGet, "/api/cattle/"+strings.Repeat("0", 24), nil, bobToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, notOwned, rec.Body.String())

	rec = app.do(http.MethodGet, "/api/cattle/not-an-id", nil, bobToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, notOwned, rec.Body.String())

	rec = app.do(http.MethodDelete, "/api/cattle/"+id, nil, bobToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(http.MethodPut, "/api/cattle/"+id, map[string]string{"createdBy": strings.Repeat("0", 24), "name": "Daisy"}, aliceToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, aliceID, decode(t, rec)["createdBy"])

	rec = app.do(http.MethodPost, "/api/cattle/"+id+"/health-records", map[string]string{"notes": "Dewormed"}, aliceToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decode(t, rec)["healthRecords"], 1)

	rec = app.do(http.MethodDelete, "/api/cattle/"+id, nil, aliceToken)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Cattle deleted successfully", body["message"])
	assert.Equal(t, id, body["deletedCattle"].(map[string]any)["_id"])
}

func TestAdjustStockRejectsOverdraw(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.signup("alice")

	rec := app.do(http.MethodPost, "/api/feed", map[string]any{
		"name": "Hay", "type": "Fodder", "quantity": 100, "unit": "kg", "cost": 40, "stockAlert": 10,
	}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode(t, rec)["_id"].(string)

	rec = app.do(http.MethodPost, "/api/feed/"+id+"/adjust-stock", map[string]any{
		"adjustment": 150, "operation": "subtract",
	}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Insufficient stock for this operation", decode(t, rec)["error"])

	rec = app.do(http.MethodGet, "/api/feed/"+id, nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 100.0, decode(t, rec)["quantity"])

	rec = app.do(http.MethodPost, "/api/feed/"+id+"/adjust-stock", map[string]any{
		"adjustment": 95, "operation": "subtract",
	}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "Stock adjusted successfully", body["message"])
	assert.Equal(t, 5.0, body["feed"].(map[string]any)["quantity"])

	rec = app.do(http.MethodGet, "/api/feed/low-stock", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	var low []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &low))
	require.Len(t, low, 1)
	assert.Equal(t, id, low[0]["_id"])
}

func TestHealthRecordRequiresOwnedCattle(t *testing.T) {
	app := newTestApp(t)
	aliceToken, _ := app.signup("alice")
	bobToken, _ := app.signup("bob")

	rec := app.do(http.MethodPost, "/api/cattle", map[string]string{
		"name": "Bessie", "breed": "Jersey", "gender": "Female", "tag_number": "T1",
	}, bobToken)
	require.Equal(t, http.StatusCreated, rec.Code)
	bobCattle := decode(t, rec)["_id"].(string)

	rec = app.do(http.MethodPost, "/api/health", map[string]string{
		"cattleId": bobCattle, "type": "Vaccination", "description": "FMD booster",
	}, aliceToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Cattle not found or unauthorized", decode(t, rec)["error"])

	rec = app.do(http.MethodPost, "/api/health", map[string]string{
		"cattleId": bobCattle, "type": "Vaccination", "description": "FMD booster",
	}, bobToken)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	cattleRef := decode(t, rec)["cattle"].(map[string]any)
	assert.Equal(t, "Bessie", cattleRef["name"])

	rec = app.do(http.MethodGet, "/api/health/cattle/"+bobCattle, nil, bobToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var records []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	assert.Len(t, records, 1)
}

func TestWritesAcceptCalendarDates(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.signup("alice")

	rec := app.do(http.MethodPost, "/api/feed", map[string]any{
		"name": "Hay", "type": "Fodder", "quantity": 100, "unit": "kg", "cost": 40, "stockAlert": 10,
		"purchaseDate": "2026-10-01", "expiryDate": "2026-12-31",
	}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	assert.Equal(t, "2026-10-01T00:00:00Z", created["purchaseDate"])
	assert.Equal(t, "2026-12-31T00:00:00Z", created["expiryDate"])

	rec = app.do(http.MethodPut, "/api/feed/"+created["_id"].(string), map[string]any{"expiryDate": "2027-01-15"}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "2027-01-15T00:00:00Z", decode(t, rec)["expiryDate"])

	rec = app.do(http.MethodPost, "/api/finances", map[string]any{
		"amount": 250, "type": "Income", "description": "Milk", "date": "2026-10-01",
	}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "2026-10-01T00:00:00Z", decode(t, rec)["date"])

	rec = app.do(http.MethodPost, "/api/cattle", map[string]string{
		"name": "Bessie", "breed": "Jersey", "gender": "Female", "tag_number": "T1",
	}, token)
	require.Equal(t, http.StatusCreated, rec.Code)
	cow := decode(t, rec)["_id"].(string)

	rec = app.do(http.MethodPost, "/api/health", map[string]string{
		"cattleId": cow, "type": "Vaccination", "description": "FMD booster",
		"date": "2026-10-02", "nextCheckupDate": "2027-04-02T09:00:00+01:00",
	}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	record := decode(t, rec)
	assert.Equal(t, "2026-10-02T00:00:00Z", record["date"])
	assert.Equal(t, "2027-04-02T08:00:00Z", record["nextCheckupDate"])

	rec = app.do(http.MethodPost, "/api/finances", map[string]any{
		"amount": 250, "type": "Income", "description": "Milk", "date": "01/10/2026",
	}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Dates must use the YYYY-MM-DD format", decode(t, rec)["error"])
}

func TestForeignIDsAnswerLikeMissingIDs(t *testing.T) {
	app := newTestApp(t)
	aliceToken, _ := app.signup("alice")
	bobToken, _ := app.signup("bob")

	rec := app.do(http.MethodPost, "/api/cattle", map[string]string{
		"name": "Bessie", "breed": "Jersey", "gender": "Female", "tag_number": "T1",
	}, aliceToken)
	require.Equal(t, http.StatusCreated, rec.Code)
	cow := decode(t, rec)["_id"].(string)

	cases := []struct {
		path    string
		create  map[string]any
		update  map[string]any
		message string
	}{
		{
			path:    "/api/cattle",
			create:  map[string]any{"name": "Daisy", "breed": "Zebu", "gender": "Female", "tag_number": "T2"},
			update:  map[string]any{"name": "Rosie"},
			message: "Cattle not found",
		},
		{
			path:    "/api/feed",
			create:  map[string]any{"name": "Hay", "type": "Fodder", "quantity": 100, "unit": "kg", "cost": 40, "stockAlert": 10},
			update:  map[string]any{"notes": "moved to barn"},
			message: "Feed not found",
		},
		{
			path:    "/api/health",
			create:  map[string]any{"cattleId": cow, "type": "Check-up", "description": "routine"},
			update:  map[string]any{"description": "follow-up"},
			message: "Health record not found",
		},
		{
			path:    "/api/finances",
			create:  map[string]any{"amount": 90, "type": "Expense", "description": "Salt"},
			update:  map[string]any{"description": "Salt lick"},
			message: "Finance record not found",
		},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			rec := app.do(http.MethodPost, tc.path, tc.create, aliceToken)
			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
			owned := decode(t, rec)["_id"].(string)

			ids := map[string]string{
				"foreign":   owned,
				"missing":   primitive.NewObjectID().Hex(),
				"malformed": "not-an-id",
			}
			for kind, id := range ids {
				for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
					var body any
					if method == http.MethodPut {
						body = tc.update
					}
					rec := app.do(method, tc.path+"/"+id, body, bobToken)
					assert.Equal(t, http.StatusNotFound, rec.Code, "%s %s id", method, kind)
					assert.JSONEq(t, `{"error":"`+tc.message+`"}`, rec.Body.String(), "%s %s id", method, kind)
				}
			}

			rec = app.do(http.MethodGet, tc.path+"/"+owned, nil, aliceToken)
			require.Equal(t, http.StatusOK, rec.Code)
			for field, want := range tc.create {
				if s, ok := want.(string); ok {
					assert.Equal(t, s, decode(t, rec)[field], field)
				}
			}
		})
	}
}

func TestAuthenticationFailures(t *testing.T) {
	app := newTestApp(t)
	token, id := app.signup("alice")

	rec := app.do(http.MethodGet, "/api/cattle", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Authentication required", decode(t, rec)["error"])

	rec = app.do(http.MethodGet, "/api/cattle", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid or expired token", decode(t, rec)["error"])

	expired := auth.NewTokenManager("test-secret", -time.Minute)
	stale, err := expired.Issue(mustUser(t, app, id))
	require.NoError(t, err)
	rec = app.do(http.MethodGet, "/api/cattle", nil, stale)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/user/profile", nil)
	req.AddCookie(&http.Cookie{Name: middleware.CookieName, Value: token})
	cookieRec := httptest.NewRecorder()
	app.engine.ServeHTTP(cookieRec, req)
	require.Equal(t, http.StatusOK, cookieRec.Code)
	assert.Equal(t, "alice", decode(t, cookieRec)["username"])
}

func TestFinanceSummaryAndExportDisabled(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.signup("alice")

	for _, entry := range []map[string]any{
		{"amount": 500, "type": "Income", "description": "Milk", "date": "2024-03-01T10:00:00Z"},
		{"amount": 120, "type": "Expense", "description": "Vet", "date": "2024-03-02T10:00:00Z"},
		{"amount": 80, "type": "Expense", "description": "Hay", "date": "2024-04-02T10:00:00Z"},
	} {
		rec := app.do(http.MethodPost, "/api/finances", entry, token)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := app.do(http.MethodGet, "/api/finance/summary?from=2024-03-01&to=2024-03-31", nil, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := decode(t, rec)
	assert.Equal(t, 500.0, summary["income"])
	assert.Equal(t, 120.0, summary["expense"])
	assert.Equal(t, 380.0, summary["balance"])

	rec = app.do(http.MethodGet, "/api/finances/summary?from=March", nil, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(http.MethodPost, "/api/finances/export", nil, token)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Finance export is not configured", decode(t, rec)["error"])

	rec = app.do(http.MethodGet, "/api/reports/overview", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	overview := decode(t, rec)
	assert.Equal(t, 300.0, overview["finance"].(map[string]any)["balance"])
}

func TestWeatherWithoutKeyIsConfigError(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodGet, "/api/weather?city=Dakar", nil, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Weather API key is not configured", decode(t, rec)["error"])

	rec = app.do(http.MethodGet, "/api/weather", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOperationalEndpoints(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-42")
	echoed := httptest.NewRecorder()
	app.engine.ServeHTTP(echoed, req)
	assert.Equal(t, "req-42", echoed.Header().Get(middleware.RequestIDHeader))

	rec = app.do(http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `farmhub_http_requests_total{method="GET",route="/healthz",status="200"} 2`)
}

func TestSignoutClearsCookie(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodPost, "/api/auth/signout", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := rec.Header().Get("Set-Cookie")
	assert.Contains(t, cookie, middleware.CookieName+"=;")
	assert.Contains(t, cookie, "Max-Age=0")
}

func mustUser(t *testing.T, app *testApp, id string) *models.User {
	t.Helper()
	oid, err := primitive.ObjectIDFromHex(id)
	require.NoError(t, err)
	user, err := app.repo.Users().Get(context.Background(), oid)
	require.NoError(t, err)
	return user
}
