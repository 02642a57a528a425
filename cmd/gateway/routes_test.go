package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"printfleet-system/config"
	"printfleet-system/internal/database/dbtest"
	"printfleet-system/internal/gateway/clients"
	user "printfleet-system/internal/services/user/handler"
	sysutils "printfleet-system/internal/utils"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Error   string          `json:"error"`
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	admin  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens := sysutils.NewTokenIssuer("gateway-test-secret", time.Hour)
	services := clients.NewServices(dbtest.New(t), nil, tokens, zap.NewNop())

	ctx := context.Background()
	_, err := services.Users.SeedRoles(ctx)
	require.NoError(t, err)
	adminRole, err := services.Users.RoleByName(ctx, "admin")
	require.NoError(t, err)
	admin, err := services.Users.CreateUser(ctx, user.RegisterRequest{
		Username: "root", Email: "root@example.com", Password: "supersecret",
		Firstname: "Root", Lastname: "Admin", RoleID: adminRole.ID,
	})
	require.NoError(t, err)
	token, _, err := tokens.GenerateToken(admin.ID, admin.Username, adminRole.AccessLevel)
	require.NoError(t, err)

	cfg := config.Config{HTTP: config.HTTPConfig{CORSOrigins: []string{"*"}}}
	router, err := setupRouter(services, cfg, zap.NewNop())
	require.NoError(t, err)

	return &testServer{t: t, router: router, admin: token}
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// call performs the request and decodes data into out when the status matches.
func (s *testServer) call(method, path, token string, body interface{}, wantStatus int, out interface{}) envelope {
	s.t.Helper()
	w := s.do(method, path, token, body)
	require.Equal(s.t, wantStatus, w.Code, w.Body.String())

	var env envelope
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env))
	if out != nil {
		require.NoError(s.t, json.Unmarshal(env.Data, out))
	}
	return env
}

type idOnly struct {
	ID int64 `json:"id"`
}

func TestHealth_DegradedWithoutRedis(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, []interface{}{"redis"}, body["unavailable_services"])
	assert.Equal(t, "disabled", w.Header().Get("X-Cache"))
}

func TestAuth_RegisterLoginAndAccessLevels(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/v1/printers", "", nil).Code)

	register := map[string]interface{}{
		"username": "viewer1", "email": "viewer1@example.com", "password": "password123",
		"firstname": "Vi", "lastname": "Ewer", "role_id": 4,
	}
	var session struct {
		Token string `json:"token"`
		User  struct {
			Role struct {
				RoleName string `json:"role_name"`
			} `json:"role"`
		} `json:"user"`
	}
	s.call(http.MethodPost, "/api/v1/auth/register", "", register, http.StatusCreated, &session)
	assert.Equal(t, "viewer", session.User.Role.RoleName)
	require.NotEmpty(t, session.Token)

	s.call(http.MethodPost, "/api/v1/auth/login", "",
		map[string]string{"username": "viewer1", "password": "password123"}, http.StatusOK, &session)

	env := s.call(http.MethodPost, "/api/v1/auth/login", "",
		map[string]string{"username": "viewer1", "password": "wrong-password"}, http.StatusUnauthorized, nil)
	assert.False(t, env.Success)

	s.call(http.MethodGet, "/api/v1/printers", session.Token, nil, http.StatusOK, nil)
	env = s.call(http.MethodPost, "/api/v1/printers", session.Token, map[string]int{"model_id": 1}, http.StatusForbidden, nil)
	assert.Equal(t, "Insufficient access level", env.Error)
	s.call(http.MethodGet, "/api/v1/users", session.Token, nil, http.StatusForbidden, nil)
	s.call(http.MethodGet, "/api/v1/users", s.admin, nil, http.StatusOK, nil)
}

func TestPrinterLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	token := s.admin

	var mk, series, model idOnly
	s.call(http.MethodPost, "/api/v1/catalog/makes", token, map[string]string{"name": "HP"}, http.StatusCreated, &mk)
	s.call(http.MethodPost, "/api/v1/catalog/makes/"+itoa(mk.ID)+"/series", token,
		map[string]string{"name": "LaserJet"}, http.StatusCreated, &series)
	s.call(http.MethodPost, "/api/v1/catalog/series/"+itoa(series.ID)+"/models", token,
		map[string]string{"name": "M428fdn"}, http.StatusCreated, &model)

	var printer struct {
		ID        int64  `json:"id"`
		Make      string `json:"make"`
		Series    string `json:"series"`
		Model     string `json:"model"`
		Status    string `json:"status"`
		Ownership string `json:"ownership"`
	}
	s.call(http.MethodPost, "/api/v1/printers", token, map[string]interface{}{"model_id": model.ID}, http.StatusCreated, &printer)
	assert.Equal(t, "HP", printer.Make)
	assert.Equal(t, "LaserJet", printer.Series)
	assert.Equal(t, "M428fdn", printer.Model)
	assert.Equal(t, "available", printer.Status)
	assert.Equal(t, "system_asset", printer.Ownership)

	var listed []idOnly
	env := s.call(http.MethodGet, "/api/v1/printers?status=available", token, nil, http.StatusOK, &listed)
	require.Len(t, listed, 1)
	assert.Contains(t, string(env.Meta), `"total_count":1`)

	env = s.call(http.MethodGet, "/api/v1/printers/9999", token, nil, http.StatusNotFound, nil)
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "not found")

	s.call(http.MethodGet, "/api/v1/printers/abc", token, nil, http.StatusBadRequest, nil)

	s.call(http.MethodPatch, "/api/v1/printers/"+itoa(printer.ID)+"/status", token,
		map[string]string{"status": "sleeping"}, http.StatusBadRequest, nil)

	var toner idOnly
	s.call(http.MethodPost, "/api/v1/toners", token, map[string]interface{}{
		"brand": "HP", "model": "CF259A", "color": "black", "page_yield": 3000,
		"compatibility": []string{"M428"}, "is_base_model": true,
	}, http.StatusCreated, &toner)

	var matches struct {
		Compatible []idOnly `json:"compatible"`
		Related    []idOnly `json:"related"`
	}
	s.call(http.MethodGet, "/api/v1/printers/"+itoa(printer.ID)+"/compatible-toners", token, nil, http.StatusOK, &matches)
	require.Len(t, matches.Compatible, 1)
	assert.Equal(t, toner.ID, matches.Compatible[0].ID)
	assert.Empty(t, matches.Related)

	w := s.do(http.MethodGet, "/api/v1/printers/export.xlsx", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "spreadsheetml")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))
}

func TestMaintenanceReportPDFOverHTTP(t *testing.T) {
	s := newTestServer(t)
	token := s.admin

	var mk, series, model, printer idOnly
	s.call(http.MethodPost, "/api/v1/catalog/makes", token, map[string]string{"name": "Brother"}, http.StatusCreated, &mk)
	s.call(http.MethodPost, "/api/v1/catalog/makes/"+itoa(mk.ID)+"/series", token,
		map[string]string{"name": "HL"}, http.StatusCreated, &series)
	s.call(http.MethodPost, "/api/v1/catalog/series/"+itoa(series.ID)+"/models", token,
		map[string]string{"name": "L2350DW"}, http.StatusCreated, &model)
	s.call(http.MethodPost, "/api/v1/printers", token, map[string]interface{}{"model_id": model.ID}, http.StatusCreated, &printer)

	var record struct {
		ID         int64  `json:"id"`
		ReportedBy string `json:"reported_by"`
		Status     string `json:"status"`
	}
	s.call(http.MethodPost, "/api/v1/maintenance/records", token, map[string]interface{}{
		"printer_id": printer.ID, "issue_description": "Paper jam in tray 2",
	}, http.StatusCreated, &record)
	assert.Equal(t, "root", record.ReportedBy)
	assert.Equal(t, "pending", record.Status)

	s.call(http.MethodGet, "/api/v1/maintenance/records/"+itoa(record.ID)+"/report", token, nil, http.StatusNotFound, nil)

	var report struct {
		ReportNumber string `json:"report_number"`
	}
	s.call(http.MethodPost, "/api/v1/maintenance/records/"+itoa(record.ID)+"/report", token, nil, http.StatusCreated, &report)
	assert.Regexp(t, `^SR-\d{8}-`, report.ReportNumber)

	w := s.do(http.MethodGet, "/api/v1/maintenance/records/"+itoa(record.ID)+"/report.pdf", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))
	assert.Contains(t, w.Header().Get("Content-Disposition"), report.ReportNumber)
}

func TestStorefrontIsPublic(t *testing.T) {
	s := newTestServer(t)

	s.call(http.MethodPost, "/api/v1/store/products", s.admin, map[string]interface{}{
		"sku": "TN-2420", "name": "Brother TN-2420", "manufacturer": "Brother",
		"compatibility": []string{"L2350"}, "price": "39.90", "stock_level": 3,
	}, http.StatusCreated, nil)

	var products []struct {
		SKU string `json:"sku"`
	}
	s.call(http.MethodGet, "/api/v1/store/products", "", nil, http.StatusOK, &products)
	require.Len(t, products, 1)
	assert.Equal(t, "TN-2420", products[0].SKU)

	s.call(http.MethodPost, "/api/v1/store/products", "", map[string]string{"sku": "x"}, http.StatusUnauthorized, nil)
}
