package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"santiye/internal/database"
	"santiye/internal/docstore"
	"santiye/internal/domain"
	"santiye/internal/events"
	"santiye/internal/middleware"
	"santiye/internal/modules/allowlist"
	"santiye/internal/modules/contract"
	"santiye/internal/modules/deduction"
	"santiye/internal/modules/payment"
	"santiye/internal/modules/project"
	"santiye/internal/modules/tender"
	jwtsvc "santiye/internal/pkg/jwt"
	"santiye/internal/selection"
)

type E2ETestSuite struct {
	router *gin.Engine
	store  *docstore.Store
	jwt    *jwtsvc.Service
}

type TestResponse struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Error   *ErrorDetail           `json:"error,omitempty"`
}

type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

var suiteSeq int

func setupTestSuite(t *testing.T) *E2ETestSuite {
	suiteSeq++
	db, err := database.ConnectTest(fmt.Sprintf("e2e_%s_%d", t.Name(), suiteSeq))
	require.NoError(t, err, "Failed to connect to test database")

	bus := events.NewBus()
	store, err := docstore.Open(db, bus, domain.Rules())
	require.NoError(t, err)
	t.Cleanup(store.Close)

	jwtService := jwtsvc.New("test_secret_key_32_characters_min", 24*time.Hour)

	allowlistHandler := allowlist.NewHandler(allowlist.NewService(store, jwtService))

	manager := selection.NewManager(store, bus, selection.NewMemoryStorage())
	t.Cleanup(manager.Close)

	projectHandler := project.NewHandler(manager)
	tenderHandler := tender.NewHandler(tender.NewService(store))
	contractHandler := contract.NewHandler(contract.NewService(store))
	paymentHandler := payment.NewHandler(payment.NewService(store))
	deductionHandler := deduction.NewHandler(deduction.NewService(store))

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())

	v1 := r.Group("/api/v1")

	allowlistHandler.RegisterPublicRoutes(v1)

	protected := v1.Group("")
	protected.Use(middleware.Auth(jwtService))
	{
		allowlistHandler.RegisterProtectedRoutes(protected)
		projectHandler.RegisterRoutes(protected)
		tenderHandler.RegisterRoutes(protected)
		contractHandler.RegisterRoutes(protected)
		paymentHandler.RegisterRoutes(protected)
		deductionHandler.RegisterRoutes(protected)

		adminGroup := protected.Group("")
		adminGroup.Use(middleware.AdminOnly())
		{
			allowlistHandler.RegisterAdminRoutes(adminGroup)
		}
	}

	return &E2ETestSuite{router: r, store: store, jwt: jwtService}
}

func (s *E2ETestSuite) makeRequest(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()

	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) *TestResponse {
	t.Helper()
	var resp TestResponse
	require.NoErrorf(t, json.Unmarshal(w.Body.Bytes(), &resp),
		"failed to parse response, status=%d body=%s", w.Code, w.Body.String())
	return &resp
}

// allowlistAndRegister provisions a fresh engineer account and returns
// its token.
func (s *E2ETestSuite) allowlistAndRegister(t *testing.T, email string) string {
	t.Helper()

	require.NoError(t, s.store.Set(
		bgCtx(), docstore.System(), domain.CollectionUsersByEmail, email,
		docstore.Document{"email": email, "role": domain.RoleUser},
	))

	w := s.makeRequest(t, "POST", "/api/v1/auth/register", map[string]interface{}{
		"email":    email,
		"password": "Password123!",
		"name":     "Test Engineer",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	resp := parseResponse(t, w)
	token, _ := resp.Data["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func bgCtx() context.Context { return context.Background() }

func TestFlow_RegistrationGatedByAllowlist(t *testing.T) {
	suite := setupTestSuite(t)

	t.Run("unlisted email is rejected", func(t *testing.T) {
		w := suite.makeRequest(t, "POST", "/api/v1/auth/register", map[string]interface{}{
			"email":    "stranger@santiye.com",
			"password": "Password123!",
		}, "")

		assert.Equal(t, http.StatusForbidden, w.Code)
		resp := parseResponse(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "NOT_ALLOWLISTED", resp.Error.Code)
	})

	t.Run("allowlisted email registers and logs in", func(t *testing.T) {
		token := suite.allowlistAndRegister(t, "eng@santiye.com")
		assert.NotEmpty(t, token)

		w := suite.makeRequest(t, "POST", "/api/v1/auth/login", map[string]interface{}{
			"email":    "eng@santiye.com",
			"password": "Password123!",
		}, "")
		assert.Equal(t, http.StatusOK, w.Code)

		resp := parseResponse(t, w)
		assert.True(t, resp.Success)
		assert.NotEmpty(t, resp.Data["token"])
	})

	t.Run("authenticated user refreshes its token", func(t *testing.T) {
		token := suite.allowlistAndRegister(t, "refresh@santiye.com")

		w := suite.makeRequest(t, "POST", "/api/v1/auth/refresh", nil, token)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		resp := parseResponse(t, w)
		fresh, _ := resp.Data["token"].(string)
		require.NotEmpty(t, fresh)

		w = suite.makeRequest(t, "GET", "/api/v1/projects", nil, fresh)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("short password is rejected with field details", func(t *testing.T) {
		require.NoError(t, suite.store.Set(
			bgCtx(), docstore.System(), domain.CollectionUsersByEmail, "short@santiye.com",
			docstore.Document{"email": "short@santiye.com", "role": domain.RoleUser},
		))

		w := suite.makeRequest(t, "POST", "/api/v1/auth/register", map[string]interface{}{
			"email":    "short@santiye.com",
			"password": "abc",
		}, "")
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestFlow_ProjectLifecycleAndSelection(t *testing.T) {
	suite := setupTestSuite(t)
	token := suite.allowlistAndRegister(t, "pm@santiye.com")

	var firstID, secondID string

	t.Run("create two projects", func(t *testing.T) {
		for _, name := range []string{"Konut Bloğu A", "Konut Bloğu B"} {
			w := suite.makeRequest(t, "POST", "/api/v1/projects", map[string]interface{}{"name": name}, token)
			require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

			resp := parseResponse(t, w)
			p := resp.Data["project"].(map[string]interface{})
			if firstID == "" {
				firstID = p["id"].(string)
			} else {
				secondID = p["id"].(string)
			}
		}
		require.NotEmpty(t, firstID)
		require.NotEmpty(t, secondID)
	})

	t.Run("last created project is selected", func(t *testing.T) {
		w := suite.makeRequest(t, "GET", "/api/v1/projects/selected", nil, token)
		require.Equal(t, http.StatusOK, w.Code)

		resp := parseResponse(t, w)
		p, _ := resp.Data["project"].(map[string]interface{})
		require.NotNil(t, p)
		assert.Equal(t, secondID, p["id"])
	})

	t.Run("switch selection", func(t *testing.T) {
		w := suite.makeRequest(t, "PUT", "/api/v1/projects/selected", map[string]interface{}{
			"projectId": firstID,
		}, token)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = suite.makeRequest(t, "GET", "/api/v1/projects/selected", nil, token)
		resp := parseResponse(t, w)
		p, _ := resp.Data["project"].(map[string]interface{})
		require.NotNil(t, p)
		assert.Equal(t, firstID, p["id"])
	})

	t.Run("selecting an unknown project fails", func(t *testing.T) {
		w := suite.makeRequest(t, "PUT", "/api/v1/projects/selected", map[string]interface{}{
			"projectId": "ghost",
		}, token)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("rename project", func(t *testing.T) {
		w := suite.makeRequest(t, "PATCH", "/api/v1/projects/"+firstID, map[string]interface{}{
			"name": "Konut Bloğu A (revize)",
		}, token)
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})

	t.Run("delete selected project re-resolves selection", func(t *testing.T) {
		w := suite.makeRequest(t, "DELETE", "/api/v1/projects/"+firstID, nil, token)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		require.Eventually(t, func() bool {
			w := suite.makeRequest(t, "GET", "/api/v1/projects/selected", nil, token)
			resp := parseResponse(t, w)
			p, _ := resp.Data["project"].(map[string]interface{})
			return p != nil && p["id"] == secondID
		}, 2*time.Second, 20*time.Millisecond)
	})
}

func TestFlow_ContractToProgressPayment(t *testing.T) {
	suite := setupTestSuite(t)
	token := suite.allowlistAndRegister(t, "site@santiye.com")

	w := suite.makeRequest(t, "POST", "/api/v1/projects", map[string]interface{}{"name": "Altyapı"}, token)
	require.Equal(t, http.StatusCreated, w.Code)
	projectID := parseResponse(t, w).Data["project"].(map[string]interface{})["id"].(string)

	var contractID string

	t.Run("create draft contract", func(t *testing.T) {
		w := suite.makeRequest(t, "POST", "/api/v1/projects/"+projectID+"/contracts", map[string]interface{}{
			"name": "Kazı sözleşmesi",
			"items": []map[string]interface{}{
				{"poz": "15.001", "description": "Kazı", "unit": "m3", "quantity": 100, "unitPrice": 80},
			},
		}, token)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		resp := parseResponse(t, w)
		contractData := resp.Data["contract"].(map[string]interface{})
		contractID = contractData["id"].(string)
		assert.Equal(t, "draft", contractData["status"])
		assert.InDelta(t, 8000.0, contractData["total"], 0.001)
	})

	t.Run("payments rejected while draft", func(t *testing.T) {
		w := suite.makeRequest(t, "POST", "/api/v1/contracts/"+contractID+"/payments", map[string]interface{}{
			"progressPaymentNumber": 1,
			"date":                  "2026-03-31",
			"items": []map[string]interface{}{
				{"poz": "15.001", "description": "Kazı", "unit": "m3", "completedQuantity": 40, "unitPrice": 80},
			},
		}, token)
		assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	})

	t.Run("approve contract", func(t *testing.T) {
		w := suite.makeRequest(t, "POST", "/api/v1/contracts/"+contractID+"/approve", nil, token)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})

	var deductionID string

	t.Run("record a deduction", func(t *testing.T) {
		w := suite.makeRequest(t, "POST", "/api/v1/projects/"+projectID+"/deductions", map[string]interface{}{
			"contractId":  contractID,
			"type":        "muhasebe",
			"date":        "2026-03-15",
			"amount":      200,
			"description": "Avans mahsubu",
		}, token)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		deductionID = parseResponse(t, w).Data["id"].(string)
	})

	t.Run("first payment applies the deduction", func(t *testing.T) {
		w := suite.makeRequest(t, "POST", "/api/v1/contracts/"+contractID+"/payments", map[string]interface{}{
			"progressPaymentNumber": 1,
			"date":                  "2026-03-31",
			"items": []map[string]interface{}{
				{"poz": "15.001", "description": "Kazı", "unit": "m3", "completedQuantity": 40, "unitPrice": 80},
			},
			"appliedDeductionIds": []string{deductionID},
		}, token)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		resp := parseResponse(t, w)
		paymentData := resp.Data["payment"].(map[string]interface{})
		assert.InDelta(t, 40*80-200.0, paymentData["totalAmount"], 0.001)
	})

	t.Run("applied deduction can no longer be deleted", func(t *testing.T) {
		w := suite.makeRequest(t, "DELETE", "/api/v1/deductions/"+deductionID, nil, token)
		assert.Equal(t, http.StatusConflict, w.Code)
		resp := parseResponse(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "DEDUCTION_APPLIED", resp.Error.Code)
	})

	t.Run("out of sequence payment number rejected", func(t *testing.T) {
		w := suite.makeRequest(t, "POST", "/api/v1/contracts/"+contractID+"/payments", map[string]interface{}{
			"progressPaymentNumber": 5,
			"date":                  "2026-04-30",
			"items": []map[string]interface{}{
				{"poz": "15.001", "description": "Kazı", "unit": "m3", "completedQuantity": 10, "unitPrice": 80},
			},
		}, token)
		assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	})

	t.Run("contract with payments cannot be deleted", func(t *testing.T) {
		w := suite.makeRequest(t, "DELETE", "/api/v1/contracts/"+contractID, nil, token)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("monthly status grid", func(t *testing.T) {
		w := suite.makeRequest(t, "PUT", "/api/v1/projects/"+projectID+"/payment-statuses", map[string]interface{}{
			"contractId": contractID,
			"month":      "2026-03",
			"status":     "odendi",
		}, token)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = suite.makeRequest(t, "GET", "/api/v1/projects/"+projectID+"/payment-statuses?month=2026-03", nil, token)
		require.Equal(t, http.StatusOK, w.Code)
	})
}

func TestFlow_TenantIsolation(t *testing.T) {
	suite := setupTestSuite(t)
	alice := suite.allowlistAndRegister(t, "alice@santiye.com")
	mallory := suite.allowlistAndRegister(t, "mallory@santiye.com")

	w := suite.makeRequest(t, "POST", "/api/v1/projects", map[string]interface{}{"name": "Gizli Proje"}, alice)
	require.Equal(t, http.StatusCreated, w.Code)
	projectID := parseResponse(t, w).Data["project"].(map[string]interface{})["id"].(string)

	t.Run("foreign project is invisible", func(t *testing.T) {
		w := suite.makeRequest(t, "GET", "/api/v1/projects/"+projectID+"/tenders", nil, mallory)
		assert.Equal(t, http.StatusForbidden, w.Code, w.Body.String())
	})

	t.Run("foreign project cannot be renamed", func(t *testing.T) {
		w := suite.makeRequest(t, "PATCH", "/api/v1/projects/"+projectID, map[string]interface{}{
			"name": "Ele Geçirildi",
		}, mallory)
		assert.NotEqual(t, http.StatusOK, w.Code)
	})

	t.Run("admin endpoints rejected for regular users", func(t *testing.T) {
		w := suite.makeRequest(t, "GET", "/api/v1/users", nil, alice)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestFlow_AdminUserManagement(t *testing.T) {
	suite := setupTestSuite(t)

	// Seed an admin directly; admins are provisioned out of band.
	adminDoc, err := suite.store.Create(bgCtx(), docstore.System(), domain.CollectionUsers, docstore.Document{
		"email": "root@santiye.com",
		"role":  domain.RoleAdmin,
	})
	require.NoError(t, err)
	adminToken, err := suite.jwt.GenerateToken(adminDoc.ID(), "root@santiye.com", domain.RoleAdmin)
	require.NoError(t, err)

	t.Run("admin allowlists an engineer", func(t *testing.T) {
		w := suite.makeRequest(t, "POST", "/api/v1/users/allowlist", map[string]interface{}{
			"email": "newhire@santiye.com",
			"role":  "user",
		}, adminToken)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		// The engineer can now register.
		w = suite.makeRequest(t, "POST", "/api/v1/auth/register", map[string]interface{}{
			"email":    "newhire@santiye.com",
			"password": "Password123!",
		}, "")
		assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	})

	t.Run("admin lists and removes users", func(t *testing.T) {
		w := suite.makeRequest(t, "GET", "/api/v1/users", nil, adminToken)
		require.Equal(t, http.StatusOK, w.Code)

		resp := parseResponse(t, w)
		users := resp.Data["users"].([]interface{})
		require.NotEmpty(t, users)

		var targetID string
		for _, u := range users {
			m := u.(map[string]interface{})
			if m["email"] == "newhire@santiye.com" {
				targetID = m["id"].(string)
			}
		}
		require.NotEmpty(t, targetID)

		w = suite.makeRequest(t, "DELETE", "/api/v1/users/"+targetID, nil, adminToken)
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})
}
