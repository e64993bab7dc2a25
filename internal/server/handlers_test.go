package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anmicius0/unit-batch-station/internal/client"
	"github.com/anmicius0/unit-batch-station/internal/config"
	"github.com/anmicius0/unit-batch-station/internal/scan"
	"github.com/anmicius0/unit-batch-station/internal/service"
	"github.com/anmicius0/unit-batch-station/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testToken    = "test-token"
	testFacility = "FAC1"
	testUnit     = "W036825014001"
)

func TestMain(m *testing.M) {
	utils.Logger = zap.NewNop()
	gin.SetMode(gin.TestMode)
	m.Run()
}

type testServer struct {
	router      *gin.Engine
	irradiation *MockIrradiationClient
	inventory   *MockInventoryClient
	shipments   *MockShipmentClient
	sessions    *service.SessionStore
	imports     *ImportManager
}

func setupServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		irradiation: new(MockIrradiationClient),
		inventory:   new(MockInventoryClient),
		shipments:   new(MockShipmentClient),
	}
	cfg := &config.Config{APIToken: testToken, FacilityCode: testFacility, EmployeeID: "emp-1"}
	rules := func(string) scan.Rules { return scan.DefaultRules() }

	base := service.Deps{
		Irradiation: ts.irradiation,
		Inventory:   ts.inventory,
		Shipments:   ts.shipments,
		Facility:    cfg.FacilityCode,
		EmployeeID:  cfg.EmployeeID,
	}
	jobStore := config.NewJobStore()
	ts.sessions = service.NewSessionStore(service.NewFactory(base, rules), 0)
	ts.imports = NewImportManager(jobStore, ts.inventory, rules, 2)
	t.Cleanup(func() {
		ts.imports.Close()
		ts.sessions.Close()
	})

	ts.router = NewRouter(cfg, ts.sessions, jobStore, ts.imports)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set("Content-Type", "application/json")
	return ts.serve(t, req)
}

func (ts *testServer) upload(t *testing.T, path, field, filename string, content []byte) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return ts.serve(t, req)
}

func (ts *testServer) serve(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	var resp map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

// startSession creates a start irradiation session with the irradiator loaded.
func (ts *testServer) startSession(t *testing.T) string {
	t.Helper()
	w, resp := ts.do(t, http.MethodPost, SessionsPath, gin.H{"kind": "start-irradiation"})
	require.Equal(t, http.StatusCreated, w.Code)
	id := resp["sessionId"].(string)

	ts.irradiation.On("ValidateDevice", mock.Anything, "IRR-001", testFacility).Return(true, nil).Once()
	w, _ = ts.do(t, http.MethodPost, SessionsPath+"/"+id+"/input", gin.H{"field": "device", "value": "IRR-001"})
	require.Equal(t, http.StatusOK, w.Code)
	return id
}

func available(unit, product string) client.Inventory {
	return client.Inventory{UnitNumber: unit, ProductCode: product, ProductDescription: "APH PLASMA 24H", Status: "AVAILABLE"}
}

func TestHealth(t *testing.T) {
	ts := setupServer(t)
	req := httptest.NewRequest(http.MethodGet, HealthEndpoint, nil)
	w, resp := ts.serve(t, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "healthy", resp["status"])
}

func TestVersion(t *testing.T) {
	ts := setupServer(t)
	w, resp := ts.serve(t, httptest.NewRequest(http.MethodGet, VersionEndpoint, nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "unit-batch-station", resp["name"])
}

func TestAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(authMiddleware(testToken))
	r.GET("/protected", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	t.Run("Authorized", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer test-token")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Unauthorized - Wrong Token", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer wrong-token")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Unauthorized - No Header", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/protected", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestCreateSession(t *testing.T) {
	ts := setupServer(t)

	t.Run("valid kind", func(t *testing.T) {
		w, resp := ts.do(t, http.MethodPost, SessionsPath, gin.H{"kind": "close-irradiation"})
		require.Equal(t, http.StatusCreated, w.Code)
		assert.NotEmpty(t, resp["sessionId"])
		assert.Equal(t, "close-irradiation", resp["kind"])
		view := resp["view"].(map[string]any)
		assert.Equal(t, "setup", view["phase"])
		assert.NotContains(t, resp, "outcome")
	})

	t.Run("unknown kind", func(t *testing.T) {
		w, resp := ts.do(t, http.MethodPost, SessionsPath, gin.H{"kind": "bake-cookies"})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, ErrorCodeInvalidRequestBody, resp["error"])
	})
}

func TestSessionLifecycle(t *testing.T) {
	ts := setupServer(t)
	id := ts.startSession(t)

	w, resp := ts.do(t, http.MethodGet, SessionsPath+"/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	view := resp["view"].(map[string]any)
	assert.Equal(t, "IRR-001", view["deviceId"])
	assert.Equal(t, true, view["unitInputEnabled"])

	w, _ = ts.do(t, http.MethodDelete, SessionsPath+"/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, resp = ts.do(t, http.MethodGet, SessionsPath+"/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, ErrorCodeNotFound, resp["error"])
}

func TestInput(t *testing.T) {
	ts := setupServer(t)
	id := ts.startSession(t)
	ts.irradiation.On("ValidateUnit", mock.Anything, testUnit, testFacility).Return([]client.Inventory{available(testUnit, "E0869V00")}, nil)

	w, resp := ts.do(t, http.MethodPost, SessionsPath+"/"+id+"/input", gin.H{"field": "unitNumber", "value": "=" + testUnit + "00"})
	require.Equal(t, http.StatusOK, w.Code)

	view := resp["view"].(map[string]any)
	assert.Equal(t, float64(1), view["count"])
	assert.Equal(t, false, view["submitEnabled"], "submit waits for the lot number")
	outcome := resp["outcome"].(map[string]any)
	assert.Equal(t, "unitNumber", outcome["focus"])

	ts.irradiation.On("ValidateLotNumber", mock.Anything, "LOT-9").Return(true, nil).Once()
	w, resp = ts.do(t, http.MethodPost, SessionsPath+"/"+id+"/input", gin.H{"field": "lot", "value": "lot-9"})
	require.Equal(t, http.StatusOK, w.Code)
	view = resp["view"].(map[string]any)
	assert.Equal(t, true, view["submitEnabled"])
	ts.irradiation.AssertExpectations(t)
}

func TestInput_InvalidCheckDigitIsAnOutcome(t *testing.T) {
	ts := setupServer(t)
	id := ts.startSession(t)
	ts.inventory.On("VerifyCheckDigit", mock.Anything, testUnit, "X").Return(false, nil)

	w, resp := ts.do(t, http.MethodPost, SessionsPath+"/"+id+"/input", gin.H{"field": "unitNumber", "value": testUnit, "checkDigit": "X"})
	require.Equal(t, http.StatusOK, w.Code)

	outcome := resp["outcome"].(map[string]any)
	presentations := outcome["presentations"].([]any)
	require.Len(t, presentations, 1)
	assert.Equal(t, "Invalid check digit", presentations[0].(map[string]any)["message"])
	assert.Equal(t, "checkDigit", outcome["focus"])
}

func TestWorkflowErrors(t *testing.T) {
	ts := setupServer(t)
	id := ts.startSession(t)

	tests := []struct {
		name   string
		path   string
		body   any
		status int
		code   string
	}{
		{"submit with no items", "/submit", nil, http.StatusConflict, ErrorCodeConflict},
		{"unknown field", "/input", gin.H{"field": "colour", "value": "red"}, http.StatusUnprocessableEntity, ErrorCodeValidationFailed},
		{"device locked", "/input", gin.H{"field": "device", "value": "IRR-002"}, http.StatusConflict, ErrorCodeConflict},
		{"inspect not offered", "/inspect", gin.H{"irradiated": true}, http.StatusMethodNotAllowed, ErrorCodeUnsupported},
		{"remove item not offered", "/remove-item", gin.H{"unitNumber": testUnit, "productCode": "E0869V00"}, http.StatusMethodNotAllowed, ErrorCodeUnsupported},
		{"unknown confirmation", "/confirmations/nope", gin.H{"accepted": true}, http.StatusNotFound, ErrorCodeNotFound},
		{"confirmation without answer", "/confirmations/nope", gin.H{}, http.StatusUnprocessableEntity, ErrorCodeInvalidRequestBody},
		{"select without product", "/select", gin.H{}, http.StatusUnprocessableEntity, ErrorCodeInvalidRequestBody},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := ts.do(t, http.MethodPost, SessionsPath+"/"+id+tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, resp["error"])
		})
	}
}

func TestCancelAsksForConfirmation(t *testing.T) {
	ts := setupServer(t)
	id := ts.startSession(t)
	ts.irradiation.On("ValidateUnit", mock.Anything, testUnit, testFacility).Return([]client.Inventory{available(testUnit, "E0869V00")}, nil)
	w, _ := ts.do(t, http.MethodPost, SessionsPath+"/"+id+"/input", gin.H{"field": "unitNumber", "value": "=" + testUnit + "00"})
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := ts.do(t, http.MethodPost, SessionsPath+"/"+id+"/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)
	confirmation := resp["outcome"].(map[string]any)["confirmation"].(map[string]any)
	token := confirmation["token"].(string)
	require.NotEmpty(t, token)

	w, _ = ts.do(t, http.MethodPost, SessionsPath+"/"+id+"/select-all", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, resp = ts.do(t, http.MethodPost, SessionsPath+"/"+id+"/confirmations/"+token, gin.H{"accepted": false})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), resp["view"].(map[string]any)["count"])
}

func TestScanImage(t *testing.T) {
	ts := setupServer(t)
	id := ts.startSession(t)
	ts.irradiation.On("ValidateUnit", mock.Anything, testUnit, testFacility).Return([]client.Inventory{available(testUnit, "E0869V00")}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, LabelsPath+"/"+testUnit+"?flags=00", nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	ts.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, contentTypePNG, w.Header().Get("Content-Type"))

	w, resp := ts.upload(t, SessionsPath+"/"+id+"/scan-image", formFieldImage, "label.png", w.Body.Bytes())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), resp["view"].(map[string]any)["count"])

	w, resp = ts.upload(t, SessionsPath+"/"+id+"/scan-image", formFieldImage, "blank.png", []byte("not an image"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, MessageNoBarcode, resp["message"])
}

func TestLabel(t *testing.T) {
	ts := setupServer(t)

	t.Run("qr", func(t *testing.T) {
		w, _ := ts.do(t, http.MethodGet, LabelsPath+"/"+testUnit+"?format=qr", nil)
		require.Equal(t, http.StatusOK, w.Code)
		decoded, err := scan.NewImageDecoder().DecodeBytes(w.Body.Bytes())
		require.NoError(t, err)
		assert.Equal(t, "="+testUnit, decoded.Text)
	})

	t.Run("invalid unit number", func(t *testing.T) {
		w, resp := ts.do(t, http.MethodGet, LabelsPath+"/NOPE", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, MessageInvalidUnitNumber, resp["message"])
	})
}

func TestManifest(t *testing.T) {
	ts := setupServer(t)
	id := ts.startSession(t)

	w, _ := ts.do(t, http.MethodGet, SessionsPath+"/"+id+"/manifest.pdf", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, contentTypePDF, w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
}

func TestImportUnits(t *testing.T) {
	ts := setupServer(t)
	id := ts.startSession(t)
	ts.irradiation.On("ValidateUnit", mock.Anything, testUnit, testFacility).Return([]client.Inventory{available(testUnit, "E0869V00")}, nil)
	ts.inventory.On("VerifyCheckDigit", mock.Anything, "W036825014002", "Q").Return(false, nil)

	csv := "unitNumber,checkDigit,productCode\n" +
		"=" + testUnit + "00,,\n" +
		"W036825014002,Q,\n" +
		"NOT-A-UNIT,A,\n"
	w, resp := ts.upload(t, SessionsPath+"/"+id+"/imports", formFieldFile, "units.csv", []byte(csv))
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, float64(3), resp["totalRows"])
	jobID := resp["jobId"].(string)

	ts.imports.Wait()

	w, resp = ts.do(t, http.MethodGet, JobsPath+"/"+jobID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, string(config.JobStatusCompleted), resp["status"])
	assert.Equal(t, float64(1), resp["successfulRows"])
	assert.Equal(t, float64(2), resp["failedRows"])
	failures := resp["failures"].([]any)
	require.Len(t, failures, 2)
	assert.Equal(t, "Invalid check digit", failures[0].(map[string]any)["reason"])

	w, resp = ts.do(t, http.MethodGet, SessionsPath+"/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), resp["view"].(map[string]any)["count"])
}

func TestImportUnits_EmptyFile(t *testing.T) {
	ts := setupServer(t)
	id := ts.startSession(t)

	w, resp := ts.upload(t, SessionsPath+"/"+id+"/imports", formFieldFile, "units.csv", []byte("unitNumber,checkDigit,productCode\n"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, MessageImportEmpty, resp["message"])
}

func TestGetJobStatus_NotFound(t *testing.T) {
	ts := setupServer(t)
	w, resp := ts.do(t, http.MethodGet, JobsPath+"/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Job missing not found", resp["message"])
}
