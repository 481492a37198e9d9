package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vizstack/rendertune/internal/alerting"
	"github.com/vizstack/rendertune/internal/config"
	"github.com/vizstack/rendertune/internal/engine"
	"github.com/vizstack/rendertune/internal/platform"
	"github.com/vizstack/rendertune/internal/registry"
	"github.com/vizstack/rendertune/internal/utils"
)

type fakePlatform struct{}

func (fakePlatform) GPU() (platform.GPUInfo, error) {
	return platform.GPUInfo{}, platform.ErrUnavailable
}
func (fakePlatform) Memory() (platform.MemoryInfo, error) {
	return platform.MemoryInfo{}, platform.ErrUnavailable
}
func (fakePlatform) Battery() (platform.BatteryInfo, error) {
	return platform.BatteryInfo{}, platform.ErrUnavailable
}
func (fakePlatform) Network() (platform.NetworkInfo, error) {
	return platform.NetworkInfo{}, platform.ErrUnavailable
}
func (fakePlatform) Preferences() (platform.PreferenceInfo, error) {
	return platform.PreferenceInfo{}, platform.ErrUnavailable
}
func (fakePlatform) LogicalCores() int { return 8 }
func (fakePlatform) Mobile() bool      { return false }

func newTestRouter(t *testing.T) (*gin.Engine, *engine.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	eng := engine.New(config.Default().Telemetry, fakePlatform{}, alerting.DefaultRules(),
		nil, nil, utils.NewManualClock(time.Now()), nil)

	router := gin.New()
	h := &handlers{engine: eng}
	h.register(router, NewHub(eng, nil))
	return router, eng
}

func do(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := do(t, router, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestSnapshotEndpointReturnsJSON(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := do(t, router, http.MethodGet, "/api/v1/snapshot", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if _, ok := body["fps"]; !ok {
		t.Fatalf("snapshot missing fps field: %v", body)
	}
}

func TestCapabilityEndpointIncludesQuality(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := do(t, router, http.MethodGet, "/api/v1/capability", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var body struct {
		RecommendedQuality string `json:"recommendedQuality"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body.RecommendedQuality == "" {
		t.Fatal("recommended quality missing")
	}
}

func TestAcknowledgeUnknownAlert(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := do(t, router, http.MethodPost, "/api/v1/alerts/ghost/ack", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", rec.Code)
	}
}

func TestUpsertRuleRequiresID(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := do(t, router, http.MethodPut, "/api/v1/rules", `{"name":"no id"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}

	rec = do(t, router, http.MethodPut, "/api/v1/rules",
		`{"id":"custom-rule","name":"Custom","enabled":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200: %s", rec.Code, rec.Body.String())
	}
}

func TestSetRuleEnabledUnknownRule(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := do(t, router, http.MethodPost, "/api/v1/rules/ghost/enabled", `{"enabled":false}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", rec.Code)
	}
}

func TestDiscoverModules(t *testing.T) {
	router, eng := newTestRouter(t)
	err := eng.RegisterModule(registry.Entry{
		ID:       "starfield",
		Name:     "Starfield",
		Category: "background",
		Version:  "1.0.0",
		Load:     func() error { return nil },
	})
	if err != nil {
		t.Fatalf("register module: %v", err)
	}

	rec := do(t, router, http.MethodPost, "/api/v1/modules/discover", `{"category":"background"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Candidates []struct {
			Entry struct {
				ID string `json:"id"`
			} `json:"entry"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(body.Candidates) != 1 || body.Candidates[0].Entry.ID != "starfield" {
		t.Fatalf("unexpected candidates: %s", rec.Body.String())
	}
}

func TestProfileByID(t *testing.T) {
	router, eng := newTestRouter(t)
	err := eng.RegisterModule(registry.Entry{
		ID:       "starfield",
		Name:     "Starfield",
		Category: "background",
		Version:  "1.0.0",
		Load:     func() error { return nil },
	})
	if err != nil {
		t.Fatalf("register module: %v", err)
	}

	rec := do(t, router, http.MethodGet, "/api/v1/profiles/starfield", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if rec = do(t, router, http.MethodGet, "/api/v1/profiles/ghost", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown module status %d, want 404", rec.Code)
	}
}

func TestLoadingOrderUnknownModule(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := do(t, router, http.MethodPost, "/api/v1/modules/order", `{"modules":["ghost"]}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status %d, want 422", rec.Code)
	}
}

func TestApplyOptionsAtomicRejection(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/v1/options?atomic=true", `{"historySize":0}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status %d, want 422: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, router, http.MethodPost, "/api/v1/options", `{"historySize":50}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200: %s", rec.Code, rec.Body.String())
	}
}
