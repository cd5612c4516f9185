package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	accesshandler "zero-trust-access-platform/internal/access/handler"
	accessservice "zero-trust-access-platform/internal/access/service"
	analyticshandler "zero-trust-access-platform/internal/analytics/handler"
	analyticsservice "zero-trust-access-platform/internal/analytics/service"
	"zero-trust-access-platform/internal/audit"
	audithandler "zero-trust-access-platform/internal/audit/handler"
	auditrepo "zero-trust-access-platform/internal/audit/repository"
	eventrepo "zero-trust-access-platform/internal/event/repository"
	"zero-trust-access-platform/internal/geo"
	identityservice "zero-trust-access-platform/internal/identity/service"
	"zero-trust-access-platform/internal/risk"
	"zero-trust-access-platform/internal/security"
	userrepo "zero-trust-access-platform/internal/user/repository"

	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := userrepo.NewMemoryRepository()
	events := eventrepo.NewMemoryRepository()
	chain := audit.NewChain(auditrepo.NewMemoryRepository())
	auth := identityservice.NewAuthService(users, security.NewHasher(4))
	engine := risk.NewEngine(events, risk.DefaultConfig())
	tokens := security.NewTokenProvider([]byte("test-secret"), "ztap", "ztap-api", time.Hour)

	access := accessservice.NewAccessService(auth, events, chain, engine, geo.StaticResolver{}, tokens)
	analytics := analyticsservice.NewAnalyticsService(users, events, engine)

	return NewRouter(Deps{
		Access:    accesshandler.NewHandler(access),
		Analytics: analyticshandler.NewHandler(analytics),
		Audit:     audithandler.NewHandler(chain),
	})
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func doForm(t *testing.T, r *gin.Engine, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return m
}

func TestRouter_Health(t *testing.T) {
	r := newTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d, want 200", w.Code)
	}
	if got := decode(t, w)["status"]; got != "ok" {
		t.Errorf("status = %v, want ok", got)
	}
}

func TestRouter_RegisterAndLogin(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/auth/register",
		`{"username": "alice", "password": "correct horse battery"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("register = %d, body %s", w.Code, w.Body.String())
	}

	// duplicate registration conflicts
	w = doJSON(t, r, http.MethodPost, "/auth/register",
		`{"username": "alice", "password": "correct horse battery"}`)
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate register = %d, want 409", w.Code)
	}

	w = doForm(t, r, "/auth/login", url.Values{
		"username": {"alice"},
		"password": {"correct horse battery"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login = %d, body %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["access_token"] == nil || body["access_token"] == "" {
		t.Error("login response missing access_token")
	}
	if body["decision"] != "ALLOW" {
		t.Errorf("decision = %v, want ALLOW", body["decision"])
	}

	w = doForm(t, r, "/auth/login", url.Values{
		"username": {"alice"},
		"password": {"wrong"},
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad login = %d, want 401", w.Code)
	}
}

func TestRouter_DeviceFlow(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/device/register",
		`{"username": "alice", "device_id": "laptop-1", "os": "linux", "hostname": "alice-laptop"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("device register = %d, body %s", w.Code, w.Body.String())
	}
	if got := decode(t, w)["trusted"]; got != false {
		t.Errorf("trusted = %v, want false", got)
	}

	w = doJSON(t, r, http.MethodPost, "/device/trust",
		`{"username": "alice", "device_id": "laptop-1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("device trust = %d, body %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPost, "/device/trust",
		`{"username": "alice", "device_id": "no-such"}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("trust unknown device = %d, want 404", w.Code)
	}
}

func TestRouter_AnalyticsAndAudit(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/auth/register",
		`{"username": "alice", "password": "correct horse battery"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("register = %d", w.Code)
	}
	w = doForm(t, r, "/auth/login", url.Values{
		"username": {"alice"},
		"password": {"correct horse battery"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login = %d", w.Code)
	}
	w = doJSON(t, r, http.MethodPost, "/files/access",
		`{"username": "alice", "file_name": "q3.pdf", "action": "read"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("file access = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/security/analyze/user/alice", "")
	if w.Code != http.StatusOK {
		t.Fatalf("analyze user = %d, body %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["total_logins"] != float64(1) {
		t.Errorf("total_logins = %v, want 1", body["total_logins"])
	}

	w = doJSON(t, r, http.MethodGet, "/security/analyze/user/ghost", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("analyze unknown user = %d, want 404", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/security/analyze/admin", "")
	if w.Code != http.StatusOK {
		t.Errorf("admin overview = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/admin/file-access", "")
	if w.Code != http.StatusOK {
		t.Errorf("file feed = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/audit/chain", "")
	if w.Code != http.StatusOK {
		t.Fatalf("audit chain = %d", w.Code)
	}
	chainBody := decode(t, w)
	// register + login + file access all chained
	if chainBody["length"].(float64) < 3 {
		t.Errorf("chain length = %v, want at least 3", chainBody["length"])
	}

	w = doJSON(t, r, http.MethodGet, "/audit/verify", "")
	if w.Code != http.StatusOK {
		t.Fatalf("audit verify = %d", w.Code)
	}
	if got := decode(t, w)["valid"]; got != true {
		t.Errorf("valid = %v, want true", got)
	}

	w = doJSON(t, r, http.MethodGet, "/audit/verify?from=100&to=200", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("verify out-of-range = %d, want 404", w.Code)
	}
}

func TestRouter_FilesList(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/auth/register",
		`{"username": "root", "password": "correct horse battery", "role": "admin"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("register = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/files/list/root", "")
	if w.Code != http.StatusOK {
		t.Fatalf("files list = %d, body %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	resources, ok := body["accessible_resources"].([]any)
	if !ok || len(resources) == 0 {
		t.Fatalf("accessible_resources = %v", body["accessible_resources"])
	}
	found := false
	for _, r := range resources {
		if r == "admin" {
			found = true
		}
	}
	if !found {
		t.Error("admin user should list the admin resource")
	}
}
