package portal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"inkhat/internal/metrics"
	"inkhat/internal/prefs"
)

type memCreds struct {
	saved   *prefs.Credentials
	cleared int
	err     error
}

func (m *memCreds) SaveCredentials(ctx context.Context, c prefs.Credentials) error {
	if m.err != nil {
		return m.err
	}
	m.saved = &c
	return nil
}

func (m *memCreds) ClearCredentials(ctx context.Context) error {
	m.cleared++
	return m.err
}

func newTestHandler(creds *memCreds, restarts *int) (*Handler, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	h := NewHandler(creds, func() interface{} {
		return map[string]interface{}{"state": "transit", "manual": true}
	}, func() { *restarts++ }, reg, nil, metrics.NewCollector("inkhat", reg))
	h.RestartDelay = 0
	return h, reg
}

func postForm(router http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSave(t *testing.T) {
	tests := []struct {
		name     string
		ssid     string
		err      error
		status   int
		body     string
		restarts int
	}{
		{"ok", "  home  ", nil, http.StatusOK, "WiFi credentials saved!", 1},
		{"blank ssid", "   ", nil, http.StatusBadRequest, "SSID is required.", 0},
		{"store failure", "home", errors.New("disk full"), http.StatusInternalServerError, "Could not save", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds := &memCreds{err: tt.err}
			restarts := 0
			h, _ := newTestHandler(creds, &restarts)
			rec := postForm(h.Router(), "/save", url.Values{"ssid": {tt.ssid}, "pass": {"pw"}})
			if rec.Code != tt.status {
				t.Fatalf("status = %d", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.body) {
				t.Errorf("body = %q", rec.Body.String())
			}
			if restarts != tt.restarts {
				t.Errorf("restarts = %d", restarts)
			}
			if tt.status == http.StatusOK && (creds.saved == nil || creds.saved.SSID != "home" || creds.saved.Pass != "pw") {
				t.Errorf("saved = %+v", creds.saved)
			}
		})
	}
}

func TestClear(t *testing.T) {
	creds := &memCreds{}
	restarts := 0
	h, _ := newTestHandler(creds, &restarts)
	rec := postForm(h.Router(), "/clear", nil)
	if rec.Code != http.StatusOK || creds.cleared != 1 || restarts != 1 {
		t.Fatalf("code=%d cleared=%d restarts=%d", rec.Code, creds.cleared, restarts)
	}
}

func TestFormAndRedirect(t *testing.T) {
	restarts := 0
	h, _ := newTestHandler(&memCreds{}, &restarts)
	router := h.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `name="ssid"`) {
		t.Fatalf("form = %d %q", rec.Code, rec.Body.String())
	}

	for _, path := range []string{"/generate_204", "/hotspot-detect.html"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/" {
			t.Errorf("%s = %d %q", path, rec.Code, rec.Header().Get("Location"))
		}
	}
}

func TestStatusAndMetrics(t *testing.T) {
	restarts := 0
	h, _ := newTestHandler(&memCreds{}, &restarts)
	router := h.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	var body map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["state"] != "transit" || body["manual"] != true {
		t.Errorf("status = %v", body)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "inkhat_http_requests_total") {
		t.Errorf("metrics missing request counter: %d", rec.Code)
	}
}
