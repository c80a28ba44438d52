// Package portal serves the WiFi setup form and the device status endpoints.
package portal

import (
	"context"
	"encoding/json"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"inkhat/internal/logging"
	"inkhat/internal/metrics"
	"inkhat/internal/prefs"
)

// CredentialStore is the part of prefs.Store the portal writes to.
type CredentialStore interface {
	SaveCredentials(ctx context.Context, c prefs.Credentials) error
	ClearCredentials(ctx context.Context) error
}

// Handler serves the portal routes.
type Handler struct {
	creds   CredentialStore
	status  func() interface{}
	restart func()
	gather  prometheus.Gatherer
	logger  *logging.StructuredLogger
	metrics *metrics.Collector

	// RestartDelay lets the response reach the browser before restart runs.
	RestartDelay time.Duration
}

// NewHandler builds the portal. status may be nil; gather defaults to the
// default Prometheus registry.
func NewHandler(creds CredentialStore, status func() interface{}, restart func(), gather prometheus.Gatherer, logger *logging.StructuredLogger, m *metrics.Collector) *Handler {
	if gather == nil {
		gather = prometheus.DefaultGatherer
	}
	return &Handler{
		creds:        creds,
		status:       status,
		restart:      restart,
		gather:       gather,
		logger:       logger,
		metrics:      m,
		RestartDelay: 2 * time.Second,
	}
}

// Router returns the portal routes. Unknown paths redirect to the form so
// captive-portal probes land on it.
func (h *Handler) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/", h.Form).Methods("GET")
	router.HandleFunc("/save", h.Save).Methods("POST")
	router.HandleFunc("/clear", h.Clear).Methods("POST")
	router.HandleFunc("/status", h.Status).Methods("GET")
	router.Handle("/metrics", promhttp.HandlerFor(h.gather, promhttp.HandlerOpts{}))
	router.NotFoundHandler = http.HandlerFunc(h.redirect)
	router.MethodNotAllowedHandler = http.HandlerFunc(h.redirect)
	return router
}

var formTemplate = template.Must(template.New("form").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>{{.Title}}</title>
  <style>
    body { font-family: sans-serif; max-width: 420px; margin: 2em auto; padding: 0 1em; }
    input, button { display: block; width: 100%; margin: .5em 0; padding: .6em; box-sizing: border-box; }
  </style>
</head>
<body>
  <h1>{{.Title}}</h1>
  <form action="/save" method="post">
    <label>Network</label>
    <input name="ssid" placeholder="Network name" required />
    <label>Password</label>
    <input name="pass" type="password" placeholder="WiFi password" />
    <button type="submit">Save &amp; Restart</button>
  </form>
  <form action="/clear" method="post">
    <button type="submit">Forget saved network</button>
  </form>
</body>
</html>
`))

// Form handles GET /
func (h *Handler) Form(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := formTemplate.Execute(w, struct{ Title string }{"INK-HAT Setup"}); err != nil {
		h.logger.Error(r.Context(), "[PORTAL_ERROR] render form", nil, err)
	}
	h.record(r, http.StatusOK)
}

// Save handles POST /save
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ssid := strings.TrimSpace(r.FormValue("ssid"))
	pass := r.FormValue("pass")
	if ssid == "" {
		h.sendText(w, r, http.StatusBadRequest, "SSID is required.")
		return
	}
	if err := h.creds.SaveCredentials(ctx, prefs.Credentials{SSID: ssid, Pass: pass}); err != nil {
		h.logger.Error(ctx, "[PORTAL_ERROR] save credentials", logging.Fields{"ssid": ssid}, err)
		h.sendText(w, r, http.StatusInternalServerError, "Could not save credentials.")
		return
	}
	h.logger.Info(ctx, "[PORTAL] credentials saved", logging.Fields{"ssid": ssid})
	h.sendText(w, r, http.StatusOK, "WiFi credentials saved! Restarting in 2 seconds...")
	h.scheduleRestart()
}

// Clear handles POST /clear
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.creds.ClearCredentials(ctx); err != nil {
		h.logger.Error(ctx, "[PORTAL_ERROR] clear credentials", nil, err)
		h.sendText(w, r, http.StatusInternalServerError, "Could not clear credentials.")
		return
	}
	h.logger.Info(ctx, "[PORTAL] credentials cleared", nil)
	h.sendText(w, r, http.StatusOK, "WiFi credentials cleared! Restarting in 2 seconds...")
	h.scheduleRestart()
}

// Status handles GET /status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	var body interface{} = map[string]string{"state": "setup"}
	if h.status != nil {
		body = h.status()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(body)
	h.record(r, http.StatusOK)
}

func (h *Handler) redirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusFound)
	h.metrics.RecordHTTPRequest("not_found", r.Method, strconv.Itoa(http.StatusFound))
}

func (h *Handler) scheduleRestart() {
	if h.restart == nil {
		return
	}
	if h.RestartDelay <= 0 {
		h.restart()
		return
	}
	time.AfterFunc(h.RestartDelay, h.restart)
}

func (h *Handler) sendText(w http.ResponseWriter, r *http.Request, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(msg))
	h.record(r, status)
}

func (h *Handler) record(r *http.Request, status int) {
	route := r.URL.Path
	if cr := mux.CurrentRoute(r); cr != nil {
		if tpl, err := cr.GetPathTemplate(); err == nil {
			route = tpl
		}
	}
	h.metrics.RecordHTTPRequest(route, r.Method, strconv.Itoa(status))
}
