// Package proxy serves the transit and weather JSON the display fetches,
// translated from the MTA GTFS-realtime feed and Open-Meteo.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"google.golang.org/protobuf/proto"

	"inkhat/internal/logging"
	"inkhat/internal/metrics"
)

const maxUpstreamBody = 16 << 20

// UpstreamError is a non-2xx response from the MTA or Open-Meteo.
type UpstreamError struct {
	Upstream   string
	StatusCode int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s upstream returned %d", e.Upstream, e.StatusCode)
}

type Server struct {
	cfg     *Config
	client  *http.Client
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
	now     func() time.Time
}

func NewServer(cfg *Config, logger *logging.StructuredLogger, m *metrics.Collector) *Server {
	return &Server{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// Router returns the proxy routes with permissive CORS.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))
	r.Use(s.instrument)

	r.Get("/health", s.Health)
	r.Get("/mta", s.MTA)
	r.Get("/api/mta", s.MTA)
	r.Get("/weather", s.Weather)
	r.Get("/api/weather", s.Weather)
	return r
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		r = r.WithContext(logging.WithRequestID(r.Context()))
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.RecordHTTPRequest(route, r.Method, strconv.Itoa(status))
	})
}

// Health handles GET /health
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, map[string]bool{"ok": true}, http.StatusOK)
}

// MTA handles GET /mta
func (s *Server) MTA(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body, err := s.get(ctx, "mta", s.cfg.FeedURL)
	if err != nil {
		s.fail(ctx, w, "MTA proxy error", err)
		return
	}
	feed := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, feed); err != nil {
		s.fail(ctx, w, "MTA proxy error", fmt.Errorf("decode feed: %w", err))
		return
	}
	out := ExtractArrivals(feed, s.now(), s.cfg.NorthStop, s.cfg.SouthStop)
	s.logger.Debug(ctx, "[PROXY] arrivals", logging.Fields{"north": len(out.North), "south": len(out.South)})
	sendJSON(w, out, http.StatusOK)
}

// Weather handles GET /weather
func (s *Server) Weather(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body, err := s.get(ctx, "weather", s.cfg.WeatherURL)
	if err != nil {
		s.fail(ctx, w, "Weather proxy error", err)
		return
	}
	var data openMeteo
	if err := json.Unmarshal(body, &data); err != nil {
		s.fail(ctx, w, "Weather proxy error", fmt.Errorf("decode forecast: %w", err))
		return
	}
	sendJSON(w, buildForecast(&data), http.StatusOK)
}

func (s *Server) get(ctx context.Context, upstream, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if upstream == "mta" && s.cfg.APIKey != "" {
		req.Header.Set("x-api-key", s.cfg.APIKey)
	}

	timer := s.metrics.UpstreamTimer(upstream)
	resp, err := s.client.Do(req)
	timer.ObserveDuration()
	if err != nil {
		s.metrics.RecordUpstream(upstream, "error")
		return nil, fmt.Errorf("failed to fetch %s: %w", upstream, err)
	}
	defer resp.Body.Close()
	s.metrics.RecordUpstream(upstream, strconv.Itoa(resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{Upstream: upstream, StatusCode: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", upstream, err)
	}
	return body, nil
}

func (s *Server) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		s.logger.Warn(ctx, "[PROXY_UPSTREAM] non-2xx", logging.Fields{"upstream": ue.Upstream, "status": ue.StatusCode})
		sendJSON(w, map[string]interface{}{"error": msg, "status": ue.StatusCode}, http.StatusBadGateway)
		return
	}
	s.logger.Error(ctx, "[PROXY_ERROR] "+msg, nil, err)
	sendJSON(w, map[string]interface{}{"error": msg, "detail": err.Error()}, http.StatusInternalServerError)
}

func sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}
