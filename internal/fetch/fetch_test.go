package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"inkhat/internal/metrics"
	"inkhat/internal/store"
)

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTransitFetchFillsSentinels(t *testing.T) {
	srv := serve(t, http.StatusOK, `{
		"north":[{"train":"N","minutes":3},{"train":"QX","minutes":7},{"minutes":9},{"train":""}],
		"south":[]
	}`)
	st := store.New()
	st.SetArrivals([]store.Arrival{{Train: 'R', Minutes: 1}, {Train: 'R', Minutes: 2}, {Train: 'R', Minutes: 3}, {Train: 'R', Minutes: 4}, {Train: 'R', Minutes: 5}},
		[]store.Arrival{{Train: 'W', Minutes: 1}}, time.Now())

	f := &TransitFetcher{Client: NewClient(), URL: srv.URL, Store: st}
	if err := f.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	want := [store.ArrivalSlots]store.Arrival{
		{Train: 'N', Minutes: 3}, {Train: 'Q', Minutes: 7}, {Train: '?', Minutes: 9}, {Train: '?', Minutes: -1}, store.EmptyArrival,
	}
	if got := st.Arrivals(store.North); got != want {
		t.Errorf("north = %+v, want %+v", got, want)
	}
	for i, a := range st.Arrivals(store.South) {
		if a != store.EmptyArrival {
			t.Errorf("south[%d] = %+v, want sentinel", i, a)
		}
	}
}

func TestFailedFetchLeavesStoreUntouched(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		offline bool
		check   func(error) bool
	}{
		{"status", http.StatusServiceUnavailable, `oops`, false, func(err error) bool {
			var se *StatusError
			return errors.As(err, &se) && se.StatusCode == 503
		}},
		{"parse", http.StatusOK, `{"north":`, false, func(err error) bool {
			var pe *ParseError
			return errors.As(err, &pe)
		}},
		{"offline", http.StatusOK, `{}`, true, func(err error) bool {
			return errors.Is(err, ErrOffline)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serve(t, tt.status, tt.body)
			st := store.New()
			st.SetArrivals([]store.Arrival{{Train: 'N', Minutes: 4}}, nil, time.Time{})
			st.SetWeather(2, []store.Sample{{Temp: 50, Code: 0, IsDay: true}}, time.Time{})
			beforeN, beforeW := st.Arrivals(store.North), st.Weather()

			reg := prometheus.NewRegistry()
			m := metrics.NewCollector("test", reg)
			c := NewClient(
				WithMetrics(m),
				WithNetworkChecker(NetworkCheckFunc(func(context.Context) bool { return !tt.offline })),
			)

			terr := (&TransitFetcher{Client: c, URL: srv.URL, Store: st}).Fetch(context.Background())
			werr := (&WeatherFetcher{Client: c, URL: srv.URL, Store: st}).Fetch(context.Background())
			if !tt.check(terr) || !tt.check(werr) {
				t.Fatalf("errors = %v / %v", terr, werr)
			}
			if st.Arrivals(store.North) != beforeN {
				t.Errorf("arrivals mutated")
			}
			if st.Weather() != beforeW {
				t.Errorf("weather mutated")
			}
			if got := testutil.ToFloat64(m.FetchTotal.WithLabelValues("transit", tt.name)); got != 1 {
				t.Errorf("fetch_total{transit,%s} = %v", tt.name, got)
			}
		})
	}
}

func TestWeatherFetch(t *testing.T) {
	srv := serve(t, http.StatusOK, `{
		"startIndex": 14,
		"current": {"temp": 51},
		"hourly": [
			{"temp": 50.6, "prec": 0.02, "day": 1, "code": 61},
			{"temp": 49.4, "prec": 0, "day": 0, "code": 3},
			{"temp": 48}
		]
	}`)
	st := store.New()
	stamp := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := NewClient(WithClock(func() time.Time { return stamp }))
	if err := (&WeatherFetcher{Client: c, URL: srv.URL, Store: st}).Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	w := st.Weather()
	if w.StartIndex != 14 || w.Count != 3 {
		t.Fatalf("start=%d count=%d", w.StartIndex, w.Count)
	}
	tests := []struct {
		i    int
		want store.Sample
	}{
		{0, store.Sample{Temp: 51, Precip: 0.02, Code: 61, IsDay: true}},
		{1, store.Sample{Temp: 49, Code: 3}},
		{2, store.Sample{Temp: 48, Code: store.NoCode}},
	}
	for _, tt := range tests {
		got, ok := w.At(tt.i)
		if !ok || got != tt.want {
			t.Errorf("At(%d) = %+v %v, want %+v", tt.i, got, ok, tt.want)
		}
	}
	if _, wu := st.Updated(); !wu.Equal(stamp) {
		t.Errorf("weather updated = %v", wu)
	}
}

func TestWeatherFetchCapsHourly(t *testing.T) {
	body := `{"startIndex":0,"hourly":[`
	for i := 0; i < 90; i++ {
		if i > 0 {
			body += ","
		}
		body += `{"temp":60,"prec":0,"day":1,"code":0}`
	}
	body += `]}`
	srv := serve(t, http.StatusOK, body)
	st := store.New()
	if err := (&WeatherFetcher{Client: NewClient(), URL: srv.URL, Store: st}).Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got := st.Weather().Count; got != store.WeatherMax {
		t.Errorf("count = %d, want %d", got, store.WeatherMax)
	}
}
