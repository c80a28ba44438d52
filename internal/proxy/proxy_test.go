package proxy

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"google.golang.org/protobuf/proto"

	"inkhat/internal/metrics"
)

var now = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type stopTime struct {
	stop      string
	arrival   int64 // seconds from now, 0 for none
	departure int64
}

func tripFeed(trips map[string][]stopTime) *gtfs.FeedMessage {
	feed := &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Timestamp:           proto.Uint64(uint64(now.Unix())),
		},
	}
	id := 0
	for route, stops := range trips {
		id++
		tu := &gtfs.TripUpdate{Trip: &gtfs.TripDescriptor{RouteId: proto.String(route)}}
		for _, st := range stops {
			stu := &gtfs.TripUpdate_StopTimeUpdate{StopId: proto.String(st.stop)}
			if st.arrival != 0 {
				stu.Arrival = &gtfs.TripUpdate_StopTimeEvent{Time: proto.Int64(now.Unix() + st.arrival)}
			}
			if st.departure != 0 {
				stu.Departure = &gtfs.TripUpdate_StopTimeEvent{Time: proto.Int64(now.Unix() + st.departure)}
			}
			tu.StopTimeUpdate = append(tu.StopTimeUpdate, stu)
		}
		feed.Entity = append(feed.Entity, &gtfs.FeedEntity{Id: proto.String(string(rune('0' + id))), TripUpdate: tu})
	}
	return feed
}

func TestExtractArrivals(t *testing.T) {
	feed := tripFeed(map[string][]stopTime{
		"N": {
			{"R17N", 600, 0},
			{"R17N", 120, 999}, // arrival preferred
			{"R17N", -90, 0},   // gone
			{"R17N", -30, 0},   // rounds to 0
			{"R17S", 0, 300},   // departure fallback
			{"R16N", 60, 0},    // other stop
			{"R17S", 0, 0},     // no time
		},
		"Q": {
			{"R17N", 60, 0}, {"R17N", 240, 0}, {"R17N", 360, 0}, {"R17N", 480, 0},
		},
	})
	got := ExtractArrivals(feed, now, "R17N", "R17S")

	wantNorth := []int{0, 1, 2, 4, 6}
	if len(got.North) != MaxArrivals {
		t.Fatalf("north = %+v", got.North)
	}
	for i, m := range wantNorth {
		if got.North[i].Minutes != m {
			t.Errorf("north[%d] = %+v, want %d minutes", i, got.North[i], m)
		}
	}
	if len(got.South) != 1 || got.South[0] != (Arrival{Minutes: 5, Train: "N"}) {
		t.Errorf("south = %+v", got.South)
	}
}

func TestBuildForecast(t *testing.T) {
	var data openMeteo
	raw := `{
		"current": {"time":"2024-03-01T10:45","temperature_2m":41.5,"weather_code":3,"precipitation":0.01,"rain":0.01,"snowfall":0},
		"hourly": {
			"time":["2024-03-01T09:00","2024-03-01T10:00","2024-03-01T11:00"],
			"temperature_2m":[40.2,41.5,-0.5],
			"precipitation":[0,0.01,0.02],
			"visibility":[1000.4,2000.6,3000],
			"is_day":[1,1,0],
			"weather_code":[0,3,61]
		}
	}`
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		t.Fatal(err)
	}
	f := buildForecast(&data)
	if f.StartIndex != 1 || f.Current.Temp != 42 || f.Current.Code != 3 {
		t.Fatalf("forecast = %+v", f)
	}
	want := []Hour{
		{Temp: 42, Prec: 0.01, Visib: 2001, Day: 1, Code: 3},
		{Temp: 0, Prec: 0.02, Visib: 3000, Day: 0, Code: 61},
	}
	if len(f.Hourly) != len(want) {
		t.Fatalf("hourly = %+v", f.Hourly)
	}
	for i := range want {
		if f.Hourly[i] != want[i] {
			t.Errorf("hourly[%d] = %+v, want %+v", i, f.Hourly[i], want[i])
		}
	}

	data.Current.Time = "2024-03-02T10:45"
	if f := buildForecast(&data); f.StartIndex != 0 || len(f.Hourly) != 3 {
		t.Errorf("missing hour fallback = %d/%d", f.StartIndex, len(f.Hourly))
	}
}

func newTestServer(t *testing.T, feedStatus int, feed []byte, weather string) (*Server, *metrics.Collector) {
	t.Helper()
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/feed":
			if r.Header.Get("x-api-key") != "k" {
				t.Errorf("api key = %q", r.Header.Get("x-api-key"))
			}
			w.WriteHeader(feedStatus)
			w.Write(feed)
		case "/forecast":
			w.Write([]byte(weather))
		}
	}))
	t.Cleanup(up.Close)

	m := metrics.NewCollector("inkproxy", prometheus.NewRegistry())
	s := NewServer(&Config{
		FeedURL:    up.URL + "/feed",
		APIKey:     "k",
		NorthStop:  "R17N",
		SouthStop:  "R17S",
		WeatherURL: up.URL + "/forecast",
		Timeout:    time.Second,
	}, nil, m)
	s.now = func() time.Time { return now }
	return s, m
}

func TestMTAHandler(t *testing.T) {
	feed, err := proto.Marshal(tripFeed(map[string][]stopTime{"W": {{"R17S", 180, 0}}}))
	if err != nil {
		t.Fatal(err)
	}
	s, m := newTestServer(t, http.StatusOK, feed, "")
	router := s.Router()

	for _, path := range []string{"/mta", "/api/mta"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, rec.Code)
		}
		var got Arrivals
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatal(err)
		}
		if len(got.North) != 0 || len(got.South) != 1 || got.South[0].Train != "W" || got.South[0].Minutes != 3 {
			t.Errorf("%s = %+v", path, got)
		}
	}
	if n := testutil.ToFloat64(m.UpstreamTotal.WithLabelValues("mta", "200")); n != 2 {
		t.Errorf("upstream count = %v", n)
	}
}

func TestUpstreamErrors(t *testing.T) {
	t.Run("non-2xx is 502", func(t *testing.T) {
		s, _ := newTestServer(t, http.StatusForbidden, nil, "")
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mta", nil))
		var body map[string]interface{}
		json.NewDecoder(rec.Body).Decode(&body)
		if rec.Code != http.StatusBadGateway || body["status"] != float64(403) {
			t.Errorf("got %d %v", rec.Code, body)
		}
	})
	t.Run("bad payload is 500", func(t *testing.T) {
		s, _ := newTestServer(t, http.StatusOK, nil, "{not json")
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/weather", nil))
		var body map[string]interface{}
		json.NewDecoder(rec.Body).Decode(&body)
		if rec.Code != http.StatusInternalServerError || body["detail"] == nil {
			t.Errorf("got %d %v", rec.Code, body)
		}
	})
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, http.StatusOK, nil, "")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "{\"ok\":true}\n" {
		t.Errorf("health = %d %q", rec.Code, rec.Body.String())
	}
}
