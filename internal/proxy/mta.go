package proxy

import (
	"math"
	"sort"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
)

// MaxArrivals is how many arrivals are returned per direction.
const MaxArrivals = 5

type Arrival struct {
	Minutes int    `json:"minutes"`
	Train   string `json:"train"`
}

type Arrivals struct {
	North []Arrival `json:"north"`
	South []Arrival `json:"south"`
}

// ExtractArrivals collects upcoming arrivals at the two stops from a trip
// updates feed. Predictions in the past are dropped and each direction is
// sorted soonest first and capped at MaxArrivals.
func ExtractArrivals(feed *gtfs.FeedMessage, now time.Time, northStop, southStop string) Arrivals {
	out := Arrivals{North: []Arrival{}, South: []Arrival{}}
	nowUnix := now.Unix()

	for _, entity := range feed.GetEntity() {
		tu := entity.GetTripUpdate()
		if tu == nil {
			continue
		}
		route := tu.GetTrip().GetRouteId()

		for _, stu := range tu.GetStopTimeUpdate() {
			t := stu.GetArrival().GetTime()
			if t == 0 {
				t = stu.GetDeparture().GetTime()
			}
			if t == 0 {
				continue
			}
			// Half minutes round up, so a train 30s away reads 1 and one
			// 30s gone reads 0.
			minutes := int(math.Floor(float64(t-nowUnix)/60 + 0.5))
			if minutes < 0 {
				continue
			}

			a := Arrival{Minutes: minutes, Train: route}
			switch stu.GetStopId() {
			case northStop:
				out.North = append(out.North, a)
			case southStop:
				out.South = append(out.South, a)
			}
		}
	}

	out.North = soonest(out.North)
	out.South = soonest(out.South)
	return out
}

func soonest(in []Arrival) []Arrival {
	sort.SliceStable(in, func(i, j int) bool { return in[i].Minutes < in[j].Minutes })
	if len(in) > MaxArrivals {
		in = in[:MaxArrivals]
	}
	return in
}
