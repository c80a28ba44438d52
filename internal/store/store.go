// Package store owns the transit and weather data shown on the display.
// The device loop is the single writer; the status endpoint reads concurrently.
package store

import (
	"sync"
	"time"
)

const (
	ArrivalSlots = 5
	WeatherMax   = 72

	NoTrain   = '?'
	NoMinutes = -1
	NoCode    = -1
)

type Direction int

const (
	North Direction = iota
	South
)

func (d Direction) String() string {
	if d == North {
		return "north"
	}
	return "south"
}

// Arrival is one upcoming train at the station.
type Arrival struct {
	Train   rune
	Minutes int
}

// EmptyArrival is the "no data" slot.
var EmptyArrival = Arrival{Train: NoTrain, Minutes: NoMinutes}

// Sample is one hourly weather reading.
type Sample struct {
	Temp   int
	Precip float64
	Code   int
	IsDay  bool
}

// EmptySample is the "no data" slot.
var EmptySample = Sample{Code: NoCode}

// Store holds the fixed-size arrays the screens render from.
type Store struct {
	mu sync.RWMutex

	north [ArrivalSlots]Arrival
	south [ArrivalSlots]Arrival

	weather    [WeatherMax]Sample
	startIndex int
	count      int

	transitUpdated time.Time
	weatherUpdated time.Time
}

// New returns a store with every slot set to its sentinel.
func New() *Store {
	s := &Store{}
	for i := range s.north {
		s.north[i] = EmptyArrival
		s.south[i] = EmptyArrival
	}
	for i := range s.weather {
		s.weather[i] = EmptySample
	}
	return s
}

// SetArrivals overwrites both directions. Lists longer than ArrivalSlots are
// truncated; shorter ones are padded with EmptyArrival.
func (s *Store) SetArrivals(north, south []Arrival, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fillArrivals(&s.north, north)
	fillArrivals(&s.south, south)
	s.transitUpdated = at
}

func fillArrivals(dst *[ArrivalSlots]Arrival, src []Arrival) {
	for i := range dst {
		if i < len(src) {
			dst[i] = src[i]
		} else {
			dst[i] = EmptyArrival
		}
	}
}

// Arrivals returns a copy of one direction's slots.
func (s *Store) Arrivals(d Direction) [ArrivalSlots]Arrival {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if d == North {
		return s.north
	}
	return s.south
}

// SetWeather overwrites the hourly series. At most WeatherMax samples are kept
// and every slot past the new count is reset to EmptySample.
func (s *Store) SetWeather(startIndex int, samples []Sample, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(samples)
	if n > WeatherMax {
		n = WeatherMax
	}
	for i := range s.weather {
		if i < n {
			s.weather[i] = samples[i]
		} else {
			s.weather[i] = EmptySample
		}
	}
	s.startIndex = startIndex
	s.count = n
	s.weatherUpdated = at
}

// Weather returns a consistent copy of the hourly series.
func (s *Store) Weather() WeatherSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return WeatherSnapshot{
		StartIndex: s.startIndex,
		Count:      s.count,
		samples:    s.weather,
	}
}

// Updated reports when each dataset was last replaced (zero if never).
func (s *Store) Updated() (transit, weather time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transitUpdated, s.weatherUpdated
}

// WeatherSnapshot is an immutable view of the hourly series.
type WeatherSnapshot struct {
	StartIndex int
	Count      int
	samples    [WeatherMax]Sample
}

// Has reports whether i addresses a valid sample.
func (w WeatherSnapshot) Has(i int) bool {
	return i >= 0 && i < w.Count
}

// At returns sample i, or EmptySample and false when i is out of range.
func (w WeatherSnapshot) At(i int) (Sample, bool) {
	if !w.Has(i) {
		return EmptySample, false
	}
	return w.samples[i], true
}
