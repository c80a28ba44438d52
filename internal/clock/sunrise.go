package clock

import (
	"errors"
	"math"
	"time"
)

var ErrNoSunrise = errors.New("sunrise unavailable for this date/lat")

// NextSunrise returns the first sunrise at (lat, lon) after now, in loc.
func NextSunrise(now time.Time, lat, lon float64, loc *time.Location) (time.Time, error) {
	now = now.In(loc)
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	sr, err := SunriseOn(day, lat, lon, loc)
	if err != nil {
		return time.Time{}, err
	}
	if now.Before(sr) {
		return sr, nil
	}
	return SunriseOn(day.AddDate(0, 0, 1), lat, lon, loc)
}

// SunriseOn computes the sunrise for day with the NOAA approximation.
func SunriseOn(day time.Time, lat, lon float64, loc *time.Location) (time.Time, error) {
	n := float64(day.YearDay())
	lngHour := lon / 15.0
	t := n + (6.0-lngHour)/24.0
	m := 0.9856*t - 3.289
	l := normalize(m+1.916*math.Sin(deg2rad(m))+0.020*math.Sin(2*deg2rad(m))+282.634, 360)
	ra := normalize(rad2deg(math.Atan(0.91764*math.Tan(deg2rad(l)))), 360)
	lQuadrant := math.Floor(l/90.0) * 90.0
	raQuadrant := math.Floor(ra/90.0) * 90.0
	ra = (ra + (lQuadrant - raQuadrant)) / 15.0
	sinDec := 0.39782 * math.Sin(deg2rad(l))
	cosDec := math.Cos(math.Asin(sinDec))
	cosH := (math.Cos(deg2rad(90.833)) - sinDec*math.Sin(deg2rad(lat))) / (cosDec * math.Cos(deg2rad(lat)))
	if cosH > 1 || cosH < -1 {
		return time.Time{}, ErrNoSunrise
	}
	h := (360.0 - rad2deg(math.Acos(cosH))) / 15.0
	localT := h + ra - 0.06571*t - 6.622
	ut := normalize(localT-lngHour, 24)
	utc := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC).
		Add(time.Duration(ut * float64(time.Hour)))
	return utc.In(loc), nil
}

func deg2rad(v float64) float64 { return v * math.Pi / 180.0 }
func rad2deg(v float64) float64 { return v * 180.0 / math.Pi }

func normalize(v, span float64) float64 {
	for v < 0 {
		v += span
	}
	for v >= span {
		v -= span
	}
	return v
}
