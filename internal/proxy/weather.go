package proxy

import (
	"math"
)

// openMeteo is the subset of the Open-Meteo forecast response we read.
type openMeteo struct {
	Current struct {
		Time          string  `json:"time"`
		Temperature2m float64 `json:"temperature_2m"`
		WeatherCode   int     `json:"weather_code"`
		Precipitation float64 `json:"precipitation"`
		Rain          float64 `json:"rain"`
		Snowfall      float64 `json:"snowfall"`
	} `json:"current"`
	Hourly struct {
		Time          []string  `json:"time"`
		Temperature2m []float64 `json:"temperature_2m"`
		Precipitation []float64 `json:"precipitation"`
		Visibility    []float64 `json:"visibility"`
		IsDay         []int     `json:"is_day"`
		WeatherCode   []int     `json:"weather_code"`
	} `json:"hourly"`
}

type Current struct {
	Temp int     `json:"temp"`
	Code int     `json:"code"`
	Prec float64 `json:"prec"`
	Rain float64 `json:"rain"`
	Snow float64 `json:"snow"`
}

type Hour struct {
	Temp  int     `json:"temp"`
	Prec  float64 `json:"prec"`
	Visib int     `json:"visib"`
	Day   int     `json:"day"`
	Code  int     `json:"code"`
}

type Forecast struct {
	StartIndex int     `json:"startIndex"`
	Current    Current `json:"current"`
	Hourly     []Hour  `json:"hourly"`
}

// jsRound rounds half up, matching what the display firmware expects.
func jsRound(v float64) int {
	return int(math.Floor(v + 0.5))
}

// currentHourIndex finds the hourly slot for the current observation time,
// or 0 when it is not on the axis.
func currentHourIndex(current string, axis []string) int {
	if len(current) < 13 {
		return 0
	}
	hour := current[:13] + ":00"
	for i, t := range axis {
		if t == hour {
			return i
		}
	}
	return 0
}

// buildForecast trims the hourly series to start at the current hour.
func buildForecast(data *openMeteo) Forecast {
	h := data.Hourly
	start := currentHourIndex(data.Current.Time, h.Time)

	f := Forecast{
		StartIndex: start,
		Current: Current{
			Temp: jsRound(data.Current.Temperature2m),
			Code: data.Current.WeatherCode,
			Prec: data.Current.Precipitation,
			Rain: data.Current.Rain,
			Snow: data.Current.Snowfall,
		},
		Hourly: []Hour{},
	}
	for i := start; i < len(h.Temperature2m); i++ {
		hr := Hour{Temp: jsRound(h.Temperature2m[i])}
		if i < len(h.Precipitation) {
			hr.Prec = h.Precipitation[i]
		}
		if i < len(h.Visibility) {
			hr.Visib = jsRound(h.Visibility[i])
		}
		if i < len(h.IsDay) {
			hr.Day = h.IsDay[i]
		}
		if i < len(h.WeatherCode) {
			hr.Code = h.WeatherCode[i]
		}
		f.Hourly = append(f.Hourly, hr)
	}
	return f
}
