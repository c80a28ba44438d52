package fetch

import (
	"context"
	"math"

	"inkhat/internal/store"
)

type weatherResponse struct {
	StartIndex int          `json:"startIndex"`
	Hourly     []sampleJSON `json:"hourly"`
}

type sampleJSON struct {
	Temp *float64 `json:"temp"`
	Prec *float64 `json:"prec"`
	Day  *float64 `json:"day"`
	Code *int     `json:"code"`
}

// WeatherFetcher loads {"startIndex":n,"hourly":[...]} forecasts.
type WeatherFetcher struct {
	Client *Client
	URL    string
	Store  *store.Store
}

// Fetch replaces the hourly series. On any error the store is left untouched.
func (f *WeatherFetcher) Fetch(ctx context.Context) error {
	var body weatherResponse
	if err := f.Client.getJSON(ctx, "weather", f.URL, &body); err != nil {
		return err
	}
	f.Store.SetWeather(body.StartIndex, toSamples(body.Hourly), f.Client.now())
	return nil
}

func toSamples(in []sampleJSON) []store.Sample {
	n := len(in)
	if n > store.WeatherMax {
		n = store.WeatherMax
	}
	out := make([]store.Sample, n)
	for i := 0; i < n; i++ {
		h := in[i]
		s := store.Sample{Code: store.NoCode}
		if h.Temp != nil {
			s.Temp = int(math.Round(*h.Temp))
		}
		if h.Prec != nil {
			s.Precip = *h.Prec
		}
		if h.Day != nil {
			s.IsDay = *h.Day != 0
		}
		if h.Code != nil {
			s.Code = *h.Code
		}
		out[i] = s
	}
	return out
}
