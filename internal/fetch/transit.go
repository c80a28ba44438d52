package fetch

import (
	"context"
	"math"
	"unicode/utf8"

	"inkhat/internal/store"
)

type transitResponse struct {
	North []arrivalJSON `json:"north"`
	South []arrivalJSON `json:"south"`
}

type arrivalJSON struct {
	Train   *string  `json:"train"`
	Minutes *float64 `json:"minutes"`
}

// TransitFetcher loads {"north":[...],"south":[...]} arrivals.
type TransitFetcher struct {
	Client *Client
	URL    string
	Store  *store.Store
}

// Fetch replaces both arrival lists. On any error the store is left untouched.
func (f *TransitFetcher) Fetch(ctx context.Context) error {
	var body transitResponse
	if err := f.Client.getJSON(ctx, "transit", f.URL, &body); err != nil {
		return err
	}
	f.Store.SetArrivals(toArrivals(body.North), toArrivals(body.South), f.Client.now())
	return nil
}

func toArrivals(in []arrivalJSON) []store.Arrival {
	n := len(in)
	if n > store.ArrivalSlots {
		n = store.ArrivalSlots
	}
	out := make([]store.Arrival, n)
	for i := 0; i < n; i++ {
		a := store.EmptyArrival
		if m := in[i].Minutes; m != nil {
			a.Minutes = int(math.Round(*m))
		}
		if t := in[i].Train; t != nil && *t != "" {
			r, _ := utf8.DecodeRuneInString(*t)
			a.Train = r
		}
		out[i] = a
	}
	return out
}
