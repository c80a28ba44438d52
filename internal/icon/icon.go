// Package icon maps WMO weather codes to display icons and draws them.
package icon

// Category is the weather family an icon belongs to.
type Category int

const (
	Unknown Category = iota
	Thunder
	Fog
	Snow
	Rain
	Cloudy
	Clear
)

var categoryNames = [...]string{
	Unknown: "unknown",
	Thunder: "thunder",
	Fog:     "fog",
	Snow:    "snow",
	Rain:    "rain",
	Cloudy:  "cloudy",
	Clear:   "clear",
}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return "unknown"
	}
	return categoryNames[c]
}

// Icon is a category plus its day/night variant. Unknown has a single variant
// and always reports Night == false.
type Icon struct {
	Category Category
	Night    bool
}

// Placeholder is drawn for slots without data.
var Placeholder = Icon{Category: Unknown}

func (i Icon) String() string {
	if i.Category == Unknown {
		return "unknown"
	}
	if i.Night {
		return i.Category.String() + "-night"
	}
	return i.Category.String() + "-day"
}

type rule struct {
	match func(code int) bool
	cat   Category
}

func in(code int, set ...int) bool {
	for _, v := range set {
		if code == v {
			return true
		}
	}
	return false
}

func between(code, lo, hi int) bool { return code >= lo && code <= hi }

// rules are checked in order; the first match wins.
var rules = []rule{
	{func(c int) bool { return in(c, 95, 96, 99) }, Thunder},
	{func(c int) bool { return in(c, 45, 48) }, Fog},
	{func(c int) bool { return between(c, 71, 77) || in(c, 85, 86) }, Snow},
	{func(c int) bool { return between(c, 51, 67) || between(c, 80, 82) }, Rain},
	{func(c int) bool { return between(c, 1, 3) }, Cloudy},
	{func(c int) bool { return c == 0 }, Clear},
}

// Categorize returns the category for a WMO weather code.
func Categorize(code int) Category {
	for _, r := range rules {
		if r.match(code) {
			return r.cat
		}
	}
	return Unknown
}

// Map picks the icon for code, using isDay to choose the variant.
func Map(code int, isDay bool) Icon {
	cat := Categorize(code)
	if cat == Unknown {
		return Placeholder
	}
	return Icon{Category: cat, Night: !isDay}
}
