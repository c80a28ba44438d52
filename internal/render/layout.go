package render

import "image"

// Box is a JSON-friendly rectangle: origin plus size.
type Box struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.W, b.Y+b.H)
}

// Layout holds every pixel position the screens use.
type Layout struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	HeaderBaseline int `json:"header_baseline"`
	HeaderRule     int `json:"header_rule"`

	// Clock
	GreetingBaseline int `json:"greeting_baseline"`
	ClockWindow      Box `json:"clock_window"`
	DateBaseline     int `json:"date_baseline"`
	SunriseBaseline  int `json:"sunrise_baseline"`

	// Transit
	SplitY        int              `json:"split_y"`
	HalfHeight    int              `json:"half_height"`
	LabelDY       int              `json:"label_dy"`
	TrainIconX    int              `json:"train_icon_x"`
	TrainIconSize int              `json:"train_icon_size"`
	TrainIconDY   int              `json:"train_icon_dy"`
	RouteX        int              `json:"route_x"`
	RouteDY       int              `json:"route_dy"`
	DotR          int              `json:"dot_r"`
	DotX          [ArrivalDots]int `json:"dot_x"`
	TrainTextDY   int              `json:"train_text_dy"`
	MinTextDY     int              `json:"min_text_dy"`
	TransitWindow Box              `json:"transit_window"`

	// Weather
	WeatherWindow Box    `json:"weather_window"`
	SlotX         [3]int `json:"slot_x"`
	SlotY         int    `json:"slot_y"`
	SideSize      int    `json:"side_size"`
	MidSize       int    `json:"mid_size"`
	SlotLabelGap  int    `json:"slot_label_gap"`
	TilesX        int    `json:"tiles_x"`
	TilesY        int    `json:"tiles_y"`
	TileSize      int    `json:"tile_size"`
	TileGap       int    `json:"tile_gap"`
	TileIcon      int    `json:"tile_icon"`

	// Provisioning
	StatusWindow Box `json:"status_window"`
}

// ArrivalDots is the number of arrival markers per direction.
const ArrivalDots = 5

// DefaultLayout is tuned for the 800x480 7.5" panel.
func DefaultLayout() Layout {
	const w, h = 800, 480
	routeX := 220
	windowX := routeX - 10
	return Layout{
		Width:  w,
		Height: h,

		HeaderBaseline: 22,
		HeaderRule:     30,

		GreetingBaseline: 110,
		ClockWindow:      Box{195, 135, 410, 210},
		DateBaseline:     395,
		SunriseBaseline:  435,

		SplitY:        239,
		HalfHeight:    240,
		LabelDY:       50,
		TrainIconX:    20,
		TrainIconSize: 160,
		TrainIconDY:   60,
		RouteX:        routeX,
		RouteDY:       140,
		DotR:          6,
		DotX:          [ArrivalDots]int{330, 430, 510, 620, 730},
		TrainTextDY:   -18,
		MinTextDY:     26,
		TransitWindow: Box{windowX, 70, w - windowX, h - 70 - 20},

		WeatherWindow: Box{0, 35, w, h - 35},
		SlotX:         [3]int{40, 300, 560},
		SlotY:         45,
		SideSize:      160,
		MidSize:       200,
		SlotLabelGap:  22,
		TilesX:        20,
		TilesY:        280,
		TileSize:      120,
		TileGap:       10,
		TileIcon:      48,

		StatusWindow: Box{0, 200, w, 120},
	}
}

// Bounds is the full frame rectangle.
func (l Layout) Bounds() image.Rectangle {
	return image.Rect(0, 0, l.Width, l.Height)
}

// Text holds every user-visible string the screens print.
type Text struct {
	ClockTitle   string `json:"clock_title"`
	TransitTitle string `json:"transit_title"`
	WeatherTitle string `json:"weather_title"`
	SetupTitle   string `json:"setup_title"`
	Greeting     string `json:"greeting"`
	Splash       string `json:"splash"`
	Route        string `json:"route"`
	North        string `json:"north"`
	South        string `json:"south"`
}

func DefaultText() Text {
	return Text{
		ClockTitle:   "TIME",
		TransitTitle: "THE N TRAIN",
		WeatherTitle: "WEATHER",
		SetupTitle:   "SETUP START",
		Greeting:     "Hello, PitchFest!",
		Splash:       "INK-HAT",
		Route:        "N",
		North:        "Northbound",
		South:        "Southbound",
	}
}
