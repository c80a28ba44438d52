package render

import (
	"fmt"
	"image"
	"time"

	"inkhat/internal/icon"
	"inkhat/internal/store"
)

const (
	// Pages is the number of weather pages.
	Pages = 3
	// TilesPerPage is the number of hourly tiles under the middle slot.
	TilesPerPage = 6
	tileStep     = 4
	middayOffset = 12
)

// Day offsets into the hourly series.
const (
	baseToday     = 0
	baseTomorrow  = 24
	baseFollowing = 48
)

// Slot is one of the three day blocks on a weather page.
type Slot struct {
	Label string
	Base  int
	// Index is the representative (midday) sample index, Base+12.
	Index int
	// Empty slots show the placeholder icon.
	Empty bool
	Icon  icon.Icon
}

// Tile is one hourly reading under the middle slot.
type Tile struct {
	Index  int
	Has    bool
	Sample store.Sample
	Icon   icon.Icon
}

type slotDef struct {
	label       string
	base        int
	placeholder bool
}

var pageSlots = [Pages][3]slotDef{
	{{"Yesterday", baseToday, true}, {"Today", baseToday, false}, {"Tomorrow", baseTomorrow, false}},
	{{"Today", baseToday, false}, {"Tomorrow", baseTomorrow, false}, {"Following Day", baseFollowing, false}},
	{{"Tomorrow", baseTomorrow, false}, {"Following Day", baseFollowing, false}, {"The Third Morrow", baseFollowing, true}},
}

// PageSlots resolves the three day blocks for page. Any slot whose midday
// index falls outside the snapshot is marked empty.
func PageSlots(page int, w store.WeatherSnapshot) [3]Slot {
	page = clampPage(page)
	var out [3]Slot
	for i, def := range pageSlots[page] {
		s := Slot{Label: def.label, Base: def.base, Index: def.base + middayOffset}
		smp, ok := w.At(s.Index)
		s.Empty = def.placeholder || !ok
		if s.Empty {
			s.Icon = icon.Placeholder
		} else {
			s.Icon = icon.Map(smp.Code, smp.IsDay)
		}
		out[i] = s
	}
	return out
}

// PageTiles returns the six 4-hourly tiles for the middle slot of page.
func PageTiles(page int, w store.WeatherSnapshot) [TilesPerPage]Tile {
	base := pageSlots[clampPage(page)][1].base
	var out [TilesPerPage]Tile
	for i := range out {
		idx := base + i*tileStep
		smp, ok := w.At(idx)
		t := Tile{Index: idx, Has: ok, Sample: smp, Icon: icon.Placeholder}
		if ok {
			t.Icon = icon.Map(smp.Code, smp.IsDay)
		}
		out[i] = t
	}
	return out
}

func clampPage(page int) int {
	if page < 0 {
		return 0
	}
	if page >= Pages {
		return Pages - 1
	}
	return page
}

// WeatherFrame draws the weather header on a blank frame.
func (r *Renderer) WeatherFrame() Update {
	u := r.full()
	r.header(r.text.WeatherTitle)
	return u
}

// WeatherPage redraws the three day blocks and hourly tiles for page.
func (r *Renderer) WeatherPage(page int) Update {
	l := r.layout
	dst, u := r.window(l.WeatherWindow)
	snap := r.store.Weather()
	_, fetched := r.store.Updated()

	for i, s := range PageSlots(page, snap) {
		size := l.SideSize
		if i == 1 {
			size = l.MidSize
		}
		x := l.SlotX[i]
		icon.Draw(dst, image.Rect(x, l.SlotY, x+size, l.SlotY+size), s.Icon)
		centerText(dst, r.faces.label, x+size/2, l.SlotY+size+l.SlotLabelGap, s.Label, Ink)
	}

	for i, t := range PageTiles(page, snap) {
		x := l.TilesX + i*(l.TileSize+l.TileGap)
		y := l.TilesY
		rectOutline(dst, x, y, x+l.TileSize-1, y+l.TileSize-1, Ink)
		centerText(dst, r.faces.small, x+l.TileSize/2, y+18, tileHour(fetched, t), Ink)
		ix := x + (l.TileSize-l.TileIcon)/2
		icon.Draw(dst, image.Rect(ix, y+26, ix+l.TileIcon, y+26+l.TileIcon), t.Icon)
		centerText(dst, r.faces.small, x+l.TileSize/2, y+l.TileSize-14, tileReading(t), Ink)
	}
	return u
}

// tileHour labels a tile with the wall-clock hour of its sample. Sample 0 is
// the hour the forecast was fetched.
func tileHour(fetched time.Time, t Tile) string {
	if fetched.IsZero() || !t.Has {
		return "--:--"
	}
	return fetched.Truncate(time.Hour).Add(time.Duration(t.Index) * time.Hour).Format("15:04")
}

func tileReading(t Tile) string {
	if !t.Has {
		return "--"
	}
	return fmt.Sprintf("%dF %.2fin", t.Sample.Temp, t.Sample.Precip)
}
