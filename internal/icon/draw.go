package icon

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"
)

var (
	ink   = color.Gray{Y: 0x00}
	paper = color.Gray{Y: 0xff}
)

// Draw clears r and renders ic centred in it at the largest square that fits.
func Draw(dst draw.Image, r image.Rectangle, ic Icon) {
	if r.Empty() {
		return
	}
	if clip := r.Intersect(dst.Bounds()); clip != r {
		if clip.Empty() {
			return
		}
		tmp := image.NewGray(r)
		Draw(tmp, r, ic)
		draw.Draw(dst, clip, tmp, clip.Min, draw.Src)
		return
	}
	draw.Draw(dst, r, image.NewUniform(paper), image.Point{}, draw.Src)

	switch ic.Category {
	case Clear:
		badge(dst, r, 0.5, 0.5, 0.3, ic.Night)
	case Cloudy:
		badge(dst, r, 0.66, 0.33, 0.19, ic.Night)
		cloud(dst, r, 0.46, 0.58, 1.0)
	case Rain:
		badge(dst, r, 0.24, 0.22, 0.14, ic.Night)
		cloud(dst, r, 0.5, 0.42, 0.85)
		fill(dst, r, ink, func(p *pen) {
			for _, x := range []float64{0.36, 0.52, 0.68} {
				p.stroke(x, 0.68, x-0.07, 0.88, 0.05)
			}
		})
	case Snow:
		badge(dst, r, 0.24, 0.22, 0.14, ic.Night)
		cloud(dst, r, 0.5, 0.42, 0.85)
		fill(dst, r, ink, func(p *pen) {
			for _, d := range [][2]float64{{0.34, 0.74}, {0.5, 0.8}, {0.66, 0.74}, {0.42, 0.9}, {0.58, 0.9}} {
				p.circle(d[0], d[1], 0.04)
			}
		})
	case Fog:
		badge(dst, r, 0.24, 0.22, 0.14, ic.Night)
		fill(dst, r, ink, func(p *pen) {
			p.rect(0.14, 0.44, 0.86, 0.5)
			p.rect(0.22, 0.57, 0.9, 0.63)
			p.rect(0.1, 0.7, 0.78, 0.76)
			p.rect(0.2, 0.83, 0.86, 0.89)
		})
	case Thunder:
		badge(dst, r, 0.24, 0.2, 0.13, ic.Night)
		cloud(dst, r, 0.5, 0.38, 0.85)
		fill(dst, r, ink, func(p *pen) {
			p.poly([][2]float64{
				{0.55, 0.52}, {0.38, 0.76}, {0.49, 0.76}, {0.41, 0.95},
				{0.64, 0.66}, {0.53, 0.66}, {0.62, 0.52},
			})
		})
	default:
		unknown(dst, r)
	}
}

// badge draws a sun (day) or crescent moon (night) of radius rad.
func badge(dst draw.Image, r image.Rectangle, cx, cy, rad float64, night bool) {
	if night {
		fill(dst, r, ink, func(p *pen) { p.circle(cx, cy, rad) })
		fill(dst, r, paper, func(p *pen) { p.circle(cx+rad*0.45, cy-rad*0.35, rad*0.85) })
		return
	}
	fill(dst, r, ink, func(p *pen) {
		p.circle(cx, cy, rad*0.62)
		for i := 0; i < 8; i++ {
			a := float64(i) * math.Pi / 4
			c, s := math.Cos(a), math.Sin(a)
			p.stroke(cx+c*rad*0.8, cy+s*rad*0.8, cx+c*rad*1.15, cy+s*rad*1.15, rad*0.16)
		}
	})
}

// cloud draws a solid cloud with a paper halo so it separates from a badge behind it.
func cloud(dst draw.Image, r image.Rectangle, cx, cy, scale float64) {
	shape := func(k float64) func(p *pen) {
		return func(p *pen) {
			s := scale * k
			p.circle(cx-0.16*s, cy+0.02*s, 0.15*s)
			p.circle(cx+0.03*s, cy-0.07*s, 0.2*s)
			p.circle(cx+0.21*s, cy+0.04*s, 0.13*s)
			p.rect(cx-0.3*s, cy+0.02*s, cx+0.33*s, cy+0.17*s)
		}
	}
	fill(dst, r, paper, shape(1.15))
	fill(dst, r, ink, shape(1.0))
}

func unknown(dst draw.Image, r image.Rectangle) {
	fill(dst, r, ink, func(p *pen) {
		p.sector(0.5, 0.5, 0.42, 0.05, 0, 2*math.Pi)
		p.sector(0.5, 0.4, 0.12, 0.07, math.Pi, 2.5*math.Pi)
		p.rect(0.465, 0.5, 0.535, 0.62)
		p.circle(0.5, 0.71, 0.045)
	})
}

// pen maps unit-square coordinates onto a vector.Rasterizer.
type pen struct {
	z      *vector.Rasterizer
	s      float64
	ox, oy float64
}

func fill(dst draw.Image, r image.Rectangle, c color.Color, build func(p *pen)) {
	w, h := r.Dx(), r.Dy()
	s := float64(w)
	if h < w {
		s = float64(h)
	}
	p := &pen{
		z:  vector.NewRasterizer(w, h),
		s:  s,
		ox: (float64(w) - s) / 2,
		oy: (float64(h) - s) / 2,
	}
	build(p)
	p.z.Draw(dst, r, image.NewUniform(c), image.Point{})
}

func (p *pen) pt(x, y float64) (float32, float32) {
	return float32(p.ox + x*p.s), float32(p.oy + y*p.s)
}

func (p *pen) moveTo(x, y float64) { p.z.MoveTo(p.pt(x, y)) }
func (p *pen) lineTo(x, y float64) { p.z.LineTo(p.pt(x, y)) }

func (p *pen) cubeTo(x1, y1, x2, y2, x3, y3 float64) {
	ax, ay := p.pt(x1, y1)
	bx, by := p.pt(x2, y2)
	cx, cy := p.pt(x3, y3)
	p.z.CubeTo(ax, ay, bx, by, cx, cy)
}

const kappa = 0.5522847498

func (p *pen) circle(cx, cy, r float64) {
	k := kappa * r
	p.moveTo(cx+r, cy)
	p.cubeTo(cx+r, cy+k, cx+k, cy+r, cx, cy+r)
	p.cubeTo(cx-k, cy+r, cx-r, cy+k, cx-r, cy)
	p.cubeTo(cx-r, cy-k, cx-k, cy-r, cx, cy-r)
	p.cubeTo(cx+k, cy-r, cx+r, cy-k, cx+r, cy)
	p.z.ClosePath()
}

func (p *pen) rect(x0, y0, x1, y1 float64) {
	p.poly([][2]float64{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}})
}

func (p *pen) poly(pts [][2]float64) {
	if len(pts) < 3 {
		return
	}
	p.moveTo(pts[0][0], pts[0][1])
	for _, q := range pts[1:] {
		p.lineTo(q[0], q[1])
	}
	p.z.ClosePath()
}

// stroke fills a line segment of width w as a quad.
func (p *pen) stroke(x0, y0, x1, y1, w float64) {
	dx, dy := x1-x0, y1-y0
	l := math.Hypot(dx, dy)
	if l == 0 {
		return
	}
	nx, ny := -dy/l*w/2, dx/l*w/2
	p.poly([][2]float64{{x0 + nx, y0 + ny}, {x1 + nx, y1 + ny}, {x1 - nx, y1 - ny}, {x0 - nx, y0 - ny}})
}

// sector fills an arc band of radius r and width w from angle a0 to a1.
func (p *pen) sector(cx, cy, r, w, a0, a1 float64) {
	const steps = 48
	outer, inner := r+w/2, r-w/2
	pts := make([][2]float64, 0, 2*(steps+1))
	for i := 0; i <= steps; i++ {
		a := a0 + (a1-a0)*float64(i)/steps
		pts = append(pts, [2]float64{cx + outer*math.Cos(a), cy + outer*math.Sin(a)})
	}
	for i := steps; i >= 0; i-- {
		a := a0 + (a1-a0)*float64(i)/steps
		pts = append(pts, [2]float64{cx + inner*math.Cos(a), cy + inner*math.Sin(a)})
	}
	p.poly(pts)
}
