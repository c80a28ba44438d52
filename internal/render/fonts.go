package render

import (
	"fmt"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gomonobold"
)

type faces struct {
	small  font.Face // tile text
	label  font.Face // headers, labels
	medium font.Face // greeting, date
	splash font.Face
	big    font.Face // clock digits
}

func loadFaces() (faces, error) {
	f, err := truetype.Parse(gomonobold.TTF)
	if err != nil {
		return faces{}, fmt.Errorf("render: parse font: %w", err)
	}
	face := func(size float64) font.Face {
		return truetype.NewFace(f, &truetype.Options{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
	}
	return faces{
		small:  basicfont.Face7x13,
		label:  face(18),
		medium: face(28),
		splash: face(72),
		big:    face(120),
	}, nil
}
