// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package glyph builds 5x8 character patterns for the HD44780's CGRAM.
//
// The controller stores up to 8 user defined glyphs, each 8 rows of 5
// pixels. Patterns can be written by hand as binary literals, rasterized
// from any font.Face, rendered from TTF bytes, or downscaled from an
// arbitrary image.
package glyph

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

// Pattern is one CGRAM glyph: 8 rows, 5 pixels each in the low 5 bits. Bit 4
// is the leftmost pixel of a row.
type Pattern [8]byte

const (
	// Width and Height of a glyph cell in pixels.
	Width  = 5
	Height = 8
)

// Bytes returns the pattern with every row masked to its 5 valid bits, in
// the form the display driver accepts.
func (p Pattern) Bytes() [8]byte {
	var out [8]byte
	for i, row := range p {
		out[i] = row & 0x1f
	}
	return out
}

// At reports whether the pixel at (x, y) is lit. Out of range pixels are
// unlit.
func (p Pattern) At(x, y int) bool {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return false
	}
	return p[y]&(1<<(Width-1-x)) != 0
}

// Set switches the pixel at (x, y). Out of range pixels are ignored.
func (p *Pattern) Set(x, y int, on bool) {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return
	}
	mask := byte(1 << (Width - 1 - x))
	if on {
		p[y] |= mask
	} else {
		p[y] &^= mask
	}
}

// FromImage downscales an image to the 5x8 cell and thresholds it into a
// pattern. Pixels brighter than mid-gray are lit, matching the
// white-on-black convention of the font rasterizers in this package.
func FromImage(img image.Image) Pattern {
	cell := image.NewGray(image.Rect(0, 0, Width, Height))
	// Nearest neighbor: a 5x8 cell is too coarse for interpolation, which
	// dilutes thin strokes below the threshold.
	draw.NearestNeighbor.Scale(cell, cell.Bounds(), img, img.Bounds(), draw.Src, nil)
	var p Pattern
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			if cell.GrayAt(x, y).Y >= 0x80 {
				p.Set(x, y, true)
			}
		}
	}
	return p
}

// FromFace rasterizes a rune with the given font face and downscales it into
// a pattern. basicfont.Face7x13 works out of the box for ASCII.
func FromFace(face font.Face, r rune) Pattern {
	m := face.Metrics()
	adv, ok := face.GlyphAdvance(r)
	if !ok {
		return Pattern{}
	}
	w := adv.Ceil()
	if w < 1 {
		w = 1
	}
	h := m.Height.Ceil()
	if h < 1 {
		h = 1
	}
	img := image.NewGray(image.Rect(0, 0, w, h))
	drawer := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.White),
		Face: face,
		Dot:  fixed.P(0, m.Ascent.Ceil()),
	}
	drawer.DrawString(string(r))
	return FromImage(img)
}

// FromTTF parses TTF font bytes and rasterizes a rune into a pattern. Pass
// nil to use the Go regular font.
func FromTTF(ttf []byte, r rune) (Pattern, error) {
	if ttf == nil {
		ttf = goregular.TTF
	}
	f, err := truetype.Parse(ttf)
	if err != nil {
		return Pattern{}, err
	}
	face := truetype.NewFace(f, &truetype.Options{
		Size: Height,
		DPI:  72,
	})
	defer face.Close()
	return FromFace(face, r), nil
}

// Preview renders an enlarged view of a pattern, scale pixels per LCD dot,
// for checking a glyph without hardware. Lit dots are drawn as slightly
// rounded white squares on black, roughly how they look on a panel.
func Preview(p Pattern, scale int) image.Image {
	if scale < 1 {
		scale = 1
	}
	dc := gg.NewContext(Width*scale, Height*scale)
	dc.SetRGB(0, 0, 0)
	dc.Clear()
	dc.SetRGB(1, 1, 1)
	r := float64(scale) / 5
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			if !p.At(x, y) {
				continue
			}
			dc.DrawRoundedRectangle(float64(x*scale), float64(y*scale), float64(scale), float64(scale), r)
			dc.Fill()
		}
	}
	return dc.Image()
}
