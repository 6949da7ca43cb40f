// Package render turns a PowerMatrix into a colour-mapped PNG.
package render

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"strings"

	"iq-spectrogram/spectrogram"
)

var (
	ErrEmptyMatrix    = errors.New("empty power matrix")
	ErrInvalidOptions = errors.New("invalid render options")
)

// TimeAxis selects which image axis carries time.
type TimeAxis int

const (
	// TimeHorizontal puts frames along x (frame 0 on the left) and frequency
	// along y with the highest bin on the top row.
	TimeHorizontal TimeAxis = iota
	// TimeVertical puts frames along y (frame 0 on the top row) and frequency
	// along x with the lowest bin in column 0.
	TimeVertical
)

func (a TimeAxis) String() string {
	if a == TimeVertical {
		return "vertical"
	}
	return "horizontal"
}

func ParseTimeAxis(name string) (TimeAxis, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "horizontal", "x", "":
		return TimeHorizontal, nil
	case "vertical", "y":
		return TimeVertical, nil
	}
	return 0, fmt.Errorf("%w: unknown time axis %q", ErrInvalidOptions, name)
}

// Scale fixes the dB range mapped onto the colormap. The zero value scales
// every image to its own minimum and maximum.
type Scale struct {
	Fixed bool
	MinDB float64
	MaxDB float64
}

type Options struct {
	TimeAxis        TimeAxis
	InvertFrequency bool
	InvertTime      bool
	Scale           Scale
	Colormap        Colormap // nil means Viridis
}

// DefaultOptions matches matplotlib's specgram layout: time left to right,
// frequency increasing upwards, auto-scaled viridis.
func DefaultOptions() Options {
	return Options{
		TimeAxis: TimeHorizontal,
		Colormap: Viridis,
	}
}

func (o Options) Validate() error {
	if o.TimeAxis != TimeHorizontal && o.TimeAxis != TimeVertical {
		return fmt.Errorf("%w: time axis %d", ErrInvalidOptions, int(o.TimeAxis))
	}
	if o.Scale.Fixed && !(o.Scale.MaxDB > o.Scale.MinDB) {
		return fmt.Errorf("%w: fixed scale needs max_db > min_db, got [%v, %v]",
			ErrInvalidOptions, o.Scale.MinDB, o.Scale.MaxDB)
	}
	return nil
}

// Image rasterises m. Each call allocates its own pixel buffer.
func Image(m *spectrogram.PowerMatrix, opts Options) (*image.RGBA, error) {
	if m.Empty() {
		return nil, ErrEmptyMatrix
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	cmap := opts.Colormap
	if len(cmap) == 0 {
		cmap = Viridis
	}

	lo, hi := m.MinMax()
	if opts.Scale.Fixed {
		lo, hi = opts.Scale.MinDB, opts.Scale.MaxDB
	}
	span := hi - lo

	var img *image.RGBA
	if opts.TimeAxis == TimeVertical {
		img = image.NewRGBA(image.Rect(0, 0, m.Bins, m.Frames))
	} else {
		img = image.NewRGBA(image.Rect(0, 0, m.Frames, m.Bins))
	}

	for f := 0; f < m.Frames; f++ {
		row := m.Frame(f)

		t := f
		if opts.InvertTime {
			t = m.Frames - 1 - t
		}

		for b, v := range row {
			norm := 0.0
			if span > 0 {
				norm = (v - lo) / span
			}
			c := cmap.At(norm)

			var x, y int
			if opts.TimeAxis == TimeVertical {
				x, y = b, t
				if opts.InvertFrequency {
					x = m.Bins - 1 - b
				}
			} else {
				x, y = t, m.Bins-1-b
				if opts.InvertFrequency {
					y = b
				}
			}
			img.SetRGBA(x, y, c)
		}
	}

	return img, nil
}

// PNG renders m and encodes it as PNG.
func PNG(m *spectrogram.PowerMatrix, opts Options) ([]byte, error) {
	img, err := Image(m, opts)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %v", err)
	}
	return buf.Bytes(), nil
}

// Base64 is the text form used to embed a PNG in a JSON response.
func Base64(pngBytes []byte) string {
	return base64.StdEncoding.EncodeToString(pngBytes)
}

// Colormap is a table of RGB stops spanning [0, 1].
type Colormap [][3]uint8

var (
	Viridis Colormap = viridis[:]
	Gray    Colormap = grayTable()
)

func grayTable() Colormap {
	table := make(Colormap, 256)
	for i := range table {
		table[i] = [3]uint8{uint8(i), uint8(i), uint8(i)}
	}
	return table
}

func ParseColormap(name string) (Colormap, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "viridis", "":
		return Viridis, nil
	case "gray", "grey":
		return Gray, nil
	}
	return nil, fmt.Errorf("%w: unknown colormap %q", ErrInvalidOptions, name)
}

// At maps t in [0, 1] onto the table, interpolating linearly between
// neighbouring stops. Values outside the range are clamped and NaN maps to 0.
func (c Colormap) At(t float64) color.RGBA {
	if math.IsNaN(t) || t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}

	pos := t * float64(len(c)-1)
	i := int(pos)
	if i >= len(c)-1 {
		last := c[len(c)-1]
		return color.RGBA{R: last[0], G: last[1], B: last[2], A: 255}
	}
	frac := pos - float64(i)

	a, b := c[i], c[i+1]
	lerp := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*frac))
	}
	return color.RGBA{R: lerp(a[0], b[0]), G: lerp(a[1], b[1]), B: lerp(a[2], b[2]), A: 255}
}
