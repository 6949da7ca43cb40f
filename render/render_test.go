package render

import (
	"bytes"
	"encoding/base64"
	"image/color"
	"image/png"
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iq-spectrogram/iq"
	"iq-spectrogram/spectrogram"
)

// ramp has 3 bins and 2 frames: frame 0 = [0 1 2], frame 1 = [3 4 5].
func ramp() *spectrogram.PowerMatrix {
	return &spectrogram.PowerMatrix{
		Bins:       3,
		Frames:     2,
		Data:       []float64{0, 1, 2, 3, 4, 5},
		SampleRate: 3,
		FrameSize:  3,
		Step:       3,
	}
}

func TestImageEmpty(t *testing.T) {
	_, err := Image(nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrEmptyMatrix)

	_, err = Image(&spectrogram.PowerMatrix{}, DefaultOptions())
	assert.ErrorIs(t, err, ErrEmptyMatrix)

	_, err = PNG(&spectrogram.PowerMatrix{Bins: 4}, DefaultOptions())
	assert.ErrorIs(t, err, ErrEmptyMatrix)
}

func TestImageOrientation(t *testing.T) {
	lo, hi := Viridis.At(0), Viridis.At(1)

	tests := []struct {
		name       string
		opts       Options
		w, h       int
		minX, minY int // pixel of frame 0, bin 0
		maxX, maxY int // pixel of frame 1, bin 2
	}{
		{"default", Options{}, 2, 3, 0, 2, 1, 0},
		{"invert frequency", Options{InvertFrequency: true}, 2, 3, 0, 0, 1, 2},
		{"invert time", Options{InvertTime: true}, 2, 3, 1, 2, 0, 0},
		{"vertical", Options{TimeAxis: TimeVertical}, 3, 2, 0, 0, 2, 1},
		{"vertical inverted", Options{TimeAxis: TimeVertical, InvertFrequency: true, InvertTime: true}, 3, 2, 2, 1, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := Image(ramp(), tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.w, img.Bounds().Dx())
			assert.Equal(t, tt.h, img.Bounds().Dy())
			assert.Equal(t, lo, img.RGBAAt(tt.minX, tt.minY))
			assert.Equal(t, hi, img.RGBAAt(tt.maxX, tt.maxY))
		})
	}
}

func TestImageAutoScale(t *testing.T) {
	m := ramp()
	a, err := Image(m, DefaultOptions())
	require.NoError(t, err)

	// shifting every value keeps the per-image normalisation identical
	for i := range m.Data {
		m.Data[i] -= 120
	}
	b, err := Image(m, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, a.Pix, b.Pix)
}

func TestImageFlatMatrix(t *testing.T) {
	m, err := spectrogram.Compute(make(iq.Samples, 2048), spectrogram.DefaultConfig())
	require.NoError(t, err)

	img, err := Image(m, DefaultOptions())
	require.NoError(t, err)
	want := Viridis.At(0)
	for y := 0; y < img.Bounds().Dy(); y++ {
		for x := 0; x < img.Bounds().Dx(); x++ {
			require.Equal(t, want, img.RGBAAt(x, y))
		}
	}
}

func TestImageFixedScale(t *testing.T) {
	opts := DefaultOptions()
	opts.Scale = Scale{Fixed: true, MinDB: 1, MaxDB: 4}

	img, err := Image(ramp(), opts)
	require.NoError(t, err)
	// 0 clamps to the bottom, 5 clamps to the top
	assert.Equal(t, Viridis.At(0), img.RGBAAt(0, 2))
	assert.Equal(t, Viridis.At(1), img.RGBAAt(1, 0))
	assert.Equal(t, Viridis.At(1.0/3), img.RGBAAt(0, 0))

	opts.Scale = Scale{Fixed: true, MinDB: 4, MaxDB: 4}
	_, err = Image(ramp(), opts)
	assert.ErrorIs(t, err, ErrInvalidOptions)

	_, err = Image(ramp(), Options{TimeAxis: TimeAxis(7)})
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

func TestPNGRoundTrip(t *testing.T) {
	samples := iq.GenerateQPSK(8192, 0.01, 3)
	m, err := spectrogram.Compute(samples, spectrogram.DefaultConfig())
	require.NoError(t, err)

	data, err := PNG(m, DefaultOptions())
	require.NoError(t, err)

	decoded, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, m.Frames, decoded.Bounds().Dx())
	assert.Equal(t, m.Bins, decoded.Bounds().Dy())

	img, err := Image(m, DefaultOptions())
	require.NoError(t, err)
	r1, g1, b1, _ := decoded.At(3, 100).RGBA()
	r2, g2, b2, _ := img.At(3, 100).RGBA()
	assert.Equal(t, []uint32{r2, g2, b2}, []uint32{r1, g1, b1})

	again, err := PNG(m, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, data, again)

	text := Base64(data)
	raw, err := base64.StdEncoding.DecodeString(text)
	require.NoError(t, err)
	assert.Equal(t, data, raw)
}

func TestColormapAt(t *testing.T) {
	require.Len(t, Viridis, 256)

	first, last := Viridis[0], Viridis[255]
	assert.Equal(t, color.RGBA{R: first[0], G: first[1], B: first[2], A: 255}, Viridis.At(0))
	assert.Equal(t, color.RGBA{R: last[0], G: last[1], B: last[2], A: 255}, Viridis.At(1))
	assert.Equal(t, Viridis.At(0), Viridis.At(-3))
	assert.Equal(t, Viridis.At(0), Viridis.At(math.NaN()))
	assert.Equal(t, Viridis.At(1), Viridis.At(7))

	assert.Equal(t, color.RGBA{R: 128, G: 128, B: 128, A: 255}, Gray.At(0.5))
	assert.Equal(t, color.RGBA{R: 51, G: 51, B: 51, A: 255}, Gray.At(0.2))
}

func TestViridisShape(t *testing.T) {
	// dark purple to yellow, with green rising throughout
	first, last := Viridis[0], Viridis[255]
	assert.Greater(t, first[2], first[1])
	assert.Greater(t, first[0], first[1])
	assert.Greater(t, last[0], uint8(200))
	assert.Greater(t, last[1], uint8(200))
	assert.Less(t, last[2], uint8(80))

	for i := 1; i < len(Viridis); i++ {
		assert.GreaterOrEqual(t, Viridis[i][1], Viridis[i-1][1], "entry %d", i)
	}
}

func TestViridisReferenceStops(t *testing.T) {
	// matplotlib viridis sampled at these table indices
	stops := map[int]string{
		0: "440154", 28: "482878", 57: "3e4989", 64: "3b528b", 85: "31688e",
		113: "26828e", 128: "21918c", 142: "1f9e89", 170: "35b779",
		191: "5ec962", 198: "6ece58", 227: "b5de2b", 255: "fde725",
	}
	const tolerance = 2

	for idx, hex := range stops {
		want, err := strconv.ParseUint(hex, 16, 32)
		require.NoError(t, err)
		ref := [3]uint8{uint8(want >> 16), uint8(want >> 8), uint8(want)}

		for c := 0; c < 3; c++ {
			diff := int(Viridis[idx][c]) - int(ref[c])
			assert.LessOrEqual(t, diff, tolerance, "entry %d channel %d: got %v want %v", idx, c, Viridis[idx], ref)
			assert.GreaterOrEqual(t, diff, -tolerance, "entry %d channel %d: got %v want %v", idx, c, Viridis[idx], ref)
		}
	}
}

func TestParseNames(t *testing.T) {
	a, err := ParseTimeAxis("vertical")
	require.NoError(t, err)
	assert.Equal(t, TimeVertical, a)
	a, err = ParseTimeAxis("")
	require.NoError(t, err)
	assert.Equal(t, TimeHorizontal, a)
	_, err = ParseTimeAxis("diagonal")
	assert.ErrorIs(t, err, ErrInvalidOptions)

	c, err := ParseColormap("grey")
	require.NoError(t, err)
	assert.Equal(t, Gray, c)
	_, err = ParseColormap("jet")
	assert.ErrorIs(t, err, ErrInvalidOptions)
}
