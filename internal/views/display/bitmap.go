package display

import (
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"os"
	"strings"
)

// Bitmap is a monochrome image; true marks a dark (ink) pixel.
type Bitmap struct {
	W, H int
	Pix  []bool
}

// At reports whether (x, y) is inked. Out-of-range pixels are blank.
func (b *Bitmap) At(x, y int) bool {
	if x < 0 || y < 0 || x >= b.W || y >= b.H {
		return false
	}
	return b.Pix[y*b.W+x]
}

// FromImage thresholds img at half luminance.
func FromImage(img image.Image) *Bitmap {
	r := img.Bounds()
	b := &Bitmap{W: r.Dx(), H: r.Dy(), Pix: make([]bool, r.Dx()*r.Dy())}
	for y := 0; y < b.H; y++ {
		for x := 0; x < b.W; x++ {
			g := color.GrayModel.Convert(img.At(r.Min.X+x, r.Min.Y+y)).(color.Gray)
			b.Pix[y*b.W+x] = g.Y < 0x80
		}
	}
	return b
}

// Load decodes the display GIF the worker writes before each redraw. A
// trailing "?token" cache-buster is ignored.
func Load(path string) (*Bitmap, error) {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, err := gif.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return FromImage(img), nil
}

// quadrants maps a 2x2 pixel cell (bit 0 top-left, 1 top-right, 2 bottom-left,
// 3 bottom-right) onto a block character.
var quadrants = [16]rune{' ', '▘', '▝', '▀', '▖', '▌', '▞', '▛', '▗', '▚', '▐', '▜', '▄', '▙', '▟', '█'}

// Lines renders the bitmap at two pixels per character in each direction.
func (b *Bitmap) Lines() []string {
	rows := (b.H + 1) / 2
	cols := (b.W + 1) / 2
	out := make([]string, 0, rows)
	var sb strings.Builder
	for cy := 0; cy < rows; cy++ {
		sb.Reset()
		for cx := 0; cx < cols; cx++ {
			x, y := cx*2, cy*2
			q := 0
			if b.At(x, y) {
				q |= 1
			}
			if b.At(x+1, y) {
				q |= 2
			}
			if b.At(x, y+1) {
				q |= 4
			}
			if b.At(x+1, y+1) {
				q |= 8
			}
			sb.WriteRune(quadrants[q])
		}
		out = append(out, sb.String())
	}
	return out
}
