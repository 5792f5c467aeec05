package artwork

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/EdlinOrg/prominentcolor"
	"github.com/charmbracelet/lipgloss"
	"github.com/nfnt/resize"

	"karolbroda.com/lyrelay/internal/colors"
)

const (
	fetchTimeout  = 5 * time.Second
	gradientSteps = 20
	dimColor      = "#6272A4"
)

var httpClient = &http.Client{Timeout: fetchTimeout}

// Palette holds the colors the viewer derives from the cover art.
type Palette struct {
	Primary   string
	Secondary string
	Accent    string
	Dim       string
	Gradient  []string
}

func DefaultPalette() *Palette {
	return &Palette{
		Primary:   "#8BA4E8",
		Secondary: "#E8A4C8",
		Accent:    "#B8A8E8",
		Dim:       dimColor,
		Gradient:  colors.GenerateGradient("#8BA4E8", "#E8A4C8", gradientSteps),
	}
}

// Fetch loads cover art from an http(s) or file URL, as players report it.
func Fetch(ctx context.Context, artworkURL string) (image.Image, error) {
	if artworkURL == "" {
		return nil, errors.New("empty artwork url")
	}

	u, err := url.Parse(artworkURL)
	if err != nil {
		return nil, fmt.Errorf("invalid artwork url: %w", err)
	}

	if u.Scheme == "file" {
		f, err := os.Open(u.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open artwork file: %w", err)
		}
		defer f.Close()
		return decode(f)
	}

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, artworkURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch artwork: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("artwork fetch returned status %d", resp.StatusCode)
	}
	return decode(resp.Body)
}

func decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode artwork: %w", err)
	}
	return img, nil
}

type swatch struct {
	hex        string
	rgb        [3]uint32
	sat        float64
	brightness float64
	score      float64
}

func newSwatch(c prominentcolor.ColorItem) swatch {
	r, g, b := float64(c.Color.R)/255, float64(c.Color.G)/255, float64(c.Color.B)/255
	hi := math.Max(math.Max(r, g), b)
	lo := math.Min(math.Min(r, g), b)

	s := swatch{rgb: [3]uint32{c.Color.R, c.Color.G, c.Color.B}, brightness: hi}
	if hi > 0 {
		s.sat = (hi - lo) / hi
	}
	// favour saturated colors of medium brightness
	s.score = s.sat * (1 - math.Abs(hi-0.6))
	s.hex = boostColor(c.Color.R, c.Color.G, c.Color.B, hi)
	return s
}

// ExtractPalette clusters the image colors and picks three readable ones.
// Images that do not yield enough distinct colors get the default palette.
func ExtractPalette(img image.Image) *Palette {
	if img == nil {
		return DefaultPalette()
	}

	items, err := prominentcolor.KmeansWithAll(5, img, prominentcolor.ArgumentDefault, prominentcolor.DefaultSize, nil)
	if err != nil || len(items) < 3 {
		return DefaultPalette()
	}

	swatches := make([]swatch, len(items))
	for i, item := range items {
		swatches[i] = newSwatch(item)
	}

	var picked []swatch
	pick := func(ok func(swatch) bool) {
		best := -1
		for i, s := range swatches {
			if used(picked, s) || !ok(s) {
				continue
			}
			if best < 0 || s.score > swatches[best].score {
				best = i
			}
		}
		if best >= 0 {
			picked = append(picked, swatches[best])
		}
	}
	pick(func(s swatch) bool { return s.brightness > 0.3 && s.sat > 0.2 })
	pick(func(s swatch) bool { return s.brightness > 0.3 && s.sat > 0.15 })
	pick(func(s swatch) bool { return s.brightness > 0.25 && s.sat > 0.1 })
	for i := 0; i < 3 && len(picked) < 3; i++ {
		pick(func(swatch) bool { return true })
	}
	if len(picked) < 3 {
		return DefaultPalette()
	}

	sort.SliceStable(picked, func(i, j int) bool { return picked[i].brightness > picked[j].brightness })
	primary, accent, secondary := picked[0].hex, picked[1].hex, picked[2].hex

	start, end := smoothestPair(primary, secondary, accent)
	return &Palette{
		Primary:   primary,
		Secondary: secondary,
		Accent:    accent,
		Dim:       colors.BlendColors(dimColor, colors.AdjustBrightness(secondary, 0.6), 0.35),
		Gradient:  colors.GenerateGradient(start, end, gradientSteps),
	}
}

func used(picked []swatch, s swatch) bool {
	for _, p := range picked {
		if p.rgb == s.rgb {
			return true
		}
	}
	return false
}

// smoothestPair returns the ordered pair with the smoothest gradient. Among
// pairs within a small margin of the best, the one starting lighter wins.
func smoothestPair(a, b, c string) (string, string) {
	pairs := [][2]string{{a, b}, {a, c}, {b, a}, {b, c}, {c, a}, {c, b}}
	scores := make([]float64, len(pairs))
	best := 0
	for i, p := range pairs {
		scores[i] = colors.CalculateGradientSmoothness(p[0], p[1], gradientSteps)
		if scores[i] < scores[best] {
			best = i
		}
	}

	choice := best
	for i, p := range pairs {
		if scores[i]-scores[best] < 5 && colors.GetLightness(p[0]) > colors.GetLightness(pairs[choice][0]) {
			choice = i
		}
	}
	return pairs[choice][0], pairs[choice][1]
}

// boostColor lifts dark colors and tames glaring ones so text stays legible
// on a dark terminal.
func boostColor(r, g, b uint32, brightness float64) string {
	fr, fg, fb := float64(r), float64(g), float64(b)
	if brightness < 0.4 {
		factor := 2.5
		if brightness > 0 {
			factor = math.Min(0.4/brightness, 2.5)
		}
		fr, fg, fb = fr*factor, fg*factor, fb*factor
	}
	if brightness > 0.85 {
		avg := (fr + fg + fb) / 3
		fr, fg, fb = avg+(fr-avg)*0.7, avg+(fg-avg)*0.7, avg+(fb-avg)*0.7
	}
	return colors.RGBToHex(int(fr), int(fg), int(fb))
}

// RenderHalfBlockArt draws img as width x height cells, two pixels per cell.
func RenderHalfBlockArt(img image.Image, width int, height int) []string {
	if img == nil || width < 4 || height < 2 {
		return nil
	}

	resized := resize.Resize(uint(width), uint(height*2), img, resize.Lanczos3)
	bounds := resized.Bounds()

	pixel := func(x, y int) (string, bool) {
		if y >= bounds.Dy() {
			y = bounds.Dy() - 1
		}
		r, g, b, a := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
		return colors.RGBToHex(int(r>>8), int(g>>8), int(b>>8)), a>>8 >= 128
	}

	lines := make([]string, height)
	for row := range lines {
		var line strings.Builder
		for x := 0; x < bounds.Dx(); x++ {
			top, topOpaque := pixel(x, row*2)
			bottom, bottomOpaque := pixel(x, row*2+1)
			if !topOpaque && !bottomOpaque {
				line.WriteString(" ")
				continue
			}
			style := lipgloss.NewStyle().
				Foreground(lipgloss.Color(top)).
				Background(lipgloss.Color(bottom))
			line.WriteString(style.Render("▀"))
		}
		lines[row] = line.String()
	}
	return lines
}
