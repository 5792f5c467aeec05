package colors

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// lch is a color in CIE LCh(ab), used for perceptually even blending.
type lch struct {
	l, c, h float64
}

func parseLCH(hex string) lch {
	return rgbToLCH(HexToRGB(hex))
}

// towards interpolates a and b by t along the shorter hue arc.
func (a lch) towards(b lch, t float64) lch {
	hueDiff := b.h - a.h
	if hueDiff > 180 {
		hueDiff -= 360
	} else if hueDiff < -180 {
		hueDiff += 360
	}
	h := math.Mod(a.h+t*hueDiff+360, 360)
	return lch{l: a.l + t*(b.l-a.l), c: a.c + t*(b.c-a.c), h: h}
}

func (a lch) hex() string {
	return RGBToHex(lchToRGB(a))
}

// GenerateGradient returns steps colors from startHex to endHex. Distant
// pairs are eased so the middle of the ramp does not band.
func GenerateGradient(startHex string, endHex string, steps int) []string {
	if steps < 2 {
		steps = 2
	}

	start, end := parseLCH(startHex), parseLCH(endHex)
	hueDistance := math.Abs(start.h - end.h)
	if hueDistance > 180 {
		hueDistance = 360 - hueDistance
	}
	eased := math.Abs(end.c-start.c) > 30 || hueDistance > 60 || math.Abs(end.l-start.l) > 30

	gradient := make([]string, steps)
	for i := range gradient {
		t := float64(i) / float64(steps-1)
		if eased {
			t = smoothStep(smoothStep(t))
		}
		gradient[i] = start.towards(end, t).hex()
	}
	return gradient
}

// CalculateGradientSmoothness is the largest redmean distance between two
// neighbouring steps of the gradient. Lower is smoother.
func CalculateGradientSmoothness(startHex string, endHex string, steps int) float64 {
	gradient := GenerateGradient(startHex, endHex, steps)
	maxJump := 0.0
	for i := 1; i < len(gradient); i++ {
		maxJump = math.Max(maxJump, redmean(gradient[i-1], gradient[i]))
	}
	return maxJump
}

func redmean(a, b string) float64 {
	r1, g1, b1 := HexToRGB(a)
	r2, g2, b2 := HexToRGB(b)
	rm := (r1 + r2) / 2
	dr, dg, db := r1-r2, g1-g2, b1-b2
	return math.Sqrt(float64((2+rm/256)*dr*dr + 4*dg*dg + (2+(255-rm)/256)*db*db))
}

// GetLightness returns the LCh lightness of a color, 0 to 100.
func GetLightness(hexColor string) float64 {
	return parseLCH(hexColor).l
}

func BlendColors(hex1 string, hex2 string, t float64) string {
	return parseLCH(hex1).towards(parseLCH(hex2), clampFloat(t, 0, 1)).hex()
}

func AdjustBrightness(hex string, factor float64) string {
	r, g, b := HexToRGB(hex)
	return RGBToHex(int(float64(r)*factor), int(float64(g)*factor), int(float64(b)*factor))
}

func RGBToHex(r int, g int, b int) string {
	return fmt.Sprintf("#%02X%02X%02X", clampInt(r, 0, 255), clampInt(g, 0, 255), clampInt(b, 0, 255))
}

// HexToRGB parses #RRGGBB. Anything else reads as white.
func HexToRGB(hex string) (int, int, int) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return 255, 255, 255
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 255, 255, 255
	}
	return int(v >> 16 & 0xFF), int(v >> 8 & 0xFF), int(v & 0xFF)
}

// RenderGradientText colors each rune of text along gradient.
func RenderGradientText(text string, gradient []string, bold bool) string {
	if text == "" || len(gradient) == 0 {
		return text
	}

	runes := []rune(text)
	var out strings.Builder
	for i, r := range runes {
		idx := 0
		if len(runes) > 1 {
			idx = i * (len(gradient) - 1) / (len(runes) - 1)
		}
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(gradient[min(idx, len(gradient)-1)])).Bold(bold)
		out.WriteString(style.Render(string(r)))
	}
	return out.String()
}

// FormatTime renders d as m:ss.
func FormatTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

func smoothStep(t float64) float64 {
	t = clampFloat(t, 0, 1)
	return t * t * (3 - 2*t)
}

func clampInt(val int, lo int, hi int) int {
	return max(lo, min(val, hi))
}

func clampFloat(val float64, lo float64, hi float64) float64 {
	return math.Max(lo, math.Min(val, hi))
}

// D65 reference white.
const (
	whiteX = 0.95047
	whiteY = 1.0
	whiteZ = 1.08883
)

func rgbToLCH(r int, g int, b int) lch {
	lin := func(v int) float64 {
		f := float64(v) / 255
		if f > 0.04045 {
			return math.Pow((f+0.055)/1.055, 2.4)
		}
		return f / 12.92
	}
	rl, gl, bl := lin(r), lin(g), lin(b)

	x := (rl*0.4124564 + gl*0.3575761 + bl*0.1804375) / whiteX
	y := (rl*0.2126729 + gl*0.7151522 + bl*0.0721750) / whiteY
	z := (rl*0.0193339 + gl*0.1191920 + bl*0.9503041) / whiteZ

	f := func(t float64) float64 {
		if t > 0.008856 {
			return math.Cbrt(t)
		}
		return 7.787*t + 16.0/116.0
	}
	fx, fy, fz := f(x), f(y), f(z)

	a := 500 * (fx - fy)
	bb := 200 * (fy - fz)
	h := math.Atan2(bb, a) * 180 / math.Pi
	if h < 0 {
		h += 360
	}
	return lch{l: 116*fy - 16, c: math.Hypot(a, bb), h: h}
}

func lchToRGB(c lch) (int, int, int) {
	rad := c.h * math.Pi / 180
	a, b := c.c*math.Cos(rad), c.c*math.Sin(rad)

	fy := (c.l + 16) / 116
	fx := a/500 + fy
	fz := fy - b/200

	inv := func(t float64) float64 {
		if t3 := t * t * t; t3 > 0.008856 {
			return t3
		}
		return (t - 16.0/116.0) / 7.787
	}
	x, y, z := inv(fx)*whiteX, inv(fy)*whiteY, inv(fz)*whiteZ

	gamma := func(v float64) int {
		if v > 0.0031308 {
			v = 1.055*math.Pow(v, 1/2.4) - 0.055
		} else {
			v *= 12.92
		}
		return clampInt(int(v*255+0.5), 0, 255)
	}
	return gamma(x*3.2404542 - y*1.5371385 - z*0.4985314),
		gamma(-x*0.9692660 + y*1.8760108 + z*0.0415560),
		gamma(x*0.0556434 - y*0.2040259 + z*1.0572252)
}
