package colors

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

var fallback = colorful.Color{R: 1, G: 1, B: 1}

// parse never fails; malformed hex becomes white so a bad palette entry
// degrades instead of breaking rendering.
func parse(hex string) colorful.Color {
	c, err := colorful.Hex(hex)
	if err != nil {
		return fallback
	}
	return c
}

func toHex(c colorful.Color) string {
	return strings.ToUpper(c.Clamped().Hex())
}

// GenerateGradient interpolates in HCL so hues travel the short way around
// the wheel and lightness stays perceptually even.
func GenerateGradient(startHex string, endHex string, steps int) []string {
	if steps < 2 {
		steps = 2
	}

	start := parse(startHex)
	end := parse(endHex)

	// very different endpoints get eased so the middle does not go muddy
	l1, c1, _ := start.Hcl()
	l2, c2, _ := end.Hcl()
	needsSmoothing := math.Abs(l1-l2) > 0.3 || math.Abs(c1-c2) > 0.3

	gradient := make([]string, steps)
	for i := 0; i < steps; i++ {
		t := float64(i) / float64(steps-1)
		if needsSmoothing {
			t = smoothStep(smoothStep(t))
		}
		gradient[i] = toHex(start.BlendHcl(end, t))
	}
	return gradient
}

// CalculateGradientSmoothness returns the largest CIE94 step between
// neighbouring gradient colors, scaled to roughly 0-100. Lower is smoother.
func CalculateGradientSmoothness(startHex string, endHex string, steps int) float64 {
	gradient := GenerateGradient(startHex, endHex, steps)
	maxJump := 0.0
	for i := 1; i < len(gradient); i++ {
		d := parse(gradient[i-1]).DistanceCIE94(parse(gradient[i])) * 100
		if d > maxJump {
			maxJump = d
		}
	}
	return maxJump
}

// GetLightness is the L of the color on a 0-100 scale.
func GetLightness(hexColor string) float64 {
	l, _, _ := parse(hexColor).Lab()
	return l * 100
}

func BlendColors(hex1 string, hex2 string, t float64) string {
	return toHex(parse(hex1).BlendHcl(parse(hex2), clamp01(t)))
}

func RGBToHex(r int, g int, b int) string {
	return toHex(colorful.Color{
		R: float64(clampInt(r, 0, 255)) / 255,
		G: float64(clampInt(g, 0, 255)) / 255,
		B: float64(clampInt(b, 0, 255)) / 255,
	})
}

func HexToRGB(hex string) (int, int, int) {
	r, g, b := parse(hex).RGB255()
	return int(r), int(g), int(b)
}

func AdjustBrightness(hex string, factor float64) string {
	c := parse(hex)
	return toHex(colorful.Color{R: c.R * factor, G: c.G * factor, B: c.B * factor})
}

func Desaturate(hex string, amount float64) string {
	h, s, v := parse(hex).Hsv()
	return toHex(colorful.Hsv(h, s*(1-clamp01(amount)), v))
}

func RenderGradientText(text string, gradient []string, bold bool) string {
	if len(text) == 0 {
		return ""
	}
	if len(gradient) == 0 {
		return text
	}

	runes := []rune(text)
	var result strings.Builder

	for i, r := range runes {
		colorIdx := 0
		if len(runes) > 1 {
			colorIdx = i * (len(gradient) - 1) / (len(runes) - 1)
		}

		style := lipgloss.NewStyle().Foreground(lipgloss.Color(gradient[colorIdx]))
		if bold {
			style = style.Bold(true)
		}
		result.WriteString(style.Render(string(r)))
	}

	return result.String()
}

// FormatTime renders seconds as m:ss.
func FormatTime(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		return "0:00"
	}
	total := int64(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func smoothStep(t float64) float64 {
	t = clamp01(t)
	return t * t * (3 - 2*t)
}

func clamp01(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

func clampInt(val int, min int, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
