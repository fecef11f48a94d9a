package artwork

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/EdlinOrg/prominentcolor"
	"github.com/charmbracelet/lipgloss"
	"github.com/nfnt/resize"

	"karolbroda.com/lyricsync/internal/colors"
)

const gradientSteps = 20

// Palette colors the lyrics view. Active is the line being sung, Sung fills
// words already passed, Upcoming is everything still ahead.
type Palette struct {
	Active   string
	Sung     string
	Upcoming string
	Accent   string
	Dim      string
	Gradient []string
}

// WordColor blends from Active to Sung as a word fills in.
func (p *Palette) WordColor(progress float64) string {
	return colors.BlendColors(p.Active, p.Sung, progress)
}

func DefaultPalette() *Palette {
	return &Palette{
		Active:   "#E8E8F0",
		Sung:     "#8BA4E8",
		Upcoming: "#6B6F86",
		Accent:   "#E8A4C8",
		Dim:      "#4A4E63",
		Gradient: colors.GenerateGradient("#8BA4E8", "#E8A4C8", gradientSteps),
	}
}

// Fetch loads cover art from a file:// or http(s) url.
func Fetch(ctx context.Context, artworkURL string) (image.Image, error) {
	if artworkURL == "" {
		return nil, errors.New("empty artwork url")
	}

	if strings.HasPrefix(artworkURL, "file://") {
		path := strings.TrimPrefix(artworkURL, "file://")
		if unescaped, err := url.PathUnescape(path); err == nil {
			path = unescaped
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open artwork file: %w", err)
		}
		defer f.Close()

		img, _, err := image.Decode(f)
		if err != nil {
			return nil, fmt.Errorf("failed to decode artwork image: %w", err)
		}
		return img, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, artworkURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch artwork: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("artwork fetch returned status %d", resp.StatusCode)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode artwork: %w", err)
	}

	return img, nil
}

type swatch struct {
	hex        string
	saturation float64
	brightness float64
}

func (s swatch) score() float64 {
	d := s.brightness - 0.6
	if d < 0 {
		d = -d
	}
	return s.saturation * (1 - d)
}

// ExtractPalette picks the most vivid cluster for sung words and the next
// distinct one for the accent. Upcoming and dim are derived from the sung
// color so the three states stay in one hue family.
func ExtractPalette(img image.Image) *Palette {
	if img == nil {
		return DefaultPalette()
	}

	items, err := prominentcolor.KmeansWithAll(5, img, prominentcolor.ArgumentDefault, prominentcolor.DefaultSize, nil)
	if err != nil || len(items) < 2 {
		return DefaultPalette()
	}

	swatches := make([]swatch, 0, len(items))
	for _, item := range items {
		swatches = append(swatches, toSwatch(item))
	}
	sort.SliceStable(swatches, func(i, j int) bool {
		return swatches[i].score() > swatches[j].score()
	})

	sung := swatches[0]
	if sung.saturation < 0.15 || sung.brightness < 0.25 {
		return DefaultPalette()
	}

	accent := swatches[1]
	for _, s := range swatches[1:] {
		if s.hex != sung.hex && s.brightness > 0.25 {
			accent = s
			break
		}
	}

	sungHex := liftDark(sung)
	accentHex := liftDark(accent)

	return &Palette{
		Active:   colors.BlendColors(sungHex, "#FFFFFF", 0.7),
		Sung:     sungHex,
		Upcoming: colors.Desaturate(colors.AdjustBrightness(sungHex, 0.6), 0.5),
		Accent:   accentHex,
		Dim:      colors.Desaturate(colors.AdjustBrightness(sungHex, 0.4), 0.6),
		Gradient: bestGradient(sungHex, accentHex),
	}
}

func toSwatch(item prominentcolor.ColorItem) swatch {
	r := float64(item.Color.R) / 255
	g := float64(item.Color.G) / 255
	b := float64(item.Color.B) / 255

	hi := max(r, g, b)
	lo := min(r, g, b)

	var sat float64
	if hi > 0 {
		sat = (hi - lo) / hi
	}

	return swatch{
		hex:        colors.RGBToHex(int(item.Color.R), int(item.Color.G), int(item.Color.B)),
		saturation: sat,
		brightness: hi,
	}
}

// liftDark brightens dark swatches so they read on a dark terminal.
func liftDark(s swatch) string {
	if s.brightness >= 0.45 || s.brightness == 0 {
		return s.hex
	}
	factor := 0.45 / s.brightness
	if factor > 2.5 {
		factor = 2.5
	}
	return colors.AdjustBrightness(s.hex, factor)
}

// bestGradient keeps whichever direction between the two colors blends
// more smoothly, preferring the brighter start when they are close.
func bestGradient(a string, b string) []string {
	forward := colors.CalculateGradientSmoothness(a, b, gradientSteps)
	backward := colors.CalculateGradientSmoothness(b, a, gradientSteps)

	start, end := a, b
	if backward+5 < forward {
		start, end = b, a
	} else if backward-forward < 5 && colors.GetLightness(b) > colors.GetLightness(a) {
		start, end = b, a
	}
	return colors.GenerateGradient(start, end, gradientSteps)
}

func RenderHalfBlockArt(img image.Image, targetWidth int, targetHeight int) []string {
	if img == nil || targetWidth < 4 || targetHeight < 2 {
		return nil
	}

	resized := resize.Resize(uint(targetWidth), uint(targetHeight*2), img, resize.Lanczos3)
	bounds := resized.Bounds()

	lines := make([]string, targetHeight)
	for y := 0; y < targetHeight; y++ {
		var line strings.Builder
		topY := bounds.Min.Y + y*2
		bottomY := topY + 1
		if bottomY >= bounds.Max.Y {
			bottomY = topY
		}

		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			tr, tg, tb, ta := resized.At(x, topY).RGBA()
			br, bg, bb, ba := resized.At(x, bottomY).RGBA()

			if ta>>8 < 128 && ba>>8 < 128 {
				line.WriteString(" ")
				continue
			}

			style := lipgloss.NewStyle().
				Foreground(lipgloss.Color(colors.RGBToHex(int(tr>>8), int(tg>>8), int(tb>>8)))).
				Background(lipgloss.Color(colors.RGBToHex(int(br>>8), int(bg>>8), int(bb>>8))))
			line.WriteString(style.Render("▀"))
		}
		lines[y] = line.String()
	}

	return lines
}
