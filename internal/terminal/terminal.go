package terminal

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"os"
	"strings"

	"github.com/nfnt/resize"
)

const KittyGraphicsEnv = "LYRICSYNC_USE_KITTY_GRAPHICS"

type Capabilities struct {
	SupportsKittyGraphics bool
	SupportsRGB           bool
	TermProgram           string
}

func DetectCapabilities() *Capabilities {
	caps := &Capabilities{
		SupportsRGB: true,
	}

	caps.TermProgram = os.Getenv("TERM_PROGRAM")

	// kitty graphics are opt-in; too many terminals claim support and then
	// print the escape sequence as text
	if useKittyGraphics := os.Getenv(KittyGraphicsEnv); useKittyGraphics != "" {
		switch strings.ToLower(useKittyGraphics) {
		case "1", "true", "yes", "on":
			caps.SupportsKittyGraphics = true
			if caps.TermProgram == "" {
				caps.TermProgram = "kitty"
			}
		case "0", "false", "no", "off":
			caps.SupportsKittyGraphics = false
		}
	}

	return caps
}

func Reset() {
	os.Stdout.WriteString("\033[?25h")
	os.Stdout.WriteString("\033[0m")
	os.Stdout.WriteString("\033[?1049l")
	os.Stdout.WriteString("\033[?1000l")
	os.Stdout.WriteString("\033[?1002l")
	os.Stdout.WriteString("\033[?1003l")
	os.Stdout.WriteString("\033[?1006l")
	os.Stdout.Sync()
}

// ClearKittyImages deletes every image placed with the kitty protocol.
func ClearKittyImages() string {
	return "\x1b_Ga=d,d=A\x1b\\"
}

// EncodeImageForKitty scales img to fit cols x rows cells and returns the
// kitty transmit-and-display escape, chunked the way the protocol requires.
func EncodeImageForKitty(img image.Image, cols int, rows int) string {
	if img == nil || cols <= 0 || rows <= 0 {
		return ""
	}

	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return ""
	}

	width, height := fitCells(bounds.Dx(), bounds.Dy(), cols, rows)
	resized := resize.Resize(width, height, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := png.Encode(&buf, resized); err != nil {
		return ""
	}
	encoded := base64.StdEncoding.EncodeToString(buf.Bytes())

	var out strings.Builder
	for i := 0; i < len(encoded); i += kittyChunkSize {
		end := min(i+kittyChunkSize, len(encoded))
		more := 0
		if end < len(encoded) {
			more = 1
		}

		if i == 0 {
			fmt.Fprintf(&out, "\x1b_Ga=T,f=100,c=%d,r=%d,m=%d;%s\x1b\\", cols, rows, more, encoded[i:end])
		} else {
			fmt.Fprintf(&out, "\x1b_Gm=%d;%s\x1b\\", more, encoded[i:end])
		}
	}

	return out.String()
}

const (
	kittyChunkSize = 4096
	cellWidthPx    = 10
	cellHeightPx   = 20
	minImagePx     = 10
)

// fitCells keeps the aspect ratio inside the pixel box of cols x rows.
func fitCells(width, height, cols, rows int) (uint, uint) {
	boxW := float64(cols * cellWidthPx)
	boxH := float64(rows * cellHeightPx)
	aspect := float64(width) / float64(height)

	w, h := boxW, boxH
	if aspect > boxW/boxH {
		h = boxW / aspect
	} else {
		w = boxH * aspect
	}

	return uint(max(w, minImagePx)), uint(max(h, minImagePx))
}
