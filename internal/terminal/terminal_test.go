package terminal

import (
	"image"
	"strings"
	"testing"
)

func TestDetectCapabilitiesKittyOptIn(t *testing.T) {
	tests := []struct {
		env  string
		want bool
	}{
		{"1", true},
		{"TRUE", true},
		{"off", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Setenv(KittyGraphicsEnv, tt.env)
		t.Setenv("TERM_PROGRAM", "")
		caps := DetectCapabilities()
		if caps.SupportsKittyGraphics != tt.want {
			t.Errorf("%s=%q: kitty = %v, want %v", KittyGraphicsEnv, tt.env, caps.SupportsKittyGraphics, tt.want)
		}
	}
}

func TestFitCellsKeepsAspect(t *testing.T) {
	w, h := fitCells(200, 100, 10, 10)
	if w != 100 || h != 50 {
		t.Errorf("fitCells = %dx%d, want 100x50", w, h)
	}

	w, h = fitCells(100, 400, 10, 10)
	if w != 50 || h != 200 {
		t.Errorf("fitCells = %dx%d, want 50x200", w, h)
	}
}

func TestEncodeImageForKitty(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	out := EncodeImageForKitty(img, 4, 2)
	if !strings.HasPrefix(out, "\x1b_Ga=T,f=100,c=4,r=2,") {
		t.Errorf("unexpected prefix: %q", out[:min(len(out), 32)])
	}
	if EncodeImageForKitty(nil, 4, 2) != "" {
		t.Error("nil image should encode to empty string")
	}
}
