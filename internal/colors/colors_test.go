package colors

import "testing"

func TestGenerateGradientEndpoints(t *testing.T) {
	g := GenerateGradient("#FF0000", "#0000FF", 10)
	if len(g) != 10 {
		t.Fatalf("len = %d, want 10", len(g))
	}
	if g[0] != "#FF0000" {
		t.Errorf("first = %s, want #FF0000", g[0])
	}
	if g[9] != "#0000FF" {
		t.Errorf("last = %s, want #0000FF", g[9])
	}
}

func TestGenerateGradientMinimumSteps(t *testing.T) {
	if got := len(GenerateGradient("#000000", "#FFFFFF", 0)); got != 2 {
		t.Errorf("len = %d, want 2", got)
	}
}

func TestBlendColorsBounds(t *testing.T) {
	tests := []struct {
		t    float64
		want string
	}{
		{0, "#112233"},
		{-1, "#112233"},
		{1, "#AABBCC"},
		{2, "#AABBCC"},
	}
	for _, tt := range tests {
		if got := BlendColors("#112233", "#AABBCC", tt.t); got != tt.want {
			t.Errorf("BlendColors(t=%v) = %s, want %s", tt.t, got, tt.want)
		}
	}
}

func TestHexRoundTrip(t *testing.T) {
	r, g, b := HexToRGB("#8BA4E8")
	if got := RGBToHex(r, g, b); got != "#8BA4E8" {
		t.Errorf("round trip = %s", got)
	}
}

func TestHexToRGBMalformed(t *testing.T) {
	r, g, b := HexToRGB("nope")
	if r != 255 || g != 255 || b != 255 {
		t.Errorf("malformed hex = %d,%d,%d, want white", r, g, b)
	}
}

func TestLightnessOrdering(t *testing.T) {
	if GetLightness("#FFFFFF") <= GetLightness("#000000") {
		t.Error("white is not lighter than black")
	}
}

func TestFormatTime(t *testing.T) {
	tests := map[float64]string{
		0:     "0:00",
		3.5:   "0:03",
		61:    "1:01",
		-4:    "0:00",
		605.9: "10:05",
	}
	for in, want := range tests {
		if got := FormatTime(in); got != want {
			t.Errorf("FormatTime(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestDesaturateFull(t *testing.T) {
	r, g, b := HexToRGB(Desaturate("#FF0000", 1))
	if r != g || g != b {
		t.Errorf("fully desaturated red = %d,%d,%d", r, g, b)
	}
}
