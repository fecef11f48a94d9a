package syncengine

// DefaultBandFraction makes the centered band the middle third of the
// viewport.
const DefaultBandFraction = 1.0 / 3.0

// Band is the vertical region, centered in the viewport, where the active
// line counts as "in view" for auto re-sync.
type Band struct {
	Fraction float64
}

// Contains reports whether the midpoint of an element starting at top
// (relative to the viewport's top edge) with the given height lies in the
// band.
func (b Band) Contains(top int, height int, viewportHeight int) bool {
	if viewportHeight <= 0 {
		return false
	}

	fraction := b.Fraction
	if fraction <= 0 || fraction > 1 {
		fraction = DefaultBandFraction
	}

	mid := float64(top) + float64(height)/2
	bandHeight := float64(viewportHeight) * fraction
	low := (float64(viewportHeight) - bandHeight) / 2
	high := low + bandHeight

	return mid >= low && mid <= high
}
