package epub

import (
	"fmt"
	"math"
)

// ClockValue formats a duration in seconds as a SMIL clock value of the
// "H:MM:SS.mmm" form used by media:duration metadata.
func ClockValue(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	h := int(seconds) / 3600
	m := (int(seconds) % 3600) / 60
	s := seconds - float64(h*3600+m*60)
	return fmt.Sprintf("%d:%02d:%06.3f", h, m, s)
}

// Clip formats a clip boundary for SMIL clipBegin/clipEnd attributes.
func Clip(seconds float64) string {
	return fmt.Sprintf("%.3fs", seconds)
}
