package epub

import "testing"

func TestClockValue(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "0:00:00.000"},
		{1.5, "0:00:01.500"},
		{61.25, "0:01:01.250"},
		{3600, "1:00:00.000"},
		{3725.033, "1:02:05.033"},
		{-3, "0:00:00.000"},
	}
	for _, tt := range tests {
		if got := ClockValue(tt.seconds); got != tt.want {
			t.Errorf("ClockValue(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestClip(t *testing.T) {
	if got := Clip(1.23456); got != "1.235s" {
		t.Errorf("Clip = %q, want 1.235s", got)
	}
	if got := Clip(0); got != "0.000s" {
		t.Errorf("Clip = %q, want 0.000s", got)
	}
}
