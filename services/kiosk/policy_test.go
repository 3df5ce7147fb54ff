package kiosk

import (
	"math"
	"testing"
)

func TestNormalizeIdentity(t *testing.T) {
	name, conf, guest := NormalizeIdentity("Alice", 0.6, 0.75)
	if name != "Guest" || math.Abs(conf-0.4) > 1e-12 || !guest {
		t.Fatalf("Alice@0.6 = %q %v %v", name, conf, guest)
	}
	name, conf, guest = NormalizeIdentity("Bob", 0.9, 0.75)
	if name != "Bob" || conf != 0.9 || guest {
		t.Fatalf("Bob@0.9 = %q %v %v", name, conf, guest)
	}
	// At the threshold the label is kept.
	if name, _, _ := NormalizeIdentity("carol", 0.75, 0.75); name != "Carol" {
		t.Fatalf("carol@0.75 = %q", name)
	}
	if name, _, _ := NormalizeIdentity("grant SMITH", 0.99, 0.75); name != "Grant Smith" {
		t.Fatalf("title case = %q", name)
	}
}

func TestPeakBAC(t *testing.T) {
	cases := []struct {
		in   []float64
		want float64
	}{
		{[]float64{0.01, 0.05, 0.002, 0.049}, 0.05},
		{[]float64{0.0449}, 0.045},
		{[]float64{0.04449, 0.001}, 0.044},
		{[]float64{0}, 0},
	}
	for _, c := range cases {
		got, ok := PeakBAC(c.in)
		if !ok || got != c.want {
			t.Fatalf("PeakBAC(%v) = %v, %v; want %v", c.in, got, ok, c.want)
		}
	}
	if _, ok := PeakBAC(nil); ok {
		t.Fatal("PeakBAC(nil) should report no readings")
	}
}

func TestTexts(t *testing.T) {
	if got := IdentifiedText("Grant"); got != "Grant? Hold button and blow Resetting in 10s" {
		t.Fatalf("IdentifiedText = %q", got)
	}
	if got := DoneText(0.045); got != "BAC: 0.045 Press to reset" {
		t.Fatalf("DoneText = %q", got)
	}
	if got := DoneText(0); got != "BAC: 0.0 Press to reset" {
		t.Fatalf("DoneText(0) = %q", got)
	}
}
