package kiosk

import (
	"encoding/json"
	"testing"
)

func TestStateNames(t *testing.T) {
	want := []string{"INITIAL", "SELFIE", "ML", "IDENTIFIED", "BLOW", "DONE"}
	for i, n := range want {
		s := State(i)
		if !s.Valid() || s.String() != n {
			t.Fatalf("State(%d) = %q valid=%v", i, s.String(), s.Valid())
		}
	}
	if State(6).Valid() || State(6).String() != "State(6)" {
		t.Fatal("State(6) must be invalid")
	}
}

func TestStateJSON(t *testing.T) {
	b, err := json.Marshal(StateEvent{From: Blow, To: Done})
	if err != nil {
		t.Fatal(err)
	}
	var ev StateEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		t.Fatal(err)
	}
	if ev.From != Blow || ev.To != Done {
		t.Fatalf("decoded %+v from %s", ev, b)
	}
	if _, err := json.Marshal(State(9)); err == nil {
		t.Fatal("invalid state must not marshal")
	}
}

func TestCanTransition(t *testing.T) {
	edges := map[[2]State]bool{
		{Initial, Selfie}:     true,
		{Selfie, ML}:          true,
		{ML, Identified}:      true,
		{Identified, Blow}:    true,
		{Identified, Initial}: true,
		{Blow, Done}:          true,
		{Done, Initial}:       true,
	}
	for from := Initial; from <= Done; from++ {
		for to := Initial; to <= Done; to++ {
			if got := CanTransition(from, to); got != edges[[2]State{from, to}] {
				t.Fatalf("CanTransition(%v, %v) = %v", from, to, got)
			}
		}
	}
}
