package core

import (
	"context"
	"os"
	"reflect"
	"testing"
)

func loadCafe(t *testing.T) *Model {
	t.Helper()
	src, err := os.ReadFile("../models/lofi-cafe.yaml")
	if err != nil {
		t.Fatal(err)
	}
	return compileModel(t, string(src))
}

func count(lines []*Line, text string) int {
	n := 0
	for _, l := range lines {
		if l.Text == text {
			n++
		}
	}
	return n
}

func kind(lines []*Line, k string) []string {
	var acc []string
	for _, l := range lines {
		if l.Kind == k {
			acc = append(acc, l.Text)
		}
	}
	return acc
}

func TestCafe(t *testing.T) {
	ctx := context.Background()
	m := loadCafe(t)

	s := newScheduler(t, m, nil)
	walked, err := s.Walk(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if walked.StoppedBecause != Done {
		t.Fatalf("stopped because %s: %s", walked.StoppedBecause, walked.ErrorMessage)
	}
	if problems := walked.Errors(); len(problems) != 0 {
		t.Fatalf("errors %v", problems)
	}

	cow := []string{
		"init", "cow_milk", "milk", "taskselection", "cappuccino", "espresso",
		"portafilter", "grab", "grindbeans", "grind", "attachfilter", "lock",
		"grabcup", "grab", "pressbutton", "press", "pullshot", "wait",
		"steamedmilk", "grabpitcher2", "grab", "grabmilk2", "grab",
		"pourmilk", "pour", "steammilk", "steam", "poursteamedmilk", "pour",
		"topwithfoam", "scoop", "servecappuccino", "serve", "servecappuccino2",
		"rerun",
	}
	fired := walked.Fired()
	if len(fired) < len(cow) || !reflect.DeepEqual(fired[:len(cow)], cow) {
		t.Fatalf("fired %v", fired)
	}
	oat := []string{"oat_milk", "milk", "swap", "swap2", "taskselection", "cappuccino"}
	if !reflect.DeepEqual(fired[len(cow):len(cow)+len(oat)], oat) {
		t.Fatalf("then fired %v", fired[len(cow):])
	}
	if last := fired[len(fired)-1]; last != "servecappuccino2" {
		t.Fatalf("last fired %s", last)
	}

	lines := walked.Lines()
	if lines[0].Text != "Can I get a cappuccino?" || lines[0].Tick != 0 {
		t.Fatalf("first line %v", lines[0])
	}
	if n := count(lines, "Here's your cappuccino. Enjoy!"); n != 2 {
		t.Fatalf("served %d", n)
	}
	if n := count(lines, "Okay, I'll use oat_milk"); n != 1 {
		t.Fatalf("swapped %d", n)
	}
	if n := count(lines, "Now i have to steam the milk"); n != 1 {
		t.Fatalf("steamed milk %d", n)
	}
	if n := count(lines, "Now i have to steam the oat_milk"); n != 1 {
		t.Fatalf("steamed oat_milk %d", n)
	}
	if got := kind(lines, "fail"); len(got) != 1 {
		t.Fatalf("failures %v", got)
	}
	shown := kind(lines, "show")
	want := []string{
		"milk:cow_milk called:milk isa:default",
		"milk:oat_milk called:oat_milk isa:alternative",
	}
	if !reflect.DeepEqual(shown, want) {
		t.Fatalf("shown %v", shown)
	}

	// The barista learned something.
	if n := s.Memory("DM").Len(); n != len(m.Memory("DM").Chunks)+1 {
		t.Fatal(n)
	}

	// Same model, same params, same firings.
	again, err := newScheduler(t, m, nil).Walk(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(again.Fired(), fired) {
		t.Fatal("replay differs")
	}
}

func TestCafeOatMilkFirst(t *testing.T) {
	ctx := context.Background()
	s := newScheduler(t, loadCafe(t), map[string]string{"customer_choice": "oat_milk"})
	walked, err := s.Walk(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if walked.StoppedBecause != Done {
		t.Fatal(walked.StoppedBecause)
	}
	lines := walked.Lines()
	if n := count(lines, "Here's your cappuccino. Enjoy!"); n != 1 {
		t.Fatalf("served %d", n)
	}
	if n := count(lines, "Please use oat_milk"); n != 1 {
		t.Fatalf("asked %d", n)
	}
	if s.Tick() != walked.To().Tick {
		t.Fatal(s.Tick())
	}
}
