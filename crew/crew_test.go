package crew

import (
	"context"
	"os"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/NicValentine/LoFi-Cafe/core"
)

func loadCafe(t *testing.T) *core.Model {
	t.Helper()
	src, err := os.ReadFile("../models/lofi-cafe.yaml")
	if err != nil {
		t.Fatal(err)
	}
	m, err := core.LoadModel(src)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Compile(context.Background(), nil, true); err != nil {
		t.Fatal(err)
	}
	return m
}

type lines struct {
	sync.Mutex
	said map[string][]string
}

func (ls *lines) sink(id string) core.Sink {
	return sinkFunc(func(ctx context.Context, l *core.Line) error {
		ls.Lock()
		ls.said[id] = append(ls.said[id], l.Text)
		ls.Unlock()
		return nil
	})
}

type sinkFunc func(context.Context, *core.Line) error

func (f sinkFunc) Emit(ctx context.Context, l *core.Line) error {
	return f(ctx, l)
}

func TestCrewRun(t *testing.T) {
	ctx := context.Background()
	m := loadCafe(t)

	c, err := NewCrew("cafe", m)
	if err != nil {
		t.Fatal(err)
	}
	ls := &lines{said: make(map[string][]string)}
	c.Sinks = ls.sink
	c.Concurrency = 2

	for _, spec := range []string{"alice:customer_choice=cow_milk", "bob:customer_choice=oat_milk", "carol"} {
		id, params, err := ParseAgent(spec)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := c.Add(id, params); err != nil {
			t.Fatal(err)
		}
	}

	if err := c.Run(ctx, nil); err != nil {
		t.Fatal(err)
	}

	for _, id := range c.Ids() {
		w := c.Agents[id].Walked
		if w == nil || w.StoppedBecause != core.Done {
			t.Fatalf("%s didn't finish: %#v", id, w)
		}
	}

	// Agents don't share memories.
	alice, carol := c.Agents["alice"], c.Agents["carol"]
	if !reflect.DeepEqual(alice.Walked.Fired(), carol.Walked.Fired()) {
		t.Fatal("same params but different firings")
	}
	if reflect.DeepEqual(alice.Walked.Fired(), c.Agents["bob"].Walked.Fired()) {
		t.Fatal("different params but same firings")
	}
	if got, want := len(ls.said["alice"]), len(alice.Walked.Lines()); got != want {
		t.Fatalf("sink got %d lines, walk has %d", got, want)
	}

	summary := Summary(c)
	if !strings.HasPrefix(summary, "alice: Done init,") {
		t.Fatal(summary)
	}

	cp := c.Copy()
	if cp.Agents["bob"].State == nil {
		t.Fatal("no state in copy")
	}

	// Everyone has halted.
	if err := c.Run(ctx, nil); err == nil {
		t.Fatal("should have complained")
	}
}

func TestCrewAdd(t *testing.T) {
	c, err := NewCrew("cafe", loadCafe(t))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Add("alice", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Add("alice", nil); err == nil {
		t.Fatal("duplicate agent")
	}
	if _, err := c.Add("dave", map[string]string{"customer_choice": "soy_milk"}); err == nil {
		t.Fatal("bad param")
	}
	if _, err := NewCrew("raw", &core.Model{}); err == nil {
		t.Fatal("uncompiled model")
	}
}

func TestParseAgent(t *testing.T) {
	for _, tc := range []struct {
		in     string
		id     string
		params map[string]string
		bad    bool
	}{
		{in: "a", id: "a", params: map[string]string{}},
		{in: "a:x=1,y=2", id: "a", params: map[string]string{"x": "1", "y": "2"}},
		{in: ":x=1", bad: true},
		{in: "a:x", bad: true},
	} {
		t.Run(tc.in, func(t *testing.T) {
			id, params, err := ParseAgent(tc.in)
			if tc.bad {
				if err == nil {
					t.Fatal("should have complained")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if id != tc.id || !reflect.DeepEqual(params, tc.params) {
				t.Fatal(id, params)
			}
		})
	}
}
