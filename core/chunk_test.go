package core

import (
	"encoding/json"
	"testing"

	"github.com/NicValentine/LoFi-Cafe/match"
)

func TestParseChunk(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []match.Slot
		err  bool
	}{
		{
			name: "attributes",
			src:  "coffee:cappuccino pu:cappuccino",
			want: []match.Slot{{Attr: "coffee", Value: "cappuccino"}, {Attr: "pu", Value: "cappuccino"}},
		},
		{
			name: "positional",
			src:  "cappuccinotime",
			want: []match.Slot{{Attr: "_0", Value: "cappuccinotime"}},
		},
		{
			name: "mixed",
			src:  "pour milk:oat_milk steamed",
			want: []match.Slot{{Attr: "_0", Value: "pour"}, {Attr: "milk", Value: "oat_milk"}, {Attr: "_1", Value: "steamed"}},
		},
		{
			name: "extra whitespace",
			src:  "  isa:milk \t called:milk\n",
			want: []match.Slot{{Attr: "isa", Value: "milk"}, {Attr: "called", Value: "milk"}},
		},
		{
			name: "empty",
			src:  "",
			want: []match.Slot{},
		},
		{
			name: "variable",
			src:  "drink:?d",
			err:  true,
		},
		{
			name: "negation",
			src:  "drink:!cow_milk",
			err:  true,
		},
		{
			name: "duplicate attribute",
			src:  "isa:milk isa:coffee",
			err:  true,
		},
		{
			name: "empty attribute",
			src:  ":milk",
			err:  true,
		},
		{
			name: "empty value",
			src:  "isa:",
			err:  true,
		},
		{
			name: "negated attribute",
			src:  "ut:espresso !mtd:portafilter",
			err:  true,
		},
		{
			name: "variable attribute",
			src:  "?a:espresso",
			err:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseChunk(tt.src)
			if tt.err {
				if err == nil {
					t.Fatalf("expected an error but got %s", c)
				}
				if _, is := err.(*BadChunk); !is {
					t.Fatalf("wrong error type %T", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			got := c.Slots()
			if len(got) != len(tt.want) {
				t.Fatalf("got %v", got)
			}
			for i, s := range got {
				if s != tt.want[i] {
					t.Fatalf("slot %d: got %v, want %v", i, s, tt.want[i])
				}
			}
		})
	}
}

func TestParsePattern(t *testing.T) {
	p, err := ParsePattern("drink:?d called:!?d isa:? cappuccinotime")
	if err != nil {
		t.Fatal(err)
	}
	if len(p) != 4 || p[3].Attr != "_0" || p[1].Value != "!?d" {
		t.Fatalf("got %v", p)
	}
	if _, err = ParsePattern("isa:!"); err == nil {
		t.Fatal("expected an error for an empty negation")
	}

	for _, src := range []string{
		"ut:?t !mtd:?m",
		"ut:?t ?m:grind",
		"milk:?milk-type",
		"milk:!?1st",
	} {
		_, err := ParsePattern(src)
		if _, is := err.(*BadChunk); !is {
			t.Fatalf("%q: got %v", src, err)
		}
	}
}

func TestRenderPositional(t *testing.T) {
	tests := []struct {
		slots []match.Slot
		want  string
	}{
		{[]match.Slot{{Attr: "_0", Value: "pour"}, {Attr: "_1", Value: "milk"}}, "pour milk"},
		{[]match.Slot{{Attr: "_5", Value: "foo"}}, "_5:foo"},
		{[]match.Slot{{Attr: "_1", Value: "a"}, {Attr: "_0", Value: "b"}}, "_1:a b"},
		{[]match.Slot{{Attr: "x", Value: "1"}, {Attr: "_0", Value: "a"}}, "x:1 a"},
	}
	for _, tt := range tests {
		c, err := NewChunk(tt.slots...)
		if err != nil {
			t.Fatal(err)
		}
		got := c.String()
		if got != tt.want {
			t.Fatalf("%v rendered as %q", tt.slots, got)
		}
		d, err := ParseChunk(got)
		if err != nil {
			t.Fatal(err)
		}
		if !c.Equal(d) {
			t.Fatalf("%q parsed back as %v", got, d.Slots())
		}
	}
}

func TestChunkImmutable(t *testing.T) {
	c := MustChunk("milk:cow_milk isa:default")
	slots := c.Slots()
	slots[0].Value = "oat_milk"
	if v, _ := c.Value("milk"); v != "cow_milk" {
		t.Fatalf("chunk changed: %s", c)
	}
}

func TestChunkString(t *testing.T) {
	for _, src := range []string{"cappuccinotime", "milk:cow_milk isa:default", "pour milk:oat_milk"} {
		if got := MustChunk(src).String(); got != src {
			t.Fatalf("%q rendered as %q", src, got)
		}
	}
	var c *Chunk
	if c.String() != "" || c.Len() != 0 {
		t.Fatal("nil chunk")
	}
}

func TestChunkEqual(t *testing.T) {
	a := MustChunk("milk:cow_milk isa:default")
	if !a.Equal(MustChunk("milk:cow_milk isa:default")) {
		t.Fatal("should be equal")
	}
	if a.Equal(MustChunk("isa:default milk:cow_milk")) {
		t.Fatal("order matters")
	}
	if a.Equal(nil) {
		t.Fatal("nil")
	}
}

func TestChunkJSON(t *testing.T) {
	c := MustChunk("pour milk:oat_milk")
	js, err := json.Marshal(c)
	if err != nil {
		t.Fatal(err)
	}
	if string(js) != `"pour milk:oat_milk"` {
		t.Fatal(string(js))
	}
	var d Chunk
	if err = json.Unmarshal(js, &d); err != nil {
		t.Fatal(err)
	}
	if !c.Equal(&d) {
		t.Fatalf("got %s", &d)
	}
	if err = json.Unmarshal([]byte(`"a:?x"`), &d); err == nil {
		t.Fatal("expected an error")
	}
}

func TestNewChunk(t *testing.T) {
	if _, err := NewChunk(match.Slot{Attr: "a", Value: "?x"}); err == nil {
		t.Fatal("variables aren't symbols")
	}
	if _, err := NewChunk(match.Slot{Attr: "a", Value: ""}); err == nil {
		t.Fatal("empty values aren't symbols")
	}
	c, err := NewChunk()
	if err != nil {
		t.Fatal(err)
	}
	if c.Len() != 0 {
		t.Fatal(c.Len())
	}
}
