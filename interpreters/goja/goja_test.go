package goja

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/NicValentine/LoFi-Cafe/core"
	. "github.com/NicValentine/LoFi-Cafe/util/testutil"
)

func exec(t *testing.T, i *Interpreter, bs core.Bindings, props core.StepProps, code interface{}) (*core.Execution, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	compiled, err := i.Compile(ctx, code)
	if err != nil {
		t.Fatal(err)
	}
	return i.Exec(ctx, bs, props, code, compiled)
}

func TestActionsSimple(t *testing.T) {
	exe, err := exec(t, NewInterpreter(), nil, nil, `return {likes:"chips"};`)
	if err != nil {
		t.Fatal(err)
	}
	if s := exe.Bs["?likes"]; s != "chips" {
		t.Fatalf("didn't want %q in %s", s, JS(exe.Bs))
	}
}

func TestActionsNonStringBinding(t *testing.T) {
	if _, err := exec(t, NewInterpreter(), nil, nil, `return {n:3};`); err == nil {
		t.Fatal("didn't protest")
	}
}

func TestActionsBindings(t *testing.T) {
	bs := core.Bindings{"?plan": "cappuccino"}
	exe, err := exec(t, NewInterpreter(), bs, nil, `_.out("making " + _.bindings.plan);`)
	if err != nil {
		t.Fatal(err)
	}
	if len(exe.Emitted) != 1 || exe.Emitted[0] != "making cappuccino" {
		t.Fatalf("emitted %s", JS(exe.Emitted))
	}
}

func TestActionsProps(t *testing.T) {
	props := core.StepProps{"tick": 7}
	exe, err := exec(t, NewInterpreter(), nil, props, `_.out({tick:_.props.tick});`)
	if err != nil {
		t.Fatal(err)
	}
	if got := JS(exe.Emitted); got != `[{"tick":7}]` {
		t.Fatalf("emitted %s", got)
	}
}

func TestActionsTimeout(t *testing.T) {
	i := NewInterpreter()
	i.Testing = true
	_, err := exec(t, i, nil, nil, `for (;;) { sleep(10); } null;`)
	if err == nil {
		t.Fatal("didn't timeout")
	}
	if err.Error() != InterruptedMessage {
		t.Fatalf("surprised by \"%s\"", err)
	}
}

func TestActionsError(t *testing.T) {
	if _, err := exec(t, NewInterpreter(), nil, nil, `likes + tacos; null;`); err == nil {
		t.Fatal("didn't protest")
	}
}

func TestActionsCompileError(t *testing.T) {
	i := NewInterpreter()
	if _, err := i.Compile(context.Background(), `return {`); err == nil {
		t.Fatal("didn't protest")
	}
	if _, err := i.Compile(context.Background(), 42); err == nil {
		t.Fatal("didn't protest")
	}
}

func TestActionsMatch(t *testing.T) {
	code := `var bs = _.match("ut:?plan ut0:?task", "ut:cappuccino ut0:espresso ut1:steamedmilk"); _.out(bs.task);`
	exe, err := exec(t, NewInterpreter(), nil, nil, code)
	if err != nil {
		t.Fatal(err)
	}
	if got := JS(exe.Emitted); got != `["espresso"]` {
		t.Fatalf("emitted %s", got)
	}

	exe, err = exec(t, NewInterpreter(), nil, nil, `_.out(_.match("ut:tea", "ut:cappuccino"));`)
	if err != nil {
		t.Fatal(err)
	}
	if got := JS(exe.Emitted); got != `[null]` {
		t.Fatalf("emitted %s", got)
	}
}

func TestActionsCronNextGood(t *testing.T) {
	// Simulated time zero is 07:00, so the next 08:00 is an hour
	// away.
	code := `_.out(_.cronNext("0 8 * * *"));`

	exe, err := exec(t, NewInterpreter(), nil, core.StepProps{"t": int64(0)}, code)
	if err != nil {
		t.Fatal(err)
	}
	if got := JS(exe.Emitted); got != `[3600000]` {
		t.Fatalf("emitted %s", got)
	}

	// Half past eight: the next one is tomorrow.
	props := core.StepProps{"t": int64(90 * time.Minute / time.Millisecond)}
	if exe, err = exec(t, NewInterpreter(), nil, props, code); err != nil {
		t.Fatal(err)
	}
	if got := JS(exe.Emitted); got != fmt.Sprintf(`[%d]`, 25*time.Hour/time.Millisecond) {
		t.Fatalf("emitted %s", got)
	}
}

func TestActionsCronNextBad(t *testing.T) {
	if _, err := exec(t, NewInterpreter(), nil, nil, `_.cronNext("bad");`); err == nil {
		t.Fatal("didn't protest")
	}
}

func TestActionsEsc(t *testing.T) {
	exe, err := exec(t, NewInterpreter(), nil, nil, `_.out(_.esc("oat milk&more"));`)
	if err != nil {
		t.Fatal(err)
	}
	if got := JS(exe.Emitted); got != `["oat+milk%26more"]` {
		t.Fatalf("emitted %s", got)
	}
}

func TestActionsLog(t *testing.T) {
	exe, err := exec(t, NewInterpreter(), nil, nil, `_.log({steamed:true});`)
	if err != nil {
		t.Fatal(err)
	}
	if got := JS(exe.Traces.Messages); got != `[{"steamed":true}]` {
		t.Fatalf("traces %s", got)
	}
}

func TestActionsLibraries(t *testing.T) {
	i := NewInterpreter()
	i.LibraryProvider = MakeMapLibraryProvider(map[string]string{
		"menu": `var menu = {cappuccino: "espresso, steamed milk"};`,
	})
	src := map[string]interface{}{
		"requires": []interface{}{"menu"},
		"code":     `_.out(menu.cappuccino);`,
	}
	exe, err := exec(t, i, nil, nil, src)
	if err != nil {
		t.Fatal(err)
	}
	if got := JS(exe.Emitted); got != `["espresso, steamed milk"]` {
		t.Fatalf("emitted %s", got)
	}

	src["requires"] = "nope"
	if _, err := i.Compile(context.Background(), src); err == nil {
		t.Fatal("didn't protest")
	}
}

func TestActionsFileLibraryProvider(t *testing.T) {
	p := MakeFileLibraryProvider(".")
	if _, err := p(context.Background(), nil, "file://../secret.js"); err == nil {
		t.Fatal("didn't protest")
	}
	if _, err := p(context.Background(), nil, "http://example.com/lib.js"); err == nil {
		t.Fatal("didn't protest")
	}
}

type collector []*core.Line

func (c *collector) Emit(ctx context.Context, l *core.Line) error {
	*c = append(*c, l)
	return nil
}

func TestActionsInModel(t *testing.T) {
	src := `
name: scripted
buffers: [method]
boot: init
tick: 1s
params:
  drink:
    default: latte
productions:
  - name: init
    then:
      - set: {buffer: method, chunk: "order ?drink"}
  - name: order
    when:
      method: "order ?drink"
    then:
      - script:
          source: |
            _.out("order " + _.bindings.drink + " at " + _.props.t + " by " + _.props.production);
      - clear: method
`
	ctx := context.Background()
	m, err := core.LoadModel([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Compile(ctx, nil, true); err != nil {
		t.Fatal(err)
	}
	s, err := core.NewScheduler(m, nil)
	if err != nil {
		t.Fatal(err)
	}
	var lines collector
	s.Sink = &lines

	w, err := s.Walk(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if w.StoppedBecause != core.Done {
		t.Fatalf("stopped because %s", w.StoppedBecause)
	}
	got := strings.Join(Lines([]*core.Line(lines)), "\n")
	if got != "order latte at 1000 by order" {
		t.Fatalf("said %q", got)
	}
}
