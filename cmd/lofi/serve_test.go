package main

import (
	"context"
	"testing"

	"github.com/NicValentine/LoFi-Cafe/metrics"
	"github.com/NicValentine/LoFi-Cafe/sio"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPacedWalk(t *testing.T) {
	ctx := context.Background()
	opts := &options{libDir: "."}
	m, err := opts.loadModel(ctx, cafe)
	if err != nil {
		t.Fatal(err)
	}

	ms := metrics.New(prometheus.NewRegistry())
	col := &sio.Collector{}
	f := &serveFlags{limit: 1000, pace: 0}
	params := map[string]string{"customer_choice": "oat_milk"}

	if err := pacedWalk(ctx, m, params, col, ms, f); err != nil {
		t.Fatal(err)
	}

	lines := col.Lines()
	if len(lines) == 0 || lines[0].Text != "Can I get a cappuccino?" {
		t.Fatal(lines)
	}
	if n := testutil.ToFloat64(ms.Walks.WithLabelValues(m.Name, "Done")); n != 1 {
		t.Fatal(n)
	}
	if n := testutil.ToFloat64(ms.Firings.WithLabelValues(m.Name, "init")); n != 1 {
		t.Fatal(n)
	}

	f.limit = 2
	if err := pacedWalk(ctx, m, params, col, ms, f); err != nil {
		t.Fatal(err)
	}
	if n := testutil.ToFloat64(ms.Walks.WithLabelValues(m.Name, "Limited")); n != 1 {
		t.Fatal(n)
	}
}
