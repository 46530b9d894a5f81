package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/NicValentine/LoFi-Cafe/core"
	"github.com/NicValentine/LoFi-Cafe/metrics"
	"github.com/NicValentine/LoFi-Cafe/sio"
	"github.com/NicValentine/LoFi-Cafe/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

type runFlags struct {
	params     []string
	limit      int
	store      string
	mqttBroker string
	mqttPort   int
	topic      string
	tags       bool
	timestamps bool
	kinds      []string
	announce   bool
	diag       bool
	metrics    string
}

func newRunCmd(opts *options) *cobra.Command {
	f := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run MODEL",
		Short: "Run a model once",
		Long: "Run a model from boot until no production matches (or the limit).\n" +
			"Output lines go to stdout and optionally to an MQTT broker.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModel(cmd, opts, f, args[0])
		},
	}

	cmd.Flags().StringArrayVarP(&f.params, "param", "p", nil, "Parameter NAME=VALUE (repeatable)")
	cmd.Flags().IntVar(&f.limit, "limit", core.DefaultControl.Limit, "Maximum number of ticks")
	cmd.Flags().StringVar(&f.store, "store", "", "Record the run: bolt:PATH or sqlite:PATH")
	cmd.Flags().StringVar(&f.mqttBroker, "mqtt", "", "Also publish lines to this MQTT broker (like tcp://localhost)")
	cmd.Flags().IntVar(&f.mqttPort, "mqtt-port", sio.DefaultMQTTOptions.Port, "MQTT broker port")
	cmd.Flags().StringVar(&f.topic, "topic", "lofi/lines", "MQTT topic")
	cmd.Flags().BoolVar(&f.tags, "tags", false, "Prefix lines with their kinds")
	cmd.Flags().BoolVar(&f.timestamps, "timestamps", false, "Prefix lines with simulated time")
	cmd.Flags().StringSliceVar(&f.kinds, "kinds", nil, "Only print lines of these kinds (say,show,fire,fail,script)")
	cmd.Flags().BoolVar(&f.announce, "announce", false, "Emit a line for each firing")
	cmd.Flags().BoolVar(&f.diag, "diag", false, "Write the walk as JSON to stderr")
	cmd.Flags().StringVar(&f.metrics, "metrics", "", "Write Prometheus metrics for the run to this file")

	return cmd
}

func (f *runFlags) sink(out io.Writer) (core.Sink, func(), error) {
	stdio := &sio.Stdio{
		Out:        out,
		Tags:       f.tags,
		PadTags:    f.tags,
		Timestamps: f.timestamps,
	}

	var sink core.Sink = stdio
	if 0 < len(f.kinds) {
		sink = &sio.Filter{
			Kinds: f.kinds,
			Sink:  stdio,
		}
	}

	if f.mqttBroker == "" {
		return sink, func() {}, nil
	}

	o := sio.DefaultMQTTOptions
	o.Broker = f.mqttBroker
	o.Port = f.mqttPort
	o.ClientId = fmt.Sprintf("lofi-%d", time.Now().UnixNano())
	c, err := sio.ConnectMQTT(&o)
	if err != nil {
		return nil, nil, err
	}
	m := sio.NewMQTT(c, f.topic)
	return sio.Multi{sink, m}, func() { c.Disconnect(250) }, nil
}

func runModel(cmd *cobra.Command, opts *options, f *runFlags, filename string) error {
	ctx := cmd.Context()

	params, err := parseParams(f.params)
	if err != nil {
		return err
	}

	m, err := opts.loadModel(ctx, filename)
	if err != nil {
		return err
	}

	s, err := core.NewScheduler(m, params)
	if err != nil {
		return err
	}
	s.Announce = f.announce

	sink, done, err := f.sink(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer done()
	s.Sink = sink

	store, err := openStorage(ctx, f.store)
	if err != nil {
		return err
	}
	defer store.Close()

	started := time.Now().UTC()
	w, err := s.Walk(ctx, &core.Control{Limit: f.limit})
	if err != nil {
		return err
	}

	if f.diag {
		js, err := json.MarshalIndent(w, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%s\n", js)
	}

	r := storage.NewRecord(s, params, started, w)
	if err := store.WriteRun(ctx, r); err != nil {
		return err
	}

	if err := writeMetrics(f.metrics, m.Name, w); err != nil {
		return err
	}

	for _, problem := range w.Errors() {
		fmt.Fprintf(cmd.ErrOrStderr(), "# error: %s\n", problem)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "# %s after %d ticks (%s)\n",
		w.StoppedBecause, s.Tick(), strings.Join(w.Fired(), ","))

	if w.StoppedBecause == core.InternalError {
		return fmt.Errorf("%s", w.ErrorMessage)
	}
	return nil
}

// writeMetrics observes the walks on a fresh registry and writes it
// in the Prometheus text format.  No filename, no metrics.
func writeMetrics(filename, model string, ws ...*core.Walked) error {
	if filename == "" {
		return nil
	}
	reg := prometheus.NewRegistry()
	ms := metrics.New(reg)
	for _, w := range ws {
		ms.ObserveWalk(model, w)
	}
	return prometheus.WriteToTextfile(filename, reg)
}
