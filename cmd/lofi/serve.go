package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/NicValentine/LoFi-Cafe/core"
	"github.com/NicValentine/LoFi-Cafe/metrics"
	"github.com/NicValentine/LoFi-Cafe/sio"
	"github.com/NicValentine/LoFi-Cafe/tools"
	"github.com/NicValentine/LoFi-Cafe/util"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

type serveFlags struct {
	addr   string
	params []string
	limit  int
	pace   float64
	loop   time.Duration
	wait   bool
}

func newServeCmd(opts *options) *cobra.Command {
	f := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve MODEL",
		Short: "Run a model in real time for WebSocket clients",
		Long: "Serve the model's page at /, stream lines to WebSocket clients at\n" +
			"/ws, and expose Prometheus metrics at /metrics.  Ticks are paced\n" +
			"by the model's tick duration times --pace.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd, opts, f, args[0])
		},
	}

	cmd.Flags().StringVar(&f.addr, "addr", ":8080", "HTTP listen address")
	cmd.Flags().StringArrayVarP(&f.params, "param", "p", nil, "Parameter NAME=VALUE (repeatable)")
	cmd.Flags().IntVar(&f.limit, "limit", core.DefaultControl.Limit, "Maximum number of ticks per run")
	cmd.Flags().Float64Var(&f.pace, "pace", 1, "Wall time per simulated time")
	cmd.Flags().DurationVar(&f.loop, "loop", 0, "Start over after this pause (0 to run once)")
	cmd.Flags().BoolVar(&f.wait, "wait", false, "Wait for a WebSocket client before starting")

	return cmd
}

func serve(cmd *cobra.Command, opts *options, f *serveFlags, filename string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	params, err := parseParams(f.params)
	if err != nil {
		return err
	}

	m, err := opts.loadModel(ctx, filename)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	ms := metrics.New(reg)

	ws := sio.NewWebSocket()
	defer ws.Close()

	mux := http.NewServeMux()
	mux.Handle("/ws", ws)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tools.RenderModelPage(m, w, nil); err != nil {
			util.Logger().Error("render", "error", err)
		}
	})

	srv := &http.Server{
		Addr:              f.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		util.Logger().Info("listening", "addr", f.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	sink := sio.Multi{ws, &sio.Stdio{Out: cmd.OutOrStdout(), Agent: m.Name}}

	go func() {
		for {
			if f.wait {
				for ws.Clients() == 0 {
					if !sleep(ctx, 100*time.Millisecond) {
						return
					}
				}
			}
			if err := pacedWalk(ctx, m, params, sink, ms, f); err != nil {
				util.Logger().Error("walk", "error", err)
				return
			}
			if f.loop <= 0 || !sleep(ctx, f.loop) {
				return
			}
		}
	}()

	// Keep serving after the walk finishes until interrupted.
	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdown, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	return srv.Shutdown(shutdown)
}

// pacedWalk takes one step at a time, sleeping for a tick's worth of
// wall time between steps.  The steps are observed as one walk.
func pacedWalk(ctx context.Context, m *core.Model, params map[string]string, sink core.Sink, ms *metrics.Metrics, f *serveFlags) error {
	s, err := core.NewScheduler(m, params)
	if err != nil {
		return err
	}
	s.Sink = sink

	delay := time.Duration(float64(m.TickDuration()) * f.pace)
	whole := &core.Walked{StoppedBecause: core.Limited}
	defer func() { ms.ObserveWalk(m.Name, whole) }()

	for i := 0; i < f.limit; i++ {
		w, err := s.Walk(ctx, &core.Control{Limit: 1})
		if err != nil {
			return err
		}
		whole.Strides = append(whole.Strides, w.Strides...)
		if w.StoppedBecause != core.Limited {
			whole.StoppedBecause = w.StoppedBecause
			whole.Error, whole.ErrorMessage = w.Error, w.ErrorMessage
			if w.StoppedBecause == core.InternalError {
				return fmt.Errorf("%s", w.ErrorMessage)
			}
			return nil
		}
		if !sleep(ctx, delay) {
			whole.StoppedBecause = core.InternalError
			return ctx.Err()
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
