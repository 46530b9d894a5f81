package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/NicValentine/LoFi-Cafe/core"
	"github.com/NicValentine/LoFi-Cafe/interpreters"
	"github.com/NicValentine/LoFi-Cafe/interpreters/goja"
	"github.com/NicValentine/LoFi-Cafe/storage"
	"github.com/NicValentine/LoFi-Cafe/storage/bolt"
	"github.com/NicValentine/LoFi-Cafe/storage/sqlite"
	"github.com/NicValentine/LoFi-Cafe/tools"
	"github.com/NicValentine/LoFi-Cafe/util"

	"github.com/spf13/cobra"
)

// options are the persistent flags.
type options struct {
	verbose bool
	libDir  string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "lofi",
		Short: "A buffer-mediated production system",
		Long: "lofi runs production-system models: buffers, memories, and rules " +
			"that fire one per tick on a simulated clock.",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				util.Verbose()
			}
		},
	}

	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Debug logging to stderr")
	root.PersistentFlags().StringVar(&opts.libDir, "lib", ".", "Directory for script libraries")

	root.AddCommand(
		newRunCmd(opts),
		newCrewCmd(opts),
		newValidateCmd(opts),
		newAnalyzeCmd(opts),
		newDotCmd(opts),
		newMermaidCmd(opts),
		newHTMLCmd(opts),
		newExpectCmd(opts),
		newMatchCmd(),
		newRunsCmd(),
		newServeCmd(opts),
	)

	return root
}

// interpreters gives the standard interpreters with goja's libraries
// read from the lib directory.
func (o *options) interpreters() core.InterpretersMap {
	is := interpreters.Standard()
	gi := goja.NewInterpreter()
	gi.LibraryProvider = goja.MakeFileLibraryProvider(o.libDir)
	is["goja"] = gi
	return is
}

func (o *options) loadModel(ctx context.Context, filename string) (*core.Model, error) {
	return tools.ReadModel(ctx, filename, o.interpreters())
}

// parseParams turns "k=v" strings into a map.
func parseParams(kvs []string) (map[string]string, error) {
	acc := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("bad param %q (want NAME=VALUE)", kv)
		}
		acc[k] = v
	}
	return acc, nil
}

// openStorage understands "bolt:PATH", "sqlite:PATH", and "" (for
// nothing).
func openStorage(ctx context.Context, spec string) (storage.Storage, error) {
	if spec == "" || spec == "none" {
		return &storage.NoopStorage{}, nil
	}
	kind, path, ok := strings.Cut(spec, ":")
	if !ok || path == "" {
		return nil, fmt.Errorf("bad store %q (want bolt:PATH or sqlite:PATH)", spec)
	}
	switch kind {
	case "bolt":
		s, err := bolt.NewStorage(path)
		if err != nil {
			return nil, err
		}
		s.Debug = util.Logging
		if err := s.Open(ctx); err != nil {
			return nil, err
		}
		return s, nil
	case "sqlite":
		return sqlite.NewStorage(path)
	default:
		return nil, fmt.Errorf("unknown store %q", kind)
	}
}
