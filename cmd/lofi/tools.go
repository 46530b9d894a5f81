package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/NicValentine/LoFi-Cafe/interpreters"
	"github.com/NicValentine/LoFi-Cafe/tools"

	"github.com/spf13/cobra"
)

func newValidateCmd(opts *options) *cobra.Command {
	var noScripts bool

	cmd := &cobra.Command{
		Use:   "validate MODEL",
		Short: "Load and compile a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			is := opts.interpreters()
			if noScripts {
				is = interpreters.Validating()
			}
			m, err := tools.ReadModel(cmd.Context(), args[0], is)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok %s %s: %d productions, %d memories\n",
				m.Name, m.Version, len(m.Productions), len(m.Memories))
			return nil
		},
	}

	cmd.Flags().BoolVar(&noScripts, "no-scripts", false, "Don't compile script sources")

	return cmd
}

func newAnalyzeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze MODEL",
		Short: "Report a model's phase graph and loose ends as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := opts.loadModel(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			a, err := tools.Analyze(m)
			if err != nil {
				return err
			}
			js, err := json.MarshalIndent(a, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", js)
			return nil
		},
	}
}

func newDotCmd(opts *options) *cobra.Command {
	var (
		buffer    string
		highlight string
		png       string
	)

	cmd := &cobra.Command{
		Use:   "dot MODEL",
		Short: "Render the phase graph in Graphviz's dot language",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := opts.loadModel(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if png != "" {
				name, err := tools.PNG(m, buffer, png, highlight)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), name)
				return nil
			}
			return tools.Dot(m, buffer, cmd.OutOrStdout(), highlight)
		},
	}

	cmd.Flags().StringVar(&buffer, "buffer", "", "Phase buffer to graph (default the first one declared)")
	cmd.Flags().StringVar(&highlight, "highlight", "", "Production to highlight")
	cmd.Flags().StringVar(&png, "png", "", "Write BASENAME.dot and BASENAME.png (needs dot)")

	return cmd
}

func newMermaidCmd(opts *options) *cobra.Command {
	mo := &tools.MermaidOpts{}

	cmd := &cobra.Command{
		Use:   "mermaid MODEL",
		Short: "Render the phase graph as a Mermaid flowchart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := opts.loadModel(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return tools.Mermaid(m, cmd.OutOrStdout(), mo)
		},
	}

	cmd.Flags().StringVar(&mo.Buffer, "buffer", "", "Phase buffer to graph (default the first one declared)")
	cmd.Flags().BoolVar(&mo.ShowConditions, "conditions", false, "Label edges with production conditions")
	cmd.Flags().StringVar(&mo.TerminalFill, "terminal-fill", "#bcf2db", "Fill color for terminal phases")

	return cmd
}

func newHTMLCmd(opts *options) *cobra.Command {
	var css []string

	cmd := &cobra.Command{
		Use:   "html MODEL",
		Short: "Render a model as an HTML page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := opts.loadModel(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return tools.RenderModelPage(m, cmd.OutOrStdout(), css)
		},
	}

	cmd.Flags().StringSliceVar(&css, "css", nil, "Stylesheet URLs")

	return cmd
}

func newExpectCmd(opts *options) *cobra.Command {
	var show bool

	cmd := &cobra.Command{
		Use:   "expect MODEL SESSION",
		Short: "Run a model and check its output against a session file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, err := opts.loadModel(ctx, args[0])
			if err != nil {
				return err
			}
			src, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			s, err := tools.ParseSession(src)
			if err != nil {
				return fmt.Errorf("%s: %w", args[1], err)
			}
			w, err := s.Run(ctx, m)
			if show && w != nil {
				for _, l := range w.Lines() {
					fmt.Fprintln(cmd.OutOrStdout(), l.String())
				}
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok %d outputs\n", len(s.Outputs))
			return nil
		},
	}

	cmd.Flags().BoolVar(&show, "show", false, "Print every line the run emitted")

	return cmd
}
