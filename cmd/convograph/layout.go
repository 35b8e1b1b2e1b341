package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/rendis/convograph/internal/diagram"
	"github.com/rendis/convograph/internal/engine"
	"github.com/rendis/convograph/pkg/schema"
)

var layoutCmd = &cobra.Command{
	Use:   "layout <file|conversation-id>",
	Short: "Compute the layout of a conversation",
	Long: `Lays out a conversation read from a .json/.yaml file, or one loaded by id from
the local store or the backend. Conversations loaded by id are recorded.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		out, _ := cmd.Flags().GetString("out")
		if !validFormat(format) {
			return fmt.Errorf("unknown format %q: want json, mermaid, ascii or png", format)
		}

		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		payload, err := a.layout(cmd, args[0])
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if out != "" {
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		return writePayload(cmd, w, payload, format)
	},
}

var reorganizeCmd = &cobra.Command{
	Use:   "reorganize <conversation-id>...",
	Short: "Recompute stored conversations without refetching them",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		failures := a.service.ReorganizeAll(cmd.Context(), args)
		w := cmd.OutOrStdout()
		for _, id := range args {
			if _, failed := failures[id]; !failed {
				fmt.Fprintf(w, "reorganized %s\n", id)
			}
		}
		if len(failures) == 0 {
			return nil
		}

		ids := make([]string, 0, len(failures))
		for id := range failures {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Fprintf(cmd.ErrOrStderr(), "failed %s: %v\n", id, failures[id])
		}
		return fmt.Errorf("%d of %d conversations failed", len(failures), len(args))
	},
}

func init() {
	layoutCmd.Flags().StringP("format", "f", "json", "output format: json, mermaid, ascii or png")
	layoutCmd.Flags().StringP("out", "o", "", "write to a file instead of stdout")
	rootCmd.AddCommand(layoutCmd, reorganizeCmd)
}

// layout resolves arg as a file when one exists at that path, else as a
// conversation id.
func (a *app) layout(cmd *cobra.Command, arg string) (*engine.Payload, error) {
	if _, err := os.Stat(arg); err == nil {
		_, raw, err := schema.LoadFile(arg)
		if err != nil {
			return nil, err
		}
		return a.service.LayoutDocument(cmd.Context(), raw)
	}
	return a.service.Layout(cmd.Context(), arg, a.cfg.Tenant)
}

func validFormat(format string) bool {
	switch format {
	case "json", "mermaid", "ascii", "png":
		return true
	}
	return false
}

func writePayload(cmd *cobra.Command, w io.Writer, payload *engine.Payload, format string) error {
	switch format {
	case "mermaid":
		_, err := io.WriteString(w, diagram.RenderMermaid(payload.Diagram))
		return err
	case "ascii":
		_, err := io.WriteString(w, diagram.RenderASCIIAuto(cmd.Context(), payload.Diagram, binDir()))
		return err
	case "png":
		img, err := diagram.RenderImage(cmd.Context(), payload.Diagram)
		if err != nil {
			return err
		}
		_, err = w.Write(img)
		return err
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}
}
