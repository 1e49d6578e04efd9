package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dan-solli/kinship/pkg/graph"
	"github.com/dan-solli/kinship/pkg/layout"
)

func newLayoutCmd(a *app) *cobra.Command {
	var rootID, format string

	cmd := &cobra.Command{
		Use:   "layout SNAPSHOT.json",
		Short: "Compute grid positions for every person in a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "table" && format != "json" {
				return fmt.Errorf("unknown format %q (want table or json)", format)
			}
			g, err := readSnapshot(args[0], a.logger)
			if err != nil {
				return err
			}
			if rootID == "" {
				rootID = g.Root().ID
			}

			res, err := layout.NewEngine(a.config.Layout).Layout(g, rootID)
			if err != nil {
				return err
			}
			if format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			return writeLayoutTable(cmd.OutOrStdout(), g, res)
		},
	}

	cmd.Flags().StringVar(&rootID, "root", "", "person to center on (default: snapshot root)")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table or json")
	return cmd
}

func writeLayoutTable(out io.Writer, g *graph.Graph, res *layout.Result) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tGEN\tCOL\tSIZE\tX\tY")
	for _, p := range res.Placements {
		name := ""
		if n, ok := g.Node(p.NodeID); ok {
			name = n.Name.DisplayName()
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%d\t%d\n",
			p.NodeID, name, p.Generation, p.Column, p.SizeClass, p.X, p.Y)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%d people, %d columns, generations %d..%d\n",
		len(res.Placements), res.Columns, res.MinGeneration, res.MaxGeneration)
	for _, c := range res.CrossLinks {
		fmt.Fprintf(out, "cross-link: %s.%s -> %s\n", c.FromID, c.Kind, c.ToID)
	}
	return nil
}
