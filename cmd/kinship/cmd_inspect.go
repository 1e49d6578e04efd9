package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dan-solli/kinship/pkg/graph"
	"github.com/dan-solli/kinship/pkg/person"
)

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect SNAPSHOT.json",
		Short: "Show expandable flags and unresolved references",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := readSnapshot(args[0], a.logger)
			if err != nil {
				return err
			}
			return writeInspection(cmd.OutOrStdout(), g)
		},
	}
}

func writeInspection(out io.Writer, g *graph.Graph) error {
	root := g.Root()
	fmt.Fprintf(out, "root: %s (top of known ancestry: %t)\n\n", root.ID, root.IsRoot)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPARENTS\tCHILDREN\tSPOUSES\tSIBLINGS\tMARRIED")
	for _, p := range g.Nodes() {
		ex := p.Metadata.Expandable
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%d/%d\n",
			p.ID, p.Name.DisplayName(),
			flag(ex.Get(person.KindParents)),
			flag(ex.Get(person.KindChildren)),
			flag(ex.Get(person.KindSpouses)),
			flag(ex.Get(person.KindSiblings)),
			p.Metadata.TotalSpouses, p.Metadata.MaxSpouses)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	unresolved := g.Unresolved()
	fmt.Fprintf(out, "\n%d unresolved references\n", len(unresolved))
	for _, u := range unresolved {
		fmt.Fprintln(out, "  "+u.String())
	}
	return nil
}

func flag(expandable bool) string {
	if expandable {
		return "+"
	}
	return "-"
}
