package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/VectorBits/Reentry/src/internal/report"
	"github.com/VectorBits/Reentry/src/internal/store"
	"github.com/VectorBits/Reentry/src/internal/ui"
)

func newRunsCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "runs",
		Short: "Manage stored analysis runs",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(cmd.Context(), appCfg)
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCREATED\tCONTRACTS\tFINDINGS\tCRIT/HIGH/MED/LOW\tSOURCES")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d/%d/%d/%d\t%s\n", r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"),
					r.Contracts, r.Findings, r.Critical, r.High, r.Medium, r.Low, r.Sources)
			}
			return w.Flush()
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "maximum runs to show (0 for all)")

	var format string
	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Render a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := store.ValidID(args[0]); err != nil {
				return err
			}
			gen, err := report.NewGenerator(format)
			if err != nil {
				return err
			}
			st, err := store.Open(cmd.Context(), appCfg)
			if err != nil {
				return err
			}
			defer st.Close()

			run, err := st.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			res, err := run.Decode()
			if err != nil {
				return err
			}
			rep := report.NewReport(run.ID, run.SourceList(), res)
			rep.ScanTime = run.CreatedAt
			out, err := gen.Generate(rep)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	show.Flags().StringVar(&format, "format", "markdown", "markdown|json")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := store.ValidID(args[0]); err != nil {
				return err
			}
			st, err := store.Open(cmd.Context(), appCfg)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			ui.LogSuccess("Deleted run %s", args[0])
			return nil
		},
	}

	c.AddCommand(list, show, del)
	return c
}
