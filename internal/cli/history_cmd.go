package cli

import (
	"github.com/kitbuilder587/efmnb-optimizer/internal/service"
	"github.com/spf13/cobra"
)

func newHistoryCmd(st *cmdState) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent analyses and refinements",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := st.rt.History.Recent(contextOf(cmd), LocalUserID, limit)
			if err != nil {
				return err
			}
			return st.renderer(cmd).History(entries)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", service.DefaultHistoryLimit, "How many entries to show")

	return cmd
}
