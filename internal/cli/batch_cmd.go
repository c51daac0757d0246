package cli

import (
	"errors"

	"github.com/kitbuilder587/efmnb-optimizer/internal/domain"
	"github.com/spf13/cobra"
)

func newBatchCmd(st *cmdState) *cobra.Command {
	var demo bool

	cmd := &cobra.Command{
		Use:   "batch [file|-]",
		Short: "Analyse a file with one text per line",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var items []domain.BatchItem
			switch {
			case demo:
				items = domain.DemoBatch()
			case len(args) == 1:
				content, err := readFile(cmd, args[0])
				if err != nil {
					return err
				}
				items = domain.ParseBatchLines(content)
			default:
				return errors.New("batch needs a file argument or --demo")
			}

			report, err := st.rt.Batch.Run(contextOf(cmd), st.credential(), st.model(), items)
			if err != nil {
				return err
			}

			if err := st.renderer(cmd).Batch(report); err != nil {
				return err
			}
			if !report.Complete() {
				return report.Failed
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&demo, "demo", false, "Analyse the built-in three-text demo batch")

	return cmd
}
