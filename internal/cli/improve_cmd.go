package cli

import (
	"fmt"

	"github.com/kitbuilder587/efmnb-optimizer/internal/domain"
	"github.com/spf13/cobra"
)

func newImproveCmd(st *cmdState) *cobra.Command {
	var trace bool

	cmd := &cobra.Command{
		Use:   "improve [text|-]",
		Short: "Rewrite a prompt with four Proposer, Critic, Verifier passes",
		RunE: func(cmd *cobra.Command, args []string) error {
			original, err := readText(cmd, args)
			if err != nil {
				return err
			}
			if err := domain.ValidatePrompt(original); err != nil {
				return err
			}

			r := st.renderer(cmd)
			refiner := st.rt.Refiner
			if !r.JSON() {
				stderr := cmd.ErrOrStderr()
				refiner = refiner.WithProgress(func(iteration int, step domain.Step) {
					fmt.Fprintln(stderr, r.Progress(iteration, step))
				})
			}

			ctx := contextOf(cmd)
			model := st.model()
			result, err := refiner.ImproveTrace(ctx, st.credential(), model, original)
			if err != nil {
				return err
			}
			st.rt.History.RecordRefinement(ctx, LocalUserID, model, result.Original, result.Final)

			return r.Refinement(result, trace)
		},
	}

	cmd.Flags().BoolVar(&trace, "trace", false, "Show every iteration's draft, critique and verified prompt")

	return cmd
}
