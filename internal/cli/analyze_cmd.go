package cli

import (
	"github.com/kitbuilder587/efmnb-optimizer/internal/domain"
	"github.com/spf13/cobra"
)

func newAnalyzeCmd(st *cmdState) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze [text|-]",
		Short: "Score a text on the five EFMNB axes",
		Long:  "Score a text on the five EFMNB axes. Without arguments or with \"-\" the text is read from stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readText(cmd, args)
			if err != nil {
				return err
			}
			if err := domain.ValidatePrompt(text); err != nil {
				return err
			}

			ctx := contextOf(cmd)
			model := st.model()
			res, err := st.rt.Analyzer.Analyze(ctx, st.credential(), model, text)
			if err != nil {
				return err
			}
			st.rt.History.RecordAnalysis(ctx, LocalUserID, model, text, res)

			return st.renderer(cmd).Analysis(res)
		},
	}
}
