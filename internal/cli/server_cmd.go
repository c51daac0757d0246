package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

func newBotCmd(st *cmdState) *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if st.rt.RunBot == nil {
				return errors.New("bot is not configured")
			}
			return st.rt.RunBot(contextOf(cmd))
		},
	}
}

func newServeCmd(st *cmdState) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if st.rt.Serve == nil {
				return errors.New("http api is not configured")
			}
			return st.rt.Serve(contextOf(cmd))
		},
	}
}
