package cli

import (
	"context"
	"io"
	"os"

	"github.com/kitbuilder587/efmnb-optimizer/internal/service"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// LocalUserID - под этим id CLI пишет историю
const LocalUserID int64 = 0

// Options holds the values of the global flags.
type Options struct {
	APIKey     string
	Model      string
	ConfigPath string
	JSON       bool
}

// Runtime is the set of wired services the commands work with.
type Runtime struct {
	Analyzer *service.Analyzer
	Refiner  *service.Refiner
	Batch    *service.BatchAnalyzer
	History  *service.HistoryService

	// APIKey и Model - значения из конфига, флаги их перекрывают
	APIKey string
	Model  string

	RunBot func(ctx context.Context) error
	Serve  func(ctx context.Context) error
	Close  func()
}

// App builds the runtime lazily, after flags are parsed, so --config can
// point at the file to load.
type App struct {
	Load func(ctx context.Context, opts Options) (*Runtime, error)
	// IsTerminal по умолчанию проверяет isatty
	IsTerminal func(w io.Writer) bool
}

type cmdState struct {
	app  *App
	opts Options
	rt   *Runtime
}

// NewRootCmd creates the top-level "efmnb" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	st := &cmdState{app: app}

	root := &cobra.Command{
		Use:           "efmnb",
		Short:         "EFMNB text analyzer and prompt optimizer",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			rt, err := app.Load(cmd.Context(), st.opts)
			if err != nil {
				return err
			}
			st.rt = rt
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&st.opts.APIKey, "api-key", "", "Model API key (overrides GEMINI_API_KEY)")
	flags.StringVar(&st.opts.Model, "model", "", "Model name (overrides GEMINI_MODEL)")
	flags.StringVar(&st.opts.ConfigPath, "config", "", "Path to a YAML config file")
	flags.BoolVar(&st.opts.JSON, "json", false, "Print JSON instead of a styled report")

	root.AddCommand(
		newAnalyzeCmd(st),
		newImproveCmd(st),
		newBatchCmd(st),
		newHistoryCmd(st),
		newBotCmd(st),
		newServeCmd(st),
	)
	closeAfterRun(st, root)

	return root
}

// closeAfterRun оборачивает RunE: PersistentPostRun cobra не зовёт, если RunE вернул ошибку
func closeAfterRun(st *cmdState, cmd *cobra.Command) {
	if run := cmd.RunE; run != nil {
		cmd.RunE = func(cmd *cobra.Command, args []string) error {
			defer st.close()
			return run(cmd, args)
		}
	}
	for _, sub := range cmd.Commands() {
		closeAfterRun(st, sub)
	}
}

func (s *cmdState) close() {
	if s.rt == nil || s.rt.Close == nil {
		return
	}
	closeFn := s.rt.Close
	s.rt.Close = nil
	closeFn()
}

func (s *cmdState) credential() string {
	if s.opts.APIKey != "" {
		return s.opts.APIKey
	}
	return s.rt.APIKey
}

func (s *cmdState) model() string {
	if s.opts.Model != "" {
		return s.opts.Model
	}
	return s.rt.Model
}

func (s *cmdState) renderer(cmd *cobra.Command) *Renderer {
	out := cmd.OutOrStdout()
	isTerm := s.app.IsTerminal
	if isTerm == nil {
		isTerm = stdoutIsTerminal
	}
	return NewRenderer(out, s.opts.JSON || !isTerm(out))
}

func stdoutIsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
