package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gdamore/tcell/v2"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/swatchpath/internal/cluster"
	"github.com/jmylchreest/swatchpath/internal/gradient"
	"github.com/jmylchreest/swatchpath/internal/palette"
	"github.com/jmylchreest/swatchpath/internal/render"
)

var (
	// Browse command flags
	browseFrom      string
	browseTo        string
	browseVariant   string
	browseCellWidth int
	browseNoWatch   bool
	browseLogFile   string
	browsePalette   paletteFlags
)

// browseCmd represents the browse command
var browseCmd = &cobra.Command{
	Use:   "browse <palette>",
	Short: "Explore a gradient interactively in the terminal",
	Long: `Open a full-screen, scrollable view of a gradient grid.

Rows are generated lazily as you scroll. The selected cell's colour and
its items, with their faces, are shown in the status line. When the palette
is a directory it is watched, and the grid is rebuilt when textures change.

Keys:
  arrows, PgUp/PgDn         move the selection
  Home                      back to the first cell
  mouse click               select a cell
  v                         toggle average/dominant colours
  q, Esc, Ctrl-C            quit

Examples:
  swatchpath browse textures/ --from block/white_wool --to block/black_wool
  swatchpath browse pack.zip --from '#e0e0e0' --to '#101010' --log-file browse.log`,
	Args: cobra.ExactArgs(1),
	RunE: runBrowse,
}

func init() {
	browseCmd.Flags().StringVar(&browseFrom, "from", "", "source item or hex colour (required)")
	browseCmd.Flags().StringVar(&browseTo, "to", "", "destination item or hex colour (required)")
	browseCmd.Flags().StringVar(&browseVariant, "variant", "average", "initial colour variant (average, dominant)")
	browseCmd.Flags().IntVar(&browseCellWidth, "cell-width", 4, "terminal columns per cell")
	browseCmd.Flags().BoolVar(&browseNoWatch, "no-watch", false, "do not watch a palette directory for changes")
	browseCmd.Flags().StringVar(&browseLogFile, "log-file", "", "write logs to this file while the screen is active")
	browsePalette.register(browseCmd)
	_ = browseCmd.MarkFlagRequired("from")
	_ = browseCmd.MarkFlagRequired("to")
}

// runBrowse executes the browse command.
func runBrowse(cmd *cobra.Command, args []string) error {
	variant, err := parseVariant(browseVariant)
	if err != nil {
		return err
	}

	// The screen owns the terminal, so logs go to a file or nowhere.
	var logOut io.Writer = io.Discard
	if browseLogFile != "" {
		f, err := os.OpenFile(browseLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) // #nosec G304 - User-specified log file
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	logger := browseLogger(logOut)

	ps, err := openPalette(cmd, args[0], &browsePalette, logger)
	if err != nil {
		return err
	}
	defer ps.Close()

	// Load before taking over the terminal so errors are printed normally.
	if _, err := ps.session.Palette(cmd.Context()); err != nil {
		return err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("failed to create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to initialise screen: %w", err)
	}
	defer screen.Fini()
	screen.EnableMouse()

	engines := func(ctx context.Context, v cluster.Variant) (*gradient.Engine, error) {
		return ps.engine(ctx, browseFrom, browseTo, v)
	}
	browser := render.NewBrowser(screen, engines,
		render.WithBrowserLogger(logger.Named("browser")),
		render.WithBrowserVariant(variant),
		render.WithCellWidth(browseCellWidth),
	)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if !browseNoWatch && !palette.IsRemote(args[0]) {
		if info, err := os.Stat(args[0]); err == nil && info.IsDir() {
			w, err := palette.NewWatcher(args[0], func() {
				ps.session.Invalidate()
				browser.Reload()
			}, palette.WithWatchLogger(logger.Named("watch")))
			if err != nil {
				logger.Warn("palette watch disabled", "error", err)
			} else {
				defer w.Close()
				go func() {
					if err := w.Run(ctx); err != nil && ctx.Err() == nil {
						logger.Warn("palette watch stopped", "error", err)
					}
				}()
			}
		}
	}

	err = browser.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func browseLogger(out io.Writer) hclog.Logger {
	level := hclog.Info
	if globalVerbose {
		level = hclog.Debug
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "swatchpath",
		Level:  level,
		Output: out,
	})
}
