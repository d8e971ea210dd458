package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/swatchpath/internal/render"
)

var (
	// Gradient command flags
	gradientFrom     string
	gradientTo       string
	gradientVariant  string
	gradientRows     int
	gradientFormat   string
	gradientOutput   string
	gradientLabels   bool
	gradientCellSize int
	gradientPalette  paletteFlags
)

// gradientCmd represents the gradient command
var gradientCmd = &cobra.Command{
	Use:   "gradient <palette>",
	Short: "Build a gradient between two palette items",
	Long: `Build a grid of gradients between two items of a palette.

The palette is a directory of textures, an archive (.zip, .tar.gz, .tar.xz,
.tar.bz2) or an https:// URL of an archive. Items are named by their path
relative to the palette root without extension; a trailing _top, _side, etc.
marks a face of the same item. Endpoints may also be hex colours, which
resolve to the nearest entry.

Each row is a distinct cheapest path from --from to --to. Rows stop when no
further path exists.

Examples:
  # Eight rows of gradient from white to black wool
  swatchpath gradient textures/ --from block/white_wool --to block/black_wool --rows 8

  # Use the dominant colour of each texture
  swatchpath gradient pack.zip --from block/stone --to block/gold_block --variant dominant

  # Endpoints by colour, rendered as a texture grid
  swatchpath gradient textures/ --from '#ffffff' --to '#202020' -f png -o grid.png

  # JSON for scripting, skipping ores
  swatchpath gradient textures/ --from block/sand --to block/obsidian -f json -x '*_ore'`,
	Args: cobra.ExactArgs(1),
	RunE: runGradient,
}

func init() {
	gradientCmd.Flags().StringVar(&gradientFrom, "from", "", "source item or hex colour (required)")
	gradientCmd.Flags().StringVar(&gradientTo, "to", "", "destination item or hex colour (required)")
	gradientCmd.Flags().StringVar(&gradientVariant, "variant", "average", "colour variant (average, dominant)")
	gradientCmd.Flags().IntVarP(&gradientRows, "rows", "n", 16, "maximum number of rows")
	gradientCmd.Flags().StringVarP(&gradientFormat, "format", "f", "text", "output format (text, json, png)")
	gradientCmd.Flags().StringVarP(&gradientOutput, "output", "o", "", "output file (default: stdout)")
	gradientCmd.Flags().BoolVar(&gradientLabels, "labels", true, "list item names under each text row")
	gradientCmd.Flags().IntVar(&gradientCellSize, "cell-size", 16, "pixel size of a png cell")
	gradientPalette.register(gradientCmd)
	_ = gradientCmd.MarkFlagRequired("from")
	_ = gradientCmd.MarkFlagRequired("to")
}

// runGradient executes the gradient command.
func runGradient(cmd *cobra.Command, args []string) error {
	variant, err := parseVariant(gradientVariant)
	if err != nil {
		return err
	}
	format, err := render.ParseFormat(gradientFormat)
	if err != nil {
		return err
	}
	if gradientRows < 1 {
		return fmt.Errorf("rows must be at least 1, got %d", gradientRows)
	}

	logger := newLogger(cmd)
	ps, err := openPalette(cmd, args[0], &gradientPalette, logger)
	if err != nil {
		return err
	}
	defer ps.Close()

	engine, err := ps.engine(cmd.Context(), gradientFrom, gradientTo, variant)
	if err != nil {
		return fmt.Errorf("failed to build gradient: %w", err)
	}
	rows := engine.Rows(gradientRows)
	logger.Debug("rows generated", "rows", len(rows), "state", engine.State())
	if len(rows) == 0 {
		return fmt.Errorf("no gradient found between %s and %s", gradientFrom, gradientTo)
	}

	var out io.Writer = cmd.OutOrStdout()
	if gradientOutput != "" {
		f, err := os.Create(gradientOutput) // #nosec G304 - User-specified output path
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	opts := render.Options{
		Variant:  variant,
		Labels:   gradientLabels,
		CellSize: gradientCellSize,
		Textures: ps.textures.lookup,
	}
	if f, ok := out.(*os.File); ok {
		width := render.TerminalWidth(f)
		if format == render.FormatPNG && width > 0 {
			return fmt.Errorf("refusing to write png to a terminal; use --output")
		}
		opts.Width = width
	}

	if err := render.Write(out, format, rows, opts); err != nil {
		return err
	}
	if gradientOutput != "" {
		logger.Info("gradient written", "path", gradientOutput, "rows", len(rows))
	}
	return nil
}
