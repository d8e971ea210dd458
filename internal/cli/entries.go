package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/swatchpath/internal/cluster"
	"github.com/jmylchreest/swatchpath/internal/colour"
	"github.com/jmylchreest/swatchpath/internal/palette"
	"github.com/jmylchreest/swatchpath/internal/render"
)

var (
	// Entries command flags
	entriesFormat  string
	entriesFilter  string
	entriesPalette paletteFlags
)

// entriesCmd represents the entries command
var entriesCmd = &cobra.Command{
	Use:   "entries <palette>",
	Short: "List the colour entries of a palette",
	Long: `List the entries a palette clusters into.

Items whose textures share a colour signature are merged into one entry.
The dominant colour is shown only when it is trustworthy.

Examples:
  # Table with colour previews
  swatchpath entries textures/

  # Only entries containing a log
  swatchpath entries textures/ --filter '*_log'

  # JSON output
  swatchpath entries pack.zip --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runEntries,
}

func init() {
	entriesCmd.Flags().StringVarP(&entriesFormat, "format", "f", "table", "output format (table, json)")
	entriesCmd.Flags().StringVar(&entriesFilter, "filter", "", "only list entries with an item matching a '*' pattern")
	entriesPalette.register(entriesCmd)
}

// entryJSON is the JSON form of a palette entry.
type entryJSON struct {
	ID          int               `json:"id"`
	Average     string            `json:"average"`
	Dominant    string            `json:"dominant,omitempty"`
	Trustworthy bool              `json:"trustworthy"`
	Items       []string          `json:"items"`
	Facings     map[string]string `json:"facings,omitempty"`
	Sources     []string          `json:"sources"`
}

// runEntries executes the entries command.
func runEntries(cmd *cobra.Command, args []string) error {
	if entriesFormat != "table" && entriesFormat != "json" {
		return fmt.Errorf("invalid format %q (valid: table, json)", entriesFormat)
	}

	ps, err := openPalette(cmd, args[0], &entriesPalette, newLogger(cmd))
	if err != nil {
		return err
	}
	defer ps.Close()

	p, err := ps.session.Palette(cmd.Context())
	if err != nil {
		return err
	}

	entries := filterEntries(p.Entries(), entriesFilter)
	out := cmd.OutOrStdout()

	if entriesFormat == "json" {
		docs := make([]entryJSON, 0, len(entries))
		for _, e := range entries {
			docs = append(docs, toEntryJSON(e))
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(docs); err != nil {
			return fmt.Errorf("failed to encode entries: %w", err)
		}
		return nil
	}

	table := NewTable([]string{"ID", "Average", "Dominant", "Items"})
	table.SetColumnMaxWidth(3, 60)
	for _, e := range entries {
		avg := colour.FromVec(e.Average())
		dominant := "-"
		if e.HasDominant() {
			dominant = colour.FormatColourWithPreview(colour.FromVec(e.Dominant()), 2)
		}
		table.AddRow([]string{
			colour.ColourPreviewWithText(avg, strconv.Itoa(e.ID), 6),
			avg.Hex(),
			dominant,
			render.Describe(e),
		})
	}
	fmt.Fprint(out, table.Render())
	fmt.Fprintf(out, "\n%d entries\n", len(entries))
	return nil
}

func filterEntries(entries []*cluster.Entry, pattern string) []*cluster.Entry {
	if pattern == "" {
		return entries
	}
	m := palette.NewMatcher(pattern)
	var out []*cluster.Entry
	for _, e := range entries {
		for _, item := range e.Items() {
			if m.Match(item) {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

func toEntryJSON(e *cluster.Entry) entryJSON {
	doc := entryJSON{
		ID:          e.ID,
		Average:     colour.VecHex(e.Average()),
		Trustworthy: e.HasDominant(),
		Sources:     e.Sources(),
	}
	if e.HasDominant() {
		doc.Dominant = colour.VecHex(e.Dominant())
	}
	for _, item := range e.Items() {
		doc.Items = append(doc.Items, string(item))
		if faces, ok := e.Facings(item); ok && faces != nil {
			if doc.Facings == nil {
				doc.Facings = make(map[string]string)
			}
			doc.Facings[string(item)] = faces.String()
		}
	}
	return doc
}
