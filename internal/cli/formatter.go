package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/idelchi/linkstat/internal/dirstat"
)

const (
	// TabSpacing is the number of spaces between tabwriter columns.
	TabSpacing = 2
)

// PrintJSON outputs the result in JSON format.
func PrintJSON(result *dirstat.Result, writer io.Writer) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}

	if _, err := fmt.Fprintln(writer, string(data)); err != nil {
		return err
	}

	return nil
}

// size formats a byte count, optionally in human-readable form.
func size(n int64, human bool) string {
	if !human {
		return fmt.Sprintf("%d", n)
	}

	return fmt.Sprintf("%s (%d bytes)", humanize.IBytes(uint64(n)), n) //nolint:gosec // Sizes are never negative
}

// PrintTable outputs one block per directory followed by the totals.
//
//nolint:forbidigo // This function prints output to the console.
func PrintTable(result *dirstat.Result, writer io.Writer, human bool) error {
	w := tabwriter.NewWriter(writer, 0, 4, TabSpacing, ' ', 0)

	for _, r := range result.Reports {
		fmt.Fprintf(w, "Directory: %s\t\n", r.Path)
		fmt.Fprintf(w, "  Total file links:\t%d\n", r.FileLinks)
		fmt.Fprintf(w, "  Total file space:\t%s\n", size(r.FileSpace, human))
		fmt.Fprintf(w, "  Total sub-directories:\t%d\n", r.Subdirs)
		fmt.Fprintf(w, "  Total sub-directory file space:\t%s\n", size(r.SubdirSpace, human))
	}

	fmt.Fprintln(w, "\nTotals:\t")
	fmt.Fprintf(w, "Total directories encountered:\t%d\n", result.Totals.Directories)
	fmt.Fprintf(w, "Total file links:\t%d\n", result.Totals.Links)
	fmt.Fprintf(w, "Total files:\t%d\n", result.Summary.Files)
	fmt.Fprintf(w, "Total file space:\t%s\n", size(result.Summary.Bytes, human))
	fmt.Fprintf(w, "Files linked outside directory structure:\t%d\n", result.Summary.ExternalFiles)
	fmt.Fprintf(w, "File space linked outside directory structure:\t%s\n", size(result.Summary.ExternalBytes, human))

	if result.ErrorCount > 0 {
		fmt.Fprintf(w, "Errors:\t%d\n", result.ErrorCount)
	}

	fmt.Fprintf(w, "\nElapsed:\t%v\n", result.Elapsed)

	return w.Flush()
}
