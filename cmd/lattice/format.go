package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/jward/lattice"
)

// outputResult prints v as JSON or calls the text formatter, depending on
// the --format flag.
func outputResult(v any, text func()) error {
	if flagFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text()
	return nil
}

// formatProjectsText formats registered projects as aligned columns.
func formatProjectsText(w io.Writer, infos []lattice.ProjectInfo) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tROOT")
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%s\n", info.ID, info.Root)
	}
	tw.Flush()
}

// formatStatusText formats a project status as readable text.
func formatStatusText(w io.Writer, status *lattice.Status) {
	fmt.Fprintf(w, "Project: %s\n", status.ProjectID)
	fmt.Fprintf(w, "Root: %s\n", status.Root)
	fmt.Fprintf(w, "Files: %d\n", status.IndexedFiles)
	fmt.Fprintf(w, "Nodes: %d\n", status.Nodes)
	fmt.Fprintf(w, "Edges: %d\n", status.Edges)
	fmt.Fprintf(w, "Observations: %d\n", status.Observations)
	fmt.Fprintf(w, "Watching: %t\n", status.Watching)
	if len(status.IndexErrors) > 0 {
		fmt.Fprintln(w, "\nIndex errors:")
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, e := range status.IndexErrors {
			fmt.Fprintf(tw, "  %s\t%s\n", e.FilePath, e.Message)
		}
		tw.Flush()
	}
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
