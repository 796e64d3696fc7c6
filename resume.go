package lattice

import (
	"fmt"
	"strings"
	"time"
)

// Resume defaults.
const (
	DefaultResumeWindow = 24 * time.Hour
	DefaultResumeBudget = 4000 // characters, roughly a thousand tokens
)

// NoRecentActivity is the digest returned when the window holds no
// observations, or when the budget is too small to render any digest
// content. Callers can always distinguish it from an empty string.
const NoRecentActivity = "No recent activity."

// resumeSections orders the digest by source priority: decisions and notes
// first, then commit activity, then hook-generated file activity. Unknown
// sources fall through to a trailing section.
var resumeSections = []struct {
	title   string
	matches func(source string) bool
}{
	{"Decisions & notes", func(s string) bool { return s == SourceUser || s == SourceAgent }},
	{"Recent commits", func(s string) bool { return s == SourceGit }},
	{"File activity", func(s string) bool { return s == SourceHook }},
	{"Other", func(s string) bool { return true }},
}

// Resume renders a budgeted digest of recent activity: observations grouped
// into source-priority sections (newest first within each), then recently
// indexed files if room remains. window and budget fall back to their
// defaults when non-positive. Observations that would cross the budget are
// dropped whole, never truncated mid-text, and a section enters only if its
// title and first entry both fit. The result is never empty: when nothing
// fits (or nothing happened) the sentinel is returned, even if the sentinel
// itself exceeds a pathologically small budget.
func (p *Project) Resume(window time.Duration, budget int) (string, error) {
	if window <= 0 {
		window = DefaultResumeWindow
	}
	if budget <= 0 {
		budget = DefaultResumeBudget
	}

	since := p.now().Add(-window)
	obs, err := p.store.ObservationsSince(since, "", 0)
	if err != nil {
		return "", fmt.Errorf("resume: %w", err)
	}
	obs = dedupHookObservations(obs)

	if len(obs) == 0 {
		return NoRecentActivity, nil
	}

	var sb strings.Builder
	remaining := budget
	write := func(s string) bool {
		if len(s) > remaining {
			return false
		}
		sb.WriteString(s)
		remaining -= len(s)
		return true
	}

	header := fmt.Sprintf("# Resume (last %s)\n\n", formatWindow(window))
	if !write(header) {
		return NoRecentActivity, nil // budget cannot fit any digest content
	}

	claimed := make([]bool, len(obs))
	for _, section := range resumeSections {
		var lines []string
		for i, o := range obs {
			if claimed[i] || !section.matches(o.Source) {
				continue
			}
			claimed[i] = true
			lines = append(lines, observationLine(o))
		}
		if len(lines) == 0 {
			continue
		}

		title := "## " + section.title + "\n\n"
		if len(title)+len(lines[0]) > remaining {
			continue // never a dangling section title
		}
		write(title)
		for _, line := range lines {
			if !write(line) {
				break
			}
		}
		write("\n")
	}

	// Recently indexed files go in only if the whole section fits.
	files, err := p.store.RecentlyIndexedFiles(since, 5)
	if err != nil {
		return "", fmt.Errorf("resume: %w", err)
	}
	if len(files) > 0 {
		var fs strings.Builder
		fs.WriteString("## Recently indexed\n\n")
		for _, f := range files {
			fmt.Fprintf(&fs, "- %s\n", f.FilePath)
		}
		write(fs.String())
	}

	return sb.String(), nil
}

func observationLine(o *Observation) string {
	line := fmt.Sprintf("- [%s %s] %s", o.Source, o.CreatedAt.Format("Jan 2 15:04"), o.Content)
	if len(o.Tags) > 0 {
		line += " #" + strings.Join(o.Tags, " #")
	}
	return line + "\n"
}

// dedupHookObservations collapses hook-generated duplicates: for identical
// content from the hook source only the most recent survives. Input and
// output are newest first.
func dedupHookObservations(obs []*Observation) []*Observation {
	seen := make(map[string]bool)
	out := obs[:0]
	for _, o := range obs {
		if o.Source == SourceHook {
			if seen[o.Content] {
				continue
			}
			seen[o.Content] = true
		}
		out = append(out, o)
	}
	return out
}

func formatWindow(window time.Duration) string {
	if window%(24*time.Hour) == 0 {
		days := int(window / (24 * time.Hour))
		if days == 1 {
			return "24h"
		}
		return fmt.Sprintf("%dd", days)
	}
	return window.String()
}
