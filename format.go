package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/tonimelisma/drivegate/internal/browse"
)

// statusf writes a progress line to w unless quiet.
func statusf(w io.Writer, quiet bool, format string, args ...any) {
	if quiet {
		return
	}

	fmt.Fprintf(w, format, args...)
}

// IEC units, matching the suffixes config.ParseSize accepts.
var sizeUnits = []string{"KiB", "MiB", "GiB", "TiB"}

// formatSize renders n bytes as "512 B", "1.5 MiB" and so on.
func formatSize(n int64) string {
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}

	v := float64(n) / 1024
	unit := 0

	for v >= 1024 && unit < len(sizeUnits)-1 {
		v /= 1024
		unit++
	}

	return fmt.Sprintf("%.1f %s", v, sizeUnits[unit])
}

// formatTime renders a modification time relative to now, ls-style: the
// clock for the current year, the year otherwise.
func formatTime(t, now time.Time) string {
	t = t.Local()
	if t.Year() == now.Local().Year() {
		return t.Format("Jan _2 15:04")
	}

	return t.Format("Jan _2  2006")
}

// formatCrumbs joins breadcrumb names into a display path.
func formatCrumbs(crumbs []browse.Crumb) string {
	names := make([]string, len(crumbs))
	for i, c := range crumbs {
		names[i] = c.Name
	}

	return strings.Join(names, " / ")
}

// printTable writes headers and rows as space-padded columns.
func printTable(w io.Writer, headers []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}

	return tw.Flush()
}
