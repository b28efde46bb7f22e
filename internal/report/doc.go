// Package report writes the artifacts of a finished run: the two-column
// count summary CSV, an HTML bar chart of the counts and a PNG timeline of
// cumulative crossings per line.
package report
