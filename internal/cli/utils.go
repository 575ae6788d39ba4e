// Package cli provides output formatting and argument parsing for the vexus CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hyperjump/vexus/internal/models"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text" or "json".
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, OutputJSON:
		return OutputFormat(s), nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// WriteSearchResults writes search results to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d results in %dms\n\n", len(response.Results), response.QueryTime)
	for i, result := range response.Results {
		fmt.Fprintf(w, "%3d. id=%-10d score=%.6f\n", i+1, result.ID, result.Score)
	}
	return nil
}

// WriteStats writes store statistics to w in the given format.
func WriteStats(w io.Writer, stats *models.StatsResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, stats)
	}
	fmt.Fprintf(w, "count:              %d   # vectors in the index\n", stats.Count)
	fmt.Fprintf(w, "dimensions:         %d\n", stats.Dimensions)
	fmt.Fprintf(w, "capacity:           %d   # reserved slots\n", stats.Capacity)
	fmt.Fprintf(w, "memory_usage:       %d   # engine estimate, bytes\n", stats.MemoryUsage)
	if stats.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d   # index file and pending saves\n", *stats.DiskUsageBytes)
	}
	if stats.IndexType != "" {
		fmt.Fprintf(w, "index_type:         %s\n", stats.IndexType)
	}
	if stats.IndexPath != "" {
		fmt.Fprintf(w, "index_path:         %s\n", stats.IndexPath)
	}
	return nil
}

// WriteRecoverResult writes a recovery summary to w in the given format.
func WriteRecoverResult(w io.Writer, res *models.RecoverResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, res)
	}
	fmt.Fprintf(w, "inserted: %d\nskipped:  %d   # wrong dimensions\nfailed:   %d\n", res.Inserted, res.Skipped, res.Failed)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ParseVector parses comma- or space-separated floats. When dim is positive
// the vector must have exactly dim values.
func ParseVector(s string, dim int) ([]float32, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' || r == '\n' })
	if len(fields) == 0 {
		return nil, fmt.Errorf("vector cannot be empty")
	}
	vec := make([]float32, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return nil, fmt.Errorf("value %d (%q): %w", i, Truncate(f, 20), err)
		}
		vec[i] = float32(v)
	}
	if dim > 0 && len(vec) != dim {
		return nil, fmt.Errorf("vector has %d values, expected %d", len(vec), dim)
	}
	return vec, nil
}

// Truncate truncates s to maxLen and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
