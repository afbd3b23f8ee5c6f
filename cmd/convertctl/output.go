package main

import (
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"media-converter/internal/client"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatSize(n int64) string {
	if n <= 0 {
		return "-"
	}
	return humanize.IBytes(uint64(n))
}

// formatSaving describes how much smaller the converted file is.
func formatSaving(original int64, converted *int64) string {
	if converted == nil || original <= 0 {
		return "-"
	}
	pct := 100 * (1 - float64(*converted)/float64(original))
	return fmt.Sprintf("%.1f%%", pct)
}

func statusRow(id string, st client.JobStatus) []string {
	converted := "-"
	if st.ConvertedSizeBytes != nil {
		converted = formatSize(*st.ConvertedSizeBytes)
	}
	msg := st.Error
	if msg == "" {
		msg = "-"
	}
	return []string{
		id,
		st.Status,
		formatSize(st.OriginalSizeBytes),
		converted,
		formatSaving(st.OriginalSizeBytes, st.ConvertedSizeBytes),
		msg,
	}
}

func renderStatuses(ids []string, statuses []client.JobStatus) string {
	rows := make([][]string, 0, len(ids))
	for i, id := range ids {
		rows = append(rows, statusRow(id, statuses[i]))
	}
	return renderTable(
		[]string{"Job", "Status", "Original", "Converted", "Saved", "Error"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
	)
}
