package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

var csvHeader = []string{
	"project_id",
	"bucket_name",
	"storage_class",
	"location",
	"location_type",
	"autoclass_enabled",
	"autoclass_terminal_storage_class",
	"requester_pays",
	"migration_status",
	"attempts",
	"error",
	"duration_ms",
}

// WriteCSV writes the report as one row per bucket.
func WriteCSV(w io.Writer, r Report) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, o := range r.Outcomes {
		row := []string{
			o.Project,
			o.Bucket,
			o.Info.StorageClass,
			o.Info.Location,
			o.Info.LocationType,
			strconv.FormatBool(o.Info.AutoclassEnabled),
			o.Info.TerminalStorageClass,
			strconv.FormatBool(o.Info.RequesterPays),
			string(o.Status),
			strconv.Itoa(o.Attempts),
			o.Err,
			strconv.FormatInt(o.FinishedAt.Sub(o.StartedAt).Milliseconds(), 10),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row for %s: %w", o.Bucket, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the report to the given path.
func WriteCSVFile(path string, r Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	if err := WriteCSV(f, r); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}
