package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/breadcrumbs/breadcrumbs-go/pkg/log"
)

// RunExport writes the events of path matching filter to w as jsonl or csv.
func RunExport(path, format string, filter log.Filter, w io.Writer) error {
	var write func(log.Event) error
	var flush func() error

	switch format {
	case "jsonl":
		enc := json.NewEncoder(w)
		write = func(e log.Event) error { return enc.Encode(e) }
		flush = func() error { return nil }
	case "csv":
		cw := csv.NewWriter(w)
		header := []string{"timestamp", "component", "connection_id", "remote", "direction", "layer", "category", "type", "id", "size", "valid"}
		if err := cw.Write(header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		write = func(e log.Event) error { return cw.Write(csvRow(e)) }
		flush = func() error {
			cw.Flush()
			return cw.Error()
		}
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return flush()
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := write(event); err != nil {
			return fmt.Errorf("failed to write event: %w", err)
		}
	}
}

func csvRow(e log.Event) []string {
	var id, size, valid string
	switch {
	case e.Message != nil:
		id = e.Message.ID
		size = strconv.Itoa(e.Message.PayloadSize)
		valid = strconv.FormatBool(e.Message.Valid)
	case e.Frame != nil:
		size = strconv.Itoa(e.Frame.Size)
	case e.Discovery != nil && e.Discovery.UpdateID != 0:
		id = strconv.FormatInt(e.Discovery.UpdateID, 10)
	}
	return []string{
		e.Timestamp.UTC().Format(timestampLayout),
		e.Component,
		e.ConnectionID,
		e.RemoteAddr,
		e.Direction.String(),
		e.Layer.String(),
		e.Category.String(),
		eventType(e),
		id,
		size,
		valid,
	}
}
