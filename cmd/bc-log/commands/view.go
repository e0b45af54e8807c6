package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"

	"github.com/breadcrumbs/breadcrumbs-go/pkg/log"
)

// RunView prints every event matching filter in human-readable form.
func RunView(path string, filter log.Filter, w io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(w, event)
	}
}

// formatEvent writes one header line, the type details, and a blank line.
func formatEvent(w io.Writer, event log.Event) {
	ts := event.Timestamp.UTC().Format(timestampLayout)

	source := event.Component
	if id := shortenConnID(event.ConnectionID); id != "" {
		source += " conn:" + id
	}
	fmt.Fprintf(w, "%s [%s] %-3s %s %s\n", ts, source, event.Direction, event.Layer, eventType(event))
	if event.RemoteAddr != "" {
		fmt.Fprintf(w, "  Remote: %s\n", event.RemoteAddr)
	}

	switch {
	case event.Frame != nil:
		fmt.Fprintf(w, "  Size: %d bytes\n", event.Frame.Size)
		if len(event.Frame.Data) > 0 {
			fmt.Fprintf(w, "  Data: %s", hex.EncodeToString(event.Frame.Data))
			if event.Frame.Truncated {
				fmt.Fprint(w, " (truncated)")
			}
			fmt.Fprintln(w)
		}
	case event.Message != nil:
		m := event.Message
		fmt.Fprintf(w, "  ID: %s\n", m.ID)
		fmt.Fprintf(w, "  Payload: %s", strconv.Quote(m.Payload))
		if m.PayloadSize > len(m.Payload) {
			fmt.Fprintf(w, " (%d of %d bytes)", len(m.Payload), m.PayloadSize)
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  Checksum: 0x%02x", m.Checksum)
		if !m.Valid {
			fmt.Fprint(w, " INVALID")
		}
		fmt.Fprintln(w)
	case event.StateChange != nil:
		sc := event.StateChange
		fmt.Fprintf(w, "  Entity: %s\n", sc.Entity)
		if sc.OldState != "" {
			fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
		} else {
			fmt.Fprintf(w, "  -> %s\n", sc.NewState)
		}
		if sc.Reason != "" {
			fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
		}
	case event.Discovery != nil:
		if event.Discovery.UpdateID != 0 {
			fmt.Fprintf(w, "  UpdateID: %d\n", event.Discovery.UpdateID)
		}
		if event.Discovery.Index != 0 {
			fmt.Fprintf(w, "  Index: %d\n", event.Discovery.Index)
		}
	case event.Error != nil:
		fmt.Fprintf(w, "  Layer: %s\n", event.Error.Layer)
		fmt.Fprintf(w, "  Message: %s\n", event.Error.Message)
		if event.Error.Context != "" {
			fmt.Fprintf(w, "  Context: %s\n", event.Error.Context)
		}
	}

	fmt.Fprintln(w)
}
