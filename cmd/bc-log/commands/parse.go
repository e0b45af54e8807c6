// Package commands implements the bc-log subcommands.
package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/breadcrumbs/breadcrumbs-go/pkg/log"
)

// FilterOptions holds the filter flags shared by view, export and filter.
// Empty fields match everything.
type FilterOptions struct {
	ConnID    string
	Component string
	MessageID string
	TimeStart string
	TimeEnd   string
	Layer     string
	Direction string
	Category  string
	Role      string
}

// Build converts the flag values into a log.Filter.
func (o FilterOptions) Build() (log.Filter, error) {
	f := log.Filter{
		ConnectionID: o.ConnID,
		Component:    o.Component,
		MessageID:    o.MessageID,
	}

	if o.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, o.TimeStart)
		if err != nil {
			return f, fmt.Errorf("invalid time-start: %w", err)
		}
		f.TimeStart = &t
	}
	if o.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, o.TimeEnd)
		if err != nil {
			return f, fmt.Errorf("invalid time-end: %w", err)
		}
		f.TimeEnd = &t
	}
	if o.Layer != "" {
		l, err := ParseLayer(o.Layer)
		if err != nil {
			return f, err
		}
		f.Layer = &l
	}
	if o.Direction != "" {
		d, err := ParseDirection(o.Direction)
		if err != nil {
			return f, err
		}
		f.Direction = &d
	}
	if o.Category != "" {
		c, err := ParseCategory(o.Category)
		if err != nil {
			return f, err
		}
		f.Category = &c
	}
	if o.Role != "" {
		r, err := ParseRole(o.Role)
		if err != nil {
			return f, err
		}
		f.Role = &r
	}
	return f, nil
}

// ParseLayer parses a layer name (case-insensitive).
func ParseLayer(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "transport":
		return log.LayerTransport, nil
	case "wire":
		return log.LayerWire, nil
	case "bridge":
		return log.LayerBridge, nil
	case "discovery":
		return log.LayerDiscovery, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be transport, wire, bridge or discovery)", s)
	}
}

// ParseDirection parses in or out.
func ParseDirection(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

// ParseCategory parses a category name (case-insensitive).
func ParseCategory(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "message":
		return log.CategoryMessage, nil
	case "control":
		return log.CategoryControl, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be message, control, state or error)", s)
	}
}

// ParseRole parses client or server.
func ParseRole(s string) (log.Role, error) {
	switch strings.ToLower(s) {
	case "client":
		return log.RoleClient, nil
	case "server":
		return log.RoleServer, nil
	default:
		return 0, fmt.Errorf("invalid role: %s (must be client or server)", s)
	}
}

// eventType names the payload carried by event.
func eventType(event log.Event) string {
	switch {
	case event.Frame != nil:
		return "frame"
	case event.Message != nil:
		return "message"
	case event.StateChange != nil:
		return "state"
	case event.Discovery != nil:
		return strings.ToLower(event.Discovery.Type.String())
	case event.Error != nil:
		return "error"
	default:
		return "unknown"
	}
}

func shortenConnID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

const timestampLayout = "2006-01-02T15:04:05.000000Z"
