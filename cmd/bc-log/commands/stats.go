package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/breadcrumbs/breadcrumbs-go/pkg/log"
)

// Stats aggregates a capture.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	MessagesByID      map[string]int
	InvalidMessages   int
	Pings             int
	Pongs             int
	Errors            int
	Connections       map[string]*ConnectionStats
	Start, End        time.Time
}

// ConnectionStats aggregates the events of one TCP connection.
type ConnectionStats struct {
	Component  string
	RemoteAddr string
	FirstSeen  time.Time
	LastSeen   time.Time
	Events     int
	BytesIn    int
	BytesOut   int
}

// Collect reads every event of path.
func Collect(path string) (*Stats, error) {
	reader, err := log.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		MessagesByID:      make(map[string]int),
		Connections:       make(map[string]*ConnectionStats),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return stats, nil
		}
		if err != nil {
			return stats, fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByLayer[event.Layer]++
	s.EventsByCategory[event.Category]++
	s.EventsByDirection[event.Direction]++

	if s.Start.IsZero() || event.Timestamp.Before(s.Start) {
		s.Start = event.Timestamp
	}
	if event.Timestamp.After(s.End) {
		s.End = event.Timestamp
	}

	switch {
	case event.Message != nil:
		s.MessagesByID[event.Message.ID]++
		if !event.Message.Valid {
			s.InvalidMessages++
		}
	case event.Discovery != nil:
		if event.Discovery.Type == log.DiscoveryPing {
			s.Pings++
		} else {
			s.Pongs++
		}
	case event.Error != nil:
		s.Errors++
	}

	if event.ConnectionID == "" {
		return
	}
	conn, ok := s.Connections[event.ConnectionID]
	if !ok {
		conn = &ConnectionStats{FirstSeen: event.Timestamp, LastSeen: event.Timestamp}
		s.Connections[event.ConnectionID] = conn
	}
	conn.Events++
	if event.Timestamp.After(conn.LastSeen) {
		conn.LastSeen = event.Timestamp
	}
	if conn.Component == "" {
		conn.Component = event.Component
	}
	if conn.RemoteAddr == "" {
		conn.RemoteAddr = event.RemoteAddr
	}
	if event.Frame != nil {
		if event.Direction == log.DirectionIn {
			conn.BytesIn += event.Frame.Size
		} else {
			conn.BytesOut += event.Frame.Size
		}
	}
}

// RunStats prints the statistics of path.
func RunStats(path string, w io.Writer) error {
	stats, err := Collect(path)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, s *Stats) {
	fmt.Fprintln(w, "=== breadcrumbs Protocol Log Statistics ===")
	fmt.Fprintln(w)

	if s.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n", s.Start.Format(time.RFC3339), s.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", s.End.Sub(s.Start).Round(time.Millisecond))
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "Total Events: %d\n\n", s.TotalEvents)

	fmt.Fprintln(w, "Events by Layer:")
	for _, l := range []log.Layer{log.LayerTransport, log.LayerWire, log.LayerBridge, log.LayerDiscovery} {
		if n := s.EventsByLayer[l]; n > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", l.String()+":", n)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, c := range []log.Category{log.CategoryMessage, log.CategoryControl, log.CategoryState, log.CategoryError} {
		if n := s.EventsByCategory[c]; n > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", c.String()+":", n)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Direction:")
	for _, d := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if n := s.EventsByDirection[d]; n > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", d.String()+":", n)
		}
	}
	fmt.Fprintln(w)

	if len(s.MessagesByID) > 0 {
		ids := make([]string, 0, len(s.MessagesByID))
		for id := range s.MessagesByID {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		fmt.Fprintln(w, "Messages by ID:")
		for _, id := range ids {
			fmt.Fprintf(w, "  %-20s %d\n", id, s.MessagesByID[id])
		}
		if s.InvalidMessages > 0 {
			fmt.Fprintf(w, "  invalid checksum:    %d\n", s.InvalidMessages)
		}
		fmt.Fprintln(w)
	}

	if s.Pings+s.Pongs > 0 {
		fmt.Fprintf(w, "Discovery: %d ping(s), %d pong(s)\n\n", s.Pings, s.Pongs)
	}

	fmt.Fprintf(w, "Connections: %d\n", len(s.Connections))
	ids := make([]string, 0, len(s.Connections))
	for id := range s.Connections {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return s.Connections[ids[i]].FirstSeen.Before(s.Connections[ids[j]].FirstSeen)
	})
	for _, id := range ids {
		c := s.Connections[id]
		fmt.Fprintf(w, "  [%s] %s %s: %d events, %d bytes in, %d bytes out, duration %s\n",
			shortenConnID(id), c.Component, c.RemoteAddr, c.Events, c.BytesIn, c.BytesOut,
			c.LastSeen.Sub(c.FirstSeen).Round(time.Millisecond))
	}

	if s.Errors > 0 {
		fmt.Fprintf(w, "\nErrors: %d\n", s.Errors)
	}
}
