package commands

import (
	"fmt"
	"io"

	"github.com/breadcrumbs/breadcrumbs-go/pkg/log"
)

// RunFilter copies the events of path matching filter into output and
// returns how many were written.
func RunFilter(path, output string, filter log.Filter) (int, error) {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	out, err := log.NewFileLogger(output)
	if err != nil {
		return 0, fmt.Errorf("failed to create output file: %w", err)
	}

	count := 0
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			out.Close()
			return count, fmt.Errorf("failed to read event: %w", err)
		}
		out.Log(event)
		count++
	}
	return count, out.Close()
}
