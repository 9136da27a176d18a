// Package reporter provides console and JUnit reporting of test lifecycle
// events.
package reporter

import (
	"context"
	"fmt"

	"github.com/yaklabco/buildtest/pkg/events"
)

// New creates the listeners for the specified format. Console output is
// always included; the file format adds a JUnit XML writer.
func New(ctx context.Context, opts Options) ([]events.Listener, error) {
	opts = opts.withDefaults()
	if !opts.Format.IsValid() {
		return nil, fmt.Errorf("unsupported format: %s", opts.Format)
	}

	listeners := []events.Listener{NewSpecReporter(opts)}

	switch opts.Format {
	case FormatFile:
		junit, err := NewJUnitReporter(ctx, opts.JUnitPath(), opts)
		if err != nil {
			return nil, err
		}
		listeners = append(listeners, junit)
	case FormatConsole:
	}

	return listeners, nil
}
