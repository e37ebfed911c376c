//go:build !windows

// Package probe implements the WindowProbe port against the OS window system.
package probe

import (
	"context"

	"github.com/ericfisherdev/timepanel/internal/domain/model"
	"github.com/ericfisherdev/timepanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.WindowProbe = (*Probe)(nil)

// Probe is a development stub for platforms without a foreground-window API
// binding. It reports a fixed sample so the tracking pipeline can be
// exercised end to end off Windows.
type Probe struct{}

// New creates a window probe for the current platform.
func New() *Probe {
	return &Probe{}
}

// Sample returns a fixed development sample.
func (p *Probe) Sample(ctx context.Context) (model.Sample, error) {
	if err := ctx.Err(); err != nil {
		return model.Sample{}, err
	}

	return model.Sample{
		ProcessName: "demoapp",
		WindowTitle: "Demo Window - Development Mode",
	}, nil
}
