// Package pipeline holds the stage contract and the values handed between
// the encode and probe steps of a run.
package pipeline

import (
	"context"
)

// Stage is one step of an encoding run. Implementations return ctx.Err()
// once ctx is cancelled, leaving any partial output for the caller to discard.
type Stage[In, Out any] interface {
	Execute(ctx context.Context, input In) (Out, error)
}

// EncodeStage reads frames from a source and writes a muxed file.
type EncodeStage = Stage[EncodeInput, EncodeResult]

// ProbeStage reports the layout of a written file.
type ProbeStage = Stage[ProbeInput, ProbeResult]
