package coord

import (
	"time"

	"github.com/abelbrown/delayboard/internal/viewmodel"
)

// SourceDone is sent when one source of a cycle finishes.
type SourceDone struct {
	Source  viewmodel.Source
	Cycle   uint64
	Seq     uint64
	Outcome viewmodel.Outcome // meaningful only when Err is nil
	Count   int
	Err     error
}

// CycleDone is sent when every source of a cycle has finished.
type CycleDone struct {
	Cycle    uint64
	Failed   int
	Duration time.Duration
}
