package sequencer

import (
	"sort"

	"github.com/Lcchy/gisele"
)

// EventBuffer is one materialized loop: the sorted events of a single
// cycle together with the loop geometry they were generated for. Buffers
// are immutable once handed to the real-time side; a change of any kind
// produces a new buffer with a higher Generation.
type EventBuffer struct {
	Events     gisele.Events
	Loop       gisele.LoopSpec
	Generation uint64
}

// indexAt returns the index of the first event at or after frame, so a
// mid-cycle swap can resume emission without replaying earlier events.
func (b *EventBuffer) indexAt(frame uint32) int {
	return sort.Search(len(b.Events), func(i int) bool {
		return b.Events[i].Frame >= frame
	})
}
