package uid

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

var (
	// processPrefix is fixed for the lifetime of the process so that ids are unique across
	// processes with high probability and unique within a process by construction.
	processPrefix = uuid.NewString()
	sequence      atomic.Uint64
)

// New returns an id that has never been returned before by this process.
func New() string {
	return processPrefix + "-" + strconv.FormatUint(sequence.Add(1), 10)
}
