package protocol

import (
	"crypto/rand"
	"encoding/binary"
	"sync/atomic"
)

var idCounter atomic.Int64

// NewID allocates a process-unique connection id. A random low word keeps
// ids from being guessable across restarts.
func NewID() int64 {
	var salt [2]byte
	_, _ = rand.Read(salt[:])
	return idCounter.Add(1)<<16 | int64(binary.LittleEndian.Uint16(salt[:]))
}
