package value

import (
	"encoding/binary"
	"sync/atomic"

	"github.com/google/uuid"
)

// typeIDSeed folds a freshly generated UUID down to a 32-bit starting
// point for this process's EnumSchema.TypeID counter, per SPEC_FULL.md's
// domain-stack note: a bare incrementing int starting at 0 in every process
// would let two independently compiled Chunks (each started its own
// process during compilation, later linked by the loader/VM at load time)
// mint colliding type IDs; seeding from a UUID makes that collision
// astronomically unlikely without requiring every schema to carry a full
// 128-bit identifier, which spec.md §3 fixes at 32 bits.
var typeIDCounter uint32

func init() {
	id := uuid.New()
	b := id[:4]
	typeIDCounter = binary.BigEndian.Uint32(b)
}

// nextTypeID returns the next process-unique 32-bit type ID.
func nextTypeID() uint32 {
	return atomic.AddUint32(&typeIDCounter, 1)
}
