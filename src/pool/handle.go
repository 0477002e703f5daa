package pool

import "fmt"

// Handle identifies a live pool session. The high 32 bits hold the generation
// of the slot, the low 32 bits the slot index plus one. Zero is never valid.
type Handle uint64

func makeHandle(gen uint32, slot int) Handle {
	return Handle(uint64(gen)<<32 | uint64(slot+1))
}

func (h Handle) slot() int {
	return int(uint32(h)) - 1
}

func (h Handle) gen() uint32 {
	return uint32(h >> 32)
}

// String ...
func (h Handle) String() string {
	if h == 0 {
		return "pool#nil"
	}
	return fmt.Sprintf("pool#%d.%d", h.slot(), h.gen())
}

type slotEntry struct {
	gen     uint32
	session *session
}

// handleTable maps handles to sessions. It is not safe for concurrent use;
// the Manager lock guards it.
type handleTable struct {
	slots []slotEntry
	free  []int
}

func newHandleTable() *handleTable {
	return &handleTable{}
}

func (t *handleTable) allocate(s *session) Handle {
	var slot int
	if n := len(t.free); n > 0 {
		slot = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		slot = len(t.slots)
		t.slots = append(t.slots, slotEntry{})
	}
	t.slots[slot].session = s
	return makeHandle(t.slots[slot].gen, slot)
}

func (t *handleTable) lookup(h Handle) (*session, bool) {
	slot := h.slot()
	if h == 0 || slot < 0 || slot >= len(t.slots) {
		return nil, false
	}
	entry := t.slots[slot]
	if entry.session == nil || entry.gen != h.gen() {
		return nil, false
	}
	return entry.session, true
}

// release frees the slot of h and bumps its generation. It reports whether h
// was live.
func (t *handleTable) release(h Handle) bool {
	if _, ok := t.lookup(h); !ok {
		return false
	}
	slot := h.slot()
	t.slots[slot].session = nil
	t.slots[slot].gen++
	t.free = append(t.free, slot)
	return true
}

func (t *handleTable) live() []*session {
	res := []*session{}
	for _, e := range t.slots {
		if e.session != nil {
			res = append(res, e.session)
		}
	}
	return res
}
