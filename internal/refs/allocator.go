// Package refs assigns stable slice references and sequence numbers while a
// document is being assembled. The recognition engine reports elements as a
// forest keyed by native ids; some of those elements are filtered out before
// they become slices (container nodes without visual content), so parent
// resolution has to walk the native lineage until it finds an ancestor that
// actually survived.
package refs

import "fmt"

// Allocator is the per-document bookkeeping for references and sequence
// numbers. It is not safe for concurrent use; each document owns its own
// instance.
type Allocator struct {
	nextSeq int
	refs    map[string]string // native id -> allocated ref
	lineage map[string]string // native id -> native parent id
}

// NewAllocator returns an empty allocator. Sequence numbers start at 0.
func NewAllocator() *Allocator {
	return &Allocator{
		refs:    make(map[string]string),
		lineage: make(map[string]string),
	}
}

// Track records the native parent linkage of an element, whether or not the
// element will ever be allocated a ref. Filtered elements must still be
// tracked so that their children can be promoted past them.
func (a *Allocator) Track(nativeID, nativeParentID string) {
	if nativeID == "" {
		return
	}
	a.lineage[nativeID] = nativeParentID
}

// Allocate returns the ref for a native element, assigning one on first use.
// Calling it again with the same native id returns the same ref.
func (a *Allocator) Allocate(nativeID string) string {
	if ref, ok := a.refs[nativeID]; ok {
		return ref
	}
	ref := fmt.Sprintf("#/slices/%d", len(a.refs))
	a.refs[nativeID] = ref
	return ref
}

// Allocated reports the ref previously assigned to a native id, if any.
func (a *Allocator) Allocated(nativeID string) (string, bool) {
	ref, ok := a.refs[nativeID]
	return ref, ok
}

// NextSequence returns the next global sequence number. Sequence numbers are
// monotonic and never reused within a document.
func (a *Allocator) NextSequence() int {
	seq := a.nextSeq
	a.nextSeq++
	return seq
}

// ResolveParent maps a native parent id to the ref of the nearest surviving
// ancestor. When the direct parent was filtered out, the walk continues up
// the native lineage; when no ancestor survived, the element is a root and
// ok is false.
func (a *Allocator) ResolveParent(nativeParentID string) (string, bool) {
	seen := make(map[string]bool)
	for id := nativeParentID; id != ""; id = a.lineage[id] {
		if seen[id] {
			// Defect in the native stream; treat as root rather than spin.
			return "", false
		}
		seen[id] = true
		if ref, ok := a.refs[id]; ok {
			return ref, true
		}
	}
	return "", false
}
