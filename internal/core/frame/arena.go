// Package frame provides a bump allocator for scratch memory that lives for a
// single tick.
package frame

import (
	"fmt"
	"reflect"
	"unsafe"
)

const (
	wordSize = 8
	// DefaultChunk is the size in bytes of each chunk when none is given.
	DefaultChunk = 1 << 20
)

// Arena hands out zeroed slices carved from large chunks. Nothing is freed
// individually; Reset rewinds the whole arena and keeps its chunks. An Arena
// is not safe for concurrent use, so scratch for parallel jobs is carved out
// before the jobs start.
type Arena struct {
	chunks [][]uint64
	cur    int
	off    int
	words  int
	used   int
}

// New returns an arena whose chunks hold at least chunkBytes each.
func New(chunkBytes int) *Arena {
	if chunkBytes <= 0 {
		chunkBytes = DefaultChunk
	}
	return &Arena{words: (chunkBytes + wordSize - 1) / wordSize}
}

// Used returns the number of bytes handed out since the last Reset.
func (a *Arena) Used() int { return a.used }

// Reset rewinds the arena. Slices returned earlier must no longer be used.
func (a *Arena) Reset() {
	a.cur, a.off, a.used = 0, 0, 0
}

func (a *Arena) alloc(bytes int) unsafe.Pointer {
	w := (bytes + wordSize - 1) / wordSize
	for {
		if a.cur < len(a.chunks) {
			c := a.chunks[a.cur]
			if a.off+w <= len(c) {
				p := c[a.off : a.off+w]
				clear(p)
				a.off += w
				a.used += w * wordSize
				return unsafe.Pointer(unsafe.SliceData(p))
			}
			a.cur++
			a.off = 0
			continue
		}
		a.chunks = append(a.chunks, make([]uint64, max(a.words, w)))
	}
}

// Make returns a zeroed slice of n T. T must not contain Go pointers and must
// not need more than 8-byte alignment. A nil arena allocates from the heap.
func Make[T any](a *Arena, n int) []T {
	if n <= 0 {
		return nil
	}
	var zero T
	size := int(unsafe.Sizeof(zero))
	if a == nil || size == 0 {
		return make([]T, n)
	}
	if unsafe.Alignof(zero) > wordSize {
		panic(fmt.Sprintf("frame: %T alignment %d unsupported", zero, unsafe.Alignof(zero)))
	}
	if hasPointers(reflect.TypeFor[T]()) {
		panic(fmt.Sprintf("frame: %T contains pointers", zero))
	}
	return unsafe.Slice((*T)(a.alloc(size*n)), n)
}

// Grow returns s with room for at least extra more elements, moving it into
// the arena when it has to reallocate.
func Grow[T any](a *Arena, s []T, extra int) []T {
	if cap(s)-len(s) >= extra {
		return s
	}
	n := max(2*cap(s), len(s)+extra, 16)
	out := Make[T](a, n)[:len(s)]
	copy(out, s)
	return out
}

// Append appends vs to s, growing from the arena.
func Append[T any](a *Arena, s []T, vs ...T) []T {
	s = Grow(a, s, len(vs))
	return append(s, vs...)
}

func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Slice,
		reflect.String, reflect.Chan, reflect.Func, reflect.Interface:
		return true
	case reflect.Array:
		return t.Len() > 0 && hasPointers(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
	}
	return false
}
