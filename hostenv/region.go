package hostenv

import (
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasmcheck/wasmbin"
)

// DefaultPages is the initial size of the region when the module does not
// ask for more.
const DefaultPages = 1

// Region is the single linear memory the environment supplies. It is
// exported as Module.Name; the module either imports it from there or
// defines its own memory and leaves the region unused.
//
// The module may read and write the region directly. Nothing here
// synchronizes access to it.
type Region struct {
	mem    api.Memory
	Max    *uint32
	Module string
	Name   string
	Pages  uint32
	Shared bool
	// Imported is true when a memory import placed the region.
	Imported bool
}

// Bind attaches the live memory once the environment is installed.
func (r *Region) Bind(mem api.Memory) {
	r.mem = mem
}

// Memory returns the live memory, or nil before installation.
func (r *Region) Memory() api.Memory {
	return r.mem
}

// Size returns the current size in bytes. Before installation it is the
// initial size.
func (r *Region) Size() uint64 {
	if r.mem != nil {
		return uint64(r.mem.Size())
	}
	return uint64(r.Pages) * wasmbin.PageSize
}

// Limits returns the memory type used to define the region.
func (r *Region) Limits() wasmbin.Limits {
	l := wasmbin.Limits{Min: uint64(r.Pages), Shared: r.Shared}
	if r.Max != nil {
		maxPages := uint64(*r.Max)
		l.Max = &maxPages
	}
	return l
}

// newRegion sizes a region for a memory import: at least pages, at least the
// import's minimum, never above the import's maximum.
func newRegion(module, name string, pages uint32, want *wasmbin.Limits) *Region {
	r := &Region{Module: module, Name: name, Pages: pages}
	if want == nil {
		return r
	}
	r.Imported = true
	if want.Min > uint64(r.Pages) {
		r.Pages = uint32(want.Min)
	}
	if want.Max != nil {
		maxPages := uint32(*want.Max)
		if r.Pages > maxPages {
			r.Pages = maxPages
		}
		r.Max = &maxPages
	}
	r.Shared = want.Shared
	return r
}
