// Package report turns the results of a validation run into the text an
// operator reads.
package report

import (
	stderrors "errors"

	"github.com/wippyai/wasmcheck"
	"github.com/wippyai/wasmcheck/errors"
	"github.com/wippyai/wasmcheck/harness"
	"github.com/wippyai/wasmcheck/introspect"
)

// MemorySource names the memory a report's size was read from.
type MemorySource string

const (
	// MemoryRegion is the host-supplied region, whether the module imports
	// it or has no memory at all.
	MemoryRegion MemorySource = "host region"
	// MemoryModule is a memory the module defines itself.
	MemoryModule MemorySource = "module"
)

// Report is the summary of one run. When Valid is false, Stage and Error
// say where and why the run stopped; Imports and Exports are still filled
// in when introspection got that far.
type Report struct {
	Error        error
	File         string
	Stage        errors.Phase
	Imports      []wasmcheck.ImportDescriptor
	Exports      []wasmcheck.ExportDescriptor
	Outcomes     []harness.Outcome
	MemorySource MemorySource
	MemoryBytes  uint64
	Valid        bool
}

// Input collects what the pipeline produced. Zero fields mean the stage
// did not run.
type Input struct {
	Err          error
	Module       *introspect.Result
	File         string
	Outcomes     []harness.Outcome
	MemorySource MemorySource
	MemoryBytes  uint64
}

// Assemble builds a Report from in.
func Assemble(in Input) *Report {
	r := &Report{
		File:         in.File,
		Error:        in.Err,
		MemorySource: in.MemorySource,
		MemoryBytes:  in.MemoryBytes,
		Outcomes:     in.Outcomes,
		Valid:        in.Err == nil,
	}
	if in.Module != nil {
		r.Imports = in.Module.Imports
		r.Exports = in.Module.Exports
	}

	var e *errors.Error
	if stderrors.As(in.Err, &e) {
		r.Stage = e.Phase
	}
	return r
}

// Reason is the operator-facing failure message, or "" for a valid report.
func (r *Report) Reason() string {
	if r.Error == nil {
		return ""
	}
	var e *errors.Error
	if stderrors.As(r.Error, &e) {
		return e.Reason()
	}
	return r.Error.Error()
}

// MemoryKiB is the measured memory size in KiB.
func (r *Report) MemoryKiB() uint64 {
	return r.MemoryBytes / 1024
}

// Failed counts the outcomes that did not return normally.
func (r *Report) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if !o.OK() {
			n++
		}
	}
	return n
}
