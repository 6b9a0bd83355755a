// Package printf renders C printf-style templates against numeric arguments.
//
// Only the subset emitted by small embedded C programs is interpreted:
//
//	%d %i   floor of the argument, as an integer
//	%f      fixed decimals, precision digits applied (default 6)
//	%s      string form of the argument
//	%%      literal percent
//
// Width digits are consumed but not applied, so "%5.2f" renders 3.14159 as
// "3.14". Any other conversion character is copied through with its '%'.
// Render never fails; an argument that is not supplied renders as zero.
package printf

import (
	"strings"
)

// Render expands template using args left to right.
func Render(template string, args []Arg) string {
	var b strings.Builder
	b.Grow(len(template))

	next := 0
	take := func() Arg {
		if next >= len(args) {
			next++
			return Arg{}
		}
		a := args[next]
		next++
		return a
	}

	scan(template, func(s segment) {
		if s.isLiteral {
			b.WriteString(s.literal)
			return
		}
		d := s.directive
		switch d.Conversion {
		case ConvInteger:
			b.WriteString(take().floorString())
		case ConvFixed:
			b.WriteString(take().fixedString(d.Decimals()))
		case ConvString:
			b.WriteString(take().String())
		case ConvPercent, ConvTruncated:
			b.WriteByte('%')
		case ConvUnknown:
			b.WriteByte('%')
			b.WriteByte(d.Verb)
		}
	})

	return b.String()
}

// Missing reports how many arguments template requests beyond the n supplied.
func Missing(template string, n int) int {
	want := 0
	for _, d := range Parse(template) {
		if d.ConsumesArg() {
			want++
		}
	}
	if want > n {
		return want - n
	}
	return 0
}
