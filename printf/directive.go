package printf

// Conversion is the action selected by a directive's conversion character.
type Conversion uint8

const (
	// ConvInteger renders the floor of the argument ('d', 'i').
	ConvInteger Conversion = iota
	// ConvFixed renders the argument with a fixed number of decimals ('f').
	ConvFixed
	// ConvString renders the argument's string form ('s').
	ConvString
	// ConvPercent renders a literal '%' ("%%").
	ConvPercent
	// ConvUnknown passes "%" and the character through unchanged.
	ConvUnknown
	// ConvTruncated marks a '%' with no conversion character before the end.
	ConvTruncated
)

// DefaultPrecision applies to 'f' when no precision digits are given.
const DefaultPrecision = 6

// maxPrecision bounds the decimals rendered for 'f'.
const maxPrecision = 100

// Directive is one parsed "%[digits][.digits]c" sequence.
type Directive struct {
	// Padding holds the width digits. They are recognized and consumed but
	// never applied to the output.
	Padding      string
	Precision    string
	HasPrecision bool
	Conversion   Conversion
	Verb         byte
}

// ConsumesArg reports whether the directive takes the next argument.
func (d Directive) ConsumesArg() bool {
	switch d.Conversion {
	case ConvInteger, ConvFixed, ConvString:
		return true
	default:
		return false
	}
}

// Decimals returns the number of decimal places for ConvFixed.
func (d Directive) Decimals() int {
	if d.Precision == "" {
		return DefaultPrecision
	}
	n := 0
	for i := 0; i < len(d.Precision); i++ {
		n = n*10 + int(d.Precision[i]-'0')
		if n > maxPrecision {
			return maxPrecision
		}
	}
	return n
}

func conversionOf(c byte) Conversion {
	switch c {
	case 'd', 'i':
		return ConvInteger
	case 'f':
		return ConvFixed
	case 's':
		return ConvString
	case '%':
		return ConvPercent
	default:
		return ConvUnknown
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// segment is either a literal run of the template or a directive.
type segment struct {
	literal   string
	directive Directive
	isLiteral bool
}

// scan splits a template into literal runs and directives, in order.
// It never fails: malformed directives become ConvUnknown or ConvTruncated.
func scan(template string, emit func(segment)) {
	start := 0
	i := 0
	for i < len(template) {
		if template[i] != '%' {
			i++
			continue
		}
		if i > start {
			emit(segment{literal: template[start:i], isLiteral: true})
		}
		i++

		var d Directive
		p := i
		for i < len(template) && isDigit(template[i]) {
			i++
		}
		d.Padding = template[p:i]

		if i < len(template) && template[i] == '.' {
			i++
			d.HasPrecision = true
			p = i
			for i < len(template) && isDigit(template[i]) {
				i++
			}
			d.Precision = template[p:i]
		}

		if i >= len(template) {
			d.Conversion = ConvTruncated
		} else {
			d.Verb = template[i]
			d.Conversion = conversionOf(d.Verb)
			i++
		}
		emit(segment{directive: d})
		start = i
	}
	if start < len(template) {
		emit(segment{literal: template[start:], isLiteral: true})
	}
}

// Parse returns the directives of template in order, including "%%" and
// unknown conversions.
func Parse(template string) []Directive {
	var out []Directive
	scan(template, func(s segment) {
		if !s.isLiteral {
			out = append(out, s.directive)
		}
	})
	return out
}
