package printf

import (
	"math"
	"testing"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		template string
		args     []Arg
		want     string
	}{
		{"floor positive", "%d", []Arg{Float(3.7)}, "3"},
		{"floor negative", "%d", []Arg{Float(-3.7)}, "-4"},
		{"floor negative zero", "%d", []Arg{Float(-0.0)}, "0"},
		{"floor small negative", "%i", []Arg{Float(-0.2)}, "-1"},
		{"integer arg", "%d", []Arg{Int(-12)}, "-12"},
		{"padding ignored precision applied", "%5.2f", []Arg{Float(3.14159)}, "3.14"},
		{"default precision", "%f", []Arg{Float(1.5)}, "1.500000"},
		{"empty precision uses default", "%.f", []Arg{Float(2)}, "2.000000"},
		{"zero precision", "%.0f", []Arg{Float(2.4)}, "2"},
		{"fixed from int", "%.1f", []Arg{Int(7)}, "7.0"},
		{"literal percent", "%%", nil, "%"},
		{"unknown passes through", "%z", nil, "%z"},
		{"unknown drops padding", "%08x", []Arg{Int(255)}, "%x"},
		{"string coercion", "literal %s end", []Arg{Int(42)}, "literal 42 end"},
		{"string coercion float", "%s", []Arg{Float(2.5)}, "2.5"},
		{"string coercion integral float", "%s", []Arg{Float(42)}, "42"},
		{"string coercion large float", "%s", []Arg{Float(1e21)}, "1e+21"},
		{"mixed", "F(%d) = %d\n", []Arg{Int(5), Int(5)}, "F(5) = 5\n"},
		{"percent does not consume", "%d%% of %d", []Arg{Int(50), Int(10)}, "50% of 10"},
		{"unknown does not consume", "%q %d", []Arg{Int(9)}, "%q 9"},
		{"missing arg renders zero", "%d and %d", []Arg{Int(1)}, "1 and 0"},
		{"missing float arg renders zero", "%.2f", nil, "0.00"},
		{"extra args ignored", "%d", []Arg{Int(1), Int(2)}, "1"},
		{"trailing percent", "100%", nil, "100%"},
		{"trailing width", "x%12", nil, "x%"},
		{"no directives", "plain text", []Arg{Int(1)}, "plain text"},
		{"empty", "", nil, ""},
		{"non-ascii literal", "température: %d°", []Arg{Int(21)}, "température: 21°"},
		{"nan", "%d %f %s", []Arg{Float(math.NaN()), Float(math.Inf(1)), Float(math.Inf(-1))}, "NaN +Inf -Inf"},
		{"huge precision clamped", "%.999f", []Arg{Int(1)}, "1." + zeros(100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Render(tt.template, tt.args)
			if got != tt.want {
				t.Errorf("Render(%q, %v) = %q, want %q", tt.template, tt.args, got, tt.want)
			}
		})
	}
}

func zeros(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = '0'
	}
	return string(b)
}

func TestParse(t *testing.T) {
	dirs := Parse("a %5.2f b %d %% %z %.s %")
	want := []Directive{
		{Padding: "5", Precision: "2", HasPrecision: true, Conversion: ConvFixed, Verb: 'f'},
		{Conversion: ConvInteger, Verb: 'd'},
		{Conversion: ConvPercent, Verb: '%'},
		{Conversion: ConvUnknown, Verb: 'z'},
		{HasPrecision: true, Conversion: ConvString, Verb: 's'},
		{Conversion: ConvTruncated},
	}
	if len(dirs) != len(want) {
		t.Fatalf("Parse() returned %d directives, want %d: %+v", len(dirs), len(want), dirs)
	}
	for i := range want {
		if dirs[i] != want[i] {
			t.Errorf("directive[%d] = %+v, want %+v", i, dirs[i], want[i])
		}
	}
}

func TestDirective_ConsumesArg(t *testing.T) {
	tests := []struct {
		conv Conversion
		want bool
	}{
		{ConvInteger, true},
		{ConvFixed, true},
		{ConvString, true},
		{ConvPercent, false},
		{ConvUnknown, false},
		{ConvTruncated, false},
	}
	for _, tt := range tests {
		if got := (Directive{Conversion: tt.conv}).ConsumesArg(); got != tt.want {
			t.Errorf("ConsumesArg(%d) = %v, want %v", tt.conv, got, tt.want)
		}
	}
}

func TestMissing(t *testing.T) {
	if got := Missing("%d %f %s %%", 1); got != 2 {
		t.Errorf("Missing() = %d, want 2", got)
	}
	if got := Missing("%d", 3); got != 0 {
		t.Errorf("Missing() = %d, want 0", got)
	}
}
