package exporter

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"gridexport/pkg/contracts/domain"
)

// aggregateFormatter renders one computed aggregate for an aggregate row
type aggregateFormatter func(p *message.Printer, r domain.AggregateResult) string

// aggregateFormatters is the single place aggregate kinds are rendered.
// Adding a kind means adding an entry here.
var aggregateFormatters = map[domain.AggregateKind]aggregateFormatter{
	domain.AggregateSum: func(p *message.Printer, r domain.AggregateResult) string {
		return "Sum: " + formatGrouped(p, r.Sum)
	},
	domain.AggregateAverage: func(p *message.Printer, r domain.AggregateResult) string {
		return "Avg: " + formatFixed2(p, r.Average)
	},
	domain.AggregateCount: func(p *message.Printer, r domain.AggregateResult) string {
		return "Count: " + p.Sprint(number.Decimal(r.Count))
	},
}

// newPrinter returns the printer used for all aggregate text
func newPrinter() *message.Printer {
	return message.NewPrinter(language.English)
}

// formatAggregate renders r for kind, or "" when the kind is unknown
func formatAggregate(p *message.Printer, kind domain.AggregateKind, r domain.AggregateResult) string {
	f, ok := aggregateFormatters[kind]
	if !ok {
		return ""
	}
	return f(p, r)
}

// formatGrouped formats f with thousands separators and up to 3 fraction digits
func formatGrouped(p *message.Printer, f float64) string {
	return p.Sprint(number.Decimal(f, number.MaxFractionDigits(3)))
}

// formatFixed2 formats f with thousands separators and exactly 2 fraction digits
func formatFixed2(p *message.Printer, f float64) string {
	return p.Sprint(number.Decimal(f, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

// indent returns the two-space label indent for depth
func indent(depth int) string {
	if depth <= 0 {
		return ""
	}
	return strings.Repeat("  ", depth)
}

// stripNonASCII drops every rune above 0x7F
func stripNonASCII(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7F {
			return strings.Map(func(r rune) rune {
				if r > 0x7F {
					return -1
				}
				return r
			}, s)
		}
	}
	return s
}
