package exporter

import (
	"github.com/keboola/go-utils/pkg/orderedmap"
	"github.com/spf13/cast"
	"golang.org/x/text/message"

	"gridexport/pkg/contracts/domain"
)

// Flatten converts a grouped item list into export records in pre-order:
// a group header, the group's children one level deeper, then the group's
// aggregate row. Order is never changed. primary names the field that
// receives the synthesized labels.
func Flatten(items []domain.Item, aggregates []domain.Aggregate, primary string) []domain.FlatRecord {
	f := flattener{aggregates: aggregates, primary: primary, printer: newPrinter()}
	out := make([]domain.FlatRecord, 0, len(items))
	return f.flatten(out, items, 0)
}

type flattener struct {
	aggregates []domain.Aggregate
	primary    string
	printer    *message.Printer
}

func (f flattener) flatten(out []domain.FlatRecord, items []domain.Item, depth int) []domain.FlatRecord {
	for _, item := range items {
		switch it := item.(type) {
		case *domain.GroupNode:
			out = append(out, f.header(it, depth))
			out = f.flatten(out, it.Items, depth+1)
			if len(it.Aggregates) > 0 && len(f.aggregates) > 0 {
				out = append(out, f.summary(it, depth+1))
			}
		case domain.Row:
			out = append(out, f.leaf(it, depth))
		}
	}
	return out
}

func (f flattener) header(node *domain.GroupNode, depth int) domain.FlatRecord {
	values := orderedmap.New()
	values.Set(f.primary, indent(depth)+node.Field+": "+cast.ToString(node.Value))
	for _, agg := range f.aggregates {
		if agg.Field != f.primary {
			values.Set(agg.Field, "")
		}
	}
	return domain.FlatRecord{Kind: domain.RecordGroupHeader, Depth: depth, Values: values}
}

func (f flattener) summary(node *domain.GroupNode, depth int) domain.FlatRecord {
	values := orderedmap.New()
	values.Set(f.primary, indent(depth)+"Aggregates")
	for _, agg := range f.aggregates {
		if agg.Field == f.primary {
			continue
		}
		res, ok := node.Aggregates[agg.Field]
		if !ok {
			values.Set(agg.Field, "")
			continue
		}
		values.Set(agg.Field, formatAggregate(f.printer, agg.Aggregate, res))
	}
	return domain.FlatRecord{Kind: domain.RecordAggregate, Depth: depth, Values: values}
}

func (f flattener) leaf(row domain.Row, depth int) domain.FlatRecord {
	values := row.Copy()
	if depth > 0 {
		values.Set(f.primary, indent(depth)+cast.ToString(row.Value(f.primary)))
	}
	return domain.FlatRecord{Kind: domain.RecordData, Depth: depth, Values: values}
}

// Records wraps ungrouped rows as data records
func Records(rows []domain.Row) []domain.FlatRecord {
	out := make([]domain.FlatRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.FlatRecord{Kind: domain.RecordData, Values: row.Copy()})
	}
	return out
}
