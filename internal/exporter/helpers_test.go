package exporter

import (
	"github.com/keboola/go-utils/pkg/orderedmap"

	"gridexport/pkg/contracts/domain"
)

// row builds a row from alternating field/value arguments
func row(kv ...interface{}) domain.Row {
	pairs := make([]orderedmap.Pair, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		pairs = append(pairs, orderedmap.Pair{Key: kv[i].(string), Value: kv[i+1]})
	}
	return domain.NewRow(pairs...)
}

func salesRows() []domain.Row {
	return []domain.Row{
		row("region", "East", "sales", 10.0),
		row("region", "East", "sales", 20.0),
		row("region", "West", "sales", 5.0),
	}
}

func salesColumns() []domain.Column {
	return []domain.Column{
		{Field: "region", Title: "Region"},
		{Field: "sales", Title: "Sales"},
	}
}

func sumSales() []domain.Aggregate {
	return []domain.Aggregate{{Field: "sales", Aggregate: domain.AggregateSum}}
}

// labels returns the primary field of every record
func labels(records []domain.FlatRecord, primary string) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		v, _ := r.Get(primary)
		s, _ := v.(string)
		out = append(out, s)
	}
	return out
}

func values(records []domain.FlatRecord, field string) []interface{} {
	out := make([]interface{}, 0, len(records))
	for _, r := range records {
		v, _ := r.Get(field)
		out = append(out, v)
	}
	return out
}

func get(m *orderedmap.OrderedMap, key string) interface{} {
	v, _ := m.Get(key)
	return v
}
