package exporter

import (
	"github.com/spf13/cast"

	"gridexport/pkg/contracts/domain"
)

// groupKey identifies a group value. nil never collides with "".
type groupKey struct {
	isNil bool
	value string
}

func keyOf(v interface{}) groupKey {
	if v == nil {
		return groupKey{isNil: true}
	}
	return groupKey{value: cast.ToString(v)}
}

// Group nests rows into one GroupNode level per field, in field order.
// Groups appear in order of first occurrence and rows keep their input
// order inside a group. Every node carries the requested aggregates
// computed over all rows beneath it.
func Group(rows []domain.Row, fields []string, aggregates []domain.Aggregate) []domain.Item {
	if len(fields) == 0 {
		items := make([]domain.Item, 0, len(rows))
		for _, row := range rows {
			items = append(items, row)
		}
		return items
	}

	field := fields[0]
	var order []groupKey
	buckets := make(map[groupKey][]domain.Row)
	values := make(map[groupKey]interface{})
	for _, row := range rows {
		v := row.Value(field)
		k := keyOf(v)
		if _, seen := buckets[k]; !seen {
			order = append(order, k)
			values[k] = v
		}
		buckets[k] = append(buckets[k], row)
	}

	items := make([]domain.Item, 0, len(order))
	for _, k := range order {
		members := buckets[k]
		items = append(items, &domain.GroupNode{
			Field:      field,
			Value:      values[k],
			Items:      Group(members, fields[1:], aggregates),
			Aggregates: computeAggregates(members, aggregates),
		})
	}
	return items
}

func computeAggregates(rows []domain.Row, aggregates []domain.Aggregate) map[string]domain.AggregateResult {
	if len(aggregates) == 0 {
		return nil
	}
	out := make(map[string]domain.AggregateResult, len(aggregates))
	for _, agg := range aggregates {
		var (
			res     domain.AggregateResult
			numeric int
		)
		for _, row := range rows {
			res.Count++
			// text cells, numeric-looking or not, never count toward sums
			f, ok := numericValue(row.Value(agg.Field))
			if !ok {
				continue
			}
			res.Sum += f
			numeric++
		}
		if numeric > 0 {
			res.Average = res.Sum / float64(numeric)
		}
		out[agg.Field] = res
	}
	return out
}
