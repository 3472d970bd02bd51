package testutil

import (
	"github.com/keboola/go-utils/pkg/orderedmap"

	"gridexport/pkg/contracts/domain"
)

// Row builds a row from alternating field names and values
func Row(kv ...interface{}) domain.Row {
	pairs := make([]orderedmap.Pair, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		pairs = append(pairs, orderedmap.Pair{Key: kv[i].(string), Value: kv[i+1]})
	}
	return domain.NewRow(pairs...)
}

// SalesRows returns four rows over two regions
func SalesRows() []domain.Row {
	return []domain.Row{
		Row("region", "East", "product", "A", "sales", 10),
		Row("region", "West", "product", "B", "sales", 5),
		Row("region", "East", "product", "C", "sales", 20),
		Row("region", "West", "product", "D", "sales", 7),
	}
}

// SalesColumns returns the columns of SalesRows
func SalesColumns() []domain.Column {
	return []domain.Column{
		{Field: "region", Title: "Region"},
		{Field: "product", Title: "Product"},
		{Field: "sales", Title: "Sales"},
	}
}

// SalesGrid returns an ungrouped grid showing every sales row
func SalesGrid() domain.GridState {
	rows := SalesRows()
	return domain.GridState{
		ProcessedRows: rows,
		SourceRows:    rows,
		Page:          domain.PageState{Take: 10},
		Columns:       SalesColumns(),
	}
}

// GroupedSalesGrid returns SalesGrid grouped by region with a sum of sales
func GroupedSalesGrid() domain.GridState {
	grid := SalesGrid()
	grid.Page.Group = []string{"region"}
	grid.Aggregates = []domain.Aggregate{{Field: "sales", Aggregate: domain.AggregateSum}}
	return grid
}
