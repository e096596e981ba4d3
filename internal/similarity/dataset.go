package similarity

import (
	"regexp"

	"query-evolver/pkg/models"
)

var orderDirective = regexp.MustCompile(`(?i)\border\s+by\b`)

type cell struct {
	row   int
	value any
}

// DatasetSimilarity compares two datasets as sets of (row index, value)
// pairs and returns |intersection| / |union|. When orderSensitive is set the
// rows are compared positionally as given; otherwise the datasets are aligned
// first. Two empty datasets score 1, exactly one empty dataset scores 0.
func DatasetSimilarity(datasetL, datasetR []models.Row, orderSensitive bool) float64 {
	var cellsL, cellsR map[cell]struct{}
	if orderSensitive {
		cellsL = positionalCells(datasetL)
		cellsR = positionalCells(datasetR)
	} else {
		viewsL := make([]ValueSet, len(datasetL))
		for i, row := range datasetL {
			viewsL[i] = rowSet(row)
		}
		viewsR := make([]ValueSet, len(datasetR))
		for i, row := range datasetR {
			viewsR[i] = rowSet(row)
		}
		orderL, orderR := alignment(viewsL, viewsR)
		cellsL = setCells(permute(viewsL, orderL))
		cellsR = setCells(permute(viewsR, orderR))
	}

	if len(cellsL) == 0 && len(cellsR) == 0 {
		return 1
	}
	if len(cellsL) == 0 || len(cellsR) == 0 {
		return 0
	}

	inter := 0
	for c := range cellsL {
		if _, ok := cellsR[c]; ok {
			inter++
		}
	}
	return float64(inter) / float64(len(cellsL)+len(cellsR)-inter)
}

func positionalCells(rows []models.Row) map[cell]struct{} {
	out := make(map[cell]struct{})
	for i, row := range rows {
		for _, v := range rowList(row) {
			out[cell{row: i, value: v}] = struct{}{}
		}
	}
	return out
}

func setCells(views []ValueSet) map[cell]struct{} {
	out := make(map[cell]struct{})
	for i, s := range views {
		for v := range s {
			out[cell{row: i, value: v}] = struct{}{}
		}
	}
	return out
}

// IsOrderSensitive reports whether either query asks for an explicit row
// order.
func IsOrderSensitive(queryL, queryR string) bool {
	return orderDirective.MatchString(queryL + " " + queryR)
}

// ComparePair scores two (query, rows) pairs, comparing rows positionally
// when either query orders its output.
func ComparePair(left, right models.ResultSet) float64 {
	return DatasetSimilarity(left.Rows, right.Rows, IsOrderSensitive(left.Query, right.Query))
}
