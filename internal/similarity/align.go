package similarity

import "query-evolver/pkg/models"

// rowSet reduces a row to the set of its hashable values.
func rowSet(row models.Row) ValueSet {
	s := make(ValueSet, len(row))
	for _, v := range row {
		s[ToHashable(v)] = struct{}{}
	}
	return s
}

// rowList reduces a row to its hashable values, duplicates kept.
func rowList(row models.Row) []any {
	out := make([]any, 0, len(row))
	for _, v := range row {
		out = append(out, ToHashable(v))
	}
	return out
}

// alignment returns, for each side, the original row index at every aligned
// position. The shorter side drives a greedy prefix-first search: position i
// takes the best remaining candidate at index >= i of the longer side, the
// first maximum winning ties. This is not a globally optimal assignment.
func alignment(viewsL, viewsR []ValueSet) (orderL, orderR []int) {
	orderL = identity(len(viewsL))
	orderR = identity(len(viewsR))

	short, long := viewsL, viewsR
	longOrder := orderR
	if len(viewsL) > len(viewsR) {
		short, long = viewsR, viewsL
		longOrder = orderL
	}

	longViews := make([]ValueSet, len(long))
	copy(longViews, long)

	for i := range short {
		best, bestJ := -1.0, -1
		for j := i; j < len(longViews); j++ {
			if sim := rowSimilarity(short[i], longViews[j]); sim > best {
				best, bestJ = sim, j
			}
		}
		longViews[i], longViews[bestJ] = longViews[bestJ], longViews[i]
		longOrder[i], longOrder[bestJ] = longOrder[bestJ], longOrder[i]
	}
	return orderL, orderR
}

func identity(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// AlignRows reorders the longer dataset so that each row of the shorter one
// sits next to its greedy best match. The shorter dataset keeps its order.
func AlignRows(datasetL, datasetR []models.Row) ([]models.Row, []models.Row) {
	viewsL := make([]ValueSet, len(datasetL))
	for i, row := range datasetL {
		viewsL[i] = rowSet(row)
	}
	viewsR := make([]ValueSet, len(datasetR))
	for i, row := range datasetR {
		viewsR[i] = rowSet(row)
	}

	orderL, orderR := alignment(viewsL, viewsR)
	return permute(datasetL, orderL), permute(datasetR, orderR)
}

func permute[T any](items []T, order []int) []T {
	out := make([]T, len(order))
	for i, idx := range order {
		out[i] = items[idx]
	}
	return out
}
