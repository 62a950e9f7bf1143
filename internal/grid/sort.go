package grid

// ToggleSort cycles the sort state of columnID: none, ascending, descending,
// then none again. A toggled key that stays sorted moves to the end of the
// priority list. The input slice is not modified.
func ToggleSort(sorts []Sort, columnID string) []Sort {
	out := make([]Sort, 0, len(sorts)+1)
	var cur *Sort
	for i := range sorts {
		if sorts[i].ColumnID == columnID {
			cur = &sorts[i]
			continue
		}
		out = append(out, sorts[i])
	}
	switch {
	case cur == nil:
		out = append(out, Sort{ColumnID: columnID, Direction: SortAsc})
	case cur.Direction == SortAsc:
		out = append(out, Sort{ColumnID: columnID, Direction: SortDesc})
	}
	return out
}
