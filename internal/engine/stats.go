package engine

// RecomputeStats derives ItemsCount and CompletedItemsCount from the item
// array. It runs after every change to Items; counts sent by the server are
// never kept for a loaded list. A list without loaded detail keeps its summary
// counts, clamped to 0 <= completed <= items.
func RecomputeStats(list *List) {
	if list == nil {
		return
	}
	if list.Detail == DetailLoaded {
		list.ItemsCount = len(list.Items)
		list.CompletedItemsCount = CountCompleted(list.Items)
		return
	}
	if list.ItemsCount < 0 {
		list.ItemsCount = 0
	}
	if list.CompletedItemsCount < 0 {
		list.CompletedItemsCount = 0
	}
	if list.CompletedItemsCount > list.ItemsCount {
		list.CompletedItemsCount = list.ItemsCount
	}
}

func CountCompleted(items []Item) int {
	count := 0
	for i := range items {
		if items[i].IsCompleted {
			count++
		}
	}
	return count
}
