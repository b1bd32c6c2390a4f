package engine

import "testing"

func TestRecomputeStatsLoaded(t *testing.T) {
	list := &List{
		Detail:              DetailLoaded,
		Items:               items(true, false, true),
		ItemsCount:          10,
		CompletedItemsCount: 9,
	}
	RecomputeStats(list)
	if list.ItemsCount != 3 || list.CompletedItemsCount != 2 {
		t.Fatalf("expected 3/2, got %d/%d", list.ItemsCount, list.CompletedItemsCount)
	}
}

func TestRecomputeStatsClampsSummary(t *testing.T) {
	cases := []struct {
		items, completed         int
		wantItems, wantCompleted int
	}{
		{items: 4, completed: 2, wantItems: 4, wantCompleted: 2},
		{items: 2, completed: 5, wantItems: 2, wantCompleted: 2},
		{items: -1, completed: -3, wantItems: 0, wantCompleted: 0},
	}
	for _, tc := range cases {
		list := &List{ItemsCount: tc.items, CompletedItemsCount: tc.completed}
		RecomputeStats(list)
		if list.ItemsCount != tc.wantItems || list.CompletedItemsCount != tc.wantCompleted {
			t.Fatalf("expected %d/%d, got %d/%d", tc.wantItems, tc.wantCompleted, list.ItemsCount, list.CompletedItemsCount)
		}
	}
}

func TestIsEmptyNeedsLoadedDetail(t *testing.T) {
	if (List{}).IsEmpty() {
		t.Fatalf("expected not-loaded list not to be empty")
	}
	if !(List{Detail: DetailLoaded}).IsEmpty() {
		t.Fatalf("expected loaded list without items to be empty")
	}
}

func TestCachePutLoadedNeverNilItems(t *testing.T) {
	c := newCache()
	c.put(&List{ID: "x", Detail: DetailLoaded})
	list, _ := c.snapshotList("x")
	if list.Items == nil || list.ItemsCount != 0 {
		t.Fatalf("expected empty non-nil items, got %+v", list.Items)
	}
}

func TestCacheRemoveRestore(t *testing.T) {
	c := newCache()
	for _, id := range []string{"a", "b", "c"} {
		c.put(&List{ID: id})
	}
	c.setCollection(ScopeMine, []string{"a", "b", "c"}, testClock)
	c.setCollection(ScopePublic, []string{"c", "b"}, testClock)
	c.comments[threadKey("b", "item-1")] = []Comment{{ID: "c1"}}

	r := c.remove("b")
	if got := c.collectionIDs(ScopeMine); len(got) != 2 {
		t.Fatalf("expected b removed, got %v", got)
	}
	if _, ok := c.comments[threadKey("b", "item-1")]; ok {
		t.Fatalf("expected comments dropped")
	}

	c.restore(r)
	if got := c.collectionIDs(ScopeMine); got[1] != "b" {
		t.Fatalf("expected b back at index 1, got %v", got)
	}
	if got := c.collectionIDs(ScopePublic); got[1] != "b" {
		t.Fatalf("expected b back at index 1, got %v", got)
	}
	if _, ok := c.comments[threadKey("b", "item-1")]; !ok {
		t.Fatalf("expected comments restored")
	}
}
