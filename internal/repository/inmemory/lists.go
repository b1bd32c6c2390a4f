package inmemory

import (
	"context"
	"sort"
	"strings"
	"sync"

	listsdomain "family-lists-go/internal/domain/lists"
)

// ListsRepository keeps the lists service state in process memory. Writes and
// transactions are serialized; a transaction works on a copy that replaces
// the state only when fn succeeds.
type ListsRepository struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data *listsData
}

var _ listsdomain.Repository = (*ListsRepository)(nil)

func NewListsRepository() *ListsRepository {
	return &ListsRepository{data: newListsData()}
}

type ratingKey struct {
	itemID string
	userID string
}

type starKey struct {
	listID string
	userID string
}

type listsData struct {
	lists    map[string]listsdomain.List
	items    map[string]listsdomain.Item
	comments []listsdomain.Comment
	ratings  map[ratingKey]listsdomain.Rating
	stars    map[starKey]listsdomain.Star
}

func newListsData() *listsData {
	return &listsData{
		lists:   make(map[string]listsdomain.List),
		items:   make(map[string]listsdomain.Item),
		ratings: make(map[ratingKey]listsdomain.Rating),
		stars:   make(map[starKey]listsdomain.Star),
	}
}

func (d *listsData) clone() *listsData {
	cloned := newListsData()
	for id, list := range d.lists {
		cloned.lists[id] = list
	}
	for id, item := range d.items {
		cloned.items[id] = item
	}
	cloned.comments = append([]listsdomain.Comment(nil), d.comments...)
	for key, rating := range d.ratings {
		cloned.ratings[key] = rating
	}
	for key, star := range d.stars {
		cloned.stars[key] = star
	}
	return cloned
}

func (r *ListsRepository) Transaction(ctx context.Context, fn func(listsdomain.Repository) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.mu.RLock()
	tx := r.data.clone()
	r.mu.RUnlock()

	if err := fn(tx); err != nil {
		return err
	}

	r.mu.Lock()
	r.data = tx
	r.mu.Unlock()
	return nil
}

func (r *ListsRepository) read(fn func(*listsData) error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return fn(r.data)
}

func (r *ListsRepository) write(fn func(*listsData) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(r.data)
}

func (r *ListsRepository) LockList(ctx context.Context, listID string) error {
	return nil
}

func (r *ListsRepository) ListLists(ctx context.Context, filter listsdomain.ListFilter) (result []listsdomain.List, err error) {
	err = r.read(func(d *listsData) error {
		result, err = d.ListLists(ctx, filter)
		return err
	})
	return result, err
}

func (r *ListsRepository) GetList(ctx context.Context, listID string) (result *listsdomain.List, err error) {
	err = r.read(func(d *listsData) error {
		result, err = d.GetList(ctx, listID)
		return err
	})
	return result, err
}

func (r *ListsRepository) CreateList(ctx context.Context, list *listsdomain.List) error {
	return r.write(func(d *listsData) error { return d.CreateList(ctx, list) })
}

func (r *ListsRepository) UpdateList(ctx context.Context, list *listsdomain.List) error {
	return r.write(func(d *listsData) error { return d.UpdateList(ctx, list) })
}

func (r *ListsRepository) SoftDeleteList(ctx context.Context, listID string) (deleted bool, err error) {
	err = r.write(func(d *listsData) error {
		deleted, err = d.SoftDeleteList(ctx, listID)
		return err
	})
	return deleted, err
}

func (r *ListsRepository) CountItemsByListIDs(ctx context.Context, listIDs []string) (result map[string]listsdomain.ItemCounts, err error) {
	err = r.read(func(d *listsData) error {
		result, err = d.CountItemsByListIDs(ctx, listIDs)
		return err
	})
	return result, err
}

func (r *ListsRepository) ListItems(ctx context.Context, listID string) (result []listsdomain.Item, err error) {
	err = r.read(func(d *listsData) error {
		result, err = d.ListItems(ctx, listID)
		return err
	})
	return result, err
}

func (r *ListsRepository) GetItem(ctx context.Context, listID, itemID string) (result *listsdomain.Item, err error) {
	err = r.read(func(d *listsData) error {
		result, err = d.GetItem(ctx, listID, itemID)
		return err
	})
	return result, err
}

func (r *ListsRepository) GetMaxPosition(ctx context.Context, listID string) (result int, err error) {
	err = r.read(func(d *listsData) error {
		result, err = d.GetMaxPosition(ctx, listID)
		return err
	})
	return result, err
}

func (r *ListsRepository) CreateItem(ctx context.Context, item *listsdomain.Item) error {
	return r.write(func(d *listsData) error { return d.CreateItem(ctx, item) })
}

func (r *ListsRepository) UpdateItem(ctx context.Context, item *listsdomain.Item) error {
	return r.write(func(d *listsData) error { return d.UpdateItem(ctx, item) })
}

func (r *ListsRepository) SoftDeleteItem(ctx context.Context, listID, itemID string) (deleted bool, err error) {
	err = r.write(func(d *listsData) error {
		deleted, err = d.SoftDeleteItem(ctx, listID, itemID)
		return err
	})
	return deleted, err
}

func (r *ListsRepository) SoftDeleteItemsByList(ctx context.Context, listID string) error {
	return r.write(func(d *listsData) error { return d.SoftDeleteItemsByList(ctx, listID) })
}

func (r *ListsRepository) GetRating(ctx context.Context, itemID, userID string) (result *listsdomain.Rating, err error) {
	err = r.read(func(d *listsData) error {
		result, err = d.GetRating(ctx, itemID, userID)
		return err
	})
	return result, err
}

func (r *ListsRepository) UpsertRating(ctx context.Context, rating *listsdomain.Rating) error {
	return r.write(func(d *listsData) error { return d.UpsertRating(ctx, rating) })
}

func (r *ListsRepository) DeleteRating(ctx context.Context, itemID, userID string) error {
	return r.write(func(d *listsData) error { return d.DeleteRating(ctx, itemID, userID) })
}

func (r *ListsRepository) GetRatingStats(ctx context.Context, itemID string) (result listsdomain.RatingStats, err error) {
	err = r.read(func(d *listsData) error {
		result, err = d.GetRatingStats(ctx, itemID)
		return err
	})
	return result, err
}

func (r *ListsRepository) RatingsByUser(ctx context.Context, userID string, itemIDs []string) (result map[string]int, err error) {
	err = r.read(func(d *listsData) error {
		result, err = d.RatingsByUser(ctx, userID, itemIDs)
		return err
	})
	return result, err
}

func (r *ListsRepository) ListComments(ctx context.Context, itemID string) (result []listsdomain.Comment, err error) {
	err = r.read(func(d *listsData) error {
		result, err = d.ListComments(ctx, itemID)
		return err
	})
	return result, err
}

func (r *ListsRepository) CreateComment(ctx context.Context, comment *listsdomain.Comment) error {
	return r.write(func(d *listsData) error { return d.CreateComment(ctx, comment) })
}

func (r *ListsRepository) StarredListIDs(ctx context.Context, userID string, listIDs []string) (result map[string]bool, err error) {
	err = r.read(func(d *listsData) error {
		result, err = d.StarredListIDs(ctx, userID, listIDs)
		return err
	})
	return result, err
}

func (r *ListsRepository) AddStar(ctx context.Context, star *listsdomain.Star) error {
	return r.write(func(d *listsData) error { return d.AddStar(ctx, star) })
}

func (r *ListsRepository) RemoveStar(ctx context.Context, listID, userID string) (removed bool, err error) {
	err = r.write(func(d *listsData) error {
		removed, err = d.RemoveStar(ctx, listID, userID)
		return err
	})
	return removed, err
}

// listsData is also the repository handed to transaction callbacks.

func (d *listsData) Transaction(ctx context.Context, fn func(listsdomain.Repository) error) error {
	return fn(d)
}

func (d *listsData) LockList(ctx context.Context, listID string) error {
	return nil
}

func (d *listsData) ListLists(ctx context.Context, filter listsdomain.ListFilter) ([]listsdomain.List, error) {
	viewerID := strings.TrimSpace(filter.ViewerID)
	result := make([]listsdomain.List, 0)
	for _, list := range d.lists {
		switch filter.Scope {
		case listsdomain.ScopeMine:
			if list.CreatorID != viewerID {
				continue
			}
		case listsdomain.ScopePublic:
			if !list.IsPublic {
				continue
			}
		}
		result = append(result, list)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []listsdomain.List{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (d *listsData) GetList(ctx context.Context, listID string) (*listsdomain.List, error) {
	list, ok := d.lists[listID]
	if !ok {
		return nil, listsdomain.ErrListNotFound
	}
	return &list, nil
}

func (d *listsData) CreateList(ctx context.Context, list *listsdomain.List) error {
	d.lists[list.ID] = *list
	return nil
}

func (d *listsData) UpdateList(ctx context.Context, list *listsdomain.List) error {
	if _, ok := d.lists[list.ID]; !ok {
		return listsdomain.ErrListNotFound
	}
	d.lists[list.ID] = *list
	return nil
}

func (d *listsData) SoftDeleteList(ctx context.Context, listID string) (bool, error) {
	if _, ok := d.lists[listID]; !ok {
		return false, nil
	}
	delete(d.lists, listID)
	for key := range d.stars {
		if key.listID == listID {
			delete(d.stars, key)
		}
	}
	return true, nil
}

func (d *listsData) CountItemsByListIDs(ctx context.Context, listIDs []string) (map[string]listsdomain.ItemCounts, error) {
	wanted := make(map[string]struct{}, len(listIDs))
	for _, id := range listIDs {
		wanted[id] = struct{}{}
	}
	result := make(map[string]listsdomain.ItemCounts, len(listIDs))
	for _, item := range d.items {
		if _, ok := wanted[item.ListID]; !ok {
			continue
		}
		counts := result[item.ListID]
		counts.Total++
		if item.IsCompleted {
			counts.Completed++
		}
		counts.Comments += item.CommentsCount
		result[item.ListID] = counts
	}
	return result, nil
}

func (d *listsData) ListItems(ctx context.Context, listID string) ([]listsdomain.Item, error) {
	result := make([]listsdomain.Item, 0)
	for _, item := range d.items {
		if item.ListID == listID {
			result = append(result, item)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Position == result[j].Position {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].Position < result[j].Position
	})
	return result, nil
}

func (d *listsData) GetItem(ctx context.Context, listID, itemID string) (*listsdomain.Item, error) {
	item, ok := d.items[itemID]
	if !ok || item.ListID != listID {
		return nil, listsdomain.ErrItemNotFound
	}
	return &item, nil
}

func (d *listsData) GetMaxPosition(ctx context.Context, listID string) (int, error) {
	max := -1
	for _, item := range d.items {
		if item.ListID == listID && item.Position > max {
			max = item.Position
		}
	}
	return max, nil
}

func (d *listsData) CreateItem(ctx context.Context, item *listsdomain.Item) error {
	d.items[item.ID] = *item
	return nil
}

func (d *listsData) UpdateItem(ctx context.Context, item *listsdomain.Item) error {
	if _, ok := d.items[item.ID]; !ok {
		return listsdomain.ErrItemNotFound
	}
	d.items[item.ID] = *item
	return nil
}

func (d *listsData) SoftDeleteItem(ctx context.Context, listID, itemID string) (bool, error) {
	item, ok := d.items[itemID]
	if !ok || item.ListID != listID {
		return false, nil
	}
	delete(d.items, itemID)
	return true, nil
}

func (d *listsData) SoftDeleteItemsByList(ctx context.Context, listID string) error {
	for id, item := range d.items {
		if item.ListID == listID {
			delete(d.items, id)
		}
	}
	return nil
}

func (d *listsData) GetRating(ctx context.Context, itemID, userID string) (*listsdomain.Rating, error) {
	rating, ok := d.ratings[ratingKey{itemID: itemID, userID: userID}]
	if !ok {
		return nil, listsdomain.ErrRatingNotFound
	}
	return &rating, nil
}

func (d *listsData) UpsertRating(ctx context.Context, rating *listsdomain.Rating) error {
	d.ratings[ratingKey{itemID: rating.ItemID, userID: rating.UserID}] = *rating
	return nil
}

func (d *listsData) DeleteRating(ctx context.Context, itemID, userID string) error {
	delete(d.ratings, ratingKey{itemID: itemID, userID: userID})
	return nil
}

func (d *listsData) GetRatingStats(ctx context.Context, itemID string) (listsdomain.RatingStats, error) {
	var (
		sum   int
		count int
	)
	for key, rating := range d.ratings {
		if key.itemID != itemID {
			continue
		}
		sum += rating.Value
		count++
	}
	if count == 0 {
		return listsdomain.RatingStats{}, nil
	}
	return listsdomain.RatingStats{Average: float64(sum) / float64(count), Count: count}, nil
}

func (d *listsData) RatingsByUser(ctx context.Context, userID string, itemIDs []string) (map[string]int, error) {
	result := make(map[string]int, len(itemIDs))
	for _, itemID := range itemIDs {
		if rating, ok := d.ratings[ratingKey{itemID: itemID, userID: userID}]; ok {
			result[itemID] = rating.Value
		}
	}
	return result, nil
}

func (d *listsData) ListComments(ctx context.Context, itemID string) ([]listsdomain.Comment, error) {
	result := make([]listsdomain.Comment, 0)
	for _, comment := range d.comments {
		if comment.ItemID == itemID {
			result = append(result, comment)
		}
	}
	return result, nil
}

func (d *listsData) CreateComment(ctx context.Context, comment *listsdomain.Comment) error {
	d.comments = append(d.comments, *comment)
	return nil
}

func (d *listsData) StarredListIDs(ctx context.Context, userID string, listIDs []string) (map[string]bool, error) {
	result := make(map[string]bool, len(listIDs))
	for _, listID := range listIDs {
		if _, ok := d.stars[starKey{listID: listID, userID: userID}]; ok {
			result[listID] = true
		}
	}
	return result, nil
}

func (d *listsData) AddStar(ctx context.Context, star *listsdomain.Star) error {
	d.stars[starKey{listID: star.ListID, userID: star.UserID}] = *star
	return nil
}

func (d *listsData) RemoveStar(ctx context.Context, listID, userID string) (bool, error) {
	key := starKey{listID: listID, userID: userID}
	if _, ok := d.stars[key]; !ok {
		return false, nil
	}
	delete(d.stars, key)
	return true, nil
}
