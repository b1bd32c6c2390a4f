package lists

import "context"

type Repository interface {
	Transaction(ctx context.Context, fn func(Repository) error) error
	// LockList serializes writers of one list for the rest of the transaction.
	LockList(ctx context.Context, listID string) error

	ListLists(ctx context.Context, filter ListFilter) ([]List, error)
	GetList(ctx context.Context, listID string) (*List, error)
	CreateList(ctx context.Context, list *List) error
	UpdateList(ctx context.Context, list *List) error
	SoftDeleteList(ctx context.Context, listID string) (bool, error)

	CountItemsByListIDs(ctx context.Context, listIDs []string) (map[string]ItemCounts, error)
	ListItems(ctx context.Context, listID string) ([]Item, error)
	GetItem(ctx context.Context, listID, itemID string) (*Item, error)
	GetMaxPosition(ctx context.Context, listID string) (int, error)
	CreateItem(ctx context.Context, item *Item) error
	UpdateItem(ctx context.Context, item *Item) error
	SoftDeleteItem(ctx context.Context, listID, itemID string) (bool, error)
	SoftDeleteItemsByList(ctx context.Context, listID string) error

	GetRating(ctx context.Context, itemID, userID string) (*Rating, error)
	UpsertRating(ctx context.Context, rating *Rating) error
	DeleteRating(ctx context.Context, itemID, userID string) error
	GetRatingStats(ctx context.Context, itemID string) (RatingStats, error)
	RatingsByUser(ctx context.Context, userID string, itemIDs []string) (map[string]int, error)

	ListComments(ctx context.Context, itemID string) ([]Comment, error)
	CreateComment(ctx context.Context, comment *Comment) error

	StarredListIDs(ctx context.Context, userID string, listIDs []string) (map[string]bool, error)
	AddStar(ctx context.Context, star *Star) error
	RemoveStar(ctx context.Context, listID, userID string) (bool, error)
}
