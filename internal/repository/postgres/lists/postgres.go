package lists

import (
	"context"
	"database/sql"
	"errors"

	listsdomain "family-lists-go/internal/domain/lists"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresRepository struct {
	db *gorm.DB
}

var _ listsdomain.Repository = (*PostgresRepository)(nil)

func NewPostgres(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Transaction(ctx context.Context, fn func(listsdomain.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&PostgresRepository{db: tx})
	})
}

func (r *PostgresRepository) LockList(ctx context.Context, listID string) error {
	return r.db.WithContext(ctx).
		Exec("SELECT pg_advisory_xact_lock(hashtext(?))", "list:"+listID).
		Error
}

// validID keeps malformed ids away from uuid columns, which would otherwise
// fail the whole statement.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (r *PostgresRepository) ListLists(ctx context.Context, filter listsdomain.ListFilter) ([]listsdomain.List, error) {
	query := r.db.WithContext(ctx).Model(&listsdomain.List{})
	switch filter.Scope {
	case listsdomain.ScopeMine:
		query = query.Where("creator_id = ?", filter.ViewerID)
	case listsdomain.ScopePublic:
		query = query.Where("is_public = ?", true)
	}

	query = query.Order("created_at desc, id asc")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var lists []listsdomain.List
	if err := query.Find(&lists).Error; err != nil {
		return nil, err
	}
	return lists, nil
}

func (r *PostgresRepository) GetList(ctx context.Context, listID string) (*listsdomain.List, error) {
	if !validID(listID) {
		return nil, listsdomain.ErrListNotFound
	}
	var list listsdomain.List
	if err := r.db.WithContext(ctx).Where("id = ?", listID).First(&list).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, listsdomain.ErrListNotFound
		}
		return nil, err
	}
	return &list, nil
}

func (r *PostgresRepository) CreateList(ctx context.Context, list *listsdomain.List) error {
	return r.db.WithContext(ctx).Create(list).Error
}

func (r *PostgresRepository) UpdateList(ctx context.Context, list *listsdomain.List) error {
	return r.db.WithContext(ctx).
		Model(&listsdomain.List{}).
		Where("id = ?", list.ID).
		Updates(map[string]interface{}{
			"title":       list.Title,
			"description": list.Description,
			"image_url":   list.ImageURL,
			"is_public":   list.IsPublic,
			"stars_count": list.StarsCount,
			"updated_at":  list.UpdatedAt,
		}).Error
}

func (r *PostgresRepository) SoftDeleteList(ctx context.Context, listID string) (bool, error) {
	if !validID(listID) {
		return false, nil
	}
	result := r.db.WithContext(ctx).Delete(&listsdomain.List{}, "id = ?", listID)
	if result.Error != nil {
		return false, result.Error
	}
	if err := r.db.WithContext(ctx).Delete(&listsdomain.Star{}, "list_id = ?", listID).Error; err != nil {
		return false, err
	}
	return result.RowsAffected > 0, nil
}

func (r *PostgresRepository) CountItemsByListIDs(ctx context.Context, listIDs []string) (map[string]listsdomain.ItemCounts, error) {
	result := make(map[string]listsdomain.ItemCounts, len(listIDs))
	if len(listIDs) == 0 {
		return result, nil
	}

	type row struct {
		ListID         string `gorm:"column:list_id"`
		ItemsTotal     int    `gorm:"column:items_total"`
		ItemsCompleted int    `gorm:"column:items_completed"`
		CommentsTotal  int    `gorm:"column:comments_total"`
	}

	var rows []row
	if err := r.db.WithContext(ctx).
		Model(&listsdomain.Item{}).
		Select(`
			list_id,
			COUNT(*) as items_total,
			SUM(CASE WHEN is_completed THEN 1 ELSE 0 END) as items_completed,
			COALESCE(SUM(comments_count), 0) as comments_total`).
		Where("list_id IN ?", listIDs).
		Group("list_id").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	for _, item := range rows {
		result[item.ListID] = listsdomain.ItemCounts{
			Total:     item.ItemsTotal,
			Completed: item.ItemsCompleted,
			Comments:  item.CommentsTotal,
		}
	}
	return result, nil
}

func (r *PostgresRepository) ListItems(ctx context.Context, listID string) ([]listsdomain.Item, error) {
	var items []listsdomain.Item
	if err := r.db.WithContext(ctx).
		Where("list_id = ?", listID).
		Order("position asc, created_at asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *PostgresRepository) GetItem(ctx context.Context, listID, itemID string) (*listsdomain.Item, error) {
	if !validID(itemID) {
		return nil, listsdomain.ErrItemNotFound
	}
	var item listsdomain.Item
	if err := r.db.WithContext(ctx).
		Where("id = ? AND list_id = ?", itemID, listID).
		First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, listsdomain.ErrItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *PostgresRepository) GetMaxPosition(ctx context.Context, listID string) (int, error) {
	var max sql.NullInt64
	if err := r.db.WithContext(ctx).
		Model(&listsdomain.Item{}).
		Select("MAX(position)").
		Where("list_id = ?", listID).
		Scan(&max).Error; err != nil {
		return 0, err
	}
	if !max.Valid {
		return -1, nil
	}
	return int(max.Int64), nil
}

func (r *PostgresRepository) CreateItem(ctx context.Context, item *listsdomain.Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *PostgresRepository) UpdateItem(ctx context.Context, item *listsdomain.Item) error {
	return r.db.WithContext(ctx).
		Model(&listsdomain.Item{}).
		Where("id = ? AND list_id = ?", item.ID, item.ListID).
		Updates(map[string]interface{}{
			"is_completed":   item.IsCompleted,
			"comments_count": item.CommentsCount,
			"average_rating": item.AverageRating,
			"total_ratings":  item.TotalRatings,
		}).Error
}

func (r *PostgresRepository) SoftDeleteItem(ctx context.Context, listID, itemID string) (bool, error) {
	if !validID(itemID) {
		return false, nil
	}
	result := r.db.WithContext(ctx).Delete(&listsdomain.Item{}, "id = ? AND list_id = ?", itemID, listID)
	return result.RowsAffected > 0, result.Error
}

func (r *PostgresRepository) SoftDeleteItemsByList(ctx context.Context, listID string) error {
	return r.db.WithContext(ctx).Delete(&listsdomain.Item{}, "list_id = ?", listID).Error
}

func (r *PostgresRepository) GetRating(ctx context.Context, itemID, userID string) (*listsdomain.Rating, error) {
	var rating listsdomain.Rating
	if err := r.db.WithContext(ctx).
		Where("item_id = ? AND user_id = ?", itemID, userID).
		First(&rating).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, listsdomain.ErrRatingNotFound
		}
		return nil, err
	}
	return &rating, nil
}

func (r *PostgresRepository) UpsertRating(ctx context.Context, rating *listsdomain.Rating) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "item_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(rating).Error
}

func (r *PostgresRepository) DeleteRating(ctx context.Context, itemID, userID string) error {
	return r.db.WithContext(ctx).Delete(&listsdomain.Rating{}, "item_id = ? AND user_id = ?", itemID, userID).Error
}

func (r *PostgresRepository) GetRatingStats(ctx context.Context, itemID string) (listsdomain.RatingStats, error) {
	type row struct {
		Average float64 `gorm:"column:average"`
		Count   int     `gorm:"column:count"`
	}
	var result row
	if err := r.db.WithContext(ctx).
		Model(&listsdomain.Rating{}).
		Select("COALESCE(AVG(value), 0) as average, COUNT(*) as count").
		Where("item_id = ?", itemID).
		Scan(&result).Error; err != nil {
		return listsdomain.RatingStats{}, err
	}
	return listsdomain.RatingStats{Average: result.Average, Count: result.Count}, nil
}

func (r *PostgresRepository) RatingsByUser(ctx context.Context, userID string, itemIDs []string) (map[string]int, error) {
	result := make(map[string]int, len(itemIDs))
	if len(itemIDs) == 0 {
		return result, nil
	}
	var ratings []listsdomain.Rating
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND item_id IN ?", userID, itemIDs).
		Find(&ratings).Error; err != nil {
		return nil, err
	}
	for _, rating := range ratings {
		result[rating.ItemID] = rating.Value
	}
	return result, nil
}

func (r *PostgresRepository) ListComments(ctx context.Context, itemID string) ([]listsdomain.Comment, error) {
	var comments []listsdomain.Comment
	if err := r.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("created_at asc, id asc").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *PostgresRepository) CreateComment(ctx context.Context, comment *listsdomain.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *PostgresRepository) StarredListIDs(ctx context.Context, userID string, listIDs []string) (map[string]bool, error) {
	result := make(map[string]bool, len(listIDs))
	if len(listIDs) == 0 {
		return result, nil
	}
	var stars []listsdomain.Star
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND list_id IN ?", userID, listIDs).
		Find(&stars).Error; err != nil {
		return nil, err
	}
	for _, star := range stars {
		result[star.ListID] = true
	}
	return result, nil
}

func (r *PostgresRepository) AddStar(ctx context.Context, star *listsdomain.Star) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(star).Error
}

func (r *PostgresRepository) RemoveStar(ctx context.Context, listID, userID string) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&listsdomain.Star{}, "list_id = ? AND user_id = ?", listID, userID)
	return result.RowsAffected > 0, result.Error
}
