package lists

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"family-lists-go/internal/policy"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 100
)

// Notifier is told about every committed change so subscribers can refetch.
type Notifier interface {
	ListChanged(listID, itemID string)
	ListDeleted(listID string)
}

type noopNotifier struct{}

func (noopNotifier) ListChanged(string, string) {}

func (noopNotifier) ListDeleted(string) {}

type Options struct {
	Cache    PublicCache
	CacheTTL time.Duration
	Notifier Notifier
	Now      func() time.Time
}

type Service struct {
	repo     Repository
	cache    PublicCache
	cacheTTL time.Duration
	notifier Notifier
	validate *validator.Validate
	now      func() time.Time
}

func NewService(repo Repository, opts Options) *Service {
	s := &Service{
		repo:     repo,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		notifier: opts.Notifier,
		validate: validator.New(),
		now:      opts.Now,
	}
	if s.cache == nil {
		s.cache = noopCache{}
	}
	if s.notifier == nil {
		s.notifier = noopNotifier{}
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

func (s *Service) ListLists(ctx context.Context, viewer policy.Actor, filter ListFilter) ([]ListView, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultPageLimit
	}
	if filter.Limit > maxPageLimit {
		filter.Limit = maxPageLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var views []ListView
	switch filter.Scope {
	case ScopeMine:
		if !viewer.Authenticated() {
			return nil, ErrUnauthenticated
		}
		filter.ViewerID = strings.TrimSpace(viewer.ID)
		loaded, err := s.loadSummaries(ctx, filter)
		if err != nil {
			return nil, err
		}
		views = loaded
	case ScopePublic:
		filter.ViewerID = ""
		cached, ok := s.cache.GetPage(filter.Limit, filter.Offset)
		if ok {
			views = cached
			break
		}
		loaded, err := s.loadSummaries(ctx, filter)
		if err != nil {
			return nil, err
		}
		s.cache.SetPage(filter.Limit, filter.Offset, loaded, s.cacheTTL)
		views = loaded
	default:
		return nil, fmt.Errorf("%w: unknown scope %q", ErrInvalidInput, filter.Scope)
	}

	if err := s.markStarred(ctx, s.repo, viewer, views); err != nil {
		return nil, err
	}
	return views, nil
}

func (s *Service) loadSummaries(ctx context.Context, filter ListFilter) ([]ListView, error) {
	lists, err := s.repo.ListLists(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(lists) == 0 {
		return []ListView{}, nil
	}

	listIDs := make([]string, 0, len(lists))
	for _, list := range lists {
		listIDs = append(listIDs, list.ID)
	}
	counts, err := s.repo.CountItemsByListIDs(ctx, listIDs)
	if err != nil {
		return nil, err
	}

	views := make([]ListView, 0, len(lists))
	for _, list := range lists {
		views = append(views, ListView{List: list, Counts: counts[list.ID]})
	}
	return views, nil
}

func (s *Service) markStarred(ctx context.Context, repo Repository, viewer policy.Actor, views []ListView) error {
	if !viewer.Authenticated() || len(views) == 0 {
		return nil
	}
	listIDs := make([]string, 0, len(views))
	for _, view := range views {
		listIDs = append(listIDs, view.List.ID)
	}
	starred, err := repo.StarredListIDs(ctx, strings.TrimSpace(viewer.ID), listIDs)
	if err != nil {
		return err
	}
	for i := range views {
		views[i].IsStarred = starred[views[i].List.ID]
	}
	return nil
}

// GetList returns the full list with items. Private lists of other creators
// read as missing.
func (s *Service) GetList(ctx context.Context, viewer policy.Actor, listID string) (*ListView, error) {
	list, err := visibleList(ctx, s.repo, viewer, listID)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, s.repo, viewer, list)
}

func (s *Service) detail(ctx context.Context, repo Repository, viewer policy.Actor, list *List) (*ListView, error) {
	items, err := repo.ListItems(ctx, list.ID)
	if err != nil {
		return nil, err
	}

	itemIDs := make([]string, 0, len(items))
	for _, item := range items {
		itemIDs = append(itemIDs, item.ID)
	}
	ratings := map[string]int{}
	if viewer.Authenticated() && len(itemIDs) > 0 {
		ratings, err = repo.RatingsByUser(ctx, strings.TrimSpace(viewer.ID), itemIDs)
		if err != nil {
			return nil, err
		}
	}

	view := ListView{List: *list, Items: make([]ItemView, 0, len(items))}
	for _, item := range items {
		view.Counts.Total++
		if item.IsCompleted {
			view.Counts.Completed++
		}
		view.Counts.Comments += item.CommentsCount
		view.Items = append(view.Items, ItemView{Item: item, UserRating: ratings[item.ID]})
	}

	views := []ListView{view}
	if err := s.markStarred(ctx, repo, viewer, views); err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *Service) CreateList(ctx context.Context, actor policy.Actor, input CreateListInput) (*ListView, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthenticated
	}
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.ImageURL = strings.TrimSpace(input.ImageURL)
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	list := List{
		ID:           uuid.NewString(),
		Title:        input.Title,
		Description:  input.Description,
		ImageURL:     input.ImageURL,
		IsPublic:     input.IsPublic,
		CreatorID:    strings.TrimSpace(actor.ID),
		CreatorName:  strings.TrimSpace(actor.Name),
		CreatorPhoto: strings.TrimSpace(actor.PhotoURL),
		CreatedAt:    s.now(),
		UpdatedAt:    s.now(),
	}
	if err := s.repo.CreateList(ctx, &list); err != nil {
		return nil, err
	}
	if list.IsPublic {
		s.cache.Clear()
	}

	return &ListView{List: list, Items: []ItemView{}}, nil
}

func (s *Service) UpdateList(ctx context.Context, actor policy.Actor, input UpdateListInput) (*ListView, error) {
	if input.Title == nil && input.Description == nil && input.ImageURL == nil && input.IsPublic == nil {
		return nil, fmt.Errorf("%w: no fields to update", ErrInvalidInput)
	}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
		}
		input.Title = &title
	}
	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		input.Description = &description
	}
	if input.ImageURL != nil {
		imageURL := strings.TrimSpace(*input.ImageURL)
		input.ImageURL = &imageURL
	}
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	var (
		result    *ListView
		wasPublic bool
	)
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		list, err := lockedList(ctx, tx, actor, input.ID, policy.ActionEditList)
		if err != nil {
			return err
		}
		wasPublic = list.IsPublic

		if input.Title != nil {
			list.Title = *input.Title
		}
		if input.Description != nil {
			list.Description = *input.Description
		}
		if input.ImageURL != nil {
			list.ImageURL = *input.ImageURL
		}
		if input.IsPublic != nil {
			list.IsPublic = *input.IsPublic
		}
		list.UpdatedAt = s.now()

		if err := tx.UpdateList(ctx, list); err != nil {
			return err
		}
		result, err = s.detail(ctx, tx, actor, list)
		return err
	})
	if err != nil {
		return nil, err
	}

	if wasPublic || result.List.IsPublic {
		s.cache.Clear()
	}
	s.notifier.ListChanged(result.List.ID, "")
	return result, nil
}

func (s *Service) DeleteList(ctx context.Context, actor policy.Actor, listID string) error {
	var wasPublic bool
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		list, err := lockedList(ctx, tx, actor, listID, policy.ActionDeleteList)
		if err != nil {
			return err
		}
		wasPublic = list.IsPublic

		if err := tx.SoftDeleteItemsByList(ctx, list.ID); err != nil {
			return err
		}
		deleted, err := tx.SoftDeleteList(ctx, list.ID)
		if err != nil {
			return err
		}
		if !deleted {
			return ErrListNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	if wasPublic {
		s.cache.Clear()
	}
	s.notifier.ListDeleted(listID)
	return nil
}

func (s *Service) AddItem(ctx context.Context, actor policy.Actor, input CreateItemInput) (*ItemView, error) {
	input.Text = strings.TrimSpace(input.Text)
	input.ImageURL = strings.TrimSpace(input.ImageURL)
	input.Priority = strings.ToLower(strings.TrimSpace(input.Priority))
	input.Details = strings.TrimSpace(input.Details)
	input.Brand = strings.TrimSpace(input.Brand)
	input.Store = strings.TrimSpace(input.Store)
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	var (
		item   Item
		public bool
	)
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		list, err := lockedList(ctx, tx, actor, input.ListID, policy.ActionAddItem)
		if err != nil {
			return err
		}
		public = list.IsPublic

		maxPosition, err := tx.GetMaxPosition(ctx, list.ID)
		if err != nil {
			return err
		}

		item = Item{
			ID:          uuid.NewString(),
			ListID:      list.ID,
			Text:        input.Text,
			ImageURL:    input.ImageURL,
			Priority:    input.Priority,
			Details:     input.Details,
			Brand:       input.Brand,
			Store:       input.Store,
			ApproxPrice: input.ApproxPrice,
			Position:    maxPosition + 1,
			CreatedAt:   s.now(),
		}
		return tx.CreateItem(ctx, &item)
	})
	if err != nil {
		return nil, err
	}

	s.itemChanged(public, item.ListID, item.ID)
	return &ItemView{Item: item}, nil
}

// ToggleItem flips the completion flag and returns the stored item.
func (s *Service) ToggleItem(ctx context.Context, actor policy.Actor, listID, itemID string) (*Item, error) {
	var (
		item   *Item
		public bool
	)
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		list, err := lockedList(ctx, tx, actor, listID, policy.ActionToggleItem)
		if err != nil {
			return err
		}
		public = list.IsPublic

		item, err = tx.GetItem(ctx, list.ID, itemID)
		if err != nil {
			return err
		}
		item.IsCompleted = !item.IsCompleted
		return tx.UpdateItem(ctx, item)
	})
	if err != nil {
		return nil, err
	}

	s.itemChanged(public, listID, itemID)
	return item, nil
}

func (s *Service) DeleteItem(ctx context.Context, actor policy.Actor, listID, itemID string) error {
	var public bool
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		list, err := lockedList(ctx, tx, actor, listID, policy.ActionDeleteItem)
		if err != nil {
			return err
		}
		public = list.IsPublic

		deleted, err := tx.SoftDeleteItem(ctx, list.ID, itemID)
		if err != nil {
			return err
		}
		if !deleted {
			return ErrItemNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.itemChanged(public, listID, itemID)
	return nil
}

// RateItem stores the actor's rating; 0 retracts it. Aggregates are
// recomputed from the rating rows in the same transaction.
func (s *Service) RateItem(ctx context.Context, actor policy.Actor, listID, itemID string, rating int) (*RatingResult, error) {
	if err := s.validateInput(ratingInput{Rating: rating}); err != nil {
		return nil, err
	}

	var result RatingResult
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		list, err := lockedList(ctx, tx, actor, listID, policy.ActionRate)
		if err != nil {
			return err
		}
		item, err := tx.GetItem(ctx, list.ID, itemID)
		if err != nil {
			return err
		}

		userID := strings.TrimSpace(actor.ID)
		if rating == 0 {
			if err := tx.DeleteRating(ctx, item.ID, userID); err != nil {
				return err
			}
		} else {
			if err := tx.UpsertRating(ctx, &Rating{ItemID: item.ID, UserID: userID, Value: rating, UpdatedAt: s.now()}); err != nil {
				return err
			}
		}

		stats, err := tx.GetRatingStats(ctx, item.ID)
		if err != nil {
			return err
		}
		item.AverageRating = stats.Average
		item.TotalRatings = stats.Count
		if err := tx.UpdateItem(ctx, item); err != nil {
			return err
		}

		result = RatingResult{AverageRating: stats.Average, TotalRatings: stats.Count, UserRating: rating}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.ListChanged(listID, itemID)
	return &result, nil
}

func (s *Service) ListComments(ctx context.Context, viewer policy.Actor, listID, itemID string) ([]Comment, error) {
	list, err := visibleList(ctx, s.repo, viewer, listID)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetItem(ctx, list.ID, itemID); err != nil {
		return nil, err
	}
	return s.repo.ListComments(ctx, itemID)
}

func (s *Service) AddComment(ctx context.Context, actor policy.Actor, listID, itemID, text string) (*CommentResult, error) {
	text = strings.TrimSpace(text)
	if err := s.validateInput(commentInput{Text: text}); err != nil {
		return nil, err
	}

	var (
		result CommentResult
		public bool
	)
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		list, err := lockedList(ctx, tx, actor, listID, policy.ActionComment)
		if err != nil {
			return err
		}
		public = list.IsPublic

		item, err := tx.GetItem(ctx, list.ID, itemID)
		if err != nil {
			return err
		}

		comment := Comment{
			ID:          uuid.NewString(),
			ItemID:      item.ID,
			ListID:      list.ID,
			AuthorID:    strings.TrimSpace(actor.ID),
			AuthorName:  strings.TrimSpace(actor.Name),
			AuthorPhoto: strings.TrimSpace(actor.PhotoURL),
			Text:        text,
			CreatedAt:   s.now(),
		}
		if err := tx.CreateComment(ctx, &comment); err != nil {
			return err
		}

		item.CommentsCount++
		if err := tx.UpdateItem(ctx, item); err != nil {
			return err
		}

		result = CommentResult{Comment: comment, ItemCommentsCount: item.CommentsCount}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.itemChanged(public, listID, itemID)
	return &result, nil
}

// ToggleStar stars or unstars the list for the actor and adjusts the cached
// count by one.
func (s *Service) ToggleStar(ctx context.Context, actor policy.Actor, listID string) (*StarResult, error) {
	var result StarResult
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		list, err := lockedList(ctx, tx, actor, listID, policy.ActionStar)
		if err != nil {
			return err
		}

		userID := strings.TrimSpace(actor.ID)
		starred, err := tx.StarredListIDs(ctx, userID, []string{list.ID})
		if err != nil {
			return err
		}

		if starred[list.ID] {
			removed, err := tx.RemoveStar(ctx, list.ID, userID)
			if err != nil {
				return err
			}
			if removed && list.StarsCount > 0 {
				list.StarsCount--
			}
		} else {
			if err := tx.AddStar(ctx, &Star{ListID: list.ID, UserID: userID, CreatedAt: s.now()}); err != nil {
				return err
			}
			list.StarsCount++
		}
		if err := tx.UpdateList(ctx, list); err != nil {
			return err
		}

		result = StarResult{StarsCount: list.StarsCount, IsStarred: !starred[list.ID]}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Clear()
	s.notifier.ListChanged(listID, "")
	return &result, nil
}

// CopyList creates a private list owned by the actor with the source's items.
// Completion, ratings and comments start fresh.
func (s *Service) CopyList(ctx context.Context, actor policy.Actor, listID string) (*List, error) {
	var copied List
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		source, err := lockedList(ctx, tx, actor, listID, policy.ActionCopy)
		if err != nil {
			return err
		}
		items, err := tx.ListItems(ctx, source.ID)
		if err != nil {
			return err
		}

		sourceID := source.ID
		sourceTitle := source.Title
		copied = List{
			ID:                uuid.NewString(),
			Title:             source.Title,
			Description:       source.Description,
			ImageURL:          source.ImageURL,
			IsPublic:          false,
			CreatorID:         strings.TrimSpace(actor.ID),
			CreatorName:       strings.TrimSpace(actor.Name),
			CreatorPhoto:      strings.TrimSpace(actor.PhotoURL),
			OriginalListID:    &sourceID,
			OriginalListTitle: &sourceTitle,
			CreatedAt:         s.now(),
			UpdatedAt:         s.now(),
		}
		if err := tx.CreateList(ctx, &copied); err != nil {
			return err
		}

		for _, item := range items {
			clone := Item{
				ID:          uuid.NewString(),
				ListID:      copied.ID,
				Text:        item.Text,
				ImageURL:    item.ImageURL,
				Priority:    item.Priority,
				Details:     item.Details,
				Brand:       item.Brand,
				Store:       item.Store,
				ApproxPrice: copyFloat(item.ApproxPrice),
				Position:    item.Position,
				CreatedAt:   s.now(),
			}
			if err := tx.CreateItem(ctx, &clone); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &copied, nil
}

func (s *Service) itemChanged(public bool, listID, itemID string) {
	if public {
		s.cache.Clear()
	}
	s.notifier.ListChanged(listID, itemID)
}

func (s *Service) validateInput(input any) error {
	err := s.validate.Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	fe := fieldErrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%w: %s is required", ErrInvalidInput, field)
	case "max", "min", "gte", "oneof":
		return fmt.Errorf("%w: %s must satisfy %s=%s", ErrInvalidInput, field, fe.Tag(), fe.Param())
	default:
		return fmt.Errorf("%w: %s is invalid", ErrInvalidInput, field)
	}
}

func visibleList(ctx context.Context, repo Repository, viewer policy.Actor, listID string) (*List, error) {
	list, err := repo.GetList(ctx, listID)
	if err != nil {
		return nil, err
	}
	if !list.IsPublic && !policy.IsOwner(viewer.ID, list.CreatorID) {
		return nil, ErrListNotFound
	}
	return list, nil
}

// lockedList locks the list, checks visibility and then the action rule.
func lockedList(ctx context.Context, tx Repository, actor policy.Actor, listID string, action policy.Action) (*List, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if err := tx.LockList(ctx, listID); err != nil {
		return nil, err
	}
	list, err := visibleList(ctx, tx, actor, listID)
	if err != nil {
		return nil, err
	}
	target := policy.Target{CreatorID: list.CreatorID, IsPublic: list.IsPublic}
	if !policy.CanMutate(actor, target, action) {
		return nil, ErrForbidden
	}
	return list, nil
}

func copyFloat(value *float64) *float64 {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}
