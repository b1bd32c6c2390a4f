package listsapi

import (
	"family-lists-go/internal/engine"
	"family-lists-go/internal/wire"
)

func toList(p wire.ListPayload, viewerID string) engine.List {
	list := engine.List{
		ID:                  p.Identity(),
		Title:               p.Title,
		Description:         p.Description,
		ImageURL:            p.ImageURL,
		IsPublic:            p.IsPublic,
		CreatorID:           p.CreatorID,
		CreatorName:         p.CreatorName,
		CreatorPhoto:        p.CreatorPhoto,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
		ItemsCount:          p.ItemsCount,
		CompletedItemsCount: p.CompletedItemsCount,
		StarsCount:          p.StarsCount,
		CommentsCount:       p.CommentsCount,
		IsOwner:             p.Owner(viewerID),
		IsStarred:           p.IsStarred,
		OriginalListID:      p.OriginalListID,
		OriginalListTitle:   p.OriginalListTitle,
	}
	if p.Items != nil {
		list.Items = make([]engine.Item, 0, len(*p.Items))
		for _, item := range *p.Items {
			list.Items = append(list.Items, toItem(item, list.ID))
		}
		list.ItemsCount = len(list.Items)
		list.CompletedItemsCount = engine.CountCompleted(list.Items)
	}
	return list
}

func toItem(p wire.ItemPayload, listID string) engine.Item {
	item := engine.Item{
		ID:            p.Identity(),
		ListID:        p.ListID,
		Text:          p.Text,
		IsCompleted:   p.Completion(),
		ImageURL:      p.ImageURL,
		Priority:      engine.Priority(p.Priority),
		Details:       p.Details,
		Brand:         p.Brand,
		Store:         p.Store,
		CreatedAt:     p.CreatedAt,
		CommentsCount: p.CommentsCount,
		AverageRating: p.AverageRating,
		TotalRatings:  p.RatingsTotal(),
		UserRating:    p.UserRating,
	}
	if p.ApproxPrice != nil {
		price := *p.ApproxPrice
		item.ApproxPrice = &price
	}
	if item.ListID == "" {
		item.ListID = listID
	}
	return item
}

func toComment(p wire.CommentPayload, itemID string) engine.Comment {
	comment := engine.Comment{
		ID:          p.Identity(),
		ItemID:      p.ItemID,
		AuthorID:    p.AuthorID,
		AuthorName:  p.AuthorName,
		AuthorPhoto: p.AuthorPhoto,
		Text:        p.Text,
		CreatedAt:   p.CreatedAt,
	}
	if p.ItemCommentsCount != nil {
		count := *p.ItemCommentsCount
		comment.ItemCommentsCount = &count
	}
	if comment.ItemID == "" {
		comment.ItemID = itemID
	}
	return comment
}
