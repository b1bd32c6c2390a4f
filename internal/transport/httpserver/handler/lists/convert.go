package lists

import (
	listsdomain "family-lists-go/internal/domain/lists"
	"family-lists-go/internal/wire"
)

func listPayload(view listsdomain.ListView, viewerID string) wire.ListPayload {
	list := view.List
	payload := wire.ListPayload{
		ID:                  wire.Ptr(list.ID),
		Title:               list.Title,
		Description:         list.Description,
		ImageURL:            list.ImageURL,
		IsPublic:            list.IsPublic,
		CreatorID:           list.CreatorID,
		CreatorName:         list.CreatorName,
		CreatorPhoto:        list.CreatorPhoto,
		CreatedAt:           list.CreatedAt,
		UpdatedAt:           list.UpdatedAt,
		ItemsCount:          view.Counts.Total,
		CompletedItemsCount: view.Counts.Completed,
		StarsCount:          list.StarsCount,
		CommentsCount:       view.Counts.Comments,
		IsStarred:           view.IsStarred,
	}
	if viewerID != "" {
		payload.IsOwner = wire.Ptr(list.CreatorID == viewerID)
	}
	if list.OriginalListID != nil {
		payload.OriginalListID = *list.OriginalListID
	}
	if list.OriginalListTitle != nil {
		payload.OriginalListTitle = *list.OriginalListTitle
	}
	if view.Items != nil {
		items := make([]wire.ItemPayload, 0, len(view.Items))
		for _, item := range view.Items {
			items = append(items, itemPayload(item.Item, item.UserRating))
		}
		payload.Items = &items
	}
	return payload
}

func listPayloads(views []listsdomain.ListView, viewerID string) []wire.ListPayload {
	payloads := make([]wire.ListPayload, 0, len(views))
	for _, view := range views {
		payloads = append(payloads, listPayload(view, viewerID))
	}
	return payloads
}

func itemPayload(item listsdomain.Item, userRating int) wire.ItemPayload {
	payload := wire.ItemPayload{
		ID:            wire.Ptr(item.ID),
		ListID:        item.ListID,
		Text:          item.Text,
		IsCompleted:   wire.Ptr(item.IsCompleted),
		ImageURL:      item.ImageURL,
		Priority:      item.Priority,
		Details:       item.Details,
		Brand:         item.Brand,
		Store:         item.Store,
		CreatedAt:     item.CreatedAt,
		CommentsCount: item.CommentsCount,
		AverageRating: item.AverageRating,
		TotalRatings:  wire.Ptr(item.TotalRatings),
		UserRating:    userRating,
	}
	if item.ApproxPrice != nil {
		payload.ApproxPrice = wire.Ptr(*item.ApproxPrice)
	}
	return payload
}

func commentPayload(comment listsdomain.Comment) wire.CommentPayload {
	return wire.CommentPayload{
		ID:          wire.Ptr(comment.ID),
		ItemID:      comment.ItemID,
		AuthorID:    comment.AuthorID,
		AuthorName:  comment.AuthorName,
		AuthorPhoto: comment.AuthorPhoto,
		Text:        comment.Text,
		CreatedAt:   comment.CreatedAt,
	}
}
