// Package wire holds the JSON shapes exchanged between the lists client and
// the lists service.
//
// The service schema has renamed a few fields over time. Payloads declare
// every historical name and expose one accessor per logical field; callers
// must read drifting fields through those accessors only. The server encodes
// the canonical names, the client accepts all of them.
package wire

import "time"

// Envelope wraps every response body.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

func OK[T any](data T) Envelope[T] {
	return Envelope[T]{Success: true, Data: data}
}

type ListPayload struct {
	ID                  *string        `json:"id,omitempty"`
	LegacyID            *string        `json:"_id,omitempty"`
	Title               string         `json:"title"`
	Description         string         `json:"description,omitempty"`
	ImageURL            string         `json:"imageUrl,omitempty"`
	IsPublic            bool           `json:"isPublic"`
	CreatorID           string         `json:"creatorId"`
	CreatorName         string         `json:"creatorName,omitempty"`
	CreatorPhoto        string         `json:"creatorPhoto,omitempty"`
	CreatedAt           time.Time      `json:"createdAt"`
	UpdatedAt           time.Time      `json:"updatedAt"`
	Items               *[]ItemPayload `json:"items,omitempty"`
	ItemsCount          int            `json:"itemsCount"`
	CompletedItemsCount int            `json:"completedItemsCount"`
	StarsCount          int            `json:"starsCount"`
	CommentsCount       int            `json:"commentsCount"`
	IsOwner             *bool          `json:"isOwner,omitempty"`
	IsStarred           bool           `json:"isStarred"`
	OriginalListID      string         `json:"originalListId,omitempty"`
	OriginalListTitle   string         `json:"originalListTitle,omitempty"`
}

type ItemPayload struct {
	ID              *string   `json:"id,omitempty"`
	LegacyID        *string   `json:"_id,omitempty"`
	ListID          string    `json:"listId,omitempty"`
	Text            string    `json:"text"`
	IsCompleted     *bool     `json:"isCompleted,omitempty"`
	LegacyCompleted *bool     `json:"completed,omitempty"`
	ImageURL        string    `json:"imageUrl,omitempty"`
	Priority        string    `json:"priority,omitempty"`
	Details         string    `json:"details,omitempty"`
	Brand           string    `json:"brand,omitempty"`
	Store           string    `json:"store,omitempty"`
	ApproxPrice     *float64  `json:"approxPrice,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	CommentsCount   int       `json:"commentsCount"`
	AverageRating   float64   `json:"averageRating"`
	TotalRatings    *int      `json:"totalRatings,omitempty"`
	RatingsCount    *int      `json:"ratingsCount,omitempty"`
	UserRating      int       `json:"userRating"`
}

type CommentPayload struct {
	ID          *string   `json:"id,omitempty"`
	LegacyID    *string   `json:"_id,omitempty"`
	ItemID      string    `json:"itemId,omitempty"`
	AuthorID    string    `json:"authorId"`
	AuthorName  string    `json:"authorName"`
	AuthorPhoto string    `json:"authorPhoto,omitempty"`
	Text        string    `json:"text"`
	CreatedAt   time.Time `json:"createdAt"`
	// ItemCommentsCount is the item's comment total after the write, when the
	// service reports it.
	ItemCommentsCount *int `json:"itemCommentsCount,omitempty"`
}

type TogglePayload struct {
	IsCompleted     *bool `json:"isCompleted,omitempty"`
	LegacyCompleted *bool `json:"completed,omitempty"`
}

type RatingPayload struct {
	AverageRating float64 `json:"averageRating"`
	TotalRatings  *int    `json:"totalRatings,omitempty"`
	RatingsCount  *int    `json:"ratingsCount,omitempty"`
	UserRating    int     `json:"userRating"`
}

type StarPayload struct {
	StarsCount int  `json:"starsCount"`
	IsStarred  bool `json:"isStarred"`
}

type CopyPayload struct {
	ID       *string `json:"id,omitempty"`
	LegacyID *string `json:"_id,omitempty"`
	Title    string  `json:"title"`
}

type UploadPayload struct {
	URL string `json:"url"`
}

type CreateListRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	IsPublic    bool   `json:"isPublic"`
}

type UpdateListRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	ImageURL    *string `json:"imageUrl,omitempty"`
	IsPublic    *bool   `json:"isPublic,omitempty"`
}

type CreateItemRequest struct {
	Text        string   `json:"text"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	Priority    string   `json:"priority,omitempty"`
	Details     string   `json:"details,omitempty"`
	Brand       string   `json:"brand,omitempty"`
	Store       string   `json:"store,omitempty"`
	ApproxPrice *float64 `json:"approxPrice,omitempty"`
}

type RateRequest struct {
	Rating int `json:"rating"`
}

type CommentRequest struct {
	Text string `json:"text"`
}

func Ptr[T any](value T) *T {
	return &value
}
