package engine

import (
	"strings"
	"time"

	"family-lists-go/internal/policy"
)

type Scope string

const (
	ScopeMine   Scope = "mine"
	ScopePublic Scope = "public"
)

// DetailState tells apart a list whose items were never fetched from a list
// that was fetched and has no items.
type DetailState int

const (
	DetailNotLoaded DetailState = iota
	DetailLoaded
)

type Priority string

const (
	PriorityNone   Priority = ""
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

const tempIDPrefix = "tmp-"

type List struct {
	ID           string
	Title        string
	Description  string
	ImageURL     string
	IsPublic     bool
	CreatorID    string
	CreatorName  string
	CreatorPhoto string
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Items  []Item
	Detail DetailState

	ItemsCount          int
	CompletedItemsCount int
	StarsCount          int
	CommentsCount       int

	IsOwner   bool
	IsStarred bool

	OriginalListID    string
	OriginalListTitle string

	// Pending is set while the list only exists locally under a temporary id.
	Pending bool
	// Stale is set when the cached summary may include deltas the server never
	// confirmed; callers should reload the detail.
	Stale bool
}

func (l List) Target() policy.Target {
	return policy.Target{CreatorID: l.CreatorID, IsPublic: l.IsPublic}
}

func (l List) IsEmpty() bool {
	return l.Detail == DetailLoaded && len(l.Items) == 0
}

type Item struct {
	ID          string
	ListID      string
	Text        string
	IsCompleted bool
	ImageURL    string
	Priority    Priority
	Details     string
	Brand       string
	Store       string
	ApproxPrice *float64
	CreatedAt   time.Time

	CommentsCount int
	AverageRating float64
	TotalRatings  int
	UserRating    int

	Pending bool
}

type Comment struct {
	ID          string
	ItemID      string
	AuthorID    string
	AuthorName  string
	AuthorPhoto string
	Text        string
	CreatedAt   time.Time

	// ItemCommentsCount is the item's total reported by the server with this
	// comment, nil when the server did not report it.
	ItemCommentsCount *int
	Pending           bool
}

type RatingResult struct {
	AverageRating float64
	TotalRatings  int
	UserRating    int
}

type StarResult struct {
	StarsCount int
	IsStarred  bool
}

type CopyResult struct {
	ListID string
	Title  string
}

type Page struct {
	Limit  int
	Offset int
}

// Media points either at a local file still to be uploaded or at an already
// stable remote URL.
type Media struct {
	LocalPath   string
	URL         string
	ContentType string
}

func (m Media) IsLocal() bool {
	return strings.TrimSpace(m.LocalPath) != ""
}

func (m Media) IsZero() bool {
	return strings.TrimSpace(m.LocalPath) == "" && strings.TrimSpace(m.URL) == ""
}

type CreateListRequest struct {
	Title       string
	Description string
	ImageURL    string
	IsPublic    bool
}

type UpdateListRequest struct {
	Title       *string
	Description *string
	ImageURL    *string
	IsPublic    *bool
}

type CreateItemRequest struct {
	Text        string
	ImageURL    string
	Priority    Priority
	Details     string
	Brand       string
	Store       string
	ApproxPrice *float64
}

type NewList struct {
	Title       string `validate:"required,max=100"`
	Description string `validate:"max=500"`
	Image       Media
	IsPublic    bool
}

type ListPatch struct {
	Title       *string `validate:"omitempty,min=1,max=100"`
	Description *string `validate:"omitempty,max=500"`
	Image       *Media
	IsPublic    *bool
}

func (p ListPatch) empty() bool {
	return p.Title == nil && p.Description == nil && p.Image == nil && p.IsPublic == nil
}

type NewItem struct {
	Text        string   `validate:"required,max=200"`
	Image       Media
	Priority    Priority `validate:"omitempty,oneof=low medium high"`
	Details     string   `validate:"max=500"`
	Brand       string   `validate:"max=100"`
	Store       string   `validate:"max=100"`
	ApproxPrice *float64 `validate:"omitempty,gte=0"`
}

type newComment struct {
	Text string `validate:"required,max=1000"`
}

type newRating struct {
	Rating int `validate:"min=0,max=5"`
}

func IsTempID(id string) bool {
	return strings.HasPrefix(id, tempIDPrefix)
}
