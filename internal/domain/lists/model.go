package lists

import (
	"time"

	"gorm.io/gorm"
)

type Scope string

const (
	ScopeMine   Scope = "mine"
	ScopePublic Scope = "public"
)

type List struct {
	ID                string         `gorm:"type:uuid;primaryKey"`
	Title             string         `gorm:"not null"`
	Description       string         `gorm:"not null;default:''"`
	ImageURL          string         `gorm:"not null;default:'';column:image_url"`
	IsPublic          bool           `gorm:"not null;default:false;index"`
	CreatorID         string         `gorm:"not null;index"`
	CreatorName       string         `gorm:"not null;default:''"`
	CreatorPhoto      string         `gorm:"not null;default:''"`
	StarsCount        int            `gorm:"not null;default:0"`
	OriginalListID    *string        `gorm:"type:uuid;column:original_list_id"`
	OriginalListTitle *string        `gorm:"column:original_list_title"`
	CreatedAt         time.Time      `gorm:"autoCreateTime"`
	UpdatedAt         time.Time      `gorm:"autoUpdateTime"`
	DeletedAt         gorm.DeletedAt `gorm:"index"`
}

type Item struct {
	ID            string         `gorm:"type:uuid;primaryKey"`
	ListID        string         `gorm:"type:uuid;index;not null"`
	Text          string         `gorm:"not null"`
	IsCompleted   bool           `gorm:"not null;default:false"`
	ImageURL      string         `gorm:"not null;default:'';column:image_url"`
	Priority      string         `gorm:"not null;default:''"`
	Details       string         `gorm:"not null;default:''"`
	Brand         string         `gorm:"not null;default:''"`
	Store         string         `gorm:"not null;default:''"`
	ApproxPrice   *float64       `gorm:"column:approx_price"`
	CommentsCount int            `gorm:"not null;default:0"`
	AverageRating float64        `gorm:"not null;default:0"`
	TotalRatings  int            `gorm:"not null;default:0"`
	Position      int            `gorm:"not null;default:0"`
	CreatedAt     time.Time      `gorm:"autoCreateTime"`
	DeletedAt     gorm.DeletedAt `gorm:"index"`
}

type Comment struct {
	ID          string    `gorm:"type:uuid;primaryKey"`
	ItemID      string    `gorm:"type:uuid;index;not null"`
	ListID      string    `gorm:"type:uuid;index;not null"`
	AuthorID    string    `gorm:"not null"`
	AuthorName  string    `gorm:"not null;default:''"`
	AuthorPhoto string    `gorm:"not null;default:''"`
	Text        string    `gorm:"not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

// Rating is one actor's score for an item; a retracted rating has no row.
type Rating struct {
	ItemID    string    `gorm:"type:uuid;primaryKey"`
	UserID    string    `gorm:"primaryKey"`
	Value     int       `gorm:"not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

type Star struct {
	ListID    string    `gorm:"type:uuid;primaryKey"`
	UserID    string    `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

type ListFilter struct {
	Scope    Scope
	ViewerID string
	Limit    int
	Offset   int
}

type ItemCounts struct {
	Total     int
	Completed int
	Comments  int
}

type RatingStats struct {
	Average float64
	Count   int
}

// ListView is a list as seen by one viewer. Items is nil for collection reads.
type ListView struct {
	List      List
	Counts    ItemCounts
	IsStarred bool
	Items     []ItemView
}

type ItemView struct {
	Item       Item
	UserRating int
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

type CommentResult struct {
	Comment           Comment
	ItemCommentsCount int
}

type CreateListInput struct {
	Title       string `validate:"required,max=100"`
	Description string `validate:"max=500"`
	ImageURL    string `validate:"omitempty,max=2048"`
	IsPublic    bool
}

type UpdateListInput struct {
	ID          string
	Title       *string `validate:"omitempty,max=100"`
	Description *string `validate:"omitempty,max=500"`
	ImageURL    *string `validate:"omitempty,max=2048"`
	IsPublic    *bool
}

type CreateItemInput struct {
	ListID      string
	Text        string   `validate:"required,max=200"`
	ImageURL    string   `validate:"omitempty,max=2048"`
	Priority    string   `validate:"omitempty,oneof=low medium high"`
	Details     string   `validate:"max=500"`
	Brand       string   `validate:"max=100"`
	Store       string   `validate:"max=100"`
	ApproxPrice *float64 `validate:"omitempty,gte=0"`
}

type commentInput struct {
	Text string `validate:"required,max=1000"`
}

type ratingInput struct {
	Rating int `validate:"min=0,max=5"`
}
