package engine

import (
	"context"

	"family-lists-go/internal/policy"
)

// Remote is the port to the lists service. Implementations wrap failures in
// ErrNetwork, ErrAuth, ErrNotFound, ErrServer or ErrValidation.
//
// ListLists may return lists without items; those come back with
// Detail == DetailNotLoaded and GetListDetail must be called before showing
// item-level content.
type Remote interface {
	ListLists(ctx context.Context, scope Scope, page Page) ([]List, error)
	GetListDetail(ctx context.Context, listID string) (*List, error)
	CreateList(ctx context.Context, req CreateListRequest) (*List, error)
	UpdateList(ctx context.Context, listID string, req UpdateListRequest) (*List, error)
	DeleteList(ctx context.Context, listID string) error

	AddItem(ctx context.Context, listID string, req CreateItemRequest) (*Item, error)
	ToggleItem(ctx context.Context, listID, itemID string) (bool, error)
	DeleteItem(ctx context.Context, listID, itemID string) error

	RateItem(ctx context.Context, listID, itemID string, rating int) (*RatingResult, error)
	AddComment(ctx context.Context, listID, itemID, text string) (*Comment, error)
	ListComments(ctx context.Context, listID, itemID string) ([]Comment, error)

	ToggleStar(ctx context.Context, listID string) (*StarResult, error)
	CopyList(ctx context.Context, listID string) (*CopyResult, error)
}

// Session supplies the current actor. ok == false means nobody is signed in.
type Session interface {
	CurrentActor() (policy.Actor, bool)
}

// Uploader turns a local media reference into a stable remote URL.
type Uploader interface {
	Upload(ctx context.Context, media Media) (string, error)
}

// UploadFallback decides whether a mutation should go ahead without its image
// after the upload failed. Returning false aborts the mutation with ErrUpload.
type UploadFallback func(ctx context.Context, media Media, err error) bool

func ProceedWithoutImage(context.Context, Media, error) bool {
	return true
}

// StaticSession is a Session with a fixed actor.
type StaticSession struct {
	Actor policy.Actor
}

func (s StaticSession) CurrentActor() (policy.Actor, bool) {
	return s.Actor, s.Actor.Authenticated()
}
