package engine

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("not found")
	ErrNetwork          = errors.New("network error")
	ErrServer           = errors.New("server error")
	ErrAuth             = errors.New("not authenticated")
	ErrBusy             = errors.New("mutation already in flight")
	ErrNotLoaded        = errors.New("list detail not loaded")
	ErrUnknownItem      = errors.New("item not in cache")
	ErrUpload           = errors.New("image upload failed")
)

// Codes the service puts next to a 404 to say which entity is gone.
const (
	CodeListNotFound = "list_not_found"
	CodeItemNotFound = "item_not_found"
)

type Op string

const (
	OpLoadLists    Op = "load_lists"
	OpLoadDetail   Op = "load_detail"
	OpCreateList   Op = "create_list"
	OpUpdateList   Op = "update_list"
	OpDeleteList   Op = "delete_list"
	OpAddItem      Op = "add_item"
	OpToggleItem   Op = "toggle_item"
	OpDeleteItem   Op = "delete_item"
	OpRateItem     Op = "rate_item"
	OpAddComment   Op = "add_comment"
	OpLoadComments Op = "load_comments"
	OpToggleStar   Op = "toggle_star"
	OpCopyList     Op = "copy_list"
)

// ActionError is what every coordinator operation returns on failure. The
// cache is already back to its pre-action state when it is returned.
type ActionError struct {
	Op     Op
	ListID string
	ItemID string
	Err    error
}

func (e *ActionError) Error() string {
	var b strings.Builder
	b.WriteString("lists.")
	b.WriteString(string(e.Op))
	if e.ListID != "" {
		b.WriteString(" list=")
		b.WriteString(e.ListID)
	}
	if e.ItemID != "" {
		b.WriteString(" item=")
		b.WriteString(e.ItemID)
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// Retryable reports whether a fresh user-initiated attempt may succeed.
func (e *ActionError) Retryable() bool {
	return errors.Is(e.Err, ErrNetwork) || errors.Is(e.Err, ErrServer)
}

// RemoteError carries the service's human-readable message next to the
// sentinel describing the failure class.
type RemoteError struct {
	Kind    error
	Status  int
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%v (status %d)", e.Kind, e.Status)
	}
	return fmt.Sprintf("%v (status %d): %s", e.Kind, e.Status, e.Message)
}

func (e *RemoteError) Unwrap() error {
	return e.Kind
}

// itemGone reports whether err says the item is gone while its list is not.
// An uncoded 404 on an item operation is read as the item.
func itemGone(err error, itemID string) bool {
	if itemID == "" || !errors.Is(err, ErrNotFound) {
		return false
	}
	var remote *RemoteError
	if errors.As(err, &remote) && remote.Code != "" {
		return remote.Code == CodeItemNotFound
	}
	return true
}
