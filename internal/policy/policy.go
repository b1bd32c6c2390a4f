package policy

import "strings"

type Action string

const (
	ActionEditList   Action = "edit_list"
	ActionDeleteList Action = "delete_list"
	ActionToggleItem Action = "toggle_item"
	ActionDeleteItem Action = "delete_item"
	ActionAddItem    Action = "add_item"
	ActionComment    Action = "comment"
	ActionRate       Action = "rate"
	ActionStar       Action = "star"
	ActionCopy       Action = "copy"
)

var allActions = []Action{
	ActionEditList,
	ActionDeleteList,
	ActionToggleItem,
	ActionDeleteItem,
	ActionAddItem,
	ActionComment,
	ActionRate,
	ActionStar,
	ActionCopy,
}

// Actor is the identity supplied by the session collaborator. An empty ID
// means unauthenticated.
type Actor struct {
	ID       string
	Name     string
	PhotoURL string
}

func (a Actor) Authenticated() bool {
	return strings.TrimSpace(a.ID) != ""
}

// Target is the part of a list the rules look at.
type Target struct {
	CreatorID string
	IsPublic  bool
}

// CanMutate is the business rule table for list and item mutations. The same
// table gates the UI, the client coordinator and the server.
func CanMutate(actor Actor, target Target, action Action) bool {
	if !actor.Authenticated() {
		return false
	}
	actorID := strings.TrimSpace(actor.ID)
	isCreator := actorID == strings.TrimSpace(target.CreatorID)

	switch action {
	case ActionEditList, ActionDeleteList, ActionToggleItem, ActionDeleteItem:
		return isCreator
	case ActionAddItem:
		return isCreator || target.IsPublic
	case ActionComment, ActionRate:
		return target.IsPublic
	case ActionStar, ActionCopy:
		return target.IsPublic && !isCreator
	default:
		return false
	}
}

// Allowed returns every action the actor may offer on the target, in table order.
func Allowed(actor Actor, target Target) []Action {
	result := make([]Action, 0, len(allActions))
	for _, action := range allActions {
		if CanMutate(actor, target, action) {
			result = append(result, action)
		}
	}
	return result
}

// IsOwner is the local ownership rule used when the server omits isOwner.
func IsOwner(actorID, creatorID string) bool {
	actorID = strings.TrimSpace(actorID)
	return actorID != "" && actorID == strings.TrimSpace(creatorID)
}
