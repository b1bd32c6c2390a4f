package policy

import (
	"reflect"
	"testing"
)

func TestCanMutateTable(t *testing.T) {
	owner := Actor{ID: "owner"}
	other := Actor{ID: "other"}
	anon := Actor{}

	public := Target{CreatorID: "owner", IsPublic: true}
	private := Target{CreatorID: "owner", IsPublic: false}

	cases := []struct {
		name   string
		actor  Actor
		target Target
		action Action
		want   bool
	}{
		{"owner edits", owner, private, ActionEditList, true},
		{"other edits public", other, public, ActionEditList, false},
		{"owner deletes", owner, public, ActionDeleteList, true},
		{"other deletes public", other, public, ActionDeleteList, false},
		{"owner toggles", owner, private, ActionToggleItem, true},
		{"other toggles public", other, public, ActionToggleItem, false},
		{"other toggles private", other, private, ActionToggleItem, false},
		{"other deletes item", other, public, ActionDeleteItem, false},
		{"owner adds private", owner, private, ActionAddItem, true},
		{"other adds public", other, public, ActionAddItem, true},
		{"other adds private", other, private, ActionAddItem, false},
		{"owner comments public", owner, public, ActionComment, true},
		{"owner comments private", owner, private, ActionComment, false},
		{"other comments public", other, public, ActionComment, true},
		{"other rates private", other, private, ActionRate, false},
		{"other rates public", other, public, ActionRate, true},
		{"owner stars own", owner, public, ActionStar, false},
		{"other stars public", other, public, ActionStar, true},
		{"other stars private", other, private, ActionStar, false},
		{"other copies public", other, public, ActionCopy, true},
		{"owner copies own", owner, public, ActionCopy, false},
		{"other copies private", other, private, ActionCopy, false},
		{"anon adds public", anon, public, ActionAddItem, false},
		{"anon comments public", anon, public, ActionComment, false},
		{"unknown action", owner, public, Action("archive"), false},
	}

	for _, tc := range cases {
		if got := CanMutate(tc.actor, tc.target, tc.action); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestCanMutateTrimsIDs(t *testing.T) {
	if !CanMutate(Actor{ID: " owner "}, Target{CreatorID: "owner"}, ActionToggleItem) {
		t.Fatalf("expected padded actor id to match creator")
	}
	if CanMutate(Actor{ID: "   "}, Target{CreatorID: "   ", IsPublic: true}, ActionEditList) {
		t.Fatalf("expected blank actor to be unauthenticated")
	}
}

func TestAllowed(t *testing.T) {
	got := Allowed(Actor{ID: "other"}, Target{CreatorID: "owner", IsPublic: true})
	want := []Action{ActionAddItem, ActionComment, ActionRate, ActionStar, ActionCopy}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	got = Allowed(Actor{ID: "owner"}, Target{CreatorID: "owner"})
	want = []Action{ActionEditList, ActionDeleteList, ActionToggleItem, ActionDeleteItem, ActionAddItem}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestIsOwner(t *testing.T) {
	if IsOwner("", "") {
		t.Fatalf("expected empty ids not to own")
	}
	if !IsOwner("u-1", "u-1") {
		t.Fatalf("expected match")
	}
}
