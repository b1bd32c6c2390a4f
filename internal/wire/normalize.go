package wire

import (
	"strings"

	"family-lists-go/internal/policy"
)

// Identity returns id, falling back to _id.
func (p ListPayload) Identity() string {
	return firstString(p.ID, p.LegacyID)
}

// Owner applies isOwner = serverValue ?? (viewerID == creatorId).
func (p ListPayload) Owner(viewerID string) bool {
	if p.IsOwner != nil {
		return *p.IsOwner
	}
	return policy.IsOwner(viewerID, p.CreatorID)
}

func (p ItemPayload) Identity() string {
	return firstString(p.ID, p.LegacyID)
}

// Completion reads isCompleted, falling back to completed. A payload that
// carries neither is pending.
func (p ItemPayload) Completion() bool {
	value, _ := firstBool(p.IsCompleted, p.LegacyCompleted)
	return value
}

// RatingsTotal reads totalRatings, falling back to ratingsCount.
func (p ItemPayload) RatingsTotal() int {
	return firstInt(p.TotalRatings, p.RatingsCount)
}

func (p CommentPayload) Identity() string {
	return firstString(p.ID, p.LegacyID)
}

// Completion reports the confirmed flag and whether the payload carried one.
func (p TogglePayload) Completion() (bool, bool) {
	return firstBool(p.IsCompleted, p.LegacyCompleted)
}

func (p RatingPayload) RatingsTotal() int {
	return firstInt(p.TotalRatings, p.RatingsCount)
}

func (p CopyPayload) Identity() string {
	return firstString(p.ID, p.LegacyID)
}

func firstString(values ...*string) string {
	for _, value := range values {
		if value == nil {
			continue
		}
		if trimmed := strings.TrimSpace(*value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func firstBool(values ...*bool) (bool, bool) {
	for _, value := range values {
		if value != nil {
			return *value, true
		}
	}
	return false, false
}

func firstInt(values ...*int) int {
	for _, value := range values {
		if value != nil {
			return *value
		}
	}
	return 0
}
