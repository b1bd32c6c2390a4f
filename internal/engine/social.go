package engine

import (
	"context"
	"fmt"
	"strings"

	"family-lists-go/internal/policy"
)

// RateItem sets the viewer's rating; 0 retracts it. Aggregates are only ever
// copied from the service.
func (c *Coordinator) RateItem(ctx context.Context, listID, itemID string, rating int) (RatingResult, error) {
	c.mu.Lock()
	_, list, err := c.authorizeLocked(OpRateItem, listID, itemID, policy.ActionRate, true)
	if err != nil {
		c.mu.Unlock()
		return RatingResult{}, err
	}
	if err := c.validateStruct(newRating{Rating: rating}); err != nil {
		c.mu.Unlock()
		return RatingResult{}, c.reject(OpRateItem, listID, itemID, err)
	}
	idx := indexOfItem(list.Items, itemID)
	if idx < 0 {
		c.mu.Unlock()
		return RatingResult{}, c.reject(OpRateItem, listID, itemID, ErrUnknownItem)
	}
	if list.Items[idx].Pending || !c.acquireLocked(rateKey(listID, itemID)) {
		c.mu.Unlock()
		return RatingResult{}, c.reject(OpRateItem, listID, itemID, ErrBusy)
	}
	previous := list.Items[idx].UserRating
	list.Items[idx].UserRating = rating
	epoch := c.beginItemOpLocked(listID)
	c.mu.Unlock()

	rctx, cancel := c.remoteContext(ctx)
	defer cancel()
	res, err := c.remote.RateItem(rctx, listID, itemID, rating)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseLocked(rateKey(listID, itemID))
	if err == nil && res == nil {
		err = fmt.Errorf("%w: empty rating response", ErrServer)
	}
	live, ok := c.finishItemOpLocked(OpRateItem, listID, epoch)
	if err != nil {
		if ok {
			if i := indexOfItem(live.Items, itemID); i >= 0 {
				live.Items[i].UserRating = previous
			}
		}
		return RatingResult{}, c.remoteFailureLocked(OpRateItem, listID, itemID, err)
	}
	if ok {
		if i := indexOfItem(live.Items, itemID); i >= 0 {
			live.Items[i].AverageRating = res.AverageRating
			live.Items[i].TotalRatings = res.TotalRatings
			live.Items[i].UserRating = res.UserRating
		}
	}
	return *res, nil
}

// AddComment appends a temporary comment to a loaded thread and bumps the
// item's comment count until the service answers.
func (c *Coordinator) AddComment(ctx context.Context, listID, itemID, text string) (Comment, error) {
	text = strings.TrimSpace(text)

	c.mu.Lock()
	actor, list, err := c.authorizeLocked(OpAddComment, listID, itemID, policy.ActionComment, true)
	if err != nil {
		c.mu.Unlock()
		return Comment{}, err
	}
	if err := c.validateStruct(newComment{Text: text}); err != nil {
		c.mu.Unlock()
		return Comment{}, c.reject(OpAddComment, listID, itemID, err)
	}
	idx := indexOfItem(list.Items, itemID)
	if idx < 0 {
		c.mu.Unlock()
		return Comment{}, c.reject(OpAddComment, listID, itemID, ErrUnknownItem)
	}
	if list.Items[idx].Pending {
		c.mu.Unlock()
		return Comment{}, c.reject(OpAddComment, listID, itemID, ErrBusy)
	}
	temp := Comment{
		ID:          c.newTempID(),
		ItemID:      itemID,
		AuthorID:    actor.ID,
		AuthorName:  actor.Name,
		AuthorPhoto: actor.PhotoURL,
		Text:        text,
		CreatedAt:   c.now(),
		Pending:     true,
	}
	key := threadKey(listID, itemID)
	if thread, loaded := c.cache.comments[key]; loaded {
		c.cache.comments[key] = append(thread, temp)
	}
	list.Items[idx].CommentsCount++
	epoch := c.beginItemOpLocked(listID)
	c.mu.Unlock()

	rctx, cancel := c.remoteContext(ctx)
	defer cancel()
	created, err := c.remote.AddComment(rctx, listID, itemID, text)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil && created == nil {
		err = fmt.Errorf("%w: empty comment response", ErrServer)
	}
	live, ok := c.finishItemOpLocked(OpAddComment, listID, epoch)
	if err != nil {
		if ok {
			c.dropTempCommentLocked(key, temp.ID)
			if i := indexOfItem(live.Items, itemID); i >= 0 && live.Items[i].CommentsCount > 0 {
				live.Items[i].CommentsCount--
			}
		}
		return Comment{}, c.remoteFailureLocked(OpAddComment, listID, itemID, err)
	}

	confirmed := *created
	confirmed.ItemID = itemID
	confirmed.Pending = false
	if ok {
		if thread, loaded := c.cache.comments[key]; loaded {
			if i := indexOfComment(thread, temp.ID); i >= 0 {
				thread[i] = confirmed
			} else {
				c.cache.comments[key] = append(thread, confirmed)
			}
		}
		if i := indexOfItem(live.Items, itemID); i >= 0 && confirmed.ItemCommentsCount != nil {
			live.Items[i].CommentsCount = *confirmed.ItemCommentsCount
		}
	}
	return cloneComments([]Comment{confirmed})[0], nil
}

func (c *Coordinator) dropTempCommentLocked(key, tempID string) {
	thread, loaded := c.cache.comments[key]
	if !loaded {
		return
	}
	if i := indexOfComment(thread, tempID); i >= 0 {
		c.cache.comments[key] = append(thread[:i], thread[i+1:]...)
	}
}

// LoadComments fetches an item's thread. Unconfirmed local comments stay at the
// end of it.
func (c *Coordinator) LoadComments(ctx context.Context, listID, itemID string) ([]Comment, error) {
	fetched, err := c.remote.ListComments(ctx, listID, itemID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		return nil, c.remoteFailureLocked(OpLoadComments, listID, itemID, err)
	}

	thread := cloneComments(fetched)
	if thread == nil {
		thread = []Comment{}
	}
	if c.cache.get(listID) == nil {
		return thread, nil
	}
	key := threadKey(listID, itemID)
	for _, comment := range c.cache.comments[key] {
		if comment.Pending {
			thread = append(thread, comment)
		}
	}
	c.cache.comments[key] = thread
	return cloneComments(thread), nil
}

// ToggleStar flips the viewer's star and moves StarsCount by exactly one.
func (c *Coordinator) ToggleStar(ctx context.Context, listID string) (StarResult, error) {
	c.mu.Lock()
	_, list, err := c.authorizeLocked(OpToggleStar, listID, "", policy.ActionStar, false)
	if err != nil {
		c.mu.Unlock()
		return StarResult{}, err
	}
	if !c.acquireLocked(starKey(listID)) {
		c.mu.Unlock()
		return StarResult{}, c.reject(OpToggleStar, listID, "", ErrBusy)
	}
	previous := StarResult{StarsCount: list.StarsCount, IsStarred: list.IsStarred}
	list.IsStarred = !previous.IsStarred
	if list.IsStarred {
		list.StarsCount++
	} else if list.StarsCount > 0 {
		list.StarsCount--
	}
	c.mu.Unlock()

	rctx, cancel := c.remoteContext(ctx)
	defer cancel()
	res, err := c.remote.ToggleStar(rctx, listID)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseLocked(starKey(listID))
	if err == nil && res == nil {
		err = fmt.Errorf("%w: empty star response", ErrServer)
	}
	if err != nil {
		if live := c.cache.get(listID); live != nil {
			live.StarsCount = previous.StarsCount
			live.IsStarred = previous.IsStarred
		}
		return StarResult{}, c.remoteFailureLocked(OpToggleStar, listID, "", err)
	}
	if live := c.cache.get(listID); live != nil {
		live.StarsCount = res.StarsCount
		live.IsStarred = res.IsStarred
	}
	return *res, nil
}
