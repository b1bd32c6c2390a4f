package engine

import (
	"context"
	"errors"
	"fmt"
)

var errNoUploader = errors.New("no uploader configured")

// resolveMedia turns a media reference into the URL to send. ok is false when
// the mutation goes ahead without an image.
func (c *Coordinator) resolveMedia(ctx context.Context, op Op, listID, itemID string, media Media) (string, bool, error) {
	if media.IsZero() {
		return "", false, nil
	}
	if !media.IsLocal() {
		return media.URL, true, nil
	}

	var (
		url string
		err error
	)
	if c.uploads == nil {
		err = errNoUploader
	} else {
		url, err = c.uploads.Upload(ctx, media)
	}
	if err == nil {
		return url, true, nil
	}

	if c.fallback(ctx, media, err) {
		c.log.Warn("lists."+string(op)+": upload failed, continuing without image",
			"err", err, "list_id", listID, "item_id", itemID, "path", media.LocalPath)
		return "", false, nil
	}
	return "", false, c.reject(op, listID, itemID, fmt.Errorf("%w: %v", ErrUpload, err))
}
