// Package listsapi talks to the lists service over JSON/HTTP and implements
// engine.Remote.
package listsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"family-lists-go/internal/engine"
	"family-lists-go/internal/wire"
	"family-lists-go/pkg/logger"
)

const maxResponseBytes = 4 << 20

// TokenFunc returns the bearer token for the current session; an empty token
// sends the request unauthenticated.
type TokenFunc func(ctx context.Context) (string, error)

type Config struct {
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	baseURL string
	client  *http.Client
	token   TokenFunc
	session engine.Session
	log     logger.Logger
}

var _ engine.Remote = (*Client)(nil)

func New(cfg Config, token TokenFunc, session engine.Session, log logger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		token:   token,
		session: session,
		log:     logger.OrNop(log),
	}
}

// StaticToken returns a TokenFunc that always yields token.
func StaticToken(token string) TokenFunc {
	return func(context.Context) (string, error) {
		return token, nil
	}
}

func (c *Client) ListLists(ctx context.Context, scope engine.Scope, page engine.Page) ([]engine.List, error) {
	query := url.Values{}
	query.Set("scope", string(scope))
	if page.Limit > 0 {
		query.Set("limit", strconv.Itoa(page.Limit))
	}
	if page.Offset > 0 {
		query.Set("offset", strconv.Itoa(page.Offset))
	}

	var payloads []wire.ListPayload
	if err := c.do(ctx, http.MethodGet, "/api/lists?"+query.Encode(), nil, &payloads); err != nil {
		return nil, err
	}

	viewer := c.viewerID()
	lists := make([]engine.List, 0, len(payloads))
	for _, payload := range payloads {
		list := toList(payload, viewer)
		if list.ID == "" {
			continue
		}
		// Collection reads never count as a loaded detail, even if items came along.
		list.Items = nil
		list.Detail = engine.DetailNotLoaded
		lists = append(lists, list)
	}
	return lists, nil
}

func (c *Client) GetListDetail(ctx context.Context, listID string) (*engine.List, error) {
	var payload wire.ListPayload
	if err := c.do(ctx, http.MethodGet, listPath(listID), nil, &payload); err != nil {
		return nil, err
	}
	list := toList(payload, c.viewerID())
	list.Detail = engine.DetailLoaded
	if list.Items == nil {
		list.Items = []engine.Item{}
	}
	engine.RecomputeStats(&list)
	return &list, nil
}

func (c *Client) CreateList(ctx context.Context, req engine.CreateListRequest) (*engine.List, error) {
	body := wire.CreateListRequest{
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		IsPublic:    req.IsPublic,
	}
	var payload wire.ListPayload
	if err := c.do(ctx, http.MethodPost, "/api/lists", body, &payload); err != nil {
		return nil, err
	}
	list := toList(payload, c.viewerID())
	list.Detail = engine.DetailLoaded
	if list.Items == nil {
		list.Items = []engine.Item{}
	}
	return &list, nil
}

func (c *Client) UpdateList(ctx context.Context, listID string, req engine.UpdateListRequest) (*engine.List, error) {
	body := wire.UpdateListRequest{
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		IsPublic:    req.IsPublic,
	}
	var payload wire.ListPayload
	if err := c.do(ctx, http.MethodPatch, listPath(listID), body, &payload); err != nil {
		return nil, err
	}
	list := toList(payload, c.viewerID())
	return &list, nil
}

func (c *Client) DeleteList(ctx context.Context, listID string) error {
	return c.do(ctx, http.MethodDelete, listPath(listID), nil, nil)
}

func (c *Client) AddItem(ctx context.Context, listID string, req engine.CreateItemRequest) (*engine.Item, error) {
	body := wire.CreateItemRequest{
		Text:        req.Text,
		ImageURL:    req.ImageURL,
		Priority:    string(req.Priority),
		Details:     req.Details,
		Brand:       req.Brand,
		Store:       req.Store,
		ApproxPrice: req.ApproxPrice,
	}
	var payload wire.ItemPayload
	if err := c.do(ctx, http.MethodPost, listPath(listID)+"/items", body, &payload); err != nil {
		return nil, err
	}
	item := toItem(payload, listID)
	if item.ID == "" {
		return nil, fmt.Errorf("%w: item without id", engine.ErrServer)
	}
	return &item, nil
}

func (c *Client) ToggleItem(ctx context.Context, listID, itemID string) (bool, error) {
	var payload wire.TogglePayload
	if err := c.do(ctx, http.MethodPatch, itemPath(listID, itemID)+"/toggle", nil, &payload); err != nil {
		return false, err
	}
	completed, ok := payload.Completion()
	if !ok {
		return false, fmt.Errorf("%w: toggle response without completion flag", engine.ErrServer)
	}
	return completed, nil
}

func (c *Client) DeleteItem(ctx context.Context, listID, itemID string) error {
	return c.do(ctx, http.MethodDelete, itemPath(listID, itemID), nil, nil)
}

func (c *Client) RateItem(ctx context.Context, listID, itemID string, rating int) (*engine.RatingResult, error) {
	var payload wire.RatingPayload
	if err := c.do(ctx, http.MethodPut, itemPath(listID, itemID)+"/rating", wire.RateRequest{Rating: rating}, &payload); err != nil {
		return nil, err
	}
	return &engine.RatingResult{
		AverageRating: payload.AverageRating,
		TotalRatings:  payload.RatingsTotal(),
		UserRating:    payload.UserRating,
	}, nil
}

func (c *Client) AddComment(ctx context.Context, listID, itemID, text string) (*engine.Comment, error) {
	var payload wire.CommentPayload
	if err := c.do(ctx, http.MethodPost, itemPath(listID, itemID)+"/comments", wire.CommentRequest{Text: text}, &payload); err != nil {
		return nil, err
	}
	comment := toComment(payload, itemID)
	if comment.ID == "" {
		return nil, fmt.Errorf("%w: comment without id", engine.ErrServer)
	}
	return &comment, nil
}

func (c *Client) ListComments(ctx context.Context, listID, itemID string) ([]engine.Comment, error) {
	var payloads []wire.CommentPayload
	if err := c.do(ctx, http.MethodGet, itemPath(listID, itemID)+"/comments", nil, &payloads); err != nil {
		return nil, err
	}
	comments := make([]engine.Comment, 0, len(payloads))
	for _, payload := range payloads {
		comments = append(comments, toComment(payload, itemID))
	}
	return comments, nil
}

func (c *Client) ToggleStar(ctx context.Context, listID string) (*engine.StarResult, error) {
	var payload wire.StarPayload
	if err := c.do(ctx, http.MethodPost, listPath(listID)+"/star", nil, &payload); err != nil {
		return nil, err
	}
	return &engine.StarResult{StarsCount: payload.StarsCount, IsStarred: payload.IsStarred}, nil
}

func (c *Client) CopyList(ctx context.Context, listID string) (*engine.CopyResult, error) {
	var payload wire.CopyPayload
	if err := c.do(ctx, http.MethodPost, listPath(listID)+"/copy", nil, &payload); err != nil {
		return nil, err
	}
	return &engine.CopyResult{ListID: payload.Identity(), Title: payload.Title}, nil
}

func (c *Client) viewerID() string {
	if c.session == nil {
		return ""
	}
	actor, ok := c.session.CurrentActor()
	if !ok {
		return ""
	}
	return actor.ID
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		token, err := c.token(ctx)
		if err != nil {
			return &engine.RemoteError{Kind: engine.ErrAuth, Message: err.Error()}
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Debug("listsapi.request: transport failed", "method", method, "path", path, "err", err)
		return &engine.RemoteError{Kind: engine.ErrNetwork, Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &engine.RemoteError{Kind: engine.ErrNetwork, Status: resp.StatusCode, Message: err.Error()}
	}

	var envelope wire.Envelope[json.RawMessage]
	decodeErr := json.Unmarshal(raw, &envelope)

	if resp.StatusCode >= http.StatusBadRequest {
		return &engine.RemoteError{
			Kind:    kindForStatus(resp.StatusCode),
			Status:  resp.StatusCode,
			Code:    envelope.Code,
			Message: envelope.Message,
		}
	}
	if decodeErr != nil {
		return &engine.RemoteError{Kind: engine.ErrServer, Status: resp.StatusCode, Message: "decode response: " + decodeErr.Error()}
	}
	if !envelope.Success {
		return &engine.RemoteError{Kind: engine.ErrServer, Status: resp.StatusCode, Code: envelope.Code, Message: envelope.Message}
	}
	if out == nil || len(envelope.Data) == 0 || bytes.Equal(envelope.Data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return &engine.RemoteError{Kind: engine.ErrServer, Status: resp.StatusCode, Message: "decode data: " + err.Error()}
	}
	return nil
}

func kindForStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return engine.ErrAuth
	case status == http.StatusNotFound || status == http.StatusGone:
		return engine.ErrNotFound
	case status == http.StatusBadRequest || status == http.StatusConflict || status == http.StatusUnprocessableEntity:
		return engine.ErrValidation
	default:
		return engine.ErrServer
	}
}

func listPath(listID string) string {
	return "/api/lists/" + url.PathEscape(listID)
}

func itemPath(listID, itemID string) string {
	return listPath(listID) + "/items/" + url.PathEscape(itemID)
}
