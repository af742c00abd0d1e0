// Package mailbox wraps the Gmail API surface this system consumes: unread
// listing, raw message fetch, mark-read, watch registration and history
// deltas, plus the OAuth credential store feeding all of it.
package mailbox

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/mkovacs/trading-bridge/internal/observ"
)

const (
	userID      = "me"
	labelInbox  = "INBOX"
	labelUnread = "UNREAD"
	queryUnread = "is:unread"
)

// ErrNotFound means the message id no longer exists, e.g. it was deleted
// between list and fetch.
var ErrNotFound = errors.New("mailbox: message not found")

// Ref identifies one message. The id is opaque and immutable.
type Ref struct {
	ID string
}

type Client struct {
	svc *gmail.Service
}

func NewClient(ctx context.Context, ts oauth2.TokenSource) (*Client, error) {
	svc, err := gmail.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// ListUnread returns up to max unread inbox message refs. One page only;
// overflow is picked up on the next tick.
func (c *Client) ListUnread(ctx context.Context, max int64) ([]Ref, error) {
	resp, err := c.svc.Users.Messages.List(userID).
		LabelIds(labelInbox).
		Q(queryUnread).
		MaxResults(max).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list unread: %w", err)
	}
	refs := make([]Ref, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		refs = append(refs, Ref{ID: m.Id})
	}
	return refs, nil
}

// FetchRaw returns the full raw MIME content of a message.
func (c *Client) FetchRaw(ctx context.Context, id string) ([]byte, error) {
	msg, err := c.svc.Users.Messages.Get(userID, id).Format("raw").Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == 404 {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("fetch message %s: %w", id, err)
	}
	raw, err := decodeBase64URL(msg.Raw)
	if err != nil {
		return nil, fmt.Errorf("decode message %s: %w", id, err)
	}
	return raw, nil
}

// MarkRead clears the unread label. Idempotent: marking an already-read or
// deleted message logs and moves on, it never raises.
func (c *Client) MarkRead(ctx context.Context, id string) {
	req := &gmail.ModifyMessageRequest{RemoveLabelIds: []string{labelUnread}}
	if _, err := c.svc.Users.Messages.Modify(userID, id, req).Context(ctx).Do(); err != nil {
		observ.Log("mark_read_failed", map[string]any{"id": id, "error": err.Error()})
		return
	}
	observ.IncCounter("messages_marked_read_total", nil)
}

// Register starts a watch on the inbox pointed at the given Pub/Sub topic and
// returns the provider's starting history id.
func (c *Client) Register(ctx context.Context, topic string) (uint64, error) {
	req := &gmail.WatchRequest{
		LabelIds:  []string{labelInbox},
		TopicName: topic,
	}
	resp, err := c.svc.Users.Watch(userID, req).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("register watch: %w", err)
	}
	return resp.HistoryId, nil
}

// HistorySince returns ids of messages added since the given watermark.
func (c *Client) HistorySince(ctx context.Context, start uint64) ([]string, error) {
	resp, err := c.svc.Users.History.List(userID).
		StartHistoryId(start).
		HistoryTypes("messageAdded").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("history since %d: %w", start, err)
	}
	var ids []string
	for _, h := range resp.History {
		for _, added := range h.MessagesAdded {
			if added.Message != nil {
				ids = append(ids, added.Message.Id)
			}
		}
	}
	return ids, nil
}

// Gmail serves raw content as unpadded base64url, but some payload fields come
// back padded. Accept both.
func decodeBase64URL(s string) ([]byte, error) {
	if b, err := base64.URLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawURLEncoding.DecodeString(s)
}
