package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/expo-access/internal/model"
)

// Store keeps the most recent notifications of each recipient in Redis.
//
//	<prefix>:inbox:<recipient>         LIST of JSON notifications, newest first
//	<prefix>:inbox:<recipient>:unread  SET of unread notification ids
//	<prefix>:seen:<event id>           processed change events, with TTL
type Store struct {
	rdb    *redis.Client
	prefix string
	max    int
}

func NewStore(rdb *redis.Client, prefix string, max int) *Store {
	if max <= 0 {
		max = 100
	}
	return &Store{rdb: rdb, prefix: prefix, max: max}
}

func (s *Store) inboxKey(recipient string) string  { return s.prefix + ":inbox:" + recipient }
func (s *Store) unreadKey(recipient string) string { return s.inboxKey(recipient) + ":unread" }

// Add stores n as unread.  Entries beyond the history size are dropped
// together with their unread marker.
func (s *Store) Add(ctx context.Context, n model.Notification) error {
	n.Read = false
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	inbox, unread := s.inboxKey(n.Recipient), s.unreadKey(n.Recipient)

	var overflow *redis.StringSliceCmd
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LPush(ctx, inbox, body)
		p.SAdd(ctx, unread, n.ID)
		overflow = p.LRange(ctx, inbox, int64(s.max), -1)
		p.LTrim(ctx, inbox, 0, int64(s.max-1))
		return nil
	})
	if err != nil {
		return fmt.Errorf("store notification: %w", err)
	}
	dropped := overflow.Val()
	if len(dropped) == 0 {
		return nil
	}
	ids := make([]interface{}, 0, len(dropped))
	for _, raw := range dropped {
		var old model.Notification
		if json.Unmarshal([]byte(raw), &old) == nil {
			ids = append(ids, old.ID)
		}
	}
	if len(ids) > 0 {
		return s.rdb.SRem(ctx, unread, ids...).Err()
	}
	return nil
}

// List returns up to limit notifications of recipient, newest first, with
// the read flag resolved.  A recipient without history gets an empty slice.
func (s *Store) List(ctx context.Context, recipient string, limit int) ([]model.Notification, error) {
	if limit <= 0 || limit > s.max {
		limit = s.max
	}
	raws, err := s.rdb.LRange(ctx, s.inboxKey(recipient), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	unread, err := s.rdb.SMembers(ctx, s.unreadKey(recipient)).Result()
	if err != nil {
		return nil, err
	}
	isUnread := make(map[string]bool, len(unread))
	for _, id := range unread {
		isUnread[id] = true
	}
	out := make([]model.Notification, 0, len(raws))
	for _, raw := range raws {
		var n model.Notification
		if err := json.Unmarshal([]byte(raw), &n); err != nil {
			continue
		}
		n.Read = !isUnread[n.ID]
		out = append(out, n)
	}
	return out, nil
}

// MarkRead clears the unread flag of one notification.  It reports whether
// the notification was unread.
func (s *Store) MarkRead(ctx context.Context, recipient, id string) (bool, error) {
	n, err := s.rdb.SRem(ctx, s.unreadKey(recipient), id).Result()
	return n > 0, err
}

// MarkAllRead clears every unread flag of recipient.
func (s *Store) MarkAllRead(ctx context.Context, recipient string) error {
	return s.rdb.Del(ctx, s.unreadKey(recipient)).Err()
}

// UnreadCount returns the number of unread notifications.
func (s *Store) UnreadCount(ctx context.Context, recipient string) (int64, error) {
	return s.rdb.SCard(ctx, s.unreadKey(recipient)).Result()
}

// FirstSeen records a change event id and reports whether this is the
// first time it was seen.  Broker redeliveries are then ignored.
func (s *Store) FirstSeen(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, s.prefix+":seen:"+eventID, 1, ttl).Result()
}
