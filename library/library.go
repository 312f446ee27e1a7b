// Package library keeps per-user reading state and cached upstream
// responses behind a swappable KV store.
package library

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/mangalib-app/mangalib/internal"
)

// Cache lifetimes per kind of upstream response.
const (
	TTLSearch   = 15 * time.Minute
	TTLDetails  = time.Hour
	TTLChapters = 30 * time.Minute
	TTLPages    = 24 * time.Hour
)

// Entry is the manga subset worth keeping once the full record is gone.
type Entry struct {
	ID       string          `json:"id"`
	Source   string          `json:"source"`
	Title    string          `json:"title"`
	CoverURL string          `json:"coverUrl"`
	Type     internal.Type   `json:"type"`
	Status   internal.Status `json:"status"`
	AddedAt  time.Time       `json:"addedAt"`
}

// HistoryEntry records the last chapter read for one manga.
type HistoryEntry struct {
	Entry
	Chapter string    `json:"chapter"`
	ReadAt  time.Time `json:"readAt"`
}

// Notification is a stored "new chapter" style event.
type Notification struct {
	ID        string    `json:"id"`
	MangaID   string    `json:"mangaId"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// Library bundles the typed repositories over one store.
type Library struct {
	Favorites     *Favorites
	History       *History
	Notifications *Notifications
	Cache         *ResponseCache
}

func New(store Store) *Library {
	return &Library{
		Favorites:     &Favorites{store: store},
		History:       &History{store: store},
		Notifications: &Notifications{store: store},
		Cache:         &ResponseCache{store: store},
	}
}

type Favorites struct {
	store Store
}

func (f *Favorites) Add(e Entry) error {
	if e.ID == "" {
		return fmt.Errorf("favorite needs an id")
	}
	if e.AddedAt.IsZero() {
		e.AddedAt = time.Now().UTC()
	}
	return putJSON(f.store, "fav:"+e.ID, e, 0)
}

func (f *Favorites) Remove(id string) error {
	return f.store.Delete("fav:" + id)
}

func (f *Favorites) List() ([]Entry, error) {
	values, err := f.store.ScanPrefix("fav:")
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(values))
	for _, v := range values {
		var e Entry
		if err := json.Unmarshal(v, &e); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].AddedAt.Equal(entries[j].AddedAt) {
			return entries[i].AddedAt.After(entries[j].AddedAt)
		}
		return entries[i].ID < entries[j].ID
	})
	return entries, nil
}

type History struct {
	store Store
}

// Record upserts the entry for a manga; rereading just moves it to the top.
func (h *History) Record(e HistoryEntry) error {
	if e.ID == "" {
		return fmt.Errorf("history entry needs an id")
	}
	if e.ReadAt.IsZero() {
		e.ReadAt = time.Now().UTC()
	}
	return putJSON(h.store, "hist:"+e.ID, e, 0)
}

func (h *History) Remove(id string) error {
	return h.store.Delete("hist:" + id)
}

func (h *History) List() ([]HistoryEntry, error) {
	values, err := h.store.ScanPrefix("hist:")
	if err != nil {
		return nil, err
	}
	entries := make([]HistoryEntry, 0, len(values))
	for _, v := range values {
		var e HistoryEntry
		if err := json.Unmarshal(v, &e); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].ReadAt.Equal(entries[j].ReadAt) {
			return entries[i].ReadAt.After(entries[j].ReadAt)
		}
		return entries[i].ID < entries[j].ID
	})
	return entries, nil
}

type Notifications struct {
	store Store
}

func (n *Notifications) Add(v Notification) error {
	if v.ID == "" {
		return fmt.Errorf("notification needs an id")
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	return putJSON(n.store, "notif:"+v.ID, v, 0)
}

func (n *Notifications) MarkRead(id string) error {
	raw, ok, err := n.store.Get("notif:" + id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("notification %q not found", id)
	}
	var v Notification
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	v.Read = true
	return putJSON(n.store, "notif:"+id, v, 0)
}

func (n *Notifications) Remove(id string) error {
	return n.store.Delete("notif:" + id)
}

func (n *Notifications) List() ([]Notification, error) {
	values, err := n.store.ScanPrefix("notif:")
	if err != nil {
		return nil, err
	}
	out := make([]Notification, 0, len(values))
	for _, v := range values {
		var e Notification
		if err := json.Unmarshal(v, &e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ResponseCache memoizes upstream JSON responses under namespaced keys.
type ResponseCache struct {
	store Store
}

func (c *ResponseCache) Get(key string, out any) (bool, error) {
	raw, ok, err := c.store.Get("cache:" + key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		// A stale shape is a miss, not a failure.
		_ = c.store.Delete("cache:" + key)
		return false, nil
	}
	return true, nil
}

func (c *ResponseCache) Set(key string, v any, ttl time.Duration) error {
	return putJSON(c.store, "cache:"+key, v, ttl)
}

func putJSON(store Store, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return store.Set(key, raw, ttl)
}
