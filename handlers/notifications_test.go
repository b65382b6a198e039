package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"taskpulse-api/notify"
	"taskpulse-api/types"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory notify.Store good enough for handler tests.
type memStore struct {
	notifications []notify.Notification
	listErr       error
	markErr       error
	markedIDs     []int
	markedAll     []int
}

func (m *memStore) Create(ctx context.Context, n notify.Notification) (notify.Notification, error) {
	n.ID = len(m.notifications) + 1
	m.notifications = append(m.notifications, n)
	return n, nil
}

func (m *memStore) List(ctx context.Context, userID int, params notify.ListParams) ([]notify.Notification, int, error) {
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	var matched []notify.Notification
	for _, n := range m.notifications {
		if n.RecipientID != userID {
			continue
		}
		if params.Search != "" && !strings.Contains(strings.ToLower(n.Message), strings.ToLower(params.Search)) {
			continue
		}
		matched = append(matched, n)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if params.Sort == notify.SortOldest {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := len(matched)
	start := params.Offset()
	if start > total {
		start = total
	}
	end := start + params.PerPage
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (m *memStore) MarkRead(ctx context.Context, id, userID int) error {
	if m.markErr != nil {
		return m.markErr
	}
	for i := range m.notifications {
		if m.notifications[i].ID != id {
			continue
		}
		if m.notifications[i].RecipientID != userID {
			return notify.ErrNotOwned
		}
		if !m.notifications[i].IsRead {
			m.notifications[i].IsRead = true
			now := time.Now().UTC()
			m.notifications[i].ReadAt = &now
			m.markedIDs = append(m.markedIDs, id)
		}
		return nil
	}
	return notify.ErrNotFound
}

func (m *memStore) MarkAllRead(ctx context.Context, userID int) error {
	m.markedAll = append(m.markedAll, userID)
	return nil
}

func seedStore(count, recipientID int) *memStore {
	m := &memStore{}
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < count; i++ {
		m.notifications = append(m.notifications, notify.Notification{
			ID:          i + 1,
			RecipientID: recipientID,
			ActorID:     99,
			Kind:        "task.status.changed",
			Message:     fmt.Sprintf("message %d", i+1),
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		})
	}
	return m
}

func newNotificationsRouter(store notify.Store, userID int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewNotificationsHandler(store, 100)
	auth := func(c *gin.Context) { c.Set("userId", userID) }
	r.GET("/notifications", auth, h.List)
	r.POST("/notifications/:id/read", auth, h.MarkRead)
	r.POST("/notifications/read-all", auth, h.MarkAllRead)
	return r
}

type listResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Data       []notify.Notification `json:"data"`
		Pagination types.PageMeta        `json:"pagination"`
	} `json:"data"`
	Error *types.APIError `json:"error"`
}

func doList(t *testing.T, r *gin.Engine, query string) (*httptest.ResponseRecorder, listResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/notifications"+query, nil)
	r.ServeHTTP(w, req)
	var body listResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestListPaginatesNewestFirst(t *testing.T) {
	store := seedStore(25, 5)
	r := newNotificationsRouter(store, 5)

	w, body := doList(t, r, "?page=1&perPage=10")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, body.Success)
	assert.Len(t, body.Data.Data, 10)
	assert.Equal(t, 25, body.Data.Pagination.Total)
	assert.Equal(t, 3, body.Data.Pagination.TotalPages)
	assert.Equal(t, "message 25", body.Data.Data[0].Message, "newest first by default")

	_, page3 := doList(t, r, "?page=3&perPage=10")
	assert.Len(t, page3.Data.Data, 5)
	assert.Equal(t, "message 1", page3.Data.Data[4].Message)

	_, page4 := doList(t, r, "?page=4&perPage=10")
	assert.Empty(t, page4.Data.Data)
	assert.Equal(t, 25, page4.Data.Pagination.Total)
}

func TestListOldestFirst(t *testing.T) {
	store := seedStore(3, 5)
	r := newNotificationsRouter(store, 5)

	_, body := doList(t, r, "?sort=oldest")
	require.Len(t, body.Data.Data, 3)
	assert.Equal(t, "message 1", body.Data.Data[0].Message)
	assert.Equal(t, "message 3", body.Data.Data[2].Message)
}

func TestListRejectsInvalidSort(t *testing.T) {
	r := newNotificationsRouter(seedStore(1, 5), 5)
	w, body := doList(t, r, "?sort=sideways")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, body.Error)
	assert.Equal(t, types.ErrorCodeValidation, body.Error.Code)
}

func TestListRejectsMalformedPagination(t *testing.T) {
	r := newNotificationsRouter(seedStore(1, 5), 5)
	for _, q := range []string{"?page=0", "?page=abc", "?perPage=-3"} {
		w, body := doList(t, r, q)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
		require.NotNil(t, body.Error, q)
		assert.Equal(t, types.ErrorCodeValidation, body.Error.Code, q)
	}
}

func TestListClampsPerPage(t *testing.T) {
	r := newNotificationsRouter(seedStore(150, 5), 5)
	_, body := doList(t, r, "?perPage=5000")
	assert.Equal(t, 100, body.Data.Pagination.PerPage)
	assert.Len(t, body.Data.Data, 100)
}

func TestListFiltersBySearch(t *testing.T) {
	store := &memStore{notifications: []notify.Notification{
		{ID: 1, RecipientID: 5, Message: "Alice assigned Bob to task 'Ship it'", CreatedAt: time.Now()},
		{ID: 2, RecipientID: 5, Message: "Alice commented on task 'Ship it'", CreatedAt: time.Now()},
	}}
	r := newNotificationsRouter(store, 5)

	_, body := doList(t, r, "?search=ASSIGNED")
	require.Len(t, body.Data.Data, 1)
	assert.Contains(t, body.Data.Data[0].Message, "assigned")
	assert.Equal(t, 1, body.Data.Pagination.Total)
}

func TestListScopedToRequestingUser(t *testing.T) {
	store := seedStore(3, 5)
	store.notifications = append(store.notifications, notify.Notification{
		ID: 100, RecipientID: 6, Message: "not yours", CreatedAt: time.Now(),
	})
	r := newNotificationsRouter(store, 5)

	_, body := doList(t, r, "")
	assert.Len(t, body.Data.Data, 3)
	for _, n := range body.Data.Data {
		assert.Equal(t, 5, n.RecipientID)
	}
}

func TestListStoreErrorReturns500(t *testing.T) {
	r := newNotificationsRouter(&memStore{listErr: errors.New("db down")}, 5)
	w, body := doList(t, r, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.NotNil(t, body.Error)
	assert.Equal(t, types.ErrorCodeInternal, body.Error.Code)
}

func doMarkRead(t *testing.T, r *gin.Engine, id string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/notifications/"+id+"/read", nil)
	r.ServeHTTP(w, req)
	return w
}

func TestMarkRead(t *testing.T) {
	store := seedStore(1, 5)
	r := newNotificationsRouter(store, 5)

	w := doMarkRead(t, r, "1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []int{1}, store.markedIDs)
}

func TestMarkReadIsIdempotent(t *testing.T) {
	store := seedStore(1, 5)
	r := newNotificationsRouter(store, 5)

	first := doMarkRead(t, r, "1")
	assert.Equal(t, http.StatusOK, first.Code)
	require.True(t, store.notifications[0].IsRead)
	readAt := store.notifications[0].ReadAt
	require.NotNil(t, readAt)

	// Marking again succeeds without touching the record.
	second := doMarkRead(t, r, "1")
	assert.Equal(t, http.StatusOK, second.Code)
	assert.True(t, store.notifications[0].IsRead)
	assert.Equal(t, readAt, store.notifications[0].ReadAt)
	assert.Equal(t, []int{1}, store.markedIDs, "second call must be a no-op")
}

func TestMarkReadOtherUsersNotification(t *testing.T) {
	store := seedStore(1, 6)
	r := newNotificationsRouter(store, 5)
	w := doMarkRead(t, r, "1")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMarkReadUnknownNotification(t *testing.T) {
	store := seedStore(1, 5)
	r := newNotificationsRouter(store, 5)
	w := doMarkRead(t, r, "999")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMarkReadInvalidID(t *testing.T) {
	r := newNotificationsRouter(seedStore(1, 5), 5)
	for _, id := range []string{"abc", "0", "-4"} {
		w := doMarkRead(t, r, id)
		assert.Equal(t, http.StatusBadRequest, w.Code, id)
	}
}

func TestMarkReadErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"not found", notify.ErrNotFound, http.StatusNotFound},
		{"not owned", notify.ErrNotOwned, http.StatusForbidden},
		{"internal", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newNotificationsRouter(&memStore{markErr: tt.err}, 5)
			w := doMarkRead(t, r, "1")
			assert.Equal(t, tt.code, w.Code)
		})
	}
}

func TestMarkAllRead(t *testing.T) {
	store := seedStore(3, 5)
	r := newNotificationsRouter(store, 5)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/notifications/read-all", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []int{5}, store.markedAll)
}
