package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	token := unsignedToken(t, time.Now().Add(time.Hour))
	store := &memoryStore{tokens: &TokenSet{IDToken: token, RefreshToken: "refresh", Username: "joy"}}
	session := NewSession(&fakeCognito{}, store, "client-id", nil)
	return NewClient(serverURL, session)
}

func TestLogEventSendsMultipart(t *testing.T) {
	var gotAuth, gotEvent, gotFilename, gotFileType string
	var gotData []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/log-event", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")

		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotEvent = r.FormValue("event")

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		gotFilename = header.Filename
		gotFileType = header.Header.Get("Content-Type")
		gotData, err = io.ReadAll(file)
		require.NoError(t, err)

		w.Write([]byte("Event logged successfully"))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	err := client.LogEvent(context.Background(), "morning walk", &Attachment{
		Name:        "walk.png",
		ContentType: "image/png",
		Data:        []byte("pngdata"),
	})
	require.NoError(t, err)

	assert.Contains(t, gotAuth, "Bearer ")
	assert.Equal(t, "morning walk", gotEvent)
	assert.Equal(t, "walk.png", gotFilename)
	assert.Equal(t, "image/png", gotFileType)
	assert.Equal(t, []byte("pngdata"), gotData)
}

func TestViewEventsDecodesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/view-events", r.URL.Path)
		require.Contains(t, r.Header.Get("Authorization"), "Bearer ")
		json.NewEncoder(w).Encode([]Event{
			{ID: "e1", Event: "first", Timestamp: "2025-06-06T10:00:00.000Z"},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	items, err := client.ViewEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "first", items[0].Event)
}

func TestViewEventsByDatePassesQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/view-events-by-date", r.URL.Path)
		require.Equal(t, "2025-06-06", r.URL.Query().Get("date"))
		json.NewEncoder(w).Encode([]Event{})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	items, err := client.ViewEventsByDate(context.Background(), "2025-06-06")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestClientSurfacesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Too many requests, please try again later.", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.EventDates(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "Too many requests")
}

func TestClientRefusesWithoutSession(t *testing.T) {
	session := NewSession(&fakeCognito{}, &memoryStore{}, "client-id", nil)
	client := NewClient("http://localhost:3001", session)

	_, err := client.ViewEvents(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)
}
