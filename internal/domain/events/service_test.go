package events

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joymathews/my-daily-log-app/pkg/logger"
)

type fakeRepo struct {
	events  []Event
	putErr  error
	dates   []string
	lastPut *Event
}

func (f *fakeRepo) Put(ctx context.Context, event *Event) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.lastPut = event
	f.events = append(f.events, *event)
	return nil
}

func (f *fakeRepo) QueryByUser(ctx context.Context, userSub string) ([]Event, error) {
	out := make([]Event, 0)
	for _, e := range f.events {
		if e.UserSub == userSub {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeRepo) QueryByUserAndDate(ctx context.Context, userSub, dateISO string) ([]Event, error) {
	out := make([]Event, 0)
	for _, e := range f.events {
		if e.UserSub == userSub && e.Date() == dateISO {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeRepo) DistinctEventDates(ctx context.Context, userSub string) ([]string, error) {
	return f.dates, nil
}

type fakeUploader struct {
	uploadErr error
	keys      []string
}

func (f *fakeUploader) Upload(ctx context.Context, key, contentType string, body io.Reader) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.keys = append(f.keys, key)
	return nil
}

type fakeLinks struct {
	err error
}

func (f *fakeLinks) ResolveLink(ctx context.Context, key string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "https://files.example.com/" + key, nil
}

func newTestService(repo *fakeRepo, store *fakeUploader, links *fakeLinks) *service {
	return &service{
		repo:  repo,
		store: store,
		links: links,
		log:   logger.NewLogger("error"),
		now:   func() time.Time { return time.Date(2025, 6, 6, 10, 0, 0, 0, time.UTC) },
	}
}

func imageFile(name string) *FileUpload {
	return &FileUpload{Name: name, ContentType: "image/jpeg", Data: []byte("fake image bytes")}
}

func TestLogEventRequiresDescriptionOrFile(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo, &fakeUploader{}, &fakeLinks{})

	_, err := svc.LogEvent(context.Background(), LogEventInput{UserSub: "user-a"})
	assert.ErrorIs(t, err, ErrMissingContent)
	assert.Nil(t, repo.lastPut, "no table write on validation failure")
}

func TestLogEventRejectsNonImageFile(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo, &fakeUploader{}, &fakeLinks{})

	_, err := svc.LogEvent(context.Background(), LogEventInput{
		UserSub: "user-a",
		File:    &FileUpload{Name: "notes.pdf", ContentType: "application/pdf"},
	})
	assert.ErrorIs(t, err, ErrNotImage)
	assert.Nil(t, repo.lastPut)
}

func TestLogEventStampsVerifiedSubject(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo, &fakeUploader{}, &fakeLinks{})

	event, err := svc.LogEvent(context.Background(), LogEventInput{
		UserSub:     "user-a",
		Description: "Test event",
	})
	require.NoError(t, err)
	assert.Equal(t, "user-a", event.UserSub)
	assert.Equal(t, "Test event", event.Event)
	assert.Equal(t, "2025-06-06T10:00:00.000Z", event.Timestamp)
	assert.NotEmpty(t, event.ID)
	assert.Empty(t, event.S3Key)
}

func TestLogEventUsesPlaceholderDescription(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo, &fakeUploader{}, &fakeLinks{})

	event, err := svc.LogEvent(context.Background(), LogEventInput{
		UserSub: "user-a",
		File:    imageFile("photo.jpg"),
	})
	require.NoError(t, err)
	assert.Equal(t, PlaceholderDescription, event.Event)
}

func TestLogEventDerivesSanitizedKey(t *testing.T) {
	repo := &fakeRepo{}
	store := &fakeUploader{}
	svc := newTestService(repo, store, &fakeLinks{})

	event, err := svc.LogEvent(context.Background(), LogEventInput{
		UserSub: "user-a",
		File:    imageFile("../etc/pass wd?.jpg"),
	})
	require.NoError(t, err)
	assert.Equal(t, event.ID+"-.._etc_pass_wd_.jpg", event.S3Key)
	assert.Equal(t, "../etc/pass wd?.jpg", event.OriginalFileName)
	assert.Equal(t, []string{event.S3Key}, store.keys)
}

func TestLogEventSkipsUploadWhenPutFails(t *testing.T) {
	repo := &fakeRepo{putErr: errors.New("dynamo down")}
	store := &fakeUploader{}
	svc := newTestService(repo, store, &fakeLinks{})

	_, err := svc.LogEvent(context.Background(), LogEventInput{
		UserSub: "user-a",
		File:    imageFile("photo.jpg"),
	})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUploadFailed)
	assert.Empty(t, store.keys, "upload must not be attempted after a failed write")
}

func TestLogEventReportsPartialWriteFailure(t *testing.T) {
	repo := &fakeRepo{}
	store := &fakeUploader{uploadErr: errors.New("s3 down")}
	svc := newTestService(repo, store, &fakeLinks{})

	event, err := svc.LogEvent(context.Background(), LogEventInput{
		UserSub: "user-a",
		File:    imageFile("photo.jpg"),
	})
	assert.ErrorIs(t, err, ErrUploadFailed)
	require.NotNil(t, event, "the record exists without its attachment")
	assert.NotNil(t, repo.lastPut)
}

func TestListEventsIsScopedPerUser(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo, &fakeUploader{}, &fakeLinks{})

	_, err := svc.LogEvent(context.Background(), LogEventInput{UserSub: "user-a", Description: "a's event"})
	require.NoError(t, err)
	_, err = svc.LogEvent(context.Background(), LogEventInput{UserSub: "user-b", Description: "b's event"})
	require.NoError(t, err)

	forA, err := svc.ListEvents(context.Background(), "user-a")
	require.NoError(t, err)
	forB, err := svc.ListEvents(context.Background(), "user-b")
	require.NoError(t, err)

	require.Len(t, forA, 1)
	require.Len(t, forB, 1)
	assert.Equal(t, "a's event", forA[0].Event)
	assert.Equal(t, "b's event", forB[0].Event)
}

func TestListEventsAttachesFileLinks(t *testing.T) {
	repo := &fakeRepo{events: []Event{
		{ID: "1", Event: "with file", UserSub: "user-a", S3Key: "1-photo.jpg"},
		{ID: "2", Event: "without file", UserSub: "user-a"},
	}}
	svc := newTestService(repo, &fakeUploader{}, &fakeLinks{})

	out, err := svc.ListEvents(context.Background(), "user-a")
	require.NoError(t, err)
	assert.Equal(t, "https://files.example.com/1-photo.jpg", out[0].FileURL)
	assert.Empty(t, out[1].FileURL)
}

func TestListEventsToleratesLinkResolverFailure(t *testing.T) {
	repo := &fakeRepo{events: []Event{
		{ID: "1", Event: "with file", UserSub: "user-a", S3Key: "1-photo.jpg"},
	}}
	svc := newTestService(repo, &fakeUploader{}, &fakeLinks{err: errors.New("presign failed")})

	out, err := svc.ListEvents(context.Background(), "user-a")
	require.NoError(t, err, "a broken link resolver must not fail the read")
	assert.Empty(t, out[0].FileURL)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"photo.jpg", "photo.jpg"},
		{"my photo.jpg", "my_photo.jpg"},
		{"../../escape.png", ".._.._escape.png"},
		{"name\r\nwith:header.gif", "name__with_header.gif"},
		{"under_score-dash.ok", "under_score-dash.ok"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeFilename(tt.in), "input %q", tt.in)
	}
}
