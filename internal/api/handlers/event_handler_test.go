package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joymathews/my-daily-log-app/internal/domain/events"
	"github.com/joymathews/my-daily-log-app/pkg/logger"
)

type fakeService struct {
	logInput   events.LogEventInput
	logEvent   *events.Event
	logErr     error
	listItems  []events.Event
	listErr    error
	dates      []string
	datesErr   error
	byDateArgs []string
}

func (f *fakeService) LogEvent(ctx context.Context, input events.LogEventInput) (*events.Event, error) {
	f.logInput = input
	if f.logErr != nil {
		return f.logEvent, f.logErr
	}
	if f.logEvent != nil {
		return f.logEvent, nil
	}
	return &events.Event{ID: "generated"}, nil
}

func (f *fakeService) ListEvents(ctx context.Context, userSub string) ([]events.Event, error) {
	return f.listItems, f.listErr
}

func (f *fakeService) ListEventsByDate(ctx context.Context, userSub, dateISO string) ([]events.Event, error) {
	f.byDateArgs = append(f.byDateArgs, dateISO)
	if dateISO == "not-a-date" {
		return nil, events.ErrInvalidDate
	}
	return f.listItems, f.listErr
}

func (f *fakeService) EventDates(ctx context.Context, userSub string) ([]string, error) {
	return f.dates, f.datesErr
}

func newEventRouter(service events.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewEventHandler(service, logger.NewLogger("error"))

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("user_sub", "user-a")
	})
	router.POST("/log-event", handler.LogEvent)
	router.GET("/view-events", handler.ViewEvents)
	router.GET("/view-events-by-date", handler.ViewEventsByDate)
	router.GET("/event-dates", handler.EventDates)
	return router
}

func multipartBody(t *testing.T, description string, filename string, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if description != "" {
		require.NoError(t, writer.WriteField("event", description))
	}
	if filename != "" {
		header := make(map[string][]string)
		header["Content-Disposition"] = []string{`form-data; name="file"; filename="` + filename + `"`}
		header["Content-Type"] = []string{contentType}
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestLogEventMultipart(t *testing.T) {
	service := &fakeService{}
	router := newEventRouter(service)

	body, contentType := multipartBody(t, "went for a run", "sunset.jpg", "image/jpeg", []byte("jpegdata"))
	req := httptest.NewRequest(http.MethodPost, "/log-event", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Event logged successfully", w.Body.String())
	assert.Equal(t, "user-a", service.logInput.UserSub)
	assert.Equal(t, "went for a run", service.logInput.Description)
	require.NotNil(t, service.logInput.File)
	assert.Equal(t, "sunset.jpg", service.logInput.File.Name)
	assert.Equal(t, "image/jpeg", service.logInput.File.ContentType)
	assert.Equal(t, []byte("jpegdata"), service.logInput.File.Data)
}

func TestLogEventJSONBody(t *testing.T) {
	service := &fakeService{}
	router := newEventRouter(service)

	req := httptest.NewRequest(http.MethodPost, "/log-event", strings.NewReader(`{"event":"text only"}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text only", service.logInput.Description)
	assert.Nil(t, service.logInput.File)
}

func TestLogEventErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantCode   int
		wantBody   string
	}{
		{"missing content", events.ErrMissingContent, http.StatusBadRequest, "Event description or file is required"},
		{"not an image", events.ErrNotImage, http.StatusBadRequest, "Only image files are allowed"},
		{"upload failed", events.ErrUploadFailed, http.StatusInternalServerError, "File upload failed"},
		{"other failure", errors.New("dynamo down"), http.StatusInternalServerError, "Error logging event"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &fakeService{logErr: tt.serviceErr}
			router := newEventRouter(service)

			body, contentType := multipartBody(t, "desc", "", "", nil)
			req := httptest.NewRequest(http.MethodPost, "/log-event", body)
			req.Header.Set("Content-Type", contentType)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestViewEvents(t *testing.T) {
	service := &fakeService{listItems: []events.Event{
		{ID: "e1", Event: "first", UserSub: "user-a"},
		{ID: "e2", Event: "second", UserSub: "user-a", S3Key: "e2-pic.jpg", FileURL: "http://localhost:4566/b/e2-pic.jpg"},
	}}
	router := newEventRouter(service)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/view-events", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var got []events.Event
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "http://localhost:4566/b/e2-pic.jpg", got[1].FileURL)
}

func TestViewEventsFailure(t *testing.T) {
	service := &fakeService{listErr: errors.New("query failed")}
	router := newEventRouter(service)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/view-events", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Error fetching events", w.Body.String())
}

func TestViewEventsByDateRequiresDate(t *testing.T) {
	service := &fakeService{}
	router := newEventRouter(service)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/view-events-by-date", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing date query parameter", w.Body.String())
	assert.Empty(t, service.byDateArgs, "service must not be queried without a date")
}

func TestViewEventsByDateRejectsBadDate(t *testing.T) {
	service := &fakeService{}
	router := newEventRouter(service)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/view-events-by-date?date=not-a-date", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestViewEventsByDatePassesDate(t *testing.T) {
	service := &fakeService{}
	router := newEventRouter(service)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/view-events-by-date?date=2025-06-06", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"2025-06-06"}, service.byDateArgs)
}

func TestEventDates(t *testing.T) {
	service := &fakeService{dates: []string{"2025-06-06", "2025-06-05"}}
	router := newEventRouter(service)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/event-dates", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var got []string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, []string{"2025-06-06", "2025-06-05"}, got)
}
