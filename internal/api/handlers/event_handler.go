package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/joymathews/my-daily-log-app/internal/api/middleware"
	"github.com/joymathews/my-daily-log-app/internal/domain/events"
	"github.com/joymathews/my-daily-log-app/pkg/logger"
)

type EventHandler struct {
	service events.Service
	log     *logger.Logger
}

func NewEventHandler(service events.Service, log *logger.Logger) *EventHandler {
	return &EventHandler{service: service, log: log}
}

type logEventJSON struct {
	Event string `json:"event"`
}

// LogEvent accepts a multipart form (`event` text plus optional `file` part)
// or a JSON body with an `event` field. The verified subject always comes from
// the token; client-supplied identity fields are ignored.
func (h *EventHandler) LogEvent(c *gin.Context) {
	userSub, ok := middleware.GetUserSub(c)
	if !ok {
		c.String(http.StatusUnauthorized, "Invalid token")
		return
	}

	input := events.LogEventInput{UserSub: userSub}

	if c.ContentType() == "application/json" {
		var body logEventJSON
		if err := c.ShouldBindJSON(&body); err != nil {
			c.String(http.StatusBadRequest, "Event description or file is required")
			return
		}
		input.Description = body.Event
	} else {
		input.Description = c.PostForm("event")

		fileHeader, err := c.FormFile("file")
		if err == nil && fileHeader != nil {
			file, err := fileHeader.Open()
			if err != nil {
				h.log.Error("Failed to open uploaded file", zap.Error(err))
				c.String(http.StatusInternalServerError, "Error logging event")
				return
			}
			defer file.Close()

			data, err := io.ReadAll(file)
			if err != nil {
				h.log.Error("Failed to read uploaded file", zap.Error(err))
				c.String(http.StatusInternalServerError, "Error logging event")
				return
			}

			input.File = &events.FileUpload{
				Name:        fileHeader.Filename,
				ContentType: fileHeader.Header.Get("Content-Type"),
				Data:        data,
			}
		}
	}

	_, err := h.service.LogEvent(c.Request.Context(), input)
	switch {
	case err == nil:
		c.String(http.StatusOK, "Event logged successfully")
	case errors.Is(err, events.ErrMissingContent):
		c.String(http.StatusBadRequest, "Event description or file is required")
	case errors.Is(err, events.ErrNotImage):
		c.String(http.StatusBadRequest, "Only image files are allowed")
	case errors.Is(err, events.ErrUploadFailed):
		// The record is already saved; the client needs to know this is
		// specifically the attachment that failed.
		c.String(http.StatusInternalServerError, "File upload failed")
	default:
		h.log.Error("Error logging event", zap.Error(err))
		c.String(http.StatusInternalServerError, "Error logging event")
	}
}

// ViewEvents returns every event belonging to the caller.
func (h *EventHandler) ViewEvents(c *gin.Context) {
	userSub, ok := middleware.GetUserSub(c)
	if !ok {
		c.String(http.StatusUnauthorized, "Invalid token")
		return
	}

	items, err := h.service.ListEvents(c.Request.Context(), userSub)
	if err != nil {
		h.log.Error("Error fetching events", zap.Error(err))
		c.String(http.StatusInternalServerError, "Error fetching events")
		return
	}
	c.JSON(http.StatusOK, items)
}

// ViewEventsByDate returns the caller's events for one UTC calendar day.
func (h *EventHandler) ViewEventsByDate(c *gin.Context) {
	userSub, ok := middleware.GetUserSub(c)
	if !ok {
		c.String(http.StatusUnauthorized, "Invalid token")
		return
	}

	date := c.Query("date")
	if date == "" {
		c.String(http.StatusBadRequest, "Missing date query parameter")
		return
	}

	items, err := h.service.ListEventsByDate(c.Request.Context(), userSub, date)
	if err != nil {
		if errors.Is(err, events.ErrInvalidDate) {
			c.String(http.StatusBadRequest, "Invalid date format, expected YYYY-MM-DD")
			return
		}
		h.log.Error("Error fetching events by date", zap.Error(err))
		c.String(http.StatusInternalServerError, "Error fetching events")
		return
	}
	c.JSON(http.StatusOK, items)
}

// EventDates returns the distinct calendar dates the caller has events for.
func (h *EventHandler) EventDates(c *gin.Context) {
	userSub, ok := middleware.GetUserSub(c)
	if !ok {
		c.String(http.StatusUnauthorized, "Invalid token")
		return
	}

	dates, err := h.service.EventDates(c.Request.Context(), userSub)
	if err != nil {
		h.log.Error("Error fetching event dates", zap.Error(err))
		c.String(http.StatusInternalServerError, "Error fetching event dates")
		return
	}
	c.JSON(http.StatusOK, dates)
}
