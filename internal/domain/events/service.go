package events

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joymathews/my-daily-log-app/pkg/logger"
)

var (
	// ErrMissingContent means the request carried neither text nor a file.
	ErrMissingContent = errors.New("event description or file is required")
	// ErrNotImage means the attached file's declared type is not an image.
	// This is a policy restriction, not a technical one.
	ErrNotImage = errors.New("only image files are allowed")
	// ErrUploadFailed means the record was persisted but the attachment was
	// not. Callers must report this distinctly: the description is saved.
	ErrUploadFailed = errors.New("file upload failed")
)

// filenameSanitizer keeps storage keys free of path traversal and header
// injection characters coming in via user filenames.
var filenameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// FileUpload is an attachment received with a log request.
type FileUpload struct {
	Name        string
	ContentType string
	Data        []byte
}

// LogEventInput carries a validated ingestion request. UserSub always comes
// from the verified token, never from client-supplied fields.
type LogEventInput struct {
	UserSub     string
	Description string
	File        *FileUpload
}

// ObjectUploader is the blob-storage dependency of the service.
type ObjectUploader interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) error
}

// LinkResolver turns stored keys into fetchable URLs.
type LinkResolver interface {
	ResolveLink(ctx context.Context, key string) (string, error)
}

type Service interface {
	LogEvent(ctx context.Context, input LogEventInput) (*Event, error)
	ListEvents(ctx context.Context, userSub string) ([]Event, error)
	ListEventsByDate(ctx context.Context, userSub, dateISO string) ([]Event, error)
	EventDates(ctx context.Context, userSub string) ([]string, error)
}

type service struct {
	repo  Repository
	store ObjectUploader
	links LinkResolver
	log   *logger.Logger
	now   func() time.Time
}

func NewService(repo Repository, store ObjectUploader, links LinkResolver, log *logger.Logger) Service {
	return &service{
		repo:  repo,
		store: store,
		links: links,
		log:   log,
		now:   time.Now,
	}
}

// LogEvent validates the input, writes the table record, and only after a
// successful write uploads the attachment. An upload failure after the record
// is persisted returns ErrUploadFailed so the caller can signal the partial
// state distinctly. The record is not rolled back.
func (s *service) LogEvent(ctx context.Context, input LogEventInput) (*Event, error) {
	if input.Description == "" && input.File == nil {
		return nil, ErrMissingContent
	}
	if input.File != nil && !strings.HasPrefix(input.File.ContentType, "image/") {
		return nil, ErrNotImage
	}

	event := &Event{
		ID:        uuid.NewString(),
		Event:     input.Description,
		Timestamp: s.now().UTC().Format(TimestampLayout),
		UserSub:   input.UserSub,
	}
	if event.Event == "" {
		event.Event = PlaceholderDescription
	}
	if input.File != nil {
		event.S3Key = fmt.Sprintf("%s-%s", event.ID, SanitizeFilename(input.File.Name))
		event.OriginalFileName = input.File.Name
	}

	if err := s.repo.Put(ctx, event); err != nil {
		return nil, err
	}

	if input.File != nil {
		if err := s.store.Upload(ctx, event.S3Key, input.File.ContentType, bytes.NewReader(input.File.Data)); err != nil {
			s.log.Error("File upload failed after record was saved",
				zap.String("id", event.ID),
				zap.String("s3Key", event.S3Key),
				zap.Error(err))
			return event, fmt.Errorf("%w: %v", ErrUploadFailed, err)
		}
	}

	return event, nil
}

func (s *service) ListEvents(ctx context.Context, userSub string) ([]Event, error) {
	items, err := s.repo.QueryByUser(ctx, userSub)
	if err != nil {
		return nil, err
	}
	return s.attachFileLinks(ctx, items), nil
}

func (s *service) ListEventsByDate(ctx context.Context, userSub, dateISO string) ([]Event, error) {
	items, err := s.repo.QueryByUserAndDate(ctx, userSub, dateISO)
	if err != nil {
		return nil, err
	}
	return s.attachFileLinks(ctx, items), nil
}

func (s *service) EventDates(ctx context.Context, userSub string) ([]string, error) {
	return s.repo.DistinctEventDates(ctx, userSub)
}

// attachFileLinks derives a fileUrl for every event with an attachment. A
// resolver failure degrades that one event to no link rather than failing
// the whole read.
func (s *service) attachFileLinks(ctx context.Context, items []Event) []Event {
	for i := range items {
		if items[i].S3Key == "" {
			continue
		}
		url, err := s.links.ResolveLink(ctx, items[i].S3Key)
		if err != nil {
			s.log.Warn("Failed to resolve file link",
				zap.String("id", items[i].ID),
				zap.String("s3Key", items[i].S3Key),
				zap.Error(err))
			continue
		}
		items[i].FileURL = url
	}
	return items
}

// SanitizeFilename replaces every character outside [A-Za-z0-9._-] with an
// underscore.
func SanitizeFilename(name string) string {
	return filenameSanitizer.ReplaceAllString(name, "_")
}
