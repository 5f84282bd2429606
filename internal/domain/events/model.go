package events

// TimestampLayout is the millisecond ISO-8601 form records are stored with;
// every timestamp is produced in UTC so the trailing Z is always correct.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// PlaceholderDescription is stored when a file is logged without text.
const PlaceholderDescription = "No description provided"

// Event is one logged entry. Records are immutable once written; there is no
// update or delete path.
type Event struct {
	ID        string `json:"id" dynamodbav:"id"`
	Event     string `json:"event" dynamodbav:"event"`
	Timestamp string `json:"timestamp" dynamodbav:"timestamp"`
	UserSub   string `json:"userSub" dynamodbav:"userSub"`

	// S3Key is present only when a file was attached. It is derived from the
	// record id and a sanitized filename, never from raw client input.
	S3Key            string `json:"s3Key,omitempty" dynamodbav:"s3Key,omitempty"`
	OriginalFileName string `json:"originalFileName,omitempty" dynamodbav:"originalFileName,omitempty"`

	// FileURL is derived per read and never persisted.
	FileURL string `json:"fileUrl,omitempty" dynamodbav:"-"`
}

// Date returns the calendar-date prefix (YYYY-MM-DD) of the event timestamp.
func (e *Event) Date() string {
	if len(e.Timestamp) < 10 {
		return e.Timestamp
	}
	return e.Timestamp[:10]
}
