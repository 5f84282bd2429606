package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joymathews/my-daily-log-app/pkg/config"
)

// StorageChecker reports reachability of the file store.
type StorageChecker interface {
	Ping(ctx context.Context) error
	Bucket() string
}

// TableChecker reports reachability of the event table. The returned count is
// the size of a one-item probe read, included as evidence the table answered.
type TableChecker interface {
	Ping(ctx context.Context) (int32, error)
}

type HealthHandler struct {
	storage StorageChecker
	table   TableChecker
	cfg     *config.Config
}

func NewHealthHandler(storage StorageChecker, table TableChecker, cfg *config.Config) *HealthHandler {
	return &HealthHandler{storage: storage, table: table, cfg: cfg}
}

type dependencyStatus struct {
	Status    string `json:"status"`
	Bucket    string `json:"bucket,omitempty"`
	ItemCount *int32 `json:"itemCount,omitempty"`
	Error     string `json:"error,omitempty"`
}

type healthResponse struct {
	Status      string                      `json:"status"`
	Services    map[string]dependencyStatus `json:"services"`
	Environment map[string]string           `json:"environment"`
}

// Health probes both backing services live and reports per-dependency detail.
// Any failing dependency degrades the overall status and the response code.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()
	healthy := true

	s3Status := dependencyStatus{Status: "ok", Bucket: h.storage.Bucket()}
	if err := h.storage.Ping(ctx); err != nil {
		healthy = false
		s3Status = dependencyStatus{Status: "error", Error: err.Error()}
	}

	dynamoStatus := dependencyStatus{Status: "ok"}
	if count, err := h.table.Ping(ctx); err != nil {
		healthy = false
		dynamoStatus = dependencyStatus{Status: "error", Error: err.Error()}
	} else {
		dynamoStatus.ItemCount = &count
	}

	status := "ok"
	code := http.StatusOK
	if !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, healthResponse{
		Status: status,
		Services: map[string]dependencyStatus{
			"s3":       s3Status,
			"dynamodb": dynamoStatus,
		},
		Environment: map[string]string{
			"AWS_REGION":          h.cfg.AWS.Region,
			"DYNAMODB_ENDPOINT":   h.cfg.Table.Endpoint,
			"S3_ENDPOINT":         h.cfg.Storage.Endpoint,
			"S3_BUCKET_NAME":      h.cfg.Storage.BucketName,
			"DYNAMODB_TABLE_NAME": h.cfg.Table.Name,
		},
	})
}
