package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"

	"resumely/internal/composer"
	"resumely/internal/tasks"
)

// SnapshotStorage 是导出快照需要的最小对象存储接口，测试中用假实现替换。
type SnapshotStorage interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
}

// exportSnapshot 是写入对象存储的快照载荷。
type exportSnapshot struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Document    datatypes.JSON `json:"document"`
}

// ExportTaskHandler 消费文档导出任务：组装文档视图、上传 JSON 快照、
// 回写对象键并通过 Redis Pub/Sub 通知属主。
type ExportTaskHandler struct {
	composer    *composer.Composer
	storage     SnapshotStorage
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewExportTaskHandler 创建任务处理器。
func NewExportTaskHandler(
	comp *composer.Composer,
	storage SnapshotStorage,
	redisClient *redis.Client,
	logger *slog.Logger,
) *ExportTaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportTaskHandler{
		composer:    comp,
		storage:     storage,
		redisClient: redisClient,
		logger:      logger,
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *ExportTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	var payload tasks.DocumentExportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return err
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Uint64("document_id", uint64(payload.DocumentID)),
		slog.String("owner", payload.Owner),
	)
	log.Info("starting document export task")

	defer func() {
		if retErr == nil {
			return
		}
		// 重试次数耗尽时才通知失败，避免中间态打扰前端。
		if !isFinalAsynqAttempt(ctx) {
			return
		}
		h.notify(ctx, payload.Owner, DocumentExportNotifyMessage{
			Status:        "failed",
			DocumentID:    payload.DocumentID,
			CorrelationID: payload.CorrelationID,
			ErrorMessage:  retErr.Error(),
		}, log)
	}()

	view, err := h.composer.Compose(ctx, payload.DocumentID)
	if err != nil {
		log.Error("compose document failed", slog.Any("error", err))
		return err
	}
	if view.Document == nil {
		log.Warn("document not found, skipping export")
		return nil
	}
	if view.Document.Owner != payload.Owner {
		log.Warn("document owner changed since enqueue, skipping export")
		return nil
	}

	viewJSON, err := json.Marshal(view)
	if err != nil {
		log.Error("marshal composed document failed", slog.Any("error", err))
		return err
	}
	snapshot, err := json.Marshal(exportSnapshot{
		GeneratedAt: time.Now().UTC(),
		Document:    datatypes.JSON(viewJSON),
	})
	if err != nil {
		log.Error("marshal snapshot failed", slog.Any("error", err))
		return err
	}

	objectKey := fmt.Sprintf("exports/%s/%d/%s.json", payload.Owner, payload.DocumentID, uuid.NewString())
	if _, err := h.storage.UploadFile(ctx, objectKey, bytes.NewReader(snapshot), int64(len(snapshot)), "application/json"); err != nil {
		log.Error("upload snapshot failed", slog.Any("error", err))
		return err
	}

	if err := h.composer.Docs.SetExportObjectKey(ctx, payload.DocumentID, objectKey); err != nil {
		log.Error("record export object key failed", slog.Any("error", err))
		return err
	}

	h.notify(ctx, payload.Owner, DocumentExportNotifyMessage{
		Status:        "ready",
		DocumentID:    payload.DocumentID,
		ObjectKey:     objectKey,
		CorrelationID: payload.CorrelationID,
	}, log)

	log.Info("document export completed", slog.String("object_key", objectKey))
	return nil
}

func (h *ExportTaskHandler) notify(ctx context.Context, owner string, msg DocumentExportNotifyMessage, log *slog.Logger) {
	if h.redisClient == nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error("marshal notify message failed", slog.Any("error", err))
		return
	}
	channel := fmt.Sprintf("user_notify:%s", owner)
	if err := h.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		log.Error("publish notify message failed",
			slog.String("channel", channel),
			slog.Any("error", err),
		)
	}
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return true
	}
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	if !ok {
		return true
	}
	return retried >= maxRetry
}
