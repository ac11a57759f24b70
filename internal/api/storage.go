package api

import (
	"context"
	"time"
)

// PresignStorage 是下载链接所需的最小对象存储接口，测试中用假实现替换。
type PresignStorage interface {
	GeneratePresignedURL(ctx context.Context, objectKey string, duration time.Duration) (string, error)
}
