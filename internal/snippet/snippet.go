// Package snippet 存储版本化文本片段。行以 (id, version) 为主键且一经写入
// 不再修改：更新插入新版本，删除只移除单个版本。
package snippet

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"resumely/internal/apperr"
	"resumely/internal/database"
)

// UpdateProps 描述更新时要覆盖的字段；nil 表示沿用当前版本的值。
type UpdateProps struct {
	Kind    *string
	Content *string
}

// Store 提供文本片段的版本化读写。
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewStore 构造片段存储。logger 为 nil 时回落到 slog.Default。
func NewStore(db *gorm.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger, now: time.Now}
}

// Add 创建一个新片段的首个版本（parent 为空）。
// 片段 id 在事务内按 max(id)+1 分配：(id, version) 复合主键下
// 自增列在两种驱动上行为不一致，显式分配保持可移植。
func (s *Store) Add(ctx context.Context, owner, kind, content string) (*database.TextSnippet, error) {
	row := database.TextSnippet{
		Owner:   owner,
		Kind:    kind,
		Content: content,
		Version: s.now().UnixMicro(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxID uint
		if err := tx.Model(&database.TextSnippet{}).
			Select("COALESCE(MAX(id), 0)").
			Scan(&maxID).Error; err != nil {
			return err
		}
		row.ID = maxID + 1
		return tx.Create(&row).Error
	})
	if err != nil {
		return nil, apperr.FromStore(err, "snippet not found")
	}
	return &row, nil
}

// Get 精确查找 (id, version)，不存在返回 not-found。
func (s *Store) Get(ctx context.Context, id uint, version int64) (*database.TextSnippet, error) {
	var row database.TextSnippet
	err := s.db.WithContext(ctx).
		Where("id = ? AND version = ?", id, version).
		Take(&row).Error
	if err != nil {
		return nil, apperr.FromStore(err, "snippet version not found")
	}
	return &row, nil
}

// Versions 返回某个片段 id 的全部版本，按版本升序。
func (s *Store) Versions(ctx context.Context, id uint) ([]database.TextSnippet, error) {
	rows := make([]database.TextSnippet, 0)
	err := s.db.WithContext(ctx).
		Where("id = ?", id).
		Order("version ASC").
		Find(&rows).Error
	if err != nil {
		return nil, apperr.Internal("list snippet versions", err)
	}
	return rows, nil
}

// ListOwned 返回某个用户的全部片段行（所有版本），按 (id, version) 升序。
func (s *Store) ListOwned(ctx context.Context, owner string) ([]database.TextSnippet, error) {
	rows := make([]database.TextSnippet, 0)
	err := s.db.WithContext(ctx).
		Where("owner = ?", owner).
		Order("id ASC, version ASC").
		Find(&rows).Error
	if err != nil {
		return nil, apperr.Internal("list snippets", err)
	}
	return rows, nil
}

// Update 基于 current 派生新版本：同一 id、新版本号、parent 指向 current 的
// 版本，未覆盖的字段原样拷贝。current 的行不会被修改或删除。
// 若 current 的行已不存在（实例失效），按服务器错误上抛。
func (s *Store) Update(ctx context.Context, current *database.TextSnippet, props UpdateProps) (*database.TextSnippet, error) {
	next := database.TextSnippet{
		ID:      current.ID,
		Owner:   current.Owner,
		Parent:  &current.Version,
		Kind:    current.Kind,
		Content: current.Content,
	}
	if props.Kind != nil {
		next.Kind = *props.Kind
	}
	if props.Content != nil {
		next.Content = *props.Content
	}

	next.Version = s.now().UnixMicro()
	if next.Version <= current.Version {
		// 时钟分辨率内的连续更新仍需严格递增的版本号。
		next.Version = current.Version + 1
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&database.TextSnippet{}).
			Where("id = ? AND version = ?", current.ID, current.Version).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return apperr.Internal("snippet version no longer exists", nil)
		}
		return tx.Create(&next).Error
	})
	if err != nil {
		if apperr.IsDomain(err) {
			return nil, err
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Internal("snippet version collision", err)
		}
		return nil, apperr.Internal("create snippet version", err)
	}
	return &next, nil
}

// Delete 只移除 (id, version) 这一个版本，幂等。
// 指向它的更新版本的 parent 会悬空：系统有意不回填也不级联。
func (s *Store) Delete(ctx context.Context, id uint, version int64) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND version = ?", id, version).
		Delete(&database.TextSnippet{})
	if res.Error != nil {
		return apperr.Internal("delete snippet version", res.Error)
	}
	if res.RowsAffected == 0 {
		s.logger.Info("snippet version already absent",
			slog.Uint64("snippet_id", uint64(id)),
			slog.Int64("version", version),
		)
	}
	return nil
}

// WithClock 覆盖版本号时钟，测试用。
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}
