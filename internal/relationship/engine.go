// Package relationship implements the shared engine behind every positional
// many-to-many table (document↔section, document↔education, document↔experience,
// document↔skill, experience↔snippet). Each concrete table supplies a Spec with
// its column names instead of re-implementing the CRUD and reorder logic.
package relationship

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"resumely/internal/apperr"
)

// Spec 描述一张具体关系表：容器列、内容列，以及是否带位置/版本。
type Spec struct {
	// Table 仅用于日志与错误消息，gorm 由行类型推断表名。
	Table        string
	ContainerCol string
	ContentCol   string
	// VersionCol 非空时表示内容按 (id, version) 引用，支持版本重指向。
	VersionCol string
	Positional bool
}

// Engine 是按关系表参数化的通用引擎，R 为该表的行模型。
type Engine[R any] struct {
	db     *gorm.DB
	spec   Spec
	logger *slog.Logger
}

// NewEngine 构造关系引擎。logger 为 nil 时回落到 slog.Default。
func NewEngine[R any](db *gorm.DB, spec Spec, logger *slog.Logger) *Engine[R] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine[R]{db: db, spec: spec, logger: logger}
}

// Add 插入一条关系行。外键冲突（容器或内容不存在）翻译为 not-found，
// 唯一约束冲突（重复挂载）翻译为 bad-request。
func (e *Engine[R]) Add(ctx context.Context, row *R, notFoundMsg string) error {
	err := e.db.WithContext(ctx).Create(row).Error
	if err == nil {
		return nil
	}
	translated := apperr.FromStore(err, notFoundMsg)
	if apperr.KindOf(translated) == apperr.KindBadRequest {
		return apperr.BadRequest("already attached")
	}
	return translated
}

// Get 按条件取恰好一行，不存在则返回 not-found。
func (e *Engine[R]) Get(ctx context.Context, conds map[string]any, notFoundMsg string) (*R, error) {
	var row R
	if err := e.db.WithContext(ctx).Where(conds).Take(&row).Error; err != nil {
		return nil, apperr.FromStore(err, notFoundMsg)
	}
	return &row, nil
}

// GetAll 返回容器下的全部关系行；带位置的表按 position 升序。
// 空容器返回空切片而非错误。
func (e *Engine[R]) GetAll(ctx context.Context, containerID uint) ([]R, error) {
	rows := make([]R, 0)
	q := e.db.WithContext(ctx).Where(fmt.Sprintf("%s = ?", e.spec.ContainerCol), containerID)
	if e.spec.Positional {
		q = q.Order("position ASC")
	} else {
		q = q.Order("id ASC")
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, apperr.Internal(fmt.Sprintf("list %s", e.spec.Table), err)
	}
	return rows, nil
}

// NextPosition 返回容器中下一个可用位置：max(position)+1，空容器为 0。
func (e *Engine[R]) NextPosition(ctx context.Context, containerID uint) (int, error) {
	var row R
	// 空容器的哨兵值为 -1，+1 后得到首位 0。
	var maxPos int
	err := e.db.WithContext(ctx).
		Model(&row).
		Select("COALESCE(MAX(position), -1)").
		Where(fmt.Sprintf("%s = ?", e.spec.ContainerCol), containerID).
		Scan(&maxPos).Error
	if err != nil {
		return 0, apperr.Internal(fmt.Sprintf("max position in %s", e.spec.Table), err)
	}
	return maxPos + 1, nil
}

// UpdatePosition 单行改位置。负数位置是调用方错误；零行受影响说明
// 内存中的行已经失效（并发下被删除），按服务器错误上抛而非静默忽略。
func (e *Engine[R]) UpdatePosition(ctx context.Context, containerID, contentID uint, position int) (*R, error) {
	if position < 0 {
		return nil, apperr.BadRequest("position must not be negative")
	}

	res := e.db.WithContext(ctx).
		Model(new(R)).
		Where(fmt.Sprintf("%s = ? AND %s = ?", e.spec.ContainerCol, e.spec.ContentCol), containerID, contentID).
		Update("position", position)
	if res.Error != nil {
		return nil, apperr.FromStore(res.Error, fmt.Sprintf("%s row not found", e.spec.Table))
	}
	if res.RowsAffected == 0 {
		return nil, apperr.Internal(fmt.Sprintf("%s row no longer exists", e.spec.Table), nil)
	}

	return e.Get(ctx, map[string]any{
		e.spec.ContainerCol: containerID,
		e.spec.ContentCol:   contentID,
	}, fmt.Sprintf("%s row not found", e.spec.Table))
}

// UpdateAllPositions 原子地重排容器内的全部关系行：第 i 个内容 id 得到位置 i。
// 调用方必须提供容器当前挂载内容的完整集合，数量不符在任何写入前即拒绝。
//
// 数量检查发生在事务之外：检查与事务之间存在一个已知的并发窗口，
// 并发挂载/卸载可能造成误拒或对已变化的容器重排；写入阶段本身是全有或全无。
func (e *Engine[R]) UpdateAllPositions(ctx context.Context, containerID uint, contentIDs []uint) ([]R, error) {
	var count int64
	err := e.db.WithContext(ctx).
		Model(new(R)).
		Where(fmt.Sprintf("%s = ?", e.spec.ContainerCol), containerID).
		Count(&count).Error
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("count %s", e.spec.Table), err)
	}
	if count != int64(len(contentIDs)) {
		return nil, apperr.BadRequest("reorder must include every attached item exactly once")
	}

	rows := make([]R, 0, len(contentIDs))
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for position, contentID := range contentIDs {
			res := tx.Model(new(R)).
				Where(fmt.Sprintf("%s = ? AND %s = ?", e.spec.ContainerCol, e.spec.ContentCol), containerID, contentID).
				Update("position", position)
			if res.Error != nil {
				return apperr.Internal(fmt.Sprintf("reposition %s", e.spec.Table), res.Error)
			}
			if res.RowsAffected == 0 {
				// id 不属于该容器：与数量检查同类的集合不匹配。
				return apperr.BadRequest("reorder must include every attached item exactly once")
			}

			var row R
			if err := tx.Where(map[string]any{
				e.spec.ContainerCol: containerID,
				e.spec.ContentCol:   contentID,
			}).Take(&row).Error; err != nil {
				return apperr.Internal(fmt.Sprintf("reload %s", e.spec.Table), err)
			}
			rows = append(rows, row)
		}
		return nil
	})
	if err != nil {
		if apperr.IsDomain(err) {
			return nil, err
		}
		return nil, apperr.Internal(fmt.Sprintf("reorder %s", e.spec.Table), err)
	}

	// 返回顺序与调用方提供的 id 顺序一致，即新的位置顺序。
	return rows, nil
}

// Delete 删除一条关系行。目标不存在不视为错误，仅记录零行受影响。
func (e *Engine[R]) Delete(ctx context.Context, containerID, contentID uint) error {
	res := e.db.WithContext(ctx).
		Where(fmt.Sprintf("%s = ? AND %s = ?", e.spec.ContainerCol, e.spec.ContentCol), containerID, contentID).
		Delete(new(R))
	if res.Error != nil {
		return apperr.Internal(fmt.Sprintf("delete %s", e.spec.Table), res.Error)
	}
	if res.RowsAffected == 0 {
		e.logger.Info("relationship row already absent",
			slog.String("table", e.spec.Table),
			slog.Uint64("container_id", uint64(containerID)),
			slog.Uint64("content_id", uint64(contentID)),
		)
	}
	return nil
}

// Repoint 将所有引用 (contentID, oldVersion) 的关系行改写为 newVersion，
// 返回改写的行数。0 行是合法结果：该版本可能未被任何文档引用。
// 位置不变，因此文档内的展示顺序不受影响。
func (e *Engine[R]) Repoint(ctx context.Context, contentID uint, oldVersion, newVersion int64) (int64, error) {
	if e.spec.VersionCol == "" {
		return 0, apperr.Internal(fmt.Sprintf("%s is not versioned", e.spec.Table), nil)
	}
	res := e.db.WithContext(ctx).
		Model(new(R)).
		Where(fmt.Sprintf("%s = ? AND %s = ?", e.spec.ContentCol, e.spec.VersionCol), contentID, oldVersion).
		Update(e.spec.VersionCol, newVersion)
	if res.Error != nil {
		return 0, apperr.Internal(fmt.Sprintf("repoint %s", e.spec.Table), res.Error)
	}
	return res.RowsAffected, nil
}
