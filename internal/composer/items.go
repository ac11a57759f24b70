package composer

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"resumely/internal/apperr"
)

// ItemAccess 提供对内容条目类型的最小访问能力：读 id、读写属主。
// 每种条目类型在 wiring 处声明一次，换取条目存储与挂载逻辑完全泛型化。
type ItemAccess[I any] struct {
	// Name 用于错误消息，如 "section"、"education"。
	Name     string
	ID       func(*I) uint
	Owner    func(*I) string
	SetOwner func(*I, string)
}

// ItemStore 是所有内容条目类型共用的带属主校验的 CRUD。
type ItemStore[I any] struct {
	db     *gorm.DB
	access ItemAccess[I]
}

// NewItemStore 构造条目存储。
func NewItemStore[I any](db *gorm.DB, access ItemAccess[I]) *ItemStore[I] {
	return &ItemStore[I]{db: db, access: access}
}

// Create 插入条目，属主由调用方预先设置。
func (s *ItemStore[I]) Create(ctx context.Context, item *I) error {
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		return apperr.FromStore(err, fmt.Sprintf("%s not found", s.access.Name))
	}
	return nil
}

// Get 按 id 查找条目，不做属主校验。
func (s *ItemStore[I]) Get(ctx context.Context, id uint) (*I, error) {
	var item I
	if err := s.db.WithContext(ctx).Take(&item, id).Error; err != nil {
		return nil, apperr.FromStore(err, fmt.Sprintf("%s not found", s.access.Name))
	}
	return &item, nil
}

// GetOwned 按 id 查找并校验属主；他人的条目返回 forbidden。
func (s *ItemStore[I]) GetOwned(ctx context.Context, owner string, id uint) (*I, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.access.Owner(item) != owner {
		return nil, apperr.Forbidden(fmt.Sprintf("%s belongs to another user", s.access.Name))
	}
	return item, nil
}

// ListOwned 返回用户的全部条目，按创建顺序。
func (s *ItemStore[I]) ListOwned(ctx context.Context, owner string) ([]I, error) {
	items := make([]I, 0)
	err := s.db.WithContext(ctx).
		Where("owner = ?", owner).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("list %ss", s.access.Name), err)
	}
	return items, nil
}

// Update 覆盖条目字段（属主不可变），返回重新加载后的条目。
func (s *ItemStore[I]) Update(ctx context.Context, owner string, id uint, updates map[string]any) (*I, error) {
	item, err := s.GetOwned(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	delete(updates, "owner")
	if len(updates) == 0 {
		return item, nil
	}
	if err := s.db.WithContext(ctx).Model(item).Updates(updates).Error; err != nil {
		return nil, apperr.Internal(fmt.Sprintf("update %s", s.access.Name), err)
	}
	if err := s.db.WithContext(ctx).Take(item, id).Error; err != nil {
		return nil, apperr.Internal(fmt.Sprintf("reload %s", s.access.Name), err)
	}
	return item, nil
}

// Delete 删除条目。目标不存在视为成功（幂等）；
// 硬删除以触发关系行上的 ON DELETE CASCADE。
func (s *ItemStore[I]) Delete(ctx context.Context, owner string, id uint) error {
	item, err := s.Get(ctx, id)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil
		}
		return err
	}
	if s.access.Owner(item) != owner {
		return apperr.Forbidden(fmt.Sprintf("%s belongs to another user", s.access.Name))
	}
	if err := s.db.WithContext(ctx).Unscoped().Delete(item).Error; err != nil {
		return apperr.Internal(fmt.Sprintf("delete %s", s.access.Name), err)
	}
	return nil
}

// itemsByID 按给定顺序取回条目；关系行重排后用它保持“新位置顺序”。
func (s *ItemStore[I]) itemsByID(ctx context.Context, ids []uint) ([]I, error) {
	if len(ids) == 0 {
		return []I{}, nil
	}
	var fetched []I
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&fetched).Error; err != nil {
		return nil, apperr.Internal(fmt.Sprintf("load %ss", s.access.Name), err)
	}

	byID := make(map[uint]*I, len(fetched))
	for i := range fetched {
		byID[s.access.ID(&fetched[i])] = &fetched[i]
	}

	ordered := make([]I, 0, len(ids))
	for _, id := range ids {
		item, ok := byID[id]
		if !ok {
			return nil, apperr.Internal(fmt.Sprintf("%s %d vanished during reorder", s.access.Name, id), nil)
		}
		ordered = append(ordered, *item)
	}
	return ordered, nil
}
