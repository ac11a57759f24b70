// Package composer 编排文档组装：属主与主文档校验、位置计算、
// 关系行的挂载/卸载/整体重排，以及文本片段的版本编排。
package composer

import (
	"context"
	"fmt"

	"resumely/internal/apperr"
	"resumely/internal/database"
	"resumely/internal/document"
	"resumely/internal/relationship"
)

// Attachment 将某种条目类型与文档关系表配对：I 为条目模型，R 为关系行模型。
// 五种关系表共享同一套校验与位置逻辑，差异全部收敛在构造时的两个闭包里。
type Attachment[I, R any] struct {
	docs      *document.Service
	items     *ItemStore[I]
	engine    *relationship.Engine[R]
	newRow    func(documentID, itemID uint, position int) R
	rowItemID func(*R) uint
}

// NewAttachment 构造条目-文档挂载服务。
func NewAttachment[I, R any](
	docs *document.Service,
	items *ItemStore[I],
	engine *relationship.Engine[R],
	newRow func(documentID, itemID uint, position int) R,
	rowItemID func(*R) uint,
) *Attachment[I, R] {
	return &Attachment[I, R]{
		docs:      docs,
		items:     items,
		engine:    engine,
		newRow:    newRow,
		rowItemID: rowItemID,
	}
}

// Items 暴露底层条目存储，供 CRUD 处理器使用。
func (a *Attachment[I, R]) Items() *ItemStore[I] { return a.items }

// mutableDocument 取回属于 owner 的文档并拒绝锁定文档的组装变更。
func (a *Attachment[I, R]) mutableDocument(ctx context.Context, owner string, documentID uint) (*database.Document, error) {
	doc, err := a.docs.Get(ctx, owner, documentID)
	if err != nil {
		return nil, err
	}
	if doc.IsLocked {
		return nil, apperr.Forbidden("document is locked")
	}
	return doc, nil
}

// CreateItem 在文档下新建条目并挂载到末尾。
// 新条目只能挂在主文档下；模板通过 AttachExisting 复用主文档的内容。
func (a *Attachment[I, R]) CreateItem(ctx context.Context, owner string, documentID uint, item *I) (*I, *R, error) {
	doc, err := a.mutableDocument(ctx, owner, documentID)
	if err != nil {
		return nil, nil, err
	}
	if !doc.IsMaster {
		return nil, nil, apperr.Forbidden(fmt.Sprintf("%ss can only be created under the master document", a.items.access.Name))
	}

	a.items.access.SetOwner(item, owner)
	if err := a.items.Create(ctx, item); err != nil {
		return nil, nil, err
	}

	position, err := a.engine.NextPosition(ctx, doc.ID)
	if err != nil {
		return nil, nil, err
	}

	row := a.newRow(doc.ID, a.items.access.ID(item), position)
	if err := a.engine.Add(ctx, &row, fmt.Sprintf("document or %s not found", a.items.access.Name)); err != nil {
		return nil, nil, err
	}
	return item, &row, nil
}

// AttachExisting 将已存在的条目挂载到任意属于 owner 的文档（模板复用主文档内容）。
// 文档与条目的属主分别校验；重复挂载翻译为 bad-request。
func (a *Attachment[I, R]) AttachExisting(ctx context.Context, owner string, documentID, itemID uint) (*R, error) {
	doc, err := a.mutableDocument(ctx, owner, documentID)
	if err != nil {
		return nil, err
	}
	if _, err := a.items.GetOwned(ctx, owner, itemID); err != nil {
		return nil, err
	}

	position, err := a.engine.NextPosition(ctx, doc.ID)
	if err != nil {
		return nil, err
	}

	row := a.newRow(doc.ID, itemID, position)
	if err := a.engine.Add(ctx, &row, fmt.Sprintf("document or %s not found", a.items.access.Name)); err != nil {
		return nil, err
	}
	return &row, nil
}

// Reorder 整体重排文档下的条目。orderedItemIDs 必须与当前挂载集合完全一致
// （数量与身份都相同，顺序任意），否则在触碰任何行之前拒绝。
// 返回按新位置顺序重新取回的条目。
func (a *Attachment[I, R]) Reorder(ctx context.Context, owner string, documentID uint, orderedItemIDs []uint) ([]I, error) {
	doc, err := a.mutableDocument(ctx, owner, documentID)
	if err != nil {
		return nil, err
	}

	existing, err := a.engine.GetAll(ctx, doc.ID)
	if err != nil {
		return nil, err
	}

	attached := make(map[uint]bool, len(existing))
	for i := range existing {
		attached[a.rowItemID(&existing[i])] = true
	}
	if len(orderedItemIDs) != len(attached) {
		return nil, apperr.BadRequest("reorder must include every attached item exactly once")
	}
	seen := make(map[uint]bool, len(orderedItemIDs))
	for _, id := range orderedItemIDs {
		if !attached[id] || seen[id] {
			return nil, apperr.BadRequest("reorder must include every attached item exactly once")
		}
		seen[id] = true
	}

	if _, err := a.engine.UpdateAllPositions(ctx, doc.ID, orderedItemIDs); err != nil {
		return nil, err
	}
	return a.items.itemsByID(ctx, orderedItemIDs)
}

// MoveItem 单独调整一个已挂载条目的位置，不触碰容器内的其他行。
// 整体重排请走 Reorder；位置不要求连续。
func (a *Attachment[I, R]) MoveItem(ctx context.Context, owner string, documentID, itemID uint, position int) (*R, error) {
	doc, err := a.mutableDocument(ctx, owner, documentID)
	if err != nil {
		return nil, err
	}
	return a.engine.UpdatePosition(ctx, doc.ID, itemID, position)
}

// Attached 返回文档下的条目，按位置升序。
func (a *Attachment[I, R]) Attached(ctx context.Context, owner string, documentID uint) ([]I, error) {
	doc, err := a.docs.Get(ctx, owner, documentID)
	if err != nil {
		return nil, err
	}
	rows, err := a.engine.GetAll(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(rows))
	for i := range rows {
		ids = append(ids, a.rowItemID(&rows[i]))
	}
	return a.items.itemsByID(ctx, ids)
}

// Detach 从文档卸载条目；条目本身保留。幂等。
func (a *Attachment[I, R]) Detach(ctx context.Context, owner string, documentID, itemID uint) error {
	doc, err := a.mutableDocument(ctx, owner, documentID)
	if err != nil {
		return err
	}
	return a.engine.Delete(ctx, doc.ID, itemID)
}
