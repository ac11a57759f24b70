// Package document 管理简历文档本身的生命周期与主文档规则。
package document

import (
	"context"
	"log/slog"

	"gorm.io/gorm"

	"resumely/internal/apperr"
	"resumely/internal/database"
)

// Service 封装文档的 CRUD 及主文档不变量：
// 每个用户恰好一份主文档，主文档只能改名且不可删除。
type Service struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewService 构造文档服务。logger 为 nil 时回落到 slog.Default。
func NewService(db *gorm.DB, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, logger: logger}
}

// UpdateProps 描述文档更新请求；nil 字段不变。
type UpdateProps struct {
	Name     *string
	IsLocked *bool
}

// CreateMaster 在给定事务内为新用户创建主文档。
// “每用户一份主文档”由这里的应用层检查保证，数据库无对应约束。
func (s *Service) CreateMaster(ctx context.Context, tx *gorm.DB, owner string) (*database.Document, error) {
	var count int64
	err := tx.WithContext(ctx).
		Model(&database.Document{}).
		Where("owner = ? AND is_master = ?", owner, true).
		Count(&count).Error
	if err != nil {
		return nil, apperr.Internal("count master documents", err)
	}
	if count > 0 {
		return nil, apperr.BadRequest("master document already exists")
	}

	doc := database.Document{
		Name:     "Master Resume",
		Owner:    owner,
		IsMaster: true,
	}
	if err := tx.WithContext(ctx).Create(&doc).Error; err != nil {
		return nil, apperr.FromStore(err, "owner not found")
	}
	return &doc, nil
}

// CreateTemplate 创建一份普通（模板）文档。
func (s *Service) CreateTemplate(ctx context.Context, owner, name string) (*database.Document, error) {
	doc := database.Document{
		Name:       name,
		Owner:      owner,
		IsTemplate: true,
	}
	if err := s.db.WithContext(ctx).Create(&doc).Error; err != nil {
		return nil, apperr.FromStore(err, "owner not found")
	}
	return &doc, nil
}

// List 返回用户的全部文档，主文档在前。
func (s *Service) List(ctx context.Context, owner string) ([]database.Document, error) {
	docs := make([]database.Document, 0)
	err := s.db.WithContext(ctx).
		Where("owner = ?", owner).
		Order("is_master DESC, created_at ASC").
		Find(&docs).Error
	if err != nil {
		return nil, apperr.Internal("list documents", err)
	}
	return docs, nil
}

// Get 返回属于 owner 的文档。文档不存在返回 not-found，
// 属于他人返回 forbidden——存在性不向非属主泄露文档内容。
func (s *Service) Get(ctx context.Context, owner string, id uint) (*database.Document, error) {
	var doc database.Document
	if err := s.db.WithContext(ctx).Take(&doc, id).Error; err != nil {
		return nil, apperr.FromStore(err, "document not found")
	}
	if doc.Owner != owner {
		return nil, apperr.Forbidden("document belongs to another user")
	}
	return &doc, nil
}

// GetMaster 返回用户的主文档。
func (s *Service) GetMaster(ctx context.Context, owner string) (*database.Document, error) {
	var doc database.Document
	err := s.db.WithContext(ctx).
		Where("owner = ? AND is_master = ?", owner, true).
		Take(&doc).Error
	if err != nil {
		return nil, apperr.FromStore(err, "master document not found")
	}
	return &doc, nil
}

// Update 修改文档。主文档只接受改名，其它字段一律拒绝。
func (s *Service) Update(ctx context.Context, owner string, id uint, props UpdateProps) (*database.Document, error) {
	doc, err := s.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	if doc.IsMaster && props.IsLocked != nil {
		return nil, apperr.Forbidden("master document only accepts a name change")
	}

	updates := map[string]any{}
	if props.Name != nil {
		updates["name"] = *props.Name
	}
	if props.IsLocked != nil {
		updates["is_locked"] = *props.IsLocked
	}
	if len(updates) == 0 {
		return doc, nil
	}

	if err := s.db.WithContext(ctx).Model(doc).Updates(updates).Error; err != nil {
		return nil, apperr.Internal("update document", err)
	}
	if err := s.db.WithContext(ctx).Take(doc, doc.ID).Error; err != nil {
		return nil, apperr.Internal("reload document", err)
	}
	return doc, nil
}

// Delete 删除非主文档；关系行由外键级联清理。主文档不可删除。
func (s *Service) Delete(ctx context.Context, owner string, id uint) error {
	doc, err := s.Get(ctx, owner, id)
	if err != nil {
		return err
	}
	if doc.IsMaster {
		return apperr.Forbidden("master document cannot be deleted")
	}

	// 硬删除：关系行依赖数据库的 ON DELETE CASCADE，软删除不会触发级联。
	if err := s.db.WithContext(ctx).Unscoped().Delete(&database.Document{}, doc.ID).Error; err != nil {
		return apperr.Internal("delete document", err)
	}
	return nil
}

// SetExportObjectKey 记录最近一次导出的对象键，worker 在上传完成后调用。
func (s *Service) SetExportObjectKey(ctx context.Context, id uint, objectKey string) error {
	res := s.db.WithContext(ctx).
		Model(&database.Document{}).
		Where("id = ?", id).
		Update("export_object_key", objectKey)
	if res.Error != nil {
		return apperr.Internal("set export object key", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("document not found")
	}
	return nil
}
