package composer

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"resumely/internal/apperr"
	"resumely/internal/database"
)

// ComposedDocument 是一份文档的完整只读视图，也是导出快照的载荷。
// 所有集合都按 position 升序；缺失的子结构是空集合而非错误。
type ComposedDocument struct {
	Document    *DocumentView    `json:"document"`
	Contact     *ContactView     `json:"contact"`
	Sections    []SectionView    `json:"sections"`
	Educations  []EducationView  `json:"educations"`
	Experiences []ExperienceView `json:"experiences"`
}

type DocumentView struct {
	ID         uint      `json:"id"`
	Name       string    `json:"name"`
	Owner      string    `json:"owner"`
	IsMaster   bool      `json:"is_master"`
	IsTemplate bool      `json:"is_template"`
	IsLocked   bool      `json:"is_locked"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type ContactView struct {
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
	Website  string `json:"website"`
}

type SectionView struct {
	ID       uint   `json:"id"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Position int    `json:"position"`
}

type EducationView struct {
	ID        uint   `json:"id"`
	School    string `json:"school"`
	Degree    string `json:"degree"`
	Field     string `json:"field"`
	StartYear int    `json:"start_year"`
	EndYear   int    `json:"end_year"`
	Position  int    `json:"position"`
}

type ExperienceView struct {
	ID        uint         `json:"id"`
	Company   string       `json:"company"`
	Title     string       `json:"title"`
	Location  string       `json:"location"`
	StartDate string       `json:"start_date"`
	EndDate   string       `json:"end_date"`
	Position  int          `json:"position"`
	Bullets   []BulletView `json:"bullets"`

	// 关系行 id，即该经历下要点的容器；不对外序列化。
	containerID uint
}

type BulletView struct {
	SnippetID uint   `json:"snippet_id"`
	Version   int64  `json:"version"`
	Kind      string `json:"kind"`
	Content   string `json:"content"`
	Position  int    `json:"position"`
}

// Compose 组装文档的完整内容视图。文档不存在时返回全空视图：
// 存在性与属主校验是上游（处理器/worker）的职责。
//
// 原始实现用一条嵌套聚合 SQL 一次取回全部层级；这里按子结构各发一条
// 带 position 排序的连接查询再在内存组装，生产驱动与测试驱动共用同一套 SQL。
func (c *Composer) Compose(ctx context.Context, documentID uint) (*ComposedDocument, error) {
	view := &ComposedDocument{
		Sections:    []SectionView{},
		Educations:  []EducationView{},
		Experiences: []ExperienceView{},
	}

	var doc database.Document
	if err := c.db.WithContext(ctx).Take(&doc, documentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return view, nil
		}
		return nil, apperr.Internal("load document", err)
	}
	view.Document = &DocumentView{
		ID:         doc.ID,
		Name:       doc.Name,
		Owner:      doc.Owner,
		IsMaster:   doc.IsMaster,
		IsTemplate: doc.IsTemplate,
		IsLocked:   doc.IsLocked,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}

	var contact database.ContactInfo
	err := c.db.WithContext(ctx).Where("owner = ?", doc.Owner).Take(&contact).Error
	switch {
	case err == nil:
		view.Contact = &ContactView{
			Email:    contact.Email,
			Phone:    contact.Phone,
			Location: contact.Location,
			Website:  contact.Website,
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		// 联系方式至多一条，缺失不是错误。
	default:
		return nil, apperr.Internal("load contact info", err)
	}

	if err := c.db.WithContext(ctx).
		Table("document_sections").
		Select("sections.id, sections.title, sections.content, document_sections.position").
		Joins("JOIN sections ON sections.id = document_sections.section_id AND sections.deleted_at IS NULL").
		Where("document_sections.document_id = ?", doc.ID).
		Order("document_sections.position ASC").
		Scan(&view.Sections).Error; err != nil {
		return nil, apperr.Internal("load sections", err)
	}

	if err := c.db.WithContext(ctx).
		Table("document_educations").
		Select("educations.id, educations.school, educations.degree, educations.field, educations.start_year, educations.end_year, document_educations.position").
		Joins("JOIN educations ON educations.id = document_educations.education_id AND educations.deleted_at IS NULL").
		Where("document_educations.document_id = ?", doc.ID).
		Order("document_educations.position ASC").
		Scan(&view.Educations).Error; err != nil {
		return nil, apperr.Internal("load educations", err)
	}

	type experienceRow struct {
		ContainerID uint
		ID          uint
		Company     string
		Title       string
		Location    string
		StartDate   string
		EndDate     string
		Position    int
	}
	var expRows []experienceRow
	if err := c.db.WithContext(ctx).
		Table("document_experiences").
		Select("document_experiences.id AS container_id, experiences.id, experiences.company, experiences.title, experiences.location, experiences.start_date, experiences.end_date, document_experiences.position").
		Joins("JOIN experiences ON experiences.id = document_experiences.experience_id AND experiences.deleted_at IS NULL").
		Where("document_experiences.document_id = ?", doc.ID).
		Order("document_experiences.position ASC").
		Scan(&expRows).Error; err != nil {
		return nil, apperr.Internal("load experiences", err)
	}

	containerIDs := make([]uint, 0, len(expRows))
	byContainer := make(map[uint]int, len(expRows))
	for i, row := range expRows {
		view.Experiences = append(view.Experiences, ExperienceView{
			ID:          row.ID,
			Company:     row.Company,
			Title:       row.Title,
			Location:    row.Location,
			StartDate:   row.StartDate,
			EndDate:     row.EndDate,
			Position:    row.Position,
			Bullets:     []BulletView{},
			containerID: row.ContainerID,
		})
		containerIDs = append(containerIDs, row.ContainerID)
		byContainer[row.ContainerID] = i
	}

	if len(containerIDs) > 0 {
		// 要点通过关系行上存储的版本列解析到“当前”版本的内容。
		type bulletRow struct {
			ContainerID uint
			SnippetID   uint
			Version     int64
			Kind        string
			Content     string
			Position    int
		}
		var bulletRows []bulletRow
		if err := c.db.WithContext(ctx).
			Table("experience_snippets").
			Select("experience_snippets.document_experience_id AS container_id, text_snippets.id AS snippet_id, text_snippets.version, text_snippets.kind, text_snippets.content, experience_snippets.position").
			Joins("JOIN text_snippets ON text_snippets.id = experience_snippets.snippet_id AND text_snippets.version = experience_snippets.snippet_version").
			Where("experience_snippets.document_experience_id IN ?", containerIDs).
			Order("experience_snippets.document_experience_id ASC, experience_snippets.position ASC").
			Scan(&bulletRows).Error; err != nil {
			return nil, apperr.Internal("load snippet bullets", err)
		}
		for _, row := range bulletRows {
			idx, ok := byContainer[row.ContainerID]
			if !ok {
				continue
			}
			view.Experiences[idx].Bullets = append(view.Experiences[idx].Bullets, BulletView{
				SnippetID: row.SnippetID,
				Version:   row.Version,
				Kind:      row.Kind,
				Content:   row.Content,
				Position:  row.Position,
			})
		}
	}

	return view, nil
}
