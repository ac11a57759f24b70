package database

import (
	"gorm.io/gorm"
)

// User 表示系统中的账号信息。
type User struct {
	gorm.Model
	Username     string `gorm:"uniqueIndex;size:64"`
	PasswordHash string `gorm:"size:255"`
}

// ContactInfo 表示用户的联系方式，每个用户至多一条。
type ContactInfo struct {
	gorm.Model
	Owner    string `gorm:"uniqueIndex;size:64"`
	Email    string `gorm:"size:255"`
	Phone    string `gorm:"size:64"`
	Location string `gorm:"size:255"`
	Website  string `gorm:"size:512"`
}

// Document 表示一份简历文档。每个用户恰好有一份主文档（IsMaster），
// 主文档只允许改名且不可删除；模板文档从主文档复用内容条目。
type Document struct {
	gorm.Model
	Name            string `gorm:"size:255"`
	Owner           string `gorm:"index;size:64"`
	IsMaster        bool   `gorm:"default:false"`
	IsTemplate      bool   `gorm:"default:false"`
	IsLocked        bool   `gorm:"default:false"`
	ExportObjectKey string `gorm:"size:512"`
}

// Section 表示自定义段落。
type Section struct {
	gorm.Model
	Owner   string `gorm:"index;size:64"`
	Title   string `gorm:"size:255"`
	Content string `gorm:"type:text"`
}

// Education 表示一段教育经历。
type Education struct {
	gorm.Model
	Owner     string `gorm:"index;size:64"`
	School    string `gorm:"size:255"`
	Degree    string `gorm:"size:255"`
	Field     string `gorm:"size:255"`
	StartYear int
	EndYear   int
}

// Experience 表示一段工作经历，条目要点通过 ExperienceSnippet 关联文本片段。
type Experience struct {
	gorm.Model
	Owner     string `gorm:"index;size:64"`
	Company   string `gorm:"size:255"`
	Title     string `gorm:"size:255"`
	Location  string `gorm:"size:255"`
	StartDate string `gorm:"size:32"`
	EndDate   string `gorm:"size:32"`
}

// Skill 表示一项技能。
type Skill struct {
	gorm.Model
	Owner string `gorm:"index;size:64"`
	Name  string `gorm:"size:255"`
	Level string `gorm:"size:64"`
}

// TextSnippet 是带版本的不可变文本内容，主键为 (ID, Version)。
// “更新”永远是插入一条新版本行，Parent 指向派生来源的版本号；
// 删除某个版本不会级联，新版本的 Parent 可能因此悬空（保持原样，不回填）。
type TextSnippet struct {
	ID        uint   `gorm:"primaryKey;autoIncrement:false"`
	Version   int64  `gorm:"primaryKey;autoIncrement:false"`
	Owner     string `gorm:"index;size:64"`
	Parent    *int64
	Kind      string `gorm:"size:64"`
	Content   string `gorm:"type:text"`
	CreatedAt int64  `gorm:"autoCreateTime:milli"`
}

// 以下为带位置的多对多关系行。Position 定义容器内的展示顺序，
// (容器, 内容) 上的唯一索引保证同一内容不会重复挂载。

// DocumentSection 将段落挂载到文档。
type DocumentSection struct {
	ID         uint `gorm:"primaryKey"`
	DocumentID uint `gorm:"uniqueIndex:idx_doc_section,priority:1;not null"`
	SectionID  uint `gorm:"uniqueIndex:idx_doc_section,priority:2;not null"`
	Position   int

	Document Document `gorm:"constraint:OnDelete:CASCADE"`
	Section  Section  `gorm:"constraint:OnDelete:CASCADE"`
}

// DocumentEducation 将教育经历挂载到文档。
type DocumentEducation struct {
	ID          uint `gorm:"primaryKey"`
	DocumentID  uint `gorm:"uniqueIndex:idx_doc_education,priority:1;not null"`
	EducationID uint `gorm:"uniqueIndex:idx_doc_education,priority:2;not null"`
	Position    int

	Document  Document  `gorm:"constraint:OnDelete:CASCADE"`
	Education Education `gorm:"constraint:OnDelete:CASCADE"`
}

// DocumentExperience 将工作经历挂载到文档；其行 ID 同时作为
// ExperienceSnippet 的容器（要点属于“文档中的某段经历”，而非文档本身）。
type DocumentExperience struct {
	ID           uint `gorm:"primaryKey"`
	DocumentID   uint `gorm:"uniqueIndex:idx_doc_experience,priority:1;not null"`
	ExperienceID uint `gorm:"uniqueIndex:idx_doc_experience,priority:2;not null"`
	Position     int

	Document   Document   `gorm:"constraint:OnDelete:CASCADE"`
	Experience Experience `gorm:"constraint:OnDelete:CASCADE"`
}

// DocumentSkill 将技能挂载到文档。
type DocumentSkill struct {
	ID         uint `gorm:"primaryKey"`
	DocumentID uint `gorm:"uniqueIndex:idx_doc_skill,priority:1;not null"`
	SkillID    uint `gorm:"uniqueIndex:idx_doc_skill,priority:2;not null"`
	Position   int

	Document Document `gorm:"constraint:OnDelete:CASCADE"`
	Skill    Skill    `gorm:"constraint:OnDelete:CASCADE"`
}

// ExperienceSnippet 将文本片段的某个版本挂载到文档中的一段经历。
// SnippetVersion 记录当前引用的版本；片段更新后由版本重指向操作统一改写。
type ExperienceSnippet struct {
	ID                   uint  `gorm:"primaryKey"`
	DocumentExperienceID uint  `gorm:"uniqueIndex:idx_exp_snippet,priority:1;not null"`
	SnippetID            uint  `gorm:"uniqueIndex:idx_exp_snippet,priority:2;not null"`
	SnippetVersion       int64 `gorm:"not null"`
	Position             int

	DocumentExperience DocumentExperience `gorm:"constraint:OnDelete:CASCADE"`
}

// AllModels 返回需要迁移的全部模型，api 与 worker 共用。
func AllModels() []any {
	return []any{
		&User{},
		&ContactInfo{},
		&Document{},
		&Section{},
		&Education{},
		&Experience{},
		&Skill{},
		&TextSnippet{},
		&DocumentSection{},
		&DocumentEducation{},
		&DocumentExperience{},
		&DocumentSkill{},
		&ExperienceSnippet{},
	}
}
