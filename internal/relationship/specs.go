package relationship

import (
	"log/slog"

	"gorm.io/gorm"

	"resumely/internal/database"
)

// 每张关系表一个构造函数，集中声明列名，避免散落的字符串字面量。

func Sections(db *gorm.DB, logger *slog.Logger) *Engine[database.DocumentSection] {
	return NewEngine[database.DocumentSection](db, Spec{
		Table:        "document_sections",
		ContainerCol: "document_id",
		ContentCol:   "section_id",
		Positional:   true,
	}, logger)
}

func Educations(db *gorm.DB, logger *slog.Logger) *Engine[database.DocumentEducation] {
	return NewEngine[database.DocumentEducation](db, Spec{
		Table:        "document_educations",
		ContainerCol: "document_id",
		ContentCol:   "education_id",
		Positional:   true,
	}, logger)
}

func Experiences(db *gorm.DB, logger *slog.Logger) *Engine[database.DocumentExperience] {
	return NewEngine[database.DocumentExperience](db, Spec{
		Table:        "document_experiences",
		ContainerCol: "document_id",
		ContentCol:   "experience_id",
		Positional:   true,
	}, logger)
}

func Skills(db *gorm.DB, logger *slog.Logger) *Engine[database.DocumentSkill] {
	return NewEngine[database.DocumentSkill](db, Spec{
		Table:        "document_skills",
		ContainerCol: "document_id",
		ContentCol:   "skill_id",
		Positional:   true,
	}, logger)
}

// ExperienceSnippets 的容器是 document_experiences 的行 id，
// 内容按 (snippet_id, snippet_version) 引用，支持版本重指向。
func ExperienceSnippets(db *gorm.DB, logger *slog.Logger) *Engine[database.ExperienceSnippet] {
	return NewEngine[database.ExperienceSnippet](db, Spec{
		Table:        "experience_snippets",
		ContainerCol: "document_experience_id",
		ContentCol:   "snippet_id",
		VersionCol:   "snippet_version",
		Positional:   true,
	}, logger)
}
