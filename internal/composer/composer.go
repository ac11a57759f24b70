package composer

import (
	"log/slog"

	"gorm.io/gorm"

	"resumely/internal/database"
	"resumely/internal/document"
	"resumely/internal/relationship"
	"resumely/internal/snippet"
)

// Composer 聚合全部组装服务，api 与 worker 共用一个实例。
type Composer struct {
	Docs        *document.Service
	Sections    *Attachment[database.Section, database.DocumentSection]
	Educations  *Attachment[database.Education, database.DocumentEducation]
	Experiences *Attachment[database.Experience, database.DocumentExperience]
	Skills      *Attachment[database.Skill, database.DocumentSkill]
	Snippets    *SnippetFlow

	db     *gorm.DB
	logger *slog.Logger
}

// New 完成全部条目类型与关系表的接线。
func New(db *gorm.DB, logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	docs := document.NewService(db, logger)

	sections := NewAttachment(
		docs,
		NewItemStore(db, ItemAccess[database.Section]{
			Name:     "section",
			ID:       func(s *database.Section) uint { return s.ID },
			Owner:    func(s *database.Section) string { return s.Owner },
			SetOwner: func(s *database.Section, owner string) { s.Owner = owner },
		}),
		relationship.Sections(db, logger),
		func(documentID, itemID uint, position int) database.DocumentSection {
			return database.DocumentSection{DocumentID: documentID, SectionID: itemID, Position: position}
		},
		func(r *database.DocumentSection) uint { return r.SectionID },
	)

	educations := NewAttachment(
		docs,
		NewItemStore(db, ItemAccess[database.Education]{
			Name:     "education",
			ID:       func(e *database.Education) uint { return e.ID },
			Owner:    func(e *database.Education) string { return e.Owner },
			SetOwner: func(e *database.Education, owner string) { e.Owner = owner },
		}),
		relationship.Educations(db, logger),
		func(documentID, itemID uint, position int) database.DocumentEducation {
			return database.DocumentEducation{DocumentID: documentID, EducationID: itemID, Position: position}
		},
		func(r *database.DocumentEducation) uint { return r.EducationID },
	)

	experiences := NewAttachment(
		docs,
		NewItemStore(db, ItemAccess[database.Experience]{
			Name:     "experience",
			ID:       func(e *database.Experience) uint { return e.ID },
			Owner:    func(e *database.Experience) string { return e.Owner },
			SetOwner: func(e *database.Experience, owner string) { e.Owner = owner },
		}),
		relationship.Experiences(db, logger),
		func(documentID, itemID uint, position int) database.DocumentExperience {
			return database.DocumentExperience{DocumentID: documentID, ExperienceID: itemID, Position: position}
		},
		func(r *database.DocumentExperience) uint { return r.ExperienceID },
	)

	skills := NewAttachment(
		docs,
		NewItemStore(db, ItemAccess[database.Skill]{
			Name:     "skill",
			ID:       func(s *database.Skill) uint { return s.ID },
			Owner:    func(s *database.Skill) string { return s.Owner },
			SetOwner: func(s *database.Skill, owner string) { s.Owner = owner },
		}),
		relationship.Skills(db, logger),
		func(documentID, itemID uint, position int) database.DocumentSkill {
			return database.DocumentSkill{DocumentID: documentID, SkillID: itemID, Position: position}
		},
		func(r *database.DocumentSkill) uint { return r.SkillID },
	)

	snippets := NewSnippetFlow(
		docs,
		snippet.NewStore(db, logger),
		relationship.Experiences(db, logger),
		relationship.ExperienceSnippets(db, logger),
	)

	return &Composer{
		Docs:        docs,
		Sections:    sections,
		Educations:  educations,
		Experiences: experiences,
		Skills:      skills,
		Snippets:    snippets,
		db:          db,
		logger:      logger,
	}
}
