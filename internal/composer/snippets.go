package composer

import (
	"context"

	"resumely/internal/apperr"
	"resumely/internal/database"
	"resumely/internal/document"
	"resumely/internal/relationship"
	"resumely/internal/snippet"
)

// SnippetFlow 编排文本片段与“文档中的某段经历”容器之间的关系。
// 片段不直接挂在文档上：容器是 (document, experience) 关系行的 id，
// 同一段经历在不同文档里可以有不同的要点集合与顺序。
type SnippetFlow struct {
	docs        *document.Service
	store       *snippet.Store
	experiences *relationship.Engine[database.DocumentExperience]
	engine      *relationship.Engine[database.ExperienceSnippet]
}

// NewSnippetFlow 构造片段编排服务。
func NewSnippetFlow(
	docs *document.Service,
	store *snippet.Store,
	experiences *relationship.Engine[database.DocumentExperience],
	engine *relationship.Engine[database.ExperienceSnippet],
) *SnippetFlow {
	return &SnippetFlow{docs: docs, store: store, experiences: experiences, engine: engine}
}

// Store 暴露底层片段存储，供 CRUD 处理器使用。
func (f *SnippetFlow) Store() *snippet.Store { return f.store }

// resolveContainer 将 (document, experience) 解析为关系行 id，即片段容器。
func (f *SnippetFlow) resolveContainer(ctx context.Context, documentID, experienceID uint) (uint, error) {
	row, err := f.experiences.Get(ctx, map[string]any{
		"document_id":   documentID,
		"experience_id": experienceID,
	}, "experience is not attached to this document")
	if err != nil {
		return 0, err
	}
	return row.ID, nil
}

func (f *SnippetFlow) mutableDocument(ctx context.Context, owner string, documentID uint) (*database.Document, error) {
	doc, err := f.docs.Get(ctx, owner, documentID)
	if err != nil {
		return nil, err
	}
	if doc.IsLocked {
		return nil, apperr.Forbidden("document is locked")
	}
	return doc, nil
}

// CreateSnippet 新建片段（首版本）并挂载到主文档中某段经历的末尾。
func (f *SnippetFlow) CreateSnippet(ctx context.Context, owner string, documentID, experienceID uint, kind, content string) (*database.TextSnippet, *database.ExperienceSnippet, error) {
	doc, err := f.mutableDocument(ctx, owner, documentID)
	if err != nil {
		return nil, nil, err
	}
	if !doc.IsMaster {
		return nil, nil, apperr.Forbidden("snippets can only be created under the master document")
	}

	containerID, err := f.resolveContainer(ctx, doc.ID, experienceID)
	if err != nil {
		return nil, nil, err
	}

	snip, err := f.store.Add(ctx, owner, kind, content)
	if err != nil {
		return nil, nil, err
	}

	position, err := f.engine.NextPosition(ctx, containerID)
	if err != nil {
		return nil, nil, err
	}

	row := database.ExperienceSnippet{
		DocumentExperienceID: containerID,
		SnippetID:            snip.ID,
		SnippetVersion:       snip.Version,
		Position:             position,
	}
	if err := f.engine.Add(ctx, &row, "experience or snippet not found"); err != nil {
		return nil, nil, err
	}
	return snip, &row, nil
}

// AttachSnippet 将已存在的片段版本挂载到任意属于 owner 的文档中的某段经历。
func (f *SnippetFlow) AttachSnippet(ctx context.Context, owner string, documentID, experienceID, snippetID uint, version int64) (*database.ExperienceSnippet, error) {
	doc, err := f.mutableDocument(ctx, owner, documentID)
	if err != nil {
		return nil, err
	}

	snip, err := f.store.Get(ctx, snippetID, version)
	if err != nil {
		return nil, err
	}
	if snip.Owner != owner {
		return nil, apperr.Forbidden("snippet belongs to another user")
	}

	containerID, err := f.resolveContainer(ctx, doc.ID, experienceID)
	if err != nil {
		return nil, err
	}

	position, err := f.engine.NextPosition(ctx, containerID)
	if err != nil {
		return nil, err
	}

	row := database.ExperienceSnippet{
		DocumentExperienceID: containerID,
		SnippetID:            snip.ID,
		SnippetVersion:       snip.Version,
		Position:             position,
	}
	if err := f.engine.Add(ctx, &row, "experience or snippet not found"); err != nil {
		return nil, err
	}
	return &row, nil
}

// ReorderSnippets 整体重排某段经历下的要点，约束与文档级重排一致。
func (f *SnippetFlow) ReorderSnippets(ctx context.Context, owner string, documentID, experienceID uint, orderedSnippetIDs []uint) ([]database.ExperienceSnippet, error) {
	doc, err := f.mutableDocument(ctx, owner, documentID)
	if err != nil {
		return nil, err
	}

	containerID, err := f.resolveContainer(ctx, doc.ID, experienceID)
	if err != nil {
		return nil, err
	}

	existing, err := f.engine.GetAll(ctx, containerID)
	if err != nil {
		return nil, err
	}
	attached := make(map[uint]bool, len(existing))
	for i := range existing {
		attached[existing[i].SnippetID] = true
	}
	if len(orderedSnippetIDs) != len(attached) {
		return nil, apperr.BadRequest("reorder must include every attached snippet exactly once")
	}
	seen := make(map[uint]bool, len(orderedSnippetIDs))
	for _, id := range orderedSnippetIDs {
		if !attached[id] || seen[id] {
			return nil, apperr.BadRequest("reorder must include every attached snippet exactly once")
		}
		seen[id] = true
	}

	return f.engine.UpdateAllPositions(ctx, containerID, orderedSnippetIDs)
}

// DetachSnippet 从某段经历卸载片段；片段本身保留。幂等。
func (f *SnippetFlow) DetachSnippet(ctx context.Context, owner string, documentID, experienceID, snippetID uint) error {
	doc, err := f.mutableDocument(ctx, owner, documentID)
	if err != nil {
		return err
	}
	containerID, err := f.resolveContainer(ctx, doc.ID, experienceID)
	if err != nil {
		return err
	}
	return f.engine.Delete(ctx, containerID, snippetID)
}

// UpdateSnippet 写入新版本并立刻把所有引用旧版本的关系行重指向新版本。
// 重指向不动位置列，引用该片段的每份文档在原位置看到新内容。
// 返回新版本与被改写的关系行数（0 行合法：片段可能未被任何文档引用）。
func (f *SnippetFlow) UpdateSnippet(ctx context.Context, owner string, snippetID uint, version int64, props snippet.UpdateProps) (*database.TextSnippet, int64, error) {
	current, err := f.store.Get(ctx, snippetID, version)
	if err != nil {
		return nil, 0, err
	}
	if current.Owner != owner {
		return nil, 0, apperr.Forbidden("snippet belongs to another user")
	}

	next, err := f.store.Update(ctx, current, props)
	if err != nil {
		return nil, 0, err
	}

	repointed, err := f.engine.Repoint(ctx, snippetID, current.Version, next.Version)
	if err != nil {
		return nil, 0, err
	}
	return next, repointed, nil
}

// DeleteSnippetVersion 删除单个版本。引用计数不检查：仍被引用的版本
// 由调用方负责先卸载或重指向；更新版本的 parent 悬空是既定行为。
func (f *SnippetFlow) DeleteSnippetVersion(ctx context.Context, owner string, snippetID uint, version int64) error {
	current, err := f.store.Get(ctx, snippetID, version)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil
		}
		return err
	}
	if current.Owner != owner {
		return apperr.Forbidden("snippet belongs to another user")
	}
	return f.store.Delete(ctx, snippetID, version)
}
