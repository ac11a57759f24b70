package composer

import (
	"context"
	"testing"

	"resumely/internal/database"
	"resumely/internal/snippet"
)

func TestComposeMissingDocumentIsEmptyView(t *testing.T) {
	ctx := context.Background()
	comp, _ := newTestComposer(t)

	view, err := comp.Compose(ctx, 9999)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if view.Document != nil || view.Contact != nil {
		t.Fatalf("expected null document and contact, got %+v", view)
	}
	if len(view.Sections) != 0 || len(view.Educations) != 0 || len(view.Experiences) != 0 {
		t.Fatalf("expected empty collections, got %+v", view)
	}
}

func TestComposeAssemblesAllLevelsInOrder(t *testing.T) {
	ctx := context.Background()
	comp, db := newTestComposer(t)
	master := seedMaster(t, comp, db, "alice")

	contact := database.ContactInfo{Owner: "alice", Email: "alice@example.com", Location: "Berlin"}
	if err := db.Create(&contact).Error; err != nil {
		t.Fatalf("seed contact: %v", err)
	}

	var sectionIDs []uint
	for _, title := range []string{"Summary", "Projects"} {
		s := database.Section{Title: title}
		if _, _, err := comp.Sections.CreateItem(ctx, "alice", master.ID, &s); err != nil {
			t.Fatalf("create section: %v", err)
		}
		sectionIDs = append(sectionIDs, s.ID)
	}
	edu := database.Education{School: "TU", Degree: "BSc", StartYear: 2015, EndYear: 2018}
	if _, _, err := comp.Educations.CreateItem(ctx, "alice", master.ID, &edu); err != nil {
		t.Fatalf("create education: %v", err)
	}
	exp := seedExperienceUnderMaster(t, comp, master)

	first, _, err := comp.Snippets.CreateSnippet(ctx, "alice", master.ID, exp.ID, "bullet", "first bullet")
	if err != nil {
		t.Fatalf("create snippet: %v", err)
	}
	second, _, err := comp.Snippets.CreateSnippet(ctx, "alice", master.ID, exp.ID, "bullet", "second bullet")
	if err != nil {
		t.Fatalf("create snippet: %v", err)
	}

	// 重排段落与要点，视图必须反映新位置顺序。
	if _, err := comp.Sections.Reorder(ctx, "alice", master.ID, []uint{sectionIDs[1], sectionIDs[0]}); err != nil {
		t.Fatalf("reorder sections: %v", err)
	}
	if _, err := comp.Snippets.ReorderSnippets(ctx, "alice", master.ID, exp.ID, []uint{second.ID, first.ID}); err != nil {
		t.Fatalf("reorder snippets: %v", err)
	}

	view, err := comp.Compose(ctx, master.ID)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}

	if view.Document == nil || view.Document.ID != master.ID || !view.Document.IsMaster {
		t.Fatalf("document header wrong: %+v", view.Document)
	}
	if view.Contact == nil || view.Contact.Email != "alice@example.com" {
		t.Fatalf("contact wrong: %+v", view.Contact)
	}

	if len(view.Sections) != 2 {
		t.Fatalf("expected 2 sections got %d", len(view.Sections))
	}
	if view.Sections[0].Title != "Projects" || view.Sections[1].Title != "Summary" {
		t.Fatalf("sections not in position order: %+v", view.Sections)
	}

	if len(view.Educations) != 1 || view.Educations[0].School != "TU" {
		t.Fatalf("educations wrong: %+v", view.Educations)
	}

	if len(view.Experiences) != 1 {
		t.Fatalf("expected 1 experience got %d", len(view.Experiences))
	}
	bullets := view.Experiences[0].Bullets
	if len(bullets) != 2 {
		t.Fatalf("expected 2 bullets got %d", len(bullets))
	}
	if bullets[0].Content != "second bullet" || bullets[1].Content != "first bullet" {
		t.Fatalf("bullets not in position order: %+v", bullets)
	}
}

func TestComposeFollowsRepointedVersion(t *testing.T) {
	ctx := context.Background()
	comp, db := newTestComposer(t)
	master := seedMaster(t, comp, db, "alice")
	exp := seedExperienceUnderMaster(t, comp, master)

	snip, _, err := comp.Snippets.CreateSnippet(ctx, "alice", master.ID, exp.ID, "bullet", "old text")
	if err != nil {
		t.Fatalf("create snippet: %v", err)
	}

	content := "new text"
	if _, _, err := comp.Snippets.UpdateSnippet(ctx, "alice", snip.ID, snip.Version, snippet.UpdateProps{Content: &content}); err != nil {
		t.Fatalf("update snippet: %v", err)
	}

	view, err := comp.Compose(ctx, master.ID)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	bullets := view.Experiences[0].Bullets
	if len(bullets) != 1 {
		t.Fatalf("expected 1 bullet got %d", len(bullets))
	}
	if bullets[0].Content != "new text" {
		t.Fatalf("view must resolve the repointed version, got %q", bullets[0].Content)
	}
	if bullets[0].SnippetID != snip.ID {
		t.Fatalf("bullet references wrong snippet: %d", bullets[0].SnippetID)
	}
}

func TestComposeSkipsDetachedAndTemplateIsolated(t *testing.T) {
	ctx := context.Background()
	comp, db := newTestComposer(t)
	master := seedMaster(t, comp, db, "alice")
	template := seedTemplate(t, comp, "alice", "Backend CV")

	s := database.Section{Title: "Summary"}
	if _, _, err := comp.Sections.CreateItem(ctx, "alice", master.ID, &s); err != nil {
		t.Fatalf("create section: %v", err)
	}

	// 模板未挂载任何内容：视图是空集合，而主文档不受影响。
	tmplView, err := comp.Compose(ctx, template.ID)
	if err != nil {
		t.Fatalf("compose template: %v", err)
	}
	if len(tmplView.Sections) != 0 {
		t.Fatalf("template view must be empty: %+v", tmplView.Sections)
	}

	if err := comp.Sections.Detach(ctx, "alice", master.ID, s.ID); err != nil {
		t.Fatalf("detach: %v", err)
	}
	masterView, err := comp.Compose(ctx, master.ID)
	if err != nil {
		t.Fatalf("compose master: %v", err)
	}
	if len(masterView.Sections) != 0 {
		t.Fatalf("detached section must not appear: %+v", masterView.Sections)
	}
}
