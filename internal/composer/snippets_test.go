package composer

import (
	"context"
	"testing"

	"resumely/internal/apperr"
	"resumely/internal/database"
	"resumely/internal/snippet"
)

func seedExperienceUnderMaster(t *testing.T, comp *Composer, master *database.Document) *database.Experience {
	t.Helper()
	exp := database.Experience{Company: "Acme", Title: "Engineer"}
	if _, _, err := comp.Experiences.CreateItem(context.Background(), master.Owner, master.ID, &exp); err != nil {
		t.Fatalf("create experience: %v", err)
	}
	return &exp
}

func TestCreateSnippetUnderExperience(t *testing.T) {
	ctx := context.Background()
	comp, db := newTestComposer(t)
	master := seedMaster(t, comp, db, "alice")
	exp := seedExperienceUnderMaster(t, comp, master)

	snip, row, err := comp.Snippets.CreateSnippet(ctx, "alice", master.ID, exp.ID, "bullet", "Shipped the thing")
	if err != nil {
		t.Fatalf("create snippet: %v", err)
	}
	if snip.Owner != "alice" {
		t.Fatalf("owner not stamped: %q", snip.Owner)
	}
	if row.SnippetVersion != snip.Version {
		t.Fatalf("row must reference the created version: %d vs %d", row.SnippetVersion, snip.Version)
	}
	if row.Position != 0 {
		t.Fatalf("first bullet must land at position 0, got %d", row.Position)
	}

	// 未挂载到文档的经历不能作为容器。
	stray := database.Experience{Owner: "alice", Company: "Stray"}
	if err := db.Create(&stray).Error; err != nil {
		t.Fatalf("seed stray experience: %v", err)
	}
	_, _, err = comp.Snippets.CreateSnippet(ctx, "alice", master.ID, stray.ID, "bullet", "x")
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected not found got %v", err)
	}

	// 片段只能在主文档下新建。
	template := seedTemplate(t, comp, "alice", "Backend CV")
	if _, err := comp.Experiences.AttachExisting(ctx, "alice", template.ID, exp.ID); err != nil {
		t.Fatalf("attach experience to template: %v", err)
	}
	_, _, err = comp.Snippets.CreateSnippet(ctx, "alice", template.ID, exp.ID, "bullet", "x")
	if apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("expected forbidden got %v", err)
	}
}

func TestUpdateSnippetRepointsEveryReference(t *testing.T) {
	ctx := context.Background()
	comp, db := newTestComposer(t)
	master := seedMaster(t, comp, db, "alice")
	exp := seedExperienceUnderMaster(t, comp, master)
	template := seedTemplate(t, comp, "alice", "Backend CV")
	if _, err := comp.Experiences.AttachExisting(ctx, "alice", template.ID, exp.ID); err != nil {
		t.Fatalf("attach experience to template: %v", err)
	}

	snip, _, err := comp.Snippets.CreateSnippet(ctx, "alice", master.ID, exp.ID, "bullet", "v1")
	if err != nil {
		t.Fatalf("create snippet: %v", err)
	}
	// 同一版本同时被模板中的同一段经历引用。
	if _, err := comp.Snippets.AttachSnippet(ctx, "alice", template.ID, exp.ID, snip.ID, snip.Version); err != nil {
		t.Fatalf("attach snippet to template: %v", err)
	}

	content := "v2"
	next, repointed, err := comp.Snippets.UpdateSnippet(ctx, "alice", snip.ID, snip.Version, snippet.UpdateProps{Content: &content})
	if err != nil {
		t.Fatalf("update snippet: %v", err)
	}
	if repointed != 2 {
		t.Fatalf("both references must be repointed, got %d", repointed)
	}

	var rows []database.ExperienceSnippet
	if err := db.Where("snippet_id = ?", snip.ID).Find(&rows).Error; err != nil {
		t.Fatalf("load rows: %v", err)
	}
	for _, row := range rows {
		if row.SnippetVersion != next.Version {
			t.Fatalf("row %d still references version %d", row.ID, row.SnippetVersion)
		}
	}

	// 旧版本保留，可继续显式挂载。
	if _, err := comp.Snippets.Store().Get(ctx, snip.ID, snip.Version); err != nil {
		t.Fatalf("old version must remain: %v", err)
	}
}

func TestUpdateSnippetWithNoReferences(t *testing.T) {
	ctx := context.Background()
	comp, db := newTestComposer(t)
	master := seedMaster(t, comp, db, "alice")
	exp := seedExperienceUnderMaster(t, comp, master)

	snip, _, err := comp.Snippets.CreateSnippet(ctx, "alice", master.ID, exp.ID, "bullet", "v1")
	if err != nil {
		t.Fatalf("create snippet: %v", err)
	}
	if err := comp.Snippets.DetachSnippet(ctx, "alice", master.ID, exp.ID, snip.ID); err != nil {
		t.Fatalf("detach: %v", err)
	}

	// 0 行重指向是合法结果，不是错误。
	_, repointed, err := comp.Snippets.UpdateSnippet(ctx, "alice", snip.ID, snip.Version, snippet.UpdateProps{})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if repointed != 0 {
		t.Fatalf("expected 0 repointed rows got %d", repointed)
	}
}

func TestSnippetOwnershipEnforced(t *testing.T) {
	ctx := context.Background()
	comp, db := newTestComposer(t)
	aliceMaster := seedMaster(t, comp, db, "alice")
	bobMaster := seedMaster(t, comp, db, "bob")
	aliceExp := seedExperienceUnderMaster(t, comp, aliceMaster)
	bobExp := seedExperienceUnderMaster(t, comp, bobMaster)

	snip, _, err := comp.Snippets.CreateSnippet(ctx, "alice", aliceMaster.ID, aliceExp.ID, "bullet", "v1")
	if err != nil {
		t.Fatalf("create snippet: %v", err)
	}

	if _, err := comp.Snippets.AttachSnippet(ctx, "bob", bobMaster.ID, bobExp.ID, snip.ID, snip.Version); apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("attaching another user's snippet must be forbidden, got %v", err)
	}
	if _, _, err := comp.Snippets.UpdateSnippet(ctx, "bob", snip.ID, snip.Version, snippet.UpdateProps{}); apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("updating another user's snippet must be forbidden, got %v", err)
	}
	if err := comp.Snippets.DeleteSnippetVersion(ctx, "bob", snip.ID, snip.Version); apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("deleting another user's snippet must be forbidden, got %v", err)
	}
}

func TestReorderSnippetsWithinExperience(t *testing.T) {
	ctx := context.Background()
	comp, db := newTestComposer(t)
	master := seedMaster(t, comp, db, "alice")
	exp := seedExperienceUnderMaster(t, comp, master)

	var ids []uint
	for _, content := range []string{"a", "b", "c"} {
		snip, _, err := comp.Snippets.CreateSnippet(ctx, "alice", master.ID, exp.ID, "bullet", content)
		if err != nil {
			t.Fatalf("create %s: %v", content, err)
		}
		ids = append(ids, snip.ID)
	}

	rows, err := comp.Snippets.ReorderSnippets(ctx, "alice", master.ID, exp.ID, []uint{ids[1], ids[2], ids[0]})
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}
	want := []uint{ids[1], ids[2], ids[0]}
	for i, row := range rows {
		if row.SnippetID != want[i] || row.Position != i {
			t.Fatalf("row %d: snippet %d at position %d, want snippet %d at %d", i, row.SnippetID, row.Position, want[i], i)
		}
	}

	if _, err := comp.Snippets.ReorderSnippets(ctx, "alice", master.ID, exp.ID, []uint{ids[0]}); apperr.KindOf(err) != apperr.KindBadRequest {
		t.Fatalf("partial reorder must be bad request, got %v", err)
	}

	// 删除片段版本后关系行仍在（引用不做计数检查），卸载是幂等的。
	if err := comp.Snippets.DetachSnippet(ctx, "alice", master.ID, exp.ID, ids[0]); err != nil {
		t.Fatalf("detach: %v", err)
	}
	if err := comp.Snippets.DetachSnippet(ctx, "alice", master.ID, exp.ID, ids[0]); err != nil {
		t.Fatalf("second detach: %v", err)
	}
}

func TestDeleteSnippetVersionIdempotent(t *testing.T) {
	ctx := context.Background()
	comp, db := newTestComposer(t)
	master := seedMaster(t, comp, db, "alice")
	exp := seedExperienceUnderMaster(t, comp, master)

	snip, _, err := comp.Snippets.CreateSnippet(ctx, "alice", master.ID, exp.ID, "bullet", "v1")
	if err != nil {
		t.Fatalf("create snippet: %v", err)
	}

	if err := comp.Snippets.DeleteSnippetVersion(ctx, "alice", snip.ID, snip.Version); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := comp.Snippets.DeleteSnippetVersion(ctx, "alice", snip.ID, snip.Version); err != nil {
		t.Fatalf("second delete must be idempotent: %v", err)
	}
}
