package relationship

import (
	"context"
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"resumely/internal/apperr"
	"resumely/internal/database"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(database.AllModels()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedDocumentWithSections(t *testing.T, db *gorm.DB, sectionCount int) (database.Document, []database.Section) {
	t.Helper()
	doc := database.Document{Name: "Master Resume", Owner: "alice", IsMaster: true}
	if err := db.Create(&doc).Error; err != nil {
		t.Fatalf("seed document: %v", err)
	}
	sections := make([]database.Section, 0, sectionCount)
	for i := 0; i < sectionCount; i++ {
		s := database.Section{Owner: "alice", Title: fmt.Sprintf("section %d", i)}
		if err := db.Create(&s).Error; err != nil {
			t.Fatalf("seed section: %v", err)
		}
		sections = append(sections, s)
	}
	return doc, sections
}

func TestAddAndGetAllOrdersByPosition(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	engine := Sections(db, nil)

	doc, sections := seedDocumentWithSections(t, db, 3)

	// 逆序挂载，位置递增，读取顺序应按位置而非插入顺序。
	for i := len(sections) - 1; i >= 0; i-- {
		pos, err := engine.NextPosition(ctx, doc.ID)
		if err != nil {
			t.Fatalf("next position: %v", err)
		}
		row := database.DocumentSection{DocumentID: doc.ID, SectionID: sections[i].ID, Position: pos}
		if err := engine.Add(ctx, &row, "document or section not found"); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	rows, err := engine.GetAll(ctx, doc.ID)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows got %d", len(rows))
	}
	for i, row := range rows {
		if row.Position != i {
			t.Fatalf("row %d has position %d", i, row.Position)
		}
		wantSection := sections[len(sections)-1-i].ID
		if row.SectionID != wantSection {
			t.Fatalf("row %d references section %d, want %d", i, row.SectionID, wantSection)
		}
	}
}

func TestNextPositionEmptyContainerIsZero(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	engine := Sections(db, nil)

	doc, _ := seedDocumentWithSections(t, db, 0)

	pos, err := engine.NextPosition(ctx, doc.ID)
	if err != nil {
		t.Fatalf("next position: %v", err)
	}
	if pos != 0 {
		t.Fatalf("expected 0 got %d", pos)
	}
}

func TestNextPositionContinuesPastGaps(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	engine := Sections(db, nil)

	doc, sections := seedDocumentWithSections(t, db, 3)
	for i, s := range sections {
		row := database.DocumentSection{DocumentID: doc.ID, SectionID: s.ID, Position: i}
		if err := engine.Add(ctx, &row, "document or section not found"); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	// 卸载中间一行留下位置空洞，下一位置仍是 max+1 而不是填洞。
	if err := engine.Delete(ctx, doc.ID, sections[1].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	pos, err := engine.NextPosition(ctx, doc.ID)
	if err != nil {
		t.Fatalf("next position: %v", err)
	}
	if pos != 3 {
		t.Fatalf("expected 3 got %d", pos)
	}
}

func TestUpdatePositionMovesSingleRow(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	engine := Sections(db, nil)

	doc, sections := seedDocumentWithSections(t, db, 2)
	for i, s := range sections {
		row := database.DocumentSection{DocumentID: doc.ID, SectionID: s.ID, Position: i}
		if err := engine.Add(ctx, &row, "document or section not found"); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	moved, err := engine.UpdatePosition(ctx, doc.ID, sections[0].ID, 7)
	if err != nil {
		t.Fatalf("update position: %v", err)
	}
	if moved.Position != 7 {
		t.Fatalf("expected position 7 got %d", moved.Position)
	}

	// 另一行不受影响，读取顺序随之翻转。
	rows, err := engine.GetAll(ctx, doc.ID)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(rows) != 2 || rows[0].SectionID != sections[1].ID || rows[0].Position != 1 {
		t.Fatalf("unexpected rows after move: %+v", rows)
	}
}

func TestUpdatePositionNegativeIsBadRequest(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	engine := Sections(db, nil)

	doc, sections := seedDocumentWithSections(t, db, 1)
	row := database.DocumentSection{DocumentID: doc.ID, SectionID: sections[0].ID, Position: 0}
	if err := engine.Add(ctx, &row, "document or section not found"); err != nil {
		t.Fatalf("add: %v", err)
	}

	_, err := engine.UpdatePosition(ctx, doc.ID, sections[0].ID, -1)
	if apperr.KindOf(err) != apperr.KindBadRequest {
		t.Fatalf("expected bad request got %v", err)
	}
}

func TestUpdatePositionVanishedRowIsInternal(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	engine := Sections(db, nil)

	doc, _ := seedDocumentWithSections(t, db, 0)

	// 行不存在时零行受影响：上抛服务器错误而不是静默忽略。
	_, err := engine.UpdatePosition(ctx, doc.ID, 999, 0)
	if apperr.KindOf(err) != apperr.KindInternal {
		t.Fatalf("expected internal got %v", err)
	}
}

func TestAddDuplicateIsBadRequest(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	engine := Sections(db, nil)

	doc, sections := seedDocumentWithSections(t, db, 1)

	row := database.DocumentSection{DocumentID: doc.ID, SectionID: sections[0].ID, Position: 0}
	if err := engine.Add(ctx, &row, "document or section not found"); err != nil {
		t.Fatalf("first add: %v", err)
	}

	dup := database.DocumentSection{DocumentID: doc.ID, SectionID: sections[0].ID, Position: 1}
	err := engine.Add(ctx, &dup, "document or section not found")
	if apperr.KindOf(err) != apperr.KindBadRequest {
		t.Fatalf("expected bad request got %v", err)
	}
}

func TestAddMissingReferenceIsNotFound(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	engine := Sections(db, nil)

	doc, _ := seedDocumentWithSections(t, db, 0)

	row := database.DocumentSection{DocumentID: doc.ID, SectionID: 999, Position: 0}
	err := engine.Add(ctx, &row, "document or section not found")
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected not found got %v", err)
	}
	if apperr.Message(err) != "document or section not found" {
		t.Fatalf("unexpected message %q", apperr.Message(err))
	}
}

func TestUpdateAllPositionsReorders(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	engine := Sections(db, nil)

	doc, sections := seedDocumentWithSections(t, db, 3)
	for i, s := range sections {
		row := database.DocumentSection{DocumentID: doc.ID, SectionID: s.ID, Position: i}
		if err := engine.Add(ctx, &row, "document or section not found"); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	newOrder := []uint{sections[2].ID, sections[0].ID, sections[1].ID}
	rows, err := engine.UpdateAllPositions(ctx, doc.ID, newOrder)
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows got %d", len(rows))
	}
	for i, row := range rows {
		if row.SectionID != newOrder[i] {
			t.Fatalf("row %d references section %d, want %d", i, row.SectionID, newOrder[i])
		}
		if row.Position != i {
			t.Fatalf("row %d has position %d", i, row.Position)
		}
	}
}

func TestUpdateAllPositionsRejectsWrongCardinality(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	engine := Sections(db, nil)

	doc, sections := seedDocumentWithSections(t, db, 2)
	for i, s := range sections {
		row := database.DocumentSection{DocumentID: doc.ID, SectionID: s.ID, Position: i}
		if err := engine.Add(ctx, &row, "document or section not found"); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	_, err := engine.UpdateAllPositions(ctx, doc.ID, []uint{sections[0].ID})
	if apperr.KindOf(err) != apperr.KindBadRequest {
		t.Fatalf("expected bad request got %v", err)
	}

	// 数量对但包含陌生 id：在事务内拒绝且不得留下部分写入。
	_, err = engine.UpdateAllPositions(ctx, doc.ID, []uint{sections[0].ID, 999})
	if apperr.KindOf(err) != apperr.KindBadRequest {
		t.Fatalf("expected bad request got %v", err)
	}
	rows, err := engine.GetAll(ctx, doc.ID)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	for i, row := range rows {
		if row.SectionID != sections[i].ID || row.Position != i {
			t.Fatalf("positions changed after rejected reorder: %+v", rows)
		}
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	engine := Sections(db, nil)

	doc, sections := seedDocumentWithSections(t, db, 1)
	row := database.DocumentSection{DocumentID: doc.ID, SectionID: sections[0].ID, Position: 0}
	if err := engine.Add(ctx, &row, "document or section not found"); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := engine.Delete(ctx, doc.ID, sections[0].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := engine.Delete(ctx, doc.ID, sections[0].ID); err != nil {
		t.Fatalf("second delete: %v", err)
	}

	rows, err := engine.GetAll(ctx, doc.ID)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected empty container got %d rows", len(rows))
	}
}

func TestRepointRewritesVersionKeepingPosition(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	doc, _ := seedDocumentWithSections(t, db, 0)
	exp := database.Experience{Owner: "alice", Company: "Acme"}
	if err := db.Create(&exp).Error; err != nil {
		t.Fatalf("seed experience: %v", err)
	}
	container := database.DocumentExperience{DocumentID: doc.ID, ExperienceID: exp.ID, Position: 0}
	if err := db.Create(&container).Error; err != nil {
		t.Fatalf("seed container: %v", err)
	}
	snip := database.TextSnippet{ID: 1, Version: 100, Owner: "alice", Content: "v1"}
	if err := db.Create(&snip).Error; err != nil {
		t.Fatalf("seed snippet: %v", err)
	}
	next := database.TextSnippet{ID: 1, Version: 200, Owner: "alice", Content: "v2", Parent: &snip.Version}
	if err := db.Create(&next).Error; err != nil {
		t.Fatalf("seed next version: %v", err)
	}

	engine := ExperienceSnippets(db, nil)
	row := database.ExperienceSnippet{DocumentExperienceID: container.ID, SnippetID: 1, SnippetVersion: 100, Position: 4}
	if err := engine.Add(ctx, &row, "experience or snippet not found"); err != nil {
		t.Fatalf("add: %v", err)
	}

	affected, err := engine.Repoint(ctx, 1, 100, 200)
	if err != nil {
		t.Fatalf("repoint: %v", err)
	}
	if affected != 1 {
		t.Fatalf("expected 1 row repointed got %d", affected)
	}

	reloaded, err := engine.Get(ctx, map[string]any{"snippet_id": 1}, "row not found")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if reloaded.SnippetVersion != 200 {
		t.Fatalf("expected version 200 got %d", reloaded.SnippetVersion)
	}
	if reloaded.Position != 4 {
		t.Fatalf("repoint must not change position, got %d", reloaded.Position)
	}

	// 再次重指向同一旧版本：没有行引用它，0 行是合法结果。
	affected, err = engine.Repoint(ctx, 1, 100, 300)
	if err != nil {
		t.Fatalf("second repoint: %v", err)
	}
	if affected != 0 {
		t.Fatalf("expected 0 rows got %d", affected)
	}
}
