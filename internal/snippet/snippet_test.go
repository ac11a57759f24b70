package snippet

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"resumely/internal/apperr"
	"resumely/internal/database"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&database.TextSnippet{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewStore(db, nil)
}

func TestAddAssignsSequentialIDs(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	first, err := store.Add(ctx, "alice", "bullet", "first")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	second, err := store.Add(ctx, "alice", "bullet", "second")
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if first.ID != 1 || second.ID != 2 {
		t.Fatalf("expected ids 1,2 got %d,%d", first.ID, second.ID)
	}
	if first.Parent != nil {
		t.Fatalf("first version must have nil parent, got %v", *first.Parent)
	}
	if first.Version == 0 {
		t.Fatal("version must be assigned")
	}
}

func TestUpdateInsertsNewVersionAndKeepsOld(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	current, err := store.Add(ctx, "alice", "bullet", "original")
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	content := "revised"
	next, err := store.Update(ctx, current, UpdateProps{Content: &content})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if next.ID != current.ID {
		t.Fatalf("update must keep snippet id, got %d want %d", next.ID, current.ID)
	}
	if next.Version <= current.Version {
		t.Fatalf("new version %d must exceed %d", next.Version, current.Version)
	}
	if next.Parent == nil || *next.Parent != current.Version {
		t.Fatalf("parent must point at the source version, got %v", next.Parent)
	}
	if next.Kind != current.Kind {
		t.Fatalf("unset fields must carry over, kind=%q", next.Kind)
	}
	if next.Content != "revised" {
		t.Fatalf("content not applied: %q", next.Content)
	}

	old, err := store.Get(ctx, current.ID, current.Version)
	if err != nil {
		t.Fatalf("old version must remain readable: %v", err)
	}
	if old.Content != "original" {
		t.Fatalf("old version mutated: %q", old.Content)
	}
}

func TestUpdateBumpsVersionWithinClockResolution(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newTestStore(t).WithClock(func() time.Time { return fixed })

	current, err := store.Add(ctx, "alice", "bullet", "v1")
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	// 时钟停摆时连续更新仍必须得到严格递增的版本号。
	next, err := store.Update(ctx, current, UpdateProps{})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if next.Version != current.Version+1 {
		t.Fatalf("expected version %d got %d", current.Version+1, next.Version)
	}

	third, err := store.Update(ctx, next, UpdateProps{})
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if third.Version != next.Version+1 {
		t.Fatalf("expected version %d got %d", next.Version+1, third.Version)
	}
}

func TestVersionsAscending(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	current, err := store.Add(ctx, "alice", "bullet", "v1")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	mid, err := store.Update(ctx, current, UpdateProps{})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := store.Update(ctx, mid, UpdateProps{}); err != nil {
		t.Fatalf("update: %v", err)
	}

	versions, err := store.Versions(ctx, current.ID)
	if err != nil {
		t.Fatalf("versions: %v", err)
	}
	if len(versions) != 3 {
		t.Fatalf("expected 3 versions got %d", len(versions))
	}
	for i := 1; i < len(versions); i++ {
		if versions[i].Version <= versions[i-1].Version {
			t.Fatalf("versions not ascending: %d then %d", versions[i-1].Version, versions[i].Version)
		}
	}
}

func TestDeleteLeavesParentDangling(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	current, err := store.Add(ctx, "alice", "bullet", "v1")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	next, err := store.Update(ctx, current, UpdateProps{})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if err := store.Delete(ctx, current.ID, current.Version); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := store.Get(ctx, current.ID, current.Version); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("deleted version still readable: %v", err)
	}

	// 新版本的 parent 指向已删除的版本：悬空指针保持原样，不回填。
	survivor, err := store.Get(ctx, next.ID, next.Version)
	if err != nil {
		t.Fatalf("get survivor: %v", err)
	}
	if survivor.Parent == nil || *survivor.Parent != current.Version {
		t.Fatalf("dangling parent must be preserved, got %v", survivor.Parent)
	}

	// 幂等：重复删除不是错误。
	if err := store.Delete(ctx, current.ID, current.Version); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestGetMissingVersionIsNotFound(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if _, err := store.Get(ctx, 42, 1); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected not found got %v", err)
	}
}
