package composer

import (
	"context"
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"resumely/internal/database"
)

func newTestComposer(t *testing.T) (*Composer, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(database.AllModels()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(db, nil), db
}

func seedMaster(t *testing.T, comp *Composer, db *gorm.DB, owner string) *database.Document {
	t.Helper()
	doc, err := comp.Docs.CreateMaster(context.Background(), db, owner)
	if err != nil {
		t.Fatalf("create master for %s: %v", owner, err)
	}
	return doc
}

func seedTemplate(t *testing.T, comp *Composer, owner, name string) *database.Document {
	t.Helper()
	doc, err := comp.Docs.CreateTemplate(context.Background(), owner, name)
	if err != nil {
		t.Fatalf("create template for %s: %v", owner, err)
	}
	return doc
}
