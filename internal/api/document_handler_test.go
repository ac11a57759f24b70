package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"resumely/internal/composer"
	"resumely/internal/database"
)

type fakePresign struct {
	urls map[string]string
}

func (s *fakePresign) GeneratePresignedURL(_ context.Context, objectKey string, _ time.Duration) (string, error) {
	if v, ok := s.urls[objectKey]; ok {
		return v, nil
	}
	return "https://example.invalid/" + objectKey, nil
}

func newTestComposer(t *testing.T) (*composer.Composer, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(database.AllModels()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return composer.New(db, nil), db
}

func newAuthedContext(t *testing.T, username string, docID uint) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Set("username", username)
	c.Params = gin.Params{{Key: "id", Value: strconv.FormatUint(uint64(docID), 10)}}
	return c, w
}

func TestGetExportLinkNotReady(t *testing.T) {
	comp, db := newTestComposer(t)
	doc, err := comp.Docs.CreateMaster(context.Background(), db, "alice")
	if err != nil {
		t.Fatalf("create master: %v", err)
	}

	h := NewDocumentHandler(comp, nil, &fakePresign{})
	c, w := newAuthedContext(t, "alice", doc.ID)

	h.GetExportLink(c)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d body=%s", w.Code, w.Body.String())
	}
}

func TestGetExportLinkReturnsSignedURL(t *testing.T) {
	ctx := context.Background()
	comp, db := newTestComposer(t)
	doc, err := comp.Docs.CreateMaster(ctx, db, "alice")
	if err != nil {
		t.Fatalf("create master: %v", err)
	}
	if err := comp.Docs.SetExportObjectKey(ctx, doc.ID, "exports/alice/1/snap.json"); err != nil {
		t.Fatalf("set object key: %v", err)
	}

	storage := &fakePresign{urls: map[string]string{
		"exports/alice/1/snap.json": "https://signed.example/snap.json",
	}}
	h := NewDocumentHandler(comp, nil, storage)
	c, w := newAuthedContext(t, "alice", doc.ID)

	h.GetExportLink(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["url"] != "https://signed.example/snap.json" {
		t.Fatalf("unexpected url %q", body["url"])
	}
}

func TestGetDocumentOwnershipMapping(t *testing.T) {
	ctx := context.Background()
	comp, db := newTestComposer(t)
	doc, err := comp.Docs.CreateMaster(ctx, db, "alice")
	if err != nil {
		t.Fatalf("create master: %v", err)
	}

	h := NewDocumentHandler(comp, nil, &fakePresign{})

	// 他人的文档映射为 403。
	c, w := newAuthedContext(t, "bob", doc.ID)
	h.GetDocument(c)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d body=%s", w.Code, w.Body.String())
	}

	// 不存在的文档映射为 404。
	c, w = newAuthedContext(t, "bob", 9999)
	h.GetDocument(c)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d body=%s", w.Code, w.Body.String())
	}
}

func TestGetComposedDocument(t *testing.T) {
	ctx := context.Background()
	comp, db := newTestComposer(t)
	doc, err := comp.Docs.CreateMaster(ctx, db, "alice")
	if err != nil {
		t.Fatalf("create master: %v", err)
	}
	section := database.Section{Title: "Summary", Content: "Hi"}
	if _, _, err := comp.Sections.CreateItem(ctx, "alice", doc.ID, &section); err != nil {
		t.Fatalf("create section: %v", err)
	}

	h := NewDocumentHandler(comp, nil, &fakePresign{})
	c, w := newAuthedContext(t, "alice", doc.ID)

	h.GetComposedDocument(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	var view struct {
		Document *struct {
			ID uint `json:"id"`
		} `json:"document"`
		Sections []struct {
			Title string `json:"title"`
		} `json:"sections"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if view.Document == nil || view.Document.ID != doc.ID {
		t.Fatalf("document header missing: %s", w.Body.String())
	}
	if len(view.Sections) != 1 || view.Sections[0].Title != "Summary" {
		t.Fatalf("sections wrong: %s", w.Body.String())
	}
}
