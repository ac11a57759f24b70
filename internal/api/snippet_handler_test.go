package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"resumely/internal/database"
)

func newSnippetContext(t *testing.T, username string, snippetID uint, version int64) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Set("username", username)
	c.Params = gin.Params{
		{Key: "snippetID", Value: strconv.FormatUint(uint64(snippetID), 10)},
		{Key: "version", Value: strconv.FormatInt(version, 10)},
	}
	return c, w
}

func TestGetSnippetVersionResponse(t *testing.T) {
	ctx := context.Background()
	comp, db := newTestComposer(t)
	master, err := comp.Docs.CreateMaster(ctx, db, "alice")
	if err != nil {
		t.Fatalf("create master: %v", err)
	}
	exp := database.Experience{Company: "Acme", Title: "Engineer"}
	if _, _, err := comp.Experiences.CreateItem(ctx, "alice", master.ID, &exp); err != nil {
		t.Fatalf("create experience: %v", err)
	}
	snip, _, err := comp.Snippets.CreateSnippet(ctx, "alice", master.ID, exp.ID, "bullet", "Shipped the thing")
	if err != nil {
		t.Fatalf("create snippet: %v", err)
	}

	h := NewSnippetHandler(comp)
	c, w := newSnippetContext(t, "alice", snip.ID, snip.Version)

	h.GetVersion(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	var body struct {
		ID        uint      `json:"id"`
		Version   int64     `json:"version"`
		Content   string    `json:"content"`
		CreatedAt time.Time `json:"created_at"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.ID != snip.ID || body.Version != snip.Version || body.Content != "Shipped the thing" {
		t.Fatalf("snippet fields wrong: %s", w.Body.String())
	}
	// 存储的是毫秒时间戳，响应必须是能解析的时间而不是裸整数。
	if body.CreatedAt.IsZero() || time.Since(body.CreatedAt) > time.Minute {
		t.Fatalf("created_at not a recent timestamp: %s", w.Body.String())
	}

	// 他人访问映射为 403。
	c, w = newSnippetContext(t, "bob", snip.ID, snip.Version)
	h.GetVersion(c)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d body=%s", w.Code, w.Body.String())
	}
}
