package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/newsdesk/internal/model"
	"github.com/hitoshi/newsdesk/internal/newsletter"
)

// --- モック定義 ---

type mockNewsletterService struct {
	createFn   func(ctx context.Context, actor *model.User, input newsletter.Input) (*model.Newsletter, error)
	getFn      func(ctx context.Context, actor *model.User, id string) (*model.Newsletter, error)
	listMineFn func(ctx context.Context, actor *model.User) ([]*model.Newsletter, error)
	updateFn   func(ctx context.Context, actor *model.User, id string, input newsletter.Input) (*model.Newsletter, error)
	deleteFn   func(ctx context.Context, actor *model.User, id string) error
	sendFn     func(ctx context.Context, actor *model.User, id string) (*model.Newsletter, error)
}

func (m *mockNewsletterService) Create(ctx context.Context, actor *model.User, input newsletter.Input) (*model.Newsletter, error) {
	if m.createFn != nil {
		return m.createFn(ctx, actor, input)
	}
	return nil, nil
}

func (m *mockNewsletterService) Get(ctx context.Context, actor *model.User, id string) (*model.Newsletter, error) {
	if m.getFn != nil {
		return m.getFn(ctx, actor, id)
	}
	return nil, nil
}

func (m *mockNewsletterService) ListMine(ctx context.Context, actor *model.User) ([]*model.Newsletter, error) {
	if m.listMineFn != nil {
		return m.listMineFn(ctx, actor)
	}
	return nil, nil
}

func (m *mockNewsletterService) Update(ctx context.Context, actor *model.User, id string, input newsletter.Input) (*model.Newsletter, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, actor, id, input)
	}
	return nil, nil
}

func (m *mockNewsletterService) Delete(ctx context.Context, actor *model.User, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, actor, id)
	}
	return nil
}

func (m *mockNewsletterService) Send(ctx context.Context, actor *model.User, id string) (*model.Newsletter, error) {
	if m.sendFn != nil {
		return m.sendFn(ctx, actor, id)
	}
	return nil, nil
}

var _ NewsletterServiceInterface = (*mockNewsletterService)(nil)

// --- テスト ---

func TestNewsletterHandler_Create_Success_Returns201(t *testing.T) {
	svc := &mockNewsletterService{
		createFn: func(ctx context.Context, actor *model.User, input newsletter.Input) (*model.Newsletter, error) {
			return &model.Newsletter{
				ID:       "nl-1",
				Title:    input.Title,
				Content:  input.Content,
				AuthorID: actor.ID,
			}, nil
		},
	}
	h := NewNewsletterHandler(svc)

	body := `{"title":"週刊レター","content":"<p>今週のまとめ</p>"}`
	req := requestWithUser(http.MethodPost, "/api/newsletters", body, testJournalist())
	w := httptest.NewRecorder()

	h.Create(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	var got newsletterResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.IsSent {
		t.Error("new newsletter should not be sent")
	}
}

func TestNewsletterHandler_Create_ByReader_ReturnsForbidden(t *testing.T) {
	svc := &mockNewsletterService{
		createFn: func(ctx context.Context, actor *model.User, input newsletter.Input) (*model.Newsletter, error) {
			return nil, model.NewForbiddenError("ニュースレターの作成")
		},
	}
	h := NewNewsletterHandler(svc)

	body := `{"title":"週刊レター","content":"本文"}`
	req := requestWithUser(http.MethodPost, "/api/newsletters", body, testReader())
	w := httptest.NewRecorder()

	h.Create(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusForbidden)
	}
}

func TestNewsletterHandler_ListMine_ReturnsNewsletters(t *testing.T) {
	svc := &mockNewsletterService{
		listMineFn: func(ctx context.Context, actor *model.User) ([]*model.Newsletter, error) {
			return []*model.Newsletter{
				{ID: "nl-1", Title: "第1号", AuthorID: actor.ID},
				{ID: "nl-2", Title: "第2号", AuthorID: actor.ID},
			}, nil
		},
	}
	h := NewNewsletterHandler(svc)

	req := requestWithUser(http.MethodGet, "/api/newsletters", "", testJournalist())
	w := httptest.NewRecorder()

	h.ListMine(w, req)

	var got map[string][]newsletterResponse
	if err := json.NewDecoder(w.Result().Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(got["newsletters"]) != 2 {
		t.Errorf("newsletters = %d, want 2", len(got["newsletters"]))
	}
}

func TestNewsletterHandler_Update_SentNewsletter_ReturnsBadRequest(t *testing.T) {
	svc := &mockNewsletterService{
		updateFn: func(ctx context.Context, actor *model.User, id string, input newsletter.Input) (*model.Newsletter, error) {
			return nil, model.NewValidationError("送信済みのニュースレターは変更できません")
		},
	}
	h := NewNewsletterHandler(svc)

	body := `{"title":"改訂","content":"本文"}`
	req := requestWithUser(http.MethodPut, "/api/newsletters/nl-1", body, testJournalist())
	req = withURLParam(req, "id", "nl-1")
	w := httptest.NewRecorder()

	h.Update(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestNewsletterHandler_Delete_Success_Returns204(t *testing.T) {
	h := NewNewsletterHandler(&mockNewsletterService{})

	req := requestWithUser(http.MethodDelete, "/api/newsletters/nl-1", "", testJournalist())
	req = withURLParam(req, "id", "nl-1")
	w := httptest.NewRecorder()

	h.Delete(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
}

func TestNewsletterHandler_Send_Success_Returns200(t *testing.T) {
	sentAt := time.Date(2026, 8, 20, 8, 0, 0, 0, time.UTC)
	svc := &mockNewsletterService{
		sendFn: func(ctx context.Context, actor *model.User, id string) (*model.Newsletter, error) {
			return &model.Newsletter{
				ID:       id,
				Title:    "第1号",
				AuthorID: actor.ID,
				IsSent:   true,
				SentAt:   &sentAt,
			}, nil
		},
	}
	h := NewNewsletterHandler(svc)

	req := requestWithUser(http.MethodPost, "/api/newsletters/nl-1/send", "", testJournalist())
	req = withURLParam(req, "id", "nl-1")
	w := httptest.NewRecorder()

	h.Send(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var got newsletterResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !got.IsSent {
		t.Error("is_sent should be true after send")
	}
	if got.SentAt == nil || !got.SentAt.Equal(sentAt) {
		t.Errorf("sent_at = %v, want %v", got.SentAt, sentAt)
	}
}

func TestNewsletterHandler_Send_ByNonAuthor_ReturnsForbidden(t *testing.T) {
	svc := &mockNewsletterService{
		sendFn: func(ctx context.Context, actor *model.User, id string) (*model.Newsletter, error) {
			return nil, model.NewForbiddenError("ニュースレターの送信")
		},
	}
	h := NewNewsletterHandler(svc)

	req := requestWithUser(http.MethodPost, "/api/newsletters/nl-1/send", "", testEditor())
	req = withURLParam(req, "id", "nl-1")
	w := httptest.NewRecorder()

	h.Send(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusForbidden)
	}
}

func TestNewsletterHandler_Get_NotFound_Returns404(t *testing.T) {
	svc := &mockNewsletterService{
		getFn: func(ctx context.Context, actor *model.User, id string) (*model.Newsletter, error) {
			return nil, model.NewNewsletterNotFoundError(id)
		},
	}
	h := NewNewsletterHandler(svc)

	req := requestWithUser(http.MethodGet, "/api/newsletters/missing", "", testJournalist())
	req = withURLParam(req, "id", "missing")
	w := httptest.NewRecorder()

	h.Get(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}
