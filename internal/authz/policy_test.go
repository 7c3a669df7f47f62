package authz

import (
	"errors"
	"testing"

	"github.com/hitoshi/newsdesk/internal/model"
)

func TestCan_RoleCapabilityMatrix(t *testing.T) {
	tests := []struct {
		name string
		role model.Role
		cap  Capability
		want bool
	}{
		{"読者は購読できる", model.RoleReader, CapSubscribe, true},
		{"読者は記事を作成できない", model.RoleReader, CapCreateArticle, false},
		{"読者は記事を承認できない", model.RoleReader, CapApproveArticle, false},
		{"記者は記事を作成できる", model.RoleJournalist, CapCreateArticle, true},
		{"記者は自分の記事を編集できる", model.RoleJournalist, CapEditOwnArticle, true},
		{"記者は任意の記事を編集できない", model.RoleJournalist, CapEditAnyArticle, false},
		{"記者は自分の記事を承認できない", model.RoleJournalist, CapApproveArticle, false},
		{"記者は出版社に所属できる", model.RoleJournalist, CapAffiliate, true},
		{"記者はニュースレターを送信できる", model.RoleJournalist, CapSendNewsletter, true},
		{"記者は購読できない", model.RoleJournalist, CapSubscribe, false},
		{"編集者は記事を承認できる", model.RoleEditor, CapApproveArticle, true},
		{"編集者は任意の記事を編集できる", model.RoleEditor, CapEditAnyArticle, true},
		{"編集者は出版社を作成できる", model.RoleEditor, CapCreatePublisher, true},
		{"編集者は記事を作成できない", model.RoleEditor, CapCreateArticle, false},
		{"編集者は購読できない", model.RoleEditor, CapSubscribe, false},
		{"未知のロールは全拒否", model.Role("admin"), CapApproveArticle, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Can(tt.role, tt.cap); got != tt.want {
				t.Errorf("Can(%q, %q) = %v, want %v", tt.role, tt.cap, got, tt.want)
			}
		})
	}
}

func TestRequire_ReturnsForbiddenError(t *testing.T) {
	err := Require(model.RoleReader, CapApproveArticle, "記事の承認")
	if err == nil {
		t.Fatal("expected error for reader approving article")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeForbidden {
		t.Errorf("error code = %q, want %q", apiErr.Code, model.ErrCodeForbidden)
	}
}

func TestRequire_AllowedReturnsNil(t *testing.T) {
	if err := Require(model.RoleEditor, CapApproveArticle, "記事の承認"); err != nil {
		t.Errorf("Require() error = %v, want nil", err)
	}
}

func TestCanEditArticle_OwnershipRules(t *testing.T) {
	journalist := &model.User{ID: "j-1", Role: model.RoleJournalist}
	otherJournalist := &model.User{ID: "j-2", Role: model.RoleJournalist}
	editor := &model.User{ID: "e-1", Role: model.RoleEditor}
	reader := &model.User{ID: "r-1", Role: model.RoleReader}
	article := &model.Article{ID: "a-1", AuthorID: "j-1"}

	if !CanEditArticle(journalist, article) {
		t.Error("journalist should edit own article")
	}
	if CanEditArticle(otherJournalist, article) {
		t.Error("journalist should not edit another journalist's article")
	}
	if !CanEditArticle(editor, article) {
		t.Error("editor should edit any article")
	}
	if CanEditArticle(reader, article) {
		t.Error("reader should not edit articles")
	}
}

func TestCanDeleteArticle_OwnershipRules(t *testing.T) {
	journalist := &model.User{ID: "j-1", Role: model.RoleJournalist}
	otherJournalist := &model.User{ID: "j-2", Role: model.RoleJournalist}
	editor := &model.User{ID: "e-1", Role: model.RoleEditor}
	article := &model.Article{ID: "a-1", AuthorID: "j-1"}

	if !CanDeleteArticle(journalist, article) {
		t.Error("journalist should delete own article")
	}
	if CanDeleteArticle(otherJournalist, article) {
		t.Error("journalist should not delete another journalist's article")
	}
	if !CanDeleteArticle(editor, article) {
		t.Error("editor should delete any article")
	}
}
