package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/newsdesk/internal/model"
)

// PostgresArticleRepo はPostgreSQLを使用した記事リポジトリ。
type PostgresArticleRepo struct {
	db *sql.DB
}

// NewPostgresArticleRepo はPostgresArticleRepoを生成する。
func NewPostgresArticleRepo(db *sql.DB) *PostgresArticleRepo {
	return &PostgresArticleRepo{db: db}
}

const articleColumns = `id, title, content, summary, featured_image_url, author_id, publisher_id,
	is_approved, approved_by, approved_at, published_at, created_at, updated_at`

// articleWithNamesSelect はusers/publishersとJOINした記事取得の共通SELECT句。
// 著者名は姓名（なければユーザー名）、出版社名は独立記事なら空文字になる。
const articleWithNamesSelect = `
	SELECT a.id, a.title, a.content, a.summary, a.featured_image_url, a.author_id, a.publisher_id,
	       a.is_approved, a.approved_by, a.approved_at, a.published_at, a.created_at, a.updated_at,
	       COALESCE(NULLIF(TRIM(u.first_name || ' ' || u.last_name), ''), u.username) AS author_name,
	       COALESCE(p.name, '') AS publisher_name
	FROM articles a
	JOIN users u ON u.id = a.author_id
	LEFT JOIN publishers p ON p.id = a.publisher_id`

// scanArticle は1行分の記事を読み取る。
func scanArticle(row interface{ Scan(...interface{}) error }) (*model.Article, error) {
	a := &model.Article{}
	err := row.Scan(
		&a.ID, &a.Title, &a.Content, &a.Summary, &a.FeaturedImageURL,
		&a.AuthorID, &a.PublisherID, &a.IsApproved, &a.ApprovedBy,
		&a.ApprovedAt, &a.PublishedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// scanArticleWithNames は名前付き記事の1行を読み取る。
func scanArticleWithNames(row interface{ Scan(...interface{}) error }) (model.ArticleWithNames, error) {
	var a model.ArticleWithNames
	err := row.Scan(
		&a.ID, &a.Title, &a.Content, &a.Summary, &a.FeaturedImageURL,
		&a.AuthorID, &a.PublisherID, &a.IsApproved, &a.ApprovedBy,
		&a.ApprovedAt, &a.PublishedAt, &a.CreatedAt, &a.UpdatedAt,
		&a.AuthorName, &a.PublisherName,
	)
	return a, err
}

// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
func (r *PostgresArticleRepo) FindByID(ctx context.Context, id string) (*model.Article, error) {
	a, err := scanArticle(r.db.QueryRowContext(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find article by ID: %w", err)
	}
	return a, nil
}

// FindByIDWithNames は指定IDの記事を著者・出版社名付きで取得する。
// 見つからない場合はnilを返す。
func (r *PostgresArticleRepo) FindByIDWithNames(ctx context.Context, id string) (*model.ArticleWithNames, error) {
	a, err := scanArticleWithNames(r.db.QueryRowContext(ctx,
		articleWithNamesSelect+` WHERE a.id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find article with names: %w", err)
	}
	return &a, nil
}

// Create は新規記事を作成する。
func (r *PostgresArticleRepo) Create(ctx context.Context, article *model.Article) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO articles (id, title, content, summary, featured_image_url, author_id, publisher_id,
		                       is_approved, approved_by, approved_at, published_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		article.ID, article.Title, article.Content, article.Summary, article.FeaturedImageURL,
		article.AuthorID, article.PublisherID, article.IsApproved, article.ApprovedBy,
		article.ApprovedAt, article.PublishedAt, article.CreatedAt, article.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert article: %w", err)
	}
	return nil
}

// Update は記事の編集可能フィールドを更新する。承認関連フィールドは変更しない。
func (r *PostgresArticleRepo) Update(ctx context.Context, article *model.Article) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE articles
		 SET title = $2, content = $3, summary = $4, featured_image_url = $5,
		     publisher_id = $6, updated_at = $7
		 WHERE id = $1`,
		article.ID, article.Title, article.Content, article.Summary,
		article.FeaturedImageURL, article.PublisherID, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update article: %w", err)
	}
	return nil
}

// Delete は指定IDの記事を削除する。
func (r *PostgresArticleRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM articles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete article: %w", err)
	}
	return nil
}

// collectArticlesWithNames は複数行の名前付き記事を読み取る。
func collectArticlesWithNames(rows *sql.Rows) ([]model.ArticleWithNames, error) {
	defer rows.Close()

	var articles []model.ArticleWithNames
	for rows.Next() {
		a, err := scanArticleWithNames(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article row: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate article rows: %w", err)
	}
	return articles, nil
}

// ListVisible は読者の購読に基づく可視記事一覧を返す。
// 承認済みかつ、出版社購読または著者購読のいずれかを満たす記事を対象にする。
// EXISTSのORで判定するため、両経路で購読していても記事は1行しか現れない。
func (r *PostgresArticleRepo) ListVisible(ctx context.Context, readerID string, cursor time.Time, limit int) ([]model.ArticleWithNames, error) {
	query := articleWithNamesSelect + `
	 WHERE a.is_approved = TRUE
	   AND (
	     EXISTS (
	       SELECT 1 FROM publisher_subscriptions ps
	       WHERE ps.user_id = $1 AND ps.publisher_id = a.publisher_id
	     )
	     OR EXISTS (
	       SELECT 1 FROM journalist_subscriptions js
	       WHERE js.user_id = $1 AND js.journalist_id = a.author_id
	     )
	   )`
	args := []interface{}{readerID}

	if !cursor.IsZero() {
		query += ` AND a.published_at < $2`
		args = append(args, cursor)
	}

	query += fmt.Sprintf(` ORDER BY a.published_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list visible articles: %w", err)
	}
	return collectArticlesWithNames(rows)
}

// ListApprovedByPublisher は指定出版社の承認済み記事をpublished_at降順で返す。
func (r *PostgresArticleRepo) ListApprovedByPublisher(ctx context.Context, publisherID string, limit int) ([]model.ArticleWithNames, error) {
	rows, err := r.db.QueryContext(ctx,
		articleWithNamesSelect+`
		 WHERE a.is_approved = TRUE AND a.publisher_id = $1
		 ORDER BY a.published_at DESC LIMIT $2`,
		publisherID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles by publisher: %w", err)
	}
	return collectArticlesWithNames(rows)
}

// ListApprovedByAuthor は指定記者の承認済み記事をpublished_at降順で返す。
func (r *PostgresArticleRepo) ListApprovedByAuthor(ctx context.Context, authorID string, limit int) ([]model.ArticleWithNames, error) {
	rows, err := r.db.QueryContext(ctx,
		articleWithNamesSelect+`
		 WHERE a.is_approved = TRUE AND a.author_id = $1
		 ORDER BY a.published_at DESC LIMIT $2`,
		authorID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles by author: %w", err)
	}
	return collectArticlesWithNames(rows)
}

// ListByAuthor は指定記者の全記事（未承認含む）をcreated_at降順で返す。
func (r *PostgresArticleRepo) ListByAuthor(ctx context.Context, authorID string) ([]*model.Article, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE author_id = $1 ORDER BY created_at DESC`,
		authorID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list author articles: %w", err)
	}
	defer rows.Close()

	var articles []*model.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article row: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate article rows: %w", err)
	}
	return articles, nil
}

// ListPending は未承認記事の一覧をcreated_at降順で返す。
func (r *PostgresArticleRepo) ListPending(ctx context.Context) ([]model.ArticleWithNames, error) {
	rows, err := r.db.QueryContext(ctx,
		articleWithNamesSelect+`
		 WHERE a.is_approved = FALSE
		 ORDER BY a.created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending articles: %w", err)
	}
	return collectArticlesWithNames(rows)
}

// MarkApproved は未承認→承認のエッジ遷移をcompare-and-swapで実行する。
// WHERE句のis_approved = FALSEにより、同時に複数の編集者が承認しても
// 更新が成功するのは1リクエストだけになる。エッジが発火した場合にtrueを返す。
func (r *PostgresArticleRepo) MarkApproved(ctx context.Context, articleID, editorID string, now time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE articles
		 SET is_approved = TRUE, approved_by = $2, approved_at = $3, published_at = $3, updated_at = $3
		 WHERE id = $1 AND is_approved = FALSE`,
		articleID, editorID, now,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark article approved: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected == 1, nil
}

// compile-time interface check
var _ ArticleRepository = (*PostgresArticleRepo)(nil)
