package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/newsdesk/internal/model"
)

// PostgresNewsletterRepo はPostgreSQLを使用したニュースレターリポジトリ。
type PostgresNewsletterRepo struct {
	db *sql.DB
}

// NewPostgresNewsletterRepo はPostgresNewsletterRepoを生成する。
func NewPostgresNewsletterRepo(db *sql.DB) *PostgresNewsletterRepo {
	return &PostgresNewsletterRepo{db: db}
}

const newsletterColumns = `id, title, content, author_id, publisher_id, is_sent, sent_at, created_at, updated_at`

// scanNewsletter は1行分のニュースレターを読み取る。
func scanNewsletter(row interface{ Scan(...interface{}) error }) (*model.Newsletter, error) {
	n := &model.Newsletter{}
	err := row.Scan(
		&n.ID, &n.Title, &n.Content, &n.AuthorID, &n.PublisherID,
		&n.IsSent, &n.SentAt, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// FindByID は指定IDのニュースレターを取得する。見つからない場合はnilを返す。
func (r *PostgresNewsletterRepo) FindByID(ctx context.Context, id string) (*model.Newsletter, error) {
	n, err := scanNewsletter(r.db.QueryRowContext(ctx,
		`SELECT `+newsletterColumns+` FROM newsletters WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find newsletter by ID: %w", err)
	}
	return n, nil
}

// Create は新規ニュースレターを作成する。
func (r *PostgresNewsletterRepo) Create(ctx context.Context, newsletter *model.Newsletter) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO newsletters (id, title, content, author_id, publisher_id, is_sent, sent_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		newsletter.ID, newsletter.Title, newsletter.Content, newsletter.AuthorID,
		newsletter.PublisherID, newsletter.IsSent, newsletter.SentAt,
		newsletter.CreatedAt, newsletter.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert newsletter: %w", err)
	}
	return nil
}

// Update はニュースレターの編集可能フィールドを更新する。送信状態は変更しない。
func (r *PostgresNewsletterRepo) Update(ctx context.Context, newsletter *model.Newsletter) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE newsletters
		 SET title = $2, content = $3, publisher_id = $4, updated_at = $5
		 WHERE id = $1`,
		newsletter.ID, newsletter.Title, newsletter.Content, newsletter.PublisherID, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update newsletter: %w", err)
	}
	return nil
}

// Delete は指定IDのニュースレターを削除する。
func (r *PostgresNewsletterRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM newsletters WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete newsletter: %w", err)
	}
	return nil
}

// ListByAuthor は指定記者の全ニュースレターをcreated_at降順で返す。
func (r *PostgresNewsletterRepo) ListByAuthor(ctx context.Context, authorID string) ([]*model.Newsletter, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+newsletterColumns+` FROM newsletters WHERE author_id = $1 ORDER BY created_at DESC`,
		authorID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list newsletters: %w", err)
	}
	defer rows.Close()

	var newsletters []*model.Newsletter
	for rows.Next() {
		n, err := scanNewsletter(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan newsletter row: %w", err)
		}
		newsletters = append(newsletters, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate newsletter rows: %w", err)
	}
	return newsletters, nil
}

// MarkSent は未送信→送信済みのエッジ遷移をcompare-and-swapで実行する。
// 二重送信リクエストが重なっても更新が成功するのは1件だけになる。
func (r *PostgresNewsletterRepo) MarkSent(ctx context.Context, newsletterID string, now time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE newsletters
		 SET is_sent = TRUE, sent_at = $2, updated_at = $2
		 WHERE id = $1 AND is_sent = FALSE`,
		newsletterID, now,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark newsletter sent: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected == 1, nil
}

// compile-time interface check
var _ NewsletterRepository = (*PostgresNewsletterRepo)(nil)
