package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/newsdesk/internal/model"
)

// PostgresSubscriptionRepo はPostgreSQLを使用した購読・所属リポジトリ。
type PostgresSubscriptionRepo struct {
	db *sql.DB
}

// NewPostgresSubscriptionRepo はPostgresSubscriptionRepoを生成する。
func NewPostgresSubscriptionRepo(db *sql.DB) *PostgresSubscriptionRepo {
	return &PostgresSubscriptionRepo{db: db}
}

// SubscribePublisher は読者を出版社に購読させる。既に購読済みの場合は何もしない。
func (r *PostgresSubscriptionRepo) SubscribePublisher(ctx context.Context, userID, publisherID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO publisher_subscriptions (user_id, publisher_id, created_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, publisher_id) DO NOTHING`,
		userID, publisherID, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to subscribe publisher: %w", err)
	}
	return nil
}

// UnsubscribePublisher は出版社の購読を解除する。
func (r *PostgresSubscriptionRepo) UnsubscribePublisher(ctx context.Context, userID, publisherID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM publisher_subscriptions WHERE user_id = $1 AND publisher_id = $2`,
		userID, publisherID,
	)
	if err != nil {
		return fmt.Errorf("failed to unsubscribe publisher: %w", err)
	}
	return nil
}

// IsSubscribedToPublisher は読者が出版社を購読しているかを返す。
func (r *PostgresSubscriptionRepo) IsSubscribedToPublisher(ctx context.Context, userID, publisherID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM publisher_subscriptions WHERE user_id = $1 AND publisher_id = $2
		)`,
		userID, publisherID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check publisher subscription: %w", err)
	}
	return exists, nil
}

// ListPublisherSubscriptions は読者が購読している出版社一覧を名前昇順で返す。
func (r *PostgresSubscriptionRepo) ListPublisherSubscriptions(ctx context.Context, userID string) ([]*model.Publisher, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT p.id, p.name, p.description, p.website, p.logo_data, p.logo_mime, p.created_at, p.updated_at
		 FROM publishers p
		 JOIN publisher_subscriptions ps ON ps.publisher_id = p.id
		 WHERE ps.user_id = $1
		 ORDER BY p.name`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list publisher subscriptions: %w", err)
	}
	defer rows.Close()

	var publishers []*model.Publisher
	for rows.Next() {
		p, err := scanPublisher(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscribed publisher row: %w", err)
		}
		publishers = append(publishers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subscribed publisher rows: %w", err)
	}
	return publishers, nil
}

// SubscribeJournalist は読者を記者に購読させる。既に購読済みの場合は何もしない。
func (r *PostgresSubscriptionRepo) SubscribeJournalist(ctx context.Context, userID, journalistID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO journalist_subscriptions (user_id, journalist_id, created_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, journalist_id) DO NOTHING`,
		userID, journalistID, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to subscribe journalist: %w", err)
	}
	return nil
}

// UnsubscribeJournalist は記者の購読を解除する。
func (r *PostgresSubscriptionRepo) UnsubscribeJournalist(ctx context.Context, userID, journalistID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM journalist_subscriptions WHERE user_id = $1 AND journalist_id = $2`,
		userID, journalistID,
	)
	if err != nil {
		return fmt.Errorf("failed to unsubscribe journalist: %w", err)
	}
	return nil
}

// IsSubscribedToJournalist は読者が記者を購読しているかを返す。
func (r *PostgresSubscriptionRepo) IsSubscribedToJournalist(ctx context.Context, userID, journalistID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM journalist_subscriptions WHERE user_id = $1 AND journalist_id = $2
		)`,
		userID, journalistID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check journalist subscription: %w", err)
	}
	return exists, nil
}

// ListJournalistSubscriptions は読者が購読している記者一覧をユーザー名昇順で返す。
func (r *PostgresSubscriptionRepo) ListJournalistSubscriptions(ctx context.Context, userID string) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT u.`+userColumnsJoined(`, u.`)+`
		 FROM users u
		 JOIN journalist_subscriptions js ON js.journalist_id = u.id
		 WHERE js.user_id = $1
		 ORDER BY u.username`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list journalist subscriptions: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscribed journalist row: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subscribed journalist rows: %w", err)
	}
	return users, nil
}

// Affiliate は記者を出版社に所属させる。既に所属済みの場合は何もしない。
func (r *PostgresSubscriptionRepo) Affiliate(ctx context.Context, journalistID, publisherID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO publisher_affiliations (journalist_id, publisher_id, created_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (journalist_id, publisher_id) DO NOTHING`,
		journalistID, publisherID, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to affiliate journalist: %w", err)
	}
	return nil
}

// Unaffiliate は記者の出版社所属を解除する。
func (r *PostgresSubscriptionRepo) Unaffiliate(ctx context.Context, journalistID, publisherID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM publisher_affiliations WHERE journalist_id = $1 AND publisher_id = $2`,
		journalistID, publisherID,
	)
	if err != nil {
		return fmt.Errorf("failed to unaffiliate journalist: %w", err)
	}
	return nil
}

// IsAffiliated は記者が出版社に所属しているかを返す。
func (r *PostgresSubscriptionRepo) IsAffiliated(ctx context.Context, journalistID, publisherID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM publisher_affiliations WHERE journalist_id = $1 AND publisher_id = $2
		)`,
		journalistID, publisherID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check affiliation: %w", err)
	}
	return exists, nil
}

// ListContentSubscribers は記事・ニュースレターの通知対象となる読者を返す。
// 著者を購読する読者と、出版社（nilでなければ）を購読する読者の
// 重複排除済み和集合。readerロールのユーザーのみが対象。
func (r *PostgresSubscriptionRepo) ListContentSubscribers(ctx context.Context, authorID string, publisherID *string) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT u.`+userColumnsJoined(`, u.`)+`
		 FROM users u
		 WHERE u.role = $1
		   AND (
		     EXISTS (
		       SELECT 1 FROM journalist_subscriptions js
		       WHERE js.user_id = u.id AND js.journalist_id = $2
		     )
		     OR ($3::uuid IS NOT NULL AND EXISTS (
		       SELECT 1 FROM publisher_subscriptions ps
		       WHERE ps.user_id = u.id AND ps.publisher_id = $3
		     ))
		   )
		 ORDER BY u.username`,
		model.RoleReader, authorID, publisherID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list content subscribers: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscriber row: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subscriber rows: %w", err)
	}
	return users, nil
}

// userColumnsJoined はテーブル別名付きのユーザーカラムリストを組み立てる。
func userColumnsJoined(sep string) string {
	return `id` + sep + `username` + sep + `email` + sep + `password_hash` + sep + `role` +
		sep + `first_name` + sep + `last_name` + sep + `bio` + sep + `created_at` + sep + `updated_at`
}

// compile-time interface check
var _ SubscriptionRepository = (*PostgresSubscriptionRepo)(nil)
