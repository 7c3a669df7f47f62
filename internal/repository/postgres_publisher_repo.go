package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/newsdesk/internal/model"
)

// PostgresPublisherRepo はPostgreSQLを使用した出版社リポジトリ。
type PostgresPublisherRepo struct {
	db *sql.DB
}

// NewPostgresPublisherRepo はPostgresPublisherRepoを生成する。
func NewPostgresPublisherRepo(db *sql.DB) *PostgresPublisherRepo {
	return &PostgresPublisherRepo{db: db}
}

const publisherColumns = `id, name, description, website, logo_data, logo_mime, created_at, updated_at`

// scanPublisher は1行分の出版社を読み取る。
func scanPublisher(row interface{ Scan(...interface{}) error }) (*model.Publisher, error) {
	p := &model.Publisher{}
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Website,
		&p.LogoData, &p.LogoMime, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// FindByID は指定IDの出版社を取得する。見つからない場合はnilを返す。
func (r *PostgresPublisherRepo) FindByID(ctx context.Context, id string) (*model.Publisher, error) {
	p, err := scanPublisher(r.db.QueryRowContext(ctx,
		`SELECT `+publisherColumns+` FROM publishers WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find publisher by ID: %w", err)
	}
	return p, nil
}

// FindByName は名前で出版社を検索する。見つからない場合はnilを返す。
func (r *PostgresPublisherRepo) FindByName(ctx context.Context, name string) (*model.Publisher, error) {
	p, err := scanPublisher(r.db.QueryRowContext(ctx,
		`SELECT `+publisherColumns+` FROM publishers WHERE name = $1`,
		name,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find publisher by name: %w", err)
	}
	return p, nil
}

// Create は出版社を作成する。名前重複の場合はDuplicatePublisherエラーを返す。
func (r *PostgresPublisherRepo) Create(ctx context.Context, publisher *model.Publisher) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO publishers (id, name, description, website, logo_data, logo_mime, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		publisher.ID, publisher.Name, publisher.Description, publisher.Website,
		publisher.LogoData, publisher.LogoMime, publisher.CreatedAt, publisher.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.NewDuplicatePublisherError(publisher.Name)
		}
		return fmt.Errorf("failed to insert publisher: %w", err)
	}
	return nil
}

// List は全出版社を名前昇順で返す。
func (r *PostgresPublisherRepo) List(ctx context.Context) ([]*model.Publisher, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+publisherColumns+` FROM publishers ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list publishers: %w", err)
	}
	defer rows.Close()

	var publishers []*model.Publisher
	for rows.Next() {
		p, err := scanPublisher(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan publisher row: %w", err)
		}
		publishers = append(publishers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate publisher rows: %w", err)
	}
	return publishers, nil
}

// UpdateLogo は出版社のロゴデータを更新する。
func (r *PostgresPublisherRepo) UpdateLogo(ctx context.Context, publisherID string, logoData []byte, logoMime string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE publishers SET logo_data = $2, logo_mime = $3, updated_at = now() WHERE id = $1`,
		publisherID, logoData, logoMime,
	)
	if err != nil {
		return fmt.Errorf("failed to update publisher logo: %w", err)
	}
	return nil
}

// compile-time interface check
var _ PublisherRepository = (*PostgresPublisherRepo)(nil)
