// Package store is the repository over the external posts table in
// PostgreSQL. It exposes the two batch fetch shapes the pipeline needs
// (cleaning and indexing) and the write-back of cleaned fields. Full schema
// ownership stays with the document store.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/irlabs/postsearch/pkg/config"
	apperrors "github.com/irlabs/postsearch/pkg/errors"
	"github.com/irlabs/postsearch/pkg/postgres"
)

// RawPost is a post as fetched for the cleaning pass.
type RawPost struct {
	ID       string
	Text     string
	PostedAt *time.Time
	Likes    *int
	URL      *string
}

// CleanedPost carries the fields the cleaning pass writes back.
type CleanedPost struct {
	ID            string
	CleanText     string
	ExtractedURLs *string
	URL           *string
	Likes         *int
	DateOnly      *string
	TimeOnly      *string
}

// IndexedPost is a post as fetched for index building.
type IndexedPost struct {
	ID           string
	CleanText    string
	Likes        *int
	CommentCount *int
	Date         *string
}

// PostRepository reads and writes the posts table.
type PostRepository struct {
	client *postgres.Client
	sb     sq.StatementBuilderType
	logger *slog.Logger
}

// NewPostRepository creates a repository over an established Postgres
// client.
func NewPostRepository(client *postgres.Client) *PostRepository {
	return &PostRepository{
		client: client,
		sb:     sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		logger: slog.Default().With("component", "post-repository"),
	}
}

// NewFromConfig connects to Postgres and returns a repository over it.
func NewFromConfig(cfg config.PostgresConfig) (*PostRepository, *postgres.Client, error) {
	client, err := postgres.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return NewPostRepository(client), client, nil
}

// FetchAllForCleaning returns every post with the raw fields the cleaning
// pass consumes.
func (r *PostRepository) FetchAllForCleaning(ctx context.Context) ([]RawPost, error) {
	query, args, err := r.sb.
		Select("post_id", "text", "post_date", "likes", "post_url").
		From("posts").
		OrderBy("post_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building cleaning query: %w", err)
	}

	rows, err := r.client.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching posts for cleaning: %v", apperrors.ErrStorageIO, err)
	}
	defer rows.Close()

	var posts []RawPost
	for rows.Next() {
		var (
			p        RawPost
			text     sql.NullString
			postedAt sql.NullTime
			likes    sql.NullInt64
			url      sql.NullString
		)
		if err := rows.Scan(&p.ID, &text, &postedAt, &likes, &url); err != nil {
			return nil, fmt.Errorf("%w: scanning post row: %v", apperrors.ErrStorageIO, err)
		}
		p.Text = text.String
		if postedAt.Valid {
			t := postedAt.Time
			p.PostedAt = &t
		}
		if likes.Valid {
			n := int(likes.Int64)
			p.Likes = &n
		}
		if url.Valid {
			u := url.String
			p.URL = &u
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating post rows: %v", apperrors.ErrStorageIO, err)
	}
	return posts, nil
}

// FetchAllForIndexing returns every post with the cleaned fields the index
// builder consumes.
func (r *PostRepository) FetchAllForIndexing(ctx context.Context) ([]IndexedPost, error) {
	query, args, err := r.sb.
		Select("post_id", "clean_text", "likes", "comment_count", "post_date_only::text").
		From("posts").
		OrderBy("post_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building indexing query: %w", err)
	}

	rows, err := r.client.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching posts for indexing: %v", apperrors.ErrStorageIO, err)
	}
	defer rows.Close()

	var posts []IndexedPost
	for rows.Next() {
		var (
			p        IndexedPost
			clean    sql.NullString
			likes    sql.NullInt64
			comments sql.NullInt64
			date     sql.NullString
		)
		if err := rows.Scan(&p.ID, &clean, &likes, &comments, &date); err != nil {
			return nil, fmt.Errorf("%w: scanning post row: %v", apperrors.ErrStorageIO, err)
		}
		p.CleanText = clean.String
		if likes.Valid {
			n := int(likes.Int64)
			p.Likes = &n
		}
		if comments.Valid {
			n := int(comments.Int64)
			p.CommentCount = &n
		}
		if date.Valid {
			d := date.String
			p.Date = &d
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating post rows: %v", apperrors.ErrStorageIO, err)
	}
	return posts, nil
}

// UpdateCleaned writes the cleaned fields of one post back into the store.
// Re-running the cleaning pass overwrites the same columns, so the
// write-back is idempotent.
func (r *PostRepository) UpdateCleaned(ctx context.Context, p CleanedPost) error {
	query, args, err := r.sb.
		Update("posts").
		Set("clean_text", p.CleanText).
		Set("extracted_urls", p.ExtractedURLs).
		Set("post_url", p.URL).
		Set("likes", p.Likes).
		Set("post_date_only", p.DateOnly).
		Set("post_time_only", p.TimeOnly).
		Where(sq.Eq{"post_id": p.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building update query: %w", err)
	}

	res, err := r.client.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: updating post %s: %v", apperrors.ErrStorageIO, p.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %q", apperrors.ErrDocumentNotFound, p.ID)
	}
	return nil
}

// GetPost returns one post's indexing view, or ErrDocumentNotFound.
func (r *PostRepository) GetPost(ctx context.Context, id string) (*IndexedPost, error) {
	query, args, err := r.sb.
		Select("post_id", "clean_text", "likes", "comment_count", "post_date_only::text").
		From("posts").
		Where(sq.Eq{"post_id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building get query: %w", err)
	}

	var (
		p        IndexedPost
		clean    sql.NullString
		likes    sql.NullInt64
		comments sql.NullInt64
		date     sql.NullString
	)
	row := r.client.DB.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&p.ID, &clean, &likes, &comments, &date); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %q", apperrors.ErrDocumentNotFound, id)
		}
		return nil, fmt.Errorf("%w: fetching post %s: %v", apperrors.ErrStorageIO, id, err)
	}
	p.CleanText = clean.String
	if likes.Valid {
		n := int(likes.Int64)
		p.Likes = &n
	}
	if comments.Valid {
		n := int(comments.Int64)
		p.CommentCount = &n
	}
	if date.Valid {
		d := date.String
		p.Date = &d
	}
	return &p, nil
}
