package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/mmeshcher/link-service/internal/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
	sb   squirrel.StatementBuilderType
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := runMigrations(dsn); err != nil {
		return nil, fmt.Errorf("migrations failed: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Println("PostgreSQL store initialized successfully")

	return &PostgresStore{
		pool: pool,
		sb:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

func runMigrations(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open database for migrations: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database for migrations: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres", driver,
	)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	log.Println("Migrations applied successfully")
	return nil
}

func (p *PostgresStore) CreateLink(ctx context.Context, userID int64, shortCode, targetURL string) (*models.Link, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query, args, err := p.sb.
		Insert("links").
		Columns("user_id", "short_code", "target_url").
		Values(userID, shortCode, targetURL).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	link := &models.Link{
		UserID:    userID,
		ShortCode: shortCode,
		TargetURL: targetURL,
	}

	err = tx.QueryRow(ctx, query, args...).Scan(&link.ID, &link.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("insert link: %w", err)
	}

	query, args, err = p.sb.
		Insert("link_stats").
		Columns("link_id").
		Values(link.ID).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	if err := tx.QueryRow(ctx, query, args...).Scan(&link.StatsID); err != nil {
		return nil, fmt.Errorf("insert link stats: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return link, nil
}

func (p *PostgresStore) FindLinkByShortCode(ctx context.Context, shortCode string) (*models.Link, error) {
	query, args, err := p.sb.
		Select("l.id", "l.user_id", "l.short_code", "l.target_url", "l.created_at",
			"COALESCE(s.id, 0)").
		From("links l").
		LeftJoin("link_stats s ON s.link_id = l.id").
		Where(squirrel.Eq{"l.short_code": shortCode}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var link models.Link
	err = p.pool.QueryRow(ctx, query, args...).
		Scan(&link.ID, &link.UserID, &link.ShortCode, &link.TargetURL, &link.CreatedAt, &link.StatsID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query row: %w", err)
	}

	return &link, nil
}

func (p *PostgresStore) FindLinkStatsByID(ctx context.Context, statsID int64) (*models.LinkStats, error) {
	return p.findStats(ctx, squirrel.Eq{"id": statsID})
}

func (p *PostgresStore) FindLinkStatsByLinkID(ctx context.Context, linkID int64) (*models.LinkStats, error) {
	return p.findStats(ctx, squirrel.Eq{"link_id": linkID})
}

func (p *PostgresStore) findStats(ctx context.Context, where squirrel.Eq) (*models.LinkStats, error) {
	query, args, err := p.sb.
		Select("id", "link_id", "redirects_count").
		From("link_stats").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var stats models.LinkStats
	err = p.pool.QueryRow(ctx, query, args...).
		Scan(&stats.ID, &stats.LinkID, &stats.RedirectsCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query row: %w", err)
	}

	return &stats, nil
}

func (p *PostgresStore) LinkRedirects(ctx context.Context, statsID int64, limit int) ([]models.LinkRedirect, error) {
	query, args, err := p.sb.
		Select("id", "link_stats_id", "ip", "country", "browser", "os", "device",
			"is_mobile", "is_tablet", "clicked_at").
		From("link_redirects").
		Where(squirrel.Eq{"link_stats_id": statsID}).
		OrderBy("clicked_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query redirects: %w", err)
	}
	defer rows.Close()

	var redirects []models.LinkRedirect
	for rows.Next() {
		var r models.LinkRedirect
		if err := rows.Scan(&r.ID, &r.LinkStatsID, &r.IP, &r.Country, &r.Browser,
			&r.OS, &r.Device, &r.IsMobile, &r.IsTablet, &r.ClickedAt); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		redirects = append(redirects, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return redirects, nil
}

func (p *PostgresStore) UserLinks(ctx context.Context, userID int64, page, limit int) ([]models.Link, int64, error) {
	countQuery, countArgs, err := p.sb.
		Select("COUNT(*)").
		From("links").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build query: %w", err)
	}

	var total int64
	if err := p.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count links: %w", err)
	}

	offset := (page - 1) * limit

	query, args, err := p.sb.
		Select("l.id", "l.user_id", "l.short_code", "l.target_url", "l.created_at",
			"COALESCE(s.id, 0)").
		From("links l").
		LeftJoin("link_stats s ON s.link_id = l.id").
		Where(squirrel.Eq{"l.user_id": userID}).
		OrderBy("l.created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build query: %w", err)
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query links: %w", err)
	}
	defer rows.Close()

	var links []models.Link
	for rows.Next() {
		var link models.Link
		if err := rows.Scan(&link.ID, &link.UserID, &link.ShortCode, &link.TargetURL,
			&link.CreatedAt, &link.StatsID); err != nil {
			return nil, 0, fmt.Errorf("scan row: %w", err)
		}
		links = append(links, link)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows error: %w", err)
	}

	return links, total, nil
}

func (p *PostgresStore) DeleteLink(ctx context.Context, linkID int64) error {
	query, args, err := p.sb.
		Delete("links").
		Where(squirrel.Eq{"id": linkID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	cmdTag, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("execute delete: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (p *PostgresStore) IncrementAndAppendRedirect(ctx context.Context, statsID int64, rec models.LinkRedirect) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query, args, err := p.sb.
		Update("link_stats").
		Set("redirects_count", squirrel.Expr("redirects_count + 1")).
		Where(squirrel.Eq{"id": statsID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	cmdTag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("increment counter: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}

	query, args, err = p.sb.
		Insert("link_redirects").
		Columns("link_stats_id", "ip", "country", "browser", "os", "device",
			"is_mobile", "is_tablet", "clicked_at").
		Values(statsID, rec.IP, rec.Country, rec.Browser, rec.OS, rec.Device,
			rec.IsMobile, rec.IsTablet, rec.ClickedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("append redirect: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

func (p *PostgresStore) BulkReassignOwner(ctx context.Context, fromUserID, toUserID int64) (int64, error) {
	query, args, err := p.sb.
		Update("links").
		Set("user_id", toUserID).
		Where(squirrel.Eq{"user_id": fromUserID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	cmdTag, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("execute update: %w", err)
	}

	return cmdTag.RowsAffected(), nil
}

func (p *PostgresStore) BulkDeleteByOwner(ctx context.Context, userID int64) (int64, error) {
	query, args, err := p.sb.
		Delete("links").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	cmdTag, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("execute delete: %w", err)
	}

	return cmdTag.RowsAffected(), nil
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}
