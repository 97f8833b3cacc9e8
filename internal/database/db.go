package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when no tag matches the lookup
	ErrNotFound = errors.New("tag not found")
	// ErrDuplicate is returned when an insert collides with an existing id or slug
	ErrDuplicate = errors.New("tag already exists")
)

// DB wraps the database connection
type DB struct {
	conn *sql.DB
}

// NewDB creates a new database connection and runs migrations
func NewDB(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// GetConn returns the underlying database connection
func (db *DB) GetConn() *sql.DB {
	return db.conn
}

// TagRow is a row from the tags table
type TagRow struct {
	ID             string
	Title          string
	Slug           string
	AmountOfVideos int
	CreatedAt      string
}

// Execer is satisfied by *sql.DB and *sql.Tx
type Execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

const tagColumns = "id, title, slug, amount_of_videos, created_at"

// InsertTag inserts a tag into the tags table
func (db *DB) InsertTag(r TagRow) error {
	return InsertTagWith(db.conn, r)
}

// InsertTagWith inserts a tag using ex, so callers can batch inserts in a transaction
func InsertTagWith(ex Execer, r TagRow) error {
	_, err := ex.Exec("INSERT INTO tags ("+tagColumns+") VALUES (?, ?, ?, ?, ?)",
		r.ID, r.Title, r.Slug, r.AmountOfVideos, r.CreatedAt)
	if err != nil {
		if isConstraint(err) {
			return fmt.Errorf("insert tag %s: %w", r.Slug, ErrDuplicate)
		}
		return fmt.Errorf("insert tag: %w", err)
	}
	return nil
}

// InsertTagIfNotExists inserts a tag unless its id or slug is already taken. It reports whether a row was written.
func (db *DB) InsertTagIfNotExists(r TagRow) (bool, error) {
	res, err := db.conn.Exec("INSERT OR IGNORE INTO tags ("+tagColumns+") VALUES (?, ?, ?, ?, ?)",
		r.ID, r.Title, r.Slug, r.AmountOfVideos, r.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("insert tag if not exists: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert tag if not exists: %w", err)
	}
	return n > 0, nil
}

// UpsertTagWith inserts a tag or overwrites the row with the same id
func UpsertTagWith(ex Execer, r TagRow) error {
	_, err := ex.Exec(`INSERT INTO tags (`+tagColumns+`) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title, slug = excluded.slug, amount_of_videos = excluded.amount_of_videos`,
		r.ID, r.Title, r.Slug, r.AmountOfVideos, r.CreatedAt)
	if err != nil {
		if isConstraint(err) {
			return fmt.Errorf("upsert tag %s: %w", r.Slug, ErrDuplicate)
		}
		return fmt.Errorf("upsert tag: %w", err)
	}
	return nil
}

// UpsertTagBySlugWith inserts a tag or updates the title and video count of the row with the same slug
func UpsertTagBySlugWith(ex Execer, r TagRow) error {
	_, err := ex.Exec(`INSERT INTO tags (`+tagColumns+`) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET title = excluded.title, amount_of_videos = excluded.amount_of_videos`,
		r.ID, r.Title, r.Slug, r.AmountOfVideos, r.CreatedAt)
	if err != nil {
		if isConstraint(err) {
			return fmt.Errorf("upsert tag %s: %w", r.Slug, ErrDuplicate)
		}
		return fmt.Errorf("upsert tag: %w", err)
	}
	return nil
}

// GetTag returns the tag with the given id
func (db *DB) GetTag(id string) (TagRow, error) {
	var r TagRow
	err := db.conn.QueryRow("SELECT "+tagColumns+" FROM tags WHERE id = ?", id).
		Scan(&r.ID, &r.Title, &r.Slug, &r.AmountOfVideos, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return TagRow{}, fmt.Errorf("get tag %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return TagRow{}, fmt.Errorf("get tag: %w", err)
	}
	return r, nil
}

// DeleteTag removes a tag from the tags table
func (db *DB) DeleteTag(id string) error {
	res, err := db.conn.Exec("DELETE FROM tags WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete tag %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteAllTagsWith removes every tag using ex
func DeleteAllTagsWith(ex Execer) error {
	if _, err := ex.Exec("DELETE FROM tags"); err != nil {
		return fmt.Errorf("failed to delete all tags: %w", err)
	}
	return nil
}

// CountTags returns the total number of tags
func (db *DB) CountTags() (int, error) {
	var n int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM tags").Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count tags: %w", err)
	}
	return n, nil
}

// CountTagsWithSearch returns the number of tags whose title contains the search term (case-insensitive)
func (db *DB) CountTagsWithSearch(search string) (int, error) {
	pattern := "%" + search + "%"
	var n int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM tags WHERE LOWER(title) LIKE LOWER(?)", pattern).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count tags with search: %w", err)
	}
	return n, nil
}

// ListTagsPaginated returns a page of rows from the tags table in insertion order
func (db *DB) ListTagsPaginated(offset, limit int) ([]TagRow, error) {
	rows, err := db.conn.Query("SELECT "+tagColumns+" FROM tags ORDER BY created_at, rowid LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return scanTags(rows)
}

// ListTagsPaginatedWithSearch returns a page of tag rows filtered by search term (case-insensitive)
func (db *DB) ListTagsPaginatedWithSearch(offset, limit int, search string) ([]TagRow, error) {
	pattern := "%" + search + "%"
	rows, err := db.conn.Query("SELECT "+tagColumns+" FROM tags WHERE LOWER(title) LIKE LOWER(?) ORDER BY created_at, rowid LIMIT ? OFFSET ?", pattern, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list tags with search: %w", err)
	}
	return scanTags(rows)
}

func scanTags(rows *sql.Rows) ([]TagRow, error) {
	defer rows.Close()
	var result []TagRow
	for rows.Next() {
		var r TagRow
		if err := rows.Scan(&r.ID, &r.Title, &r.Slug, &r.AmountOfVideos, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tag row: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func isConstraint(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}

// migrate creates the necessary tables if they don't exist
func (db *DB) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS tags (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		amount_of_videos INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tags_created_at ON tags(created_at);
	`

	_, err := db.conn.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	return nil
}
