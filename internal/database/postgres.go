package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"listing-portal/internal/gateway"
	"listing-portal/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type DB struct {
	conn *sql.DB
}

func NewDB(host, port, user, password, dbname, sslmode string) (*DB, error) {
	if sslmode == "" {
		sslmode = "disable"
	}
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(); err != nil {
		return nil, err
	}

	return &DB{conn: conn}, nil
}

// NewDBFromConn wraps an already opened connection pool
func NewDBFromConn(conn *sql.DB) *DB {
	return &DB{conn: conn}
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// InitSchema creates the portal tables if they don't exist
func (db *DB) InitSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS auth_users (
		id VARCHAR(36) PRIMARY KEY,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS profiles (
		id VARCHAR(36) PRIMARY KEY REFERENCES auth_users(id) ON DELETE CASCADE,
		email VARCHAR(255) NOT NULL,
		role VARCHAR(20) NOT NULL DEFAULT 'user',
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS listings (
		id VARCHAR(36) PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT,
		address TEXT,

		-- Filter fields
		price DECIMAL(12, 2),
		property_type VARCHAR(30),
		bedrooms INTEGER,
		bathrooms INTEGER,
		area_m2 DECIMAL(10, 2),
		status VARCHAR(30) NOT NULL DEFAULT 'ready',

		user_id VARCHAR(36) NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS listing_photos (
		id VARCHAR(36) PRIMARY KEY,
		listing_id VARCHAR(36) NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		file_name VARCHAR(255),
		user_id VARCHAR(36) NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS delete_logs (
		id SERIAL PRIMARY KEY,
		listing_id VARCHAR(36) NOT NULL,
		title TEXT,
		photo_count INTEGER NOT NULL DEFAULT 0,
		orphaned_paths TEXT,
		deleted_at TIMESTAMP NOT NULL DEFAULT NOW(),
		reason VARCHAR(50) NOT NULL
	);

	-- Create indexes for filtering
	CREATE INDEX IF NOT EXISTS idx_listings_created_at ON listings(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_listings_price ON listings(price);
	CREATE INDEX IF NOT EXISTS idx_listings_property_type ON listings(property_type);
	CREATE INDEX IF NOT EXISTS idx_listing_photos_listing_id ON listing_photos(listing_id);
	CREATE INDEX IF NOT EXISTS idx_delete_logs_deleted_at ON delete_logs(deleted_at);
	`
	_, err := db.conn.Exec(query)
	return err
}

// listListingsQuery returns one row per photo, listings in insertion order
const listListingsQuery = `
	SELECT l.id, l.title, COALESCE(l.description, ''), COALESCE(l.address, ''),
		   COALESCE(l.price, 0), COALESCE(l.property_type, ''), COALESCE(l.bedrooms, 0),
		   COALESCE(l.bathrooms, 0), COALESCE(l.area_m2, 0), l.status, l.user_id, l.created_at,
		   p.id, p.url, p.file_name, p.user_id, p.created_at
	FROM listings l
	LEFT JOIN listing_photos p ON p.listing_id = l.id
	ORDER BY l.created_at ASC, l.id ASC, p.created_at ASC
`

// ListListings returns all listings with their photos, in insertion order
func (db *DB) ListListings(ctx context.Context) ([]models.Listing, error) {
	rows, err := db.conn.QueryContext(ctx, listListingsQuery)
	if err != nil {
		return nil, pqErr("list listings", err)
	}
	defer rows.Close()

	var listings []models.Listing
	index := make(map[string]int)
	for rows.Next() {
		var l models.Listing
		var photoID, photoURL, photoFileName, photoUserID sql.NullString
		var photoCreatedAt sql.NullTime
		err := rows.Scan(
			&l.ID, &l.Title, &l.Description, &l.Address,
			&l.Price, &l.PropertyType, &l.Bedrooms,
			&l.Bathrooms, &l.AreaM2, &l.Status, &l.UserID, &l.CreatedAt,
			&photoID, &photoURL, &photoFileName, &photoUserID, &photoCreatedAt,
		)
		if err != nil {
			return nil, pqErr("list listings", err)
		}

		i, seen := index[l.ID]
		if !seen {
			l.Photos = []models.Photo{}
			listings = append(listings, l)
			i = len(listings) - 1
			index[l.ID] = i
		}
		if photoID.Valid {
			listings[i].Photos = append(listings[i].Photos, models.Photo{
				ID:        photoID.String,
				ListingID: l.ID,
				URL:       photoURL.String,
				FileName:  photoFileName.String,
				UserID:    photoUserID.String,
				CreatedAt: photoCreatedAt.Time,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, pqErr("list listings", err)
	}

	return listings, nil
}

// InsertListing inserts a listing row, assigning an id when missing
func (db *DB) InsertListing(ctx context.Context, l *models.Listing) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Status == "" {
		l.Status = models.ListingStatusReady
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}

	query := `
	INSERT INTO listings (
		id, title, description, address,
		price, property_type, bedrooms, bathrooms, area_m2, status,
		user_id, created_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := db.conn.ExecContext(ctx, query,
		l.ID, l.Title, l.Description, l.Address,
		l.Price, l.PropertyType, l.Bedrooms, l.Bathrooms, l.AreaM2, l.Status,
		l.UserID, l.CreatedAt)
	return pqErr("insert listing", err)
}

// DeleteListing deletes a listing; listing_photos rows cascade
func (db *DB) DeleteListing(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM listings WHERE id = $1`, id)
	if err != nil {
		return pqErr("delete listing", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return pqErr("delete listing", err)
	}
	if affected == 0 {
		return gateway.E("delete listing", gateway.KindNotFound, fmt.Errorf("listing %s not found", id))
	}
	return nil
}

// ListPhotos returns the photos of one listing
func (db *DB) ListPhotos(ctx context.Context, listingID string) ([]models.Photo, error) {
	query := `
		SELECT id, listing_id, url, COALESCE(file_name, ''), user_id, created_at
		FROM listing_photos
		WHERE listing_id = $1
		ORDER BY created_at ASC
	`
	rows, err := db.conn.QueryContext(ctx, query, listingID)
	if err != nil {
		return nil, pqErr("list photos", err)
	}
	defer rows.Close()

	var photos []models.Photo
	for rows.Next() {
		var p models.Photo
		if err := rows.Scan(&p.ID, &p.ListingID, &p.URL, &p.FileName, &p.UserID, &p.CreatedAt); err != nil {
			return nil, pqErr("list photos", err)
		}
		photos = append(photos, p)
	}
	return photos, pqErr("list photos", rows.Err())
}

// InsertPhoto inserts a photo metadata row
func (db *DB) InsertPhoto(ctx context.Context, p *models.Photo) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO listing_photos (id, listing_id, url, file_name, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.ID, p.ListingID, p.URL, p.FileName, p.UserID, p.CreatedAt)
	return pqErr("insert photo", err)
}

// GetProfile looks up the profile of a user
func (db *DB) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, email, role, created_at FROM profiles WHERE id = $1`, userID,
	).Scan(&p.ID, &p.Email, &p.Role, &p.CreatedAt)
	if err != nil {
		return nil, pqErr("get profile", err)
	}
	return &p, nil
}

// FindAuthUserByEmail looks up credentials by email
func (db *DB) FindAuthUserByEmail(ctx context.Context, email string) (*models.AuthUser, error) {
	return db.scanAuthUser(ctx, "find auth user",
		`SELECT id, email, password_hash, created_at FROM auth_users WHERE email = $1`, email)
}

// GetAuthUser looks up credentials by id
func (db *DB) GetAuthUser(ctx context.Context, id string) (*models.AuthUser, error) {
	return db.scanAuthUser(ctx, "get auth user",
		`SELECT id, email, password_hash, created_at FROM auth_users WHERE id = $1`, id)
}

func (db *DB) scanAuthUser(ctx context.Context, op, query string, arg string) (*models.AuthUser, error) {
	var u models.AuthUser
	if err := db.conn.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, pqErr(op, err)
	}
	return &u, nil
}

// CreateUserWithProfile creates an auth user and its profile in one transaction
func (db *DB) CreateUserWithProfile(ctx context.Context, user *models.AuthUser, profile *models.Profile) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return pqErr("create user", err)
	}
	defer tx.Rollback()

	now := time.Now()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO auth_users (id, email, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
		user.ID, user.Email, user.PasswordHash, now); err != nil {
		return pqErr("create user", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO profiles (id, email, role, created_at) VALUES ($1, $2, $3, $4)`,
		profile.ID, profile.Email, profile.Role, now); err != nil {
		return pqErr("create user", err)
	}
	if err := tx.Commit(); err != nil {
		return pqErr("create user", err)
	}
	user.CreatedAt, profile.CreatedAt = now, now
	return nil
}

// RecordDeletion writes a delete log entry
func (db *DB) RecordDeletion(ctx context.Context, entry *models.DeleteLog) error {
	if entry.DeletedAt.IsZero() {
		entry.DeletedAt = time.Now()
	}
	err := db.conn.QueryRowContext(ctx, `
		INSERT INTO delete_logs (listing_id, title, photo_count, orphaned_paths, deleted_at, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, entry.ListingID, entry.Title, entry.PhotoCount, entry.OrphanedPaths, entry.DeletedAt, entry.Reason,
	).Scan(&entry.ID)
	return pqErr("record deletion", err)
}

// CountListings returns the number of listings
func (db *DB) CountListings(ctx context.Context) (int64, error) {
	var count int64
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM listings`).Scan(&count)
	return count, pqErr("count listings", err)
}

// CountDeleteLogs counts delete logs with since <= deleted_at < before.
// A zero time leaves that bound open.
func (db *DB) CountDeleteLogs(ctx context.Context, since, before time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM delete_logs WHERE 1=1`
	var args []interface{}
	if !since.IsZero() {
		args = append(args, since)
		query += fmt.Sprintf(" AND deleted_at >= $%d", len(args))
	}
	if !before.IsZero() {
		args = append(args, before)
		query += fmt.Sprintf(" AND deleted_at < $%d", len(args))
	}
	var count int64
	err := db.conn.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, pqErr("count delete logs", err)
}

// DeleteLogReasons returns the number of delete logs per reason
func (db *DB) DeleteLogReasons(ctx context.Context) (map[string]int64, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT reason, COUNT(*) FROM delete_logs GROUP BY reason`)
	if err != nil {
		return nil, pqErr("delete log reasons", err)
	}
	defer rows.Close()

	reasons := make(map[string]int64)
	for rows.Next() {
		var reason string
		var count int64
		if err := rows.Scan(&reason, &count); err != nil {
			return nil, pqErr("delete log reasons", err)
		}
		reasons[reason] = count
	}
	return reasons, pqErr("delete log reasons", rows.Err())
}

// PurgeDeleteLogs removes delete logs written before the cutoff
func (db *DB) PurgeDeleteLogs(ctx context.Context, before time.Time) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM delete_logs WHERE deleted_at < $1`, before)
	if err != nil {
		return 0, pqErr("purge delete logs", err)
	}
	n, err := res.RowsAffected()
	return n, pqErr("purge delete logs", err)
}

// RecentDeleteLogs returns the newest delete logs first
func (db *DB) RecentDeleteLogs(ctx context.Context, limit int) ([]models.DeleteLog, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, listing_id, COALESCE(title, ''), photo_count, COALESCE(orphaned_paths, ''), deleted_at, reason
		FROM delete_logs
		ORDER BY deleted_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, pqErr("recent delete logs", err)
	}
	defer rows.Close()

	var logs []models.DeleteLog
	for rows.Next() {
		var l models.DeleteLog
		if err := rows.Scan(&l.ID, &l.ListingID, &l.Title, &l.PhotoCount, &l.OrphanedPaths, &l.DeletedAt, &l.Reason); err != nil {
			return nil, pqErr("recent delete logs", err)
		}
		logs = append(logs, l)
	}
	return logs, pqErr("recent delete logs", rows.Err())
}

func pqErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return gateway.E(op, gateway.KindNotFound, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return gateway.E(op, gateway.KindUnavailable, err)
	}
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		switch pgErr.Code.Name() {
		case "unique_violation":
			return gateway.E(op, gateway.KindConflict, err)
		case "foreign_key_violation", "invalid_text_representation", "numeric_value_out_of_range", "not_null_violation":
			return gateway.E(op, gateway.KindInvalid, err)
		case "too_many_connections", "cannot_connect_now", "admin_shutdown":
			return gateway.E(op, gateway.KindUnavailable, err)
		}
	}
	return gateway.E(op, gateway.KindInternal, err)
}
