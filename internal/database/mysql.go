package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"listing-portal/internal/gateway"
	"listing-portal/internal/models"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type GormDB struct {
	db *gorm.DB
}

func NewGormDB(host, port, user, password, dbname string) (*GormDB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		user, password, host, port, dbname)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	})
	if err != nil {
		return nil, err
	}

	// Test connection
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}

	return &GormDB{db: db}, nil
}

func (gdb *GormDB) Close() error {
	sqlDB, err := gdb.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InitSchema creates tables using GORM AutoMigrate
func (gdb *GormDB) InitSchema() error {
	return gdb.db.AutoMigrate(
		&models.AuthUser{},
		&models.Profile{},
		&models.Listing{},
		&models.Photo{},
		&models.DeleteLog{},
	)
}

// listingsQuery selects listings with their photos in insertion order
func listingsQuery(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Photos", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Order("created_at ASC, id ASC")
}

// ListListings returns all listings with their photos, in insertion order
func (gdb *GormDB) ListListings(ctx context.Context) ([]models.Listing, error) {
	var listings []models.Listing
	err := listingsQuery(gdb.db.WithContext(ctx)).Find(&listings).Error
	if err != nil {
		return nil, gormErr("list listings", err)
	}
	return listings, nil
}

// InsertListing inserts a listing row, assigning an id when missing
func (gdb *GormDB) InsertListing(ctx context.Context, l *models.Listing) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Status == "" {
		l.Status = models.ListingStatusReady
	}
	// Photos are inserted separately by the publish workflow
	err := gdb.db.WithContext(ctx).Omit("Photos").Create(l).Error
	return gormErr("insert listing", err)
}

// DeleteListing deletes a listing; listing_photos rows cascade
func (gdb *GormDB) DeleteListing(ctx context.Context, id string) error {
	result := gdb.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Listing{})
	if result.Error != nil {
		return gormErr("delete listing", result.Error)
	}
	if result.RowsAffected == 0 {
		return gateway.E("delete listing", gateway.KindNotFound, fmt.Errorf("listing %s not found", id))
	}
	return nil
}

// ListPhotos returns the photos of one listing
func (gdb *GormDB) ListPhotos(ctx context.Context, listingID string) ([]models.Photo, error) {
	var photos []models.Photo
	err := gdb.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("created_at ASC").
		Find(&photos).Error
	if err != nil {
		return nil, gormErr("list photos", err)
	}
	return photos, nil
}

// InsertPhoto inserts a photo metadata row
func (gdb *GormDB) InsertPhoto(ctx context.Context, p *models.Photo) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return gormErr("insert photo", gdb.db.WithContext(ctx).Create(p).Error)
}

// GetProfile looks up the profile of a user
func (gdb *GormDB) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	var profile models.Profile
	if err := gdb.db.WithContext(ctx).Where("id = ?", userID).First(&profile).Error; err != nil {
		return nil, gormErr("get profile", err)
	}
	return &profile, nil
}

// FindAuthUserByEmail looks up credentials by email
func (gdb *GormDB) FindAuthUserByEmail(ctx context.Context, email string) (*models.AuthUser, error) {
	var user models.AuthUser
	if err := gdb.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, gormErr("find auth user", err)
	}
	return &user, nil
}

// GetAuthUser looks up credentials by id
func (gdb *GormDB) GetAuthUser(ctx context.Context, id string) (*models.AuthUser, error) {
	var user models.AuthUser
	if err := gdb.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, gormErr("get auth user", err)
	}
	return &user, nil
}

// CreateUserWithProfile creates an auth user and its profile in one transaction
func (gdb *GormDB) CreateUserWithProfile(ctx context.Context, user *models.AuthUser, profile *models.Profile) error {
	err := gdb.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return tx.Create(profile).Error
	})
	return gormErr("create user", err)
}

// RecordDeletion writes a delete log entry
func (gdb *GormDB) RecordDeletion(ctx context.Context, entry *models.DeleteLog) error {
	return gormErr("record deletion", gdb.db.WithContext(ctx).Create(entry).Error)
}

// CountListings returns the number of listings
func (gdb *GormDB) CountListings(ctx context.Context) (int64, error) {
	var count int64
	err := gdb.db.WithContext(ctx).Model(&models.Listing{}).Count(&count).Error
	return count, gormErr("count listings", err)
}

// CountDeleteLogs counts delete logs with since <= deleted_at < before.
// A zero time leaves that bound open.
func (gdb *GormDB) CountDeleteLogs(ctx context.Context, since, before time.Time) (int64, error) {
	q := gdb.db.WithContext(ctx).Model(&models.DeleteLog{})
	if !since.IsZero() {
		q = q.Where("deleted_at >= ?", since)
	}
	if !before.IsZero() {
		q = q.Where("deleted_at < ?", before)
	}
	var count int64
	err := q.Count(&count).Error
	return count, gormErr("count delete logs", err)
}

// DeleteLogReasons returns the number of delete logs per reason
func (gdb *GormDB) DeleteLogReasons(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Reason string
		Count  int64
	}
	err := gdb.db.WithContext(ctx).Model(&models.DeleteLog{}).
		Select("reason, count(*) as count").
		Group("reason").
		Scan(&rows).Error
	if err != nil {
		return nil, gormErr("delete log reasons", err)
	}
	reasons := make(map[string]int64, len(rows))
	for _, r := range rows {
		reasons[r.Reason] = r.Count
	}
	return reasons, nil
}

// PurgeDeleteLogs removes delete logs written before the cutoff
func (gdb *GormDB) PurgeDeleteLogs(ctx context.Context, before time.Time) (int64, error) {
	res := gdb.db.WithContext(ctx).Where("deleted_at < ?", before).Delete(&models.DeleteLog{})
	return res.RowsAffected, gormErr("purge delete logs", res.Error)
}

// RecentDeleteLogs returns the newest delete logs first
func (gdb *GormDB) RecentDeleteLogs(ctx context.Context, limit int) ([]models.DeleteLog, error) {
	var logs []models.DeleteLog
	err := gdb.db.WithContext(ctx).Order("deleted_at DESC").Limit(limit).Find(&logs).Error
	return logs, gormErr("recent delete logs", err)
}

func gormErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return gateway.E(op, gateway.KindNotFound, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return gateway.E(op, gateway.KindConflict, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated), errors.Is(err, gorm.ErrInvalidData):
		return gateway.E(op, gateway.KindInvalid, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return gateway.E(op, gateway.KindUnavailable, err)
	default:
		return gateway.E(op, gateway.KindInternal, err)
	}
}
