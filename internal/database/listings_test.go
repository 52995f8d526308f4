package database

import (
	"testing"

	"listing-portal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func TestListingsQuery_InsertionOrder(t *testing.T) {
	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       "portal:portal@tcp(127.0.0.1:3306)/portal?parseTime=True",
		SkipInitializeWithVersion: true,
	}), &gorm.Config{DisableAutomaticPing: true})
	require.NoError(t, err)

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		return listingsQuery(tx).Find(&[]models.Listing{})
	})
	assert.Contains(t, sql, "ORDER BY created_at ASC, id ASC")
	assert.NotContains(t, sql, "DESC")
}

func TestListListingsQuery_InsertionOrder(t *testing.T) {
	assert.Contains(t, listListingsQuery, "ORDER BY l.created_at ASC, l.id ASC, p.created_at ASC")
	assert.NotContains(t, listListingsQuery, "DESC")
}
