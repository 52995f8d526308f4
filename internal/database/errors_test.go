package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"listing-portal/internal/gateway"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestGormErrKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want gateway.Kind
	}{
		{"not found", gorm.ErrRecordNotFound, gateway.KindNotFound},
		{"duplicate", gorm.ErrDuplicatedKey, gateway.KindConflict},
		{"foreign key", gorm.ErrForeignKeyViolated, gateway.KindInvalid},
		{"canceled", fmt.Errorf("query: %w", context.Canceled), gateway.KindUnavailable},
		{"other", errors.New("boom"), gateway.KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := gormErr("op", tt.err)
			assert.Equal(t, tt.want, gateway.KindOf(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}

	assert.NoError(t, gormErr("op", nil))
}

func TestPqErrKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want gateway.Kind
	}{
		{"no rows", sql.ErrNoRows, gateway.KindNotFound},
		{"unique", &pq.Error{Code: "23505"}, gateway.KindConflict},
		{"foreign key", &pq.Error{Code: "23503"}, gateway.KindInvalid},
		{"too many connections", &pq.Error{Code: "53300"}, gateway.KindUnavailable},
		{"syntax", &pq.Error{Code: "42601"}, gateway.KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, gateway.KindOf(pqErr("op", tt.err)))
		})
	}

	assert.NoError(t, pqErr("op", nil))
}
