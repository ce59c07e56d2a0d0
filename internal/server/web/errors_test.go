package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/customuser/internal/common"
	"github.com/dmitrijs2005/customuser/internal/server/repositories/emailusers"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"echo error", echo.NewHTTPError(http.StatusUnsupportedMediaType, "only JSON allowed"), http.StatusUnsupportedMediaType},
		{"validation", common.ErrEmailRequired, http.StatusBadRequest},
		{"exists", common.ErrEmailTaken, http.StatusConflict},
		{"not found", fmt.Errorf("lookup: %w", common.ErrorNotFound), http.StatusNotFound},
		{"forbidden", common.ErrorForbidden, http.StatusForbidden},
		{"expired token", common.ErrTokenExpired, http.StatusUnauthorized},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _ := statusOf(tt.err)
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestStatusOf_MalformedAccountIDIsNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+email_users\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs("not-a-uuid").
		WillReturnError(&pgconn.PgError{Code: "22P02", Message: `invalid input syntax for type uuid: "not-a-uuid"`})

	_, err = emailusers.NewPostgresRepository(db).GetByID(context.Background(), "not-a-uuid")
	code, msg := statusOf(err)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, common.ErrorNotFound.Error(), msg)
}
