package crud

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"postfeed/errs"
)

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil))

	t.Run("unique violations", func(t *testing.T) {
		err := translate(&pgconn.PgError{Code: "23505", ConstraintName: "idx_users_email"})
		assert.Equal(t, errs.ECONFLICT, errs.ErrorCode(err))
		assert.Contains(t, errs.ErrorFields(err), "email")

		err = translate(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "idx_profiles_username"}))
		assert.Equal(t, errs.ECONFLICT, errs.ErrorCode(err))
		assert.Contains(t, errs.ErrorFields(err), "username")

		err = translate(&pgconn.PgError{Code: "23505", ConstraintName: "likes_pkey"})
		assert.Equal(t, errs.ECONFLICT, errs.ErrorCode(err))
		assert.Empty(t, errs.ErrorFields(err))

		err = translate(gorm.ErrDuplicatedKey)
		assert.Equal(t, errs.ECONFLICT, errs.ErrorCode(err))
	})

	t.Run("missing records", func(t *testing.T) {
		assert.Equal(t, errs.ENOTFOUND, errs.ErrorCode(translate(gorm.ErrRecordNotFound)))
		assert.Equal(t, errs.ENOTFOUND, errs.ErrorCode(translate(&pgconn.PgError{Code: "23503"})))
	})

	t.Run("application errors pass through", func(t *testing.T) {
		in := errs.Errorf(errs.EUNAUTHORIZED, "nope")
		assert.Same(t, in, translate(in))
	})

	t.Run("unknown errors stay internal", func(t *testing.T) {
		in := errors.New("connection reset")
		out := translate(in)
		assert.Equal(t, in, out)
		assert.Equal(t, errs.EINTERNAL, errs.ErrorCode(out))
		assert.Equal(t, "Internal error.", errs.ErrorMessage(out))
	})
}
