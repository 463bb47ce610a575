package crud

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"postfeed/errs"
)

// Postgres SQLSTATE codes the crud services react to.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// uniqueFields maps unique constraints to the input field they protect and the
// message shown when a write violates them.
var uniqueFields = map[string][2]string{
	"idx_users_email":             {"email", "This email address is already taken."},
	"idx_profiles_username":       {"username", "This username is already taken."},
	"idx_profiles_user_id":        {"", "The account already has a profile."},
	"idx_oauths_provider_account": {"", "The provider account is already linked."},
	"likes_pkey":                  {"", "The post has just been liked or unliked, try again."},
	"bookmarks_pkey":              {"", "The post has just been bookmarked or unbookmarked, try again."},
	"idx_hashtags_name":           {"", "The hashtag has just been created, try again."},
}

// translate converts store errors into application errors. Errors that already
// are application errors, and errors it doesn't recognize, are returned as is.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var appErr *errs.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.Errorf(errs.ENOTFOUND, "The requested record does not exist.")
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return conflict(pgErr.ConstraintName)
		case pgForeignKeyViolation:
			return errs.Errorf(errs.ENOTFOUND, "A referenced record does not exist.")
		}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return conflict("")
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return errs.Errorf(errs.ENOTFOUND, "A referenced record does not exist.")
	}
	return err
}

func conflict(constraint string) error {
	f, ok := uniqueFields[constraint]
	if !ok {
		return errs.Errorf(errs.ECONFLICT, "The record already exists.")
	}
	appErr := errs.Errorf(errs.ECONFLICT, "%s", f[1])
	if f[0] != "" {
		appErr.Field(f[0], f[1])
	}
	return appErr
}

// postNotFound is returned whenever an operation targets a post that doesn't exist.
func postNotFound() error {
	return errs.Errorf(errs.ENOTFOUND, "The post does not exist.")
}
