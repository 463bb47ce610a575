package crud

import (
	"context"

	"gorm.io/gorm"

	"postfeed/domain"
	"postfeed/errs"
)

// toggleDB flips the presence of a (profile, post) row.
type toggleDB interface {
	Toggle(ctx context.Context, profileID, postID string) (bool, error)
}

// toggleGorm toggles rows of a join table keyed by (profile_id, post_id).
// row builds the model of that table holding both keys.
type toggleGorm struct {
	db  *gorm.DB
	row func(profileID, postID string) interface{}
}

// Toggle deletes the row if it exists and inserts it otherwise, in one
// transaction. When a concurrent toggle of the same row wins the race, the
// delete affects nothing or the insert violates the primary key: both are
// reported as a conflict, so the row ends up toggled exactly once.
func (tg *toggleGorm) Toggle(ctx context.Context, profileID, postID string) (bool, error) {
	var on bool
	err := tg.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := exists(tx.Model(&domain.Post{}).Where("id = ?", postID))
		if err != nil {
			return err
		}
		if !found {
			return postNotFound()
		}

		row := tg.row(profileID, postID)
		present, err := exists(tx.Model(row).Where("profile_id = ? AND post_id = ?", profileID, postID))
		if err != nil {
			return err
		}
		if present {
			res := tx.Where("profile_id = ? AND post_id = ?", profileID, postID).Delete(row)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errs.Errorf(errs.ECONFLICT, "The post has just been changed by another request, try again.")
			}
			on = false
			return nil
		}
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		on = true
		return nil
	})
	if err != nil {
		return false, translate(err)
	}
	return on, nil
}
