package crud

import (
	"context"

	"gorm.io/gorm"

	"postfeed/domain"
	"postfeed/errs"
)

// ProfileService reads Profiles.
// It implements the domain.ProfileService interface.
type ProfileService struct {
	profileValidator
}

type profileValidator struct {
	profileDB
}

type profileDB interface {
	ByID(ctx context.Context, id string) (*domain.Profile, error)
}

type profileGorm struct {
	db *gorm.DB
}

// NewProfileService returns an instance of ProfileService.
func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{
		profileValidator{
			profileDB: &profileGorm{
				db: db,
			},
		},
	}
}

var _ domain.ProfileService = &ProfileService{}

// ByID returns a profile together with its number of posts.
func (pv *profileValidator) ByID(ctx context.Context, caller *domain.Caller, id string) (*domain.Profile, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, errs.Errorf(errs.EINVALID, "A profile id is required.").Field("profileId", "Profile id is required.")
	}
	return pv.profileDB.ByID(ctx, id)
}

// ByID retrieves a Profile and counts its published posts.
func (pg *profileGorm) ByID(ctx context.Context, id string) (*domain.Profile, error) {
	db := pg.db.WithContext(ctx)
	var profile domain.Profile
	if err := db.Take(&profile, "id = ?", id).Error; err != nil {
		if errs.ErrorCode(translate(err)) == errs.ENOTFOUND {
			return nil, errs.Errorf(errs.ENOTFOUND, "The profile does not exist.")
		}
		return nil, err
	}
	err := db.Model(&domain.Post{}).
		Where("profile_id = ? AND published = ?", id, true).
		Count(&profile.PostCount).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
