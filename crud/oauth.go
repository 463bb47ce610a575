package crud

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"postfeed/domain"
	"postfeed/errs"
)

// OAuthService signs users in through oauth providers, linking provider
// accounts to existing users or creating new ones.
// It implements the domain.OAuthService interface.
type OAuthService struct {
	oauthValidator
}

// oauthValidator runs validations on incoming OAuthIdentity data.
// On success, it passes the data on to oauthDB.
type oauthValidator struct {
	oauthDB
}

type oauthDB interface {
	Connect(ctx context.Context, identity *domain.OAuthIdentity) (*domain.Account, error)
}

// oauthGorm runs the database side of the oauth sign in.
type oauthGorm struct {
	db *gorm.DB
}

// NewOAuthService returns an instance of OAuthService.
func NewOAuthService(db *gorm.DB) *OAuthService {
	return &OAuthService{
		oauthValidator{
			oauthDB: &oauthGorm{
				db: db,
			},
		},
	}
}

var _ domain.OAuthService = &OAuthService{}

// Connect validates and normalizes the identity before connecting it.
func (ov *oauthValidator) Connect(ctx context.Context, identity *domain.OAuthIdentity) (*domain.Account, error) {
	err := runOAuthValFns(identity,
		ov.providerSupported,
		ov.providerUserIDRequired,
		ov.emailNormalize,
		ov.emailRequired,
		ov.usernameDerive,
		ov.namesDefault)
	if err != nil {
		return nil, err
	}
	return ov.oauthDB.Connect(ctx, identity)
}

// runOAuthValFns runs any number of functions of type oauthValFn on the passed in identity.
// If none of them returns an error, it returns nil. Otherwise, it returns the respective error.
func runOAuthValFns(identity *domain.OAuthIdentity, fns ...oauthValFn) error {
	for _, fn := range fns {
		if err := fn(identity); err != nil {
			return err
		}
	}
	return nil
}

// A oauthValFn is any function that takes in a pointer to a domain.OAuthIdentity object and returns an error.
type oauthValFn = func(identity *domain.OAuthIdentity) error

func (ov *oauthValidator) providerSupported(identity *domain.OAuthIdentity) error {
	switch identity.Provider {
	case domain.ProviderGithub, domain.ProviderGoogle, domain.ProviderDiscord:
		return nil
	}
	return errs.Errorf(errs.EINVALID, "Unsupported oauth provider %q.", identity.Provider)
}

func (ov *oauthValidator) providerUserIDRequired(identity *domain.OAuthIdentity) error {
	if identity.ProviderUserID == "" {
		return errs.Errorf(errs.EINVALID, "The provider did not return an account id.")
	}
	return nil
}

func (ov *oauthValidator) emailNormalize(identity *domain.OAuthIdentity) error {
	identity.Email = normalizeEmail(identity.Email)
	return nil
}

// emailRequired makes sure the provider shared an email address, since
// accounts are matched on it.
func (ov *oauthValidator) emailRequired(identity *domain.OAuthIdentity) error {
	if identity.Email == "" {
		return errs.Errorf(errs.EINVALID, "The provider did not share an email address.")
	}
	return nil
}

var usernameStrip = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// usernameDerive turns the provider's username, or the local part of the
// email address, into a valid username.
func (ov *oauthValidator) usernameDerive(identity *domain.OAuthIdentity) error {
	identity.Username = deriveUsername(identity.Username, identity.Email)
	return nil
}

func deriveUsername(username, email string) string {
	name := usernameStrip.ReplaceAllString(username, "")
	if name == "" {
		local, _, _ := strings.Cut(email, "@")
		name = usernameStrip.ReplaceAllString(local, "")
	}
	c := domain.Constraints["username"]
	if len(name) > c.Max {
		name = name[:c.Max]
	}
	for len(name) < c.Min {
		name += "_"
	}
	return name
}

// namesDefault fills in first and last name, which profiles require.
func (ov *oauthValidator) namesDefault(identity *domain.OAuthIdentity) error {
	identity.FirstName = strings.TrimSpace(identity.FirstName)
	identity.LastName = strings.TrimSpace(identity.LastName)
	if identity.FirstName == "" {
		identity.FirstName = identity.Username
	}
	if identity.LastName == "" {
		identity.LastName = "-"
	}
	return nil
}

// Connect returns the account linked to the provider account. Without a link,
// the provider account is linked to the user with the same email address, or
// to a freshly created user and profile.
func (og *oauthGorm) Connect(ctx context.Context, identity *domain.OAuthIdentity) (*domain.Account, error) {
	var account *domain.Account
	err := og.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var link domain.OAuth
		err := tx.
			Where("provider = ?", identity.Provider).
			Where("provider_user_id = ?", identity.ProviderUserID).
			Take(&link).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var user domain.User
		switch {
		case err == nil:
			if err := tx.Preload("Profile").Take(&user, "id = ?", link.UserID).Error; err != nil {
				return err
			}
		default:
			err := tx.Preload("Profile").Where("email = ?", identity.Email).Take(&user).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				user, err = og.create(tx, identity)
			}
			if err != nil {
				return err
			}
			link = domain.OAuth{
				UserID:         user.ID,
				Provider:       identity.Provider,
				ProviderUserID: identity.ProviderUserID,
			}
			if err := tx.Create(&link).Error; err != nil {
				return err
			}
		}

		if user.Profile == nil {
			return errs.Errorf(errs.EINTERNAL, "The account has no profile.")
		}
		account = &domain.Account{
			ID:        user.ID,
			Email:     user.Email,
			ProfileID: user.Profile.ID,
		}
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return account, nil
}

// create stores a password-less user with a profile built from the identity.
// A taken username gets a random suffix.
func (og *oauthGorm) create(tx *gorm.DB, identity *domain.OAuthIdentity) (domain.User, error) {
	username := identity.Username
	taken, err := exists(tx.Model(&domain.Profile{}).Where("username = ?", username))
	if err != nil {
		return domain.User{}, err
	}
	if taken {
		limit := domain.Constraints["username"].Max - 5
		if len(username) > limit {
			username = username[:limit]
		}
		username += "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:4]
	}
	user := domain.User{
		Email: identity.Email,
		Profile: &domain.Profile{
			Username:  username,
			FirstName: identity.FirstName,
			LastName:  identity.LastName,
			AvatarURL: identity.AvatarURL,
		},
	}
	if err := createUser(tx, &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}
