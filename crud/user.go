package crud

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"postfeed/domain"
	"postfeed/errs"
)

// UserService manages Users and their credentials. It is the store side of the
// auth system, http/auth.go deals with requests and sessions.
// It implements the domain.UserService interface.
type UserService struct {
	userValidator
}

// userValidator runs validations on incoming User data.
// On success, it passes the data on to userDB.
// Otherwise, it returns the error of the validation that has failed.
type userValidator struct {
	pepper string
	userDB
}

// userDB is the store behind the UserService. userGorm implements it on top
// of the database.
type userDB interface {
	ByEmail(ctx context.Context, email string) (*domain.User, error)
	ProfileByUserID(ctx context.Context, userID string) (*domain.Profile, error)
	CreateWithProfile(ctx context.Context, user *domain.User) error
}

// userGorm runs CRUD operations on the database using incoming User data.
// It assumes that data has been validated.
type userGorm struct {
	db *gorm.DB
}

// NewUserService returns an instance of UserService.
func NewUserService(db *gorm.DB, pepper string) *UserService {
	return &UserService{
		userValidator{
			pepper: pepper,
			userDB: &userGorm{
				db: db,
			},
		},
	}
}

// Ensure the UserService struct properly implements the domain.UserService interface.
// If it does not, then this expression becomes invalid and won't compile.
var _ domain.UserService = &UserService{}

// Signup creates a User and its Profile. Nothing is stored if any part fails.
func (uv *userValidator) Signup(ctx context.Context, input *domain.Signup) (*domain.Account, error) {
	input.Email = normalizeEmail(input.Email)
	input.Username = strings.TrimSpace(input.Username)
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.Location = sanitize(input.Location)
	input.Bio = sanitize(input.Bio)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:    input.Email,
		Password: input.Password,
		Profile: &domain.Profile{
			Username:  input.Username,
			FirstName: input.FirstName,
			LastName:  input.LastName,
			Location:  input.Location,
			Bio:       input.Bio,
			BirthDate: input.BirthDate,
		},
	}
	err := runUserValFns(user,
		uv.passwordBcrypt,
		uv.passwordHashRequired)
	if err != nil {
		return nil, err
	}
	if err := uv.userDB.CreateWithProfile(ctx, user); err != nil {
		return nil, err
	}
	return &domain.Account{
		ID:        user.ID,
		Email:     user.Email,
		ProfileID: user.Profile.ID,
	}, nil
}

// Login checks a submitted email address and password. Every kind of mismatch
// results in the same error, so that it doesn't reveal which accounts exist.
func (uv *userValidator) Login(ctx context.Context, input *domain.Login) (*domain.Account, error) {
	invalid := errs.Errorf(errs.EUNAUTHENTICATED, "Invalid email or password.")
	input.Email = normalizeEmail(input.Email)
	if err := validateInput(input); err != nil {
		return nil, invalid
	}

	user, err := uv.userDB.ByEmail(ctx, input.Email)
	if errs.ErrorCode(err) == errs.ENOTFOUND {
		return nil, invalid
	} else if err != nil {
		return nil, err
	}
	// Users who only ever signed in through an oauth provider have no password.
	if user.PasswordHash == "" {
		return nil, invalid
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), uv.peppered(input.Password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return nil, invalid
	} else if err != nil {
		return nil, err
	}

	profile, err := uv.userDB.ProfileByUserID(ctx, user.ID)
	if errs.ErrorCode(err) == errs.ENOTFOUND {
		return nil, errs.Errorf(errs.EINTERNAL, "The account has no profile.")
	} else if err != nil {
		return nil, err
	}
	return &domain.Account{
		ID:        user.ID,
		Email:     user.Email,
		ProfileID: profile.ID,
	}, nil
}

// EmailExists reports whether an account uses the email address.
func (uv *userValidator) EmailExists(ctx context.Context, email string) (bool, error) {
	email = normalizeEmail(email)
	if email == "" {
		return false, errs.Errorf(errs.EINVALID, "An email address is required.").
			Field("email", "Email is required.")
	}
	_, err := uv.userDB.ByEmail(ctx, email)
	if errs.ErrorCode(err) == errs.ENOTFOUND {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, nil
}

// runUserValFns runs any number of functions of type userValFn on the passed in User object.
// If none of them returns an error, it returns nil. Otherwise, it returns the respective error.
func runUserValFns(user *domain.User, fns ...userValFn) error {
	for _, fn := range fns {
		if err := fn(user); err != nil {
			return err
		}
	}
	return nil
}

// A userValFn is any function that takes in a pointer to a domain.User object and returns an error.
type userValFn func(user *domain.User) error

// peppered keys the password with the pepper. bcrypt only accepts 72 bytes,
// the encoded digest is always 44.
func (uv *userValidator) peppered(password string) []byte {
	mac := hmac.New(sha256.New, []byte(uv.pepper))
	mac.Write([]byte(password))
	return []byte(base64.StdEncoding.EncodeToString(mac.Sum(nil)))
}

// passwordBcrypt hashes a user's peppered password, if a password is set.
// It then clears the plain password.
func (uv *userValidator) passwordBcrypt(user *domain.User) error {
	if user.Password == "" {
		return nil
	}
	hashedBytes, err := bcrypt.GenerateFromPassword(uv.peppered(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.PasswordHash = string(hashedBytes)
	user.Password = ""
	return nil
}

// passwordHashRequired makes sure that the user's password hash is not the empty string.
func (uv *userValidator) passwordHashRequired(user *domain.User) error {
	if user.PasswordHash == "" {
		return errs.Errorf(errs.EINVALID, "A password is required.").Field("password", "Password is required.")
	}
	return nil
}

// ByEmail retrieves a User database record by Email.
func (ug *userGorm) ByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := ug.db.WithContext(ctx).Where("email = ?", email).Take(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// ProfileByUserID retrieves the Profile belonging to a User.
func (ug *userGorm) ProfileByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	var profile domain.Profile
	err := ug.db.WithContext(ctx).Where("user_id = ?", userID).Take(&profile).Error
	if err != nil {
		return nil, translate(err)
	}
	return &profile, nil
}

// CreateWithProfile stores a User and its Profile in a single transaction.
// A taken email address or username is reported as a conflict on that field.
func (ug *userGorm) CreateWithProfile(ctx context.Context, user *domain.User) error {
	err := ug.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return createUser(tx, user)
	})
	return translate(err)
}

// createUser stores user and user.Profile using tx. It is shared with the
// oauth flow, which creates users inside a larger transaction.
func createUser(tx *gorm.DB, user *domain.User) error {
	taken, err := exists(tx.Model(&domain.User{}).Where("email = ?", user.Email))
	if err != nil {
		return err
	}
	if taken {
		return errs.Errorf(errs.ECONFLICT, "This email address is already taken.").
			Field("email", "This email address is already taken.")
	}
	taken, err = exists(tx.Model(&domain.Profile{}).Where("username = ?", user.Profile.Username))
	if err != nil {
		return err
	}
	if taken {
		return errs.Errorf(errs.ECONFLICT, "This username is already taken.").
			Field("username", "This username is already taken.")
	}

	// Associations are created explicitly: gorm upserts them with
	// ON CONFLICT DO NOTHING, which would hide a taken username.
	if err := tx.Omit(clause.Associations).Create(user).Error; err != nil {
		return err
	}
	user.Profile.UserID = user.ID
	return tx.Create(user.Profile).Error
}

// exists reports whether the query matches any row.
func exists(db *gorm.DB) (bool, error) {
	var n int64
	if err := db.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}
