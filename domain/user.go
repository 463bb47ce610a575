package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User holds the credentials of an account. Every User has exactly one Profile,
// which carries everything that is shown publicly. Users that only ever signed
// in through an oauth provider have an empty PasswordHash.
type User struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Email        string    `json:"email" gorm:"notNull;uniqueIndex:idx_users_email"`
	Password     string    `json:"-" gorm:"-"`
	PasswordHash string    `json:"-"`
	Profile      *Profile  `json:"profile,omitempty" gorm:"constraint:OnDelete:CASCADE;"`
	OAuths       []OAuth   `json:"-" gorm:"constraint:OnDelete:CASCADE;"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BeforeCreate assigns a fresh uuid to users created without an ID.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Account is the identity returned by signup and login. It is the
// data a session is issued for.
type Account struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	ProfileID string `json:"profileId"`
}

// Signup is the input of auth.signup. The validate tags reference the shared
// constraint table in constraints.go.
type Signup struct {
	Email           string     `json:"email" validate:"required,email,constraint=email"`
	Password        string     `json:"password" validate:"required,constraint=password"`
	ConfirmPassword string     `json:"confirmPassword" validate:"required,eqfield=Password"`
	Username        string     `json:"username" validate:"required,constraint=username"`
	FirstName       string     `json:"firstName" validate:"required,constraint=firstName"`
	LastName        string     `json:"lastName" validate:"required,constraint=lastName"`
	Location        string     `json:"location" validate:"omitempty,constraint=location"`
	Bio             string     `json:"bio" validate:"omitempty,constraint=bio"`
	BirthDate       *time.Time `json:"birthDate" validate:"omitempty,birthdate"`
}

// Login is the input of auth.login.
type Login struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserService is a set of methods to manage accounts and check credentials.
type UserService interface {
	Signup(ctx context.Context, input *Signup) (*Account, error)
	Login(ctx context.Context, input *Login) (*Account, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}
