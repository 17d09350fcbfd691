package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// PasswordCost is the bcrypt cost used when hashing pending passwords.
var PasswordCost = bcrypt.DefaultCost

type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// Year is an academic class year.
type Year string

const (
	YearFreshman  Year = "freshman"
	YearSophomore Year = "sophomore"
	YearJunior    Year = "junior"
	YearSenior    Year = "senior"
	YearGraduate  Year = "graduate"
)

// YearValues lists every accepted Year, typed for ozzo's In rule.
var YearValues = []interface{}{YearFreshman, YearSophomore, YearJunior, YearSenior, YearGraduate}

// User is a registered account. Password holds a plain-text password that
// has not been hashed yet; it is never stored or serialized.
type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id" bson:"_id"`
	Username     string    `gorm:"uniqueIndex;size:30;not null" json:"username" bson:"username"`
	Email        string    `gorm:"uniqueIndex;size:255;not null" json:"email" bson:"email"`
	PasswordHash string    `gorm:"column:password;not null" json:"-" bson:"password"`
	Password     string    `gorm:"-" json:"-" bson:"-"`
	FirstName    string    `gorm:"size:50;not null" json:"firstName" bson:"firstName"`
	LastName     string    `gorm:"size:50;not null" json:"lastName" bson:"lastName"`
	Role         Role      `gorm:"size:16;not null" json:"role" bson:"role"`
	Year         Year      `gorm:"size:16" json:"year,omitempty" bson:"year,omitempty"`
	Avatar       string    `gorm:"size:512" json:"avatar,omitempty" bson:"avatar,omitempty"`
	IsVerified   bool      `json:"isVerified" bson:"isVerified"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updatedAt"`
}

// PublicUser is the projection of a user returned by the auth endpoints.
type PublicUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Role       Role   `json:"role"`
	Year       Year   `json:"year,omitempty"`
	Avatar     string `json:"avatar,omitempty"`
	IsVerified bool   `json:"isVerified"`
}

// UserRef is the populated form of a user reference.
type UserRef struct {
	ID        string `json:"_id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Role:       u.Role,
		Year:       u.Year,
		Avatar:     u.Avatar,
		IsVerified: u.IsVerified,
	}
}

func (u *User) Ref() UserRef {
	return UserRef{ID: u.ID, Username: u.Username, FirstName: u.FirstName, LastName: u.LastName}
}

// DisplayName is the "First Last" name frozen onto reviews, posts and comments.
func (u *User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// NormalizeEmail trims and lower-cases an address so lookups are stable.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// PrepareCreate fills identity, defaults and timestamps for a new user and
// hashes the pending password.
func (u *User) PrepareCreate(now time.Time) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = RoleStudent
	}
	u.Email = NormalizeEmail(u.Email)
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return u.HashPendingPassword()
}

// HashPendingPassword replaces Password with its bcrypt hash.
func (u *User) HashPendingPassword() error {
	if u.Password == "" {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), PasswordCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	u.Password = ""
	return nil
}

func (u *User) CheckPassword(plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plain)) == nil
}

func (u *User) BeforeCreate(*gorm.DB) error {
	return u.PrepareCreate(time.Now())
}

func (u *User) BeforeSave(*gorm.DB) error {
	return u.HashPendingPassword()
}
