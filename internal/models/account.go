// File: internal/models/account.go
package models

import (
	"time"
)

// Role is the two-value account role.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Account represents a registered user profile
type Account struct {
	ID              string    `json:"id" db:"id"`
	Email           string    `json:"email" db:"email"`
	PasswordDigest  string    `json:"-" db:"password_digest"` // Never serialize to JSON
	FullName        string    `json:"fullName" db:"full_name"`
	UserName        string    `json:"userName" db:"user_name"`
	CompanyName     string    `json:"companyName" db:"company_name"`
	PhoneNumber     string    `json:"phoneNumber" db:"phone_number"`
	Role            Role      `json:"role" db:"role"`
	Comments        *string   `json:"comments" db:"comments"`
	UserLogo        *string   `json:"userLogo,omitempty" db:"user_logo"`
	UserLogoPath    *string   `json:"userLogoPath,omitempty" db:"user_logo_path"`
	CompanyLogo     *string   `json:"companyLogo,omitempty" db:"company_logo"`
	CompanyLogoPath *string   `json:"companyLogoPath,omitempty" db:"company_logo_path"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// Clone returns a deep copy so callers can hold a snapshot that later writes do not touch.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	c.Comments = cloneString(a.Comments)
	c.UserLogo = cloneString(a.UserLogo)
	c.UserLogoPath = cloneString(a.UserLogoPath)
	c.CompanyLogo = cloneString(a.CompanyLogo)
	c.CompanyLogoPath = cloneString(a.CompanyLogoPath)
	return &c
}

// AccountPatch carries the fields of a partial profile update. Nil means "leave unchanged".
type AccountPatch struct {
	Email       *string
	FullName    *string
	UserName    *string
	CompanyName *string
	PhoneNumber *string
	Role        *Role
	Comments    *string
}

// Empty reports whether the patch changes nothing.
func (p AccountPatch) Empty() bool {
	return p.Email == nil && p.FullName == nil && p.UserName == nil && p.CompanyName == nil &&
		p.PhoneNumber == nil && p.Role == nil && p.Comments == nil
}

// Apply writes the patch onto a copy of a and returns it.
func (p AccountPatch) Apply(a *Account) *Account {
	out := a.Clone()
	if p.Email != nil {
		out.Email = *p.Email
	}
	if p.FullName != nil {
		out.FullName = *p.FullName
	}
	if p.UserName != nil {
		out.UserName = *p.UserName
	}
	if p.CompanyName != nil {
		out.CompanyName = *p.CompanyName
	}
	if p.PhoneNumber != nil {
		out.PhoneNumber = *p.PhoneNumber
	}
	if p.Role != nil {
		out.Role = *p.Role
	}
	if p.Comments != nil {
		out.Comments = cloneString(p.Comments)
	}
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
