// Package domain contains entities without logic, just meta-data
// and the validation that keeps them well-formed.
package domain

import "errors"

const (
	MaxUserIDLen   = 64
	MaxUsernameLen = 36
)

var (
	ErrIdentityEmpty   = errors.New("identity empty")
	ErrIdentityTooLong = errors.New("identity too long")
	ErrUsernameEmpty   = errors.New("display name empty")
	ErrUsernameTooLong = errors.New("display name too long")
)

type UserID string

// User is an authenticated caller. Identity arrives with the connection,
// supplied by an external auth source; this package only checks shape.
type User struct {
	ID       UserID `json:"id"`
	Username string `json:"username"`
}

// NewUser is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewUser(id, username string) (*User, error) {
	if len(id) == 0 {
		return nil, ErrIdentityEmpty
	}
	if len(id) > MaxUserIDLen {
		return nil, ErrIdentityTooLong
	}
	u := &User{ID: UserID(id)}
	if err := u.SetUsername(username); err != nil {
		return nil, err
	}
	return u, nil
}

func (u *User) SetUsername(username string) error {
	if len(username) == 0 {
		return ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return ErrUsernameTooLong
	}
	u.Username = username
	return nil
}
