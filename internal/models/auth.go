package models

import "time"

// Principal is the authenticated caller resolved once from the bearer token.
// Account is the snapshot loaded at authentication time.
type Principal struct {
	Account *Account
	Token   string
	Claims  Claims
}

// Claims is what a verified token says about its bearer.
type Claims struct {
	Subject         string
	TokenID         string
	IssuedAt        time.Time
	ExpiresAt       time.Time
	RefreshDeadline time.Time
}

// IssuedToken is a freshly signed bearer token.
type IssuedToken struct {
	Token     string
	Claims    Claims
	ExpiresIn int64 // seconds
}

// Authorization is the response block describing a bearer token
type Authorization struct {
	Token     string `json:"token"`
	Type      string `json:"type"`
	ExpiresIn int64  `json:"expires_in"`
}

// NewAuthorization builds the bearer block for an issued token.
func NewAuthorization(t *IssuedToken) *Authorization {
	return &Authorization{Token: t.Token, Type: "bearer", ExpiresIn: t.ExpiresIn}
}

// AuthResult is what register, login and refresh hand back to the transport layer.
type AuthResult struct {
	Account       *Account
	Authorization *Authorization
}

// Envelope is the JSON shape of every API response.
type Envelope struct {
	Status        string              `json:"status"`
	Message       string              `json:"message,omitempty"`
	User          *Account            `json:"user,omitempty"`
	Authorization *Authorization      `json:"authorization,omitempty"`
	Errors        map[string][]string `json:"errors,omitempty"`
	Data          interface{}         `json:"data,omitempty"`
	RequestID     string              `json:"request_id,omitempty"`
}
