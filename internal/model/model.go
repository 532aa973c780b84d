package model

import "time"

// Session binds a user identity to a sealed credential blob and display profile.
// It is stored in DynamoDB or PostgreSQL.
type Session struct {
	UserID         string    `json:"user_id" dynamodbav:"user_id"`
	Name           string    `json:"name" dynamodbav:"name"`
	Email          string    `json:"email" dynamodbav:"email"`
	Picture        string    `json:"picture" dynamodbav:"picture"`
	CredentialBlob string    `json:"-" dynamodbav:"credential_blob"` // encrypted Credentials JSON
	CreatedAt      time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" dynamodbav:"updated_at"`
	ExpiresAt      time.Time `json:"expires_at" dynamodbav:"expires_at"`
	ExpiresAtUnix  int64     `json:"-" dynamodbav:"expires_at_ttl"` // DynamoDB TTL attribute
}

// IsExpired reports whether the session is past its expiry.
// A session without a recorded expiry never expires.
func (s Session) IsExpired(now time.Time) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return now.After(s.ExpiresAt)
}

// Profile holds the display fields fetched from the identity provider.
type Profile struct {
	UserID  string `json:"user_id,omitempty"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

// Credentials is the plaintext form of the credential blob.
type Credentials struct {
	Token        string     `json:"token"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	TokenURI     string     `json:"token_uri"`
	ClientID     string     `json:"client_id"`
	ClientSecret string     `json:"client_secret"`
	Scopes       []string   `json:"scopes"`
	Expiry       *time.Time `json:"expiry,omitempty"`
}

// Document is a CV file listed from a review folder.
type Document struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	MIMEType       string `json:"mimeType"`
	WebViewLink    string `json:"webViewLink,omitempty"`
	WebContentLink string `json:"webContentLink,omitempty"`
}

// Vote is a single reviewer's rating of a document.
type Vote struct {
	DocumentID string `json:"document_id"`
	VoterName  string `json:"voter_name"`
	Rating     int    `json:"rating"`
	Comment    string `json:"comment"`
}

// Lease is a named, time-bounded lock held by one owner (e.g. the session sweeper).
type Lease struct {
	Name      string `json:"name" dynamodbav:"lock_name"`
	Owner     string `json:"owner" dynamodbav:"owner"`
	ExpiresAt int64  `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix timestamp)
}
