package auth

import (
	"time"

	"golang.org/x/oauth2"

	"github.com/Gaius-Lex/CV-voting/internal/model"
)

// CredentialsFromToken builds the stored credential blob. Client id, secret
// and token endpoint travel with the blob so a later refresh does not depend
// on the current process configuration.
func CredentialsFromToken(cfg *oauth2.Config, token *oauth2.Token) model.Credentials {
	creds := model.Credentials{
		Token:        token.AccessToken,
		RefreshToken: token.RefreshToken,
	}
	if cfg != nil {
		creds.TokenURI = cfg.Endpoint.TokenURL
		creds.ClientID = cfg.ClientID
		creds.ClientSecret = cfg.ClientSecret
		creds.Scopes = cfg.Scopes
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry.UTC()
		creds.Expiry = &expiry
	}
	return creds
}

// TokenFromCredentials rebuilds an oauth2 token from a credential blob.
func TokenFromCredentials(creds model.Credentials) *oauth2.Token {
	token := &oauth2.Token{
		AccessToken:  creds.Token,
		RefreshToken: creds.RefreshToken,
		TokenType:    "Bearer",
	}
	if creds.Expiry != nil {
		token.Expiry = *creds.Expiry
	}
	return token
}

func configFromCredentials(creds model.Credentials) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: creds.TokenURI},
		Scopes:       creds.Scopes,
	}
}

// accessTokenExpired reports whether the access token can no longer be used.
func accessTokenExpired(creds model.Credentials, now time.Time) bool {
	if creds.Token == "" {
		return true
	}
	return creds.Expiry != nil && !now.Before(*creds.Expiry)
}
