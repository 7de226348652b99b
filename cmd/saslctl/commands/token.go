package commands

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

// oauthFlags are shared between select and diagnose: either a literal
// --bearer-token is supplied, or enough OAuth2 client-credentials/refresh
// material is given to mint one via golang.org/x/oauth2, the way a caller
// would obtain the token this engine's OAUTHBEARER/XOAUTH2 primitives
// serialize onto the wire.
type oauthFlags struct {
	bearerToken  string
	tokenURL     string
	clientID     string
	clientSecret string
	refreshToken string
}

func registerOAuthFlags(flags *oauthFlags, f func(p *string, name, value, usage string)) {
	f(&flags.bearerToken, "bearer-token", "", "OAuth bearer token credential")
	f(&flags.tokenURL, "oauth-token-url", "", "OAuth2 token endpoint, used with --oauth-refresh-token")
	f(&flags.clientID, "oauth-client-id", "", "OAuth2 client ID")
	f(&flags.clientSecret, "oauth-client-secret", "", "OAuth2 client secret")
	f(&flags.refreshToken, "oauth-refresh-token", "", "OAuth2 refresh token, exchanged for a bearer token")
}

// resolveBearerToken returns flags.bearerToken verbatim when set; otherwise,
// if a refresh token and token endpoint were given, it exchanges them for a
// fresh access token via oauth2.Config's TokenSource.
func resolveBearerToken(ctx context.Context, flags oauthFlags) (string, error) {
	if flags.bearerToken != "" {
		return flags.bearerToken, nil
	}
	if flags.refreshToken == "" {
		return "", nil
	}
	if flags.tokenURL == "" {
		return "", fmt.Errorf("saslctl: --oauth-refresh-token requires --oauth-token-url")
	}

	cfg := &oauth2.Config{
		ClientID:     flags.clientID,
		ClientSecret: flags.clientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL: flags.tokenURL,
		},
	}
	src := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: flags.refreshToken})
	tok, err := src.Token()
	if err != nil {
		return "", fmt.Errorf("saslctl: refreshing OAuth token: %w", err)
	}
	return tok.AccessToken, nil
}
