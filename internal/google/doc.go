// Package google builds the OAuth2 configuration and authenticated HTTP
// clients used to talk to Google Calendar.
//
// The authorizer uses OAuthConfig, AuthURL and Exchange to obtain a refresh
// token once. The tool server turns the stored refresh token into a
// TokenProvider whose token source refreshes access tokens on demand.
package google
