// Package config resolves runtime settings and persists the refresh token.
//
// Settings come from a .env file and the process environment. The same file
// doubles as the credential store: after a successful authorization the
// refresh token is written back with Store.SetRefreshToken, which touches only
// the GOOGLE_REFRESH_TOKEN line.
package config
