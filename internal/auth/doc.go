// Package auth implements the interactive OAuth authorization that obtains a
// refresh token for the calendar server and stores it in the .env file.
//
// Run performs the whole flow:
//
//  1. build the consent URL (offline access, forced consent prompt)
//  2. open it in the browser, unless disabled
//  3. wait on a temporary listener at the redirect address for the code
//  4. exchange the code for a token
//  5. write GOOGLE_REFRESH_TOKEN into the store
//
// The listener settles exactly once. The first callback carrying a code wins;
// a callback carrying an error parameter (consent denied) or a handler panic
// ends the flow with an authorization error. Requests without either are held
// open until the listener shuts down.
//
// When the provider returns no refresh token, typically because access was
// granted before, the store is left unchanged and the user is told to revoke
// the existing grant and retry.
package auth
