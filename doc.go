// Package authware provides drop-in authentication middleware for web
// backends: bearer-token issuance and verification, a request gate with
// skip-listed routes, and the account lifecycle flows (signup, login,
// forgot password, email verification) backed by a narrow store adapter.
package authware
