// Package service provides application-level services coordinating user and
// credential persistence inside transactional scopes.
package service

import "errors"

// ErrCredentialNotRestored is returned by UserService.Restore when the user
// was restored but its credential could not be. It is a notice, not a
// failure: the returned user is valid and the restore was committed.
// Callers should surface it as a warning rather than treating the
// operation as failed.
var ErrCredentialNotRestored = errors.New("user restored but credential could not be restored")
