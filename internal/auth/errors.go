package auth

import "errors"

var ErrNotAuthenticated = errors.New("Not authenticated")
