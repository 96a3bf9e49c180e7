package repositories

import "errors"

// errDB is the generic database failure injected by the sqlmock expectations.
var errDB = errors.New("db error")
