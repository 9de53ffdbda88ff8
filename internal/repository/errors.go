// Package repository holds the persistence side of the service.  Every
// backend implements Store: it hands out the whole data set as one
// snapshot and replaces it atomically.  Business rules never live here;
// the service package decides what a new snapshot looks like.
package repository

import "errors"

// ErrCorruptSnapshot is returned when stored data cannot be decoded into
// a snapshot.  Handlers should translate this into an HTTP 500 response.
var ErrCorruptSnapshot = errors.New("corrupt snapshot")

// ErrUnknownDriver is returned by Open when the configured store driver
// is not one of file, mysql, redis or memory.
var ErrUnknownDriver = errors.New("unknown store driver")
