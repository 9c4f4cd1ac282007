package storage

import "errors"

var (
	// ErrPersisterClosed is returned by Write, and by the promise of any
	// write still pending, once Close has been called. A write that
	// arrives concurrently with or after Close fails loudly rather than
	// being silently dropped or racing the file handle.
	ErrPersisterClosed = errors.New("storage: persister closed")

	// ErrIO wraps an underlying write or fsync failure reported through a
	// write's completion promise.
	ErrIO = errors.New("storage: I/O error")
)
