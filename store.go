package seguid

import (
	"context"
	"errors"
)

// Getter is a read-only Store (qv).
type Getter interface {
	// Get gets the record for a Seguid.
	// It returns ErrNotFound if there is none.
	Get(context.Context, Seguid) (Record, error)

	// ByID gets the record containing the given identifier.
	// Membership is exact:
	// an identifier that is a prefix or substring of a recorded one does not match.
	// If more than one record contains the identifier,
	// the one that recorded it first is returned.
	// It returns ErrNotFound if there is none.
	ByID(context.Context, string) (Record, error)

	// ListSeguids calls a function for each Seguid in the store in lexicographic order,
	// beginning with the first one _after_ the specified one.
	//
	// If the callback function returns an error,
	// ListSeguids exits with that error.
	ListSeguids(context.Context, Seguid, func(Seguid) error) error
}

// Store is a Seguid store.
// It maps each Seguid to a set of identifiers that only grows.
type Store interface {
	Getter

	// Merge adds identifiers to the record for a Seguid,
	// creating the record if necessary.
	// It is atomic with respect to other Merge calls for the same Seguid.
	Merge(ctx context.Context, s Seguid, ids []string) (Outcome, error)
}

var (
	// ErrNotFound is the error returned
	// when a Getter looks up a non-existent Seguid or identifier.
	ErrNotFound = errors.New("not found")

	// ErrMalformed is the error returned for requests that cannot be interpreted,
	// before any work is done.
	ErrMalformed = errors.New("malformed request")
)
