// Package registry holds the asset registry implementations the wager engine
// escrows tokens through: an in-process Memory registry and a Postgres-backed one.
package registry

import "errors"

var (
	// ErrTokenExists is returned when minting an id that is already owned.
	ErrTokenExists = errors.New("registry: token already exists")

	// ErrNotTokenOwner is returned when an approval is granted by someone
	// other than the token's owner.
	ErrNotTokenOwner = errors.New("registry: caller does not own token")

	// ErrTransferRejected is returned when from does not own the token or the
	// operator is not authorized to move it.
	ErrTransferRejected = errors.New("registry: transfer rejected")
)
