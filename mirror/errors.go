// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mirror

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidHeader is returned when a submitted block fails header
	// validation. Nothing is written when it is returned.
	ErrInvalidHeader = errors.New("invalid block header")
	// ErrInvalidConfig is returned when a chain is initialized with a zero
	// confirmation depth or retention window.
	ErrInvalidConfig = errors.New("invalid chain config")

	errNotInitialized     = errors.New("chain has not been initialized")
	errBlockWrongVersion  = errors.New("wrong version")
	errNonSequentialBlock = errors.New("block height does not follow its parent")
	errMissingPointer     = errors.New("pointer does not reference a stored block")
	errInvalidHeightKey   = errors.New("invalid height index key")
)

// NoParentError is returned when a submitted block's parent is not in the
// database. Height is the height of the missing parent.
type NoParentError struct {
	Height uint64
}

func (e *NoParentError) Error() string {
	return fmt.Sprintf("no parent block at height %d found in db", e.Height)
}

// BlockAlreadyInDBError is returned when a submitted block is already
// mirrored. Callers treat it as benign.
type BlockAlreadyInDBError struct {
	Height uint64
	Side   string
}

func (e *BlockAlreadyInDBError) Error() string {
	return fmt.Sprintf("%s block at height %d already in db", e.Side, e.Height)
}

// IsAlreadyInDB returns true iff [err] wraps a *BlockAlreadyInDBError.
func IsAlreadyInDB(err error) bool {
	var target *BlockAlreadyInDBError
	return errors.As(err, &target)
}
