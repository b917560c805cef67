// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mirror

import (
	"errors"

	"github.com/ava-labs/avalanchego/ids"
)

var (
	errEmptyHash  = errors.New("block hash is empty")
	errSelfParent = errors.New("block is its own parent")
	errZeroHeight = errors.New("only the genesis block may have height 0")
	errNilBlock   = errors.New("block is nil")

	_ Validator = ValidatorFunc(nil)
	_ Validator = StructuralValidator{}
)

// Validator checks a submitted block's header against the source chain's
// rules (signatures, proof of work, fork rules). Any returned error rejects the
// block with ErrInvalidHeader.
type Validator interface {
	Validate(blk *Block) error
}

// ValidatorFunc adapts a function to a Validator.
type ValidatorFunc func(blk *Block) error

func (f ValidatorFunc) Validate(blk *Block) error { return f(blk) }

// StructuralValidator only checks properties every source chain shares. It is
// used when a chain is created without a chain specific validator.
type StructuralValidator struct{}

func (StructuralValidator) Validate(blk *Block) error {
	switch {
	case blk == nil:
		return errNilBlock
	case blk.Hash() == ids.Empty:
		return errEmptyHash
	case blk.Hash() == blk.Parent():
		return errSelfParent
	case blk.Height() == 0:
		return errZeroHeight
	default:
		return nil
	}
}
