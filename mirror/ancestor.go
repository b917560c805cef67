// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mirror

import (
	"errors"
	"fmt"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/ids"
)

// getAncestor follows [n] parent links back from [blkHash]. It returns
// ok == false, without an error, if the walk reaches a block that isn't
// stored before taking [n] steps.
func getAncestor(s BlockState, blkHash ids.ID, n uint64) (*Block, bool, error) {
	blk, err := s.GetBlock(blkHash)
	if errors.Is(err, database.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	for i := uint64(0); i < n; i++ {
		blk, err = s.GetBlock(blk.Parent())
		if errors.Is(err, database.ErrNotFound) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, err
		}
	}
	return blk, true, nil
}

// advancePointer moves the pointer [name] to the [n]th ancestor of [from]
// when that ancestor is stored and is higher than the block the pointer
// currently references. It returns the pointer's value after the call.
//
// This is used both for canon (n = confirmation depth, from = latest) and
// for tail (n = retention window, from = canon).
func (c *Chain) advancePointer(name Pointer, current, from ids.ID, n uint64) (ids.ID, error) {
	ancestor, ok, err := getAncestor(c.state, from, n)
	if err != nil {
		return current, fmt.Errorf("failed to walk %d blocks back from %s: %w", n, from, err)
	}
	if !ok {
		c.log.Debug("no ancestor stored yet, not moving pointer",
			"pointer", name,
			"depth", n,
		)
		return current, nil
	}

	currentBlk, err := c.state.GetBlock(current)
	if err != nil {
		return current, fmt.Errorf("%w: %s %s: %s", errMissingPointer, name, current, err)
	}
	if ancestor.Height() <= currentBlk.Height() {
		c.log.Debug("pointer does not require updating",
			"pointer", name,
			"height", currentBlk.Height(),
		)
		return current, nil
	}

	if err := c.state.PutPointer(name, ancestor.Hash()); err != nil {
		return current, fmt.Errorf("failed to put %s pointer: %w", name, err)
	}
	c.log.Debug("moved pointer",
		"pointer", name,
		"from", currentBlk.Height(),
		"to", ancestor.Height(),
	)
	return ancestor.Hash(), nil
}

// advanceCanon recomputes canon as the ancestor of latest that is exactly
// the confirmation depth behind it.
func (c *Chain) advanceCanon(p Pointers) (ids.ID, error) {
	return c.advancePointer(Canon, p.Canon, p.Latest, c.config.ConfirmationDepth)
}

// advanceTail recomputes tail as the ancestor of canon that is exactly the
// retention window behind it.
func (c *Chain) advanceTail(p Pointers) (ids.ID, error) {
	return c.advancePointer(Tail, p.Tail, p.Canon, c.config.RetentionWindow)
}
