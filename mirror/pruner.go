// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mirror

import (
	"errors"
	"fmt"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/ids"
)

// prunableAncestors returns the stored ancestors of [tail], excluding the
// anchor, oldest first. The walk stops at the anchor or at the first parent
// that is no longer stored.
func (c *Chain) prunableAncestors(tail, anchor ids.ID) ([]*Block, error) {
	tailBlk, err := c.state.GetBlock(tail)
	if err != nil {
		return nil, fmt.Errorf("%w: tail %s: %s", errMissingPointer, tail, err)
	}

	var ancestors []*Block
	for parentHash := tailBlk.Parent(); parentHash != anchor; {
		parent, err := c.state.GetBlock(parentHash)
		if errors.Is(err, database.ErrNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
		ancestors = append(ancestors, parent)
		parentHash = parent.Parent()
	}

	// reverse so the oldest block is pruned first
	for i, j := 0, len(ancestors)-1; i < j; i, j = i+1, j-1 {
		ancestors[i], ancestors[j] = ancestors[j], ancestors[i]
	}
	return ancestors, nil
}

// prune deletes every stored block older than [p.Tail] except the anchor.
// Each ancestor of tail has its hash folded into the linker, and the linker
// persisted, before it is deleted. Blocks off the linear history are deleted
// without being folded. It returns the new linker.
func (c *Chain) prune(p Pointers) (ids.ID, error) {
	ancestors, err := c.prunableAncestors(p.Tail, p.Anchor)
	if err != nil {
		return p.Linker, fmt.Errorf("failed to find blocks to prune: %w", err)
	}

	linker := p.Linker
	for _, blk := range ancestors {
		linker = CombineLinker(blk.Hash(), p.Anchor, linker)
		if err := c.state.PutPointer(Linker, linker); err != nil {
			return p.Linker, fmt.Errorf("failed to put linker: %w", err)
		}
		if err := c.state.DeleteBlock(blk.Hash()); err != nil {
			return p.Linker, fmt.Errorf("failed to delete block %s: %w", blk.Hash(), err)
		}
		c.log.Debug("pruned block",
			"height", blk.Height(),
			"hash", blk.Hash(),
			"linker", linker,
		)
	}

	forks, err := c.pruneForks(p.Tail, p.Anchor)
	if err != nil {
		return p.Linker, err
	}

	if len(ancestors) == 0 && forks == 0 {
		c.log.Debug("nothing older than tail to prune besides the anchor")
		return linker, nil
	}
	c.metrics.pruned.Add(float64(len(ancestors) + forks))
	c.log.Info("pruned blocks older than tail",
		"count", len(ancestors),
		"forks", forks,
	)
	return linker, nil
}

// pruneForks deletes the blocks that are still stored between the anchor and
// [tail] once tail's ancestors are gone. Those can only be blocks that never
// became part of the linear history. It returns how many were deleted.
func (c *Chain) pruneForks(tail, anchor ids.ID) (int, error) {
	tailBlk, err := c.state.GetBlock(tail)
	if err != nil {
		return 0, fmt.Errorf("%w: tail %s: %s", errMissingPointer, tail, err)
	}
	anchorBlk, err := c.state.GetBlock(anchor)
	if err != nil {
		return 0, fmt.Errorf("%w: anchor %s: %s", errMissingPointer, anchor, err)
	}

	blkIDs, err := c.state.GetBlockIDs(anchorBlk.Height()+1, tailBlk.Height())
	if err != nil {
		return 0, fmt.Errorf("failed to find forked blocks: %w", err)
	}
	for _, blkID := range blkIDs {
		if err := c.state.DeleteBlock(blkID); err != nil {
			return 0, fmt.Errorf("failed to delete forked block %s: %w", blkID, err)
		}
		c.log.Debug("pruned forked block", "hash", blkID)
	}
	return len(blkIDs), nil
}
