// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mirror

import (
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/hashing"
)

const testChainName = "eth"

var (
	testConfig = Config{
		ConfirmationDepth: 5,
		RetentionWindow:   3,
	}

	errTestWrite = errors.New("test write failure")
)

// newTestBlock returns a child of [parent] whose hash is derived from its
// parent's hash, its height and [salt].
func newTestBlock(t *testing.T, parent ids.ID, height uint64, salt byte) *Block {
	preimage := make([]byte, len(parent)+9)
	copy(preimage, parent[:])
	binary.BigEndian.PutUint64(preimage[len(parent):], height)
	preimage[len(preimage)-1] = salt

	blk, err := NewBlock(
		hashing.ComputeHash256Array(preimage),
		parent,
		height,
		time.Unix(int64(1600000000+height), 0),
		[][]byte{{salt, byte(height)}},
	)
	require.NoError(t, err)
	return blk
}

// newTestBlocks returns [genesis] followed by [n] blocks extending it.
func newTestBlocks(t *testing.T, genesis *Block, n int) []*Block {
	blks := []*Block{genesis}
	for i := 0; i < n; i++ {
		parent := blks[len(blks)-1]
		blks = append(blks, newTestBlock(t, parent.Hash(), parent.Height()+1, 0))
	}
	return blks
}

func newTestGenesis(t *testing.T, height uint64) *Block {
	return newTestBlock(t, ids.ID{'g', 'e', 'n', 'e', 's', 'i', 's'}, height, 0)
}

func newTestChain(t *testing.T, db database.Database, name string, genesis *Block, config Config) *Chain {
	chain, err := New(db, name, nil, nil)
	require.NoError(t, err)
	require.NoError(t, chain.Initialize(genesis, config))
	return chain
}

// requireInvariants checks the pointer ordering and retention invariants of
// [chain], where [blks] is the chain's history from its anchor, indexed by
// height relative to the anchor.
func requireInvariants(t *testing.T, chain *Chain, blks []*Block) {
	require := require.New(t)

	pointers, err := chain.Pointers()
	require.NoError(err)
	config, err := chain.Config()
	require.NoError(err)

	anchor, err := chain.GetAnchorBlock()
	require.NoError(err)
	tail, err := chain.GetTailBlock()
	require.NoError(err)
	canon, err := chain.GetCanonBlock()
	require.NoError(err)
	latest, err := chain.GetLatestBlock()
	require.NoError(err)

	require.Equal(blks[0].Hash(), pointers.Anchor)
	require.LessOrEqual(anchor.Height(), tail.Height())
	require.LessOrEqual(tail.Height(), canon.Height())
	require.LessOrEqual(canon.Height(), latest.Height())

	expectedCanon := anchor.Height()
	if latest.Height() >= anchor.Height()+config.ConfirmationDepth {
		expectedCanon = latest.Height() - config.ConfirmationDepth
	}
	require.Equal(expectedCanon, canon.Height())

	expectedTail := anchor.Height()
	if canon.Height() >= anchor.Height()+config.RetentionWindow {
		expectedTail = canon.Height() - config.RetentionWindow
	}
	require.Equal(expectedTail, tail.Height())

	for _, blk := range blks {
		if blk.Height() > latest.Height() {
			break
		}
		has, err := chain.HasBlock(blk.Hash())
		require.NoError(err)
		switch {
		case blk.Hash() == pointers.Anchor:
			require.True(has, "anchor at height %d was pruned", blk.Height())
		case blk.Height() < tail.Height():
			require.False(has, "block at height %d is older than tail but stored", blk.Height())
		default:
			require.True(has, "block at height %d is retained but missing", blk.Height())
		}
	}

	// the linker commits to exactly the blocks between the anchor and tail
	var pruned []ids.ID
	for _, blk := range blks[1:] {
		if blk.Height() >= tail.Height() {
			break
		}
		pruned = append(pruned, blk.Hash())
	}
	require.True(VerifyLinker(pointers.Anchor, pointers.Anchor, pruned, pointers.Linker))
}

// failingDB fails every batch write while [fail] is set. versiondb commits
// through a batch, so this fails Commit after every other step succeeded.
type failingDB struct {
	database.Database
	fail bool
}

func (db *failingDB) NewBatch() database.Batch {
	return &failingBatch{
		Batch: db.Database.NewBatch(),
		db:    db,
	}
}

type failingBatch struct {
	database.Batch
	db *failingDB
}

func (b *failingBatch) Write() error {
	if b.db.fail {
		return errTestWrite
	}
	return b.Batch.Write()
}

func newFailingDB() *failingDB {
	return &failingDB{Database: memdb.New()}
}
