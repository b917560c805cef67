// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mirror

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/ava-labs/avalanchego/ids"
)

func newTestState(t *testing.T, db database.Database) State {
	s, err := NewState(db, prometheus.NewRegistry())
	require.NoError(t, err)
	return s
}

func TestStatePointers(t *testing.T) {
	require := require.New(t)

	db := memdb.New()
	s := newTestState(t, db)

	_, err := s.GetPointer(Canon)
	require.ErrorIs(err, database.ErrNotFound)

	pointers := Pointers{
		Latest: ids.ID{1},
		Canon:  ids.ID{2},
		Tail:   ids.ID{3},
		Anchor: ids.ID{4},
		Linker: ids.ID{5},
	}
	require.NoError(s.PutPointers(pointers))
	require.NoError(s.PutPointer(Latest, ids.ID{6}))
	pointers.Latest = ids.ID{6}

	got, err := s.GetPointers()
	require.NoError(err)
	require.Equal(pointers, got)
	for _, name := range allPointers {
		val, err := s.GetPointer(name)
		require.NoError(err)
		require.Equal(pointers.Get(name), val)
	}

	// committed pointers are visible to a fresh state
	require.NoError(s.Commit())
	got, err = newTestState(t, db).GetPointers()
	require.NoError(err)
	require.Equal(pointers, got)
}

func TestStateAbort(t *testing.T) {
	require := require.New(t)

	db := memdb.New()
	s := newTestState(t, db)
	blk := newTestGenesis(t, 0)

	require.NoError(s.PutBlock(blk))
	require.NoError(s.PutPointer(Latest, blk.Hash()))
	has, err := s.HasBlock(blk.Hash())
	require.NoError(err)
	require.True(has)

	s.Abort()

	has, err = s.HasBlock(blk.Hash())
	require.NoError(err)
	require.False(has)
	_, err = s.GetBlock(blk.Hash())
	require.ErrorIs(err, database.ErrNotFound)
	_, err = s.GetPointer(Latest)
	require.ErrorIs(err, database.ErrNotFound)
}

func TestStateBlocks(t *testing.T) {
	require := require.New(t)

	db := memdb.New()
	s := newTestState(t, db)
	blk := newTestGenesis(t, 3)

	require.NoError(s.PutBlock(blk))
	require.NoError(s.Commit())

	// read back through a fresh state so the cache can't answer
	fresh := newTestState(t, db)
	got, err := fresh.GetBlock(blk.Hash())
	require.NoError(err)
	require.Equal(blk.Bytes(), got.Bytes())

	require.NoError(fresh.DeleteBlock(blk.Hash()))
	has, err := fresh.HasBlock(blk.Hash())
	require.NoError(err)
	require.False(has)
	require.NoError(fresh.Commit())

	has, err = newTestState(t, db).HasBlock(blk.Hash())
	require.NoError(err)
	require.False(has)
}

func TestStateSingleton(t *testing.T) {
	require := require.New(t)

	s := newTestState(t, memdb.New())

	initialized, err := s.IsInitialized()
	require.NoError(err)
	require.False(initialized)

	_, err = s.GetConfig()
	require.ErrorIs(err, database.ErrNotFound)

	require.NoError(s.PutConfig(testConfig))
	require.NoError(s.SetInitialized())

	initialized, err = s.IsInitialized()
	require.NoError(err)
	require.True(initialized)

	config, err := s.GetConfig()
	require.NoError(err)
	require.Equal(testConfig, config)
}

func TestStateBlockIDs(t *testing.T) {
	require := require.New(t)

	s := newTestState(t, memdb.New())
	blks := newTestBlocks(t, newTestGenesis(t, 0), 4)
	for _, blk := range blks {
		require.NoError(s.PutBlock(blk))
	}
	sibling := newTestBlock(t, blks[1].Hash(), 2, 1)
	require.NoError(s.PutBlock(sibling))

	blkIDs, err := s.GetBlockIDs(1, 3)
	require.NoError(err)
	require.Len(blkIDs, 3)
	require.Equal(blks[1].Hash(), blkIDs[0])
	require.ElementsMatch([]ids.ID{blks[2].Hash(), sibling.Hash()}, blkIDs[1:])

	require.NoError(s.DeleteBlock(sibling.Hash()))
	blkIDs, err = s.GetBlockIDs(2, 3)
	require.NoError(err)
	require.Equal([]ids.ID{blks[2].Hash()}, blkIDs)

	// indexed blocks survive a commit
	require.NoError(s.Commit())
	blkIDs, err = s.GetBlockIDs(0, 100)
	require.NoError(err)
	require.Len(blkIDs, 5)

	err = s.DeleteBlock(sibling.Hash())
	require.ErrorIs(err, database.ErrNotFound)
}
