// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mirror

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ava-labs/avalanchego/cache"
	"github.com/ava-labs/avalanchego/cache/metercacher"
	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/hashing"
	"github.com/ava-labs/avalanchego/utils/wrappers"
)

const (
	blockCacheSize = 8192

	heightKeyLen = wrappers.LongLen + hashing.HashLen
)

var _ BlockState = &blockState{}

// BlockState is the store of submission material, keyed by block hash.
type BlockState interface {
	// GetBlock returns database.ErrNotFound if [blkHash] isn't stored.
	GetBlock(blkHash ids.ID) (*Block, error)
	HasBlock(blkHash ids.ID) (bool, error)
	PutBlock(blk *Block) error
	DeleteBlock(blkHash ids.ID) error

	// GetBlockIDs returns the hashes of every stored block with a height in
	// [start, end), lowest height first.
	GetBlockIDs(start, end uint64) ([]ids.ID, error)

	ClearCache()
}

type blockState struct {
	blkCache cache.Cacher
	blockDB  database.Database
	// heightDB indexes blocks by height||hash so blocks off the linear
	// history can still be found and removed.
	heightDB database.Database
}

func NewBlockState(db, heightDB database.Database, registerer prometheus.Registerer) (BlockState, error) {
	blkCache, err := metercacher.New(
		"block_cache",
		registerer,
		&cache.LRU{Size: blockCacheSize},
	)
	if err != nil {
		return nil, err
	}
	return &blockState{
		blkCache: blkCache,
		blockDB:  db,
		heightDB: heightDB,
	}, nil
}

func (s *blockState) GetBlock(blkHash ids.ID) (*Block, error) {
	if blkIntf, ok := s.blkCache.Get(blkHash); ok {
		return blkIntf.(*Block), nil
	}

	blkBytes, err := s.blockDB.Get(blkHash[:])
	if err != nil {
		return nil, err
	}

	blk, err := ParseBlock(blkBytes)
	if err != nil {
		return nil, err
	}

	s.blkCache.Put(blkHash, blk)
	return blk, nil
}

func (s *blockState) HasBlock(blkHash ids.ID) (bool, error) {
	if _, ok := s.blkCache.Get(blkHash); ok {
		return true, nil
	}
	return s.blockDB.Has(blkHash[:])
}

func (s *blockState) PutBlock(blk *Block) error {
	bytes, err := blk.marshal()
	if err != nil {
		return err
	}

	blkHash := blk.Hash()
	if err := s.blockDB.Put(blkHash[:], bytes); err != nil {
		return err
	}
	if err := s.heightDB.Put(heightKey(blk.Height(), blkHash), nil); err != nil {
		return err
	}
	s.blkCache.Put(blkHash, blk)
	return nil
}

func (s *blockState) DeleteBlock(blkHash ids.ID) error {
	blk, err := s.GetBlock(blkHash)
	if err != nil {
		return err
	}
	s.blkCache.Evict(blkHash)
	if err := s.heightDB.Delete(heightKey(blk.Height(), blkHash)); err != nil {
		return err
	}
	return s.blockDB.Delete(blkHash[:])
}

func (s *blockState) GetBlockIDs(start, end uint64) ([]ids.ID, error) {
	it := s.heightDB.NewIteratorWithStart(database.PackUInt64(start))
	defer it.Release()

	var blkIDs []ids.ID
	for it.Next() {
		key := it.Key()
		if len(key) != heightKeyLen {
			return nil, errInvalidHeightKey
		}
		height, err := database.ParseUInt64(key[:wrappers.LongLen])
		if err != nil {
			return nil, err
		}
		if height >= end {
			break
		}
		blkID, err := ids.ToID(key[wrappers.LongLen:])
		if err != nil {
			return nil, err
		}
		blkIDs = append(blkIDs, blkID)
	}
	return blkIDs, it.Error()
}

func (s *blockState) ClearCache() {
	s.blkCache.Flush()
}

func heightKey(height uint64, blkHash ids.ID) []byte {
	key := make([]byte, heightKeyLen)
	copy(key, database.PackUInt64(height))
	copy(key[wrappers.LongLen:], blkHash[:])
	return key
}
