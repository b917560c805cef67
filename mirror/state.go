// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mirror

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/prefixdb"
	"github.com/ava-labs/avalanchego/database/versiondb"
)

var (
	// These are prefixes for db keys.
	// It's important to set different prefixes for each separate database objects.
	singletonStatePrefix = []byte("singleton")
	blockStatePrefix     = []byte("block")
	pointerStatePrefix   = []byte("pointer")
	heightStatePrefix    = []byte("height")

	_ State = &state{}
)

// State is a wrapper around SingletonState, BlockState and PointerState.
// Every write is buffered until Commit, and Abort discards everything written
// since the last Commit.
type State interface {
	SingletonState
	BlockState
	PointerState

	Commit() error
	Abort()
	Close() error
}

type state struct {
	SingletonState
	BlockState
	PointerState

	baseDB *versiondb.Database
}

func NewState(db database.Database, registerer prometheus.Registerer) (State, error) {
	// create a new baseDB
	baseDB := versiondb.New(db)

	// create the prefixed sub-databases from baseDB
	singletonDB := prefixdb.New(singletonStatePrefix, baseDB)
	blockDB := prefixdb.New(blockStatePrefix, baseDB)
	pointerDB := prefixdb.New(pointerStatePrefix, baseDB)
	heightDB := prefixdb.New(heightStatePrefix, baseDB)

	blockState, err := NewBlockState(blockDB, heightDB, registerer)
	if err != nil {
		return nil, err
	}

	// return state with created sub state components
	return &state{
		SingletonState: NewSingletonState(singletonDB),
		BlockState:     blockState,
		PointerState:   NewPointerState(pointerDB),
		baseDB:         baseDB,
	}, nil
}

// Commit commits pending operations to the underlying database
func (s *state) Commit() error {
	return s.baseDB.Commit()
}

// Abort discards pending operations and any blocks cached by them
func (s *state) Abort() {
	s.baseDB.Abort()
	s.ClearCache()
}

// Close closes the versioned database. The underlying database is left open.
func (s *state) Close() error {
	return s.baseDB.Close()
}
