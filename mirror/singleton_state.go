// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mirror

import (
	"github.com/ava-labs/avalanchego/database"
)

const (
	IsInitializedKey byte = iota
	ConfirmationDepthKey
	RetentionWindowKey
)

var (
	isInitializedKey     = []byte{IsInitializedKey}
	confirmationDepthKey = []byte{ConfirmationDepthKey}
	retentionWindowKey   = []byte{RetentionWindowKey}

	_ SingletonState = (*singletonState)(nil)
)

// SingletonState is a thin wrapper around a database to provide
// serialization and de-serialization of the initialization status and of the
// config the chain was initialized with.
type SingletonState interface {
	IsInitialized() (bool, error)
	SetInitialized() error

	GetConfig() (Config, error)
	PutConfig(Config) error
}

type singletonState struct {
	singletonDB database.Database
}

func NewSingletonState(db database.Database) SingletonState {
	return &singletonState{
		singletonDB: db,
	}
}

func (s *singletonState) IsInitialized() (bool, error) {
	return s.singletonDB.Has(isInitializedKey)
}

func (s *singletonState) SetInitialized() error {
	return s.singletonDB.Put(isInitializedKey, nil)
}

func (s *singletonState) GetConfig() (Config, error) {
	depth, err := database.GetUInt64(s.singletonDB, confirmationDepthKey)
	if err != nil {
		return Config{}, err
	}
	window, err := database.GetUInt64(s.singletonDB, retentionWindowKey)
	if err != nil {
		return Config{}, err
	}
	return Config{
		ConfirmationDepth: depth,
		RetentionWindow:   window,
	}, nil
}

func (s *singletonState) PutConfig(config Config) error {
	if err := database.PutUInt64(s.singletonDB, confirmationDepthKey, config.ConfirmationDepth); err != nil {
		return err
	}
	return database.PutUInt64(s.singletonDB, retentionWindowKey, config.RetentionWindow)
}
