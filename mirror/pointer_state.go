// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mirror

import (
	"fmt"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/ids"
)

// Pointer names one of the references a chain keeps into its stored blocks.
type Pointer string

const (
	// Latest is the tip of the mirrored chain.
	Latest Pointer = "latest"
	// Canon is the newest block buried under the confirmation depth.
	Canon Pointer = "canon"
	// Tail is the oldest block guaranteed to still be stored.
	Tail Pointer = "tail"
	// Anchor is the block the chain was initialized from. It is never pruned.
	Anchor Pointer = "anchor"
	// Linker is not a block reference, it accumulates the hashes of every
	// pruned block.
	Linker Pointer = "linker"
)

var (
	allPointers = []Pointer{Latest, Canon, Tail, Anchor, Linker}

	_ PointerState = &pointerState{}
)

// Pointers is the full set of a chain's pointers.
type Pointers struct {
	Latest ids.ID `json:"latest"`
	Canon  ids.ID `json:"canon"`
	Tail   ids.ID `json:"tail"`
	Anchor ids.ID `json:"anchor"`
	Linker ids.ID `json:"linker"`
}

// Get returns the value of [p].
func (p *Pointers) Get(name Pointer) ids.ID {
	switch name {
	case Latest:
		return p.Latest
	case Canon:
		return p.Canon
	case Tail:
		return p.Tail
	case Anchor:
		return p.Anchor
	default:
		return p.Linker
	}
}

func (p *Pointers) set(name Pointer, val ids.ID) {
	switch name {
	case Latest:
		p.Latest = val
	case Canon:
		p.Canon = val
	case Tail:
		p.Tail = val
	case Anchor:
		p.Anchor = val
	default:
		p.Linker = val
	}
}

// PointerState persists each pointer under its own key.
type PointerState interface {
	GetPointer(name Pointer) (ids.ID, error)
	PutPointer(name Pointer, val ids.ID) error

	GetPointers() (Pointers, error)
	PutPointers(Pointers) error
}

type pointerState struct {
	pointerDB database.Database
}

func NewPointerState(db database.Database) PointerState {
	return &pointerState{
		pointerDB: db,
	}
}

func (s *pointerState) GetPointer(name Pointer) (ids.ID, error) {
	return database.GetID(s.pointerDB, []byte(name))
}

func (s *pointerState) PutPointer(name Pointer, val ids.ID) error {
	return database.PutID(s.pointerDB, []byte(name), val)
}

func (s *pointerState) GetPointers() (Pointers, error) {
	var p Pointers
	for _, name := range allPointers {
		val, err := s.GetPointer(name)
		if err != nil {
			return Pointers{}, fmt.Errorf("failed to get %s pointer: %w", name, err)
		}
		p.set(name, val)
	}
	return p, nil
}

func (s *pointerState) PutPointers(p Pointers) error {
	for _, name := range allPointers {
		if err := s.PutPointer(name, p.Get(name)); err != nil {
			return fmt.Errorf("failed to put %s pointer: %w", name, err)
		}
	}
	return nil
}
