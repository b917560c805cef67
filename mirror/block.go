// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mirror

import (
	"time"

	"github.com/ava-labs/avalanchego/ids"
)

// Block is a block of the mirrored source chain.
// Each block contains:
// 1) The source chain's hash of the block and of its parent
// 2) The block's height and timestamp
// 3) The events extracted from the block (possibly pruned to what a bridge needs)
//
// A Block is immutable once it has been stored.
type Block struct {
	BlkHash  ids.ID   `serialize:"true" json:"hash"`
	PrntHash ids.ID   `serialize:"true" json:"parentHash"`
	Hght     uint64   `serialize:"true" json:"height"`
	Tmstmp   int64    `serialize:"true" json:"timestamp"`
	Evnts    [][]byte `serialize:"true" json:"events"`

	bytes []byte
}

// NewBlock returns a serialized block.
func NewBlock(hash, parent ids.ID, height uint64, timestamp time.Time, events [][]byte) (*Block, error) {
	blk := &Block{
		BlkHash:  hash,
		PrntHash: parent,
		Hght:     height,
		Tmstmp:   timestamp.Unix(),
		Evnts:    events,
	}
	bytes, err := Codec.Marshal(CodecVersion, blk)
	if err != nil {
		return nil, err
	}
	blk.bytes = bytes
	return blk, nil
}

// ParseBlock parses [bytes] into a block. This is used both when reading a
// block back out of the database and when decoding submission material.
func ParseBlock(bytes []byte) (*Block, error) {
	blk := &Block{}
	parsedVersion, err := Codec.Unmarshal(bytes, blk)
	if err != nil {
		return nil, err
	}
	if parsedVersion != CodecVersion {
		return nil, errBlockWrongVersion
	}
	blk.bytes = bytes
	return blk, nil
}

// Hash returns the source chain's hash of this block.
func (b *Block) Hash() ids.ID { return b.BlkHash }

// Parent returns the hash of this block's parent.
func (b *Block) Parent() ids.ID { return b.PrntHash }

// Height returns this block's height. The genesis block has height 0.
func (b *Block) Height() uint64 { return b.Hght }

// Timestamp returns this block's time.
func (b *Block) Timestamp() time.Time { return time.Unix(b.Tmstmp, 0) }

// Events returns the events carried by this block.
func (b *Block) Events() [][]byte { return b.Evnts }

// Bytes returns the canonical serialization of this block.
func (b *Block) Bytes() []byte { return b.bytes }

// IsChildOf returns true iff [b] directly extends [parent].
func (b *Block) IsChildOf(parent *Block) bool {
	return b.PrntHash == parent.BlkHash && b.Hght == parent.Hght+1
}

func (b *Block) marshal() ([]byte, error) {
	if b.bytes != nil {
		return b.bytes, nil
	}
	bytes, err := Codec.Marshal(CodecVersion, b)
	if err != nil {
		return nil, err
	}
	b.bytes = bytes
	return bytes, nil
}
