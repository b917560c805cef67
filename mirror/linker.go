// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mirror

import (
	"golang.org/x/crypto/sha3"

	"github.com/ava-labs/avalanchego/ids"
)

// CombineLinker folds [blkHash] into [linker]:
//
//	keccak256(blkHash || anchor || linker)
//
// The argument order matters.
func CombineLinker(blkHash, anchor, linker ids.ID) ids.ID {
	hasher := sha3.NewLegacyKeccak256()
	_, _ = hasher.Write(blkHash[:])
	_, _ = hasher.Write(anchor[:])
	_, _ = hasher.Write(linker[:])

	var combined ids.ID
	copy(combined[:], hasher.Sum(nil))
	return combined
}

// FoldLinker recomputes a linker hash from [seed] and the hashes of pruned
// blocks, oldest first. A chain's linker is FoldLinker(genesis, anchor, p)
// where p is every block it has pruned so far.
func FoldLinker(seed, anchor ids.ID, pruned []ids.ID) ids.ID {
	linker := seed
	for _, blkHash := range pruned {
		linker = CombineLinker(blkHash, anchor, linker)
	}
	return linker
}

// VerifyLinker returns true iff [linker] commits to exactly [pruned], in
// order, starting from [seed].
func VerifyLinker(seed, anchor ids.ID, pruned []ids.ID, linker ids.ID) bool {
	return FoldLinker(seed, anchor, pruned) == linker
}
