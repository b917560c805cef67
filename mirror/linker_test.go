// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mirror

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/avalanchego/ids"
)

func TestCombineLinker(t *testing.T) {
	require := require.New(t)

	var hash0, hash1, hash2 ids.ID
	for i := range hash1 {
		hash1[i] = 1
		hash2[i] = 2
	}

	expected, err := hex.DecodeString("078307a0909a75087ee67b066ae45056a2dfa03f3c60716ba1c270c0aa29c9a4")
	require.NoError(err)
	combined := CombineLinker(hash0, hash1, hash2)
	require.Equal(expected, combined[:])

	// order sensitive
	require.NotEqual(combined, CombineLinker(hash1, hash0, hash2))
	require.NotEqual(combined, CombineLinker(hash0, hash2, hash1))
}

func TestFoldLinker(t *testing.T) {
	require := require.New(t)

	seed := ids.ID{'s'}
	anchor := ids.ID{'a'}
	pruned := []ids.ID{{1}, {2}, {3}}

	require.Equal(seed, FoldLinker(seed, anchor, nil))

	expected := CombineLinker(pruned[2], anchor,
		CombineLinker(pruned[1], anchor,
			CombineLinker(pruned[0], anchor, seed),
		),
	)
	linker := FoldLinker(seed, anchor, pruned)
	require.Equal(expected, linker)

	require.True(VerifyLinker(seed, anchor, pruned, linker))
	require.False(VerifyLinker(seed, anchor, pruned[:2], linker))
	require.False(VerifyLinker(seed, anchor, []ids.ID{pruned[1], pruned[0], pruned[2]}, linker))
	require.False(VerifyLinker(seed, ids.ID{'b'}, pruned, linker))
}
