// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mirror

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/avalanchego/ids"
)

func TestStructuralValidator(t *testing.T) {
	tests := []struct {
		name        string
		blk         *Block
		expectedErr error
	}{
		{
			name:        "nil block",
			blk:         nil,
			expectedErr: errNilBlock,
		},
		{
			name:        "empty hash",
			blk:         &Block{PrntHash: ids.ID{1}, Hght: 1},
			expectedErr: errEmptyHash,
		},
		{
			name:        "own parent",
			blk:         &Block{BlkHash: ids.ID{1}, PrntHash: ids.ID{1}, Hght: 1},
			expectedErr: errSelfParent,
		},
		{
			name:        "zero height",
			blk:         &Block{BlkHash: ids.ID{1}, PrntHash: ids.ID{2}},
			expectedErr: errZeroHeight,
		},
		{
			name: "valid",
			blk:  &Block{BlkHash: ids.ID{1}, PrntHash: ids.ID{2}, Hght: 1},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := StructuralValidator{}.Validate(test.blk)
			require.ErrorIs(t, err, test.expectedErr)
		})
	}
}
