// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/formatting"

	"github.com/ava-labs/chainmirror/mirror"
)

func encodedGenesis(t *testing.T, hash ids.ID) string {
	blk, err := mirror.NewBlock(hash, ids.Empty, 0, time.Unix(0, 0), nil)
	require.NoError(t, err)
	encoded, err := formatting.EncodeWithChecksum(formatting.Hex, blk.Bytes())
	require.NoError(t, err)
	return encoded
}

func TestParseConfig(t *testing.T) {
	require := require.New(t)

	v, err := getViper([]string{
		"--chains=eth,evm",
		"--genesis=" + encodedGenesis(t, ids.ID{1}) + "," + encodedGenesis(t, ids.ID{2}),
		"--confirmation-depth=7",
		"--retention-window=100",
		"--http-port=9999",
	})
	require.NoError(err)

	config, err := parseConfig(v)
	require.NoError(err)
	require.Equal([]string{"eth", "evm"}, config.Chains)
	require.Len(config.Genesis, 2)
	require.Equal(ids.ID{1}, config.Genesis[0].Hash())
	require.Equal(ids.ID{2}, config.Genesis[1].Hash())
	require.Equal(mirror.Config{ConfirmationDepth: 7, RetentionWindow: 100}, config.Chain)
	require.Equal(uint16(9999), config.HTTPPort)
	require.Equal("info", config.LogLevel)
}

func TestParseConfigWithoutGenesis(t *testing.T) {
	require := require.New(t)

	v, err := getViper(nil)
	require.NoError(err)

	config, err := parseConfig(v)
	require.NoError(err)
	require.Equal([]string{"eth"}, config.Chains)
	require.Equal([]*mirror.Block{nil}, config.Genesis)
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		expectedErr error
	}{
		{
			name:        "genesis count mismatch",
			args:        []string{"--chains=eth,evm", "--genesis=" + encodedGenesis(t, ids.ID{1})},
			expectedErr: errGenesisMismatch,
		},
		{
			name:        "zero confirmation depth",
			args:        []string{"--confirmation-depth=0"},
			expectedErr: mirror.ErrInvalidConfig,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			v, err := getViper(test.args)
			require.NoError(t, err)
			_, err = parseConfig(v)
			require.ErrorIs(t, err, test.expectedErr)
		})
	}
}
