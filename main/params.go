// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ava-labs/avalanchego/utils/formatting"

	"github.com/ava-labs/chainmirror/mirror"
)

const (
	versionKey           = "version"
	dbDirKey             = "db-dir"
	httpHostKey          = "http-host"
	httpPortKey          = "http-port"
	chainsKey            = "chains"
	genesisKey           = "genesis"
	confirmationDepthKey = "confirmation-depth"
	retentionWindowKey   = "retention-window"
	logLevelKey          = "log-level"

	envPrefix = "chainmirror"
)

var (
	errNoChains        = errors.New("at least one chain must be mirrored")
	errGenesisMismatch = errors.New("number of genesis blocks doesn't match number of chains")
)

type config struct {
	DBDir    string
	HTTPHost string
	HTTPPort uint16
	LogLevel string

	Chains  []string
	Genesis []*mirror.Block
	Chain   mirror.Config
}

func buildFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet(mirror.Name, pflag.ContinueOnError)

	fs.Bool(versionKey, false, "If true, prints the version and quits")
	fs.String(dbDirKey, "", "Database directory. An in-memory database is used if empty")
	fs.String(httpHostKey, "127.0.0.1", "Address of the HTTP server")
	fs.Uint16(httpPortKey, 9650, "Port of the HTTP server")
	fs.StringSlice(chainsKey, []string{"eth"}, "Names of the mirrored chains")
	fs.StringSlice(genesisKey, nil, "Hex encoded genesis block of each chain, in the order of --chains. Ignored for initialized chains")
	fs.Uint64(confirmationDepthKey, 10, "Number of blocks a block must be buried under to become canon")
	fs.Uint64(retentionWindowKey, 10, "Number of blocks kept behind canon before pruning")
	fs.String(logLevelKey, "info", "Log level")

	return fs
}

// getViper returns the viper environment for the binary
func getViper(args []string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	fs := buildFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}
	return v, nil
}

func parseConfig(v *viper.Viper) (config, error) {
	c := config{
		DBDir:    v.GetString(dbDirKey),
		HTTPHost: v.GetString(httpHostKey),
		HTTPPort: uint16(v.GetUint(httpPortKey)),
		LogLevel: v.GetString(logLevelKey),
		Chains:   v.GetStringSlice(chainsKey),
		Chain: mirror.Config{
			ConfirmationDepth: v.GetUint64(confirmationDepthKey),
			RetentionWindow:   v.GetUint64(retentionWindowKey),
		},
	}
	if len(c.Chains) == 0 {
		return config{}, errNoChains
	}
	if err := c.Chain.Verify(); err != nil {
		return config{}, err
	}

	genesis := v.GetStringSlice(genesisKey)
	if len(genesis) == 0 {
		// chains must already be initialized in the database
		c.Genesis = make([]*mirror.Block, len(c.Chains))
		return c, nil
	}
	if len(genesis) != len(c.Chains) {
		return config{}, fmt.Errorf("%w: %d chains, %d genesis blocks", errGenesisMismatch, len(c.Chains), len(genesis))
	}
	for i, encoded := range genesis {
		bytes, err := formatting.Decode(formatting.Hex, encoded)
		if err != nil {
			return config{}, fmt.Errorf("couldn't decode %s genesis: %w", c.Chains[i], err)
		}
		blk, err := mirror.ParseBlock(bytes)
		if err != nil {
			return config{}, fmt.Errorf("couldn't parse %s genesis: %w", c.Chains[i], err)
		}
		c.Genesis = append(c.Genesis, blk)
	}
	return c, nil
}
