// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package client

import (
	"context"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/formatting"
	"github.com/ava-labs/avalanchego/utils/rpc"

	cjson "github.com/ava-labs/avalanchego/utils/json"

	"github.com/ava-labs/chainmirror/mirror"
)

// Client defines mirror client operations.
type Client interface {
	// SubmitBlock appends a block to the mirror. alreadyMirrored is true if
	// the block was stored before.
	SubmitBlock(ctx context.Context, blk *mirror.Block, validate bool) (alreadyMirrored bool, pointers mirror.Pointers, err error)

	// ResetChain drops every stored block and re-initializes the chain from
	// [genesis]
	ResetChain(ctx context.Context, genesis *mirror.Block, config mirror.Config) (mirror.Pointers, error)

	// GetBlock fetches a block. A nil [blkHash] fetches the latest block.
	GetBlock(ctx context.Context, blkHash *ids.ID) (*mirror.Block, error)

	// GetCanonBlock fetches the newest final block
	GetCanonBlock(ctx context.Context) (*mirror.Block, error)

	// GetLatestBlockNumber fetches the height of the latest block
	GetLatestBlockNumber(ctx context.Context) (uint64, error)

	// GetLinkerHash fetches the linker hash and the anchor it is bound to
	GetLinkerHash(ctx context.Context) (linker ids.ID, anchor ids.ID, err error)

	// GetPointers fetches every pointer
	GetPointers(ctx context.Context) (mirror.Pointers, error)
}

// New creates a new client object for the chain [chain] mirrored by the
// node at [uri].
func New(uri, chain string) Client {
	req := rpc.NewEndpointRequester(uri, mirror.Endpoint(chain), mirror.Name)
	return &client{req: req}
}

type client struct {
	req rpc.EndpointRequester
}

func (cli *client) SubmitBlock(ctx context.Context, blk *mirror.Block, validate bool) (bool, mirror.Pointers, error) {
	data, err := formatting.EncodeWithChecksum(formatting.Hex, blk.Bytes())
	if err != nil {
		return false, mirror.Pointers{}, err
	}

	resp := new(mirror.SubmitBlockReply)
	err = cli.req.SendRequest(ctx,
		"submitBlock",
		&mirror.SubmitBlockArgs{
			Data:     data,
			Validate: validate,
		},
		resp,
	)
	if err != nil {
		return false, mirror.Pointers{}, err
	}
	return resp.AlreadyMirrored, resp.Pointers, nil
}

func (cli *client) ResetChain(ctx context.Context, genesis *mirror.Block, config mirror.Config) (mirror.Pointers, error) {
	data, err := formatting.EncodeWithChecksum(formatting.Hex, genesis.Bytes())
	if err != nil {
		return mirror.Pointers{}, err
	}

	resp := new(mirror.Pointers)
	err = cli.req.SendRequest(ctx,
		"resetChain",
		&mirror.ResetChainArgs{
			Genesis:           data,
			ConfirmationDepth: cjson.Uint64(config.ConfirmationDepth),
			RetentionWindow:   cjson.Uint64(config.RetentionWindow),
		},
		resp,
	)
	return *resp, err
}

func (cli *client) getBlock(ctx context.Context, method string, args interface{}) (*mirror.Block, error) {
	resp := new(mirror.GetBlockReply)
	if err := cli.req.SendRequest(ctx, method, args, resp); err != nil {
		return nil, err
	}
	bytes, err := formatting.Decode(formatting.Hex, resp.Data)
	if err != nil {
		return nil, err
	}
	return mirror.ParseBlock(bytes)
}

func (cli *client) GetBlock(ctx context.Context, blkHash *ids.ID) (*mirror.Block, error) {
	return cli.getBlock(ctx, "getBlock", &mirror.GetBlockArgs{ID: blkHash})
}

func (cli *client) GetCanonBlock(ctx context.Context) (*mirror.Block, error) {
	return cli.getBlock(ctx, "getCanonBlock", struct{}{})
}

func (cli *client) GetLatestBlockNumber(ctx context.Context) (uint64, error) {
	resp := new(mirror.GetLatestBlockNumberReply)
	err := cli.req.SendRequest(ctx, "getLatestBlockNumber", struct{}{}, resp)
	return uint64(resp.Height), err
}

func (cli *client) GetLinkerHash(ctx context.Context) (ids.ID, ids.ID, error) {
	resp := new(mirror.GetLinkerHashReply)
	if err := cli.req.SendRequest(ctx, "getLinkerHash", struct{}{}, resp); err != nil {
		return ids.Empty, ids.Empty, err
	}
	return resp.Linker, resp.Anchor, nil
}

func (cli *client) GetPointers(ctx context.Context) (mirror.Pointers, error) {
	resp := new(mirror.Pointers)
	err := cli.req.SendRequest(ctx, "getPointers", struct{}{}, resp)
	return *resp, err
}
