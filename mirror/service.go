// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mirror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/rpc/v2"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/formatting"

	cjson "github.com/ava-labs/avalanchego/utils/json"
)

// Name is the name the mirror API is registered under.
const Name = "mirror"

var errNoSuchBlock = errors.New("couldn't get block from database. Does it exist?")

// Endpoint returns the path the API of the chain [name] is served on.
func Endpoint(name string) string { return "/ext/" + name }

// NewHandler returns the JSON-RPC handler serving [chain].
func NewHandler(chain *Chain) (http.Handler, error) {
	server := rpc.NewServer()
	codec := cjson.NewCodec()
	server.RegisterCodec(codec, "application/json")
	server.RegisterCodec(codec, "application/json;charset=UTF-8")
	return server, server.RegisterService(&Service{chain: chain}, Name)
}

// Service is the API service for a mirrored chain
type Service struct{ chain *Chain }

// SubmitBlockArgs are the arguments to SubmitBlock
type SubmitBlockArgs struct {
	// Data is the hex encoding of the serialized block
	Data     string `json:"data"`
	Validate bool   `json:"validate"`
}

// SubmitBlockReply is the reply from SubmitBlock
type SubmitBlockReply struct {
	// AlreadyMirrored is true if the block was stored before this call
	AlreadyMirrored bool         `json:"alreadyMirrored"`
	Height          cjson.Uint64 `json:"height"`
	Pointers
}

// SubmitBlock appends the block encoded in [args].Data to the mirror.
// Resubmitting a mirrored block isn't an error.
func (s *Service) SubmitBlock(_ *http.Request, args *SubmitBlockArgs, reply *SubmitBlockReply) error {
	bytes, err := formatting.Decode(formatting.Hex, args.Data)
	if err != nil {
		return fmt.Errorf("couldn't decode block: %w", err)
	}
	blk, err := ParseBlock(bytes)
	if err != nil {
		return fmt.Errorf("couldn't parse block: %w", err)
	}

	err = s.chain.Append(blk, args.Validate)
	switch {
	case IsAlreadyInDB(err):
		reply.AlreadyMirrored = true
	case err != nil:
		return err
	}

	pointers, err := s.chain.Pointers()
	if err != nil {
		return err
	}
	reply.Height = cjson.Uint64(blk.Height())
	reply.Pointers = pointers
	return nil
}

// ResetChainArgs are the arguments to ResetChain
type ResetChainArgs struct {
	// Genesis is the hex encoding of the serialized block the chain is
	// re-initialized from
	Genesis           string       `json:"genesis"`
	ConfirmationDepth cjson.Uint64 `json:"confirmationDepth"`
	RetentionWindow   cjson.Uint64 `json:"retentionWindow"`
}

// ResetChain drops every block of the chain and re-initializes it from
// [args].Genesis
func (s *Service) ResetChain(_ *http.Request, args *ResetChainArgs, reply *Pointers) error {
	bytes, err := formatting.Decode(formatting.Hex, args.Genesis)
	if err != nil {
		return fmt.Errorf("couldn't decode genesis: %w", err)
	}
	genesis, err := ParseBlock(bytes)
	if err != nil {
		return fmt.Errorf("couldn't parse genesis: %w", err)
	}

	config := Config{
		ConfirmationDepth: uint64(args.ConfirmationDepth),
		RetentionWindow:   uint64(args.RetentionWindow),
	}
	if err := s.chain.Reset(genesis, config); err != nil {
		return err
	}
	pointers, err := s.chain.Pointers()
	if err != nil {
		return err
	}
	*reply = pointers
	return nil
}

// GetBlockArgs are the arguments to GetBlock
type GetBlockArgs struct {
	// ID of the block we're getting.
	// If left blank, gets the latest block
	ID *ids.ID `json:"id"`
}

// GetBlockReply is the reply from GetBlock
type GetBlockReply struct {
	ID        ids.ID       `json:"id"`        // Source chain hash of the block
	ParentID  ids.ID       `json:"parentID"`  // Source chain hash of the block's parent
	Height    cjson.Uint64 `json:"height"`    // Height of block
	Timestamp int64        `json:"timestamp"` // Unix timestamp of block, may precede the epoch
	Events    []string     `json:"events"`    // Events (hex-encoded) in block
	Data      string       `json:"data"`      // Serialized block (hex-encoded)
}

func (r *GetBlockReply) fill(blk *Block) error {
	r.ID = blk.Hash()
	r.ParentID = blk.Parent()
	r.Height = cjson.Uint64(blk.Height())
	r.Timestamp = blk.Timestamp().Unix()
	r.Events = make([]string, len(blk.Events()))
	for i, event := range blk.Events() {
		encoded, err := formatting.EncodeWithChecksum(formatting.Hex, event)
		if err != nil {
			return err
		}
		r.Events[i] = encoded
	}
	data, err := formatting.EncodeWithChecksum(formatting.Hex, blk.Bytes())
	if err != nil {
		return err
	}
	r.Data = data
	return nil
}

// GetBlock gets the block whose ID is [args.ID]
// If [args.ID] is empty, get the latest block
func (s *Service) GetBlock(_ *http.Request, args *GetBlockArgs, reply *GetBlockReply) error {
	var (
		blk *Block
		err error
	)
	if args.ID == nil {
		blk, err = s.chain.GetLatestBlock()
	} else {
		blk, err = s.chain.GetBlock(*args.ID)
	}
	if err != nil {
		return errNoSuchBlock
	}
	return reply.fill(blk)
}

// GetCanonBlock gets the newest final block
func (s *Service) GetCanonBlock(_ *http.Request, _ *struct{}, reply *GetBlockReply) error {
	blk, err := s.chain.GetCanonBlock()
	if err != nil {
		return err
	}
	return reply.fill(blk)
}

// GetLatestBlockNumberReply is the reply from GetLatestBlockNumber
type GetLatestBlockNumberReply struct {
	Height cjson.Uint64 `json:"height"`
}

// GetLatestBlockNumber gets the height of the latest block
func (s *Service) GetLatestBlockNumber(_ *http.Request, _ *struct{}, reply *GetLatestBlockNumberReply) error {
	height, err := s.chain.GetLatestBlockNumber()
	reply.Height = cjson.Uint64(height)
	return err
}

// GetLinkerHashReply is the reply from GetLinkerHash
type GetLinkerHashReply struct {
	Linker ids.ID `json:"linker"`
	Anchor ids.ID `json:"anchor"`
}

// GetLinkerHash gets the accumulator over the pruned blocks, along with the
// anchor it is bound to
func (s *Service) GetLinkerHash(_ *http.Request, _ *struct{}, reply *GetLinkerHashReply) error {
	pointers, err := s.chain.Pointers()
	if err != nil {
		return err
	}
	reply.Linker = pointers.Linker
	reply.Anchor = pointers.Anchor
	return nil
}

// GetPointers gets every pointer of the chain
func (s *Service) GetPointers(_ *http.Request, _ *struct{}, reply *Pointers) error {
	pointers, err := s.chain.Pointers()
	if err != nil {
		return err
	}
	*reply = pointers
	return nil
}
