// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mirror

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/prefixdb"
	"github.com/ava-labs/avalanchego/ids"
)

var errEmptyChainName = errors.New("chain name must not be empty")

// Chain mirrors one source chain. Every chain keeps its blocks and pointers
// under its own prefix, so the two sides of a bridge can share a database.
//
// Blocks must be appended in linear order. The mirror doesn't resolve forks:
// a block is only admitted on top of a stored parent, and only a child of
// latest moves latest. A block off that line is stored only while it is
// newer than canon, and is dropped once tail passes it. Fork choice belongs to
// whoever submits the blocks.
type Chain struct {
	name      string
	log       log.Logger
	validator Validator
	metrics   *metrics

	// lock serializes appends and excludes readers while an append is in
	// flight, so intermediate pointer values are never observed.
	lock        sync.RWMutex
	state       State
	initialized bool
	config      Config
	pointers    Pointers
}

// New returns the chain called [name] stored in [db]. If [validator] is nil
// the StructuralValidator is used. The chain must be initialized before it
// can be used.
func New(
	db database.Database,
	name string,
	validator Validator,
	registerer prometheus.Registerer,
) (*Chain, error) {
	if name == "" {
		return nil, errEmptyChainName
	}
	if validator == nil {
		validator = StructuralValidator{}
	}
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}
	registerer = prometheus.WrapRegistererWith(prometheus.Labels{"chain": name}, registerer)

	state, err := NewState(prefixdb.New([]byte(name), db), registerer)
	if err != nil {
		return nil, fmt.Errorf("couldn't create %s state: %w", name, err)
	}
	metrics, err := newMetrics(registerer)
	if err != nil {
		return nil, fmt.Errorf("couldn't register %s metrics: %w", name, err)
	}
	return &Chain{
		name:      name,
		log:       log.New("chain", name),
		validator: validator,
		metrics:   metrics,
		state:     state,
	}, nil
}

// Initialize sets every pointer to [genesis] and stores [config]. The linker
// is seeded with the genesis hash.
//
// If the chain was initialized before, the stored pointers and config are
// loaded instead and [genesis] is ignored.
func (c *Chain) Initialize(genesis *Block, config Config) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	isInitialized, err := c.state.IsInitialized()
	if err != nil {
		return fmt.Errorf("couldn't check if %s is initialized: %w", c.name, err)
	}
	if isInitialized {
		return c.load(config)
	}

	if err := config.Verify(); err != nil {
		return err
	}
	if genesis == nil || genesis.Hash() == ids.Empty {
		return fmt.Errorf("%w: %s", ErrInvalidHeader, errEmptyHash)
	}

	pointers := Pointers{
		Latest: genesis.Hash(),
		Canon:  genesis.Hash(),
		Tail:   genesis.Hash(),
		Anchor: genesis.Hash(),
		Linker: genesis.Hash(),
	}
	if err := c.initialize(genesis, config, pointers); err != nil {
		c.state.Abort()
		return err
	}
	if err := c.state.Commit(); err != nil {
		c.state.Abort()
		return fmt.Errorf("error while committing db: %w", err)
	}

	c.initialized = true
	c.config = config
	c.pointers = pointers
	c.updateMetrics()
	c.log.Info("initialized chain",
		"genesis", genesis.Hash(),
		"height", genesis.Height(),
		"confirmationDepth", config.ConfirmationDepth,
		"retentionWindow", config.RetentionWindow,
	)
	return nil
}

func (c *Chain) initialize(genesis *Block, config Config, pointers Pointers) error {
	if err := c.state.PutBlock(genesis); err != nil {
		return fmt.Errorf("error while saving genesis block: %w", err)
	}
	if err := c.state.PutPointers(pointers); err != nil {
		return fmt.Errorf("error while saving pointers: %w", err)
	}
	if err := c.state.PutConfig(config); err != nil {
		return fmt.Errorf("error while saving config: %w", err)
	}
	if err := c.state.SetInitialized(); err != nil {
		return fmt.Errorf("error while setting db to initialized: %w", err)
	}
	return nil
}

// Reset drops every stored block and pointer of an initialized chain and
// initializes it again from [genesis] and [config]. Nothing changes unless
// the whole reset commits.
func (c *Chain) Reset(genesis *Block, config Config) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if !c.initialized {
		return errNotInitialized
	}
	if err := config.Verify(); err != nil {
		return err
	}
	if genesis == nil || genesis.Hash() == ids.Empty {
		return fmt.Errorf("%w: %s", ErrInvalidHeader, errEmptyHash)
	}

	pointers := Pointers{
		Latest: genesis.Hash(),
		Canon:  genesis.Hash(),
		Tail:   genesis.Hash(),
		Anchor: genesis.Hash(),
		Linker: genesis.Hash(),
	}
	deleted, err := c.reset(genesis, config, pointers)
	if err != nil {
		c.state.Abort()
		return err
	}
	if err := c.state.Commit(); err != nil {
		c.state.Abort()
		return fmt.Errorf("error while committing db: %w", err)
	}

	c.config = config
	c.pointers = pointers
	c.updateMetrics()
	c.log.Warn("reset chain",
		"deleted", deleted,
		"genesis", genesis.Hash(),
		"height", genesis.Height(),
		"confirmationDepth", config.ConfirmationDepth,
		"retentionWindow", config.RetentionWindow,
	)
	return nil
}

func (c *Chain) reset(genesis *Block, config Config, pointers Pointers) (int, error) {
	blkIDs, err := c.state.GetBlockIDs(0, math.MaxUint64)
	if err != nil {
		return 0, fmt.Errorf("couldn't list stored blocks: %w", err)
	}
	for _, blkID := range blkIDs {
		if err := c.state.DeleteBlock(blkID); err != nil {
			return 0, fmt.Errorf("couldn't delete block %s: %w", blkID, err)
		}
	}
	if err := c.initialize(genesis, config, pointers); err != nil {
		return 0, err
	}
	return len(blkIDs), nil
}

func (c *Chain) load(config Config) error {
	storedConfig, err := c.state.GetConfig()
	if err != nil {
		return fmt.Errorf("couldn't load %s config: %w", c.name, err)
	}
	if storedConfig != config {
		c.log.Warn("ignoring config, using the one the chain was initialized with",
			"confirmationDepth", storedConfig.ConfirmationDepth,
			"retentionWindow", storedConfig.RetentionWindow,
		)
	}
	pointers, err := c.state.GetPointers()
	if err != nil {
		return fmt.Errorf("couldn't load %s pointers: %w", c.name, err)
	}

	c.initialized = true
	c.config = storedConfig
	c.pointers = pointers
	c.updateMetrics()
	c.log.Info("loaded chain",
		"latest", pointers.Latest,
		"canon", pointers.Canon,
		"tail", pointers.Tail,
	)
	return nil
}

// Append admits [blk] to the mirror. If [validate] is true the block's header
// is checked by the chain's Validator first.
//
// The block is rejected, and nothing is written, if:
//   - validation fails (ErrInvalidHeader)
//   - it is already stored (*BlockAlreadyInDBError)
//   - its parent isn't stored, is older than tail, or it would fork the chain
//     at or behind canon (*NoParentError)
//
// Otherwise the block is stored and latest, canon and tail are advanced, and
// blocks that fell behind tail are pruned into the linker. Either every step
// is committed or none is.
func (c *Chain) Append(blk *Block, validate bool) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if !c.initialized {
		return errNotInitialized
	}

	pointers, err := c.append(blk, validate)
	if err != nil {
		c.state.Abort()
		c.metrics.rejected.WithLabelValues(rejectReason(err)).Inc()
		return err
	}
	if err := c.state.Commit(); err != nil {
		c.state.Abort()
		c.metrics.rejected.WithLabelValues(rejectReason(err)).Inc()
		return fmt.Errorf("couldn't commit block %s: %w", blk.Hash(), err)
	}

	c.pointers = pointers
	c.metrics.appended.Inc()
	c.updateMetrics()
	c.log.Info("appended block",
		"height", blk.Height(),
		"hash", blk.Hash(),
		"latest", pointers.Latest,
		"canon", pointers.Canon,
		"tail", pointers.Tail,
	)
	return nil
}

func (c *Chain) append(blk *Block, validate bool) (Pointers, error) {
	if blk == nil {
		return c.pointers, fmt.Errorf("%w: %s", ErrInvalidHeader, errNilBlock)
	}
	if validate {
		if err := c.validator.Validate(blk); err != nil {
			return c.pointers, fmt.Errorf("%w: %s", ErrInvalidHeader, err)
		}
	}

	blkHash := blk.Hash()
	exists, err := c.state.HasBlock(blkHash)
	if err != nil {
		return c.pointers, fmt.Errorf("couldn't check for block %s: %w", blkHash, err)
	}
	if exists {
		return c.pointers, &BlockAlreadyInDBError{
			Height: blk.Height(),
			Side:   c.name,
		}
	}

	parent, err := c.state.GetBlock(blk.Parent())
	if errors.Is(err, database.ErrNotFound) {
		parentHeight := blk.Height()
		if parentHeight > 0 {
			parentHeight--
		}
		return c.pointers, &NoParentError{Height: parentHeight}
	}
	if err != nil {
		return c.pointers, fmt.Errorf("couldn't get parent %s: %w", blk.Parent(), err)
	}
	if !blk.IsChildOf(parent) {
		return c.pointers, fmt.Errorf("%w: %s: parent height %d, block height %d",
			ErrInvalidHeader,
			errNonSequentialBlock,
			parent.Height(),
			blk.Height(),
		)
	}
	if err := c.checkRetained(blk, parent); err != nil {
		return c.pointers, err
	}

	if err := c.state.PutBlock(blk); err != nil {
		return c.pointers, fmt.Errorf("couldn't put block %s: %w", blkHash, err)
	}

	next := c.pointers
	if blk.Parent() == next.Latest {
		if err := c.state.PutPointer(Latest, blkHash); err != nil {
			return c.pointers, fmt.Errorf("couldn't put latest pointer: %w", err)
		}
		next.Latest = blkHash
	} else {
		c.log.Info("block is not subsequent to latest, not updating latest",
			"height", blk.Height(),
			"hash", blkHash,
		)
	}

	if next.Canon, err = c.advanceCanon(next); err != nil {
		return c.pointers, err
	}

	prevTail := next.Tail
	if next.Tail, err = c.advanceTail(next); err != nil {
		return c.pointers, err
	}
	if next.Tail == prevTail {
		return next, nil
	}

	if next.Linker, err = c.prune(next); err != nil {
		return c.pointers, err
	}
	return next, nil
}

// checkRetained rejects a child of [parent] that falls outside the part of the
// chain that is still mutable. Only the anchor survives behind tail, so
// without this a pruned child of the anchor could be stored again.
func (c *Chain) checkRetained(blk, parent *Block) error {
	tail, err := c.state.GetBlock(c.pointers.Tail)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %s", errMissingPointer, Tail, c.pointers.Tail, err)
	}
	if parent.Height() < tail.Height() {
		c.log.Info("parent is older than tail",
			"height", blk.Height(),
			"hash", blk.Hash(),
			"tail", tail.Height(),
		)
		return &NoParentError{Height: parent.Height()}
	}
	if blk.Parent() == c.pointers.Latest {
		return nil
	}

	canon, err := c.state.GetBlock(c.pointers.Canon)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %s", errMissingPointer, Canon, c.pointers.Canon, err)
	}
	if blk.Height() <= canon.Height() {
		c.log.Info("block would fork the chain behind canon",
			"height", blk.Height(),
			"hash", blk.Hash(),
			"canon", canon.Height(),
		)
		return &NoParentError{Height: parent.Height()}
	}
	return nil
}

func (c *Chain) updateMetrics() {
	for _, p := range []struct {
		name  Pointer
		gauge prometheus.Gauge
	}{
		{Latest, c.metrics.latestHeight},
		{Canon, c.metrics.canonHeight},
		{Tail, c.metrics.tailHeight},
	} {
		blk, err := c.state.GetBlock(c.pointers.Get(p.name))
		if err != nil {
			c.log.Warn("couldn't get pointer block for metrics",
				"pointer", p.name,
				"err", err,
			)
			continue
		}
		p.gauge.Set(float64(blk.Height()))
	}
}

// Name returns the name this chain is stored under.
func (c *Chain) Name() string { return c.name }

// Config returns the lengths the chain was initialized with.
func (c *Chain) Config() (Config, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	if !c.initialized {
		return Config{}, errNotInitialized
	}
	return c.config, nil
}

// Pointers returns a snapshot of the chain's pointers.
func (c *Chain) Pointers() (Pointers, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	if !c.initialized {
		return Pointers{}, errNotInitialized
	}
	return c.pointers, nil
}

// GetBlock returns the stored block [blkHash].
func (c *Chain) GetBlock(blkHash ids.ID) (*Block, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	if !c.initialized {
		return nil, errNotInitialized
	}
	return c.state.GetBlock(blkHash)
}

// HasBlock returns true iff [blkHash] is stored.
func (c *Chain) HasBlock(blkHash ids.ID) (bool, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	if !c.initialized {
		return false, errNotInitialized
	}
	return c.state.HasBlock(blkHash)
}

func (c *Chain) getPointerBlock(name Pointer) (*Block, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	if !c.initialized {
		return nil, errNotInitialized
	}
	blkHash := c.pointers.Get(name)
	blk, err := c.state.GetBlock(blkHash)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %s", errMissingPointer, name, blkHash, err)
	}
	return blk, nil
}

// GetLatestBlock returns the tip of the mirror.
func (c *Chain) GetLatestBlock() (*Block, error) { return c.getPointerBlock(Latest) }

// GetCanonBlock returns the newest final block. Events must only be extracted
// from blocks at or behind it.
func (c *Chain) GetCanonBlock() (*Block, error) { return c.getPointerBlock(Canon) }

// GetTailBlock returns the oldest block that is still retained.
func (c *Chain) GetTailBlock() (*Block, error) { return c.getPointerBlock(Tail) }

// GetAnchorBlock returns the block the chain was initialized from.
func (c *Chain) GetAnchorBlock() (*Block, error) { return c.getPointerBlock(Anchor) }

// GetLatestBlockNumber returns the height of the latest block.
func (c *Chain) GetLatestBlockNumber() (uint64, error) {
	blk, err := c.GetLatestBlock()
	if err != nil {
		return 0, err
	}
	return blk.Height(), nil
}

// GetLinkerHash returns the accumulator over every pruned block.
func (c *Chain) GetLinkerHash() (ids.ID, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	if !c.initialized {
		return ids.Empty, errNotInitialized
	}
	return c.pointers.Linker, nil
}

// Ancestor returns the [n]th ancestor of [blkHash]. ok is false if part of
// that history isn't stored.
func (c *Chain) Ancestor(blkHash ids.ID, n uint64) (blk *Block, ok bool, err error) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	if !c.initialized {
		return nil, false, errNotInitialized
	}
	return getAncestor(c.state, blkHash, n)
}

// IsFinal returns true iff [blkHash] is canon or one of canon's stored
// ancestors.
func (c *Chain) IsFinal(blkHash ids.ID) (bool, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	if !c.initialized {
		return false, errNotInitialized
	}
	blk, err := c.state.GetBlock(blkHash)
	if errors.Is(err, database.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	canon, err := c.state.GetBlock(c.pointers.Canon)
	if err != nil {
		return false, err
	}
	if blk.Height() > canon.Height() {
		return false, nil
	}
	if blkHash == c.pointers.Anchor {
		return true, nil
	}
	ancestor, ok, err := getAncestor(c.state, canon.Hash(), canon.Height()-blk.Height())
	if err != nil || !ok {
		return false, err
	}
	return ancestor.Hash() == blkHash, nil
}

// Close releases the chain's state. The database passed to New stays open.
func (c *Chain) Close() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.initialized = false
	return c.state.Close()
}
