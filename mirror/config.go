// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mirror

import (
	"fmt"
)

// Config is fixed when a chain is initialized and persisted alongside its
// pointers.
type Config struct {
	// ConfirmationDepth is the number of blocks between latest and canon.
	ConfirmationDepth uint64 `json:"confirmationDepth"`
	// RetentionWindow is the number of blocks between canon and tail.
	RetentionWindow uint64 `json:"retentionWindow"`
}

// Verify returns nil iff both lengths are positive.
func (c Config) Verify() error {
	switch {
	case c.ConfirmationDepth == 0:
		return fmt.Errorf("%w: confirmation depth must be positive", ErrInvalidConfig)
	case c.RetentionWindow == 0:
		return fmt.Errorf("%w: retention window must be positive", ErrInvalidConfig)
	default:
		return nil
	}
}
