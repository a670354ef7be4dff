// Package storage persists the portfolio ledger between trading passes.
package storage

import (
	"github.com/NoCodeNomad/bot/internal/ledger"
)

// Interface defines the contract for balance and position persistence.
//
// Load is called once at the start of a pass and Save once at the end. Implementations must
// be safe for concurrent use so read-only consumers (the dashboard) can Load while a pass is
// running.
type Interface interface {
	// Load returns the persisted portfolio, or a fresh one at the starting balance when no
	// state has been saved yet.
	Load() (*ledger.Portfolio, error)
	// Save replaces the persisted state with p.
	Save(p *ledger.Portfolio) error
}

// NewStorage creates a new storage implementation (currently file-based)
func NewStorage(balancePath, portfolioPath string, startingBalance float64) (Interface, error) {
	return NewFileStore(balancePath, portfolioPath, startingBalance)
}

// Ensure FileStore implements Interface
var _ Interface = (*FileStore)(nil)
