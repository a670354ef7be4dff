package storage

import (
	"sync"

	"github.com/NoCodeNomad/bot/internal/ledger"
	"github.com/NoCodeNomad/bot/internal/models"
)

// MockStorage implements Interface in memory for testing
type MockStorage struct {
	mu            sync.Mutex
	saveError     error
	loadError     error
	balance       float64
	positions     map[string]models.Position
	saveCallCount int
	loadCallCount int
}

// NewMockStorage creates a new mock storage holding balance and no positions
func NewMockStorage(balance float64) *MockStorage {
	return &MockStorage{
		balance:   balance,
		positions: make(map[string]models.Position),
	}
}

// Load returns a fresh portfolio built from the stored state.
func (m *MockStorage) Load() (*ledger.Portfolio, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadCallCount++
	if m.loadError != nil {
		return nil, m.loadError
	}
	return ledger.New(m.balance, m.positions), nil
}

// Save copies the portfolio state.
func (m *MockStorage) Save(p *ledger.Portfolio) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCallCount++
	if m.saveError != nil {
		return m.saveError
	}
	m.balance = p.Balance()
	m.positions = p.Positions()
	return nil
}

// Mock control methods for testing

func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	m.saveError = err
	m.mu.Unlock()
}

func (m *MockStorage) SetLoadError(err error) {
	m.mu.Lock()
	m.loadError = err
	m.mu.Unlock()
}

func (m *MockStorage) SetPosition(ticker string, pos models.Position) {
	m.mu.Lock()
	m.positions[ticker] = pos
	m.mu.Unlock()
}

func (m *MockStorage) Balance() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balance
}

func (m *MockStorage) Position(ticker string) models.Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.positions[ticker]
}

func (m *MockStorage) GetSaveCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveCallCount
}

func (m *MockStorage) GetLoadCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadCallCount
}

// Ensure MockStorage implements Interface
var _ Interface = (*MockStorage)(nil)
