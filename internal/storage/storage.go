package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/NoCodeNomad/bot/internal/ledger"
	"github.com/NoCodeNomad/bot/internal/models"
)

// ErrNegativeBalance is returned when a balance record holds a negative value.
var ErrNegativeBalance = errors.New("balance record is negative")

// FileStore keeps the balance as a bare decimal literal and the positions as a JSON object
// keyed by ticker.
type FileStore struct {
	mu              sync.RWMutex
	balancePath     string
	portfolioPath   string
	startingBalance float64
	rename          func(oldpath, newpath string) error
}

// NewFileStore creates a file store. Missing files are not an error: an absent balance file
// loads as startingBalance and an absent portfolio file as no positions.
func NewFileStore(balancePath, portfolioPath string, startingBalance float64) (*FileStore, error) {
	if balancePath == "" || portfolioPath == "" {
		return nil, fmt.Errorf("balance and portfolio paths are required")
	}
	if filepath.Clean(balancePath) == filepath.Clean(portfolioPath) {
		return nil, fmt.Errorf("balance and portfolio paths must differ")
	}
	if startingBalance < 0 {
		return nil, fmt.Errorf("starting balance must be >= 0, got %v", startingBalance)
	}
	return &FileStore{
		balancePath:     balancePath,
		portfolioPath:   portfolioPath,
		startingBalance: startingBalance,
		rename:          os.Rename,
	}, nil
}

// Load reads both records.
func (s *FileStore) Load() (*ledger.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	balance, err := s.loadBalance()
	if err != nil {
		return nil, err
	}
	positions, err := s.loadPositions()
	if err != nil {
		return nil, err
	}
	return ledger.New(balance, positions), nil
}

func (s *FileStore) loadBalance() (float64, error) {
	data, err := os.ReadFile(s.balancePath) // #nosec G304 -- path comes from config
	if errors.Is(err, os.ErrNotExist) {
		return s.startingBalance, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading balance: %w", err)
	}
	balance, err := DecodeBalance(string(data))
	if err != nil {
		return 0, fmt.Errorf("parsing balance %s: %w", s.balancePath, err)
	}
	return balance, nil
}

func (s *FileStore) loadPositions() (map[string]models.Position, error) {
	data, err := os.ReadFile(s.portfolioPath) // #nosec G304 -- path comes from config
	if errors.Is(err, os.ErrNotExist) {
		return map[string]models.Position{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading portfolio: %w", err)
	}
	positions := map[string]models.Position{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return positions, nil
	}
	if err := json.Unmarshal(data, &positions); err != nil {
		return nil, fmt.Errorf("parsing portfolio %s: %w", s.portfolioPath, err)
	}
	return positions, nil
}

// Save writes both records to temp files and renames them into place, balance first. If
// the portfolio rename fails the previous balance file is put back, so a failed save leaves
// the previous records in place.
func (s *FileStore) Save(p *ledger.Portfolio) error {
	if p == nil {
		return fmt.Errorf("nil portfolio")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	portfolioData, err := json.MarshalIndent(p.Positions(), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding portfolio: %w", err)
	}
	balanceData := []byte(EncodeBalance(p.Balance()) + "\n")

	balanceTmp := s.balancePath + ".tmp"
	portfolioTmp := s.portfolioPath + ".tmp"

	for _, path := range []string{s.balancePath, s.portfolioPath} {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("creating state dir: %w", err)
			}
		}
	}

	previous, err := os.ReadFile(s.balancePath) // #nosec G304 -- path comes from config
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("reading balance: %w", err)
	}
	hadBalance := err == nil

	if err := os.WriteFile(portfolioTmp, portfolioData, 0o600); err != nil {
		return fmt.Errorf("writing portfolio: %w", err)
	}
	if err := os.WriteFile(balanceTmp, balanceData, 0o600); err != nil {
		_ = os.Remove(portfolioTmp)
		return fmt.Errorf("writing balance: %w", err)
	}

	if err := s.rename(balanceTmp, s.balancePath); err != nil {
		_ = os.Remove(balanceTmp)
		_ = os.Remove(portfolioTmp)
		return fmt.Errorf("replacing balance: %w", err)
	}
	if err := s.rename(portfolioTmp, s.portfolioPath); err != nil {
		_ = os.Remove(portfolioTmp)
		err = fmt.Errorf("replacing portfolio: %w", err)
		if restoreErr := s.restoreBalance(previous, hadBalance); restoreErr != nil {
			err = errors.Join(err, fmt.Errorf("restoring balance: %w", restoreErr))
		}
		return err
	}
	return nil
}

func (s *FileStore) restoreBalance(previous []byte, existed bool) error {
	if !existed {
		return os.Remove(s.balancePath)
	}
	tmp := s.balancePath + ".tmp"
	if err := os.WriteFile(tmp, previous, 0o600); err != nil {
		return err
	}
	if err := s.rename(tmp, s.balancePath); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// EncodeBalance renders a balance as a bare decimal literal. Whole-cent values keep two
// decimals ("9500.00"); anything finer is written with the shortest exact representation.
func EncodeBalance(balance float64) string {
	d := decimal.NewFromFloat(balance)
	if d.Equal(d.Round(2)) {
		return d.StringFixed(2)
	}
	return d.String()
}

// DecodeBalance parses a bare decimal literal.
func DecodeBalance(s string) (float64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if d.IsNegative() {
		return 0, ErrNegativeBalance
	}
	f, _ := d.Float64()
	return f, nil
}
