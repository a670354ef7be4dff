// Package strategy turns per-ticker market, sentiment and position inputs into a trade signal.
package strategy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/NoCodeNomad/bot/internal/classifier"
	"github.com/NoCodeNomad/bot/internal/models"
)

// Rule thresholds on the fractional price change since the previous interval.
const (
	SellThreshold = -0.002
	BuyThreshold  = 0.001
)

// Input carries everything a strategy may look at for one ticker in one pass.
type Input struct {
	Ticker       string
	PriceNow     float64
	PricePrev    float64
	Sentiment    int
	HeldQuantity float64
	// Features is the classifier vector; only set when Requirements().Features is true.
	Features []float64
}

// Requirements tells the trading loop which inputs to gather before calling Decide.
type Requirements struct {
	// Momentum requests PriceNow/PricePrev from the intraday series. Without it PriceNow
	// comes from the price fallback chain.
	Momentum  bool
	Sentiment bool
	Features  bool
}

// Strategy decides a signal for one ticker. Implementations hold no per-call state.
type Strategy interface {
	Name() string
	Requirements() Requirements
	Decide(in Input) (models.Signal, error)
}

// DecideAction is the rule table. Clauses are evaluated in order, so an open position with a
// sharp drop or negative sentiment sells before any buy condition is considered.
func DecideAction(priceNow, pricePrev float64, sentiment int, held float64) models.Signal {
	change := 0.0
	if pricePrev != 0 {
		change = (priceNow - pricePrev) / pricePrev
	}

	switch {
	case held > 0 && (change < SellThreshold || sentiment < 0):
		return models.SignalSell
	case held == 0 && change > BuyThreshold && sentiment > 0:
		return models.SignalBuy
	case held > 0:
		return models.SignalHold
	default:
		return models.SignalSkip
	}
}

// RuleBased applies DecideAction to momentum and sentiment.
type RuleBased struct{}

// NewRuleBased creates the rule strategy.
func NewRuleBased() *RuleBased { return &RuleBased{} }

// Name returns "rules".
func (*RuleBased) Name() string { return "rules" }

// Requirements asks for the momentum series and sentiment.
func (*RuleBased) Requirements() Requirements {
	return Requirements{Momentum: true, Sentiment: true}
}

// Decide never fails.
func (*RuleBased) Decide(in Input) (models.Signal, error) {
	return DecideAction(in.PriceNow, in.PricePrev, in.Sentiment, in.HeldQuantity), nil
}

// ErrUnknownLabel is returned when the classifier answers outside {-1, 0, 1}.
var ErrUnknownLabel = errors.New("classifier returned unknown label")

// LabelToSignal maps classifier labels -1, 0, 1 to SELL, HOLD, BUY.
func LabelToSignal(label int) (models.Signal, error) {
	switch label {
	case -1:
		return models.SignalSell, nil
	case 0:
		return models.SignalHold, nil
	case 1:
		return models.SignalBuy, nil
	}
	return "", fmt.Errorf("%w: %d", ErrUnknownLabel, label)
}

// ModelBased asks a classifier. It never returns SKIP; a SELL or HOLD without a position is
// left to the ledger as a no-op.
type ModelBased struct {
	classifier classifier.Classifier
}

// NewModelBased creates the classifier strategy.
func NewModelBased(c classifier.Classifier) *ModelBased {
	return &ModelBased{classifier: c}
}

// Name returns "model".
func (*ModelBased) Name() string { return "model" }

// Requirements asks for the feature vector.
func (*ModelBased) Requirements() Requirements {
	return Requirements{Features: true}
}

// Decide runs the classifier over in.Features.
func (m *ModelBased) Decide(in Input) (models.Signal, error) {
	if len(in.Features) == 0 {
		return "", fmt.Errorf("%s: empty feature vector", in.Ticker)
	}
	label, err := m.classifier.Predict(in.Features)
	if err != nil {
		return "", fmt.Errorf("%s: %w", in.Ticker, err)
	}
	return LabelToSignal(label)
}

// Build returns the strategy selected by name. The classifier is required for "model".
func Build(name string, c classifier.Classifier) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "rules":
		return NewRuleBased(), nil
	case "model":
		if c == nil {
			return nil, errors.New("model strategy requires a classifier")
		}
		return NewModelBased(c), nil
	}
	return nil, fmt.Errorf("unknown strategy %q", name)
}

var (
	_ Strategy = (*RuleBased)(nil)
	_ Strategy = (*ModelBased)(nil)
)
