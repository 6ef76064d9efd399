package sim

import (
	"fmt"
	"math/rand"
	"time"
)

// Diner is a synthetic customer identity.
type Diner struct {
	Name     string
	Email    string
	Password string
}

// Purchase is one generated order.
type Purchase struct {
	FranchiseID int
	StoreID     int
	ItemCount   int
}

// Scenario shapes the generated traffic.
type Scenario struct {
	Name string
	// MaxItems bounds the size of a single order.
	MaxItems int
	// ChurnRate is the probability that a diner logs out and a fresh one
	// registers between purchases.
	ChurnRate float64
	// Pause between consecutive purchases.
	Pause time.Duration
}

// LunchRushScenario: many small orders in quick succession from loyal diners.
func LunchRushScenario() Scenario {
	return Scenario{
		Name:      "lunchRush",
		MaxItems:  3,
		ChurnRate: 0.05,
		Pause:     200 * time.Millisecond,
	}
}

// DinerChurnScenario: a slow trickle of orders from constantly rotating
// accounts, exercising registration and token issuance.
func DinerChurnScenario() Scenario {
	return Scenario{
		Name:      "dinerChurn",
		MaxItems:  6,
		ChurnRate: 0.8,
		Pause:     time.Second,
	}
}

// ScenarioByName resolves the CLI flag value.
func ScenarioByName(name string) (Scenario, error) {
	switch name {
	case "lunchRush":
		return LunchRushScenario(), nil
	case "dinerChurn":
		return DinerChurnScenario(), nil
	default:
		return Scenario{}, fmt.Errorf("unknown scenario %q", name)
	}
}

// Generator produces diners and purchases for a scenario.
type Generator struct {
	scenario Scenario
	rnd      *rand.Rand
	seq      int
}

// NewGenerator seeds the stream; seed 0 picks a time-based seed.
func NewGenerator(scenario Scenario, seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{scenario: scenario, rnd: rand.New(rand.NewSource(seed))}
}

// NextDiner invents a fresh, unique customer.
func (g *Generator) NextDiner() Diner {
	g.seq++
	name := fmt.Sprintf("%s diner %d", g.scenario.Name, g.seq)
	return Diner{
		Name:     name,
		Email:    fmt.Sprintf("%s-%d-%d@sim.sliceline.app", g.scenario.Name, g.seq, g.rnd.Intn(1_000_000)),
		Password: fmt.Sprintf("pw-%d", g.rnd.Int63()),
	}
}

// NextPurchase picks a store and an order size.
func (g *Generator) NextPurchase(franchiseID, storeID int) Purchase {
	items := 1
	if g.scenario.MaxItems > 1 {
		items += g.rnd.Intn(g.scenario.MaxItems)
	}
	return Purchase{FranchiseID: franchiseID, StoreID: storeID, ItemCount: items}
}

// ShouldChurn decides whether the current diner retires.
func (g *Generator) ShouldChurn() bool {
	return g.rnd.Float64() < g.scenario.ChurnRate
}

// Pause returns the configured delay between purchases.
func (g *Generator) Pause() time.Duration {
	return g.scenario.Pause
}
