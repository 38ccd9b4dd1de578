package app

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"quizrevenue/internal/domain"

	"github.com/shopspring/decimal"
)

// RevenueConfig bounds the simulated ad revenue and fixes the user's share.
type RevenueConfig struct {
	Min       decimal.Decimal
	Max       decimal.Decimal
	UserShare decimal.Decimal
}

// DefaultRevenueConfig samples [1.00, 6.00) and pays the user 80%.
func DefaultRevenueConfig() RevenueConfig {
	return RevenueConfig{
		Min:       decimal.NewFromInt(1),
		Max:       decimal.NewFromInt(6),
		UserShare: decimal.RequireFromString("0.8"),
	}
}

func (c RevenueConfig) validate() error {
	if !c.Max.GreaterThan(c.Min) || c.Min.IsNegative() {
		return fmt.Errorf("revenue range [%s, %s) is empty", c.Min, c.Max)
	}
	if c.UserShare.IsNegative() || c.UserShare.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("user share %s outside [0, 1]", c.UserShare)
	}
	return nil
}

// RevenueAllocator produces placeholder ad revenue and splits it.
type RevenueAllocator struct {
	cfg RevenueConfig

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewRevenueAllocator(cfg RevenueConfig) (*RevenueAllocator, error) {
	return newRevenueAllocatorWithSource(cfg, rand.NewSource(time.Now().UnixNano()))
}

func newRevenueAllocatorWithSource(cfg RevenueConfig, src rand.Source) (*RevenueAllocator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &RevenueAllocator{cfg: cfg, rnd: rand.New(src)}, nil
}

// Allocate samples ad revenue uniformly over [Min, Max) and splits it.
func (a *RevenueAllocator) Allocate() domain.Revenue {
	a.mu.Lock()
	f := a.rnd.Float64()
	a.mu.Unlock()

	span := a.cfg.Max.Sub(a.cfg.Min)
	ad := a.cfg.Min.Add(span.Mul(decimal.NewFromFloat(f)))
	return SplitRevenue(ad, a.cfg.UserShare)
}

// SplitRevenue pays share of ad to the user and the remainder to the platform. No rounding is applied.
func SplitRevenue(ad, share decimal.Decimal) domain.Revenue {
	user := ad.Mul(share)
	return domain.Revenue{
		AdRevenue:    ad,
		UserEarnings: user,
		PlatformFee:  ad.Sub(user),
		UserShare:    share,
	}
}
