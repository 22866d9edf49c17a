package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/fortuna/syndicate/internal/cache"
	"github.com/fortuna/syndicate/internal/logger"
	"github.com/fortuna/syndicate/internal/store"
	"github.com/fortuna/syndicate/internal/store/repository"
)

const (
	statsCacheKey = "stats:v1"
	statsCacheTTL = 60 * time.Second
)

var hundred = decimal.NewFromInt(100)

// Stats is the public track record over settled bets
type Stats struct {
	TotalBets   int             `json:"total_bets"`
	WonBets     int             `json:"won_bets"`
	LostBets    int             `json:"lost_bets"`
	WinRate     float64         `json:"win_rate"`     // percent, 1 decimal
	ProfitUnits decimal.Decimal `json:"profit_units"` // stake units
	ROI         decimal.Decimal `json:"roi"`          // percent of units staked
}

// ComputeStats aggregates settled bets. A won bet returns stake*(odds-1), a
// lost bet costs its stake; pending bets are ignored.
func ComputeStats(bets []*store.Bet) Stats {
	var (
		stats  Stats
		profit = decimal.Zero
		staked = decimal.Zero
	)

	for _, b := range bets {
		stake := decimal.NewFromInt(int64(b.Stake))
		switch b.Status {
		case store.StatusWon:
			stats.WonBets++
			profit = profit.Add(stake.Mul(decimal.NewFromFloat(b.Odds).Sub(decimal.NewFromInt(1))))
		case store.StatusLost:
			stats.LostBets++
			profit = profit.Sub(stake)
		default:
			continue
		}
		staked = staked.Add(stake)
	}

	stats.TotalBets = stats.WonBets + stats.LostBets
	stats.ProfitUnits = profit.Round(2)
	stats.ROI = decimal.Zero
	if stats.TotalBets > 0 {
		stats.WinRate = decimal.NewFromInt(int64(stats.WonBets)).
			Div(decimal.NewFromInt(int64(stats.TotalBets))).
			Mul(hundred).
			Round(1).
			InexactFloat64()
		stats.ROI = profit.Div(staked).Mul(hundred).Round(1)
	}
	return stats
}

// StatsService serves cached stats; concurrent misses share one query
type StatsService struct {
	repo  BetRepo
	cache Cache
	group singleflight.Group
}

// NewStatsService creates a new stats service. cache may be nil.
func NewStatsService(repo BetRepo, c Cache) *StatsService {
	if c == nil {
		c = noopCache{}
	}
	return &StatsService{repo: repo, cache: c}
}

// Stats returns the current track record
func (s *StatsService) Stats(ctx context.Context) (Stats, error) {
	var cached Stats
	err := s.cache.GetJSON(ctx, statsCacheKey, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		logger.Warn(ctx).Err(err).Msg("Stats cache read failed")
	}

	v, err, _ := s.group.Do(statsCacheKey, func() (interface{}, error) {
		bets, err := s.repo.List(ctx, repository.BetFilter{
			Statuses: []string{store.StatusWon, store.StatusLost},
		})
		if err != nil {
			return Stats{}, fmt.Errorf("listing settled bets: %w", err)
		}

		stats := ComputeStats(bets)
		if err := s.cache.SetJSON(ctx, statsCacheKey, stats, statsCacheTTL); err != nil {
			logger.Warn(ctx).Err(err).Msg("Stats cache write failed")
		}
		return stats, nil
	})
	if err != nil {
		return Stats{}, err
	}
	return v.(Stats), nil
}
