package importer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/syndicate/internal/store"
	"github.com/fortuna/syndicate/internal/tipparse"
)

type fakeBets struct {
	bets       map[string]*store.Bet
	refs       map[string]bool
	order      []string
	createErr  map[string]error // keyed by home team
	updateErr  map[string]error
	cancelOn   string
	cancel     context.CancelFunc
	createCall int
}

func newFakeBets() *fakeBets {
	return &fakeBets{
		bets:      make(map[string]*store.Bet),
		refs:      make(map[string]bool),
		createErr: make(map[string]error),
		updateErr: make(map[string]error),
	}
}

func (f *fakeBets) Create(_ context.Context, in store.BetInput) (*store.Bet, error) {
	f.createCall++
	if err := f.createErr[in.HomeTeam]; err != nil {
		return nil, err
	}
	if in.SourceRef != nil {
		if f.refs[*in.SourceRef] {
			return nil, fmt.Errorf("inserting bet: %w", store.ErrDuplicate)
		}
		f.refs[*in.SourceRef] = true
	}

	id := fmt.Sprintf("bet-%d", len(f.order)+1)
	bet := &store.Bet{
		ID:        id,
		HomeTeam:  in.HomeTeam,
		AwayTeam:  in.AwayTeam,
		League:    in.League,
		BetType:   in.BetType,
		Odds:      in.Odds,
		Stake:     in.Stake,
		KickOff:   in.KickOff,
		Date:      in.KickOff.UTC().Format("2006-01-02"),
		IsVIP:     in.IsVIP,
		Status:    store.StatusPending,
		SourceRef: in.SourceRef,
	}
	f.bets[id] = bet
	f.order = append(f.order, id)
	if in.HomeTeam == f.cancelOn && f.cancel != nil {
		f.cancel()
	}
	return bet, nil
}

func (f *fakeBets) UpdateStatus(_ context.Context, id string, u store.BetUpdate) (*store.Bet, error) {
	bet, ok := f.bets[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if err := f.updateErr[bet.HomeTeam]; err != nil {
		return nil, err
	}
	cp := *bet
	if u.Status != nil {
		cp.Status = *u.Status
	}
	cp.HomeScore, cp.AwayScore = u.HomeScore, u.AwayScore
	f.bets[id] = &cp
	return &cp, nil
}

var fixedNow = time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

func newImporter(bets BetStore) *Importer {
	return New(bets, nil, Options{Now: func() time.Time { return fixedNow }})
}

const twoBlocks = `Marseille v Rennes
⚽ Over 1.5 Goals ✅✅✅
📈 Points - 5
📦 Odds - 1.11

Lens v Nice
⚽ BTTS No ❌
📦 Odds - 2.10`

func TestImportText_CreatesThenSettles(t *testing.T) {
	bets := newFakeBets()

	report, err := newImporter(bets).ImportText(context.Background(), twoBlocks)

	require.NoError(t, err)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 2, report.Imported)
	assert.Empty(t, report.Failures)
	require.Len(t, report.Bets, 2)

	first := bets.bets[bets.order[0]]
	assert.Equal(t, "Marseille", first.HomeTeam)
	assert.Equal(t, LeagueManual, first.League)
	assert.Equal(t, store.StatusWon, first.Status)
	assert.Equal(t, fixedNow, first.KickOff)
	assert.Equal(t, "2026-03-14", first.Date)

	second := bets.bets[bets.order[1]]
	assert.Equal(t, store.StatusLost, second.Status)
	assert.Equal(t, tipparse.DefaultStake, second.Stake)
}

func TestImportText_NothingParsed(t *testing.T) {
	bets := newFakeBets()

	report, err := newImporter(bets).ImportText(context.Background(), "Marseille v Rennes\n📈 Points - 5")

	assert.ErrorIs(t, err, ErrNothingParsed)
	assert.Nil(t, report)
	assert.Zero(t, bets.createCall)
}

func TestImport_ContinuesPastFailures(t *testing.T) {
	bets := newFakeBets()
	boom := errors.New("connection reset")
	bets.createErr["Lens"] = boom

	records := []Record{
		{Result: tipparse.ParsedResult{HomeTeam: "Marseille", AwayTeam: "Rennes", BetType: "Over 1.5", Stake: 5, Odds: 1.11, IsWon: true}},
		{Result: tipparse.ParsedResult{HomeTeam: "Lens", AwayTeam: "Nice", BetType: "BTTS No", Stake: 5, Odds: 2.1}},
		{Result: tipparse.ParsedResult{HomeTeam: "Lyon", AwayTeam: "Metz", BetType: "Draw", Stake: 3, Odds: 3.2}},
	}

	report, err := newImporter(bets).Import(context.Background(), records)

	var partial *PartialFailureError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, 2, partial.Imported)
	assert.Equal(t, 1, partial.Failed)
	assert.Equal(t, 3, partial.Total)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "imported 2 of 3")

	require.Len(t, report.Failures, 1)
	assert.Equal(t, 1, report.Failures[0].Index)
	assert.Empty(t, report.Failures[0].BetID)
	assert.Equal(t, 3, bets.createCall)
}

func TestImport_UpdateFailureLeavesBetPending(t *testing.T) {
	bets := newFakeBets()
	bets.updateErr["Marseille"] = errors.New("timeout")

	records := []Record{
		{Result: tipparse.ParsedResult{HomeTeam: "Marseille", AwayTeam: "Rennes", BetType: "Over 1.5", Stake: 5, Odds: 1.11, IsWon: true}},
	}

	report, err := newImporter(bets).Import(context.Background(), records)

	var partial *PartialFailureError
	require.ErrorAs(t, err, &partial)
	assert.Zero(t, partial.Imported)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "bet-1", report.Failures[0].BetID)
	assert.Equal(t, store.StatusPending, bets.bets["bet-1"].Status)
}

func TestImport_DuplicateSourceRefSkipped(t *testing.T) {
	bets := newFakeBets()
	imp := newImporter(bets).WithLeague(LeagueImported)
	kickOff := time.Date(2026, 3, 1, 19, 45, 0, 0, time.UTC)
	records := []Record{{
		Result:    tipparse.ParsedResult{HomeTeam: "Celtic", AwayTeam: "Rangers", BetType: "BTTS Yes", Stake: 5, Odds: 1.8, IsWon: true},
		KickOff:   kickOff,
		SourceRef: "telegram:-100:42:0",
	}}

	report, err := imp.Import(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Imported)

	report, err = imp.Import(context.Background(), records)
	require.NoError(t, err)
	assert.Zero(t, report.Imported)
	assert.Equal(t, 1, report.Skipped)

	bet := bets.bets["bet-1"]
	assert.Equal(t, LeagueImported, bet.League)
	assert.Equal(t, kickOff, bet.KickOff)
	assert.Len(t, bets.order, 1)
}

func TestImport_ScoresCarriedToUpdate(t *testing.T) {
	bets := newFakeBets()

	_, err := newImporter(bets).ImportText(context.Background(), "Ajax v PSV\n⚽ Over 2.5 Goals ✅\nFT: 3-1")
	require.NoError(t, err)

	bet := bets.bets["bet-1"]
	require.NotNil(t, bet.HomeScore)
	assert.Equal(t, 3, *bet.HomeScore)
	assert.Equal(t, 1, *bet.AwayScore)
}

func TestImport_StopsOnCancel(t *testing.T) {
	bets := newFakeBets()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bets.cancelOn, bets.cancel = "Marseille", cancel

	report, err := newImporter(bets).ImportText(ctx, twoBlocks)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, report.Imported)
	assert.Equal(t, 1, bets.createCall)
}

func TestPreview(t *testing.T) {
	imp := newImporter(newFakeBets())

	results, err := imp.Preview(twoBlocks)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	_, err = imp.Preview("hello")
	assert.ErrorIs(t, err, ErrNothingParsed)
}
