// Package importer persists parsed tip results as settled bets.
//
// Each result is submitted in two steps: a pending bet is created, then its
// status is updated to won or lost. The two steps are not atomic. A record that
// fails either step is reported and the batch carries on.
package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fortuna/syndicate/internal/logger"
	"github.com/fortuna/syndicate/internal/store"
	"github.com/fortuna/syndicate/internal/tipparse"
)

// League tags for imported bets
const (
	LeagueManual   = "Manual"
	LeagueImported = "Imported"
)

// ErrNothingParsed is returned when the text yields no results
var ErrNothingParsed = errors.New("could not parse the message, check the format")

// BetStore is the persistence the importer writes through
type BetStore interface {
	Create(ctx context.Context, in store.BetInput) (*store.Bet, error)
	UpdateStatus(ctx context.Context, id string, u store.BetUpdate) (*store.Bet, error)
}

// Record is one result to import. A zero KickOff means "time of import"; a
// non-empty SourceRef deduplicates repeated imports of the same post.
type Record struct {
	Result    tipparse.ParsedResult
	KickOff   time.Time
	SourceRef string
}

// Failure describes one record that could not be imported. BetID is set when
// the bet was created but its status update failed, leaving it pending.
type Failure struct {
	Index  int                   `json:"index"`
	Result tipparse.ParsedResult `json:"result"`
	BetID  string                `json:"bet_id,omitempty"`
	Reason string                `json:"reason"`
}

// Report summarises an import run
type Report struct {
	Total    int          `json:"total"`
	Imported int          `json:"imported"`
	Skipped  int          `json:"skipped"`
	Failures []Failure    `json:"failures,omitempty"`
	Bets     []*store.Bet `json:"bets"`
}

// PartialFailureError reports that some records were not imported. It wraps
// the first underlying cause.
type PartialFailureError struct {
	Imported int
	Failed   int
	Total    int
	Err      error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("imported %d of %d results, %d failed: %v", e.Imported, e.Total, e.Failed, e.Err)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }

// Options configures an Importer
type Options struct {
	League string           // defaults to LeagueManual
	IsVIP  bool             // tier of created bets
	Now    func() time.Time // defaults to time.Now
}

// Importer turns parsed results into bets
type Importer struct {
	bets   BetStore
	parser *tipparse.Parser
	opts   Options
}

// New creates an importer. A nil parser uses the default policy.
func New(bets BetStore, parser *tipparse.Parser, opts Options) *Importer {
	if parser == nil {
		parser = tipparse.NewParser(tipparse.RejectExtraSegments)
	}
	if opts.League == "" {
		opts.League = LeagueManual
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Importer{bets: bets, parser: parser, opts: opts}
}

// WithLeague returns a copy of the importer that tags bets with league
func (i *Importer) WithLeague(league string) *Importer {
	cp := *i
	cp.opts.League = league
	return &cp
}

// Preview parses text without persisting anything
func (i *Importer) Preview(text string) ([]tipparse.ParsedResult, error) {
	results := i.parser.Parse(text)
	if len(results) == 0 {
		return nil, ErrNothingParsed
	}
	return results, nil
}

// ImportText parses text and imports every result with kick-off set to now
func (i *Importer) ImportText(ctx context.Context, text string) (*Report, error) {
	results, err := i.Preview(text)
	if err != nil {
		return nil, err
	}

	records := make([]Record, len(results))
	for n, r := range results {
		records[n] = Record{Result: r}
	}
	return i.Import(ctx, records)
}

// Import submits records in order. Context cancellation stops the run between
// records and returns the partial report with the context error.
func (i *Importer) Import(ctx context.Context, records []Record) (*Report, error) {
	report := &Report{Total: len(records), Bets: make([]*store.Bet, 0, len(records))}
	var firstErr error

	for n, rec := range records {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("import interrupted after %d of %d: %w", n, len(records), err)
		}

		bet, err := i.importOne(ctx, rec)
		switch {
		case err == nil:
			report.Imported++
			report.Bets = append(report.Bets, bet)
		case errors.Is(err, store.ErrDuplicate):
			report.Skipped++
			logger.Debug(ctx).Str("source_ref", rec.SourceRef).Msg("Skipping already imported result")
		default:
			f := Failure{Index: n, Result: rec.Result, Reason: err.Error()}
			var se *stepError
			if errors.As(err, &se) {
				f.BetID = se.betID
			}
			report.Failures = append(report.Failures, f)
			if firstErr == nil {
				firstErr = err
			}
			logger.Warn(ctx).Err(err).Int("index", n).
				Str("home_team", rec.Result.HomeTeam).
				Str("away_team", rec.Result.AwayTeam).
				Msg("Failed to import result")
		}
	}

	logger.Info(ctx).
		Int("total", report.Total).
		Int("imported", report.Imported).
		Int("skipped", report.Skipped).
		Int("failed", len(report.Failures)).
		Str("league", i.opts.League).
		Msg("Import finished")

	if len(report.Failures) > 0 {
		return report, &PartialFailureError{
			Imported: report.Imported,
			Failed:   len(report.Failures),
			Total:    report.Total,
			Err:      firstErr,
		}
	}
	return report, nil
}

type stepError struct {
	betID string
	err   error
}

func (e *stepError) Error() string { return fmt.Sprintf("settling bet %s: %v", e.betID, e.err) }
func (e *stepError) Unwrap() error { return e.err }

func (i *Importer) importOne(ctx context.Context, rec Record) (*store.Bet, error) {
	kickOff := rec.KickOff
	if kickOff.IsZero() {
		kickOff = i.opts.Now()
	}

	in := store.BetInput{
		HomeTeam: rec.Result.HomeTeam,
		AwayTeam: rec.Result.AwayTeam,
		League:   i.opts.League,
		BetType:  rec.Result.BetType,
		Odds:     rec.Result.Odds,
		Stake:    rec.Result.Stake,
		KickOff:  kickOff,
		IsVIP:    i.opts.IsVIP,
	}
	if rec.SourceRef != "" {
		ref := rec.SourceRef
		in.SourceRef = &ref
	}

	bet, err := i.bets.Create(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("creating bet: %w", err)
	}

	status := store.StatusLost
	if rec.Result.IsWon {
		status = store.StatusWon
	}
	settled, err := i.bets.UpdateStatus(ctx, bet.ID, store.BetUpdate{
		Status:    &status,
		HomeScore: rec.Result.HomeScore,
		AwayScore: rec.Result.AwayScore,
	})
	if err != nil {
		return nil, &stepError{betID: bet.ID, err: err}
	}

	return settled, nil
}
