package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/fortuna/syndicate/internal/store"
)

const betColumns = `id, home_team, away_team, league, bet_type, odds, stake, kick_off,
	date::text, is_vip, status, home_score, away_score, source_ref, created_at`

// BetFilter narrows a bet listing. Zero values mean "any".
type BetFilter struct {
	Date     string   // YYYY-MM-DD
	Statuses []string // any of
	IsVIP    *bool
	Desc     bool // kick-off descending when set
	Limit    int
}

// BetRepository handles bet data access
type BetRepository struct {
	db *store.Database
}

// NewBetRepository creates a new bet repository
func NewBetRepository(db *store.Database) *BetRepository {
	return &BetRepository{db: db}
}

// Create inserts a pending bet. A source_ref that already exists yields
// store.ErrDuplicate.
func (r *BetRepository) Create(ctx context.Context, in store.BetInput) (*store.Bet, error) {
	query := `
		INSERT INTO bets (home_team, away_team, league, bet_type, odds, stake, kick_off, date, is_vip, status, source_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'pending', $10)
		RETURNING ` + betColumns

	kickOff := in.KickOff.UTC()
	bet, err := scanBet(r.db.DB().QueryRowContext(ctx, query,
		in.HomeTeam, in.AwayTeam, in.League, in.BetType, in.Odds, in.Stake,
		kickOff, kickOff.Format("2006-01-02"), in.IsVIP, in.SourceRef,
	))
	if store.IsUniqueViolation(err) {
		return nil, fmt.Errorf("inserting bet: %w", store.ErrDuplicate)
	}
	if err != nil {
		return nil, fmt.Errorf("inserting bet: %w", err)
	}

	return bet, nil
}

// GetByID finds a bet by ID
func (r *BetRepository) GetByID(ctx context.Context, id string) (*store.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM bets WHERE id = $1`

	bet, err := scanBet(r.db.DB().QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("bet %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying bet: %w", err)
	}

	return bet, nil
}

// Update applies the non-nil fields of u and returns the updated bet
func (r *BetRepository) Update(ctx context.Context, id string, u store.BetUpdate) (*store.Bet, error) {
	if u.Empty() {
		return r.GetByID(ctx, id)
	}

	var (
		sets []string
		args []interface{}
	)
	set := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if u.HomeTeam != nil {
		set("home_team", *u.HomeTeam)
	}
	if u.AwayTeam != nil {
		set("away_team", *u.AwayTeam)
	}
	if u.League != nil {
		set("league", *u.League)
	}
	if u.BetType != nil {
		set("bet_type", *u.BetType)
	}
	if u.Odds != nil {
		set("odds", *u.Odds)
	}
	if u.Stake != nil {
		set("stake", *u.Stake)
	}
	if u.KickOff != nil {
		kickOff := u.KickOff.UTC()
		set("kick_off", kickOff)
		set("date", kickOff.Format("2006-01-02"))
	}
	if u.IsVIP != nil {
		set("is_vip", *u.IsVIP)
	}
	if u.Status != nil {
		set("status", *u.Status)
	}
	if u.HomeScore != nil {
		set("home_score", *u.HomeScore)
	}
	if u.AwayScore != nil {
		set("away_score", *u.AwayScore)
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE bets SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), betColumns)

	bet, err := scanBet(r.db.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("bet %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("updating bet: %w", err)
	}

	return bet, nil
}

// Delete removes a bet
func (r *BetRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.DB().ExecContext(ctx, `DELETE FROM bets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting bet: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting bet: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("bet %s: %w", id, store.ErrNotFound)
	}
	return nil
}

// List returns bets matching f ordered by kick-off
func (r *BetRepository) List(ctx context.Context, f BetFilter) ([]*store.Bet, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.Date != "" {
		args = append(args, f.Date)
		where = append(where, fmt.Sprintf("date = $%d", len(args)))
	}
	if len(f.Statuses) > 0 {
		args = append(args, pq.Array(f.Statuses))
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if f.IsVIP != nil {
		args = append(args, *f.IsVIP)
		where = append(where, fmt.Sprintf("is_vip = $%d", len(args)))
	}

	query := `SELECT ` + betColumns + ` FROM bets`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	if f.Desc {
		query += ` ORDER BY kick_off DESC`
	} else {
		query += ` ORDER BY kick_off ASC`
	}
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := r.db.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying bets: %w", err)
	}
	defer rows.Close()

	bets := make([]*store.Bet, 0)
	for rows.Next() {
		bet, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning bet: %w", err)
		}
		bets = append(bets, bet)
	}

	return bets, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBet(row rowScanner) (*store.Bet, error) {
	bet := &store.Bet{}
	err := row.Scan(
		&bet.ID, &bet.HomeTeam, &bet.AwayTeam, &bet.League, &bet.BetType,
		&bet.Odds, &bet.Stake, &bet.KickOff, &bet.Date, &bet.IsVIP,
		&bet.Status, &bet.HomeScore, &bet.AwayScore, &bet.SourceRef, &bet.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return bet, nil
}
