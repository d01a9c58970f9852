package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"prospect/internal/domain"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// signalColumns maps the closed signal set to its counter columns. One column
// per signal keeps increments a single atomic UPDATE.
var signalColumns = map[domain.SignalType]string{
	domain.SignalEmailSignup:    "email_signups",
	domain.SignalDM:             "dms",
	domain.SignalBuyComment:     "buy_comments",
	domain.SignalDetailQuestion: "detail_questions",
	domain.SignalShare:          "shares",
	domain.SignalUpvote:         "upvote_units",
}

const sessionColumns = `
	id, opportunity_id, method, opened_at, deadline,
	email_signups, dms, buy_comments, detail_questions, shares, upvote_units,
	visits, signups, status, failed_at, retry_eligible_after`

func (db *DB) CreateSession(ctx context.Context, s *domain.ValidationSession) error {
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO validation_sessions (opportunity_id, method, opened_at, deadline, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, s.OpportunityID, string(s.Method), s.OpenedAt, s.Deadline, string(s.Status)).Scan(&s.ID)
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return domain.Errorf(domain.ErrAlreadyOpen, "opportunity %s", s.OpportunityID)
		case pgForeignKeyViolation:
			return domain.Errorf(domain.ErrNotFound, "opportunity %s", s.OpportunityID)
		}
	}
	return err
}

func (db *DB) GetSession(ctx context.Context, id string) (*domain.ValidationSession, error) {
	row := db.Pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM validation_sessions WHERE id = $1`, id)
	sess, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.Errorf(domain.ErrNotFound, "session %s", id)
	}
	return sess, err
}

// IncrementSignal is a single atomic counter bump guarded on running status,
// so concurrent recorders for one session never lose increments.
func (db *DB) IncrementSignal(ctx context.Context, id string, sig domain.SignalType, count int) error {
	col, ok := signalColumns[sig]
	if !ok {
		return domain.Errorf(domain.ErrInvalidInput, "unknown signal type %q", sig)
	}
	tag, err := db.Pool.Exec(ctx, `
		UPDATE validation_sessions SET `+col+` = `+col+` + $2
		WHERE id = $1 AND status = 'running'
	`, id, count)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.sessionWriteRefused(ctx, id)
	}
	return nil
}

func (db *DB) AddTraffic(ctx context.Context, id string, visits, signups int) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE validation_sessions SET visits = visits + $2, signups = signups + $3
		WHERE id = $1 AND status = 'running'
	`, id, visits, signups)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.sessionWriteRefused(ctx, id)
	}
	return nil
}

// TransitionSession is the compare-and-set out of running. Racing evaluators
// both compute the same outcome; only the first writer's UPDATE matches.
func (db *DB) TransitionSession(ctx context.Context, id string, to domain.SessionStatus, failedAt, retryAfter *time.Time) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE validation_sessions
		SET status = $2, failed_at = $3, retry_eligible_after = $4
		WHERE id = $1 AND status = 'running'
	`, id, string(to), failedAt, retryAfter)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (db *DB) ExtendDeadline(ctx context.Context, id string, deadline time.Time) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE validation_sessions SET deadline = $2
		WHERE id = $1 AND status = 'running'
	`, id, deadline)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (db *DB) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.ValidationSession, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM validation_sessions
		WHERE status = 'running' AND deadline <= $1
		ORDER BY deadline
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ValidationSession
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sess)
	}
	return out, rows.Err()
}

// sessionWriteRefused distinguishes a missing session from a terminal one
// when a guarded write matched no row.
func (db *DB) sessionWriteRefused(ctx context.Context, id string) error {
	var status string
	err := db.Pool.QueryRow(ctx, `SELECT status FROM validation_sessions WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Errorf(domain.ErrNotFound, "session %s", id)
	}
	if err != nil {
		return err
	}
	return domain.Errorf(domain.ErrInvalidState, "session %s is %s", id, status)
}

func scanSession(row pgx.Row) (*domain.ValidationSession, error) {
	var s domain.ValidationSession
	var method, status string
	counts := make(map[domain.SignalType]int, len(signalColumns))
	var emails, dms, buys, questions, shares, upvotes int
	err := row.Scan(
		&s.ID, &s.OpportunityID, &method, &s.OpenedAt, &s.Deadline,
		&emails, &dms, &buys, &questions, &shares, &upvotes,
		&s.Visits, &s.Signups, &status, &s.FailedAt, &s.RetryEligibleAfter,
	)
	if err != nil {
		return nil, err
	}
	counts[domain.SignalEmailSignup] = emails
	counts[domain.SignalDM] = dms
	counts[domain.SignalBuyComment] = buys
	counts[domain.SignalDetailQuestion] = questions
	counts[domain.SignalShare] = shares
	counts[domain.SignalUpvote] = upvotes
	s.Method = domain.ValidationMethod(method)
	s.Status = domain.SessionStatus(status)
	s.Signals = counts
	return &s, nil
}
