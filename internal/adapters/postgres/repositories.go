package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"prospect/internal/domain"
)

const opportunityColumns = `
	id, title, primary_keyword,
	reddit_mentions, twitter_mentions, trend_score, cpc,
	competitor_count, competitor_strength,
	demand_score, intent_score, competition_penalty, opportunity_score, confidence,
	status, evidence_domains, retry_eligible_after, created_at`

func (db *DB) CreateOpportunity(ctx context.Context, opp *domain.Opportunity) error {
	return db.Pool.QueryRow(ctx, `
		INSERT INTO opportunities (
			title, primary_keyword,
			reddit_mentions, twitter_mentions, trend_score, cpc,
			competitor_count, competitor_strength,
			demand_score, intent_score, competition_penalty, opportunity_score, confidence,
			status, evidence_domains
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		RETURNING id, created_at
	`,
		opp.Title, opp.PrimaryKeyword,
		opp.Raw.RedditMentions, opp.Raw.TwitterMentions, opp.Raw.TrendScore, opp.Raw.CPC,
		opp.Raw.CompetitorCount, string(opp.Raw.CompetitorStrength),
		opp.Score.Demand, opp.Score.Intent, opp.Score.CompetitionPenalty, opp.Score.Total, string(opp.Score.Confidence),
		string(opp.Status), opp.EvidenceDomains,
	).Scan(&opp.ID, &opp.CreatedAt)
}

func (db *DB) GetOpportunity(ctx context.Context, id string) (*domain.Opportunity, error) {
	row := db.Pool.QueryRow(ctx, `SELECT `+opportunityColumns+` FROM opportunities WHERE id = $1`, id)
	opp, err := scanOpportunity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.Errorf(domain.ErrNotFound, "opportunity %s", id)
	}
	return opp, err
}

func (db *DB) ListByStatus(ctx context.Context, status domain.OpportunityStatus) ([]domain.Opportunity, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+opportunityColumns+`
		FROM opportunities
		WHERE status = $1
		ORDER BY opportunity_score DESC, created_at
	`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Opportunity
	for rows.Next() {
		opp, err := scanOpportunity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *opp)
	}
	return out, rows.Err()
}

func (db *DB) FindDuplicate(ctx context.Context, keyword string, since, now time.Time) (*domain.Opportunity, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT `+opportunityColumns+`
		FROM opportunities
		WHERE primary_keyword = $1
		  AND (
			(created_at >= $2 AND status NOT IN ('rejected', 'failed'))
			OR retry_eligible_after > $3
		  )
		ORDER BY created_at DESC
		LIMIT 1
	`, keyword, since, now)
	opp, err := scanOpportunity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.Errorf(domain.ErrNotFound, "no duplicate for %q", keyword)
	}
	return opp, err
}

func (db *DB) TransitionOpportunity(ctx context.Context, id string, from, to domain.OpportunityStatus, retryAfter *time.Time) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE opportunities
		SET status = $3, retry_eligible_after = COALESCE($4, retry_eligible_after)
		WHERE id = $1 AND status = $2
	`, id, string(from), string(to), retryAfter)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func scanOpportunity(row pgx.Row) (*domain.Opportunity, error) {
	var opp domain.Opportunity
	var strength, confidence, status string
	err := row.Scan(
		&opp.ID, &opp.Title, &opp.PrimaryKeyword,
		&opp.Raw.RedditMentions, &opp.Raw.TwitterMentions, &opp.Raw.TrendScore, &opp.Raw.CPC,
		&opp.Raw.CompetitorCount, &strength,
		&opp.Score.Demand, &opp.Score.Intent, &opp.Score.CompetitionPenalty, &opp.Score.Total, &confidence,
		&status, &opp.EvidenceDomains, &opp.RetryEligibleAfter, &opp.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	opp.Raw.CompetitorStrength = domain.CompetitorStrength(strength)
	opp.Score.Confidence = domain.Confidence(confidence)
	opp.Status = domain.OpportunityStatus(status)
	return &opp, nil
}
