package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/GDG-UAM/website-sub002/internal/features/giveaway/models"
	"github.com/GDG-UAM/website-sub002/internal/features/giveaway/repository"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// queryable is satisfied by *pgxpool.Pool and pgx.Tx
type queryable interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type postgresRepository struct {
	q queryable
}

func NewPostgresRepository(q queryable) repository.Repository {
	return &postgresRepository{q: q}
}

const giveawayColumns = `
	id, title, description,
	must_be_logged_in, require_photo_usage_consent, require_profile_public,
	max_winners, start_at, end_at, duration_s, remaining_s, status,
	draw_seed, draw_input_hash, draw_input_size, draw_at, winners, winner_proofs,
	version, created_at, updated_at`

func (r *postgresRepository) Create(ctx context.Context, g *models.Giveaway) error {
	winners, proofs, err := marshalDraw(g.Draw)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO giveaways (` + giveawayColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17::jsonb, $18::jsonb, $19, $20, $21)
	`
	_, err = r.q.Exec(ctx, query,
		g.ID, g.Title, g.Description,
		g.Requirements.MustBeLoggedIn, g.Requirements.RequirePhotoUsageConsent, g.Requirements.RequireProfilePublic,
		g.MaxWinners, g.StartAt, g.EndAt, g.DurationS, g.RemainingS, g.Status,
		nullString(g.Draw.Seed), nullString(g.Draw.InputHash), nullInt(g.Draw.InputSize, g.Drawn()), g.Draw.DrawAt,
		winners, proofs,
		g.Version, g.CreatedAt, g.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create giveaway: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id string) (*models.Giveaway, error) {
	query := `SELECT ` + giveawayColumns + ` FROM giveaways WHERE id = $1`

	g, err := scanGiveaway(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrGiveawayNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get giveaway %s: %w", id, err)
	}
	return g, nil
}

func (r *postgresRepository) UpdateLifecycle(ctx context.Context, g *models.Giveaway, expectedVersion int64) error {
	query := `
		UPDATE giveaways
		SET status = $3, start_at = $4, remaining_s = $5, updated_at = $6, version = version + 1
		WHERE id = $1 AND version = $2
		RETURNING version
	`
	err := r.q.QueryRow(ctx, query, g.ID, expectedVersion, g.Status, g.StartAt, g.RemainingS, g.UpdatedAt).Scan(&g.Version)
	return r.casResult(ctx, g.ID, err, "update giveaway lifecycle")
}

func (r *postgresRepository) SaveDraw(ctx context.Context, g *models.Giveaway, expectedVersion int64) error {
	winners, proofs, err := marshalDraw(g.Draw)
	if err != nil {
		return err
	}

	query := `
		UPDATE giveaways
		SET draw_seed = $3, draw_input_hash = $4, draw_input_size = $5, draw_at = $6,
			winners = $7::jsonb, winner_proofs = $8::jsonb,
			status = $9, updated_at = $10, version = version + 1
		WHERE id = $1 AND version = $2 AND draw_at IS NULL
		RETURNING version
	`
	err = r.q.QueryRow(ctx, query,
		g.ID, expectedVersion,
		g.Draw.Seed, g.Draw.InputHash, g.Draw.InputSize, g.Draw.DrawAt,
		winners, proofs,
		g.Status, g.UpdatedAt,
	).Scan(&g.Version)
	return r.casResult(ctx, g.ID, err, "save draw")
}

func (r *postgresRepository) SaveReroll(ctx context.Context, g *models.Giveaway, expectedVersion int64) error {
	winners, proofs, err := marshalDraw(g.Draw)
	if err != nil {
		return err
	}

	query := `
		UPDATE giveaways
		SET winners = $3::jsonb, winner_proofs = $4::jsonb, updated_at = $5, version = version + 1
		WHERE id = $1 AND version = $2 AND draw_at IS NOT NULL
		RETURNING version
	`
	err = r.q.QueryRow(ctx, query, g.ID, expectedVersion, winners, proofs, g.UpdatedAt).Scan(&g.Version)
	return r.casResult(ctx, g.ID, err, "save reroll")
}

// casResult turns a conditional UPDATE ... RETURNING outcome into repository errors.
func (r *postgresRepository) casResult(ctx context.Context, id string, err error, op string) error {
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("failed to %s: %w", op, err)
	}

	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM giveaways WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if !exists {
		return repository.ErrGiveawayNotFound
	}
	return repository.ErrVersionConflict
}

func (r *postgresRepository) CreateEntry(ctx context.Context, e *models.Entry) error {
	confirmations, err := json.Marshal(e.Confirmations)
	if err != nil {
		return fmt.Errorf("failed to marshal confirmations: %w", err)
	}

	// FOR SHARE orders the insert against a concurrent status or draw update
	query := `
		INSERT INTO giveaway_entries (id, giveaway_id, user_id, anon_id, device_fingerprint, confirmations, disqualified, created_at)
		SELECT $1::text, g.id, $3::text, $4::text, $5::text, $6::jsonb, $7::boolean, $8::timestamptz
		FROM giveaways g
		WHERE g.id = $2 AND g.status = 'active' AND g.draw_at IS NULL
		FOR SHARE
	`
	tag, err := r.q.Exec(ctx, query,
		e.ID, e.GiveawayID, e.Identity.UserID(), e.Identity.AnonID(),
		e.DeviceFingerprint, string(confirmations), e.Disqualified, e.CreatedAt,
	)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return repository.ErrDuplicateEntry
		case pgForeignKeyViolation:
			return repository.ErrGiveawayNotFound
		}
	}
	if err != nil {
		return fmt.Errorf("failed to create entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM giveaways WHERE id = $1)`, e.GiveawayID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to create entry: %w", err)
		}
		if !exists {
			return repository.ErrGiveawayNotFound
		}
		return repository.ErrGiveawayClosed
	}
	return nil
}

func (r *postgresRepository) IsRegistered(ctx context.Context, giveawayID string, identity models.Identity) (bool, error) {
	column := "anon_id"
	if identity.Kind == models.IdentityUser {
		column = "user_id"
	}

	query := `SELECT EXISTS(
		SELECT 1 FROM giveaway_entries
		WHERE giveaway_id = $1 AND ` + column + ` = $2 AND deleted_at IS NULL
	)`

	var exists bool
	if err := r.q.QueryRow(ctx, query, giveawayID, identity.Value).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check registration: %w", err)
	}
	return exists, nil
}

func (r *postgresRepository) CountEntries(ctx context.Context, giveawayID string) (int, error) {
	query := `
		SELECT COUNT(*) FROM giveaway_entries
		WHERE giveaway_id = $1 AND NOT disqualified AND deleted_at IS NULL
	`
	var count int
	if err := r.q.QueryRow(ctx, query, giveawayID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return count, nil
}

const entryColumns = `id, giveaway_id, user_id, anon_id, device_fingerprint, confirmations, disqualified, disqualified_at, created_at`

func (r *postgresRepository) ListEntries(ctx context.Context, giveawayID string) ([]models.Entry, error) {
	query := `
		SELECT ` + entryColumns + ` FROM giveaway_entries
		WHERE giveaway_id = $1 AND deleted_at IS NULL
		ORDER BY created_at, id
	`
	return r.queryEntries(ctx, query, giveawayID)
}

func (r *postgresRepository) GetEntries(ctx context.Context, giveawayID string, ids []string) ([]models.Entry, error) {
	if len(ids) == 0 {
		return []models.Entry{}, nil
	}
	query := `
		SELECT ` + entryColumns + ` FROM giveaway_entries
		WHERE giveaway_id = $1 AND id = ANY($2) AND deleted_at IS NULL
	`
	return r.queryEntries(ctx, query, giveawayID, ids)
}

func (r *postgresRepository) queryEntries(ctx context.Context, query string, args ...any) ([]models.Entry, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var entries []models.Entry
	for rows.Next() {
		var (
			e             models.Entry
			userID        *string
			anonID        *string
			confirmations []byte
		)
		if err := rows.Scan(&e.ID, &e.GiveawayID, &userID, &anonID, &e.DeviceFingerprint, &confirmations, &e.Disqualified, &e.DisqualifiedAt, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		if userID != nil {
			e.Identity = models.UserIdentity(*userID)
		} else if anonID != nil {
			e.Identity = models.AnonymousIdentity(*anonID)
		}
		if len(confirmations) > 0 {
			if err := json.Unmarshal(confirmations, &e.Confirmations); err != nil {
				return nil, fmt.Errorf("failed to decode confirmations of entry %s: %w", e.ID, err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}
	return entries, nil
}

func (r *postgresRepository) Disqualify(ctx context.Context, giveawayID, entryID string, at time.Time) error {
	query := `
		UPDATE giveaway_entries
		SET disqualified = TRUE, disqualified_at = COALESCE(disqualified_at, $3)
		WHERE giveaway_id = $1 AND id = $2 AND deleted_at IS NULL
	`
	tag, err := r.q.Exec(ctx, query, giveawayID, entryID, at)
	if err != nil {
		return fmt.Errorf("failed to disqualify entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrEntryNotFound
	}
	return nil
}

func scanGiveaway(row pgx.Row) (*models.Giveaway, error) {
	var (
		g         models.Giveaway
		seed      *string
		inputHash *string
		inputSize *int
		winners   []byte
		proofs    []byte
	)
	err := row.Scan(
		&g.ID, &g.Title, &g.Description,
		&g.Requirements.MustBeLoggedIn, &g.Requirements.RequirePhotoUsageConsent, &g.Requirements.RequireProfilePublic,
		&g.MaxWinners, &g.StartAt, &g.EndAt, &g.DurationS, &g.RemainingS, &g.Status,
		&seed, &inputHash, &inputSize, &g.Draw.DrawAt, &winners, &proofs,
		&g.Version, &g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if seed != nil {
		g.Draw.Seed = *seed
	}
	if inputHash != nil {
		g.Draw.InputHash = *inputHash
	}
	if inputSize != nil {
		g.Draw.InputSize = *inputSize
	}
	if err := json.Unmarshal(winners, &g.Draw.Winners); err != nil {
		return nil, fmt.Errorf("failed to decode winners: %w", err)
	}
	if err := json.Unmarshal(proofs, &g.Draw.Proofs); err != nil {
		return nil, fmt.Errorf("failed to decode winner proofs: %w", err)
	}
	return &g, nil
}

func marshalDraw(d models.DrawRecord) (winners, proofs string, err error) {
	w := d.Winners
	if w == nil {
		w = []string{}
	}
	p := d.Proofs
	if p == nil {
		p = []models.WinnerProof{}
	}

	wb, err := json.Marshal(w)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal winners: %w", err)
	}
	pb, err := json.Marshal(p)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal winner proofs: %w", err)
	}
	return string(wb), string(pb), nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullInt(v int, set bool) *int {
	if !set {
		return nil
	}
	return &v
}
