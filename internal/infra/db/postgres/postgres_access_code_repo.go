package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"exam-access-backend/internal/domain"
	"exam-access-backend/internal/domain/model"
	"exam-access-backend/internal/domain/ports/repository"
)

// Ensure implementation satisfies the interface.
var _ repository.AccessCodeRepository = (*accessCodeRepo)(nil)

type accessCodeRepo struct {
	pool *pgxpool.Pool
}

func NewAccessCodeRepo(pool *pgxpool.Pool) repository.AccessCodeRepository {
	return &accessCodeRepo{pool: pool}
}

const accessCodeColumns = `
id, code, user_id, generated_by_manager_id, payment_amount, duration_days,
payment_tier, expires_at, is_used, used_at, attempt_count, is_blocked,
blocked_until, created_at, updated_at`

func scanAccessCode(row pgx.Row) (*model.AccessCode, error) {
	var c model.AccessCode
	err := row.Scan(
		&c.ID, &c.Code, &c.UserID, &c.GeneratedByManagerID, &c.PaymentAmount,
		&c.DurationDays, &c.Tier, &c.ExpiresAt, &c.IsUsed, &c.UsedAt,
		&c.AttemptCount, &c.IsBlocked, &c.BlockedUntil, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *accessCodeRepo) Insert(ctx context.Context, tx repository.Tx, code *model.AccessCode) error {
	const q = `
INSERT INTO access_codes (` + accessCodeColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15);
`
	_, err := execSQL(ctx, r.pool, tx, q,
		code.ID, code.Code, code.UserID, code.GeneratedByManagerID, code.PaymentAmount,
		code.DurationDays, code.Tier, code.ExpiresAt, code.IsUsed, code.UsedAt,
		code.AttemptCount, code.IsBlocked, code.BlockedUntil, code.CreatedAt, code.UpdatedAt,
	)
	return err
}

func (r *accessCodeRepo) FindByCodeAndUser(ctx context.Context, tx repository.Tx, code, userID string) (*model.AccessCode, error) {
	const q = `SELECT ` + accessCodeColumns + ` FROM access_codes WHERE code=$1 AND user_id=$2;`
	row, err := pickRow(ctx, r.pool, tx, q, code, userID)
	if err != nil {
		return nil, err
	}
	c, err := scanAccessCode(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCodeNotFound
		}
		return nil, fmt.Errorf("find access code: %w", err)
	}
	return c, nil
}

func (r *accessCodeRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.AccessCode, error) {
	const q = `SELECT ` + accessCodeColumns + ` FROM access_codes WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	c, err := scanAccessCode(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCodeNotFound
		}
		return nil, fmt.Errorf("find access code by id: %w", err)
	}
	return c, nil
}

// MarkUsed is the redemption commit point: a single conditional UPDATE so the
// store itself arbitrates concurrent redemption attempts. Zero rows affected
// means another caller won the race.
func (r *accessCodeRepo) MarkUsed(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
	const q = `
UPDATE access_codes
   SET is_used = TRUE, used_at = $2, updated_at = $2
 WHERE id = $1 AND is_used = FALSE;
`
	tag, err := execSQL(ctx, r.pool, tx, q, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCodeAlreadyUsed
	}
	return nil
}

func (r *accessCodeRepo) IncrementAttempts(ctx context.Context, tx repository.Tx, code string) error {
	const q = `
UPDATE access_codes
   SET attempt_count = attempt_count + 1, updated_at = NOW()
 WHERE code = $1;
`
	_, err := execSQL(ctx, r.pool, tx, q, code)
	return err
}

// SetBlocked touches only the block columns. The narrow update keeps the row
// lock window short under concurrent block-toggling.
func (r *accessCodeRepo) SetBlocked(ctx context.Context, tx repository.Tx, id string, blocked bool, until *time.Time) (*model.AccessCode, error) {
	const q = `
UPDATE access_codes
   SET is_blocked = $2, blocked_until = $3, updated_at = NOW()
 WHERE id = $1
RETURNING ` + accessCodeColumns + `;`
	row, err := pickRow(ctx, r.pool, tx, q, id, blocked, until)
	if err != nil {
		return nil, err
	}
	c, err := scanAccessCode(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCodeNotFound
		}
		return nil, fmt.Errorf("set blocked: %w", err)
	}
	return c, nil
}

func (r *accessCodeRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	tag, err := execSQL(ctx, r.pool, tx, `DELETE FROM access_codes WHERE id=$1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCodeNotFound
	}
	return nil
}

func (r *accessCodeRepo) FindActiveByUser(ctx context.Context, tx repository.Tx, userID string, now time.Time) ([]*model.AccessCode, error) {
	const q = `
SELECT ` + accessCodeColumns + `
  FROM access_codes
 WHERE user_id = $1 AND is_used = FALSE AND expires_at > $2
 ORDER BY created_at DESC, id DESC;
`
	rows, err := pickRows(ctx, r.pool, tx, q, userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAccessCodes(rows)
}

func (r *accessCodeRepo) FindExpiringBefore(ctx context.Context, tx repository.Tx, now, deadline time.Time) ([]*model.AccessCode, error) {
	const q = `
SELECT ` + accessCodeColumns + `
  FROM access_codes
 WHERE is_used = FALSE AND is_blocked = FALSE
   AND expires_at > $1 AND expires_at <= $2
 ORDER BY expires_at ASC;
`
	rows, err := pickRows(ctx, r.pool, tx, q, now, deadline)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAccessCodes(rows)
}

func (r *accessCodeRepo) CountExpiredUnused(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	row, err := pickRow(ctx, r.pool, tx,
		`SELECT COUNT(*) FROM access_codes WHERE is_used = FALSE AND expires_at <= $1;`, now)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count expired: %w", err)
	}
	return n, nil
}

func collectAccessCodes(rows pgx.Rows) ([]*model.AccessCode, error) {
	var out []*model.AccessCode
	for rows.Next() {
		c, err := scanAccessCode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan access code: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// filterClause builds the WHERE fragment shared by List and Count so the
// reported total always reflects the same filtered set as the page.
func filterClause(f repository.ListFilter, args []interface{}) (string, []interface{}) {
	var conds []string
	if f.UserID != nil {
		args = append(args, *f.UserID)
		conds = append(conds, fmt.Sprintf("ac.user_id = $%d", len(args)))
	}
	if f.IsUsed != nil {
		args = append(args, *f.IsUsed)
		conds = append(conds, fmt.Sprintf("ac.is_used = $%d", len(args)))
	}
	if f.IsBlocked != nil {
		args = append(args, *f.IsBlocked)
		conds = append(conds, fmt.Sprintf("ac.is_blocked = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *accessCodeRepo) List(ctx context.Context, tx repository.Tx, filter repository.ListFilter, offset, limit int) ([]*repository.AccessCodeListing, error) {
	where, args := filterClause(filter, nil)
	args = append(args, limit, offset)
	q := `
SELECT ac.id, ac.code, ac.user_id, ac.generated_by_manager_id, ac.payment_amount,
       ac.duration_days, ac.payment_tier, ac.expires_at, ac.is_used, ac.used_at,
       ac.attempt_count, ac.is_blocked, ac.blocked_until, ac.created_at, ac.updated_at,
       owner.username, issuer.username
  FROM access_codes ac
  JOIN users owner ON owner.id = ac.user_id
  LEFT JOIN users issuer ON issuer.id = ac.generated_by_manager_id` +
		where + fmt.Sprintf(`
 ORDER BY ac.created_at DESC, ac.id DESC
 LIMIT $%d OFFSET $%d;`, len(args)-1, len(args))

	rows, err := pickRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*repository.AccessCodeListing
	for rows.Next() {
		var l repository.AccessCodeListing
		err := rows.Scan(
			&l.ID, &l.Code, &l.UserID, &l.GeneratedByManagerID, &l.PaymentAmount,
			&l.DurationDays, &l.Tier, &l.ExpiresAt, &l.IsUsed, &l.UsedAt,
			&l.AttemptCount, &l.IsBlocked, &l.BlockedUntil, &l.CreatedAt, &l.UpdatedAt,
			&l.OwnerUsername, &l.IssuerUsername,
		)
		if err != nil {
			return nil, fmt.Errorf("scan access code listing: %w", err)
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}

func (r *accessCodeRepo) Count(ctx context.Context, tx repository.Tx, filter repository.ListFilter) (int, error) {
	where, args := filterClause(filter, nil)
	q := `SELECT COUNT(*) FROM access_codes ac` + where + `;`
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count access codes: %w", err)
	}
	return n, nil
}
