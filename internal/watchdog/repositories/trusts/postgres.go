// Package trusts provides the PostgreSQL-backed trust record store used by
// the watchdog engine.
package trusts

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mkarpenko/keywarden/internal/dbx"
	"github.com/mkarpenko/keywarden/internal/watchdog/models"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const trustColumns = `id, owner_id, status, owner_email, warning_email, beneficiary_email,
		encrypted_data, key_storage,
		timeout_seconds, timeout_minutes,
		warn_start_seconds, warn_interval_seconds, warn_max_count, warn_sent_count,
		last_checkin_at, last_warn_at, disclosed_at, created_at`

// ListByStatus returns every trust currently in the given state, with
// documented defaults applied once at deserialization.
func (r *PostgresRepository) ListByStatus(ctx context.Context, status models.Status) ([]*models.Trust, error) {
	query := `SELECT ` + trustColumns + ` FROM trusts WHERE status = $1`

	rows, err := r.db.QueryContext(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Trust
	for rows.Next() {
		var t models.Trust
		if err := rows.Scan(
			&t.ID, &t.OwnerID, &t.Status, &t.OwnerEmail, &t.WarningEmail, &t.BeneficiaryEmail,
			&t.EncryptedData, &t.KeyStorage,
			&t.TimeoutSeconds, &t.TimeoutMinutes,
			&t.WarnStartSeconds, &t.WarnIntervalSeconds, &t.WarnMaxCount, &t.WarnSentCount,
			&t.LastCheckinAt, &t.LastWarnAt, &t.DisclosedAt, &t.CreatedAt,
		); err != nil {
			return nil, err
		}
		t.ApplyDefaults()
		result = append(result, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ConditionalUpdate performs the compare-and-swap the state machine relies
// on: UPDATE trusts SET ... WHERE id = $n AND <every where field unchanged>.
// Field names are interpolated from a fixed allow-list; values always travel
// as placeholders. Returns true iff exactly one row changed.
func (r *PostgresRepository) ConditionalUpdate(ctx context.Context, id string, where, set map[string]any) (bool, error) {
	if len(set) == 0 {
		return false, fmt.Errorf("conditional update: empty set clause")
	}

	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString("UPDATE trusts SET ")
	for i, col := range sortedColumns(set) {
		if i > 0 {
			sb.WriteString(", ")
		}
		args = append(args, set[col])
		fmt.Fprintf(&sb, "%s = $%d", col, len(args))
	}

	args = append(args, id)
	fmt.Fprintf(&sb, " WHERE id = $%d", len(args))
	for _, col := range sortedColumns(where) {
		args = append(args, where[col])
		fmt.Fprintf(&sb, " AND %s = $%d", col, len(args))
	}

	res, err := r.db.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return true, nil
	case 0:
		return false, nil
	default:
		return false, fmt.Errorf("unexpected rows affected: %d", n)
	}
}

// Delete removes a trust row. Zero rows affected means the record was already
// gone, which is fine: reaper deletion must be idempotent.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM trusts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// DeleteIdentity removes the owner's authentication identity. Idempotent for
// the same reason as Delete.
func (r *PostgresRepository) DeleteIdentity(ctx context.Context, ownerID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM identities WHERE owner_id = $1`, ownerID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// allowedColumns guards against field names reaching the SQL text from
// anywhere but this code base.
var allowedColumns = map[string]struct{}{
	"status":          {},
	"key_storage":     {},
	"warn_sent_count": {},
	"last_warn_at":    {},
	"last_checkin_at": {},
	"disclosed_at":    {},
}

func sortedColumns(fields map[string]any) []string {
	cols := make([]string, 0, len(fields))
	for col := range fields {
		if _, ok := allowedColumns[col]; !ok {
			panic(fmt.Sprintf("trusts: column %q not allowed in conditional update", col))
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}
