package file

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/filestore/service/internal/provider"
)

const selectColumns = "id, created_at, updated_at, name, path, mimetype, size, provider, reference_id"

// Repository handles all file metadata database operations.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Insert persists one row per uploaded file and returns the generated ids,
// in input order.
func (r *Repository) Insert(ctx context.Context, recs []NewRecord) ([]string, error) {
	if len(recs) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO files (name, path, mimetype, size, provider, reference_id) VALUES ")
	args := make([]any, 0, len(recs)*6)
	for i, rec := range recs {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 6
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4, base+5, base+6)
		args = append(args, rec.Name, rec.Path, rec.Mimetype, rec.Size, string(rec.Provider), rec.ReferenceID)
	}
	sb.WriteString(" RETURNING id")

	rows, err := r.db.Query(ctx, sb.String(), args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("duplicate backend reference: %w", err)
		}
		return nil, fmt.Errorf("insert files: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0, len(recs))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan inserted id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("duplicate backend reference: %w", err)
		}
		return nil, fmt.Errorf("insert files: %w", err)
	}
	return ids, nil
}

// Select returns all rows matching the filter, ordered and paginated per
// the filter's settings.
func (r *Repository) Select(ctx context.Context, f Filter) ([]Record, error) {
	query, args := buildSelectQuery(f)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select files: %w", err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var rec Record
		var prov string
		if err := rows.Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt, &rec.Name, &rec.Path,
			&rec.Mimetype, &rec.Size, &prov, &rec.ReferenceID); err != nil {
			return nil, fmt.Errorf("scan file row: %w", err)
		}
		rec.Provider = provider.ID(prov)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select files: %w", err)
	}
	return recs, nil
}

// DeleteByIDs removes all matching rows in one statement and returns the
// backend references of the deleted rows for physical cleanup.
func (r *Repository) DeleteByIDs(ctx context.Context, ids []string) ([]DeletedRef, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.db.Query(ctx,
		`DELETE FROM files WHERE id = ANY($1::uuid[]) RETURNING provider, reference_id`, ids)
	if err != nil {
		return nil, fmt.Errorf("delete files: %w", err)
	}
	defer rows.Close()

	var refs []DeletedRef
	for rows.Next() {
		var ref DeletedRef
		var prov string
		if err := rows.Scan(&prov, &ref.ReferenceID); err != nil {
			return nil, fmt.Errorf("scan deleted ref: %w", err)
		}
		ref.Provider = provider.ID(prov)
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("delete files: %w", err)
	}
	return refs, nil
}

// buildSelectQuery assembles the filtered select as a conjunction of the
// filter's non-empty predicates.
func buildSelectQuery(f Filter) (string, []any) {
	var conds []string
	var args []any
	arg := func(v any) int {
		args = append(args, v)
		return len(args)
	}

	if len(f.IDs) > 0 {
		conds = append(conds, fmt.Sprintf("id = ANY($%d::uuid[])", arg(f.IDs)))
	}
	if f.Provider != "" {
		conds = append(conds, fmt.Sprintf("provider = $%d", arg(string(f.Provider))))
	}
	if f.Path != "" {
		conds = append(conds, fmt.Sprintf("path = $%d", arg(f.Path)))
	}
	if f.Mimetype != "" {
		conds = append(conds, fmt.Sprintf("mimetype = $%d", arg(f.Mimetype)))
	}
	if f.Name != "" {
		conds = append(conds, fmt.Sprintf("name ILIKE $%d", arg("%"+f.Name+"%")))
	}
	if f.CreatedFrom != nil {
		conds = append(conds, fmt.Sprintf("created_at >= $%d", arg(*f.CreatedFrom)))
	}
	if f.CreatedTo != nil {
		conds = append(conds, fmt.Sprintf("created_at <= $%d", arg(*f.CreatedTo)))
	}
	if f.SizeFrom != nil {
		conds = append(conds, fmt.Sprintf("size >= $%d", arg(*f.SizeFrom)))
	}
	if f.SizeTo != nil {
		conds = append(conds, fmt.Sprintf("size <= $%d", arg(*f.SizeTo)))
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + selectColumns + " FROM files")
	if len(conds) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	if f.Order == OrderAsc {
		sb.WriteString(" ORDER BY created_at ASC")
	} else {
		sb.WriteString(" ORDER BY created_at DESC")
	}
	if f.Limit != nil {
		fmt.Fprintf(&sb, " LIMIT $%d", arg(*f.Limit))
	}
	if f.Offset != nil {
		fmt.Fprintf(&sb, " OFFSET $%d", arg(*f.Offset))
	}
	return sb.String(), args
}

// isUniqueViolation checks whether an error is a PostgreSQL unique_violation
// (code 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
