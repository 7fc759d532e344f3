package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/resume-typesetter/internal/library"
)

// Begin starts a transaction for fragment storage. It implements library.Store.
func (db *DB) Begin(ctx context.Context) (library.Tx, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &fragmentTx{tx: tx}, nil
}

// fragmentTx implements library.Tx with SQL generated from each kind's schema.
// Table and column names come from library schemas, never from input.
type fragmentTx struct {
	tx pgx.Tx
}

func schemaFor(kind library.Kind) (library.Schema, error) {
	schema, ok := library.SchemaFor(kind)
	if !ok {
		return library.Schema{}, fmt.Errorf("unknown fragment kind %q", kind)
	}
	return schema, nil
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func identList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = ident(n)
	}
	return strings.Join(quoted, ", ")
}

func columnNames(cols []library.Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

// placeholders returns "$from, $from+1, ..." for n parameters
func placeholders(from, n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = fmt.Sprintf("$%d", from+i)
	}
	return strings.Join(ps, ", ")
}

// keyPredicate returns "k1 = $from AND k2 = $from+1 ..." for the key columns.
// Hashed columns are matched through their hash so the unique index is used.
func keyPredicate(keys []library.Column, from int) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		if k.Hashed {
			parts[i] = fmt.Sprintf("%s = %s AND %s = $%d",
				ident(library.HashColumn(k.Name)), hashExpr(from+i), ident(k.Name), from+i)
			continue
		}
		parts[i] = fmt.Sprintf("%s = $%d", ident(k.Name), from+i)
	}
	return strings.Join(parts, " AND ")
}

// hashExpr matches the generated hash columns created by the migrations
func hashExpr(param int) string {
	return fmt.Sprintf("sha256(convert_to($%d::text, 'UTF8'))", param)
}

// scanTargets returns one destination per schema column
func scanTargets(cols []library.Column) []any {
	dest := make([]any, len(cols))
	for i, c := range cols {
		if c.Type == library.BoolColumn {
			dest[i] = new(bool)
		} else {
			dest[i] = new(string)
		}
	}
	return dest
}

func valuesFromTargets(cols []library.Column, dest []any) map[string]any {
	values := make(map[string]any, len(cols))
	for i, c := range cols {
		switch v := dest[i].(type) {
		case *bool:
			values[c.Name] = *v
		case *string:
			values[c.Name] = *v
		}
	}
	return values
}

func (t *fragmentTx) InsertFragment(ctx context.Context, userID uuid.UUID, rec *library.Record) (uuid.UUID, error) {
	schema, err := schemaFor(rec.Kind)
	if err != nil {
		return uuid.Nil, err
	}

	cols := append([]string{"user_id"}, columnNames(schema.Columns)...)
	conflict := append([]string{"user_id"}, schema.ConflictTarget()...)
	args := append([]any{userID}, rec.ColumnValues(schema.Columns)...)

	query := fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO NOTHING RETURNING id`,
		ident(schema.Table), identList(cols), placeholders(1, len(cols)), identList(conflict),
	)

	var id uuid.UUID
	if err := t.tx.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, library.ErrConflict
		}
		return uuid.Nil, fmt.Errorf("failed to insert into %s: %w", schema.Table, err)
	}
	return id, nil
}

func (t *fragmentTx) FindFragmentID(ctx context.Context, userID uuid.UUID, rec *library.Record) (uuid.UUID, error) {
	schema, err := schemaFor(rec.Kind)
	if err != nil {
		return uuid.Nil, err
	}

	keys := schema.KeyColumns()
	query := fmt.Sprintf(`SELECT id FROM %s WHERE user_id = $1 AND %s`,
		ident(schema.Table), keyPredicate(keys, 2))
	args := append([]any{userID}, rec.ColumnValues(keys)...)

	var id uuid.UUID
	if err := t.tx.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, library.ErrNotFound
		}
		return uuid.Nil, fmt.Errorf("failed to find %s row: %w", schema.Table, err)
	}
	return id, nil
}

func (t *fragmentTx) GetFragment(ctx context.Context, kind library.Kind, id uuid.UUID) (*library.Record, error) {
	schema, err := schemaFor(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT id, user_id, %s FROM %s WHERE id = $1`,
		identList(columnNames(schema.Columns)), ident(schema.Table))

	rec := library.Record{Kind: kind}
	targets := scanTargets(schema.Columns)
	dest := append([]any{&rec.ID, &rec.UserID}, targets...)
	if err := t.tx.QueryRow(ctx, query, id).Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, library.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s row: %w", schema.Table, err)
	}
	rec.Values = valuesFromTargets(schema.Columns, targets)

	if schema.HasBullets() {
		bullets, err := t.bullets(ctx, schema, []uuid.UUID{rec.ID})
		if err != nil {
			return nil, err
		}
		rec.Bullets = bullets[rec.ID]
		if rec.Bullets == nil {
			rec.Bullets = []string{}
		}
	}
	return &rec, nil
}

func (t *fragmentTx) ListFragments(ctx context.Context, kind library.Kind, userID uuid.UUID) ([]library.Record, error) {
	schema, err := schemaFor(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT id, user_id, %s FROM %s WHERE user_id = $1 ORDER BY created_at, id`,
		identList(columnNames(schema.Columns)), ident(schema.Table))

	rows, err := t.tx.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", schema.Table, err)
	}
	defer rows.Close()

	var recs []library.Record
	for rows.Next() {
		rec := library.Record{Kind: kind}
		targets := scanTargets(schema.Columns)
		dest := append([]any{&rec.ID, &rec.UserID}, targets...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", schema.Table, err)
		}
		rec.Values = valuesFromTargets(schema.Columns, targets)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s rows: %w", schema.Table, err)
	}

	if schema.HasBullets() && len(recs) > 0 {
		ids := make([]uuid.UUID, len(recs))
		for i := range recs {
			ids[i] = recs[i].ID
		}
		bullets, err := t.bullets(ctx, schema, ids)
		if err != nil {
			return nil, err
		}
		for i := range recs {
			recs[i].Bullets = bullets[recs[i].ID]
			if recs[i].Bullets == nil {
				recs[i].Bullets = []string{}
			}
		}
	}
	return recs, nil
}

// bullets loads the bullets of the given fragments in display order
func (t *fragmentTx) bullets(ctx context.Context, schema library.Schema, ids []uuid.UUID) (map[uuid.UUID][]string, error) {
	rows, err := t.tx.Query(ctx,
		fmt.Sprintf(`SELECT fragment_id, text FROM %s WHERE fragment_id = ANY($1) ORDER BY fragment_id, ordinal, dup_seq`,
			ident(schema.BulletTable)),
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", schema.BulletTable, err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]string, len(ids))
	for rows.Next() {
		var fragmentID uuid.UUID
		var text string
		if err := rows.Scan(&fragmentID, &text); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", schema.BulletTable, err)
		}
		out[fragmentID] = append(out[fragmentID], text)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s rows: %w", schema.BulletTable, err)
	}
	return out, nil
}

func (t *fragmentTx) UpdateFragment(ctx context.Context, rec *library.Record) error {
	schema, err := schemaFor(rec.Kind)
	if err != nil {
		return err
	}

	sets := make([]string, len(schema.Columns))
	for i, c := range schema.Columns {
		sets[i] = fmt.Sprintf("%s = $%d", ident(c.Name), i+1)
	}
	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $%d`,
		ident(schema.Table), strings.Join(sets, ", "), len(schema.Columns)+1)
	args := append(rec.ColumnValues(schema.Columns), rec.ID)

	tag, err := t.tx.Exec(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return library.ErrConflict
		}
		return fmt.Errorf("failed to update %s row: %w", schema.Table, err)
	}
	if tag.RowsAffected() == 0 {
		return library.ErrNotFound
	}
	return nil
}

func (t *fragmentTx) DeleteFragment(ctx context.Context, kind library.Kind, id uuid.UUID) error {
	schema, err := schemaFor(kind)
	if err != nil {
		return err
	}

	tag, err := t.tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, ident(schema.Table)), id)
	if err != nil {
		return fmt.Errorf("failed to delete %s row: %w", schema.Table, err)
	}
	if tag.RowsAffected() == 0 {
		return library.ErrNotFound
	}
	return nil
}

func (t *fragmentTx) AppendBullet(ctx context.Context, kind library.Kind, fragmentID uuid.UUID, text string, dupSeq int) (bool, error) {
	schema, err := schemaFor(kind)
	if err != nil {
		return false, err
	}
	if !schema.HasBullets() {
		return false, fmt.Errorf("%s fragments have no bullets", kind)
	}

	table := ident(schema.BulletTable)
	query := fmt.Sprintf(
		`INSERT INTO %[1]s (fragment_id, text, dup_seq, ordinal)
		 SELECT $1::uuid, $2::text, $3::int, COALESCE(MAX(ordinal) + 1, 0) FROM %[1]s WHERE fragment_id = $1
		 ON CONFLICT (%[2]s) DO NOTHING`,
		table, bulletKey,
	)

	tag, err := t.tx.Exec(ctx, query, fragmentID, text, dupSeq)
	if err != nil {
		return false, fmt.Errorf("failed to insert into %s: %w", schema.BulletTable, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (t *fragmentTx) DeleteBullets(ctx context.Context, kind library.Kind, fragmentID uuid.UUID) error {
	schema, err := schemaFor(kind)
	if err != nil {
		return err
	}
	if !schema.HasBullets() {
		return nil
	}

	if _, err := t.tx.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE fragment_id = $1`, ident(schema.BulletTable)), fragmentID,
	); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", schema.BulletTable, err)
	}
	return nil
}

func (t *fragmentTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *fragmentTx) Rollback(ctx context.Context) error {
	return rollback(ctx, t.tx)
}
