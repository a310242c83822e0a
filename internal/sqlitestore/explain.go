package sqlitestore

import (
	"context"
	"fmt"
)

// PlanRow is one row of `EXPLAIN QUERY PLAN <stmt>`.
type PlanRow struct {
	SelectID int
	Order    int
	FromID   int
	Detail   string
}

// ExplainQueryPlan runs `EXPLAIN QUERY PLAN` against sql and returns its
// rows in the engine's own order.
func (d *DB) ExplainQueryPlan(ctx context.Context, sql string) ([]PlanRow, error) {
	rows, err := d.conn.QueryContext(ctx, "EXPLAIN QUERY PLAN "+sql)
	if err != nil {
		return nil, fmt.Errorf("explain query plan: %w", err)
	}
	defer rows.Close()

	var plan []PlanRow
	for rows.Next() {
		var r PlanRow
		if err := rows.Scan(&r.SelectID, &r.Order, &r.FromID, &r.Detail); err != nil {
			return nil, err
		}
		plan = append(plan, r)
	}
	return plan, rows.Err()
}
