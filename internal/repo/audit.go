package repo

import (
	"context"

	"github.com/jobelinc/stocktrack/internal/audit"
)

// AuditRepo persists the tenant-scoped audit trail.
type AuditRepo struct {
	DB *DB
}

// InsertLog appends one audit row. IDs and timestamps come from the database.
func (r AuditRepo) InsertLog(ctx context.Context, entry audit.Log) error {
	tid, err := tenantUUIDFromContext(ctx)
	if err != nil {
		return err
	}
	var metadata any
	if len(entry.Metadata) > 0 {
		metadata = entry.Metadata
	}
	_, err = r.DB.q(ctx).Exec(ctx, `
		INSERT INTO audit_logs (
			tenant_id, actor_kind, actor_id, action, resource_type, resource_id,
			method, path, route, status, ip, user_agent, request_id, metadata
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		tid, entry.ActorKind, entry.ActorID, entry.Action, entry.ResourceType, entry.ResourceID,
		entry.Method, entry.Path, entry.Route, entry.Status, entry.IP, entry.UserAgent, entry.RequestID, metadata)
	return err
}

// ListLogs returns the newest audit rows for the tenant.
func (r AuditRepo) ListLogs(ctx context.Context, limit, offset int32) ([]audit.Log, error) {
	tid, err := tenantUUIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.q(ctx).Query(ctx, `
		SELECT id, actor_kind, actor_id, action, resource_type, resource_id,
		       method, path, route, status, ip, user_agent, request_id, metadata, created_at
		FROM audit_logs
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, tid, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []audit.Log
	for rows.Next() {
		var l audit.Log
		if err := rows.Scan(&l.ID, &l.ActorKind, &l.ActorID, &l.Action, &l.ResourceType, &l.ResourceID,
			&l.Method, &l.Path, &l.Route, &l.Status, &l.IP, &l.UserAgent, &l.RequestID, &l.Metadata, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
