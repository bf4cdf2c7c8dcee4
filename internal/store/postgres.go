package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres maps the query/transact primitives onto a generic
// entities-plus-links schema for self-hosted deployments. The schema is
// owned by the migrations under migrations/.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects a pgx pool to dsn and verifies it with a ping.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

// Close releases the underlying pool.
func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

// Health reports connectivity to the database.
func (p *Postgres) Health(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Postgres) Query(ctx context.Context, q Query) ([]Record, error) {
	sql, args := buildQuerySQL(q)

	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Entity, err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan %s record: %w", q.Entity, err)
		}
		records = append(records, Record(data))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading %s records: %w", q.Entity, err)
	}
	return records, nil
}

// buildQuerySQL translates a Query into SQL over the entities table.
// Field filters compare against jsonb text values; link filters join
// through entity_links.
func buildQuerySQL(q Query) (string, []any) {
	var sb strings.Builder
	args := []any{q.Entity}

	sb.WriteString("SELECT data FROM entities WHERE entity_type = $1")
	for _, f := range q.Where {
		args = append(args, f.Field, f.Value)
		sb.WriteString(" AND data->>$" + strconv.Itoa(len(args)-1) + " = $" + strconv.Itoa(len(args)))
	}
	if q.WhereLink != nil {
		args = append(args, q.WhereLink.Relation, q.WhereLink.TargetID)
		sb.WriteString(" AND id IN (SELECT id FROM entity_links WHERE entity_type = $1 AND relation = $" +
			strconv.Itoa(len(args)-1) + " AND target_id = $" + strconv.Itoa(len(args)) + ")")
	}
	sb.WriteString(" ORDER BY created")

	return sb.String(), args
}

func (p *Postgres) Transact(ctx context.Context, steps []Step) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transact: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	for _, step := range steps {
		if err := applyStep(ctx, tx, step); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transact: %w", err)
	}
	committed = true
	return nil
}

func applyStep(ctx context.Context, tx pgx.Tx, step Step) error {
	switch step.Op {
	case OpUpdate:
		data, err := json.Marshal(step.Fields)
		if err != nil {
			return fmt.Errorf("encoding %s/%s fields: %w", step.Entity, step.ID, err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO entities (entity_type, id, data)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (entity_type, id)
			 DO UPDATE SET data = entities.data || EXCLUDED.data`,
			step.Entity, step.ID, data,
		)
		if err != nil {
			return fmt.Errorf("upsert %s/%s: %w", step.Entity, step.ID, err)
		}
	case OpLink:
		_, err := tx.Exec(ctx,
			`INSERT INTO entity_links (entity_type, id, relation, target_id)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (entity_type, id, relation)
			 DO UPDATE SET target_id = EXCLUDED.target_id`,
			step.Entity, step.ID, step.Relation, step.TargetID,
		)
		if err != nil {
			return fmt.Errorf("link %s/%s: %w", step.Entity, step.ID, err)
		}
	case OpDelete:
		if _, err := tx.Exec(ctx,
			`DELETE FROM entity_links WHERE entity_type = $1 AND id = $2`,
			step.Entity, step.ID,
		); err != nil {
			return fmt.Errorf("unlink %s/%s: %w", step.Entity, step.ID, err)
		}
		if _, err := tx.Exec(ctx,
			`DELETE FROM entities WHERE entity_type = $1 AND id = $2`,
			step.Entity, step.ID,
		); err != nil {
			return fmt.Errorf("delete %s/%s: %w", step.Entity, step.ID, err)
		}
	default:
		return fmt.Errorf("unknown step op %q", step.Op)
	}
	return nil
}
