package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/devoverflow/overflow-server/internal/store"
)

// errMissingRow marks an update, delete, or counter change that matched nothing.
var errMissingRow = errors.New("no record with that id")

// Begin opens a new batch.
func (s *Store) Begin(ctx context.Context) (store.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &batch{s: s, id: uuid.NewString()}, nil
}

// batch buffers operations and applies them in one transaction on Commit.
type batch struct {
	s  *Store
	id string

	mu     sync.Mutex
	ops    []store.Op
	closed bool
}

func (b *batch) ID() string { return b.id }

// Add validates op against the schema and queues it.
func (b *batch) Add(op store.Op) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return store.ErrBatchClosed
	}
	if err := op.Validate(); err != nil {
		return fmt.Errorf("batch %s: %w", b.id, err)
	}
	b.ops = append(b.ops, op)
	return nil
}

// Commit applies every queued operation inside one transaction.
// Any failure rolls the transaction back and returns a *store.BatchError.
func (b *batch) Commit(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return store.ErrBatchClosed
	}
	b.closed = true

	ctx, span := b.s.tracer.Start(ctx, "store.batch.commit", trace.WithAttributes(
		attribute.String("batch.id", b.id),
		attribute.Int("batch.ops", len(b.ops)),
	))
	defer span.End()

	start := time.Now()
	err := b.apply(ctx)
	store.BatchDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		var be *store.BatchError
		if errors.As(err, &be) {
			store.BatchesTotal.WithLabelValues(store.OutcomeFailed, be.Kind.String()).Inc()
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "batch failed")
		b.s.logger.Warn("batch failed", "batch_id", b.id, "ops", len(b.ops), "error", err)
		return err
	}

	store.BatchesTotal.WithLabelValues(store.OutcomeCommitted, "").Inc()
	store.BatchOps.Observe(float64(len(b.ops)))
	b.s.logger.Debug("batch committed", "batch_id", b.id, "ops", len(b.ops), "duration", time.Since(start))
	return nil
}

// Rollback discards the batch. It is safe to call after a failed Commit.
func (b *batch) Rollback() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	b.ops = nil
	store.BatchesTotal.WithLabelValues(store.OutcomeRolledBack, "").Inc()
	return nil
}

func (b *batch) apply(ctx context.Context) error {
	tx, err := b.s.db.BeginTx(ctx, nil)
	if err != nil {
		return b.fail(-1, store.Op{}, err)
	}
	defer tx.Rollback()

	hook := b.s.hook()
	now := formatTime(b.s.now())

	for i, op := range b.ops {
		if hook != nil {
			if err := hook(i, op); err != nil {
				return b.fail(i, op, err)
			}
		}
		if err := execOp(ctx, tx, op, now); err != nil {
			return b.fail(i, op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return b.fail(-1, store.Op{}, err)
	}
	return nil
}

func (b *batch) fail(index int, op store.Op, err error) error {
	return &store.BatchError{
		BatchID: b.id,
		Kind:    classify(err),
		Index:   index,
		Op:      op,
		Err:     err,
	}
}

// classify maps a driver error onto the batch failure taxonomy.
func classify(err error) store.FailureKind {
	if kind, ok := store.FailureOf(err); ok {
		return kind
	}
	if errors.Is(err, errMissingRow) {
		return store.FailureReferential
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"),
		strings.Contains(msg, "CHECK constraint failed"):
		return store.FailureConstraint
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return store.FailureReferential
	default:
		return store.FailureTransport
	}
}

func execOp(ctx context.Context, tx *sql.Tx, op store.Op, now string) error {
	table := quote(string(op.Collection))

	switch op.Kind {
	case store.OpCreate:
		fields := maps.Clone(op.Fields)
		if fields == nil {
			fields = map[string]any{}
		}
		fields[store.FieldID] = op.ID
		for _, ts := range []string{"created_at", "updated_at"} {
			if _, ok := fields[ts]; !ok && op.Collection.HasField(ts) {
				fields[ts] = now
			}
		}
		if op.Collection.HasField("permissions") && len(op.Permissions) > 0 {
			perms, err := json.Marshal(op.Permissions)
			if err != nil {
				return fmt.Errorf("marshal permissions: %w", err)
			}
			fields["permissions"] = string(perms)
		}

		cols := slices.Sorted(maps.Keys(fields))
		args := make([]any, len(cols))
		quoted := make([]string, len(cols))
		for i, c := range cols {
			quoted[i] = quote(c)
			args[i] = sqlValue(fields[c])
		}
		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			table, strings.Join(quoted, ", "), placeholders(len(cols)))
		_, err := tx.ExecContext(ctx, query, args...)
		return err

	case store.OpUpdate:
		fields := maps.Clone(op.Fields)
		if _, ok := fields["updated_at"]; !ok && op.Collection.HasField("updated_at") {
			fields["updated_at"] = now
		}

		cols := slices.Sorted(maps.Keys(fields))
		sets := make([]string, len(cols))
		args := make([]any, 0, len(cols)+1)
		for i, c := range cols {
			sets[i] = quote(c) + " = ?"
			args = append(args, sqlValue(fields[c]))
		}
		args = append(args, op.ID)
		query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", table, strings.Join(sets, ", "))
		return execOne(ctx, tx, query, args...)

	case store.OpDelete:
		return execOne(ctx, tx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", table), op.ID)

	case store.OpIncrement, store.OpDecrement:
		sign := "+"
		if op.Kind == store.OpDecrement {
			sign = "-"
		}
		col := quote(op.Field)
		query := fmt.Sprintf("UPDATE %s SET %s = %s %s ? WHERE id = ?", table, col, col, sign)
		return execOne(ctx, tx, query, op.Amount, op.ID)

	default:
		return fmt.Errorf("unknown op kind %d", int(op.Kind))
	}
}

// execOne runs a statement that must touch exactly one existing row.
func execOne(ctx context.Context, tx *sql.Tx, query string, args ...any) error {
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errMissingRow
	}
	return nil
}

// sqlValue converts domain values to driver values. Named string and
// integer types (domain.VoteType and friends) are reduced to their kind.
func sqlValue(v any) any {
	switch x := v.(type) {
	case nil, string, int64, float64, bool, []byte:
		return x
	case int:
		return int64(x)
	case time.Time:
		return formatTime(x)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Bool:
		return rv.Bool()
	default:
		return fmt.Sprint(v)
	}
}

func quote(ident string) string {
	return `"` + ident + `"`
}

func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
