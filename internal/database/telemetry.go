package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/RamiAloui/Procurement-Sourcing-Expert-Agent/internal/telemetry"
)

// Querier is the read surface shared by pgxpool.Pool, pgx.Tx and pgxmock.
type Querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// TracedDB wraps a Querier and opens a span per statement.
type TracedDB struct {
	db     Querier
	tracer trace.Tracer
}

// NewTracedDB creates a new traced database connection
func NewTracedDB(db Querier) *TracedDB {
	return &TracedDB{
		db:     db,
		tracer: telemetry.GetTracer(telemetry.ServiceName + "/database"),
	}
}

// NewTracedDBWithTracer is NewTracedDB with an explicit tracer.
func NewTracedDBWithTracer(db Querier, tracer trace.Tracer) *TracedDB {
	return &TracedDB{db: db, tracer: tracer}
}

// Query executes a query inside a span.
func (db *TracedDB) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	ctx, span := db.startSpan(ctx, "db.query", sql)
	defer span.End()

	rows, err := db.db.Query(ctx, sql, args...)
	RecordDatabaseError(span, err)
	return rows, err
}

// QueryRow executes a query that returns a single row. Errors surface on
// Scan, so the span only covers dispatch.
func (db *TracedDB) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	ctx, span := db.startSpan(ctx, "db.query_row", sql)
	defer span.End()

	return db.db.QueryRow(ctx, sql, args...)
}

func (db *TracedDB) startSpan(ctx context.Context, name, sql string) (context.Context, trace.Span) {
	ctx, span := db.tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient))
	AddDatabaseSpanAttributes(span, sql)
	return ctx, span
}

// RecordDatabaseError marks span failed when err is set.
func RecordDatabaseError(span trace.Span, err error) {
	telemetry.RecordError(span, err)
}

// AddDatabaseSpanAttributes tags span with the statement being run.
func AddDatabaseSpanAttributes(span trace.Span, sql string) {
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.statement", sql),
	)
}
