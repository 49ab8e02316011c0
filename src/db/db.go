package db

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

/*
A general error to be used when no results are found. This is the error returned
by QueryOne, and can generally be used by other database helpers that fetch a single
result but find nothing.
*/
var NotFound = errors.New("not found")

// This interface should match both a pgx pool, a single connection, or a transaction.
type ConnOrTx interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)

	// Begin on a transaction creates a savepoint, which behaves like a
	// nested transaction. See the documentation of pgx.Tx.Begin.
	Begin(ctx context.Context) (pgx.Tx, error)
}

// IsUniqueViolation reports whether err came from a UNIQUE constraint. The
// constraint name is returned so callers can tell which field collided.
func IsUniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName, true
	}
	return "", false
}

// IsForeignKeyViolation is IsUniqueViolation for FOREIGN KEY constraints.
func IsForeignKeyViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return pgErr.ConstraintName, true
	}
	return "", false
}

/*
Performs a SQL query and returns a slice of all the result rows. T must be a
struct whose fields carry `db:"column"` tags. Use the $columns placeholder to
select exactly the tagged columns of T, or $columns{alias} to qualify them
with a table alias:

	db.Query[models.Comment](ctx, conn, `SELECT $columns{c} FROM comment AS c WHERE ...`)

Any query that returns a result set works, including INSERT ... RETURNING.
*/
func Query[T any](
	ctx context.Context,
	conn ConnOrTx,
	query string,
	args ...any,
) ([]*T, error) {
	var dest T
	rows, err := conn.Query(ctx, compileQuery(query, reflect.TypeOf(dest)), args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[T])
}

/*
Identical to Query, but returns only the first result row. If there are no
rows in the result set, returns NotFound.
*/
func QueryOne[T any](
	ctx context.Context,
	conn ConnOrTx,
	query string,
	args ...any,
) (*T, error) {
	var dest T
	rows, err := conn.Query(ctx, compileQuery(query, reflect.TypeOf(dest)), args...)
	if err != nil {
		return nil, err
	}
	result, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[T])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, NotFound
	}
	return result, err
}

/*
Identical to Query, but for a single column of a primitive type.
*/
func QueryScalar[T any](
	ctx context.Context,
	conn ConnOrTx,
	query string,
	args ...any,
) ([]T, error) {
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[T])
}

/*
Identical to QueryScalar, but returns only the first result value. If there
are no rows in the result set, returns NotFound.
*/
func QueryOneScalar[T any](
	ctx context.Context,
	conn ConnOrTx,
	query string,
	args ...any,
) (T, error) {
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		var zero T
		return zero, err
	}
	result, err := pgx.CollectOneRow(rows, pgx.RowTo[T])
	if errors.Is(err, pgx.ErrNoRows) {
		var zero T
		return zero, NotFound
	}
	return result, err
}

var reColumnsPlaceholder = regexp.MustCompile(`\$columns({(.*?)})?`)

func compileQuery(query string, destType reflect.Type) string {
	return reColumnsPlaceholder.ReplaceAllStringFunc(query, func(placeholder string) string {
		prefix := reColumnsPlaceholder.FindStringSubmatch(placeholder)[2]
		names := getColumnNames(destType)
		if prefix != "" {
			for i := range names {
				names[i] = prefix + "." + names[i]
			}
		}
		return strings.Join(names, ", ")
	})
}

var timeType = reflect.TypeOf(time.Time{})

/*
Returns the tagged column names of a flat struct. Anonymous embedded structs
are flattened, which matches how pgx maps rows onto structs by name.
*/
func getColumnNames(destType reflect.Type) []string {
	if destType.Kind() == reflect.Ptr {
		destType = destType.Elem()
	}
	if destType.Kind() != reflect.Struct || destType == timeType {
		panic(fmt.Errorf("$columns can only be used when querying into a struct, got '%v'", destType))
	}

	var names []string
	for _, field := range reflect.VisibleFields(destType) {
		if !field.IsExported() {
			continue
		}
		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			continue
		}
		tag := field.Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		names = append(names, tag)
	}
	return names
}
