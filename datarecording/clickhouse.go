package datarecording

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/fatih/structs"
	"github.com/hashicorp/go-multierror"
	"github.com/tebeka/atexit"
)

// ClickHouseOptions tells NewClickHouse where to connect.
type ClickHouseOptions struct {
	Addr      string
	Database  string
	Username  string
	Password  string
	BatchSize int
}

type clickHouseTable struct {
	structType reflect.Type
	entries    []any
}

// ClickHouseRecorder is a DataRecorder that writes to a ClickHouse server.
type ClickHouseRecorder struct {
	conn      clickhouse.Conn
	mu        sync.Mutex
	batchSize int

	tables     map[string]*clickHouseTable
	tableOrder []string
	entryCount int
	closed     bool
}

var openClickHouse = clickhouse.Open

// NewClickHouse connects to a ClickHouse server.
func NewClickHouse(opts ClickHouseOptions) (*ClickHouseRecorder, error) {
	if opts.BatchSize == 0 {
		opts.BatchSize = 100000
	}

	conn, err := openClickHouse(&clickhouse.Options{
		Addr: []string{opts.Addr},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
		DialTimeout:  time.Second * 30,
		MaxOpenConns: 5,
		MaxIdleConns: 5,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	r := &ClickHouseRecorder{
		conn:      conn,
		batchSize: opts.BatchSize,
		tables:    make(map[string]*clickHouseTable),
	}

	atexit.Register(func() { r.Close() })

	return r, nil
}

var clickHouseTypes = map[reflect.Kind]string{
	reflect.Bool:    "Bool",
	reflect.Int:     "Int64",
	reflect.Int8:    "Int8",
	reflect.Int16:   "Int16",
	reflect.Int32:   "Int32",
	reflect.Int64:   "Int64",
	reflect.Uint:    "UInt64",
	reflect.Uint8:   "UInt8",
	reflect.Uint16:  "UInt16",
	reflect.Uint32:  "UInt32",
	reflect.Uint64:  "UInt64",
	reflect.Float32: "Float32",
	reflect.Float64: "Float64",
	reflect.String:  "String",
}

// clickHouseSchema builds the CREATE TABLE statement for the struct type of
// sample. Rows are ordered by the first column.
func clickHouseSchema(tableName string, sample any) (string, error) {
	if err := checkStructFields(sample); err != nil {
		return "", err
	}

	t := reflect.TypeOf(sample)
	columns := make([]string, 0, t.NumField())

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		columns = append(columns,
			field.Name+" "+clickHouseTypes[field.Type.Kind()])
	}

	orderBy := "tuple()"
	if t.NumField() > 0 {
		orderBy = t.Field(0).Name
	}

	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n\t%s\n) ENGINE = MergeTree()\nORDER BY %s",
		tableName, strings.Join(columns, ",\n\t"), orderBy,
	), nil
}

// CreateTable creates a MergeTree table with one column per struct field.
func (r *ClickHouseRecorder) CreateTable(tableName string, sampleEntry any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	createSQL, err := clickHouseSchema(tableName, sampleEntry)
	if err != nil {
		return err
	}

	if err := r.conn.Exec(context.Background(), createSQL); err != nil {
		return fmt.Errorf("failed to create table %s: %w", tableName, err)
	}

	r.tables[tableName] = &clickHouseTable{
		structType: reflect.TypeOf(sampleEntry),
	}
	r.tableOrder = append(r.tableOrder, tableName)

	return nil
}

// InsertData buffers an entry until the next flush.
func (r *ClickHouseRecorder) InsertData(tableName string, entry any) error {
	r.mu.Lock()

	table, exists := r.tables[tableName]
	if !exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrTableNotFound, tableName)
	}

	if reflect.TypeOf(entry) != table.structType {
		r.mu.Unlock()
		return fmt.Errorf("entry of type %T does not match table %s",
			entry, tableName)
	}

	table.entries = append(table.entries, entry)
	r.entryCount++

	full := r.entryCount >= r.batchSize
	r.mu.Unlock()

	if full {
		return r.Flush()
	}

	return nil
}

// ListTables returns all table names in creation order.
func (r *ClickHouseRecorder) ListTables() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	tables := make([]string, len(r.tableOrder))
	copy(tables, r.tableOrder)

	return tables
}

// Flush sends one batch per table.
func (r *ClickHouseRecorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entryCount == 0 {
		return nil
	}

	ctx := context.Background()

	for _, tableName := range r.tableOrder {
		table := r.tables[tableName]
		if len(table.entries) == 0 {
			continue
		}

		batch, err := r.conn.PrepareBatch(ctx, "INSERT INTO "+tableName)
		if err != nil {
			return fmt.Errorf("prepare batch for %s: %w", tableName, err)
		}

		for _, entry := range table.entries {
			if err := batch.Append(structs.Values(entry)...); err != nil {
				return fmt.Errorf("append to %s: %w", tableName, err)
			}
		}

		if err := batch.Send(); err != nil {
			return fmt.Errorf("send batch for %s: %w", tableName, err)
		}

		r.entryCount -= len(table.entries)
		table.entries = nil
	}

	return nil
}

// Close flushes the remaining entries and closes the connection.
func (r *ClickHouseRecorder) Close() error {
	if r.closed {
		return nil
	}

	r.closed = true

	flushErr := r.Flush()
	closeErr := r.conn.Close()

	return multierror.Append(flushErr, closeErr).ErrorOrNil()
}
