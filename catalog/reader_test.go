package catalog

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger 模拟日志记录器
type mockLogger struct{}

func (l *mockLogger) Debug(msg string, fields ...any) {}
func (l *mockLogger) Info(msg string, fields ...any)  {}
func (l *mockLogger) Warn(msg string, fields ...any)  {}
func (l *mockLogger) Error(msg string, fields ...any) {}
func (l *mockLogger) Fatal(msg string, fields ...any) {}

func newMockReader(t *testing.T) (*MySQLCatalogReader, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &MySQLCatalogReader{db: db, logger: &mockLogger{}}, mock
}

func TestMySQLCatalogReader_ListTables(t *testing.T) {
	reader, mock := newMockReader(t)

	rows := sqlmock.NewRows([]string{"TABLE_NAME", "TABLE_COMMENT"}).
		AddRow("vehicle_info", "车辆信息").
		AddRow("driver_info", "司机信息表")

	mock.ExpectQuery("SELECT TABLE_NAME, TABLE_COMMENT.*FROM information_schema.TABLES").
		WithArgs("fleet").
		WillReturnRows(rows)

	tables, err := reader.ListTables(context.Background(), "fleet")
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "vehicle_info", tables[0].Name)
	assert.Equal(t, "车辆信息", tables[0].Comment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLCatalogReader_ListColumns(t *testing.T) {
	reader, mock := newMockReader(t)

	rows := sqlmock.NewRows([]string{"TABLE_NAME", "COLUMN_NAME", "COLUMN_COMMENT", "DATA_TYPE"}).
		AddRow("vehicle_info", "plate_no", "车牌号", "varchar").
		AddRow("vehicle_info", "owner_id", "车主ID", "bigint")

	mock.ExpectQuery("SELECT TABLE_NAME, COLUMN_NAME, COLUMN_COMMENT, DATA_TYPE.*FROM information_schema.COLUMNS").
		WithArgs("fleet", "CREATE_USER", "CREATE_TIME", "UPDATE_USER", "UPDATE_TIME").
		WillReturnRows(rows)

	columns, err := reader.ListColumns(context.Background(), "fleet")
	require.NoError(t, err)
	require.Len(t, columns, 2)
	assert.Equal(t, "vehicle_info", columns[0].Table)
	assert.Equal(t, "plate_no", columns[0].Name)
	assert.Equal(t, "varchar", columns[0].DataType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLCatalogReader_ListForeignKeys(t *testing.T) {
	reader, mock := newMockReader(t)

	rows := sqlmock.NewRows([]string{
		"TABLE_NAME", "COLUMN_NAME", "REFERENCED_TABLE_NAME", "REFERENCED_COLUMN_NAME",
	}).AddRow("orders", "customer_id", "customers", "id")

	mock.ExpectQuery("SELECT TABLE_NAME, COLUMN_NAME, REFERENCED_TABLE_NAME, REFERENCED_COLUMN_NAME.*FROM information_schema.KEY_COLUMN_USAGE").
		WithArgs("fleet").
		WillReturnRows(rows)

	fks, err := reader.ListForeignKeys(context.Background(), "fleet")
	require.NoError(t, err)
	require.Len(t, fks, 1)
	assert.Equal(t, "orders", fks[0].Table)
	assert.Equal(t, "customer_id", fks[0].Column)
	assert.Equal(t, "customers", fks[0].RefTable)
	assert.Equal(t, "id", fks[0].RefColumn)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLCatalogReader_ListTables_QueryError(t *testing.T) {
	reader, mock := newMockReader(t)

	mock.ExpectQuery("SELECT TABLE_NAME, TABLE_COMMENT.*FROM information_schema.TABLES").
		WithArgs("fleet").
		WillReturnError(assert.AnError)

	_, err := reader.ListTables(context.Background(), "fleet")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CATALOG_QUERY_FAILED")
}

func TestMySQLCatalogReader_ValidateConnection(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	reader := &MySQLCatalogReader{db: db, logger: &mockLogger{}}
	mock.ExpectPing()

	assert.NoError(t, reader.ValidateConnection(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
