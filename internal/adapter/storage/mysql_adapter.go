package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/rl1809/restopos/internal/core/domain"
	"github.com/rl1809/restopos/internal/port"
)

const (
	mysqlErrDuplicateEntry  = 1062
	mysqlErrRowIsReferenced = 1451
)

//go:embed schema.sql
var schemaSQL string

// MySQLAdapter stores orders, lines, transactions, tables and the menu. Every
// method is a single statement; multi-table consistency is the caller's job.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// Migrate creates the schema if it is missing.
func (m *MySQLAdapter) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func mysqlErrNumber(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

func (m *MySQLAdapter) CreateOrder(ctx context.Context, order domain.Order) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO orders (id, table_id, customer_name, note, status, total, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.TableID, order.CustomerName, order.Note, order.Status,
		int64(order.Total), order.CreatedAt.UTC(), order.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) CreateOrderLines(ctx context.Context, lines []domain.OrderLine) error {
	if len(lines) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO order_lines
		(id, order_id, menu_item_id, item_name, quantity, unit_price, subtotal, note, status) VALUES `)
	args := make([]any, 0, len(lines)*9)
	for i, l := range lines {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args, l.ID, l.OrderID, l.MenuItemID, l.ItemName, l.Quantity,
			int64(l.UnitPrice), int64(l.Subtotal), l.Note, l.Status)
	}

	if _, err := m.db.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("insert order lines: %w", err)
	}
	return nil
}

const orderColumns = `id, table_id, customer_name, note, status, total, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (domain.Order, error) {
	var o domain.Order
	var total int64
	err := row.Scan(&o.ID, &o.TableID, &o.CustomerName, &o.Note, &o.Status, &total, &o.CreatedAt, &o.UpdatedAt)
	o.Total = domain.Money(total)
	return o, err
}

func (m *MySQLAdapter) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	o, err := scanOrder(m.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}
	return &o, nil
}

func (m *MySQLAdapter) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	var conds []string
	var args []any
	if filter.TableID != "" {
		conds = append(conds, "table_id = ?")
		args = append(args, filter.TableID)
	}
	if len(filter.Statuses) > 0 {
		conds = append(conds, "status IN ("+placeholders(len(filter.Statuses))+")")
		for _, s := range filter.Statuses {
			args = append(args, s)
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at, id"

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (m *MySQLAdapter) ListOrderLines(ctx context.Context, orderID string) ([]domain.OrderLine, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, order_id, menu_item_id, item_name, quantity, unit_price, subtotal, note, status
		FROM order_lines WHERE order_id = ? ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order lines: %w", err)
	}
	defer rows.Close()

	var out []domain.OrderLine
	for rows.Next() {
		var l domain.OrderLine
		var unit, subtotal int64
		if err := rows.Scan(&l.ID, &l.OrderID, &l.MenuItemID, &l.ItemName, &l.Quantity,
			&unit, &subtotal, &l.Note, &l.Status); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		l.UnitPrice = domain.Money(unit)
		l.Subtotal = domain.Money(subtotal)
		out = append(out, l)
	}
	return out, rows.Err()
}

func (m *MySQLAdapter) UpdateOrderStatus(ctx context.Context, id string, from []domain.OrderStatus, to domain.OrderStatus) (bool, error) {
	if len(from) == 0 {
		return false, nil
	}
	args := []any{to, time.Now().UTC(), id}
	for _, s := range from {
		args = append(args, s)
	}

	result, err := m.db.ExecContext(ctx, `
		UPDATE orders SET status = ?, updated_at = ?
		WHERE id = ? AND status IN (`+placeholders(len(from))+`)`, args...)
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if rows > 0 {
		return true, nil
	}

	// MySQL reports 0 affected rows when nothing changed, which also happens
	// for an allowed no-op such as selesai -> selesai.
	var current domain.OrderStatus
	err = m.db.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query order status: %w", err)
	}
	if current != to {
		return false, nil
	}
	for _, s := range from {
		if s == to {
			return true, nil
		}
	}
	return false, nil
}

func (m *MySQLAdapter) UpdateLineStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	_, err := m.db.ExecContext(ctx, `UPDATE order_lines SET status = ? WHERE order_id = ?`, status, orderID)
	if err != nil {
		return fmt.Errorf("update line status: %w", err)
	}
	return nil
}

// DeleteOrder removes the order; its lines go with it through ON DELETE CASCADE.
func (m *MySQLAdapter) DeleteOrder(ctx context.Context, id string) error {
	_, err := m.db.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id)
	if mysqlErrNumber(err) == mysqlErrRowIsReferenced {
		return port.ErrOrderReferenced
	}
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) CreateTransaction(ctx context.Context, tx domain.Transaction) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO transactions (id, order_id, operator_id, method, total, tendered, change_due, paid_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.OrderID, tx.OperatorID, tx.Method,
		int64(tx.Total), int64(tx.Tendered), int64(tx.Change), tx.PaidAt.UTC(),
	)
	if mysqlErrNumber(err) == mysqlErrDuplicateEntry {
		return port.ErrDuplicateTransaction
	}
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) GetTransactionByOrder(ctx context.Context, orderID string) (*domain.Transaction, error) {
	var tx domain.Transaction
	var total, tendered, change int64
	err := m.db.QueryRowContext(ctx, `
		SELECT id, order_id, operator_id, method, total, tendered, change_due, paid_at
		FROM transactions WHERE order_id = ?`, orderID,
	).Scan(&tx.ID, &tx.OrderID, &tx.OperatorID, &tx.Method, &total, &tendered, &change, &tx.PaidAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query transaction: %w", err)
	}

	tx.Total = domain.Money(total)
	tx.Tendered = domain.Money(tendered)
	tx.Change = domain.Money(change)
	return &tx, nil
}

func (m *MySQLAdapter) GetMenuItem(ctx context.Context, id string) (*domain.MenuItem, error) {
	var item domain.MenuItem
	var price int64
	err := m.db.QueryRowContext(ctx, `
		SELECT id, name, price, category, available FROM menu_items WHERE id = ?`, id,
	).Scan(&item.ID, &item.Name, &price, &item.Category, &item.Available)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query menu item: %w", err)
	}
	item.Price = domain.Money(price)
	return &item, nil
}

func (m *MySQLAdapter) UpsertMenuItem(ctx context.Context, item domain.MenuItem) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO menu_items (id, name, price, category, available) VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE name = VALUES(name), price = VALUES(price),
			category = VALUES(category), available = VALUES(available)`,
		item.ID, item.Name, int64(item.Price), item.Category, item.Available,
	)
	if err != nil {
		return fmt.Errorf("upsert menu item: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) ListTables(ctx context.Context) ([]domain.Table, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT id, name FROM dining_tables ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var out []domain.Table
	for rows.Next() {
		var t domain.Table
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (m *MySQLAdapter) GetTable(ctx context.Context, id string) (*domain.Table, error) {
	var t domain.Table
	err := m.db.QueryRowContext(ctx, `SELECT id, name FROM dining_tables WHERE id = ?`, id).Scan(&t.ID, &t.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query table: %w", err)
	}
	return &t, nil
}

func (m *MySQLAdapter) UpsertTable(ctx context.Context, t domain.Table) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO dining_tables (id, name) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE name = VALUES(name)`, t.ID, t.Name)
	if err != nil {
		return fmt.Errorf("upsert table: %w", err)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
