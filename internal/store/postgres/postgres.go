package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"kedaikopi/backend/internal/domain"
	"kedaikopi/backend/internal/store"
	"kedaikopi/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name
		FROM categories
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]domain.Category, 0, 16)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *Store) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, store.ErrValidation
	}

	created := domain.Category{ID: xid.New("cat"), Name: name}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, created_at)
		VALUES ($1,$2,now())
	`, created.ID, created.Name)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrValidation
		}
		return nil, err
	}
	return &created, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.category_id, COALESCE(c.name,''), p.name, p.price_cents, p.stock, p.low_stock, p.active
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.active = true
		ORDER BY c.name, p.name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.CategoryID, &p.Category, &p.Name, &p.PriceCents, &p.Stock, &p.LowStock, &p.Active); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) ListProductsByCategory(ctx context.Context, categoryID string) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.category_id, COALESCE(c.name,''), p.name, p.price_cents, p.stock, p.low_stock, p.active
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.active = true AND p.category_id = $1
		ORDER BY p.name
	`, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 32)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.CategoryID, &p.Category, &p.Name, &p.PriceCents, &p.Stock, &p.LowStock, &p.Active); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT p.id, p.category_id, COALESCE(c.name,''), p.name, p.price_cents, p.stock, p.low_stock, p.active
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.id = $1
	`, productID).Scan(&p.ID, &p.CategoryID, &p.Category, &p.Name, &p.PriceCents, &p.Stock, &p.LowStock, &p.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetProductsByIDs(ctx context.Context, productIDs []string) (map[string]domain.Product, error) {
	result := make(map[string]domain.Product, len(productIDs))
	if len(productIDs) == 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.category_id, COALESCE(c.name,''), p.name, p.price_cents, p.stock, p.low_stock, p.active
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.id = ANY($1)
	`, productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.CategoryID, &p.Category, &p.Name, &p.PriceCents, &p.Stock, &p.LowStock, &p.Active); err != nil {
			return nil, err
		}
		result[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.PriceCents < 1 || product.Stock < 0 {
		return nil, store.ErrValidation
	}
	if product.ID == "" {
		product.ID = xid.New("prd")
	}
	product.Active = true

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, category_id, name, price_cents, stock, low_stock, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,now(),now())
	`, product.ID, nullIfEmpty(product.CategoryID), product.Name, product.PriceCents, product.Stock, product.LowStock, product.Active)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrValidation
		}
		if isForeignKeyViolation(err) {
			return nil, store.ErrValidation
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" || product.PriceCents < 1 || product.Stock < 0 {
		return nil, store.ErrValidation
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET category_id = $2, name = $3, price_cents = $4, stock = $5, low_stock = $6, active = $7, updated_at = now()
		WHERE id = $1
	`, product.ID, nullIfEmpty(product.CategoryID), product.Name, product.PriceCents, product.Stock, product.LowStock, product.Active)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrValidation
		}
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	updated := product
	return &updated, nil
}

func (s *Store) CategorySiblings(ctx context.Context, productIDs []string) ([]domain.Product, error) {
	if len(productIDs) == 0 {
		return []domain.Product{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.category_id, COALESCE(c.name,''), p.name, p.price_cents, p.stock, p.low_stock, p.active
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.active = true
			AND p.category_id IN (
				SELECT DISTINCT category_id FROM products
				WHERE id = ANY($1) AND category_id IS NOT NULL
			)
			AND NOT (p.id = ANY($1))
		ORDER BY p.name
	`, productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	siblings := make([]domain.Product, 0, 16)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.CategoryID, &p.Category, &p.Name, &p.PriceCents, &p.Stock, &p.LowStock, &p.Active); err != nil {
			return nil, err
		}
		siblings = append(siblings, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return siblings, nil
}

func (s *Store) TopSellers(ctx context.Context, limit int) ([]domain.ProductSales, error) {
	if limit < 1 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT oi.product_id, COALESCE(p.name, oi.name), SUM(oi.qty)::int, COALESCE(SUM(oi.subtotal_cents),0)::bigint
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE o.status = $1
		GROUP BY oi.product_id, COALESCE(p.name, oi.name)
		ORDER BY SUM(oi.qty) DESC, oi.product_id ASC
		LIMIT $2
	`, domain.OrderStatusCompleted, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sellers := make([]domain.ProductSales, 0, limit)
	for rows.Next() {
		var row domain.ProductSales
		if err := rows.Scan(&row.ProductID, &row.Name, &row.QtySold, &row.TotalSalesCents); err != nil {
			return nil, err
		}
		sellers = append(sellers, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sellers, nil
}

func (s *Store) CreateDraft(ctx context.Context, draft domain.Draft) (*domain.Draft, error) {
	if strings.TrimSpace(draft.Title) == "" {
		return nil, store.ErrValidation
	}
	if draft.ID == "" {
		draft.ID = xid.New("draft")
	}
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO drafts (id, title, payload, total_cents, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, draft.ID, draft.Title, draft.Payload, draft.TotalCents, draft.CreatedAt)
	if err != nil {
		return nil, err
	}
	created := draft
	return &created, nil
}

func (s *Store) ListDrafts(ctx context.Context) ([]domain.DraftSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, total_cents, created_at
		FROM drafts
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]domain.DraftSummary, 0, 32)
	for rows.Next() {
		var d domain.DraftSummary
		if err := rows.Scan(&d.ID, &d.Title, &d.TotalCents, &d.CreatedAt); err != nil {
			return nil, err
		}
		d.CreatedAt = d.CreatedAt.UTC()
		summaries = append(summaries, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return summaries, nil
}

func (s *Store) PopDraft(ctx context.Context, draftID string) (*domain.Draft, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var draft domain.Draft
	err = tx.QueryRowContext(ctx, `
		SELECT id, title, payload, total_cents, created_at
		FROM drafts
		WHERE id = $1
		FOR UPDATE
	`, draftID).Scan(&draft.ID, &draft.Title, &draft.Payload, &draft.TotalCents, &draft.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	draft.CreatedAt = draft.CreatedAt.UTC()

	res, err := tx.ExecContext(ctx, `DELETE FROM drafts WHERE id = $1`, draftID)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &draft, nil
}

func (s *Store) DeleteDraft(ctx context.Context, draftID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE id = $1`, draftID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteAllDrafts(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM drafts`)
	return err
}

func (s *Store) CreateOrder(ctx context.Context, order domain.Order) (*domain.Order, error) {
	if strings.TrimSpace(order.CustomerName) == "" || len(order.Items) == 0 {
		return nil, store.ErrValidation
	}
	if order.ID == "" {
		order.ID = xid.New("order")
	}
	if order.StartedAt.IsZero() {
		order.StartedAt = time.Now().UTC()
	}
	if order.Status != domain.OrderStatusPending && order.EndedAt == nil {
		ended := order.StartedAt
		order.EndedAt = &ended
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, started_at, ended_at, cashier_id, customer_name, payment_method, status,
			reference_no, subtotal_cents, discount_cents, tax_cents, total_cents,
			amount_paid_cents, cash_received_cents, change_due_cents
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`, order.ID, order.StartedAt, nullTime(order.EndedAt), order.CashierID, order.CustomerName,
		order.PaymentMethod, order.Status, nullIfEmpty(order.ReferenceNo), order.SubtotalCents,
		order.DiscountCents, order.TaxCents, order.TotalCents, order.AmountPaidCents,
		order.CashReceivedCents, order.ChangeDueCents)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrValidation
		}
		return nil, err
	}

	items := make([]domain.OrderItem, 0, len(order.Items))
	for _, item := range order.Items {
		if item.ProductID == "" || item.Qty < 1 {
			return nil, store.ErrValidation
		}
		item.OrderID = order.ID
		item.SubtotalCents = int64(item.Qty) * item.UnitPriceCents
		_, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, name, qty, unit_price_cents, subtotal_cents, note)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, item.OrderID, item.ProductID, item.Name, item.Qty, item.UnitPriceCents, item.SubtotalCents, item.Note)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	order.Items = items

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created := order
	return &created, nil
}

func (s *Store) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	var order domain.Order
	var endedAt sql.NullTime
	var referenceNo sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, ended_at, cashier_id, customer_name, payment_method, status,
			reference_no, subtotal_cents, discount_cents, tax_cents, total_cents,
			amount_paid_cents, cash_received_cents, change_due_cents
		FROM orders
		WHERE id = $1
	`, orderID).Scan(
		&order.ID,
		&order.StartedAt,
		&endedAt,
		&order.CashierID,
		&order.CustomerName,
		&order.PaymentMethod,
		&order.Status,
		&referenceNo,
		&order.SubtotalCents,
		&order.DiscountCents,
		&order.TaxCents,
		&order.TotalCents,
		&order.AmountPaidCents,
		&order.CashReceivedCents,
		&order.ChangeDueCents,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	order.StartedAt = order.StartedAt.UTC()
	if endedAt.Valid {
		ended := endedAt.Time.UTC()
		order.EndedAt = &ended
	}
	if referenceNo.Valid {
		order.ReferenceNo = referenceNo.String
	}

	items, err := s.GetOrderItems(ctx, orderID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	order.Items = items
	return &order, nil
}

func (s *Store) GetOrderItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT order_id, product_id, name, qty, unit_price_cents, subtotal_cents, note
		FROM order_items
		WHERE order_id = $1
		ORDER BY id ASC
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0, 8)
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.OrderID, &item.ProductID, &item.Name, &item.Qty, &item.UnitPriceCents, &item.SubtotalCents, &item.Note); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.OrderListRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.id, o.started_at, o.ended_at, o.payment_method, o.status,
			COALESCE(SUM(oi.qty),0)::int, o.total_cents, o.amount_paid_cents, o.change_due_cents
		FROM orders o
		LEFT JOIN order_items oi ON oi.order_id = o.id
		WHERE ($1 = '' OR o.id LIKE '%' || $1 || '%')
			AND ($2 = '' OR o.status = $2)
			AND ($3 = '' OR o.payment_method = $3)
			AND ($4::timestamptz IS NULL OR o.started_at >= $4)
			AND ($5::timestamptz IS NULL OR o.started_at < $5)
		GROUP BY o.id
		ORDER BY o.started_at DESC, o.id DESC
	`, filter.IDLike, filter.Status, filter.PaymentMethod, nullTime(filter.From), nullTime(filter.To))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.OrderListRow, 0, 64)
	for rows.Next() {
		var row domain.OrderListRow
		var endedAt sql.NullTime
		if err := rows.Scan(&row.OrderID, &row.StartedAt, &endedAt, &row.PaymentMethod, &row.Status, &row.ItemCount, &row.TotalCents, &row.AmountPaid, &row.ChangeDue); err != nil {
			return nil, err
		}
		row.StartedAt = row.StartedAt.UTC()
		if endedAt.Valid {
			ended := endedAt.Time.UTC()
			row.EndedAt = &ended
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ResolveOrder completes a pending order. The UPDATE is guarded on the
// current status so a concurrent resolve or cancel cannot double-settle;
// zero rows affected means either a missing order or a non-pending one,
// and the follow-up lookup tells the two apart.
func (s *Store) ResolveOrder(ctx context.Context, orderID string, referenceNo string, amountPaidCents int64, at time.Time) (*domain.Order, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $2, reference_no = $3, amount_paid_cents = $4, cash_received_cents = $4, ended_at = $5
		WHERE id = $1 AND status = $6
	`, orderID, domain.OrderStatusCompleted, nullIfEmpty(strings.TrimSpace(referenceNo)), amountPaidCents, at, domain.OrderStatusPending)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		if _, lookupErr := s.GetOrder(ctx, orderID); errors.Is(lookupErr, store.ErrNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, store.ErrInvalidTransition
	}
	return s.GetOrder(ctx, orderID)
}

// CancelOrder cancels a pending order under the same status guard.
func (s *Store) CancelOrder(ctx context.Context, orderID string, at time.Time) (*domain.Order, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $2, ended_at = $3
		WHERE id = $1 AND status = $4
	`, orderID, domain.OrderStatusCancelled, at, domain.OrderStatusPending)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		if _, lookupErr := s.GetOrder(ctx, orderID); errors.Is(lookupErr, store.ErrNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, store.ErrInvalidTransition
	}
	return s.GetOrder(ctx, orderID)
}

func (s *Store) CountOrdersByStatus(ctx context.Context, status string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)::int
		FROM orders
		WHERE status = $1
	`, status).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) SalesSummary(ctx context.Context, from time.Time, to time.Time) (domain.SalesSummary, error) {
	var summary domain.SalesSummary
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)::int, COALESCE(SUM(total_cents),0)::bigint
		FROM orders
		WHERE status = $1
			AND started_at >= $2
			AND started_at < $3
	`, domain.OrderStatusCompleted, from, to).Scan(&summary.OrderCount, &summary.TotalSalesCents)
	if err != nil {
		return summary, err
	}
	return summary, nil
}

func (s *Store) ListRecentOrders(ctx context.Context, limit int) ([]domain.OrderListRow, error) {
	if limit < 1 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT o.id, o.started_at, o.ended_at, o.payment_method, o.status,
			COALESCE(SUM(oi.qty),0)::int, o.total_cents, o.amount_paid_cents, o.change_due_cents
		FROM orders o
		LEFT JOIN order_items oi ON oi.order_id = o.id
		GROUP BY o.id
		ORDER BY o.started_at DESC, o.id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.OrderListRow, 0, limit)
	for rows.Next() {
		var row domain.OrderListRow
		var endedAt sql.NullTime
		if err := rows.Scan(&row.OrderID, &row.StartedAt, &endedAt, &row.PaymentMethod, &row.Status, &row.ItemCount, &row.TotalCents, &row.AmountPaid, &row.ChangeDue); err != nil {
			return nil, err
		}
		row.StartedAt = row.StartedAt.UTC()
		if endedAt.Valid {
			ended := endedAt.Time.UTC()
			row.EndedAt = &ended
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) BestSellersSince(ctx context.Context, since time.Time, limit int) ([]domain.ProductSales, error) {
	if limit < 1 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT oi.product_id, COALESCE(p.name, oi.name), SUM(oi.qty)::int, COALESCE(SUM(oi.subtotal_cents),0)::bigint
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE o.status = $1 AND o.started_at >= $2
		GROUP BY oi.product_id, COALESCE(p.name, oi.name)
		ORDER BY SUM(oi.qty) DESC, oi.product_id ASC
		LIMIT $3
	`, domain.OrderStatusCompleted, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sellers := make([]domain.ProductSales, 0, limit)
	for rows.Next() {
		var row domain.ProductSales
		if err := rows.Scan(&row.ProductID, &row.Name, &row.QtySold, &row.TotalSalesCents); err != nil {
			return nil, err
		}
		sellers = append(sellers, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sellers, nil
}

func (s *Store) CompletedOrderItemRefs(ctx context.Context, lastNOrders int) ([]domain.OrderItemRef, error) {
	if lastNOrders < 1 {
		lastNOrders = 300
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT oi.order_id, oi.product_id
		FROM order_items oi
		JOIN (
			SELECT id FROM orders
			WHERE status = $1
			ORDER BY started_at DESC, id DESC
			LIMIT $2
		) recent ON recent.id = oi.order_id
	`, domain.OrderStatusCompleted, lastNOrders)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refs := make([]domain.OrderItemRef, 0, lastNOrders*2)
	for rows.Next() {
		var ref domain.OrderItemRef
		if err := rows.Scan(&ref.OrderID, &ref.ProductID); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return refs, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrValidation
	}
	if user.Role == "" {
		user.Role = "cashier"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, password, role, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrValidation
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM app_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrValidation
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullTime(val *time.Time) any {
	if val == nil {
		return nil
	}
	return *val
}
