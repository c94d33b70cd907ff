package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"kedaikopi/backend/internal/domain"
	"kedaikopi/backend/internal/store"
	"kedaikopi/backend/internal/xid"
)

// Store is the in-memory repository used for dev/demo mode and tests.
// Handlers run concurrently, so every method takes the lock even though a
// single outlet has one logical writer.
type Store struct {
	mu              sync.RWMutex
	categoriesByID  map[string]domain.Category
	productsByID    map[string]domain.Product
	draftsByID      map[string]domain.Draft
	ordersByID      map[string]*domain.Order
	usersByUsername map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials come from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD; if
// unset, hardcoded dev defaults are used with a warning. Production runs
// against PostgreSQL where accounts are provisioned separately.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"cashier", cashierPwd, "cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	categories := []domain.Category{
		{ID: "cat-coffee", Name: "Coffee"},
		{ID: "cat-tea", Name: "Tea"},
		{ID: "cat-pastry", Name: "Pastry"},
		{ID: "cat-snack", Name: "Snack"},
	}

	products := []domain.Product{
		{ID: "COF-ESP-01", CategoryID: "cat-coffee", Name: "Espresso", PriceCents: 1800, Stock: 80, LowStock: 10, Active: true},
		{ID: "COF-AME-01", CategoryID: "cat-coffee", Name: "Americano", PriceCents: 2200, Stock: 80, LowStock: 10, Active: true},
		{ID: "COF-LAT-01", CategoryID: "cat-coffee", Name: "Cafe Latte", PriceCents: 2800, Stock: 80, LowStock: 10, Active: true},
		{ID: "COF-CAP-01", CategoryID: "cat-coffee", Name: "Cappuccino", PriceCents: 2800, Stock: 80, LowStock: 10, Active: true},
		{ID: "TEA-JAS-01", CategoryID: "cat-tea", Name: "Jasmine Tea", PriceCents: 1600, Stock: 60, LowStock: 10, Active: true},
		{ID: "TEA-LEM-01", CategoryID: "cat-tea", Name: "Lemon Tea", PriceCents: 1800, Stock: 60, LowStock: 10, Active: true},
		{ID: "PAS-CRO-01", CategoryID: "cat-pastry", Name: "Butter Croissant", PriceCents: 2400, Stock: 40, LowStock: 8, Active: true},
		{ID: "PAS-DON-01", CategoryID: "cat-pastry", Name: "Sugar Donut", PriceCents: 1500, Stock: 40, LowStock: 8, Active: true},
		{ID: "SNK-CHI-01", CategoryID: "cat-snack", Name: "Potato Chips", PriceCents: 1200, Stock: 50, LowStock: 10, Active: true},
		{ID: "SNK-COO-01", CategoryID: "cat-snack", Name: "Choco Cookie", PriceCents: 1400, Stock: 50, LowStock: 10, Active: true},
	}

	categoryMap := make(map[string]domain.Category, len(categories))
	for _, c := range categories {
		categoryMap[c.ID] = c
	}
	productMap := make(map[string]domain.Product, len(products))
	for _, p := range products {
		productMap[p.ID] = p
	}

	return &Store{
		categoriesByID:  categoryMap,
		productsByID:    productMap,
		draftsByID:      make(map[string]domain.Draft),
		ordersByID:      make(map[string]*domain.Order),
		usersByUsername: seedUsers(),
	}
}

func (s *Store) ListCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := make([]domain.Category, 0, len(s.categoriesByID))
	for _, c := range s.categoriesByID {
		categories = append(categories, c)
	}
	slices.SortFunc(categories, func(a, b domain.Category) int {
		return strings.Compare(a.Name, b.Name)
	})
	return categories, nil
}

func (s *Store) CreateCategory(_ context.Context, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.categoriesByID {
		if strings.EqualFold(c.Name, name) {
			return nil, store.ErrValidation
		}
	}

	created := domain.Category{ID: xid.New("cat"), Name: name}
	s.categoriesByID[created.ID] = created
	return &created, nil
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.productsByID))
	for _, p := range s.productsByID {
		if !p.Active {
			continue
		}
		p.Category = s.categoriesByID[p.CategoryID].Name
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Category == b.Category {
			return strings.Compare(a.Name, b.Name)
		}
		return strings.Compare(a.Category, b.Category)
	})
	return products, nil
}

func (s *Store) ListProductsByCategory(_ context.Context, categoryID string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, 16)
	for _, p := range s.productsByID {
		if p.CategoryID != categoryID || !p.Active {
			continue
		}
		p.Category = s.categoriesByID[p.CategoryID].Name
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		return strings.Compare(a.Name, b.Name)
	})
	return products, nil
}

func (s *Store) GetProduct(_ context.Context, productID string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.productsByID[productID]
	if !ok {
		return nil, store.ErrNotFound
	}
	p.Category = s.categoriesByID[p.CategoryID].Name
	return &p, nil
}

func (s *Store) GetProductsByIDs(_ context.Context, productIDs []string) (map[string]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]domain.Product, len(productIDs))
	for _, id := range productIDs {
		if p, ok := s.productsByID[id]; ok {
			p.Category = s.categoriesByID[p.CategoryID].Name
			result[id] = p
		}
	}
	return result, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.PriceCents < 1 || product.Stock < 0 {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if product.CategoryID != "" {
		if _, ok := s.categoriesByID[product.CategoryID]; !ok {
			return nil, store.ErrValidation
		}
	}
	if product.ID == "" {
		product.ID = xid.New("prd")
	}
	if _, exists := s.productsByID[product.ID]; exists {
		return nil, store.ErrValidation
	}

	product.Active = true
	s.productsByID[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" || product.PriceCents < 1 || product.Stock < 0 {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.productsByID[product.ID]; !exists {
		return nil, store.ErrNotFound
	}
	if product.CategoryID != "" {
		if _, ok := s.categoriesByID[product.CategoryID]; !ok {
			return nil, store.ErrValidation
		}
	}

	s.productsByID[product.ID] = product
	updated := product
	return &updated, nil
}

// CategorySiblings returns active products sharing a category with any of
// the given products, excluding the given ids, ordered by name.
func (s *Store) CategorySiblings(_ context.Context, productIDs []string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := make(map[string]struct{}, len(productIDs))
	exclude := make(map[string]struct{}, len(productIDs))
	for _, id := range productIDs {
		exclude[id] = struct{}{}
		if p, ok := s.productsByID[id]; ok && p.CategoryID != "" {
			categories[p.CategoryID] = struct{}{}
		}
	}
	if len(categories) == 0 {
		return []domain.Product{}, nil
	}

	siblings := make([]domain.Product, 0, 16)
	for _, p := range s.productsByID {
		if !p.Active {
			continue
		}
		if _, skip := exclude[p.ID]; skip {
			continue
		}
		if _, match := categories[p.CategoryID]; !match {
			continue
		}
		p.Category = s.categoriesByID[p.CategoryID].Name
		siblings = append(siblings, p)
	}
	slices.SortFunc(siblings, func(a, b domain.Product) int {
		return strings.Compare(a.Name, b.Name)
	})
	return siblings, nil
}

// TopSellers aggregates quantity sold per product over completed orders.
func (s *Store) TopSellers(_ context.Context, limit int) ([]domain.ProductSales, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	qtyByProduct := make(map[string]int)
	salesByProduct := make(map[string]int64)
	for _, order := range s.ordersByID {
		if order.Status != domain.OrderStatusCompleted {
			continue
		}
		for _, item := range order.Items {
			qtyByProduct[item.ProductID] += item.Qty
			salesByProduct[item.ProductID] += item.SubtotalCents
		}
	}

	rows := make([]domain.ProductSales, 0, len(qtyByProduct))
	for id, qty := range qtyByProduct {
		name := id
		if p, ok := s.productsByID[id]; ok {
			name = p.Name
		}
		rows = append(rows, domain.ProductSales{
			ProductID:       id,
			Name:            name,
			QtySold:         qty,
			TotalSalesCents: salesByProduct[id],
		})
	}
	slices.SortFunc(rows, func(a, b domain.ProductSales) int {
		if a.QtySold == b.QtySold {
			return strings.Compare(a.ProductID, b.ProductID)
		}
		return b.QtySold - a.QtySold
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (s *Store) CreateDraft(_ context.Context, draft domain.Draft) (*domain.Draft, error) {
	if strings.TrimSpace(draft.Title) == "" {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if draft.ID == "" {
		draft.ID = xid.New("draft")
	}
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = time.Now().UTC()
	}
	s.draftsByID[draft.ID] = draft
	created := draft
	return &created, nil
}

func (s *Store) ListDrafts(_ context.Context) ([]domain.DraftSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]domain.DraftSummary, 0, len(s.draftsByID))
	for _, d := range s.draftsByID {
		summaries = append(summaries, domain.DraftSummary{
			ID:         d.ID,
			Title:      d.Title,
			TotalCents: d.TotalCents,
			CreatedAt:  d.CreatedAt,
		})
	}
	slices.SortFunc(summaries, func(a, b domain.DraftSummary) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return strings.Compare(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	return summaries, nil
}

// PopDraft removes and returns the draft in one step; resume is single-use.
func (s *Store) PopDraft(_ context.Context, draftID string) (*domain.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft, ok := s.draftsByID[draftID]
	if !ok {
		return nil, store.ErrNotFound
	}
	delete(s.draftsByID, draftID)
	popped := draft
	return &popped, nil
}

func (s *Store) DeleteDraft(_ context.Context, draftID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.draftsByID[draftID]; !ok {
		return store.ErrNotFound
	}
	delete(s.draftsByID, draftID)
	return nil
}

func (s *Store) DeleteAllDrafts(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.draftsByID = make(map[string]domain.Draft)
	return nil
}

// CreateOrder persists the order header and all of its items as one unit.
// A terminal status at creation time stamps the end timestamp immediately.
func (s *Store) CreateOrder(_ context.Context, order domain.Order) (*domain.Order, error) {
	if strings.TrimSpace(order.CustomerName) == "" {
		return nil, store.ErrValidation
	}
	if len(order.Items) == 0 {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if order.ID == "" {
		order.ID = xid.New("order")
	}
	if _, exists := s.ordersByID[order.ID]; exists {
		return nil, store.ErrValidation
	}
	if order.StartedAt.IsZero() {
		order.StartedAt = time.Now().UTC()
	}
	if order.Status != domain.OrderStatusPending && order.EndedAt == nil {
		ended := order.StartedAt
		order.EndedAt = &ended
	}

	items := make([]domain.OrderItem, 0, len(order.Items))
	for _, item := range order.Items {
		if item.ProductID == "" || item.Qty < 1 {
			return nil, store.ErrValidation
		}
		item.OrderID = order.ID
		item.SubtotalCents = int64(item.Qty) * item.UnitPriceCents
		items = append(items, item)
	}
	order.Items = items

	stored := order
	s.ordersByID[order.ID] = &stored
	created := order
	return &created, nil
}

func (s *Store) GetOrder(_ context.Context, orderID string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.ordersByID[orderID]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *order
	copied.Items = slices.Clone(order.Items)
	return &copied, nil
}

func (s *Store) GetOrderItems(_ context.Context, orderID string) ([]domain.OrderItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.ordersByID[orderID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return slices.Clone(order.Items), nil
}

func (s *Store) ListOrders(_ context.Context, filter domain.OrderFilter) ([]domain.OrderListRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]domain.OrderListRow, 0, len(s.ordersByID))
	for _, order := range s.ordersByID {
		if filter.IDLike != "" && !strings.Contains(order.ID, filter.IDLike) {
			continue
		}
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		if filter.PaymentMethod != "" && order.PaymentMethod != filter.PaymentMethod {
			continue
		}
		if filter.From != nil && order.StartedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !order.StartedAt.Before(*filter.To) {
			continue
		}
		rows = append(rows, toListRow(order))
	}
	sortRowsNewestFirst(rows)
	return rows, nil
}

// ResolveOrder transitions Pending -> Completed. Any other current status
// is an explicit invalid transition, not a silent no-op.
func (s *Store) ResolveOrder(_ context.Context, orderID string, referenceNo string, amountPaidCents int64, at time.Time) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.ordersByID[orderID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if order.Status != domain.OrderStatusPending {
		return nil, store.ErrInvalidTransition
	}

	order.Status = domain.OrderStatusCompleted
	order.ReferenceNo = strings.TrimSpace(referenceNo)
	order.AmountPaidCents = amountPaidCents
	order.CashReceivedCents = amountPaidCents
	ended := at
	order.EndedAt = &ended

	copied := *order
	copied.Items = slices.Clone(order.Items)
	return &copied, nil
}

// CancelOrder transitions Pending -> Cancelled under the same guard.
func (s *Store) CancelOrder(_ context.Context, orderID string, at time.Time) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.ordersByID[orderID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if order.Status != domain.OrderStatusPending {
		return nil, store.ErrInvalidTransition
	}

	order.Status = domain.OrderStatusCancelled
	ended := at
	order.EndedAt = &ended

	copied := *order
	copied.Items = slices.Clone(order.Items)
	return &copied, nil
}

func (s *Store) CountOrdersByStatus(_ context.Context, status string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, order := range s.ordersByID {
		if order.Status == status {
			count++
		}
	}
	return count, nil
}

// SalesSummary aggregates completed orders started within [from, to).
func (s *Store) SalesSummary(_ context.Context, from time.Time, to time.Time) (domain.SalesSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var summary domain.SalesSummary
	for _, order := range s.ordersByID {
		if order.Status != domain.OrderStatusCompleted {
			continue
		}
		if order.StartedAt.Before(from) || !order.StartedAt.Before(to) {
			continue
		}
		summary.OrderCount++
		summary.TotalSalesCents += order.TotalCents
	}
	return summary, nil
}

func (s *Store) ListRecentOrders(_ context.Context, limit int) ([]domain.OrderListRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]domain.OrderListRow, 0, len(s.ordersByID))
	for _, order := range s.ordersByID {
		rows = append(rows, toListRow(order))
	}
	sortRowsNewestFirst(rows)
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (s *Store) BestSellersSince(_ context.Context, since time.Time, limit int) ([]domain.ProductSales, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	qtyByProduct := make(map[string]int)
	salesByProduct := make(map[string]int64)
	for _, order := range s.ordersByID {
		if order.Status != domain.OrderStatusCompleted || order.StartedAt.Before(since) {
			continue
		}
		for _, item := range order.Items {
			qtyByProduct[item.ProductID] += item.Qty
			salesByProduct[item.ProductID] += item.SubtotalCents
		}
	}

	rows := make([]domain.ProductSales, 0, len(qtyByProduct))
	for id, qty := range qtyByProduct {
		name := id
		if p, ok := s.productsByID[id]; ok {
			name = p.Name
		}
		rows = append(rows, domain.ProductSales{
			ProductID:       id,
			Name:            name,
			QtySold:         qty,
			TotalSalesCents: salesByProduct[id],
		})
	}
	slices.SortFunc(rows, func(a, b domain.ProductSales) int {
		if a.QtySold == b.QtySold {
			return strings.Compare(a.ProductID, b.ProductID)
		}
		return b.QtySold - a.QtySold
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// CompletedOrderItemRefs exports (order, product) rows from the last N
// completed orders; this is the recommender's only data source.
func (s *Store) CompletedOrderItemRefs(_ context.Context, lastNOrders int) ([]domain.OrderItemRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	completed := make([]*domain.Order, 0, len(s.ordersByID))
	for _, order := range s.ordersByID {
		if order.Status == domain.OrderStatusCompleted {
			completed = append(completed, order)
		}
	}
	slices.SortFunc(completed, func(a, b *domain.Order) int {
		if a.StartedAt.Equal(b.StartedAt) {
			return strings.Compare(b.ID, a.ID)
		}
		if a.StartedAt.After(b.StartedAt) {
			return -1
		}
		return 1
	})
	if lastNOrders > 0 && len(completed) > lastNOrders {
		completed = completed[:lastNOrders]
	}

	refs := make([]domain.OrderItemRef, 0, len(completed)*2)
	for _, order := range completed {
		for _, item := range order.Items {
			refs = append(refs, domain.OrderItemRef{OrderID: order.ID, ProductID: item.ProductID})
		}
	}
	return refs, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByUsername[user.Username]; exists {
		return store.ErrValidation
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	if username == "" || password == "" {
		return store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.usersByUsername[username]
	if !ok {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func toListRow(order *domain.Order) domain.OrderListRow {
	itemCount := 0
	for _, item := range order.Items {
		itemCount += item.Qty
	}
	return domain.OrderListRow{
		OrderID:       order.ID,
		StartedAt:     order.StartedAt,
		EndedAt:       order.EndedAt,
		PaymentMethod: order.PaymentMethod,
		Status:        order.Status,
		ItemCount:     itemCount,
		TotalCents:    order.TotalCents,
		AmountPaid:    order.AmountPaidCents,
		ChangeDue:     order.ChangeDueCents,
	}
}

func sortRowsNewestFirst(rows []domain.OrderListRow) {
	slices.SortFunc(rows, func(a, b domain.OrderListRow) int {
		if a.StartedAt.Equal(b.StartedAt) {
			return strings.Compare(b.OrderID, a.OrderID)
		}
		if a.StartedAt.After(b.StartedAt) {
			return -1
		}
		return 1
	})
}
