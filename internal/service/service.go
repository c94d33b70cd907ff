package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"kedaikopi/backend/internal/cart"
	"kedaikopi/backend/internal/domain"
	"kedaikopi/backend/internal/recommendation"
	"kedaikopi/backend/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// CompletionListener is notified after an order reaches Completed, either
// straight from checkout or through a later resolve. The recommendation
// engine registers itself here so its pair table is rebuilt lazily instead
// of being refreshed by callers.
type CompletionListener interface {
	OrderCompleted(orderID string)
}

type Service struct {
	repo        store.Repository
	recommender *recommendation.Engine
	listeners   []CompletionListener
}

func New(repo store.Repository, recommender *recommendation.Engine) *Service {
	return &Service{
		repo:        repo,
		recommender: recommender,
	}
}

// RegisterCompletionListener must be called during wiring, before the
// service starts handling requests.
func (s *Service) RegisterCompletionListener(listener CompletionListener) {
	if listener == nil {
		return
	}
	s.listeners = append(s.listeners, listener)
}

func (s *Service) notifyCompleted(orderID string) {
	for _, listener := range s.listeners {
		listener.OrderCompleted(orderID)
	}
}

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) CreateCategory(ctx context.Context, name string) (domain.Category, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Category{}, fmt.Errorf("%w: admin role required", store.ErrForbidden)
	}

	created, err := s.repo.CreateCategory(ctx, name)
	if err != nil {
		return domain.Category{}, err
	}
	s.logAudit(ctx, "category_create", "category", created.ID, created.Name)
	return *created, nil
}

func (s *Service) ListProducts(ctx context.Context, categoryID string) ([]domain.Product, error) {
	if categoryID != "" {
		return s.repo.ListProductsByCategory(ctx, categoryID)
	}
	return s.repo.ListProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, fmt.Errorf("%w: admin role required", store.ErrForbidden)
	}

	req.ID = strings.ToUpper(strings.TrimSpace(req.ID))
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.PriceCents < 1 || req.InitialStock < 0 {
		return domain.Product{}, store.ErrValidation
	}

	created, err := s.repo.CreateProduct(ctx, domain.Product{
		ID:         req.ID,
		CategoryID: strings.TrimSpace(req.CategoryID),
		Name:       req.Name,
		PriceCents: req.PriceCents,
		Stock:      req.InitialStock,
		LowStock:   req.LowStock,
		Active:     true,
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "product_create", "product", created.ID, fmt.Sprintf("name=%s,price=%d,stock=%d", created.Name, created.PriceCents, created.Stock))
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, productID string, req domain.ProductUpdateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, fmt.Errorf("%w: admin role required", store.ErrForbidden)
	}

	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Product{}, store.ErrValidation
	}

	existing, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	updated.Category = ""
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, store.ErrValidation
		}
		updated.Name = name
	}
	if req.CategoryID != nil {
		updated.CategoryID = strings.TrimSpace(*req.CategoryID)
	}
	if req.PriceCents != nil {
		if *req.PriceCents < 1 {
			return domain.Product{}, store.ErrValidation
		}
		updated.PriceCents = *req.PriceCents
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return domain.Product{}, store.ErrValidation
		}
		updated.Stock = *req.Stock
	}
	if req.LowStock != nil {
		updated.LowStock = *req.LowStock
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "product_update", "product", saved.ID, fmt.Sprintf("active=%t,price=%d,stock=%d", saved.Active, saved.PriceCents, saved.Stock))
	return *saved, nil
}

// Checkout prices the cart from the catalog, applies the discount, and
// persists the order. Cash settles immediately as Completed with change
// due; transfer and e-wallet open a Pending order that is completed later
// through ResolveOrder.
func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutResponse, error) {
	customerName := strings.TrimSpace(req.CustomerName)
	if customerName == "" {
		return domain.CheckoutResponse{}, store.ErrValidation
	}
	if !isSupportedPaymentMethod(req.PaymentMethod) {
		return domain.CheckoutResponse{}, store.ErrValidation
	}
	if req.AmountPaidCents < 0 {
		return domain.CheckoutResponse{}, store.ErrValidation
	}

	basket, err := s.priceCart(ctx, req.Items, req.Discount)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	totals := basket.Totals()
	now := time.Now().UTC()

	order := domain.Order{
		StartedAt:     now,
		CustomerName:  customerName,
		PaymentMethod: req.PaymentMethod,
		SubtotalCents: totals.SubtotalCents,
		DiscountCents: totals.DiscountCents,
		TaxCents:      totals.TaxCents,
		TotalCents:    totals.TotalCents,
	}
	if actor, ok := ActorFromContext(ctx); ok {
		order.CashierID = actor.Username
	}

	switch req.PaymentMethod {
	case domain.PaymentCash:
		if req.AmountPaidCents < totals.TotalCents {
			return domain.CheckoutResponse{}, store.ErrInsufficientPayment
		}
		order.Status = domain.OrderStatusCompleted
		order.AmountPaidCents = req.AmountPaidCents
		order.CashReceivedCents = req.AmountPaidCents
		order.ChangeDueCents = req.AmountPaidCents - totals.TotalCents
	default:
		// Non-cash payment is settled out of band; the order stays open
		// until the payment reference arrives.
		order.Status = domain.OrderStatusPending
	}

	for _, line := range basket.Items() {
		order.Items = append(order.Items, domain.OrderItem{
			ProductID:      line.ProductID,
			Name:           line.Name,
			Qty:            line.Qty,
			UnitPriceCents: line.UnitPriceCents,
			SubtotalCents:  int64(line.Qty) * line.UnitPriceCents,
			Note:           line.Note,
		})
	}

	created, err := s.repo.CreateOrder(ctx, order)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	if created.Status == domain.OrderStatusCompleted {
		s.notifyCompleted(created.ID)
	}

	s.logAudit(ctx, "checkout", "order", created.ID, fmt.Sprintf("total=%d,payment=%s,status=%s", created.TotalCents, created.PaymentMethod, created.Status))

	return toCheckoutResponse(created), nil
}

// ResolveOrder completes a pending non-cash order once its payment
// reference is known. The paid amount must cover the order total.
func (s *Service) ResolveOrder(ctx context.Context, orderID string, req domain.ResolveOrderRequest) (domain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, store.ErrValidation
	}
	if strings.TrimSpace(req.ReferenceNo) == "" {
		return domain.Order{}, store.ErrValidation
	}

	existing, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if req.AmountPaidCents < existing.TotalCents {
		return domain.Order{}, store.ErrInsufficientPayment
	}

	resolved, err := s.repo.ResolveOrder(ctx, orderID, req.ReferenceNo, req.AmountPaidCents, time.Now().UTC())
	if err != nil {
		return domain.Order{}, err
	}

	s.notifyCompleted(resolved.ID)
	s.logAudit(ctx, "order_resolve", "order", resolved.ID, fmt.Sprintf("reference=%s,paid=%d", resolved.ReferenceNo, resolved.AmountPaidCents))
	return *resolved, nil
}

func (s *Service) CancelOrder(ctx context.Context, orderID string) (domain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, store.ErrValidation
	}

	cancelled, err := s.repo.CancelOrder(ctx, orderID, time.Now().UTC())
	if err != nil {
		return domain.Order{}, err
	}

	s.logAudit(ctx, "order_cancel", "order", cancelled.ID, "")
	return *cancelled, nil
}

func (s *Service) GetOrderDetail(ctx context.Context, orderID string) (domain.Order, error) {
	order, err := s.repo.GetOrder(ctx, strings.TrimSpace(orderID))
	if err != nil {
		return domain.Order{}, err
	}
	return *order, nil
}

func (s *Service) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.OrderListRow, error) {
	return s.repo.ListOrders(ctx, filter)
}

func (s *Service) RecentOrders(ctx context.Context, limit int) ([]domain.OrderListRow, error) {
	if limit < 1 {
		limit = 20
	}
	return s.repo.ListRecentOrders(ctx, limit)
}

func (s *Service) SummaryToday(ctx context.Context) (domain.SalesSummary, error) {
	from := startOfDayUTC(time.Now().UTC())
	return s.repo.SalesSummary(ctx, from, from.AddDate(0, 0, 1))
}

func (s *Service) SummaryMonth(ctx context.Context) (domain.SalesSummary, error) {
	now := time.Now().UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return s.repo.SalesSummary(ctx, from, from.AddDate(0, 1, 0))
}

func (s *Service) BestSellersToday(ctx context.Context, limit int) ([]domain.ProductSales, error) {
	if limit < 1 {
		limit = 10
	}
	return s.repo.BestSellersSince(ctx, startOfDayUTC(time.Now().UTC()), limit)
}

// SaveDraft snapshots the priced cart under a title so the sale can be
// parked and resumed later. The payload is the serialized cart, not the
// totals, so prices are re-derived when the draft is loaded.
func (s *Service) SaveDraft(ctx context.Context, req domain.SaveDraftRequest) (domain.DraftSummary, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return domain.DraftSummary{}, store.ErrValidation
	}

	basket, err := s.priceCart(ctx, req.Items, req.Discount)
	if err != nil {
		return domain.DraftSummary{}, err
	}

	payload, err := json.Marshal(basket.Snapshot())
	if err != nil {
		return domain.DraftSummary{}, err
	}

	created, err := s.repo.CreateDraft(ctx, domain.Draft{
		Title:      title,
		Payload:    payload,
		TotalCents: basket.Totals().TotalCents,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return domain.DraftSummary{}, err
	}

	s.logAudit(ctx, "draft_save", "draft", created.ID, title)
	return domain.DraftSummary{
		ID:         created.ID,
		Title:      created.Title,
		TotalCents: created.TotalCents,
		CreatedAt:  created.CreatedAt,
	}, nil
}

func (s *Service) ListDrafts(ctx context.Context) ([]domain.DraftSummary, error) {
	return s.repo.ListDrafts(ctx)
}

// LoadDraft consumes the draft: it is removed from storage as part of the
// load so the same parked sale cannot be resumed twice. A payload that no
// longer parses degrades to an empty cart rather than failing the load.
func (s *Service) LoadDraft(ctx context.Context, draftID string) (domain.LoadDraftResponse, error) {
	draft, err := s.repo.PopDraft(ctx, strings.TrimSpace(draftID))
	if err != nil {
		return domain.LoadDraftResponse{}, err
	}

	var snapshot domain.CartSnapshot
	if err := json.Unmarshal(draft.Payload, &snapshot); err != nil {
		log.Printf("[service] WARN: draft %s payload unreadable, resuming with empty cart: %v", draft.ID, err)
		snapshot = domain.CartSnapshot{}
	}

	basket := cart.FromSnapshot(snapshot)
	return domain.LoadDraftResponse{
		DraftID:  draft.ID,
		Title:    draft.Title,
		Items:    basket.Items(),
		Discount: basket.Discount(),
		Totals:   basket.Totals(),
	}, nil
}

func (s *Service) DiscardDraft(ctx context.Context, draftID string) error {
	if err := s.repo.DeleteDraft(ctx, strings.TrimSpace(draftID)); err != nil {
		return err
	}
	s.logAudit(ctx, "draft_discard", "draft", draftID, "")
	return nil
}

func (s *Service) ClearDrafts(ctx context.Context) error {
	if err := s.repo.DeleteAllDrafts(ctx); err != nil {
		return err
	}
	s.logAudit(ctx, "draft_clear", "draft", "*", "")
	return nil
}

// Suggest returns add-on suggestions for the current cart. Suggestions are
// advisory: the engine swallows its own failures, so this never blocks a
// sale.
func (s *Service) Suggest(ctx context.Context, req domain.SuggestionRequest) domain.SuggestionResponse {
	suggestions := s.recommender.Suggest(ctx, req.ProductIDs, req.TopN)
	return domain.SuggestionResponse{Suggestions: suggestions}
}

func (s *Service) CreateCashier(ctx context.Context, req domain.CashierCreateRequest) (domain.CashierUser, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.CashierUser{}, fmt.Errorf("%w: admin role required", store.ErrForbidden)
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))
	if username == "" || len(req.Password) < 8 {
		return domain.CashierUser{}, store.ErrValidation
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.CashierUser{}, err
	}

	now := time.Now().UTC()
	if err := s.repo.CreateUser(ctx, domain.UserAccount{
		Username:  username,
		Password:  string(hash),
		Role:      "cashier",
		Active:    true,
		CreatedAt: now,
	}); err != nil {
		return domain.CashierUser{}, err
	}

	s.logAudit(ctx, "cashier_create", "user", username, "")
	return domain.CashierUser{Username: username, Role: "cashier", Active: true, CreatedAt: now}, nil
}

func (s *Service) ListCashiers(ctx context.Context) ([]domain.CashierUser, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return nil, fmt.Errorf("%w: admin role required", store.ErrForbidden)
	}

	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	cashiers := make([]domain.CashierUser, 0, len(users))
	for _, user := range users {
		cashiers = append(cashiers, domain.CashierUser{
			Username:  user.Username,
			Role:      user.Role,
			Active:    user.Active,
			CreatedAt: user.CreatedAt,
		})
	}
	return cashiers, nil
}

// UpdateCashierPassword changes an account password. Without a username the
// actor changes their own password and must present the current one; admins
// may reset any other account directly.
func (s *Service) UpdateCashierPassword(ctx context.Context, req domain.PasswordUpdateRequest) error {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return fmt.Errorf("%w: authentication required", store.ErrForbidden)
	}

	target := strings.ToLower(strings.TrimSpace(req.Username))
	if target == "" {
		target = actor.Username
	}
	if target != actor.Username && actor.Role != "admin" {
		return fmt.Errorf("%w: admin role required", store.ErrForbidden)
	}
	if len(req.NewPassword) < 8 {
		return store.ErrValidation
	}

	account, err := s.findUser(ctx, target)
	if err != nil {
		return err
	}
	if target == actor.Username && !passwordMatches(account.Password, req.CurrentPassword) {
		return fmt.Errorf("%w: current password incorrect", store.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateUserPassword(ctx, target, string(hash)); err != nil {
		return err
	}

	s.logAudit(ctx, "password_update", "user", target, "")
	return nil
}

func (s *Service) findUser(ctx context.Context, username string) (domain.UserAccount, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return domain.UserAccount{}, err
	}
	for _, user := range users {
		if user.Username == username {
			return user, nil
		}
	}
	return domain.UserAccount{}, store.ErrNotFound
}

// passwordMatches accepts bcrypt hashes and, for accounts not yet upgraded
// by the auth layer, a direct comparison.
func passwordMatches(stored string, supplied string) bool {
	if strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") || strings.HasPrefix(stored, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(supplied)) == nil
	}
	return stored != "" && stored == supplied
}

// priceCart validates the requested lines against the catalog and builds a
// priced cart. Unknown or inactive products fail the whole request.
func (s *Service) priceCart(ctx context.Context, lines []domain.CheckoutLine, discount domain.Discount) (*cart.Cart, error) {
	normalized := normalizeLines(lines)
	if len(normalized) == 0 {
		return nil, store.ErrValidation
	}

	ids := make([]string, 0, len(normalized))
	for _, line := range normalized {
		ids = append(ids, line.ProductID)
	}
	products, err := s.repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]domain.LineItem, 0, len(normalized))
	for _, line := range normalized {
		product, exists := products[line.ProductID]
		if !exists || !product.Active {
			return nil, store.ErrValidation
		}
		items = append(items, domain.LineItem{
			ProductID:      product.ID,
			Name:           product.Name,
			UnitPriceCents: product.PriceCents,
			Qty:            line.Qty,
			Note:           line.Note,
		})
	}

	return cart.FromSnapshot(domain.CartSnapshot{Items: items, Discount: discount}), nil
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}
	log.Printf("[audit] actor=%s role=%s action=%s entity=%s/%s %s", actor.Username, actor.Role, action, entityType, entityID, detail)
}

func normalizeLines(lines []domain.CheckoutLine) []domain.CheckoutLine {
	index := make(map[string]int, len(lines))
	normalized := make([]domain.CheckoutLine, 0, len(lines))
	for _, line := range lines {
		line.ProductID = strings.TrimSpace(line.ProductID)
		if line.ProductID == "" || line.Qty < 1 {
			continue
		}
		if at, seen := index[line.ProductID]; seen {
			normalized[at].Qty += line.Qty
			if normalized[at].Note == "" {
				normalized[at].Note = line.Note
			}
			continue
		}
		index[line.ProductID] = len(normalized)
		normalized = append(normalized, line)
	}
	return normalized
}

func isSupportedPaymentMethod(method string) bool {
	switch method {
	case domain.PaymentCash, domain.PaymentTransfer, domain.PaymentEwallet:
		return true
	}
	return false
}

func toCheckoutResponse(order *domain.Order) domain.CheckoutResponse {
	itemCount := 0
	for _, item := range order.Items {
		itemCount += item.Qty
	}
	return domain.CheckoutResponse{
		OrderID:         order.ID,
		Status:          order.Status,
		PaymentMethod:   order.PaymentMethod,
		SubtotalCents:   order.SubtotalCents,
		DiscountCents:   order.DiscountCents,
		TaxCents:        order.TaxCents,
		TotalCents:      order.TotalCents,
		AmountPaidCents: order.AmountPaidCents,
		ChangeDueCents:  order.ChangeDueCents,
		ItemCount:       itemCount,
		CreatedAt:       order.StartedAt.Format(time.RFC3339),
	}
}

func startOfDayUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
