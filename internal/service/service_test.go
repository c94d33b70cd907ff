package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"kedaikopi/backend/internal/cache"
	"kedaikopi/backend/internal/domain"
	"kedaikopi/backend/internal/recommendation"
	"kedaikopi/backend/internal/store"
	"kedaikopi/backend/internal/store/memory"
)

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	repo := memory.NewSeeded()
	engine := recommendation.NewEngine(repo, cache.NoopSuggestionCache{}, 300*time.Second, 300, 10)
	svc := New(repo, engine)
	svc.RegisterCompletionListener(engine)
	return svc, repo
}

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "admin", Role: "admin"})
}

func cashierCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "sari", Role: "cashier"})
}

func TestCheckoutCashInsufficientPayment(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := cashierCtx()

	// COF-AME-01 is seeded at 2200 cents.
	_, err := svc.Checkout(ctx, domain.CheckoutRequest{
		CustomerName:    "Budi",
		PaymentMethod:   domain.PaymentCash,
		AmountPaidCents: 2000,
		Items:           []domain.CheckoutLine{{ProductID: "COF-AME-01", Qty: 1}},
	})
	if !errors.Is(err, store.ErrInsufficientPayment) {
		t.Fatalf("expected ErrInsufficientPayment, got %v", err)
	}

	rows, err := repo.ListRecentOrders(ctx, 10)
	if err != nil {
		t.Fatalf("list recent orders: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no order persisted after rejected checkout, got %d", len(rows))
	}
}

func TestCheckoutCashCompletesWithChange(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := cashierCtx()

	resp, err := svc.Checkout(ctx, domain.CheckoutRequest{
		CustomerName:    "Budi",
		PaymentMethod:   domain.PaymentCash,
		AmountPaidCents: 2500,
		Items:           []domain.CheckoutLine{{ProductID: "COF-AME-01", Qty: 1}},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if resp.Status != domain.OrderStatusCompleted {
		t.Fatalf("expected Completed, got %s", resp.Status)
	}
	if resp.TotalCents != 2200 {
		t.Fatalf("expected total 2200, got %d", resp.TotalCents)
	}
	if resp.ChangeDueCents != 300 {
		t.Fatalf("expected change 300, got %d", resp.ChangeDueCents)
	}

	order, err := svc.GetOrderDetail(ctx, resp.OrderID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.Status != domain.OrderStatusCompleted {
		t.Fatalf("persisted order should be Completed, got %s", order.Status)
	}
	if order.EndedAt == nil {
		t.Fatalf("completed order should carry ended_at")
	}
}

func TestCheckoutAppliesDiscountClamp(t *testing.T) {
	svc, _ := newTestService(t)

	// Amount discount larger than the subtotal clamps to the subtotal.
	resp, err := svc.Checkout(cashierCtx(), domain.CheckoutRequest{
		CustomerName:    "Ani",
		PaymentMethod:   domain.PaymentCash,
		AmountPaidCents: 0,
		Discount:        domain.Discount{Mode: domain.DiscountModeAmount, AmountCents: 99999},
		Items:           []domain.CheckoutLine{{ProductID: "TEA-JAS-01", Qty: 1}},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if resp.DiscountCents != 1600 || resp.TotalCents != 0 {
		t.Fatalf("expected discount clamped to 1600 and total 0, got discount=%d total=%d", resp.DiscountCents, resp.TotalCents)
	}
}

func TestCheckoutTransferStaysPendingThenResolves(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := cashierCtx()

	resp, err := svc.Checkout(ctx, domain.CheckoutRequest{
		CustomerName:  "Citra",
		PaymentMethod: domain.PaymentTransfer,
		Items:         []domain.CheckoutLine{{ProductID: "COF-AME-01", Qty: 1}},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if resp.Status != domain.OrderStatusPending {
		t.Fatalf("expected Pending, got %s", resp.Status)
	}
	if resp.ChangeDueCents != 0 {
		t.Fatalf("deferred payment should have zero change, got %d", resp.ChangeDueCents)
	}

	resolved, err := svc.ResolveOrder(ctx, resp.OrderID, domain.ResolveOrderRequest{
		ReferenceNo:     "TRF-2024-0001",
		AmountPaidCents: 2200,
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Status != domain.OrderStatusCompleted {
		t.Fatalf("expected Completed after resolve, got %s", resolved.Status)
	}
	if resolved.ReferenceNo != "TRF-2024-0001" {
		t.Fatalf("expected reference recorded, got %q", resolved.ReferenceNo)
	}

	// A second resolve must fail: the order already left Pending.
	_, err = svc.ResolveOrder(ctx, resp.OrderID, domain.ResolveOrderRequest{
		ReferenceNo:     "TRF-2024-0002",
		AmountPaidCents: 2200,
	})
	if !errors.Is(err, store.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on double-resolve, got %v", err)
	}
}

func TestResolveOrderUnderpaidRejected(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := cashierCtx()

	resp, err := svc.Checkout(ctx, domain.CheckoutRequest{
		CustomerName:  "Citra",
		PaymentMethod: domain.PaymentEwallet,
		Items:         []domain.CheckoutLine{{ProductID: "COF-AME-01", Qty: 1}},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	_, err = svc.ResolveOrder(ctx, resp.OrderID, domain.ResolveOrderRequest{
		ReferenceNo:     "EW-001",
		AmountPaidCents: 2100,
	})
	if !errors.Is(err, store.ErrInsufficientPayment) {
		t.Fatalf("expected ErrInsufficientPayment, got %v", err)
	}

	order, err := svc.GetOrderDetail(ctx, resp.OrderID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.Status != domain.OrderStatusPending {
		t.Fatalf("underpaid resolve must leave the order Pending, got %s", order.Status)
	}
}

func TestResolveOrderRequiresReference(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ResolveOrder(cashierCtx(), "ord-anything", domain.ResolveOrderRequest{
		ReferenceNo:     "   ",
		AmountPaidCents: 2200,
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation for blank reference, got %v", err)
	}
}

func TestCancelOrderOnlyFromPending(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := cashierCtx()

	pending, err := svc.Checkout(ctx, domain.CheckoutRequest{
		CustomerName:  "Dewi",
		PaymentMethod: domain.PaymentTransfer,
		Items:         []domain.CheckoutLine{{ProductID: "TEA-LEM-01", Qty: 2}},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	cancelled, err := svc.CancelOrder(ctx, pending.OrderID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != domain.OrderStatusCancelled {
		t.Fatalf("expected Cancelled, got %s", cancelled.Status)
	}
	if cancelled.EndedAt == nil {
		t.Fatalf("cancelled order should carry ended_at")
	}

	_, err = svc.CancelOrder(ctx, pending.OrderID)
	if !errors.Is(err, store.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition cancelling twice, got %v", err)
	}

	completed, err := svc.Checkout(ctx, domain.CheckoutRequest{
		CustomerName:    "Dewi",
		PaymentMethod:   domain.PaymentCash,
		AmountPaidCents: 5000,
		Items:           []domain.CheckoutLine{{ProductID: "TEA-LEM-01", Qty: 1}},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	_, err = svc.CancelOrder(ctx, completed.OrderID)
	if !errors.Is(err, store.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition cancelling a completed order, got %v", err)
	}
}

func TestCancelUnknownOrderNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.CancelOrder(cashierCtx(), "ord-does-not-exist")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCheckoutValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := cashierCtx()

	cases := []struct {
		name string
		req  domain.CheckoutRequest
	}{
		{"blank customer", domain.CheckoutRequest{
			CustomerName:  "   ",
			PaymentMethod: domain.PaymentCash,
			Items:         []domain.CheckoutLine{{ProductID: "COF-AME-01", Qty: 1}},
		}},
		{"unknown payment method", domain.CheckoutRequest{
			CustomerName:  "Budi",
			PaymentMethod: "cheque",
			Items:         []domain.CheckoutLine{{ProductID: "COF-AME-01", Qty: 1}},
		}},
		{"negative paid amount", domain.CheckoutRequest{
			CustomerName:    "Budi",
			PaymentMethod:   domain.PaymentCash,
			AmountPaidCents: -1,
			Items:           []domain.CheckoutLine{{ProductID: "COF-AME-01", Qty: 1}},
		}},
		{"empty cart", domain.CheckoutRequest{
			CustomerName:  "Budi",
			PaymentMethod: domain.PaymentCash,
		}},
		{"unknown product", domain.CheckoutRequest{
			CustomerName:  "Budi",
			PaymentMethod: domain.PaymentCash,
			Items:         []domain.CheckoutLine{{ProductID: "NOPE-01", Qty: 1}},
		}},
	}
	for _, tc := range cases {
		if _, err := svc.Checkout(ctx, tc.req); !errors.Is(err, store.ErrValidation) {
			t.Fatalf("%s: expected ErrValidation, got %v", tc.name, err)
		}
	}
}

func TestCheckoutRejectsInactiveProduct(t *testing.T) {
	svc, _ := newTestService(t)

	inactive := false
	if _, err := svc.UpdateProduct(adminCtx(), "SNK-CHI-01", domain.ProductUpdateRequest{Active: &inactive}); err != nil {
		t.Fatalf("deactivate product: %v", err)
	}

	_, err := svc.Checkout(cashierCtx(), domain.CheckoutRequest{
		CustomerName:    "Budi",
		PaymentMethod:   domain.PaymentCash,
		AmountPaidCents: 5000,
		Items:           []domain.CheckoutLine{{ProductID: "SNK-CHI-01", Qty: 1}},
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation for inactive product, got %v", err)
	}
}

func TestCheckoutMergesDuplicateLines(t *testing.T) {
	svc, _ := newTestService(t)

	resp, err := svc.Checkout(cashierCtx(), domain.CheckoutRequest{
		CustomerName:    "Budi",
		PaymentMethod:   domain.PaymentCash,
		AmountPaidCents: 10000,
		Items: []domain.CheckoutLine{
			{ProductID: "COF-ESP-01", Qty: 1, Note: "extra hot"},
			{ProductID: "COF-ESP-01", Qty: 2},
		},
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if resp.ItemCount != 3 {
		t.Fatalf("expected merged item count 3, got %d", resp.ItemCount)
	}
	if resp.SubtotalCents != 3*1800 {
		t.Fatalf("expected subtotal %d, got %d", 3*1800, resp.SubtotalCents)
	}

	order, err := svc.GetOrderDetail(cashierCtx(), resp.OrderID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if len(order.Items) != 1 {
		t.Fatalf("expected one merged line, got %d", len(order.Items))
	}
	if order.Items[0].Note != "extra hot" {
		t.Fatalf("expected first note kept on merge, got %q", order.Items[0].Note)
	}
}

func TestDraftSaveLoadIsSingleUse(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := cashierCtx()

	saved, err := svc.SaveDraft(ctx, domain.SaveDraftRequest{
		Title:    "meja 4",
		Discount: domain.Discount{Mode: domain.DiscountModeAmount, AmountCents: 200},
		Items: []domain.CheckoutLine{
			{ProductID: "COF-LAT-01", Qty: 1},
			{ProductID: "PAS-CRO-01", Qty: 2},
		},
	})
	if err != nil {
		t.Fatalf("save draft: %v", err)
	}
	if saved.TotalCents != 2800+2*2400-200 {
		t.Fatalf("unexpected draft total %d", saved.TotalCents)
	}

	drafts, err := svc.ListDrafts(ctx)
	if err != nil {
		t.Fatalf("list drafts: %v", err)
	}
	if len(drafts) != 1 || drafts[0].Title != "meja 4" {
		t.Fatalf("unexpected draft list: %+v", drafts)
	}

	loaded, err := svc.LoadDraft(ctx, saved.ID)
	if err != nil {
		t.Fatalf("load draft: %v", err)
	}
	if len(loaded.Items) != 2 {
		t.Fatalf("expected 2 restored lines, got %d", len(loaded.Items))
	}
	if loaded.Totals.TotalCents != saved.TotalCents {
		t.Fatalf("restored total %d differs from saved %d", loaded.Totals.TotalCents, saved.TotalCents)
	}

	// Loading consumed the draft.
	if _, err := svc.LoadDraft(ctx, saved.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second load, got %v", err)
	}
	drafts, err = svc.ListDrafts(ctx)
	if err != nil {
		t.Fatalf("list drafts: %v", err)
	}
	if len(drafts) != 0 {
		t.Fatalf("expected no drafts after load, got %d", len(drafts))
	}
}

func TestDraftRequiresTitle(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.SaveDraft(cashierCtx(), domain.SaveDraftRequest{
		Title: "  ",
		Items: []domain.CheckoutLine{{ProductID: "COF-LAT-01", Qty: 1}},
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestLoadDraftCorruptPayloadDegradesToEmptyCart(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := cashierCtx()

	created, err := repo.CreateDraft(ctx, domain.Draft{
		Title:     "broken",
		Payload:   []byte("{not json"),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}

	loaded, err := svc.LoadDraft(ctx, created.ID)
	if err != nil {
		t.Fatalf("load draft: %v", err)
	}
	if len(loaded.Items) != 0 {
		t.Fatalf("corrupt payload should resume with empty cart, got %d items", len(loaded.Items))
	}
	if loaded.Totals.TotalCents != 0 {
		t.Fatalf("expected zero total, got %d", loaded.Totals.TotalCents)
	}
}

func TestDiscardAndClearDrafts(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := cashierCtx()

	first, err := svc.SaveDraft(ctx, domain.SaveDraftRequest{
		Title: "meja 1",
		Items: []domain.CheckoutLine{{ProductID: "COF-ESP-01", Qty: 1}},
	})
	if err != nil {
		t.Fatalf("save draft: %v", err)
	}
	if _, err := svc.SaveDraft(ctx, domain.SaveDraftRequest{
		Title: "meja 2",
		Items: []domain.CheckoutLine{{ProductID: "COF-ESP-01", Qty: 2}},
	}); err != nil {
		t.Fatalf("save draft: %v", err)
	}

	if err := svc.DiscardDraft(ctx, first.ID); err != nil {
		t.Fatalf("discard: %v", err)
	}
	if err := svc.DiscardDraft(ctx, first.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound discarding twice, got %v", err)
	}

	if err := svc.ClearDrafts(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	drafts, err := svc.ListDrafts(ctx)
	if err != nil {
		t.Fatalf("list drafts: %v", err)
	}
	if len(drafts) != 0 {
		t.Fatalf("expected empty draft list, got %d", len(drafts))
	}
}

func TestListOrdersFilters(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := cashierCtx()

	if _, err := svc.Checkout(ctx, domain.CheckoutRequest{
		CustomerName:    "Budi",
		PaymentMethod:   domain.PaymentCash,
		AmountPaidCents: 5000,
		Items:           []domain.CheckoutLine{{ProductID: "COF-AME-01", Qty: 1}},
	}); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if _, err := svc.Checkout(ctx, domain.CheckoutRequest{
		CustomerName:  "Citra",
		PaymentMethod: domain.PaymentTransfer,
		Items:         []domain.CheckoutLine{{ProductID: "TEA-JAS-01", Qty: 1}},
	}); err != nil {
		t.Fatalf("checkout: %v", err)
	}

	pending, err := svc.ListOrders(ctx, domain.OrderFilter{Status: domain.OrderStatusPending})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pending) != 1 || pending[0].PaymentMethod != domain.PaymentTransfer {
		t.Fatalf("unexpected pending rows: %+v", pending)
	}

	cash, err := svc.ListOrders(ctx, domain.OrderFilter{PaymentMethod: domain.PaymentCash})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(cash) != 1 || cash[0].Status != domain.OrderStatusCompleted {
		t.Fatalf("unexpected cash rows: %+v", cash)
	}

	all, err := svc.ListOrders(ctx, domain.OrderFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(all))
	}
}

func TestSummaryTodayCountsCompletedOnly(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := cashierCtx()

	if _, err := svc.Checkout(ctx, domain.CheckoutRequest{
		CustomerName:    "Budi",
		PaymentMethod:   domain.PaymentCash,
		AmountPaidCents: 5000,
		Items:           []domain.CheckoutLine{{ProductID: "COF-AME-01", Qty: 2}},
	}); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if _, err := svc.Checkout(ctx, domain.CheckoutRequest{
		CustomerName:  "Citra",
		PaymentMethod: domain.PaymentTransfer,
		Items:         []domain.CheckoutLine{{ProductID: "TEA-JAS-01", Qty: 1}},
	}); err != nil {
		t.Fatalf("checkout: %v", err)
	}

	summary, err := svc.SummaryToday(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.OrderCount != 1 {
		t.Fatalf("expected 1 completed order in summary, got %d", summary.OrderCount)
	}
	if summary.TotalSalesCents != 4400 {
		t.Fatalf("expected sales 4400, got %d", summary.TotalSalesCents)
	}
}

func TestCreateCashierRequiresAdmin(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateCashier(cashierCtx(), domain.CashierCreateRequest{Username: "tono", Password: "supersecret"})
	if !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-admin actor, got %v", err)
	}

	created, err := svc.CreateCashier(adminCtx(), domain.CashierCreateRequest{Username: "tono", Password: "supersecret"})
	if err != nil {
		t.Fatalf("create cashier: %v", err)
	}
	if created.Role != "cashier" || !created.Active {
		t.Fatalf("unexpected cashier: %+v", created)
	}

	_, err = svc.CreateCashier(adminCtx(), domain.CashierCreateRequest{Username: "tono", Password: "short"})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation for short password, got %v", err)
	}
}

func TestProductAdminGate(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateProduct(cashierCtx(), domain.ProductCreateRequest{
		Name: "Matcha Latte", CategoryID: "cat-tea", PriceCents: 3000,
	})
	if !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("expected ErrForbidden creating product as cashier, got %v", err)
	}

	created, err := svc.CreateProduct(adminCtx(), domain.ProductCreateRequest{
		Name: "Matcha Latte", CategoryID: "cat-tea", PriceCents: 3000, InitialStock: 10,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if !created.Active || created.Stock != 10 {
		t.Fatalf("unexpected product: %+v", created)
	}
}

func TestUpdateCashierPasswordSelf(t *testing.T) {
	t.Setenv("SEED_CASHIER_PASSWORD", "old-pass-123")
	svc, repo := newTestService(t)
	ctx := WithActor(context.Background(), domain.Actor{Username: "cashier", Role: "cashier"})

	err := svc.UpdateCashierPassword(ctx, domain.PasswordUpdateRequest{
		CurrentPassword: "wrong",
		NewPassword:     "new-pass-456",
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation for wrong current password, got %v", err)
	}

	err = svc.UpdateCashierPassword(ctx, domain.PasswordUpdateRequest{
		CurrentPassword: "old-pass-123",
		NewPassword:     "short",
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation for short new password, got %v", err)
	}

	if err := svc.UpdateCashierPassword(ctx, domain.PasswordUpdateRequest{
		CurrentPassword: "old-pass-123",
		NewPassword:     "new-pass-456",
	}); err != nil {
		t.Fatalf("update password: %v", err)
	}

	users, err := repo.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	for _, user := range users {
		if user.Username != "cashier" {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("new-pass-456")) != nil {
			t.Fatalf("stored hash does not match the new password")
		}
		return
	}
	t.Fatalf("cashier account missing")
}

func TestUpdateCashierPasswordAdminReset(t *testing.T) {
	svc, repo := newTestService(t)

	// Cashiers cannot reset other accounts.
	err := svc.UpdateCashierPassword(
		WithActor(context.Background(), domain.Actor{Username: "cashier", Role: "cashier"}),
		domain.PasswordUpdateRequest{Username: "admin", NewPassword: "hijacked-pass"},
	)
	if !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	// Admins reset any account without the current password.
	if err := svc.UpdateCashierPassword(adminCtx(), domain.PasswordUpdateRequest{
		Username:    "cashier",
		NewPassword: "reset-pass-789",
	}); err != nil {
		t.Fatalf("admin reset: %v", err)
	}

	err = svc.UpdateCashierPassword(adminCtx(), domain.PasswordUpdateRequest{
		Username:    "ghost",
		NewPassword: "whatever-123",
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown account, got %v", err)
	}

	users, err := repo.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	for _, user := range users {
		if user.Username == "cashier" {
			if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("reset-pass-789")) != nil {
				t.Fatalf("stored hash does not match the reset password")
			}
			return
		}
	}
	t.Fatalf("cashier account missing")
}
