package domain

import "time"

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Product struct {
	ID         string `json:"id"`
	CategoryID string `json:"category_id"`
	Category   string `json:"category"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Stock      int    `json:"stock"`
	LowStock   int    `json:"low_stock"`
	Active     bool   `json:"active"`
}

type ProductCreateRequest struct {
	ID           string `json:"id"`
	CategoryID   string `json:"category_id"`
	Name         string `json:"name"`
	PriceCents   int64  `json:"price_cents"`
	InitialStock int    `json:"initial_stock"`
	LowStock     int    `json:"low_stock"`
}

type ProductUpdateRequest struct {
	CategoryID *string `json:"category_id,omitempty"`
	Name       *string `json:"name,omitempty"`
	PriceCents *int64  `json:"price_cents,omitempty"`
	Stock      *int    `json:"stock,omitempty"`
	LowStock   *int    `json:"low_stock,omitempty"`
	Active     *bool   `json:"active,omitempty"`
}

// LineItem is one product entry inside an unsaved cart. Owned by exactly
// one cart; order rows get their own OrderItem copies at checkout.
type LineItem struct {
	ProductID      string `json:"product_id"`
	Name           string `json:"name"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Qty            int    `json:"qty"`
	Note           string `json:"note,omitempty"`
}

const (
	DiscountModeAmount  = "amount"
	DiscountModePercent = "percent"
)

type Discount struct {
	Mode        string  `json:"mode"`
	AmountCents int64   `json:"amount_cents"`
	Percent     float64 `json:"percent"`
}

type Totals struct {
	SubtotalCents int64 `json:"subtotal_cents"`
	DiscountCents int64 `json:"discount_cents"`
	TaxCents      int64 `json:"tax_cents"`
	TotalCents    int64 `json:"total_cents"`
}

// CartSnapshot is the JSON-stable form of a cart used for draft payloads.
type CartSnapshot struct {
	Items    []LineItem `json:"items"`
	Discount Discount   `json:"discount"`
}

type Draft struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Payload    []byte    `json:"-"`
	TotalCents int64     `json:"total_cents"`
	CreatedAt  time.Time `json:"created_at"`
}

type DraftSummary struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	TotalCents int64     `json:"total_cents"`
	CreatedAt  time.Time `json:"created_at"`
}

const (
	OrderStatusPending   = "Pending"
	OrderStatusCompleted = "Completed"
	OrderStatusCancelled = "Cancelled"
)

const (
	PaymentCash     = "cash"
	PaymentTransfer = "transfer"
	PaymentEwallet  = "ewallet"
)

type Order struct {
	ID                string      `json:"id"`
	StartedAt         time.Time   `json:"started_at"`
	EndedAt           *time.Time  `json:"ended_at,omitempty"`
	CashierID         string      `json:"cashier_id"`
	CustomerName      string      `json:"customer_name"`
	PaymentMethod     string      `json:"payment_method"`
	Status            string      `json:"status"`
	ReferenceNo       string      `json:"reference_no,omitempty"`
	SubtotalCents     int64       `json:"subtotal_cents"`
	DiscountCents     int64       `json:"discount_cents"`
	TaxCents          int64       `json:"tax_cents"`
	TotalCents        int64       `json:"total_cents"`
	AmountPaidCents   int64       `json:"amount_paid_cents"`
	CashReceivedCents int64       `json:"cash_received_cents"`
	ChangeDueCents    int64       `json:"change_due_cents"`
	Items             []OrderItem `json:"items,omitempty"`
}

// OrderItem is immutable once written; it is created in the same atomic
// operation as its parent order.
type OrderItem struct {
	OrderID        string `json:"order_id"`
	ProductID      string `json:"product_id"`
	Name           string `json:"name"`
	Qty            int    `json:"qty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	SubtotalCents  int64  `json:"subtotal_cents"`
	Note           string `json:"note,omitempty"`
}

type OrderFilter struct {
	IDLike        string
	Status        string
	PaymentMethod string
	From          *time.Time
	To            *time.Time
}

// OrderListRow is the typed listing record for the transactions screen.
type OrderListRow struct {
	OrderID       string     `json:"order_id"`
	StartedAt     time.Time  `json:"started_at"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
	PaymentMethod string     `json:"payment_method"`
	Status        string     `json:"status"`
	ItemCount     int        `json:"item_count"`
	TotalCents    int64      `json:"total_cents"`
	AmountPaid    int64      `json:"amount_paid_cents"`
	ChangeDue     int64      `json:"change_due_cents"`
}

type SalesSummary struct {
	OrderCount      int64 `json:"order_count"`
	TotalSalesCents int64 `json:"total_sales_cents"`
}

type ProductSales struct {
	ProductID       string `json:"product_id"`
	Name            string `json:"name"`
	QtySold         int    `json:"qty_sold"`
	TotalSalesCents int64  `json:"total_sales_cents"`
}

// OrderItemRef is the raw (order, product) row exported for the
// recommender's pair-frequency build. Restricted to completed orders.
type OrderItemRef struct {
	OrderID   string
	ProductID string
}

type CheckoutLine struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
	Note      string `json:"note,omitempty"`
}

type CheckoutRequest struct {
	CustomerName    string         `json:"customer_name"`
	PaymentMethod   string         `json:"payment_method"`
	AmountPaidCents int64          `json:"amount_paid_cents"`
	Discount        Discount       `json:"discount"`
	Items           []CheckoutLine `json:"items"`
}

type CheckoutResponse struct {
	OrderID         string `json:"order_id"`
	Status          string `json:"status"`
	PaymentMethod   string `json:"payment_method"`
	SubtotalCents   int64  `json:"subtotal_cents"`
	DiscountCents   int64  `json:"discount_cents"`
	TaxCents        int64  `json:"tax_cents"`
	TotalCents      int64  `json:"total_cents"`
	AmountPaidCents int64  `json:"amount_paid_cents"`
	ChangeDueCents  int64  `json:"change_due_cents"`
	ItemCount       int    `json:"item_count"`
	CreatedAt       string `json:"created_at"`
}

type ResolveOrderRequest struct {
	ReferenceNo     string `json:"reference_no"`
	AmountPaidCents int64  `json:"amount_paid_cents"`
}

type SaveDraftRequest struct {
	Title    string         `json:"title"`
	Discount Discount       `json:"discount"`
	Items    []CheckoutLine `json:"items"`
}

type LoadDraftResponse struct {
	DraftID  string     `json:"draft_id"`
	Title    string     `json:"title"`
	Items    []LineItem `json:"items"`
	Discount Discount   `json:"discount"`
	Totals   Totals     `json:"totals"`
}

type SuggestionRequest struct {
	ProductIDs []string `json:"product_ids"`
	TopN       int      `json:"top_n"`
}

type Suggestion struct {
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
}

type SuggestionResponse struct {
	Suggestions []Suggestion `json:"suggestions"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// PasswordUpdateRequest changes an account password. Username is optional:
// blank means the authenticated actor changes their own password (current
// password required); admins may name another account and skip the current
// password.
type PasswordUpdateRequest struct {
	Username        string `json:"username,omitempty"`
	CurrentPassword string `json:"current_password,omitempty"`
	NewPassword     string `json:"new_password"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}
