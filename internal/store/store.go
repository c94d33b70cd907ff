package store

import (
	"context"
	"errors"
	"time"

	"kedaikopi/backend/internal/domain"
)

// Sentinel errors shared by all repository implementations. Anything else
// returned from a repository is treated as a persistence failure.
var (
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("validation failed")
	ErrInsufficientPayment = errors.New("insufficient payment")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrForbidden           = errors.New("forbidden")
)

type Repository interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	CreateCategory(ctx context.Context, name string) (*domain.Category, error)

	ListProducts(ctx context.Context) ([]domain.Product, error)
	ListProductsByCategory(ctx context.Context, categoryID string) ([]domain.Product, error)
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
	GetProductsByIDs(ctx context.Context, productIDs []string) (map[string]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	CategorySiblings(ctx context.Context, productIDs []string) ([]domain.Product, error)
	TopSellers(ctx context.Context, limit int) ([]domain.ProductSales, error)

	CreateDraft(ctx context.Context, draft domain.Draft) (*domain.Draft, error)
	ListDrafts(ctx context.Context) ([]domain.DraftSummary, error)
	PopDraft(ctx context.Context, draftID string) (*domain.Draft, error)
	DeleteDraft(ctx context.Context, draftID string) error
	DeleteAllDrafts(ctx context.Context) error

	CreateOrder(ctx context.Context, order domain.Order) (*domain.Order, error)
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	GetOrderItems(ctx context.Context, orderID string) ([]domain.OrderItem, error)
	ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.OrderListRow, error)
	ResolveOrder(ctx context.Context, orderID string, referenceNo string, amountPaidCents int64, at time.Time) (*domain.Order, error)
	CancelOrder(ctx context.Context, orderID string, at time.Time) (*domain.Order, error)
	CountOrdersByStatus(ctx context.Context, status string) (int, error)
	SalesSummary(ctx context.Context, from time.Time, to time.Time) (domain.SalesSummary, error)
	ListRecentOrders(ctx context.Context, limit int) ([]domain.OrderListRow, error)
	BestSellersSince(ctx context.Context, since time.Time, limit int) ([]domain.ProductSales, error)
	CompletedOrderItemRefs(ctx context.Context, lastNOrders int) ([]domain.OrderItemRef, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
