package store

import (
	"context"
	"errors"

	"github.com/agamustafayev/kisi-geyim-barkod/internal/domain"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a write violates a uniqueness or
	// business constraint (duplicate barcode, over-returned line, ...).
	ErrConflict = errors.New("conflict")
	// ErrValidation is returned when the payload itself is unusable.
	ErrValidation = errors.New("validation failed")
)

// UserPatch carries a partial user update. The password arrives already
// hashed; the store never sees plaintext credentials.
type UserPatch struct {
	FirstName    *string
	LastName     *string
	PasswordHash *string
	Role         *string
	Active       *bool
}

// Repository is the persistence contract. Implementations must execute each
// method atomically: multi-step operations (sale, return, debt payment,
// stock adjustment with its movement row) either fully apply or leave no
// trace.
type Repository interface {
	// Reference data.
	CreateCategory(ctx context.Context, name string) (domain.Category, error)
	UpdateCategory(ctx context.Context, id int64, name string) (domain.Category, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	DeleteCategory(ctx context.Context, id int64) error

	CreateSize(ctx context.Context, label string) (domain.Size, error)
	UpdateSize(ctx context.Context, id int64, label string) (domain.Size, error)
	ListSizes(ctx context.Context) ([]domain.Size, error)
	DeleteSize(ctx context.Context, id int64) error

	CreateColor(ctx context.Context, name, code string) (domain.Color, error)
	UpdateColor(ctx context.Context, id int64, name, code string) (domain.Color, error)
	ListColors(ctx context.Context) ([]domain.Color, error)
	DeleteColor(ctx context.Context, id int64) error

	// Products.
	CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error)
	UpdateProduct(ctx context.Context, id int64, req domain.ProductUpdateRequest) (domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	GetProduct(ctx context.Context, id int64) (domain.Product, error)
	GetProductByBarcode(ctx context.Context, barcode string) (domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	SearchProducts(ctx context.Context, query string) ([]domain.Product, error)

	// Stock ledger.
	AdjustStock(ctx context.Context, adj domain.StockAdjustment) (domain.Stock, error)
	AddStock(ctx context.Context, req domain.StockAddRequest, unitCost *float64) (domain.Stock, error)
	SetStock(ctx context.Context, id int64, req domain.StockSetRequest) (domain.Stock, error)
	DeleteStock(ctx context.Context, id int64) error
	ListStock(ctx context.Context) ([]domain.Stock, error)
	ListStockByProduct(ctx context.Context, productID int64) ([]domain.Stock, error)
	ListMovements(ctx context.Context, productID int64) ([]domain.StockMovement, error)

	// Transactions. The service prepares headers and lines; the store
	// persists them together with their stock and debt side effects.
	CreateSale(ctx context.Context, sale domain.Sale, items []domain.SaleItem) (domain.SaleWithItems, error)
	GetSale(ctx context.Context, id int64) (domain.SaleWithItems, error)
	CreateReturn(ctx context.Context, ret domain.Return, items []domain.ReturnItem) (domain.ReturnWithItems, error)
	GetReturn(ctx context.Context, id int64) (domain.ReturnWithItems, error)
	ListReturns(ctx context.Context) ([]domain.Return, error)
	CreateDebtPayment(ctx context.Context, payment domain.DebtPayment) (domain.DebtPayment, error)
	ListDebtPayments(ctx context.Context) ([]domain.DebtPayment, error)

	// Customers.
	CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (domain.Customer, error)
	UpdateCustomer(ctx context.Context, id int64, req domain.CustomerUpdateRequest) (domain.Customer, error)
	DeleteCustomer(ctx context.Context, id int64) error
	GetCustomer(ctx context.Context, id int64) (domain.Customer, error)
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	SearchCustomers(ctx context.Context, query string) ([]domain.Customer, error)
	CustomerSales(ctx context.Context, customerID int64) ([]domain.Sale, error)
	CustomerPayments(ctx context.Context, customerID int64) ([]domain.DebtPayment, error)
	OutstandingDebt(ctx context.Context, customerID int64) (float64, error)

	// Reports (read-only).
	DailySales(ctx context.Context, date string) (domain.DailySalesReport, error)
	MonthlySales(ctx context.Context, month string) (domain.MonthlySalesReport, error)
	LowStock(ctx context.Context) ([]domain.LowStockAlert, error)
	SalesList(ctx context.Context, from, to string) ([]domain.SaleSummary, error)
	Profit(ctx context.Context, from, to string) (domain.ProfitReport, error)
	ProductStatistics(ctx context.Context, from, to string, categoryID *int64) (domain.ProductStatsReport, error)
	StockValuation(ctx context.Context) (domain.StockValuation, error)
	CustomerDebtSummary(ctx context.Context) ([]domain.CustomerDebtSummary, error)

	// Settings.
	GetSettings(ctx context.Context) (domain.Settings, error)
	UpdateSettings(ctx context.Context, req domain.SettingsUpdateRequest) (domain.Settings, error)

	// Users.
	CreateUser(ctx context.Context, account domain.UserAccount) (domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (domain.UserAccount, error)
	UpdateUser(ctx context.Context, id int64, patch UserPatch) (domain.User, error)
	DeleteUser(ctx context.Context, id int64) error
}
