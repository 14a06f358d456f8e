package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/agamustafayev/kisi-geyim-barkod/internal/domain"
	"github.com/agamustafayev/kisi-geyim-barkod/internal/store"
)

func openTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), opts)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func seedProduct(t *testing.T, s *Store) (domain.Product, domain.Size) {
	t.Helper()
	ctx := context.Background()
	product, err := s.CreateProduct(ctx, domain.ProductCreateRequest{
		Barcode: "4760000000017", Name: "Oxford Shirt", CostPrice: 20, SalePrice: 35,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	sizes, err := s.ListSizes(ctx)
	if err != nil || len(sizes) == 0 {
		t.Fatalf("list sizes: %v (%d rows)", err, len(sizes))
	}
	return product, sizes[0]
}

func TestMigrateIsIdempotentAndSeeds(t *testing.T) {
	s := openTestStore(t, Options{AllowNegativeStock: true})
	ctx := context.Background()

	// Second run must not error or duplicate reference data.
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("second migrate: %v", err)
	}

	sizes, err := s.ListSizes(ctx)
	if err != nil {
		t.Fatalf("list sizes: %v", err)
	}
	if len(sizes) != 20 {
		t.Fatalf("seeded sizes = %d, want 20", len(sizes))
	}
	categories, _ := s.ListCategories(ctx)
	if len(categories) != 5 {
		t.Fatalf("seeded categories = %d, want 5", len(categories))
	}
	colors, _ := s.ListColors(ctx)
	if len(colors) != 10 {
		t.Fatalf("seeded colors = %d, want 10", len(colors))
	}

	admin, err := s.GetUserByUsername(ctx, "admin")
	if err != nil {
		t.Fatalf("bootstrap admin missing: %v", err)
	}
	if admin.Role != domain.RoleAdmin || !admin.Active {
		t.Fatalf("bootstrap admin = %+v", admin.User)
	}

	settings, err := s.GetSettings(ctx)
	if err != nil {
		t.Fatalf("settings row missing: %v", err)
	}
	if !settings.SizesEnabled {
		t.Fatalf("settings defaults = %+v", settings)
	}
}

func TestAdjustStockUpsertsAndLogs(t *testing.T) {
	s := openTestStore(t, Options{AllowNegativeStock: true})
	ctx := context.Background()
	product, size := seedProduct(t, s)

	cost := 18.0
	row, err := s.AdjustStock(ctx, domain.StockAdjustment{
		ProductID: product.ID, SizeID: size.ID, Delta: 5,
		Kind: domain.MovementIn, UnitCost: &cost, Note: "first receipt",
	})
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if row.Quantity != 5 {
		t.Fatalf("quantity = %d, want 5", row.Quantity)
	}

	row, err = s.AdjustStock(ctx, domain.StockAdjustment{
		ProductID: product.ID, SizeID: size.ID, Delta: -2, Kind: domain.MovementOut,
	})
	if err != nil {
		t.Fatalf("adjust down: %v", err)
	}
	if row.Quantity != 3 {
		t.Fatalf("quantity = %d, want 3", row.Quantity)
	}

	moves, err := s.ListMovements(ctx, product.ID)
	if err != nil {
		t.Fatalf("movements: %v", err)
	}
	if len(moves) != 2 {
		t.Fatalf("movements = %d, want 2", len(moves))
	}
	first := moves[1] // oldest last, list is newest-first
	if first.Kind != domain.MovementIn || first.Quantity != 5 {
		t.Fatalf("inbound movement = %+v", first)
	}
	if first.UnitCost == nil || *first.UnitCost != 18 || first.TotalValue == nil || *first.TotalValue != 90 {
		t.Fatalf("inbound valuation = %+v", first)
	}
	if *moves[0].PrevQuantity != 5 || *moves[0].NewQuantity != 3 {
		t.Fatalf("outbound before/after = %+v", moves[0])
	}
}

func TestCreateSaleRollsBackOnInsufficientStock(t *testing.T) {
	s := openTestStore(t, Options{AllowNegativeStock: false})
	ctx := context.Background()
	product, size := seedProduct(t, s)

	if _, err := s.AddStock(ctx, domain.StockAddRequest{
		ProductID: product.ID, SizeID: size.ID, Quantity: 2,
	}, nil); err != nil {
		t.Fatalf("add stock: %v", err)
	}

	other, err := s.CreateProduct(ctx, domain.ProductCreateRequest{
		Barcode: "4760000000024", Name: "Chinos", CostPrice: 15, SalePrice: 28,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	// First line would succeed; the second oversells an empty record. The
	// whole document must vanish, including the first line's decrement.
	_, err = s.CreateSale(ctx, domain.Sale{Number: "S-TEST0001", PaymentMethod: domain.PaymentCash},
		[]domain.SaleItem{
			{ProductID: product.ID, SizeID: size.ID, Quantity: 1, UnitPrice: 35, LineTotal: 35},
			{ProductID: other.ID, SizeID: size.ID, Quantity: 1, UnitPrice: 28, LineTotal: 28},
		})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("oversell: err = %v, want conflict", err)
	}

	rows, err := s.ListStockByProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("list stock: %v", err)
	}
	if len(rows) != 1 || rows[0].Quantity != 2 {
		t.Fatalf("stock after rollback = %+v", rows)
	}
	moves, _ := s.ListMovements(ctx, product.ID)
	if len(moves) != 1 {
		t.Fatalf("rolled-back sale left movements: %+v", moves)
	}
	list, err := s.SalesList(ctx, "2000-01-01", "2100-01-01")
	if err != nil {
		t.Fatalf("sales list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("rolled-back sale persisted: %+v", list)
	}
}

func TestReturnCapAndCreditCompensation(t *testing.T) {
	s := openTestStore(t, Options{AllowNegativeStock: true})
	ctx := context.Background()
	product, size := seedProduct(t, s)

	customer, err := s.CreateCustomer(ctx, domain.CustomerCreateRequest{
		FirstName: "Rashad", Phone: "+994501234567",
	})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}

	sale, err := s.CreateSale(ctx, domain.Sale{
		Number: "S-TEST0002", CustomerID: &customer.ID,
		GrossAmount: 70, NetAmount: 70, PaymentMethod: domain.PaymentCredit,
	}, []domain.SaleItem{
		{ProductID: product.ID, SizeID: size.ID, Quantity: 2, UnitPrice: 35, LineTotal: 70},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}

	debt, err := s.OutstandingDebt(ctx, customer.ID)
	if err != nil {
		t.Fatalf("debt: %v", err)
	}
	if debt != 70 {
		t.Fatalf("debt after credit sale = %.2f, want 70", debt)
	}

	line := domain.ReturnItem{ProductID: product.ID, SizeID: size.ID, Quantity: 1, UnitPrice: 35}
	ret, err := s.CreateReturn(ctx, domain.Return{Number: "R-TEST0001", SaleID: sale.Sale.ID},
		[]domain.ReturnItem{line})
	if err != nil {
		t.Fatalf("first return: %v", err)
	}
	if ret.Return.TotalAmount != 35 {
		t.Fatalf("return total = %.2f", ret.Return.TotalAmount)
	}
	if ret.Return.CustomerID == nil || *ret.Return.CustomerID != customer.ID {
		t.Fatalf("return did not inherit the sale's customer: %+v", ret.Return)
	}

	debt, _ = s.OutstandingDebt(ctx, customer.ID)
	if debt != 35 {
		t.Fatalf("debt after credit return = %.2f, want 35", debt)
	}

	if _, err := s.CreateReturn(ctx, domain.Return{Number: "R-TEST0002", SaleID: sale.Sale.ID},
		[]domain.ReturnItem{line}); err != nil {
		t.Fatalf("second return: %v", err)
	}
	_, err = s.CreateReturn(ctx, domain.Return{Number: "R-TEST0003", SaleID: sale.Sale.ID},
		[]domain.ReturnItem{line})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("over-return: err = %v, want conflict", err)
	}
	if !strings.Contains(err.Error(), product.Name) {
		t.Fatalf("conflict should name the product: %v", err)
	}

	rows, _ := s.ListStockByProduct(ctx, product.ID)
	if len(rows) != 1 || rows[0].Quantity != 0 {
		// sold 2 from nothing (-2), restocked 2.
		t.Fatalf("stock after full return cycle = %+v", rows)
	}
}

func TestReturnCapSumsDuplicateSaleLines(t *testing.T) {
	s := openTestStore(t, Options{AllowNegativeStock: true})
	ctx := context.Background()
	product, size := seedProduct(t, s)

	// A cashier can scan the same item twice, producing two lines for one
	// (product, size). The cap must count both.
	sale, err := s.CreateSale(ctx, domain.Sale{
		Number: "S-TEST0005", GrossAmount: 70, NetAmount: 70, PaymentMethod: domain.PaymentCash,
	}, []domain.SaleItem{
		{ProductID: product.ID, SizeID: size.ID, Quantity: 1, UnitPrice: 35, LineTotal: 35},
		{ProductID: product.ID, SizeID: size.ID, Quantity: 1, UnitPrice: 35, LineTotal: 35},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}

	ret, err := s.CreateReturn(ctx, domain.Return{Number: "R-TEST0004", SaleID: sale.Sale.ID},
		[]domain.ReturnItem{{ProductID: product.ID, SizeID: size.ID, Quantity: 2, UnitPrice: 35}})
	if err != nil {
		t.Fatalf("full return of duplicate-line sale: %v", err)
	}
	if ret.Return.TotalAmount != 70 {
		t.Fatalf("return total = %.2f, want 70", ret.Return.TotalAmount)
	}

	_, err = s.CreateReturn(ctx, domain.Return{Number: "R-TEST0005", SaleID: sale.Sale.ID},
		[]domain.ReturnItem{{ProductID: product.ID, SizeID: size.ID, Quantity: 1, UnitPrice: 35}})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("over-return after full return: err = %v, want conflict", err)
	}
}

func TestCustomerUpdateIsInjectionSafe(t *testing.T) {
	s := openTestStore(t, Options{AllowNegativeStock: true})
	ctx := context.Background()

	customer, err := s.CreateCustomer(ctx, domain.CustomerCreateRequest{
		FirstName: "Aysel", Phone: "+994551112233",
	})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}

	hostile := "', phone='hacked' --"
	updated, err := s.UpdateCustomer(ctx, customer.ID, domain.CustomerUpdateRequest{
		FirstName: &hostile,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.FirstName != hostile {
		t.Fatalf("hostile value mangled: %q", updated.FirstName)
	}
	if updated.Phone != "+994551112233" {
		t.Fatalf("phone changed by injection attempt: %q", updated.Phone)
	}
}

func TestUniqueConstraintsSurfaceAsConflicts(t *testing.T) {
	s := openTestStore(t, Options{AllowNegativeStock: true})
	ctx := context.Background()

	if _, err := s.CreateProduct(ctx, domain.ProductCreateRequest{
		Barcode: "111", Name: "A",
	}); err != nil {
		t.Fatalf("create product: %v", err)
	}
	_, err := s.CreateProduct(ctx, domain.ProductCreateRequest{Barcode: "111", Name: "B"})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("duplicate barcode: err = %v, want conflict", err)
	}

	if _, err := s.CreateCustomer(ctx, domain.CustomerCreateRequest{
		FirstName: "A", Phone: "+994",
	}); err != nil {
		t.Fatalf("create customer: %v", err)
	}
	_, err = s.CreateCustomer(ctx, domain.CustomerCreateRequest{FirstName: "B", Phone: "+994"})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("duplicate phone: err = %v, want conflict", err)
	}

	// Empty phones must not collide with each other.
	if _, err := s.CreateCustomer(ctx, domain.CustomerCreateRequest{FirstName: "C"}); err != nil {
		t.Fatalf("customer without phone: %v", err)
	}
	if _, err := s.CreateCustomer(ctx, domain.CustomerCreateRequest{FirstName: "D"}); err != nil {
		t.Fatalf("second customer without phone: %v", err)
	}
}

func TestReferenceDataDeleteGuards(t *testing.T) {
	s := openTestStore(t, Options{AllowNegativeStock: true})
	ctx := context.Background()

	category, err := s.CreateCategory(ctx, "Outerwear")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	if _, err := s.CreateProduct(ctx, domain.ProductCreateRequest{
		Barcode: "222", Name: "Coat", CategoryID: &category.ID,
	}); err != nil {
		t.Fatalf("create product: %v", err)
	}
	if err := s.DeleteCategory(ctx, category.ID); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("delete referenced category: err = %v, want conflict", err)
	}
	if err := s.DeleteCategory(ctx, 99999); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("delete missing category: err = %v, want not found", err)
	}
}

func TestReferenceDataRename(t *testing.T) {
	s := openTestStore(t, Options{AllowNegativeStock: true})
	ctx := context.Background()

	category, err := s.CreateCategory(ctx, "Outerwear")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	renamed, err := s.UpdateCategory(ctx, category.ID, "Jackets")
	if err != nil {
		t.Fatalf("rename category: %v", err)
	}
	if renamed.Name != "Jackets" {
		t.Fatalf("renamed category = %+v", renamed)
	}
	if _, err := s.UpdateCategory(ctx, category.ID, "Footwear"); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("rename onto seeded name: err = %v, want conflict", err)
	}
	if _, err := s.UpdateCategory(ctx, 99999, "Nope"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("rename missing category: err = %v, want not found", err)
	}

	size, err := s.CreateSize(ctx, "52")
	if err != nil {
		t.Fatalf("create size: %v", err)
	}
	if _, err := s.UpdateSize(ctx, size.ID, "54"); err != nil {
		t.Fatalf("rename size: %v", err)
	}
	if _, err := s.UpdateSize(ctx, size.ID, "M"); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("rename onto seeded label: err = %v, want conflict", err)
	}

	color, err := s.CreateColor(ctx, "Burgundy", "#800020")
	if err != nil {
		t.Fatalf("create color: %v", err)
	}
	updated, err := s.UpdateColor(ctx, color.ID, "Maroon", "#85144b")
	if err != nil {
		t.Fatalf("rename color: %v", err)
	}
	if updated.Name != "Maroon" || updated.Code != "#85144b" {
		t.Fatalf("renamed color = %+v", updated)
	}
}

func TestLastAdminGuard(t *testing.T) {
	s := openTestStore(t, Options{AllowNegativeStock: true})
	ctx := context.Background()

	admin, err := s.GetUserByUsername(ctx, "admin")
	if err != nil {
		t.Fatalf("bootstrap admin: %v", err)
	}
	if err := s.DeleteUser(ctx, admin.ID); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("deleting the only admin: err = %v, want conflict", err)
	}
	off := false
	if _, err := s.UpdateUser(ctx, admin.ID, store.UserPatch{Active: &off}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("deactivating the only admin: err = %v, want conflict", err)
	}

	if _, err := s.CreateUser(ctx, domain.UserAccount{
		User:         domain.User{Username: "backup", Role: domain.RoleAdmin, Active: true},
		PasswordHash: "x",
	}); err != nil {
		t.Fatalf("create backup admin: %v", err)
	}
	if err := s.DeleteUser(ctx, admin.ID); err != nil {
		t.Fatalf("delete admin with backup present: %v", err)
	}
}

func TestDailySalesAndValuation(t *testing.T) {
	s := openTestStore(t, Options{AllowNegativeStock: true})
	ctx := context.Background()
	product, size := seedProduct(t, s)

	if _, err := s.AddStock(ctx, domain.StockAddRequest{
		ProductID: product.ID, SizeID: size.ID, Quantity: 10,
	}, nil); err != nil {
		t.Fatalf("add stock: %v", err)
	}
	if _, err := s.CreateSale(ctx, domain.Sale{
		Number: "S-TEST0003", GrossAmount: 70, Discount: 10, NetAmount: 60,
		PaymentMethod: domain.PaymentCash,
	}, []domain.SaleItem{
		{ProductID: product.ID, SizeID: size.ID, Quantity: 2, UnitPrice: 35, LineTotal: 70},
	}); err != nil {
		t.Fatalf("create sale: %v", err)
	}

	today := time.Now().UTC().Format("2006-01-02")
	day, err := s.DailySales(ctx, today)
	if err != nil {
		t.Fatalf("daily sales: %v", err)
	}
	if day.SaleCount != 1 || day.Gross != 70 || day.Discount != 10 || day.Net != 60 {
		t.Fatalf("daily report = %+v", day)
	}

	empty, _ := s.DailySales(ctx, "2001-01-01")
	if empty.SaleCount != 0 || empty.Gross != 0 {
		t.Fatalf("empty day not zero-filled: %+v", empty)
	}

	val, err := s.StockValuation(ctx)
	if err != nil {
		t.Fatalf("valuation: %v", err)
	}
	if val.ProductCount != 1 || val.TotalUnits != 8 || val.CostValue != 160 || val.SaleValue != 280 {
		t.Fatalf("valuation = %+v", val)
	}
}

func TestSetStockLogsCorrection(t *testing.T) {
	s := openTestStore(t, Options{AllowNegativeStock: true})
	ctx := context.Background()
	product, size := seedProduct(t, s)

	row, err := s.AddStock(ctx, domain.StockAddRequest{
		ProductID: product.ID, SizeID: size.ID, Quantity: 10,
	}, nil)
	if err != nil {
		t.Fatalf("add stock: %v", err)
	}

	min := 2
	row, err = s.SetStock(ctx, row.ID, domain.StockSetRequest{Quantity: 4, MinQuantity: &min})
	if err != nil {
		t.Fatalf("set stock: %v", err)
	}
	if row.Quantity != 4 || row.MinQuantity != 2 {
		t.Fatalf("after set = %+v", row)
	}

	moves, _ := s.ListMovements(ctx, product.ID)
	if len(moves) != 2 {
		t.Fatalf("movements = %d, want receipt + correction", len(moves))
	}
	if moves[0].Kind != domain.MovementOut || moves[0].Quantity != 6 {
		t.Fatalf("correction movement = %+v", moves[0])
	}
}
