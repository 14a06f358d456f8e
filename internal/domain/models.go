package domain

import "time"

type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Size struct {
	ID        int64     `json:"id"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"created_at"`
}

type Color struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Product struct {
	ID           int64     `json:"id"`
	Barcode      string    `json:"barcode"`
	Name         string    `json:"name"`
	CategoryID   *int64    `json:"category_id,omitempty"`
	CategoryName *string   `json:"category_name,omitempty"`
	Color        string    `json:"color,omitempty"`
	Brand        string    `json:"brand,omitempty"`
	CostPrice    float64   `json:"cost_price"`
	SalePrice    float64   `json:"sale_price"`
	Description  string    `json:"description,omitempty"`
	ImagePath    string    `json:"image_path,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type ProductCreateRequest struct {
	Barcode     string  `json:"barcode"`
	Name        string  `json:"name"`
	CategoryID  *int64  `json:"category_id,omitempty"`
	Color       string  `json:"color,omitempty"`
	Brand       string  `json:"brand,omitempty"`
	CostPrice   float64 `json:"cost_price"`
	SalePrice   float64 `json:"sale_price"`
	Description string  `json:"description,omitempty"`
	ImagePath   string  `json:"image_path,omitempty"`
}

type ProductUpdateRequest struct {
	Barcode     *string  `json:"barcode,omitempty"`
	Name        *string  `json:"name,omitempty"`
	CategoryID  *int64   `json:"category_id,omitempty"`
	Color       *string  `json:"color,omitempty"`
	Brand       *string  `json:"brand,omitempty"`
	CostPrice   *float64 `json:"cost_price,omitempty"`
	SalePrice   *float64 `json:"sale_price,omitempty"`
	Description *string  `json:"description,omitempty"`
	ImagePath   *string  `json:"image_path,omitempty"`
}

// Stock is one (product, size) quantity row, joined with display fields.
type Stock struct {
	ID           int64     `json:"id"`
	ProductID    int64     `json:"product_id"`
	SizeID       int64     `json:"size_id"`
	Quantity     int       `json:"quantity"`
	MinQuantity  int       `json:"min_quantity"`
	ProductName  string    `json:"product_name,omitempty"`
	Barcode      string    `json:"barcode,omitempty"`
	CategoryID   *int64    `json:"category_id,omitempty"`
	CategoryName *string   `json:"category_name,omitempty"`
	SizeLabel    string    `json:"size_label,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type StockAddRequest struct {
	ProductID   int64 `json:"product_id"`
	SizeID      int64 `json:"size_id"`
	Quantity    int   `json:"quantity"`
	MinQuantity *int  `json:"min_quantity,omitempty"`
}

type StockSetRequest struct {
	Quantity    int  `json:"quantity"`
	MinQuantity *int `json:"min_quantity,omitempty"`
}

// StockMovement is the append-only audit trail of every quantity change.
// Inbound movements optionally carry the unit cost captured at receipt time.
type StockMovement struct {
	ID           int64     `json:"id"`
	ProductID    int64     `json:"product_id"`
	SizeID       int64     `json:"size_id"`
	Kind         string    `json:"kind"`
	Quantity     int       `json:"quantity"`
	PrevQuantity *int      `json:"prev_quantity,omitempty"`
	NewQuantity  *int      `json:"new_quantity,omitempty"`
	UnitCost     *float64  `json:"unit_cost,omitempty"`
	TotalValue   *float64  `json:"total_value,omitempty"`
	Note         string    `json:"note,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// StockAdjustment is the ledger-primitive input: a signed delta against one
// (product, size) pair plus the movement metadata recorded with it.
type StockAdjustment struct {
	ProductID int64
	SizeID    int64
	Delta     int
	Kind      string
	UnitCost  *float64
	Note      string
}

type Sale struct {
	ID            int64     `json:"id"`
	Number        string    `json:"number"`
	CustomerID    *int64    `json:"customer_id,omitempty"`
	CustomerName  *string   `json:"customer_name,omitempty"`
	GrossAmount   float64   `json:"gross_amount"`
	Discount      float64   `json:"discount"`
	NetAmount     float64   `json:"net_amount"`
	PaymentMethod string    `json:"payment_method"`
	Note          string    `json:"note,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type SaleItem struct {
	ID          int64     `json:"id"`
	SaleID      int64     `json:"sale_id"`
	ProductID   int64     `json:"product_id"`
	SizeID      int64     `json:"size_id"`
	Quantity    int       `json:"quantity"`
	UnitPrice   float64   `json:"unit_price"`
	LineTotal   float64   `json:"line_total"`
	ProductName string    `json:"product_name,omitempty"`
	Barcode     string    `json:"barcode,omitempty"`
	SizeLabel   string    `json:"size_label,omitempty"`
	ReturnedQty int       `json:"returned_qty"`
	CreatedAt   time.Time `json:"created_at"`
}

type SaleWithItems struct {
	Sale  Sale       `json:"sale"`
	Items []SaleItem `json:"items"`
}

type SaleLine struct {
	ProductID int64   `json:"product_id"`
	SizeID    int64   `json:"size_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type SaleCreateRequest struct {
	CustomerID    *int64     `json:"customer_id,omitempty"`
	Items         []SaleLine `json:"items"`
	Discount      float64    `json:"discount"`
	PaymentMethod string     `json:"payment_method"`
	Note          string     `json:"note,omitempty"`
}

type Return struct {
	ID           int64     `json:"id"`
	Number       string    `json:"number"`
	SaleID       int64     `json:"sale_id"`
	SaleNumber   string    `json:"sale_number,omitempty"`
	CustomerID   *int64    `json:"customer_id,omitempty"`
	CustomerName *string   `json:"customer_name,omitempty"`
	TotalAmount  float64   `json:"total_amount"`
	Reason       string    `json:"reason,omitempty"`
	Note         string    `json:"note,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type ReturnItem struct {
	ID          int64     `json:"id"`
	ReturnID    int64     `json:"return_id"`
	ProductID   int64     `json:"product_id"`
	SizeID      int64     `json:"size_id"`
	Quantity    int       `json:"quantity"`
	UnitPrice   float64   `json:"unit_price"`
	LineTotal   float64   `json:"line_total"`
	ProductName string    `json:"product_name,omitempty"`
	Barcode     string    `json:"barcode,omitempty"`
	SizeLabel   string    `json:"size_label,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type ReturnWithItems struct {
	Return Return       `json:"return"`
	Items  []ReturnItem `json:"items"`
}

type ReturnLine struct {
	ProductID int64   `json:"product_id"`
	SizeID    int64   `json:"size_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type ReturnCreateRequest struct {
	SaleID int64        `json:"sale_id"`
	Items  []ReturnLine `json:"items"`
	Reason string       `json:"reason,omitempty"`
	Note   string       `json:"note,omitempty"`
}

type Customer struct {
	ID          int64     `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Phone       string    `json:"phone"`
	Note        string    `json:"note,omitempty"`
	OpeningDebt float64   `json:"opening_debt"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CustomerCreateRequest struct {
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	Phone       string  `json:"phone"`
	Note        string  `json:"note,omitempty"`
	OpeningDebt float64 `json:"opening_debt"`
}

type CustomerUpdateRequest struct {
	FirstName   *string  `json:"first_name,omitempty"`
	LastName    *string  `json:"last_name,omitempty"`
	Phone       *string  `json:"phone,omitempty"`
	Note        *string  `json:"note,omitempty"`
	OpeningDebt *float64 `json:"opening_debt,omitempty"`
}

type DebtPayment struct {
	ID           int64     `json:"id"`
	CustomerID   int64     `json:"customer_id"`
	CustomerName string    `json:"customer_name,omitempty"`
	Amount       float64   `json:"amount"`
	Method       string    `json:"method"`
	Note         string    `json:"note,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type DebtPaymentCreateRequest struct {
	CustomerID int64   `json:"customer_id"`
	Amount     float64 `json:"amount"`
	Method     string  `json:"method"`
	Note       string  `json:"note,omitempty"`
}

type Settings struct {
	StoreName        string    `json:"store_name"`
	LogoPath         string    `json:"logo_path,omitempty"`
	Phone            string    `json:"phone,omitempty"`
	Address          string    `json:"address,omitempty"`
	Whatsapp         string    `json:"whatsapp,omitempty"`
	Instagram        string    `json:"instagram,omitempty"`
	TikTok           string    `json:"tiktok,omitempty"`
	SizesEnabled     bool      `json:"sizes_enabled"`
	LockPasscode     string    `json:"lock_passcode,omitempty"`
	StoreNameOnLabel bool      `json:"store_name_on_label"`
	BarcodePrinter   string    `json:"barcode_printer,omitempty"`
	ReceiptPrinter   string    `json:"receipt_printer,omitempty"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type SettingsUpdateRequest struct {
	StoreName        *string `json:"store_name,omitempty"`
	LogoPath         *string `json:"logo_path,omitempty"`
	Phone            *string `json:"phone,omitempty"`
	Address          *string `json:"address,omitempty"`
	Whatsapp         *string `json:"whatsapp,omitempty"`
	Instagram        *string `json:"instagram,omitempty"`
	TikTok           *string `json:"tiktok,omitempty"`
	SizesEnabled     *bool   `json:"sizes_enabled,omitempty"`
	LockPasscode     *string `json:"lock_passcode,omitempty"`
	StoreNameOnLabel *bool   `json:"store_name_on_label,omitempty"`
	BarcodePrinter   *string `json:"barcode_printer,omitempty"`
	ReceiptPrinter   *string `json:"receipt_printer,omitempty"`
}

type User struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserAccount is the internal persistence model carrying the password hash.
type UserAccount struct {
	User
	PasswordHash string
}

type UserCreateRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	Role      string `json:"role"`
}

type UserUpdateRequest struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Password  *string `json:"password,omitempty"`
	Role      *string `json:"role,omitempty"`
	Active    *bool   `json:"active,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type DailySalesReport struct {
	Date      string  `json:"date"`
	SaleCount int     `json:"sale_count"`
	Gross     float64 `json:"gross"`
	Discount  float64 `json:"discount"`
	Net       float64 `json:"net"`
}

type MonthlySalesReport struct {
	Month     string  `json:"month"`
	SaleCount int     `json:"sale_count"`
	Gross     float64 `json:"gross"`
	Discount  float64 `json:"discount"`
	Net       float64 `json:"net"`
}

type LowStockAlert struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Barcode     string `json:"barcode"`
	SizeLabel   string `json:"size_label"`
	Quantity    int    `json:"quantity"`
	MinQuantity int    `json:"min_quantity"`
}

// SaleSummary is one row of the sales list with the derived return status.
type SaleSummary struct {
	ID            int64     `json:"id"`
	Number        string    `json:"number"`
	GrossAmount   float64   `json:"gross_amount"`
	Discount      float64   `json:"discount"`
	NetAmount     float64   `json:"net_amount"`
	PaymentMethod string    `json:"payment_method"`
	Note          string    `json:"note,omitempty"`
	ItemCount     int       `json:"item_count"`
	ReturnStatus  string    `json:"return_status"`
	CreatedAt     time.Time `json:"created_at"`
}

type ProfitReportItem struct {
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	Barcode     string  `json:"barcode"`
	SizeLabel   string  `json:"size_label"`
	Quantity    int     `json:"quantity"`
	CostPrice   float64 `json:"cost_price"`
	SalePrice   float64 `json:"sale_price"`
	TotalCost   float64 `json:"total_cost"`
	TotalSales  float64 `json:"total_sales"`
	Profit      float64 `json:"profit"`
}

type ProfitReport struct {
	From          string             `json:"from"`
	To            string             `json:"to"`
	Items         []ProfitReportItem `json:"items"`
	TotalCost     float64            `json:"total_cost"`
	TotalSales    float64            `json:"total_sales"`
	TotalProfit   float64            `json:"total_profit"`
	TotalDiscount float64            `json:"total_discount"`
	NetProfit     float64            `json:"net_profit"`
}

type ProductStats struct {
	ProductID     int64   `json:"product_id"`
	ProductName   string  `json:"product_name"`
	Barcode       string  `json:"barcode"`
	CategoryID    *int64  `json:"category_id,omitempty"`
	CategoryName  *string `json:"category_name,omitempty"`
	PurchasedQty  int     `json:"purchased_qty"`
	SoldQty       int     `json:"sold_qty"`
	PurchaseValue float64 `json:"purchase_value"`
	SalesValue    float64 `json:"sales_value"`
	UnitMargin    float64 `json:"unit_margin"`
	Profit        float64 `json:"profit"`
	CurrentStock  int     `json:"current_stock"`
}

type ProductStatsReport struct {
	From               string         `json:"from"`
	To                 string         `json:"to"`
	Items              []ProductStats `json:"items"`
	TotalPurchasedQty  int            `json:"total_purchased_qty"`
	TotalSoldQty       int            `json:"total_sold_qty"`
	TotalPurchaseValue float64        `json:"total_purchase_value"`
	TotalSalesValue    float64        `json:"total_sales_value"`
	TotalProfit        float64        `json:"total_profit"`
	AvgMarginPercent   float64        `json:"avg_margin_percent"`
}

type StockValuation struct {
	ProductCount    int     `json:"product_count"`
	TotalUnits      int     `json:"total_units"`
	CostValue       float64 `json:"cost_value"`
	SaleValue       float64 `json:"sale_value"`
	PotentialProfit float64 `json:"potential_profit"`
}

type CustomerDebtSummary struct {
	CustomerID   int64   `json:"customer_id"`
	CustomerName string  `json:"customer_name"`
	Phone        string  `json:"phone"`
	TotalDebt    float64 `json:"total_debt"`
	TotalPaid    float64 `json:"total_paid"`
	Remaining    float64 `json:"remaining"`
}

const (
	MovementIn  = "in"
	MovementOut = "out"
)

const (
	PaymentCash   = "cash"
	PaymentCard   = "card"
	PaymentCredit = "credit"
)

const (
	ReturnStatusNone    = "none"
	ReturnStatusPartial = "partial"
	ReturnStatusFull    = "full"
)

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)
