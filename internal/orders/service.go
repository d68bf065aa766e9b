package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"gorm.io/gorm"

	"github.com/kmoroz/craft_shop/internal/cart"
	"github.com/kmoroz/craft_shop/internal/catalog"
	"github.com/kmoroz/craft_shop/internal/identity"
	"github.com/kmoroz/craft_shop/internal/logging"
	"github.com/kmoroz/craft_shop/internal/models"
)

var (
	ErrEmptyCart = errors.New("cart is empty")
	ErrNotFound  = errors.New("order not found")
)

// ValidationError lists every missing or malformed checkout field, so the
// form shows all problems at once instead of one per submit.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid order input: " + strings.Join(e.Problems, "; ")
}

// Catalog is the read side the workflow needs: item names for display and
// the fallback reconstruction of old orders without item rows.
type Catalog interface {
	Get(id int) (*catalog.Product, error)
}

// EmailLookup resolves a customer email by user id when neither the session
// nor the form carries a usable one.
type EmailLookup interface {
	EmailByUserID(ctx context.Context, userID uint) (string, error)
}

type Service struct {
	DB          *gorm.DB
	Cart        *cart.Store
	Catalog     Catalog
	Subscribers EmailLookup
}

type CreateOrderRequest struct {
	FullName string `json:"full_name" form:"full_name"`
	Phone    string `json:"phone"     form:"phone"`
	Address  string `json:"address"   form:"address"`
	Notes    string `json:"notes"     form:"notes"`
	Email    string `json:"email"     form:"email"`
}

// PlaceOrder turns the current session cart into a persisted order. The
// header is the unit of work: it either commits with status pending or
// nothing is visible. Item rows are denormalized convenience and inserted
// best-effort afterwards; a failed item insert is logged and tolerated.
// The cart is left intact so the confirmation and payment pages can still
// render it; it is cleared by ConfirmPayment.
func (s *Service) PlaceOrder(ctx context.Context, ident identity.Identity, req CreateOrderRequest) (*models.Order, error) {
	l := logging.FromContext(ctx).With("op", "orders.place", "user_id", ident.ID)

	lines := s.Cart.Lines(ident.ID)
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	fullName := strings.TrimSpace(req.FullName)
	phone := strings.TrimSpace(req.Phone)
	address := strings.TrimSpace(req.Address)
	notes := strings.TrimSpace(req.Notes)

	email := s.resolveEmail(ctx, ident, strings.TrimSpace(req.Email))

	var problems []string
	if fullName == "" {
		problems = append(problems, "full name is required")
	}
	if phone == "" {
		problems = append(problems, "phone number is required")
	}
	if address == "" {
		problems = append(problems, "delivery address is required")
	}
	if email == "" {
		problems = append(problems, "valid customer email is required")
	}
	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}

	// Total is derived from the cart lines as they are right now. Prices
	// were snapshotted at add-to-cart time and are not re-read here.
	totals := s.Cart.Totals(ident.ID)

	productIDs := make([]int, 0, len(lines))
	for _, line := range lines {
		productIDs = append(productIDs, line.ProductID)
	}
	idsJSON, err := json.Marshal(productIDs)
	if err != nil {
		return nil, fmt.Errorf("encode product ids: %w", err)
	}

	order := models.Order{
		CustomerEmail: email,
		ProductIDs:    string(idsJSON),
		TotalAmount:   totals.Subtotal,
		Status:        models.StatusPending,
		FullName:      fullName,
		Phone:         phone,
		Address:       address,
		Notes:         notes,
		UserID:        ident.ID,
	}

	if err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&order).Error
	}); err != nil {
		l.Error("order header insert failed", "error", err)
		return nil, fmt.Errorf("create order: %w", err)
	}

	for _, line := range lines {
		item := models.OrderItem{
			OrderID:   order.ID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		}
		if err := s.DB.WithContext(ctx).Create(&item).Error; err != nil {
			l.Error("order item insert failed", "order_id", order.ID,
				"product_id", line.ProductID, "error", err)
		}
	}

	l.Info("order placed", "order_id", order.ID, "total", order.TotalAmount)
	return &order, nil
}

// resolveEmail returns "" when no source yields a well-formed address.
func (s *Service) resolveEmail(ctx context.Context, ident identity.Identity, formEmail string) string {
	if validEmail(ident.Email) {
		return ident.Email
	}
	if validEmail(formEmail) {
		return formEmail
	}
	if s.Subscribers != nil {
		stored, err := s.Subscribers.EmailByUserID(ctx, ident.ID)
		if err != nil {
			logging.FromContext(ctx).Warn("email lookup failed", "user_id", ident.ID, "error", err)
		} else if validEmail(stored) {
			return stored
		}
	}
	return ""
}

func validEmail(s string) bool {
	if s == "" {
		return false
	}
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

// ConfirmPayment is the simulated gateway: it moves the order to paid
// unconditionally and only then drops the owning user's cart.
func (s *Service) ConfirmPayment(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	err := s.DB.WithContext(ctx).First(&order, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}

	res := s.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("status", models.StatusPaid)
	if res.Error != nil {
		return nil, fmt.Errorf("update order status: %w", res.Error)
	}
	order.Status = models.StatusPaid

	s.Cart.Clear(order.UserID)

	logging.FromContext(ctx).Info("payment confirmed", "order_id", orderID)
	return &order, nil
}

// SetStatus is the admin mutation. The literal must be one of the five
// known statuses; the transition graph itself is unrestricted.
func (s *Service) SetStatus(ctx context.Context, orderID uint, status string) error {
	parsed, err := models.ParseOrderStatus(status)
	if err != nil {
		return &ValidationError{Problems: []string{err.Error()}}
	}

	res := s.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("status", parsed)
	if res.Error != nil {
		return fmt.Errorf("update order status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetOrder returns the order only to its owner or an admin. A foreign order
// reads as not-found so order ids do not leak across users.
func (s *Service) GetOrder(ctx context.Context, orderID uint, ident identity.Identity) (*models.Order, error) {
	var order models.Order
	err := s.DB.WithContext(ctx).First(&order, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	if !ident.IsAdmin() && order.UserID != ident.ID {
		return nil, ErrNotFound
	}
	return &order, nil
}

func (s *Service) ListUserOrders(ctx context.Context, userID uint) ([]models.Order, error) {
	var out []models.Order
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return out, nil
}

func (s *Service) ListAllOrders(ctx context.Context, offset, limit int) (int64, []models.Order, error) {
	var total int64
	if err := s.DB.WithContext(ctx).Model(&models.Order{}).Count(&total).Error; err != nil {
		return 0, nil, fmt.Errorf("count orders: %w", err)
	}

	var out []models.Order
	err := s.DB.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&out).Error
	if err != nil {
		return 0, nil, fmt.Errorf("list orders: %w", err)
	}
	return total, out, nil
}

// ItemView is an order line enriched with the product name for display.
type ItemView struct {
	ProductID int     `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// OrderItems prefers the item rows. When an order has none (the best-effort
// insert failed, or the order predates the items table) the list is
// reconstructed from the header's product ids against the current catalog,
// one unit per product at today's price.
func (s *Service) OrderItems(ctx context.Context, orderID uint) ([]ItemView, error) {
	var rows []models.OrderItem
	if err := s.DB.WithContext(ctx).Where("order_id = ?", orderID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}

	if len(rows) > 0 {
		out := make([]ItemView, 0, len(rows))
		for _, row := range rows {
			name := "Unknown Product"
			if p, err := s.Catalog.Get(row.ProductID); err == nil {
				name = p.Name
			}
			out = append(out, ItemView{
				ProductID: row.ProductID,
				Name:      name,
				Quantity:  row.Quantity,
				UnitPrice: row.UnitPrice,
			})
		}
		return out, nil
	}

	var order models.Order
	err := s.DB.WithContext(ctx).First(&order, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}

	var out []ItemView
	for _, id := range order.ProductIDList() {
		p, err := s.Catalog.Get(id)
		if err != nil {
			continue
		}
		out = append(out, ItemView{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  1,
			UnitPrice: p.Price,
		})
	}
	return out, nil
}

// Statistics backs the admin dashboard. Revenue counts only orders that
// made it past pending.
type Statistics struct {
	Subscribers int64   `json:"subscribers"`
	Products    int     `json:"products"`
	Orders      int64   `json:"orders"`
	Revenue     float64 `json:"revenue"`
}

type SubscriberCounter interface {
	Count(ctx context.Context) (int64, error)
}

type ProductCounter interface {
	Count() (int, error)
}

func (s *Service) Statistics(ctx context.Context, subs SubscriberCounter, products ProductCounter) (*Statistics, error) {
	stats := &Statistics{}

	if subs != nil {
		n, err := subs.Count(ctx)
		if err != nil {
			logging.FromContext(ctx).Warn("subscriber count failed", "error", err)
		} else {
			stats.Subscribers = n
		}
	}
	if products != nil {
		n, err := products.Count()
		if err != nil {
			logging.FromContext(ctx).Warn("product count failed", "error", err)
		} else {
			stats.Products = n
		}
	}

	if err := s.DB.WithContext(ctx).Model(&models.Order{}).Count(&stats.Orders).Error; err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}

	row := s.DB.WithContext(ctx).Model(&models.Order{}).
		Where("status IN ?", []models.OrderStatus{models.StatusConfirmed, models.StatusCompleted, models.StatusPaid}).
		Select("COALESCE(SUM(total_amount), 0)")
	if err := row.Scan(&stats.Revenue).Error; err != nil {
		return nil, fmt.Errorf("sum revenue: %w", err)
	}

	return stats, nil
}
