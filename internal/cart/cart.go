package cart

import (
	"errors"
	"sort"
	"sync"

	"github.com/kmoroz/craft_shop/internal/catalog"
)

// Catalog is the product lookup the cart needs when a line is first added.
// Name and price are snapshotted into the line at that moment and never
// re-read, so later catalog price changes do not move an open cart.
type Catalog interface {
	Get(id int) (*catalog.Product, error)
}

type Line struct {
	ProductID int     `json:"product_id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
}

type Totals struct {
	ItemCount int     `json:"item_count"`
	Subtotal  float64 `json:"subtotal"`
}

// Store holds one cart per user. Carts live in memory only: they vanish on
// restart, on logout, and after a confirmed payment.
type Store struct {
	catalog Catalog

	mu    sync.Mutex
	carts map[uint]map[int]*Line
}

func NewStore(c Catalog) *Store {
	return &Store{catalog: c, carts: make(map[uint]map[int]*Line)}
}

func (s *Store) cart(userID uint) map[int]*Line {
	c, ok := s.carts[userID]
	if !ok {
		c = make(map[int]*Line)
		s.carts[userID] = c
	}
	return c
}

// Add looks the product up and merges it into the cart. An unknown product
// is a no-op. Quantity may be negative; when the resulting quantity drops
// to zero or below the line is removed.
func (s *Store) Add(userID uint, productID, quantity int) error {
	p, err := s.catalog.Get(productID)
	if errors.Is(err, catalog.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.cart(userID)
	line, ok := c[productID]
	if !ok {
		line = &Line{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
		}
		c[productID] = line
	}
	line.Quantity += quantity
	if line.Quantity < 1 {
		delete(c, productID)
	}
	return nil
}

// SetQuantity overwrites the line quantity. Zero or less removes the line.
func (s *Store) SetQuantity(userID uint, productID, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.cart(userID)
	if quantity <= 0 {
		delete(c, productID)
		return
	}
	if line, ok := c[productID]; ok {
		line.Quantity = quantity
	}
}

func (s *Store) Remove(userID uint, productID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cart(userID), productID)
}

func (s *Store) Clear(userID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, userID)
}

// Lines returns the cart in stable product-id order.
func (s *Store) Lines(userID uint) []Line {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.cart(userID)
	out := make([]Line, 0, len(c))
	for _, line := range c {
		out = append(out, *line)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// Totals counts distinct lines, not summed quantities.
func (s *Store) Totals(userID uint) Totals {
	s.mu.Lock()
	defer s.mu.Unlock()

	var t Totals
	for _, line := range s.cart(userID) {
		t.ItemCount++
		t.Subtotal += line.UnitPrice * float64(line.Quantity)
	}
	return t
}
