package cart

import (
	"math"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/rifqisaleh/shopsmart-rifqi/internal/domain"
)

// ImageResolver picks the display image stored on a cart line.
type ImageResolver interface {
	First(field domain.ImageField) string
}

// Snapshot is an immutable view of the cart handed to observers and views.
type Snapshot struct {
	Items []domain.CartItem
	Count int
	Total decimal.Decimal
}

// DisplayTotal rounds the total to two decimals for presentation.
func (s Snapshot) DisplayTotal() string {
	return s.Total.StringFixed(2)
}

// Store owns one visitor's cart. Lines keep first-added order.
type Store struct {
	images ImageResolver

	mu        sync.Mutex
	items     []domain.CartItem
	observers map[int]func(Snapshot)
	nextObs   int
}

// NewStore constructs an empty cart.
func NewStore(images ImageResolver) *Store {
	return &Store{
		images:    images,
		observers: make(map[int]func(Snapshot)),
	}
}

// Add inserts the product with quantity 1 or increments the existing line. The first-seen title,
// price and image are kept.
func (s *Store) Add(product domain.Product) {
	image := ""
	if s.images != nil {
		image = s.images.First(product.Images)
	}

	s.mu.Lock()
	if idx := s.indexOf(product.ID); idx >= 0 {
		s.items[idx].Quantity++
	} else {
		s.items = append(s.items, domain.CartItem{
			ID:       product.ID,
			Title:    product.Title,
			Price:    product.Price,
			Quantity: 1,
			Image:    image,
		})
	}
	snapshot, observers := s.snapshotLocked()
	s.mu.Unlock()

	notify(observers, snapshot)
}

// Update sets the quantity of an existing line, truncating fractional input toward zero. A quantity
// of zero or below removes the line. NaN, infinities and unknown ids leave the cart untouched.
// It reports whether the cart changed.
func (s *Store) Update(id int, quantity float64) bool {
	if math.IsNaN(quantity) || math.IsInf(quantity, 0) {
		return false
	}
	qty := math.Trunc(quantity)

	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	if qty <= 0 {
		s.items = append(s.items[:idx:idx], s.items[idx+1:]...)
	} else {
		if qty > math.MaxInt32 {
			qty = math.MaxInt32
		}
		s.items[idx].Quantity = int(qty)
	}
	snapshot, observers := s.snapshotLocked()
	s.mu.Unlock()

	notify(observers, snapshot)
	return true
}

// Remove deletes a line. It is equivalent to Update(id, 0).
func (s *Store) Remove(id int) bool {
	return s.Update(id, 0)
}

// Items returns a copy of the cart lines in insertion order.
func (s *Store) Items() []domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.CartItem(nil), s.items...)
}

// Count returns the sum of all quantities.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return countOf(s.items)
}

// Total returns the unrounded sum of price times quantity.
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return totalOf(s.items)
}

// Snapshot returns the current lines with derived count and total.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot, _ := s.snapshotLocked()
	return snapshot
}

// Subscribe registers fn to receive a snapshot after every mutation. The returned function
// unregisters it.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// Reset empties the cart and notifies observers.
func (s *Store) Reset() {
	s.mu.Lock()
	s.items = nil
	snapshot, observers := s.snapshotLocked()
	s.mu.Unlock()

	notify(observers, snapshot)
}

// Deduct subtracts the quantities of ordered from the matching lines in one step and drops lines
// that reach zero. Lines or quantities added after ordered was taken stay in the cart.
func (s *Store) Deduct(ordered []domain.CartItem) {
	if len(ordered) == 0 {
		return
	}
	s.mu.Lock()
	for _, line := range ordered {
		idx := s.indexOf(line.ID)
		if idx < 0 {
			continue
		}
		s.items[idx].Quantity -= line.Quantity
		if s.items[idx].Quantity <= 0 {
			s.items = append(s.items[:idx], s.items[idx+1:]...)
		}
	}
	snapshot, observers := s.snapshotLocked()
	s.mu.Unlock()

	notify(observers, snapshot)
}

func (s *Store) indexOf(id int) int {
	for i, item := range s.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) snapshotLocked() (Snapshot, []func(Snapshot)) {
	items := append([]domain.CartItem(nil), s.items...)
	snapshot := Snapshot{
		Items: items,
		Count: countOf(items),
		Total: totalOf(items),
	}
	observers := make([]func(Snapshot), 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	return snapshot, observers
}

func notify(observers []func(Snapshot), snapshot Snapshot) {
	for _, fn := range observers {
		fn(snapshot)
	}
}

func countOf(items []domain.CartItem) int {
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	return count
}

func totalOf(items []domain.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}
