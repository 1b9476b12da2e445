package cart

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/rifqisaleh/shopsmart-rifqi/internal/domain"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/images"
)

func product(id int, title, price string) domain.Product {
	return domain.Product{
		ID:     id,
		Title:  title,
		Price:  decimal.RequireFromString(price),
		Images: domain.ImageList("https://i.imgur.com/" + title + ".png"),
	}
}

func TestStoreAddMergesRepeatedProduct(t *testing.T) {
	store := NewStore(images.NewResolver())

	store.Add(product(1, "shirt", "10.99"))
	changed := product(1, "renamed", "99.00")
	store.Add(changed)

	items := store.Items()
	if len(items) != 1 {
		t.Fatalf("expected one line, got %d", len(items))
	}
	if items[0].Quantity != 2 {
		t.Fatalf("expected quantity 2, got %d", items[0].Quantity)
	}
	if items[0].Title != "shirt" || !items[0].Price.Equal(decimal.RequireFromString("10.99")) {
		t.Fatalf("expected first-seen values to win, got %+v", items[0])
	}
	if items[0].Image != "https://i.imgur.com/shirt.png" {
		t.Fatalf("unexpected image %q", items[0].Image)
	}
}

func TestStoreAddKeepsInsertionOrder(t *testing.T) {
	store := NewStore(images.NewResolver())
	store.Add(product(2, "b", "1"))
	store.Add(product(1, "a", "1"))
	store.Add(product(2, "b", "1"))

	items := store.Items()
	if len(items) != 2 || items[0].ID != 2 || items[1].ID != 1 {
		t.Fatalf("unexpected order %+v", items)
	}
	if store.Count() != 3 {
		t.Fatalf("expected count 3, got %d", store.Count())
	}
}

func TestStoreUpdate(t *testing.T) {
	store := NewStore(nil)
	store.Add(product(1, "a", "5"))
	store.Add(product(2, "b", "5"))

	if !store.Update(1, 7.9) {
		t.Fatalf("expected update to change state")
	}
	if got := store.Items()[0].Quantity; got != 7 {
		t.Fatalf("expected truncated quantity 7, got %d", got)
	}

	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if store.Update(1, bad) {
			t.Fatalf("expected %v to be ignored", bad)
		}
	}
	if got := store.Items()[0].Quantity; got != 7 {
		t.Fatalf("malformed quantity mutated state: %d", got)
	}

	if !store.Update(1, 0) {
		t.Fatalf("expected zero quantity to remove")
	}
	if store.Update(1, 0) {
		t.Fatalf("expected removal of absent id to be a no-op")
	}
	if store.Update(42, 3) {
		t.Fatalf("expected unknown id to be a no-op")
	}
	items := store.Items()
	if len(items) != 1 || items[0].ID != 2 {
		t.Fatalf("unexpected items %+v", items)
	}

	if !store.Remove(2) {
		t.Fatalf("expected remove to succeed")
	}
	if store.Count() != 0 {
		t.Fatalf("expected empty cart")
	}
}

func TestStoreUpdateNegativeRemoves(t *testing.T) {
	store := NewStore(nil)
	store.Add(product(1, "a", "5"))
	store.Update(1, -3)
	if len(store.Items()) != 0 {
		t.Fatalf("expected negative quantity to remove line")
	}
}

func TestStoreTotal(t *testing.T) {
	store := NewStore(nil)
	store.Add(product(1, "a", "10.99"))
	store.Add(product(1, "a", "10.99"))
	store.Add(product(2, "b", "20.50"))

	if want := decimal.RequireFromString("42.48"); !store.Total().Equal(want) {
		t.Fatalf("expected total %s, got %s", want, store.Total())
	}
	if got := store.Snapshot().DisplayTotal(); got != "42.48" {
		t.Fatalf("expected display total 42.48, got %s", got)
	}
}

func TestStoreTotalRoundsOnlyForDisplay(t *testing.T) {
	store := NewStore(nil)
	store.Add(product(1, "a", "0.333"))
	store.Update(1, 3)

	if want := decimal.RequireFromString("0.999"); !store.Total().Equal(want) {
		t.Fatalf("expected unrounded total %s, got %s", want, store.Total())
	}
	if got := store.Snapshot().DisplayTotal(); got != "1.00" {
		t.Fatalf("expected display 1.00, got %s", got)
	}
}

func TestStoreSubscribeAndReset(t *testing.T) {
	store := NewStore(nil)
	var counts []int
	cancel := store.Subscribe(func(s Snapshot) {
		counts = append(counts, s.Count)
	})

	store.Add(product(1, "a", "1"))
	store.Add(product(1, "a", "1"))
	store.Update(1, 5)
	store.Update(99, 1)
	store.Reset()
	cancel()
	store.Add(product(1, "a", "1"))

	want := []int{1, 2, 5, 0}
	if len(counts) != len(want) {
		t.Fatalf("expected %v notifications, got %v", want, counts)
	}
	for i := range want {
		if counts[i] != want[i] {
			t.Fatalf("expected %v notifications, got %v", want, counts)
		}
	}
}

func TestStoreDeductKeepsLinesAddedLater(t *testing.T) {
	store := NewStore(nil)
	store.Add(product(1, "a", "10"))
	store.Add(product(1, "a", "10"))
	store.Add(product(2, "b", "5"))
	ordered := store.Snapshot().Items

	store.Add(product(1, "a", "10"))
	store.Add(product(3, "c", "7"))
	var last Snapshot
	store.Subscribe(func(s Snapshot) { last = s })
	store.Deduct(ordered)

	items := store.Items()
	if len(items) != 2 || items[0].ID != 1 || items[0].Quantity != 1 || items[1].ID != 3 {
		t.Fatalf("expected only the later additions to remain, got %+v", items)
	}
	if last.Count != 2 || !last.Total.Equal(decimal.RequireFromString("17")) {
		t.Fatalf("expected observers to see the deducted cart, got %+v", last)
	}

	store.Remove(3)
	store.Deduct([]domain.CartItem{{ID: 1, Quantity: 4}, {ID: 42, Quantity: 1}})
	if store.Count() != 0 {
		t.Fatalf("expected over-deducted line to be removed, got %+v", store.Items())
	}
}
