package services

import (
	"context"
	"errors"
	"math"

	"github.com/rifqisaleh/shopsmart-rifqi/internal/apiclient"
)

// RelatedLimit caps the related products strip.
const RelatedLimit = 4

var (
	// ErrProductNotFound indicates the product id does not exist upstream.
	ErrProductNotFound = errors.New("product: not found")
	// ErrProductUnavailable indicates the catalogue could not be reached.
	ErrProductUnavailable = errors.New("product: unavailable")

	// DefaultReviews holds the review scores shown per product id.
	DefaultReviews = map[int][]float64{
		1: {5, 4, 3},
		2: {2, 3, 2},
		3: {4, 5, 5},
	}
	fallbackReviews = []float64{4.5}
)

// ProductServiceDeps wires the product detail service.
type ProductServiceDeps struct {
	Catalog ProductCatalog
	Images  ImageResolver
	Reviews map[int][]float64
	Logger  func(ctx context.Context, event string, fields map[string]any)
}

type productService struct {
	catalog ProductCatalog
	images  ImageResolver
	reviews map[int][]float64
	logger  func(ctx context.Context, event string, fields map[string]any)
}

// NewProductService constructs a ProductService validating required dependencies.
func NewProductService(deps ProductServiceDeps) (ProductService, error) {
	if deps.Catalog == nil {
		return nil, errors.New("product service: catalog is required")
	}
	if deps.Images == nil {
		return nil, errors.New("product service: image resolver is required")
	}
	reviews := deps.Reviews
	if reviews == nil {
		reviews = DefaultReviews
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &productService{catalog: deps.Catalog, images: deps.Images, reviews: reviews, logger: logger}, nil
}

// Detail loads a product with its resolved images, rating and related products. A failed related
// fetch leaves the strip empty.
func (s *productService) Detail(ctx context.Context, id int) (ProductDetail, error) {
	if id <= 0 {
		return ProductDetail{}, ErrProductNotFound
	}
	product, err := s.catalog.Product(ctx, id)
	if err != nil {
		if errors.Is(err, apiclient.ErrNotFound) {
			return ProductDetail{}, ErrProductNotFound
		}
		s.logger(ctx, "product.fetch_failed", map[string]any{"productId": id, "error": err.Error()})
		return ProductDetail{}, errors.Join(ErrProductUnavailable, err)
	}

	detail := ProductDetail{
		Product: product,
		Images:  s.images.Resolve(product.Images),
		Related: []RelatedProduct{},
		Rating:  s.rating(id),
	}

	siblings, err := s.catalog.Products(ctx, product.Category.ID.String())
	if err != nil {
		s.logger(ctx, "product.related_failed", map[string]any{"productId": id, "error": err.Error()})
		return detail, nil
	}
	for _, sibling := range siblings {
		if len(detail.Related) == RelatedLimit {
			break
		}
		if sibling.ID == product.ID || sibling.Category.ID != product.Category.ID {
			continue
		}
		detail.Related = append(detail.Related, RelatedProduct{
			ID:    sibling.ID,
			Title: sibling.Title,
			Price: sibling.Price,
			Image: s.images.First(sibling.Images),
		})
	}
	return detail, nil
}

func (s *productService) rating(id int) Rating {
	scores, ok := s.reviews[id]
	if !ok || len(scores) == 0 {
		scores = fallbackReviews
	}
	var sum float64
	for _, score := range scores {
		sum += score
	}
	avg := sum / float64(len(scores))
	return Rating{
		Average: avg,
		Stars:   max(1, int(math.Round(avg))),
		Count:   len(scores),
	}
}
