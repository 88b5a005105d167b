package purchase

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service records supplier purchases.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a purchase Service. A nil now uses time.Now.
func NewService(repo Repository, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, now: now}
}

// Record validates req, computes the total cost and stores the purchase.
func (s *Service) Record(ctx context.Context, req RecordRequest) (*Purchase, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	p := &Purchase{
		ID:           uuid.New().String(),
		Reference:    req.Reference,
		ProductName:  req.ProductName,
		Category:     req.Category,
		Quantity:     req.Quantity,
		PricePerUnit: req.PricePerUnit,
		TotalCost:    req.PricePerUnit.Mul(decimal.NewFromInt(int64(req.Quantity))),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.Record(ctx, p); err != nil {
		return nil, errors.Wrap(err, "record purchase")
	}
	return p, nil
}
