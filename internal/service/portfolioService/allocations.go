package portfolioService

import (
	"context"

	"github.com/KotFed0t/crypto_vault_tracker/internal/model"
	"github.com/KotFed0t/crypto_vault_tracker/internal/service/allocationLedger"
)

// Manual allocation edits change the latest view, so each successful write drops the cached one.

func (s *PortfolioService) CreateAllocation(ctx context.Context, in allocationLedger.CreateInput) (model.AllocationView, error) {
	view, err := s.ledger.Create(ctx, in)
	if err != nil {
		return model.AllocationView{}, err
	}
	s.store.Invalidate(ctx)
	return view, nil
}

func (s *PortfolioService) GetAllocation(ctx context.Context, key string, date *string) (model.AllocationView, error) {
	return s.ledger.Get(ctx, key, date)
}

func (s *PortfolioService) UpdateAllocation(ctx context.Context, key string, date *string, in allocationLedger.UpdateInput) (model.AllocationView, error) {
	view, err := s.ledger.Update(ctx, key, date, in)
	if err != nil {
		return model.AllocationView{}, err
	}
	s.store.Invalidate(ctx)
	return view, nil
}

func (s *PortfolioService) DeleteAllocation(ctx context.Context, key string, date *string) error {
	if err := s.ledger.Delete(ctx, key, date); err != nil {
		return err
	}
	s.store.Invalidate(ctx)
	return nil
}
