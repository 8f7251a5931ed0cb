package service

import (
	"context"
	"time"

	"restaurant-order-service/internal/entity"
)

type TableService struct {
	tableRepo TableStore
	timeout   time.Duration
}

func NewTableService(tableRepo TableStore, timeout time.Duration) *TableService {
	return &TableService{tableRepo: tableRepo, timeout: timeout}
}

func (s *TableService) ListTables(ctx context.Context) ([]entity.Table, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	tables, err := s.tableRepo.GetTables(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Error listing tables")
		return nil, classify(err)
	}
	return tables, nil
}

// GetTables returns the subset of ids that exist.
func (s *TableService) GetTables(ctx context.Context, ids []string) ([]entity.Table, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	tables, err := s.tableRepo.GetTablesByIDs(ctx, ids)
	if err != nil {
		logger.Error().Err(err).Msg("Error getting tables")
		return nil, classify(err)
	}
	return tables, nil
}
