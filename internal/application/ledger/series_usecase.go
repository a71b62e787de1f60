package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xcruz-intermega/factu365-sub000/internal/application/dto"
	"github.com/xcruz-intermega/factu365-sub000/internal/domain"
	"github.com/xcruz-intermega/factu365-sub000/internal/domain/entity"
	"github.com/xcruz-intermega/factu365-sub000/internal/domain/repository"
	"github.com/xcruz-intermega/factu365-sub000/pkg/logger"
)

// SeriesUseCase administra los contadores de serie de la empresa. No asigna
// números: eso ocurre solo dentro de la transacción de finalize, bajo bloqueo
// de fila.
type SeriesUseCase struct {
	seqRepo repository.SequenceCounterRepository
	log     *logger.Logger
}

// NewSeriesUseCase crea el caso de uso.
func NewSeriesUseCase(seqRepo repository.SequenceCounterRepository, log *logger.Logger) *SeriesUseCase {
	return &SeriesUseCase{seqRepo: seqRepo, log: log}
}

// Create da de alta un contador que arranca en 1. La unicidad del contador por
// defecto por (categoría, ejercicio) la garantiza el índice parcial del
// esquema; la violación llega aquí como domain.ErrDuplicate.
func (uc *SeriesUseCase) Create(ctx context.Context, companyID string, req *dto.CreateSeriesRequest) (*dto.SeriesResponse, error) {
	if req == nil || req.SeriesLabel == "" {
		return nil, fmt.Errorf("series_label es obligatorio: %w", domain.ErrInvalidInput)
	}
	if !validCategories[req.Category] {
		return nil, fmt.Errorf("categoría %q no admitida: %w", req.Category, domain.ErrInvalidInput)
	}
	if req.FiscalYear < 2000 || req.FiscalYear > 2200 {
		return nil, fmt.Errorf("ejercicio %d fuera de rango: %w", req.FiscalYear, domain.ErrInvalidInput)
	}
	if req.Padding < 0 || req.Padding > 12 {
		return nil, fmt.Errorf("padding %d fuera de rango: %w", req.Padding, domain.ErrInvalidInput)
	}

	now := time.Now()
	c := &entity.SequenceCounter{
		ID:          uuid.New().String(),
		CompanyID:   companyID,
		Category:    req.Category,
		FiscalYear:  req.FiscalYear,
		SeriesLabel: req.SeriesLabel,
		Prefix:      req.Prefix,
		NextNumber:  1,
		Padding:     req.Padding,
		IsDefault:   req.IsDefault,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.seqRepo.Create(ctx, c); err != nil {
		return nil, err
	}
	uc.log.Info().
		Str("series_id", c.ID).
		Str("label", c.SeriesLabel).
		Int("year", c.FiscalYear).
		Msg("contador de serie creado")
	return toSeriesResponse(c), nil
}

// List devuelve los contadores de la empresa.
func (uc *SeriesUseCase) List(ctx context.Context, companyID string) ([]*dto.SeriesResponse, error) {
	counters, err := uc.seqRepo.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.SeriesResponse, len(counters))
	for i, c := range counters {
		out[i] = toSeriesResponse(c)
	}
	return out, nil
}

func toSeriesResponse(c *entity.SequenceCounter) *dto.SeriesResponse {
	return &dto.SeriesResponse{
		ID:          c.ID,
		Category:    c.Category,
		FiscalYear:  c.FiscalYear,
		SeriesLabel: c.SeriesLabel,
		Prefix:      c.Prefix,
		NextNumber:  c.NextNumber,
		Padding:     c.Padding,
		IsDefault:   c.IsDefault,
	}
}
