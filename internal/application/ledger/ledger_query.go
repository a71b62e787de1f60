package ledger

import (
	"context"

	"github.com/xcruz-intermega/factu365-sub000/internal/application/dto"
	"github.com/xcruz-intermega/factu365-sub000/internal/domain"
	"github.com/xcruz-intermega/factu365-sub000/internal/domain/entity"
	"github.com/xcruz-intermega/factu365-sub000/internal/domain/repository"
	domvf "github.com/xcruz-intermega/factu365-sub000/internal/domain/verifactu"
)

// LedgerQueryUseCase consultas de solo lectura sobre la cadena y sus envíos.
type LedgerQueryUseCase struct {
	ledgerRepo repository.LedgerEntryRepository
	subRepo    repository.SubmissionRepository
}

// NewLedgerQueryUseCase crea el caso de uso.
func NewLedgerQueryUseCase(ledgerRepo repository.LedgerEntryRepository, subRepo repository.SubmissionRepository) *LedgerQueryUseCase {
	return &LedgerQueryUseCase{ledgerRepo: ledgerRepo, subRepo: subRepo}
}

// ListEntries devuelve los registros de un emisor en orden de cadena. El
// filtro de empresa se aplica en la consulta, antes de paginar: dos empresas
// pueden compartir NIF emisor y cada una ve solo sus registros, con páginas
// completas.
func (uc *LedgerQueryUseCase) ListEntries(ctx context.Context, companyID, issuerTaxID string, page dto.PageRequest) ([]*dto.LedgerEntryResponse, error) {
	if issuerTaxID == "" {
		return nil, domain.ErrInvalidInput
	}
	page.DefaultPage()
	entries, err := uc.ledgerRepo.ListByCompanyAndIssuer(ctx, companyID, issuerTaxID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.LedgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp := toEntryResponse(e)
		if state, err := uc.subRepo.GetState(ctx, e.ID); err == nil && state != nil {
			resp.LatestOutcome = state.Outcome
			resp.AuthorityRef = state.AuthorityRef
		}
		out = append(out, resp)
	}
	return out, nil
}

// GetEntry devuelve un registro con su último resultado de envío.
func (uc *LedgerQueryUseCase) GetEntry(ctx context.Context, companyID, entryID string) (*dto.LedgerEntryResponse, error) {
	e, err := uc.load(ctx, companyID, entryID)
	if err != nil {
		return nil, err
	}
	resp := toEntryResponse(e)
	state, err := uc.subRepo.GetState(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if state != nil {
		resp.LatestOutcome = state.Outcome
		resp.AuthorityRef = state.AuthorityRef
	}
	return resp, nil
}

// ListAttempts devuelve el historial completo de intentos de envío de un
// registro, en orden de intento.
func (uc *LedgerQueryUseCase) ListAttempts(ctx context.Context, companyID, entryID string) ([]*dto.SubmissionAttemptResponse, error) {
	if _, err := uc.load(ctx, companyID, entryID); err != nil {
		return nil, err
	}
	attempts, err := uc.subRepo.ListByEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.SubmissionAttemptResponse, len(attempts))
	for i, a := range attempts {
		out[i] = &dto.SubmissionAttemptResponse{
			AttemptNumber: a.AttemptNumber,
			Outcome:       a.Outcome,
			HTTPStatus:    a.HTTPStatus,
			AuthorityRef:  a.AuthorityRef,
			ErrorCode:     a.ErrorCode,
			ErrorDesc:     a.ErrorDesc,
			StartedAt:     a.StartedAt,
			CompletedAt:   a.CompletedAt,
		}
	}
	return out, nil
}

func (uc *LedgerQueryUseCase) load(ctx context.Context, companyID, entryID string) (*entity.LedgerEntry, error) {
	e, err := uc.ledgerRepo.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if e == nil || e.CompanyID != companyID {
		return nil, domain.ErrNotFound
	}
	return e, nil
}

func toEntryResponse(e *entity.LedgerEntry) *dto.LedgerEntryResponse {
	return &dto.LedgerEntryResponse{
		ID:               e.ID,
		IssuerTaxID:      e.IssuerTaxID,
		SeriesNumber:     e.SeriesNumber,
		ExpeditionDate:   e.ExpeditionDate.Format(domvf.ExpeditionDateLayout),
		EntryType:        e.EntryType,
		DocumentTypeCode: e.DocumentTypeCode,
		VatQuota:         e.VatQuota,
		TotalAmount:      e.TotalAmount,
		PreviousHash:     e.PreviousHash,
		Hash:             e.Hash,
		GeneratedAt:      e.GeneratedAt,
	}
}
