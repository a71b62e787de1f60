package ledger

import (
	"context"
	"errors"

	"github.com/xcruz-intermega/factu365-sub000/internal/application/dto"
	"github.com/xcruz-intermega/factu365-sub000/internal/domain"
	"github.com/xcruz-intermega/factu365-sub000/internal/domain/entity"
	domvf "github.com/xcruz-intermega/factu365-sub000/internal/domain/verifactu"
	"github.com/xcruz-intermega/factu365-sub000/pkg/logger"
)

// verifyPageSize tamaño de página al recorrer la cadena de un emisor.
const verifyPageSize = 500

// VerifyChainUseCase recorre la cadena completa de un emisor recalculando cada
// huella y cada enlace. Es una operación de solo lectura: ante una cadena rota
// informa del primer registro inválido, nunca repara.
type VerifyChainUseCase struct {
	ledgerRepo ledgerReader
	log        *logger.Logger
}

// ledgerReader subconjunto de lectura del repositorio del ledger que necesita
// la verificación.
type ledgerReader interface {
	ListByIssuer(ctx context.Context, issuerTaxID string, limit, offset int) ([]*entity.LedgerEntry, error)
}

// NewVerifyChainUseCase crea el caso de uso.
func NewVerifyChainUseCase(ledgerRepo ledgerReader, log *logger.Logger) *VerifyChainUseCase {
	return &VerifyChainUseCase{ledgerRepo: ledgerRepo, log: log}
}

// Verify carga la cadena del emisor en orden de generación y la verifica
// entera. Una cadena vacía es íntegra. El error domain.ErrChainBroken se
// absorbe en la respuesta (Intact=false); cualquier otro error se propaga.
func (uc *VerifyChainUseCase) Verify(ctx context.Context, issuerTaxID string) (*dto.ChainVerificationResponse, error) {
	if issuerTaxID == "" {
		return nil, domain.ErrInvalidInput
	}

	var entries []*entity.LedgerEntry
	for offset := 0; ; offset += verifyPageSize {
		page, err := uc.ledgerRepo.ListByIssuer(ctx, issuerTaxID, verifyPageSize, offset)
		if err != nil {
			return nil, err
		}
		entries = append(entries, page...)
		if len(page) < verifyPageSize {
			break
		}
	}

	report, err := domvf.VerifyChain(entries)
	if err != nil && !errors.Is(err, domain.ErrChainBroken) {
		return nil, err
	}

	resp := &dto.ChainVerificationResponse{
		IssuerTaxID: issuerTaxID,
		Intact:      report.Intact(),
		Verified:    report.Verified,
	}
	if !report.Intact() {
		resp.BrokenAt = report.BrokenAt
		resp.BrokenID = report.BrokenID
		resp.Description = report.Description
		uc.log.Warn().
			Str("issuer", issuerTaxID).
			Int("broken_at", report.BrokenAt).
			Str("entry_id", report.BrokenID).
			Msg("cadena del ledger rota")
	}
	return resp, nil
}
