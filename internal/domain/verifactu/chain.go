package verifactu

import (
	"fmt"

	"github.com/xcruz-intermega/factu365-sub000/internal/domain"
	"github.com/xcruz-intermega/factu365-sub000/internal/domain/entity"
)

// ChainReport resultado de la verificación de una cadena de registros.
type ChainReport struct {
	Verified    int    // registros verificados correctamente
	BrokenAt    int    // índice (orden de generación) del primer registro inválido; -1 si la cadena es íntegra
	BrokenID    string // ID del registro inválido
	Description string // detalle del fallo (huella o enlace)
}

// Intact indica si toda la cadena verificó.
func (r ChainReport) Intact() bool { return r.BrokenAt < 0 }

// VerifyChain recalcula la cadena completa de un emisor en orden de
// generación: para cada registro reconstruye la cadena canónica, recalcula la
// huella y comprueba el enlace con el registro anterior. El primer fallo
// invalida ese registro y todos los posteriores (evidencia de manipulación);
// nunca se intenta "reparar".
//
// Devuelve domain.ErrChainBroken envuelto con el detalle cuando la cadena no
// es íntegra.
func VerifyChain(entries []*entity.LedgerEntry) (ChainReport, error) {
	report := ChainReport{BrokenAt: -1}
	prevHash := ""
	for i, e := range entries {
		if e.PreviousHash != prevHash {
			report.BrokenAt = i
			report.BrokenID = e.ID
			report.Description = fmt.Sprintf(
				"registro %s: huella anterior %q no enlaza con %q", e.ID, e.PreviousHash, prevHash)
			return report, fmt.Errorf("%s: %w", report.Description, domain.ErrChainBroken)
		}
		input := CanonicalInput(RegistroParams{
			IssuerTaxID:      e.IssuerTaxID,
			SeriesNumber:     e.SeriesNumber,
			ExpeditionDate:   e.ExpeditionDate,
			DocumentTypeCode: e.DocumentTypeCode,
			VatQuota:         e.VatQuota,
			TotalAmount:      e.TotalAmount,
			PreviousHash:     e.PreviousHash,
			GeneratedAt:      e.GeneratedAt,
		})
		if got := ComputeHash(input); got != e.Hash {
			report.BrokenAt = i
			report.BrokenID = e.ID
			report.Description = fmt.Sprintf(
				"registro %s: huella almacenada %s, recalculada %s", e.ID, e.Hash, got)
			return report, fmt.Errorf("%s: %w", report.Description, domain.ErrChainBroken)
		}
		prevHash = e.Hash
		report.Verified++
	}
	return report, nil
}
