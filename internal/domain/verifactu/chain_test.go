package verifactu_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xcruz-intermega/factu365-sub000/internal/domain"
	"github.com/xcruz-intermega/factu365-sub000/internal/domain/entity"
	"github.com/xcruz-intermega/factu365-sub000/internal/domain/verifactu"
)

// buildChain construye n registros encadenados válidos para el mismo emisor.
func buildChain(t *testing.T, n int) []*entity.LedgerEntry {
	t.Helper()
	entries := make([]*entity.LedgerEntry, 0, n)
	prevHash := ""
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		gen := base.Add(time.Duration(i) * time.Minute)
		p := verifactu.RegistroParams{
			IssuerTaxID:      "B12345678",
			SeriesNumber:     fmt.Sprintf("F-2025-%04d", i+1),
			ExpeditionDate:   base,
			DocumentTypeCode: "F1",
			VatQuota:         decimal.RequireFromString("21.00"),
			TotalAmount:      decimal.RequireFromString("121.00"),
			PreviousHash:     prevHash,
			GeneratedAt:      gen,
		}
		input := verifactu.CanonicalInput(p)
		hash := verifactu.ComputeHash(input)
		entries = append(entries, &entity.LedgerEntry{
			ID:               fmt.Sprintf("e-%d", i+1),
			IssuerTaxID:      p.IssuerTaxID,
			SeriesNumber:     p.SeriesNumber,
			ExpeditionDate:   p.ExpeditionDate,
			DocumentTypeCode: p.DocumentTypeCode,
			VatQuota:         p.VatQuota,
			TotalAmount:      p.TotalAmount,
			PreviousHash:     prevHash,
			Hash:             hash,
			GeneratedAt:      gen,
			CanonicalPayload: input,
		})
		prevHash = hash
	}
	return entries
}

func TestVerifyChain_CadenaIntegra(t *testing.T) {
	entries := buildChain(t, 3)

	// Propiedad de cadena: cada huella anterior es la huella del registro previo.
	assert.Empty(t, entries[0].PreviousHash, "el primer registro abre la cadena con huella vacía")
	assert.Equal(t, entries[0].Hash, entries[1].PreviousHash)
	assert.Equal(t, entries[1].Hash, entries[2].PreviousHash)
	assert.NotEqual(t, entries[0].Hash, entries[1].Hash)
	assert.NotEqual(t, entries[1].Hash, entries[2].Hash)
	assert.NotEqual(t, entries[0].Hash, entries[2].Hash)

	report, err := verifactu.VerifyChain(entries)
	require.NoError(t, err)
	assert.True(t, report.Intact())
	assert.Equal(t, 3, report.Verified)
}

func TestVerifyChain_DetectaImporteManipulado(t *testing.T) {
	entries := buildChain(t, 3)
	// Manipulación retroactiva del segundo registro sin recalcular su huella.
	entries[1].TotalAmount = decimal.RequireFromString("999.99")

	report, err := verifactu.VerifyChain(entries)
	require.ErrorIs(t, err, domain.ErrChainBroken)
	assert.Equal(t, 1, report.BrokenAt)
	assert.Equal(t, "e-2", report.BrokenID)
	assert.Equal(t, 1, report.Verified, "solo el registro anterior a la manipulación verifica")
}

func TestVerifyChain_DetectaEnlaceRoto(t *testing.T) {
	entries := buildChain(t, 3)
	// Sustituir la huella anterior del tercer registro rompe el enlace aunque
	// su propia huella fuese recalculada.
	entries[2].PreviousHash = verifactu.ComputeHash("otra cosa")

	report, err := verifactu.VerifyChain(entries)
	require.ErrorIs(t, err, domain.ErrChainBroken)
	assert.Equal(t, 2, report.BrokenAt)
}

func TestVerifyChain_CadenaVacia(t *testing.T) {
	report, err := verifactu.VerifyChain(nil)
	require.NoError(t, err)
	assert.True(t, report.Intact())
	assert.Zero(t, report.Verified)
}
