package ledger_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xcruz-intermega/factu365-sub000/internal/application/ledger"
	"github.com/xcruz-intermega/factu365-sub000/internal/domain"
	"github.com/xcruz-intermega/factu365-sub000/internal/domain/entity"
	domvf "github.com/xcruz-intermega/factu365-sub000/internal/domain/verifactu"
	infravf "github.com/xcruz-intermega/factu365-sub000/internal/infrastructure/verifactu"
)

const (
	testCompany = "00000000-0000-0000-0000-00000000000a"
	testIssuer  = "B12345678"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testConfig() ledger.Config {
	return ledger.Config{
		IssuerName: "ACME SL",
		AppEnv:     infravf.AppEnvDev,
		QRBaseURL:  infravf.QRValidationURLTest,
	}
}

// seedCounter crea el contador por defecto de facturas del ejercicio 2025.
func seedCounter(s *memStore) {
	s.counters["ser-1"] = &entity.SequenceCounter{
		ID:          "ser-1",
		CompanyID:   testCompany,
		Category:    entity.DocCategoryInvoice,
		FiscalYear:  2025,
		SeriesLabel: "A",
		Prefix:      "F-2025-",
		NextNumber:  1,
		Padding:     4,
		IsDefault:   true,
	}
}

// seedDraft crea un borrador de 1 ud x 100.00 al 21% (total 121.00).
func seedDraft(s *memStore, id string) {
	now := time.Now()
	s.docs[id] = &entity.FiscalDocument{
		ID:          id,
		CompanyID:   testCompany,
		IssuerTaxID: testIssuer,
		Category:    entity.DocCategoryInvoice,
		Direction:   entity.DocDirectionIssued,
		IssueDate:   time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		Status:      entity.DocStatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.docLines[id] = []*entity.FiscalDocumentLine{{
		ID:         id + "-l1",
		DocumentID: id,
		Position:   1,
		Quantity:   dec("1"),
		UnitPrice:  dec("100.00"),
		VatRate:    dec("21"),
	}}
}

func newFinalizeEnv(s *memStore) *ledger.FinalizeUseCase {
	return ledger.NewFinalizeUseCase(&memTxRunner{store: s}, &memDocRepo{s: s}, nil, testConfig())
}

func TestFinalize_PrimerRegistroAbreCadena(t *testing.T) {
	store := newMemStore()
	seedCounter(store)
	seedDraft(store, "doc-1")
	uc := newFinalizeEnv(store)

	resp, err := uc.Finalize(context.Background(), testCompany, "doc-1", "")
	require.NoError(t, err)

	assert.Equal(t, "F-2025-0001", resp.Number, "el contador por defecto arranca en 1 con padding 4")
	assert.Equal(t, "ser-1", resp.SeriesID)
	assert.Empty(t, resp.PreviousHash, "el primer registro del emisor abre la cadena")

	require.Len(t, store.entries, 1)
	entry := store.entries[0]
	assert.Equal(t, entity.LedgerEntryAlta, entry.EntryType)
	assert.Equal(t, "F1", entry.DocumentTypeCode)
	assert.True(t, entry.VatQuota.Equal(dec("21.00")), "cuota: %s", entry.VatQuota)
	assert.True(t, entry.TotalAmount.Equal(dec("121.00")), "total: %s", entry.TotalAmount)

	// La huella almacenada debe ser reproducible desde la cadena canónica.
	assert.Equal(t, domvf.ComputeHash(entry.CanonicalPayload), entry.Hash)
	assert.Contains(t, entry.CanonicalPayload, "NumSerieFactura=F-2025-0001")
	assert.Contains(t, entry.CanonicalPayload, "FechaExpedicionFactura=14-03-2025")

	// La cabeza de cadena avanza y el documento queda congelado.
	assert.Equal(t, entry.Hash, store.heads[testIssuer])
	assert.Equal(t, entity.DocStatusRegistered, store.docs["doc-1"].Status)
	assert.Equal(t, "F-2025-0001", store.docs["doc-1"].Number)

	// Desglose persistido junto al registro.
	breakdown := store.breakdowns[entry.ID]
	require.Len(t, breakdown, 1)
	assert.True(t, breakdown[0].VatRate.Equal(dec("21")))
	assert.True(t, breakdown[0].TaxBase.Equal(dec("100.00")))
	assert.True(t, breakdown[0].VatQuota.Equal(dec("21.00")))

	assert.Equal(t,
		infravf.QRValidationURLTest+"?nif=B12345678&numserie=F-2025-0001&fecha=14-03-2025&importe=121",
		resp.ValidationURL)
}

func TestFinalize_SegundoRegistroEncadena(t *testing.T) {
	store := newMemStore()
	seedCounter(store)
	seedDraft(store, "doc-1")
	seedDraft(store, "doc-2")
	uc := newFinalizeEnv(store)

	first, err := uc.Finalize(context.Background(), testCompany, "doc-1", "")
	require.NoError(t, err)
	second, err := uc.Finalize(context.Background(), testCompany, "doc-2", "")
	require.NoError(t, err)

	assert.Equal(t, "F-2025-0002", second.Number, "la numeración es consecutiva sin huecos")
	assert.Equal(t, first.Hash, second.PreviousHash, "cada registro enlaza con la huella del anterior")
	assert.NotEqual(t, first.Hash, second.Hash)
	assert.Equal(t, second.Hash, store.heads[testIssuer])
}

func TestFinalize_SerieExplicita(t *testing.T) {
	store := newMemStore()
	seedCounter(store)
	store.counters["ser-2"] = &entity.SequenceCounter{
		ID: "ser-2", CompanyID: testCompany, Category: entity.DocCategoryInvoice,
		FiscalYear: 2025, SeriesLabel: "B", Prefix: "FB-", NextNumber: 7, Padding: 3,
	}
	seedDraft(store, "doc-1")
	uc := newFinalizeEnv(store)

	resp, err := uc.Finalize(context.Background(), testCompany, "doc-1", "ser-2")
	require.NoError(t, err)
	assert.Equal(t, "FB-007", resp.Number)
	assert.EqualValues(t, 8, store.counters["ser-2"].NextNumber)
}

func TestFinalize_SerieDeOtraCategoriaOEjercicio(t *testing.T) {
	store := newMemStore()
	store.counters["ser-rect"] = &entity.SequenceCounter{
		ID: "ser-rect", CompanyID: testCompany, Category: entity.DocCategoryRectification,
		FiscalYear: 2025, SeriesLabel: "R", Prefix: "R-", NextNumber: 1, Padding: 3,
	}
	store.counters["ser-2024"] = &entity.SequenceCounter{
		ID: "ser-2024", CompanyID: testCompany, Category: entity.DocCategoryInvoice,
		FiscalYear: 2024, SeriesLabel: "A", Prefix: "F-2024-", NextNumber: 9, Padding: 4,
	}
	seedDraft(store, "doc-1")
	uc := newFinalizeEnv(store)

	// Una factura no puede numerarse con la serie de rectificativas.
	_, err := uc.Finalize(context.Background(), testCompany, "doc-1", "ser-rect")
	require.ErrorIs(t, err, domain.ErrSeriesNotFound)

	// Ni con el contador de otro ejercicio.
	_, err = uc.Finalize(context.Background(), testCompany, "doc-1", "ser-2024")
	require.ErrorIs(t, err, domain.ErrSeriesNotFound)

	assert.Equal(t, entity.DocStatusDraft, store.docs["doc-1"].Status)
	assert.EqualValues(t, 9, store.counters["ser-2024"].NextNumber, "el contador ajeno no avanza")
}

func TestFinalize_NumeracionConcurrenteSinHuecos(t *testing.T) {
	const n = 50
	store := newMemStore()
	seedCounter(store)
	for i := 0; i < n; i++ {
		seedDraft(store, fmt.Sprintf("doc-%02d", i))
	}
	uc := newFinalizeEnv(store)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers []string
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			resp, err := uc.Finalize(context.Background(), testCompany, id, "")
			if err != nil {
				t.Errorf("finalize %s: %v", id, err)
				return
			}
			mu.Lock()
			numbers = append(numbers, resp.Number)
			mu.Unlock()
		}(fmt.Sprintf("doc-%02d", i))
	}
	wg.Wait()
	require.Len(t, numbers, n)

	// n números distintos, consecutivos y sin huecos: exactamente 0001..0050.
	sort.Strings(numbers)
	for i, num := range numbers {
		assert.Equal(t, fmt.Sprintf("F-2025-%04d", i+1), num)
	}
	assert.EqualValues(t, n+1, store.counters["ser-1"].NextNumber)

	// Y la cadena resultante enlaza entera en orden de inserción.
	report, err := domvf.VerifyChain(store.entries)
	require.NoError(t, err)
	assert.Equal(t, n, report.Verified)
}

func TestFinalize_SinContadorAplicable(t *testing.T) {
	store := newMemStore()
	seedDraft(store, "doc-1")
	uc := newFinalizeEnv(store)

	_, err := uc.Finalize(context.Background(), testCompany, "doc-1", "")
	require.ErrorIs(t, err, domain.ErrSeriesNotFound)

	// Nada quedó a medias: documento en borrador, sin registros.
	assert.Equal(t, entity.DocStatusDraft, store.docs["doc-1"].Status)
	assert.Empty(t, store.entries)
}

func TestFinalize_DocumentoYaRegistrado(t *testing.T) {
	store := newMemStore()
	seedCounter(store)
	seedDraft(store, "doc-1")
	uc := newFinalizeEnv(store)

	_, err := uc.Finalize(context.Background(), testCompany, "doc-1", "")
	require.NoError(t, err)
	_, err = uc.Finalize(context.Background(), testCompany, "doc-1", "")
	require.ErrorIs(t, err, domain.ErrNotFinalizable)
	assert.Len(t, store.entries, 1, "el segundo finalize no debe crear otro registro")
}

func TestFinalize_DocumentoDeOtraEmpresa(t *testing.T) {
	store := newMemStore()
	seedCounter(store)
	seedDraft(store, "doc-1")
	uc := newFinalizeEnv(store)

	_, err := uc.Finalize(context.Background(), "otra-empresa", "doc-1", "")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCancel_AgregaRegistroDeAnulacion(t *testing.T) {
	store := newMemStore()
	seedCounter(store)
	seedDraft(store, "doc-1")
	uc := newFinalizeEnv(store)

	alta, err := uc.Finalize(context.Background(), testCompany, "doc-1", "")
	require.NoError(t, err)
	resp, err := uc.Cancel(context.Background(), testCompany, "doc-1")
	require.NoError(t, err)

	require.Len(t, store.entries, 2, "la anulación añade un registro, nunca borra el alta")
	anul := store.entries[1]
	assert.Equal(t, entity.LedgerEntryAnulacion, anul.EntryType)
	assert.Equal(t, alta.Hash, anul.PreviousHash, "la anulación encadena tras el alta")
	assert.Equal(t, alta.Number, anul.SeriesNumber)
	assert.Equal(t, domvf.ComputeHash(anul.CanonicalPayload), anul.Hash)
	assert.Equal(t, anul.Hash, store.heads[testIssuer])
	assert.Equal(t, entity.DocStatusCancelled, store.docs["doc-1"].Status)
	assert.Equal(t, resp.EntryID, anul.ID)

	// El registro de alta sigue intacto.
	assert.Equal(t, alta.Hash, store.entries[0].Hash)
}

func TestCancel_BorradorNoAnulable(t *testing.T) {
	store := newMemStore()
	seedDraft(store, "doc-1")
	uc := newFinalizeEnv(store)

	_, err := uc.Cancel(context.Background(), testCompany, "doc-1")
	require.ErrorIs(t, err, domain.ErrConflict)
}
