package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineRequest línea de documento para POST /api/documents.
type LineRequest struct {
	Description     string          `json:"description"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	VatRate         decimal.Decimal `json:"vat_rate"`
	WithholdingRate decimal.Decimal `json:"withholding_rate"`
	// ApplySurcharge aplica recargo de equivalencia según la tabla vigente
	// para el tipo de IVA de la línea.
	ApplySurcharge bool `json:"apply_surcharge"`
}

// CreateDocumentRequest body para crear un documento en borrador.
type CreateDocumentRequest struct {
	IssuerTaxID       string          `json:"issuer_tax_id"`
	CounterpartyTaxID string          `json:"counterparty_tax_id"`
	CounterpartyName  string          `json:"counterparty_name"`
	Category          string          `json:"category"`  // invoice | rectification | purchase
	Direction         string          `json:"direction"` // issued | received
	IssueDate         string          `json:"issue_date"` // YYYY-MM-DD; hoy si va vacío
	OperationDate     string          `json:"operation_date,omitempty"`
	GlobalDiscount    decimal.Decimal `json:"global_discount"`
	Lines             []LineRequest   `json:"lines"`
}

// DocumentResponse documento con totales calculados.
type DocumentResponse struct {
	ID               string          `json:"id"`
	Category         string          `json:"category"`
	Direction        string          `json:"direction"`
	IssuerTaxID      string          `json:"issuer_tax_id"`
	SeriesID         string          `json:"series_id,omitempty"`
	Number           string          `json:"number,omitempty"`
	IssueDate        string          `json:"issue_date"`
	Status           string          `json:"status"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	TaxBase          decimal.Decimal `json:"tax_base"`
	TotalVat         decimal.Decimal `json:"total_vat"`
	TotalWithholding decimal.Decimal `json:"total_withholding"`
	TotalSurcharge   decimal.Decimal `json:"total_surcharge"`
	GrandTotal       decimal.Decimal `json:"grand_total"`
}

// FinalizeRequest body para POST /api/documents/:id/finalize.
type FinalizeRequest struct {
	// SeriesID contador explícito; vacío usa el contador por defecto de la
	// categoría y el ejercicio del documento.
	SeriesID string `json:"series_id,omitempty"`
}

// FinalizeResponse resultado de la finalización.
type FinalizeResponse struct {
	DocumentID    string `json:"document_id"`
	SeriesID      string `json:"series_id"`
	Number        string `json:"number"`
	EntryID       string `json:"entry_id"`
	Hash          string `json:"hash"`
	PreviousHash  string `json:"previous_hash,omitempty"`
	ValidationURL string `json:"validation_url"`
}

// LedgerEntryResponse registro del ledger para la API.
type LedgerEntryResponse struct {
	ID               string          `json:"id"`
	IssuerTaxID      string          `json:"issuer_tax_id"`
	SeriesNumber     string          `json:"series_number"`
	ExpeditionDate   string          `json:"expedition_date"`
	EntryType        string          `json:"entry_type"`
	DocumentTypeCode string          `json:"document_type_code"`
	VatQuota         decimal.Decimal `json:"vat_quota"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	PreviousHash     string          `json:"previous_hash"`
	Hash             string          `json:"hash"`
	GeneratedAt      time.Time       `json:"generated_at"`
	LatestOutcome    string          `json:"latest_outcome,omitempty"`
	AuthorityRef     string          `json:"authority_ref,omitempty"`
}

// SubmissionAttemptResponse intento de envío para la API.
type SubmissionAttemptResponse struct {
	AttemptNumber int        `json:"attempt_number"`
	Outcome       string     `json:"outcome"`
	HTTPStatus    int        `json:"http_status,omitempty"`
	AuthorityRef  string     `json:"authority_ref,omitempty"`
	ErrorCode     string     `json:"error_code,omitempty"`
	ErrorDesc     string     `json:"error_desc,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// ChainVerificationResponse resultado de GET /api/ledger/verify.
type ChainVerificationResponse struct {
	IssuerTaxID string `json:"issuer_tax_id"`
	Intact      bool   `json:"intact"`
	Verified    int    `json:"verified"`
	BrokenAt    int    `json:"broken_at,omitempty"`
	BrokenID    string `json:"broken_id,omitempty"`
	Description string `json:"description,omitempty"`
}

// CreateSeriesRequest body para crear un contador de serie.
type CreateSeriesRequest struct {
	Category    string `json:"category"`
	FiscalYear  int    `json:"fiscal_year"`
	SeriesLabel string `json:"series_label"`
	Prefix      string `json:"prefix"`
	Padding     int    `json:"padding"`
	IsDefault   bool   `json:"is_default"`
}

// SeriesResponse contador de serie.
type SeriesResponse struct {
	ID          string `json:"id"`
	Category    string `json:"category"`
	FiscalYear  int    `json:"fiscal_year"`
	SeriesLabel string `json:"series_label"`
	Prefix      string `json:"prefix"`
	NextNumber  int64  `json:"next_number"`
	Padding     int    `json:"padding"`
	IsDefault   bool   `json:"is_default"`
}
