package ledger_test

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/xcruz-intermega/factu365-sub000/internal/application/ledger"
	"github.com/xcruz-intermega/factu365-sub000/internal/domain"
	"github.com/xcruz-intermega/factu365-sub000/internal/domain/entity"
	"github.com/xcruz-intermega/factu365-sub000/internal/domain/repository"
	infravf "github.com/xcruz-intermega/factu365-sub000/internal/infrastructure/verifactu"
)

// ──────────────────────────────────────────────────────────────────────────────
// Almacén en memoria con semántica transaccional (clonar + reemplazar)
// ──────────────────────────────────────────────────────────────────────────────

type memStore struct {
	mu         sync.Mutex
	counters   map[string]*entity.SequenceCounter
	docs       map[string]*entity.FiscalDocument
	docLines   map[string][]*entity.FiscalDocumentLine
	entries    []*entity.LedgerEntry
	breakdowns map[string][]entity.VatBreakdownLine
	heads      map[string]string
	attempts   map[string][]*entity.SubmissionAttempt
	states     map[string]*entity.SubmissionState
}

func newMemStore() *memStore {
	return &memStore{
		counters:   map[string]*entity.SequenceCounter{},
		docs:       map[string]*entity.FiscalDocument{},
		docLines:   map[string][]*entity.FiscalDocumentLine{},
		breakdowns: map[string][]entity.VatBreakdownLine{},
		heads:      map[string]string{},
		attempts:   map[string][]*entity.SubmissionAttempt{},
		states:     map[string]*entity.SubmissionState{},
	}
}

func (s *memStore) clone() *memStore {
	c := newMemStore()
	for k, v := range s.counters {
		cp := *v
		c.counters[k] = &cp
	}
	for k, v := range s.docs {
		cp := *v
		c.docs[k] = &cp
	}
	for k, v := range s.docLines {
		c.docLines[k] = append([]*entity.FiscalDocumentLine(nil), v...)
	}
	c.entries = append([]*entity.LedgerEntry(nil), s.entries...)
	for k, v := range s.breakdowns {
		c.breakdowns[k] = append([]entity.VatBreakdownLine(nil), v...)
	}
	for k, v := range s.heads {
		c.heads[k] = v
	}
	for k, v := range s.attempts {
		c.attempts[k] = append([]*entity.SubmissionAttempt(nil), v...)
	}
	for k, v := range s.states {
		cp := *v
		c.states[k] = &cp
	}
	return c
}

func (s *memStore) replaceWith(c *memStore) {
	s.counters = c.counters
	s.docs = c.docs
	s.docLines = c.docLines
	s.entries = c.entries
	s.breakdowns = c.breakdowns
	s.heads = c.heads
	s.attempts = c.attempts
	s.states = c.states
}

// memTxRunner clona el almacén, ejecuta fn contra el clon y solo lo publica si
// fn termina sin error: mismo contrato todo-o-nada que la transacción real.
type memTxRunner struct {
	store *memStore
}

var _ ledger.FinalizeTxRunner = (*memTxRunner)(nil)

func (r *memTxRunner) RunFinalize(ctx context.Context, fn func(
	seqRepo repository.SequenceCounterRepository,
	docRepo repository.DocumentRepository,
	ledgerRepo repository.LedgerEntryRepository,
) error) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	tx := r.store.clone()
	if err := fn(&memSeqRepo{s: tx}, &memDocRepo{s: tx}, &memLedgerRepo{s: tx}); err != nil {
		return err
	}
	r.store.replaceWith(tx)
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Repositorios fake
// ──────────────────────────────────────────────────────────────────────────────

type memSeqRepo struct{ s *memStore }

var _ repository.SequenceCounterRepository = (*memSeqRepo)(nil)

func (r *memSeqRepo) Create(ctx context.Context, c *entity.SequenceCounter) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *c
	r.s.counters[c.ID] = &cp
	return nil
}

func (r *memSeqRepo) GetByID(ctx context.Context, id string) (*entity.SequenceCounter, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.counters[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *memSeqRepo) ListByCompany(ctx context.Context, companyID string) ([]*entity.SequenceCounter, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.SequenceCounter
	for _, c := range r.s.counters {
		if c.CompanyID == companyID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SeriesLabel < out[j].SeriesLabel })
	return out, nil
}

func (r *memSeqRepo) AllocateNext(ctx context.Context, companyID, category string, fiscalYear int, seriesID string) (*entity.SequenceAllocation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var c *entity.SequenceCounter
	for _, cand := range r.s.counters {
		if seriesID != "" {
			if cand.ID == seriesID && cand.CompanyID == companyID &&
				cand.Category == category && cand.FiscalYear == fiscalYear {
				c = cand
				break
			}
			continue
		}
		if cand.CompanyID == companyID && cand.Category == category && cand.FiscalYear == fiscalYear && cand.IsDefault {
			c = cand
			break
		}
	}
	if c == nil {
		return nil, domain.ErrSeriesNotFound
	}
	n := c.NextNumber
	c.NextNumber++
	num := strconv.FormatInt(n, 10)
	if pad := c.Padding - len(num); pad > 0 {
		num = strings.Repeat("0", pad) + num
	}
	return &entity.SequenceAllocation{
		SeriesID:        c.ID,
		SeriesLabel:     c.SeriesLabel,
		RawNumber:       n,
		FormattedNumber: c.Prefix + num,
	}, nil
}

type memDocRepo struct{ s *memStore }

var _ repository.DocumentRepository = (*memDocRepo)(nil)

func (r *memDocRepo) Create(ctx context.Context, doc *entity.FiscalDocument, lines []*entity.FiscalDocumentLine) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *doc
	r.s.docs[doc.ID] = &cp
	r.s.docLines[doc.ID] = append([]*entity.FiscalDocumentLine(nil), lines...)
	return nil
}

func (r *memDocRepo) GetByID(ctx context.Context, id string) (*entity.FiscalDocument, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.docs[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (r *memDocRepo) GetLines(ctx context.Context, documentID string) ([]*entity.FiscalDocumentLine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.docLines[documentID], nil
}

func (r *memDocRepo) ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.FiscalDocument, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.FiscalDocument
	for _, d := range r.s.docs {
		if d.CompanyID == companyID {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, offset), nil
}

func (r *memDocRepo) AssignNumber(ctx context.Context, documentID, seriesID, number string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.docs[documentID]
	if !ok {
		return domain.ErrNotFound
	}
	if d.Status != entity.DocStatusDraft {
		return domain.ErrNotFinalizable
	}
	d.SeriesID = seriesID
	d.Number = number
	d.Status = entity.DocStatusRegistered
	return nil
}

func (r *memDocRepo) UpdateStatus(ctx context.Context, documentID, status string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.docs[documentID]
	if !ok {
		return domain.ErrNotFound
	}
	d.Status = status
	return nil
}

type memLedgerRepo struct{ s *memStore }

var _ repository.LedgerEntryRepository = (*memLedgerRepo)(nil)

func (r *memLedgerRepo) LockChainHead(ctx context.Context, issuerTaxID string) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.heads[issuerTaxID], nil
}

func (r *memLedgerRepo) Insert(ctx context.Context, entry *entity.LedgerEntry, breakdown []entity.VatBreakdownLine) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *entry
	r.s.entries = append(r.s.entries, &cp)
	r.s.breakdowns[entry.ID] = append([]entity.VatBreakdownLine(nil), breakdown...)
	r.s.heads[entry.IssuerTaxID] = entry.Hash
	return nil
}

func (r *memLedgerRepo) GetByID(ctx context.Context, id string) (*entity.LedgerEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.entries {
		if e.ID == id {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memLedgerRepo) GetByDocumentID(ctx context.Context, documentID string) (*entity.LedgerEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.entries {
		if e.DocumentID == documentID && e.EntryType == entity.LedgerEntryAlta {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memLedgerRepo) FindLastByIssuer(ctx context.Context, issuerTaxID string) (*entity.LedgerEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := len(r.s.entries) - 1; i >= 0; i-- {
		if r.s.entries[i].IssuerTaxID == issuerTaxID {
			cp := *r.s.entries[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memLedgerRepo) ListByIssuer(ctx context.Context, issuerTaxID string, limit, offset int) ([]*entity.LedgerEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.LedgerEntry
	for _, e := range r.s.entries {
		if e.IssuerTaxID == issuerTaxID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return page(out, limit, offset), nil
}

func (r *memLedgerRepo) ListByCompanyAndIssuer(ctx context.Context, companyID, issuerTaxID string, limit, offset int) ([]*entity.LedgerEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.LedgerEntry
	for _, e := range r.s.entries {
		if e.CompanyID == companyID && e.IssuerTaxID == issuerTaxID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return page(out, limit, offset), nil
}

func (r *memLedgerRepo) GetBreakdown(ctx context.Context, entryID string) ([]entity.VatBreakdownLine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.breakdowns[entryID], nil
}

type memSubRepo struct{ s *memStore }

var _ repository.SubmissionRepository = (*memSubRepo)(nil)

func (r *memSubRepo) NextAttemptNumber(ctx context.Context, entryID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.attempts[entryID]) + 1, nil
}

func (r *memSubRepo) Insert(ctx context.Context, a *entity.SubmissionAttempt) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *a
	r.s.attempts[a.EntryID] = append(r.s.attempts[a.EntryID], &cp)
	return nil
}

func (r *memSubRepo) Complete(ctx context.Context, a *entity.SubmissionAttempt) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, stored := range r.s.attempts[a.EntryID] {
		if stored.ID == a.ID {
			if stored.CompletedAt != nil {
				return fmt.Errorf("intento ya cerrado: %w", domain.ErrConflict)
			}
			*stored = *a
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *memSubRepo) ListByEntry(ctx context.Context, entryID string) ([]*entity.SubmissionAttempt, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.attempts[entryID], nil
}

func (r *memSubRepo) UpsertState(ctx context.Context, st *entity.SubmissionState) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *st
	r.s.states[st.EntryID] = &cp
	return nil
}

func (r *memSubRepo) GetState(ctx context.Context, entryID string) (*entity.SubmissionState, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.states[entryID]
	if !ok {
		return nil, nil
	}
	cp := *st
	return &cp, nil
}

func (r *memSubRepo) ListRetryable(ctx context.Context, now time.Time, limit int) ([]*entity.SubmissionState, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.SubmissionState
	for _, st := range r.s.states {
		if !st.IsRetryable() {
			continue
		}
		if st.NextRetryAt != nil && st.NextRetryAt.After(now) {
			continue
		}
		cp := *st
		out = append(out, &cp)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func page[T any](in []T, limit, offset int) []T {
	if offset >= len(in) {
		return nil
	}
	in = in[offset:]
	if limit > 0 && len(in) > limit {
		in = in[:limit]
	}
	return in
}

// fakeSubmitter devuelve respuestas programadas, en orden.
type fakeSubmitter struct {
	mu      sync.Mutex
	results []submitResult
	calls   [][]byte
}

type submitResult struct {
	res *infravf.SubmitResult
	err error
}

var _ infravf.Submitter = (*fakeSubmitter)(nil)

func (f *fakeSubmitter) Submit(ctx context.Context, envelope []byte) (*infravf.SubmitResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, envelope)
	if len(f.results) == 0 {
		return &infravf.SubmitResult{HTTPStatus: 200, Estado: "Correcto", CSV: "CSV-FAKE"}, nil
	}
	next := f.results[0]
	f.results = f.results[1:]
	return next.res, next.err
}
