package service_test

import (
	"bytes"
	"context"
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/tuanvumaihuynh/stock-cart/internal/model"
	"github.com/tuanvumaihuynh/stock-cart/internal/repository"
	"github.com/tuanvumaihuynh/stock-cart/internal/storage/db"
)

var errNotSupported = errors.New("not supported by in-memory store")

// memStore is an in-memory stand-in for Postgres. Transactions are
// serialized and roll back to a snapshot when the callback fails.
type memStore struct {
	txMu sync.Mutex

	mu       sync.Mutex
	products map[uuid.UUID]model.Product
	lines    map[uuid.UUID]model.CartLine
	outbox   []repository.CreateOutboxMsgParams

	// external holds stock levels written by simulated concurrent buyers;
	// they survive a rollback of the transaction they interleave with.
	external map[uuid.UUID]decimal.Decimal

	// beforeDecrement runs inside DecrementStock before the stock check,
	// simulating a concurrent buyer committing first.
	beforeDecrement func(productID uuid.UUID)
}

func newMemStore() *memStore {
	return &memStore{
		products: map[uuid.UUID]model.Product{},
		lines:    map[uuid.UUID]model.CartLine{},
		external: map[uuid.UUID]decimal.Decimal{},
	}
}

func (s *memStore) DB() db.DB {
	return &memDB{store: s}
}

func (s *memStore) putProduct(p model.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

func (s *memStore) product(id uuid.UUID) (model.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	return p, ok
}

func (s *memStore) setStock(id uuid.UUID, qty decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.products[id]
	p.Quantity = qty
	s.products[id] = p
}

// concurrentSetStock simulates another transaction committing a stock change.
func (s *memStore) concurrentSetStock(id uuid.UUID, qty decimal.Decimal) {
	s.setStock(id, qty)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.external[id] = qty
}

func (s *memStore) putLine(l model.CartLine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines[l.ID] = l
}

func (s *memStore) line(id uuid.UUID) (model.CartLine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lines[id]
	return l, ok
}

func (s *memStore) userLines(userID uuid.UUID) []model.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.CartLine
	for _, l := range s.lines {
		if l.UserID == userID && l.Status == model.CartLineStatusInCart {
			out = append(out, l)
		}
	}
	return out
}

func (s *memStore) outboxTopics() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	topics := make([]string, 0, len(s.outbox))
	for _, m := range s.outbox {
		topics = append(topics, m.Topic)
	}
	return topics
}

type memSnapshot struct {
	products map[uuid.UUID]model.Product
	lines    map[uuid.UUID]model.CartLine
	outbox   []repository.CreateOutboxMsgParams
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memSnapshot{
		products: maps.Clone(s.products),
		lines:    maps.Clone(s.lines),
		outbox:   slices.Clone(s.outbox),
	}
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, qty := range s.external {
		if p, ok := snap.products[id]; ok {
			p.Quantity = qty
			snap.products[id] = p
		}
	}
	s.products = snap.products
	s.lines = snap.lines
	s.outbox = snap.outbox
}

func (s *memStore) clearExternal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.external)
}

type memDB struct {
	store *memStore
	inTx  bool
}

var _ db.DB = (*memDB)(nil)

func (d *memDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errNotSupported
}

func (d *memDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errNotSupported
}

func (d *memDB) QueryRow(context.Context, string, ...any) pgx.Row {
	return nil
}

func (d *memDB) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults {
	return nil
}

func (d *memDB) WithTx(_ context.Context, txFunc func(db.DB) error) error {
	if d.inTx {
		return txFunc(d)
	}

	d.store.txMu.Lock()
	defer d.store.txMu.Unlock()

	snap := d.store.snapshot()
	defer d.store.clearExternal()

	if err := txFunc(&memDB{store: d.store, inTx: true}); err != nil {
		d.store.restore(snap)
		return err
	}
	return nil
}

func storeOf(d db.DB) *memStore {
	return d.(*memDB).store
}

type memProductRepo struct {
	store *memStore
}

func (r memProductRepo) WithDB(d db.DB) repository.ProductRepository {
	return memProductRepo{store: storeOf(d)}
}

func (r memProductRepo) CreateProduct(_ context.Context, p model.Product) error {
	r.store.putProduct(p)
	return nil
}

func (r memProductRepo) GetProduct(_ context.Context, id uuid.UUID) (model.Product, error) {
	p, ok := r.store.product(id)
	if !ok {
		return model.Product{}, repository.ErrNotFound
	}
	return p, nil
}

func (r memProductRepo) GetProductForUpdate(ctx context.Context, id uuid.UUID) (model.Product, error) {
	return r.GetProduct(ctx, id)
}

func (r memProductRepo) ListProducts(_ context.Context, params repository.ListProductsParams) ([]model.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	out := []model.Product{}
	for _, p := range r.store.products {
		if params.OwnerID != nil && p.OwnerID != *params.OwnerID {
			continue
		}
		if params.Unit != nil && p.Unit != *params.Unit {
			continue
		}
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b model.Product) int { return bytes.Compare(a.ID[:], b.ID[:]) })
	return out, nil
}

func (r memProductRepo) UpdateProduct(_ context.Context, p model.Product) error {
	if _, ok := r.store.product(p.ID); !ok {
		return repository.ErrNotFound
	}
	r.store.putProduct(p)
	return nil
}

func (r memProductRepo) DeleteProduct(_ context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.products[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.store.products, id)
	for lineID, l := range r.store.lines {
		if l.ProductID == id {
			delete(r.store.lines, lineID)
		}
	}
	return nil
}

func (r memProductRepo) DecrementStock(_ context.Context, id uuid.UUID, amount decimal.Decimal) (repository.DecrementStockResult, error) {
	if r.store.beforeDecrement != nil {
		r.store.beforeDecrement(id)
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	p, ok := r.store.products[id]
	if !ok {
		return repository.DecrementStockResult{}, repository.ErrNotFound
	}
	if p.Quantity.LessThan(amount) {
		return repository.DecrementStockResult{}, repository.ErrStockTooLow
	}
	p.Quantity = p.Quantity.Sub(amount)
	r.store.products[id] = p
	return repository.DecrementStockResult{Remaining: p.Quantity}, nil
}

type memCartLineRepo struct {
	store *memStore
}

func (r memCartLineRepo) WithDB(d db.DB) repository.CartLineRepository {
	return memCartLineRepo{store: storeOf(d)}
}

func (r memCartLineRepo) CreateCartLine(_ context.Context, line model.CartLine) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, l := range r.store.lines {
		if l.UserID == line.UserID && l.ProductID == line.ProductID && l.Status == line.Status {
			return false, nil
		}
	}
	r.store.lines[line.ID] = line
	return true, nil
}

func (r memCartLineRepo) withProduct(l model.CartLine) (model.CartLineWithProduct, bool) {
	p, ok := r.store.products[l.ProductID]
	return model.CartLineWithProduct{CartLine: l, Product: p}, ok
}

func (r memCartLineRepo) GetCartLine(_ context.Context, params repository.GetCartLineParams) (model.CartLineWithProduct, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	l, ok := r.store.lines[params.ID]
	if !ok || l.UserID != params.UserID || l.Status != params.Status {
		return model.CartLineWithProduct{}, repository.ErrNotFound
	}
	lp, ok := r.withProduct(l)
	if !ok {
		return model.CartLineWithProduct{}, repository.ErrNotFound
	}
	return lp, nil
}

func (r memCartLineRepo) FindCartLine(_ context.Context, params repository.FindCartLineParams) (model.CartLine, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, l := range r.store.lines {
		if l.UserID == params.UserID && l.ProductID == params.ProductID && l.Status == params.Status {
			return l, nil
		}
	}
	return model.CartLine{}, repository.ErrNotFound
}

func (r memCartLineRepo) ListCartLines(_ context.Context, params repository.ListCartLinesParams) ([]model.CartLineWithProduct, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	out := []model.CartLineWithProduct{}
	for _, l := range r.store.lines {
		if l.UserID != params.UserID || l.Status != params.Status {
			continue
		}
		if lp, ok := r.withProduct(l); ok {
			out = append(out, lp)
		}
	}
	slices.SortFunc(out, func(a, b model.CartLineWithProduct) int {
		return bytes.Compare(a.ProductID[:], b.ProductID[:])
	})
	return out, nil
}

func (r memCartLineRepo) UpdateCartLineQuantity(_ context.Context, id uuid.UUID, qty decimal.Decimal) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	l, ok := r.store.lines[id]
	if !ok {
		return repository.ErrNotFound
	}
	l.Quantity = qty
	r.store.lines[id] = l
	return nil
}

func (r memCartLineRepo) DeleteCartLine(_ context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.lines[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.store.lines, id)
	return nil
}

type memOutboxRepo struct {
	store *memStore
	err   error
}

func (r memOutboxRepo) WithDB(d db.DB) repository.OutboxMsgRepository {
	return memOutboxRepo{store: storeOf(d), err: r.err}
}

func (r memOutboxRepo) CreateOutboxMsg(_ context.Context, params repository.CreateOutboxMsgParams) error {
	if r.err != nil {
		return r.err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.outbox = append(r.store.outbox, params)
	return nil
}

func (r memOutboxRepo) ListUnprocessedOutboxMsgs(context.Context, repository.ListUnprocessedOutboxMsgsParams) ([]repository.ListUnprocessedOutboxMsgsResult, error) {
	return nil, errNotSupported
}

func (r memOutboxRepo) BulkUpdateOutboxMsgs(context.Context, repository.BulkUpdateOutboxMsgsParams) error {
	return errNotSupported
}
