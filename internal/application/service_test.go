package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/packlane/fulfillment-service/internal/domain"
	"github.com/packlane/fulfillment-service/internal/ports"
)

// The fakes below back the service with an in-memory model that keeps
// the same invariants as the postgres adapter: reservations check
// remaining quantity, conclusions evaluate shipment completion, and the
// transactional methods enqueue their outbox events.

type memStore struct {
	mu        sync.Mutex
	shipments map[uuid.UUID]domain.Shipment
	items     map[uuid.UUID]domain.Item
	itemOrder []uuid.UUID
	boxes     map[uuid.UUID]domain.Box
	boxOrder  []uuid.UUID
	boxItems  map[uuid.UUID]domain.BoxItem
	links     map[uuid.UUID]domain.PickerLink
	audits    []domain.AuditRecord
	outbox    []ports.OutboxEvent
}

func newMemStore() *memStore {
	return &memStore{
		shipments: map[uuid.UUID]domain.Shipment{},
		items:     map[uuid.UUID]domain.Item{},
		boxes:     map[uuid.UUID]domain.Box{},
		boxItems:  map[uuid.UUID]domain.BoxItem{},
		links:     map[uuid.UUID]domain.PickerLink{},
	}
}

type fakeShipments struct{ store *memStore }

func (f *fakeShipments) CreateWithItemsTx(_ context.Context, params ports.CreateShipmentTxParams, outboxEvent ports.OutboxEvent) (domain.Shipment, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	shipment := domain.Shipment{
		ShipmentID: uuid.New(),
		Name:       params.Name,
		ShipperID:  params.ShipperID,
		Status:     domain.ShipmentStatusActive,
		CreatedAt:  params.CreatedAt,
		UpdatedAt:  params.CreatedAt,
	}
	f.store.shipments[shipment.ShipmentID] = shipment
	for _, row := range params.Items {
		item := domain.Item{
			ItemID:     uuid.New(),
			ShipmentID: shipment.ShipmentID,
			SKU:        row.SKU,
			FNSKU:      row.FNSKU,
			ExternalID: row.ExternalID,
			Quantity:   row.Quantity,
			CreatedAt:  params.CreatedAt,
		}
		f.store.items[item.ItemID] = item
		f.store.itemOrder = append(f.store.itemOrder, item.ItemID)
	}
	f.store.outbox = append(f.store.outbox, outboxEvent)
	return shipment, nil
}

func (f *fakeShipments) AppendItemsTx(_ context.Context, shipmentID uuid.UUID, items []ports.ImportItemParams, at time.Time, outboxEvent ports.OutboxEvent) (int, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	shipment, ok := f.store.shipments[shipmentID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	if !shipment.IsActive() {
		return 0, fmt.Errorf("%w: shipment is %s", domain.ErrShipmentNotActive, shipment.Status)
	}
	for _, row := range items {
		item := domain.Item{
			ItemID:     uuid.New(),
			ShipmentID: shipmentID,
			SKU:        row.SKU,
			FNSKU:      row.FNSKU,
			ExternalID: row.ExternalID,
			Quantity:   row.Quantity,
			CreatedAt:  at,
		}
		f.store.items[item.ItemID] = item
		f.store.itemOrder = append(f.store.itemOrder, item.ItemID)
	}
	f.store.outbox = append(f.store.outbox, outboxEvent)
	return len(items), nil
}

func (f *fakeShipments) GetByID(_ context.Context, shipmentID uuid.UUID) (domain.Shipment, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	shipment, ok := f.store.shipments[shipmentID]
	if !ok {
		return domain.Shipment{}, domain.ErrNotFound
	}
	return shipment, nil
}

func (f *fakeShipments) List(_ context.Context, shipperID *uuid.UUID, limit, offset int) ([]domain.Shipment, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	var out []domain.Shipment
	for _, shipment := range f.store.shipments {
		if shipperID != nil && shipment.ShipperID != *shipperID {
			continue
		}
		out = append(out, shipment)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeShipments) CancelTx(_ context.Context, shipmentID uuid.UUID, cancelledAt time.Time, outboxEvent ports.OutboxEvent) (domain.Shipment, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	shipment, ok := f.store.shipments[shipmentID]
	if !ok {
		return domain.Shipment{}, domain.ErrNotFound
	}
	switch shipment.Status {
	case domain.ShipmentStatusCompleted:
		return domain.Shipment{}, fmt.Errorf("%w: shipment already completed", domain.ErrConflict)
	case domain.ShipmentStatusCancelled:
		return domain.Shipment{}, fmt.Errorf("%w: shipment already cancelled", domain.ErrConflict)
	}
	shipment.Status = domain.ShipmentStatusCancelled
	shipment.UpdatedAt = cancelledAt
	f.store.shipments[shipmentID] = shipment
	f.store.outbox = append(f.store.outbox, outboxEvent)
	return shipment, nil
}

type fakeItems struct{ store *memStore }

func (f *fakeItems) GetByID(_ context.Context, itemID uuid.UUID) (domain.Item, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	item, ok := f.store.items[itemID]
	if !ok {
		return domain.Item{}, domain.ErrNotFound
	}
	return item, nil
}

func (f *fakeItems) ListByShipment(_ context.Context, shipmentID uuid.UUID) ([]domain.Item, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	var out []domain.Item
	for _, id := range f.store.itemOrder {
		if item := f.store.items[id]; item.ShipmentID == shipmentID {
			out = append(out, item)
		}
	}
	return out, nil
}

type fakeLedger struct{ store *memStore }

func (f *fakeLedger) Reserve(_ context.Context, params ports.ReserveParams) (domain.BoxItem, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	box, ok := f.store.boxes[params.BoxID]
	if !ok {
		return domain.BoxItem{}, domain.ErrNotFound
	}
	if !box.IsOpen() {
		return domain.BoxItem{}, fmt.Errorf("%w: box is %s", domain.ErrBoxNotOpen, box.Status)
	}
	item, ok := f.store.items[params.ItemID]
	if !ok {
		return domain.BoxItem{}, domain.ErrNotFound
	}
	if params.Quantity > item.Remaining() {
		return domain.BoxItem{}, fmt.Errorf("%w: requested %d, available %d", domain.ErrInsufficientQuantity, params.Quantity, item.Remaining())
	}

	item.PickedQty += params.Quantity
	f.store.items[item.ItemID] = item

	for id, bi := range f.store.boxItems {
		if bi.BoxID == params.BoxID && bi.ItemID == params.ItemID {
			bi.Quantity += params.Quantity
			f.store.boxItems[id] = bi
			return bi, nil
		}
	}
	bi := domain.BoxItem{
		BoxItemID: uuid.New(),
		BoxID:     params.BoxID,
		ItemID:    params.ItemID,
		Quantity:  params.Quantity,
		CreatedAt: params.At,
	}
	f.store.boxItems[bi.BoxItemID] = bi
	return bi, nil
}

func (f *fakeLedger) Release(_ context.Context, boxItemID uuid.UUID, _ time.Time) (domain.BoxItem, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	bi, ok := f.store.boxItems[boxItemID]
	if !ok {
		return domain.BoxItem{}, domain.ErrNotFound
	}
	box := f.store.boxes[bi.BoxID]
	if !box.IsOpen() {
		return domain.BoxItem{}, fmt.Errorf("%w: box is %s", domain.ErrBoxAlreadyConcluded, box.Status)
	}
	item := f.store.items[bi.ItemID]
	item.PickedQty -= bi.Quantity
	f.store.items[item.ItemID] = item
	delete(f.store.boxItems, boxItemID)
	return bi, nil
}

type fakeBoxes struct{ store *memStore }

func (f *fakeBoxes) Create(_ context.Context, shipmentID uuid.UUID, name string, createdAt time.Time) (domain.Box, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	box := domain.Box{
		BoxID:      uuid.New(),
		ShipmentID: shipmentID,
		Name:       name,
		Status:     domain.BoxStatusOpen,
		CreatedAt:  createdAt,
	}
	f.store.boxes[box.BoxID] = box
	f.store.boxOrder = append(f.store.boxOrder, box.BoxID)
	return box, nil
}

func (f *fakeBoxes) GetByID(_ context.Context, boxID uuid.UUID) (domain.Box, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	box, ok := f.store.boxes[boxID]
	if !ok {
		return domain.Box{}, domain.ErrNotFound
	}
	return box, nil
}

func (f *fakeBoxes) ListByShipment(_ context.Context, shipmentID uuid.UUID) ([]domain.Box, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	var out []domain.Box
	for _, id := range f.store.boxOrder {
		if box := f.store.boxes[id]; box.ShipmentID == shipmentID {
			out = append(out, box)
		}
	}
	return out, nil
}

func (f *fakeBoxes) ListItems(_ context.Context, boxID uuid.UUID) ([]domain.BoxItem, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	var out []domain.BoxItem
	for _, bi := range f.store.boxItems {
		if bi.BoxID == boxID {
			out = append(out, bi)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeBoxes) ConcludeTx(_ context.Context, boxID uuid.UUID, concludedAt time.Time, boxEvent, completionEvent ports.OutboxEvent) (domain.Box, bool, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	box, ok := f.store.boxes[boxID]
	if !ok {
		return domain.Box{}, false, domain.ErrNotFound
	}
	if box.Status == domain.BoxStatusConcluded {
		return domain.Box{}, false, fmt.Errorf("%w: box %s", domain.ErrBoxAlreadyConcluded, box.Name)
	}
	box.Status = domain.BoxStatusConcluded
	box.ConcludedAt = &concludedAt
	f.store.boxes[boxID] = box

	openCount := 0
	for _, other := range f.store.boxes {
		if other.ShipmentID == box.ShipmentID && other.Status != domain.BoxStatusConcluded {
			openCount++
		}
	}
	shipment := f.store.shipments[box.ShipmentID]
	completed := openCount == 0 && shipment.IsActive()
	if completed {
		shipment.Status = domain.ShipmentStatusCompleted
		shipment.UpdatedAt = concludedAt
		f.store.shipments[shipment.ShipmentID] = shipment
	}

	f.store.outbox = append(f.store.outbox, boxEvent)
	if completed {
		f.store.outbox = append(f.store.outbox, completionEvent)
	}
	return box, completed, nil
}

type fakeLinks struct{ store *memStore }

func (f *fakeLinks) Create(_ context.Context, shipmentID uuid.UUID, token uuid.UUID, createdAt time.Time) (domain.PickerLink, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	link := domain.PickerLink{
		LinkID:     uuid.New(),
		Token:      token,
		ShipmentID: shipmentID,
		IsActive:   true,
		CreatedAt:  createdAt,
	}
	f.store.links[link.LinkID] = link
	return link, nil
}

func (f *fakeLinks) GetByID(_ context.Context, linkID uuid.UUID) (domain.PickerLink, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	link, ok := f.store.links[linkID]
	if !ok {
		return domain.PickerLink{}, domain.ErrNotFound
	}
	return link, nil
}

func (f *fakeLinks) GetActiveByToken(_ context.Context, token uuid.UUID) (domain.PickerLink, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	for _, link := range f.store.links {
		if link.Token == token && link.IsActive {
			return link, nil
		}
	}
	return domain.PickerLink{}, domain.ErrNotFound
}

func (f *fakeLinks) List(_ context.Context, shipmentID *uuid.UUID, limit, offset int) ([]domain.PickerLink, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	var out []domain.PickerLink
	for _, link := range f.store.links {
		if shipmentID != nil && link.ShipmentID != *shipmentID {
			continue
		}
		out = append(out, link)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeLinks) Deactivate(_ context.Context, linkID uuid.UUID) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	link, ok := f.store.links[linkID]
	if !ok {
		return domain.ErrNotFound
	}
	link.IsActive = false
	f.store.links[linkID] = link
	return nil
}

func (f *fakeLinks) AssignPackerTx(_ context.Context, linkID, packerID uuid.UUID, outboxEvent ports.OutboxEvent) (domain.PickerLink, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	link, ok := f.store.links[linkID]
	if !ok {
		return domain.PickerLink{}, domain.ErrNotFound
	}
	if !link.IsActive {
		return domain.PickerLink{}, fmt.Errorf("%w: link is inactive", domain.ErrConflict)
	}
	link.PackerID = &packerID
	f.store.links[linkID] = link
	f.store.outbox = append(f.store.outbox, outboxEvent)
	return link, nil
}

func (f *fakeLinks) NewestActiveForPacker(_ context.Context, packerID uuid.UUID) (domain.PickerLink, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	var newest *domain.PickerLink
	for _, link := range f.store.links {
		link := link
		if !link.IsActive || link.PackerID == nil || *link.PackerID != packerID {
			continue
		}
		if newest == nil || link.CreatedAt.After(newest.CreatedAt) {
			newest = &link
		}
	}
	if newest == nil {
		return domain.PickerLink{}, domain.ErrNotFound
	}
	return *newest, nil
}

type fakeAudit struct{ store *memStore }

func (f *fakeAudit) Insert(_ context.Context, record domain.AuditRecord) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	f.store.audits = append(f.store.audits, record)
	return nil
}

func (f *fakeAudit) ListByShipment(_ context.Context, shipmentID uuid.UUID, limit, offset int) ([]domain.AuditRecord, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	var out []domain.AuditRecord
	for _, rec := range f.store.audits {
		if rec.ShipmentID != nil && *rec.ShipmentID == shipmentID {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RecordedAt.After(out[j].RecordedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeAssignments struct {
	mu    sync.Mutex
	items map[uuid.UUID]ports.AssignmentEnvelope
	hits  int
}

func (f *fakeAssignments) Put(_ context.Context, token uuid.UUID, envelope ports.AssignmentEnvelope, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[token] = envelope
	return nil
}

func (f *fakeAssignments) Get(_ context.Context, token uuid.UUID) (*ports.AssignmentEnvelope, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	envelope, ok := f.items[token]
	if !ok {
		return nil, nil
	}
	f.hits++
	return &envelope, nil
}

func (f *fakeAssignments) Invalidate(_ context.Context, token uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, token)
	return nil
}

type fakeGuard struct {
	mu       sync.Mutex
	reserved map[string]bool
	releases int
}

func (f *fakeGuard) Reserve(_ context.Context, fingerprint string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reserved[fingerprint] {
		return false, nil
	}
	f.reserved[fingerprint] = true
	return true, nil
}

func (f *fakeGuard) Release(_ context.Context, fingerprint string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.reserved, fingerprint)
	f.releases++
	return nil
}

type fakeReportStore struct {
	mu    sync.Mutex
	files map[string][]byte
	order []string
}

func (f *fakeReportStore) Write(_ context.Context, name string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.files[name]; !exists {
		f.order = append(f.order, name)
	}
	f.files[name] = data
	return nil
}

func (f *fakeReportStore) Read(_ context.Context, name string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

func (f *fakeReportStore) List(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.order...), nil
}

func (f *fakeReportStore) Delete(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[name]; !ok {
		return domain.ErrNotFound
	}
	delete(f.files, name)
	for i, existing := range f.order {
		if existing == name {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

type fakeSigner struct {
	mu     sync.Mutex
	seq    int
	tokens map[string]ports.AuthClaims
}

func (f *fakeSigner) Sign(claims ports.AuthClaims) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	token := fmt.Sprintf("token-%d", f.seq)
	f.tokens[token] = claims
	return token, nil
}

func (f *fakeSigner) ParseAndValidate(raw string) (ports.AuthClaims, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	claims, ok := f.tokens[raw]
	if !ok {
		return ports.AuthClaims{}, errors.New("unknown token")
	}
	return claims, nil
}

type fixture struct {
	service     *Service
	store       *memStore
	assignments *fakeAssignments
	guard       *fakeGuard
	reports     *fakeReportStore
	signer      *fakeSigner
	now         time.Time
}

func defaultTestConfig() Config {
	return Config{
		MaxManifestBytes:   10 << 20,
		ImportGuardTTL:     time.Minute,
		AssignmentCacheTTL: 5 * time.Minute,
		TokenTTL:           24 * time.Hour,
		ReportListLimit:    100,
	}
}

func newFixture() *fixture {
	return newFixtureWithConfig(defaultTestConfig())
}

func newFixtureWithConfig(cfg Config) *fixture {
	store := newMemStore()
	assignments := &fakeAssignments{items: map[uuid.UUID]ports.AssignmentEnvelope{}}
	guard := &fakeGuard{reserved: map[string]bool{}}
	reports := &fakeReportStore{files: map[string][]byte{}}
	signer := &fakeSigner{tokens: map[string]ports.AuthClaims{}}

	svc := NewService(Dependencies{
		Config:      cfg,
		Shipments:   &fakeShipments{store: store},
		Items:       &fakeItems{store: store},
		Ledger:      &fakeLedger{store: store},
		Boxes:       &fakeBoxes{store: store},
		Links:       &fakeLinks{store: store},
		Audit:       &fakeAudit{store: store},
		Assignments: assignments,
		ImportGuard: guard,
		Reports:     reports,
		TokenSigner: signer,
	})

	f := &fixture{
		service:     svc,
		store:       store,
		assignments: assignments,
		guard:       guard,
		reports:     reports,
		signer:      signer,
		now:         time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
	}
	svc.nowFn = func() time.Time { return f.now }
	return f
}

func (f *fixture) advance(d time.Duration) { f.now = f.now.Add(d) }

func shipperIdentity(shipperID uuid.UUID) domain.Identity {
	return domain.Identity{ActorID: shipperID.String(), Role: domain.RoleShipper}
}

func adminIdentity() domain.Identity {
	return domain.Identity{ActorID: uuid.NewString(), Role: domain.RoleAdmin}
}

func packerIdentity(packerID uuid.UUID) domain.Identity {
	return domain.Identity{ActorID: packerID.String(), Role: domain.RolePacker}
}

func linkedPackerIdentity(shipmentID uuid.UUID) domain.Identity {
	bound := shipmentID
	return domain.Identity{
		ActorID:            "link:" + uuid.NewString(),
		Role:               domain.RolePacker,
		AssignedShipmentID: &bound,
		ViaLink:            true,
	}
}

// seedShipment imports a manifest so every test goes through the same
// write path production uses.
func (f *fixture) seedShipment(ctx context.Context, identity domain.Identity, manifest string) ImportResult {
	res, err := f.service.ImportShipment(ctx, identity, "seed.csv", []byte(manifest))
	if err != nil {
		panic(fmt.Sprintf("seed shipment: %v", err))
	}
	return res
}

func (f *fixture) itemBySKU(shipmentID uuid.UUID, sku string) domain.Item {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	for _, id := range f.store.itemOrder {
		item := f.store.items[id]
		if item.ShipmentID == shipmentID && item.SKU == sku {
			return item
		}
	}
	panic("item not found: " + sku)
}

func (f *fixture) outboxEventTypes() []string {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	types := make([]string, 0, len(f.store.outbox))
	for _, event := range f.store.outbox {
		types = append(types, event.EventType)
	}
	return types
}

func countOf(types []string, want string) int {
	n := 0
	for _, t := range types {
		if t == want {
			n++
		}
	}
	return n
}
