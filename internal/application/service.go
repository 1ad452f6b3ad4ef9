package application

import (
	"time"

	"github.com/packlane/fulfillment-service/internal/ports"
)

type Service struct {
	cfg         Config
	shipments   ports.ShipmentRepository
	items       ports.ItemRepository
	ledger      ports.LedgerRepository
	boxes       ports.BoxRepository
	links       ports.PickerLinkRepository
	audit       ports.AuditRepository
	assignments ports.AssignmentStore
	importGuard ports.ImportGuard
	reports     ports.ReportStore
	tokenSigner ports.TokenSigner
	nowFn       func() time.Time
}

type Dependencies struct {
	Config      Config
	Shipments   ports.ShipmentRepository
	Items       ports.ItemRepository
	Ledger      ports.LedgerRepository
	Boxes       ports.BoxRepository
	Links       ports.PickerLinkRepository
	Audit       ports.AuditRepository
	Assignments ports.AssignmentStore
	ImportGuard ports.ImportGuard
	Reports     ports.ReportStore
	TokenSigner ports.TokenSigner
}

func NewService(deps Dependencies) *Service {
	return &Service{
		cfg:         deps.Config,
		shipments:   deps.Shipments,
		items:       deps.Items,
		ledger:      deps.Ledger,
		boxes:       deps.Boxes,
		links:       deps.Links,
		audit:       deps.Audit,
		assignments: deps.Assignments,
		importGuard: deps.ImportGuard,
		reports:     deps.Reports,
		tokenSigner: deps.TokenSigner,
		nowFn:       func() time.Time { return time.Now().UTC() },
	}
}

// MaxManifestBytes exposes the manifest size cap so the HTTP adapter can
// bound its reads before handing the payload over.
func (s *Service) MaxManifestBytes() int64 {
	return s.cfg.MaxManifestBytes
}
