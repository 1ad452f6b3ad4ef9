package ports

import "context"

// ReportStore persists generated report files by name.
// Names are self-describing (see domain.ReportName), so listing needs no
// companion metadata table.
type ReportStore interface {
	Write(ctx context.Context, name string, data []byte) error
	Read(ctx context.Context, name string) ([]byte, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) error
}
