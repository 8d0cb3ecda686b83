// Package mediaserver defines the capability contract tosho consumes from
// a target library server (Komga, Kavita). Concrete clients live outside
// the core and register themselves by kind.
package mediaserver

import (
	"context"

	"github.com/pkg/errors"
	"github.com/toshobooks/tosho/pkg/metadata"
	"github.com/toshobooks/tosho/pkg/patch"
)

// Kind identifies a media server implementation.
type Kind string

const (
	KindKomga  Kind = "komga"
	KindKavita Kind = "kavita"
)

// SeriesRef is an opaque identifier of a series on a media server
// instance. Used as a key everywhere; equality is (server, id).
type SeriesRef struct {
	Server Kind   `json:"server"`
	ID     string `json:"id"`
}

func (r SeriesRef) String() string {
	return string(r.Server) + ":" + r.ID
}

// BookRef is an opaque identifier of a book on a media server instance.
type BookRef struct {
	Server Kind   `json:"server"`
	ID     string `json:"id"`
}

// SeriesSnapshot is the server's current view of a series: its metadata,
// which fields the user locked against automated overwrite, which fields a
// previous provider run populated, and enough context for sidecar writes.
type SeriesSnapshot struct {
	Ref             SeriesRef
	LibraryID       string
	Metadata        metadata.Record
	Locks           patch.FieldFlags
	ProviderSourced patch.FieldFlags
	// FilesystemPath is the series directory as seen by the server, when
	// the server exposes it and the path is shared with tosho. Empty when
	// unavailable; sidecar writes are skipped in that case.
	FilesystemPath string
}

// BookSnapshot is the server's current view of one book in a series.
type BookSnapshot struct {
	Ref             BookRef
	SeriesID        string
	Metadata        metadata.Book
	Locks           patch.BookFieldFlags
	ProviderSourced patch.BookFieldFlags
}

// Client is the snapshot/update capability tosho consumes per media
// server. Updates must be all-or-nothing per entity.
type Client interface {
	Kind() Kind
	GetSeries(ctx context.Context, seriesID string) (*SeriesSnapshot, error)
	GetBooks(ctx context.Context, seriesID string) ([]*BookSnapshot, error)
	UpdateSeries(ctx context.Context, seriesID string, p *patch.SeriesPatch) error
	UpdateBook(ctx context.Context, bookID string, p *patch.BookPatch) error
}

// Registry holds the configured media server clients keyed by kind. Built
// once at startup; read-only afterwards.
type Registry struct {
	clients map[Kind]Client
}

func NewRegistry(clients ...Client) *Registry {
	r := &Registry{clients: make(map[Kind]Client, len(clients))}
	for _, c := range clients {
		r.clients[c.Kind()] = c
	}
	return r
}

// Get returns the client for the given kind.
func (r *Registry) Get(kind Kind) (Client, error) {
	c, ok := r.clients[kind]
	if !ok {
		return nil, errors.Errorf("no media server client registered for kind %q", kind)
	}
	return c, nil
}

// Has reports whether a client is registered for the given kind.
func (r *Registry) Has(kind Kind) bool {
	_, ok := r.clients[kind]
	return ok
}
