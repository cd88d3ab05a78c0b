// Package handler implements the HTTP handlers for the group trips API.
// Trips and events are served by the same handlers mounted under two
// prefixes; each mount talks to its own TripServicer.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pkordes/group-trips/internal/domain"
)

// TripServicer defines the business operations the trip handlers depend on.
// Defining the interface here (in the consumer package) follows the Go
// convention: "accept interfaces, return concrete types". It lets handler
// tests inject a mock without touching storage or the service layer.
type TripServicer interface {
	List(ctx context.Context) ([]domain.Trip, error)
	GetByID(ctx context.Context, id string) (domain.Trip, error)
	Create(ctx context.Context, draft domain.TripDraft) (domain.Trip, error)
	UpdateStartDate(ctx context.Context, id string, start time.Time) (domain.Trip, error)
	UpdateEndDate(ctx context.Context, id string, end time.Time) (domain.Trip, error)
	AddMember(ctx context.Context, id, memberID string) (domain.Trip, error)
	RemoveMember(ctx context.Context, id, memberID string) (domain.Trip, error)
	Delete(ctx context.Context, id string) error
	Conclude(ctx context.Context, id string) error
}

// MemberSearcher is the slice of the member directory the API exposes.
type MemberSearcher interface {
	Search(ctx context.Context, prefix string) ([]domain.Member, error)
}

// Server holds the dependencies shared by every handler.
type Server struct {
	trips   TripServicer
	events  TripServicer
	members MemberSearcher
	log     *slog.Logger
}

// NewServer constructs the Server with all its dependencies.
// A nil logger falls back to slog.Default.
func NewServer(trips, events TripServicer, members MemberSearcher, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{trips: trips, events: events, members: members, log: log}
}

// NewHealthHandler returns a Server for health-check-only use.
func NewHealthHandler() *Server {
	return NewServer(nil, nil, nil, nil)
}

// Handler returns the chi router with every API route registered.
// Collections whose servicer is nil are not mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)

	if s.members != nil {
		r.Get("/members", s.SearchMembers)
	}
	if s.trips != nil {
		r.Mount("/trips", s.collectionRoutes(s.trips, "trip"))
	}
	if s.events != nil {
		r.Mount("/events", s.collectionRoutes(s.events, "event"))
	}
	return r
}

// collectionRoutes registers the CRUD routes for one collection.
// noun is used in not-found messages ("trip not found").
func (s *Server) collectionRoutes(svc TripServicer, noun string) chi.Router {
	h := &collectionHandler{svc: svc, noun: noun, srv: s}

	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Delete("/", h.delete)
		r.Post("/conclude", h.conclude)
		r.Put("/start-date", h.updateStartDate)
		r.Put("/end-date", h.updateEndDate)
		r.Post("/members", h.addMember)
		r.Delete("/members/{memberID}", h.removeMember)
	})
	return r
}
