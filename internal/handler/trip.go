package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/group-trips/internal/domain"
)

// collectionHandler serves one collection (trips or events).
type collectionHandler struct {
	svc  TripServicer
	noun string
	srv  *Server
}

// Trip is the JSON representation of a trip or event.
type Trip struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Members   []Member           `json:"members"`
	StartDate openapi_types.Date `json:"start_date"`
	EndDate   openapi_types.Date `json:"end_date"`
	Duration  string             `json:"duration"`
	CreatedAt time.Time          `json:"created_at"`
}

// Member is the JSON representation of a trip member.
type Member struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// TripList wraps a list response.
type TripList struct {
	Data []Trip `json:"data"`
}

// CreateTripRequest is the body of POST /trips.
type CreateTripRequest struct {
	Name      string              `json:"name"`
	MemberIDs []string            `json:"member_ids"`
	StartDate *openapi_types.Date `json:"start_date"`
	EndDate   *openapi_types.Date `json:"end_date"`
}

// DateRequest is the body of PUT /trips/{id}/start-date and /end-date.
type DateRequest struct {
	Date *openapi_types.Date `json:"date"`
}

// AddMemberRequest is the body of POST /trips/{id}/members.
type AddMemberRequest struct {
	MemberID string `json:"member_id"`
}

// list handles GET /trips.
func (h *collectionHandler) list(w http.ResponseWriter, r *http.Request) {
	trips, err := h.svc.List(r.Context())
	if err != nil {
		h.srv.writeServiceError(w, r, h.noun, err)
		return
	}

	data := make([]Trip, len(trips))
	for i, t := range trips {
		data[i] = tripToResponse(t)
	}
	writeJSON(w, http.StatusOK, TripList{Data: data})
}

// create handles POST /trips.
func (h *collectionHandler) create(w http.ResponseWriter, r *http.Request) {
	var body CreateTripRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	created, err := h.svc.Create(r.Context(), requestToDraft(body))
	if err != nil {
		h.srv.writeServiceError(w, r, h.noun, err)
		return
	}
	writeJSON(w, http.StatusCreated, tripToResponse(created))
}

// get handles GET /trips/{id}.
func (h *collectionHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathParam(w, r, "id")
	if !ok {
		return
	}

	trip, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		h.srv.writeServiceError(w, r, h.noun, err)
		return
	}
	writeJSON(w, http.StatusOK, tripToResponse(trip))
}

// updateStartDate handles PUT /trips/{id}/start-date.
func (h *collectionHandler) updateStartDate(w http.ResponseWriter, r *http.Request) {
	h.updateDate(w, r, h.svc.UpdateStartDate)
}

// updateEndDate handles PUT /trips/{id}/end-date.
func (h *collectionHandler) updateEndDate(w http.ResponseWriter, r *http.Request) {
	h.updateDate(w, r, h.svc.UpdateEndDate)
}

func (h *collectionHandler) updateDate(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, id string, d time.Time) (domain.Trip, error)) {
	id, ok := pathParam(w, r, "id")
	if !ok {
		return
	}
	var body DateRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Date == nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("date is required"))
		return
	}

	updated, err := apply(r.Context(), id, body.Date.Time)
	if err != nil {
		h.srv.writeServiceError(w, r, h.noun, err)
		return
	}
	writeJSON(w, http.StatusOK, tripToResponse(updated))
}

// addMember handles POST /trips/{id}/members.
func (h *collectionHandler) addMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathParam(w, r, "id")
	if !ok {
		return
	}
	var body AddMemberRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.MemberID == "" {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("member_id is required"))
		return
	}

	updated, err := h.svc.AddMember(r.Context(), id, body.MemberID)
	if err != nil {
		h.srv.writeServiceError(w, r, h.noun, err)
		return
	}
	writeJSON(w, http.StatusCreated, tripToResponse(updated))
}

// removeMember handles DELETE /trips/{id}/members/{memberID}.
func (h *collectionHandler) removeMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathParam(w, r, "id")
	if !ok {
		return
	}
	memberID, ok := pathParam(w, r, "memberID")
	if !ok {
		return
	}

	updated, err := h.svc.RemoveMember(r.Context(), id, memberID)
	if err != nil {
		h.srv.writeServiceError(w, r, h.noun, err)
		return
	}
	writeJSON(w, http.StatusOK, tripToResponse(updated))
}

// delete handles DELETE /trips/{id}.
func (h *collectionHandler) delete(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, h.svc.Delete)
}

// conclude handles POST /trips/{id}/conclude.
func (h *collectionHandler) conclude(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, h.svc.Conclude)
}

func (h *collectionHandler) remove(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, id string) error) {
	id, ok := pathParam(w, r, "id")
	if !ok {
		return
	}
	if err := apply(r.Context(), id); err != nil {
		h.srv.writeServiceError(w, r, h.noun, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- mapping helpers --------------------------------------------------------

// pathParam binds a required path segment, unescaping it. On failure it
// writes a 422 and returns false.
func pathParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	var v string
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &v,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("invalid "+name+": "+err.Error()))
		return "", false
	}
	return v, true
}

// requestToDraft converts a CreateTripRequest body into a domain.TripDraft.
// Missing dates stay zero and are rejected by the service.
func requestToDraft(body CreateTripRequest) domain.TripDraft {
	d := domain.TripDraft{
		Name:      body.Name,
		MemberIDs: body.MemberIDs,
	}
	if body.StartDate != nil {
		d.StartDate = body.StartDate.Time
	}
	if body.EndDate != nil {
		d.EndDate = body.EndDate.Time
	}
	return d
}

// tripToResponse converts a domain.Trip into its JSON representation.
func tripToResponse(t domain.Trip) Trip {
	members := make([]Member, len(t.Members))
	for i, m := range t.Members {
		members[i] = Member{ID: m.ID, Username: m.Username}
	}
	return Trip{
		ID:        t.ID,
		Name:      t.Name,
		Members:   members,
		StartDate: openapi_types.Date{Time: t.StartDate},
		EndDate:   openapi_types.Date{Time: t.EndDate},
		Duration:  t.Duration(),
		CreatedAt: t.CreatedAt,
	}
}
