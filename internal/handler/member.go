package handler

import (
	"net/http"

	"github.com/oapi-codegen/runtime"
)

// MemberList wraps a directory search response.
type MemberList struct {
	Data []Member `json:"data"`
}

// SearchMembers handles GET /members?q=prefix.
// Without q every member in the directory is returned.
func (s *Server) SearchMembers(w http.ResponseWriter, r *http.Request) {
	var q string
	if err := runtime.BindQueryParameter("form", true, false, "q", r.URL.Query(), &q); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("invalid q: "+err.Error()))
		return
	}

	found, err := s.members.Search(r.Context(), q)
	if err != nil {
		s.writeServiceError(w, r, "member", err)
		return
	}

	data := make([]Member, len(found))
	for i, m := range found {
		data[i] = Member{ID: m.ID, Username: m.Username}
	}
	writeJSON(w, http.StatusOK, MemberList{Data: data})
}
