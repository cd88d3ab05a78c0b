// Package directory resolves the people who can be added to a trip.
// The only implementation today is a fixed in-memory list; a real user
// service can replace it behind the Directory interface.
package directory

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkordes/group-trips/internal/domain"
)

// Directory looks up candidate members.
type Directory interface {
	// Search returns members whose username starts with prefix, compared
	// case-insensitively. An empty prefix returns every member.
	Search(ctx context.Context, prefix string) ([]domain.Member, error)

	// Lookup returns the member with the given ID, or domain.ErrNotFound.
	Lookup(ctx context.Context, id string) (domain.Member, error)
}

// Static is a Directory over a fixed list, kept in the order given.
type Static struct {
	members []domain.Member
}

var _ Directory = (*Static)(nil)

// NewStatic returns a Directory over members.
func NewStatic(members ...domain.Member) *Static {
	return &Static{members: append([]domain.Member(nil), members...)}
}

// DefaultMembers is the placeholder user list shipped with the app.
func DefaultMembers() []domain.Member {
	return []domain.Member{
		{ID: "1", Username: "john_doe"},
		{ID: "2", Username: "jane_smith"},
		{ID: "3", Username: "mike_wilson"},
		{ID: "4", Username: "sarah_jones"},
		{ID: "5", Username: "alex_brown"},
	}
}

// Search returns matching members. The result is never nil.
func (s *Static) Search(_ context.Context, prefix string) ([]domain.Member, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	out := []domain.Member{}
	for _, m := range s.members {
		if strings.HasPrefix(strings.ToLower(m.Username), prefix) {
			out = append(out, m)
		}
	}
	return out, nil
}

// Lookup finds a member by ID.
func (s *Static) Lookup(_ context.Context, id string) (domain.Member, error) {
	for _, m := range s.members {
		if m.ID == id {
			return m, nil
		}
	}
	return domain.Member{}, fmt.Errorf("directory.Static.Lookup: member %q: %w", id, domain.ErrNotFound)
}
