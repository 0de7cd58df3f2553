package profile

import (
	"reflect"
	"slices"

	apperrors "github.com/reglet-dev/glimpse/internal/application/errors"
	"github.com/reglet-dev/glimpse/internal/domain/values"
)

// Snapshot is the immutable result of one Build. Profiles are sorted by
// member key.
type Snapshot struct {
	profiles []*Profile
	byKey    map[values.MemberKey]*Profile
	byDecl   map[reflect.Type][]*Profile
	statics  []*Profile
	report   *apperrors.Report
}

func newSnapshot(profiles []*Profile, report *apperrors.Report) *Snapshot {
	slices.SortStableFunc(profiles, func(a, b *Profile) int {
		ka, kb := a.Key(), b.Key()
		switch {
		case ka.Less(kb):
			return -1
		case kb.Less(ka):
			return 1
		}
		return 0
	})

	s := &Snapshot{
		profiles: profiles,
		byKey:    make(map[values.MemberKey]*Profile, len(profiles)),
		byDecl:   make(map[reflect.Type][]*Profile),
		report:   report,
	}
	for _, p := range profiles {
		s.byKey[p.Key()] = p
		if p.Static() {
			s.statics = append(s.statics, p)
			continue
		}
		s.byDecl[p.handle.Decl] = append(s.byDecl[p.handle.Decl], p)
	}
	return s
}

// Len returns the number of profiles.
func (s *Snapshot) Len() int { return len(s.profiles) }

// Profiles returns every profile in key order.
func (s *Snapshot) Profiles() []*Profile { return slices.Clone(s.profiles) }

// Lookup returns the profile with key k.
func (s *Snapshot) Lookup(k values.MemberKey) (*Profile, bool) {
	p, ok := s.byKey[k]
	return p, ok
}

// ForType returns the instance profiles declared on t.
func (s *Snapshot) ForType(t reflect.Type) []*Profile {
	return slices.Clone(s.byDecl[t])
}

// Statics returns the static profiles.
func (s *Snapshot) Statics() []*Profile { return slices.Clone(s.statics) }

// Report returns the diagnostics collected while building.
func (s *Snapshot) Report() *apperrors.Report { return s.report }
