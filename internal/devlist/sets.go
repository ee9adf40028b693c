// Package devlist loads and maintains the developer allow and deny lists.
package devlist

import "sort"

// Sets is an immutable snapshot of the allow and deny lists.
// Membership is exact and case-sensitive. A nil *Sets is two empty lists.
type Sets struct {
	allow map[string]struct{}
	deny  map[string]struct{}
}

func toSet(items []string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, it := range items {
		if it != "" {
			m[it] = struct{}{}
		}
	}
	return m
}

// NewSets builds a snapshot from two address lists. Empty strings are ignored.
func NewSets(allow, deny []string) *Sets {
	return &Sets{allow: toSet(allow), deny: toSet(deny)}
}

// AllowLen returns the number of allowed addresses.
func (s *Sets) AllowLen() int {
	if s == nil {
		return 0
	}
	return len(s.allow)
}

// DenyLen returns the number of denied addresses.
func (s *Sets) DenyLen() int {
	if s == nil {
		return 0
	}
	return len(s.deny)
}

// Allowed reports whether address is on the allow list.
func (s *Sets) Allowed(address string) bool {
	if s == nil {
		return false
	}
	_, ok := s.allow[address]
	return ok
}

// Denied reports whether address is on the deny list.
func (s *Sets) Denied(address string) bool {
	if s == nil {
		return false
	}
	_, ok := s.deny[address]
	return ok
}

// Allow returns the allow list sorted.
func (s *Sets) Allow() []string {
	if s == nil {
		return nil
	}
	return sorted(s.allow)
}

// Deny returns the deny list sorted.
func (s *Sets) Deny() []string {
	if s == nil {
		return nil
	}
	return sorted(s.deny)
}

func sorted(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
