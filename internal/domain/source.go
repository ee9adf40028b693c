package domain

// ListKind identifies a developer reputation list.
type ListKind string

const (
	ListAllow ListKind = "allow"
	ListDeny  ListKind = "deny"
)

// String returns the string representation of ListKind.
func (k ListKind) String() string {
	return string(k)
}

// IsValid checks if the kind is a valid value.
func (k ListKind) IsValid() bool {
	return k == ListAllow || k == ListDeny
}

// ParseListKind accepts the canonical names and the legacy file names.
func ParseListKind(s string) (ListKind, bool) {
	switch s {
	case "allow", "whitelist":
		return ListAllow, true
	case "deny", "blacklist":
		return ListDeny, true
	}
	return "", false
}

// DevListEntry is one stored reputation entry.
type DevListEntry struct {
	Kind    ListKind // allow | deny
	Address string   // developer address, case-sensitive
	Note    string   // free-form operator note
	AddedAt int64    // Unix timestamp in milliseconds
}
