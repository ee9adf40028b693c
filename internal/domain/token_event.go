package domain

import (
	"strings"
	"time"
)

// LinkBase is the trading page prefix used for event links.
const LinkBase = "https://axiom.trade/meme/"

// Timestamp is an optional UTC instant. Valid is false when the upstream
// value was absent or unparsable.
type Timestamp struct {
	Time  time.Time
	Valid bool
}

// KnownAt returns a valid Timestamp normalized to UTC.
func KnownAt(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC(), Valid: true}
}

// Before reports whether ts is known and strictly earlier than t.
func (ts Timestamp) Before(t time.Time) bool {
	return ts.Valid && ts.Time.Before(t)
}

// TokenEvent is the canonical record produced by the decoder.
// It is never modified after decoding.
type TokenEvent struct {
	Mint         string    // token mint address, never empty
	Name         string    // display name (falls back to mint)
	Symbol       string    // ticker, may be empty
	URI          string    // metadata uri
	Creator      string    // creator / deployer address
	BondingCurve string    // bonding curve account
	PairAddress  string    // pool address
	CreatedAt    Timestamp // token creation time
	SolPrice     float64   // reference SOL price at emission

	Dev     DevInfo
	Token   TokenInfo
	Pair    PairInfo
	Twitter TwitterInfo
	Meta    Metadata
}

// DevInfo describes the token developer and their history.
// The zero value means "no developer section".
type DevInfo struct {
	Present        bool
	Address        string
	TotalTokens    int64
	MigratedTokens int64
	MigrationPct   float64 // verbatim from upstream or derived from counts
	Whitelisted    bool
	PriorTokens    []DevToken // in upstream order
}

// DevToken is a token previously launched by the same developer.
type DevToken struct {
	CreatedAt    Timestamp
	Migrated     bool
	PairAddress  string
	TokenAddress string
	Name         string
	Symbol       string
}

// LastPriorToken returns the prior token with the latest creation time.
// Unknown timestamps sort earliest and ties keep the first one seen.
func (d DevInfo) LastPriorToken() (DevToken, bool) {
	if len(d.PriorTokens) == 0 {
		return DevToken{}, false
	}
	last := d.PriorTokens[0]
	for _, t := range d.PriorTokens[1:] {
		if !t.CreatedAt.Valid {
			continue
		}
		if !last.CreatedAt.Valid || t.CreatedAt.Time.After(last.CreatedAt.Time) {
			last = t
		}
	}
	return last, true
}

// TokenInfo carries holder distribution statistics.
type TokenInfo struct {
	Present           bool
	NumHolders        int64
	NumBotUsers       int64
	Top10HoldersPct   float64
	DevHoldsPct       float64
	SnipersHoldPct    float64
	InsidersHoldPct   float64
	BundlersHoldPct   float64
	TotalPairFeesPaid float64
	DexPaid           bool
	DexPaidAt         Timestamp
}

// PairInfo carries pool bootstrap values.
type PairInfo struct {
	Present               bool
	InitialLiquiditySol   float64
	InitialLiquidityToken float64
	TokenName             string
	TokenTicker           string
}

// TwitterInfo is the social post attached to a launch.
type TwitterInfo struct {
	Present         bool
	AuthorHandle    string
	AuthorName      string
	AuthorFollowers int64
	Verified        bool
	VerifiedType    string
	PostID          string
	PostURL         string
	CommunityURL    string
	Text            string
	PostedAt        Timestamp
	Views           int64
	Likes           int64
	Retweets        int64
	Replies         int64
}

// HasPost reports whether the event references a social post.
func (t TwitterInfo) HasPost() bool {
	return strings.TrimSpace(t.PostURL) != "" || t.PostedAt.Valid
}

// PoolAddress returns the address used for trading links:
// pair address, then bonding curve, then mint.
func (e TokenEvent) PoolAddress() string {
	for _, addr := range []string{e.PairAddress, e.BondingCurve, e.Mint} {
		if strings.TrimSpace(addr) != "" {
			return addr
		}
	}
	return ""
}

// LinkURL returns the trading page for the event, or "" without any address.
func (e TokenEvent) LinkURL() string {
	pool := e.PoolAddress()
	if pool == "" {
		return ""
	}
	return LinkBase + pool
}

// DevIdentity returns the developer address, falling back to the creator.
func (e TokenEvent) DevIdentity() string {
	if strings.TrimSpace(e.Dev.Address) != "" {
		return e.Dev.Address
	}
	return e.Creator
}

// Age returns the time since creation, or zero when unknown.
func (e TokenEvent) Age(now time.Time) time.Duration {
	if !e.CreatedAt.Valid {
		return 0
	}
	return now.Sub(e.CreatedAt.Time)
}
