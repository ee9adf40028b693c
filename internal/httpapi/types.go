package httpapi

import (
	"time"

	"github.com/stepamak/pump-tracker/internal/tracker"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// TokensResponse is the response body for GET /api/v1/tokens.
type TokensResponse struct {
	Seq      uint64      `json:"seq"`
	MaxItems int         `json:"max_items"`
	Tokens   []TokenView `json:"tokens"`
}

// TokenView is one buffered token.
type TokenView struct {
	Mint       string     `json:"mint"`
	Name       string     `json:"name"`
	Symbol     string     `json:"symbol,omitempty"`
	Link       string     `json:"link,omitempty"`
	Image      string     `json:"image,omitempty"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
	AgeSeconds float64    `json:"age_seconds,omitempty"`
	SolPrice   float64    `json:"sol_price,omitempty"`

	DevAddress      string  `json:"dev_address,omitempty"`
	DevMarked       bool    `json:"dev_marked,omitempty"`
	DevMigrated     int64   `json:"dev_migrated_tokens"`
	DevTotal        int64   `json:"dev_total_tokens"`
	DevMigrationPct float64 `json:"dev_migration_pct"`

	Holders     int64   `json:"holders"`
	Top10Pct    float64 `json:"top10_holders_pct"`
	DevHoldsPct float64 `json:"dev_holds_pct"`
	SnipersPct  float64 `json:"snipers_hold_pct"`

	PostURL         string `json:"post_url,omitempty"`
	AuthorHandle    string `json:"author_handle,omitempty"`
	AuthorFollowers int64  `json:"author_followers,omitempty"`
}

// NewTokenView flattens a buffered token for JSON output.
func NewTokenView(tok tracker.Token, now time.Time) TokenView {
	v := TokenView{
		Mint:            tok.Mint,
		Name:            tok.Name,
		Symbol:          tok.Symbol,
		Link:            tok.LinkURL(),
		Image:           tok.Meta.Image,
		SolPrice:        tok.SolPrice,
		DevAddress:      tok.DevIdentity(),
		DevMarked:       tok.DevMarked,
		DevMigrated:     tok.Dev.MigratedTokens,
		DevTotal:        tok.Dev.TotalTokens,
		DevMigrationPct: tok.Dev.MigrationPct,
		Holders:         tok.Token.NumHolders,
		Top10Pct:        tok.Token.Top10HoldersPct,
		DevHoldsPct:     tok.Token.DevHoldsPct,
		SnipersPct:      tok.Token.SnipersHoldPct,
		PostURL:         tok.Twitter.PostURL,
		AuthorHandle:    tok.Twitter.AuthorHandle,
		AuthorFollowers: tok.Twitter.AuthorFollowers,
	}
	if tok.CreatedAt.Valid {
		created := tok.CreatedAt.Time
		v.CreatedAt = &created
		v.AgeSeconds = tok.Age(now).Seconds()
	}
	return v
}

// StatsResponse is the response body for GET /api/v1/stats.
type StatsResponse struct {
	Received       uint64     `json:"received"`
	Parsed         uint64     `json:"parsed"`
	Errors         uint64     `json:"errors"`
	HistoryDropped uint64     `json:"history_dropped"`
	Rejected       uint64     `json:"rejected"`
	Connected      bool       `json:"connected"`
	Status         string     `json:"status"`
	SessionID      string     `json:"session_id,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	Buffered       int        `json:"buffered"`
	MaxItems       int        `json:"max_items"`
	Ping           string     `json:"ping"`
	LastMessage    string     `json:"last_message,omitempty"`
}

// AddDevRequest is the request body for POST /api/v1/devlists/:kind.
type AddDevRequest struct {
	Address string `json:"address"`
	Note    string `json:"note"`
}

// AddDevResponse reports where the address was written.
type AddDevResponse struct {
	Kind    string `json:"kind"`
	Address string `json:"address"`
	Path    string `json:"path"`
}
