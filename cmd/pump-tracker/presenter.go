package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/stepamak/pump-tracker/internal/httpapi"
	"github.com/stepamak/pump-tracker/internal/tracker"
)

// presenter prints status changes and newly admitted tokens.
type presenter struct {
	out  io.Writer
	ping httpapi.PingSource
	now  func() time.Time

	status string
	seen   map[string]struct{}

	good, bad, title, link, dim *color.Color
}

func newPresenter(out io.Writer, ping httpapi.PingSource) *presenter {
	return &presenter{
		out:   out,
		ping:  ping,
		now:   time.Now,
		seen:  make(map[string]struct{}),
		good:  color.New(color.FgGreen),
		bad:   color.New(color.FgRed),
		title: color.New(color.FgCyan, color.Bold),
		link:  color.New(color.FgBlue, color.Underline),
		dim:   color.New(color.Faint),
	}
}

// Run renders snapshots until ctx is done.
func (p *presenter) Run(ctx context.Context, updates <-chan tracker.Snapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-updates:
			p.render(snap)
		}
	}
}

func (p *presenter) render(snap tracker.Snapshot) {
	if status := snap.Connection.Status(); status != p.status {
		p.status = status
		c := p.bad
		if snap.Connection.Connected {
			c = p.good
		}
		line := c.Sprint(status)
		if p.ping != nil {
			line += p.dim.Sprintf("  ping %s", p.ping.Last())
		}
		fmt.Fprintln(p.out, line)
	}

	// print oldest first so the console reads top to bottom
	current := make(map[string]struct{}, len(snap.Tokens))
	for i := len(snap.Tokens) - 1; i >= 0; i-- {
		tok := snap.Tokens[i]
		current[tok.Mint] = struct{}{}
		if _, ok := p.seen[tok.Mint]; ok {
			continue
		}
		p.printToken(tok)
	}
	p.seen = current
}

func (p *presenter) printToken(tok tracker.Token) {
	name := tok.Name
	if tok.Symbol != "" {
		name += " (" + tok.Symbol + ")"
	}
	fmt.Fprintf(p.out, "%s  %s\n", p.title.Sprint(name), p.dim.Sprint(tok.Mint))

	var parts []string
	if tok.CreatedAt.Valid {
		parts = append(parts, "created "+tok.CreatedAt.Time.Format("2006-01-02 15:04:05 UTC"))
	}
	parts = append(parts,
		fmt.Sprintf("dev %d/%d migrated (%.1f%%)", tok.Dev.MigratedTokens, tok.Dev.TotalTokens, tok.Dev.MigrationPct),
		fmt.Sprintf("holders %d", tok.Token.NumHolders),
		fmt.Sprintf("top10 %.1f%%", tok.Token.Top10HoldersPct),
	)
	if tok.Twitter.AuthorHandle != "" {
		parts = append(parts, fmt.Sprintf("@%s %d followers", tok.Twitter.AuthorHandle, tok.Twitter.AuthorFollowers))
	}
	fmt.Fprintf(p.out, "  %s\n", strings.Join(parts, " | "))

	if dev := tok.DevIdentity(); dev != "" {
		marker := ""
		if tok.DevMarked {
			marker = p.good.Sprint(" *")
		}
		fmt.Fprintf(p.out, "  dev %s%s\n", dev, marker)
	}
	if url := tok.LinkURL(); url != "" {
		fmt.Fprintf(p.out, "  %s\n", p.link.Sprint(url))
	}
}
