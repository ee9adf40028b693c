// Package filter decides whether a decoded token event is admitted.
//
// Evaluation is an ordered list of named steps. The first failing step
// rejects the event; later steps are not evaluated.
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/stepamak/pump-tracker/internal/domain"
)

// Step names, in evaluation order.
const (
	StepAllowList     = "allow_list"
	StepDenyList      = "deny_list"
	StepMigrationPct  = "migration_pct"
	StepMigratedCount = "migrated_count"
	StepLastDevToken  = "last_dev_token"
	StepPostOnly      = "post_only"
	StepHolders       = "holders"
	StepTop10Pct      = "top10_pct"
	StepDevHoldsPct   = "dev_holds_pct"
	StepSnipersPct    = "snipers_pct"
	StepFollowers     = "followers"
	StepPostAge       = "post_age"

	// StepHistory is reported for events dropped by AdmitHistory.
	StepHistory = "history"
)

// ReputationSets is a read-only view of the developer allow and deny lists.
type ReputationSets interface {
	AllowLen() int
	DenyLen() int
	Allowed(address string) bool
	Denied(address string) bool
}

// Decision is the outcome of Evaluate.
type Decision struct {
	Accepted bool
	Step     string // failing step, empty when accepted
	Reason   string
}

func accept() Decision {
	return Decision{Accepted: true}
}

type input struct {
	ev   *domain.TokenEvent
	c    *domain.Criteria
	sets ReputationSets
	now  time.Time
	dev  string // effective developer identity
}

func (in *input) allowListActive() bool {
	return in.c.UseAllowList && in.sets != nil && in.sets.AllowLen() > 0
}

type rule struct {
	step  string
	check func(in *input) (bool, string)
}

var rules = []rule{
	{StepAllowList, func(in *input) (bool, string) {
		if !in.allowListActive() {
			return true, ""
		}
		if in.dev == "" || !in.sets.Allowed(in.dev) {
			return false, "dev not in allow list"
		}
		return true, ""
	}},
	{StepDenyList, func(in *input) (bool, string) {
		// allow-list membership already decided admission for this step
		if in.allowListActive() {
			return true, ""
		}
		if !in.c.UseDenyList || in.sets == nil || in.sets.DenyLen() == 0 {
			return true, ""
		}
		if in.dev != "" && in.sets.Denied(in.dev) {
			return false, "dev in deny list"
		}
		return true, ""
	}},
	{StepMigrationPct, func(in *input) (bool, string) {
		pct := in.ev.Dev.MigrationPct
		if pct < in.c.MinDevMigrationPct {
			return false, fmt.Sprintf("dev migration %.2f%% < %.2f%%", pct, in.c.MinDevMigrationPct)
		}
		return true, ""
	}},
	{StepMigratedCount, func(in *input) (bool, string) {
		n := in.ev.Dev.MigratedTokens
		if n < in.c.MinMigratedTokens {
			return false, fmt.Sprintf("dev migrated %d < %d", n, in.c.MinMigratedTokens)
		}
		return true, ""
	}},
	{StepLastDevToken, func(in *input) (bool, string) {
		if !in.c.RequireLastDevTokenMigrated {
			return true, ""
		}
		last, ok := in.ev.Dev.LastPriorToken()
		if !ok {
			return false, "no prior dev tokens"
		}
		if !last.Migrated {
			return false, "last dev token not migrated"
		}
		return true, ""
	}},
	{StepPostOnly, func(in *input) (bool, string) {
		if in.c.PostOnly && !in.ev.Twitter.HasPost() {
			return false, "no social post"
		}
		return true, ""
	}},
	{StepHolders, func(in *input) (bool, string) {
		n := in.ev.Token.NumHolders
		if n < in.c.MinNumHolders {
			return false, fmt.Sprintf("holders %d < %d", n, in.c.MinNumHolders)
		}
		return true, ""
	}},
	{StepTop10Pct, maxPct("top10 holders", func(ev *domain.TokenEvent) float64 { return ev.Token.Top10HoldersPct },
		func(c *domain.Criteria) float64 { return c.MaxTop10HoldersPct })},
	{StepDevHoldsPct, maxPct("dev holds", func(ev *domain.TokenEvent) float64 { return ev.Token.DevHoldsPct },
		func(c *domain.Criteria) float64 { return c.MaxDevHoldsPct })},
	{StepSnipersPct, maxPct("snipers hold", func(ev *domain.TokenEvent) float64 { return ev.Token.SnipersHoldPct },
		func(c *domain.Criteria) float64 { return c.MaxSnipersHoldPct })},
	{StepFollowers, func(in *input) (bool, string) {
		n := in.ev.Twitter.AuthorFollowers
		if n < in.c.MinAuthorFollowers {
			return false, fmt.Sprintf("followers %d < %d", n, in.c.MinAuthorFollowers)
		}
		return true, ""
	}},
	{StepPostAge, func(in *input) (bool, string) {
		posted := in.ev.Twitter.PostedAt
		if in.c.MaxPostAgeMinutes <= 0 || !posted.Valid {
			return true, ""
		}
		age := in.now.Sub(posted.Time).Minutes()
		if age > in.c.MaxPostAgeMinutes {
			return false, fmt.Sprintf("post age %.1fm > %.1fm", age, in.c.MaxPostAgeMinutes)
		}
		return true, ""
	}},
}

func maxPct(label string, got func(*domain.TokenEvent) float64, limit func(*domain.Criteria) float64) func(*input) (bool, string) {
	return func(in *input) (bool, string) {
		v, limitV := got(in.ev), limit(in.c)
		if v > limitV {
			return false, fmt.Sprintf("%s %.2f%% > %.2f%%", label, v, limitV)
		}
		return true, ""
	}
}

// Evaluate runs every step against ev and stops at the first failure.
// sets may be nil, which behaves like two empty lists.
func Evaluate(ev *domain.TokenEvent, c domain.Criteria, sets ReputationSets, now time.Time) Decision {
	in := &input{
		ev:   ev,
		c:    &c,
		sets: sets,
		now:  now,
		dev:  strings.TrimSpace(ev.DevIdentity()),
	}
	for _, r := range rules {
		if ok, reason := r.check(in); !ok {
			return Decision{Step: r.step, Reason: reason}
		}
	}
	return accept()
}

// Steps returns the step names in evaluation order.
func Steps() []string {
	out := make([]string, len(rules))
	for i, r := range rules {
		out[i] = r.step
	}
	return out
}

// HistoryCutoff is the earliest creation time admitted for a session that
// started at startedAt. Negative skews count as zero.
func HistoryCutoff(c domain.Criteria, startedAt time.Time) time.Time {
	skew := time.Duration(max(0, c.TimeSkewSeconds) * float64(time.Second))
	return startedAt.UTC().Add(-skew)
}

// AdmitHistory reports whether ev survives the replayed-history rule.
// Events with unknown creation time always pass.
func AdmitHistory(ev *domain.TokenEvent, c domain.Criteria, startedAt time.Time) bool {
	if !c.IgnoreHistoryOnStart || !ev.CreatedAt.Valid {
		return true
	}
	return !ev.CreatedAt.Before(HistoryCutoff(c, startedAt))
}
