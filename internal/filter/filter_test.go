package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepamak/pump-tracker/internal/domain"
)

type fakeSets struct {
	allow map[string]bool
	deny  map[string]bool
}

func newFakeSets(allow, deny []string) *fakeSets {
	s := &fakeSets{allow: map[string]bool{}, deny: map[string]bool{}}
	for _, a := range allow {
		s.allow[a] = true
	}
	for _, d := range deny {
		s.deny[d] = true
	}
	return s
}

func (s *fakeSets) AllowLen() int { return len(s.allow) }
func (s *fakeSets) DenyLen() int { return len(s.deny) }
func (s *fakeSets) Allowed(a string) bool { return s.allow[a] }
func (s *fakeSets) Denied(a string) bool { return s.deny[a] }

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func at(t time.Time) domain.Timestamp { return domain.KnownAt(t) }

func TestEvaluate_DefaultsAcceptBareEvent(t *testing.T) {
	ev := &domain.TokenEvent{Mint: "M"}
	d := Evaluate(ev, domain.DefaultCriteria(), nil, now)
	assert.True(t, d.Accepted)
	assert.Empty(t, d.Step)
}

func TestEvaluate_AllowListPrecedence(t *testing.T) {
	sets := newFakeSets([]string{"DevA"}, []string{"DevA", "DevB"})
	c := domain.DefaultCriteria()
	c.UseAllowList = true
	c.UseDenyList = true

	ev := &domain.TokenEvent{Mint: "M", Dev: domain.DevInfo{Address: "DevA"}}
	assert.True(t, Evaluate(ev, c, sets, now).Accepted, "allow-list member must bypass deny list")

	ev = &domain.TokenEvent{Mint: "M", Dev: domain.DevInfo{Address: "DevC"}}
	d := Evaluate(ev, c, sets, now)
	assert.False(t, d.Accepted)
	assert.Equal(t, StepAllowList, d.Step)

	ev = &domain.TokenEvent{Mint: "M"}
	assert.Equal(t, StepAllowList, Evaluate(ev, c, sets, now).Step, "missing identity fails the allow list")
}

func TestEvaluate_CreatorFallbackIdentity(t *testing.T) {
	sets := newFakeSets([]string{"Creator1"}, nil)
	c := domain.DefaultCriteria()
	c.UseAllowList = true

	ev := &domain.TokenEvent{Mint: "M", Creator: "Creator1"}
	assert.True(t, Evaluate(ev, c, sets, now).Accepted)

	ev = &domain.TokenEvent{Mint: "M", Creator: "Creator1", Dev: domain.DevInfo{Address: "Other"}}
	assert.False(t, Evaluate(ev, c, sets, now).Accepted)
}

func TestEvaluate_DenyList(t *testing.T) {
	sets := newFakeSets(nil, []string{"Bad"})
	c := domain.DefaultCriteria()

	ev := &domain.TokenEvent{Mint: "M", Dev: domain.DevInfo{Address: "Bad"}}
	assert.True(t, Evaluate(ev, c, sets, now).Accepted, "deny list off")

	c.UseDenyList = true
	d := Evaluate(ev, c, sets, now)
	assert.Equal(t, StepDenyList, d.Step)
	assert.NotEmpty(t, d.Reason)

	ev = &domain.TokenEvent{Mint: "M", Dev: domain.DevInfo{Address: "bad"}}
	assert.True(t, Evaluate(ev, c, sets, now).Accepted, "matching is case-sensitive")

	c.UseAllowList = true
	ev = &domain.TokenEvent{Mint: "M", Dev: domain.DevInfo{Address: "Bad"}}
	assert.Equal(t, StepDenyList, Evaluate(ev, c, sets, now).Step, "empty allow list does not shadow the deny list")
}

func TestEvaluate_Thresholds(t *testing.T) {
	base := func() *domain.TokenEvent {
		return &domain.TokenEvent{
			Mint: "M",
			Dev:  domain.DevInfo{MigrationPct: 40, MigratedTokens: 4},
			Token: domain.TokenInfo{
				NumHolders: 100, Top10HoldersPct: 20, DevHoldsPct: 5, SnipersHoldPct: 3,
			},
			Twitter: domain.TwitterInfo{AuthorFollowers: 1000},
		}
	}

	tests := []struct {
		name   string
		mutate func(c *domain.Criteria)
		step   string
	}{
		{"migration pct", func(c *domain.Criteria) { c.MinDevMigrationPct = 50 }, StepMigrationPct},
		{"migrated count", func(c *domain.Criteria) { c.MinMigratedTokens = 5 }, StepMigratedCount},
		{"holders", func(c *domain.Criteria) { c.MinNumHolders = 101 }, StepHolders},
		{"top10", func(c *domain.Criteria) { c.MaxTop10HoldersPct = 19.9 }, StepTop10Pct},
		{"dev holds", func(c *domain.Criteria) { c.MaxDevHoldsPct = 4 }, StepDevHoldsPct},
		{"snipers", func(c *domain.Criteria) { c.MaxSnipersHoldPct = 2 }, StepSnipersPct},
		{"followers", func(c *domain.Criteria) { c.MinAuthorFollowers = 1001 }, StepFollowers},
		{"equal bounds pass", func(c *domain.Criteria) {
			c.MinDevMigrationPct = 40
			c.MinMigratedTokens = 4
			c.MinNumHolders = 100
			c.MaxTop10HoldersPct = 20
			c.MinAuthorFollowers = 1000
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := domain.DefaultCriteria()
			tt.mutate(&c)
			d := Evaluate(base(), c, nil, now)
			assert.Equal(t, tt.step == "", d.Accepted)
			assert.Equal(t, tt.step, d.Step)
		})
	}
}

func TestEvaluate_ShortCircuitOrder(t *testing.T) {
	c := domain.DefaultCriteria()
	c.MinDevMigrationPct = 10
	c.MinNumHolders = 10
	c.MinAuthorFollowers = 10

	d := Evaluate(&domain.TokenEvent{Mint: "M"}, c, nil, now)
	assert.Equal(t, StepMigrationPct, d.Step, "first failing step wins")
}

func TestEvaluate_LastDevTokenMigrated(t *testing.T) {
	c := domain.DefaultCriteria()
	c.RequireLastDevTokenMigrated = true

	ts := func(sec int64) domain.Timestamp { return at(time.Unix(sec, 0)) }

	tests := []struct {
		name   string
		tokens []domain.DevToken
		accept bool
	}{
		{"latest migrated", []domain.DevToken{{CreatedAt: ts(100)}, {CreatedAt: ts(200), Migrated: true}}, true},
		{"latest not migrated", []domain.DevToken{{CreatedAt: ts(200)}, {CreatedAt: ts(100), Migrated: true}}, false},
		{"no tokens", nil, false},
		{"unknown time sorts earliest", []domain.DevToken{{Migrated: true}, {CreatedAt: ts(50)}}, false},
		{"tie keeps first seen", []domain.DevToken{{CreatedAt: ts(100), Migrated: true}, {CreatedAt: ts(100)}}, true},
		{"all unknown keeps first", []domain.DevToken{{Migrated: true}, {}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := &domain.TokenEvent{Mint: "M", Dev: domain.DevInfo{PriorTokens: tt.tokens}}
			d := Evaluate(ev, c, nil, now)
			assert.Equal(t, tt.accept, d.Accepted)
			if !tt.accept {
				assert.Equal(t, StepLastDevToken, d.Step)
			}
		})
	}
}

func TestEvaluate_PostOnly(t *testing.T) {
	c := domain.DefaultCriteria()
	c.PostOnly = true

	assert.Equal(t, StepPostOnly, Evaluate(&domain.TokenEvent{Mint: "M"}, c, nil, now).Step)

	withURL := &domain.TokenEvent{Mint: "M", Twitter: domain.TwitterInfo{PostURL: "https://x.com/a/status/1"}}
	assert.True(t, Evaluate(withURL, c, nil, now).Accepted)

	withTime := &domain.TokenEvent{Mint: "M", Twitter: domain.TwitterInfo{PostedAt: at(now)}}
	assert.True(t, Evaluate(withTime, c, nil, now).Accepted)
}

func TestEvaluate_PostAge(t *testing.T) {
	c := domain.DefaultCriteria()
	c.MaxPostAgeMinutes = 30

	old := &domain.TokenEvent{Mint: "M", Twitter: domain.TwitterInfo{PostedAt: at(now.Add(-31 * time.Minute))}}
	assert.Equal(t, StepPostAge, Evaluate(old, c, nil, now).Step)

	fresh := &domain.TokenEvent{Mint: "M", Twitter: domain.TwitterInfo{PostedAt: at(now.Add(-29 * time.Minute))}}
	assert.True(t, Evaluate(fresh, c, nil, now).Accepted)

	unknown := &domain.TokenEvent{Mint: "M"}
	assert.True(t, Evaluate(unknown, c, nil, now).Accepted)

	c.MaxPostAgeMinutes = 0
	assert.True(t, Evaluate(old, c, nil, now).Accepted, "zero means unbounded")
}

func TestAdmitHistory(t *testing.T) {
	start := now
	c := domain.DefaultCriteria()
	require.True(t, c.IgnoreHistoryOnStart)
	require.Equal(t, 5.0, c.TimeSkewSeconds)

	stale := &domain.TokenEvent{Mint: "M", CreatedAt: at(start.Add(-10 * time.Second))}
	recent := &domain.TokenEvent{Mint: "M", CreatedAt: at(start.Add(-3 * time.Second))}
	unknown := &domain.TokenEvent{Mint: "M"}

	assert.False(t, AdmitHistory(stale, c, start))
	assert.True(t, AdmitHistory(recent, c, start))
	assert.True(t, AdmitHistory(unknown, c, start))

	local := start.In(time.FixedZone("UTC+3", 3*3600))
	assert.False(t, AdmitHistory(stale, c, local), "comparison is zone independent")

	c.IgnoreHistoryOnStart = false
	assert.True(t, AdmitHistory(stale, c, start))

	c.IgnoreHistoryOnStart = true
	c.TimeSkewSeconds = -20
	assert.True(t, start.Equal(HistoryCutoff(c, start)))
}

func TestSteps(t *testing.T) {
	assert.Equal(t, []string{
		StepAllowList, StepDenyList, StepMigrationPct, StepMigratedCount, StepLastDevToken,
		StepPostOnly, StepHolders, StepTop10Pct, StepDevHoldsPct, StepSnipersPct,
		StepFollowers, StepPostAge,
	}, Steps())
}
