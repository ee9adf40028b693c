package domain

// Criteria is the operator-configured admission policy.
// Field tags map the config section onto it.
type Criteria struct {
	MinDevMigrationPct          float64 `koanf:"min_dev_migration_pct" json:"min_dev_migration_pct"`
	MinMigratedTokens           int64   `koanf:"min_migrated_tokens" json:"min_migrated_tokens"`
	RequireLastDevTokenMigrated bool    `koanf:"require_last_dev_token_migrated" json:"require_last_dev_token_migrated"`
	PostOnly                    bool    `koanf:"post_only" json:"post_only"`
	UseAllowList                bool    `koanf:"use_allow_list" json:"use_allow_list"`
	UseDenyList                 bool    `koanf:"use_deny_list" json:"use_deny_list"`
	MinNumHolders               int64   `koanf:"min_num_holders" json:"min_num_holders"`
	MaxTop10HoldersPct          float64 `koanf:"max_top10_holders_pct" json:"max_top10_holders_pct"`
	MaxDevHoldsPct              float64 `koanf:"max_dev_holds_pct" json:"max_dev_holds_pct"`
	MaxSnipersHoldPct           float64 `koanf:"max_snipers_hold_pct" json:"max_snipers_hold_pct"`
	MinAuthorFollowers          int64   `koanf:"min_author_followers" json:"min_author_followers"`
	MaxPostAgeMinutes           float64 `koanf:"max_post_age_minutes" json:"max_post_age_minutes"` // 0 = unbounded
	IgnoreHistoryOnStart        bool    `koanf:"ignore_history_on_start" json:"ignore_history_on_start"`
	TimeSkewSeconds             float64 `koanf:"time_skew_seconds" json:"time_skew_seconds"`
	MaxItems                    int     `koanf:"max_items" json:"max_items"`
}

// DefaultCriteria returns the permissive defaults.
func DefaultCriteria() Criteria {
	return Criteria{
		MaxTop10HoldersPct:   100,
		MaxDevHoldsPct:       100,
		MaxSnipersHoldPct:    100,
		MaxPostAgeMinutes:    1440,
		IgnoreHistoryOnStart: true,
		TimeSkewSeconds:      5,
		MaxItems:             30,
	}
}
