package decoder

import (
	simplejson "github.com/bitly/go-simplejson"

	"github.com/stepamak/pump-tracker/internal/domain"
)

// field maps one canonical attribute of T to its ordered candidate keys.
// The first present key whose value coerces to kind wins.
type field[T any] struct {
	name string
	keys []string
	kind kind
	set  func(*T, value)
}

func (f field[T]) resolve(obj *simplejson.Json) (value, bool) {
	return lookup(obj, f.kind, f.keys...)
}

// lookup scans keys in order and returns the first value of the right type.
func lookup(obj *simplejson.Json, k kind, keys ...string) (value, bool) {
	for _, key := range keys {
		raw, ok := obj.CheckGet(key)
		if !ok {
			continue
		}
		if v, ok := coerce(k, raw.Interface()); ok {
			return v, true
		}
	}
	return value{}, false
}

// apply resolves every field of the table against obj.
// Unresolved fields keep their zero value.
func apply[T any](obj *simplejson.Json, dst *T, fields []field[T]) {
	for _, f := range fields {
		if v, ok := f.resolve(obj); ok {
			f.set(dst, v)
		}
	}
}

// object returns the first object-valued key among keys.
func object(obj *simplejson.Json, keys ...string) (*simplejson.Json, bool) {
	for _, key := range keys {
		child, ok := obj.CheckGet(key)
		if !ok {
			continue
		}
		if _, ok := child.Interface().(map[string]interface{}); ok {
			return child, true
		}
	}
	return nil, false
}

// array returns the first array-valued key among keys.
func array(obj *simplejson.Json, keys ...string) ([]*simplejson.Json, bool) {
	for _, key := range keys {
		child, ok := obj.CheckGet(key)
		if !ok {
			continue
		}
		arr, ok := child.Interface().([]interface{})
		if !ok {
			continue
		}
		items := make([]*simplejson.Json, len(arr))
		for i := range arr {
			items[i] = child.GetIndex(i)
		}
		return items, true
	}
	return nil, false
}

func nonNegative(i int64) int64 {
	if i < 0 {
		return 0
	}
	return i
}

// Section keys.
var (
	devInfoKeys     = []string{"dev_info"}
	tokenInfoKeys   = []string{"token_info"}
	pairInfoKeys    = []string{"pair_info"}
	metadataKeys    = []string{"metadata"}
	twitterInfoKeys = []string{"twitter_info"}
	twitterDataKeys = []string{"twitter_data"}
	priorTokenKeys  = []string{"last_tokens", "recent_tokens", "last3_tokens", "dev_tokens"}
)

// Standalone lookups that feed derived or fallback values.
var (
	migrationPctKeys    = []string{"migration_percentage", "migrationPercent"}
	pairInfoAddressKeys = []string{"pairAddress", "pair_address"}
	totalTokensKeys     = []string{"total_tokens", "tokens_count", "tokenCount"}
	migratedTokensKeys  = []string{"migrated_tokens", "migratedCount"}
)

var tokenFields = []field[domain.TokenEvent]{
	{"mint", []string{"mint", "address", "tokenAddress", "token_address"}, kindAddress,
		func(e *domain.TokenEvent, v value) { e.Mint = v.s }},
	{"name", []string{"name"}, kindString,
		func(e *domain.TokenEvent, v value) { e.Name = v.s }},
	{"symbol", []string{"symbol"}, kindString,
		func(e *domain.TokenEvent, v value) { e.Symbol = v.s }},
	{"uri", []string{"uri", "tokenUri"}, kindString,
		func(e *domain.TokenEvent, v value) { e.URI = v.s }},
	{"bonding_curve", []string{"bonding_curve", "bondingCurve"}, kindString,
		func(e *domain.TokenEvent, v value) { e.BondingCurve = v.s }},
	{"pair_address", []string{"pair_address", "pairAddress"}, kindString,
		func(e *domain.TokenEvent, v value) { e.PairAddress = v.s }},
	{"creator", []string{"creator", "deployerAddress"}, kindString,
		func(e *domain.TokenEvent, v value) { e.Creator = v.s }},
	{"created_at", []string{"created_at", "createdAt"}, kindTime,
		func(e *domain.TokenEvent, v value) { e.CreatedAt = v.t }},
	{"sol_price", []string{"sol_price", "solPrice"}, kindFloat,
		func(e *domain.TokenEvent, v value) { e.SolPrice = v.f }},
}

var devInfoFields = []field[domain.DevInfo]{
	{"dev_address", []string{"dev_address", "creator", "deployerAddress"}, kindString,
		func(d *domain.DevInfo, v value) { d.Address = v.s }},
	{"whitelisted", []string{"is_whitelisted", "whitelisted"}, kindBool,
		func(d *domain.DevInfo, v value) { d.Whitelisted = v.b }},
	{"total_tokens", totalTokensKeys, kindInt,
		func(d *domain.DevInfo, v value) { d.TotalTokens = nonNegative(v.i) }},
	{"migrated_tokens", migratedTokensKeys, kindInt,
		func(d *domain.DevInfo, v value) { d.MigratedTokens = nonNegative(v.i) }},
}

var devTokenFields = []field[domain.DevToken]{
	{"created_at", []string{"created_at", "createdAt"}, kindTime,
		func(t *domain.DevToken, v value) { t.CreatedAt = v.t }},
	{"migrated", []string{"migrated"}, kindBool,
		func(t *domain.DevToken, v value) { t.Migrated = v.b }},
	{"pair_address", []string{"pair_address", "pairAddress"}, kindString,
		func(t *domain.DevToken, v value) { t.PairAddress = v.s }},
	{"token_address", []string{"token_address", "tokenAddress", "mint"}, kindString,
		func(t *domain.DevToken, v value) { t.TokenAddress = v.s }},
	{"name", []string{"name", "token_name"}, kindString,
		func(t *domain.DevToken, v value) { t.Name = v.s }},
	{"symbol", []string{"symbol", "token_ticker"}, kindString,
		func(t *domain.DevToken, v value) { t.Symbol = v.s }},
}

var tokenInfoFields = []field[domain.TokenInfo]{
	{"num_holders", []string{"numHolders", "num_holders"}, kindInt,
		func(t *domain.TokenInfo, v value) { t.NumHolders = nonNegative(v.i) }},
	{"num_bot_users", []string{"numBotUsers", "num_bot_users"}, kindInt,
		func(t *domain.TokenInfo, v value) { t.NumBotUsers = nonNegative(v.i) }},
	{"top10_holders_pct", []string{"top10HoldersPercent", "top10_holders_percent"}, kindFloat,
		func(t *domain.TokenInfo, v value) { t.Top10HoldersPct = v.f }},
	{"dev_holds_pct", []string{"devHoldsPercent", "dev_holds_percent"}, kindFloat,
		func(t *domain.TokenInfo, v value) { t.DevHoldsPct = v.f }},
	{"snipers_hold_pct", []string{"snipersHoldPercent", "snipers_hold_percent"}, kindFloat,
		func(t *domain.TokenInfo, v value) { t.SnipersHoldPct = v.f }},
	{"insiders_hold_pct", []string{"insidersHoldPercent", "insiders_hold_percent"}, kindFloat,
		func(t *domain.TokenInfo, v value) { t.InsidersHoldPct = v.f }},
	{"bundlers_hold_pct", []string{"bundlersHoldPercent", "bundlers_hold_percent"}, kindFloat,
		func(t *domain.TokenInfo, v value) { t.BundlersHoldPct = v.f }},
	{"total_pair_fees_paid", []string{"totalPairFeesPaid", "total_pair_fees_paid"}, kindFloat,
		func(t *domain.TokenInfo, v value) { t.TotalPairFeesPaid = v.f }},
	{"dex_paid", []string{"dexPaid", "dex_paid"}, kindBool,
		func(t *domain.TokenInfo, v value) { t.DexPaid = v.b }},
	{"dex_paid_time", []string{"dexPaidTime", "dex_paid_time"}, kindTime,
		func(t *domain.TokenInfo, v value) { t.DexPaidAt = v.t }},
}

var pairInfoFields = []field[domain.PairInfo]{
	{"initial_liquidity_sol", []string{"initialLiquiditySol", "initial_liquidity_sol"}, kindFloat,
		func(p *domain.PairInfo, v value) { p.InitialLiquiditySol = v.f }},
	{"initial_liquidity_token", []string{"initialLiquidityToken", "initial_liquidity_token"}, kindFloat,
		func(p *domain.PairInfo, v value) { p.InitialLiquidityToken = v.f }},
	{"token_name", []string{"tokenName", "token_name"}, kindString,
		func(p *domain.PairInfo, v value) { p.TokenName = v.s }},
	{"token_ticker", []string{"tokenTicker", "token_ticker"}, kindString,
		func(p *domain.PairInfo, v value) { p.TokenTicker = v.s }},
}

var metadataFields = []field[domain.Metadata]{
	{"name", []string{"name"}, kindString,
		func(m *domain.Metadata, v value) { m.Name = v.s }},
	{"symbol", []string{"symbol"}, kindString,
		func(m *domain.Metadata, v value) { m.Symbol = v.s }},
	{"description", []string{"description"}, kindString,
		func(m *domain.Metadata, v value) { m.Description = v.s }},
	{"image", []string{"image", "image_uri"}, kindString,
		func(m *domain.Metadata, v value) { m.Image = v.s }},
	{"twitter", []string{"twitter"}, kindString,
		func(m *domain.Metadata, v value) { m.Twitter = v.s }},
	{"website", []string{"website"}, kindString,
		func(m *domain.Metadata, v value) { m.Website = v.s }},
	{"telegram", []string{"telegram"}, kindString,
		func(m *domain.Metadata, v value) { m.Telegram = v.s }},
	{"show_name", []string{"show_name", "showName"}, kindBool,
		func(m *domain.Metadata, v value) { m.ShowName = v.b }},
	{"created_on", []string{"created_on", "createdOn"}, kindString,
		func(m *domain.Metadata, v value) { m.CreatedOn = v.s }},
}

// twitterInfoFields reads the current social section shape.
var twitterInfoFields = []field[domain.TwitterInfo]{
	{"post_url", []string{"tweet_url"}, kindString,
		func(t *domain.TwitterInfo, v value) { t.PostURL = v.s }},
	{"post_id", []string{"tweet_id"}, kindID,
		func(t *domain.TwitterInfo, v value) { t.PostID = v.s }},
	{"community_url", []string{"community_url"}, kindString,
		func(t *domain.TwitterInfo, v value) { t.CommunityURL = v.s }},
	{"posted_at", []string{"tweet_created_at", "created_at"}, kindTime,
		func(t *domain.TwitterInfo, v value) { t.PostedAt = v.t }},
	{"author_handle", []string{"author_username", "username"}, kindString,
		func(t *domain.TwitterInfo, v value) { t.AuthorHandle = v.s }},
	{"author_name", []string{"author_name", "name"}, kindString,
		func(t *domain.TwitterInfo, v value) { t.AuthorName = v.s }},
	{"author_followers", []string{"author_followers", "followers"}, kindInt,
		func(t *domain.TwitterInfo, v value) { t.AuthorFollowers = nonNegative(v.i) }},
	{"verified", []string{"is_blue_verified", "blue_verified"}, kindBool,
		func(t *domain.TwitterInfo, v value) { t.Verified = v.b }},
	{"verified_type", []string{"verified_type"}, kindString,
		func(t *domain.TwitterInfo, v value) { t.VerifiedType = v.s }},
	{"views", []string{"view_count", "views"}, kindInt,
		func(t *domain.TwitterInfo, v value) { t.Views = nonNegative(v.i) }},
	{"likes", []string{"like_count", "likes"}, kindInt,
		func(t *domain.TwitterInfo, v value) { t.Likes = nonNegative(v.i) }},
	{"retweets", []string{"retweet_count", "retweets"}, kindInt,
		func(t *domain.TwitterInfo, v value) { t.Retweets = nonNegative(v.i) }},
	{"replies", []string{"reply_count", "replies"}, kindInt,
		func(t *domain.TwitterInfo, v value) { t.Replies = nonNegative(v.i) }},
	{"text", []string{"tweet_text", "text"}, kindString,
		func(t *domain.TwitterInfo, v value) { t.Text = v.s }},
}

// twitterDataFields reads the legacy social section shape.
var twitterDataFields = []field[domain.TwitterInfo]{
	{"post_url", []string{"url", "tweet_url"}, kindString,
		func(t *domain.TwitterInfo, v value) { t.PostURL = v.s }},
	{"post_id", []string{"id_str", "id", "tweet_id"}, kindID,
		func(t *domain.TwitterInfo, v value) { t.PostID = v.s }},
	{"community_url", []string{"community_url", "community"}, kindString,
		func(t *domain.TwitterInfo, v value) { t.CommunityURL = v.s }},
	{"posted_at", []string{"created_at", "tweet_created_at"}, kindTime,
		func(t *domain.TwitterInfo, v value) { t.PostedAt = v.t }},
	{"author_handle", []string{"username", "screen_name", "author_username"}, kindString,
		func(t *domain.TwitterInfo, v value) { t.AuthorHandle = v.s }},
	{"author_name", []string{"name", "author_name"}, kindString,
		func(t *domain.TwitterInfo, v value) { t.AuthorName = v.s }},
	{"author_followers", []string{"followers", "followers_count", "author_followers"}, kindInt,
		func(t *domain.TwitterInfo, v value) { t.AuthorFollowers = nonNegative(v.i) }},
	{"verified", []string{"blue_verified", "verified", "is_blue_verified"}, kindBool,
		func(t *domain.TwitterInfo, v value) { t.Verified = v.b }},
	{"verified_type", []string{"verified_type"}, kindString,
		func(t *domain.TwitterInfo, v value) { t.VerifiedType = v.s }},
	{"views", []string{"views", "view_count"}, kindInt,
		func(t *domain.TwitterInfo, v value) { t.Views = nonNegative(v.i) }},
	{"likes", []string{"likes", "favorite_count", "like_count"}, kindInt,
		func(t *domain.TwitterInfo, v value) { t.Likes = nonNegative(v.i) }},
	{"retweets", []string{"retweets", "retweet_count"}, kindInt,
		func(t *domain.TwitterInfo, v value) { t.Retweets = nonNegative(v.i) }},
	{"replies", []string{"replies", "reply_count"}, kindInt,
		func(t *domain.TwitterInfo, v value) { t.Replies = nonNegative(v.i) }},
	{"text", []string{"text", "full_text", "tweet_text"}, kindString,
		func(t *domain.TwitterInfo, v value) { t.Text = v.s }},
}
