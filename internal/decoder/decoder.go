// Package decoder turns raw feed messages into canonical token events.
//
// The upstream protocol has several envelope shapes and renamed its fields
// more than once, so every attribute is resolved through an ordered list of
// candidate keys (see fields.go). Decoding never fails for a single bad
// record: it is skipped and counted.
package decoder

import (
	"errors"
	"fmt"
	"math"
	"strings"

	simplejson "github.com/bitly/go-simplejson"

	"github.com/stepamak/pump-tracker/internal/domain"
)

// Envelope keys.
const (
	batchKey  = "tokens"
	singleKey = "token"
	typeKey   = "type"

	initialType = "initial"
)

// PostURLBase is used to build a post link from author handle and post id.
const PostURLBase = "https://x.com/"

var (
	// ErrMalformed is returned when the whole message is not a JSON object or array.
	ErrMalformed = errors.New("malformed message")

	errNotObject   = errors.New("record is not an object")
	errMissingMint = errors.New("record has no mint address")
)

// Result is the outcome of decoding one message.
type Result struct {
	Events   []domain.TokenEvent
	Elements int  // records found in the envelope
	Failed   int  // records skipped (not an object or no mint)
	Batch    bool // envelope carried a "tokens" array
	Initial  bool // envelope was the initial snapshot
}

// Decode parses text and returns every record that could be normalized.
// A message that is not valid JSON returns ErrMalformed; bad records inside a
// valid envelope are only counted in Result.Failed.
func Decode(text string) (Result, error) {
	root, err := simplejson.NewJson([]byte(text))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var res Result
	switch data := root.Interface().(type) {
	case map[string]interface{}:
		res.Initial = isInitial(root)
		if items, ok := array(root, batchKey); ok {
			res.Batch = true
			res.decodeAll(items)
		} else if one, ok := object(root, singleKey); ok {
			res.decodeOne(one)
		} else {
			res.decodeOne(root)
		}
	case []interface{}:
		items := make([]*simplejson.Json, len(data))
		for i := range data {
			items[i] = root.GetIndex(i)
		}
		res.decodeAll(items)
	default:
		return Result{}, fmt.Errorf("%w: top-level value is %T", ErrMalformed, data)
	}
	return res, nil
}

// IsBatchEnvelope reports whether text is an object with a "tokens" array.
func IsBatchEnvelope(text string) bool {
	root, err := simplejson.NewJson([]byte(text))
	if err != nil {
		return false
	}
	_, ok := array(root, batchKey)
	return ok
}

// IsInitialSnapshotEnvelope reports whether text is an object whose "type"
// is "initial", compared case-insensitively.
func IsInitialSnapshotEnvelope(text string) bool {
	root, err := simplejson.NewJson([]byte(text))
	if err != nil {
		return false
	}
	return isInitial(root)
}

func isInitial(root *simplejson.Json) bool {
	v, ok := lookup(root, kindString, typeKey)
	return ok && strings.EqualFold(strings.TrimSpace(v.s), initialType)
}

func (r *Result) decodeAll(items []*simplejson.Json) {
	for _, item := range items {
		r.decodeOne(item)
	}
}

func (r *Result) decodeOne(obj *simplejson.Json) {
	r.Elements++
	ev, err := decodeToken(obj)
	if err != nil {
		r.Failed++
		return
	}
	r.Events = append(r.Events, ev)
}

// decodeToken normalizes one record.
func decodeToken(obj *simplejson.Json) (domain.TokenEvent, error) {
	var ev domain.TokenEvent
	if _, ok := obj.Interface().(map[string]interface{}); !ok {
		return ev, errNotObject
	}

	apply(obj, &ev, tokenFields)

	if dev, ok := object(obj, devInfoKeys...); ok {
		ev.Dev = decodeDevInfo(dev)
	}
	if ti, ok := object(obj, tokenInfoKeys...); ok {
		ev.Token.Present = true
		apply(ti, &ev.Token, tokenInfoFields)
	}
	if pi, ok := object(obj, pairInfoKeys...); ok {
		ev.Pair.Present = true
		apply(pi, &ev.Pair, pairInfoFields)
		if blank(ev.PairAddress) {
			if v, ok := lookup(pi, kindString, pairInfoAddressKeys...); ok {
				ev.PairAddress = v.s
			}
		}
	}
	if md, ok := object(obj, metadataKeys...); ok {
		ev.Meta.Present = true
		apply(md, &ev.Meta, metadataFields)
	}
	ev.Twitter = decodeTwitter(obj)

	if blank(ev.Mint) {
		return domain.TokenEvent{}, errMissingMint
	}

	ev.Name = firstNonBlank(ev.Name, ev.Meta.Name, ev.Pair.TokenName, ev.Mint)
	ev.Symbol = firstNonBlank(ev.Symbol, ev.Meta.Symbol, ev.Pair.TokenTicker)
	return ev, nil
}

func decodeDevInfo(obj *simplejson.Json) domain.DevInfo {
	dev := domain.DevInfo{Present: true}
	apply(obj, &dev, devInfoFields)

	if v, ok := lookup(obj, kindFloat, migrationPctKeys...); ok {
		dev.MigrationPct = v.f
	} else if hasCounts(obj) {
		dev.MigrationPct = derivedMigrationPct(dev.MigratedTokens, dev.TotalTokens)
	}

	if items, ok := array(obj, priorTokenKeys...); ok {
		for _, item := range items {
			if _, ok := item.Interface().(map[string]interface{}); !ok {
				continue
			}
			var t domain.DevToken
			apply(item, &t, devTokenFields)
			dev.PriorTokens = append(dev.PriorTokens, t)
		}
	}
	return dev
}

// hasCounts reports whether both the total and migrated counts resolve.
func hasCounts(obj *simplejson.Json) bool {
	_, total := lookup(obj, kindInt, totalTokensKeys...)
	_, migrated := lookup(obj, kindInt, migratedTokensKeys...)
	return total && migrated
}

// derivedMigrationPct is 100*migrated/max(1,total), clamped to [0,100].
func derivedMigrationPct(migrated, total int64) float64 {
	pct := 100 * float64(migrated) / float64(max(1, total))
	return math.Min(100, math.Max(0, pct))
}

// decodeTwitter reads whichever social section shape is present.
func decodeTwitter(obj *simplejson.Json) domain.TwitterInfo {
	var tw domain.TwitterInfo
	if sec, ok := object(obj, twitterInfoKeys...); ok {
		apply(sec, &tw, twitterInfoFields)
	} else if sec, ok := object(obj, twitterDataKeys...); ok {
		apply(sec, &tw, twitterDataFields)
	} else {
		return tw
	}
	tw.Present = true
	if blank(tw.PostURL) && !blank(tw.PostID) && !blank(tw.AuthorHandle) {
		tw.PostURL = PostURL(tw.AuthorHandle, tw.PostID)
	}
	return tw
}

// PostURL builds the canonical link to a post.
func PostURL(handle, id string) string {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	return PostURLBase + handle + "/status/" + strings.TrimSpace(id)
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if !blank(v) {
			return v
		}
	}
	return ""
}
