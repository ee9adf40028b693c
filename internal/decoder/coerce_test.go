package decoder

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoerce(t *testing.T) {
	tests := []struct {
		name string
		kind kind
		raw  interface{}
		ok   bool
		want value
	}{
		{"string", kindString, "abc", true, value{s: "abc"}},
		{"string rejects number", kindString, json.Number("1"), false, value{}},
		{"string keeps blank", kindString, " ", true, value{s: " "}},
		{"address", kindAddress, "Mint1", true, value{s: "Mint1"}},
		{"address rejects blank", kindAddress, "  ", false, value{}},
		{"int from number", kindInt, json.Number("42"), true, value{i: 42}},
		{"int from string", kindInt, " 42 ", true, value{i: 42}},
		{"int from integral float", kindInt, json.Number("150.0"), true, value{i: 150}},
		{"int from exponent", kindInt, json.Number("1.2e3"), true, value{i: 1200}},
		{"int from negative exponent", kindInt, json.Number("-2E2"), true, value{i: -200}},
		{"int rejects fraction", kindInt, json.Number("4.2"), false, value{}},
		{"int rejects overflow", kindInt, json.Number("1e19"), false, value{}},
		{"int rejects bool", kindInt, true, false, value{}},
		{"float from number", kindFloat, json.Number("1.5"), true, value{f: 1.5}},
		{"float from string", kindFloat, "2.25", true, value{f: 2.25}},
		{"float rejects NaN", kindFloat, "NaN", false, value{}},
		{"float rejects text", kindFloat, "abc", false, value{}},
		{"bool literal", kindBool, true, true, value{b: true}},
		{"bool from zero", kindBool, json.Number("0"), true, value{b: false}},
		{"bool from nonzero", kindBool, json.Number("3"), true, value{b: true}},
		{"bool from fraction", kindBool, json.Number("0.5"), true, value{b: true}},
		{"bool from TRUE", kindBool, "TRUE", true, value{b: true}},
		{"bool from false", kindBool, "false", true, value{b: false}},
		{"bool from 1 string", kindBool, "1", true, value{b: true}},
		{"bool rejects yes", kindBool, "yes", false, value{}},
		{"id from string", kindID, "77", true, value{s: "77"}},
		{"id from number", kindID, json.Number("77"), true, value{s: "77"}},
		{"id from integral float", kindID, json.Number("77.0"), true, value{s: "77"}},
		{"id rejects fraction", kindID, json.Number("7.5"), false, value{}},
		{"time rejects blank", kindTime, " ", false, value{}},
		{"time rejects number", kindTime, json.Number("1714557600"), false, value{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := coerce(tt.kind, tt.raw)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseTime_Layouts(t *testing.T) {
	for _, s := range []string{
		"2024-05-01T10:00:00Z",
		"2024-05-01T10:00:00.123456Z",
		"2024-05-01T12:00:00+02:00",
		"2024-05-01T10:00:00",
		"2024-05-01 10:00:00",
		"2024-05-01 10:00:00.5",
		"Wed May 01 10:00:00 +0000 2024",
		"2024-05-01",
	} {
		ts, ok := toTime(s)
		if assert.True(t, ok, s) {
			assert.Equal(t, 2024, ts.Time.Year(), s)
			assert.Equal(t, "UTC", ts.Time.Location().String(), s)
		}
	}
}

func TestFieldTables(t *testing.T) {
	check := func(t *testing.T, table string, names []string, keys [][]string) {
		seen := map[string]bool{}
		for i, name := range names {
			assert.NotEmpty(t, keys[i], "%s.%s has no candidate keys", table, name)
			assert.False(t, seen[name], "%s.%s declared twice", table, name)
			seen[name] = true
		}
	}

	check(t, "token", namesOf(tokenFields), keysOf(tokenFields))
	check(t, "dev_info", namesOf(devInfoFields), keysOf(devInfoFields))
	check(t, "dev_token", namesOf(devTokenFields), keysOf(devTokenFields))
	check(t, "token_info", namesOf(tokenInfoFields), keysOf(tokenInfoFields))
	check(t, "pair_info", namesOf(pairInfoFields), keysOf(pairInfoFields))
	check(t, "metadata", namesOf(metadataFields), keysOf(metadataFields))
	check(t, "twitter_info", namesOf(twitterInfoFields), keysOf(twitterInfoFields))
	check(t, "twitter_data", namesOf(twitterDataFields), keysOf(twitterDataFields))

	assert.Equal(t, []string{"mint", "address", "tokenAddress", "token_address"}, tokenFields[0].keys)
	assert.Equal(t, kindAddress, tokenFields[0].kind)
}

func namesOf[T any](fields []field[T]) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.name
	}
	return out
}

func keysOf[T any](fields []field[T]) [][]string {
	out := make([][]string, len(fields))
	for i, f := range fields {
		out[i] = f.keys
	}
	return out
}
