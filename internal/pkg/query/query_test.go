package query

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testColumns = Columns{
	"crew_id":        {Expr: "wc.crew_id", Type: "uuid"},
	"date":           {Expr: "wc.date", Type: "date"},
	"check_out_time": {Expr: "wc.check_out_time", Type: "time"},
	"status":         {Expr: "wc.status"},
}

func TestEncode(t *testing.T) {
	f := New().
		Eq("crew_id", "c-1").
		In("date", "2026-03-10", "2026-03-11").
		IsNull("check_out_time").
		Order("date", true).
		Limit(5)

	v := f.Encode()
	assert.Equal(t, "eq.c-1", v.Get("crew_id"))
	assert.Equal(t, "in.(2026-03-10,2026-03-11)", v.Get("date"))
	assert.Equal(t, "is.null", v.Get("check_out_time"))
	assert.Equal(t, "date.desc", v.Get("order"))
	assert.Equal(t, "5", v.Get("limit"))
}

func TestParseRoundTrip(t *testing.T) {
	in := New().
		Eq("crew_id", "c-1").
		In("date", "2026-03-10", "2026-03-11").
		IsNull("check_out_time").
		NotNull("status").
		Order("date", false)

	out, err := Parse(in.Encode(), testColumns)
	require.NoError(t, err)

	assert.ElementsMatch(t, in.Conditions, out.Conditions)
	assert.Equal(t, in.Orders, out.Orders)
	assert.Equal(t, DefaultLimit, out.LimitN)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		err  error
	}{
		{"unknown column", "password=eq.x", ErrUnknownColumn},
		{"no operator", "status=active", ErrBadOperator},
		{"bad operator", "status=like.act%25", ErrBadOperator},
		{"is not null literal", "status=is.true", ErrBadValue},
		{"empty in", "date=in.()", ErrBadValue},
		{"in without parens", "date=in.2026-03-10", ErrBadValue},
		{"bad order column", "order=password.desc", ErrUnknownColumn},
		{"bad order dir", "order=date.sideways", ErrBadValue},
		{"bad limit", "limit=ten", ErrBadValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.raw)
			require.NoError(t, err)
			_, err = Parse(values, testColumns)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestWhere(t *testing.T) {
	f := New().
		Eq("crew_id", "c-1").
		In("date", "2026-03-10", "2026-03-11").
		IsNull("check_out_time").
		Neq("status", "completed")

	where, args, next := f.Where(testColumns, 3)
	assert.Equal(t,
		"wc.crew_id = $3::text::uuid AND wc.date = ANY($4::text[]::date[]) AND wc.check_out_time IS NULL AND wc.status <> $5::text",
		where)
	assert.Equal(t, []any{"c-1", []string{"2026-03-10", "2026-03-11"}, "completed"}, args)
	assert.Equal(t, 6, next)
}

func TestOrderByAndPage(t *testing.T) {
	f := New().Order("date", true).Order("status", false).Order("unknown", false)
	assert.Equal(t, "ORDER BY wc.date DESC, wc.status ASC", f.OrderBy(testColumns, "wc.created_at DESC"))
	assert.Equal(t, "ORDER BY wc.created_at DESC", New().OrderBy(testColumns, "wc.created_at DESC"))

	limit, offset := New().Limit(1000).Offset(-3).Page()
	assert.Equal(t, DefaultLimit, limit)
	assert.Equal(t, 0, offset)
}

func TestWithout(t *testing.T) {
	f := New().Eq("crew_id", "someone-else").Eq("status", "active")
	g := f.Without("crew_id").Eq("crew_id", "me")

	assert.True(t, f.Has("crew_id"))
	require.Len(t, g.Conditions, 2)
	assert.Equal(t, "me", g.Conditions[1].Values[0])
}
