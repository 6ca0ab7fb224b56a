package pagination

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	opts := Parse("", "")
	assert.Equal(t, Options{Page: 1, Limit: 10, Skip: 0}, opts)

	opts = Parse("abc", "xyz")
	assert.Equal(t, Options{Page: 1, Limit: 10, Skip: 0}, opts)
}

func TestParseClamps(t *testing.T) {
	tests := []struct {
		name        string
		page, limit string
		wantPage    int
		wantLimit   int
	}{
		{"limit over max", "1", "500", 1, 100},
		{"page zero", "0", "10", 1, 10},
		{"negative page", "-4", "10", 1, 10},
		{"negative limit", "2", "-3", 2, 1},
		{"limit zero uses default", "2", "0", 2, 10},
		{"leading digits", "3abc", "20x", 3, 20},
		{"whitespace", " 2 ", " 5 ", 2, 5},
		{"huge page", "9223372036854775807", "100", MaxPage, 100},
		{"huge page small limit", "9223372036854775807", "1", MaxPage, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := Parse(tt.page, tt.limit)
			assert.Equal(t, tt.wantPage, opts.Page)
			assert.Equal(t, tt.wantLimit, opts.Limit)
			assert.Equal(t, (opts.Page-1)*opts.Limit, opts.Skip)
			assert.GreaterOrEqual(t, opts.Skip, 0)
		})
	}
}

func TestParseSkipIsExact(t *testing.T) {
	for page := 1; page <= 50; page += 7 {
		for limit := 1; limit <= 100; limit += 9 {
			opts := New(page, limit)
			assert.Equal(t, (page-1)*limit, opts.Skip)
		}
	}
}

func TestEnvelopeEmpty(t *testing.T) {
	resp := Envelope([]string{}, 0, 1, 10)

	require.True(t, resp.Success)
	require.NotNil(t, resp.Data)
	assert.Equal(t, int64(0), resp.Data.Pagination.TotalPages)
	assert.False(t, resp.Data.Pagination.HasNext)
	assert.False(t, resp.Data.Pagination.HasPrev)
}

func TestEnvelopeMiddlePage(t *testing.T) {
	resp := Envelope([]int{11, 12, 13, 14, 15, 16, 17, 18, 19, 20}, 25, 2, 10)

	meta := resp.Data.Pagination
	assert.Equal(t, int64(25), meta.TotalItems)
	assert.Equal(t, int64(3), meta.TotalPages)
	assert.True(t, meta.HasNext)
	assert.True(t, meta.HasPrev)
}

func TestEnvelopePastLastPage(t *testing.T) {
	resp := Envelope[int](nil, 0, 3, 10)

	assert.True(t, resp.Data.Pagination.HasPrev)
	assert.False(t, resp.Data.Pagination.HasNext)
	assert.NotNil(t, resp.Data.Items)
}

func TestEnvelopeJSON(t *testing.T) {
	b, err := json.Marshal(Envelope[int](nil, 0, 1, 10))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"items":[]`)

	b, err = json.Marshal(Failure[int]("boom"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":"boom"}`, string(b))
}
