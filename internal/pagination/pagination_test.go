package pagination

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/potentiostat-core/internal/apperr"
)

func TestNew_Navigation(t *testing.T) {
	tests := []struct {
		name      string
		req       Request
		rows      int
		total     int
		wantPrev  *int
		wantNext  *int
		wantPages int
	}{
		{"first of three", Request{Page: 0, Size: 10}, 10, 25, nil, intPtr(1), 3},
		{"middle", Request{Page: 1, Size: 10}, 10, 25, intPtr(0), intPtr(2), 3},
		{"last partial", Request{Page: 2, Size: 10}, 5, 25, intPtr(1), nil, 3},
		{"exact fit", Request{Page: 0, Size: 5}, 5, 5, nil, nil, 1},
		{"empty", Request{Page: 0, Size: 10}, 0, 0, nil, nil, 0},
		{"past the end", Request{Page: 9, Size: 10}, 0, 25, intPtr(8), nil, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(make([]int, tt.rows), tt.req, tt.total)

			assert.Equal(t, tt.wantPrev, p.PreviousPage)
			assert.Equal(t, tt.wantNext, p.NextPage)
			assert.Equal(t, tt.wantPrev != nil, p.HasPrevious)
			assert.Equal(t, tt.wantNext != nil, p.HasNext)
			assert.Equal(t, tt.wantPages, p.Pages)
			assert.Equal(t, tt.total, p.Total)
		})
	}
}

func TestNew_NilContentBecomesEmpty(t *testing.T) {
	p := New[string](nil, Request{Page: 0, Size: 10}, 0)
	require.NotNil(t, p.Content)
	assert.Empty(t, p.Content)
}

func TestFromQuery(t *testing.T) {
	req, err := FromQuery(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, Request{Page: DefaultPage, Size: DefaultSize}, req)

	req, err = FromQuery(url.Values{"page": {"2"}, "size": {"25"}})
	require.NoError(t, err)
	assert.Equal(t, 50, req.Offset())

	for _, q := range []url.Values{
		{"page": {"-1"}},
		{"size": {"0"}},
		{"size": {"1000"}},
		{"page": {"abc"}},
	} {
		_, err := FromQuery(q)
		assert.True(t, apperr.IsKind(err, apperr.KindValidation), "query %v: err = %v", q, err)
	}

	_, err = FromQuery(url.Values{"size": {"0"}})
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "must be no less than 1", e.Fields["size"])
}

func intPtr(v int) *int { return &v }
