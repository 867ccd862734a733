// Package pagination holds the page request and page envelope shared by
// every search endpoint.
package pagination

import (
	"errors"
	"net/url"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/nerrad567/potentiostat-core/internal/apperr"
)

// Defaults applied when the caller omits page or size.
const (
	DefaultPage = 0
	DefaultSize = 10
	MaxSize     = 100
)

// Request is a zero-based page request.
type Request struct {
	Page int `json:"page"`
	Size int `json:"size"`
}

// Validate checks page >= 0 and 1 <= size <= MaxSize.
func (r Request) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Page, validation.Min(0)),
		validation.Field(&r.Size, validation.By(positive), validation.Max(MaxSize)),
	)
}

// positive rejects zero as well; ozzo's Min skips empty values.
func positive(value interface{}) error {
	if n, _ := value.(int); n < 1 {
		return errors.New("must be no less than 1")
	}
	return nil
}

// Offset returns the number of rows to skip.
func (r Request) Offset() int {
	return r.Page * r.Size
}

// FromQuery reads page and size from query parameters, applying defaults
// for missing values. Non-numeric or out-of-range values yield a
// Validation error.
func FromQuery(q url.Values) (Request, error) {
	req := Request{Page: DefaultPage, Size: DefaultSize}
	fields := map[string]string{}

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			fields["page"] = "must be an integer"
		}
		req.Page = n
	}
	if v := q.Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			fields["size"] = "must be an integer"
		}
		req.Size = n
	}
	if len(fields) > 0 {
		return Request{}, apperr.Validation(fields)
	}

	if err := apperr.FromValidation(req.Validate()); err != nil {
		return Request{}, err
	}
	return req, nil
}

// Page is one page of search results.
type Page[T any] struct {
	Content      []T  `json:"content"`
	PreviousPage *int `json:"previous_page"`
	NextPage     *int `json:"next_page"`
	HasPrevious  bool `json:"has_previous"`
	HasNext      bool `json:"has_next"`
	Total        int  `json:"total"`
	Pages        int  `json:"pages"`
}

// New builds a Page from the rows of one page and the total match count.
func New[T any](content []T, req Request, total int) Page[T] {
	if content == nil {
		content = []T{}
	}

	p := Page[T]{
		Content:     content,
		HasPrevious: req.Page > 0,
		HasNext:     req.Offset()+len(content) < total,
		Total:       total,
	}
	if p.HasPrevious {
		prev := req.Page - 1
		p.PreviousPage = &prev
	}
	if p.HasNext {
		next := req.Page + 1
		p.NextPage = &next
	}
	if req.Size > 0 {
		p.Pages = (total + req.Size - 1) / req.Size
	}
	return p
}
