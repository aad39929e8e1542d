// Package paging aggregates offset- and cursor-paginated list endpoints.
package paging

import (
	"context"
	"fmt"

	"accessify/internal/core"
)

// OffsetFetch loads one page starting at offset.
type OffsetFetch[T any] func(ctx context.Context, limit, offset int) (core.Page[T], error)

// CursorFetch loads one page after cursor. The first page has an empty cursor.
type CursorFetch[T any] func(ctx context.Context, limit int, after string) (core.CursorPage[T], error)

// CollectOffset loads every page and returns the items in vendor order. It
// stops on a page shorter than pageSize or without a next page, and aborts on
// the first fetch error.
func CollectOffset[T any](ctx context.Context, pageSize int, fetch OffsetFetch[T]) ([]T, error) {
	pager := NewOffsetPager(pageSize, fetch)
	var all []T
	for !pager.Done() {
		items, err := pager.Next(ctx)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
	}
	return all, nil
}

// CollectCursor loads every page of a cursor-paginated endpoint.
func CollectCursor[T any](ctx context.Context, pageSize int, fetch CursorFetch[T]) ([]T, error) {
	pager := NewCursorPager(pageSize, fetch)
	var all []T
	for !pager.Done() {
		items, err := pager.Next(ctx)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
	}
	return all, nil
}

// OffsetPager hands out one page per Next call, for "load more" lists.
type OffsetPager[T any] struct {
	fetch    OffsetFetch[T]
	pageSize int
	offset   int
	done     bool
}

func NewOffsetPager[T any](pageSize int, fetch OffsetFetch[T]) *OffsetPager[T] {
	if pageSize <= 0 {
		pageSize = core.DefaultSearchPageSize
	}
	return &OffsetPager[T]{fetch: fetch, pageSize: pageSize}
}

// Next fetches the following page. A failed fetch leaves the pager where it
// was, so Next may be called again.
func (p *OffsetPager[T]) Next(ctx context.Context) ([]T, error) {
	if p.done {
		return nil, nil
	}

	page, err := p.fetch(ctx, p.pageSize, p.offset)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page at offset %d: %w", p.offset, err)
	}

	p.offset += len(page.Items)
	if len(page.Items) < p.pageSize || !page.HasNext {
		p.done = true
	}
	return page.Items, nil
}

// Done reports whether the last page has been fetched.
func (p *OffsetPager[T]) Done() bool {
	return p.done
}

// Offset is the number of items fetched so far.
func (p *OffsetPager[T]) Offset() int {
	return p.offset
}

// CursorPager is OffsetPager for cursor-paginated endpoints.
type CursorPager[T any] struct {
	fetch    CursorFetch[T]
	pageSize int
	cursor   string
	done     bool
}

func NewCursorPager[T any](pageSize int, fetch CursorFetch[T]) *CursorPager[T] {
	if pageSize <= 0 {
		pageSize = core.DefaultSearchPageSize
	}
	return &CursorPager[T]{fetch: fetch, pageSize: pageSize}
}

func (p *CursorPager[T]) Next(ctx context.Context) ([]T, error) {
	if p.done {
		return nil, nil
	}

	page, err := p.fetch(ctx, p.pageSize, p.cursor)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page after %q: %w", p.cursor, err)
	}

	p.cursor = page.Next
	if page.Next == "" || len(page.Items) < p.pageSize {
		p.done = true
	}
	return page.Items, nil
}

func (p *CursorPager[T]) Done() bool {
	return p.done
}
