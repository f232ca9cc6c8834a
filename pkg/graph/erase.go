package graph

import (
	"context"

	"github.com/weih201/scoobi/pkg/source"
)

// AnySource is a type-erased view of a source.DataSource[T], letting a
// LoadNode sit in a graph alongside nodes of every other element type.
// Elements leave it as `any`; a user DoFn, which itself operates on `any`,
// asserts the concrete type it expects.
type AnySource interface {
	InputSplits(ctx context.Context) ([]source.Split, error)
	Open(ctx context.Context, split source.Split) (AnyIterator, error)
}

// AnyIterator is the type-erased counterpart of source.Iterator[T].
type AnyIterator interface {
	Next() (any, bool, error)
	Close() error
}

type erasedSource[T any] struct {
	src source.DataSource[T]
}

func erase[T any](src source.DataSource[T]) AnySource {
	return erasedSource[T]{src: src}
}

func (e erasedSource[T]) InputSplits(ctx context.Context) ([]source.Split, error) {
	return e.src.InputSplits(ctx)
}

func (e erasedSource[T]) Open(ctx context.Context, split source.Split) (AnyIterator, error) {
	it, err := e.src.Reader(ctx, split)
	if err != nil {
		return nil, err
	}
	return erasedIterator[T]{it: it}, nil
}

type erasedIterator[T any] struct {
	it source.Iterator[T]
}

func (e erasedIterator[T]) Next() (any, bool, error) {
	v, ok, err := e.it.Next()
	return v, ok, err
}

func (e erasedIterator[T]) Close() error { return e.it.Close() }
