// Package source defines the external data endpoints the planner core
// consumes: DataSource/DataSink for reading and writing user data, and the
// serialiser descriptor attached to every graph node's output type. The
// core never encodes or decodes through a Serde; it treats it as an opaque
// token carried along an edge purely for the job adapter to hand to the
// underlying batch framework.
package source

import "context"

// Serde is an opaque serialiser descriptor for one element type at a
// shuffle boundary. The planner never inspects its contents.
type Serde interface {
	// Encoding names the wire format for diagnostics/logging only.
	Encoding() string
}

// NamedSerde is the Serde most callers reach for: a descriptor identified
// purely by name, with no behaviour of its own.
type NamedSerde string

// Encoding implements Serde.
func (n NamedSerde) Encoding() string { return string(n) }

// Split identifies one partition of a DataSource's input.
type Split interface {
	// ByteSize estimates the split's size, used by the reducer-count
	// heuristic (job.ReducerCount). A negative value means unknown.
	ByteSize() int64
}

// DataSource reads a distributed collection of T from an external system.
type DataSource[T any] interface {
	// InputSplits partitions the source for parallel reading.
	InputSplits(ctx context.Context) ([]Split, error)
	// Reader opens an iterator over one split.
	Reader(ctx context.Context, split Split) (Iterator[T], error)
	// Serde describes how elements of T are encoded at shuffle boundaries
	// downstream of this source.
	Serde() Serde
}

// DataSink writes a distributed collection of T to an external system.
type DataSink[T any] interface {
	// OutputPath is where the sink will materialise its output.
	OutputPath() string
	// Writer opens a consumer that accepts elements of T.
	Writer(ctx context.Context) (Consumer[T], error)
	// Commit finalises the sink's output at job end.
	Commit(ctx context.Context) error
}

// Iterator yields a sequence of elements, one at a time.
type Iterator[T any] interface {
	Next() (T, bool, error)
	Close() error
}

// Consumer accepts a sequence of elements to be written to a sink.
type Consumer[T any] interface {
	Put(T) error
	Close() error
}

// SliceIterator adapts an in-memory slice to the Iterator contract, used
// by the command-line demo and by tests.
type SliceIterator[T any] struct {
	items []T
	pos   int
}

// NewSliceIterator wraps items as an Iterator[T].
func NewSliceIterator[T any](items []T) *SliceIterator[T] {
	return &SliceIterator[T]{items: items}
}

// Next implements Iterator.
func (s *SliceIterator[T]) Next() (T, bool, error) {
	var zero T
	if s.pos >= len(s.items) {
		return zero, false, nil
	}
	item := s.items[s.pos]
	s.pos++
	return item, true, nil
}

// Close implements Iterator.
func (s *SliceIterator[T]) Close() error { return nil }

// SliceConsumer collects everything written to it into an in-memory slice.
type SliceConsumer[T any] struct {
	Items []T
}

// Put implements Consumer.
func (s *SliceConsumer[T]) Put(v T) error {
	s.Items = append(s.Items, v)
	return nil
}

// Close implements Consumer.
func (s *SliceConsumer[T]) Close() error { return nil }
