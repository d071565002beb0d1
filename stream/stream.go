package stream

import (
	"context"
)

// Slice, et al., taken from:
// https://betterprogramming.pub/writing-a-stream-api-in-go-afbc3c4350e2

func Slice[T any](ctx context.Context, in []T) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for _, element := range in {
			select {
			case <-ctx.Done():
				return
			case out <- element:
			}
		}
	}()
	return out
}

func Filter[T any](ctx context.Context, predicate func(T) bool, in <-chan T) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for element := range in {
			if predicate(element) {
				select {
				case <-ctx.Done():
					return
				case out <- element:
				}
			}
		}
	}()
	return out
}

func Transform[I any, O any](ctx context.Context, transformer func(I) O, in <-chan I) <-chan O {
	out := make(chan O)
	go func() {
		defer close(out)
		for element := range in {
			select {
			case <-ctx.Done():
				return
			case out <- transformer(element):
			}
		}
	}()
	return out
}

// Tee fans one stream out to two. Both outputs must be read; a stalled
// reader stalls the other.
func Tee[T any](ctx context.Context, in <-chan T) (<-chan T, <-chan T) {
	a, b := make(chan T), make(chan T)
	go func() {
		defer close(a)
		defer close(b)
		for element := range in {
			aa, bb := a, b
			for i := 0; i < 2; i++ {
				select {
				case <-ctx.Done():
					return
				case aa <- element:
					aa = nil
				case bb <- element:
					bb = nil
				}
			}
		}
	}()
	return a, b
}

func Collect[T any](ctx context.Context, in <-chan T) []T {
	out := make([]T, 0)
	for element := range in {
		select {
		case <-ctx.Done():
			return out
		default:
			out = append(out, element)
		}
	}
	return out
}

// Drain consumes and discards the stream, returning the count consumed.
func Drain[T any](ctx context.Context, in <-chan T) int {
	n := 0
	for range in {
		select {
		case <-ctx.Done():
			return n
		default:
			n++
		}
	}
	return n
}
