// Package ordering manipulates the ordered image list of a project.
//
// The element at index 0 is the primary image. Every function returns a new slice and
// never mutates its input, so callers can preview a reordering before saving it.
package ordering

import (
	"errors"
	"fmt"
	"slices"
)

// ErrIndexOutOfRange is returned when an index falls outside the list bounds.
var ErrIndexOutOfRange = errors.New("index out of range")

// Append returns list followed by refs, preserving the relative order of both.
func Append[T comparable](list []T, refs ...T) []T {
	out := make([]T, 0, len(list)+len(refs))
	out = append(out, list...)
	return append(out, refs...)
}

// Remove drops the first occurrence of ref. A missing ref leaves the list unchanged.
func Remove[T comparable](list []T, ref T) []T {
	i := slices.Index(list, ref)
	if i < 0 {
		return slices.Clone(list)
	}
	return slices.Delete(slices.Clone(list), i, i+1)
}

// MoveUp swaps the element at index with its predecessor. Index 0 is a no-op.
func MoveUp[T comparable](list []T, index int) ([]T, error) {
	if err := checkIndex(list, index); err != nil {
		return nil, err
	}
	out := slices.Clone(list)
	if index > 0 {
		out[index-1], out[index] = out[index], out[index-1]
	}
	return out, nil
}

// MoveDown swaps the element at index with its successor. The last index is a no-op.
func MoveDown[T comparable](list []T, index int) ([]T, error) {
	if err := checkIndex(list, index); err != nil {
		return nil, err
	}
	out := slices.Clone(list)
	if index < len(out)-1 {
		out[index], out[index+1] = out[index+1], out[index]
	}
	return out, nil
}

// SetPrimary moves the element at index to the front, shifting the elements before it down by one.
func SetPrimary[T comparable](list []T, index int) ([]T, error) {
	if err := checkIndex(list, index); err != nil {
		return nil, err
	}
	out := slices.Clone(list)
	if index == 0 {
		return out, nil
	}
	v := out[index]
	copy(out[1:index+1], out[:index])
	out[0] = v
	return out, nil
}

// Op names a reordering operation that takes an index.
type Op string

const (
	OpMoveUp     Op = "move_up"
	OpMoveDown   Op = "move_down"
	OpSetPrimary Op = "set_primary"
)

// Apply runs the named index operation on list.
func Apply[T comparable](list []T, op Op, index int) ([]T, error) {
	switch op {
	case OpMoveUp:
		return MoveUp(list, index)
	case OpMoveDown:
		return MoveDown(list, index)
	case OpSetPrimary:
		return SetPrimary(list, index)
	default:
		return nil, fmt.Errorf("unknown ordering op %q", op)
	}
}

func checkIndex[T any](list []T, index int) error {
	if index < 0 || index >= len(list) {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, index, len(list))
	}
	return nil
}
