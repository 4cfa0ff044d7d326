package hotpatch

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/pkg/errors"
)

type funcDifferences struct {
	In       []*argDifference
	Out      []*argDifference
	Variadic *[2]bool
}

// Error returns nil when there are no differences, otherwise an
// ErrSignatureMismatch that lists them.
func (d *funcDifferences) Error() error {
	var msgs []string
	for i, arg := range d.In {
		if arg != nil {
			msgs = append(msgs, fmt.Sprintf("argument %d: %v != %v", i, arg.A, arg.B))
		}
	}
	for i, out := range d.Out {
		if out != nil {
			msgs = append(msgs, fmt.Sprintf("output %d: %v != %v", i, out.A, out.B))
		}
	}
	if d.Variadic != nil {
		msgs = append(msgs, fmt.Sprintf("variadic: %v != %v", d.Variadic[0], d.Variadic[1]))
	}

	if len(msgs) == 0 {
		return nil
	}
	return errors.Wrap(ErrSignatureMismatch, strings.Join(msgs, "; "))
}

// argDifference holds the mismatched types at one position. A is nil when
// the first function has no argument there, B likewise for the second.
type argDifference struct {
	A reflect.Type
	B reflect.Type
}

func diffFuncs(a, b reflect.Type) *funcDifferences {
	diff := funcDifferences{
		In:  diffTypes(a.NumIn(), a.In, b.NumIn(), b.In),
		Out: diffTypes(a.NumOut(), a.Out, b.NumOut(), b.Out),
	}
	if a.IsVariadic() != b.IsVariadic() {
		diff.Variadic = &[2]bool{a.IsVariadic(), b.IsVariadic()}
	}
	return &diff
}

func diffTypes(an int, at func(int) reflect.Type, bn int, bt func(int) reflect.Type) []*argDifference {
	diffs := make([]*argDifference, max(an, bn))
	for i := range diffs {
		var d argDifference
		if i < an {
			d.A = at(i)
		}
		if i < bn {
			d.B = bt(i)
		}
		if d.A != d.B {
			diffs[i] = &d
		}
	}
	return diffs
}
