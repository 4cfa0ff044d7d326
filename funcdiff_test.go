package hotpatch

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffFuncs(t *testing.T) {
	cases := map[string]struct {
		a, b any
		want []string
	}{
		"different number of inputs": {
			a:    func(x int) int { return x },
			b:    func(x, y int) int { return x + y },
			want: []string{"argument 1: <nil> != int"},
		},
		"different number of outputs": {
			a:    func() int { return 1 },
			b:    func() (int, error) { return 1, nil },
			want: []string{"output 1: <nil> != error"},
		},
		"different input types": {
			a:    func(x int, s string) int { return x },
			b:    func(x string, s string) int { return len(x) },
			want: []string{"argument 0: int != string"},
		},
		"different output types": {
			a:    func() int { return 1 },
			b:    func() string { return "1" },
			want: []string{"output 0: int != string"},
		},
		"variadic": {
			a:    func(x ...int) {},
			b:    func(x []int) {},
			want: []string{"variadic: true != false"},
		},
		"everything": {
			a:    func(x int) (int, error) { return 0, nil },
			b:    func(x uint) bool { return false },
			want: []string{"argument 0: int != uint", "output 0: int != bool", "output 1: error != <nil>"},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := diffFuncs(reflect.TypeOf(tc.a), reflect.TypeOf(tc.b)).Error()
			require.ErrorIs(t, err, ErrSignatureMismatch)
			for _, msg := range tc.want {
				assert.Contains(t, err.Error(), msg)
			}
		})
	}
}

func TestDiffFuncs_Same(t *testing.T) {
	type handler func(int) error

	a := reflect.TypeOf(func(int) error { return nil })
	b := reflect.TypeOf(handler(nil))

	assert.NoError(t, diffFuncs(a, a).Error())
	assert.NoError(t, diffFuncs(a, b).Error())
}
