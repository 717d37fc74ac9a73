package selection

import (
	"cmp"
	"fmt"

	"github.com/jacoelho/recsel/internal/number"
)

// rank groups sort values so that values of different types still have a
// defined order: missing < bool < number < string < everything else.
func rank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case string:
		return 3
	}
	if number.Is(v) {
		return 2
	}
	return 4
}

func compareValues(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return cmp.Compare(ra, rb)
	}

	switch ra {
	case 1:
		x, y := a.(bool), b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		default:
			return 1
		}
	case 2:
		c, _ := number.Compare(a, b)
		return c
	case 3:
		return cmp.Compare(a.(string), b.(string))
	case 4:
		return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
	default:
		return 0
	}
}

// compareKeys orders sort keys element by element.
func compareKeys(a, b []any) int {
	for i := range min(len(a), len(b)) {
		if c := compareValues(a[i], b[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(a), len(b))
}
