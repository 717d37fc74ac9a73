package constraints

import (
	"testing"

	"github.com/jacoelho/recsel/internal/path"
	"github.com/jacoelho/recsel/internal/query"
	"github.com/jacoelho/recsel/internal/store"
	"github.com/jacoelho/recsel/internal/where"
)

func TestIndexedPathsMatchStoreKeys(t *testing.T) {
	t.Parallel()

	if got, want := where.DefaultIndexedPaths.Handle, "$."+store.DefaultKeys.Handle; got != want {
		t.Errorf("indexed handle path = %q, store key path = %q", got, want)
	}
	if got, want := where.DefaultIndexedPaths.Identifier, "$."+store.DefaultKeys.Identifier; got != want {
		t.Errorf("indexed identifier path = %q, store key path = %q", got, want)
	}
	if got := path.Key(where.DefaultIndexedPaths.Handle); got != store.DefaultKeys.Handle {
		t.Errorf("projected key of handle path = %q, want %q", got, store.DefaultKeys.Handle)
	}
}

func TestQueryDocumentsAcceptEveryOperator(t *testing.T) {
	t.Parallel()

	operators := []where.Operator{
		where.OpEqual, where.OpNotEqual,
		where.OpLess, where.OpLessEqual, where.OpGreater, where.OpGreaterEqual,
		where.OpIn, where.OpNotIn, where.OpLike,
	}

	for _, op := range operators {
		t.Run(string(op), func(t *testing.T) {
			t.Parallel()

			if _, err := where.ParseOperator(string(op)); err != nil {
				t.Fatalf("where.ParseOperator(%q) error = %v", op, err)
			}

			expr, err := query.ParseWhere(`["$.gramps_id", "` + string(op) + `", "I1"]`)
			if err != nil {
				t.Fatalf("query.ParseWhere(%q) error = %v", op, err)
			}
			leaf, ok := expr.(*where.Comparison)
			if !ok || leaf.Op != op {
				t.Fatalf("query.ParseWhere(%q) = %v", op, expr)
			}
		})
	}
}
