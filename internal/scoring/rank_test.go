package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func scored(id string, score int) Scored[string] {
	return Scored[string]{Item: id, Result: Result{Score: score}}
}

func TestRank_DescendingAndStable(t *testing.T) {
	items := []Scored[string]{
		scored("a", 50), scored("b", 80), scored("c", 50), scored("d", 80), scored("e", 10),
	}

	Rank(items)

	var ids []string
	for _, it := range items {
		ids = append(ids, it.Item)
	}
	assert.Equal(t, []string{"b", "d", "a", "c", "e"}, ids)
}

func TestTop(t *testing.T) {
	items := []Scored[string]{scored("a", 1), scored("b", 3), scored("c", 2)}

	top := Top(items, 2)

	assert.Len(t, top, 2)
	assert.Equal(t, "b", top[0].Item)
	assert.Equal(t, "c", top[1].Item)
	assert.Len(t, Top([]Scored[string]{scored("x", 1)}, 10), 1)
}
