package registry

import (
	"fmt"
	"slices"

	"fortio.org/safecast"

	"rlink/internal/crates"
)

type topo struct {
	Order  []crates.Num // зависимые раньше своих зависимостей
	Cyclic bool
	Cycles []crates.Num // узлы, оставшиеся в цикле
}

// toposortKahn orders crates so that every crate precedes the crates it
// depends on, which is the order static linkers need. Ties are broken by
// crate number.
func toposortKahn(all []crates.Crate) *topo {
	n := len(all)
	indeg := make([]int, n)
	for _, c := range all {
		for _, d := range c.Deps {
			indeg[int(d)-1]++
		}
	}

	t := &topo{Order: make([]crates.Num, 0, n)}
	current := make([]crates.Num, 0, n)
	for i := range n {
		if indeg[i] == 0 {
			current = append(current, numOf(i))
		}
	}

	for len(current) > 0 {
		slices.Sort(current)
		next := make([]crates.Num, 0)
		for _, num := range current {
			t.Order = append(t.Order, num)
			for _, d := range all[int(num)-1].Deps {
				indeg[int(d)-1]--
				if indeg[int(d)-1] == 0 {
					next = append(next, d)
				}
			}
		}
		current = next
	}

	if len(t.Order) != n {
		t.Cyclic = true
		for i := range n {
			if indeg[i] > 0 {
				t.Cycles = append(t.Cycles, numOf(i))
			}
		}
	}
	return t
}

func numOf(i int) crates.Num {
	v, err := safecast.Conv[uint32](i + 1)
	if err != nil {
		panic(fmt.Errorf("crate number overflow: %w", err))
	}
	return crates.Num(v)
}
