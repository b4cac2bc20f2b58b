// SPDX-License-Identifier: Apache-2.0

package arena_test

import (
	"fmt"

	arena "github.com/wundergraph/go-region-arena"
)

func ExampleArena() {
	a, err := arena.New(4096, 4096)
	if err != nil {
		panic(err)
	}
	defer a.Free()

	names, err := arena.AllocateSlice[uint32](a.Permanent(), 0, 4)
	if err != nil {
		panic(err)
	}
	names = append(names, 1, 2, 3)

	for cycle := 0; cycle < 3; cycle++ {
		scratch, err := a.TransientAllocate(1024, true, arena.WordSize)
		if err != nil {
			panic(err)
		}
		scratch[0] = byte(cycle)
		a.Reset()
	}

	stats := a.Stats()
	fmt.Println(names, stats.Cycles, stats.Transient.Used, stats.Transient.Peak)
	// Output: [1 2 3] 3 0 1056
}

func ExampleBuffer() {
	a, err := arena.New(0, 4096)
	if err != nil {
		panic(err)
	}
	defer a.Free()

	buf := arena.NewArenaBuffer(a.Transient())
	for i := 0; i < 3; i++ {
		fmt.Fprintf(buf, "line %d\n", i)
	}
	fmt.Print(buf.String())
	// Output:
	// line 0
	// line 1
	// line 2
}

func ExampleSliceAppend() {
	a, err := arena.New(0, 4096)
	if err != nil {
		panic(err)
	}
	defer a.Free()

	var squares []int
	for i := 1; i <= 5; i++ {
		squares, err = arena.SliceAppend(a.Transient(), squares, i*i)
		if err != nil {
			panic(err)
		}
	}
	fmt.Println(squares, a.Stats().Transient.Allocations)
	// Output: [1 4 9 16 25] 1
}
