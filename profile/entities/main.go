// Profiling:
// go build ./profile/entities
// go tool pprof -http=":8000" -nodefraction=0.001 ./entities mem.pprof
package main

import (
	"github.com/pkg/profile"

	"github.com/kanrt/kan/spatial"
)

func main() {
	rounds := 50
	iters := 1000
	boxesPerRound := 1000

	p := profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook)
	run(rounds, iters, boxesPerRound)
	p.Stop()
}

// run repeatedly fills a fresh quantized tree with boxesPerRound bounding
// boxes and walks a shape query over the whole span, profiling the spatial
// tree's insert/shape-query cycle on its own.
func run(rounds, iters, boxesPerRound int) {
	for range rounds {
		for range iters {
			tr := spatial.Init[int](2, 0, 1000, 8, 8)

			for i := 0; i < boxesPerRound; i++ {
				x := float64((i * 7) % 1000)
				y := float64((i * 13) % 1000)
				min := []float64{x, y}
				max := []float64{x + 2, y + 2}

				it := tr.InsertionStart(min, max)
				for tr.InsertionInsertAndMove(it) {
				}
			}

			shape := tr.ShapeStart([]float64{0, 0}, []float64{1000, 1000})
			for tr.ShapeMoveToNextNode(shape) {
				_ = shape.CurrentSubNodes()
			}

			tr.Shutdown()
		}
	}
}
