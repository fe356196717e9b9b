package emath

import(
	"math"
	"sync"
)

// Some functions that only operate on basic types, that are useful

func Deg2Rad(d float64) float64 { return d * math.Pi / 180.0 }
func Rad2Deg(r float64) float64 { return r * 180.0 / math.Pi }

// WrapDegrees folds an angle into [0,360)
func WrapDegrees(d float64) float64 {
	d = math.Mod(d, 360.0)
	if d < 0 {
		d += 360.0
	}
	if d >= 360.0 {
		d = 0
	}
	return d
}

// ParallelRange splits [0,n) into contiguous chunks and hands them to a
// pool of nWorkers goroutines, returning once they are all done. The
// callback must only write to state owned by its own indices.
func ParallelRange(n, nWorkers int, f func(lo, hi int)) {
	if n <= 0 {
		return
	}
	if nWorkers < 1 { nWorkers = 1 }
	if nWorkers > n { nWorkers = n }
	if nWorkers == 1 {
		f(0, n)
		return
	}

	type job struct{ lo, hi int }
	chunk := (n + nWorkers - 1) / nWorkers
	jobsChan := make(chan job, nWorkers)

	var wg sync.WaitGroup
	for i:=0; i<nWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobsChan {
				f(j.lo, j.hi)
			}
		}()
	}

	for lo:=0; lo<n; lo += chunk {
		hi := lo + chunk
		if hi > n { hi = n }
		jobsChan<- job{lo, hi}
	}
	close(jobsChan)
	wg.Wait()
}
