package utils

import (
	"runtime"
	"sync"
)

// MultiThread runs f for every integer in [start, end), splitting the range
// across a pool of goroutines and blocking until all of them finish.
//
// It is meant for the mass calculations inside layer kernels, where each
// index is independent; f must not write to the same memory from two
// indexes. 'opsPerThread' is how many indexes a goroutine claims at a time.
// Ranges no larger than one claim are run inline.
func MultiThread(start, end int, f func(int), opsPerThread int) {
	if end-start <= opsPerThread {
		for i := start; i < end; i++ {
			f(i)
		}
		return
	}

	numThreads := runtime.NumCPU()
	index := start
	var indexMux sync.Mutex

	var wg sync.WaitGroup
	wg.Add(numThreads)
	for thread := 0; thread < numThreads; thread++ {
		go func() {
			defer wg.Done()
			for {
				indexMux.Lock()
				if index >= end {
					indexMux.Unlock()
					return
				}

				i := index
				index += opsPerThread
				indexMux.Unlock()

				e := i + opsPerThread
				if e > end {
					e = end
				}

				for ; i < e; i++ {
					f(i)
				}
			}
		}()
	}

	wg.Wait()
}
