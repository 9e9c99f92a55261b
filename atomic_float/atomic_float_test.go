package atomic_float

import (
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestAtomicAdd(t *testing.T) {
	Convey("When multiple writers retry AtomicAdd against one AtomicFloat64 concurrently", t, func() {
		af := NewAtomicFloat64(0)
		numOps := 3000
		numWriters := 200

		start := make(chan struct{})
		wg := sync.WaitGroup{}
		wg.Add(numWriters)
		adder := func() {
			<-start
			for i := 0; i < numOps; i++ {
				for succeeded := false; !succeeded; _, succeeded = af.AtomicAdd(1.0) {
				}
			}
			wg.Done()
		}

		for i := 0; i < numWriters; i++ {
			go adder()
		}

		time.Sleep(time.Millisecond * 10)
		close(start)
		wg.Wait()

		So(af.AtomicRead(), ShouldEqual, float64(numOps*numWriters))
	})

	Convey("When writers increment and decrement the same AtomicFloat64 concurrently", t, func() {
		af := NewAtomicFloat64(0)
		numOps := 3000
		numWriters := 200

		start := make(chan struct{})
		wg := sync.WaitGroup{}
		wg.Add(numWriters * 2)
		incrementer := func() {
			<-start
			for i := 0; i < numOps; i++ {
				for succeeded := false; !succeeded; _, succeeded = af.AtomicAdd(1.0) {
				}
			}
			wg.Done()
		}
		decrementer := func() {
			<-start
			for i := 0; i < numOps; i++ {
				for succeeded := false; !succeeded; _, succeeded = af.AtomicAdd(-1.0) {
				}
			}
			wg.Done()
		}

		for i := 0; i < numWriters; i++ {
			go incrementer()
			go decrementer()
		}

		time.Sleep(time.Millisecond * 10)
		close(start)
		wg.Wait()

		So(af.AtomicRead(), ShouldEqual, float64(0))
	})
}

func TestAtomicSet(t *testing.T) {
	Convey("Given an AtomicFloat64", t, func() {
		af := NewAtomicFloat64(1.5)

		Convey("AtomicSet replaces the value and reports success", func() {
			ok := af.AtomicSet(2.5)
			So(ok, ShouldBeTrue)
			So(af.AtomicRead(), ShouldEqual, 2.5)
		})
	})
}
