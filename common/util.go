package common

import "fmt"

// PanicIfErr aborts the process on an error that indicates a corrupted
// invariant rather than a transient condition a caller can recover from.
func PanicIfErr(err error) {
	if err != nil {
		panic(err)
	}
}

// Assert panics with the given message if cond is false. Used at the
// handful of places where continuing would silently corrupt the page
// store or the pin-count discipline.
func Assert(cond bool, msg string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf(msg, args...))
	}
}
