package utils

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/newsdesk-cms/newsdesk/src/oops"
)

// Returns the provided value, or a default value if the input was zero.
func OrDefault[T comparable](v T, def T) T {
	var zero T
	if v == zero {
		return def
	} else {
		return v
	}
}

// NumPages always reports at least one page, even for zero things.
func NumPages(numThings, thingsPerPage int) int {
	if thingsPerPage <= 0 || numThings <= 0 {
		return 1
	}
	return (numThings + thingsPerPage - 1) / thingsPerPage
}

// Panics if err is non-nil. Typed nil errors (like a nil *MyError) count as nil.
func Must(err error) {
	if isNonNilError(err) {
		panic(err)
	}
}

func Must1[T any](v T, err error) T {
	Must(err)
	return v
}

func isNonNilError(err error) bool {
	if err == nil {
		return false
	}
	v := reflect.ValueOf(err)
	if v.Kind() == reflect.Ptr && v.IsNil() {
		return false
	}
	return true
}

/*
Recover a panic and convert it to a returned error. Call it like so:

	func MyFunc() (err error) {
		defer utils.RecoverPanicAsError(&err)
	}

If an error was already set when the panic happened, it stays in the chain so
errors.Is still finds it.
*/
func RecoverPanicAsError(err *error) {
	if r := recover(); r != nil {
		var recoveredErr error
		if rerr, ok := r.(error); ok {
			recoveredErr = rerr
		} else {
			recoveredErr = fmt.Errorf("panic with value: %v", r)
		}
		if *err != nil {
			recoveredErr = fmt.Errorf("%v (previous error: %w)", recoveredErr, *err)
		}
		*err = oops.New(recoveredErr, "panic recovered as error")
	}
}

var ErrSleepInterrupted = errors.New("sleep interrupted by context cancellation")

func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ErrSleepInterrupted
	case <-timer.C:
		return nil
	}
}
