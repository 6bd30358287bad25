package main

import (
	"errors"
	"fmt"
	"os"

	"finspect/internal/apierr"
	"finspect/internal/core"
)

func main() {
	if err := newRootCmd(buildFromEnv).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", describe(err))
		os.Exit(1)
	}
}

// describe turns category API failures into the user facing message and
// leaves usage errors untouched.
func describe(err error) string {
	var e *apierr.Error
	var verr *core.ValidationError
	if errors.As(err, &e) || errors.As(err, &verr) {
		return apierr.CategoryMessage(err)
	}
	return err.Error()
}
