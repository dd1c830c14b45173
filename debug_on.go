//go:build chtdebug

package cht

import "fmt"

const debug = true

func assertf(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("cht: "+format, args...))
	}
}
