//go:build !chtdebug

package cht

const debug = false

func assertf(bool, string, ...any) {}
