package cht_test

import (
	"fmt"

	"github.com/g-m-twostay/cht"
)

type Entry struct {
	cht.Link[*Entry]
	Key   string
	Value int
}

func Example() {
	var h cht.Hasher
	tb, err := cht.New[string, *Entry](0, cht.Ops[string, *Entry]{
		Hash:     func(e *Entry) uint64 { return h.HashString(e.Key) },
		KeyHash:  h.HashString,
		Equal:    func(a, b *Entry) bool { return a.Key == b.Key },
		KeyEqual: func(k string, e *Entry) bool { return k == e.Key },
		RemoveCallback: func(e *Entry) {
			fmt.Println("reclaimed", e.Key)
		},
	})
	if err != nil {
		panic(err)
	}
	defer tb.Destroy()

	tb.Insert(&Entry{Key: "a", Value: 1})
	fmt.Println(tb.InsertUnique(&Entry{Key: "a", Value: 2}))

	r := tb.ReadLock()
	fmt.Println(tb.FindLazy("a").Value)
	r.Unlock()

	fmt.Println(tb.RemoveKey("a"))
	tb.Barrier()
	// Output:
	// false
	// 1
	// 1
	// reclaimed a
}
