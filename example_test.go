package hotpatch_test

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/pboyd/hotpatch"
)

//go:noinline
func sayHi(name string) {
	fmt.Println("hello,", name)
}

func ExamplePatch() {
	guard, err := hotpatch.Patch(sayHi, func(name string) {
		fmt.Println("bye,", name)
	})
	if err != nil {
		panic(err)
	}

	sayHi("Steve")

	// The original function is back once the guard is released.
	guard.Release()

	sayHi("Bob")
	// Output:
	// bye, Steve
	// hello, Bob
}

func ExampleWith() {
	hotpatch.With(time.Now, func() time.Time {
		return time.Date(2000, 1, 1, 17, 0, 0, 0, time.FixedZone("somewhere", -5))
	}, func() {
		fmt.Printf("It's %s\n", time.Now().Format("3:04 PM MST"))
	})
	// Output: It's 5:00 PM somewhere
}

func ExampleGuard_Forget() {
	hotpatch.MustPatch((*net.Resolver).LookupHost, func(*net.Resolver, context.Context, string) ([]string, error) {
		return []string{"127.0.0.1"}, nil
	}).Forget()

	addrs, _ := net.DefaultResolver.LookupHost(context.Background(), "www.google.com")
	fmt.Printf("www.google.com has addresses %v", addrs)
	// Output: www.google.com has addresses [127.0.0.1]
}
