package runner

import "reflect"

// fetcherModule and checkModule report the Go package path backing a
// registered case, standing in for the "caller frame" module walk
// spec.md describes: Go has no call-stack introspection for this, but
// the registered value's own type carries the same information
// statically.
func fetcherModule(f Fetcher) string { return modulePath(f) }
func checkModule(c Check) string     { return modulePath(c) }

func modulePath(v interface{}) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return ""
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.PkgPath()
}
