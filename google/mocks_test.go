package google

import (
	"context"

	"github.com/goliatone/go-router"
)

// routerContext renames router.Context so embedding it does not create
// a field named Context, which would collide with the Context method.
type routerContext interface {
	router.Context
}

// fakeContext covers the router.Context surface the sign-in flow
// touches; everything else hits the nil embedded interface and panics.
type fakeContext struct {
	routerContext

	queries map[string]string

	redirectedTo   string
	redirectStatus int
	setCookies     []*router.Cookie
}

func newFakeContext() *fakeContext {
	return &fakeContext{queries: map[string]string{}}
}

func (f *fakeContext) Query(key string, def ...string) string {
	if v, ok := f.queries[key]; ok {
		return v
	}
	if len(def) > 0 {
		return def[0]
	}
	return ""
}

func (f *fakeContext) Context() context.Context {
	return context.Background()
}

func (f *fakeContext) Redirect(path string, status ...int) error {
	f.redirectedTo = path
	if len(status) > 0 {
		f.redirectStatus = status[0]
	}
	return nil
}

func (f *fakeContext) Cookie(cookie *router.Cookie) {
	f.setCookies = append(f.setCookies, cookie)
}

func (f *fakeContext) lastCookie(name string) *router.Cookie {
	for i := len(f.setCookies) - 1; i >= 0; i-- {
		if f.setCookies[i].Name == name {
			return f.setCookies[i]
		}
	}
	return nil
}
