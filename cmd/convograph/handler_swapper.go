package main

import (
	"net/http"
	"sync/atomic"
)

// handlerSwapper serves through a handler that can be replaced while
// requests are in flight. serve swaps it on SIGHUP when a reloaded setting
// changes the routes, such as toggling /metrics.
type handlerSwapper struct {
	current atomic.Pointer[http.Handler]
}

func newHandlerSwapper(h http.Handler) *handlerSwapper {
	s := &handlerSwapper{}
	s.Swap(h)
	return s
}

func (s *handlerSwapper) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	(*s.current.Load()).ServeHTTP(w, r)
}

// Swap installs h for subsequent requests.
func (s *handlerSwapper) Swap(h http.Handler) {
	s.current.Store(&h)
}
