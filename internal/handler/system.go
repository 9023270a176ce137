// Package handler contains the HTTP request handlers for the time capsule API.
//
// WHAT IS A HANDLER?
// In Go, an HTTP handler is anything that implements the http.Handler interface:
//
//	type Handler interface {
//	    ServeHTTP(ResponseWriter, *Request)
//	}
//
// Or more commonly, we use http.HandlerFunc: a function with the right signature
// that automatically satisfies the Handler interface. Chi's router accepts these directly.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the incoming HTTP request (path params, body, the current user)
// 2. Call the service layer
// 3. Write the HTTP response (status code, headers, JSON body)
//
// Handlers should NOT contain business logic: they are the "glue" between HTTP and the services.
package handler

import (
	"net/http"
)

// LivenessText is the plain-text body of GET /.
const LivenessText = "🚀 Time Capsule API is live"

// HandleLiveness answers GET / so load balancers and humans can see the
// process is up. It does not touch the database.
func HandleLiveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(LivenessText))
}

// HandleNotFound is the router's fallback for unknown paths and for known
// paths hit with the wrong method.
func HandleNotFound(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusNotFound, "Endpoint not found")
}
