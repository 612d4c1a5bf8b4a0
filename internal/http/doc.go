// Package http exposes the channel table over a REST API.
//
// Data plane:
//   - POST /channels/:id/open        → handle
//   - POST /handles/:hid/write       raw body, ?nonblock=1 for non-blocking
//   - POST /handles/:hid/read        {"max_len": n, "nonblock": bool}
//   - DELETE /handles/:hid
//
// Control plane (never blocks on data or space):
//   - GET/PUT /channels/:id/capacity
//   - GET     /channels/:id/used, /channels/:id/free
//   - POST    /channels/:id/control  {"command": "...", "arg": n}
//   - GET/PUT /channels/:id/policy
//
// Blocking reads and writes are tied to the request context: a client that
// goes away mid-wait interrupts the operation, and any partial progress is
// reported in the response where one can still be written.
package http
