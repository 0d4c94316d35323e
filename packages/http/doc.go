// Package http runs single outbound HTTP transfers and reports what happened.
//
// An Executor takes a Request, drives a Transport handle through one
// transfer and returns a Response with:
//   - Final status code, effective URL and remote IP
//   - Raw header lines grouped per redirect hop
//   - The decoded body
//
// Failures come back as *TransferError values whose Kind tells the caller
// what went wrong (DNS, refused connection, timeouts, TLS, ...) without
// parsing messages. NetTransport is the net/http-backed transport; tests and
// offline callers can swap in any Fetcher.
package http
