// Package mock provides offline implementations of http.Fetcher.
//
// A responder answers every request with the same canned body and performs
// no network I/O, so code written against http.Fetcher can be tested
// without a server:
//
//	var f http.Fetcher = mock.NewStringResponder(`{"ok": true}`,
//		mock.WithStatus(201),
//		mock.WithHeader("Content-Type", "application/json"),
//	)
//	resp, err := f.Fetch(http.NewRequest("https://api.example.com/users"))
//
// FileResponder reads its body from disk once, at construction.
package mock
