// Package gcurl issues single HTTP calls through a transfer engine handle.
//
// # One-shot calls
//
//	resp, err := gcurl.GET(ctx, "https://example.com/search", gcurl.Params{{Key: "q", Value: "go"}})
//	resp, err := gcurl.POST(ctx, "https://example.com/form", gcurl.Params{{Key: "a", Value: "1"}})
//	resp, err := gcurl.PUT(ctx, "https://example.com/upload/report.csv", "/tmp/report.csv")
//
// Each helper creates a [Single], executes it once and releases the handle.
//
// # Reusing a handle
//
// A [Single] owns one engine handle and runs one [Request] at a time. It can
// be executed again, or pointed at a new address with [Single.Redirect]:
//
//	uri, err := gcurl.NewURI("https://example.com/start")
//	s, err := gcurl.New(gcurl.NewGetRequest(uri), gcurl.WithTimeout(5*time.Second))
//	if err != nil { ... }
//	defer s.Close()
//
//	resp, err := s.Exec(ctx)
//	if resp.IsRedirect() {
//		err = s.Redirect(resp.Location())
//		resp, err = s.Exec(ctx)
//	}
//
// [Single.Follow] runs that loop for you. Alternatively
// [WithFollowRedirects] lets the engine follow redirects on its own.
//
// # Errors
//
// Failures wrap one of the package's sentinel errors and can be matched
// with [errors.Is]: [ErrEngineUnavailable] and [ErrHandleCreation] from
// [New], [ErrOptionRejected] when the engine refuses a setting and
// [ErrTransferFailed] from [Single.Exec]. Nothing is retried.
package gcurl
