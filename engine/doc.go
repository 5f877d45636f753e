// Package engine is the transfer engine behind gcurl: a single-transfer
// handle over [net/http] configured through option flags.
//
// A [Handle] is created with [New], configured with [Handle.SetOpt] and run
// with [Handle.Perform]:
//
//	h, err := engine.New(engine.WithThrottle(10, 5))
//	if err != nil { ... }
//	defer h.Close()
//
//	_ = h.SetOpt(engine.OptURL, "https://example.com/")
//	_ = h.SetOpt(engine.OptReturnTransfer, true)
//	_ = h.SetOpt(engine.OptHeaderFunction, func(line string) int {
//		fmt.Print(line)
//		return len(line)
//	})
//	body, err := h.Perform(ctx)
//
// Options persist between transfers on the same handle. A failed option or
// transfer leaves an [*Error] in the handle's error state, readable with
// [Handle.Err] until the next transfer or [Handle.ClearErr].
//
// A Handle is not safe for concurrent use.
package engine
