// Package headless is a pure Go implementation of engine.Engine.
//
// It is a small off-screen browser: pages are fetched with net/http
// (http, https, data, file and about:blank), parsed with x/net/html and
// laid out as wrapped text blocks, then rasterized with gg and delivered to
// the client as BGRA frames. Inline scripts run in a QuickJS context per
// document on a content goroutine, which also serves the run-script
// protocol through content.Runner.
//
// Supported interaction:
//
//   - mouse wheel scrolling
//   - left click on links
//   - right click opens a Back, Forward and Reload context menu, delivered
//     as a popup layer
//   - character keys edit an input line; Enter navigates to it when it is
//     an absolute URL
//
// Example:
//
//	host := webview.NewHostLoop()
//	ctrl := webview.NewController(headless.New(), host)
//	ctrl.StartEngine(nil, func(r webview.Result[struct{}]) { ... })
//	host.Run(ctx)
package headless
