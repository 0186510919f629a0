// Package engine defines the surface of an off-screen browser engine as seen
// by an embedder.
//
// # Threads
//
// An engine owns one dedicated thread, the engine thread. Every method on
// [Engine] except [Engine.PostTask] must be called there, and every [Client]
// callback is delivered there. Work from other goroutines reaches the engine
// thread only through [Engine.PostTask].
//
// The content side of an engine (the part that evaluates page scripts) runs
// on its own goroutine per browser. It talks to the browser side exclusively
// through [ProcessMessage] values sent with [Frame.SendProcessMessage] and
// [ContentFrame.SendProcessMessage].
//
// # Capability set
//
// A [Client] is a single interface carrying every callback the engine emits
// for a browser: life span, load, render and process messages. One Client is
// supplied per browser at [Engine.CreateBrowser] time.
//
// # Frames
//
// Paint buffers handed to [Client.OnPaint] are premultiplied BGRA
// ([PixelFormat] BGRA8Unorm), tightly packed, width*4 bytes per row. Buffers
// are only valid for the duration of the callback.
package engine
