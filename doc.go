// Package webview embeds an off-screen browser engine in a host application
// and composites its frames into GPU textures.
//
// # Overview
//
// Three thread affinities meet here:
//   - the engine's API may only be used on the engine thread,
//   - the host's API may only be used on the host thread,
//   - textures may only be touched while the GPU context is bound.
//
// [Controller] owns the engine thread and the instance registry. Its methods
// are called on the host thread, run on the engine thread, and report back
// through a [Callback] that runs on the host thread again. [HostLoop] is the
// queue that carries those callbacks; the host drains it from its own event
// loop.
//
// [TextureManager] owns one [Texture] per instance on the host thread.
// Frames are uploaded by the engine thread while it holds the GPU context
// ([PaintSink]), and only the "frame available" signal crosses back to the
// host, where a [Compositor] presents the textures through a
// gpucontext.TextureDrawer.
//
// # Quick Start
//
//	host := webview.NewHostLoop()
//	ctrl := webview.NewController(headless.New(), host, webview.WithListener(events))
//
//	_ = ctrl.StartEngine(nil, func(r webview.Result[struct{}]) {
//	    tex, _ := textures.CreateTexture(1, 800, 600)
//	    _ = ctrl.CreateInstance(1, webview.CreationParams{
//	        URL:    "https://go.dev",
//	        Width:  800,
//	        Height: 600,
//	        Target: tex,
//	        Sink:   webview.NewFramePresenter(gpu, host, textures, comp),
//	    }, nil)
//	})
//	go host.Run(ctx)
//
// # Lifecycle
//
// The engine moves through [EngineState] values in order and never back.
// Instances move through [InstanceState]; a close requested by the page
// itself is vetoed unless [Controller.CloseInstance] started it.
//
// # Errors
//
// Every failure crossing a thread boundary is an [*Error] with a [Code].
// Use errors.Is with the Err* sentinels to test codes.
package webview
