// Package channel is a JSON method-call facade over a webview.Controller,
// meant for hosts in another process or language.
//
// A call is a JSON object:
//
//	{"id":1,"method":"loadUrl","args":{"webviewId":7,"url":"https://go.dev/"}}
//
// and gets exactly one reply with the same id:
//
//	{"id":1,"result":null}
//	{"id":1,"error":{"code":"Invalid Webview ID","message":"..."}}
//
// Arguments are range checked before anything runs on the engine thread;
// a wrong type or an out-of-range number is answered with a "Bad Arguments"
// error naming the key. Byte lists may be sent as a base64 string or as an
// array of numbers.
//
// Page and script events are pushed to every attached peer:
//
//	{"event":"onPageFinished","args":{"webviewId":7,"url":"https://go.dev/"}}
//
// # Threading
//
// Handle runs on the host thread, like every Controller and TextureManager
// call it makes. Serve reads WebSocket frames on its own goroutine and hands
// them to the host thread with Post.
//
// Example:
//
//	host := webview.NewHostLoop()
//	gpu := &softgpu.Context{}
//	comp := webview.NewCompositor(gpu, window)
//	textures := webview.NewTextureManager(gpu, device, comp)
//	presenter := webview.NewFramePresenter(gpu, host, textures, comp)
//	ch := channel.New(headless.New(), host, textures, presenter)
//
//	http.HandleFunc("/channel", func(w http.ResponseWriter, r *http.Request) {
//	    ws, err := websocket.Accept(w, r, nil)
//	    if err != nil {
//	        return
//	    }
//	    _ = ch.Serve(r.Context(), ws)
//	})
//	go http.ListenAndServe(addr, nil)
//	_ = host.Run(ctx)
package channel
