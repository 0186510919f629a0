package webview

// Listener receives per-instance events. Every method runs on the host
// thread.
type Listener interface {
	OnPageStarted(id InstanceID, url string)
	OnPageFinished(id InstanceID, url string)
	// OnProgress reports load progress in percent, 0 to 100.
	OnProgress(id InstanceID, progress int)
	OnWebResourceError(id InstanceID, err WebResourceError)
	OnScriptResult(id InstanceID, result ScriptResult)
}

// NullListener ignores all events.
type NullListener struct{}

func (NullListener) OnPageStarted(InstanceID, string)                {}
func (NullListener) OnPageFinished(InstanceID, string)               {}
func (NullListener) OnProgress(InstanceID, int)                      {}
func (NullListener) OnWebResourceError(InstanceID, WebResourceError) {}
func (NullListener) OnScriptResult(InstanceID, ScriptResult)         {}

var _ Listener = NullListener{}
