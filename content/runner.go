// Package content is the content side of a browser: it answers script
// requests sent by the browser side with the result of evaluating them in
// the frame's script context.
package content

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/gogpu/webview"
	"github.com/gogpu/webview/engine"
)

// StringifyFailed is reported when a completion value cannot be serialized.
const StringifyFailed = "JSON.stringify() failed"

// Runner handles request-run-script messages. It implements
// engine.ContentClient.
type Runner struct {
	logger *slog.Logger
}

var _ engine.ContentClient = (*Runner)(nil)

// NewRunner returns a runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) log() *slog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return webview.Logger()
}

// OnProcessMessageReceived evaluates a script request and replies to the
// browser side. Other messages are left unhandled.
func (r *Runner) OnProcessMessageReceived(frame engine.ContentFrame, _ engine.ProcessID, msg *engine.ProcessMessage) bool {
	if msg.Name != engine.MsgRunScript {
		return false
	}
	runID, script, err := engine.ReadRunScriptRequest(msg)
	if err != nil {
		r.log().Error("content: malformed script request", "err", err)
		return true
	}

	resp := Evaluate(frame, runID, script)
	r.log().Debug("content: script evaluated",
		"run", runID, "executed", resp.Executed, "exception", resp.IsException)
	frame.SendProcessMessage(engine.ProcessBrowser, engine.NewScriptResponse(resp))
	return true
}

// Evaluate runs script in frame's script context.
//
// A frame without a context reports Executed false. A thrown exception
// reports its message. Every completion value, strings included, is
// reported as its JSON.stringify text. A value that stringifies to
// undefined (undefined itself, functions, symbols) is reported as
// "undefined" with IsUndefined set.
func Evaluate(frame engine.ContentFrame, runID int, script string) engine.ScriptResponse {
	resp := engine.ScriptResponse{RunID: runID}
	ctx, ok := frame.ScriptContext()
	if !ok {
		return resp
	}
	resp.Executed = true

	v, err := ctx.Eval(wrapScript(script))
	if err != nil {
		resp.IsException = true
		resp.Result = exceptionMessage(err)
		return resp
	}
	s, ok := v.(string)
	if !ok || s == "" {
		resp.IsException = true
		resp.Result = "unexpected evaluation result"
		return resp
	}

	switch s[0] {
	case tagException:
		resp.IsException = true
		resp.Result = s[1:]
	case tagStringify:
		resp.IsException = true
		resp.Result = StringifyFailed
	case tagUndefined:
		resp.IsUndefined = true
		resp.Result = "undefined"
	case tagValue:
		resp.Result = s[1:]
	default:
		resp.IsException = true
		resp.Result = "unexpected evaluation result"
	}
	return resp
}

func exceptionMessage(err error) string {
	var se *engine.ScriptError
	if errors.As(err, &se) {
		return se.Message
	}
	return err.Error()
}

// The wrapper reports its outcome as one tagged string so any context that
// returns strings can run it.
const (
	tagValue     = 'V'
	tagException = 'E'
	tagStringify = 'S'
	tagUndefined = 'U'
)

// wrapScript returns source that evaluates script in the global scope and
// yields a tagged string.
func wrapScript(script string) string {
	return `(function () {
	var r, s;
	try {
		r = (0, eval)(` + quoteJS(script) + `);
	} catch (e) {
		return "E" + String(e);
	}
	try {
		s = JSON.stringify(r);
	} catch (e) {
		return "S";
	}
	if (s === undefined) return "U";
	return "V" + s;
})()`
}

// quoteJS returns s as a JavaScript string literal.
func quoteJS(s string) string {
	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(b.String(), "\n")
}
