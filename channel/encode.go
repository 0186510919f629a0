package channel

import (
	"github.com/tidwall/sjson"

	"github.com/gogpu/webview"
)

// frame builds one outgoing JSON message. The first sjson error is kept.
type frame struct {
	b   []byte
	err error
}

func newFrame() *frame {
	return &frame{b: []byte("{}")}
}

func (f *frame) set(path string, v any) *frame {
	if f.err == nil {
		f.b, f.err = sjson.SetBytes(f.b, path, v)
	}
	return f
}

func (f *frame) bytes() ([]byte, error) {
	return f.b, f.err
}

// resultFrame encodes {"id":N,"result":v}. A nil v encodes as null.
func resultFrame(id int64, v any) ([]byte, error) {
	return newFrame().set("id", id).set("result", v).bytes()
}

// errorFrame encodes {"id":N,"error":{"code":...,"message":...}}.
func errorFrame(id int64, err error) ([]byte, error) {
	return newFrame().
		set("id", id).
		set("error.code", string(webview.CodeOf(err))).
		set("error.message", webview.MessageOf(err)).
		bytes()
}

// eventFrame starts {"event":name,"args":{...}}; callers add args.* keys.
func eventFrame(name string, id webview.InstanceID) *frame {
	return newFrame().set("event", name).set("args.webviewId", int64(id))
}
