package engine

import (
	"errors"
	"fmt"
)

// Message names of the script protocol between the browser and content
// sides.
const (
	// MsgRunScript asks the content side to evaluate a script.
	// Arguments: runId int, script string.
	MsgRunScript = "request-run-script"

	// MsgScriptResponse carries the outcome back to the browser side.
	// Arguments: runId int, executed bool, isException bool, result string,
	// isUndefined bool.
	MsgScriptResponse = "script-response"
)

// Message decoding errors.
var (
	// ErrMessageName is returned when a message is read as the wrong kind.
	ErrMessageName = errors.New("engine: unexpected message name")

	// ErrMessageArgs is returned when argument count or types do not match.
	ErrMessageArgs = errors.New("engine: malformed message arguments")
)

// ProcessMessage is a named list of scalar arguments passed between the
// browser and content sides. Arguments are int, bool or string.
type ProcessMessage struct {
	Name string
	Args []any
}

// NewProcessMessage returns a message with a copy of args.
func NewProcessMessage(name string, args ...any) *ProcessMessage {
	return &ProcessMessage{Name: name, Args: append([]any(nil), args...)}
}

// Int returns argument i as an int.
func (m *ProcessMessage) Int(i int) (int, error) {
	v, err := m.arg(i)
	if err != nil {
		return 0, err
	}
	n, ok := v.(int)
	if !ok {
		return 0, fmt.Errorf("%w: %s arg %d is %T, want int", ErrMessageArgs, m.Name, i, v)
	}
	return n, nil
}

// Bool returns argument i as a bool.
func (m *ProcessMessage) Bool(i int) (bool, error) {
	v, err := m.arg(i)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s arg %d is %T, want bool", ErrMessageArgs, m.Name, i, v)
	}
	return b, nil
}

// String returns argument i as a string.
func (m *ProcessMessage) String(i int) (string, error) {
	v, err := m.arg(i)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s arg %d is %T, want string", ErrMessageArgs, m.Name, i, v)
	}
	return s, nil
}

func (m *ProcessMessage) arg(i int) (any, error) {
	if i < 0 || i >= len(m.Args) {
		return nil, fmt.Errorf("%w: %s has %d args, index %d", ErrMessageArgs, m.Name, len(m.Args), i)
	}
	return m.Args[i], nil
}

func (m *ProcessMessage) expect(name string, n int) error {
	if m.Name != name {
		return fmt.Errorf("%w: got %q, want %q", ErrMessageName, m.Name, name)
	}
	if len(m.Args) != n {
		return fmt.Errorf("%w: %s has %d args, want %d", ErrMessageArgs, name, len(m.Args), n)
	}
	return nil
}

// NewRunScriptRequest builds a MsgRunScript message.
func NewRunScriptRequest(runID int, script string) *ProcessMessage {
	return NewProcessMessage(MsgRunScript, runID, script)
}

// ReadRunScriptRequest decodes a MsgRunScript message.
func ReadRunScriptRequest(m *ProcessMessage) (runID int, script string, err error) {
	if err = m.expect(MsgRunScript, 2); err != nil {
		return 0, "", err
	}
	if runID, err = m.Int(0); err != nil {
		return 0, "", err
	}
	if script, err = m.String(1); err != nil {
		return 0, "", err
	}
	return runID, script, nil
}

// ScriptResponse is the decoded form of MsgScriptResponse.
type ScriptResponse struct {
	RunID int
	// Executed is false only when no script context was available.
	Executed    bool
	IsException bool
	// Result is the exception message, the string value, or the JSON text of
	// the value.
	Result      string
	IsUndefined bool
}

// NewScriptResponse builds a MsgScriptResponse message.
func NewScriptResponse(r ScriptResponse) *ProcessMessage {
	return NewProcessMessage(MsgScriptResponse, r.RunID, r.Executed, r.IsException, r.Result, r.IsUndefined)
}

// ReadScriptResponse decodes a MsgScriptResponse message.
func ReadScriptResponse(m *ProcessMessage) (ScriptResponse, error) {
	var r ScriptResponse
	if err := m.expect(MsgScriptResponse, 5); err != nil {
		return r, err
	}
	var err error
	if r.RunID, err = m.Int(0); err != nil {
		return r, err
	}
	if r.Executed, err = m.Bool(1); err != nil {
		return r, err
	}
	if r.IsException, err = m.Bool(2); err != nil {
		return r, err
	}
	if r.Result, err = m.String(3); err != nil {
		return r, err
	}
	if r.IsUndefined, err = m.Bool(4); err != nil {
		return r, err
	}
	return r, nil
}
