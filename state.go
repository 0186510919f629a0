package webview

// EngineState is the process-wide engine lifecycle. Transitions only move
// forward.
type EngineState int32

const (
	EngineUninitialized EngineState = iota
	EngineInitializing
	EngineInitialized
	EngineShuttingDown
	EngineShutdown
)

func (s EngineState) String() string {
	switch s {
	case EngineUninitialized:
		return "Uninitialized"
	case EngineInitializing:
		return "Initializing"
	case EngineInitialized:
		return "Initialized"
	case EngineShuttingDown:
		return "ShuttingDown"
	case EngineShutdown:
		return "Shutdown"
	default:
		return "(Undefined state)"
	}
}

// InstanceState is the lifecycle of one browser instance.
type InstanceState int

const (
	InstanceBeforeCreated InstanceState = iota
	InstanceCreated
	InstanceReady
	InstanceClosing
	InstanceClosed
)

func (s InstanceState) String() string {
	switch s {
	case InstanceBeforeCreated:
		return "BeforeCreated"
	case InstanceCreated:
		return "Created"
	case InstanceReady:
		return "Ready"
	case InstanceClosing:
		return "Closing"
	case InstanceClosed:
		return "Closed"
	default:
		return "(Undefined state)"
	}
}
