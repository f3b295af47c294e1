package connection

import "fmt"

// Phase is the connection lifecycle stage derived from State.
type Phase int

const (
	PhaseDisconnected Phase = iota
	PhaseConnecting
	PhaseConnected
	PhaseErrored
)

func (p Phase) String() string {
	switch p {
	case PhaseDisconnected:
		return "disconnected"
	case PhaseConnecting:
		return "connecting"
	case PhaseConnected:
		return "connected"
	case PhaseErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// MarshalText lets phases appear by name in JSON snapshots
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Input is a typed transition trigger fed to the manager's state machine.
type Input int

const (
	InputConnect Input = iota
	InputOpen
	InputWelcome
	InputServerError
	InputTransportError
	InputClose
	InputDisconnect
)

func (i Input) String() string {
	switch i {
	case InputConnect:
		return "connect"
	case InputOpen:
		return "open"
	case InputWelcome:
		return "welcome"
	case InputServerError:
		return "server_error"
	case InputTransportError:
		return "transport_error"
	case InputClose:
		return "close"
	case InputDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// ErrNoTransition indicates the input is not accepted in the current phase.
type ErrNoTransition struct {
	From  Phase
	Input Input
}

func (e *ErrNoTransition) Error() string {
	return fmt.Sprintf("no transition available from phase '%s' for input '%s'", e.From, e.Input)
}

type transitionKey struct {
	from  Phase
	input Input
}

// transitions lists every legal phase change. Errored behaves like
// Disconnected except that it carries an error message.
var transitions = map[transitionKey]Phase{
	{PhaseDisconnected, InputConnect}: PhaseConnecting,
	{PhaseErrored, InputConnect}:      PhaseConnecting,

	// Transport open does not imply Connected; the handshake does.
	{PhaseConnecting, InputOpen}: PhaseConnecting,

	{PhaseConnecting, InputWelcome}:   PhaseConnected,
	{PhaseConnected, InputWelcome}:    PhaseConnected,
	{PhaseDisconnected, InputWelcome}: PhaseConnected,
	{PhaseErrored, InputWelcome}:      PhaseConnected,
}

// teardownInputs move every phase to Disconnected (or Errored, depending on
// the error field the caller sets).
var teardownInputs = map[Input]bool{
	InputServerError:    true,
	InputTransportError: true,
	InputClose:          true,
	InputDisconnect:     true,
}

// nextPhase resolves the flag phase reached by applying in while in from.
func nextPhase(from Phase, in Input) (Phase, error) {
	if teardownInputs[in] {
		return PhaseDisconnected, nil
	}
	if to, ok := transitions[transitionKey{from, in}]; ok {
		return to, nil
	}
	return from, &ErrNoTransition{From: from, Input: in}
}
