package model

type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeFailure
	OutcomeTransportError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	case OutcomeTransportError:
		return "transport-error"
	}
	return "unknown"
}

// Outcome is the result of one submission. Message is empty on success.
type Outcome struct {
	Kind    OutcomeKind
	Message string
}

func Success() Outcome {
	return Outcome{Kind: OutcomeSuccess}
}

func Failure(message string) Outcome {
	return Outcome{Kind: OutcomeFailure, Message: message}
}

func TransportError(message string) Outcome {
	return Outcome{Kind: OutcomeTransportError, Message: message}
}

func (o Outcome) OK() bool {
	return o.Kind == OutcomeSuccess
}

func (o Outcome) String() string {
	if o.Message == "" {
		return o.Kind.String()
	}
	return o.Kind.String() + ": " + o.Message
}
