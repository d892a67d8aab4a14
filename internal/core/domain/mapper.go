package domain

import (
	"encoding/json"
	"errors"
	"sync"
)

// genericMessage is the public text for failures whose detail must stay
// server side.
const genericMessage = "internal server error"

// Body is the JSON document written for a mapped error:
//
//	{"error":{"kind":"NotFound","message":"not found"}}
type Body struct {
	Error BodyError `json:"error"`
}

// BodyError is the inner object of Body.
type BodyError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Response is the result of mapping an error.
type Response struct {
	Status int
	Kind   Kind
	Body   Body
}

// JSON encodes the body. Encoding two strings cannot fail.
func (r Response) JSON() []byte {
	b, _ := json.Marshal(r.Body)
	return b
}

// Classifier maps an arbitrary error to a kind and public message.
// It returns ok=false when it does not recognize err.
type Classifier func(err error) (kind Kind, message string, ok bool)

type registration struct {
	target  error
	kind    Kind
	message string
}

// Mapper turns failures into Responses. Application errors that are not
// *Error values can be registered so they map to a kind instead of
// falling back to Internal. Safe for concurrent use.
type Mapper struct {
	mu          sync.RWMutex
	targets     []registration
	classifiers []Classifier
}

// NewMapper creates an empty Mapper.
func NewMapper() *Mapper {
	return &Mapper{}
}

// Register maps any error matching target (by errors.Is) to kind. An empty
// message uses target's text.
func (m *Mapper) Register(target error, kind Kind, message string) {
	if message == "" {
		message = target.Error()
	}
	m.mu.Lock()
	m.targets = append(m.targets, registration{target: target, kind: kind, message: message})
	m.mu.Unlock()
}

// RegisterFunc adds a classifier consulted after registered targets.
func (m *Mapper) RegisterFunc(fn Classifier) {
	m.mu.Lock()
	m.classifiers = append(m.classifiers, fn)
	m.mu.Unlock()
}

// Map classifies err. Lookup order: an outermost KindInterceptor *Error,
// registered targets, classifiers, the first *Error in the chain, then
// Internal. A failed interceptor stays InterceptorError even when its
// cause is a registered target.
//
// InterceptorError and Internal always carry the generic message so that
// no hook or handler detail reaches the client.
func (m *Mapper) Map(err error) Response {
	kind, message := m.classify(err)
	if kind == KindInterceptor || kind == KindInternal {
		message = genericMessage
	}
	return Response{
		Status: kind.Status(),
		Kind:   kind,
		Body: Body{Error: BodyError{
			Kind:    kind.String(),
			Message: message,
		}},
	}
}

func (m *Mapper) classify(err error) (Kind, string) {
	var de *Error
	if errors.As(err, &de) && de.Kind == KindInterceptor {
		return KindInterceptor, genericMessage
	}

	if m != nil {
		m.mu.RLock()
		defer m.mu.RUnlock()

		for _, r := range m.targets {
			if errors.Is(err, r.target) {
				return r.kind, r.message
			}
		}
		for _, fn := range m.classifiers {
			if kind, msg, ok := fn(err); ok {
				return kind, msg
			}
		}
	}

	if de != nil {
		return de.Kind, de.Message
	}
	return KindInternal, genericMessage
}
