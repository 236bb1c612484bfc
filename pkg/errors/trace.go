package errors

import (
	"errors"
	"fmt"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/status"
)

// maxTraceDepth stops runaway chains from flooding a log line.
const maxTraceDepth = 16

// Trace is the log-friendly view of an error: its message, typed code, the
// wrapped chain and, when a Google client produced it somewhere below, the
// upstream status. Firestore, Pub/Sub and Firebase Auth speak gRPC while
// BigQuery and Gemini answer over REST.
type Trace struct {
	Message string
	Code    Code
	Chain   []string

	GRPCCode    string
	GRPCMessage string
	HTTPStatus  int
}

// TraceOf walks err, following joined errors depth first.
func TraceOf(err error) Trace {
	if err == nil {
		return Trace{}
	}
	t := Trace{Message: err.Error()}
	if typed := As(err); typed != nil {
		t.Code = typed.Code()
	}
	t.walk(err)

	var grpcErr interface{ GRPCStatus() *status.Status }
	if errors.As(err, &grpcErr) {
		if st := grpcErr.GRPCStatus(); st != nil {
			t.GRPCCode = st.Code().String()
			t.GRPCMessage = st.Message()
		}
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		t.HTTPStatus = apiErr.Code
	}
	return t
}

func (t *Trace) walk(err error) {
	if err == nil || len(t.Chain) >= maxTraceDepth {
		return
	}
	t.Chain = append(t.Chain, fmt.Sprintf("%T: %v", err, err))
	switch u := err.(type) {
	case interface{ Unwrap() []error }:
		for _, inner := range u.Unwrap() {
			t.walk(inner)
		}
	case interface{ Unwrap() error }:
		t.walk(u.Unwrap())
	}
}

// Fields flattens the chain and upstream status into log fields, omitting
// empties. The message and code are left to the logger, which records them
// from the error itself.
func (t Trace) Fields() map[string]any {
	fields := map[string]any{}
	if len(t.Chain) > 1 {
		fields["error_chain"] = t.Chain
	}
	if t.GRPCCode != "" {
		fields["grpc_code"] = t.GRPCCode
		fields["grpc_message"] = t.GRPCMessage
	}
	if t.HTTPStatus != 0 {
		fields["upstream_status"] = t.HTTPStatus
	}
	return fields
}
