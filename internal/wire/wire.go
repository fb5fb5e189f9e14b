package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jvmancuso/gridmesh/internal/command"
)

var (
	ErrBadEnvelope   = errors.New("wire: malformed envelope")
	ErrBadResponse   = errors.New("wire: malformed response")
	ErrRemoteFailure = errors.New("wire: remote reported failure")
)

// ResponseKind discriminates the tagged response variant.
type ResponseKind string

const (
	RemoteObjectResult ResponseKind = "remote_object"
	ScalarResult       ResponseKind = "scalar"
	ErrorResult        ResponseKind = "error"
)

// Registration is the {id, owners, is_pointer} triple a worker returns for
// a remote-object result.
type Registration struct {
	ID        string   `json:"id"`
	Owners    []string `json:"owners"`
	IsPointer bool     `json:"is_pointer"`
}

// Response is the tagged command-response variant: a remote object handle,
// a terminal scalar, or a remote failure.
type Response struct {
	Kind         ResponseKind  `json:"kind"`
	Registration *Registration `json:"registration,omitempty"`
	ResultType   string        `json:"result_type,omitempty"`
	Numeric      float64       `json:"numeric,omitempty"`
	Message      string        `json:"error,omitempty"`
}

// Validate enforces per-kind required response fields.
func (r Response) Validate() error {
	switch r.Kind {
	case RemoteObjectResult:
		if r.Registration == nil {
			return fmt.Errorf("%w: remote_object without registration", ErrBadResponse)
		}
		if strings.TrimSpace(r.Registration.ID) == "" {
			return fmt.Errorf("%w: registration missing id", ErrBadResponse)
		}
		if strings.TrimSpace(r.ResultType) == "" {
			return fmt.Errorf("%w: remote_object without result_type", ErrBadResponse)
		}
		return nil
	case ScalarResult:
		return nil
	case ErrorResult:
		if strings.TrimSpace(r.Message) == "" {
			return fmt.Errorf("%w: error result without message", ErrBadResponse)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrBadResponse, r.Kind)
	}
}

// EncodeCommand serializes one command record for the wire.
func EncodeCommand(cmd command.Command) ([]byte, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(cmd)
}

// DecodeCommand parses and validates one wire command record.
func DecodeCommand(raw []byte) (command.Command, error) {
	var cmd command.Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return command.Command{}, fmt.Errorf("%w: %v", ErrBadEnvelope, err)
	}
	if cmd.Kwargs == nil {
		cmd.Kwargs = map[string]command.Operand{}
	}
	if cmd.KwargTypes == nil {
		cmd.KwargTypes = map[string]string{}
	}
	if err := cmd.Validate(); err != nil {
		return command.Command{}, err
	}
	return cmd, nil
}

// EncodeResponse serializes one tagged response.
func EncodeResponse(resp Response) ([]byte, error) {
	if err := resp.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(resp)
}

// DecodeResponse parses and validates one tagged response.
func DecodeResponse(raw []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if err := resp.Validate(); err != nil {
		return Response{}, err
	}
	return resp, nil
}

// ErrorResponse builds the error variant from a failure.
func ErrorResponse(err error) Response {
	return Response{Kind: ErrorResult, Message: err.Error()}
}
