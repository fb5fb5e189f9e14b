package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jvmancuso/gridmesh/internal/tensor"
)

var ErrBadPayload = errors.New("wire: malformed object payload")

// ObjectPayload is the serialized form of one tracked instance. Data is
// present only when the sender serialized with includeData.
type ObjectPayload struct {
	ID        string    `json:"id"`
	Owners    []string  `json:"owners"`
	IsPointer bool      `json:"is_pointer"`
	Type      string    `json:"type"`
	Shape     []int     `json:"shape"`
	Data      []float64 `json:"data,omitempty"`
}

// SerializeObject encodes a tensor with its registration metadata.
// includeData controls whether the payload carries values or metadata only.
func SerializeObject(t *tensor.Tensor, includeData bool) ([]byte, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil tensor", ErrBadPayload)
	}
	p := ObjectPayload{
		ID:        t.ID,
		Owners:    append([]string{}, t.Owners...),
		IsPointer: t.IsPointer,
		Type:      tensor.TypeName,
		Shape:     append([]int{}, t.Shape...),
	}
	if includeData {
		p.Data = append([]float64{}, t.Data...)
	}
	return json.Marshal(p)
}

// DecodeObject parses one object payload back into an unregistered tensor
// plus its claimed registration metadata.
func DecodeObject(raw []byte) (ObjectPayload, *tensor.Tensor, error) {
	var p ObjectPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return ObjectPayload{}, nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if strings.TrimSpace(p.ID) == "" {
		return ObjectPayload{}, nil, fmt.Errorf("%w: missing id", ErrBadPayload)
	}
	if p.Type != tensor.TypeName {
		return ObjectPayload{}, nil, fmt.Errorf("%w: unknown type %q", ErrBadPayload, p.Type)
	}
	t := &tensor.Tensor{
		Shape: append([]int{}, p.Shape...),
		Data:  append([]float64{}, p.Data...),
	}
	return p, t, nil
}

// ObjectRequest asks an owner for the materialized payload of one id.
type ObjectRequest struct {
	ID string `json:"id"`
}

// EncodeObjectRequest serializes one object request.
func EncodeObjectRequest(id string) ([]byte, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: missing id", ErrBadPayload)
	}
	return json.Marshal(ObjectRequest{ID: id})
}

// DecodeObjectRequest parses one object request.
func DecodeObjectRequest(raw []byte) (ObjectRequest, error) {
	var req ObjectRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return ObjectRequest{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if strings.TrimSpace(req.ID) == "" {
		return ObjectRequest{}, fmt.Errorf("%w: missing id", ErrBadPayload)
	}
	return req, nil
}
