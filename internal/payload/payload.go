// Package payload builds the synthetic flag-evaluation requests sent by the load generator.
package payload

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"strconv"
	"time"
)

const (
	// EntityType is the entity type attached to every generated request.
	EntityType = "user"
	// FlagID is the flag every generated request asks to evaluate.
	FlagID int64 = 2

	// MinEntityID and MaxEntityID bound the generated entity IDs: [MinEntityID, MaxEntityID).
	MinEntityID = 1
	MaxEntityID = 1000000
)

// States is the pool both entity context fields are sampled from.
var States = []string{"CA", "NY", "VA"}

// ErrInvalidRequest is wrapped by every Validate failure.
var ErrInvalidRequest = errors.New("invalid evaluation request")

// EvaluationRequest is the body POSTed to /api/v1/evaluation.
// None of the fields are omitted on the wire.
type EvaluationRequest struct {
	EntityID      string        `json:"entityID" yaml:"entityID"`
	EntityType    string        `json:"entityType" yaml:"entityType"`
	EntityContext EntityContext `json:"entityContext" yaml:"entityContext"`
	FlagID        int64         `json:"flagID" yaml:"flagID"`
	EnableDebug   bool          `json:"enableDebug" yaml:"enableDebug"`
}

// EntityContext carries the two independently sampled state attributes.
type EntityContext struct {
	State   string `json:"state" yaml:"state"`
	DLState string `json:"dl_state" yaml:"dl_state"`
}

// Generator samples EvaluationRequests. It is not safe for concurrent use.
type Generator struct {
	rnd *rand.Rand
}

// NewGenerator returns a Generator drawing from src.
func NewGenerator(src rand.Source) *Generator {
	return &Generator{rnd: rand.New(src)}
}

// NewSeededGenerator returns a Generator seeded with seed, or with the current time when seed is 0.
func NewSeededGenerator(seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return NewGenerator(rand.NewSource(seed))
}

// Next samples one request.
func (g *Generator) Next() EvaluationRequest {
	id := MinEntityID + g.rnd.Intn(MaxEntityID-MinEntityID)
	return EvaluationRequest{
		EntityID:   strconv.Itoa(id),
		EntityType: EntityType,
		EntityContext: EntityContext{
			State:   g.pick(),
			DLState: g.pick(),
		},
		FlagID:      FlagID,
		EnableDebug: true,
	}
}

func (g *Generator) pick() string {
	return States[g.rnd.Intn(len(States))]
}

// Marshal encodes the request as a JSON object.
func (r EvaluationRequest) Marshal() ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal evaluation request: %w", err)
	}
	return b, nil
}

// Unmarshal decodes a JSON object produced by Marshal.
func Unmarshal(data []byte) (EvaluationRequest, error) {
	var r EvaluationRequest
	if err := json.Unmarshal(data, &r); err != nil {
		return EvaluationRequest{}, fmt.Errorf("failed to unmarshal evaluation request: %w", err)
	}
	return r, nil
}

// Validate reports whether r satisfies the generator's invariants.
// It is only ever applied to requests, never to service responses.
func (r EvaluationRequest) Validate() error {
	id, err := strconv.Atoi(r.EntityID)
	if err != nil {
		return fmt.Errorf("%w: entityID %q is not numeric", ErrInvalidRequest, r.EntityID)
	}
	if id < MinEntityID || id >= MaxEntityID {
		return fmt.Errorf("%w: entityID %d out of range [%d, %d)", ErrInvalidRequest, id, MinEntityID, MaxEntityID)
	}
	if r.EntityType != EntityType {
		return fmt.Errorf("%w: entityType must be %q, got %q", ErrInvalidRequest, EntityType, r.EntityType)
	}
	if !slices.Contains(States, r.EntityContext.State) {
		return fmt.Errorf("%w: state %q not in %v", ErrInvalidRequest, r.EntityContext.State, States)
	}
	if !slices.Contains(States, r.EntityContext.DLState) {
		return fmt.Errorf("%w: dl_state %q not in %v", ErrInvalidRequest, r.EntityContext.DLState, States)
	}
	if r.FlagID != FlagID {
		return fmt.Errorf("%w: flagID must be %d, got %d", ErrInvalidRequest, FlagID, r.FlagID)
	}
	if !r.EnableDebug {
		return fmt.Errorf("%w: enableDebug must be true", ErrInvalidRequest)
	}
	return nil
}
