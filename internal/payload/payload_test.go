package payload

import (
	"encoding/json"
	"errors"
	"math/rand"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_Invariants(t *testing.T) {
	g := NewGenerator(rand.NewSource(42))

	for i := 0; i < 10000; i++ {
		req := g.Next()

		id, err := strconv.Atoi(req.EntityID)
		require.NoError(t, err, "entityID must be numeric")
		require.GreaterOrEqual(t, id, MinEntityID)
		require.Less(t, id, MaxEntityID)

		require.Contains(t, States, req.EntityContext.State)
		require.Contains(t, States, req.EntityContext.DLState)
		require.Equal(t, EntityType, req.EntityType)
		require.Equal(t, int64(2), req.FlagID)
		require.True(t, req.EnableDebug)
		require.NoError(t, req.Validate())
	}
}

func TestGenerator_StatesSampledIndependently(t *testing.T) {
	g := NewGenerator(rand.NewSource(7))
	pairs := make(map[[2]string]int)
	for i := 0; i < 5000; i++ {
		req := g.Next()
		pairs[[2]string{req.EntityContext.State, req.EntityContext.DLState}]++
	}
	// Every combination of the two fields shows up.
	assert.Len(t, pairs, len(States)*len(States))
}

func TestGenerator_Deterministic(t *testing.T) {
	a := NewGenerator(rand.NewSource(99))
	b := NewGenerator(rand.NewSource(99))
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Next(), b.Next())
	}
}

func TestMarshal_FieldNamesAndTypes(t *testing.T) {
	req := NewSeededGenerator(1).Next()
	body, err := req.Marshal()
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(body, &raw))

	assert.Len(t, raw, 5)
	assert.IsType(t, "", raw["entityID"])
	assert.Equal(t, "user", raw["entityType"])
	assert.Equal(t, float64(2), raw["flagID"])
	assert.Equal(t, true, raw["enableDebug"])

	ctx, ok := raw["entityContext"].(map[string]any)
	require.True(t, ok, "entityContext must be an object")
	assert.Len(t, ctx, 2)
	assert.IsType(t, "", ctx["state"])
	assert.IsType(t, "", ctx["dl_state"])
}

func TestMarshal_RoundTrip(t *testing.T) {
	g := NewGenerator(rand.NewSource(3))
	for i := 0; i < 50; i++ {
		req := g.Next()
		body, err := req.Marshal()
		require.NoError(t, err)

		got, err := Unmarshal(body)
		require.NoError(t, err)
		assert.Equal(t, req, got)
	}
}

func TestMarshal_ZeroValueKeepsAllFields(t *testing.T) {
	body, err := EvaluationRequest{}.Marshal()
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"entityID":"","entityType":"","entityContext":{"state":"","dl_state":""},"flagID":0,"enableDebug":false}`,
		string(body))
}

func TestUnmarshal_Invalid(t *testing.T) {
	_, err := Unmarshal([]byte(`{"entityID":`))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := EvaluationRequest{
		EntityID:      "12345",
		EntityType:    "user",
		EntityContext: EntityContext{State: "CA", DLState: "VA"},
		FlagID:        2,
		EnableDebug:   true,
	}

	tests := []struct {
		name   string
		mutate func(r *EvaluationRequest)
	}{
		{"non-numeric entityID", func(r *EvaluationRequest) { r.EntityID = "abc" }},
		{"entityID zero", func(r *EvaluationRequest) { r.EntityID = "0" }},
		{"entityID upper bound excluded", func(r *EvaluationRequest) { r.EntityID = "1000000" }},
		{"wrong entityType", func(r *EvaluationRequest) { r.EntityType = "device" }},
		{"unknown state", func(r *EvaluationRequest) { r.EntityContext.State = "TX" }},
		{"unknown dl_state", func(r *EvaluationRequest) { r.EntityContext.DLState = "" }},
		{"wrong flagID", func(r *EvaluationRequest) { r.FlagID = 3 }},
		{"debug disabled", func(r *EvaluationRequest) { r.EnableDebug = false }},
	}

	require.NoError(t, valid.Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			err := r.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidRequest))
		})
	}
}
