package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/capacity-engine/capacity"
	"github.com/warp/capacity-engine/generic"
	"github.com/warp/capacity-engine/generic/store"
	"github.com/warp/capacity-engine/internal/config"
)

func TestNumAndPct(t *testing.T) {
	assert.Equal(t, "-", num(generic.Undefined, 2))
	assert.Equal(t, "10.30", num(generic.MustValue("10.3"), 2))
	assert.Equal(t, "-", pct(generic.Undefined))
	assert.Equal(t, "62.5%", pct(generic.MustValue("0.625")))
}

func TestPrintResult(t *testing.T) {
	engine, err := capacity.NewEngine(capacity.DefaultSettings(), nil)
	require.NoError(t, err)
	b := capacity.DefaultUnitBaseline()
	b.Unit = "Aitkin"
	result := engine.ComputeBaselines([]capacity.UnitBaseline{b}, nil, nil)
	result.Unmatched = []string{"Nope"}
	result.Corrections = []generic.Correction{{Table: "arrivals", Row: 2, Column: "Count", Raw: "x"}}

	var buf bytes.Buffer
	printResult(&buf, result)

	out := buf.String()
	assert.Contains(t, out, "Aitkin")
	assert.Contains(t, out, capacity.DefaultStateName)
	assert.Contains(t, out, "Nope")
	assert.Contains(t, out, "[arrivals row 2] Count")
}

func TestPrintHistory_Empty(t *testing.T) {
	var buf bytes.Buffer
	printHistory(&buf, nil)
	assert.Equal(t, "History is empty.\n", buf.String())
}

func TestOpenStore_Memory(t *testing.T) {
	s, closeStore, err := openStore(context.Background(), config.StoreConfig{Driver: "memory"})
	require.NoError(t, err)
	defer closeStore()
	assert.IsType(t, &store.Memory{}, s)
}
