package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductionLogger_JSONFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	l := NewProductionLogger("robotd", "info", "json")
	l.SetOutput(buf)

	l.Info("arm connected", map[string]interface{}{"mode": "mock"})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "robotd", entry["service"])
	assert.Equal(t, "arm connected", entry["message"])
	assert.Equal(t, "mock", entry["mode"])
}

func TestProductionLogger_DebugGatedByLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	l := NewProductionLogger("robotd", "info", "text")
	l.SetOutput(buf)

	l.Debug("should not appear", nil)
	assert.Empty(t, buf.String())
}

func TestProductionLogger_WithComponentTagsLines(t *testing.T) {
	buf := &bytes.Buffer{}
	l := NewProductionLogger("robotd", "info", "text")
	l.SetOutput(buf)

	tagged := l.WithComponent("arm")
	tagged.Info("connected", nil)
	assert.True(t, strings.Contains(buf.String(), "robotd/arm"))
}

func TestContextWithRequestID_RoundTrips(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "R1")
	id, ok := RequestIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "R1", id)
}
