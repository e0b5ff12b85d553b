package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/agenthands/evidence/internal/core/model"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	src := model.Source{UUID: "src-1", Name: "notes", Text: "some text", CreatedAt: time.Now().UTC()}
	assert.NoError(t, st.SaveSource(ctx, src))

	q := 0.8
	units := []model.EvidenceUnit{
		{UUID: "unit-1", SourceUUID: "src-1", Snippet: "some", QualityScore: &q},
		{UUID: "unit-2", SourceUUID: "src-1", Snippet: "text"},
	}
	assert.NoError(t, st.SaveUnits(ctx, units))

	got, err := st.GetSource(ctx, "src-1")
	assert.NoError(t, err)
	assert.Equal(t, "notes", got.Name)

	gotUnits, err := st.GetUnitsBySource(ctx, "src-1")
	assert.NoError(t, err)
	assert.Len(t, gotUnits, 2)
	assert.Equal(t, "unit-1", gotUnits[0].UUID)

	assert.NoError(t, st.Close(ctx))
}

func TestMemoryStoreUnknownSource(t *testing.T) {
	st := NewMemoryStore()

	_, err := st.GetSource(context.Background(), "missing")
	assert.ErrorContains(t, err, "not found")

	units, err := st.GetUnitsBySource(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Empty(t, units)
}
