// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package j3d

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gviegas/bmdtool/endian"
	"github.com/gviegas/bmdtool/linear"
	"github.com/gviegas/bmdtool/saferead"
	"github.com/gviegas/bmdtool/stream"
)

func TestEVP1RoundTrip(t *testing.T) {
	var ibm linear.M4
	ibm.I()
	envs := []Envelope{
		{Weights: []Weight{{BoneID: 0, Weight: 0.5}, {BoneID: 1, Weight: 0.5}}, IBM: ibm},
		{Weights: []Weight{{BoneID: 2, Weight: 1}}, IBM: ibm},
	}

	w := stream.NewWriter(endian.Big, nil)
	EncodeEVP1(w, envs)
	r := saferead.New(stream.NewReader(w.Bytes(), endian.Big, nil))
	count, err := readCountHeader(r)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	got, err := DecodeEVP1(r, count)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, envs[0].Weights, got[0].Weights)
	assert.Equal(t, envs[1].Weights, got[1].Weights)
	assert.InDelta(t, ibm[0][0], got[0].IBM[0][0], 1e-6)
}

func TestDRW1OverCountRoundTrip(t *testing.T) {
	dms := []DrawMatrix{
		{IsEnvelope: false, Index: 3},
		{IsEnvelope: true, Index: 1},
	}
	envelopeCount := 5

	w := stream.NewWriter(endian.Big, nil)
	EncodeDRW1(w, dms, envelopeCount)
	r := saferead.New(stream.NewReader(w.Bytes(), endian.Big, nil))
	declared, err := readCountHeader(r)
	require.NoError(t, err)
	assert.Equal(t, len(dms)+envelopeCount, declared)

	got, err := DecodeDRW1(r, declared, envelopeCount)
	require.NoError(t, err)
	assert.Equal(t, dms, got)
}
