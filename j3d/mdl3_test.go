// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package j3d

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gviegas/bmdtool/endian"
	"github.com/gviegas/bmdtool/saferead"
	"github.com/gviegas/bmdtool/stream"
)

func TestMDL3RoundTrip(t *testing.T) {
	entries := []MDL3Entry{
		{Data: []byte{0x61, 0x10, 0x02, 0x00, 0x00}},
		{Data: []byte{0x08, 0x00, 0x00, 0x00, 0x01}},
	}

	w := stream.NewWriter(endian.Big, nil)
	w.WriteBytes(make([]byte, 8)) // stand-in for the section's own magic+size header
	EncodeMDL3(w, entries)
	buf := w.Bytes()

	r := saferead.New(stream.NewReader(buf, endian.Big, nil))
	r.S.Skip(8)
	got, err := DecodeMDL3(r, 8)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, entries[0].Data, got[0].Data)
	assert.Equal(t, entries[1].Data, got[1].Data)
}
