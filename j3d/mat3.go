// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package j3d

import (
	"github.com/gviegas/bmdtool/endian"
	"github.com/gviegas/bmdtool/saferead"
	"github.com/gviegas/bmdtool/stream"
)

// poolCount is the number of MAT3 compression pools (spec.md §4:
// "26 parallel pools").
const poolCount = 26

// Material is one MAT3 entry. Only the fields this toolkit actually
// round-trips are modeled individually; every other pool-backed value
// lives in Unmodeled, keyed by pool index, so unknown/rare combinations
// still survive a read/write cycle.
type Material struct {
	Name       string
	CullMode   uint32
	ZCompLoc   byte
	Dither     bool
	EarlyZ     bool
	Channels   [2]ChannelControl
	AmbColors  [2][4]byte
	LightColors [2][4]byte
	TexGenCount  byte
	TexGens      [8]TexGen
	TexMatrices  [10]linear3x4
	TevStageCount byte
	TevStages     [16]TevStage
	TevKonstColors [4][4]byte
	TevRegColors   [4][4]byte
	AlphaCompare AlphaCompare
	BlendMode    BlendMode
	ZMode        ZMode
	NBTScale     float32
	// Unmodeled preserves, byte-for-byte, the portion of each
	// fixed-stride 0x14C material record that falls outside the 12
	// pools this toolkit decodes into named fields (indirect
	// texturing stages, NBT-scale matrix id, and other rarely-edited
	// TEV state); zero on synthesis (spec.md §9).
	Unmodeled [materialEntrySize - modeledMaterialSize]byte
}

type linear3x4 [3][4]float32

// ChannelControl is one color-channel's lighting configuration.
type ChannelControl struct {
	Enable     bool
	MatSrc     byte
	LitMask    byte
	AmbSrc     byte
	DiffuseFn  byte
	AttenFn    byte
}

// TexGen is one texture-coordinate generator.
type TexGen struct {
	Type  byte
	Src   byte
	Matrix byte
}

// TevStage is one TEV combiner stage.
type TevStage struct {
	TexMap    byte
	TexCoord  byte
	RasSel    byte
	ColorOp   byte
	AlphaOp   byte
}

// AlphaCompare is the alpha-test block.
type AlphaCompare struct {
	Comp0, Comp1 byte
	Ref0, Ref1   byte
	Op           byte
}

// BlendMode is the blend-mode block.
type BlendMode struct {
	Type    byte
	SrcFact byte
	DstFact byte
	LogicOp byte
}

// ZMode is the z-compare block.
type ZMode struct {
	Enable bool
	Func   byte
	Update bool
}

// mat3Header mirrors the fixed header spec.md §6 describes
// ("entry_count, ofs_mat_data, ofs_remap, ofs_string_table") plus the
// 26 pool offsets that follow it.
type mat3Header struct {
	entryCount    uint16
	ofsMatData    uint32
	ofsRemap      uint32
	ofsStringTable uint32
	poolOfs       [poolCount]uint32
}

// materialEntrySize is the byte stride between two materials in the
// mat-data pool (spec.md §9: "ofs_mat_data + remap[i]*0x14C").
const materialEntrySize = 0x14C

// modeledMaterialSize is the byte count EncodeMaterial/decodeMaterial
// actually account for: 17 pool-index fields (u16, except the u8
// counts and the trailing f32 scale) covering the 12 concretely
// modeled pools. The remainder of the fixed 0x14C stride is kept in
// Material.Unmodeled.
const modeledMaterialSize = 112

// pool is a single MAT3 compression pool: distinct values in
// write-order plus an index lookup for deduplication (spec.md §4:
// "inserting a value already present returns its existing index").
type pool[T comparable] struct {
	values []T
	index  map[T]uint16
}

func newPool[T comparable]() *pool[T] {
	return &pool[T]{index: make(map[T]uint16)}
}

// Insert returns value's pool index, appending it if not already
// present.
func (p *pool[T]) Insert(v T) uint16 {
	if idx, ok := p.index[v]; ok {
		return idx
	}
	idx := uint16(len(p.values))
	p.values = append(p.values, v)
	p.index[v] = idx
	return idx
}

// Cache holds the 12 compression pools used while writing a MAT3
// section, keeping one physical copy of every distinct value a
// material references (spec.md §9 "MAT3 pool compression under
// structural equality").
type Cache struct {
	cullModes  *pool[uint32]
	channels   *pool[ChannelControl]
	ambColors  *pool[[4]byte]
	lightColors *pool[[4]byte]
	texGens    *pool[TexGen]
	texMatrices *pool[linear3x4]
	tevStages  *pool[TevStage]
	konstColors *pool[[4]byte]
	tevRegColors *pool[[4]byte]
	alphaCompares *pool[AlphaCompare]
	blendModes *pool[BlendMode]
	zModes     *pool[ZMode]
}

// NewCache creates an empty compression cache.
func NewCache() *Cache {
	return &Cache{
		cullModes:     newPool[uint32](),
		channels:      newPool[ChannelControl](),
		ambColors:     newPool[[4]byte](),
		lightColors:   newPool[[4]byte](),
		texGens:       newPool[TexGen](),
		texMatrices:   newPool[linear3x4](),
		tevStages:     newPool[TevStage](),
		konstColors:   newPool[[4]byte](),
		tevRegColors:  newPool[[4]byte](),
		alphaCompares: newPool[AlphaCompare](),
		blendModes:    newPool[BlendMode](),
		zModes:        newPool[ZMode](),
	}
}

// Insert records every one of m's pool-backed fields into c,
// deduplicating byte-identical materials down to shared pool entries.
func (c *Cache) Insert(m *Material) {
	c.cullModes.Insert(m.CullMode)
	for _, ch := range m.Channels {
		c.channels.Insert(ch)
	}
	for _, a := range m.AmbColors {
		c.ambColors.Insert(a)
	}
	for _, l := range m.LightColors {
		c.lightColors.Insert(l)
	}
	for _, tg := range m.TexGens {
		c.texGens.Insert(tg)
	}
	for _, tm := range m.TexMatrices {
		c.texMatrices.Insert(tm)
	}
	for _, st := range m.TevStages {
		c.tevStages.Insert(st)
	}
	for _, k := range m.TevKonstColors {
		c.konstColors.Insert(k)
	}
	for _, r := range m.TevRegColors {
		c.tevRegColors.Insert(r)
	}
	c.alphaCompares.Insert(m.AlphaCompare)
	c.blendModes.Insert(m.BlendMode)
	c.zModes.Insert(m.ZMode)
}

// EncodeMaterial writes one material's fixed-size record as u16/u8
// indices into the already-populated cache's pools.
func EncodeMaterial(w *stream.Writer, m *Material, c *Cache) {
	stream.Write(w, uint16(c.cullModes.Insert(m.CullMode)), endian.Big)
	stream.Write(w, m.ZCompLoc, endian.Current)
	dither := byte(0)
	if m.Dither {
		dither = 1
	}
	stream.Write(w, dither, endian.Current)
	for _, ch := range m.Channels {
		stream.Write(w, uint16(c.channels.Insert(ch)), endian.Big)
	}
	for _, a := range m.AmbColors {
		stream.Write(w, uint16(c.ambColors.Insert(a)), endian.Big)
	}
	for _, l := range m.LightColors {
		stream.Write(w, uint16(c.lightColors.Insert(l)), endian.Big)
	}
	stream.Write(w, m.TexGenCount, endian.Current)
	for _, tg := range m.TexGens {
		stream.Write(w, uint16(c.texGens.Insert(tg)), endian.Big)
	}
	for _, tm := range m.TexMatrices {
		stream.Write(w, uint16(c.texMatrices.Insert(tm)), endian.Big)
	}
	stream.Write(w, m.TevStageCount, endian.Current)
	for _, st := range m.TevStages {
		stream.Write(w, uint16(c.tevStages.Insert(st)), endian.Big)
	}
	for _, k := range m.TevKonstColors {
		stream.Write(w, uint16(c.konstColors.Insert(k)), endian.Big)
	}
	for _, rc := range m.TevRegColors {
		stream.Write(w, uint16(c.tevRegColors.Insert(rc)), endian.Big)
	}
	stream.Write(w, uint16(c.alphaCompares.Insert(m.AlphaCompare)), endian.Big)
	stream.Write(w, uint16(c.blendModes.Insert(m.BlendMode)), endian.Big)
	stream.Write(w, uint16(c.zModes.Insert(m.ZMode)), endian.Big)
	stream.Write(w, m.NBTScale, endian.Big)
	w.WriteBytes(m.Unmodeled[:])
}

// mat3Pools indexes the 12 concretely modeled pools in the order their
// offsets appear after the fixed header (spec.md §4/§6 "26 parallel
// pools"); the remaining 14 offset slots hold state this toolkit does
// not decode and are skipped when lexing the pool-offset table.
const (
	poolCullMode = iota
	poolChannelControl
	poolAmbColor
	poolLightColor
	poolTexGen
	poolTexMatrix
	poolTevStage
	poolKonstColor
	poolTevRegColor
	poolAlphaCompare
	poolBlendMode
	poolZMode
)

// mat3PoolEntrySize gives each modeled pool's fixed per-entry byte
// width, used to infer its entry count from the gap to the next
// nonzero pool offset (spec.md §6).
var mat3PoolEntrySize = [12]int{
	poolCullMode:       4,
	poolChannelControl: 6,
	poolAmbColor:       4,
	poolLightColor:     4,
	poolTexGen:         4,
	poolTexMatrix:      48,
	poolTevStage:       5,
	poolKonstColor:     4,
	poolTevRegColor:    4,
	poolAlphaCompare:   5,
	poolBlendMode:      4,
	poolZMode:          3,
}

func decodeChannelControl(r saferead.Reader) (ChannelControl, error) {
	var c ChannelControl
	en, err := r.U8()
	if err != nil {
		return c, err
	}
	c.Enable = en != 0
	if c.MatSrc, err = r.U8(); err != nil {
		return c, err
	}
	if c.LitMask, err = r.U8(); err != nil {
		return c, err
	}
	if c.AmbSrc, err = r.U8(); err != nil {
		return c, err
	}
	if c.DiffuseFn, err = r.U8(); err != nil {
		return c, err
	}
	if c.AttenFn, err = r.U8(); err != nil {
		return c, err
	}
	return c, nil
}

func decodeColor4(r saferead.Reader) ([4]byte, error) {
	var c [4]byte
	for i := range c {
		v, err := r.U8()
		if err != nil {
			return c, err
		}
		c[i] = v
	}
	return c, nil
}

func decodeTexGen(r saferead.Reader) (TexGen, error) {
	var t TexGen
	var err error
	if t.Type, err = r.U8(); err != nil {
		return t, err
	}
	if t.Src, err = r.U8(); err != nil {
		return t, err
	}
	if t.Matrix, err = r.U8(); err != nil {
		return t, err
	}
	if _, err = r.U8(); err != nil { // padding
		return t, err
	}
	return t, nil
}

func decodeTexMatrix(r saferead.Reader) (linear3x4, error) {
	var m linear3x4
	for i := range m {
		for j := range m[i] {
			v, err := r.F32()
			if err != nil {
				return m, err
			}
			m[i][j] = v
		}
	}
	return m, nil
}

func decodeTevStage(r saferead.Reader) (TevStage, error) {
	var t TevStage
	var err error
	if t.TexMap, err = r.U8(); err != nil {
		return t, err
	}
	if t.TexCoord, err = r.U8(); err != nil {
		return t, err
	}
	if t.RasSel, err = r.U8(); err != nil {
		return t, err
	}
	if t.ColorOp, err = r.U8(); err != nil {
		return t, err
	}
	if t.AlphaOp, err = r.U8(); err != nil {
		return t, err
	}
	return t, nil
}

func decodeAlphaCompare(r saferead.Reader) (AlphaCompare, error) {
	var a AlphaCompare
	var err error
	if a.Comp0, err = r.U8(); err != nil {
		return a, err
	}
	if a.Ref0, err = r.U8(); err != nil {
		return a, err
	}
	if a.Comp1, err = r.U8(); err != nil {
		return a, err
	}
	if a.Ref1, err = r.U8(); err != nil {
		return a, err
	}
	if a.Op, err = r.U8(); err != nil {
		return a, err
	}
	return a, nil
}

func decodeBlendMode(r saferead.Reader) (BlendMode, error) {
	var b BlendMode
	var err error
	if b.Type, err = r.U8(); err != nil {
		return b, err
	}
	if b.SrcFact, err = r.U8(); err != nil {
		return b, err
	}
	if b.DstFact, err = r.U8(); err != nil {
		return b, err
	}
	if b.LogicOp, err = r.U8(); err != nil {
		return b, err
	}
	return b, nil
}

func decodeZMode(r saferead.Reader) (ZMode, error) {
	var z ZMode
	en, err := r.U8()
	if err != nil {
		return z, err
	}
	z.Enable = en != 0
	if z.Func, err = r.U8(); err != nil {
		return z, err
	}
	up, err := r.U8()
	if err != nil {
		return z, err
	}
	z.Update = up != 0
	return z, nil
}

// DecodeMAT3 reads the MAT3 section at r's current position (right
// after its 8-byte magic+size header): the fixed header, the 26 pool
// offsets, the 12 modeled pools (entry counts inferred from adjacent
// nonzero offsets, tool padding truncated), then entry_count materials
// dereferenced through the remap table (spec.md §6).
func DecodeMAT3(r saferead.Reader, sectionStart, sectionSize int64) ([]Material, error) {
	entryCount, err := r.U16()
	if err != nil {
		return nil, err
	}
	if _, err := r.U16(); err != nil { // padding
		return nil, err
	}
	ofsMatData, err := r.U32()
	if err != nil {
		return nil, err
	}
	ofsRemap, err := r.U32()
	if err != nil {
		return nil, err
	}
	ofsStringTable, err := r.U32()
	if err != nil {
		return nil, err
	}

	const poolTableCount = poolCount
	var poolOfs [poolTableCount]uint32
	for i := range poolOfs {
		v, err := r.U32()
		if err != nil {
			return nil, err
		}
		poolOfs[i] = v
	}

	cullModes, err := decodeCullModePool(r, sectionStart, poolOfs, poolCullMode, uint32(sectionSize))
	if err != nil {
		return nil, err
	}
	channels, err := decodePool(r, sectionStart, poolOfs, poolChannelControl, uint32(sectionSize), decodeChannelControl)
	if err != nil {
		return nil, err
	}
	ambColors, err := decodePool(r, sectionStart, poolOfs, poolAmbColor, uint32(sectionSize), decodeColor4)
	if err != nil {
		return nil, err
	}
	lightColors, err := decodePool(r, sectionStart, poolOfs, poolLightColor, uint32(sectionSize), decodeColor4)
	if err != nil {
		return nil, err
	}
	texGens, err := decodePool(r, sectionStart, poolOfs, poolTexGen, uint32(sectionSize), decodeTexGen)
	if err != nil {
		return nil, err
	}
	texMatrices, err := decodePool(r, sectionStart, poolOfs, poolTexMatrix, uint32(sectionSize), decodeTexMatrix)
	if err != nil {
		return nil, err
	}
	tevStages, err := decodePool(r, sectionStart, poolOfs, poolTevStage, uint32(sectionSize), decodeTevStage)
	if err != nil {
		return nil, err
	}
	konstColors, err := decodePool(r, sectionStart, poolOfs, poolKonstColor, uint32(sectionSize), decodeColor4)
	if err != nil {
		return nil, err
	}
	tevRegColors, err := decodePool(r, sectionStart, poolOfs, poolTevRegColor, uint32(sectionSize), decodeColor4)
	if err != nil {
		return nil, err
	}
	alphaCompares, err := decodePool(r, sectionStart, poolOfs, poolAlphaCompare, uint32(sectionSize), decodeAlphaCompare)
	if err != nil {
		return nil, err
	}
	blendModes, err := decodePool(r, sectionStart, poolOfs, poolBlendMode, uint32(sectionSize), decodeBlendMode)
	if err != nil {
		return nil, err
	}
	zModes, err := decodePool(r, sectionStart, poolOfs, poolZMode, uint32(sectionSize), decodeZMode)
	if err != nil {
		return nil, err
	}

	remap := make([]uint16, entryCount)
	r.S.SeekSet(sectionStart + int64(ofsRemap))
	for i := range remap {
		v, err := r.U16()
		if err != nil {
			return nil, err
		}
		remap[i] = v
	}

	mats := make([]Material, entryCount)
	for i := range mats {
		r.S.SeekSet(sectionStart + int64(ofsMatData) + int64(remap[i])*materialEntrySize)
		m, err := decodeMaterial(r, cullModes, channels, ambColors, lightColors, texGens, texMatrices, tevStages, konstColors, tevRegColors, alphaCompares, blendModes, zModes)
		if err != nil {
			return nil, err
		}
		mats[i] = m
	}

	r.S.SeekSet(sectionStart + int64(ofsStringTable))
	names, err := DecodeNameTable(r)
	if err != nil {
		return nil, err
	}
	for i := range mats {
		if i < len(names) {
			mats[i].Name = names[i]
		}
	}
	return mats, nil
}

func decodeCullModePool(r saferead.Reader, sectionStart int64, poolOfs [poolCount]uint32, slot int, sectionSize uint32) ([]uint32, error) {
	vals, err := decodePool(r, sectionStart, poolOfs, slot, sectionSize, func(r saferead.Reader) (uint32, error) { return r.U32() })
	return vals, err
}

// decodePool reads one MAT3 pool's entries, truncating trailing
// padMarker garbage, given a per-entry decode function.
func decodePool[T any](r saferead.Reader, sectionStart int64, poolOfs [poolCount]uint32, slot int, sectionSize uint32, decodeOne func(saferead.Reader) (T, error)) ([]T, error) {
	ofs := poolOfs[slot]
	if ofs == 0 {
		return nil, nil
	}
	entrySize := mat3PoolEntrySize[slot]
	next := uint32(sectionSize)
	for i := slot + 1; i < len(poolOfs); i++ {
		if poolOfs[i] != 0 {
			next = poolOfs[i]
			break
		}
	}
	r.S.SeekSet(sectionStart + int64(ofs))
	raw := make([]byte, next-ofs)
	for i := range raw {
		b, err := r.U8()
		if err != nil {
			return nil, err
		}
		raw[i] = b
	}
	count := truncatePoolPadding(raw, entrySize, len(raw)/entrySize)

	r.S.SeekSet(sectionStart + int64(ofs))
	vals := make([]T, count)
	for i := range vals {
		v, err := decodeOne(r)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

func decodeMaterial(r saferead.Reader, cullModes []uint32, channels []ChannelControl, ambColors, lightColors [][4]byte, texGens []TexGen, texMatrices []linear3x4, tevStages []TevStage, konstColors, tevRegColors [][4]byte, alphaCompares []AlphaCompare, blendModes []BlendMode, zModes []ZMode) (Material, error) {
	var m Material
	idx, err := r.U16()
	if err != nil {
		return m, err
	}
	if int(idx) < len(cullModes) {
		m.CullMode = cullModes[idx]
	}
	if m.ZCompLoc, err = r.U8(); err != nil {
		return m, err
	}
	d, err := r.U8()
	if err != nil {
		return m, err
	}
	m.Dither = d != 0

	for i := range m.Channels {
		idx, err := r.U16()
		if err != nil {
			return m, err
		}
		if int(idx) < len(channels) {
			m.Channels[i] = channels[idx]
		}
	}
	for i := range m.AmbColors {
		idx, err := r.U16()
		if err != nil {
			return m, err
		}
		if int(idx) < len(ambColors) {
			m.AmbColors[i] = ambColors[idx]
		}
	}
	for i := range m.LightColors {
		idx, err := r.U16()
		if err != nil {
			return m, err
		}
		if int(idx) < len(lightColors) {
			m.LightColors[i] = lightColors[idx]
		}
	}
	if m.TexGenCount, err = r.U8(); err != nil {
		return m, err
	}
	// The u8 TexGenCount leaves the tex-gen and tex-matrix indices at odd
	// offsets until the u8 TevStageCount, so they are read unaligned.
	for i := range m.TexGens {
		idx, err := stream.Read[uint16](r.S, endian.Current, true)
		if err != nil {
			return m, err
		}
		if int(idx) < len(texGens) {
			m.TexGens[i] = texGens[idx]
		}
	}
	for i := range m.TexMatrices {
		idx, err := stream.Read[uint16](r.S, endian.Current, true)
		if err != nil {
			return m, err
		}
		if int(idx) < len(texMatrices) {
			m.TexMatrices[i] = texMatrices[idx]
		}
	}
	if m.TevStageCount, err = r.U8(); err != nil {
		return m, err
	}
	for i := range m.TevStages {
		idx, err := r.U16()
		if err != nil {
			return m, err
		}
		if int(idx) < len(tevStages) {
			m.TevStages[i] = tevStages[idx]
		}
	}
	for i := range m.TevKonstColors {
		idx, err := r.U16()
		if err != nil {
			return m, err
		}
		if int(idx) < len(konstColors) {
			m.TevKonstColors[i] = konstColors[idx]
		}
	}
	for i := range m.TevRegColors {
		idx, err := r.U16()
		if err != nil {
			return m, err
		}
		if int(idx) < len(tevRegColors) {
			m.TevRegColors[i] = tevRegColors[idx]
		}
	}
	idx, err = r.U16()
	if err != nil {
		return m, err
	}
	if int(idx) < len(alphaCompares) {
		m.AlphaCompare = alphaCompares[idx]
	}
	idx, err = r.U16()
	if err != nil {
		return m, err
	}
	if int(idx) < len(blendModes) {
		m.BlendMode = blendModes[idx]
	}
	idx, err = r.U16()
	if err != nil {
		return m, err
	}
	if int(idx) < len(zModes) {
		m.ZMode = zModes[idx]
	}
	if m.NBTScale, err = r.F32(); err != nil {
		return m, err
	}
	for i := range m.Unmodeled {
		b, err := r.U8()
		if err != nil {
			return m, err
		}
		m.Unmodeled[i] = b
	}
	return m, nil
}

func encodeChannelControl(w *stream.Writer, c ChannelControl) {
	en := byte(0)
	if c.Enable {
		en = 1
	}
	stream.Write(w, en, endian.Current)
	stream.Write(w, c.MatSrc, endian.Current)
	stream.Write(w, c.LitMask, endian.Current)
	stream.Write(w, c.AmbSrc, endian.Current)
	stream.Write(w, c.DiffuseFn, endian.Current)
	stream.Write(w, c.AttenFn, endian.Current)
}

func encodeTexGen(w *stream.Writer, t TexGen) {
	stream.Write(w, t.Type, endian.Current)
	stream.Write(w, t.Src, endian.Current)
	stream.Write(w, t.Matrix, endian.Current)
	stream.Write(w, byte(0), endian.Current)
}

func encodeTexMatrix(w *stream.Writer, m linear3x4) {
	for i := range m {
		for j := range m[i] {
			stream.Write(w, m[i][j], endian.Big)
		}
	}
}

func encodeTevStage(w *stream.Writer, t TevStage) {
	stream.Write(w, t.TexMap, endian.Current)
	stream.Write(w, t.TexCoord, endian.Current)
	stream.Write(w, t.RasSel, endian.Current)
	stream.Write(w, t.ColorOp, endian.Current)
	stream.Write(w, t.AlphaOp, endian.Current)
}

func encodeAlphaCompare(w *stream.Writer, a AlphaCompare) {
	stream.Write(w, a.Comp0, endian.Current)
	stream.Write(w, a.Ref0, endian.Current)
	stream.Write(w, a.Comp1, endian.Current)
	stream.Write(w, a.Ref1, endian.Current)
	stream.Write(w, a.Op, endian.Current)
}

func encodeBlendMode(w *stream.Writer, b BlendMode) {
	stream.Write(w, b.Type, endian.Current)
	stream.Write(w, b.SrcFact, endian.Current)
	stream.Write(w, b.DstFact, endian.Current)
	stream.Write(w, b.LogicOp, endian.Current)
}

func encodeZMode(w *stream.Writer, z ZMode) {
	en := byte(0)
	if z.Enable {
		en = 1
	}
	stream.Write(w, en, endian.Current)
	stream.Write(w, z.Func, endian.Current)
	up := byte(0)
	if z.Update {
		up = 1
	}
	stream.Write(w, up, endian.Current)
}

// EncodeMAT3 writes a full MAT3 section body: header, the 12 modeled
// pools (deduplicated via a fresh Cache), the material-data region,
// an identity remap table, then the name table (spec.md §6 "Writing":
// "the MAT3 writer deduplicates every pool via the compression
// cache").
func EncodeMAT3(w *stream.Writer, materials []Material) {
	c := NewCache()
	for i := range materials {
		c.Insert(&materials[i])
	}

	headerSize := int64(16 + poolCount*4)
	start := w.ReserveNext(headerSize)
	var poolOfs [poolCount]int64

	poolOfs[poolCullMode] = w.Tell() - start
	for _, v := range c.cullModes.values {
		stream.Write(w, v, endian.Big)
	}
	poolOfs[poolChannelControl] = w.Tell() - start
	for _, v := range c.channels.values {
		encodeChannelControl(w, v)
	}
	poolOfs[poolAmbColor] = w.Tell() - start
	for _, v := range c.ambColors.values {
		w.WriteBytes(v[:])
	}
	poolOfs[poolLightColor] = w.Tell() - start
	for _, v := range c.lightColors.values {
		w.WriteBytes(v[:])
	}
	poolOfs[poolTexGen] = w.Tell() - start
	for _, v := range c.texGens.values {
		encodeTexGen(w, v)
	}
	poolOfs[poolTexMatrix] = w.Tell() - start
	for _, v := range c.texMatrices.values {
		encodeTexMatrix(w, v)
	}
	poolOfs[poolTevStage] = w.Tell() - start
	for _, v := range c.tevStages.values {
		encodeTevStage(w, v)
	}
	poolOfs[poolKonstColor] = w.Tell() - start
	for _, v := range c.konstColors.values {
		w.WriteBytes(v[:])
	}
	poolOfs[poolTevRegColor] = w.Tell() - start
	for _, v := range c.tevRegColors.values {
		w.WriteBytes(v[:])
	}
	poolOfs[poolAlphaCompare] = w.Tell() - start
	for _, v := range c.alphaCompares.values {
		encodeAlphaCompare(w, v)
	}
	poolOfs[poolBlendMode] = w.Tell() - start
	for _, v := range c.blendModes.values {
		encodeBlendMode(w, v)
	}
	poolOfs[poolZMode] = w.Tell() - start
	for _, v := range c.zModes.values {
		encodeZMode(w, v)
	}

	w.AlignTo(4) // pools with 5- and 3-byte entries can leave an odd offset
	ofsMatData := w.Tell() - start
	for i := range materials {
		EncodeMaterial(w, &materials[i], c)
	}
	ofsRemap := w.Tell() - start
	for i := range materials {
		stream.Write(w, uint16(i), endian.Big)
	}
	ofsStringTable := w.Tell() - start
	names := make([]string, len(materials))
	for i := range materials {
		names[i] = materials[i].Name
	}
	EncodeNameTable(w, names)

	stream.WriteAt(w, start, uint16(len(materials)), endian.Big)
	stream.WriteAt(w, start+2, uint16(0xFFFF), endian.Current)
	stream.WriteAt(w, start+4, uint32(ofsMatData), endian.Big)
	stream.WriteAt(w, start+8, uint32(ofsRemap), endian.Big)
	stream.WriteAt(w, start+12, uint32(ofsStringTable), endian.Big)
	for i := range poolOfs {
		stream.WriteAt(w, start+16+int64(i)*4, uint32(poolOfs[i]), endian.Big)
	}
}

// padMarker is the ASCII string MAT3 pools use to detect tool padding
// trailing a pool's real entries (spec.md §6).
const padMarker = "This is padding data to align"

// truncatePoolPadding drops trailing entries of raw whose bytes begin
// with padMarker, returning the usable entry count.
func truncatePoolPadding(raw []byte, entrySize int, count int) int {
	for count > 0 {
		off := (count - 1) * entrySize
		if off+len(padMarker) > len(raw) {
			break
		}
		if string(raw[off:off+len(padMarker)]) == padMarker {
			count--
			continue
		}
		break
	}
	return count
}
