package bmd

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motion-matching-prep/internal/mathutil"
)

type builder struct{ bytes.Buffer }

func (b *builder) name(raw []byte) {
	var buf [nameSize]byte
	copy(buf[:], raw)
	b.Write(buf[:])
}

func (b *builder) i16(v int) {
	_ = binary.Write(&b.Buffer, binary.LittleEndian, int16(v))
}

func (b *builder) f32(vs ...float32) {
	for _, v := range vs {
		_ = binary.Write(&b.Buffer, binary.LittleEndian, v)
	}
}

// sampleModel encodes a model body with one mesh, two actions (3 keys with
// locked root positions, and an empty one) and three bones, the middle one a
// dummy.
func sampleModel() []byte {
	var b builder
	b.name([]byte("Player"))
	b.i16(1) // meshes
	b.i16(3) // bones
	b.i16(2) // actions

	// Mesh: 1 vertex, 1 normal, 0 uvs, 1 triangle, texture index.
	b.i16(1)
	b.i16(1)
	b.i16(0)
	b.i16(1)
	b.i16(0)
	b.Write(make([]byte, vertexSize+normalSize+triangleSize))
	b.name([]byte(`skin\body.jpg`))

	b.i16(3)
	b.WriteByte(1)
	for k := 0; k < 3; k++ {
		b.f32(float32(k), 0, 0)
	}
	b.i16(0)
	b.WriteByte(0)

	// Bone 0, Korean name "가" (EUC-KR B0 A1).
	b.WriteByte(0)
	b.name([]byte{0xB0, 0xA1})
	b.i16(-1)
	for k := 0; k < 3; k++ {
		b.f32(0, float32(k), 0)
	}
	for k := 0; k < 3; k++ {
		b.f32(0, 0, 0)
	}

	// Bone 1, dummy.
	b.WriteByte(1)

	// Bone 2, child of bone 0, rotated 90° about Z on every key.
	b.WriteByte(0)
	b.name([]byte("Bip01 Pelvis"))
	b.i16(0)
	for k := 0; k < 3; k++ {
		b.f32(0, 0, 90)
	}
	for k := 0; k < 3; k++ {
		b.f32(0, 0, math.Pi/2)
	}
	return b.Bytes()
}

func v10(body []byte) []byte {
	return append([]byte{'B', 'M', 'D', 10}, body...)
}

func TestDecodeV10(t *testing.T) {
	m, err := Decode(v10(sampleModel()), Options{})
	require.NoError(t, err)

	assert.Equal(t, "Player", m.Name)
	assert.Equal(t, byte(10), m.Version)
	require.Len(t, m.Meshes, 1)
	assert.Equal(t, MeshInfo{Vertices: 1, Normals: 1, Triangles: 1, Texture: "skin/body.jpg"}, m.Meshes[0])

	require.Len(t, m.Actions, 2)
	assert.Equal(t, 3, m.Actions[0].Keys)
	assert.Equal(t, [3]float32{2, 0, 0}, m.Actions[0].LockPositions[2])
	assert.Nil(t, m.Actions[1].LockPositions)

	require.Len(t, m.Bones, 3)
	assert.Equal(t, "가", m.Bones[0].Name)
	assert.True(t, m.Bones[1].IsDummy)
	assert.Equal(t, "Bip01 Pelvis", m.Bones[2].Name)
	assert.Equal(t, [3]float32{0, 2, 0}, m.Bones[0].Keys[0].Positions[2])
}

func TestDecodeWindows1252Names(t *testing.T) {
	m, err := Decode(v10(sampleModel()), Options{NameEncoding: EncodingWindows1252})
	require.NoError(t, err)
	assert.Equal(t, "°¡", m.Bones[0].Name)

	_, err = Decode(v10(sampleModel()), Options{NameEncoding: "utf-7"})
	assert.Error(t, err)
}

func TestDecodeXOR(t *testing.T) {
	key := [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	body := sampleModel()

	enc := make([]byte, len(body))
	chain := byte(0x5E)
	for i, p := range body {
		enc[i] = (p + chain) ^ key[i&15]
		chain = enc[i] + 0x3D
	}
	raw := []byte{'B', 'M', 'D', 12}
	raw = binary.LittleEndian.AppendUint32(raw, uint32(len(enc)))
	raw = append(raw, enc...)

	_, err := Decode(raw, Options{})
	assert.ErrorContains(t, err, "XOR key")

	m, err := Decode(raw, Options{XORKey: &key})
	require.NoError(t, err)
	assert.Equal(t, "Bip01 Pelvis", m.Bones[2].Name)
}

func TestDecodeRejectsBadInput(t *testing.T) {
	_, err := Decode([]byte("PNG!"), Options{})
	assert.Error(t, err)

	_, err = Decode([]byte{'B', 'M', 'D', 15, 0xff, 0, 0, 0}, Options{})
	assert.ErrorContains(t, err, "truncated")

	body := sampleModel()
	_, err = Decode(v10(body[:len(body)-200]), Options{})
	assert.ErrorContains(t, err, "truncated")
}

func TestModelClip(t *testing.T) {
	m, err := Decode(v10(sampleModel()), Options{})
	require.NoError(t, err)

	c, err := m.Clip(0, 25)
	require.NoError(t, err)
	assert.Equal(t, 3, c.FrameCount())
	assert.InDelta(t, 2.0/25, c.Duration(), 1e-12)

	skel := c.Hierarchy()
	assert.Equal(t, []string{"가", "dummy_01", "Bip01 Pelvis"}, []string{skel.BoneName(0), skel.BoneName(1), skel.BoneName(2)})
	assert.Equal(t, 0, skel.ParentIndex(1))
	assert.Equal(t, []string{"Bip01 Pelvis", "가"}, c.TrackNames())

	root, ok := c.BoneTrack("가")
	require.True(t, ok)
	assert.Equal(t, mgl64.Vec3{0, 2, 0}, root[2].Translation)

	pelvis := c.LocalPose("Bip01 Pelvis", 1)
	assert.True(t, pelvis.Rotation.Rotate(mgl64.Vec3{1, 0, 0}).ApproxEqualThreshold(mgl64.Vec3{0, 1, 0}, 1e-6))
	assert.Equal(t, mathutil.Identity(), c.LocalPose("dummy_01", 2))

	empty, err := m.Clip(1, 25)
	require.NoError(t, err)
	assert.Zero(t, empty.FrameCount())

	_, err = m.Clip(5, 25)
	assert.Error(t, err)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "player.bmd")
	require.NoError(t, os.WriteFile(path, v10(sampleModel()), 0o644))

	m, err := Parse(path, Options{})
	require.NoError(t, err)
	assert.Len(t, m.Bones, 3)

	_, err = Parse(filepath.Join(t.TempDir(), "none.bmd"), Options{})
	assert.Error(t, err)
}
