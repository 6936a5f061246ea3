package bmd

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/korean"

	"motion-matching-prep/internal/crypto"
)

// Name encodings.
const (
	EncodingEUCKR       = "euc-kr"
	EncodingWindows1252 = "windows-1252"
)

// Options control decryption and name decoding.
type Options struct {
	// NameEncoding is EncodingEUCKR (default) or EncodingWindows1252.
	NameEncoding string

	// Keys for encrypted containers. A nil key makes that version an error.
	XORKey *[16]byte
	LEAKey *[32]byte
}

// Sizes of the fixed records skipped while reading meshes.
const (
	vertexSize   = 16 // node:i16, pad:i16, x:f32, y:f32, z:f32
	normalSize   = 20 // node:i16, pad:i16, nx:f32, ny:f32, nz:f32, bind:i16, pad:i16
	texCoordSize = 8  // u:f32, v:f32
	triangleSize = 64
	nameSize     = 32
	maxMeshes    = 100
)

// Parse reads a BMD file.
// Supports versions 10 (unencrypted), 12 (XOR), and 15 (LEA-256 ECB).
func Parse(path string, opts Options) (*Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bmd: read %s: %w", path, err)
	}
	m, err := Decode(raw, opts)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}
	return m, nil
}

// Decode parses an in-memory BMD file.
func Decode(raw []byte, opts Options) (*Model, error) {
	if len(raw) < 4 || string(raw[:3]) != "BMD" {
		return nil, fmt.Errorf("bmd: invalid header")
	}

	version := raw[3]
	var data []byte

	switch version {
	case 15, 12:
		if len(raw) < 8 {
			return nil, fmt.Errorf("bmd: truncated v%d header", version)
		}
		size := binary.LittleEndian.Uint32(raw[4:8])
		if 8+int(size) > len(raw) {
			return nil, fmt.Errorf("bmd: truncated v%d data", version)
		}
		body := raw[8 : 8+size]
		if version == 12 {
			if opts.XORKey == nil {
				return nil, fmt.Errorf("bmd: v12 file needs an XOR key")
			}
			data = crypto.DecryptXOR(body, *opts.XORKey)
			break
		}
		if opts.LEAKey == nil {
			return nil, fmt.Errorf("bmd: v15 file needs an LEA key")
		}
		var err error
		if data, err = crypto.DecryptLEA(body, *opts.LEAKey); err != nil {
			return nil, fmt.Errorf("bmd: %w", err)
		}
	default:
		data = raw[4:]
	}

	dec, err := nameDecoder(opts.NameEncoding)
	if err != nil {
		return nil, err
	}
	r := &reader{data: data, names: dec}
	m, err := r.parse()
	if err != nil {
		return nil, err
	}
	m.Version = version
	return m, nil
}

func nameDecoder(enc string) (*encoding.Decoder, error) {
	switch strings.ToLower(enc) {
	case "", EncodingEUCKR:
		return korean.EUCKR.NewDecoder(), nil
	case EncodingWindows1252:
		return charmap.Windows1252.NewDecoder(), nil
	}
	return nil, fmt.Errorf("bmd: unknown name encoding %q", enc)
}

type reader struct {
	data  []byte
	off   int
	names *encoding.Decoder
}

func (r *reader) eof() bool { return r.off >= len(r.data) }

func (r *reader) skip(n int) {
	r.off += n
	if r.off > len(r.data) {
		r.off = len(r.data)
	}
}

// readStr reads a fixed-size NUL-terminated name and decodes it.
func (r *reader) readStr(n int) string {
	if r.off+n > len(r.data) {
		r.off = len(r.data)
		return ""
	}
	s := r.data[r.off : r.off+n]
	r.off += n
	if i := bytes.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	decoded, err := r.names.Bytes(s)
	if err != nil {
		return string(s)
	}
	return string(decoded)
}

func (r *reader) readI16() int16 {
	if r.off+2 > len(r.data) {
		r.off = len(r.data)
		return 0
	}
	v := int16(binary.LittleEndian.Uint16(r.data[r.off:]))
	r.off += 2
	return v
}

func (r *reader) readU16() uint16 {
	if r.off+2 > len(r.data) {
		r.off = len(r.data)
		return 0
	}
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v
}

func (r *reader) readF32() float32 {
	if r.off+4 > len(r.data) {
		r.off = len(r.data)
		return 0
	}
	v := math.Float32frombits(binary.LittleEndian.Uint32(r.data[r.off:]))
	r.off += 4
	return v
}

func (r *reader) readVec() [3]float32 {
	return [3]float32{r.readF32(), r.readF32(), r.readF32()}
}

func (r *reader) readByte() byte {
	if r.off >= len(r.data) {
		return 0
	}
	b := r.data[r.off]
	r.off++
	return b
}

func (r *reader) parse() (*Model, error) {
	m := &Model{Name: r.readStr(nameSize)}
	meshCount := int(r.readU16())
	boneCount := int(r.readU16())
	actionCount := int(r.readU16())

	if meshCount > maxMeshes {
		return nil, fmt.Errorf("bmd: invalid mesh count %d", meshCount)
	}

	m.Meshes = make([]MeshInfo, 0, meshCount)
	for i := 0; i < meshCount; i++ {
		mi := MeshInfo{
			Vertices:  int(r.readI16()),
			Normals:   int(r.readI16()),
			TexCoords: int(r.readI16()),
			Triangles: int(r.readI16()),
		}
		_ = r.readI16() // texture index
		if mi.Vertices < 0 || mi.Normals < 0 || mi.TexCoords < 0 || mi.Triangles < 0 {
			return nil, fmt.Errorf("bmd: mesh %d has negative counts", i)
		}
		r.skip(mi.Vertices*vertexSize + mi.Normals*normalSize + mi.TexCoords*texCoordSize + mi.Triangles*triangleSize)
		mi.Texture = strings.ReplaceAll(r.readStr(nameSize), "\\", "/")
		m.Meshes = append(m.Meshes, mi)
	}

	// Parse actions
	m.Actions = make([]Action, actionCount)
	for a := range m.Actions {
		numKeys := int(r.readI16())
		if numKeys < 0 {
			return nil, fmt.Errorf("bmd: action %d has %d keys", a, numKeys)
		}
		m.Actions[a].Keys = numKeys
		if r.readByte() > 0 {
			lock := make([][3]float32, numKeys)
			for k := range lock {
				lock[k] = r.readVec()
			}
			m.Actions[a].LockPositions = lock
		}
	}

	// Parse bones
	m.Bones = make([]Bone, 0, boneCount)
	for b := 0; b < boneCount; b++ {
		if r.eof() {
			return nil, fmt.Errorf("bmd: truncated at bone %d of %d", b, boneCount)
		}
		if r.readByte() > 0 {
			m.Bones = append(m.Bones, Bone{Parent: -1, IsDummy: true})
			continue
		}

		bone := Bone{
			Name:   r.readStr(nameSize),
			Parent: int(r.readI16()),
			Keys:   make([]BoneKeys, actionCount),
		}
		for a, action := range m.Actions {
			if action.Keys == 0 {
				continue
			}
			keys := BoneKeys{
				Positions: make([][3]float32, action.Keys),
				Rotations: make([][3]float32, action.Keys),
			}
			for k := range keys.Positions {
				keys.Positions[k] = r.readVec()
			}
			for k := range keys.Rotations {
				keys.Rotations[k] = r.readVec()
			}
			bone.Keys[a] = keys
		}
		m.Bones = append(m.Bones, bone)
	}

	return m, nil
}
