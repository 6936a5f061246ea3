package clip

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/go-gl/mathgl/mgl64"

	"motion-matching-prep/internal/mathutil"
	"motion-matching-prep/internal/skeleton"
)

// fileClip matches the JSON schema of a clip file.
type fileClip struct {
	Name       string               `json:"name"`
	FrameCount int                  `json:"frame_count"`
	Duration   float64              `json:"duration"`
	Bones      []fileBone           `json:"bones"`
	Tracks     map[string][]fileXf  `json:"tracks,omitempty"`
	Curves     map[string]fileCurve `json:"curves,omitempty"`
}

type fileBone struct {
	Name   string  `json:"name"`
	Parent int     `json:"parent"`
	Rest   *fileXf `json:"rest,omitempty"`
}

// fileXf is a transform; rotation is stored x, y, z, w.
type fileXf struct {
	T [3]float64  `json:"t"`
	R *[4]float64 `json:"r,omitempty"`
	S *[3]float64 `json:"s,omitempty"`
}

type fileCurve struct {
	Interp string       `json:"interp,omitempty"`
	Keys   [][2]float64 `json:"keys"`
}

// Load reads a JSON clip file.
func Load(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("clip: read %s: %w", path, err)
	}
	defer f.Close()

	c, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("clip: parse %s: %w", path, err)
	}
	return c, nil
}

// Decode reads a clip from JSON.
func Decode(r io.Reader) (*Clip, error) {
	var fc fileClip
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, err
	}

	var skel *skeleton.Skeleton
	var rest []mathutil.Transform
	if len(fc.Bones) > 0 {
		bones := make([]skeleton.Bone, len(fc.Bones))
		rest = make([]mathutil.Transform, len(fc.Bones))
		for i, b := range fc.Bones {
			bones[i] = skeleton.Bone{Name: b.Name, Parent: b.Parent}
			rest[i] = mathutil.Identity()
			if b.Rest != nil {
				rest[i] = b.Rest.transform()
			}
		}
		var err error
		if skel, err = skeleton.New(bones); err != nil {
			return nil, err
		}
	}

	c, err := New(fc.Name, skel, rest, fc.FrameCount, fc.Duration)
	if err != nil {
		return nil, err
	}
	for name, keys := range fc.Tracks {
		tr := make(Track, len(keys))
		for i, k := range keys {
			tr[i] = k.transform()
		}
		c.tracks[name] = tr
	}
	for name, fcv := range fc.Curves {
		interp, err := ParseInterp(fcv.Interp)
		if err != nil {
			return nil, fmt.Errorf("curve %s: %w", name, err)
		}
		cv := Curve{Interp: interp, Keys: make([]CurveKey, len(fcv.Keys))}
		for i, k := range fcv.Keys {
			cv.Keys[i] = CurveKey{Time: k[0], Value: k[1]}
		}
		c.curves[name] = cv
	}
	return c, nil
}

// Save writes the clip as indented JSON.
func Save(path string, c *Clip) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("clip: create %s: %w", path, err)
	}
	if err := Encode(f, c); err != nil {
		f.Close()
		return fmt.Errorf("clip: write %s: %w", path, err)
	}
	return f.Close()
}

// Encode writes the clip as indented JSON.
func Encode(w io.Writer, c *Clip) error {
	fc := fileClip{
		Name:       c.Name,
		FrameCount: c.frameCount,
		Duration:   c.duration,
		Tracks:     make(map[string][]fileXf, len(c.tracks)),
		Curves:     make(map[string]fileCurve, len(c.curves)),
	}
	if c.skel != nil {
		for i, b := range c.skel.Bones() {
			xf := toFileXf(c.rest[i])
			fc.Bones = append(fc.Bones, fileBone{Name: b.Name, Parent: b.Parent, Rest: &xf})
		}
	}
	for name, tr := range c.tracks {
		keys := make([]fileXf, len(tr))
		for i, t := range tr {
			keys[i] = toFileXf(t)
		}
		fc.Tracks[name] = keys
	}
	for name, cv := range c.curves {
		keys := make([][2]float64, len(cv.Keys))
		for i, k := range cv.Keys {
			keys[i] = [2]float64{k.Time, k.Value}
		}
		fc.Curves[name] = fileCurve{Interp: cv.Interp.String(), Keys: keys}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(fc)
}

// transform fills omitted rotation with identity and omitted scale with one.
func (x fileXf) transform() mathutil.Transform {
	t := mathutil.Identity()
	t.Translation = mgl64.Vec3(x.T)
	if x.R != nil {
		t.Rotation = mgl64.Quat{W: x.R[3], V: mgl64.Vec3{x.R[0], x.R[1], x.R[2]}}.Normalize()
	}
	if x.S != nil {
		t.Scale = mgl64.Vec3(*x.S)
	}
	return t
}

func toFileXf(t mathutil.Transform) fileXf {
	r := [4]float64{t.Rotation.V[0], t.Rotation.V[1], t.Rotation.V[2], t.Rotation.W}
	s := [3]float64(t.Scale)
	return fileXf{T: [3]float64(t.Translation), R: &r, S: &s}
}
