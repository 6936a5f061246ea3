package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"motion-matching-prep/internal/bmd"
	"motion-matching-prep/internal/clip"
	"motion-matching-prep/internal/crypto"
	"motion-matching-prep/internal/curves"
	"motion-matching-prep/internal/prep"
)

// Prints the hierarchy, tracks and curves of clip files, or the bones and
// actions of BMD files. Encrypted BMD files need MMPREP_XOR_KEY or
// MMPREP_LEA_KEY (hex).
func main() {
	opts := bmd.Options{}
	if err := loadKeys(&opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	for _, arg := range os.Args[1:] {
		var err error
		if strings.EqualFold(filepath.Ext(arg), ".bmd") {
			err = inspectBMD(arg, opts)
		} else {
			err = inspectClip(arg)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Parse error %s: %v\n", arg, err)
		}
	}
}

func inspectClip(path string) error {
	c, err := clip.Load(path)
	if err != nil {
		return err
	}
	skel := c.Hierarchy()
	fmt.Printf("\n=== %s (%s) frames=%d duration=%.3fs fps=%.2f ===\n",
		path, c.Name, c.FrameCount(), c.Duration(), prep.FrameRate(c.FrameCount(), c.Duration()))

	fmt.Println("--- BONES ---")
	for _, b := range skel.Bones() {
		parent := "-"
		if b.Parent >= 0 {
			parent = skel.BoneName(b.Parent)
		}
		keys := 0
		if t, ok := c.BoneTrack(b.Name); ok {
			keys = len(t)
		}
		rest := c.Rest(b.Name).Translation
		fmt.Printf("  [%2d] %-24s parent=%-24s keys=%-4d rest=(%.2f, %.2f, %.2f)\n",
			b.Index, b.Name, parent, keys, rest[0], rest[1], rest[2])
	}

	fmt.Println("--- TRACKS ---")
	for _, name := range c.TrackNames() {
		t, _ := c.BoneTrack(name)
		if len(t) == 0 {
			continue
		}
		first, last := t[0].Translation, t[len(t)-1].Translation
		fmt.Printf("  %-24s %4d keys  first=(%.2f, %.2f, %.2f) last=(%.2f, %.2f, %.2f)\n",
			name, len(t), first[0], first[1], first[2], last[0], last[1], last[2])
	}

	fmt.Println("--- CURVES ---")
	for _, name := range c.CurveNames() {
		cv, _ := c.Curve(name)
		lo, hi := curveRange(cv)
		tag := ""
		if strings.HasSuffix(name, curves.SpeedSuffix) {
			tag = " (speed)"
		}
		fmt.Printf("  %-24s %-8s %4d keys  min=%.2f max=%.2f%s\n",
			name, cv.Interp, len(cv.Keys), lo, hi, tag)
	}
	return nil
}

func inspectBMD(path string, opts bmd.Options) error {
	m, err := bmd.Parse(path, opts)
	if err != nil {
		return err
	}
	fmt.Printf("\n=== %s (%s v%d meshes=%d actions=%d bones=%d) ===\n",
		path, m.Name, m.Version, len(m.Meshes), len(m.Actions), len(m.Bones))

	fmt.Println("--- MESHES ---")
	for i, mesh := range m.Meshes {
		fmt.Printf("  Mesh[%d] %s: verts=%d normals=%d uvs=%d tris=%d\n",
			i, mesh.Texture, mesh.Vertices, mesh.Normals, mesh.TexCoords, mesh.Triangles)
	}

	fmt.Println("--- ACTIONS ---")
	for i, a := range m.Actions {
		lock := ""
		if a.LockPositions != nil {
			lock = " lock"
		}
		fmt.Printf("  Action[%02d] keys=%d%s\n", i, a.Keys, lock)
	}

	skel, err := m.Skeleton()
	if err != nil {
		return err
	}
	fmt.Println("--- BONES ---")
	for i, b := range m.Bones {
		name := skel.BoneName(i)
		parent := "-"
		if p := skel.ParentIndex(i); p >= 0 {
			parent = skel.BoneName(p)
		}
		dummy := ""
		if b.IsDummy {
			dummy = " dummy"
		}
		fmt.Printf("  [%2d] %-24s parent=%-24s%s\n", i, name, parent, dummy)
	}
	return nil
}

func curveRange(cv clip.Curve) (lo, hi float64) {
	for i, k := range cv.Keys {
		if i == 0 || k.Value < lo {
			lo = k.Value
		}
		if i == 0 || k.Value > hi {
			hi = k.Value
		}
	}
	return lo, hi
}

func loadKeys(opts *bmd.Options) error {
	if s := os.Getenv("MMPREP_XOR_KEY"); s != "" {
		key, err := crypto.ParseXORKey(s)
		if err != nil {
			return fmt.Errorf("MMPREP_XOR_KEY: %w", err)
		}
		opts.XORKey = &key
	}
	if s := os.Getenv("MMPREP_LEA_KEY"); s != "" {
		key, err := crypto.ParseLEAKey(s)
		if err != nil {
			return fmt.Errorf("MMPREP_LEA_KEY: %w", err)
		}
		opts.LEAKey = &key
	}
	return nil
}
