package bmd

// Model is the animation-relevant content of a BMD file.
type Model struct {
	Name    string
	Version byte
	Meshes  []MeshInfo
	Actions []Action
	Bones   []Bone
}

// MeshInfo summarizes one sub-mesh. Geometry itself is skipped.
type MeshInfo struct {
	Vertices  int
	Normals   int
	TexCoords int
	Triangles int
	Texture   string // texture reference from BMD (e.g. "sword04.jpg")
}

// Action is one animation stored in the file.
type Action struct {
	Keys int

	// LockPositions holds per-key root offsets when the action locks root
	// motion, nil otherwise.
	LockPositions [][3]float32
}

// Bone holds one skeleton entry with its keys for every action.
type Bone struct {
	Name    string
	Parent  int
	IsDummy bool

	// Keys is indexed by action. Dummy bones have none.
	Keys []BoneKeys
}

// BoneKeys are the local keys of a bone for one action.
type BoneKeys struct {
	Positions [][3]float32
	Rotations [][3]float32 // Euler XYZ radians
}
