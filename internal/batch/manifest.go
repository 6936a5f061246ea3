package batch

import (
	"encoding/json"
	"os"
)

// ManifestName is the manifest file written next to the prepared clips.
const ManifestName = "manifest.json"

// ManifestEntry represents one prepared clip in the output manifest.
type ManifestEntry struct {
	Name    string `json:"name"`
	Source  string `json:"source"`
	Action  int    `json:"action,omitempty"`
	Frames  int    `json:"frames"`
	Clip    string `json:"clip"`
	Preview string `json:"preview,omitempty"`
	Pass    string `json:"pass"`
	Skipped bool   `json:"skipped,omitempty"`
}

// WriteManifest writes the successful results to path.
func WriteManifest(path string, results []Result) error {
	entries := make([]ManifestEntry, 0, len(results))
	for _, r := range results {
		if !r.Success {
			continue
		}
		action := r.Action
		if action < 0 {
			action = 0
		}
		entries = append(entries, ManifestEntry{
			Name:    r.Name,
			Source:  r.Source,
			Action:  action,
			Frames:  r.Frames,
			Clip:    r.Output,
			Preview: r.Preview,
			Pass:    r.Pass,
			Skipped: r.Skipped,
		})
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
