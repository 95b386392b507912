package fetch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Artifact is one completed-fetch result file, named <message id>.json by
// the dispatching scheduler.
type Artifact struct {
	Path      string
	MessageID int64
}

// Result is the JSON envelope a getFile fetch writes.
type Result struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	ResultData  struct {
		FileID   string `json:"file_id"`
		FileSize int64  `json:"file_size"`
		FilePath string `json:"file_path"`
	} `json:"result"`
}

// ArtifactName returns the artifact path for a message id under dir.
func ArtifactName(dir string, messageID int64) string {
	return filepath.Join(dir, strconv.FormatInt(messageID, 10)+".json")
}

// Scan lists artifacts directly under dir, message id ascending. Files
// whose names are not message ids are ignored; curl may still be writing
// partial downloads elsewhere, but artifacts appear atomically enough that
// an unparseable one is treated as a failed fetch, not skipped.
func Scan(dir string) ([]Artifact, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("fetch: scan %s: %w", dir, err)
	}

	var artifacts []Artifact
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".json")
		id, err := strconv.ParseInt(name, 10, 64)
		if err != nil {
			continue
		}
		artifacts = append(artifacts, Artifact{
			Path:      filepath.Join(dir, entry.Name()),
			MessageID: id,
		})
	}

	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].MessageID < artifacts[j].MessageID
	})
	return artifacts, nil
}

// Read parses the artifact's JSON envelope. An empty or unparseable file
// returns (nil, nil): the upstream wrote garbage, which the caller treats
// as a failed fetch with cooldown.
func (a Artifact) Read() (*Result, error) {
	data, err := os.ReadFile(a.Path)
	if err != nil {
		return nil, fmt.Errorf("fetch: read artifact %s: %w", a.Path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, nil
	}
	return &res, nil
}

// Discard removes the artifact file. Missing files are not an error; a
// previous cycle may have cleaned up before crashing.
func (a Artifact) Discard() error {
	if err := os.Remove(a.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("fetch: discard artifact %s: %w", a.Path, err)
	}
	return nil
}
