package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
)

// artifactFileName returns the per-page artifact file name.
func artifactFileName(page int) string {
	return fmt.Sprintf("page_%d.json", page)
}

// SavePageArtifact writes one page artifact to dir as pretty-printed JSON.
func SavePageArtifact(dir string, art model.PageArtifact) error {
	art.Version = model.ArtifactVersion
	data, err := json.MarshalIndent(art, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "pipeline: marshal artifact for page %d", art.Page)
	}
	path := filepath.Join(dir, artifactFileName(art.Page))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "pipeline: write artifact %s", path)
	}
	return nil
}

// LoadPageArtifacts reads artifacts from dir in page order. Missing pages end
// the walk; unreadable or unrecognized-version files are skipped with a
// warning so one corrupt artifact does not sink a re-accumulation.
func LoadPageArtifacts(dir string, maxPages int) []model.PageArtifact {
	var artifacts []model.PageArtifact
	for page := 1; page <= maxPages; page++ {
		path := filepath.Join(dir, artifactFileName(page))
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				break
			}
			zap.L().Warn("pipeline: skipping unreadable artifact", zap.String("path", path), zap.Error(err))
			continue
		}

		var art model.PageArtifact
		if err := json.Unmarshal(data, &art); err != nil {
			zap.L().Warn("pipeline: skipping malformed artifact", zap.String("path", path), zap.Error(err))
			continue
		}
		if art.Version != model.ArtifactVersion {
			zap.L().Warn("pipeline: skipping artifact with unknown version",
				zap.String("path", path), zap.Int("version", art.Version))
			continue
		}
		artifacts = append(artifacts, art)
	}
	return artifacts
}
