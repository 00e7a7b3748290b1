package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"itinerary-scraper/models"
	"itinerary-scraper/utils"
)

type targetsFile struct {
	Targets []models.ScrapeTarget `yaml:"targets"`
}

// LoadTargets reads the ordered target list from a YAML file and derives each
// target's output directory under baseDir.
func LoadTargets(path, baseDir string) ([]models.ScrapeTarget, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read targets %q: %w", path, err)
	}
	var tf targetsFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("config: parse targets %q: %w", path, err)
	}
	return ResolveTargets(tf.Targets, baseDir)
}

// ParseTarget turns "Business Name@Locale" into a target. The locale part is
// optional.
func ParseTarget(s string) (models.ScrapeTarget, error) {
	name, locale, _ := strings.Cut(s, "@")
	name = strings.TrimSpace(name)
	if name == "" {
		return models.ScrapeTarget{}, fmt.Errorf("config: target %q has no business name", s)
	}
	return models.ScrapeTarget{BusinessName: name, Locale: strings.TrimSpace(locale)}, nil
}

// ResolveTargets validates targets and sets OutputDirectory to
// baseDir/slugify(name).
func ResolveTargets(targets []models.ScrapeTarget, baseDir string) ([]models.ScrapeTarget, error) {
	out := make([]models.ScrapeTarget, 0, len(targets))
	for i, t := range targets {
		if strings.TrimSpace(t.BusinessName) == "" {
			return nil, fmt.Errorf("config: target %d has no business name", i)
		}
		t.OutputDirectory = filepath.Join(baseDir, utils.Slugify(t.BusinessName))
		out = append(out, t)
	}
	return out, nil
}
