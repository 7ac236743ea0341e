package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/devtrophies/trophies/internal/domain/trophy"
)

// ScoringConfig holds the achievement rules and where they came from.
type ScoringConfig struct {
	// Path of the YAML override file, empty for built-in defaults
	File  string
	Rules trophy.Rules
}

// scoringFile is the on-disk shape of SCORING_FILE.
//
//	ladders:
//	  stars: [5, 25, 100, 500]
//	weights:
//	  prs: 12
//	level:
//	  base_xp: 250
//	  growth: 1.5
//	goals:
//	  - id: star-collector
//	    title: Star Collector
//	    metric: stars
//	    threshold: 1000
//	    tier: LEGENDARY
//
// Omitted sections keep their defaults. A goals list replaces the default goals.
type scoringFile struct {
	Ladders map[string][]int `yaml:"ladders"`
	Weights map[string]int   `yaml:"weights"`
	Level   levelFile        `yaml:"level"`
	Goals   []goalFile       `yaml:"goals"`
}

type levelFile struct {
	BaseXP int     `yaml:"base_xp"`
	Growth float64 `yaml:"growth"`
}

type goalFile struct {
	ID        string `yaml:"id"`
	Title     string `yaml:"title"`
	Icon      string `yaml:"icon"`
	Metric    string `yaml:"metric"`
	Threshold int    `yaml:"threshold"`
	Tier      string `yaml:"tier"`
}

// LoadScoring reads scoring overrides from path. An empty path yields the defaults.
func LoadScoring(path string) (ScoringConfig, error) {
	if path == "" {
		return ScoringConfig{Rules: trophy.DefaultRules()}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return ScoringConfig{}, fmt.Errorf("read %s: %w", path, err)
	}

	rules, err := ParseScoring(data)
	if err != nil {
		return ScoringConfig{}, fmt.Errorf("parse %s: %w", path, err)
	}

	return ScoringConfig{File: path, Rules: rules}, nil
}

// ParseScoring decodes a YAML document on top of the default rules.
// Unknown keys are rejected.
func ParseScoring(data []byte) (trophy.Rules, error) {
	defaults := trophy.DefaultRules()
	file := defaultScoringFile(defaults)

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return trophy.Rules{}, err
	}

	rules := trophy.Rules{
		Ladders: make(map[trophy.MetricID]trophy.Ladder, len(file.Ladders)),
		Weights: make(trophy.Weights, len(file.Weights)),
		Level:   trophy.LevelLadder{BaseXP: file.Level.BaseXP, Growth: file.Level.Growth},
		Secrets: defaults.Secrets,
	}

	for id, values := range file.Ladders {
		ladder, err := trophy.LadderFromSlice(values)
		if err != nil {
			return trophy.Rules{}, fmt.Errorf("ladder %s: %w", id, err)
		}
		rules.Ladders[trophy.MetricID(id)] = ladder
	}

	for id, w := range file.Weights {
		rules.Weights[trophy.MetricID(id)] = w
	}

	for _, g := range file.Goals {
		tier, err := trophy.ParseTier(g.Tier)
		if err != nil {
			return trophy.Rules{}, fmt.Errorf("goal %s: %w", g.ID, err)
		}
		rules.Goals = append(rules.Goals, trophy.Goal{
			ID:        g.ID,
			Title:     g.Title,
			Icon:      g.Icon,
			Metric:    trophy.MetricID(g.Metric),
			Threshold: g.Threshold,
			Tier:      tier,
		})
	}

	if err := rules.Validate(); err != nil {
		return trophy.Rules{}, err
	}
	return rules, nil
}

func defaultScoringFile(rules trophy.Rules) scoringFile {
	file := scoringFile{
		Ladders: make(map[string][]int, len(rules.Ladders)),
		Weights: make(map[string]int, len(rules.Weights)),
		Level:   levelFile{BaseXP: rules.Level.BaseXP, Growth: rules.Level.Growth},
	}
	for id, ladder := range rules.Ladders {
		ladder := ladder
		file.Ladders[string(id)] = ladder[:]
	}
	for id, w := range rules.Weights {
		file.Weights[string(id)] = w
	}
	for _, g := range rules.Goals {
		file.Goals = append(file.Goals, goalFile{
			ID:        g.ID,
			Title:     g.Title,
			Icon:      g.Icon,
			Metric:    string(g.Metric),
			Threshold: g.Threshold,
			Tier:      string(g.Tier),
		})
	}
	return file
}
