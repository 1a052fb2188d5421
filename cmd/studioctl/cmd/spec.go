package cmd

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/agentic-studio/internal/domain"
)

// loadBrief reads a YAML (or JSON) brief. "-" reads stdin.
func loadBrief(path string) (domain.JobSpecification, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return domain.JobSpecification{}, fmt.Errorf("read brief: %w", err)
	}
	return parseBrief(raw)
}

func parseBrief(raw []byte) (domain.JobSpecification, error) {
	var spec domain.JobSpecification
	if err := yaml.Unmarshal(raw, &spec); err != nil {
		return spec, fmt.Errorf("parse brief: %w", err)
	}
	if spec.DurationSeconds == 0 {
		spec.DurationSeconds = domain.DefaultDurationSeconds
	}
	spec = spec.Normalize()
	if err := spec.Validate(); err != nil {
		return spec, err
	}
	return spec, nil
}
