package config

import "strconv"

// Durability represents how much engine history a workspace keeps
type Durability string

const (
	DurabilityMinimal  Durability = "minimal"
	DurabilityStandard Durability = "standard"
	DurabilityArchival Durability = "archival"
)

// DurabilityPreset holds persistence values for a durability level
type DurabilityPreset struct {
	Retain   int
	Compress bool
	Journal  bool
}

// GetDurabilityPresets returns presets for the durability levels
func GetDurabilityPresets() map[Durability]DurabilityPreset {
	return map[Durability]DurabilityPreset{
		DurabilityMinimal: {
			Retain:   3,
			Compress: false,
			Journal:  false,
		},
		DurabilityStandard: {
			Retain:   5,
			Compress: false,
			Journal:  true,
		},
		DurabilityArchival: {
			Retain:   10,
			Compress: true,
			Journal:  true,
		},
	}
}

// GetFullConfigTemplate returns the documented config template as YAML
func GetFullConfigTemplate(durability Durability) string {
	preset, ok := GetDurabilityPresets()[durability]
	if !ok {
		preset = GetDurabilityPresets()[DurabilityStandard]
	}

	return `# remedy configuration
# Documentation: https://github.com/remedy-kit/remedy

# ==============================================================================
# WORKSPACE
# ==============================================================================
# Analyzed paths must fall inside the root; state lives in state_dir under it.
workspace:
  root: .
  state_dir: .remedy

# ==============================================================================
# PERSISTENCE
# ==============================================================================
# Snapshots of analysis state and pending changes survive restarts.
persistence:
  # How many snapshots of each kind to keep
  retain: ` + strconv.Itoa(preset.Retain) + `

  # Compress snapshots with zstd (.json.zst)
  compress: ` + strconv.FormatBool(preset.Compress) + `

  # Record merge runs and change events in .remedy/remedy.db
  journal: ` + strconv.FormatBool(preset.Journal) + `

# ==============================================================================
# PERFORMANCE
# ==============================================================================
performance:
  # Parallel files in batch apply/discard (0 = number of CPUs)
  max_concurrency: 4

  # Whole-batch timeout in seconds (0 = default)
  timeout_seconds: 120

# ==============================================================================
# LOGGING
# ==============================================================================
logging:
  # debug, info, warn, error
  level: info

  # text or json
  format: text

  # Append logs to .remedy/logs/remedy.log instead of stderr
  to_file: false

# ==============================================================================
# OUTPUT
# ==============================================================================
output:
  # text, json, yaml
  format: text

  # auto, always, never
  color: auto
`
}

// GetMinimalConfigTemplate returns a minimal config template
func GetMinimalConfigTemplate() string {
	return `# remedy configuration (minimal)
# See full options: https://github.com/remedy-kit/remedy

workspace:
  root: .

persistence:
  retain: 5
  journal: true

output:
  format: text
`
}
