package patch

import (
	"path/filepath"
	"regexp"

	"gantry/internal/config"
)

// Deforum's schedule parser raises on None-valued animation schedule keys
// (e.g. a ControlNet weight schedule submitted as null). The guard coerces
// such values to a neutral default before the parser runs. Patching the
// installed extension at startup, keyed on a marker, keeps the fix safe to
// re-run and safe to skip when upstream moves the code.

const (
	markerNullSchedule     = "gantry-guard: null schedules"
	markerControlNetOff    = "gantry-guard: controlnet disabled"
	deforumHelpersRelative = "scripts/deforum_helpers"
)

var (
	anchorAnimKeysInit   = regexp.MustCompile(`^\s*def __init__\(self, da, dv\):`)
	anchorFindControlNet = regexp.MustCompile(`^def find_controlnet\(\):`)
)

// Rules returns the rule set for the configured installation. The
// ControlNet disable rule is included only when the toggle is set.
func Rules(cfg *config.Config) []Rule {
	helpers := filepath.Join(cfg.DeforumDir(), deforumHelpersRelative)

	rules := []Rule{
		{
			Name:   "null-schedule-guard",
			File:   filepath.Join(helpers, "animation_key_frames.py"),
			Anchor: anchorAnimKeysInit,
			Inject: []string{
				"# " + markerNullSchedule + ": coerce null schedule values before parsing",
				"for _key in dir(da):",
				"    if _key.endswith('_schedule') and getattr(da, _key, False) is None:",
				"        setattr(da, _key, '0: (0)')",
			},
			Marker: markerNullSchedule,
		},
	}

	if cfg.Patch.DisableControlNet {
		rules = append(rules, Rule{
			Name:   "controlnet-disable",
			File:   filepath.Join(helpers, "deforum_controlnet.py"),
			Anchor: anchorFindControlNet,
			Inject: []string{
				"return None  # " + markerControlNetOff,
			},
			Marker: markerControlNetOff,
		})
	}

	return rules
}
