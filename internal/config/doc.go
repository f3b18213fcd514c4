// Package config loads, normalizes, and validates gantry configuration data.
//
// It supplies repository defaults, expands user paths, reads TOML files, and
// honours the environment fallbacks the container images set (A1111_PORT,
// CKPT_PATH, MODEL_URL, COMMANDLINE_ARGS, blob upload credentials). The
// Config type centralizes every knob the daemon and CLI need so nothing
// reads the environment ad hoc mid-flow.
package config
