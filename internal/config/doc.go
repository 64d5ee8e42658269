// Package config loads, normalizes, and validates fileslink configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and overlays environment values such as
// BOT_TOKEN and STORAGE_CHANNEL_ID (optionally sourced from a .env file).
// The Config type centralizes every knob the daemon and CLI need, so the bot
// credentials, storage channel, link prefix and proxy endpoint are discovered
// in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
