// Package boot provides the high-level storage bring-up operations run at
// device start.
//
// This package orchestrates the lower-level components (loader, disk,
// storage, provision, seed, status) behind a few entry points:
//   - Run: load a StorageLayout, bring storage online and, in developer
//     mode, seed development credentials
//   - Reformat: bring storage online and reformat every filesystem
//   - Credentials: list the credentials held by the provisioning store
//
// Status Reporting:
//
// Run fills in the layout's status as it goes (phase, conditions, capacity,
// per-partition report) and returns the layout even on failure, so callers can
// show or persist what was observed. When Options.StatusPath is set the layout
// is written there after every run.
//
// Context Support:
//
// All operations accept a context.Context. Cancellation is checked between
// steps; a step already touching the device runs to completion.
package boot
