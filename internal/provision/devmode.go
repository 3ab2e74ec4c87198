//go:build devmode

package provision

// developerBuild enables credential seeding.
const developerBuild = true
