// SPDX-License-Identifier: ice License 1.0

package config

// Private API.

const (
	applicationConfigFileName = "application.yaml"
	dotEnvFileName            = ".env"
	dotEnvMaxParentLookups    = 5
)
