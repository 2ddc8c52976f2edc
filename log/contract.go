// SPDX-License-Identifier: ice License 1.0

package log

// Private API.

const (
	configKey         = "logger"
	defaultLevel      = "info"
	jsonEncoder       = "json"
	stackFramesToSkip = 2
)

type (
	cfg struct {
		Encoder string `yaml:"encoder"`
		Level   string `yaml:"level"`
	}
)
