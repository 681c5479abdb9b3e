package schema

import _ "embed"

// ConfigV1Schema contains the JSON schema for reaper configuration files.
//
//go:embed reaper.v1.json
var ConfigV1Schema []byte
