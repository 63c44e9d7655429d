package manifest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// pluginManifestSchema validates the declarative shape of an override
// manifest before any Go-level invariant checks run. Identity repos supply
// these as hand-written JSON, so schema errors should name the field, not
// surface as an unmarshal failure deep in the pipeline.
const pluginManifestSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "configPath"],
  "additionalProperties": false,
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "displayName": {"type": "string"},
    "installable": {"type": "boolean"},
    "needsFunnel": {"type": "boolean"},
    "configPath": {"enum": ["plugins.entries", "channels"]},
    "secrets": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["envVar"],
        "additionalProperties": false,
        "properties": {
          "envVar": {"type": "string", "minLength": 1},
          "scope": {"enum": ["agent", "global"]},
          "sensitive": {"type": "boolean"},
          "required": {"type": "boolean"},
          "autoResolvable": {"type": "boolean"},
          "valuePrefix": {"type": "string"},
          "instructions": {"type": "string"}
        }
      }
    },
    "internalKeys": {"type": "array", "items": {"type": "string"}},
    "configTransforms": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["sourceKey", "targetKeys"],
        "additionalProperties": false,
        "properties": {
          "sourceKey": {"type": "string", "minLength": 1},
          "targetKeys": {"type": "object", "additionalProperties": {"type": "string"}},
          "removeSource": {"type": "boolean"}
        }
      }
    },
    "webhookSetup": {
      "type": "object",
      "required": ["urlPath", "secretKey"],
      "additionalProperties": false,
      "properties": {
        "urlPath": {"type": "string", "pattern": "^/"},
        "secretKey": {"type": "string", "minLength": 1},
        "instructions": {"type": "string"},
        "configPath": {"type": "string"}
      }
    },
    "hooks": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "resolve": {"type": "object", "additionalProperties": {"type": "string", "minLength": 1}},
        "postProvision": {"type": "string", "minLength": 1},
        "preStart": {"type": "string", "minLength": 1},
        "onboard": {
          "type": "object",
          "required": ["script"],
          "additionalProperties": false,
          "properties": {
            "description": {"type": "string"},
            "inputs": {
              "type": "array",
              "items": {
                "type": "object",
                "required": ["name", "prompt"],
                "additionalProperties": false,
                "properties": {
                  "name": {"type": "string", "minLength": 1},
                  "prompt": {"type": "string", "minLength": 1},
                  "validator": {"type": "string"}
                }
              }
            },
            "script": {"type": "string", "minLength": 1},
            "runOnce": {"type": "boolean"}
          }
        }
      }
    }
  }
}`

var compiledSchema = gojsonschema.NewStringLoader(pluginManifestSchema)

// ParseJSON parses and validates a JSON-encoded plugin manifest, as found in
// an identity repo's plugins/ directory. Both the schema check and the
// invariant checks in Validate must pass.
func ParseJSON(data []byte) (*PluginManifest, error) {
	result, err := gojsonschema.Validate(compiledSchema, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("plugin manifest schema check: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("invalid plugin manifest: %s", strings.Join(msgs, "; "))
	}

	var m PluginManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode plugin manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}
