package respond

import "github.com/invopop/jsonschema"

// RulesSchema describes the JSON shape of an externally supplied rule set,
// for validating rule files before they are passed to WithRules.
func RulesSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{DoNotReference: true}
	return reflector.Reflect(&[]Rule{})
}
