package policyopa

import "github.com/open-policy-agent/opa/ast"

// allowedBuiltins keeps admission policies pure: no clock, network or
// randomness.
var allowedBuiltins = map[string]struct{}{
	"abs":          {},
	"concat":       {},
	"contains":     {},
	"count":        {},
	"endswith":     {},
	"eq":           {},
	"equal":        {},
	"gt":           {},
	"gte":          {},
	"json.marshal": {},
	"lower":        {},
	"lt":           {},
	"lte":          {},
	"max":          {},
	"min":          {},
	"neq":          {},
	"object.get":   {},
	"regex.match":  {},
	"split":        {},
	"sprintf":      {},
	"startswith":   {},
	"substring":    {},
	"trim":         {},
	"trim_space":   {},
	"upper":        {},
}

func filterBuiltins(builtins []*ast.Builtin) []*ast.Builtin {
	allowed := make([]*ast.Builtin, 0, len(builtins))
	for _, builtin := range builtins {
		if _, ok := allowedBuiltins[builtin.Name]; !ok {
			continue
		}
		allowed = append(allowed, builtin)
	}
	return allowed
}
