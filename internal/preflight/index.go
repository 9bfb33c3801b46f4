package preflight

import (
	"context"
	"fmt"
	"strings"

	"github.com/hanviet/hvsearch/internal/models"
)

// CheckIndex loads the index at locator. It is the only required check.
func (c *Checker) CheckIndex(ctx context.Context, loader IndexLoader, locator string) CheckResult {
	result := CheckResult{Name: "index", Required: true}

	ix, err := loader.Load(ctx, locator)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot load %s", locator)
		result.Details = err.Error()
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%d records", ix.RecordCount())
	if providers := ix.Providers(); len(providers) > 0 {
		result.Details = "matrices: " + strings.Join(providers, ", ")
	} else {
		result.Status = StatusWarn
		result.Message += ", no embedding matrices (substring matching only)"
	}
	return result
}

// CheckProviders loads every provider. A provider that cannot load is a
// warning.
func (c *Checker) CheckProviders(ctx context.Context, mgr *models.Manager) []CheckResult {
	results := make([]CheckResult, 0, len(mgr.IDs()))
	for _, id := range mgr.IDs() {
		result := CheckResult{Name: "provider_" + id}
		if err := mgr.EnsureLoaded(ctx, id); err != nil {
			result.Status = StatusWarn
			result.Message = "unavailable"
			result.Details = err.Error()
			results = append(results, result)
			continue
		}
		p, _ := mgr.Provider(id)
		result.Status = StatusPass
		result.Message = fmt.Sprintf("%s, %d dimensions", p.ModelName(), p.Dimensions())
		results = append(results, result)
	}
	return results
}
