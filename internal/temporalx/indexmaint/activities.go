package indexmaint

import (
	"context"
	"fmt"

	"github.com/craftwise/craftwise-backend/internal/engine/vectorindex"
	"github.com/craftwise/craftwise-backend/internal/platform/logger"
)

type Activities struct {
	Log      *logger.Logger
	Problems *vectorindex.Index
	Recipes  *vectorindex.Index
}

// Refresh rebuilds centroids for every tenant partition of both indexes.
// Each index is attempted even if the other fails.
func (a *Activities) Refresh(ctx context.Context) (RefreshResult, error) {
	res := RefreshResult{}
	if a == nil || a.Problems == nil || a.Recipes == nil {
		return res, fmt.Errorf("indexmaint: activity not configured")
	}

	pErr := a.Problems.MaintainAll(ctx)
	res.ProblemsOK = pErr == nil
	rErr := a.Recipes.MaintainAll(ctx)
	res.RecipesOK = rErr == nil

	if pErr != nil {
		return res, fmt.Errorf("indexmaint: problem index: %w", pErr)
	}
	if rErr != nil {
		return res, fmt.Errorf("indexmaint: recipe index: %w", rErr)
	}
	if a.Log != nil {
		a.Log.Debug("centroid refresh complete")
	}
	return res, nil
}
