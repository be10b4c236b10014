package indexmaint

const (
	WorkflowName    = "index_maintenance"
	ActivityRefresh = "index_maintenance_refresh"
	WorkflowID      = "index-maintenance-singleton"
)

// RefreshResult reports one centroid refresh pass over both indexes.
type RefreshResult struct {
	ProblemsOK bool `json:"problems_ok"`
	RecipesOK  bool `json:"recipes_ok"`
}
