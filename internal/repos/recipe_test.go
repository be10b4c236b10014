package repos_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftwise/craftwise-backend/internal/domain"
	"github.com/craftwise/craftwise-backend/internal/repos"
	"github.com/craftwise/craftwise-backend/internal/repos/testutil"
)

func TestRecipeRepoChildrenAndAnyLookup(t *testing.T) {
	tx := testutil.TxDB(t)
	log := testutil.Logger(t)
	repo := repos.NewRecipeRepo(tx, log)

	org := testutil.SeedOrg(t, tx, "workshop")
	other := testutil.SeedOrg(t, tx, "rival")
	problem := testutil.SeedProblem(t, tx, org, "warped door")
	root := testutil.SeedRecipe(t, tx, problem, "plane the edge", []string{"mark", "plane", "refit"})

	child := &domain.Recipe{
		ProblemID:      problem.ID,
		OrgID:          org.ID,
		Title:          "plane the edge v2",
		Steps:          root.Steps,
		Confidence:     0.5,
		Version:        2,
		ParentRecipeID: &root.ID,
	}
	if err := repo.Create(context.Background(), nil, child); err != nil {
		t.Fatalf("create child: %v", err)
	}

	children, err := repo.ListChildren(context.Background(), nil, org.ID, root.ID)
	if err != nil {
		t.Fatalf("list children: %v", err)
	}
	if len(children) != 1 || children[0].ID != child.ID {
		t.Fatalf("children: want=[%s] got=%v", child.ID, children)
	}

	// Tenant-scoped lookup hides the recipe from other orgs; the
	// unscoped variant still sees it.
	if _, err := repo.GetByID(context.Background(), nil, other.ID, root.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("cross-tenant get: want=%v got=%v", gorm.ErrRecordNotFound, err)
	}
	any, err := repo.GetByIDAny(context.Background(), nil, root.ID)
	if err != nil {
		t.Fatalf("get any: %v", err)
	}
	if any.OrgID != org.ID {
		t.Fatalf("org of unscoped lookup: want=%s got=%s", org.ID, any.OrgID)
	}
}

func TestRecipeRepoListByProblemIDs(t *testing.T) {
	tx := testutil.TxDB(t)
	log := testutil.Logger(t)
	repo := repos.NewRecipeRepo(tx, log)

	org := testutil.SeedOrg(t, tx, "workshop")
	p1 := testutil.SeedProblem(t, tx, org, "dull knife")
	p2 := testutil.SeedProblem(t, tx, org, "rusted blade")
	p3 := testutil.SeedProblem(t, tx, org, "bent tine")
	r1 := testutil.SeedRecipe(t, tx, p1, "whetstone pass", []string{"soak", "grind", "hone"})
	r2 := testutil.SeedRecipe(t, tx, p2, "vinegar bath", []string{"soak", "scrub"})
	testutil.SeedRecipe(t, tx, p3, "pliers bend", []string{"clamp", "bend"})

	got, err := repo.ListByProblemIDs(context.Background(), nil, org.ID, []uuid.UUID{p1.ID, p2.ID})
	if err != nil {
		t.Fatalf("list by problem ids: %v", err)
	}
	want := map[uuid.UUID]bool{r1.ID: true, r2.ID: true}
	if len(got) != 2 {
		t.Fatalf("result size: want=%d got=%d", 2, len(got))
	}
	for _, r := range got {
		if !want[r.ID] {
			t.Fatalf("unexpected recipe %s in result", r.ID)
		}
	}

	empty, err := repo.ListByProblemIDs(context.Background(), nil, org.ID, nil)
	if err != nil {
		t.Fatalf("empty id list: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("empty id list: want=0 got=%d", len(empty))
	}
}

func TestRecipeRepoUpdateConfidence(t *testing.T) {
	tx := testutil.TxDB(t)
	log := testutil.Logger(t)
	repo := repos.NewRecipeRepo(tx, log)

	org := testutil.SeedOrg(t, tx, "workshop")
	problem := testutil.SeedProblem(t, tx, org, "flaking paint")
	recipe := testutil.SeedRecipe(t, tx, problem, "sand and repaint", []string{"sand", "prime", "paint"})

	if err := repo.UpdateConfidence(context.Background(), nil, recipe.ID, 0.85); err != nil {
		t.Fatalf("update confidence: %v", err)
	}
	got, err := repo.GetByID(context.Background(), nil, org.ID, recipe.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Confidence != 0.85 {
		t.Fatalf("confidence: want=%v got=%v", 0.85, got.Confidence)
	}
}
