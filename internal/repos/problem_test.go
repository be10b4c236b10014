package repos_test

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/craftwise/craftwise-backend/internal/domain"
	"github.com/craftwise/craftwise-backend/internal/repos"
	"github.com/craftwise/craftwise-backend/internal/repos/testutil"
)

func TestProblemRepoTenantScoping(t *testing.T) {
	tx := testutil.TxDB(t)
	log := testutil.Logger(t)
	repo := repos.NewProblemRepo(tx, log)

	org1 := testutil.SeedOrg(t, tx, "org-one")
	org2 := testutil.SeedOrg(t, tx, "org-two")
	p1 := testutil.SeedProblem(t, tx, org1, "wobbly chair leg")
	testutil.SeedProblem(t, tx, org2, "cracked mug handle")

	got, err := repo.GetByID(context.Background(), nil, org1.ID, p1.ID)
	if err != nil {
		t.Fatalf("get own problem: %v", err)
	}
	if got.Description != "wobbly chair leg" {
		t.Fatalf("description: want=%q got=%q", "wobbly chair leg", got.Description)
	}

	if _, err := repo.GetByID(context.Background(), nil, org2.ID, p1.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("cross-tenant get: want=%v got=%v", gorm.ErrRecordNotFound, err)
	}

	listed, err := repo.ListByOrg(context.Background(), nil, org1.ID, nil)
	if err != nil {
		t.Fatalf("list by org: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("list size: want=%d got=%d", 1, len(listed))
	}
}

func TestProblemRepoStatusFilterAndUpdate(t *testing.T) {
	tx := testutil.TxDB(t)
	log := testutil.Logger(t)
	repo := repos.NewProblemRepo(tx, log)

	org := testutil.SeedOrg(t, tx, "workshop")
	open := testutil.SeedProblem(t, tx, org, "squeaky hinge")
	solved := testutil.SeedProblem(t, tx, org, "loose shelf")
	if err := repo.UpdateStatus(context.Background(), nil, org.ID, solved.ID, domain.ProblemStatusSolved); err != nil {
		t.Fatalf("update status: %v", err)
	}

	listed, err := repo.ListByOrg(context.Background(), nil, org.ID, []string{domain.ProblemStatusSolved})
	if err != nil {
		t.Fatalf("list solved: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != solved.ID {
		t.Fatalf("solved filter: want=[%s] got=%v", solved.ID, listed)
	}

	listed, err = repo.ListByOrg(context.Background(), nil, org.ID, []string{domain.ProblemStatusOpen})
	if err != nil {
		t.Fatalf("list open: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != open.ID {
		t.Fatalf("open filter: want=[%s] got=%v", open.ID, listed)
	}
}

func TestProblemRepoEmbeddingRoundTrip(t *testing.T) {
	tx := testutil.TxDB(t)
	log := testutil.Logger(t)
	repo := repos.NewProblemRepo(tx, log)

	org := testutil.SeedOrg(t, tx, "workshop")
	p := testutil.SeedProblem(t, tx, org, "stuck drawer")

	raw, err := domain.EncodeVector([]float32{0.25, -1, 0.5})
	if err != nil {
		t.Fatalf("encode vector: %v", err)
	}
	if err := repo.UpdateEmbedding(context.Background(), nil, org.ID, p.ID, raw); err != nil {
		t.Fatalf("update embedding: %v", err)
	}

	embedded, err := repo.ListEmbedded(context.Background(), nil)
	if err != nil {
		t.Fatalf("list embedded: %v", err)
	}
	var found bool
	for _, e := range embedded {
		if e.ID != p.ID {
			continue
		}
		found = true
		vec, err := domain.DecodeVector(e.Embedding)
		if err != nil {
			t.Fatalf("decode embedding: %v", err)
		}
		if len(vec) != 3 || vec[0] != 0.25 || vec[1] != -1 || vec[2] != 0.5 {
			t.Fatalf("embedding: want=[0.25 -1 0.5] got=%v", vec)
		}
	}
	if !found {
		t.Fatalf("embedded problem %s missing from ListEmbedded", p.ID)
	}
}
