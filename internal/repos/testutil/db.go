package testutil

import (
	"os"
	"strings"
	"sync"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/craftwise/craftwise-backend/internal/data/db"
	"github.com/craftwise/craftwise-backend/internal/domain"
	"github.com/craftwise/craftwise-backend/internal/platform/logger"
)

var (
	openOnce sync.Once
	shared   *gorm.DB
	openErr  error
)

// OpenDB connects to the database named by TEST_POSTGRES_DSN and runs
// migrations once. Tests are skipped when the variable is unset so the
// suite stays green without a local Postgres.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("set TEST_POSTGRES_DSN to run database tests")
	}
	openOnce.Do(func() {
		gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: gormLogger.Default.LogMode(gormLogger.Silent),
		})
		if err != nil {
			openErr = err
			return
		}
		if err := gdb.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
			openErr = err
			return
		}
		openErr = db.AutoMigrateAll(gdb)
		shared = gdb
	})
	if openErr != nil {
		t.Fatalf("open test db: %v", openErr)
	}
	return shared
}

// TxDB hands the test a transaction that is rolled back on cleanup, so
// tests never see each other's rows.
func TxDB(t *testing.T) *gorm.DB {
	t.Helper()
	tx := OpenDB(t).Begin()
	if tx.Error != nil {
		t.Fatalf("begin tx: %v", tx.Error)
	}
	t.Cleanup(func() { tx.Rollback() })
	return tx
}

// Logger builds a quiet logger for repo construction in tests.
func Logger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("production")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

// SeedOrg inserts a tenant for the current transaction.
func SeedOrg(t *testing.T, tx *gorm.DB, name string) *domain.Organization {
	t.Helper()
	org := &domain.Organization{Name: name}
	if err := tx.Create(org).Error; err != nil {
		t.Fatalf("seed org: %v", err)
	}
	return org
}

// SeedProblem inserts a minimal open problem under the given tenant.
func SeedProblem(t *testing.T, tx *gorm.DB, org *domain.Organization, description string) *domain.Problem {
	t.Helper()
	p := &domain.Problem{
		OrgID:       org.ID,
		Description: description,
		Status:      domain.ProblemStatusOpen,
	}
	if err := tx.Create(p).Error; err != nil {
		t.Fatalf("seed problem: %v", err)
	}
	return p
}

// SeedRecipe inserts a version-1 root recipe for the problem.
func SeedRecipe(t *testing.T, tx *gorm.DB, problem *domain.Problem, title string, steps []string) *domain.Recipe {
	t.Helper()
	raw, err := domain.EncodeStringList(steps)
	if err != nil {
		t.Fatalf("encode steps: %v", err)
	}
	r := &domain.Recipe{
		ProblemID:  problem.ID,
		OrgID:      problem.OrgID,
		Title:      title,
		Steps:      raw,
		Confidence: 0.5,
		Version:    1,
	}
	if err := tx.Create(r).Error; err != nil {
		t.Fatalf("seed recipe: %v", err)
	}
	return r
}
