package db

import (
	"gorm.io/gorm"

	"github.com/craftwise/craftwise-backend/internal/domain"
)

func AutoMigrateAll(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		// Tenancy + identity
		&domain.Organization{},
		&domain.User{},

		// Inventory
		&domain.Material{},
		&domain.Tool{},
		&domain.Workspace{},

		// Retrieval core entities
		&domain.Problem{},
		&domain.Recipe{},
		&domain.ExecutionLog{},

		// Shared lifecycle metadata
		&domain.Attachment{},
	); err != nil {
		return err
	}
	return applyCascades(gdb)
}

// applyCascades installs the delete semantics AutoMigrate cannot express:
// owning relations cascade, user references detach.
func applyCascades(gdb *gorm.DB) error {
	statements := []string{
		`ALTER TABLE users DROP CONSTRAINT IF EXISTS fk_users_org;
		 ALTER TABLE users ADD CONSTRAINT fk_users_org
		 FOREIGN KEY (org_id) REFERENCES organizations(id) ON DELETE SET NULL;`,
		`ALTER TABLE materials DROP CONSTRAINT IF EXISTS fk_materials_org;
		 ALTER TABLE materials ADD CONSTRAINT fk_materials_org
		 FOREIGN KEY (org_id) REFERENCES organizations(id) ON DELETE CASCADE;`,
		`ALTER TABLE materials DROP CONSTRAINT IF EXISTS fk_materials_user;
		 ALTER TABLE materials ADD CONSTRAINT fk_materials_user
		 FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE SET NULL;`,
		`ALTER TABLE tools DROP CONSTRAINT IF EXISTS fk_tools_org;
		 ALTER TABLE tools ADD CONSTRAINT fk_tools_org
		 FOREIGN KEY (org_id) REFERENCES organizations(id) ON DELETE CASCADE;`,
		`ALTER TABLE tools DROP CONSTRAINT IF EXISTS fk_tools_user;
		 ALTER TABLE tools ADD CONSTRAINT fk_tools_user
		 FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE SET NULL;`,
		`ALTER TABLE workspaces DROP CONSTRAINT IF EXISTS fk_workspaces_org;
		 ALTER TABLE workspaces ADD CONSTRAINT fk_workspaces_org
		 FOREIGN KEY (org_id) REFERENCES organizations(id) ON DELETE CASCADE;`,
		`ALTER TABLE workspaces DROP CONSTRAINT IF EXISTS fk_workspaces_owner;
		 ALTER TABLE workspaces ADD CONSTRAINT fk_workspaces_owner
		 FOREIGN KEY (owner_id) REFERENCES users(id) ON DELETE SET NULL;`,
		`ALTER TABLE problems DROP CONSTRAINT IF EXISTS fk_problems_workspace;
		 ALTER TABLE problems ADD CONSTRAINT fk_problems_workspace
		 FOREIGN KEY (workspace_id) REFERENCES workspaces(id) ON DELETE CASCADE;`,
		`ALTER TABLE problems DROP CONSTRAINT IF EXISTS fk_problems_org;
		 ALTER TABLE problems ADD CONSTRAINT fk_problems_org
		 FOREIGN KEY (org_id) REFERENCES organizations(id) ON DELETE CASCADE;`,
		`ALTER TABLE recipes DROP CONSTRAINT IF EXISTS fk_recipes_problem;
		 ALTER TABLE recipes ADD CONSTRAINT fk_recipes_problem
		 FOREIGN KEY (problem_id) REFERENCES problems(id) ON DELETE CASCADE;`,
		`ALTER TABLE recipes DROP CONSTRAINT IF EXISTS fk_recipes_org;
		 ALTER TABLE recipes ADD CONSTRAINT fk_recipes_org
		 FOREIGN KEY (org_id) REFERENCES organizations(id) ON DELETE CASCADE;`,
		`ALTER TABLE recipes DROP CONSTRAINT IF EXISTS fk_recipes_parent;
		 ALTER TABLE recipes ADD CONSTRAINT fk_recipes_parent
		 FOREIGN KEY (parent_recipe_id) REFERENCES recipes(id) ON DELETE SET NULL;`,
		`ALTER TABLE execution_logs DROP CONSTRAINT IF EXISTS fk_execution_logs_recipe;
		 ALTER TABLE execution_logs ADD CONSTRAINT fk_execution_logs_recipe
		 FOREIGN KEY (recipe_id) REFERENCES recipes(id) ON DELETE CASCADE;`,
		`ALTER TABLE execution_logs DROP CONSTRAINT IF EXISTS fk_execution_logs_user;
		 ALTER TABLE execution_logs ADD CONSTRAINT fk_execution_logs_user
		 FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE SET NULL;`,
	}
	for _, stmt := range statements {
		if err := gdb.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
