package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/frahmantamala/org-management/internal/access"
	"github.com/frahmantamala/org-management/internal/department"
	"github.com/frahmantamala/org-management/internal/resource"
	"github.com/frahmantamala/org-management/internal/user"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with a sample department tree, one admin per role tier and a few resources.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		db, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: sqlDB.DB}), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to init orm: %v", err)
		}

		if clearData {
			for _, table := range []string{"audit_logs", "import_jobs", "team_members", "projects", "teams", "resources", "facilities", "users", "departments"} {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		departments := seedDepartments(db)
		users := seedUsers(db, departments)
		seedResources(db, departments, users)

		fmt.Println("Seeding complete")
	},
}

// seedDepartments builds the sample tree: four top-level units with a couple
// of children under IT and Operations.
func seedDepartments(db *gorm.DB) map[string]*department.Department {
	tree := []struct {
		Name        string
		Description string
		Parent      string
	}{
		{"IT", "Information technology", ""},
		{"HR", "Human resources", ""},
		{"Finance", "Finance and accounting", ""},
		{"Operations", "Operations", ""},
		{"Software Development", "Product engineering", "IT"},
		{"Infrastructure", "Platform and networks", "IT"},
		{"Logistics", "Supply and logistics", "Operations"},
	}

	out := make(map[string]*department.Department, len(tree))
	for _, node := range tree {
		var existing department.Department
		if err := db.Where("name = ?", node.Name).First(&existing).Error; err == nil {
			out[node.Name] = &existing
			continue
		}

		d := &department.Department{
			Name:        node.Name,
			Description: node.Description,
		}
		if node.Parent != "" {
			d.ParentID = &out[node.Parent].ID
		}
		if err := db.Create(d).Error; err != nil {
			log.Fatalf("failed to seed department %s: %v", node.Name, err)
		}
		out[node.Name] = d
		fmt.Println("Seeded department:", node.Name)
	}
	return out
}

// seedUsers creates one account per role tier. All share the same sample
// password.
func seedUsers(db *gorm.DB, departments map[string]*department.Department) map[string]*user.User {
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash seed password: %v", err)
	}

	itID := departments["IT"].ID
	devID := departments["Software Development"].ID

	accounts := []struct {
		Email      string
		Name       string
		Role       access.Role
		Department *int64
	}{
		{"root@example.com", "Root Admin", access.RoleRootAdmin, nil},
		{"orgadmin@example.com", "Org Admin", access.RoleOrgAdmin, &itID},
		{"unitadmin@example.com", "Unit Admin", access.RoleUnitAdmin, &devID},
		{"member@example.com", "Member", access.RoleMember, &devID},
	}

	out := make(map[string]*user.User, len(accounts))
	for _, a := range accounts {
		var existing user.User
		if err := db.Where("email = ?", a.Email).First(&existing).Error; err == nil {
			out[a.Email] = &existing
			continue
		}

		u := &user.User{
			Email:        a.Email,
			Name:         a.Name,
			PasswordHash: string(hash),
			Role:         a.Role,
			DepartmentID: a.Department,
			IsActive:     true,
		}
		if err := db.Create(u).Error; err != nil {
			log.Fatalf("failed to seed user %s: %v", a.Email, err)
		}
		out[a.Email] = u
		fmt.Println("Seeded user:", a.Email, "role:", a.Role)
	}

	// the member reports to the unit admin
	member := out["member@example.com"]
	if member.ManagerID == nil {
		managerID := out["unitadmin@example.com"].ID
		if err := db.Model(&user.User{}).Where("id = ?", member.ID).Update("manager_id", managerID).Error; err != nil {
			log.Fatalf("failed to set seed manager: %v", err)
		}
	}
	return out
}

func seedResources(db *gorm.DB, departments map[string]*department.Department, users map[string]*user.User) {
	devID := departments["Software Development"].ID
	infraID := departments["Infrastructure"].ID
	memberID := users["member@example.com"].ID

	resources := []resource.Resource{
		{Name: "Dev Laptop 01", Type: "laptop", Status: resource.StatusInUse, DepartmentID: &devID, AssignedUserID: &memberID},
		{Name: "Dev Laptop 02", Type: "laptop", Status: resource.StatusAvailable, DepartmentID: &devID},
		{Name: "Rack Server A", Type: "server", Status: resource.StatusMaintenance, DepartmentID: &infraID},
	}
	for i := range resources {
		res := &resources[i]
		var count int64
		db.Model(&resource.Resource{}).Where("name = ?", res.Name).Count(&count)
		if count > 0 {
			continue
		}
		if err := db.Create(res).Error; err != nil {
			log.Fatalf("failed to seed resource %s: %v", res.Name, err)
		}
		fmt.Println("Seeded resource:", res.Name)
	}

	hrID := departments["HR"].ID
	facilities := []resource.Facility{
		{Name: "Main Meeting Room", Type: "meeting_room", Capacity: 12, Location: "HQ 2F", Status: resource.StatusAvailable, DepartmentID: &hrID},
		{Name: "Server Room", Type: "server_room", Capacity: 4, Location: "HQ B1", Status: resource.StatusAvailable, DepartmentID: &infraID},
	}
	for i := range facilities {
		f := &facilities[i]
		var count int64
		db.Model(&resource.Facility{}).Where("name = ?", f.Name).Count(&count)
		if count > 0 {
			continue
		}
		if err := db.Create(f).Error; err != nil {
			log.Fatalf("failed to seed facility %s: %v", f.Name, err)
		}
		fmt.Println("Seeded facility:", f.Name)
	}
}
