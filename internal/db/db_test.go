package db

import (
	"testing"

	"github.com/funildigital/funil/internal/config"
	"github.com/funildigital/funil/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := AutoMigrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func TestDSN(t *testing.T) {
	cfg := config.DBConfig{Host: "db.internal", Port: 3307, User: "funil", Password: "s3cret", Database: "funil_prod"}
	got := DSN(cfg)
	want := "funil:s3cret@tcp(db.internal:3307)/funil_prod?parseTime=true&charset=utf8mb4"
	if got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
}

func TestDSN_NoPassword(t *testing.T) {
	cfg := config.DBConfig{Host: "127.0.0.1", Port: 3306, User: "root", Database: "funil"}
	got := DSN(cfg)
	want := "root@tcp(127.0.0.1:3306)/funil?parseTime=true&charset=utf8mb4"
	if got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
}

func TestSeedAgents_UpsertByName(t *testing.T) {
	gdb := testDB(t)

	seeds := []config.AgentConfig{
		{Name: "Alice", Phone: "11988880001"},
		{Name: "Bob", Role: "manager"},
	}
	if err := SeedAgents(gdb, seeds); err != nil {
		t.Fatalf("SeedAgents: %v", err)
	}

	// Re-seeding with changed fields updates in place, no duplicate rows.
	seeds[0].Phone = "11988880009"
	if err := SeedAgents(gdb, seeds); err != nil {
		t.Fatalf("SeedAgents (again): %v", err)
	}

	var agents []models.Agent
	if err := gdb.Order("name ASC").Find(&agents).Error; err != nil {
		t.Fatalf("find agents: %v", err)
	}
	if len(agents) != 2 {
		t.Fatalf("agent count = %d, want 2", len(agents))
	}
	if agents[0].Phone != "11988880009" {
		t.Errorf("Alice phone = %q, want updated value", agents[0].Phone)
	}
	if agents[0].Role != "sales" {
		t.Errorf("default role = %q, want sales", agents[0].Role)
	}
	if agents[1].Role != "manager" {
		t.Errorf("Bob role = %q, want manager", agents[1].Role)
	}
}

func TestSeedCounter_NeverResets(t *testing.T) {
	gdb := testDB(t)

	if err := SeedCounter(gdb, "lead_rotation"); err != nil {
		t.Fatalf("SeedCounter: %v", err)
	}
	if err := gdb.Model(&models.RotationCounter{}).
		Where("name = ?", "lead_rotation").Update("value", 7).Error; err != nil {
		t.Fatalf("bump counter: %v", err)
	}

	// Seeding again must not reset an existing counter.
	if err := SeedCounter(gdb, "lead_rotation"); err != nil {
		t.Fatalf("SeedCounter (again): %v", err)
	}
	var c models.RotationCounter
	if err := gdb.Where("name = ?", "lead_rotation").First(&c).Error; err != nil {
		t.Fatalf("load counter: %v", err)
	}
	if c.Value != 7 {
		t.Errorf("counter value = %d, want 7", c.Value)
	}
}
