package rotation

import (
	"fmt"
	"sync"
	"testing"

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
	if err := gdb.AutoMigrate(&models.RotationCounter{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func roster(names ...string) []models.Agent {
	agents := make([]models.Agent, len(names))
	for i, n := range names {
		agents[i] = models.Agent{ID: uint(i + 1), Name: n}
	}
	return agents
}

func TestNext_RoundRobinSequence(t *testing.T) {
	gdb := testDB(t)
	agents := roster("Alice", "Bob", "Carol")

	// Counter starts at 0: first increment picks roster[0], and so on.
	want := []string{"Alice", "Bob", "Carol", "Alice", "Bob"}
	for i, name := range want {
		a, err := Next(gdb, agents, "Team")
		if err != nil {
			t.Fatalf("Next #%d: %v", i+1, err)
		}
		if a.AgentName != name {
			t.Errorf("Next #%d agent = %q, want %q", i+1, a.AgentName, name)
		}
		if a.Pre == nil || a.Post == nil {
			t.Fatalf("Next #%d: nil counter snapshot", i+1)
		}
		if *a.Pre != int64(i) || *a.Post != int64(i+1) {
			t.Errorf("Next #%d counter = (%d, %d), want (%d, %d)", i+1, *a.Pre, *a.Post, i, i+1)
		}
	}
}

func TestNext_FairDistribution(t *testing.T) {
	gdb := testDB(t)
	agents := roster("Alice", "Bob", "Carol")

	const n = 10
	counts := map[string]int{}
	for i := 0; i < n; i++ {
		a, err := Next(gdb, agents, "Team")
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		counts[a.AgentName]++
	}

	// 10 assignments over 3 agents: every agent gets 3 or 4.
	for name, got := range counts {
		if got != n/3 && got != n/3+1 {
			t.Errorf("%s selected %d times, want %d or %d", name, got, n/3, n/3+1)
		}
	}
	if len(counts) != 3 {
		t.Errorf("agents selected = %d, want 3", len(counts))
	}
}

func TestNext_FairUnderConcurrency(t *testing.T) {
	gdb := testDB(t)
	agents := roster("Alice", "Bob", "Carol")

	// A fresh sqlite :memory: connection is its own database, so the pool
	// must stay at one connection for the goroutines to share state.
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := gdb.Create(&models.RotationCounter{Name: CounterName}).Error; err != nil {
		t.Fatalf("seed counter: %v", err)
	}

	const n = 30
	var wg sync.WaitGroup
	var mu sync.Mutex
	counts := map[string]int{}
	pres := map[int64]bool{}
	var errs []error
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := Next(gdb, agents, "Team")
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			counts[a.AgentName]++
			if pres[*a.Pre] {
				errs = append(errs, fmt.Errorf("pre-increment value %d observed twice", *a.Pre))
			}
			pres[*a.Pre] = true
		}()
	}
	wg.Wait()

	for _, err := range errs {
		t.Error(err)
	}
	// 30 assignments over 3 agents: exactly 10 each, no collisions.
	for _, name := range []string{"Alice", "Bob", "Carol"} {
		if counts[name] != n/3 {
			t.Errorf("%s selected %d times, want %d", name, counts[name], n/3)
		}
	}

	value, err := Peek(gdb)
	if err != nil {
		t.Fatalf("Peek: %v", err)
	}
	if value != n {
		t.Errorf("counter = %d, want %d", value, n)
	}
}

func TestNext_EmptyRosterSkipsIncrement(t *testing.T) {
	gdb := testDB(t)
	if err := gdb.Create(&models.RotationCounter{Name: CounterName, Value: 5}).Error; err != nil {
		t.Fatalf("seed counter: %v", err)
	}

	a, err := Next(gdb, nil, "Team")
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if a.AgentName != "Team" || !a.Sentinel {
		t.Errorf("assignment = %+v, want sentinel Team", a)
	}
	if a.Pre != nil || a.Post != nil {
		t.Error("sentinel assignment must carry nil counter values")
	}

	value, err := Peek(gdb)
	if err != nil {
		t.Fatalf("Peek: %v", err)
	}
	if value != 5 {
		t.Errorf("counter = %d, want untouched 5", value)
	}
}

func TestNext_CreatesMissingCounterRow(t *testing.T) {
	gdb := testDB(t)

	a, err := Next(gdb, roster("Alice"), "Team")
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if a.AgentName != "Alice" {
		t.Errorf("agent = %q, want Alice", a.AgentName)
	}
	if *a.Pre != 0 || *a.Post != 1 {
		t.Errorf("counter = (%d, %d), want (0, 1)", *a.Pre, *a.Post)
	}
}

func TestPeek_MissingRowReadsZero(t *testing.T) {
	gdb := testDB(t)
	value, err := Peek(gdb)
	if err != nil {
		t.Fatalf("Peek: %v", err)
	}
	if value != 0 {
		t.Errorf("Peek = %d, want 0", value)
	}
}

func TestExpected(t *testing.T) {
	gdb := testDB(t)
	agents := roster("Alice", "Bob", "Carol")

	if got := Expected(gdb, agents, "Team"); got != "Alice" {
		t.Errorf("Expected with fresh counter = %q, want Alice", got)
	}

	if _, err := Next(gdb, agents, "Team"); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if got := Expected(gdb, agents, "Team"); got != "Bob" {
		t.Errorf("Expected after one assignment = %q, want Bob", got)
	}

	// Peeking must not consume a slot.
	a, err := Next(gdb, agents, "Team")
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if a.AgentName != "Bob" {
		t.Errorf("Next after Expected = %q, want Bob", a.AgentName)
	}

	if got := Expected(gdb, nil, "Team"); got != "Team" {
		t.Errorf("Expected with empty roster = %q, want Team", got)
	}
}
