package state

import (
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "arbor.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreateRun(t *testing.T) {
	db := openTestDB(t)

	run, err := db.CreateRun("build it", "/tmp/ws1", 5, 3, RunStatusExecuting)
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if run.ID == "" {
		t.Error("run should get an ID")
	}
	if run.Status != RunStatusExecuting {
		t.Errorf("status = %q", run.Status)
	}

	found, err := db.FindByWorkspace("/tmp/ws1")
	if err != nil {
		t.Fatalf("FindByWorkspace failed: %v", err)
	}
	if found == nil || found.ID != run.ID {
		t.Errorf("found = %+v, want run %s", found, run.ID)
	}
	if found.Problem != "build it" {
		t.Errorf("problem = %q", found.Problem)
	}
	if found.FinishedAt != nil {
		t.Error("new run should have no finish time")
	}
}

func TestUpdateRun_TerminalStampsFinish(t *testing.T) {
	db := openTestDB(t)
	run, err := db.CreateRun("p", "/tmp/ws", 5, 3, RunStatusDecomposing)
	if err != nil {
		t.Fatal(err)
	}

	if err := db.UpdateRun(run.ID, RunStatusDecomposed, 4); err != nil {
		t.Fatalf("UpdateRun failed: %v", err)
	}
	found, _ := db.FindByWorkspace("/tmp/ws")
	if found.Status != RunStatusDecomposed || found.NodesCreated != 4 {
		t.Errorf("run = %+v", found)
	}
	if found.FinishedAt != nil {
		t.Error("non-terminal status should not stamp finish time")
	}

	if err := db.UpdateRun(run.ID, RunStatusDone, 5); err != nil {
		t.Fatalf("UpdateRun failed: %v", err)
	}
	found, _ = db.FindByWorkspace("/tmp/ws")
	if found.Status != RunStatusDone {
		t.Errorf("status = %q", found.Status)
	}
	if found.FinishedAt == nil {
		t.Error("terminal status should stamp finish time")
	}
}

func TestFindByWorkspace_NotRecorded(t *testing.T) {
	db := openTestDB(t)
	found, err := db.FindByWorkspace("/tmp/never-seen")
	if err != nil {
		t.Fatalf("FindByWorkspace failed: %v", err)
	}
	if found != nil {
		t.Errorf("found = %+v, want nil", found)
	}
}

func TestListRuns(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.CreateRun("first", "/tmp/a", 5, 3, RunStatusDone); err != nil {
		t.Fatal(err)
	}
	if _, err := db.CreateRun("second", "/tmp/b", 5, 3, RunStatusExecuting); err != nil {
		t.Fatal(err)
	}

	runs, err := db.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
}
