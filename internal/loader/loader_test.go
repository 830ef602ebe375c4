package loader

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture %s: %v", name, err)
	}
}

func TestLoadDirHappyPath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Lof_Selectjobs.csv", "ID,SubmissionTime,Deadline,TardinessWeight,MinExecTime,MaxExecTime,RatioAvg\nj1,0,50,1,100,100,1\n")
	writeFile(t, dir, "SelectJobs_times.csv", "ID,GPUtype,nGPUs,GPUf,ExecutionTime\nj1,X,4,1,100\n")
	writeFile(t, dir, "tNodes.csv", "ID,GPUtype,nGPUs,cost\nn1,X,4,10\n")
	writeFile(t, dir, "GPU-costs.csv", "GPUtype,nGPUs,cost\nX,4,7\n")

	b, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}
	if len(b.Jobs) != 1 || b.Jobs[0].ID != "j1" {
		t.Fatalf("Jobs = %+v, want one job j1", b.Jobs)
	}
	if !b.TimeTable.HasJob("j1") {
		t.Fatal("expected timetable entry for j1")
	}
	if len(b.Resources.OpenNodes("X")) != 1 {
		t.Fatal("expected one open node of type X")
	}
	if cost, ok := b.Catalogue.UnitCost("X", 4); !ok || cost != 7 {
		t.Fatalf("Catalogue.UnitCost(X,4) = (%v,%v), want (7,true)", cost, ok)
	}
}

func TestLoadDirMissingFile(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadDir(dir); err == nil {
		t.Fatal("expected an error when no input files are present")
	} else if _, ok := err.(*MissingInputError); !ok {
		t.Fatalf("expected *MissingInputError, got %T: %v", err, err)
	}
}

func TestLoadDirSchemaMismatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Lof_Selectjobs.csv", "ID,SubmissionTime\nj1,0\n")

	_, err := LoadDir(dir)
	if err == nil {
		t.Fatal("expected a schema mismatch error")
	}
	if _, ok := err.(*SchemaMismatchError); !ok {
		t.Fatalf("expected *SchemaMismatchError, got %T: %v", err, err)
	}
}
