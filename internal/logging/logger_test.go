package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDisabledIsNoOp(t *testing.T) {
	if err := Initialize("", Options{}); err != nil {
		t.Fatalf("disabled Initialize must not error: %v", err)
	}
	// All of these must be safe without a logs directory.
	Boot("startup")
	Scrape("no-op %d", 1)
	Get(CategoryStore).Error("still a no-op")
	StartTimer(CategoryFetch, "op").Stop()
	CloseAll()
}

func TestCategoryFiles(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(dir, Options{DebugMode: true, Level: "debug"}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer func() {
		CloseAll()
		logsDir = ""
	}()

	Scrape("cascade hit on step %d", 2)
	RetrievalDebug("query embedded")

	entries, err := os.ReadDir(filepath.Join(dir, "logs"))
	if err != nil {
		t.Fatalf("logs dir: %v", err)
	}

	var haveScrape, haveRetrieval bool
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), "_scrape.log") {
			haveScrape = true
		}
		if strings.HasSuffix(e.Name(), "_retrieval.log") {
			haveRetrieval = true
		}
	}
	if !haveScrape || !haveRetrieval {
		t.Errorf("expected per-category files, got %v", entries)
	}
}

func TestCategoryFilter(t *testing.T) {
	dir := t.TempDir()
	err := Initialize(dir, Options{
		DebugMode:  true,
		Level:      "info",
		Categories: map[string]bool{"fetch": false},
	})
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer func() {
		CloseAll()
		logsDir = ""
	}()

	if IsCategoryEnabled(CategoryFetch) {
		t.Error("fetch should be disabled")
	}
	if !IsCategoryEnabled(CategoryStore) {
		t.Error("unlisted categories should stay enabled")
	}
}
