package blob

import (
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestOnlyFacadesImportInfra keeps callers on the Store interfaces: infra
// blob backends are reached through this package and session stores through
// internal/archive.
func TestOnlyFacadesImportInfra(t *testing.T) {
	const infraRoot = "strongholdcore/internal/infra"
	facades := map[string]string{
		infraRoot + "/blob":        "strongholdcore/internal/blob",
		infraRoot + "/persistence": "strongholdcore/internal/archive",
	}
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports, Tests: true}
	pkgs, err := packages.Load(cfg, "strongholdcore/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	seen := make(map[string]struct{})
	for _, pkg := range pkgs {
		if under(pkg.PkgPath, infraRoot) {
			continue
		}
		for importPath := range pkg.Imports {
			for infra, facade := range facades {
				if under(importPath, infra) && !under(pkg.PkgPath, facade) {
					seen[pkg.PkgPath+": "+importPath] = struct{}{}
				}
			}
		}
	}
	if len(seen) == 0 {
		return
	}
	violations := make([]string, 0, len(seen))
	for v := range seen {
		violations = append(violations, v)
	}
	sort.Strings(violations)
	for _, v := range violations {
		t.Errorf("forbidden import of infra package: %s", v)
	}
}

func under(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
