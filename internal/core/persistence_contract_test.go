package core

import (
	"go/types"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestPersistentStoreImplementationsHardening ensures only sanctioned
// packages provide concrete implementations of domain.PersistentStore. This
// guards architectural drift from introducing additional backends outside
// the vetted locations without an explicit test update.
func TestPersistentStoreImplementationsHardening(t *testing.T) {
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedTypes, Tests: true}
	pkgs, err := packages.Load(cfg, "agrocore/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	var persistentStore *types.Interface
	for _, p := range pkgs {
		if p.PkgPath == "agrocore/pkg/domain" {
			obj := p.Types.Scope().Lookup("PersistentStore")
			if obj == nil {
				t.Fatalf("domain.PersistentStore not found")
			}
			iface, ok := obj.Type().Underlying().(*types.Interface)
			if !ok {
				t.Fatalf("domain.PersistentStore is not an interface")
			}
			persistentStore = iface
		}
	}
	if persistentStore == nil {
		t.Fatalf("failed to resolve PersistentStore interface")
	}
	allowed := map[string]struct{}{
		"agrocore/internal/infra/persistence/memory": {},
		"agrocore/internal/core":                     {}, // DurableStore wraps memory with the snapshot scheduler
	}
	var unexpected []string
	for _, p := range pkgs {
		if p.Types == nil || p.Types.Scope() == nil {
			continue
		}
		for _, name := range p.Types.Scope().Names() {
			obj := p.Types.Scope().Lookup(name)
			named, ok := obj.Type().(*types.Named)
			if !ok {
				continue
			}
			if _, ok := named.Underlying().(*types.Struct); !ok {
				continue
			}
			if types.Implements(types.NewPointer(named), persistentStore) {
				if _, ok := allowed[p.PkgPath]; !ok {
					unexpected = append(unexpected, p.PkgPath+"."+name)
				}
			}
		}
	}
	if len(unexpected) > 0 {
		t.Fatalf("unexpected PersistentStore implementations (update allowed list intentionally if adding a new backend): %v", unexpected)
	}
}

// TestOnlyCoreImportsPersistenceSinks ensures other packages depend on the
// snapshot.Sink interface instead of importing sink backends directly.
func TestOnlyCoreImportsPersistenceSinks(t *testing.T) {
	sinkPrefixes := []string{
		"agrocore/internal/infra/persistence/file",
		"agrocore/internal/infra/persistence/sqlite",
		"agrocore/internal/infra/persistence/postgres",
	}
	allowed := map[string]struct{}{
		"agrocore/internal/core": {},
	}

	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports, Tests: true}
	pkgs, err := packages.Load(cfg, "agrocore/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}

	for _, pkg := range pkgs {
		if _, ok := allowed[pkg.PkgPath]; ok {
			continue
		}
		skip := false
		for _, prefix := range sinkPrefixes {
			if pkg.PkgPath == prefix || pkg.PkgPath == prefix+".test" {
				skip = true
			}
		}
		if skip {
			continue
		}
		for importPath := range pkg.Imports {
			for _, prefix := range sinkPrefixes {
				if importPath == prefix {
					t.Errorf("forbidden import of persistence sink: %s imports %s", pkg.PkgPath, importPath)
				}
			}
		}
	}
}
