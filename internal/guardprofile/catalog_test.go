package guardprofile

import "testing"

func TestCatalog_BuiltinsLoadFromEmbeddedFS(t *testing.T) {
	c := NewCatalog(t.TempDir())
	doc, found, err := c.Load(CoreNamespace, "default")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !found {
		t.Fatal("expected the built-in \"default\" profile to be found")
	}
	if doc.PrimaryMessageInterceptor.Type == "" {
		t.Fatal("expected a populated primary_message_interceptor")
	}
}

func TestCatalog_SaveLoadDelete(t *testing.T) {
	c := NewCatalog(t.TempDir())
	doc := Document{PrimaryMessageInterceptor: InterceptorConfig{Type: "MessageLog", LogLevel: "info"}}

	if err := c.Save("team", "basic", doc); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, found, err := c.Load("team", "basic")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !found {
		t.Fatal("expected the saved profile to be found")
	}
	if got.PrimaryMessageInterceptor.Type != "MessageLog" {
		t.Fatalf("loaded type = %q, want MessageLog", got.PrimaryMessageInterceptor.Type)
	}

	if err := c.Delete("team", "basic"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, found, err := c.Load("team", "basic"); err != nil || found {
		t.Fatalf("expected profile to be gone after Delete, found=%v err=%v", found, err)
	}
}

func TestCatalog_RejectsMutatingCoreNamespace(t *testing.T) {
	c := NewCatalog(t.TempDir())
	if err := c.Save(CoreNamespace, "anything", Document{}); err == nil {
		t.Fatal("expected Save into the core namespace to be rejected")
	}
	if err := c.Delete(CoreNamespace, "default"); err == nil {
		t.Fatal("expected Delete of a built-in to be rejected")
	}
}

func TestCatalog_ListIncludesBuiltinsAndOnDisk(t *testing.T) {
	c := NewCatalog(t.TempDir())
	if err := c.Save("team", "custom", Document{PrimaryMessageInterceptor: InterceptorConfig{Type: "ManualApproval"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	docs, err := c.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	var sawBuiltin, sawCustom bool
	for _, d := range docs {
		if d.Namespace == CoreNamespace {
			sawBuiltin = true
		}
		if d.Namespace == "team" && d.Name == "custom" {
			sawCustom = true
		}
	}
	if !sawBuiltin {
		t.Fatal("expected List to include a built-in profile")
	}
	if !sawCustom {
		t.Fatal("expected List to include the on-disk custom profile")
	}
}

func TestCatalog_LoadMissingReturnsNotFound(t *testing.T) {
	c := NewCatalog(t.TempDir())
	_, found, err := c.Load("nope", "missing")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if found {
		t.Fatal("expected not found for a nonexistent profile")
	}
}
