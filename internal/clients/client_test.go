package clients

import (
	"path/filepath"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		client   Client
		wantBase string
		wantEnv  Environment
	}{
		{"prod suffix", Client{Name: "acme-prod"}, "acme", Production},
		{"dev suffix", Client{Name: "clientA-dev"}, "clientA", Development},
		{"staging with date", Client{Name: "acme-staging-2024-07-14"}, "acme", Staging},
		{"dashed base", Client{Name: "big-corp-development"}, "big-corp", Development},
		{"no suffix", Client{Name: "acme"}, "acme", Production},
		{"explicit fields win", Client{Name: "acme-dev", BaseName: "acme-eu", Environment: "staging"}, "acme-eu", Staging},
		{"leading token is never a marker", Client{Name: "dev-tools"}, "dev-tools", Production},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.client.Normalize()
			if got.BaseName != tt.wantBase {
				t.Errorf("BaseName = %q, want %q", got.BaseName, tt.wantBase)
			}
			if got.Environment != tt.wantEnv {
				t.Errorf("Environment = %q, want %q", got.Environment, tt.wantEnv)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	tests := map[string]Status{
		"healthy":  StatusHealthy,
		"WARNING":  StatusWarning,
		"error":    StatusError,
		"critical": StatusCritical,
		"":         StatusUnknown,
		"weird":    StatusUnknown,
	}
	for in, want := range tests {
		if got := ParseStatus(in); got != want {
			t.Errorf("ParseStatus(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBranchOrDerived(t *testing.T) {
	tests := []struct {
		client Client
		want   string
	}{
		{Client{Name: "acme-prod", Branch: "18.0"}, "18.0"},
		{Client{Name: "acme-staging-2024-07-14", BaseName: "acme"}, "staging-2024-07-14"},
		{Client{Name: "acme-dev"}, "dev"},
		{Client{Name: "acme"}, "acme"},
	}
	for _, tt := range tests {
		if got := tt.client.BranchOrDerived(); got != tt.want {
			t.Errorf("BranchOrDerived(%+v) = %q, want %q", tt.client, got, tt.want)
		}
	}
}

func TestSameBase(t *testing.T) {
	a := Client{Name: "clientA-dev"}.Normalize()
	b := Client{Name: "clientA-prod"}.Normalize()
	c := Client{Name: "clientB-prod"}.Normalize()

	if !a.SameBase(b) {
		t.Error("expected clientA-dev and clientA-prod to share a base")
	}
	if a.SameBase(c) {
		t.Error("expected clientA-dev and clientB-prod to differ")
	}
}

func TestNormalizeAllSortsByBaseThenTier(t *testing.T) {
	list := NormalizeAll([]Client{
		{Name: "zeta-dev"},
		{Name: "acme-dev"},
		{Name: "acme-prod"},
		{Name: "acme-staging"},
	})

	want := []string{"acme-prod", "acme-staging", "acme-dev", "zeta-dev"}
	for i, name := range want {
		if list[i].Name != name {
			t.Errorf("position %d = %q, want %q", i, list[i].Name, name)
		}
	}
}

func TestRowsGroupsAndCollapses(t *testing.T) {
	list := NormalizeAll([]Client{
		{Name: "acme-prod"},
		{Name: "acme-dev"},
		{Name: "acme-dev-feature"},
		{Name: "zeta-prod"},
	})

	rows := Rows(list, nil)
	// 3 headers + 4 clients
	if len(rows) != 7 {
		t.Fatalf("expected 7 rows, got %d", len(rows))
	}
	if !rows[0].IsHeader || rows[0].Section != (SectionKey{"acme", Production}) {
		t.Errorf("unexpected first row: %+v", rows[0])
	}

	collapsed := map[SectionKey]bool{{"acme", Development}: false}
	rows = Rows(list, collapsed)
	if len(rows) != 5 {
		t.Fatalf("expected 5 rows with dev collapsed, got %d", len(rows))
	}
	for _, r := range rows {
		if r.Section.Environment == Development && r.Section.Base == "acme" && !r.IsHeader {
			t.Errorf("collapsed section still shows %q", r.Client.Name)
		}
		if r.IsHeader && r.Section == (SectionKey{"acme", Development}) && r.Count != 2 {
			t.Errorf("expected collapsed header count 2, got %d", r.Count)
		}
	}
}

func TestCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "clients.json")
	list := []Client{{Name: "acme-prod", Branch: "main"}}

	if err := SaveCache(path, "http://localhost:8000", list); err != nil {
		t.Fatalf("SaveCache() error: %v", err)
	}

	cache := LoadCache(path, "http://localhost:8000")
	if cache == nil {
		t.Fatal("expected cache hit")
	}
	if len(cache.Clients) != 1 || cache.Clients[0].Branch != "main" {
		t.Errorf("unexpected cached clients: %+v", cache.Clients)
	}

	if LoadCache(path, "http://other:8000") != nil {
		t.Error("expected cache miss for another server")
	}
}

func TestCachePathIsPerServer(t *testing.T) {
	a := CachePath("http://localhost:8000")
	b := CachePath("https://mcp.example.com")
	if a == b {
		t.Error("expected distinct cache paths per server")
	}
	if filepath.Base(a) != "localhost_8000.json" {
		t.Errorf("unexpected cache file name %q", filepath.Base(a))
	}
}
