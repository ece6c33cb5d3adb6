package registry

import (
	"context"
	"net/http"
	"testing"
)

const familyJSON = `{
  "ops:world-patent-data": {
    "ops:patent-family": {
      "ops:family-member": [
        {
          "@family-id": "78901234",
          "publication-reference": {
            "document-id": [
              {"@document-id-type": "docdb", "country": {"$": "EP"}, "doc-number": {"$": "3919806"}, "kind": {"$": "A1"}},
              {"@document-id-type": "epodoc", "doc-number": {"$": "EP3919806"}}
            ]
          }
        },
        {
          "@family-id": "78901234",
          "publication-reference": {
            "document-id": {"@document-id-type": "docdb", "country": "US", "doc-number": "2021372574", "kind": "A1"}
          }
        }
      ]
    }
  }
}`

func TestParseFamily(t *testing.T) {
	fx, _ := newFixture(t, http.NotFoundHandler())

	fam, err := ParseFamily([]byte(familyJSON), fx.seed)
	if err != nil {
		t.Fatalf("ParseFamily: %v", err)
	}

	if fam.FamilyID != "78901234" {
		t.Errorf("family id = %s", fam.FamilyID)
	}
	if len(fam.Members) != 2 {
		t.Fatalf("members = %d, want 2 (epodoc entries excluded)", len(fam.Members))
	}
	if fam.Members[0].ID.Dotted() != "EP.3919806.A1" {
		t.Errorf("member[0] = %s", fam.Members[0].ID.Dotted())
	}
	if !fam.Members[1].IsSeed {
		t.Error("US member should be marked as the seed")
	}
}

func TestParseFamily_SingleMemberObject(t *testing.T) {
	doc := []byte(`{
  "ops:world-patent-data": {
    "ops:patent-family": {
      "ops:family-member": {
        "@family-id": "42",
        "publication-reference": {
          "document-id": {"@document-id-type": "docdb", "country": "WO", "doc-number": "2025201951", "kind": "A1"}
        }
      }
    }
  }
}`)

	fx, _ := newFixture(t, http.NotFoundHandler())
	fam, err := ParseFamily(doc, fx.seed)
	if err != nil {
		t.Fatalf("ParseFamily: %v", err)
	}
	if len(fam.Members) != 1 || fam.Members[0].ID.Dotted() != "WO.2025201951.A1" {
		t.Errorf("unexpected members: %+v", fam.Members)
	}
}

func TestParseFamily_Malformed(t *testing.T) {
	fx, _ := newFixture(t, http.NotFoundHandler())

	for _, doc := range []string{"not json", "{}", `{"ops:world-patent-data": {}}`} {
		if _, err := ParseFamily([]byte(doc), fx.seed); err == nil {
			t.Errorf("ParseFamily(%q): expected error", doc)
		}
	}
}

func TestFetchFamily_SuccessAndCache(t *testing.T) {
	hits := 0
	fx, _ := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if r.URL.Path != "/family/publication/docdb/US.2021372574.A1" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("unexpected accept header: %s", r.Header.Get("Accept"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(familyJSON))
	}))

	fam, res := fx.client.FetchFamily(context.Background(), fx.seed)
	if res.Status != StatusOK {
		t.Fatalf("status = %s", res.Status)
	}
	if len(fam.Members) != 2 {
		t.Fatalf("members = %d", len(fam.Members))
	}

	_, res2 := fx.client.FetchFamily(context.Background(), fx.seed)
	if res2.Status != StatusOKCached {
		t.Fatalf("second fetch status = %s, want %s", res2.Status, StatusOKCached)
	}
	if hits != 1 {
		t.Errorf("expected 1 upstream hit, got %d", hits)
	}
}

func TestFetchFamily_NotFound(t *testing.T) {
	fx, _ := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, res := fx.client.FetchFamily(context.Background(), fx.seed)
	if res.Status != StatusNotFound {
		t.Fatalf("status = %s, want %s", res.Status, StatusNotFound)
	}
}
