package mangle

import (
	"testing"

	"github.com/chezmoi-sh/kubevault/pkg/kvstore"
	"github.com/chezmoi-sh/kubevault/pkg/vaulterrors"
)

func TestNameLowercasesAndJoinsSegments(t *testing.T) {
	got, err := Name(kvstore.NewPath("noproduction/applicationA/aws"))
	if err != nil {
		t.Fatalf("Name: %v", err)
	}
	if got != "noproduction-applicationa-aws" {
		t.Errorf("Name = %q, want %q", got, "noproduction-applicationa-aws")
	}
}

func TestNameCollapsesDisallowedRuns(t *testing.T) {
	got, err := Name(kvstore.NewPath("a.b_c/d--e"))
	if err != nil {
		t.Fatalf("Name: %v", err)
	}
	if got != "a-b-c-d-e" {
		t.Errorf("Name = %q, want %q", got, "a-b-c-d-e")
	}
}

func TestNameRejectsAllDisallowedInput(t *testing.T) {
	_, err := Name(kvstore.NewPath("___"))
	if !vaulterrors.IsKind(err, vaulterrors.KindEmptySecretName) {
		t.Fatalf("Name error = %v, want KindEmptySecretName", err)
	}
}

func TestCatalogDetectsCollision(t *testing.T) {
	cat := &kvstore.Catalog{Entries: []kvstore.Entry{
		{Path: kvstore.NewPath("A/B")},
		{Path: kvstore.NewPath("A-B")},
	}}

	_, err := Catalog(cat)
	if !vaulterrors.IsKind(err, vaulterrors.KindSecretNameCollision) {
		t.Fatalf("Catalog error = %v, want KindSecretNameCollision", err)
	}
}

func TestCatalogPreservesOrderWhenNoCollision(t *testing.T) {
	cat := &kvstore.Catalog{Entries: []kvstore.Entry{
		{Path: kvstore.NewPath("noproduction/applicationA/aws"), Data: map[string]string{"k": "v"}},
		{Path: kvstore.NewPath("noproduction/applicationA/sendgrid")},
	}}

	named, err := Catalog(cat)
	if err != nil {
		t.Fatalf("Catalog: %v", err)
	}
	if len(named) != 2 {
		t.Fatalf("len(named) = %d, want 2", len(named))
	}
	if named[0].Name != "noproduction-applicationa-aws" {
		t.Errorf("named[0].Name = %q", named[0].Name)
	}
	if named[0].Data["k"] != "v" {
		t.Errorf("named[0].Data not carried through, got %v", named[0].Data)
	}
}
