package manifest

import (
	"testing"

	"github.com/chezmoi-sh/kubevault/pkg/kvstore"
	"github.com/chezmoi-sh/kubevault/pkg/mangle"
)

func TestSecretCarriesPathAnnotationAndData(t *testing.T) {
	entry := mangle.NamedEntry{
		Path: kvstore.NewPath("noproduction/applicationA/aws"),
		Name: "noproduction-applicationa-aws",
		Data: map[string]string{"key": "value"},
	}

	secret := Secret("kubevault-kvstore", entry)

	if secret.Name != entry.Name {
		t.Errorf("Name = %q, want %q", secret.Name, entry.Name)
	}
	if secret.Namespace != "kubevault-kvstore" {
		t.Errorf("Namespace = %q", secret.Namespace)
	}
	if secret.Annotations[PathAnnotation] != "noproduction/applicationA/aws" {
		t.Errorf("path annotation = %q", secret.Annotations[PathAnnotation])
	}
	if secret.StringData["key"] != "value" {
		t.Errorf("StringData = %v", secret.StringData)
	}
	if secret.Type != "" {
		t.Errorf("Type = %q, want empty so Kubernetes defaults to Opaque", secret.Type)
	}
}
