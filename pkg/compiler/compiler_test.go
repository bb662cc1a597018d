package compiler

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/go-logr/logr"

	"github.com/chezmoi-sh/kubevault/pkg/acl"
	"github.com/chezmoi-sh/kubevault/pkg/kvstore"
	"github.com/chezmoi-sh/kubevault/pkg/vaulterrors"
)

func put(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile(%s): %v", path, err)
	}
}

// buildFixture lays out a vault tree covering a broad-include user
// (alice), a narrow-include user (charlie) and namespace isolation between
// them: two environments each with two applications and an infrastructure
// directory, plus each user's own namespaced secret.
func buildFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	kv := filepath.Join(root, "kvstore")

	for _, env := range []string{"noproduction", "production"} {
		put(t, filepath.Join(kv, env, "applicationA", "aws"), "key: a1\n")
		put(t, filepath.Join(kv, env, "applicationA", "sendgrid"), "key: a2\n")
		put(t, filepath.Join(kv, env, "applicationB", "cloudflare"), "key: b1\n")
		put(t, filepath.Join(kv, env, "applicationB", "openai"), "key: b2\n")
		put(t, filepath.Join(kv, env, "applicationB", "postgresql"), "key: b3\n")
		put(t, filepath.Join(kv, env, "infrastructureA", "aws"), "key: i1\n")
	}
	put(t, filepath.Join(kv, "noproduction", "users", "alice"), "key: u1\n")
	put(t, filepath.Join(kv, "production", "users", "bob"), "key: u2\n")
	put(t, filepath.Join(kv, "production", "users", "charlie"), "key: u3\n")

	ac := filepath.Join(root, "access_control")
	put(t, filepath.Join(ac, "alice"), ""+
		"noproduction/**\n"+
		"production/**\n"+
		"!production/**/aws\n"+
		"!production/infrastructure*/**\n")
	put(t, filepath.Join(ac, "charlie"), ""+
		"noproduction/applicationA/sendgrid\n"+
		"noproduction/applicationB/openai\n"+
		"production/applicationB/openai\n")

	return root
}

func allowedStrings(t *testing.T, vault *Vault, user string) []string {
	t.Helper()
	u, err := vault.User(user)
	if err != nil {
		t.Fatalf("User(%s): %v", user, err)
	}

	decisions, err := vault.Evaluate(u)
	if err != nil {
		t.Fatalf("Evaluate(%s): %v", user, err)
	}

	var out []string
	for _, p := range acl.AllowedPaths(decisions) {
		out = append(out, p.String())
	}
	sort.Strings(out)
	return out
}

func TestAliceBroadIncludeWithExclusions(t *testing.T) {
	root := buildFixture(t)
	vault, err := Load(context.Background(), root, logr.Discard())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	got := allowedStrings(t, vault, "alice")
	want := []string{
		"noproduction/applicationA/aws",
		"noproduction/applicationA/sendgrid",
		"noproduction/applicationB/cloudflare",
		"noproduction/applicationB/openai",
		"noproduction/applicationB/postgresql",
		"noproduction/infrastructureA/aws",
		"noproduction/users/alice",
		"production/applicationA/sendgrid",
		"production/applicationB/cloudflare",
		"production/applicationB/openai",
		"production/applicationB/postgresql",
	}
	sort.Strings(want)

	if len(got) != len(want) {
		t.Fatalf("allowed set = %v (%d entries), want %v (%d entries)", got, len(got), want, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("allowed[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCharlieNarrowIncludePlusOwnNamespace(t *testing.T) {
	root := buildFixture(t)
	vault, err := Load(context.Background(), root, logr.Discard())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	got := allowedStrings(t, vault, "charlie")
	want := []string{
		"noproduction/applicationA/sendgrid",
		"noproduction/applicationB/openai",
		"production/applicationB/openai",
		"production/users/charlie",
	}
	sort.Strings(want)

	if len(got) != len(want) {
		t.Fatalf("allowed set = %v (%d entries), want %v (%d entries)", got, len(got), want, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("allowed[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestUnknownUserIsRejected(t *testing.T) {
	root := buildFixture(t)
	vault, err := Load(context.Background(), root, logr.Discard())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	_, err = vault.User("dave")
	if !vaulterrors.IsKind(err, vaulterrors.KindUnknownUser) {
		t.Fatalf("User(dave) error = %v, want KindUnknownUser", err)
	}
}

func TestLoadRejectsMissingVaultStructure(t *testing.T) {
	root := t.TempDir()

	_, err := Load(context.Background(), root, logr.Discard())
	if !vaulterrors.IsKind(err, vaulterrors.KindVaultStructureInvalid) {
		t.Fatalf("Load error = %v, want KindVaultStructureInvalid", err)
	}
}

func TestGenerateOrdersSecretsThenUsersByUsername(t *testing.T) {
	root := buildFixture(t)
	vault, err := Load(context.Background(), root, logr.Discard())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	secrets, bundles, err := vault.Generate(context.Background(), "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	for i := 1; i < len(secrets); i++ {
		if secrets[i-1].Secret.Annotations["kubevault.chezmoi.sh/path"] >
			secrets[i].Secret.Annotations["kubevault.chezmoi.sh/path"] {
			t.Errorf("secrets not path-sorted at index %d", i)
		}
	}

	for i := 1; i < len(bundles); i++ {
		if bundles[i-1].User > bundles[i].User {
			t.Errorf("bundles not username-sorted at index %d: %s > %s", i, bundles[i-1].User, bundles[i].User)
		}
	}

	if len(bundles) != 2 {
		t.Fatalf("len(bundles) = %d, want 2 (alice, charlie)", len(bundles))
	}
}

func TestEvaluateOneWorksForArbitraryPath(t *testing.T) {
	root := buildFixture(t)
	vault, err := Load(context.Background(), root, logr.Discard())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	alice, err := vault.User("alice")
	if err != nil {
		t.Fatalf("User: %v", err)
	}

	decision, err := vault.EvaluateOne(alice, kvstore.NewPath("noproduction/not-in-catalog"))
	if err != nil {
		t.Fatalf("EvaluateOne: %v", err)
	}
	if decision.Verdict != acl.Allowed {
		t.Errorf("Verdict = %s, want Allowed (matches noproduction/** even though absent from the catalog)", decision.Verdict)
	}
}
