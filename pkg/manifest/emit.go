package manifest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	sigsyaml "sigs.k8s.io/yaml"

	corev1 "k8s.io/api/core/v1"

	"github.com/chezmoi-sh/kubevault/pkg/vaulterrors"
)

const docSeparator = "---\n"

// SecretFile pairs a rendered Secret with the mangled name used to derive
// its output filename.
type SecretFile struct {
	Name   string
	Secret *corev1.Secret
}

// UserBundle is the four RBAC objects rendered for one user, always in the
// order they're emitted: ServiceAccount, token Secret, Role, RoleBinding.
type UserBundle struct {
	User           string
	ServiceAccount interface{}
	TokenSecret    interface{}
	Role           interface{}
	RoleBinding    interface{}
}

func (b UserBundle) objects() []interface{} {
	return []interface{}{b.ServiceAccount, b.TokenSecret, b.Role, b.RoleBinding}
}

// RenderStream concatenates every Secret (already path-sorted by the
// caller) followed by every user's RBAC bundle (already user-sorted by the
// caller) into one "---\n"-separated YAML stream. Stable ordering is
// entirely the caller's responsibility: this function only serializes in
// the order it's given.
func RenderStream(secrets []SecretFile, bundles []UserBundle) ([]byte, error) {
	var buf bytes.Buffer

	write := func(obj interface{}) error {
		b, err := sigsyaml.Marshal(obj)
		if err != nil {
			return vaulterrors.Wrap(err, vaulterrors.KindOutputFailure, "", "failed to marshal manifest")
		}

		if buf.Len() > 0 {
			buf.WriteString(docSeparator)
		}
		buf.Write(b)

		return nil
	}

	for _, sf := range secrets {
		if err := write(sf.Secret); err != nil {
			return nil, err
		}
	}

	for _, b := range bundles {
		for _, obj := range b.objects() {
			if err := write(obj); err != nil {
				return nil, err
			}
		}
	}

	return buf.Bytes(), nil
}

// WriteDir writes one file per Secret (secrets-<name>.yaml) and one file
// per user (access-control-<user>.yaml, containing all four RBAC objects
// concatenated) into dir, overwriting any existing files of those names and
// leaving everything else untouched.
func WriteDir(dir string, secrets []SecretFile, bundles []UserBundle) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return vaulterrors.Wrap(err, vaulterrors.KindOutputFailure, dir, "failed to create output directory")
	}

	for _, sf := range secrets {
		b, err := sigsyaml.Marshal(sf.Secret)
		if err != nil {
			return vaulterrors.Wrap(err, vaulterrors.KindOutputFailure, sf.Name, "failed to marshal secret manifest")
		}

		path := filepath.Join(dir, fmt.Sprintf("secrets-%s.yaml", sf.Name))
		if err := os.WriteFile(path, b, 0o644); err != nil {
			return vaulterrors.Wrap(err, vaulterrors.KindOutputFailure, path, "failed to write secret manifest")
		}
	}

	for _, bundle := range bundles {
		var buf bytes.Buffer
		for i, obj := range bundle.objects() {
			b, err := sigsyaml.Marshal(obj)
			if err != nil {
				return vaulterrors.Wrap(err, vaulterrors.KindOutputFailure, bundle.User, "failed to marshal RBAC manifest")
			}
			if i > 0 {
				buf.WriteString(docSeparator)
			}
			buf.Write(b)
		}

		path := filepath.Join(dir, fmt.Sprintf("access-control-%s.yaml", bundle.User))
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return vaulterrors.Wrap(err, vaulterrors.KindOutputFailure, path, "failed to write RBAC manifest")
		}
	}

	return nil
}
