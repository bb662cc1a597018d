// Package manifest implements the Secret and RBAC renderers and the
// emitter: turning the output of the mangler and the ACL evaluator into
// typed Kubernetes objects and, from those, a YAML stream.
package manifest

import (
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/chezmoi-sh/kubevault/pkg/mangle"
)

const (
	// PathAnnotation preserves the original kvstore-relative path verbatim
	// on every emitted Secret.
	PathAnnotation = "kubevault.chezmoi.sh/path"
	// RulesAnnotation preserves a user's evaluated rule text on their Role.
	RulesAnnotation = "kubevault.chezmoi.sh/rules"

	// DefaultNamespace is used when --namespace is not given.
	DefaultNamespace = "kubevault-kvstore"
)

// Secret renders the Secret manifest for a single mangled kvstore entry. It
// carries no Type, so Kubernetes defaults it to Opaque.
func Secret(namespace string, entry mangle.NamedEntry) *corev1.Secret {
	return &corev1.Secret{
		TypeMeta: metav1.TypeMeta{
			APIVersion: "v1",
			Kind:       "Secret",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      entry.Name,
			Namespace: namespace,
			Annotations: map[string]string{
				PathAnnotation: entry.Path.String(),
			},
		},
		StringData: entry.Data,
	}
}
