package manifest

import (
	"fmt"

	corev1 "k8s.io/api/core/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// RoleName is the "kubevault:<user>:access" name shared by a user's Role
// and RoleBinding. It uses ":" as a delimiter verbatim — Roles and
// RoleBindings aren't DNS labels, so this is permitted.
func RoleName(user string) string {
	return fmt.Sprintf("kubevault:%s:access", user)
}

// ServiceAccount renders the per-user ServiceAccount.
func ServiceAccount(namespace, user string) *corev1.ServiceAccount {
	return &corev1.ServiceAccount{
		TypeMeta: metav1.TypeMeta{
			APIVersion: "v1",
			Kind:       "ServiceAccount",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      user,
			Namespace: namespace,
		},
	}
}

// TokenSecret renders the long-lived ServiceAccount token Secret.
func TokenSecret(namespace, user string) *corev1.Secret {
	return &corev1.Secret{
		TypeMeta: metav1.TypeMeta{
			APIVersion: "v1",
			Kind:       "Secret",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      user,
			Namespace: namespace,
			Annotations: map[string]string{
				"kubernetes.io/service-account.name": user,
			},
		},
		Type: corev1.SecretTypeServiceAccountToken,
	}
}

// Role renders the per-user Role. The selfsubjectaccessreviews rule is
// always present; the secrets rule is omitted entirely when the user has no
// allowed secrets, rather than emitted with an empty ResourceNames (which
// Kubernetes would treat as "all secrets").
func Role(namespace, user string, allowedNames []string, ruleText string) *rbacv1.Role {
	rules := []rbacv1.PolicyRule{
		{
			APIGroups: []string{"authorization.k8s.io"},
			Resources: []string{"selfsubjectaccessreviews"},
			Verbs:     []string{"create"},
		},
	}

	if len(allowedNames) > 0 {
		rules = append(rules, rbacv1.PolicyRule{
			APIGroups:     []string{""},
			Resources:     []string{"secrets"},
			Verbs:         []string{"get", "list"},
			ResourceNames: allowedNames,
		})
	}

	return &rbacv1.Role{
		TypeMeta: metav1.TypeMeta{
			APIVersion: "rbac.authorization.k8s.io/v1",
			Kind:       "Role",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      RoleName(user),
			Namespace: namespace,
			Annotations: map[string]string{
				RulesAnnotation: ruleText,
			},
		},
		Rules: rules,
	}
}

// RoleBinding renders the per-user RoleBinding, linking the ServiceAccount
// to the Role within the namespace.
func RoleBinding(namespace, user string) *rbacv1.RoleBinding {
	name := RoleName(user)

	return &rbacv1.RoleBinding{
		TypeMeta: metav1.TypeMeta{
			APIVersion: "rbac.authorization.k8s.io/v1",
			Kind:       "RoleBinding",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
		},
		Subjects: []rbacv1.Subject{
			{
				Kind:      rbacv1.ServiceAccountKind,
				Name:      user,
				Namespace: namespace,
			},
		},
		RoleRef: rbacv1.RoleRef{
			APIGroup: rbacv1.GroupName,
			Kind:     "Role",
			Name:     name,
		},
	}
}
