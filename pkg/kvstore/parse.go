package kvstore

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v2"

	"github.com/chezmoi-sh/kubevault/pkg/vaulterrors"
)

// parseSecretFile reads a kvstore file and returns its canonicalized
// stringData: the file must parse as a YAML mapping of scalar string keys
// to scalar values, the latter coerced to their canonical string form.
func parseSecretFile(absPath, relPath string) (map[string]string, error) {
	raw, err := os.ReadFile(absPath)
	if err != nil {
		return nil, vaulterrors.Wrap(err, vaulterrors.KindUnreadableFile, relPath, "failed to read secret file")
	}

	var root interface{}
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, vaulterrors.Wrap(err, vaulterrors.KindInvalidSecretBody, relPath, "failed to parse YAML")
	}

	if root == nil {
		return map[string]string{}, nil
	}

	rootMap, ok := root.(map[interface{}]interface{})
	if !ok {
		return nil, vaulterrors.New(vaulterrors.KindInvalidSecretBody, relPath, "document root is not a mapping")
	}

	data := make(map[string]string, len(rootMap))
	for rawKey, rawValue := range rootMap {
		key, ok := rawKey.(string)
		if !ok || !keyPattern.MatchString(key) {
			return nil, vaulterrors.New(vaulterrors.KindInvalidSecretKey, relPath, "key is not DNS subdomain-compatible")
		}

		value, err := canonicalizeScalar(rawValue)
		if err != nil {
			return nil, vaulterrors.Wrap(err, vaulterrors.KindInvalidSecretBody, relPath, "value for key "+key+" is not a scalar")
		}

		data[key] = value
	}

	return data, nil
}

// canonicalizeScalar coerces a YAML scalar into its canonical string form:
// integers as decimal, booleans as "true"/"false", floats using their
// shortest round-tripping textual form. Strings pass through unchanged.
func canonicalizeScalar(v interface{}) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case uint64:
		return strconv.FormatUint(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64), nil
	case nil:
		return "", nil
	default:
		return "", errUnsupportedScalar
	}
}

var errUnsupportedScalar = &scalarError{"value is not a string, number, boolean or null"}

type scalarError struct{ msg string }

func (e *scalarError) Error() string { return e.msg }
