// Package secrets resolves secret aliases inside environment mappings
// against an ordered list of secret backends.
package secrets

import (
	"github.com/illikainen/snapback/src/envx"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Backend is the lookup capability of one secret store.  A backend
// that cannot find the key reports found=false; an error aborts the
// whole resolution.
type Backend interface {
	GetSecret(key string) (value string, found bool, err error)
}

// Ref couples a backend with its private alias mapping.  Aliases are
// dotted key paths into Env; the value at the end of the path is the
// backend-local key passed to GetSecret.
type Ref struct {
	Type    string
	Env     envx.Env
	Backend Backend
}

var backends = map[string]func(config map[string]any) (Backend, error){}

// Register adds a backend constructor under a type name.  Backend
// implementations register themselves from init.
func Register(name string, fun func(config map[string]any) (Backend, error)) error {
	if _, ok := backends[name]; ok {
		return errors.Errorf("%s is already registered", name)
	}

	backends[name] = fun
	return nil
}

// Lookup instantiates a backend by type name.
func Lookup(name string, config map[string]any) (Backend, error) {
	fun, ok := backends[name]
	if !ok {
		return nil, errors.Errorf("%s is not a valid secret backend", name)
	}

	return fun(config)
}

// Resolve walks env recursively and replaces every alias whose dotted
// key path resolves through a backend's alias mapping, in backend
// declaration order.  An alias that no backend resolves is kept
// verbatim with a warning; downstream consumers decide whether an
// unresolved placeholder is fatal.  Non-alias values pass through
// unchanged, so resolving an already-resolved environment is a no-op.
func Resolve(env envx.Env, refs []*Ref) (envx.Env, error) {
	resolved := envx.Env{}

	for key, value := range env {
		switch value := value.(type) {
		case envx.Alias:
			log.Debugf("trying to resolve env %s with secret alias %s", key, value)

			secret, ref, err := resolveAlias(value, refs)
			if err != nil {
				return nil, err
			}
			if ref == nil {
				log.Warnf("env %s with secret alias %s cannot be resolved", key, value)
				resolved[key] = value
				continue
			}

			log.Debugf("env %s resolved using %s", key, ref.Type)
			resolved[key] = envx.String(secret)
		case envx.Env:
			sub, err := Resolve(value, refs)
			if err != nil {
				return nil, err
			}
			resolved[key] = sub
		default:
			resolved[key] = value
		}
	}

	return resolved, nil
}

// resolveAlias returns the secret for the first backend whose alias
// mapping resolves the full key path and whose store has the key.
// Later backends are not consulted once a value is found.
func resolveAlias(alias envx.Alias, refs []*Ref) (string, *Ref, error) {
	for _, ref := range refs {
		value, ok := ref.Env.Lookup(alias.Path())
		if !ok {
			continue
		}

		key, ok := value.(envx.String)
		if !ok {
			continue
		}

		secret, found, err := ref.Backend.GetSecret(string(key))
		if err != nil {
			return "", nil, errors.Wrapf(err, "secret backend %s", ref.Type)
		}
		if found {
			return secret, ref, nil
		}
	}

	return "", nil, nil
}
