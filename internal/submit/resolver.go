package submit

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/coursekit/snarf/internal/config"
	"github.com/coursekit/snarf/internal/ui"
)

// placeholderPattern matches manifest placeholder tokens such as ${user}.
var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z][A-Za-z0-9_]*)\}`)

// secretTokens are placeholder tokens whose values are prompted without
// echo and never written to the persisted store.
var secretTokens = map[string]struct{}{
	"pw":       {},
	"password": {},
}

// Resolver substitutes placeholder tokens in endpoint parameter values.
// Each token is prompted at most once per session and the answer is
// reused for the rest of the session; non-secret answers are additionally
// persisted so later sessions start pre-filled. Resolution happens at use
// time and never mutates the parsed endpoint.
type Resolver struct {
	host  ui.Host
	store *config.Store // optional persistence for non-secret tokens
	cache map[string]string
}

// NewResolver creates a Resolver. store may be nil, in which case nothing
// persists beyond the session.
func NewResolver(host ui.Host, store *config.Store) *Resolver {
	return &Resolver{host: host, store: store, cache: make(map[string]string)}
}

// Resolve expands every placeholder token in value. Literal values pass
// through unchanged.
func (r *Resolver) Resolve(value string) (string, error) {
	var firstErr error
	out := placeholderPattern.ReplaceAllStringFunc(value, func(match string) string {
		token := placeholderPattern.FindStringSubmatch(match)[1]
		resolved, err := r.lookup(token)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return resolved
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

func (r *Resolver) lookup(token string) (string, error) {
	if v, ok := r.cache[token]; ok {
		return v, nil
	}

	_, secret := secretTokens[strings.ToLower(token)]

	if !secret && r.store != nil {
		if v, ok, err := r.store.CachedVar(token); err == nil && ok {
			r.cache[token] = v
			return v, nil
		}
	}

	var value string
	var err error
	if secret {
		value, err = r.host.InputSecret(fmt.Sprintf("Enter %s", token))
	} else {
		value, err = r.host.Input(fmt.Sprintf("Enter %s", token), func(s string) error {
			if s == "" {
				return fmt.Errorf("%s must not be empty", token)
			}
			return nil
		})
	}
	if err != nil {
		return "", err
	}

	r.cache[token] = value
	if !secret && r.store != nil {
		// Persistence failures only cost a re-prompt next session.
		_ = r.store.SetCachedVar(token, value)
	}
	return value, nil
}
