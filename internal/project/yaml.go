package project

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/kong"
	"gopkg.in/yaml.v3"

	"github.com/jitolabs/cbuild/internal/fault"
)

// Adapts a YAML configuration file into a kong resolver.
//
// Keys are flag names, with either dashes or underscores. Sequences map onto
// repeatable flags. Keys that match no flag are ignored. An empty document
// resolves nothing.
func YAML(r io.Reader) (kong.Resolver, error) {
	values := map[string]any{}
	if err := yaml.NewDecoder(r).Decode(&values); err != nil && err != io.EOF {
		return nil, fault.Wrap(ErrConfig, err)
	}

	var f kong.ResolverFunc = func(ctx *kong.Context, parent *kong.Path, flag *kong.Flag) (any, error) {
		for _, key := range []string{flag.Name, strings.ReplaceAll(flag.Name, "-", "_")} {
			if raw, ok := values[key]; ok {
				return normalize(raw), nil
			}
		}
		return nil, nil
	}
	return f, nil
}

// Turns YAML scalars and sequences into values kong mappers accept.
func normalize(raw any) any {
	switch v := raw.(type) {
	case nil:
		return nil
	case string, bool:
		return v
	case []any:
		out := make([]any, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return fmt.Sprint(v)
	}
}
