package project

import (
	"slices"
	"strings"

	"github.com/joho/godotenv"

	"github.com/jitolabs/cbuild/internal/fault"
	"github.com/jitolabs/cbuild/internal/runtime"
)

// Returns the ordered build arguments of a run.
//
// The descriptor argument comes first, followed by the entries of
// BuildArgFile sorted by name, followed by BuildArgs in the order given. A
// later occurrence of a name replaces the value of an earlier one but keeps
// its position.
func (p Project) BuildArgs(descriptor string) ([]runtime.BuildArg, error) {
	args := []runtime.BuildArg{{Name: p.BuildArgName, Value: descriptor}}

	if p.BuildArgFile != "" {
		env, err := godotenv.Read(p.BuildArgFile)
		if err != nil {
			return nil, fault.Wrap(ErrBuildArgFile, err)
		}
		names := make([]string, 0, len(env))
		for name := range env {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			args = setArg(args, runtime.BuildArg{Name: name, Value: env[name]})
		}
	}

	for _, raw := range p.BuildArgs {
		arg, err := ParseBuildArg(raw)
		if err != nil {
			return nil, err
		}
		args = setArg(args, arg)
	}

	return args, nil
}

// Parses a KEY=VALUE build argument. The value may be empty or contain '='.
func ParseBuildArg(s string) (runtime.BuildArg, error) {
	name, value, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" || strings.ContainsAny(name, " \t") {
		return runtime.BuildArg{}, fault.Wrapf(ErrInvalidBuildArg, "%q, expected KEY=VALUE", s)
	}
	return runtime.BuildArg{Name: name, Value: value}, nil
}

func setArg(args []runtime.BuildArg, arg runtime.BuildArg) []runtime.BuildArg {
	i := slices.IndexFunc(args, func(a runtime.BuildArg) bool {
		return a.Name == arg.Name
	})
	if i < 0 {
		return append(args, arg)
	}
	args[i].Value = arg.Value
	return args
}
