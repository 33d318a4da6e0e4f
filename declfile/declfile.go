// Package declfile evaluates the PROJECT.star declaration file: the root project's identity, its declared
// dependencies, forced versions and configuration attributes, expressed as Starlark directives.
package declfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MARRISLHARRIS/gradle/attr"
	"github.com/MARRISLHARRIS/gradle/common"
	integrities "github.com/MARRISLHARRIS/gradle/common/integrity"
	"github.com/MARRISLHARRIS/gradle/common/starutil"
	"github.com/MARRISLHARRIS/gradle/excludes"
	"github.com/MARRISLHARRIS/gradle/resolve"

	"go.starlark.net/starlark"
)

// FileName is the declaration file looked up in a project directory.
const FileName = "PROJECT.star"

// Project is the evaluated declaration file, ready to hand to resolution.
type Project struct {
	Root              *resolve.Component
	Force             map[common.ModuleIdentity]string
	RequestAttributes attr.Attributes
	// Integrity is the SRI expression of the declaration file contents, recorded in the lockfile to detect staleness.
	Integrity string
}

type threadState struct {
	// Populated by the `module` directive. Is nil to begin with.
	key *common.ModuleKey
	// Populated by the `dependency` directive, in declaration order.
	deps []resolve.Dependency
	// Populated by the `force` directive.
	force map[common.ModuleIdentity]string
	// Populated by the `configuration` directive. Is nil to begin with.
	requestAttrs *attr.Attributes
}

const tstateLocalKey = "project_star_tstate"

func initThreadState(t *starlark.Thread) *threadState {
	tstate := &threadState{
		force: make(map[common.ModuleIdentity]string),
	}
	t.SetLocal(tstateLocalKey, tstate)
	return tstate
}

func getThreadState(t *starlark.Thread) *threadState {
	return t.Local(tstateLocalKey).(*threadState)
}

func moduleFn(t *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(args) > 0 {
		return nil, fmt.Errorf("%v: unexpected positional arguments", b.Name())
	}
	tstate := getThreadState(t)
	if tstate.key != nil {
		return nil, fmt.Errorf("%v: can only be called once", b.Name())
	}
	var key common.ModuleKey
	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"group", &key.ID.Group,
		"name", &key.ID.Name,
		"version?", &key.Version,
	); err != nil {
		return nil, err
	}
	tstate.key = &key
	return starlark.None, nil
}

func dependencyFn(t *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(args) > 0 {
		return nil, fmt.Errorf("%v: unexpected positional arguments", b.Name())
	}
	var (
		dep          resolve.Dependency
		reject       *starlark.List
		exclude      *starlark.List
		artifacts    *starlark.List
		capabilities *starlark.List
		attributes   *starlark.Dict
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"group", &dep.Target.Group,
		"name", &dep.Target.Name,
		"version?", &dep.Constraint.Require,
		"strictly?", &dep.Constraint.Strict,
		"prefer?", &dep.Constraint.Prefer,
		"reject?", &reject,
		"exclude?", &exclude,
		"artifacts?", &artifacts,
		"capabilities?", &capabilities,
		"attributes?", &attributes,
	); err != nil {
		return nil, err
	}
	var err error
	if dep.Constraint.Reject, err = starutil.ExtractStringSlice(reject); err != nil {
		return nil, err
	}
	excludeStrs, err := starutil.ExtractStringSlice(exclude)
	if err != nil {
		return nil, err
	}
	for _, s := range excludeStrs {
		dep.Excludes = append(dep.Excludes, excludes.ParseRule(s))
	}
	if dep.Artifacts, err = starutil.ExtractStringSlice(artifacts); err != nil {
		return nil, err
	}
	capStrs, err := starutil.ExtractStringSlice(capabilities)
	if err != nil {
		return nil, err
	}
	for _, s := range capStrs {
		id, err := common.ParseIdentity(s)
		if err != nil {
			return nil, fmt.Errorf("%v: invalid capability selector: %v", b.Name(), err)
		}
		dep.Capabilities = append(dep.Capabilities, resolve.CapabilitySelector{Group: id.Group, Name: id.Name})
	}
	attrMap, err := starutil.ExtractStringDict(attributes)
	if err != nil {
		return nil, err
	}
	dep.Attributes = attr.New(attrMap)
	tstate := getThreadState(t)
	tstate.deps = append(tstate.deps, dep)
	return starlark.None, nil
}

func forceFn(t *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(args) > 0 {
		return nil, fmt.Errorf("%v: unexpected positional arguments", b.Name())
	}
	var (
		id      common.ModuleIdentity
		version string
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"group", &id.Group,
		"name", &id.Name,
		"version", &version,
	); err != nil {
		return nil, err
	}
	tstate := getThreadState(t)
	if prev, ok := tstate.force[id]; ok && prev != version {
		return nil, fmt.Errorf("%v called twice for %v with different versions (%v and %v)", b.Name(), id, prev, version)
	}
	tstate.force[id] = version
	return starlark.None, nil
}

func configurationFn(t *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(args) > 0 {
		return nil, fmt.Errorf("%v: unexpected positional arguments", b.Name())
	}
	tstate := getThreadState(t)
	if tstate.requestAttrs != nil {
		return nil, fmt.Errorf("%v: can only be called once", b.Name())
	}
	var attributes *starlark.Dict
	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"attributes", &attributes,
	); err != nil {
		return nil, err
	}
	attrMap, err := starutil.ExtractStringDict(attributes)
	if err != nil {
		return nil, err
	}
	a := attr.New(attrMap)
	tstate.requestAttrs = &a
	return starlark.None, nil
}

func newStarlarkEnv() starlark.StringDict {
	return starlark.StringDict{
		"module":        starlark.NewBuiltin("module", moduleFn),
		"dependency":    starlark.NewBuiltin("dependency", dependencyFn),
		"force":         starlark.NewBuiltin("force", forceFn),
		"configuration": starlark.NewBuiltin("configuration", configurationFn),
	}
}

// Eval evaluates the PROJECT.star file in the given project directory.
func Eval(projectDir string) (*Project, error) {
	filename := filepath.Join(projectDir, FileName)
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return EvalBytes(filename, data)
}

// EvalBytes evaluates declaration file contents already in memory; filename is used in error positions only.
func EvalBytes(filename string, data []byte) (*Project, error) {
	thread := &starlark.Thread{
		Name:  "declaration of " + filename,
		Print: func(thread *starlark.Thread, msg string) { fmt.Println(msg) },
	}
	tstate := initThreadState(thread)
	if _, err := starlark.ExecFile(thread, filename, data, newStarlarkEnv()); err != nil {
		// The thread's call stack is already unwound here; the EvalError carries the positions.
		if evalErr, ok := err.(*starlark.EvalError); ok {
			return nil, errors.New(evalErr.Backtrace())
		}
		return nil, err
	}
	if tstate.key == nil {
		return nil, fmt.Errorf("%v has no module() directive", filename)
	}
	p := &Project{
		Root: &resolve.Component{
			Key:          *tstate.key,
			Variants:     []resolve.GraphVariant{{Name: "default"}},
			Dependencies: tstate.deps,
		},
		Force:     tstate.force,
		Integrity: integrities.MustGenerate("sha256", data),
	}
	if tstate.requestAttrs != nil {
		p.RequestAttributes = *tstate.requestAttrs
	}
	return p, nil
}
