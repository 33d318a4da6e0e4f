// Copyright 2020 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"fmt"
	"os"

	"github.com/MARRISLHARRIS/gradle/artifact"
	"github.com/MARRISLHARRIS/gradle/attr"
	"github.com/MARRISLHARRIS/gradle/declfile"
	"github.com/MARRISLHARRIS/gradle/lockfile"
	"github.com/MARRISLHARRIS/gradle/registry"
	"github.com/MARRISLHARRIS/gradle/resolve"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	var writeLock bool

	resolveCmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolves the project's dependency graph",
		Long: `Reads the PROJECT.star file in the current directory, resolves the transitive
dependency graph against the configured registries, and prints the selected
version of every module. With --lock, also writes a gradle.lock snapshot.`,
		Run: func(cmd *cobra.Command, args []string) {
			if err := runResolve(writeLock); err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
		},
	}

	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().BoolVar(&writeLock, "lock", false,
		`Write a gradle.lock file recording the resolved versions, variants and
artifact files.`)
}

// loadProject evaluates the declaration file and resolves the graph against the configured registries.
func loadProject() (*declfile.Project, *resolve.Graph, error) {
	project, err := declfile.Eval(".")
	if err != nil {
		return nil, nil, err
	}
	source := registry.NewSource(viper.GetStringSlice("registries"), viper.GetString("registry_override"))
	graph, err := resolve.Resolve(resolve.Params{
		Root:              project.Root,
		Source:            source,
		Schema:            attr.NewSchema(),
		RequestAttributes: project.RequestAttributes,
		Force:             project.Force,
	})
	if err != nil {
		return nil, nil, err
	}
	return project, graph, nil
}

func runResolve(writeLock bool) error {
	project, graph, err := loadProject()
	if err != nil {
		return err
	}

	for _, n := range graph.SortedNodes() {
		variant := ""
		if n.Variant != nil {
			variant = " (" + n.Variant.Name + ")"
		}
		fmt.Printf("%v%v\n", n.Key(), variant)
	}
	for _, id := range graph.SortedFailures() {
		_, _ = fmt.Fprintf(os.Stderr, "failed: %v\n", graph.Failures[id])
	}
	if len(graph.Failures) > 0 {
		return fmt.Errorf("%d module(s) failed to resolve", len(graph.Failures))
	}

	if writeLock {
		arts, err := artifact.NewResolution(graph, nil, nil).Select(artifact.SelectionSpec{}).Artifacts()
		if err != nil {
			return err
		}
		return lockfile.Snapshot(graph, arts, project.Integrity).Write(".")
	}
	return nil
}
