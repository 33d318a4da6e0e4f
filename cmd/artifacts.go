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
	"strings"

	"github.com/MARRISLHARRIS/gradle/artifact"
	"github.com/MARRISLHARRIS/gradle/attr"
	"github.com/MARRISLHARRIS/gradle/common"
	"github.com/spf13/cobra"
)

func init() {
	var (
		attributes  []string
		allVariants bool
		lenient     bool
		components  []string
	)

	artifactsCmd := &cobra.Command{
		Use:   "artifacts",
		Short: "Selects artifact files from the resolved graph",
		Long: `Resolves the project's dependency graph and prints the artifact files matching
the requested selection, one per line in the format "<module> <file>".`,
		Run: func(cmd *cobra.Command, args []string) {
			if err := runArtifacts(attributes, allVariants, lenient, components); err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
		},
	}

	rootCmd.AddCommand(artifactsCmd)
	artifactsCmd.Flags().StringArrayVar(&attributes, "attribute", nil,
		`An attribute the selected artifacts must carry, as key=value. May be repeated.`)
	artifactsCmd.Flags().BoolVar(&allVariants, "all-variants", false,
		`Reselect against all variants of each component, ignoring the attributes the
graph was resolved with (e.g. to pull sources out of a runtime graph).`)
	artifactsCmd.Flags().BoolVar(&lenient, "lenient", false,
		`Tolerate broken components: print the artifacts that did resolve and report
the failures on stderr instead of aborting.`)
	artifactsCmd.Flags().StringSliceVar(&components, "component", nil,
		`Restrict the selection to the given group:name module(s).`)
}

func runArtifacts(attributes []string, allVariants bool, lenient bool, components []string) error {
	_, graph, err := loadProject()
	if err != nil {
		return err
	}

	spec := artifact.SelectionSpec{
		SelectFromAllVariants:   allVariants,
		AllowNoMatchingVariants: allVariants || lenient,
	}
	attrMap := make(map[string]string)
	for _, s := range attributes {
		k, v, ok := strings.Cut(s, "=")
		if !ok {
			return fmt.Errorf("invalid --attribute %q (want key=value)", s)
		}
		attrMap[k] = v
	}
	spec.Attributes = attr.New(attrMap)
	if len(components) > 0 {
		wanted := make(map[common.ModuleIdentity]bool)
		for _, s := range components {
			id, err := common.ParseIdentity(s)
			if err != nil {
				return err
			}
			wanted[id] = true
		}
		spec.ComponentFilter = func(key common.ModuleKey) bool { return wanted[key.ID] }
	}

	result := artifact.NewResolution(graph, nil, nil).Select(spec)
	if lenient {
		arts, failures := result.LenientArtifacts()
		printArtifacts(arts)
		for _, f := range failures {
			_, _ = fmt.Fprintf(os.Stderr, "failed: %v\n", f)
		}
		return nil
	}
	arts, err := result.Artifacts()
	if err != nil {
		return err
	}
	printArtifacts(arts)
	return nil
}

func printArtifacts(arts []artifact.ResolvedArtifact) {
	for _, a := range arts {
		fmt.Printf("%v %v\n", a.Component, a.File)
	}
}
