/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"encoding/json"
	"fmt"
	"runtime"
	"time"

	"github.com/NicValentine/LoFi-Cafe/core"
	"github.com/NicValentine/LoFi-Cafe/match"

	"github.com/spf13/cobra"
)

func newMatchCmd() *cobra.Command {
	var (
		patternSrc string
		chunkSrc   string
		bindingsJS string
		wantJS     string
		bench      int
	)

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Match a pattern against a chunk",
		Long: "Match a pattern against a chunk and print the resulting bindings\n" +
			"as JSON (null for no match).\n\n" +
			"  lofi match -p 'ut:?t mtd:!?m' -c 'ut:espresso mtd:portafilter' -b '{\"?m\":\"pour\"}'",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			pattern, err := core.ParsePattern(patternSrc)
			if err != nil {
				return fmt.Errorf("pattern: %w", err)
			}
			chunk, err := core.ParseChunk(chunkSrc)
			if err != nil {
				return fmt.Errorf("chunk: %w", err)
			}
			bindings := match.NewBindings()
			if bindingsJS != "" {
				if err := json.Unmarshal([]byte(bindingsJS), &bindings); err != nil {
					return fmt.Errorf("bindings: %w", err)
				}
			}

			if 0 < bench {
				var stats runtime.MemStats
				runtime.ReadMemStats(&stats)
				allocs := stats.TotalAlloc
				then := time.Now()
				for i := 0; i < bench; i++ {
					if _, err := match.Unify(pattern, chunk, bindings); err != nil {
						return err
					}
				}
				elapsed := time.Since(then)
				meanNanos := elapsed.Nanoseconds() / int64(bench)

				runtime.ReadMemStats(&stats)
				allocated := (stats.TotalAlloc - allocs) / uint64(bench)

				fmt.Fprintf(cmd.ErrOrStderr(), "%d iterations, %d mean ns/Unify, %d mean bytes allocated per Unify\n",
					bench, meanNanos, allocated)
			}

			bs, err := match.Unify(pattern, chunk, bindings)
			if err != nil {
				return err
			}

			if wantJS != "" {
				var want match.Bindings
				if err := json.Unmarshal([]byte(wantJS), &want); err != nil {
					return fmt.Errorf("want: %w", err)
				}
				fmt.Fprintf(out, "%v\n", want != nil && bs != nil && Subset(want, bs) && Subset(bs, want))
				return nil
			}

			js, err := json.Marshal(bs)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s\n", js)
			return nil
		},
	}

	cmd.Flags().StringVarP(&patternSrc, "pattern", "p", "", "Pattern like 'ut:?t mtd:!?m'")
	cmd.Flags().StringVarP(&chunkSrc, "chunk", "c", "", "Chunk like 'ut:espresso mtd:portafilter'")
	cmd.Flags().StringVarP(&bindingsJS, "bindings", "b", "", "Initial bindings as a JSON object")
	cmd.Flags().StringVarP(&wantJS, "want", "w", "", "Print whether the result equals these bindings")
	cmd.Flags().IntVar(&bench, "bench", 0, "Number of times to run (and report time)")

	return cmd
}

// Subset reports whether every binding in x is also in y.
func Subset(x, y match.Bindings) bool {
	for p, vx := range x {
		if vy, have := y[p]; !have || vx != vy {
			return false
		}
	}
	return true
}
