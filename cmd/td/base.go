// Copyright 2024 The testtargeting Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"bufio"
	"context"
	"flag"
	"os"
	"strings"

	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/data/text"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"github.com/vener91/testtargeting/heuristics"
	"github.com/vener91/testtargeting/priority"
)

type baseCommandRun struct {
	subcommands.CommandRunBase
}

func (r *baseCommandRun) done(ctx context.Context, err error) int {
	if err != nil {
		logging.Errorf(ctx, "%s", err)
		return 1
	}
	return 0
}

// heuristicFlags configures the heuristic collaborators shared by the
// subcommands. A heuristic is enabled by pointing its flag at an input;
// with no flags set the whole corpus stays unranked.
type heuristicFlags struct {
	prevFailedCache  string
	changedFilesFile string
	ratingsFile      string
}

func (f *heuristicFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.prevFailedCache, "previous-failures", "", text.Doc(`
		Path to the pytest lastfailed cache.
		Test files with failures recorded there are ranked HIGH.
		A missing file counts as an empty cache.
	`))
	fs.StringVar(&f.changedFilesFile, "changed-files", "", text.Doc(`
		Path to the list of files changed by the patch, one per line.
		Candidate test files on the list are ranked HIGH.
	`))
	fs.StringVar(&f.ratingsFile, "failure-ratings", "", text.Doc(`
		Path to a JSON object mapping test files to failure-correlation ratings.
		Rated candidate tests are ranked PROBABLE, best rating first.
	`))
}

func (f *heuristicFlags) heuristics() ([]priority.Heuristic, error) {
	var hs []priority.Heuristic
	if f.prevFailedCache != "" {
		hs = append(hs, &heuristics.PreviouslyFailed{CachePath: f.prevFailedCache})
	}
	if f.changedFilesFile != "" {
		changed, err := readLines(f.changedFilesFile)
		if err != nil {
			return nil, err
		}
		hs = append(hs, &heuristics.EditedTests{ChangedFiles: changed})
	}
	if f.ratingsFile != "" {
		hs = append(hs, &heuristics.HistoricalCorrelation{RatingsPath: f.ratingsFile})
	}
	return hs, nil
}

// readLines reads a file into its non-blank, trimmed lines.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Fmt("reading %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Fmt("reading %s: %w", path, err)
	}
	return lines, nil
}
