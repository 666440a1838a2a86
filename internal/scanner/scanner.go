// Package scanner discovers a source file's header dependencies by driving
// the real host compiler's dependency-emission mode and parsing the
// resulting makefile rule, so included headers are resolved exactly as the
// compiler itself would resolve them.
package scanner

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/ruxgo-build/ruxgo/internal/buildapi"
)

// Result is one source file's discovered header dependencies.
type Result struct {
	Headers []string
}

// Scan invokes compiler in dependency-emission mode (-MM -MT _ -MF -) on
// srcPath with cflags, and parses the emitted makefile rule into a header
// list. A scan failure is reported as a buildapi ScanError carrying the
// compiler's stderr, and never panics: callers treat a failed scan as "no
// extra headers known", so a target can still be attempted.
func Scan(ctx context.Context, compiler string, cflags []string, srcPath string) (*Result, error) {
	argv := append([]string{}, cflags...)
	argv = append(argv, "-MM", "-MT", "_", "-MF", "-", srcPath)

	cmd := exec.CommandContext(ctx, compiler, argv...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		full := append([]string{compiler}, argv...)
		return nil, buildapi.Scan(srcPath, &buildapi.Error{
			Kind:     buildapi.KindScan,
			Location: srcPath,
			Program:  compiler,
			Argv:     full,
			Stderr:   stderr.String(),
			Err:      err,
		})
	}

	return &Result{Headers: parseMakeRule(stdout.String(), srcPath)}, nil
}

// parseMakeRule extracts the dependency list from a `target: dep1 dep2 \
// dep3` makefile rule, dropping the target itself and srcPath.
func parseMakeRule(rule, srcPath string) []string {
	joined := strings.ReplaceAll(rule, "\\\n", " ")
	joined = strings.ReplaceAll(joined, "\\\r\n", " ")

	colon := strings.IndexByte(joined, ':')
	if colon < 0 {
		return nil
	}
	depsPart := joined[colon+1:]

	fields := strings.Fields(depsPart)
	var headers []string
	for _, f := range fields {
		if f == srcPath {
			continue
		}
		headers = append(headers, f)
	}
	return headers
}
