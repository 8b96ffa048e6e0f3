package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/mrz1836/crucible/internal/domain"
	"github.com/mrz1836/crucible/internal/matrix"
)

// matrixArgs are the positional selectors shared by build, check and run.
type matrixArgs struct {
	Type      string
	Feature   string
	Target    string
	Toolchain string
	Mode      string
}

// arg returns args[i], or "" when absent.
func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

// request validates every selector before anything is spawned.
// Toolchain defaults to all; mode defaults to modeDefault.
func (m matrixArgs) request(modeDefault matrix.Selector[domain.Mode]) (matrix.Request, error) {
	typ, err := matrix.ParseType(m.Type)
	if err != nil {
		return matrix.Request{}, err
	}
	feature, err := matrix.ParseFeature(m.Feature)
	if err != nil {
		return matrix.Request{}, err
	}
	kind, err := matrix.ParseKind(m.Target)
	if err != nil {
		return matrix.Request{}, err
	}
	tc, err := matrix.ParseToolchain(m.Toolchain)
	if err != nil {
		return matrix.Request{}, err
	}
	mode, err := matrix.ParseMode(m.Mode, modeDefault)
	if err != nil {
		return matrix.Request{}, err
	}
	return matrix.Request{Type: typ, Feature: feature, Kind: kind, Toolchain: tc, Mode: mode}, nil
}

// printCommands writes one shell-quoted compiler command per job.
func printCommands(w io.Writer, jobs []domain.BuildJob, argv [][]string) {
	for i, job := range jobs {
		_, _ = fmt.Fprintf(w, "# %s\n%s\n", job.Label(), shellJoin(argv[i]))
	}
}

type jobCommand struct {
	Job     domain.BuildJob `json:"job"`
	Command []string        `json:"command"`
}

func commandsJSON(jobs []domain.BuildJob, argv [][]string) []jobCommand {
	out := make([]jobCommand, len(jobs))
	for i, job := range jobs {
		out[i] = jobCommand{Job: job, Command: argv[i]}
	}
	return out
}

func shellJoin(argv []string) string {
	parts := make([]string, len(argv))
	for i, a := range argv {
		if a == "" || strings.ContainsAny(a, " \t\"'$&|;<>()*?") {
			parts[i] = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
			continue
		}
		parts[i] = a
	}
	return strings.Join(parts, " ")
}
