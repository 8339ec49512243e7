package scheduler

import (
	"github.com/vvka-141/pgfastload/internal/files/scanner"
	"github.com/vvka-141/pgfastload/internal/schema"
	"github.com/vvka-141/pgfastload/pkg/fastload"
)

// FileMap maps a table to the data file that loads it.
type FileMap map[schema.TableKey]string

// BuildFileMap derives a job per data file and the file map for the run.
// When two files resolve to the same table the later one is mapped, but
// both stay queued; the second job finds the table loaded and does nothing.
// Paths that are not data files are reported and skipped.
func BuildFileMap(paths []string, logger fastload.Logger) (FileMap, []Job) {
	files := make(FileMap, len(paths))
	jobs := make([]Job, 0, len(paths))
	for _, p := range paths {
		key, ok := scanner.TableKeyOf(p)
		if !ok {
			logger.Warn("%s is not a .csv or .csv.gz file, skipping", p)
			continue
		}
		if prev, dup := files[key]; dup {
			logger.Warn("%s and %s both map to %s; using %s", prev, p, key, p)
		}
		files[key] = p
		jobs = append(jobs, Job{Path: p, Table: key})
	}
	return files, jobs
}
