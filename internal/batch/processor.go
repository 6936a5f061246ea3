package batch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"motion-matching-prep/internal/bmd"
	"motion-matching-prep/internal/clip"
	"motion-matching-prep/internal/prep"
	"motion-matching-prep/internal/preview"
)

// Config holds all shared resources for a batch run.
type Config struct {
	OutputDir string
	Settings  prep.Settings

	BMD          bmd.Options
	BMDFrameRate float64

	// PreviewFormat is preview.FormatWebP, preview.FormatTGA, or empty for
	// no preview.
	PreviewFormat string
	Preview       preview.Options

	Workers int
	Logger  *zap.Logger
}

// Job is one clip to prepare.
type Job struct {
	Name   string
	Source string
	Action int // BMD action index; -1 for clip files

	// model is the parsed BMD file shared by all jobs of that file.
	model *bmd.Model
}

// Result holds the outcome of processing one job.
type Result struct {
	Job
	Frames  int
	Success bool
	Skipped bool
	Error   string

	Output  string
	Preview string
	Pass    string
}

// Discover lists clip (.json) and BMD (.bmd) files under dir, skipping the
// exclude directory, manifests and the files in skip (such as the config
// file of the run).
func Discover(dir, exclude string, skip ...string) ([]string, error) {
	exclude = filepath.Clean(exclude)
	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		if s == "" {
			continue
		}
		if abs, err := filepath.Abs(s); err == nil {
			skipped[abs] = true
		}
	}
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if exclude != "." && filepath.Clean(path) == exclude {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == ManifestName {
			return nil
		}
		if abs, err := filepath.Abs(path); err == nil && skipped[abs] {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".json", ".bmd":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("batch: scan %s: %w", dir, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// Jobs expands paths into jobs: one per clip file, one per action of a BMD
// file.
func Jobs(paths []string, opts bmd.Options) ([]Job, error) {
	var jobs []Job
	for _, p := range paths {
		base := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		if !strings.EqualFold(filepath.Ext(p), ".bmd") {
			jobs = append(jobs, Job{Name: base, Source: p, Action: -1})
			continue
		}
		m, err := bmd.Parse(p, opts)
		if err != nil {
			return nil, err
		}
		for a := range m.Actions {
			jobs = append(jobs, Job{Name: fmt.Sprintf("%s_%02d", base, a), Source: p, Action: a, model: m})
		}
	}
	return jobs, nil
}

// Run processes all jobs using a worker pool.
func Run(cfg Config, jobs []Job) []Result {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	total := len(jobs)
	results := make([]Result, total)
	var processed atomic.Int64

	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := processed.Load()
				if p > 0 {
					elapsed := time.Since(start).Seconds()
					logger.Info("progress",
						zap.Int64("done", p),
						zap.Int("total", total),
						zap.Float64("clips_per_sec", float64(p)/elapsed),
					)
				}
			}
		}
	}()

	// Worker pool
	jobChan := make(chan int, workers*2)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobChan {
				results[idx] = processJob(cfg, jobs[idx], logger.With(zap.String("clip", jobs[idx].Name)))
				processed.Add(1)
			}
		}()
	}

	// Send work
	for i := range jobs {
		jobChan <- i
	}
	close(jobChan)

	wg.Wait()
	close(done)

	return results
}

func load(cfg Config, job Job) (*clip.Clip, error) {
	if job.Action < 0 {
		return clip.Load(job.Source)
	}
	m := job.model
	if m == nil {
		var err error
		if m, err = bmd.Parse(job.Source, cfg.BMD); err != nil {
			return nil, err
		}
	}
	rate := cfg.BMDFrameRate
	if rate <= 0 {
		rate = prep.DefaultFrameRate
	}
	return m.Clip(job.Action, rate)
}

func processJob(cfg Config, job Job, logger *zap.Logger) Result {
	res := Result{Job: job}
	fail := func(err error) Result {
		logger.Error("clip failed", zap.Error(err))
		res.Error = err.Error()
		return res
	}

	c, err := load(cfg, job)
	if err != nil {
		return fail(err)
	}
	res.Frames = c.FrameCount()

	out, err := prep.Run(c, cfg.Settings, prep.Options{Logger: logger})
	if err != nil {
		return fail(err)
	}
	res.Pass = out.ID.String()
	res.Skipped = out.Skipped

	res.Output = job.Name + ".json"
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fail(err)
	}
	if err := clip.Save(filepath.Join(cfg.OutputDir, res.Output), c); err != nil {
		return fail(err)
	}

	if cfg.PreviewFormat != "" && !out.Skipped {
		pelvis, root := out.Paths()
		img := preview.Render(pelvis, root, cfg.Preview)
		res.Preview = job.Name + "." + cfg.PreviewFormat
		if err := preview.WriteFile(filepath.Join(cfg.OutputDir, res.Preview), img, cfg.PreviewFormat); err != nil {
			return fail(err)
		}
	}

	res.Success = true
	return res
}
