package sysprobe

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	DefaultCPUTarget = 0.75
	MinCPUTarget     = 0.2
	MaxCPUTarget     = 1.0

	DeviceCPU  = "cpu"
	DeviceCUDA = "cuda"
)

// Profile is an immutable snapshot of compute capacity.
type Profile struct {
	CPUCount       int     `json:"cpu_count"`
	CPUTarget      float64 `json:"cpu_target"`
	WorkerThreads  int     `json:"worker_threads"`
	Device         string  `json:"device"`
	GPUName        string  `json:"gpu_name,omitempty"`
	EmbeddingModel string  `json:"embedding_model"`
}

// GPUProbe reports an accelerator name, or an error when none is found.
type GPUProbe func(ctx context.Context) (string, error)

// Config feeds a Prober.
type Config struct {
	CPUTarget  string // raw, clamped on use
	EmbedModel string
	// CPUCount overrides runtime.NumCPU when > 0.
	CPUCount int
	// GPUProbes are tried in order; nil means DefaultGPUProbes.
	GPUProbes []GPUProbe
	// SkipThreadEnv disables exporting the thread budget to the environment.
	SkipThreadEnv bool
}

// Prober computes a Profile once and hands out the cached value afterwards.
type Prober struct {
	cfg     Config
	once    sync.Once
	profile Profile
}

// NewProber returns a prober that has not probed anything yet.
func NewProber(cfg Config) *Prober {
	return &Prober{cfg: cfg}
}

// Profile probes on first call and returns the cached snapshot on every call.
// Concurrent first callers block on the same initialization.
func (p *Prober) Profile() Profile {
	p.once.Do(func() {
		p.profile = p.compute()
	})
	return p.profile
}

func (p *Prober) compute() Profile {
	cpus := p.cfg.CPUCount
	if cpus <= 0 {
		cpus = runtime.NumCPU()
	}
	if cpus <= 0 {
		cpus = 1
	}
	target := ClampCPUTarget(p.cfg.CPUTarget)
	prof := Profile{
		CPUCount:       cpus,
		CPUTarget:      target,
		WorkerThreads:  WorkerThreads(cpus, target),
		Device:         DeviceCPU,
		EmbeddingModel: strings.TrimSpace(p.cfg.EmbedModel),
	}
	if prof.EmbeddingModel == "" {
		prof.EmbeddingModel = "frequency"
	}
	probes := p.cfg.GPUProbes
	if probes == nil {
		probes = DefaultGPUProbes()
	}
	for _, probe := range probes {
		name, err := probe(context.Background())
		if err == nil && name != "" {
			prof.Device = DeviceCUDA
			prof.GPUName = name
			break
		}
	}
	if !p.cfg.SkipThreadEnv {
		ExportThreadBudget(prof.WorkerThreads)
	}
	return prof
}

// ClampCPUTarget parses raw as a fraction. Invalid or missing input yields
// DefaultCPUTarget; valid input is clamped to [MinCPUTarget, MaxCPUTarget].
func ClampCPUTarget(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return DefaultCPUTarget
	}
	return math.Max(MinCPUTarget, math.Min(MaxCPUTarget, v))
}

// WorkerThreads returns max(1, floor(cpus*target)).
func WorkerThreads(cpus int, target float64) int {
	n := int(math.Floor(float64(cpus) * target))
	if n < 1 {
		return 1
	}
	return n
}

// threadEnvVars are read by native numeric libraries that may be loaded
// into the process (BLAS, OpenMP runtimes).
var threadEnvVars = []string{"OMP_NUM_THREADS", "MKL_NUM_THREADS", "OPENBLAS_NUM_THREADS", "NUMEXPR_MAX_THREADS"}

// ExportThreadBudget sets the thread variables that are not already set.
func ExportThreadBudget(threads int) {
	val := strconv.Itoa(threads)
	for _, k := range threadEnvVars {
		if _, ok := os.LookupEnv(k); !ok {
			_ = os.Setenv(k, val)
		}
	}
}

// DefaultGPUProbes returns the driver probe followed by the nvidia-smi probe.
func DefaultGPUProbes() []GPUProbe {
	return []GPUProbe{DriverProbe("/proc/driver/nvidia/gpus"), CommandProbe("nvidia-smi", 2*time.Second)}
}

var errNoGPU = errors.New("no gpu detected")

// DriverProbe reads the NVIDIA kernel driver's per-GPU information files
// under root and returns the first "Model:" value.
func DriverProbe(root string) GPUProbe {
	return func(ctx context.Context) (string, error) {
		matches, err := filepath.Glob(filepath.Join(root, "*", "information"))
		if err != nil {
			return "", err
		}
		for _, m := range matches {
			if name := readModelLine(m); name != "" {
				return name, nil
			}
		}
		return "", errNoGPU
	}
}

func readModelLine(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if k, v, ok := strings.Cut(line, ":"); ok && strings.TrimSpace(k) == "Model" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// CommandProbe runs `<bin> --query-gpu=name --format=csv,noheader` with a
// timeout and returns the first reported name.
func CommandProbe(bin string, timeout time.Duration) GPUProbe {
	return func(ctx context.Context) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		out, err := exec.CommandContext(ctx, bin, "--query-gpu=name", "--format=csv,noheader").Output()
		if err != nil {
			return "", fmt.Errorf("%s: %w", bin, err)
		}
		for _, line := range strings.Split(string(out), "\n") {
			if name := strings.TrimSpace(line); name != "" {
				return name, nil
			}
		}
		return "", errNoGPU
	}
}

var (
	sharedOnce   sync.Once
	sharedProber *Prober
)

// Init returns the process-wide prober, building it from cfg on the first
// call. Later calls ignore cfg and return the same prober.
func Init(cfg Config) *Prober {
	sharedOnce.Do(func() {
		sharedProber = NewProber(cfg)
	})
	return sharedProber
}
