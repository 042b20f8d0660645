// Package session holds a set of independent cell instances, one per
// starting temperature, and evaluates them concurrently.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/notargets/P2DCell/cell"
	"github.com/notargets/P2DCell/config"
	"github.com/notargets/P2DCell/mesh"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// Config describes the instances of a session. Instances share the mesh,
// parameters and tables, which are read-only once built.
type Config struct {
	Mesh         *mesh.Mesh1D
	Parameters   cell.Parameters
	Tables       *cell.Tables
	Temperatures []float64
	Current      float64 // Applied to every instance [A]
	Initial      cell.InitialConditions
	Limits       cell.Limits
}

// FromFile resolves a configuration file into a session Config, loading
// the material tables
func FromFile(f *config.File, logger *slog.Logger) (cfg Config, err error) {
	cfg = Config{
		Parameters:   f.CellParameters(),
		Temperatures: append([]float64(nil), f.Temperatures...),
		Current:      f.Current,
		Initial:      f.InitialConditions(),
		Limits:       f.CellLimits(),
	}
	if cfg.Mesh, err = f.NewMesh(); err != nil {
		return cfg, fmt.Errorf("mesh: %w", err)
	}
	if cfg.Tables, err = f.LoadTables(f.BaseDir, logger); err != nil {
		return cfg, err
	}
	return
}

type Session struct {
	cfg       Config
	instances []*cell.Model
	logger    *slog.Logger
}

// New builds one model per temperature in cfg
func New(cfg Config, logger *slog.Logger) (s *Session, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Temperatures) == 0 {
		return nil, fmt.Errorf("session needs at least one temperature")
	}
	s = &Session{
		cfg:       cfg,
		instances: make([]*cell.Model, len(cfg.Temperatures)),
		logger:    logger,
	}
	for i, T := range cfg.Temperatures {
		if s.instances[i], err = cell.New(cfg.Mesh, cfg.Parameters, cfg.Tables, T); err != nil {
			return nil, fmt.Errorf("instance %d (T0=%.2f K): %w", i, T, err)
		}
		s.instances[i].SetAppliedCurrent(cfg.Current)
		logger.Debug("cell instance created", "instance", i, "T0", T,
			"unknowns", s.instances[i].Layout().Len())
	}
	logger.Info("session ready", "instances", len(s.instances),
		"volumes", cfg.Mesh.N, "current", cfg.Current)
	return
}

func (s *Session) Instances() []*cell.Model { return s.instances }
func (s *Session) Len() int                 { return len(s.instances) }

// SetAppliedCurrent applies the cell current I [A] to every instance
func (s *Session) SetAppliedCurrent(I float64) {
	for _, m := range s.instances {
		m.SetAppliedCurrent(I)
	}
	s.logger.Info("applied current", "current", I)
}

// SetInstanceCurrent applies I [A] to instance i only
func (s *Session) SetInstanceCurrent(i int, I float64) error {
	if i < 0 || i >= len(s.instances) {
		return fmt.Errorf("instance %d out of range [0, %d)", i, len(s.instances))
	}
	s.instances[i].SetAppliedCurrent(I)
	s.logger.Debug("applied current", "instance", i, "current", I)
	return nil
}

// InitialStates returns the consistent rest state of every instance
func (s *Session) InitialStates() (ys, yds [][]float64, err error) {
	ys, yds = make([][]float64, s.Len()), make([][]float64, s.Len())
	for i, m := range s.instances {
		if ys[i], yds[i], err = m.InitialState(s.cfg.Initial); err != nil {
			return nil, nil, s.fail(i, "initial state", err)
		}
	}
	return
}

// Residuals evaluates every instance concurrently. The first failure is
// returned and stops instances that have not started.
func (s *Session) Residuals(ctx context.Context, t float64, ys, yds [][]float64) (rs [][]float64, err error) {
	if err = s.checkCount(ys, yds); err != nil {
		return nil, err
	}
	if yds == nil {
		return nil, fmt.Errorf("residuals need derivatives: %w", cell.ErrDimensionMismatch)
	}
	rs = make([][]float64, s.Len())
	err = s.each(ctx, func(i int, m *cell.Model) (err error) {
		if rs[i], err = m.ResidualVector(t, ys[i], yds[i]); err != nil {
			return s.fail(i, "residual", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return
}

// Jacobians evaluates dr/dy + c*dr/dyd of every instance concurrently. yds
// may be nil.
func (s *Session) Jacobians(ctx context.Context, c, t float64, ys, yds [][]float64) (js []*mat.Dense, err error) {
	if err = s.checkCount(ys, yds); err != nil {
		return nil, err
	}
	js = make([]*mat.Dense, s.Len())
	err = s.each(ctx, func(i int, m *cell.Model) (err error) {
		var yd []float64
		if yds != nil {
			yd = yds[i]
		}
		if js[i], err = m.Jacobian(c, t, ys[i], yd); err != nil {
			return s.fail(i, "jacobian", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return
}

// Diagnostics evaluates the derived outputs of every instance
func (s *Session) Diagnostics(ctx context.Context, ys [][]float64) (ds []*cell.Diagnostics, err error) {
	if err = s.checkCount(ys, nil); err != nil {
		return nil, err
	}
	ds = make([]*cell.Diagnostics, s.Len())
	err = s.each(ctx, func(i int, m *cell.Model) (err error) {
		if ds[i], err = m.Diagnostics(ys[i]); err != nil {
			return s.fail(i, "diagnostics", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return
}

// Voltages returns the terminal voltage of every instance
func (s *Session) Voltages(ys [][]float64) (v []float64, err error) {
	if err = s.checkCount(ys, nil); err != nil {
		return nil, err
	}
	v = make([]float64, s.Len())
	for i, m := range s.instances {
		if v[i], err = m.Voltage(ys[i]); err != nil {
			return nil, s.fail(i, "voltage", err)
		}
	}
	return
}

// CheckLimits returns the first stop condition met by any instance
func (s *Session) CheckLimits(ys [][]float64) error {
	if err := s.checkCount(ys, nil); err != nil {
		return err
	}
	for i, m := range s.instances {
		if err := m.CheckLimits(ys[i], s.cfg.Limits); err != nil {
			s.logger.Info("stop condition", "instance", i, "reason", err)
			return fmt.Errorf("instance %d: %w", i, err)
		}
	}
	return nil
}

func (s *Session) each(ctx context.Context, f func(i int, m *cell.Model) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, m := range s.instances {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return f(i, m)
		})
	}
	return g.Wait()
}

func (s *Session) checkCount(ys, yds [][]float64) error {
	if len(ys) != s.Len() {
		return fmt.Errorf("%d states for %d instances: %w", len(ys), s.Len(), cell.ErrDimensionMismatch)
	}
	if yds != nil && len(yds) != s.Len() {
		return fmt.Errorf("%d derivatives for %d instances: %w", len(yds), s.Len(), cell.ErrDimensionMismatch)
	}
	return nil
}

func (s *Session) fail(i int, op string, err error) error {
	s.logger.Warn("evaluation failed", "instance", i, "op", op, "error", err)
	return fmt.Errorf("instance %d (T0=%.2f K) %s: %w", i, s.cfg.Temperatures[i], op, err)
}
