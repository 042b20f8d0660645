// Package config reads the YAML description of a set of cell instances:
// the mesh, the instance temperatures, parameter overrides and the
// material table files.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/notargets/P2DCell/cell"
	"github.com/notargets/P2DCell/mesh"
	"github.com/notargets/P2DCell/partitions"
	"github.com/notargets/P2DCell/tables"
	"gopkg.in/yaml.v3"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	if err := validate.RegisterValidation("fraction", validateFraction); err != nil {
		panic(fmt.Sprintf("registering fraction validation: %v", err))
	}
}

// validateFraction accepts values strictly between 0 and 1
func validateFraction(fl validator.FieldLevel) bool {
	v := fl.Field().Float()
	return v > 0 && v < 1
}

// File is the top level of a configuration file
type File struct {
	Mesh         Mesh       `yaml:"mesh"`
	Temperatures []float64  `yaml:"temperatures" validate:"required,min=1,dive,gt=0"`
	Current      float64    `yaml:"current"` // Applied current [A], positive discharges
	Initial      Initial    `yaml:"initial"`
	Limits       Limits     `yaml:"limits"`
	Parameters   Overrides  `yaml:"parameters"`
	Tables       TableFiles `yaml:"tables"`

	// Directory of the file, relative table paths resolve against it
	BaseDir string `yaml:"-"`
}

// Mesh splits Volumes control volumes over the three layers in proportion
// to their thickness [m]
type Mesh struct {
	Volumes   int     `yaml:"volumes" validate:"gte=5"`
	Anode     float64 `yaml:"anode" validate:"gt=0"`
	Separator float64 `yaml:"separator" validate:"gt=0"`
	Cathode   float64 `yaml:"cathode" validate:"gt=0"`
}

type Initial struct {
	Ce float64 `yaml:"ce" validate:"gt=0"`
	XA float64 `yaml:"xa" validate:"fraction"`
	XC float64 `yaml:"xc" validate:"fraction"`
}

type Limits struct {
	VCut  float64 `yaml:"vcut" validate:"gt=0"`
	CeMin float64 `yaml:"ce_min" validate:"gte=0"`
	CeMax float64 `yaml:"ce_max" validate:"gtfield=CeMin"`
}

// Overrides replace individual entries of cell.DefaultParameters
type Overrides struct {
	EpsA  *float64 `yaml:"eps_a" validate:"omitempty,fraction"`
	EpsS  *float64 `yaml:"eps_s" validate:"omitempty,fraction"`
	EpsC  *float64 `yaml:"eps_c" validate:"omitempty,fraction"`
	BrugA *float64 `yaml:"brug_a" validate:"omitempty,gte=0"`
	BrugS *float64 `yaml:"brug_s" validate:"omitempty,gte=0"`
	BrugC *float64 `yaml:"brug_c" validate:"omitempty,gte=0"`
	TPlus *float64 `yaml:"t_plus" validate:"omitempty,fraction"`

	RpA    *float64 `yaml:"rp_a" validate:"omitempty,gt=0"`
	RpC    *float64 `yaml:"rp_c" validate:"omitempty,gt=0"`
	SigA   *float64 `yaml:"sig_a" validate:"omitempty,gt=0"`
	SigC   *float64 `yaml:"sig_c" validate:"omitempty,gt=0"`
	DsA    *float64 `yaml:"ds_a" validate:"omitempty,gt=0"`
	DsC    *float64 `yaml:"ds_c" validate:"omitempty,gt=0"`
	EaDsA  *float64 `yaml:"ea_ds_a" validate:"omitempty,gte=0"`
	EaDsC  *float64 `yaml:"ea_ds_c" validate:"omitempty,gte=0"`
	CsMaxA *float64 `yaml:"cs_max_a" validate:"omitempty,gt=0"`
	CsMaxC *float64 `yaml:"cs_max_c" validate:"omitempty,gt=0"`
	CeNom  *float64 `yaml:"ce_nom" validate:"omitempty,gt=0"`

	KappaScale   *float64 `yaml:"kappa_scale" validate:"omitempty,gt=0"`
	ArealDensity *float64 `yaml:"areal_density" validate:"omitempty,gt=0"`
	H            *float64 `yaml:"h" validate:"omitempty,gte=0"`
	AConv        *float64 `yaml:"a_conv" validate:"omitempty,gte=0"`
	Cp           *float64 `yaml:"cp" validate:"omitempty,gt=0"`
	CoatedArea   *float64 `yaml:"coated_area" validate:"omitempty,gt=0"`
}

// TableFiles name the CSV files of the material maps
type TableFiles struct {
	De        string `yaml:"de" validate:"required"`
	Kappa     string `yaml:"kappa" validate:"required"`
	IoAnode   string `yaml:"io_anode" validate:"required"`
	IoCathode string `yaml:"io_cathode" validate:"required"`
	UAnode    string `yaml:"u_anode" validate:"required"`
	UCathode  string `yaml:"u_cathode" validate:"required"`

	// Hold end values outside the breakpoints instead of failing
	Clamp bool `yaml:"clamp"`
}

// Load reads and validates a configuration file
func Load(path string) (f *File, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if f, err = Parse(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.BaseDir = filepath.Dir(path)
	return
}

// Parse decodes and validates YAML. Missing initial conditions and limits
// take the cell defaults.
func Parse(data []byte) (*File, error) {
	ic, lim := cell.DefaultInitialConditions(), cell.DefaultLimits()
	f := &File{
		Initial: Initial{Ce: ic.Ce, XA: ic.XA, XC: ic.XC},
		Limits:  Limits{VCut: lim.VCut, CeMin: lim.CeMin, CeMax: lim.CeMax},
	}
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := validate.Struct(f); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return f, nil
}

// CellParameters applies the overrides to cell.DefaultParameters
func (f *File) CellParameters() cell.Parameters {
	p := cell.DefaultParameters()
	o := &f.Parameters
	for _, s := range []struct {
		v   *float64
		dst *float64
	}{
		{o.EpsA, &p.EpsA}, {o.EpsS, &p.EpsS}, {o.EpsC, &p.EpsC},
		{o.BrugA, &p.BrugA}, {o.BrugS, &p.BrugS}, {o.BrugC, &p.BrugC},
		{o.TPlus, &p.TPlus},
		{o.RpA, &p.RpA}, {o.RpC, &p.RpC},
		{o.SigA, &p.SigA}, {o.SigC, &p.SigC},
		{o.DsA, &p.DsA}, {o.DsC, &p.DsC},
		{o.EaDsA, &p.EaDsA}, {o.EaDsC, &p.EaDsC},
		{o.CsMaxA, &p.CsMaxA}, {o.CsMaxC, &p.CsMaxC},
		{o.CeNom, &p.CeNom},
		{o.KappaScale, &p.KappaScale}, {o.ArealDensity, &p.ArealDensity},
		{o.H, &p.H}, {o.AConv, &p.AConv}, {o.Cp, &p.Cp},
		{o.CoatedArea, &p.CoatedArea},
	} {
		if s.v != nil {
			*s.dst = *s.v
		}
	}
	return p
}

// NewMesh builds the control volume mesh across the cell thickness
func (f *File) NewMesh() (*mesh.Mesh1D, error) {
	m := f.Mesh
	na, ns, nc, err := partitions.SplitCounts(m.Volumes, m.Anode, m.Separator, m.Cathode)
	if err != nil {
		return nil, err
	}
	return mesh.NewMesh1D(m.Anode+m.Separator+m.Cathode, na, ns, nc)
}

func (f *File) InitialConditions() cell.InitialConditions {
	return cell.InitialConditions{Ce: f.Initial.Ce, XA: f.Initial.XA, XC: f.Initial.XC}
}

func (f *File) CellLimits() cell.Limits {
	return cell.Limits{VCut: f.Limits.VCut, CeMin: f.Limits.CeMin, CeMax: f.Limits.CeMax}
}

// LoadTables reads the material maps. Relative paths resolve against
// baseDir.
func (f *File) LoadTables(baseDir string, logger *slog.Logger) (tabs *cell.Tables, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}
	tf := f.Tables
	tabs = &cell.Tables{}
	for _, s := range []struct {
		path string
		dst  **tables.Surface
	}{
		{tf.De, &tabs.De}, {tf.Kappa, &tabs.Kappa},
		{tf.IoAnode, &tabs.IoAnode}, {tf.IoCathode, &tabs.IoCathode},
	} {
		path := resolve(s.path)
		if *s.dst, err = tables.LoadSurface(path); err != nil {
			return nil, fmt.Errorf("loading table: %w", err)
		}
		(*s.dst).Clamp = tf.Clamp
		logger.Debug("loaded surface", "path", path,
			"rows", len((*s.dst).X), "columns", len((*s.dst).Y))
	}
	for _, s := range []struct {
		path string
		dst  **tables.Curve
	}{
		{tf.UAnode, &tabs.UAnode}, {tf.UCathode, &tabs.UCathode},
	} {
		path := resolve(s.path)
		if *s.dst, err = tables.LoadCurve(path); err != nil {
			return nil, fmt.Errorf("loading table: %w", err)
		}
		(*s.dst).Clamp = tf.Clamp
		logger.Debug("loaded curve", "path", path, "points", len((*s.dst).X))
	}
	logger.Info("material tables loaded", "dir", baseDir, "clamp", tf.Clamp)
	return
}
