package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/signalsfoundry/propagation-tool/core"
	"github.com/signalsfoundry/propagation-tool/internal/logging"
	"github.com/signalsfoundry/propagation-tool/model"
)

// ErrRunNotFound is returned by GetRun for an unknown ID.
var ErrRunNotFound = errors.New("run not found")

// Store archives calculation runs in SQLite through gorm.
type Store struct {
	db  *gorm.DB
	log logging.Logger
}

// Record is an archived run with its metadata.
type Record struct {
	ID          string
	CreatedAt   time.Time
	Calculation core.Calculation
}

// Summary describes a run without its series.
type Summary struct {
	ID              string    `json:"run_id"`
	CreatedAt       time.Time `json:"created_at"`
	FrequencyHz     float64   `json:"frequency_hz"`
	TxHeight        float64   `json:"tx_height_m"`
	RxHeight        float64   `json:"rx_height_m"`
	Horizon         float64   `json:"horizon_m"`
	DistanceSamples int       `json:"distance_samples"`
	HeightSamples   int       `json:"height_samples"`
}

// Open connects to the SQLite file at path and migrates the schema. An empty
// path opens a private in-memory database.
func Open(path string, log logging.Logger) (*Store, error) {
	if log == nil {
		log = logging.Noop()
	}
	dsn := path
	if dsn == "" {
		dsn = fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: false,
		CreateBatchSize:        2000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	s := &Store{db: db, log: log}
	if err := db.Exec("PRAGMA foreign_keys = ON;").Error; err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("error setting PRAGMA: %w", err)
	}
	if err := db.AutoMigrate(Models...); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate run archive: %w", err)
	}
	log.Info(context.Background(), "run archive ready", logging.String("path", path))
	return s, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveRun archives calc under id and returns the ID. An empty id is replaced
// by a fresh UUID.
func (s *Store) SaveRun(ctx context.Context, id string, calc core.Calculation) (string, error) {
	run := toRun(calc)
	run.ID = id
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(&run).Error; err != nil {
		return "", fmt.Errorf("save run: %w", err)
	}
	s.log.Debug(ctx, "run archived",
		logging.String("run_id", run.ID),
		logging.Int("distance_samples", run.DistanceCount),
		logging.Int("height_samples", run.HeightCount),
	)
	return run.ID, nil
}

// GetRun loads a run and both of its series in sweep order.
func (s *Store) GetRun(ctx context.Context, id string) (Record, error) {
	var run Run
	err := s.db.WithContext(ctx).
		Preload("DistanceSamples", func(db *gorm.DB) *gorm.DB { return db.Order("seq") }).
		Preload("HeightSamples", func(db *gorm.DB) *gorm.DB { return db.Order("seq") }).
		First(&run, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Record{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Record{}, fmt.Errorf("load run %s: %w", id, err)
	}
	calc, err := fromRun(run)
	if err != nil {
		return Record{}, err
	}
	return Record{ID: run.ID, CreatedAt: run.CreatedAt, Calculation: calc}, nil
}

// ListRuns returns up to limit summaries, newest first. limit <= 0 means 50.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []Run
	if err := s.db.WithContext(ctx).Order("created_at desc").Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	out := make([]Summary, 0, len(runs))
	for _, r := range runs {
		out = append(out, Summary{
			ID:              r.ID,
			CreatedAt:       r.CreatedAt,
			FrequencyHz:     r.FrequencyHz,
			TxHeight:        r.TxHeight,
			RxHeight:        r.RxHeight,
			Horizon:         r.Horizon,
			DistanceSamples: r.DistanceCount,
			HeightSamples:   r.HeightCount,
		})
	}
	return out, nil
}

// DeleteRun removes a run and its samples.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", id).Delete(&DistanceSampleRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("run_id = ?", id).Delete(&HeightSampleRow{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&Run{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil
	})
}

func toRun(calc core.Calculation) Run {
	link, req := calc.Link, calc.Request
	run := Run{
		FrequencyHz:     link.FrequencyHz,
		TxPowerW:        link.TxPowerW,
		Conductivity:    link.Conductivity,
		Permittivity:    link.Permittivity,
		RoughnessM:      link.RoughnessM,
		Antenna:         link.Antenna.String(),
		Polarization:    link.Polarization.String(),
		K:               link.EarthRadiusFactor,
		TxHeight:        req.TxHeight,
		RxHeight:        req.RxHeight,
		DistanceStart:   req.DistanceStart,
		DistanceEnd:     req.DistanceEnd,
		DistanceStep:    req.DistanceStep,
		HeightStart:     req.HeightStart,
		HeightEnd:       req.HeightEnd,
		HeightStep:      req.HeightStep,
		VaryTx:          req.VaryTx,
		Horizon:         calc.State.Horizon,
		MaxDistance:     calc.State.MaxDistance,
		HasSamples:      calc.State.HasSamples,
		DistanceDropped: calc.Distance.Dropped,
		HeightDistance:  calc.Height.Distance,
		HeightDropped:   calc.Height.Dropped,
		DistanceCount:   len(calc.Distance.Samples),
		HeightCount:     len(calc.Height.Samples),
	}
	for i, smp := range calc.Distance.Samples {
		r := smp.Result
		run.DistanceSamples = append(run.DistanceSamples, DistanceSampleRow{
			Seq:            i,
			DistanceM:      smp.Distance,
			Field:          r.Field,
			Power:          r.Power,
			FreeSpaceField: r.FreeSpaceField,
			FreeSpacePower: r.FreeSpacePower,
			Reflection:     r.ReflectionMagnitude,
			Interference:   r.InterferenceMagnitude,
		})
	}
	for i, smp := range calc.Height.Samples {
		r := smp.Result
		run.HeightSamples = append(run.HeightSamples, HeightSampleRow{
			Seq:            i,
			HeightM:        smp.Height,
			TxHeight:       smp.TxHeight,
			RxHeight:       smp.RxHeight,
			Horizon:        smp.Horizon,
			Field:          r.Field,
			Power:          r.Power,
			FreeSpaceField: r.FreeSpaceField,
			FreeSpacePower: r.FreeSpacePower,
			Reflection:     r.ReflectionMagnitude,
			Interference:   r.InterferenceMagnitude,
			Fresnel:        smp.Fresnel,
		})
	}
	return run
}

func fromRun(run Run) (core.Calculation, error) {
	var antenna model.AntennaType
	if err := antenna.UnmarshalText([]byte(run.Antenna)); err != nil {
		return core.Calculation{}, fmt.Errorf("run %s: %w", run.ID, err)
	}
	var pol model.Polarization
	if err := pol.UnmarshalText([]byte(run.Polarization)); err != nil {
		return core.Calculation{}, fmt.Errorf("run %s: %w", run.ID, err)
	}

	calc := core.Calculation{
		Link: model.LinkConfig{
			FrequencyHz:       run.FrequencyHz,
			TxPowerW:          run.TxPowerW,
			Conductivity:      run.Conductivity,
			Permittivity:      run.Permittivity,
			RoughnessM:        run.RoughnessM,
			Antenna:           antenna,
			Polarization:      pol,
			EarthRadiusFactor: run.K,
		},
		Request: core.CalculationRequest{
			TxHeight:      run.TxHeight,
			RxHeight:      run.RxHeight,
			DistanceStart: run.DistanceStart,
			DistanceEnd:   run.DistanceEnd,
			DistanceStep:  run.DistanceStep,
			HeightStart:   run.HeightStart,
			HeightEnd:     run.HeightEnd,
			HeightStep:    run.HeightStep,
			VaryTx:        run.VaryTx,
		},
		State: core.SweepState{Horizon: run.Horizon, MaxDistance: run.MaxDistance, HasSamples: run.HasSamples},
		Distance: core.DistanceSweep{
			Horizon: run.Horizon,
			Dropped: run.DistanceDropped,
			Samples: make([]core.DistanceSample, 0, len(run.DistanceSamples)),
		},
		Height: core.HeightSweep{
			Distance: run.HeightDistance,
			Dropped:  run.HeightDropped,
			Samples:  make([]core.HeightSample, 0, len(run.HeightSamples)),
		},
	}
	for _, row := range run.DistanceSamples {
		calc.Distance.Samples = append(calc.Distance.Samples, core.DistanceSample{
			Distance: row.DistanceM,
			Result:   rowResult(row.Field, row.Power, row.FreeSpaceField, row.FreeSpacePower, row.Reflection, row.Interference),
		})
	}
	for _, row := range run.HeightSamples {
		calc.Height.Samples = append(calc.Height.Samples, core.HeightSample{
			Height:   row.HeightM,
			TxHeight: row.TxHeight,
			RxHeight: row.RxHeight,
			Horizon:  row.Horizon,
			Result:   rowResult(row.Field, row.Power, row.FreeSpaceField, row.FreeSpacePower, row.Reflection, row.Interference),
			Fresnel:  row.Fresnel,
		})
	}
	return calc, nil
}

func rowResult(field, power, fsField, fsPower, reflection, interference float64) core.PropagationResult {
	return core.PropagationResult{
		Field:                 field,
		Power:                 power,
		FreeSpaceField:        fsField,
		FreeSpacePower:        fsPower,
		ReflectionMagnitude:   reflection,
		InterferenceMagnitude: interference,
	}
}
