package store

import "time"

// Run is one archived calculation.
type Run struct {
	ID        string    `gorm:"primaryKey;size:36"`
	CreatedAt time.Time `gorm:"index:idx_run_created"`

	FrequencyHz  float64
	TxPowerW     float64
	Conductivity float64
	Permittivity float64
	RoughnessM   float64
	Antenna      string `gorm:"size:32"`
	Polarization string `gorm:"size:16"`
	K            float64

	TxHeight      float64
	RxHeight      float64
	DistanceStart float64
	DistanceEnd   float64
	DistanceStep  float64
	HeightStart   float64
	HeightEnd     float64
	HeightStep    float64
	VaryTx        bool

	Horizon         float64
	MaxDistance     float64
	HasSamples      bool
	DistanceDropped int
	HeightDistance  float64
	HeightDropped   int

	DistanceCount int
	HeightCount   int

	DistanceSamples []DistanceSampleRow `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
	HeightSamples   []HeightSampleRow   `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
}

// DistanceSampleRow is one emitted point of a distance sweep.
type DistanceSampleRow struct {
	ID    uint   `gorm:"primaryKey"`
	RunID string `gorm:"size:36;index:idx_distance_run_seq,priority:1"`
	Seq   int    `gorm:"index:idx_distance_run_seq,priority:2"`

	DistanceM      float64
	Field          float64
	Power          float64
	FreeSpaceField float64
	FreeSpacePower float64
	Reflection     float64
	Interference   float64
}

// HeightSampleRow is one emitted point of a height sweep.
type HeightSampleRow struct {
	ID    uint   `gorm:"primaryKey"`
	RunID string `gorm:"size:36;index:idx_height_run_seq,priority:1"`
	Seq   int    `gorm:"index:idx_height_run_seq,priority:2"`

	HeightM        float64
	TxHeight       float64
	RxHeight       float64
	Horizon        float64
	Field          float64
	Power          float64
	FreeSpaceField float64
	FreeSpacePower float64
	Reflection     float64
	Interference   float64
	Fresnel        int
}

// Models lists every table the store migrates.
var Models = []any{&Run{}, &DistanceSampleRow{}, &HeightSampleRow{}}
