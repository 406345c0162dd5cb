package hotlab

import (
	"time"

	"github.com/google/uuid"

	"github.com/imena-mn/nmflow/internal/domain/exam"
)

// ActivityUnit is the unit a radiopharmaceutical activity is expressed in.
type ActivityUnit string

const (
	UnitMBq ActivityUnit = "MBq"
	UnitMCi ActivityUnit = "mCi"
	UnitGBq ActivityUnit = "GBq"
)

func (u ActivityUnit) IsValid() bool {
	switch u {
	case UnitMBq, UnitMCi, UnitGBq:
		return true
	}
	return false
}

// Product is a radiopharmaceutical the department stocks.
type Product struct {
	ID      uuid.UUID    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name    string       `gorm:"column:name;type:varchar(255);not null;uniqueIndex" json:"name"`
	Isotope string       `gorm:"column:isotope;type:varchar(20);not null" json:"isotope"`
	Unit    ActivityUnit `gorm:"column:unit;type:varchar(10);not null" json:"unit"`
}

func (Product) TableName() string {
	return "hotlab.products"
}

// TracerLot is a received batch of a product.
type TracerLot struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"-"`

	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;index" json:"productId"`
	LotNumber string    `gorm:"column:lot_number;type:varchar(100);not null;index" json:"lotNumber"`

	ExpiryDate          time.Time  `gorm:"column:expiry_date;not null;index" json:"expiryDate"`
	CalibrationDateTime *time.Time `gorm:"column:calibration_datetime" json:"calibrationDateTime,omitempty"`
	InitialActivity     *float64   `gorm:"column:initial_activity" json:"initialActivity,omitempty"`

	Unit             ActivityUnit `gorm:"column:unit;type:varchar(10);not null" json:"unit"`
	ReceivedDate     time.Time    `gorm:"column:received_date;not null" json:"receivedDate"`
	QuantityReceived int          `gorm:"column:quantity_received;not null" json:"quantityReceived"`
	Notes            string       `gorm:"column:notes;type:text" json:"notes,omitempty"`
}

func (TracerLot) TableName() string {
	return "hotlab.tracer_lots"
}

func (l *TracerLot) IsExpiredAt(t time.Time) bool {
	return t.After(l.ExpiryDate)
}

// Preparation is a dose drawn from a lot, optionally linked to a patient.
type Preparation struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"-"`

	TracerLotID uuid.UUID  `gorm:"column:tracer_lot_id;type:uuid;not null;index" json:"tracerLotId"`
	PatientID   *uuid.UUID `gorm:"column:patient_id;type:uuid;index" json:"patientId,omitempty"`
	ExamType    *exam.Type `gorm:"column:exam_type;type:varchar(100)" json:"examType,omitempty"`

	ActivityPrepared float64      `gorm:"column:activity_prepared;not null" json:"activityPrepared"`
	Unit             ActivityUnit `gorm:"column:unit;type:varchar(10);not null" json:"unit"`

	PreparationDateTime time.Time `gorm:"column:preparation_datetime;not null;index" json:"preparationDateTime"`
	PreparedBy          string    `gorm:"column:prepared_by;type:varchar(200);not null" json:"preparedBy"`
	Notes               string    `gorm:"column:notes;type:text" json:"notes,omitempty"`
}

func (Preparation) TableName() string {
	return "hotlab.preparations"
}

// Inventory is the hot lab's full state, served to the GENERATEUR room view.
type Inventory struct {
	Products     []*Product     `json:"products"`
	Lots         []*TracerLot   `json:"lots"`
	Preparations []*Preparation `json:"preparations"`
}

type CreateLotCommand struct {
	ProductID           uuid.UUID
	LotNumber           string
	ExpiryDate          time.Time
	CalibrationDateTime *time.Time
	InitialActivity     *float64
	Unit                ActivityUnit
	ReceivedDate        time.Time
	QuantityReceived    int
	Notes               string
}

type CreatePreparationCommand struct {
	TracerLotID         uuid.UUID
	PatientID           *uuid.UUID
	ExamType            *exam.Type
	ActivityPrepared    float64
	Unit                ActivityUnit
	PreparationDateTime time.Time
	PreparedBy          string
	Notes               string
}
