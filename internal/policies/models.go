package policies

import (
	"time"

	"github.com/lib/pq"
)

// Place is a location a policy can affect. Places form an implicit hierarchy
// through shared iso3/area1 values; there is no parent pointer.
type Place struct {
	ID          int64    `gorm:"primaryKey" json:"id"`
	Level       string   `gorm:"index" json:"level"`
	Iso3        string   `gorm:"index" json:"iso3"`
	Area1       string   `json:"area1"`
	Area2       string   `json:"area2"`
	AnsiFips    string   `gorm:"column:ansi_fips" json:"ansi_fips"`
	CountryName string   `json:"country_name"`
	Policies    []Policy `gorm:"many2many:policy_place;" json:"-"`
}

// Policy is a non-pharmaceutical intervention (NPI) policy record. Policies
// sharing a group number describe near-duplicate or related enactments and
// are counted once when deduplication is requested.
type Policy struct {
	ID                 int64          `gorm:"primaryKey" json:"id"`
	PolicyName         string         `json:"policy_name"`
	GroupNumber        *int64         `gorm:"index" json:"group_number"`
	PrimaryPhMeasure   string         `gorm:"index" json:"primary_ph_measure"`
	PhMeasureDetails   string         `json:"ph_measure_details"`
	Subtarget          pq.StringArray `gorm:"type:text[]" json:"subtarget"`
	Authority          string         `json:"authority"`
	DateStartEffective time.Time      `gorm:"type:date;index" json:"date_start_effective"`
	DateEndEffective   time.Time      `gorm:"type:date;index" json:"date_end_effective"`
	Places             []Place        `gorm:"many2many:policy_place;" json:"place"`
}

func (Place) TableName() string {
	return "place"
}

func (Policy) TableName() string {
	return "policy"
}
