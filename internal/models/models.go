package models

import (
	"github.com/twpayne/go-geom"
)

// Source column names of the EPH extracts.
const (
	ColCodusu     = "CODUSU"
	ColNroHogar   = "NRO_HOGAR"
	ColAglomerado = "AGLOMERADO"
	ColRegion     = "REGION"
	ColYear       = "ANO4"
	ColQuarter    = "TRIMESTRE"
	ColWeight     = "PONDERA"

	ColMembers     = "IX_TOT"
	ColRooms       = "II2"
	ColFloor       = "IV3"
	ColWater       = "IV6"
	ColBathroom    = "IV8"
	ColSlum        = "IV12_3"
	ColKitchen     = "II4_1"
	ColTenure      = "II7"
	ColBathTenure  = "II9"
	ColRoof        = "V4"
	ColTotalIncome = "ITF"

	ColSex        = "CH04"
	ColAge        = "CH06"
	ColLiteracy   = "CH09"
	ColLevel      = "CH12"
	ColStatus     = "ESTADO"
	ColOccupation = "CAT_OCUP"
	ColInactivity = "CAT_INAC"
	ColEducation  = "NIVEL_ED"
	ColSector     = "PP04A"
)

// Derived column names appended by the classifier.
const (
	ColHouseholdType = "TIPO_HOGAR"
	ColDensity       = "DENSIDAD_HOGAR"
	ColRoofMaterial  = "MATERIAL_TECHUMBRE"
	ColHabitability  = "CONDICION_DE_HABITABILIDAD"

	ColSexLabel       = "CH04_str"
	ColEducationLabel = "NIVEL_ED_str"
	ColLaborCondition = "CONDICION_LABORAL"
	ColUniversity     = "UNIVERSITARIO"
)

// HouseholdDerivedColumns lists the classifier output for households, in
// the order they are appended.
var HouseholdDerivedColumns = []string{ColHouseholdType, ColDensity, ColRoofMaterial, ColHabitability}

// IndividualDerivedColumns lists the classifier output for individuals.
var IndividualDerivedColumns = []string{ColSexLabel, ColEducationLabel, ColLaborCondition, ColUniversity}

// HouseholdKey links individuals to their household.
type HouseholdKey struct {
	Codusu   string
	NroHogar string
}

// Household is one surveyed dwelling in one period.
type Household struct {
	Key        HouseholdKey
	Aglomerado Code
	Region     Code
	Period     Period
	Weight     Number

	Members     Number
	Rooms       Number
	Floor       Code
	Water       Code
	Bathroom    Code
	Slum        Code
	Kitchen     Code
	Tenure      Code
	BathTenure  Code
	Roof        Code
	TotalIncome Number

	Derived HouseholdDerived
}

// HouseholdDerived holds the classification columns of a household.
type HouseholdDerived struct {
	Type         string `json:"type"`
	Density      string `json:"density"`
	RoofMaterial string `json:"roof_material"`
	Habitability string `json:"habitability"`
}

// Values returns the derived values in HouseholdDerivedColumns order.
func (d HouseholdDerived) Values() []string {
	return []string{d.Type, d.Density, d.RoofMaterial, d.Habitability}
}

// Individual is one surveyed person in one period.
type Individual struct {
	Key        HouseholdKey
	Aglomerado Code
	Region     Code
	Period     Period
	Weight     Number

	Age        Number
	Sex        Code
	Literacy   Code
	Level      Code
	Status     Code
	Occupation Code
	Inactivity Code
	Education  Code
	Sector     Code

	Derived IndividualDerived
}

// IndividualDerived holds the classification columns of a person.
type IndividualDerived struct {
	SexLabel       string `json:"sex_label"`
	EducationLabel string `json:"education_label"`
	LaborCondition string `json:"labor_condition"`
	University     int    `json:"university"`
}

// Households is a parsed household table together with the source columns
// it was loaded from, so indicators can check their inputs.
type Households struct {
	Columns []string
	Rows    []Household
}

// Has reports whether every named column was present in the source.
func (h *Households) Has(cols ...string) bool {
	return hasColumns(h.Columns, cols)
}

// Individuals is the person-level counterpart of Households.
type Individuals struct {
	Columns []string
	Rows    []Individual
}

// Has reports whether every named column was present in the source.
func (in *Individuals) Has(cols ...string) bool {
	return hasColumns(in.Columns, cols)
}

func hasColumns(have []string, want []string) bool {
	set := make(map[string]bool, len(have))
	for _, c := range have {
		set[c] = true
	}
	for _, c := range want {
		if !set[c] {
			return false
		}
	}
	return true
}

// Aglomerado is one entry of the reference catalog.
type Aglomerado struct {
	Code      int     `json:"code"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	HasCoords bool    `json:"has_coordinates"`
}

// ToGeomPoint converts the aglomerado location to a go-geom Point.
func (a Aglomerado) ToGeomPoint() *geom.Point {
	return geom.NewPoint(geom.XY).MustSetCoords(geom.Coord{a.Longitude, a.Latitude})
}

// PovertyLines are the quarterly averages of the monthly reference lines.
type PovertyLines struct {
	Period    Period  `json:"period"`
	Poverty   float64 `json:"poverty_line"`
	Indigence float64 `json:"indigence_line"`
	Months    int     `json:"months"`
}
