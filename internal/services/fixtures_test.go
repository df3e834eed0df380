package services

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"eph-processor/internal/models"
)

// blank marks a cell left empty in a fixture row.
const blank = -1

func cell(v int) string {
	if v == blank {
		return ""
	}
	return strconv.Itoa(v)
}

func number(v float64) string {
	if v == blank {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var individualHeader = []string{
	models.ColCodusu, models.ColNroHogar, models.ColAglomerado, models.ColRegion,
	models.ColYear, models.ColQuarter, models.ColWeight,
	models.ColSex, models.ColAge, models.ColLiteracy, models.ColLevel, models.ColStatus,
	models.ColOccupation, models.ColInactivity, models.ColEducation, models.ColSector,
}

// person is a fixture individual. Zero codes are written as "0"; use blank
// for an empty cell.
type person struct {
	codusu     string
	hogar      int
	aglomerado int
	region     int
	year       int
	quarter    int
	weight     float64
	sex        int
	age        float64
	literacy   int
	level      int
	status     int
	occupation int
	inactivity int
	education  int
	sector     int
}

func (p person) row() []string {
	return []string{
		p.codusu, cell(p.hogar), cell(p.aglomerado), cell(p.region),
		cell(p.year), cell(p.quarter), number(p.weight),
		cell(p.sex), number(p.age), cell(p.literacy), cell(p.level), cell(p.status),
		cell(p.occupation), cell(p.inactivity), cell(p.education), cell(p.sector),
	}
}

func individualTable(people ...person) *Table {
	rows := make([][]string, len(people))
	for i, p := range people {
		rows[i] = p.row()
	}
	return NewTable(append([]string(nil), individualHeader...), rows)
}

func individuals(t *testing.T, people ...person) *models.Individuals {
	t.Helper()
	inds, dropped, err := ParseIndividuals(individualTable(people...))
	require.NoError(t, err)
	require.Zero(t, dropped)
	return inds
}

var householdHeader = []string{
	models.ColCodusu, models.ColNroHogar, models.ColAglomerado, models.ColRegion,
	models.ColYear, models.ColQuarter, models.ColWeight,
	models.ColMembers, models.ColRooms, models.ColFloor, models.ColWater, models.ColBathroom,
	models.ColSlum, models.ColKitchen, models.ColTenure, models.ColBathTenure, models.ColRoof,
	models.ColTotalIncome,
}

type dwelling struct {
	codusu     string
	hogar      int
	aglomerado int
	region     int
	year       int
	quarter    int
	weight     float64
	members    float64
	rooms      float64
	floor      int
	water      int
	bathroom   int
	slum       int
	kitchen    int
	tenure     int
	bathTenure int
	roof       int
	income     float64
}

func (d dwelling) row() []string {
	return []string{
		d.codusu, cell(d.hogar), cell(d.aglomerado), cell(d.region),
		cell(d.year), cell(d.quarter), number(d.weight),
		number(d.members), number(d.rooms), cell(d.floor), cell(d.water), cell(d.bathroom),
		cell(d.slum), cell(d.kitchen), cell(d.tenure), cell(d.bathTenure), cell(d.roof),
		number(d.income),
	}
}

func householdTable(dwellings ...dwelling) *Table {
	rows := make([][]string, len(dwellings))
	for i, d := range dwellings {
		rows[i] = d.row()
	}
	return NewTable(append([]string(nil), householdHeader...), rows)
}

func households(t *testing.T, dwellings ...dwelling) *models.Households {
	t.Helper()
	hhs, dropped, err := ParseHouseholds(householdTable(dwellings...))
	require.NoError(t, err)
	require.Zero(t, dropped)
	return hhs
}

// Dwelling shapes for each habitability tier.
var (
	insufficientDwelling = dwelling{kitchen: 2, water: 3, bathTenure: 3, floor: 3, roof: 5, bathroom: 2}
	regularDwelling      = dwelling{kitchen: 1, water: 3, bathTenure: 2, floor: 2, roof: 6, bathroom: 1}
	healthyDwelling      = dwelling{kitchen: 1, water: 2, bathroom: 1, floor: 2, roof: 1, bathTenure: 1}
	goodDwelling         = dwelling{kitchen: 1, water: 1, bathroom: 1, floor: 3, roof: 4, bathTenure: 1}
)

// in places a dwelling shape at an aglomerado and period.
func (d dwelling) in(codusu string, aglomerado, year, quarter int, weight float64) dwelling {
	d.codusu, d.hogar, d.aglomerado, d.year, d.quarter, d.weight = codusu, 1, aglomerado, year, quarter, weight
	return d
}
