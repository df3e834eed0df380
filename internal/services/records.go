package services

import (
	"strings"

	"eph-processor/internal/models"
)

func weight(raw string) models.Number {
	w := models.ParseNumber(raw)
	if w.Valid && w.Value < 0 {
		return models.Number{}
	}
	return w
}

func key(get func(string) string) models.HouseholdKey {
	return models.HouseholdKey{
		Codusu:   strings.TrimSpace(get(models.ColCodusu)),
		NroHogar: models.ParseCode(get(models.ColNroHogar)).Raw,
	}
}

func householdFromRow(get func(string) string) models.Household {
	period, _ := models.ParsePeriod(get(models.ColYear), get(models.ColQuarter))
	return models.Household{
		Key:         key(get),
		Aglomerado:  models.ParseCode(get(models.ColAglomerado)),
		Region:      models.ParseCode(get(models.ColRegion)),
		Period:      period,
		Weight:      weight(get(models.ColWeight)),
		Members:     models.ParseNumber(get(models.ColMembers)),
		Rooms:       models.ParseNumber(get(models.ColRooms)),
		Floor:       models.ParseCode(get(models.ColFloor)),
		Water:       models.ParseCode(get(models.ColWater)),
		Bathroom:    models.ParseCode(get(models.ColBathroom)),
		Slum:        models.ParseCode(get(models.ColSlum)),
		Kitchen:     models.ParseCode(get(models.ColKitchen)),
		Tenure:      models.ParseCode(get(models.ColTenure)),
		BathTenure:  models.ParseCode(get(models.ColBathTenure)),
		Roof:        models.ParseCode(get(models.ColRoof)),
		TotalIncome: models.ParseNumber(get(models.ColTotalIncome)),
	}
}

func individualFromRow(get func(string) string) models.Individual {
	period, _ := models.ParsePeriod(get(models.ColYear), get(models.ColQuarter))
	return models.Individual{
		Key:        key(get),
		Aglomerado: models.ParseCode(get(models.ColAglomerado)),
		Region:     models.ParseCode(get(models.ColRegion)),
		Period:     period,
		Weight:     weight(get(models.ColWeight)),
		Age:        models.ParseNumber(get(models.ColAge)),
		Sex:        models.ParseCode(get(models.ColSex)),
		Literacy:   models.ParseCode(get(models.ColLiteracy)),
		Level:      models.ParseCode(get(models.ColLevel)),
		Status:     models.ParseCode(get(models.ColStatus)),
		Occupation: models.ParseCode(get(models.ColOccupation)),
		Inactivity: models.ParseCode(get(models.ColInactivity)),
		Education:  models.ParseCode(get(models.ColEducation)),
		Sector:     models.ParseCode(get(models.ColSector)),
	}
}

var recordKeyColumns = []string{models.ColYear, models.ColQuarter, models.ColWeight}

// ParseHouseholds converts a household table into typed records with their
// classification. Rows whose year/quarter do not form a valid period are
// dropped; the second result counts them.
func ParseHouseholds(t *Table) (*models.Households, int, error) {
	if missing := t.Missing(recordKeyColumns...); len(missing) > 0 {
		return nil, 0, missingColumns(missing)
	}
	out := &models.Households{Columns: t.Header, Rows: make([]models.Household, 0, len(t.Rows))}
	dropped := 0
	for _, row := range t.Rows {
		get := t.Getter(row)
		if _, ok := models.ParsePeriod(get(models.ColYear), get(models.ColQuarter)); !ok {
			dropped++
			continue
		}
		h := householdFromRow(get)
		h.Derived = ClassifyHousehold(h)
		out.Rows = append(out.Rows, h)
	}
	return out, dropped, nil
}

// ParseIndividuals is the person-level counterpart of ParseHouseholds.
func ParseIndividuals(t *Table) (*models.Individuals, int, error) {
	if missing := t.Missing(recordKeyColumns...); len(missing) > 0 {
		return nil, 0, missingColumns(missing)
	}
	out := &models.Individuals{Columns: t.Header, Rows: make([]models.Individual, 0, len(t.Rows))}
	dropped := 0
	for _, row := range t.Rows {
		get := t.Getter(row)
		if _, ok := models.ParsePeriod(get(models.ColYear), get(models.ColQuarter)); !ok {
			dropped++
			continue
		}
		in := individualFromRow(get)
		in.Derived = ClassifyIndividual(in)
		out.Rows = append(out.Rows, in)
	}
	return out, dropped, nil
}
