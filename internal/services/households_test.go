package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eph-processor/internal/models"
)

func TestHouseholdTypeShares(t *testing.T) {
	hhs := households(t,
		dwelling{codusu: "A", year: 2023, quarter: 1, weight: 10, members: 1},
		dwelling{codusu: "B", year: 2023, quarter: 1, weight: 20, members: 3},
		dwelling{codusu: "C", year: 2023, quarter: 2, weight: 10, members: 6},
		dwelling{codusu: "D", year: 2022, quarter: 4, weight: 60, members: 6},
	)
	a := newTestAggregator()
	got, err := a.HouseholdTypeShares(hhs, 2023)
	require.NoError(t, err)
	assert.Equal(t, []models.CategoryShare{
		{Category: HouseholdSingle, Weighted: 10, Percentage: 25},
		{Category: HouseholdNuclear, Weighted: 20, Percentage: 50},
		{Category: HouseholdExtended, Weighted: 10, Percentage: 25},
	}, got)

	sum := 0.0
	all, err := a.HouseholdTypeShares(hhs, AllYears)
	require.NoError(t, err)
	for _, s := range all {
		sum += s.Percentage
	}
	assert.InDelta(t, 100, sum, 0.02)

	_, err = a.HouseholdTypeShares(hhs, 1999)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestPredominantFloorMaterial(t *testing.T) {
	hhs := households(t,
		dwelling{codusu: "A", aglomerado: 13, year: 2023, quarter: 1, weight: 5, floor: 1},
		dwelling{codusu: "B", aglomerado: 13, year: 2023, quarter: 1, weight: 5, floor: 2},
		dwelling{codusu: "C", aglomerado: 2, year: 2023, quarter: 1, weight: 1, floor: 1},
		dwelling{codusu: "D", aglomerado: 2, year: 2023, quarter: 1, weight: 4, floor: blank},
	)
	got, err := newTestAggregator().PredominantFloorMaterial(hhs)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, NoDataLabel, got[0].Category)
	assert.Equal(t, 80.0, got[0].Percentage)
	assert.Equal(t, models.FloorMaterials[2], got[1].Category, "ties go to the first label in order")
	assert.Equal(t, 50.0, got[1].Percentage)
}

func TestBathroomShare(t *testing.T) {
	hhs := households(t,
		dwelling{codusu: "A", aglomerado: 13, year: 2023, quarter: 1, weight: 1, bathroom: 1},
		dwelling{codusu: "B", aglomerado: 13, year: 2023, quarter: 1, weight: 2, bathroom: 2},
	)
	got, err := newTestAggregator().BathroomShare(hhs)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 0.3333, got[0].Proportion)
}

func TestTenureEvolution(t *testing.T) {
	hhs := households(t,
		dwelling{codusu: "A", aglomerado: 13, year: 2022, quarter: 1, weight: 2, tenure: 3},
		dwelling{codusu: "B", aglomerado: 13, year: 2022, quarter: 2, weight: 3, tenure: 3},
		dwelling{codusu: "C", aglomerado: 13, year: 2023, quarter: 1, weight: 1, tenure: 1},
		dwelling{codusu: "D", aglomerado: 2, year: 2023, quarter: 1, weight: 9, tenure: 1},
	)
	got, err := newTestAggregator().TenureEvolution(hhs, 13)
	require.NoError(t, err)
	assert.Equal(t, []models.TenureCount{
		{Year: 2022, Tenure: "Tenant", Weighted: 5},
		{Year: 2023, Tenure: "Owner of dwelling and land", Weighted: 1},
	}, got)
}

func TestSlumAndOwnerShares(t *testing.T) {
	hhs := households(t,
		dwelling{codusu: "A", aglomerado: 33, year: 2023, quarter: 1, weight: 1, slum: 1, tenure: 1},
		dwelling{codusu: "B", aglomerado: 33, year: 2023, quarter: 1, weight: 3, slum: 2, tenure: 3},
		dwelling{codusu: "C", aglomerado: 33, year: 2023, quarter: 1, weight: 0, slum: 1, tenure: 2},
	)
	a := newTestAggregator()
	slum, err := a.SlumShare(hhs)
	require.NoError(t, err)
	assert.Equal(t, 25.0, slum[0].Percentage)

	owners, err := a.OwnerOccupiedShare(hhs)
	require.NoError(t, err)
	assert.Equal(t, 4.0, owners[0].Total, "zero-weight rows are ignored")
	assert.Equal(t, 25.0, owners[0].Percentage)
}

func TestHabitabilityByAglomerado(t *testing.T) {
	hhs := households(t,
		goodDwelling.in("A", 13, 2023, 1, 1),
		insufficientDwelling.in("B", 13, 2023, 1, 3),
		healthyDwelling.in("C", 13, 2023, 1, 4),
	)
	got, err := newTestAggregator().HabitabilityByAglomerado(hhs)
	require.NoError(t, err)
	var labels []string
	total := 0.0
	for _, c := range got {
		labels = append(labels, c.Category)
		total += c.Percentage
	}
	assert.Equal(t, []string{HabitabilityInsufficient, HabitabilityHealthy, HabitabilityGood}, labels)
	assert.InDelta(t, 100, total, 0.02)
}

func TestRenterShareByRegion_HighestFirst(t *testing.T) {
	hhs := households(t,
		dwelling{codusu: "A", region: 1, year: 2023, quarter: 1, weight: 1, tenure: 3},
		dwelling{codusu: "B", region: 1, year: 2023, quarter: 1, weight: 3, tenure: 1},
		dwelling{codusu: "C", region: 44, year: 2023, quarter: 1, weight: 1, tenure: 3},
	)
	got, err := newTestAggregator().RenterShareByRegion(hhs)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 44, got[0].Region)
	assert.Equal(t, "Patagonia", got[0].Name)
	assert.Equal(t, 100.0, got[0].Percentage)
	assert.Equal(t, 25.0, got[1].Percentage)
}

func TestMostCrowdedWithoutBathroom(t *testing.T) {
	hhs := households(t,
		dwelling{codusu: "A", aglomerado: 13, year: 2023, quarter: 1, weight: 5, bathroom: 2, members: 3},
		dwelling{codusu: "B", aglomerado: 2, year: 2023, quarter: 1, weight: 4, bathroom: 2, members: 5},
		dwelling{codusu: "C", aglomerado: 2, year: 2023, quarter: 1, weight: 9, bathroom: 2, members: 2},
	)
	got, err := newTestAggregator().MostCrowdedWithoutBathroom(hhs)
	require.NoError(t, err)
	assert.Equal(t, 13, got.Aglomerado)
	assert.Equal(t, 5.0, got.Value)
}

func TestPrecariousRoofExtremes(t *testing.T) {
	hhs := households(t,
		dwelling{codusu: "A", aglomerado: 2, year: 2023, quarter: 4, weight: 1, roof: 5},
		dwelling{codusu: "B", aglomerado: 2, year: 2023, quarter: 4, weight: 1, roof: 1},
		dwelling{codusu: "C", aglomerado: 3, year: 2023, quarter: 4, weight: 1, roof: 1},
		dwelling{codusu: "D", aglomerado: 4, year: 2023, quarter: 4, weight: 1, roof: 1},
		dwelling{codusu: "E", aglomerado: 5, year: 2023, quarter: 3, weight: 1, roof: 7},
	)
	a := newTestAggregator()
	got, err := a.PrecariousRoofExtremes(hhs, 2023)
	require.NoError(t, err)
	assert.Equal(t, []models.RoofExtreme{
		{Kind: ExtremeHighest, Aglomerado: 2, Name: a.Catalog().AglomeradoName(2), Percentage: 50},
		{Kind: ExtremeLowest, Aglomerado: 3, Name: a.Catalog().AglomeradoName(3), Percentage: 0},
	}, got)

	_, err = a.PrecariousRoofExtremes(hhs, 2022)
	assert.ErrorIs(t, err, ErrNoData)
}
