package services

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eph-processor/internal/models"
)

func newTestAggregator() *Aggregator {
	return NewAggregator(models.NewCatalog(nil))
}

func TestLaborRates_HalfUnemployed(t *testing.T) {
	inds := individuals(t,
		person{codusu: "A", aglomerado: 13, year: 2023, quarter: 1, weight: 10, age: 30, status: 1, occupation: 3},
		person{codusu: "B", aglomerado: 13, year: 2023, quarter: 1, weight: 10, age: 20, status: 2},
		person{codusu: "C", aglomerado: 13, year: 2023, quarter: 1, weight: 50, age: 70, status: 3},
	)
	rates, err := newTestAggregator().UnemploymentRate(inds, AllAglomerados)
	require.NoError(t, err)
	assert.Equal(t, []models.PeriodValue{{Year: 2023, Quarter: 1, Value: 50.00}}, rates)
}

func TestLaborRates_SumToHundred(t *testing.T) {
	inds := individuals(t,
		person{codusu: "A", aglomerado: 2, year: 2022, quarter: 4, weight: 7, status: 1, occupation: 1},
		person{codusu: "B", aglomerado: 2, year: 2022, quarter: 4, weight: 3, status: 2},
		person{codusu: "C", aglomerado: 2, year: 2023, quarter: 1, weight: 1, status: 1, occupation: 3},
		person{codusu: "D", aglomerado: 2, year: 2023, quarter: 1, weight: 2, status: 2},
		person{codusu: "E", aglomerado: 3, year: 2023, quarter: 1, weight: 100, status: 2},
	)
	a := newTestAggregator()
	all, err := a.LaborRates(inds, AllAglomerados)
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, r := range all {
		assert.InDelta(t, 100, r.EmploymentRate+r.UnemploymentRate, 0.011, r.Period)
	}
	assert.Equal(t, "2022 T4", all[0].Period)

	filtered, err := a.LaborRates(inds, 2)
	require.NoError(t, err)
	assert.Equal(t, 33.33, filtered[1].EmploymentRate)
	assert.Equal(t, 66.67, filtered[1].UnemploymentRate)
}

func TestAggregations_EmptyInput(t *testing.T) {
	a := newTestAggregator()
	empty := &models.Individuals{Columns: individualHeader}
	noHouseholds := &models.Households{Columns: householdHeader}

	_, err := a.LaborRates(empty, AllAglomerados)
	assert.ErrorIs(t, err, ErrNoData)
	_, err = a.AgeStats(nil)
	assert.ErrorIs(t, err, ErrNoData)
	_, err = a.RateEvolution(empty)
	assert.ErrorIs(t, err, ErrNoData)
	_, err = a.HouseholdTypeShares(noHouseholds, AllYears)
	assert.ErrorIs(t, err, ErrNoData)
	_, err = a.UniversityHouseholdRanking(noHouseholds, empty)
	assert.ErrorIs(t, err, ErrNoData)
	_, err = Coverage(nil)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestAggregations_MissingColumns(t *testing.T) {
	inds := &models.Individuals{
		Columns: []string{models.ColYear, models.ColQuarter, models.ColWeight},
		Rows:    []models.Individual{{Period: models.Period{Year: 2023, Quarter: 1}}},
	}
	_, err := newTestAggregator().LaborRates(inds, AllAglomerados)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestDependencyRatio(t *testing.T) {
	inds := individuals(t,
		person{codusu: "A", aglomerado: 13, year: 2023, quarter: 1, weight: 10, age: 15},
		person{codusu: "B", aglomerado: 13, year: 2023, quarter: 1, weight: 10, age: 64},
		person{codusu: "C", aglomerado: 13, year: 2023, quarter: 1, weight: 5, age: 65},
		person{codusu: "D", aglomerado: 13, year: 2023, quarter: 1, weight: 5, age: 14},
		person{codusu: "E", aglomerado: 13, year: 2023, quarter: 2, weight: 5, age: 80},
	)
	got, err := newTestAggregator().DependencyRatio(inds, AllAglomerados)
	require.NoError(t, err)
	require.Len(t, got, 1, "periods without working-age population are omitted")
	assert.Equal(t, 20.0, got[0].WorkingAge)
	assert.Equal(t, 10.0, got[0].Dependent)
	assert.Equal(t, 50.0, got[0].Ratio)
}

func TestAgeStats(t *testing.T) {
	inds := individuals(t,
		person{codusu: "A", year: 2023, quarter: 1, weight: 1, age: 10},
		person{codusu: "B", year: 2023, quarter: 1, weight: 1, age: 20},
		person{codusu: "C", year: 2023, quarter: 1, weight: 2, age: 60},
		person{codusu: "D", year: 2023, quarter: 1, weight: blank, age: 99},
	)
	got, err := newTestAggregator().AgeStats(inds)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 37.5, got[0].MeanAge)
	assert.Equal(t, 20.0, got[0].MedianAge)
	assert.GreaterOrEqual(t, got[0].MedianAge, 10.0)
	assert.LessOrEqual(t, got[0].MedianAge, 60.0)
	assert.Equal(t, int64(4), got[0].Population)
}

func TestLiteracy_UsesLatestQuarterOfYear(t *testing.T) {
	inds := individuals(t,
		person{codusu: "A", year: 2023, quarter: 2, weight: 100, age: 30, literacy: 2},
		person{codusu: "B", year: 2023, quarter: 4, weight: 3, age: 30, literacy: 1},
		person{codusu: "C", year: 2023, quarter: 4, weight: 1, age: 30, literacy: 2},
		person{codusu: "D", year: 2023, quarter: 4, weight: 50, age: 5, literacy: 2},
	)
	got, err := newTestAggregator().Literacy(inds)
	require.NoError(t, err)
	want := []models.Literacy{{Year: 2023, Quarter: 4, Capable: 3, Incapable: 1, CapablePct: 75, IncapablePct: 25}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Literacy mismatch (-want +got):\n%s", diff)
	}
}

func TestPovertyHeadroom(t *testing.T) {
	p := models.Period{Year: 2023, Quarter: 3}
	hhs := households(t,
		dwelling{codusu: "A", year: 2023, quarter: 3, weight: 10, members: 4, income: 50},
		dwelling{codusu: "B", year: 2023, quarter: 3, weight: 30, members: 4, income: 150},
		dwelling{codusu: "C", year: 2023, quarter: 3, weight: 60, members: 4, income: 500},
		dwelling{codusu: "D", year: 2023, quarter: 3, weight: 99, members: 3, income: 10},
		dwelling{codusu: "E", year: 2023, quarter: 2, weight: 99, members: 4, income: 10},
	)
	got, err := newTestAggregator().PovertyHeadroom(hhs, models.PovertyLines{Period: p, Poverty: 200, Indigence: 100})
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.Households)
	assert.Equal(t, 40.0, got.BelowPovertyPct)
	assert.Equal(t, 10.0, got.BelowIndigencePct)

	_, err = newTestAggregator().PovertyHeadroom(hhs, models.PovertyLines{Period: models.Period{Year: 2020, Quarter: 1}})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestCoverage(t *testing.T) {
	got, err := Coverage([]models.Period{{Year: 2023, Quarter: 2}, {Year: 2022, Quarter: 4}, {Year: 2024, Quarter: 1}})
	require.NoError(t, err)
	assert.Equal(t, "2022 T4", got.From)
	assert.Equal(t, "2024 T1", got.To)
	assert.Equal(t, "10/2022", got.FirstDate)
	assert.Equal(t, "3/2024", got.LastDate)
	assert.Equal(t, 3, got.Rows)
}

func TestYearsAndFilters(t *testing.T) {
	inds := individuals(t,
		person{codusu: "A", year: 2023, quarter: 1, weight: 1},
		person{codusu: "B", year: 2022, quarter: 3, weight: 1},
		person{codusu: "C", year: 2023, quarter: 4, weight: 1},
	)
	assert.Equal(t, []int{2022, 2023}, Years(IndividualPeriods(inds)))
	assert.Len(t, FilterIndividualsByYear(inds, 2023).Rows, 2)
	assert.Same(t, inds, FilterIndividualsByYear(inds, AllYears))
}

func TestArgmax_TieGoesToSmallestKey(t *testing.T) {
	k, ok := argmax(map[string]float64{"b": 2, "a": 2, "c": 1})
	require.True(t, ok)
	assert.Equal(t, "a", k)

	_, ok = argmax(map[int]float64{})
	assert.False(t, ok)
}
