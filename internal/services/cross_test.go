package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eph-processor/internal/models"
)

func TestUniversityHouseholdRanking(t *testing.T) {
	var dwellings []dwelling
	var people []person
	// Aglomerado code c has c of its ten households with a graduate.
	for _, code := range []int{2, 3, 4, 5, 6, 7} {
		for i := 0; i < 10; i++ {
			key := string(rune('A'+code)) + string(rune('a'+i))
			dwellings = append(dwellings, dwelling{codusu: key, hogar: 1, aglomerado: code, year: 2023, quarter: 1, weight: 1, members: 2})
			education := 3
			if i < code {
				education = 6
			}
			people = append(people, person{codusu: key, hogar: 1, aglomerado: code, year: 2023, quarter: 1, weight: 1, education: education})
		}
	}
	// A single-member household never counts.
	dwellings = append(dwellings, dwelling{codusu: "solo", hogar: 1, aglomerado: 2, year: 2023, quarter: 1, weight: 50, members: 1})

	got, err := newTestAggregator().UniversityHouseholdRanking(households(t, dwellings...), individuals(t, people...))
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, 1, got[0].Rank)
	assert.Equal(t, 7, got[0].Aglomerado)
	assert.Equal(t, 70.0, got[0].Percentage)
	assert.Equal(t, 3, got[4].Aglomerado)
}

func TestRetireesInInsufficientHousing(t *testing.T) {
	hhs := households(t,
		insufficientDwelling.in("A", 13, 2023, 2, 1),
		goodDwelling.in("B", 13, 2023, 2, 1),
		insufficientDwelling.in("B", 13, 2023, 1, 1),
	)
	inds := individuals(t,
		person{codusu: "A", hogar: 1, aglomerado: 13, year: 2023, quarter: 2, weight: 1, inactivity: 1},
		person{codusu: "B", hogar: 1, aglomerado: 13, year: 2023, quarter: 2, weight: 3, inactivity: 1},
		person{codusu: "Z", hogar: 1, aglomerado: 13, year: 2023, quarter: 2, weight: 9, inactivity: 1},
		person{codusu: "B", hogar: 1, aglomerado: 13, year: 2023, quarter: 1, weight: 5, inactivity: 1},
	)
	got, period, err := newTestAggregator().RetireesInInsufficientHousing(hhs, inds)
	require.NoError(t, err)
	assert.Equal(t, models.Period{Year: 2023, Quarter: 2}, period)
	require.Len(t, got, 1)
	assert.Equal(t, 4.0, got[0].Total, "retirees without a household in the same period are left out")
	assert.Equal(t, 25.0, got[0].Percentage)
}

func TestUniversityInInsufficientHousing(t *testing.T) {
	hhs := households(t,
		insufficientDwelling.in("A", 13, 2023, 4, 1),
		goodDwelling.in("B", 13, 2023, 4, 1),
	)
	inds := individuals(t,
		person{codusu: "A", hogar: 1, aglomerado: 13, year: 2023, quarter: 4, weight: 7, education: 5},
		person{codusu: "A", hogar: 1, aglomerado: 13, year: 2023, quarter: 4, weight: 2, education: 2},
		person{codusu: "B", hogar: 1, aglomerado: 13, year: 2023, quarter: 4, weight: 4, education: 6},
	)
	a := newTestAggregator()
	got, err := a.UniversityInInsufficientHousing(hhs, inds, 2023)
	require.NoError(t, err)
	assert.Equal(t, models.PeriodValue{Year: 2023, Quarter: 4, Value: 7}, got)

	_, err = a.UniversityInInsufficientHousing(hhs, inds, 2021)
	assert.ErrorIs(t, err, ErrNoData)
}
