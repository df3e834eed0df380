package services

import (
	"io"
	"os"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"eph-processor/internal/models"
)

// Columns of the monthly basic-basket reference file.
const (
	incomeDateColumn      = "indice_tiempo"
	incomePovertyColumn   = "linea_pobreza"
	incomeIndigenceColumn = "linea_indigencia"
)

type month struct {
	year  int
	month int
}

type monthLines struct {
	poverty   float64
	indigence float64
}

// IncomeService holds the monthly poverty and indigence lines of one
// adult-equivalent household.
type IncomeService struct {
	months map[month]monthLines
}

// NewIncomeService loads the reference lines from a comma-delimited CSV.
func NewIncomeService(path string) (*IncomeService, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening income reference %s", path)
	}
	defer file.Close()

	s, err := ReadIncome(file)
	if err != nil {
		return nil, errors.Wrapf(err, "error loading %s", path)
	}
	return s, nil
}

// ReadIncome parses the reference lines from r. Rows with an unparseable
// date are skipped; an unparseable line value is skipped for that month.
func ReadIncome(r io.Reader) (*IncomeService, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return nil, errors.Wrap(df.Err, "error reading income CSV")
	}
	for _, col := range []string{incomeDateColumn, incomePovertyColumn, incomeIndigenceColumn} {
		if !slices.Contains(df.Names(), col) {
			return nil, missingColumns([]string{col})
		}
	}

	dates := df.Col(incomeDateColumn).Records()
	poverty := df.Col(incomePovertyColumn).Records()
	indigence := df.Col(incomeIndigenceColumn).Records()

	s := &IncomeService{months: make(map[month]monthLines, len(dates))}
	for i, raw := range dates {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			continue
		}
		p, ind := models.ParseNumber(poverty[i]), models.ParseNumber(indigence[i])
		if !p.Valid || !ind.Valid {
			continue
		}
		s.months[month{t.Year(), int(t.Month())}] = monthLines{poverty: p.Value, indigence: ind.Value}
	}
	return s, nil
}

// QuarterLines averages the monthly lines of the three months of period.
// Missing months are left out of the mean; a quarter with none is ErrNoData.
func (s *IncomeService) QuarterLines(period models.Period) (models.PovertyLines, error) {
	first, last := period.Months()
	res := models.PovertyLines{Period: period}
	for m := first; m <= last; m++ {
		lines, ok := s.months[month{period.Year, m}]
		if !ok {
			continue
		}
		res.Poverty += lines.poverty
		res.Indigence += lines.indigence
		res.Months++
	}
	if res.Months == 0 {
		return models.PovertyLines{}, noData("no reference lines for %s", period)
	}
	res.Poverty /= float64(res.Months)
	res.Indigence /= float64(res.Months)
	return res, nil
}

// Months returns the number of months loaded.
func (s *IncomeService) Months() int {
	return len(s.months)
}
