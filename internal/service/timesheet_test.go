package service

import (
	"testing"
	"time"
	"wfm-backend/internal/models"
	"wfm-backend/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) createFactWithHours(t *testing.T, dt, start, end time.Time, dayHours, nightHours string) *models.WorkDay {
	t.Helper()
	wd := &models.WorkDay{
		EmployeeID:    &f.employee.ID,
		Dt:            models.DateOf(dt),
		IsFact:        true,
		IsApproved:    true,
		TypeCode:      models.TypeWorkday,
		ShopID:        &f.shop.ID,
		EmploymentID:  &f.employment.ID,
		DttmWorkStart: &start,
		DttmWorkEnd:   &end,
		DayHours:      decimal.RequireFromString(dayHours),
		NightHours:    decimal.RequireFromString(nightHours),
	}
	wd.WorkHours = wd.DayHours.Add(wd.NightHours)
	require.NoError(t, f.workDayRepo.Create(wd))
	return wd
}

func monthFilter(f *fixture, year, month int) repository.TimesheetFilter {
	from := date(year, month, 1)
	to := from.AddDate(0, 1, -1)
	return repository.TimesheetFilter{
		EmployeeIDs: []uint{f.employee.ID},
		DtFrom:      &from,
		DtTo:        &to,
	}
}

func TestRecalcMonth_FactEqualsMainPlusAdditional(t *testing.T) {
	f := newFixture(t)
	svc := f.timesheetService()

	// Две рабочие недели февраля 2021 по 8 часов
	for _, day := range []int{1, 2, 3, 4, 5, 8, 9, 10, 11, 12} {
		f.createFactWithHours(t, date(2021, 2, day),
			at(2021, 2, day, 9, 0), at(2021, 2, day, 18, 0), "8", "0")
	}

	require.NoError(t, svc.RecalcMonth(f.employee.ID, 2021, 2))

	stats, err := svc.Stats(monthFilter(f, 2021, 2))
	require.NoError(t, err)
	require.Len(t, stats, 1)

	hoursEqual(t, "80", stats[0].FactHours)
	// Выходные и так свободны, переработки нет: всё остаётся в основном
	hoursEqual(t, "80", stats[0].MainHours)
	hoursEqual(t, "0", stats[0].AdditionalHours)
	assert.Equal(t, 10, stats[0].WorkDays)

	// Сумма основного и дополнительного всегда равна факту
	sum := stats[0].MainHours.Add(stats[0].AdditionalHours)
	assert.True(t, sum.Equal(stats[0].FactHours))
}

func TestRecalcMonth_DailyCapGoesToAdditional(t *testing.T) {
	f := newFixture(t)
	svc := f.timesheetService()

	f.createFactWithHours(t, date(2021, 2, 1),
		at(2021, 2, 1, 8, 0), at(2021, 2, 1, 22, 0), "14", "0")

	require.NoError(t, svc.RecalcMonth(f.employee.ID, 2021, 2))

	stats, err := svc.Stats(monthFilter(f, 2021, 2))
	require.NoError(t, err)
	require.Len(t, stats, 1)

	hoursEqual(t, "14", stats[0].FactHours)
	hoursEqual(t, "12", stats[0].MainHours)
	hoursEqual(t, "2", stats[0].AdditionalHours)
}

func TestRecalcMonth_SecondRunIsIdempotent(t *testing.T) {
	f := newFixture(t)
	svc := f.timesheetService()

	for _, day := range []int{1, 2, 3} {
		f.createFactWithHours(t, date(2021, 2, day),
			at(2021, 2, day, 9, 0), at(2021, 2, day, 18, 0), "8", "0")
	}

	require.NoError(t, svc.RecalcMonth(f.employee.ID, 2021, 2))
	first, err := svc.ListItems(monthFilter(f, 2021, 2))
	require.NoError(t, err)
	require.NotEmpty(t, first)

	require.NoError(t, svc.RecalcMonth(f.employee.ID, 2021, 2))
	second, err := svc.ListItems(monthFilter(f, 2021, 2))
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.True(t, first[i].Dt.Equal(second[i].Dt))
		assert.Equal(t, first[i].TimesheetType, second[i].TimesheetType)
		assert.True(t, first[i].TotalHours().Equal(second[i].TotalHours()),
			"item %d: %s vs %s", i, first[i].TotalHours(), second[i].TotalHours())
	}
}

func TestRecalc_RequiresExactMonthBounds(t *testing.T) {
	f := newFixture(t)
	svc := f.timesheetService()

	_, err := svc.Recalc(f.shop.ID, date(2021, 2, 2), date(2021, 2, 28), nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Recalc(f.shop.ID, date(2021, 2, 1), date(2021, 2, 27), nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRecalc_DiscoversEmployeesByShop(t *testing.T) {
	f := newFixture(t)
	svc := f.timesheetService()

	f.createFactWithHours(t, date(2021, 2, 1),
		at(2021, 2, 1, 9, 0), at(2021, 2, 1, 18, 0), "8", "0")

	count, err := svc.Recalc(f.shop.ID, date(2021, 2, 1), date(2021, 2, 28), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	items, err := svc.ListItems(monthFilter(f, 2021, 2))
	require.NoError(t, err)
	assert.NotEmpty(t, items)
}

func TestLines_GroupsByEmployeeAndType(t *testing.T) {
	f := newFixture(t)
	svc := f.timesheetService()

	for _, day := range []int{1, 2} {
		f.createFactWithHours(t, date(2021, 2, day),
			at(2021, 2, day, 9, 0), at(2021, 2, day, 18, 0), "8", "0")
	}
	require.NoError(t, svc.RecalcMonth(f.employee.ID, 2021, 2))

	lines, err := svc.Lines(monthFilter(f, 2021, 2))
	require.NoError(t, err)

	byType := map[string]TimesheetLine{}
	for _, line := range lines {
		assert.Equal(t, f.employee.ID, line.EmployeeID)
		byType[line.TimesheetType] = line
	}

	fact, ok := byType[models.TimesheetFact]
	require.True(t, ok)
	hoursEqual(t, "16", fact.TotalHours)
	hoursEqual(t, "8", fact.Days["2021-02-01"])

	main, ok := byType[models.TimesheetMain]
	require.True(t, ok)
	hoursEqual(t, "16", main.TotalHours)
}
