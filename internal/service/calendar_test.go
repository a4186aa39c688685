package service

import (
	"testing"
	"wfm-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthNormHours_DefaultCalendar(t *testing.T) {
	f := newFixture(t)
	svc := f.calendarService()

	// Февраль 2021 - ровно 20 будних дней без записей календаря
	norm, err := svc.MonthNormHours(f.employment, "", 2021, 2, 0)
	require.NoError(t, err)
	hoursEqual(t, "160", norm)
}

func TestMonthNormHours_HalfRate(t *testing.T) {
	f := newFixture(t)
	svc := f.calendarService()

	f.employment.NormWorkHours = 50
	norm, err := svc.MonthNormHours(f.employment, "", 2021, 2, 0)
	require.NoError(t, err)
	hoursEqual(t, "80", norm)
}

func TestMonthNormHours_ShortAndHolidayOverrides(t *testing.T) {
	f := newFixture(t)
	svc := f.calendarService()

	// Среда объявлена праздником, пятница - сокращённым днём
	require.NoError(t, f.db.Create(&models.ProductionDay{
		Region: "", Dt: date(2021, 2, 3), Type: models.ProdDayHoliday,
	}).Error)
	require.NoError(t, f.db.Create(&models.ProductionDay{
		Region: "", Dt: date(2021, 2, 5), Type: models.ProdDayShort,
	}).Error)

	norm, err := svc.MonthNormHours(f.employment, "", 2021, 2, 0)
	require.NoError(t, err)
	// 160 минус 8 за праздник и минус 1 за сокращённый день
	hoursEqual(t, "151", norm)
}

func TestMonthNormHours_ReduceDays(t *testing.T) {
	f := newFixture(t)
	svc := f.calendarService()

	// Два дня отпуска снижают норму на среднюю дневную норму
	norm, err := svc.MonthNormHours(f.employment, "", 2021, 2, 2)
	require.NoError(t, err)
	hoursEqual(t, "144", norm)
}

func TestProductionDay_RegionFallback(t *testing.T) {
	f := newFixture(t)
	svc := f.calendarService()

	// Суббота объявлена рабочей в общероссийском календаре
	require.NoError(t, f.db.Create(&models.ProductionDay{
		Region: "", Dt: date(2021, 2, 20), Type: models.ProdDayWork,
	}).Error)

	dayType, err := svc.ProductionDay("77", date(2021, 2, 20))
	require.NoError(t, err)
	assert.Equal(t, models.ProdDayWork, dayType)

	// Для дат без записей тип выводится из дня недели
	dayType, err = svc.ProductionDay("77", date(2021, 2, 21))
	require.NoError(t, err)
	assert.Equal(t, models.ProdDayHoliday, dayType)
}

func TestBreakRulesFor_PositionBeatsShopAndNetwork(t *testing.T) {
	f := newFixture(t)
	svc := f.calendarService()

	posSet := &models.BreakSet{Name: "Должность"}
	require.NoError(t, f.db.Create(posSet).Error)
	require.NoError(t, f.db.Create(&models.BreakRule{
		BreakSetID: posSet.ID, ShiftFromMin: 0, ShiftToMin: 1440, Breaks: "15",
	}).Error)

	netSet := &models.BreakSet{Name: "Сеть"}
	require.NoError(t, f.db.Create(netSet).Error)
	require.NoError(t, f.db.Create(&models.BreakRule{
		BreakSetID: netSet.ID, ShiftFromMin: 0, ShiftToMin: 1440, Breaks: "45",
	}).Error)

	f.position.BreakSetID = &posSet.ID
	f.network.BreakSetID = &netSet.ID

	rules, err := svc.BreakRulesFor(f.position, f.shop, f.network)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "15", rules[0].Breaks)

	// Без набора у должности побеждает набор сети
	rules, err = svc.BreakRulesFor(nil, f.shop, f.network)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "45", rules[0].Breaks)
}

func TestBreakRulesFor_EmptySetFallsThrough(t *testing.T) {
	f := newFixture(t)
	svc := f.calendarService()

	// Набор должности существует, но правил не содержит
	emptySet := &models.BreakSet{Name: "Пустой"}
	require.NoError(t, f.db.Create(emptySet).Error)

	netSet := &models.BreakSet{Name: "Сеть"}
	require.NoError(t, f.db.Create(netSet).Error)
	require.NoError(t, f.db.Create(&models.BreakRule{
		BreakSetID: netSet.ID, ShiftFromMin: 0, ShiftToMin: 1440, Breaks: "30",
	}).Error)

	f.position.BreakSetID = &emptySet.ID
	f.network.BreakSetID = &netSet.ID

	rules, err := svc.BreakRulesFor(f.position, f.shop, f.network)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "30", rules[0].Breaks)
}

func TestBreakMinutesFor_FirstMatchWins(t *testing.T) {
	rules := []models.BreakRule{
		{ShiftFromMin: 0, ShiftToMin: 480, Breaks: "30"},
		{ShiftFromMin: 481, ShiftToMin: 1440, Breaks: "30,30"},
	}

	assert.Equal(t, 30, BreakMinutesFor(rules, 300))
	assert.Equal(t, 60, BreakMinutesFor(rules, 600))
	assert.Equal(t, 0, BreakMinutesFor(nil, 600))
}

func TestDailyNormHours_ScalesByRate(t *testing.T) {
	f := newFixture(t)
	svc := f.calendarService()

	hoursEqual(t, "8", svc.DailyNormHours(f.employment))

	f.employment.NormWorkHours = 50
	hoursEqual(t, "4", svc.DailyNormHours(f.employment))
}
